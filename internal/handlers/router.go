package handlers

import (
	"html/template"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Routes groups the handlers mounted by NewRouter. WebSocket, Pages and
// Templates may be nil.
type Routes struct {
	Stocks    *StockHandler
	Sync      *SyncHandler
	System    *SystemHandler
	WebSocket *WebSocketHandler
	Pages     *PageHandler
	Templates *template.Template
}

// NewRouter builds the gin engine with logging, recovery and CORS
func NewRouter(routes Routes, allowedOrigins []string, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(RequestLogger(log), Recovery(log))

	corsConfig := cors.Config{
		AllowOrigins:  allowedOrigins,
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
	}
	if len(allowedOrigins) == 0 {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowCredentials = true
	}
	r.Use(cors.New(corsConfig))

	if routes.Templates != nil {
		r.SetHTMLTemplate(routes.Templates)
	}

	r.GET("/health", routes.System.GetHealth)
	if routes.WebSocket != nil {
		r.GET("/ws", routes.WebSocket.HandleWebSocket)
	}

	api := r.Group("/api")
	{
		api.GET("/stocks", routes.Stocks.ListStocks)
		api.GET("/stocks/:code", routes.Stocks.GetStock)
		api.GET("/sectors", routes.Stocks.ListSectors)

		api.GET("/sync", routes.Sync.SyncUsage)
		api.POST("/sync", routes.Sync.TriggerSync)
		api.GET("/sync/status", routes.Sync.SyncStatus)
	}

	if routes.Pages != nil {
		r.GET("/", routes.Pages.Home)
		r.GET("/ranking", routes.Pages.Ranking)
		r.GET("/stocks/:code", routes.Pages.Stock)
	}

	r.NoRoute(func(c *gin.Context) {
		if routes.Pages == nil || strings.HasPrefix(c.Request.URL.Path, "/api/") {
			abortWithError(c, NotFound(""))
			return
		}
		routes.Pages.NotFound(c)
	})

	return r
}
