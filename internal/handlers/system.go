package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is satisfied by *sql.DB
type Pinger interface {
	PingContext(ctx context.Context) error
}

// CachePinger is satisfied by *cache.RedisCache
type CachePinger interface {
	Ping(ctx context.Context) error
}

// ClientCounter reports connected push clients
type ClientCounter interface {
	GetConnectedClients() int
}

type SystemHandler struct {
	db      Pinger
	cache   CachePinger
	clients ClientCounter
}

// NewSystemHandler wires the health check; cache and clients may be nil
func NewSystemHandler(db Pinger, cache CachePinger, clients ClientCounter) *SystemHandler {
	return &SystemHandler{
		db:      db,
		cache:   cache,
		clients: clients,
	}
}

// GetHealth handles GET /health. A failing database makes the service
// unhealthy; a failing cache only degrades it.
func (h *SystemHandler) GetHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	code := http.StatusOK
	components := gin.H{}

	if err := h.db.PingContext(ctx); err != nil {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
		components["database"] = gin.H{"status": "down", "error": err.Error()}
	} else {
		components["database"] = gin.H{"status": "up"}
	}

	switch {
	case h.cache == nil:
		components["cache"] = gin.H{"status": "disabled"}
	case h.cache.Ping(ctx) != nil:
		if status == "ok" {
			status = "degraded"
		}
		components["cache"] = gin.H{"status": "down"}
	default:
		components["cache"] = gin.H{"status": "up"}
	}

	response := gin.H{
		"status":     status,
		"service":    "haito-mikke",
		"components": components,
		"timestamp":  time.Now(),
	}
	if h.clients != nil {
		response["websocketClients"] = h.clients.GetConnectedClients()
	}

	c.JSON(code, response)
}
