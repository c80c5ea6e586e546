package handlers

import (
	"errors"
	"net/http"

	"haito-mikke/internal/services"
	"haito-mikke/internal/web"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PageHandler renders the HTML pages. The router must have the
// web.Templates set via SetHTMLTemplate.
type PageHandler struct {
	stocks StockReader
	log    *zap.Logger
}

func NewPageHandler(stocks StockReader, log *zap.Logger) *PageHandler {
	useFormTagNames()
	return &PageHandler{stocks: stocks, log: log}
}

func (h *PageHandler) Home(c *gin.Context) {
	c.HTML(http.StatusOK, web.HomePage, gin.H{"Title": ""})
}

func (h *PageHandler) Ranking(c *gin.Context) {
	q, err := BindStockQuery(c)
	if err != nil {
		view := web.NewRankingView(q, nil)
		view.Error = err.Error()
		c.HTML(http.StatusBadRequest, web.RankingPage, view)
		return
	}

	page, err := h.stocks.ListStocks(c.Request.Context(), q)
	if err != nil {
		h.log.Error("failed to load ranking", zap.Error(err))
		view := web.NewRankingView(q, nil)
		view.Error = "データの取得に失敗しました"
		c.HTML(http.StatusInternalServerError, web.RankingPage, view)
		return
	}

	c.HTML(http.StatusOK, web.RankingPage, web.NewRankingView(q, page))
}

func (h *PageHandler) Stock(c *gin.Context) {
	code := c.Param("code")
	if !ValidStockCode(code) {
		h.NotFound(c)
		return
	}

	stock, err := h.stocks.GetStock(c.Request.Context(), code)
	if errors.Is(err, services.ErrStockNotFound) {
		h.NotFound(c)
		return
	}
	if err != nil {
		h.log.Error("failed to load stock", zap.String("code", code), zap.Error(err))
		c.HTML(http.StatusInternalServerError, web.NotFoundPage, gin.H{
			"Title":   "エラー",
			"Message": "データの取得に失敗しました",
		})
		return
	}

	c.HTML(http.StatusOK, web.StockPage, web.NewStockView(stock))
}

// NotFound renders the 404 page; also used as the router's NoRoute handler
func (h *PageHandler) NotFound(c *gin.Context) {
	c.HTML(http.StatusNotFound, web.NotFoundPage, gin.H{"Title": "銘柄が見つかりません"})
}
