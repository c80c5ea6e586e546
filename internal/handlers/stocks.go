package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"haito-mikke/internal/models"
	"haito-mikke/internal/services"

	"github.com/gin-gonic/gin"
)

var stockCodePattern = regexp.MustCompile(`^\d{4}$`)

// StockReader is the read side of the stock store
type StockReader interface {
	ListStocks(ctx context.Context, q models.StockQuery) (*models.StockPage, error)
	GetStock(ctx context.Context, code string) (*models.Stock, error)
	ListSectors(ctx context.Context) ([]models.SectorCount, error)
}

// StockHandler serves the stock listing API
type StockHandler struct {
	stocks StockReader
}

func NewStockHandler(stocks StockReader) *StockHandler {
	useFormTagNames()
	return &StockHandler{stocks: stocks}
}

// ValidStockCode reports whether code is a 4-digit securities code
func ValidStockCode(code string) bool {
	return stockCodePattern.MatchString(code)
}

// BindStockQuery parses and validates the listing query parameters
func BindStockQuery(c *gin.Context) (models.StockQuery, error) {
	var q models.StockQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		return q, BadRequest("Invalid parameters: " + describeBindingError(err))
	}
	return q, nil
}

// ListStocks handles GET /api/stocks
func (h *StockHandler) ListStocks(c *gin.Context) {
	q, err := BindStockQuery(c)
	if err != nil {
		abortWithError(c, err)
		return
	}

	page, err := h.stocks.ListStocks(c.Request.Context(), q)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// GetStock handles GET /api/stocks/:code
func (h *StockHandler) GetStock(c *gin.Context) {
	code := c.Param("code")
	if !ValidStockCode(code) {
		abortWithError(c, BadRequest("Invalid stock code format. Must be 4 digits."))
		return
	}

	stock, err := h.stocks.GetStock(c.Request.Context(), code)
	if errors.Is(err, services.ErrStockNotFound) {
		abortWithError(c, NotFound(fmt.Sprintf("Stock with code %s not found", code)))
		return
	}
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, stock)
}

// ListSectors handles GET /api/sectors
func (h *StockHandler) ListSectors(c *gin.Context) {
	sectors, err := h.stocks.ListSectors(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": sectors})
}
