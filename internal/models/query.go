package models

import "fmt"

// Sort fields accepted by the listing endpoints
const (
	SortDividendYield = "dividendYield"
	SortPrice         = "price"
	SortMarketCap     = "marketCap"
	SortPER           = "per"
	SortPBR           = "pbr"
	SortName          = "name"
	SortCode          = "code"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// sortColumns maps API sort fields onto stocks table columns
var sortColumns = map[string]string{
	SortDividendYield: "dividend_yield",
	SortPrice:         "price",
	SortMarketCap:     "market_cap",
	SortPER:           "per",
	SortPBR:           "pbr",
	SortName:          "name",
	SortCode:          "code",
}

// StockQuery holds the filter, sort and pagination parameters of a listing.
// Binding tags are evaluated by gin's query binding.
type StockQuery struct {
	Sort          string   `form:"sort,default=dividendYield" binding:"oneof=dividendYield price marketCap per pbr name code"`
	Order         string   `form:"order,default=desc" binding:"oneof=asc desc"`
	Sector        string   `form:"sector"`
	Nikkei225Only string   `form:"nikkei225Only"`
	MinYield      *float64 `form:"minYield" binding:"omitempty,min=0"`
	MaxYield      *float64 `form:"maxYield" binding:"omitempty,min=0"`
	Page          int      `form:"page,default=1" binding:"min=1"`
	Limit         int      `form:"limit,default=20" binding:"min=1,max=100"`
}

// DefaultStockQuery returns the query used when no parameters are given
func DefaultStockQuery() StockQuery {
	return StockQuery{
		Sort:  SortDividendYield,
		Order: "desc",
		Page:  1,
		Limit: DefaultPageLimit,
	}
}

// OnlyNikkei225 reports whether the universe filter is on.
// Only the literal "true" enables it.
func (q StockQuery) OnlyNikkei225() bool {
	return q.Nikkei225Only == "true"
}

// SortColumn returns the column to order by, falling back to dividend_yield
func (q StockQuery) SortColumn() string {
	if col, ok := sortColumns[q.Sort]; ok {
		return col
	}
	return sortColumns[SortDividendYield]
}

// SortDirection returns ASC or DESC
func (q StockQuery) SortDirection() string {
	if q.Order == "asc" {
		return "ASC"
	}
	return "DESC"
}

// Offset is the number of rows skipped before the current page
func (q StockQuery) Offset() int {
	if q.Page < 1 {
		return 0
	}
	return (q.Page - 1) * q.Limit
}

// CacheKey identifies the query in the read cache
func (q StockQuery) CacheKey() string {
	return fmt.Sprintf("stocks:list:%s:%s:%s:%t:%s:%s:%d:%d",
		q.Sort, q.SortDirection(), q.Sector, q.OnlyNikkei225(),
		formatBound(q.MinYield), formatBound(q.MaxYield), q.Page, q.Limit)
}

func formatBound(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%g", *v)
}
