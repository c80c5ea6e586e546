package models

import (
	"math"
	"time"
)

// Stock is a stored stock record as served by the API
type Stock struct {
	Code          string    `json:"code"`
	Name          string    `json:"name"`
	Sector        *string   `json:"sector"`
	Price         *float64  `json:"price"`
	DividendYield *float64  `json:"dividendYield"`
	Dividend      *float64  `json:"dividend"`
	MarketCap     *int64    `json:"marketCap"`
	PER           *float64  `json:"per"`
	PBR           *float64  `json:"pbr"`
	IsNikkei225   bool      `json:"isNikkei225"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// StockQuote is a normalized quote produced by the fetcher.
// DividendYield is a percentage and MarketCap is in millions of yen.
type StockQuote struct {
	Code          string
	Name          string
	Sector        *string
	Price         *float64
	DividendYield *float64
	Dividend      *float64
	MarketCap     *int64
	PER           *float64
	PBR           *float64
}

// Pagination describes one page of a listing
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPagination computes total pages for the given total
func NewPagination(page, limit, total int) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(limit)))
	}
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}
}

// StockPage is the /api/stocks response body
type StockPage struct {
	Data       []Stock    `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// SectorCount is a sector name with its number of stocks
type SectorCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}
