// Package web holds the server-rendered pages: templates, view models and
// display formatting.
package web

import (
	"embed"
	"html/template"
	"net/url"
	"strconv"

	"haito-mikke/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// Template names
const (
	HomePage     = "home.html"
	RankingPage  = "ranking.html"
	StockPage    = "stock.html"
	NotFoundPage = "not_found.html"
)

// SortOption is one entry of the ranking sort selector
type SortOption struct {
	Value string
	Label string
}

// SortOptions lists the sortable fields in display order
var SortOptions = []SortOption{
	{Value: models.SortDividendYield, Label: "配当利回り"},
	{Value: models.SortPrice, Label: "株価"},
	{Value: models.SortMarketCap, Label: "時価総額"},
	{Value: models.SortPER, Label: "PER"},
	{Value: models.SortPBR, Label: "PBR"},
	{Value: models.SortName, Label: "銘柄名"},
	{Value: models.SortCode, Label: "証券コード"},
}

// Templates parses the embedded page templates
func Templates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"yield":     FormatYield,
		"price":     FormatPrice,
		"ratio":     FormatRatio,
		"marketCap": FormatMarketCap,
		"jstTime":   FormatTime,
	}).ParseFS(templateFS, "templates/*.html")
}

// RankedStock is a table row with its position in the whole ranking
type RankedStock struct {
	Rank int
	models.Stock
}

// RankingView is the data of the ranking page
type RankingView struct {
	Title       string
	Query       models.StockQuery
	SortOptions []SortOption
	Rows        []RankedStock
	Pagination  models.Pagination
	PrevURL     string
	NextURL     string
	Error       string
}

// NewRankingView numbers the rows as (page-1)*limit + i + 1 and builds pager links
func NewRankingView(q models.StockQuery, page *models.StockPage) RankingView {
	view := RankingView{
		Title:       "配当利回りランキング",
		Query:       q,
		SortOptions: SortOptions,
	}
	if page == nil {
		return view
	}

	view.Pagination = page.Pagination
	view.Rows = make([]RankedStock, 0, len(page.Data))
	for idx, s := range page.Data {
		view.Rows = append(view.Rows, RankedStock{Rank: q.Offset() + idx + 1, Stock: s})
	}

	if q.Page > 1 {
		view.PrevURL = rankingURL(q, q.Page-1)
	}
	if q.Page < page.Pagination.TotalPages {
		view.NextURL = rankingURL(q, q.Page+1)
	}
	return view
}

func rankingURL(q models.StockQuery, page int) string {
	v := url.Values{}
	v.Set("sort", q.Sort)
	v.Set("order", q.Order)
	if q.OnlyNikkei225() {
		v.Set("nikkei225Only", "true")
	}
	if q.Sector != "" {
		v.Set("sector", q.Sector)
	}
	if q.MinYield != nil {
		v.Set("minYield", strconv.FormatFloat(*q.MinYield, 'f', -1, 64))
	}
	if q.MaxYield != nil {
		v.Set("maxYield", strconv.FormatFloat(*q.MaxYield, 'f', -1, 64))
	}
	if q.Limit != models.DefaultPageLimit {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	v.Set("page", strconv.Itoa(page))
	return "/ranking?" + v.Encode()
}

// StockView is the data of the detail page
type StockView struct {
	Title string
	Stock *models.Stock
}

func NewStockView(s *models.Stock) StockView {
	return StockView{
		Title: s.Name + "（" + s.Code + "）の配当情報",
		Stock: s,
	}
}
