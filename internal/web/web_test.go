package web

import (
	"bytes"
	"testing"
	"time"

	"haito-mikke/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplates_Parse(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)

	for _, name := range []string{HomePage, RankingPage, StockPage, NotFoundPage} {
		assert.NotNil(t, tmpl.Lookup(name), name)
	}
}

func TestNewRankingView_RanksAndPager(t *testing.T) {
	q := models.DefaultStockQuery()
	q.Page = 2
	q.Limit = 2
	q.Nikkei225Only = "true"

	page := &models.StockPage{
		Data: []models.Stock{
			{Code: "9434", Name: "ソフトバンク"},
			{Code: "8306", Name: "三菱UFJフィナンシャル・グループ"},
		},
		Pagination: models.NewPagination(2, 2, 5),
	}

	view := NewRankingView(q, page)

	require.Len(t, view.Rows, 2)
	assert.Equal(t, 3, view.Rows[0].Rank)
	assert.Equal(t, 4, view.Rows[1].Rank)
	assert.Equal(t, "9434", view.Rows[0].Code)

	assert.Equal(t, "/ranking?limit=2&nikkei225Only=true&order=desc&page=1&sort=dividendYield", view.PrevURL)
	assert.Equal(t, "/ranking?limit=2&nikkei225Only=true&order=desc&page=3&sort=dividendYield", view.NextURL)
}

func TestNewRankingView_FirstAndLastPage(t *testing.T) {
	q := models.DefaultStockQuery()
	view := NewRankingView(q, &models.StockPage{
		Data:       []models.Stock{{Code: "7203"}},
		Pagination: models.NewPagination(1, 20, 1),
	})

	assert.Empty(t, view.PrevURL)
	assert.Empty(t, view.NextURL)
	assert.Equal(t, 1, view.Rows[0].Rank)
}

func TestRankingTemplate_Renders(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)

	yield, price := 3.5, 1800.0
	q := models.DefaultStockQuery()
	view := NewRankingView(q, &models.StockPage{
		Data: []models.Stock{{
			Code:          "8306",
			Name:          "三菱UFJフィナンシャル・グループ",
			DividendYield: &yield,
			Price:         &price,
			IsNikkei225:   true,
		}},
		Pagination: models.NewPagination(1, 20, 1),
	})

	var buf bytes.Buffer
	require.NoError(t, tmpl.ExecuteTemplate(&buf, RankingPage, view))

	html := buf.String()
	assert.Contains(t, html, "三菱UFJフィナンシャル・グループ")
	assert.Contains(t, html, "3.50%")
	assert.Contains(t, html, "1,800円")
	assert.Contains(t, html, `href="/stocks/8306"`)
	assert.Contains(t, html, "N225")
	assert.NotContains(t, html, "該当する銘柄がありません")
}

func TestRankingTemplate_EmptyState(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, tmpl.ExecuteTemplate(&buf, RankingPage, NewRankingView(models.DefaultStockQuery(), &models.StockPage{})))
	assert.Contains(t, buf.String(), "該当する銘柄がありません")
}

func TestStockTemplate_Renders(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)

	sector := "輸送用機器"
	marketCap := int64(40_000_000)
	stock := &models.Stock{
		Code:        "7203",
		Name:        "トヨタ自動車",
		Sector:      &sector,
		MarketCap:   &marketCap,
		IsNikkei225: true,
		UpdatedAt:   time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC),
	}

	var buf bytes.Buffer
	require.NoError(t, tmpl.ExecuteTemplate(&buf, StockPage, NewStockView(stock)))

	html := buf.String()
	assert.Contains(t, html, "トヨタ自動車（7203）の配当情報")
	assert.Contains(t, html, "輸送用機器")
	assert.Contains(t, html, "40.0兆円")
	assert.Contains(t, html, "2025/10/01 18:00")
	assert.Contains(t, html, "-倍")
}
