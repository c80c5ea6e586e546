package handlers

import (
	"errors"
	"net/http"
	"testing"

	"haito-mikke/internal/models"
	"haito-mikke/internal/services"
	"haito-mikke/internal/web"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupFullRouter(t *testing.T, reader *MockStockReader, withPages bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := zap.NewNop()
	routes := Routes{
		Stocks: NewStockHandler(reader),
		Sync:   NewSyncHandler(new(MockStockSyncer), nil, nil, SyncHandlerConfig{}, log),
		System: NewSystemHandler(fakePinger{}, nil, nil),
	}
	if withPages {
		tmpl, err := web.Templates()
		require.NoError(t, err)
		routes.Pages = NewPageHandler(reader, log)
		routes.Templates = tmpl
	}
	return NewRouter(routes, nil, log)
}

func TestRouter_NoRoute(t *testing.T) {
	router := setupFullRouter(t, new(MockStockReader), true)

	w := doRequest(router, http.MethodGet, "/api/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, CodeNotFound, decodeError(t, w).Code)

	w = doRequest(router, http.MethodGet, "/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "銘柄が見つかりません")
}

func TestRouter_NoRouteWithoutPages(t *testing.T) {
	w := doRequest(setupFullRouter(t, new(MockStockReader), false), http.MethodGet, "/ranking", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Not found", decodeError(t, w).Message)
}

func TestRouter_RequestIDAndCORS(t *testing.T) {
	router := setupFullRouter(t, new(MockStockReader), false)

	w := doRequest(router, http.MethodGet, "/health", http.Header{"Origin": []string{"https://client.test"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = doRequest(router, http.MethodGet, "/health", http.Header{"X-Request-Id": []string{"abc-123"}})
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestRouter_RestrictedCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()
	router := NewRouter(Routes{
		Stocks: NewStockHandler(new(MockStockReader)),
		Sync:   NewSyncHandler(new(MockStockSyncer), nil, nil, SyncHandlerConfig{}, log),
		System: NewSystemHandler(fakePinger{}, nil, nil),
	}, []string{"https://haito.example.jp"}, log)

	w := doRequest(router, http.MethodGet, "/health", http.Header{"Origin": []string{"https://haito.example.jp"}})
	assert.Equal(t, "https://haito.example.jp", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	w = doRequest(router, http.MethodGet, "/health", http.Header{"Origin": []string{"https://evil.example.com"}})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPages_Home(t *testing.T) {
	w := doRequest(setupFullRouter(t, new(MockStockReader), true), http.MethodGet, "/", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "配当みっけ")
}

func TestPages_Ranking(t *testing.T) {
	reader := new(MockStockReader)
	yield := 4.25
	reader.On("ListStocks", mock.Anything, mock.MatchedBy(func(q models.StockQuery) bool {
		return q.OnlyNikkei225() && q.Sort == models.SortDividendYield
	})).Return(&models.StockPage{
		Data:       []models.Stock{{Code: "9434", Name: "ソフトバンク", DividendYield: &yield, IsNikkei225: true}},
		Pagination: models.NewPagination(1, 20, 1),
	}, nil)

	w := doRequest(setupFullRouter(t, reader, true), http.MethodGet, "/ranking?nikkei225Only=true", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ソフトバンク")
	assert.Contains(t, w.Body.String(), "4.25%")
	reader.AssertExpectations(t)
}

func TestPages_RankingInvalidQuery(t *testing.T) {
	reader := new(MockStockReader)
	w := doRequest(setupFullRouter(t, reader, true), http.MethodGet, "/ranking?limit=500", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "limit must be less than or equal to 100")
	reader.AssertNotCalled(t, "ListStocks", mock.Anything, mock.Anything)
}

func TestPages_RankingStoreError(t *testing.T) {
	reader := new(MockStockReader)
	reader.On("ListStocks", mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))

	w := doRequest(setupFullRouter(t, reader, true), http.MethodGet, "/ranking", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "データの取得に失敗しました")
}

func TestPages_Stock(t *testing.T) {
	reader := new(MockStockReader)
	reader.On("GetStock", mock.Anything, "7203").Return(&models.Stock{Code: "7203", Name: "トヨタ自動車"}, nil)
	reader.On("GetStock", mock.Anything, "9999").Return(nil, services.ErrStockNotFound)
	router := setupFullRouter(t, reader, true)

	w := doRequest(router, http.MethodGet, "/stocks/7203", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "トヨタ自動車（7203）の配当情報")

	w = doRequest(router, http.MethodGet, "/stocks/9999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "銘柄が見つかりません")

	w = doRequest(router, http.MethodGet, "/stocks/abc", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	reader.AssertNotCalled(t, "GetStock", mock.Anything, "abc")
}
