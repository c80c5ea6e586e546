package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"haito-mikke/internal/models"
	"haito-mikke/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockStockReader struct {
	mock.Mock
}

func (m *MockStockReader) ListStocks(ctx context.Context, q models.StockQuery) (*models.StockPage, error) {
	args := m.Called(ctx, q)
	page, _ := args.Get(0).(*models.StockPage)
	return page, args.Error(1)
}

func (m *MockStockReader) GetStock(ctx context.Context, code string) (*models.Stock, error) {
	args := m.Called(ctx, code)
	stock, _ := args.Get(0).(*models.Stock)
	return stock, args.Error(1)
}

func (m *MockStockReader) ListSectors(ctx context.Context) ([]models.SectorCount, error) {
	args := m.Called(ctx)
	sectors, _ := args.Get(0).([]models.SectorCount)
	return sectors, args.Error(1)
}

type errorBody struct {
	Error APIError `json:"error"`
}

func setupStockRouter(reader StockReader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewStockHandler(reader)
	router.GET("/api/stocks", handler.ListStocks)
	router.GET("/api/stocks/:code", handler.GetStock)
	router.GET("/api/sectors", handler.ListSectors)
	return router
}

func doRequest(router http.Handler, method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) APIError {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error
}

func TestListStocks_Defaults(t *testing.T) {
	reader := new(MockStockReader)
	yield := 4.0371
	reader.On("ListStocks", mock.Anything, models.DefaultStockQuery()).Return(&models.StockPage{
		Data: []models.Stock{{
			Code:          "9434",
			Name:          "ソフトバンク",
			DividendYield: &yield,
			IsNikkei225:   true,
			UpdatedAt:     time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC),
		}},
		Pagination: models.NewPagination(1, 20, 1),
	}, nil)

	w := doRequest(setupStockRouter(reader), http.MethodGet, "/api/stocks", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	data := body["data"].([]interface{})
	require.Len(t, data, 1)
	first := data[0].(map[string]interface{})
	assert.Equal(t, "9434", first["code"])
	assert.Equal(t, 4.0371, first["dividendYield"])
	assert.Nil(t, first["price"])
	assert.Nil(t, first["marketCap"])
	assert.Equal(t, true, first["isNikkei225"])
	assert.Equal(t, "2025-10-01T09:00:00Z", first["updatedAt"])

	pagination := body["pagination"].(map[string]interface{})
	assert.Equal(t, float64(1), pagination["page"])
	assert.Equal(t, float64(20), pagination["limit"])
	assert.Equal(t, float64(1), pagination["total"])
	assert.Equal(t, float64(1), pagination["totalPages"])

	reader.AssertExpectations(t)
}

func TestListStocks_BlankParametersUseDefaults(t *testing.T) {
	reader := new(MockStockReader)
	reader.On("ListStocks", mock.Anything, models.DefaultStockQuery()).
		Return(&models.StockPage{Data: []models.Stock{}, Pagination: models.NewPagination(1, 20, 0)}, nil)

	w := doRequest(setupStockRouter(reader), http.MethodGet, "/api/stocks?sort=&order=&page=&limit=", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	reader.AssertExpectations(t)
}

func TestListStocks_ParsesQuery(t *testing.T) {
	reader := new(MockStockReader)
	reader.On("ListStocks", mock.Anything, mock.MatchedBy(func(q models.StockQuery) bool {
		return q.Sort == models.SortPrice &&
			q.Order == "asc" &&
			q.Sector == "銀行業" &&
			q.OnlyNikkei225() &&
			q.MinYield != nil && *q.MinYield == 3 &&
			q.MaxYield == nil &&
			q.Page == 2 &&
			q.Limit == 50
	})).Return(&models.StockPage{Data: []models.Stock{}, Pagination: models.NewPagination(2, 50, 0)}, nil)

	target := "/api/stocks?sort=price&order=asc&sector=%E9%8A%80%E8%A1%8C%E6%A5%AD&nikkei225Only=true&minYield=3&page=2&limit=50"
	w := doRequest(setupStockRouter(reader), http.MethodGet, target, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[],"pagination":{"page":2,"limit":50,"total":0,"totalPages":0}}`, w.Body.String())
	reader.AssertExpectations(t)
}

func TestListStocks_InvalidParameters(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		message string
	}{
		{
			name:    "unknown sort field",
			query:   "sort=volume",
			message: "Invalid parameters: sort must be one of dividendYield, price, marketCap, per, pbr, name, code",
		},
		{
			name:    "unknown order",
			query:   "order=up",
			message: "Invalid parameters: order must be one of asc, desc",
		},
		{
			name:    "limit above maximum",
			query:   "limit=101",
			message: "Invalid parameters: limit must be less than or equal to 100",
		},
		{
			name:    "page below one",
			query:   "page=0",
			message: "Invalid parameters: page must be greater than or equal to 1",
		},
		{
			name:    "negative minimum yield",
			query:   "minYield=-1",
			message: "Invalid parameters: minYield must be greater than or equal to 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := new(MockStockReader)
			w := doRequest(setupStockRouter(reader), http.MethodGet, "/api/stocks?"+tt.query, nil)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			apiErr := decodeError(t, w)
			assert.Equal(t, tt.message, apiErr.Message)
			assert.Equal(t, CodeBadRequest, apiErr.Code)
			assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
			reader.AssertNotCalled(t, "ListStocks", mock.Anything, mock.Anything)
		})
	}
}

func TestListStocks_NonNumericPage(t *testing.T) {
	w := doRequest(setupStockRouter(new(MockStockReader)), http.MethodGet, "/api/stocks?page=abc", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w).Message, "Invalid parameters: ")
}

func TestListStocks_StoreError(t *testing.T) {
	reader := new(MockStockReader)
	reader.On("ListStocks", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	w := doRequest(setupStockRouter(reader), http.MethodGet, "/api/stocks", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	apiErr := decodeError(t, w)
	assert.Equal(t, "Internal server error", apiErr.Message)
	assert.Equal(t, CodeInternal, apiErr.Code)
}

func TestGetStock(t *testing.T) {
	reader := new(MockStockReader)
	sector := "輸送用機器"
	reader.On("GetStock", mock.Anything, "7203").Return(&models.Stock{
		Code:        "7203",
		Name:        "トヨタ自動車",
		Sector:      &sector,
		IsNikkei225: true,
	}, nil)
	reader.On("GetStock", mock.Anything, "9999").Return(nil, services.ErrStockNotFound)

	router := setupStockRouter(reader)

	w := doRequest(router, http.MethodGet, "/api/stocks/7203", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stock map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stock))
	assert.Equal(t, "7203", stock["code"])
	assert.Equal(t, "輸送用機器", stock["sector"])
	assert.Nil(t, stock["dividendYield"])

	w = doRequest(router, http.MethodGet, "/api/stocks/9999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	apiErr := decodeError(t, w)
	assert.Equal(t, "Stock with code 9999 not found", apiErr.Message)
	assert.Equal(t, CodeNotFound, apiErr.Code)
}

func TestGetStock_InvalidCode(t *testing.T) {
	reader := new(MockStockReader)
	router := setupStockRouter(reader)

	for _, code := range []string{"720", "72030", "abcd", "7a03"} {
		w := doRequest(router, http.MethodGet, "/api/stocks/"+code, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, code)
		assert.Equal(t, "Invalid stock code format. Must be 4 digits.", decodeError(t, w).Message)
	}
	reader.AssertNotCalled(t, "GetStock", mock.Anything, mock.Anything)
}

func TestListSectors(t *testing.T) {
	reader := new(MockStockReader)
	reader.On("ListSectors", mock.Anything).Return([]models.SectorCount{{Name: "電気機器", Count: 29}}, nil)

	w := doRequest(setupStockRouter(reader), http.MethodGet, "/api/sectors", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[{"name":"電気機器","count":29}]}`, w.Body.String())
}

func TestValidStockCode(t *testing.T) {
	assert.True(t, ValidStockCode("7203"))
	assert.True(t, ValidStockCode("0000"))
	assert.False(t, ValidStockCode(""))
	assert.False(t, ValidStockCode("７２０３"))
	assert.False(t, ValidStockCode("7203\n"))
}
