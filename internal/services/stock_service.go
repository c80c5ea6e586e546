package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"haito-mikke/internal/cache"
	"haito-mikke/internal/models"
	"haito-mikke/internal/nikkei"

	"go.uber.org/zap"
)

// ErrStockNotFound is returned when no stock has the requested code
var ErrStockNotFound = errors.New("stock not found")

const stockColumns = `code, name, sector, price, dividend_yield, dividend, market_cap,
	per, pbr, is_nikkei225, updated_at`

// StockService reads and writes the stocks table, with an optional Redis read cache
type StockService struct {
	db       *sql.DB
	cache    *cache.RedisCache
	cacheTTL time.Duration
	log      *zap.Logger
}

func NewStockService(db *sql.DB, redisCache *cache.RedisCache, cacheTTL time.Duration, log *zap.Logger) *StockService {
	return &StockService{
		db:       db,
		cache:    redisCache,
		cacheTTL: cacheTTL,
		log:      log,
	}
}

// GetDB exposes the underlying connection for health checks and tasks
func (s *StockService) GetDB() *sql.DB {
	return s.db
}

// ListStocks returns one filtered, sorted page of stocks
func (s *StockService) ListStocks(ctx context.Context, q models.StockQuery) (*models.StockPage, error) {
	var page models.StockPage
	if s.cacheGet(ctx, q.CacheKey(), &page) {
		return &page, nil
	}

	where, args := buildStockFilter(q)

	var total int
	countQuery := "SELECT COUNT(*) FROM stocks" + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count stocks: %w", err)
	}

	listQuery := fmt.Sprintf(
		"SELECT %s FROM stocks%s ORDER BY %s %s NULLS LAST, code ASC LIMIT $%d OFFSET $%d",
		stockColumns, where, q.SortColumn(), q.SortDirection(), len(args)+1, len(args)+2,
	)
	rows, err := s.db.QueryContext(ctx, listQuery, append(args, q.Limit, q.Offset())...)
	if err != nil {
		return nil, fmt.Errorf("failed to list stocks: %w", err)
	}
	defer rows.Close()

	stocks := make([]models.Stock, 0, q.Limit)
	for rows.Next() {
		stock, err := scanStock(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stock: %w", err)
		}
		stocks = append(stocks, stock)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stocks: %w", err)
	}

	page = models.StockPage{
		Data:       stocks,
		Pagination: models.NewPagination(q.Page, q.Limit, total),
	}
	s.cacheSet(ctx, q.CacheKey(), page)
	return &page, nil
}

func buildStockFilter(q models.StockQuery) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)

	if q.Sector != "" {
		args = append(args, q.Sector)
		conds = append(conds, fmt.Sprintf("sector = $%d", len(args)))
	}
	if q.OnlyNikkei225() {
		conds = append(conds, "is_nikkei225 = TRUE")
	}
	if q.MinYield != nil {
		args = append(args, *q.MinYield)
		conds = append(conds, fmt.Sprintf("dividend_yield >= $%d", len(args)))
	}
	if q.MaxYield != nil {
		args = append(args, *q.MaxYield)
		conds = append(conds, fmt.Sprintf("dividend_yield <= $%d", len(args)))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// GetStock returns a single stock by securities code
func (s *StockService) GetStock(ctx context.Context, code string) (*models.Stock, error) {
	var stock models.Stock
	if s.cacheGet(ctx, cache.StockKey(code), &stock) {
		return &stock, nil
	}

	row := s.db.QueryRowContext(ctx, "SELECT "+stockColumns+" FROM stocks WHERE code = $1", code)
	stock, err := scanStock(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStockNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stock %s: %w", code, err)
	}

	s.cacheSet(ctx, cache.StockKey(code), stock)
	return &stock, nil
}

// ListSectors returns each stored sector with its number of stocks
func (s *StockService) ListSectors(ctx context.Context) ([]models.SectorCount, error) {
	var sectors []models.SectorCount
	if s.cacheGet(ctx, cache.SectorsKey(), &sectors) {
		return sectors, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT sector, COUNT(*)
		FROM stocks
		WHERE sector IS NOT NULL AND sector <> ''
		GROUP BY sector
		ORDER BY COUNT(*) DESC, sector ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sectors: %w", err)
	}
	defer rows.Close()

	sectors = make([]models.SectorCount, 0)
	for rows.Next() {
		var sc models.SectorCount
		if err := rows.Scan(&sc.Name, &sc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan sector: %w", err)
		}
		sectors = append(sectors, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.cacheSet(ctx, cache.SectorsKey(), sectors)
	return sectors, nil
}

// UpsertStock inserts or updates a stock keyed by code. A missing sector
// in the quote keeps the stored one.
func (s *StockService) UpsertStock(ctx context.Context, q models.StockQuote) error {
	query := `
		INSERT INTO stocks (code, name, sector, price, dividend_yield, dividend, market_cap,
		                    per, pbr, is_nikkei225, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, TRUE, CURRENT_TIMESTAMP)
		ON CONFLICT (code)
		DO UPDATE SET
			name = EXCLUDED.name,
			sector = COALESCE(EXCLUDED.sector, stocks.sector),
			price = EXCLUDED.price,
			dividend_yield = EXCLUDED.dividend_yield,
			dividend = EXCLUDED.dividend,
			market_cap = EXCLUDED.market_cap,
			per = EXCLUDED.per,
			pbr = EXCLUDED.pbr,
			is_nikkei225 = TRUE,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := s.db.ExecContext(ctx, query,
		q.Code, q.Name, nullString(q.Sector),
		nullFloat(q.Price), nullFloat(q.DividendYield), nullFloat(q.Dividend),
		nullInt(q.MarketCap), nullFloat(q.PER), nullFloat(q.PBR),
	)
	return err
}

// SeedConstituents registers index members without quote data so the
// ranking lists them before the first sync
func (s *StockService) SeedConstituents(ctx context.Context, constituents []nikkei.Constituent) (int, error) {
	stmt, err := s.db.PrepareContext(ctx, `
		INSERT INTO stocks (code, name, sector, is_nikkei225)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (code)
		DO UPDATE SET
			name = EXCLUDED.name,
			sector = EXCLUDED.sector,
			is_nikkei225 = TRUE
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare seed statement: %w", err)
	}
	defer stmt.Close()

	seeded := 0
	for _, c := range constituents {
		if _, err := stmt.ExecContext(ctx, c.Code, c.Name, c.Sector); err != nil {
			s.log.Warn("failed to seed stock", zap.String("code", c.Code), zap.Error(err))
			continue
		}
		seeded++
	}
	return seeded, nil
}

// CountStocks returns the total number of stored stocks
func (s *StockService) CountStocks(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM stocks").Scan(&n)
	return n, err
}

// InvalidateCache drops every cached stock entry
func (s *StockService) InvalidateCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	deleted, err := s.cache.InvalidateStocks(ctx)
	if err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}
	s.log.Debug("cache invalidated", zap.Int64("keys", deleted))
	return nil
}

func (s *StockService) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	err := s.cache.Get(ctx, key, dest)
	if err == nil {
		return true
	}
	if !errors.Is(err, cache.ErrMiss) {
		s.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}
	return false
}

func (s *StockService) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cacheTTL); err != nil {
		s.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStock(row rowScanner) (models.Stock, error) {
	var stock models.Stock
	var sector sql.NullString
	var price, dividendYield, dividend, per, pbr sql.NullFloat64
	var marketCap sql.NullInt64

	err := row.Scan(
		&stock.Code, &stock.Name, &sector, &price, &dividendYield, &dividend,
		&marketCap, &per, &pbr, &stock.IsNikkei225, &stock.UpdatedAt,
	)
	if err != nil {
		return stock, err
	}

	if sector.Valid {
		stock.Sector = &sector.String
	}
	stock.Price = floatPtr(price)
	stock.DividendYield = floatPtr(dividendYield)
	stock.Dividend = floatPtr(dividend)
	stock.PER = floatPtr(per)
	stock.PBR = floatPtr(pbr)
	if marketCap.Valid {
		stock.MarketCap = &marketCap.Int64
	}
	return stock, nil
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
