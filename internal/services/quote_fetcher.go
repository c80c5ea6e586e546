package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"haito-mikke/internal/models"
	"haito-mikke/internal/nikkei"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/equity"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	DefaultBatchSize  = 10
	DefaultBatchDelay = 500 * time.Millisecond

	// equity.Get takes no context, so the client timeout bounds a stalled call
	DefaultQuoteTimeout = 10 * time.Second
)

var errEmptyQuote = errors.New("provider returned no quote")

// QuoteProvider fetches a raw equity quote for a provider ticker
type QuoteProvider interface {
	Equity(ctx context.Context, ticker string) (*finance.Equity, error)
}

// YahooProvider reads quotes from Yahoo Finance through finance-go
type YahooProvider struct {
	limiter *rate.Limiter
	client  *http.Client
}

// NewYahooProvider limits outgoing requests to requestsPerSecond and caps
// each request at timeout. finance-go keeps one process-wide HTTP client,
// so the timeout applies to every provider.
func NewYahooProvider(requestsPerSecond float64, timeout time.Duration) *YahooProvider {
	burst := int(requestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	if timeout <= 0 {
		timeout = DefaultQuoteTimeout
	}

	client := &http.Client{Timeout: timeout}
	finance.SetHTTPClient(client)

	return &YahooProvider{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
		client:  client,
	}
}

func (p *YahooProvider) Equity(ctx context.Context, ticker string) (*finance.Equity, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	q, err := equity.Get(ticker)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, errEmptyQuote
	}
	return q, nil
}

// ToYahooTicker converts a TSE securities code to a Yahoo Finance ticker
func ToYahooTicker(code string) string {
	return code + ".T"
}

// QuoteFetcher turns provider quotes into normalized StockQuotes
type QuoteFetcher struct {
	provider   QuoteProvider
	batchSize  int
	batchDelay time.Duration
	log        *zap.Logger
}

func NewQuoteFetcher(provider QuoteProvider, batchSize int, batchDelay time.Duration, log *zap.Logger) *QuoteFetcher {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if batchDelay < 0 {
		batchDelay = DefaultBatchDelay
	}
	return &QuoteFetcher{
		provider:   provider,
		batchSize:  batchSize,
		batchDelay: batchDelay,
		log:        log,
	}
}

// FetchQuote fetches one code. Any provider failure is logged and yields nil.
func (f *QuoteFetcher) FetchQuote(ctx context.Context, code string) *models.StockQuote {
	ticker := ToYahooTicker(code)

	if err := ctx.Err(); err != nil {
		return nil
	}

	q, err := f.provider.Equity(ctx, ticker)
	if err == nil && q == nil {
		err = errEmptyQuote
	}
	if err != nil {
		f.log.Warn("failed to fetch quote", zap.String("ticker", ticker), zap.Error(err))
		return nil
	}

	quote := normalizeQuote(code, q)
	return &quote
}

// FetchQuotes fetches codes in concurrent batches with a pause between
// batches. Failed codes are dropped; order of the input is preserved.
func (f *QuoteFetcher) FetchQuotes(ctx context.Context, codes []string) ([]models.StockQuote, error) {
	results := make([]models.StockQuote, 0, len(codes))

	for start := 0; start < len(codes); start += f.batchSize {
		end := start + f.batchSize
		if end > len(codes) {
			end = len(codes)
		}
		batch := codes[start:end]

		fetched := make([]*models.StockQuote, len(batch))
		g, gctx := errgroup.WithContext(ctx)
		for i, code := range batch {
			g.Go(func() error {
				fetched[i] = f.FetchQuote(gctx, code)
				return gctx.Err()
			})
		}
		waitErr := g.Wait()

		for _, q := range fetched {
			if q != nil {
				results = append(results, *q)
			}
		}

		if waitErr != nil {
			return results, waitErr
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}

		if end < len(codes) && f.batchDelay > 0 {
			timer := time.NewTimer(f.batchDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return results, ctx.Err()
			case <-timer.C:
			}
		}
	}

	f.log.Debug("fetched quotes", zap.Int("requested", len(codes)), zap.Int("fetched", len(results)))
	return results, nil
}

// FetchAllNikkei225Quotes fetches the whole index universe
func (f *QuoteFetcher) FetchAllNikkei225Quotes(ctx context.Context) ([]models.StockQuote, error) {
	return f.FetchQuotes(ctx, nikkei.Codes())
}

// UniverseSize is the number of codes a full fetch requests
func (f *QuoteFetcher) UniverseSize() int {
	return len(nikkei.Codes())
}

var (
	hundred = decimal.NewFromInt(100)
	million = decimal.NewFromInt(1_000_000)
)

func normalizeQuote(code string, q *finance.Equity) models.StockQuote {
	quote := models.StockQuote{
		Code:     code,
		Name:     code,
		Price:    nonZero(q.RegularMarketPrice),
		Dividend: nonZero(q.TrailingAnnualDividendRate),
		PER:      nonZero(q.TrailingPE),
		PBR:      nonZero(q.PriceToBook),
	}

	constituent, known := nikkei.Lookup(code)
	switch {
	case known && constituent.Name != "":
		quote.Name = constituent.Name
	case q.ShortName != "":
		quote.Name = q.ShortName
	case q.LongName != "":
		quote.Name = q.LongName
	}
	if known && constituent.Sector != "" {
		sector := constituent.Sector
		quote.Sector = &sector
	}

	if q.TrailingAnnualDividendYield > 0 {
		pct, _ := decimal.NewFromFloat(q.TrailingAnnualDividendYield).Mul(hundred).Round(4).Float64()
		quote.DividendYield = &pct
	}

	if q.MarketCap > 0 {
		millions := decimal.NewFromInt(q.MarketCap).Div(million).Round(0).IntPart()
		quote.MarketCap = &millions
	}

	return quote
}

// nonZero maps the provider's zero value for a missing field to nil
func nonZero(v float64) *float64 {
	if v == 0 {
		return nil
	}
	return &v
}
