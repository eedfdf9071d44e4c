package marketdata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Jaiminp007/Advanced-Portfolio-Optimizer/internal/modules/optimization"
)

// maxConcurrentFetches bounds parallel upstream requests per call.
const maxConcurrentFetches = 5

// DefaultTickers is the curated universe offered to clients that have no
// watchlist of their own.
var DefaultTickers = []string{
	"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA",
	"NVDA", "JPM", "V", "META", "NFLX",
	"DIS", "BAC", "XOM", "JNJ", "PG",
	"KO", "PEP", "UNH", "ADBE", "HD",
}

// NormalizeSymbols canonicalizes ticker input by trimming whitespace and
// upper-casing. Every symbol the service caches, fetches, or hands to
// callers is in this form.
func NormalizeSymbols(symbols []string) []string {
	out := make([]string, len(symbols))
	for i, s := range symbols {
		out[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	return out
}

// PriceProvider fetches daily close history for one symbol.
type PriceProvider interface {
	GetDailyCloses(ctx context.Context, symbol, period string) (optimization.PriceSeries, error)
}

// Service serves price histories, reading through the cache and fetching
// misses from the provider concurrently.
type Service struct {
	provider PriceProvider
	cache    *Cache
	log      zerolog.Logger
}

func NewService(provider PriceProvider, cache *Cache, log zerolog.Logger) *Service {
	return &Service{
		provider: provider,
		cache:    cache,
		log:      log.With().Str("component", "marketdata").Logger(),
	}
}

// GetHistories returns the price history of every requested symbol over the
// period. Cache hits are served directly; misses fan out to the provider.
// Any symbol failing to resolve fails the whole call, since statistics built
// from a partial universe would silently change the portfolio's meaning.
func (s *Service) GetHistories(ctx context.Context, symbols []string, period string) (map[string]optimization.PriceSeries, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no symbols requested")
	}
	symbols = NormalizeSymbols(symbols)
	for _, s := range symbols {
		if s == "" {
			return nil, fmt.Errorf("blank symbol requested")
		}
	}

	histories := make(map[string]optimization.PriceSeries, len(symbols))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)

	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			series, err := s.getOne(ctx, symbol, period)
			if err != nil {
				return fmt.Errorf("%s: %w", symbol, err)
			}
			mu.Lock()
			histories[symbol] = series
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return histories, nil
}

func (s *Service) getOne(ctx context.Context, symbol, period string) (optimization.PriceSeries, error) {
	series, err := s.cache.Get(symbol, period)
	if err == nil {
		return series, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		// Cache failures degrade to an upstream fetch rather than failing the
		// request.
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("Price cache read failed")
	}

	series, err = s.provider.GetDailyCloses(ctx, symbol, period)
	if err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("no price data for %s", symbol)
	}

	if err := s.cache.Put(symbol, period, series); err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("Price cache write failed")
	}
	return series, nil
}

// PruneCache removes expired cache entries.
func (s *Service) PruneCache() (int64, error) {
	return s.cache.Prune()
}
