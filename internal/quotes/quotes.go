// Package quotes serves current prices and dividend yields on top of
// the provider registry. Quotes are cached for a minute per cleaned
// symbol, and cash-equivalent tickers are priced at 1.0 without ever
// touching the network.
package quotes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/folioworks/folio/internal/holdings"
	"github.com/folioworks/folio/internal/infra"
	"github.com/folioworks/folio/internal/provider"
	"github.com/folioworks/folio/pkg/models"
)

const (
	quoteTTL = time.Minute
	yieldTTL = time.Hour

	// batchLimit bounds concurrent upstream requests during a refresh.
	batchLimit = 8
)

// Service resolves quotes through the registry with a short-lived cache.
type Service struct {
	reg   *provider.Registry
	cache *infra.Cache
	log   zerolog.Logger
}

// NewService creates a quote service backed by reg.
func NewService(reg *provider.Registry, log zerolog.Logger) *Service {
	return &Service{
		reg:   reg,
		cache: infra.NewCache(quoteTTL),
		log:   log.With().Str("component", "quotes").Logger(),
	}
}

// Quote returns the current price and trailing dividend yield for
// symbol. The symbol is cleaned before lookup, so "BRK.B" and "brk/b"
// resolve to the same entry.
func (s *Service) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	clean := holdings.CleanSymbol(symbol)
	if clean == "" {
		return nil, fmt.Errorf("empty symbol")
	}

	if holdings.IsCashSymbol(clean) {
		return &models.Quote{Symbol: clean, Price: 1.0, FetchedAt: time.Now()}, nil
	}

	if v, ok := s.cache.Get(clean); ok {
		q := *(v.(*models.Quote))
		q.Cached = true
		return &q, nil
	}

	res, err := s.reg.Fetch(ctx, provider.KindQuote, provider.QueryParams{
		provider.ParamSymbol: clean,
	})
	if err != nil {
		return nil, err
	}
	q, ok := res.Data.(*models.Quote)
	if !ok {
		return nil, fmt.Errorf("quote %s: unexpected data type %T", clean, res.Data)
	}
	q.Symbol = clean

	// Yield rides along on the quote so a single refresh carries both.
	// A yield failure degrades to 0 rather than failing the price.
	if yield, yerr := s.DividendYield(ctx, clean); yerr != nil {
		s.log.Debug().Str("symbol", clean).Err(yerr).Msg("dividend yield unavailable")
	} else {
		q.YieldPct = yield
	}

	s.cache.Set(clean, q)
	return q, nil
}

// Quotes fetches prices for all symbols concurrently. A failed symbol is
// logged and omitted from the result rather than failing the batch.
func (s *Service) Quotes(ctx context.Context, symbols []string) map[string]*models.Quote {
	var mu sync.Mutex
	out := make(map[string]*models.Quote, len(symbols))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(batchLimit)

	seen := make(map[string]bool, len(symbols))
	for _, sym := range symbols {
		clean := holdings.CleanSymbol(sym)
		if clean == "" || seen[clean] {
			continue
		}
		seen[clean] = true

		g.Go(func() error {
			q, err := s.Quote(ctx, clean)
			if err != nil {
				s.log.Warn().Str("symbol", clean).Err(err).Msg("quote refresh failed")
				return nil
			}
			mu.Lock()
			out[clean] = q
			mu.Unlock()
			return nil
		})
	}

	// Errors never propagate; each symbol degrades independently.
	_ = g.Wait()
	return out
}

// DividendYield returns the trailing dividend yield percentage for
// symbol, or 0 when no provider serves yields.
func (s *Service) DividendYield(ctx context.Context, symbol string) (float64, error) {
	clean := holdings.CleanSymbol(symbol)
	if holdings.IsCashSymbol(clean) {
		return 0, nil
	}

	key := "yield:" + clean
	if v, ok := s.cache.Get(key); ok {
		return v.(float64), nil
	}

	res, err := s.reg.Fetch(ctx, provider.KindDividendYield, provider.QueryParams{
		provider.ParamSymbol: clean,
	})
	if err != nil {
		return 0, err
	}
	yield, ok := res.Data.(float64)
	if !ok {
		return 0, fmt.Errorf("yield %s: unexpected data type %T", clean, res.Data)
	}

	s.cache.SetWithTTL(key, yield, yieldTTL)
	return yield, nil
}

// Invalidate drops the cached quote for symbol.
func (s *Service) Invalidate(symbol string) {
	s.cache.Invalidate(holdings.CleanSymbol(symbol))
}
