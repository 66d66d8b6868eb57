// Package history serves five-year daily close series with a two-layer
// cache: an in-process cache in front of a durable store, both with a
// 24-hour TTL. Concurrent requests for the same symbol are collapsed
// into a single upstream fetch. When the durable store runs out of room
// the whole series namespace is evicted and the write retried once;
// beyond that the entry stays in memory only.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/folioworks/folio/internal/holdings"
	"github.com/folioworks/folio/internal/infra"
	"github.com/folioworks/folio/internal/provider"
	"github.com/folioworks/folio/internal/storage"
	"github.com/folioworks/folio/pkg/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	seriesTTL = 24 * time.Hour

	// keyPrefix namespaces durable entries so quota eviction only
	// touches series data.
	keyPrefix = "tiingo_"

	lookbackYears = 5
)

// Service resolves daily close history through the registry.
type Service struct {
	reg   *provider.Registry
	mem   *infra.Cache
	store storage.Store
	sf    singleflight.Group
	log   zerolog.Logger

	now func() time.Time
}

// NewService creates a history service. store may be nil, in which case
// entries live in memory only.
func NewService(reg *provider.Registry, store storage.Store, log zerolog.Logger) *Service {
	return &Service{
		reg:   reg,
		mem:   infra.NewCache(seriesTTL),
		store: store,
		log:   log.With().Str("component", "history").Logger(),
		now:   time.Now,
	}
}

// Key returns the cache key for a symbol's five-year series.
func Key(symbol string) string {
	return fmt.Sprintf("%s%s_5Y", keyPrefix, holdings.CleanSymbol(symbol))
}

// Daily returns the five-year daily close series for symbol. Cash
// equivalents get a flat 1.0 series without a network round trip.
func (s *Service) Daily(ctx context.Context, symbol string) (*models.Series, error) {
	clean := holdings.CleanSymbol(symbol)
	if clean == "" {
		return nil, fmt.Errorf("empty symbol")
	}

	if holdings.IsCashSymbol(clean) {
		return flatSeries(clean, s.now()), nil
	}

	key := Key(clean)
	if v, ok := s.mem.Get(key); ok {
		return v.(*models.Series), nil
	}

	v, err, _ := s.sf.Do(key, func() (any, error) {
		// Another waiter may have filled the cache while we queued.
		if v, ok := s.mem.Get(key); ok {
			return v, nil
		}

		if series := s.loadDurable(ctx, key); series != nil {
			s.mem.Set(key, series)
			return series, nil
		}

		series, err := s.fetch(ctx, clean)
		if err != nil {
			return nil, err
		}

		s.mem.Set(key, series)
		s.persist(ctx, key, series)
		return series, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Series), nil
}

// Evict drops a symbol's series from both layers.
func (s *Service) Evict(ctx context.Context, symbol string) {
	key := Key(symbol)
	s.mem.Invalidate(key)
	if s.store != nil {
		if err := s.store.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			s.log.Warn().Str("key", key).Err(err).Msg("durable evict failed")
		}
	}
}

func (s *Service) fetch(ctx context.Context, clean string) (*models.Series, error) {
	start := s.now().AddDate(-lookbackYears, 0, 0).Format("2006-01-02")
	res, err := s.reg.Fetch(ctx, provider.KindDailySeries, provider.QueryParams{
		provider.ParamSymbol:    clean,
		provider.ParamStartDate: start,
	})
	if err != nil {
		return nil, err
	}
	series, ok := res.Data.(*models.Series)
	if !ok {
		return nil, fmt.Errorf("history %s: unexpected data type %T", clean, res.Data)
	}
	series.Symbol = clean
	return series, nil
}

func (s *Service) loadDurable(ctx context.Context, key string) *models.Series {
	if s.store == nil {
		return nil
	}
	entry, err := s.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.Warn().Str("key", key).Err(err).Msg("durable read failed")
		}
		return nil
	}
	var series models.Series
	if err := json.Unmarshal(entry.Value, &series); err != nil {
		s.log.Warn().Str("key", key).Err(err).Msg("corrupt durable entry, dropping")
		_ = s.store.Delete(ctx, key)
		return nil
	}
	return &series
}

// persist writes the series to the durable store. A quota failure
// evicts the whole series namespace and retries once; a second failure
// leaves the entry in memory only.
func (s *Service) persist(ctx context.Context, key string, series *models.Series) {
	if s.store == nil {
		return
	}
	raw, err := json.Marshal(series)
	if err != nil {
		s.log.Warn().Str("key", key).Err(err).Msg("series encode failed")
		return
	}

	err = s.store.Set(ctx, key, raw, seriesTTL)
	if errors.Is(err, storage.ErrQuotaExceeded) {
		n, delErr := s.store.DeletePrefix(ctx, keyPrefix)
		if delErr != nil {
			s.log.Warn().Err(delErr).Msg("namespace eviction failed")
			return
		}
		s.log.Info().Int("evicted", n).Msg("series namespace evicted after quota failure")
		err = s.store.Set(ctx, key, raw, seriesTTL)
	}
	if err != nil {
		s.log.Warn().Str("key", key).Err(err).Msg("durable write failed, keeping in memory only")
	}
}

// flatSeries builds a 1.0-valued weekday series for cash equivalents so
// they can participate in backtests.
func flatSeries(symbol string, now time.Time) *models.Series {
	start := now.AddDate(-lookbackYears, 0, 0)
	s := &models.Series{Symbol: symbol, FetchedAt: now}
	for d := start; !d.After(now); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		s.Dates = append(s.Dates, d)
		s.Closes = append(s.Closes, 1.0)
	}
	return s
}
