// Package news aggregates per-symbol headlines from Yahoo Finance RSS
// feeds. Feeds are fetched per symbol, merged newest first, and cached
// for ten minutes; a failed feed is skipped rather than failing the
// batch.
package news

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"

	"github.com/folioworks/folio/internal/holdings"
	"github.com/folioworks/folio/internal/infra"
	"github.com/folioworks/folio/pkg/models"
)

const defaultFeedURL = "https://feeds.finance.yahoo.com/rss/2.0/headline"

// Service fetches and caches symbol headlines.
type Service struct {
	feedURL string
	cache   *infra.Cache
	limiter *infra.RateLimiter
	parser  *gofeed.Parser
	log     zerolog.Logger
}

// Option configures the service.
type Option func(*Service)

// WithFeedURL points the service at a different feed root; used in
// tests.
func WithFeedURL(u string) Option {
	return func(s *Service) { s.feedURL = u }
}

// NewService creates a news service.
func NewService(log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		feedURL: defaultFeedURL,
		cache:   infra.NewCache(10 * time.Minute),
		limiter: infra.NewRateLimiter(2, time.Second),
		parser:  gofeed.NewParser(),
		log:     log.With().Str("component", "news").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ForSymbols returns merged headlines for the given symbols, newest
// first, capped at limit when positive. Cash symbols carry no news and
// are skipped.
func (s *Service) ForSymbols(ctx context.Context, symbols []string, limit int) ([]models.NewsItem, error) {
	var all []models.NewsItem
	seen := make(map[string]bool, len(symbols))

	for _, sym := range symbols {
		clean := holdings.CleanSymbol(sym)
		if clean == "" || seen[clean] || holdings.IsCashSymbol(clean) {
			continue
		}
		seen[clean] = true

		items, err := s.forSymbol(ctx, clean)
		if err != nil {
			s.log.Warn().Str("symbol", clean).Err(err).Msg("feed fetch failed")
			continue
		}
		all = append(all, items...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].PublishedAt.After(all[j].PublishedAt)
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *Service) forSymbol(ctx context.Context, symbol string) ([]models.NewsItem, error) {
	cacheKey := "news:" + symbol
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached.([]models.NewsItem), nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	feedURL := fmt.Sprintf("%s?s=%s&region=US&lang=en-US", s.feedURL, url.QueryEscape(symbol))
	feed, err := s.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", symbol, err)
	}

	items := make([]models.NewsItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		n := models.NewsItem{
			Symbol: symbol,
			Title:  it.Title,
			Link:   it.Link,
			Source: feed.Title,
		}
		if it.PublishedParsed != nil {
			n.PublishedAt = *it.PublishedParsed
		}
		items = append(items, n)
	}

	s.cache.Set(cacheKey, items)
	return items, nil
}
