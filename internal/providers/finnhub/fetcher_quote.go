package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/folioworks/folio/internal/provider"
	"github.com/folioworks/folio/pkg/models"
)

// --- Quote fetcher ---

type quoteFetcher struct {
	provider.BaseFetcher
	p *Provider
}

func newQuoteFetcher(p *Provider) *quoteFetcher {
	return &quoteFetcher{
		BaseFetcher: provider.NewBaseFetcher(
			provider.KindQuote,
			"Current price from Finnhub",
			[]string{provider.ParamSymbol},
			time.Minute, 30, time.Second,
		),
		p: p,
	}
}

func (f *quoteFetcher) Fetch(ctx context.Context, params provider.QueryParams) (*provider.FetchResult, error) {
	symbol := params[provider.ParamSymbol]

	cacheKey := provider.CacheKey(f.Kind(), params)
	if cached, ok := f.CacheGet(cacheKey); ok {
		return newCachedResult(cached), nil
	}
	if err := f.RateLimit(ctx); err != nil {
		return nil, err
	}

	body, err := f.p.client.Do(ctx, func(ctx context.Context, key string) ([]byte, error) {
		target := fmt.Sprintf("%s/quote?symbol=%s&token=%s", f.p.baseURL, url.QueryEscape(symbol), key)
		raw, err := f.p.transport.Get(ctx, target)
		if err != nil {
			return nil, err
		}
		var q finnhubQuote
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, fmt.Errorf("finnhub quote %s: %w", symbol, err)
		}
		if q.Current == 0 {
			return nil, fmt.Errorf("finnhub quote %s: no price data", symbol)
		}
		return raw, nil
	})
	if err != nil {
		return nil, err
	}

	var q finnhubQuote
	if err := json.Unmarshal(body, &q); err != nil {
		return nil, fmt.Errorf("finnhub quote %s: %w", symbol, err)
	}

	quote := &models.Quote{
		Symbol:    symbol,
		Price:     q.Current,
		FetchedAt: time.Now(),
	}

	f.CacheSet(cacheKey, quote)
	return newResult(quote), nil
}

// --- Dividend yield fetcher ---

type yieldFetcher struct {
	provider.BaseFetcher
	p *Provider
}

func newYieldFetcher(p *Provider) *yieldFetcher {
	return &yieldFetcher{
		BaseFetcher: provider.NewBaseFetcher(
			provider.KindDividendYield,
			"Trailing dividend yield from Finnhub",
			[]string{provider.ParamSymbol},
			time.Hour, 10, time.Second,
		),
		p: p,
	}
}

func (f *yieldFetcher) Fetch(ctx context.Context, params provider.QueryParams) (*provider.FetchResult, error) {
	symbol := params[provider.ParamSymbol]

	cacheKey := provider.CacheKey(f.Kind(), params)
	if cached, ok := f.CacheGet(cacheKey); ok {
		return newCachedResult(cached), nil
	}
	if err := f.RateLimit(ctx); err != nil {
		return nil, err
	}

	body, err := f.p.client.Do(ctx, func(ctx context.Context, key string) ([]byte, error) {
		target := fmt.Sprintf("%s/stock/metric?symbol=%s&metric=all&token=%s", f.p.baseURL, url.QueryEscape(symbol), key)
		return f.p.transport.Get(ctx, target)
	})
	if err != nil {
		return nil, err
	}

	var m finnhubMetrics
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("finnhub metrics %s: %w", symbol, err)
	}

	yield := m.Metric.CurrentDividendYieldTTM
	f.CacheSet(cacheKey, yield)
	return newResult(yield), nil
}

// --- Result helpers ---

func newResult(data any) *provider.FetchResult {
	return &provider.FetchResult{Data: data, FetchedAt: time.Now()}
}

func newCachedResult(data any) *provider.FetchResult {
	return &provider.FetchResult{Data: data, FetchedAt: time.Now(), Cached: true}
}
