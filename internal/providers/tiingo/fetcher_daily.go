package tiingo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/folioworks/folio/internal/provider"
	"github.com/folioworks/folio/pkg/models"
)

type dailyFetcher struct {
	provider.BaseFetcher
	p *Provider
}

func newDailyFetcher(p *Provider) *dailyFetcher {
	return &dailyFetcher{
		BaseFetcher: provider.NewBaseFetcher(
			provider.KindDailySeries,
			"Daily close history from Tiingo",
			[]string{provider.ParamSymbol, provider.ParamStartDate},
			time.Hour, 10, time.Second,
		),
		p: p,
	}
}

func (f *dailyFetcher) Fetch(ctx context.Context, params provider.QueryParams) (*provider.FetchResult, error) {
	symbol := params[provider.ParamSymbol]
	startDate := params[provider.ParamStartDate]

	cacheKey := provider.CacheKey(f.Kind(), params)
	if cached, ok := f.CacheGet(cacheKey); ok {
		return &provider.FetchResult{Data: cached, FetchedAt: time.Now(), Cached: true}, nil
	}
	if err := f.RateLimit(ctx); err != nil {
		return nil, err
	}

	body, err := f.p.client.Do(ctx, func(ctx context.Context, key string) ([]byte, error) {
		target := fmt.Sprintf("%s/tiingo/daily/%s/prices?startDate=%s&resampleFreq=daily&token=%s",
			f.p.baseURL, url.PathEscape(symbol), startDate, key)
		return f.p.transport.Get(ctx, target)
	})
	if err != nil {
		return nil, err
	}

	series, err := parseDaily(symbol, body)
	if err != nil {
		return nil, err
	}

	f.CacheSet(cacheKey, series)
	return &provider.FetchResult{Data: series, FetchedAt: time.Now()}, nil
}

// parseDaily decodes a Tiingo daily price payload into an ascending
// series. Bars with no usable close are skipped.
func parseDaily(symbol string, body []byte) (*models.Series, error) {
	var bars []tiingoBar
	if err := json.Unmarshal(body, &bars); err != nil {
		return nil, fmt.Errorf("tiingo daily %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("tiingo daily %s: empty response", symbol)
	}

	s := &models.Series{
		Symbol:    symbol,
		Dates:     make([]time.Time, 0, len(bars)),
		Closes:    make([]float64, 0, len(bars)),
		FetchedAt: time.Now(),
	}
	for _, b := range bars {
		close := b.AdjClose
		if close == 0 {
			close = b.Close
		}
		if close == 0 {
			continue
		}
		d, err := time.Parse(time.RFC3339, b.Date)
		if err != nil {
			// Some feeds return bare dates.
			d, err = time.Parse("2006-01-02", b.Date)
			if err != nil {
				return nil, fmt.Errorf("tiingo daily %s: bad date %q", symbol, b.Date)
			}
		}
		s.Dates = append(s.Dates, d)
		s.Closes = append(s.Closes, close)
	}
	if s.Len() == 0 {
		return nil, fmt.Errorf("tiingo daily %s: no usable bars", symbol)
	}
	return s, nil
}
