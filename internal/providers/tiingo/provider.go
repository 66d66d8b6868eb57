// Package tiingo implements the historical daily price provider backed
// by the Tiingo REST API. Tiingo throttles aggressively, so requests run
// on the slower series backoff schedule and fall back to public relays
// when the direct route fails.
package tiingo

import (
	"github.com/rs/zerolog"

	"github.com/folioworks/folio/internal/fetch"
	"github.com/folioworks/folio/internal/keypool"
	"github.com/folioworks/folio/internal/provider"
)

// Name is the registry name of this provider.
const Name = "tiingo"

const defaultBaseURL = "https://api.tiingo.com"

// Provider serves DailySeries data from Tiingo.
type Provider struct {
	provider.BaseProvider

	baseURL   string
	client    *fetch.Client
	transport *fetch.Transport
}

// Option configures the provider.
type Option func(*Provider)

// WithBaseURL points the provider at a different API root; used in tests.
func WithBaseURL(u string) Option {
	return func(p *Provider) { p.baseURL = u }
}

// WithTransport swaps the HTTP transport; used in tests.
func WithTransport(t *fetch.Transport) Option {
	return func(p *Provider) { p.transport = t }
}

// New creates a Tiingo provider drawing credentials from pool.
func New(pool *keypool.Pool, log zerolog.Logger, opts ...Option) *Provider {
	p := &Provider{
		BaseProvider: provider.NewBaseProvider(
			Name,
			"End-of-day price history from Tiingo",
			"https://www.tiingo.com",
		),
		baseURL:   defaultBaseURL,
		client:    fetch.NewClient(Name, pool, fetch.SeriesBackoff(), log),
		transport: fetch.NewRelayTransport(),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.RegisterFetcher(newDailyFetcher(p))
	return p
}
