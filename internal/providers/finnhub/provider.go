// Package finnhub implements the quote and dividend-yield provider
// backed by the Finnhub REST API. Requests go through the resilient
// fetch client, so credentials rotate round-robin and throttled keys
// back off before the next attempt.
package finnhub

import (
	"github.com/rs/zerolog"

	"github.com/folioworks/folio/internal/fetch"
	"github.com/folioworks/folio/internal/keypool"
	"github.com/folioworks/folio/internal/provider"
)

// Name is the registry name of this provider.
const Name = "finnhub"

const defaultBaseURL = "https://finnhub.io/api/v1"

// Provider serves Quote and DividendYield data from Finnhub.
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

// New creates a Finnhub provider drawing credentials from pool.
func New(pool *keypool.Pool, log zerolog.Logger, opts ...Option) *Provider {
	p := &Provider{
		BaseProvider: provider.NewBaseProvider(
			Name,
			"Real-time quotes and fundamentals from Finnhub",
			"https://finnhub.io",
		),
		baseURL:   defaultBaseURL,
		client:    fetch.NewClient(Name, pool, fetch.QuoteBackoff(), log),
		transport: fetch.NewTransport(),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.RegisterFetcher(newQuoteFetcher(p))
	p.RegisterFetcher(newYieldFetcher(p))
	return p
}
