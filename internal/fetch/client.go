// Package fetch implements the resilient upstream request loop shared by
// all market-data providers: round-robin credential rotation, linear
// backoff on throttling, immediate abort on auth failures, and an
// attempt budget of twice the credential pool size.
package fetch

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/folioworks/folio/internal/keypool"
)

// AttemptFunc performs a single upstream request using the supplied
// credential and returns the raw response body.
type AttemptFunc func(ctx context.Context, key string) ([]byte, error)

// Backoff holds the wait schedule for one provider.
type Backoff struct {
	// RateLimitBase + attempt*RateLimitStep is the wait after a 429.
	RateLimitBase time.Duration
	RateLimitStep time.Duration
	// ErrorPause is the short wait after any other retryable failure.
	ErrorPause time.Duration
}

// QuoteBackoff is the schedule for quote endpoints.
func QuoteBackoff() Backoff {
	return Backoff{
		RateLimitBase: 500 * time.Millisecond,
		RateLimitStep: 500 * time.Millisecond,
		ErrorPause:    200 * time.Millisecond,
	}
}

// SeriesBackoff is the slower schedule for historical series endpoints,
// which throttle harder.
func SeriesBackoff() Backoff {
	return Backoff{
		RateLimitBase: time.Second,
		RateLimitStep: 500 * time.Millisecond,
		ErrorPause:    200 * time.Millisecond,
	}
}

// Client drives the attempt loop for one provider.
type Client struct {
	provider string
	pool     *keypool.Pool
	backoff  Backoff
	log      zerolog.Logger

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates a resilient client for the named provider.
func NewClient(provider string, pool *keypool.Pool, backoff Backoff, log zerolog.Logger) *Client {
	return &Client{
		provider: provider,
		pool:     pool,
		backoff:  backoff,
		log:      log.With().Str("provider", provider).Logger(),
		sleep:    sleepCtx,
	}
}

// Do runs attempt under the retry policy. Each attempt draws the next
// credential from the pool, including after a 429, so a throttled key is
// never retried back to back. The attempt budget is pool size times two.
func (c *Client) Do(ctx context.Context, attempt AttemptFunc) ([]byte, error) {
	maxAttempts := c.pool.Size() * 2
	if maxAttempts == 0 {
		return nil, &keypool.ErrNoCredentials{Provider: c.provider}
	}

	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		key, err := c.pool.Next()
		if err != nil {
			return nil, err
		}

		body, err := attempt(ctx, key)
		if err == nil {
			return body, nil
		}
		lastErr = err

		switch {
		case IsAuthError(err):
			c.log.Warn().Int("attempt", i+1).Str("key", keypool.Mask(key)).Err(err).
				Msg("credentials rejected, aborting")
			return nil, &ErrAuth{Provider: c.provider, Status: authStatus(err)}
		case IsRateLimited(err):
			wait := c.backoff.RateLimitBase + time.Duration(i)*c.backoff.RateLimitStep
			c.log.Debug().Int("attempt", i+1).Str("key", keypool.Mask(key)).Dur("wait", wait).
				Msg("rate limited, rotating key")
			if err := c.sleep(ctx, wait); err != nil {
				return nil, err
			}
		default:
			c.log.Debug().Int("attempt", i+1).Err(err).Msg("attempt failed")
			if err := c.sleep(ctx, c.backoff.ErrorPause); err != nil {
				return nil, err
			}
		}
	}

	return nil, &ErrAllAttemptsFailed{Provider: c.provider, Attempts: maxAttempts, Last: lastErr}
}

func authStatus(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Status
	}
	return 0
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
