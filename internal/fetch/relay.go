package fetch

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Relay rewrites a target URL into a relay request and extracts the
// original payload from the relay's response.
type Relay interface {
	// Name identifies the relay in logs.
	Name() string
	// WrapURL returns the relay URL for the given target.
	WrapURL(target string) string
	// Unwrap extracts the target's payload from the relay response body.
	Unwrap(body []byte) ([]byte, error)
}

// Transport issues GET requests, falling back across a fixed relay chain
// when the direct request fails. Every hop classifies its outcome the
// same way the direct request does, so a throttled relay still rotates
// credentials upstream.
type Transport struct {
	rest   *resty.Client
	relays []Relay
}

// NewTransport creates a direct-only transport.
func NewTransport() *Transport {
	return &Transport{rest: resty.New().SetTimeout(30 * time.Second)}
}

// NewRelayTransport creates a transport with the standard relay chain:
// direct, then a URL-encoding relay, then a JSON-wrapper relay.
func NewRelayTransport() *Transport {
	t := NewTransport()
	t.relays = []Relay{&proxyRelay{}, &wrapperRelay{}}
	return t
}

// WithClient swaps the underlying resty client; used in tests to point
// at a local server.
func (t *Transport) WithClient(rest *resty.Client) *Transport {
	t.rest = rest
	return t
}

// WithRelays replaces the relay chain.
func (t *Transport) WithRelays(relays ...Relay) *Transport {
	t.relays = relays
	return t
}

// Get fetches the target URL, trying direct first and each relay in
// order. It returns the first successful body; when all hops fail it
// returns the last error.
func (t *Transport) Get(ctx context.Context, target string) ([]byte, error) {
	body, err := t.getDirect(ctx, target)
	if err == nil {
		return body, nil
	}
	// Auth failures are definitive; no relay can fix a bad key.
	if IsAuthError(err) {
		return nil, err
	}

	for _, relay := range t.relays {
		body, rerr := t.getDirect(ctx, relay.WrapURL(target))
		if rerr != nil {
			err = rerr
			continue
		}
		payload, uerr := relay.Unwrap(body)
		if uerr != nil {
			err = uerr
			continue
		}
		return payload, nil
	}
	return nil, err
}

func (t *Transport) getDirect(ctx context.Context, target string) ([]byte, error) {
	resp, err := t.rest.R().SetContext(ctx).Get(target)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() >= 400 {
		return nil, &HTTPError{Status: resp.StatusCode(), Detail: truncate(string(resp.Body()), 200)}
	}
	return resp.Body(), nil
}

// proxyRelay forwards the target through a URL-encoding CORS relay.
type proxyRelay struct{}

func (*proxyRelay) Name() string { return "corsproxy" }

func (*proxyRelay) WrapURL(target string) string {
	return "https://corsproxy.io/?url=" + url.QueryEscape(target)
}

func (*proxyRelay) Unwrap(body []byte) ([]byte, error) { return body, nil }

// wrapperRelay forwards through a relay that nests the payload in a JSON
// envelope under "contents". The relay reports upstream throttling only
// through body text, so a "throttle" marker is mapped back to HTTP 429.
type wrapperRelay struct{}

func (*wrapperRelay) Name() string { return "allorigins" }

func (*wrapperRelay) WrapURL(target string) string {
	return "https://api.allorigins.win/get?url=" + url.QueryEscape(target)
}

func (*wrapperRelay) Unwrap(body []byte) ([]byte, error) {
	var envelope struct {
		Contents string `json:"contents"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	if strings.Contains(strings.ToLower(envelope.Contents), "throttle") {
		return nil, &HTTPError{Status: 429, Detail: "relay reports upstream throttling"}
	}
	return []byte(envelope.Contents), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
