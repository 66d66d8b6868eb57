// Package keypool manages ordered pools of API credentials and hands
// them out round-robin so that request load spreads evenly across keys.
package keypool

import (
	"fmt"
	"sync"
)

// ErrNoCredentials is returned when a pool has no keys configured for
// the requested provider.
type ErrNoCredentials struct {
	Provider string
}

func (e *ErrNoCredentials) Error() string {
	return fmt.Sprintf("no credentials configured for provider %q", e.Provider)
}

// Pool is a thread-safe round-robin pool of credentials for one provider.
// Next advances a cursor on every call, so M draws over N keys never
// differ by more than one use per key.
type Pool struct {
	provider string
	mu       sync.Mutex
	keys     []string
	cursor   int
}

// New creates a pool for the named provider. Empty keys are dropped;
// order is preserved.
func New(provider string, keys []string) *Pool {
	kept := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			kept = append(kept, k)
		}
	}
	return &Pool{provider: provider, keys: kept}
}

// Provider returns the provider name this pool serves.
func (p *Pool) Provider() string { return p.provider }

// Size returns the number of credentials in the pool.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keys)
}

// Next returns the credential at the current cursor position and
// advances the cursor. Returns ErrNoCredentials when the pool is empty.
func (p *Pool) Next() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.keys) == 0 {
		return "", &ErrNoCredentials{Provider: p.provider}
	}
	key := p.keys[p.cursor%len(p.keys)]
	p.cursor = (p.cursor + 1) % len(p.keys)
	return key, nil
}

// Masked returns display-safe versions of all keys in pool order.
func (p *Pool) Masked() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.keys))
	for i, k := range p.keys {
		out[i] = Mask(k)
	}
	return out
}

// Mask hides the middle of a key, showing only the first and last 3
// characters. Short keys are fully masked.
func Mask(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:3] + "..." + key[len(key)-3:]
}
