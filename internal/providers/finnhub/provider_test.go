package finnhub

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/folioworks/folio/internal/keypool"
	"github.com/folioworks/folio/internal/provider"
	"github.com/folioworks/folio/pkg/models"
)

func newTestProvider(t *testing.T, handler http.Handler) (*Provider, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	pool := keypool.New("finnhub", []string{"key-a", "key-b"})
	p := New(pool, zerolog.Nop(), WithBaseURL(srv.URL))
	return p, srv
}

func TestQuoteFetch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/quote", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("symbol"); got != "AAPL" {
			t.Errorf("symbol = %q, want AAPL", got)
		}
		if r.URL.Query().Get("token") == "" {
			t.Error("missing token param")
		}
		fmt.Fprint(w, `{"c":189.5,"d":1.2,"dp":0.64,"h":190.1,"l":188.2,"o":188.9,"pc":188.3}`)
	})
	p, _ := newTestProvider(t, mux)

	f := p.Fetcher(provider.KindQuote)
	if f == nil {
		t.Fatal("no quote fetcher registered")
	}
	res, err := f.Fetch(context.Background(), provider.QueryParams{provider.ParamSymbol: "AAPL"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	q, ok := res.Data.(*models.Quote)
	if !ok {
		t.Fatalf("data type = %T, want *models.Quote", res.Data)
	}
	if q.Price != 189.5 {
		t.Errorf("price = %v, want 189.5", q.Price)
	}
	if res.Cached {
		t.Error("first fetch should not be cached")
	}
}

func TestQuoteFetchCached(t *testing.T) {
	calls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/quote", func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, `{"c":42.0}`)
	})
	p, _ := newTestProvider(t, mux)

	f := p.Fetcher(provider.KindQuote)
	params := provider.QueryParams{provider.ParamSymbol: "SPY"}
	if _, err := f.Fetch(context.Background(), params); err != nil {
		t.Fatalf("first Fetch: %v", err)
	}
	res, err := f.Fetch(context.Background(), params)
	if err != nil {
		t.Fatalf("second Fetch: %v", err)
	}
	if !res.Cached {
		t.Error("second fetch should be served from cache")
	}
	if calls != 1 {
		t.Errorf("upstream calls = %d, want 1", calls)
	}
}

func TestQuoteZeroPrice(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/quote", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"c":0}`)
	})
	p, _ := newTestProvider(t, mux)

	f := p.Fetcher(provider.KindQuote)
	_, err := f.Fetch(context.Background(), provider.QueryParams{provider.ParamSymbol: "BOGUS"})
	if err == nil {
		t.Fatal("expected error for zero price")
	}
	if !strings.Contains(err.Error(), "no price data") {
		t.Errorf("err = %v, want no price data", err)
	}
}

func TestQuoteKeyRotationOnThrottle(t *testing.T) {
	var tokens []string
	mux := http.NewServeMux()
	mux.HandleFunc("/quote", func(w http.ResponseWriter, r *http.Request) {
		tokens = append(tokens, r.URL.Query().Get("token"))
		if len(tokens) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"c":10.0}`)
	})
	p, _ := newTestProvider(t, mux)

	f := p.Fetcher(provider.KindQuote)
	res, err := f.Fetch(context.Background(), provider.QueryParams{provider.ParamSymbol: "MSFT"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.Data.(*models.Quote).Price != 10.0 {
		t.Errorf("price = %v, want 10.0", res.Data.(*models.Quote).Price)
	}
	if len(tokens) != 2 || tokens[0] == tokens[1] {
		t.Errorf("tokens = %v, want two distinct keys", tokens)
	}
}

func TestDividendYieldFetch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/stock/metric", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("metric"); got != "all" {
			t.Errorf("metric = %q, want all", got)
		}
		fmt.Fprint(w, `{"metric":{"currentDividendYieldTTM":1.87}}`)
	})
	p, _ := newTestProvider(t, mux)

	f := p.Fetcher(provider.KindDividendYield)
	if f == nil {
		t.Fatal("no yield fetcher registered")
	}
	res, err := f.Fetch(context.Background(), provider.QueryParams{provider.ParamSymbol: "JEPI"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	yield, ok := res.Data.(float64)
	if !ok {
		t.Fatalf("data type = %T, want float64", res.Data)
	}
	if yield != 1.87 {
		t.Errorf("yield = %v, want 1.87", yield)
	}
}

func TestProviderInfo(t *testing.T) {
	p, _ := newTestProvider(t, http.NewServeMux())
	info := p.Info()
	if info.Name != Name {
		t.Errorf("name = %q, want %q", info.Name, Name)
	}
	if len(info.Kinds) != 2 {
		t.Errorf("kinds = %v, want 2 entries", info.Kinds)
	}
}
