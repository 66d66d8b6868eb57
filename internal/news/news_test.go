package news

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

func rssFeed(symbol string, titles ...string) string {
	items := ""
	for i, title := range titles {
		items += fmt.Sprintf(`<item>
  <title>%s</title>
  <link>https://example.com/%s/%d</link>
  <pubDate>Mon, 0%d Jan 2024 12:00:00 +0000</pubDate>
</item>`, title, symbol, i, i+1)
	}
	return `<?xml version="1.0"?><rss version="2.0"><channel><title>` + symbol + ` Headlines</title>` + items + `</channel></rss>`
}

func TestForSymbols(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		sym := r.URL.Query().Get("s")
		w.Header().Set("Content-Type", "application/rss+xml")
		switch sym {
		case "AAPL":
			fmt.Fprint(w, rssFeed("AAPL", "Apple beats estimates", "Apple ships new device"))
		case "MSFT":
			fmt.Fprint(w, rssFeed("MSFT", "Microsoft earnings ahead"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	s := NewService(zerolog.Nop(), WithFeedURL(srv.URL))
	items, err := s.ForSymbols(context.Background(), []string{"AAPL", "MSFT", "SPAXX", "BROKEN"}, 0)
	if err != nil {
		t.Fatalf("ForSymbols: %v", err)
	}

	// Cash symbol is skipped, failed feed tolerated, rest merged.
	if len(items) != 3 {
		t.Fatalf("len = %d, want 3: %+v", len(items), items)
	}
	// Newest first: pubDates run Jan 1, Jan 2 per feed.
	if !items[0].PublishedAt.After(items[len(items)-1].PublishedAt) {
		t.Errorf("items not sorted newest first: %+v", items)
	}
	if items[0].Symbol == "" || items[0].Link == "" {
		t.Errorf("item fields missing: %+v", items[0])
	}

	// Second call is served from cache.
	before := calls.Load()
	if _, err := s.ForSymbols(context.Background(), []string{"AAPL"}, 0); err != nil {
		t.Fatalf("cached ForSymbols: %v", err)
	}
	if calls.Load() != before {
		t.Errorf("calls = %d, want no new fetches", calls.Load())
	}
}

func TestForSymbolsLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rssFeed("AAPL", "one", "two", "three"))
	}))
	defer srv.Close()

	s := NewService(zerolog.Nop(), WithFeedURL(srv.URL))
	items, err := s.ForSymbols(context.Background(), []string{"AAPL"}, 2)
	if err != nil {
		t.Fatalf("ForSymbols: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("len = %d, want limit 2", len(items))
	}
}
