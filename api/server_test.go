package api

import (
	"context"
	jsonstd "encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/folioworks/folio/internal/backtest"
	"github.com/folioworks/folio/internal/classify"
	"github.com/folioworks/folio/internal/config"
	"github.com/folioworks/folio/internal/news"
	"github.com/folioworks/folio/internal/portfolio"
	"github.com/folioworks/folio/internal/provider"
	"github.com/folioworks/folio/internal/quotes"
	"github.com/folioworks/folio/internal/rebalance"
	"github.com/folioworks/folio/internal/storage"
	"github.com/folioworks/folio/pkg/models"
)

// ============================================================
// Test fixtures
// ============================================================

type stubFetcher struct {
	provider.BaseFetcher
	fetchFn func(ctx context.Context, params provider.QueryParams) (*provider.FetchResult, error)
}

func (f *stubFetcher) Fetch(ctx context.Context, params provider.QueryParams) (*provider.FetchResult, error) {
	return f.fetchFn(ctx, params)
}

type stubProvider struct {
	provider.BaseProvider
}

func newStubRegistry(t *testing.T, prices map[string]float64) *provider.Registry {
	t.Helper()

	p := &stubProvider{BaseProvider: provider.NewBaseProvider("stub", "test provider", "")}
	p.RegisterFetcher(&stubFetcher{
		BaseFetcher: provider.NewBaseFetcher(provider.KindQuote, "stub quotes",
			[]string{provider.ParamSymbol}, 0, 1000, time.Second),
		fetchFn: func(ctx context.Context, params provider.QueryParams) (*provider.FetchResult, error) {
			sym := params[provider.ParamSymbol]
			price, ok := prices[sym]
			if !ok {
				return nil, fmt.Errorf("no price for %s", sym)
			}
			return &provider.FetchResult{
				Data:      &models.Quote{Symbol: sym, Price: price, FetchedAt: time.Now()},
				FetchedAt: time.Now(),
			}, nil
		},
	})

	reg := provider.NewRegistry()
	if err := reg.Register(p); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return reg
}

type stubHistory struct {
	series map[string]*models.Series
	calls  atomic.Int64
}

func (h *stubHistory) Daily(_ context.Context, symbol string) (*models.Series, error) {
	h.calls.Add(1)
	s, ok := h.series[symbol]
	if !ok {
		return nil, fmt.Errorf("no history for %s", symbol)
	}
	return s, nil
}

func makeSeries(symbol string, closes ...float64) *models.Series {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	s := &models.Series{Symbol: symbol}
	for i, c := range closes {
		s.Dates = append(s.Dates, start.AddDate(0, 0, i))
		s.Closes = append(s.Closes, c)
	}
	return s
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	store := storage.NewMemoryStore()
	log := zerolog.Nop()

	quoteSvc := quotes.NewService(newStubRegistry(t, map[string]float64{
		"SPY": 500.0,
		"AGG": 98.0,
		"QQQ": 430.0,
	}), log)

	hist := &stubHistory{series: map[string]*models.Series{
		"SPY": makeSeries("SPY", 100, 110, 121),
		"AGG": makeSeries("AGG", 100, 100, 100),
	}}

	cfg := &config.Config{}
	cfg.Providers.FinnhubKeys = []string{"a-longer-test-key"}
	cfg.Storage.Driver = "memory"
	cfg.Refresh.QuoteIntervalSec = 15

	return NewServer(Deps{
		Config:    cfg,
		Portfolio: portfolio.NewService(store, quoteSvc, classify.NewService(nil, log), log),
		Quotes:    quoteSvc,
		Models:    rebalance.NewModelStore(store),
		Simulator: backtest.NewSimulator(hist, log),
		News:      news.NewService(log),
		Logger:    log,
	})
}

type envelope struct {
	Success bool               `json:"success"`
	Data    jsonstd.RawMessage `json:"data"`
	Error   string             `json:"error"`
}

func doJSON(t *testing.T, srv *Server, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	var env envelope
	if err := jsonstd.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: decode envelope: %v (body %q)", method, path, err, rec.Body.String())
	}
	return rec, env
}

func decodeData(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	if err := jsonstd.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data: %v (data %s)", err, env.Data)
	}
}

// ============================================================
// Tests
// ============================================================

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	rec, env := doJSON(t, srv, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("health: code=%d success=%v", rec.Code, env.Success)
	}
}

func TestPositionLifecycle(t *testing.T) {
	srv := newTestServer(t)

	_, env := doJSON(t, srv, http.MethodPost, "/api/v1/positions",
		`{"symbol":"SPY","kind":"stock","quantity":10,"price":500,"target_pct":60}`)
	if !env.Success {
		t.Fatalf("upsert failed: %s", env.Error)
	}
	var created models.Position
	decodeData(t, env, &created)
	if created.ID == "" {
		t.Fatal("expected generated position ID")
	}

	_, env = doJSON(t, srv, http.MethodGet, "/api/v1/positions", "")
	var all []models.Position
	decodeData(t, env, &all)
	if len(all) != 1 || all[0].Symbol != "SPY" {
		t.Fatalf("unexpected positions: %+v", all)
	}

	rec, _ := doJSON(t, srv, http.MethodDelete, "/api/v1/positions/"+created.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: code=%d", rec.Code)
	}
	rec, _ = doJSON(t, srv, http.MethodDelete, "/api/v1/positions/"+created.ID, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete: code=%d, want 404", rec.Code)
	}
}

func TestRefreshUpdatesPrices(t *testing.T) {
	srv := newTestServer(t)

	doJSON(t, srv, http.MethodPut, "/api/v1/positions",
		`[{"symbol":"SPY","kind":"stock","quantity":10,"price":1}]`)

	_, env := doJSON(t, srv, http.MethodPost, "/api/v1/positions/refresh", "")
	var refreshed []models.Position
	decodeData(t, env, &refreshed)
	if len(refreshed) != 1 || refreshed[0].Price != 500.0 {
		t.Fatalf("unexpected refresh: %+v", refreshed)
	}
}

func TestQuoteEndpoint(t *testing.T) {
	srv := newTestServer(t)

	_, env := doJSON(t, srv, http.MethodGet, "/api/v1/quote/spy", "")
	var q models.Quote
	decodeData(t, env, &q)
	if q.Symbol != "SPY" || q.Price != 500.0 {
		t.Fatalf("unexpected quote: %+v", q)
	}

	rec, _ := doJSON(t, srv, http.MethodGet, "/api/v1/quote/BOGUS", "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("unknown symbol: code=%d, want 502", rec.Code)
	}
}

func TestQuotesBatchEndpoint(t *testing.T) {
	srv := newTestServer(t)

	_, env := doJSON(t, srv, http.MethodGet, "/api/v1/quotes?symbols=SPY,AGG,BOGUS", "")
	var out map[string]models.Quote
	decodeData(t, env, &out)
	if len(out) != 2 || out["SPY"].Price != 500.0 {
		t.Fatalf("unexpected quotes: %+v", out)
	}

	rec, _ := doJSON(t, srv, http.MethodGet, "/api/v1/quotes", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing symbols: code=%d, want 400", rec.Code)
	}
}

func TestRebalancePreview(t *testing.T) {
	srv := newTestServer(t)

	doJSON(t, srv, http.MethodPut, "/api/v1/positions", `[
		{"symbol":"AAA","kind":"stock","quantity":100,"price":10,"target_pct":60},
		{"symbol":"SPAXX","description":"FIDELITY GOVERNMENT MONEY MARKET","kind":"cash","quantity":400,"price":1}
	]`)

	_, env := doJSON(t, srv, http.MethodPost, "/api/v1/rebalance",
		`{"rounding":"none","sort":{"column":"symbol","direction":"asc"}}`)
	if !env.Success {
		t.Fatalf("rebalance failed: %s", env.Error)
	}
	var plan models.RebalancePlan
	decodeData(t, env, &plan)

	if plan.TotalValue != 1400 {
		t.Errorf("total = %v, want 1400", plan.TotalValue)
	}
	if len(plan.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(plan.Rows))
	}
	last := plan.Rows[len(plan.Rows)-1]
	if last.ID != models.CashAggregateID || last.TargetPct != 40 {
		t.Errorf("cash row = %+v", last)
	}
}

func TestRebalanceSortToggleCycles(t *testing.T) {
	srv := newTestServer(t)

	doJSON(t, srv, http.MethodPut, "/api/v1/positions", `[
		{"symbol":"BBB","kind":"stock","quantity":10,"price":10},
		{"symbol":"AAA","kind":"stock","quantity":10,"price":10}
	]`)

	preview := func(body string) []models.RebalanceRow {
		t.Helper()
		_, env := doJSON(t, srv, http.MethodPost, "/api/v1/rebalance", body)
		if !env.Success {
			t.Fatalf("rebalance failed: %s", env.Error)
		}
		var plan models.RebalancePlan
		decodeData(t, env, &plan)
		return plan.Rows
	}
	settings := func() models.Settings {
		t.Helper()
		_, env := doJSON(t, srv, http.MethodGet, "/api/v1/settings", "")
		var s models.Settings
		decodeData(t, env, &s)
		return s
	}

	// First click sorts ascending and persists the state.
	rows := preview(`{"sort":{"toggle":"symbol"}}`)
	if rows[0].Symbol != "AAA" {
		t.Errorf("first toggle: rows[0] = %s, want AAA", rows[0].Symbol)
	}
	if s := settings(); s.SortColumn != "symbol" || s.SortDirection != "asc" {
		t.Errorf("persisted sort = %q/%q, want symbol/asc", s.SortColumn, s.SortDirection)
	}

	// Second click flips to descending.
	rows = preview(`{"sort":{"toggle":"symbol"}}`)
	if rows[0].Symbol != "BBB" {
		t.Errorf("second toggle: rows[0] = %s, want BBB", rows[0].Symbol)
	}
	if s := settings(); s.SortDirection != "desc" {
		t.Errorf("persisted direction = %q, want desc", s.SortDirection)
	}

	// Third click clears back to insertion order.
	rows = preview(`{"sort":{"toggle":"symbol"}}`)
	if rows[0].Symbol != "BBB" {
		t.Errorf("third toggle: rows[0] = %s, want insertion order", rows[0].Symbol)
	}
	if s := settings(); s.SortColumn != "" || s.SortDirection != "" {
		t.Errorf("persisted sort = %q/%q, want cleared", s.SortColumn, s.SortDirection)
	}
}

func TestModelLifecycleAndApply(t *testing.T) {
	srv := newTestServer(t)

	_, env := doJSON(t, srv, http.MethodPost, "/api/v1/models",
		`{"name":"Growth","holdings":[{"symbol":"QQQ","target_pct":100}]}`)
	if !env.Success {
		t.Fatalf("save model failed: %s", env.Error)
	}

	_, env = doJSON(t, srv, http.MethodGet, "/api/v1/models", "")
	var all []models.TargetModel
	decodeData(t, env, &all)
	if len(all) != 1 || all[0].Name != "Growth" {
		t.Fatalf("unexpected models: %+v", all)
	}

	doJSON(t, srv, http.MethodPut, "/api/v1/positions",
		`[{"symbol":"SPY","kind":"stock","quantity":10,"price":500,"target_pct":100}]`)

	_, env = doJSON(t, srv, http.MethodPost, "/api/v1/models/Growth/apply", "")
	var applied []models.Position
	decodeData(t, env, &applied)

	bySymbol := make(map[string]models.Position)
	for _, p := range applied {
		bySymbol[p.Symbol] = p
	}
	if bySymbol["SPY"].TargetPct != 0 {
		t.Errorf("SPY target = %v, want 0 after model apply", bySymbol["SPY"].TargetPct)
	}
	if q := bySymbol["QQQ"]; q.TargetPct != 100 || q.Price != 430.0 {
		t.Errorf("QQQ = %+v, want target 100 at quoted price", q)
	}

	rec, _ := doJSON(t, srv, http.MethodDelete, "/api/v1/models/Growth", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete model: code=%d", rec.Code)
	}
	rec, _ = doJSON(t, srv, http.MethodGet, "/api/v1/models/Growth", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get deleted model: code=%d, want 404", rec.Code)
	}
}

func TestBacktestEndpoint(t *testing.T) {
	srv := newTestServer(t)

	_, env := doJSON(t, srv, http.MethodPost, "/api/v1/backtest", `{
		"holdings":[{"symbol":"SPY","target_pct":100}],
		"benchmark":"S&P 500 (SPY)",
		"range":"5Y"
	}`)
	if !env.Success {
		t.Fatalf("backtest failed: %s", env.Error)
	}
	var result models.BacktestResult
	decodeData(t, env, &result)

	if len(result.Portfolio) != 3 {
		t.Fatalf("portfolio points = %d, want 3", len(result.Portfolio))
	}
	if result.Portfolio[0].Value != 1.0 {
		t.Errorf("first value = %v, want 1.0", result.Portfolio[0].Value)
	}
	if got := result.PortfolioMetrics.TotalReturnPct; got < 20.9 || got > 21.1 {
		t.Errorf("total return = %v, want ~21", got)
	}
}

func TestBacktestRequiresHoldings(t *testing.T) {
	srv := newTestServer(t)
	rec, _ := doJSON(t, srv, http.MethodPost, "/api/v1/backtest", `{"range":"1Y"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code=%d, want 400", rec.Code)
	}
}

func TestBacktestPresetsAndRanges(t *testing.T) {
	srv := newTestServer(t)

	_, env := doJSON(t, srv, http.MethodGet, "/api/v1/backtest/presets", "")
	var presets []models.Benchmark
	decodeData(t, env, &presets)
	if len(presets) != 7 {
		t.Fatalf("presets = %d, want 7", len(presets))
	}

	_, env = doJSON(t, srv, http.MethodGet, "/api/v1/backtest/ranges", "")
	var ranges []string
	decodeData(t, env, &ranges)
	if len(ranges) != 8 {
		t.Fatalf("ranges = %d, want 8", len(ranges))
	}
}

func TestImportReplacesPortfolio(t *testing.T) {
	srv := newTestServer(t)

	csv := strings.Join([]string{
		"Account,Security ID,Security Description,Quantity,Last Price",
		`Z123,AAPL,"APPLE INC",50,$189.50`,
		`Z123,SPAXX,"FIDELITY GOVERNMENT MONEY MARKET",400.00,`,
	}, "\n")

	_, env := doJSON(t, srv, http.MethodPost, "/api/v1/import?replace=true", csv)
	if !env.Success {
		t.Fatalf("import failed: %s", env.Error)
	}
	var out struct {
		Count int `json:"count"`
	}
	decodeData(t, env, &out)
	if out.Count != 2 {
		t.Fatalf("count = %d, want 2", out.Count)
	}

	_, env = doJSON(t, srv, http.MethodGet, "/api/v1/positions", "")
	var stored []models.Position
	decodeData(t, env, &stored)
	if len(stored) != 2 {
		t.Fatalf("stored = %d, want 2", len(stored))
	}
}

func TestImportRejectsGarbage(t *testing.T) {
	srv := newTestServer(t)
	rec, _ := doJSON(t, srv, http.MethodPost, "/api/v1/import", "not a csv at all")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code=%d, want 400", rec.Code)
	}
}

func TestConfigEndpoints(t *testing.T) {
	srv := newTestServer(t)

	_, env := doJSON(t, srv, http.MethodGet, "/api/v1/config", "")
	var cfg map[string]jsonstd.RawMessage
	decodeData(t, env, &cfg)
	if _, ok := cfg["storage"]; !ok {
		t.Fatalf("missing storage section: %v", cfg)
	}
	// Key material must never appear in the sanitized view.
	if strings.Contains(string(env.Data), "a-longer-test-key") {
		t.Fatal("raw key leaked into config response")
	}

	_, env = doJSON(t, srv, http.MethodGet, "/api/v1/config/keys", "")
	var statuses []config.KeyStatus
	decodeData(t, env, &statuses)
	if len(statuses) == 0 {
		t.Fatal("expected key statuses")
	}
	for _, st := range statuses {
		if strings.Contains(st.Masked, "a-longer-test-key") {
			t.Errorf("unmasked key in status: %+v", st)
		}
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	_, env := doJSON(t, srv, http.MethodGet, "/api/v1/settings", "")
	var settings models.Settings
	decodeData(t, env, &settings)
	if settings.Rounding != models.RoundNone {
		t.Fatalf("default rounding = %q, want none", settings.Rounding)
	}

	_, env = doJSON(t, srv, http.MethodPut, "/api/v1/settings",
		`{"rounding":"1.0","benchmark":"60/40 SPY/AGG"}`)
	if !env.Success {
		t.Fatalf("put settings failed: %s", env.Error)
	}

	_, env = doJSON(t, srv, http.MethodGet, "/api/v1/settings", "")
	decodeData(t, env, &settings)
	if settings.Rounding != models.RoundWhole || settings.Benchmark != "60/40 SPY/AGG" {
		t.Fatalf("settings = %+v", settings)
	}

	rec, _ := doJSON(t, srv, http.MethodPut, "/api/v1/settings", `{"rounding":"0.25"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad rounding: code=%d, want 400", rec.Code)
	}
}

func TestWebSocketQuoteStream(t *testing.T) {
	srv := newTestServer(t)
	go srv.wsHub.Run()

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Wait for the hub to register the client before broadcasting.
	deadline := time.Now().Add(2 * time.Second)
	for srv.wsHub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	srv.PublishQuotes([]models.Position{{Symbol: "SPY", Price: 500.0}})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != "quotes" {
		t.Fatalf("message type = %q, want quotes", msg.Type)
	}
}

func TestWSHubBroadcastDropsSlowClients(t *testing.T) {
	hub := NewWSHub()
	go hub.Run()

	client := &WSClient{hub: hub, send: make(chan WSMessage, 1)}
	hub.Register(client)

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Fill the client buffer, then broadcast again; the slow client is
	// dropped rather than blocking the hub.
	hub.Broadcast(WSMessage{Type: "quotes"})
	hub.Broadcast(WSMessage{Type: "quotes"})
	hub.Broadcast(WSMessage{Type: "quotes"})

	deadline = time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("slow client never dropped")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
