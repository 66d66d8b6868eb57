package backtest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/folioworks/folio/internal/keypool"
	"github.com/folioworks/folio/pkg/models"
)

type stubHistory struct {
	series map[string]*models.Series
	err    error
}

func (h *stubHistory) Daily(ctx context.Context, symbol string) (*models.Series, error) {
	if h.err != nil {
		return nil, fmt.Errorf("history %s: %w", symbol, h.err)
	}
	s, ok := h.series[symbol]
	if !ok {
		return nil, fmt.Errorf("no history for %s", symbol)
	}
	return s, nil
}

func makeSeries(symbol string, start time.Time, closes ...float64) *models.Series {
	s := &models.Series{Symbol: symbol}
	for i, c := range closes {
		s.Dates = append(s.Dates, start.AddDate(0, 0, i))
		s.Closes = append(s.Closes, c)
	}
	return s
}

var testStart = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func newTestSimulator(series map[string]*models.Series) *Simulator {
	sim := NewSimulator(&stubHistory{series: series}, zerolog.Nop())
	// Pin the clock just past the test data so named ranges behave.
	sim.now = func() time.Time { return testStart.AddDate(0, 0, 10) }
	return sim
}

func TestRunSingleAsset(t *testing.T) {
	sim := newTestSimulator(map[string]*models.Series{
		"SPY": makeSeries("SPY", testStart, 100, 110, 121),
	})

	res, err := sim.Run(context.Background(), Request{
		Model:     models.TargetModel{Name: "All In", Holdings: []models.ModelHolding{{Symbol: "SPY", TargetPct: 100}}},
		Benchmark: models.Benchmark{Name: "S&P 500", Components: []models.BenchmarkComponent{{Symbol: "SPY", Weight: 1}}},
		Range:     Range5Y,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(res.Portfolio) != 3 {
		t.Fatalf("portfolio points = %d, want 3", len(res.Portfolio))
	}
	if res.Portfolio[0].Value != 1.0 {
		t.Errorf("first value = %v, want 1.0", res.Portfolio[0].Value)
	}
	if math.Abs(res.Portfolio[2].Value-1.21) > 1e-9 {
		t.Errorf("last value = %v, want 1.21", res.Portfolio[2].Value)
	}
	if math.Abs(res.PortfolioMetrics.TotalReturnPct-21) > 1e-9 {
		t.Errorf("total return = %v, want 21", res.PortfolioMetrics.TotalReturnPct)
	}
	if res.BenchmarkName != "S&P 500" {
		t.Errorf("benchmark name = %q", res.BenchmarkName)
	}
}

func TestRunBlendedWeights(t *testing.T) {
	sim := newTestSimulator(map[string]*models.Series{
		"SPY": makeSeries("SPY", testStart, 100, 120), // +20%
		"AGG": makeSeries("AGG", testStart, 50, 50),   // flat
	})

	res, err := sim.Run(context.Background(), Request{
		Model: models.TargetModel{Name: "60/40", Holdings: []models.ModelHolding{
			{Symbol: "SPY", TargetPct: 60},
			{Symbol: "AGG", TargetPct: 40},
		}},
		Benchmark: models.Benchmark{Name: "S&P 500", Components: []models.BenchmarkComponent{{Symbol: "SPY", Weight: 1}}},
		Range:     Range5Y,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// 0.6×1.2 + 0.4×1.0 = 1.12
	if math.Abs(res.Portfolio[1].Value-1.12) > 1e-9 {
		t.Errorf("blended value = %v, want 1.12", res.Portfolio[1].Value)
	}
}

func TestRunPartialFailureRenormalizes(t *testing.T) {
	sim := newTestSimulator(map[string]*models.Series{
		"SPY": makeSeries("SPY", testStart, 100, 150),
	})

	res, err := sim.Run(context.Background(), Request{
		Model: models.TargetModel{Name: "Mixed", Holdings: []models.ModelHolding{
			{Symbol: "SPY", TargetPct: 50},
			{Symbol: "MISSING", TargetPct: 50},
		}},
		Benchmark: models.Benchmark{Name: "S&P 500", Components: []models.BenchmarkComponent{{Symbol: "SPY", Weight: 1}}},
		Range:     Range5Y,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The missing half redistributes onto SPY, so the curve is pure SPY.
	if math.Abs(res.Portfolio[1].Value-1.5) > 1e-9 {
		t.Errorf("value = %v, want 1.5 after renormalization", res.Portfolio[1].Value)
	}
	if len(res.Failed) != 1 || res.Failed[0] != "MISSING" {
		t.Errorf("failed = %v, want [MISSING]", res.Failed)
	}
}

func TestRunAllAssetsFailed(t *testing.T) {
	sim := newTestSimulator(nil)

	_, err := sim.Run(context.Background(), Request{
		Model: models.TargetModel{Name: "Doomed", Holdings: []models.ModelHolding{
			{Symbol: "A", TargetPct: 50}, {Symbol: "B", TargetPct: 50},
		}},
	})
	var failed *ErrAllAssetsFailed
	if !errors.As(err, &failed) {
		t.Fatalf("err = %v, want ErrAllAssetsFailed", err)
	}
	if len(failed.Failed) != 2 {
		t.Errorf("failed = %v, want both constituents", failed.Failed)
	}
}

func TestRunReportsMissingCredentials(t *testing.T) {
	sim := NewSimulator(&stubHistory{err: &keypool.ErrNoCredentials{Provider: "tiingo"}}, zerolog.Nop())
	sim.now = func() time.Time { return testStart }

	_, err := sim.Run(context.Background(), Request{
		Model:     models.TargetModel{Name: "Unconfigured", Holdings: []models.ModelHolding{{Symbol: "SPY", TargetPct: 100}}},
		Benchmark: models.Benchmark{Name: "S&P 500", Components: []models.BenchmarkComponent{{Symbol: "SPY", Weight: 1}}},
		Range:     Range5Y,
	})
	var ec *keypool.ErrNoCredentials
	if !errors.As(err, &ec) {
		t.Fatalf("err = %v, want ErrNoCredentials over ErrAllAssetsFailed", err)
	}
	if ec.Provider != "tiingo" {
		t.Errorf("provider = %q, want tiingo", ec.Provider)
	}
}

func TestRunCarryForward(t *testing.T) {
	// AGG has one fewer point than the SPY timeline; its last close
	// carries forward.
	sim := newTestSimulator(map[string]*models.Series{
		"SPY": makeSeries("SPY", testStart, 100, 100, 100),
		"AGG": makeSeries("AGG", testStart, 50, 55),
	})

	res, err := sim.Run(context.Background(), Request{
		Model:     models.TargetModel{Name: "Bonds", Holdings: []models.ModelHolding{{Symbol: "AGG", TargetPct: 100}}},
		Benchmark: models.Benchmark{Name: "S&P 500", Components: []models.BenchmarkComponent{{Symbol: "SPY", Weight: 1}}},
		Range:     Range5Y,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(res.Portfolio) != 3 {
		t.Fatalf("points = %d, want 3 from SPY timeline", len(res.Portfolio))
	}
	if math.Abs(res.Portfolio[2].Value-1.1) > 1e-9 {
		t.Errorf("carried value = %v, want 1.1", res.Portfolio[2].Value)
	}
}

func TestMasterTimelinePrefersReference(t *testing.T) {
	spy := makeSeries("SPY", testStart, 100, 100)
	qqq := makeSeries("QQQ", testStart.AddDate(0, 0, 5), 400, 404, 410)

	sim := newTestSimulator(nil)
	timeline := sim.masterTimeline(
		models.Benchmark{Components: []models.BenchmarkComponent{{Symbol: "SPY", Weight: 1}}},
		map[string]*models.Series{"QQQ": qqq},
		map[string]*models.Series{"SPY": spy},
	)
	if len(timeline) != 2 || !timeline[0].Equal(testStart) {
		t.Errorf("timeline = %v, want SPY dates", timeline)
	}

	// Without SPY, fall back to the benchmark constituent, then the
	// longest model series.
	timeline = sim.masterTimeline(
		models.Benchmark{Components: []models.BenchmarkComponent{{Symbol: "AGG", Weight: 1}}},
		map[string]*models.Series{"QQQ": qqq},
		nil,
	)
	if len(timeline) != 3 {
		t.Errorf("fallback timeline = %v, want QQQ dates", timeline)
	}
}

func TestFilterRangeRenormalizes(t *testing.T) {
	points := []models.SeriesPoint{
		{Date: testStart, Value: 1.0},
		{Date: testStart.AddDate(0, 0, 1), Value: 2.0},
		{Date: testStart.AddDate(0, 0, 2), Value: 3.0},
	}

	got := filterRange(points, RangeCustom, testStart.AddDate(0, 0, 1), testStart.AddDate(0, 0, 2), testStart.AddDate(0, 0, 2))
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Value != 1.0 {
		t.Errorf("first filtered value = %v, want 1.0", got[0].Value)
	}
	if math.Abs(got[1].Value-1.5) > 1e-9 {
		t.Errorf("second filtered value = %v, want 1.5", got[1].Value)
	}

	// The source slice is untouched.
	if points[1].Value != 2.0 {
		t.Errorf("source mutated: %v", points)
	}
}

func TestFilterRangeYTD(t *testing.T) {
	dec := time.Date(2023, 12, 28, 0, 0, 0, 0, time.UTC)
	points := []models.SeriesPoint{
		{Date: dec, Value: 1.0},
		{Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Value: 1.2},
		{Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Value: 1.8},
	}
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	got := filterRange(points, RangeYTD, time.Time{}, time.Time{}, now)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 points inside the year", len(got))
	}
	if got[0].Value != 1.0 {
		t.Errorf("first = %v, want renormalized 1.0", got[0].Value)
	}
	if math.Abs(got[1].Value-1.5) > 1e-9 {
		t.Errorf("second = %v, want 1.5", got[1].Value)
	}
}

func TestComputeMetrics(t *testing.T) {
	flat := []models.SeriesPoint{
		{Date: testStart, Value: 1.0},
		{Date: testStart.AddDate(0, 0, 1), Value: 1.0},
		{Date: testStart.AddDate(0, 0, 2), Value: 1.0},
	}
	m := ComputeMetrics(flat)
	if m.TotalReturnPct != 0 || m.VolatilityPct != 0 || m.SharpeRatio != 0 {
		t.Errorf("flat metrics = %+v, want zeros", m)
	}

	up := []models.SeriesPoint{
		{Date: testStart, Value: 1.0},
		{Date: testStart.AddDate(0, 0, 1), Value: 1.1},
	}
	m = ComputeMetrics(up)
	if math.Abs(m.TotalReturnPct-10) > 1e-9 {
		t.Errorf("return = %v, want 10", m.TotalReturnPct)
	}
	// A single daily return has zero population variance, so the
	// ratio stays zero rather than dividing by zero.
	if m.VolatilityPct != 0 || m.SharpeRatio != 0 {
		t.Errorf("metrics = %+v, want zero volatility", m)
	}

	if m := ComputeMetrics(nil); m != (models.PerformanceMetrics{}) {
		t.Errorf("empty metrics = %+v", m)
	}
}

func TestComputeMetricsVolatility(t *testing.T) {
	// Daily returns +10%, -10%: mean 0, population stddev 0.1.
	points := []models.SeriesPoint{
		{Date: testStart, Value: 1.0},
		{Date: testStart.AddDate(0, 0, 1), Value: 1.1},
		{Date: testStart.AddDate(0, 0, 2), Value: 0.99},
	}
	m := ComputeMetrics(points)
	want := 0.1 * math.Sqrt(252) * 100
	if math.Abs(m.VolatilityPct-want) > 1e-6 {
		t.Errorf("volatility = %v, want %v", m.VolatilityPct, want)
	}
	wantSharpe := m.TotalReturnPct / m.VolatilityPct
	if math.Abs(m.SharpeRatio-wantSharpe) > 1e-9 {
		t.Errorf("sharpe = %v, want %v", m.SharpeRatio, wantSharpe)
	}
}
