// Package backtest simulates how a target allocation model would have
// performed against a benchmark over a shared five-year timeline.
// Constituent series are aligned by index to a master timeline,
// normalized to a base value of 1.0, and weight-blended; a date-range
// filter then re-normalizes the visible window before metrics are
// computed.
package backtest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/folioworks/folio/internal/holdings"
	"github.com/folioworks/folio/internal/keypool"
	"github.com/folioworks/folio/pkg/models"
)

// ReferenceSymbol anchors the master timeline when its history is
// available.
const ReferenceSymbol = "SPY"

// fetchLimit bounds concurrent history fetches per run.
const fetchLimit = 6

// SeriesProvider supplies daily close history per symbol.
type SeriesProvider interface {
	Daily(ctx context.Context, symbol string) (*models.Series, error)
}

// Request describes one simulation run.
type Request struct {
	Model     models.TargetModel
	Benchmark models.Benchmark

	// Range selects a named window; RangeCustom uses From/To.
	Range Range
	From  time.Time
	To    time.Time
}

// Simulator runs allocation models against historical data.
type Simulator struct {
	history SeriesProvider
	log     zerolog.Logger

	now func() time.Time
}

// NewSimulator creates a simulator reading history from the given
// provider.
func NewSimulator(history SeriesProvider, log zerolog.Logger) *Simulator {
	return &Simulator{
		history: history,
		log:     log.With().Str("component", "backtest").Logger(),
		now:     time.Now,
	}
}

// ════════════════════════════════════════════════════════════════════
// Run
// ════════════════════════════════════════════════════════════════════

// Run executes the simulation. Individual constituents may fail to
// fetch; the blend renormalizes over the successful subset and the
// failed symbols are reported on the result. Only a fully failed model
// aborts the run.
func (s *Simulator) Run(ctx context.Context, req Request) (*models.BacktestResult, error) {
	if len(req.Model.Holdings) == 0 {
		return nil, &ErrAllAssetsFailed{Model: req.Model.Name}
	}

	modelSeries, failed, credErr := s.fetchAll(ctx, modelSymbols(req.Model))
	if len(modelSeries) == 0 {
		// Missing credentials masquerade as a total data outage
		// otherwise; surface the configuration problem directly.
		if credErr != nil {
			return nil, credErr
		}
		return nil, &ErrAllAssetsFailed{Model: req.Model.Name, Failed: failed}
	}

	benchSeries, benchFailed, _ := s.fetchAll(ctx, benchmarkSymbols(req.Benchmark))
	failed = append(failed, benchFailed...)

	timeline := s.masterTimeline(req.Benchmark, modelSeries, benchSeries)
	if timeline == nil {
		return nil, &ErrReferenceDataMissing{}
	}

	portfolio := blend(timeline, modelWeights(req.Model), modelSeries)
	benchmark := blend(timeline, benchmarkWeights(req.Benchmark), benchSeries)

	res := &models.BacktestResult{
		BenchmarkName: req.Benchmark.Name,
		Failed:        failed,
	}

	res.Portfolio = filterRange(portfolio, req.Range, req.From, req.To, s.now())
	res.Benchmark = filterRange(benchmark, req.Range, req.From, req.To, s.now())

	if len(res.Portfolio) > 0 {
		res.From = res.Portfolio[0].Date
		res.To = res.Portfolio[len(res.Portfolio)-1].Date
	}

	res.PortfolioMetrics = ComputeMetrics(res.Portfolio)
	res.BenchmarkMetrics = ComputeMetrics(res.Benchmark)
	return res, nil
}

// ════════════════════════════════════════════════════════════════════
// Fetching & timeline selection
// ════════════════════════════════════════════════════════════════════

// fetchAll retrieves history for each symbol concurrently, tolerating
// per-symbol failure. When any failure traces back to a provider with
// no configured credentials, that error is returned alongside so the
// caller can report the configuration problem instead of a data one.
func (s *Simulator) fetchAll(ctx context.Context, symbols []string) (map[string]*models.Series, []string, error) {
	var mu sync.Mutex
	out := make(map[string]*models.Series, len(symbols))
	var failed []string
	var credErr error

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchLimit)

	for _, sym := range symbols {
		g.Go(func() error {
			series, err := s.history.Daily(ctx, sym)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.log.Warn().Str("symbol", sym).Err(err).Msg("history fetch failed")
				failed = append(failed, sym)
				var ec *keypool.ErrNoCredentials
				if credErr == nil && errors.As(err, &ec) {
					credErr = ec
				}
				return nil
			}
			out[sym] = series
			return nil
		})
	}
	_ = g.Wait()
	return out, failed, credErr
}

// masterTimeline picks the reference date axis: the broad-market
// reference symbol when fetched, else the benchmark's first usable
// constituent, else the first fetched model constituent.
func (s *Simulator) masterTimeline(bench models.Benchmark, modelSeries, benchSeries map[string]*models.Series) []time.Time {
	if ref, ok := benchSeries[ReferenceSymbol]; ok && ref.Len() > 0 {
		return ref.Dates
	}
	if ref, ok := modelSeries[ReferenceSymbol]; ok && ref.Len() > 0 {
		return ref.Dates
	}
	for _, c := range bench.Components {
		if ref, ok := benchSeries[holdings.CleanSymbol(c.Symbol)]; ok && ref.Len() > 0 {
			return ref.Dates
		}
	}
	var best []time.Time
	for _, series := range modelSeries {
		if series.Len() > len(best) {
			best = series.Dates
		}
	}
	return best
}

// ════════════════════════════════════════════════════════════════════
// Blending
// ════════════════════════════════════════════════════════════════════

// blend aligns each weighted series to the timeline by index, indexes
// it to its own first value, and sums the weighted indexed values. The
// weights are renormalized over the series that actually have data, so
// a failed constituent redistributes rather than dragging the curve to
// zero.
func blend(timeline []time.Time, weights map[string]float64, series map[string]*models.Series) []models.SeriesPoint {
	if len(timeline) == 0 {
		return nil
	}

	type leg struct {
		s      *models.Series
		weight float64
		start  float64
	}

	var legs []leg
	var usable float64
	for sym, w := range weights {
		sr, ok := series[sym]
		if !ok || sr.Len() == 0 || w <= 0 {
			continue
		}
		start := sr.CloseAt(0)
		if start == 0 {
			continue
		}
		legs = append(legs, leg{s: sr, weight: w, start: start})
		usable += w
	}
	if len(legs) == 0 || usable == 0 {
		return nil
	}

	points := make([]models.SeriesPoint, len(timeline))
	for i, d := range timeline {
		var v float64
		for _, l := range legs {
			v += (l.s.CloseAt(i) / l.start) * (l.weight / usable)
		}
		points[i] = models.SeriesPoint{Date: d, Value: v}
	}
	return normalize(points)
}

// normalize rescales a curve so its first value equals 1.0.
func normalize(points []models.SeriesPoint) []models.SeriesPoint {
	if len(points) == 0 || points[0].Value == 0 {
		return points
	}
	base := points[0].Value
	for i := range points {
		points[i].Value /= base
	}
	return points
}

// ════════════════════════════════════════════════════════════════════
// Weight helpers
// ════════════════════════════════════════════════════════════════════

func modelSymbols(m models.TargetModel) []string {
	seen := make(map[string]bool, len(m.Holdings))
	var out []string
	for _, h := range m.Holdings {
		clean := holdings.CleanSymbol(h.Symbol)
		if clean == "" || seen[clean] {
			continue
		}
		seen[clean] = true
		out = append(out, clean)
	}
	return out
}

func benchmarkSymbols(b models.Benchmark) []string {
	seen := make(map[string]bool, len(b.Components)+1)
	var out []string
	for _, c := range b.Components {
		clean := holdings.CleanSymbol(c.Symbol)
		if clean == "" || seen[clean] {
			continue
		}
		seen[clean] = true
		out = append(out, clean)
	}
	return out
}

func modelWeights(m models.TargetModel) map[string]float64 {
	w := make(map[string]float64, len(m.Holdings))
	for _, h := range m.Holdings {
		w[holdings.CleanSymbol(h.Symbol)] += h.TargetPct
	}
	return w
}

func benchmarkWeights(b models.Benchmark) map[string]float64 {
	w := make(map[string]float64, len(b.Components))
	for _, c := range b.Components {
		w[holdings.CleanSymbol(c.Symbol)] += c.Weight
	}
	return w
}
