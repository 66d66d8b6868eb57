package models

import "time"

// BacktestResult is a simulated performance comparison between a
// portfolio (or model) and a benchmark over a shared timeline.
// Curves are normalized so the first point equals 1.0.
type BacktestResult struct {
	Portfolio []SeriesPoint `json:"portfolio"`
	Benchmark []SeriesPoint `json:"benchmark"`

	BenchmarkName string    `json:"benchmark_name"`
	From          time.Time `json:"from"`
	To            time.Time `json:"to"`

	PortfolioMetrics PerformanceMetrics `json:"portfolio_metrics"`
	BenchmarkMetrics PerformanceMetrics `json:"benchmark_metrics"`

	// Failed lists constituents whose history could not be fetched;
	// the run proceeds on the remaining subset.
	Failed []string `json:"failed,omitempty"`
}

// PerformanceMetrics summarizes a normalized performance curve.
type PerformanceMetrics struct {
	TotalReturnPct float64 `json:"total_return_pct"`
	VolatilityPct  float64 `json:"volatility_pct"` // annualized
	SharpeRatio    float64 `json:"sharpe_ratio"`   // total return / volatility
}
