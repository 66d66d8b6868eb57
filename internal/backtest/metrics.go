package backtest

import (
	"math"

	"github.com/folioworks/folio/pkg/models"
)

// tradingDaysPerYear annualizes daily volatility.
const tradingDaysPerYear = 252

// ════════════════════════════════════════════════════════════════════
// Performance Metrics
// ════════════════════════════════════════════════════════════════════

// ComputeMetrics summarizes a normalized curve: total return over the
// window, annualized volatility of daily returns, and their ratio.
// The ratio is a simplified Sharpe with no risk-free adjustment.
func ComputeMetrics(points []models.SeriesPoint) models.PerformanceMetrics {
	var m models.PerformanceMetrics
	if len(points) < 2 {
		return m
	}

	first, last := points[0].Value, points[len(points)-1].Value
	if first != 0 {
		m.TotalReturnPct = (last/first - 1) * 100
	}

	m.VolatilityPct = annualizedVolatility(points)
	if m.VolatilityPct != 0 {
		m.SharpeRatio = m.TotalReturnPct / m.VolatilityPct
	}
	return m
}

// annualizedVolatility is the population standard deviation of daily
// returns scaled by the square root of the trading year, in percent.
func annualizedVolatility(points []models.SeriesPoint) float64 {
	returns := make([]float64, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		prev := points[i-1].Value
		if prev == 0 {
			continue
		}
		returns = append(returns, points[i].Value/prev-1)
	}
	if len(returns) == 0 {
		return 0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns))

	return math.Sqrt(variance) * math.Sqrt(tradingDaysPerYear) * 100
}
