package backtest

import "github.com/folioworks/folio/pkg/models"

// Presets are the built-in benchmark compositions.
func Presets() []models.Benchmark {
	return []models.Benchmark{
		{Name: "S&P 500 (SPY)", Components: []models.BenchmarkComponent{
			{Symbol: "SPY", Weight: 1.0},
		}},
		{Name: "Nasdaq 100 (QQQ)", Components: []models.BenchmarkComponent{
			{Symbol: "QQQ", Weight: 1.0},
		}},
		{Name: "90/10 SPY/AGG", Components: []models.BenchmarkComponent{
			{Symbol: "SPY", Weight: 0.9}, {Symbol: "AGG", Weight: 0.1},
		}},
		{Name: "80/20 SPY/AGG", Components: []models.BenchmarkComponent{
			{Symbol: "SPY", Weight: 0.8}, {Symbol: "AGG", Weight: 0.2},
		}},
		{Name: "70/30 SPY/AGG", Components: []models.BenchmarkComponent{
			{Symbol: "SPY", Weight: 0.7}, {Symbol: "AGG", Weight: 0.3},
		}},
		{Name: "60/40 SPY/AGG", Components: []models.BenchmarkComponent{
			{Symbol: "SPY", Weight: 0.6}, {Symbol: "AGG", Weight: 0.4},
		}},
		{Name: "50/50 SPY/AGG", Components: []models.BenchmarkComponent{
			{Symbol: "SPY", Weight: 0.5}, {Symbol: "AGG", Weight: 0.5},
		}},
	}
}

// PresetByName returns the named preset, falling back to the first
// (broad market) preset when the name is unknown or empty.
func PresetByName(name string) models.Benchmark {
	presets := Presets()
	for _, p := range presets {
		if p.Name == name {
			return p
		}
	}
	return presets[0]
}
