package models

// ModelHolding is one target allocation line inside a model.
type ModelHolding struct {
	Symbol      string  `json:"symbol"`
	TargetPct   float64 `json:"target_pct"`
	Description string  `json:"description,omitempty"`
}

// TargetModel is a named allocation model that can be applied to a
// portfolio to drive rebalancing targets.
type TargetModel struct {
	Name      string         `json:"name"`
	Holdings  []ModelHolding `json:"holdings"`
	Benchmark string         `json:"benchmark,omitempty"` // default benchmark preset name
}

// BenchmarkComponent is one weighted constituent of a blended benchmark.
type BenchmarkComponent struct {
	Symbol string  `json:"symbol"`
	Weight float64 `json:"weight"` // fraction, components sum to 1.0
}

// Benchmark is a named benchmark, either a single index fund or a
// weighted blend (e.g. 60% SPY / 40% AGG).
type Benchmark struct {
	Name       string               `json:"name"`
	Components []BenchmarkComponent `json:"components"`
}
