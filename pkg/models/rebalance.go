package models

// RoundingPolicy controls how computed trade share counts are rounded.
type RoundingPolicy string

const (
	// RoundNone leaves fractional share counts untouched.
	RoundNone RoundingPolicy = "none"
	// RoundHalf rounds trade shares to the nearest 0.5 share.
	RoundHalf RoundingPolicy = "0.5"
	// RoundWhole rounds trade shares to the nearest whole share.
	RoundWhole RoundingPolicy = "1.0"
)

// RebalanceRow is one display line of a rebalance preview: the position
// plus its computed current/target/trade figures.
type RebalanceRow struct {
	Position
	CurrentValue float64 `json:"current_value"`
	PctOfTotal   float64 `json:"pct_of_total"`
	TargetValue  float64 `json:"target_value"`
	TradeValue   float64 `json:"trade_value"`
	TradeShares  float64 `json:"trade_shares"`
}

// RebalancePlan is the full output of a rebalance computation.
type RebalancePlan struct {
	Rows       []RebalanceRow `json:"rows"`
	TotalValue float64        `json:"total_value"`
	Rounding   RoundingPolicy `json:"rounding"`
	ModelName  string         `json:"model_name,omitempty"`
}
