// Package models defines the shared data structures used across the
// application: positions, quotes, price series, target models, and
// backtest results. These types carry no behavior beyond simple
// valuation helpers; all engine logic lives under internal/.
package models

// PositionKind distinguishes how a holding is priced and valued.
type PositionKind string

const (
	// KindStock is an equity, ETF, or fund priced per share.
	KindStock PositionKind = "stock"
	// KindBond is a fixed-income holding quoted as a percentage of par.
	// Market value is quantity (face) times price divided by 100.
	KindBond PositionKind = "bond"
	// KindCash is a sweep or money-market holding that always prices at 1.00.
	KindCash PositionKind = "cash"
)

// Position is a single holding in an account.
type Position struct {
	ID          string       `json:"id"`
	Account     string       `json:"account,omitempty"`
	Symbol      string       `json:"symbol"`
	Description string       `json:"description"`
	Kind        PositionKind `json:"kind"`
	Quantity    float64      `json:"quantity"`
	Price       float64      `json:"price"`
	YieldPct    float64      `json:"yield_pct,omitempty"`
	TargetPct   float64      `json:"target_pct"`
}

// Value returns the market value of the position. Bond prices are quoted
// as a percentage of par, so face quantity is scaled by price/100.
func (p Position) Value() float64 {
	switch p.Kind {
	case KindBond:
		return p.Quantity * p.Price / 100
	default:
		return p.Quantity * p.Price
	}
}

// CashAggregateID identifies the synthetic row that pools all cash
// positions into a single line.
const CashAggregateID = "CASH_AGG"

// CashAggregateDescription is the display description of the pooled cash row.
const CashAggregateDescription = "Sweep & Money Market"
