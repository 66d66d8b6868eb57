package models

import "time"

// Quote is a current price snapshot for a single symbol.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	YieldPct  float64   `json:"yield_pct,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
	Cached    bool      `json:"cached"`
}
