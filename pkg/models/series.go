package models

import "time"

// Series holds daily closing prices for one symbol, dates ascending.
// Dates and Closes are parallel slices of equal length.
type Series struct {
	Symbol    string      `json:"symbol"`
	Dates     []time.Time `json:"dates"`
	Closes    []float64   `json:"closes"`
	FetchedAt time.Time   `json:"fetched_at"`
}

// Len returns the number of data points in the series.
func (s *Series) Len() int { return len(s.Dates) }

// CloseAt returns the close at index i, carrying the last known close
// forward when i runs past the end of the data. Useful when aligning a
// shorter series against a longer master timeline.
func (s *Series) CloseAt(i int) float64 {
	if len(s.Closes) == 0 {
		return 0
	}
	if i < 0 || i >= len(s.Closes) {
		return s.Closes[len(s.Closes)-1]
	}
	if s.Closes[i] == 0 {
		return s.Closes[len(s.Closes)-1]
	}
	return s.Closes[i]
}

// SeriesPoint is a single dated value on a normalized performance curve.
type SeriesPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}
