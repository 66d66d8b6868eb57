package backtest

import (
	"time"

	"github.com/folioworks/folio/pkg/models"
)

// Range names a selectable backtest window.
type Range string

const (
	Range1M     Range = "1M"
	Range3M     Range = "3M"
	Range6M     Range = "6M"
	RangeYTD    Range = "YTD"
	Range1Y     Range = "1Y"
	Range3Y     Range = "3Y"
	Range5Y     Range = "5Y"
	RangeCustom Range = "custom"
)

// Ranges lists the selectable windows in display order.
func Ranges() []Range {
	return []Range{Range1M, Range3M, Range6M, RangeYTD, Range1Y, Range3Y, Range5Y, RangeCustom}
}

// rangeStart returns the inclusive start date for a named range, or the
// zero time for the full window.
func rangeStart(r Range, now time.Time) time.Time {
	switch r {
	case Range1M:
		return now.AddDate(0, -1, 0)
	case Range3M:
		return now.AddDate(0, -3, 0)
	case Range6M:
		return now.AddDate(0, -6, 0)
	case RangeYTD:
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	case Range1Y:
		return now.AddDate(-1, 0, 0)
	case Range3Y:
		return now.AddDate(-3, 0, 0)
	default:
		// 5Y and unknown ranges keep the full fetched window.
		return time.Time{}
	}
}

// filterRange slices a curve down to the requested window and
// re-normalizes it so the first visible point equals 1.0.
func filterRange(points []models.SeriesPoint, r Range, from, to, now time.Time) []models.SeriesPoint {
	if len(points) == 0 {
		return points
	}

	start := rangeStart(r, now)
	end := time.Time{}
	if r == RangeCustom {
		start, end = from, to
	}

	lo, hi := 0, len(points)
	if !start.IsZero() {
		for lo < hi && points[lo].Date.Before(start) {
			lo++
		}
	}
	if !end.IsZero() {
		for hi > lo && points[hi-1].Date.After(end) {
			hi--
		}
	}

	filtered := make([]models.SeriesPoint, hi-lo)
	copy(filtered, points[lo:hi])
	return normalize(filtered)
}
