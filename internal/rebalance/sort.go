package rebalance

import (
	"sort"
	"strings"

	"github.com/folioworks/folio/pkg/models"
)

// SortDirection is the tri-state column sort: ascending, descending, or
// back to insertion order.
type SortDirection int

const (
	SortNone SortDirection = iota
	SortAsc
	SortDesc
)

// Sortable column names.
const (
	ColSymbol       = "symbol"
	ColDescription  = "description"
	ColQuantity     = "quantity"
	ColPrice        = "price"
	ColCurrentValue = "currentValue"
	ColPctOfTotal   = "pctOfTotal"
	ColTargetPct    = "targetPct"
	ColTargetValue  = "targetValue"
	ColTradeValue   = "tradeValue"
	ColTradeShares  = "tradeShares"
	ColYield        = "yield"
)

// SortState tracks the active sort column and direction.
type SortState struct {
	Column    string        `json:"column"`
	Direction SortDirection `json:"direction"`
}

// Toggle advances the state for a click on column: ascending on first
// click, descending on second, cleared on third. Clicking a different
// column starts over at ascending.
func (s *SortState) Toggle(column string) {
	if s.Column != column {
		s.Column = column
		s.Direction = SortAsc
		return
	}
	switch s.Direction {
	case SortAsc:
		s.Direction = SortDesc
	case SortDesc:
		s.Column = ""
		s.Direction = SortNone
	default:
		s.Direction = SortAsc
	}
}

// SortRows orders rows by the given column and direction. SortNone
// leaves rows in insertion order. The sort is stable so equal keys keep
// their relative order.
func SortRows(rows []models.RebalanceRow, column string, dir SortDirection) {
	if dir == SortNone {
		return
	}

	less := lessFunc(column)
	if less == nil {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if dir == SortDesc {
			i, j = j, i
		}
		return less(&rows[i], &rows[j])
	})
}

func lessFunc(column string) func(a, b *models.RebalanceRow) bool {
	switch column {
	case ColSymbol:
		return func(a, b *models.RebalanceRow) bool {
			return strings.Compare(a.Symbol, b.Symbol) < 0
		}
	case ColDescription:
		return func(a, b *models.RebalanceRow) bool {
			return strings.Compare(a.Description, b.Description) < 0
		}
	case ColQuantity:
		return func(a, b *models.RebalanceRow) bool { return a.Quantity < b.Quantity }
	case ColPrice:
		return func(a, b *models.RebalanceRow) bool { return a.Price < b.Price }
	case ColCurrentValue:
		return func(a, b *models.RebalanceRow) bool { return a.CurrentValue < b.CurrentValue }
	case ColPctOfTotal:
		return func(a, b *models.RebalanceRow) bool { return a.PctOfTotal < b.PctOfTotal }
	case ColTargetPct:
		return func(a, b *models.RebalanceRow) bool { return a.TargetPct < b.TargetPct }
	case ColTargetValue:
		return func(a, b *models.RebalanceRow) bool { return a.TargetValue < b.TargetValue }
	case ColTradeValue:
		return func(a, b *models.RebalanceRow) bool { return a.TradeValue < b.TradeValue }
	case ColTradeShares:
		return func(a, b *models.RebalanceRow) bool { return a.TradeShares < b.TradeShares }
	case ColYield:
		return func(a, b *models.RebalanceRow) bool { return a.YieldPct < b.YieldPct }
	default:
		return nil
	}
}
