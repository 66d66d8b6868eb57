// Package rebalance computes trade plans that move a portfolio toward a
// set of target weights. Cash-like positions collapse into one synthetic
// aggregate row whose target weight is whatever the explicit targets
// leave over. Trade share counts can be constrained to half-unit or
// whole-unit increments; dollar figures are then recomputed backward
// from the rounded share count so the displayed plan is tradable as is.
package rebalance

import (
	"math"

	"github.com/folioworks/folio/internal/holdings"
	"github.com/folioworks/folio/pkg/models"
)

// tradeEpsilon is the dust threshold: trade values under one cent snap
// to zero.
const tradeEpsilon = 0.01

// Recompute builds a rebalance plan from the given positions. Position
// prices are taken as supplied; callers refresh quotes beforehand.
func Recompute(positions []models.Position, rounding models.RoundingPolicy) *models.RebalancePlan {
	plan := &models.RebalancePlan{Rounding: rounding}

	var cashValue float64
	var explicitTargets float64
	rows := make([]models.RebalanceRow, 0, len(positions)+1)

	for _, p := range positions {
		if holdings.IsCashPosition(p.Symbol, p.Description) {
			cashValue += p.Value()
			continue
		}
		explicitTargets += p.TargetPct
		rows = append(rows, models.RebalanceRow{Position: p, CurrentValue: p.Value()})
	}

	total := cashValue
	for i := range rows {
		total += rows[i].CurrentValue
	}
	plan.TotalValue = total

	for i := range rows {
		computeRow(&rows[i], total, rounding)
	}

	cash := models.RebalanceRow{
		Position: models.Position{
			ID:          models.CashAggregateID,
			Symbol:      models.CashAggregateID,
			Description: models.CashAggregateDescription,
			Kind:        models.KindCash,
			Quantity:    cashValue,
			Price:       1.0,
			TargetPct:   math.Max(0, 100-explicitTargets),
		},
		CurrentValue: cashValue,
	}
	// Cash trades are always exact; no rounding, no dust snap asymmetry.
	if total > 0 {
		cash.PctOfTotal = cashValue / total * 100
	}
	cash.TargetValue = total * cash.TargetPct / 100
	cash.TradeValue = cash.TargetValue - cash.CurrentValue
	if math.Abs(cash.TradeValue) < tradeEpsilon {
		cash.TradeValue = 0
		cash.TargetValue = cash.CurrentValue
	}
	cash.TradeShares = cash.TradeValue
	rows = append(rows, cash)

	plan.Rows = rows
	return plan
}

// computeRow fills the derived columns of one non-cash row.
func computeRow(row *models.RebalanceRow, total float64, rounding models.RoundingPolicy) {
	if total > 0 {
		row.PctOfTotal = row.CurrentValue / total * 100
	}

	row.TargetValue = total * row.TargetPct / 100
	row.TradeValue = row.TargetValue - row.CurrentValue
	if math.Abs(row.TradeValue) < tradeEpsilon {
		row.TradeValue = 0
		row.TargetValue = row.CurrentValue
	}

	if row.Price == 0 {
		row.TradeShares = 0
		return
	}

	bond := row.Kind == models.KindBond || holdings.IsBond(row.Symbol, row.Description)
	if bond {
		// Percent-of-par: a $1 trade moves 100/price units of face.
		row.TradeShares = row.TradeValue * 100 / row.Price
	} else {
		row.TradeShares = row.TradeValue / row.Price
	}

	if rounded := roundShares(row.TradeShares, rounding); rounded != row.TradeShares {
		row.TradeShares = rounded
		if bond {
			row.TradeValue = rounded * row.Price / 100
		} else {
			row.TradeValue = rounded * row.Price
		}
		row.TargetValue = row.CurrentValue + row.TradeValue
	}
}

func roundShares(shares float64, policy models.RoundingPolicy) float64 {
	switch policy {
	case models.RoundHalf:
		return math.Round(shares*2) / 2
	case models.RoundWhole:
		return math.Round(shares)
	default:
		return shares
	}
}
