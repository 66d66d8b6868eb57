package rebalance

import (
	"math"
	"testing"

	"github.com/folioworks/folio/pkg/models"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRecomputeScenario(t *testing.T) {
	// AAA: 100 shares at $10 targeting 60%, plus $400 cash. Total $1,400.
	positions := []models.Position{
		{Symbol: "AAA", Kind: models.KindStock, Quantity: 100, Price: 10, TargetPct: 60},
		{Symbol: "SPAXX", Description: "FIDELITY GOVERNMENT MONEY MARKET", Kind: models.KindCash, Quantity: 400, Price: 1},
	}

	plan := Recompute(positions, models.RoundNone)
	if !almostEqual(plan.TotalValue, 1400) {
		t.Fatalf("total = %v, want 1400", plan.TotalValue)
	}
	if len(plan.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(plan.Rows))
	}

	aaa := plan.Rows[0]
	if !almostEqual(aaa.CurrentValue, 1000) {
		t.Errorf("AAA current = %v, want 1000", aaa.CurrentValue)
	}
	if math.Abs(aaa.PctOfTotal-71.4) > 0.1 {
		t.Errorf("AAA pct = %v, want ~71.4", aaa.PctOfTotal)
	}
	if !almostEqual(aaa.TradeValue, -160) {
		t.Errorf("AAA trade = %v, want -160", aaa.TradeValue)
	}
	if !almostEqual(aaa.TargetValue, 840) {
		t.Errorf("AAA target = %v, want 840", aaa.TargetValue)
	}

	cash := plan.Rows[1]
	if cash.ID != models.CashAggregateID {
		t.Fatalf("last row = %q, want cash aggregate", cash.ID)
	}
	if cash.Description != models.CashAggregateDescription {
		t.Errorf("cash desc = %q", cash.Description)
	}
	if !almostEqual(cash.TargetPct, 40) {
		t.Errorf("cash target pct = %v, want 40", cash.TargetPct)
	}
	if !almostEqual(cash.TradeValue, 160) {
		t.Errorf("cash trade = %v, want +160", cash.TradeValue)
	}
}

func TestRecomputeCashTargetFloor(t *testing.T) {
	positions := []models.Position{
		{Symbol: "A", Quantity: 1, Price: 100, TargetPct: 70},
		{Symbol: "B", Quantity: 1, Price: 100, TargetPct: 50},
		{Symbol: "FDRXX", Description: "CASH", Quantity: 100, Price: 1},
	}
	plan := Recompute(positions, models.RoundNone)
	cash := plan.Rows[len(plan.Rows)-1]
	if cash.TargetPct != 0 {
		t.Errorf("cash target = %v, want 0 when explicit targets exceed 100", cash.TargetPct)
	}
}

func TestRecomputeWeightsSumToOne(t *testing.T) {
	positions := []models.Position{
		{Symbol: "A", Quantity: 3, Price: 123.45, TargetPct: 30},
		{Symbol: "B", Quantity: 7, Price: 9.99, TargetPct: 30},
		{Symbol: "SPAXX", Description: "MONEY MARKET", Quantity: 55.5, Price: 1},
	}
	plan := Recompute(positions, models.RoundNone)

	var sum float64
	for _, r := range plan.Rows {
		sum += r.PctOfTotal
	}
	if math.Abs(sum-100) > 1e-6 {
		t.Errorf("weights sum = %v, want 100", sum)
	}
}

func TestRecomputeEmptyPortfolio(t *testing.T) {
	plan := Recompute(nil, models.RoundNone)
	if plan.TotalValue != 0 {
		t.Errorf("total = %v, want 0", plan.TotalValue)
	}
	for _, r := range plan.Rows {
		if r.PctOfTotal != 0 {
			t.Errorf("pct = %v, want 0 when total is 0", r.PctOfTotal)
		}
	}
}

func TestRecomputeBondShares(t *testing.T) {
	// A bond quoted at 95 percent of par. $950 of market value per
	// $1,000 face, so a $95 trade moves 100 units of face.
	positions := []models.Position{
		{Symbol: "912828XG8", Description: "US TREASURY NOTE 2.5% 05/15/2030", Kind: models.KindBond,
			Quantity: 1000, Price: 95, TargetPct: 20},
		{Symbol: "SPY", Quantity: 10, Price: 500, TargetPct: 80},
	}
	plan := Recompute(positions, models.RoundNone)

	bond := plan.Rows[0]
	if !almostEqual(bond.CurrentValue, 950) {
		t.Fatalf("bond value = %v, want 950", bond.CurrentValue)
	}
	wantShares := bond.TradeValue * 100 / 95
	if !almostEqual(bond.TradeShares, wantShares) {
		t.Errorf("bond shares = %v, want %v", bond.TradeShares, wantShares)
	}
}

func TestRecomputeDustSnap(t *testing.T) {
	// Targets that land within a cent of current value must not
	// produce a dust trade.
	positions := []models.Position{
		{Symbol: "A", Quantity: 1, Price: 500, TargetPct: 50},
		{Symbol: "B", Quantity: 1, Price: 500, TargetPct: 50},
	}
	plan := Recompute(positions, models.RoundNone)
	for _, r := range plan.Rows[:2] {
		if r.TradeValue != 0 {
			t.Errorf("%s trade = %v, want 0", r.Symbol, r.TradeValue)
		}
		if !almostEqual(r.TargetValue, r.CurrentValue) {
			t.Errorf("%s target = %v, want current %v", r.Symbol, r.TargetValue, r.CurrentValue)
		}
	}
}

func TestRoundingBackwardRecompute(t *testing.T) {
	positions := []models.Position{
		{Symbol: "A", Quantity: 10, Price: 333, TargetPct: 50},
		{Symbol: "B", Quantity: 10, Price: 77, TargetPct: 50},
	}

	for _, policy := range []models.RoundingPolicy{models.RoundNone, models.RoundHalf, models.RoundWhole} {
		plan := Recompute(positions, policy)
		for _, r := range plan.Rows {
			if !almostEqual(r.TargetValue, r.CurrentValue+r.TradeValue) {
				t.Errorf("policy %s %s: target %v != current %v + trade %v",
					policy, r.Symbol, r.TargetValue, r.CurrentValue, r.TradeValue)
			}
		}
	}
}

func TestRoundingIncrements(t *testing.T) {
	positions := []models.Position{
		{Symbol: "A", Quantity: 10, Price: 333, TargetPct: 50},
		{Symbol: "B", Quantity: 10, Price: 77, TargetPct: 50},
	}

	plan := Recompute(positions, models.RoundHalf)
	for _, r := range plan.Rows[:2] {
		if rem := math.Mod(math.Abs(r.TradeShares), 0.5); rem > 1e-9 {
			t.Errorf("half rounding: %s shares = %v", r.Symbol, r.TradeShares)
		}
	}

	plan = Recompute(positions, models.RoundWhole)
	for _, r := range plan.Rows[:2] {
		if r.TradeShares != math.Trunc(r.TradeShares) {
			t.Errorf("whole rounding: %s shares = %v", r.Symbol, r.TradeShares)
		}
	}
}

func TestRoundingIdempotent(t *testing.T) {
	for _, v := range []float64{3.2, -3.2, 0.49, 7.5, -0.01, 12.0} {
		once := roundShares(v, models.RoundWhole)
		twice := roundShares(once, models.RoundWhole)
		if once != twice {
			t.Errorf("roundShares(%v) not idempotent: %v then %v", v, once, twice)
		}
	}
}

func TestCashExcludedFromRounding(t *testing.T) {
	positions := []models.Position{
		{Symbol: "A", Quantity: 3, Price: 333.33, TargetPct: 60},
		{Symbol: "SPAXX", Description: "MONEY MARKET", Quantity: 512.34, Price: 1},
	}
	plan := Recompute(positions, models.RoundWhole)
	cash := plan.Rows[len(plan.Rows)-1]
	// Cash trades stay exact dollars regardless of policy.
	if !almostEqual(cash.TradeShares, cash.TradeValue) {
		t.Errorf("cash shares = %v, want exact trade value %v", cash.TradeShares, cash.TradeValue)
	}
}
