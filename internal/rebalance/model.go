package rebalance

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/folioworks/folio/internal/holdings"
	"github.com/folioworks/folio/pkg/models"
)

// modelDescriptionPrefix marks zero-quantity placeholder positions that
// were introduced by applying a model rather than by the user.
const modelDescriptionPrefix = "Model: "

// Quoter supplies live prices for symbols introduced by a model.
type Quoter interface {
	Quote(ctx context.Context, symbol string) (*models.Quote, error)
}

// ApplyModel merges a target model into a position set:
//   - positions with nonzero quantity are kept, their targets
//     overwritten by the model where it names them;
//   - zero-quantity placeholders from an earlier model application are
//     dropped and rebuilt;
//   - symbols in the model but not in the portfolio are added at zero
//     quantity with a freshly fetched price;
//   - non-cash symbols in the portfolio but not in the model have their
//     target reset to zero, signalling a full sell.
func ApplyModel(ctx context.Context, positions []models.Position, m *models.TargetModel, q Quoter, log zerolog.Logger) []models.Position {
	targets := make(map[string]models.ModelHolding, len(m.Holdings))
	for _, h := range m.Holdings {
		targets[holdings.CleanSymbol(h.Symbol)] = h
	}

	out := make([]models.Position, 0, len(positions)+len(m.Holdings))
	present := make(map[string]bool, len(positions))

	for _, p := range positions {
		if p.Quantity == 0 && strings.HasPrefix(p.Description, modelDescriptionPrefix) {
			continue
		}

		clean := holdings.CleanSymbol(p.Symbol)
		if h, ok := targets[clean]; ok {
			p.TargetPct = h.TargetPct
		} else if !holdings.IsCashPosition(p.Symbol, p.Description) {
			p.TargetPct = 0
		}
		present[clean] = true
		out = append(out, p)
	}

	for _, h := range m.Holdings {
		clean := holdings.CleanSymbol(h.Symbol)
		if present[clean] {
			continue
		}
		present[clean] = true

		// The prefix survives even when the model carries a resolved
		// description, so reapplication can find and rebuild the row.
		desc := m.Name
		if h.Description != "" {
			desc = h.Description
		}
		np := models.Position{
			ID:          uuid.NewString(),
			Symbol:      clean,
			Description: modelDescriptionPrefix + desc,
			Kind:        models.KindStock,
			TargetPct:   h.TargetPct,
		}

		if quote, err := q.Quote(ctx, clean); err != nil {
			log.Warn().Str("symbol", clean).Err(err).Msg("model symbol quote failed, added unpriced")
		} else {
			np.Price = quote.Price
			np.YieldPct = quote.YieldPct
		}
		out = append(out, np)
	}

	return out
}
