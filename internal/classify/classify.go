// Package classify assigns asset class, style box, sector, and related
// display attributes to holdings. An AI classifier does the heavy
// lifting when configured; a deterministic keyword heuristic backfills
// every symbol the AI misses, so enrichment never fails outright.
package classify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/folioworks/folio/internal/holdings"
	"github.com/folioworks/folio/pkg/models"
)

// Item is one holding to classify.
type Item struct {
	Symbol      string
	Description string
}

// Service classifies batches of holdings.
type Service struct {
	gemini *Gemini
	log    zerolog.Logger
}

// NewService creates a classification service. gemini may be nil, in
// which case only the heuristic runs.
func NewService(gemini *Gemini, log zerolog.Logger) *Service {
	return &Service{
		gemini: gemini,
		log:    log.With().Str("component", "classify").Logger(),
	}
}

// Classify returns a classification for every item. AI results are
// used where present and sane; everything else falls back to the
// keyword heuristic.
func (s *Service) Classify(ctx context.Context, items []Item) map[string]models.Classification {
	out := make(map[string]models.Classification, len(items))

	var ai map[string]models.Classification
	if s.gemini != nil && len(items) > 0 {
		var err error
		ai, err = s.gemini.Classify(ctx, items)
		if err != nil {
			s.log.Warn().Err(err).Msg("ai classification failed, using heuristics")
		}
	}

	for _, it := range items {
		clean := holdings.CleanSymbol(it.Symbol)
		if c, ok := ai[clean]; ok && c.AssetClass != "" {
			out[clean] = c
			continue
		}
		out[clean] = Heuristic(it.Symbol, it.Description)
	}
	return out
}
