// Package portfolio persists the user's positions and keeps their
// prices current. Positions are stored as a single durable document;
// the refresh path overlays live quotes onto stock holdings while
// leaving bond and cash prices as imported.
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"

	"github.com/folioworks/folio/internal/classify"
	"github.com/folioworks/folio/internal/holdings"
	"github.com/folioworks/folio/internal/storage"
	"github.com/folioworks/folio/pkg/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// positionsKey holds the full position set as one durable entry.
const positionsKey = "portfolio_positions"

// settingsKey holds the persisted user preferences.
const settingsKey = "app_settings"

// ErrPositionNotFound is returned when a position ID does not exist.
var ErrPositionNotFound = errors.New("position not found")

// Quoter fetches live quotes for a batch of symbols.
type Quoter interface {
	Quotes(ctx context.Context, symbols []string) map[string]*models.Quote
}

// Classifier assigns display attributes to holdings.
type Classifier interface {
	Classify(ctx context.Context, items []classify.Item) map[string]models.Classification
}

// Service owns the stored portfolio.
type Service struct {
	mu       sync.Mutex
	store    storage.Store
	quoter   Quoter
	classify Classifier
	log      zerolog.Logger
}

// NewService creates a portfolio service. quoter and classifier may be
// nil; refresh and enrichment then become no-ops.
func NewService(store storage.Store, quoter Quoter, classifier Classifier, log zerolog.Logger) *Service {
	return &Service{
		store:    store,
		quoter:   quoter,
		classify: classifier,
		log:      log.With().Str("component", "portfolio").Logger(),
	}
}

// List returns the stored positions.
func (s *Service) List(ctx context.Context) ([]models.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Replace overwrites the stored portfolio, assigning IDs where missing.
func (s *Service) Replace(ctx context.Context, positions []models.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range positions {
		if positions[i].ID == "" {
			positions[i].ID = uuid.NewString()
		}
	}
	return s.save(ctx, positions)
}

// Upsert inserts or updates a single position by ID.
func (s *Service) Upsert(ctx context.Context, p models.Position) (models.Position, error) {
	if p.Symbol == "" {
		return p, fmt.Errorf("position symbol cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load(ctx)
	if err != nil {
		return p, err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
		all = append(all, p)
	} else {
		replaced := false
		for i := range all {
			if all[i].ID == p.ID {
				all[i] = p
				replaced = true
				break
			}
		}
		if !replaced {
			all = append(all, p)
		}
	}
	return p, s.save(ctx, all)
}

// Delete removes the position with the given ID.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load(ctx)
	if err != nil {
		return err
	}
	kept := all[:0]
	for _, p := range all {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(all) {
		return fmt.Errorf("%w: %s", ErrPositionNotFound, id)
	}
	return s.save(ctx, kept)
}

// Refresh overlays live prices and dividend yields onto stock
// positions and persists the result. Bond prices are quoted as a
// percentage of par so the equity quote feed does not apply; cash
// always prices at 1.00.
func (s *Service) Refresh(ctx context.Context) ([]models.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if s.quoter == nil || len(all) == 0 {
		return all, nil
	}

	var symbols []string
	for _, p := range all {
		if p.Kind == models.KindStock && !holdings.IsCashPosition(p.Symbol, p.Description) {
			symbols = append(symbols, p.Symbol)
		}
	}
	if len(symbols) == 0 {
		return all, nil
	}

	quotes := s.quoter.Quotes(ctx, symbols)
	updated := 0
	for i := range all {
		if all[i].Kind != models.KindStock {
			continue
		}
		q, ok := quotes[holdings.CleanSymbol(all[i].Symbol)]
		if !ok {
			continue
		}
		if q.Price > 0 {
			all[i].Price = q.Price
			updated++
		}
		// An imported coupon or hand-entered yield survives a provider
		// that reports no yield for the symbol.
		if q.YieldPct > 0 {
			all[i].YieldPct = q.YieldPct
		}
	}
	s.log.Debug().Int("updated", updated).Int("total", len(all)).Msg("quotes refreshed")

	if err := s.save(ctx, all); err != nil {
		return nil, err
	}
	return all, nil
}

// Classifications returns display attributes for the stored positions,
// keyed by cleaned symbol.
func (s *Service) Classifications(ctx context.Context) (map[string]models.Classification, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.classify == nil {
		return map[string]models.Classification{}, nil
	}

	items := make([]classify.Item, 0, len(all))
	for _, p := range all {
		items = append(items, classify.Item{Symbol: p.Symbol, Description: p.Description})
	}
	return s.classify.Classify(ctx, items), nil
}

// Settings returns the persisted preferences, or the defaults when none
// have been saved.
func (s *Service) Settings(ctx context.Context) (models.Settings, error) {
	entry, err := s.store.Get(ctx, settingsKey)
	if errors.Is(err, storage.ErrNotFound) {
		return models.DefaultSettings(), nil
	}
	if err != nil {
		return models.Settings{}, err
	}
	var settings models.Settings
	if err := json.Unmarshal(entry.Value, &settings); err != nil {
		return models.Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	if settings.Rounding == "" {
		settings.Rounding = models.RoundNone
	}
	return settings, nil
}

// SaveSettings persists the preferences.
func (s *Service) SaveSettings(ctx context.Context, settings models.Settings) error {
	switch settings.Rounding {
	case models.RoundNone, models.RoundHalf, models.RoundWhole:
	default:
		return fmt.Errorf("unknown rounding policy %q", settings.Rounding)
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, settingsKey, raw, 0)
}

func (s *Service) load(ctx context.Context) ([]models.Position, error) {
	entry, err := s.store.Get(ctx, positionsKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var all []models.Position
	if err := json.Unmarshal(entry.Value, &all); err != nil {
		return nil, fmt.Errorf("decode positions: %w", err)
	}
	return all, nil
}

func (s *Service) save(ctx context.Context, all []models.Position) error {
	raw, err := json.Marshal(all)
	if err != nil {
		return err
	}
	// The portfolio never expires.
	return s.store.Set(ctx, positionsKey, raw, 0)
}
