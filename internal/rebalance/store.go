package rebalance

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"github.com/folioworks/folio/internal/storage"
	"github.com/folioworks/folio/pkg/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// modelsKey holds the full model set as one durable entry. Models are
// small and edited rarely, so a single document beats per-model keys.
const modelsKey = "target_models"

// ErrModelNotFound is returned when a named model does not exist.
var ErrModelNotFound = errors.New("model not found")

// ModelStore persists target models in a durable key-value store.
type ModelStore struct {
	mu    sync.Mutex
	store storage.Store
}

// NewModelStore creates a model store backed by store.
func NewModelStore(store storage.Store) *ModelStore {
	return &ModelStore{store: store}
}

// List returns all saved models sorted by name.
func (ms *ModelStore) List(ctx context.Context) ([]models.TargetModel, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.load(ctx)
}

// Get returns the named model.
func (ms *ModelStore) Get(ctx context.Context, name string) (*models.TargetModel, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	all, err := ms.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].Name == name {
			return &all[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrModelNotFound, name)
}

// Save inserts or replaces a model by name.
func (ms *ModelStore) Save(ctx context.Context, m models.TargetModel) error {
	if m.Name == "" {
		return fmt.Errorf("model name cannot be empty")
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	all, err := ms.load(ctx)
	if err != nil {
		return err
	}
	replaced := false
	for i := range all {
		if all[i].Name == m.Name {
			all[i] = m
			replaced = true
			break
		}
	}
	if !replaced {
		all = append(all, m)
	}
	return ms.save(ctx, all)
}

// Delete removes the named model.
func (ms *ModelStore) Delete(ctx context.Context, name string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	all, err := ms.load(ctx)
	if err != nil {
		return err
	}
	kept := all[:0]
	for _, m := range all {
		if m.Name != name {
			kept = append(kept, m)
		}
	}
	if len(kept) == len(all) {
		return fmt.Errorf("%w: %s", ErrModelNotFound, name)
	}
	return ms.save(ctx, kept)
}

func (ms *ModelStore) load(ctx context.Context) ([]models.TargetModel, error) {
	entry, err := ms.store.Get(ctx, modelsKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var all []models.TargetModel
	if err := json.Unmarshal(entry.Value, &all); err != nil {
		return nil, fmt.Errorf("decode models: %w", err)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all, nil
}

func (ms *ModelStore) save(ctx context.Context, all []models.TargetModel) error {
	raw, err := json.Marshal(all)
	if err != nil {
		return err
	}
	// Models never expire.
	return ms.store.Set(ctx, modelsKey, raw, 0)
}
