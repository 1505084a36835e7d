package store

import (
	"context"
	"slices"
	"strings"
	"sync"

	"warehouse-inventory-api/internal/apperr"
	"warehouse-inventory-api/internal/models"
)

// Memory is a process-local record store. It backs tests and STORE_DRIVER=memory.
type Memory struct {
	mu    sync.RWMutex
	items map[string]models.Item
}

// NewMemory returns a store seeded with items
func NewMemory(items ...models.Item) *Memory {
	m := &Memory{items: make(map[string]models.Item, len(items))}
	for _, it := range items {
		m.items[it.ID] = it
	}
	return m
}

func (m *Memory) Insert(_ context.Context, item models.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[item.ID]; ok {
		return apperr.DuplicateKey("item %s already exists", item.ID)
	}
	m.items[item.ID] = item
	return nil
}

// InsertMany inserts all items or none
func (m *Memory) InsertMany(_ context.Context, items []models.Item) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if _, ok := m.items[it.ID]; ok {
			return 0, apperr.DuplicateKey("item %s already exists", it.ID)
		}
		if _, ok := seen[it.ID]; ok {
			return 0, apperr.DuplicateKey("item %s repeated in batch", it.ID)
		}
		seen[it.ID] = struct{}{}
	}
	for _, it := range items {
		m.items[it.ID] = it
	}
	return len(items), nil
}

func (m *Memory) Get(_ context.Context, id string) (models.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, ok := m.items[id]
	if !ok {
		return models.Item{}, apperr.NotFound("item %s not found", id)
	}
	return it, nil
}

func (m *Memory) Update(_ context.Context, id string, patch models.Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return apperr.NotFound("item %s not found", id)
	}
	patch.Apply(&it)
	m.items[id] = it
	return nil
}

func (m *Memory) UpdateIf(_ context.Context, id string, expect models.Lifecycle, patch models.Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return apperr.NotFound("item %s not found", id)
	}
	if it.Lifecycle() != expect {
		return apperr.Stale(id)
	}
	patch.Apply(&it)
	m.items[id] = it
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return apperr.NotFound("item %s not found", id)
	}
	delete(m.items, id)
	return nil
}

func (m *Memory) Scan(_ context.Context) ([]models.Item, error) {
	m.mu.RLock()
	out := make([]models.Item, 0, len(m.items))
	for _, it := range m.items {
		out = append(out, it)
	}
	m.mu.RUnlock()
	sortNewestFirst(out)
	return out, nil
}

func (m *Memory) ScanActive(ctx context.Context) ([]models.Item, error) {
	all, err := m.Scan(ctx)
	if err != nil {
		return nil, err
	}
	return activeOnly(all), nil
}

func sortNewestFirst(items []models.Item) {
	slices.SortFunc(items, func(a, b models.Item) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

func activeOnly(items []models.Item) []models.Item {
	out := make([]models.Item, 0, len(items))
	for _, it := range items {
		if it.Active() {
			out = append(out, it)
		}
	}
	return out
}
