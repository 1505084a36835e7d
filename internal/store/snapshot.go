package store

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"warehouse-inventory-api/internal/inventory"
	"warehouse-inventory-api/internal/models"
)

// BulkInserter is implemented by stores that can insert many items at once
type BulkInserter interface {
	InsertMany(ctx context.Context, items []models.Item) (int, error)
}

// Snapshot caches full scans of another store. Concurrent scans share one
// load, every write through Snapshot drops the cached copy, and a cached copy
// older than TTL is reloaded. Get always reads through.
type Snapshot struct {
	next inventory.RecordStore
	ttl  time.Duration
	now  func() time.Time

	mu       sync.Mutex
	gen      uint64
	items    []models.Item
	loadedAt time.Time
	group    singleflight.Group
}

// NewSnapshot wraps next. A zero ttl keeps nothing between calls and only
// collapses concurrent scans.
func NewSnapshot(next inventory.RecordStore, ttl time.Duration) *Snapshot {
	return &Snapshot{next: next, ttl: ttl, now: time.Now}
}

// Invalidate drops the cached scan
func (s *Snapshot) Invalidate() {
	s.mu.Lock()
	s.gen++
	s.items = nil
	s.mu.Unlock()
}

func (s *Snapshot) Scan(ctx context.Context) ([]models.Item, error) {
	s.mu.Lock()
	gen := s.gen
	if s.items != nil && s.now().Sub(s.loadedAt) < s.ttl {
		items := cloneItems(s.items)
		s.mu.Unlock()
		return items, nil
	}
	s.mu.Unlock()

	// The generation is part of the key so a scan started before a write is
	// never shared with callers arriving after it.
	v, err, _ := s.group.Do(strconv.FormatUint(gen, 10), func() (any, error) {
		items, err := s.next.Scan(ctx)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		if s.gen == gen && s.ttl > 0 {
			s.items = items
			s.loadedAt = s.now()
		}
		s.mu.Unlock()
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneItems(v.([]models.Item)), nil
}

func (s *Snapshot) ScanActive(ctx context.Context) ([]models.Item, error) {
	all, err := s.Scan(ctx)
	if err != nil {
		return nil, err
	}
	return activeOnly(all), nil
}

func (s *Snapshot) Get(ctx context.Context, id string) (models.Item, error) {
	return s.next.Get(ctx, id)
}

func (s *Snapshot) Insert(ctx context.Context, item models.Item) error {
	defer s.Invalidate()
	return s.next.Insert(ctx, item)
}

// InsertMany uses the wrapped store's bulk path when it has one
func (s *Snapshot) InsertMany(ctx context.Context, items []models.Item) (int, error) {
	defer s.Invalidate()
	if bulk, ok := s.next.(BulkInserter); ok {
		return bulk.InsertMany(ctx, items)
	}
	for i, it := range items {
		if err := s.next.Insert(ctx, it); err != nil {
			return i, err
		}
	}
	return len(items), nil
}

func (s *Snapshot) Update(ctx context.Context, id string, patch models.Patch) error {
	defer s.Invalidate()
	return s.next.Update(ctx, id, patch)
}

func (s *Snapshot) UpdateIf(ctx context.Context, id string, expect models.Lifecycle, patch models.Patch) error {
	defer s.Invalidate()
	return s.next.UpdateIf(ctx, id, expect, patch)
}

func (s *Snapshot) Delete(ctx context.Context, id string) error {
	defer s.Invalidate()
	return s.next.Delete(ctx, id)
}

func cloneItems(items []models.Item) []models.Item {
	out := make([]models.Item, len(items))
	copy(out, items)
	return out
}

var (
	_ inventory.RecordStore = (*Snapshot)(nil)
	_ inventory.RecordStore = (*Memory)(nil)
	_ inventory.RecordStore = (*Postgres)(nil)
	_ BulkInserter          = (*Snapshot)(nil)
	_ BulkInserter          = (*Memory)(nil)
	_ BulkInserter          = (*Postgres)(nil)
)
