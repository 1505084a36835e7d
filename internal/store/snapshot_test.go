package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warehouse-inventory-api/internal/inventory"
	"warehouse-inventory-api/internal/models"
)

// countingStore counts full scans reaching the wrapped store
type countingStore struct {
	*Memory
	scans atomic.Int32
}

func (c *countingStore) Scan(ctx context.Context) ([]models.Item, error) {
	c.scans.Add(1)
	return c.Memory.Scan(ctx)
}

func TestSnapshot_CachesUntilWrite(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{Memory: NewMemory(testItem("a1", 0))}
	s := NewSnapshot(inner, time.Minute)

	for i := 0; i < 3; i++ {
		items, err := s.Scan(ctx)
		require.NoError(t, err)
		assert.Len(t, items, 1)
	}
	assert.Equal(t, int32(1), inner.scans.Load())

	require.NoError(t, s.Insert(ctx, testItem("b2", time.Hour)))
	items, err := s.Scan(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 2, "insert must invalidate the cached scan")
	assert.Equal(t, int32(2), inner.scans.Load())

	require.NoError(t, s.Update(ctx, "a1", models.FulfillPatch()))
	active, err := s.ScanActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b2"}, ids(active))
}

func TestSnapshot_ExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{Memory: NewMemory(testItem("a1", 0))}
	s := NewSnapshot(inner, time.Second)
	now := base
	s.now = func() time.Time { return now }

	_, _ = s.Scan(ctx)
	_, _ = s.Scan(ctx)
	assert.Equal(t, int32(1), inner.scans.Load())

	now = now.Add(2 * time.Second)
	_, _ = s.Scan(ctx)
	assert.Equal(t, int32(2), inner.scans.Load())
}

func TestSnapshot_ZeroTTLKeepsNothing(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{Memory: NewMemory(testItem("a1", 0))}
	s := NewSnapshot(inner, 0)

	_, _ = s.Scan(ctx)
	_, _ = s.Scan(ctx)
	assert.Equal(t, int32(2), inner.scans.Load())
}

func TestSnapshot_ConcurrentScans(t *testing.T) {
	ctx := context.Background()
	s := NewSnapshot(NewMemory(testItem("a1", 0), testItem("b2", time.Hour)), time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			items, err := s.Scan(ctx)
			assert.NoError(t, err)
			assert.Len(t, items, 2)
		}()
	}
	wg.Wait()
}

func TestSnapshot_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewSnapshot(NewMemory(testItem("a1", 0)), time.Minute)

	items, _ := s.Scan(ctx)
	items[0].Make = "mutated"

	again, _ := s.Scan(ctx)
	assert.Equal(t, "Acme", again[0].Make)
}

func TestSnapshot_InsertManyFallsBackToInsert(t *testing.T) {
	ctx := context.Background()
	// plainStore exposes only the RecordStore methods of Memory
	type plainStore struct{ inventory.RecordStore }
	s := NewSnapshot(plainStore{NewMemory()}, time.Minute)

	n, err := s.InsertMany(ctx, []models.Item{testItem("a1", 0), testItem("b2", 0)})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	all, _ := s.Scan(ctx)
	assert.Len(t, all, 2)
}
