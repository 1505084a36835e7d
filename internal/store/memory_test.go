package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warehouse-inventory-api/internal/apperr"
	"warehouse-inventory-api/internal/models"
)

var base = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func testItem(id string, age time.Duration) models.Item {
	return models.Item{
		ID:          id,
		Make:        "Acme",
		Model:       "X1",
		BinLocation: "A1",
		Quantity:    5,
		CodeType:    models.CodeBarcode128,
		CodeValue:   id,
		CreatedAt:   base.Add(-age),
	}
}

func TestMemory_InsertAndGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	it := testItem("a1", 0)
	it.Notes = models.StrPtr("fragile")
	require.NoError(t, m.Insert(ctx, it))

	got, err := m.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, it, got)

	err = m.Insert(ctx, testItem("a1", time.Hour))
	assert.ErrorIs(t, err, apperr.ErrDuplicateKey)

	_, err = m.Get(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMemory_Update(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(testItem("a1", 0))

	t.Run("applies only named fields", func(t *testing.T) {
		require.NoError(t, m.Update(ctx, "a1", models.Patch{models.SetQuantity(2)}))
		got, _ := m.Get(ctx, "a1")
		assert.Equal(t, 2, got.Quantity)
		assert.Equal(t, "Acme", got.Make)
	})

	t.Run("disjoint updates both land", func(t *testing.T) {
		require.NoError(t, m.Update(ctx, "a1", models.Patch{models.SetBinLocation("B7")}))
		require.NoError(t, m.Update(ctx, "a1", models.Patch{models.SetNotes("top shelf")}))
		got, _ := m.Get(ctx, "a1")
		assert.Equal(t, "B7", got.BinLocation)
		assert.Equal(t, "top shelf", models.StrVal(got.Notes))
	})

	t.Run("empty patch is a no-op", func(t *testing.T) {
		before, _ := m.Get(ctx, "a1")
		require.NoError(t, m.Update(ctx, "a1", nil))
		after, _ := m.Get(ctx, "a1")
		assert.Equal(t, before, after)
	})

	t.Run("missing id", func(t *testing.T) {
		assert.ErrorIs(t, m.Update(ctx, "nope", models.Patch{models.SetQuantity(1)}), apperr.ErrNotFound)
		assert.ErrorIs(t, m.Update(ctx, "nope", nil), apperr.ErrNotFound)
	})
}

func TestMemory_UpdateIf(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(testItem("a1", 0))
	available := models.Lifecycle{}

	require.NoError(t, m.UpdateIf(ctx, "a1", available, models.RequestPatch("alice")))

	// A second claimant validated against the same AVAILABLE snapshot loses.
	err := m.UpdateIf(ctx, "a1", available, models.RequestPatch("bob"))
	assert.ErrorIs(t, err, apperr.ErrStale)

	got, _ := m.Get(ctx, "a1")
	assert.Equal(t, "alice", got.RequestedBy)

	assert.ErrorIs(t, m.UpdateIf(ctx, "zz", available, models.RequestPatch("bob")), apperr.ErrNotFound)
}

func TestMemory_DeleteAndScan(t *testing.T) {
	ctx := context.Background()
	sold := testItem("c3", 3*time.Hour)
	sold.Sold = true
	sold.RequestStatus = models.RequestFulfilled
	m := NewMemory(testItem("a1", 2*time.Hour), testItem("b2", 0), sold)

	all, err := m.Scan(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"b2", "a1", "c3"}, ids(all))

	active, err := m.ScanActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b2", "a1"}, ids(active))

	require.NoError(t, m.Delete(ctx, "a1"))
	assert.ErrorIs(t, m.Delete(ctx, "a1"), apperr.ErrNotFound)

	all, _ = m.Scan(ctx)
	assert.Equal(t, []string{"b2", "c3"}, ids(all))
}

func TestMemory_InsertMany(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(testItem("a1", 0))

	_, err := m.InsertMany(ctx, []models.Item{testItem("b2", 0), testItem("a1", 0)})
	assert.ErrorIs(t, err, apperr.ErrDuplicateKey)
	all, _ := m.Scan(ctx)
	assert.Len(t, all, 1, "failed batch must not insert anything")

	n, err := m.InsertMany(ctx, []models.Item{testItem("b2", 0), testItem("c3", 0)})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func ids(items []models.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}
