//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warehouse-inventory-api/internal/apperr"
	"warehouse-inventory-api/internal/models"
	"warehouse-inventory-api/internal/testutil"
)

func newPostgres(t *testing.T) *Postgres {
	testutil.RequireIntegration(t)
	conn := testutil.NewTestDB(t)
	testutil.ResetSchema(t, conn)

	pool, err := pgxpool.New(context.Background(), testutil.DSN())
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return NewPostgres(conn, pool)
}

func TestPostgres_RoundTrip(t *testing.T) {
	ctx := context.Background()
	p := newPostgres(t)

	it := testItem("a1", 0)
	it.PartNumber = models.StrPtr("PN-9")
	it.SalePrice = decimal.NullDecimal{Decimal: decimal.RequireFromString("19.99"), Valid: true}
	require.NoError(t, p.Insert(ctx, it))

	got, err := p.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, it.Make, got.Make)
	assert.Equal(t, "PN-9", models.StrVal(got.PartNumber))
	assert.Nil(t, got.SerialNumber)
	assert.True(t, got.SalePrice.Valid)
	assert.Equal(t, "19.99", got.SalePrice.Decimal.StringFixed(2))
	assert.False(t, got.PurchasePrice.Valid)
	assert.True(t, it.CreatedAt.Equal(got.CreatedAt))

	assert.ErrorIs(t, p.Insert(ctx, it), apperr.ErrDuplicateKey)
}

func TestPostgres_UpdateAndGuards(t *testing.T) {
	ctx := context.Background()
	p := newPostgres(t)
	require.NoError(t, p.Insert(ctx, testItem("a1", 0)))

	require.NoError(t, p.Update(ctx, "a1", models.Patch{models.SetQuantity(0), models.SetNotes("empty")}))
	require.NoError(t, p.Update(ctx, "a1", nil))
	assert.ErrorIs(t, p.Update(ctx, "zz", nil), apperr.ErrNotFound)
	assert.ErrorIs(t, p.Update(ctx, "zz", models.Patch{models.SetQuantity(1)}), apperr.ErrNotFound)

	require.NoError(t, p.UpdateIf(ctx, "a1", models.Lifecycle{}, models.RequestPatch("alice")))
	err := p.UpdateIf(ctx, "a1", models.Lifecycle{}, models.RequestPatch("bob"))
	assert.ErrorIs(t, err, apperr.ErrStale)

	got, err := p.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Quantity)
	assert.Equal(t, models.RequestPending, got.RequestStatus)
	assert.Equal(t, "alice", got.RequestedBy)

	pending := models.Lifecycle{RequestStatus: models.RequestPending}
	require.NoError(t, p.UpdateIf(ctx, "a1", pending, models.FulfillPatch()))

	active, err := p.ScanActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestPostgres_RejectsNegativeQuantity(t *testing.T) {
	ctx := context.Background()
	p := newPostgres(t)
	require.NoError(t, p.Insert(ctx, testItem("a1", 0)))

	// The patch layer normally rejects this first; the CHECK constraint is the backstop.
	err := p.Update(ctx, "a1", models.Patch{{Field: models.FieldQuantity, Value: -1}})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestPostgres_ScanOrderAndDelete(t *testing.T) {
	ctx := context.Background()
	p := newPostgres(t)

	n, err := p.InsertMany(ctx, []models.Item{testItem("a1", time.Hour), testItem("b2", 0)})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := p.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b2", "a1"}, ids(all))

	require.NoError(t, p.Delete(ctx, "b2"))
	assert.ErrorIs(t, p.Delete(ctx, "b2"), apperr.ErrNotFound)

	_, err = p.InsertMany(ctx, []models.Item{testItem("c3", 0), testItem("a1", 0)})
	assert.ErrorIs(t, err, apperr.ErrDuplicateKey)
	all, _ = p.Scan(ctx)
	assert.Equal(t, []string{"a1"}, ids(all))
}
