package inventory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"warehouse-inventory-api/internal/apperr"
	"warehouse-inventory-api/internal/inventory"
	"warehouse-inventory-api/internal/models"
)

func TestStateOf(t *testing.T) {
	tests := []struct {
		name string
		item models.Item
		want inventory.State
	}{
		{"fresh", models.Item{}, inventory.StateAvailable},
		{"pending", models.Item{RequestStatus: models.RequestPending, RequestedBy: "alice"}, inventory.StateRequested},
		{"sold fulfilled", models.Item{Sold: true, RequestStatus: models.RequestFulfilled}, inventory.StateSold},
		{"sold without request", models.Item{Sold: true}, inventory.StateSold},
		{"sold and pending", models.Item{Sold: true, RequestStatus: models.RequestPending}, inventory.StateInconsistent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, inventory.StateOf(tt.item))
		})
	}
}

func TestNext(t *testing.T) {
	tests := []struct {
		from    inventory.State
		event   inventory.Event
		want    inventory.State
		wantErr error
	}{
		{inventory.StateAvailable, inventory.EventRequestPick, inventory.StateRequested, nil},
		{inventory.StateRequested, inventory.EventConfirmFulfill, inventory.StateSold, nil},
		{inventory.StateRequested, inventory.EventCancelRequest, inventory.StateAvailable, nil},
		{inventory.StateRequested, inventory.EventAdminClear, inventory.StateAvailable, nil},
		{inventory.StateSold, inventory.EventReturnToStock, inventory.StateAvailable, nil},

		{inventory.StateRequested, inventory.EventRequestPick, "", apperr.ErrAlreadyRequested},
		{inventory.StateSold, inventory.EventRequestPick, "", apperr.ErrAlreadySold},
		{inventory.StateAvailable, inventory.EventConfirmFulfill, "", apperr.ErrNotRequested},
		{inventory.StateSold, inventory.EventConfirmFulfill, "", apperr.ErrNotRequested},
		{inventory.StateAvailable, inventory.EventCancelRequest, "", apperr.ErrNotRequested},
		{inventory.StateSold, inventory.EventAdminClear, "", apperr.ErrNotRequested},
		{inventory.StateAvailable, inventory.EventReturnToStock, "", apperr.ErrNotSold},
		{inventory.StateRequested, inventory.EventReturnToStock, "", apperr.ErrNotSold},
		{inventory.StateInconsistent, inventory.EventRequestPick, "", apperr.ErrInconsistentState},
		{inventory.StateInconsistent, inventory.EventReturnToStock, "", apperr.ErrInconsistentState},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.event), func(t *testing.T) {
			got, err := inventory.Next("a1", tt.from, tt.event)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
				assert.Contains(t, err.Error(), "a1")
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRequires(t *testing.T) {
	assert.Equal(t, models.CapItemsCreate, inventory.Requires(inventory.OpReceive))
	assert.Equal(t, models.CapAdminOverride, inventory.Requires(inventory.OpReturnToStock))
	assert.Equal(t, models.CapPicksFulfill, inventory.Requires(inventory.OpFulfill))
	assert.Equal(t, models.CapAdminOverride, inventory.Requires("unheard_of"))
}
