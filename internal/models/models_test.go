package models

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warehouse-inventory-api/internal/apperr"
)

func price(s string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.RequireFromString(s), Valid: true}
}

func TestPatchValidate(t *testing.T) {
	tests := []struct {
		name      string
		patch     Patch
		wantField string
	}{
		{"empty patch", Patch{}, ""},
		{"descriptive fields", Patch{SetMake("Acme"), SetModel("X1"), SetBinLocation("A1"), SetNotes("")}, ""},
		{"blank make", Patch{SetMake("   ")}, "make"},
		{"blank bin", Patch{SetBinLocation("")}, "bin_location"},
		{"negative quantity", Patch{SetQuantity(-1)}, "quantity"},
		{"zero quantity", Patch{SetQuantity(0)}, ""},
		{"bad code type", Patch{SetCodeType("ean13")}, "code_type"},
		{"negative price", Patch{SetSalePrice(price("-1.00"))}, "sale_price"},
		{"three decimals", Patch{SetPurchasePrice(price("1.005"))}, "purchase_price"},
		{"null price", Patch{SetRepairCost(decimal.NullDecimal{})}, ""},
		{"pending without actor", Patch{SetRequestStatus(RequestPending)}, "requested_by"},
		{"pending with actor", RequestPatch("alice"), ""},
		{"wrong type", Patch{{Field: FieldQuantity, Value: "5"}}, "quantity"},
		{"unknown field", Patch{{Field: "id", Value: "x"}}, "id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.patch.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperr.ErrValidation))
			e, _ := apperr.As(err)
			assert.Equal(t, tt.wantField, e.Field)
		})
	}
}

func TestPatchApply(t *testing.T) {
	it := Item{ID: "abc", Make: "Acme", Model: "X1", BinLocation: "A1", Quantity: 5}

	Patch{SetQuantity(3), SetPartNumber("PN-1"), SetSerialNumber("")}.Apply(&it)
	assert.Equal(t, 3, it.Quantity)
	require.NotNil(t, it.PartNumber)
	assert.Equal(t, "PN-1", *it.PartNumber)
	assert.Nil(t, it.SerialNumber)

	RequestPatch("alice").Apply(&it)
	assert.Equal(t, RequestPending, it.RequestStatus)
	assert.Equal(t, "alice", it.RequestedBy)

	FulfillPatch().Apply(&it)
	assert.True(t, it.Sold)
	assert.Equal(t, RequestFulfilled, it.RequestStatus)

	RestockPatch().Apply(&it)
	assert.False(t, it.Sold)
	assert.Equal(t, RequestNone, it.RequestStatus)
	assert.Empty(t, it.RequestedBy)
}

func TestChangeSQLValue(t *testing.T) {
	assert.Nil(t, SetRequestStatus(RequestNone).SQLValue())
	assert.Equal(t, "pending", SetRequestStatus(RequestPending).SQLValue())
	assert.Nil(t, SetRequestedBy("").SQLValue())
	assert.Nil(t, SetNotes("  ").SQLValue())
	assert.Equal(t, "note", SetNotes("note").SQLValue())
	assert.Equal(t, "qr", SetCodeType(CodeQR).SQLValue())
	assert.Equal(t, 4, SetQuantity(4).SQLValue())
}

func TestParsePrice(t *testing.T) {
	p, err := ParsePrice("sale_price", " $12.50 ")
	require.NoError(t, err)
	assert.True(t, p.Valid)
	assert.Equal(t, "12.50", p.Decimal.StringFixed(2))

	p, err = ParsePrice("sale_price", "")
	require.NoError(t, err)
	assert.False(t, p.Valid)

	_, err = ParsePrice("sale_price", "twelve")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = ParsePrice("sale_price", "100000000.00")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCapabilitiesFor(t *testing.T) {
	admin := CapabilitiesFor([]string{RoleAdmin})
	assert.True(t, admin.Has(CapAdminOverride))
	assert.True(t, admin.Has(CapItemsDelete))

	sales := CapabilitiesFor([]string{RoleSales})
	assert.True(t, sales.Has(CapPicksRequest))
	assert.False(t, sales.Has(CapPicksFulfill))
	assert.False(t, sales.Has(CapItemsCreate))

	picker := CapabilitiesFor([]string{RolePicker})
	assert.True(t, picker.Has(CapPicksFulfill))
	assert.True(t, picker.Has(CapAuditRun))
	assert.False(t, picker.Has(CapAdminOverride))

	both := CapabilitiesFor([]string{RoleSales, RolePicker})
	assert.True(t, both.Has(CapPicksRequest))
	assert.True(t, both.Has(CapPicksFulfill))

	assert.Empty(t, CapabilitiesFor([]string{"viewer"}))
	assert.False(t, ValidateRoles([]string{"admin", "viewer"}))
	assert.False(t, ValidateRoles(nil))
	assert.True(t, ValidateRoles([]string{"picker"}))
}
