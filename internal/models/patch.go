package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"warehouse-inventory-api/internal/apperr"
)

// Field names a patchable items column
type Field string

const (
	FieldMake          Field = "make"
	FieldModel         Field = "model"
	FieldPartNumber    Field = "part_number"
	FieldSerialNumber  Field = "serial_number"
	FieldBinLocation   Field = "bin_location"
	FieldCategory      Field = "category"
	FieldNotes         Field = "notes"
	FieldQuantity      Field = "quantity"
	FieldPhotoURL      Field = "photo_url"
	FieldCodeType      Field = "code_type"
	FieldPurchasePrice Field = "purchase_price"
	FieldRepairCost    Field = "repair_cost"
	FieldSalePrice     Field = "sale_price"
	FieldSold          Field = "sold"
	FieldRequestStatus Field = "request_status"
	FieldRequestedBy   Field = "requested_by"
)

// maxPrice is the largest value NUMERIC(10,2) holds
var maxPrice = decimal.RequireFromString("99999999.99")

// Change assigns one column in a partial update
type Change struct {
	Field Field
	Value any
}

// Patch is an ordered set of column assignments applied as one write
type Patch []Change

func SetMake(v string) Change         { return Change{FieldMake, strings.TrimSpace(v)} }
func SetModel(v string) Change        { return Change{FieldModel, strings.TrimSpace(v)} }
func SetBinLocation(v string) Change  { return Change{FieldBinLocation, strings.TrimSpace(v)} }
func SetPartNumber(v string) Change   { return Change{FieldPartNumber, StrPtr(strings.TrimSpace(v))} }
func SetSerialNumber(v string) Change { return Change{FieldSerialNumber, StrPtr(strings.TrimSpace(v))} }
func SetCategory(v string) Change     { return Change{FieldCategory, StrPtr(strings.TrimSpace(v))} }
func SetNotes(v string) Change        { return Change{FieldNotes, StrPtr(strings.TrimSpace(v))} }
func SetPhotoURL(v string) Change     { return Change{FieldPhotoURL, StrPtr(v)} }
func SetQuantity(v int) Change        { return Change{FieldQuantity, v} }
func SetCodeType(v CodeType) Change   { return Change{FieldCodeType, v} }
func SetSold(v bool) Change           { return Change{FieldSold, v} }

func SetPurchasePrice(v decimal.NullDecimal) Change { return Change{FieldPurchasePrice, v} }
func SetRepairCost(v decimal.NullDecimal) Change    { return Change{FieldRepairCost, v} }
func SetSalePrice(v decimal.NullDecimal) Change     { return Change{FieldSalePrice, v} }

func SetRequestStatus(v RequestStatus) Change { return Change{FieldRequestStatus, v} }
func SetRequestedBy(v string) Change          { return Change{FieldRequestedBy, strings.TrimSpace(v)} }

// RequestPatch marks the item as claimed by actor.
func RequestPatch(actor string) Patch {
	return Patch{SetRequestStatus(RequestPending), SetRequestedBy(actor)}
}

// FulfillPatch moves a requested item out of stock in one write.
func FulfillPatch() Patch {
	return Patch{SetSold(true), SetRequestStatus(RequestFulfilled)}
}

// ClearRequestPatch drops a pending request.
func ClearRequestPatch() Patch {
	return Patch{SetRequestStatus(RequestNone), SetRequestedBy("")}
}

// RestockPatch returns a sold item to active stock.
func RestockPatch() Patch {
	return Patch{SetSold(false), SetRequestStatus(RequestNone), SetRequestedBy("")}
}

// Has reports whether the patch assigns f
func (p Patch) Has(f Field) bool {
	for _, c := range p {
		if c.Field == f {
			return true
		}
	}
	return false
}

// Validate checks every change against the column schema. Nothing reaches the
// store unless this passes.
func (p Patch) Validate() error {
	var status RequestStatus
	var requester string
	for _, c := range p {
		check, ok := schema[c.Field]
		if !ok {
			return apperr.Validation(string(c.Field), "%s is not an updatable field", c.Field)
		}
		if err := check(c); err != nil {
			return err
		}
		switch c.Field {
		case FieldRequestStatus:
			status = c.Value.(RequestStatus)
		case FieldRequestedBy:
			requester = c.Value.(string)
		}
	}
	if status == RequestPending && requester == "" {
		return apperr.Validation(string(FieldRequestedBy), "requested_by is required for a pending request")
	}
	return nil
}

// Apply writes the patch into it. Callers validate first.
func (p Patch) Apply(it *Item) {
	for _, c := range p {
		switch c.Field {
		case FieldMake:
			it.Make = c.Value.(string)
		case FieldModel:
			it.Model = c.Value.(string)
		case FieldBinLocation:
			it.BinLocation = c.Value.(string)
		case FieldPartNumber:
			it.PartNumber = c.Value.(*string)
		case FieldSerialNumber:
			it.SerialNumber = c.Value.(*string)
		case FieldCategory:
			it.Category = c.Value.(*string)
		case FieldNotes:
			it.Notes = c.Value.(*string)
		case FieldPhotoURL:
			it.PhotoURL = c.Value.(*string)
		case FieldQuantity:
			it.Quantity = c.Value.(int)
		case FieldCodeType:
			it.CodeType = c.Value.(CodeType)
		case FieldPurchasePrice:
			it.PurchasePrice = c.Value.(decimal.NullDecimal)
		case FieldRepairCost:
			it.RepairCost = c.Value.(decimal.NullDecimal)
		case FieldSalePrice:
			it.SalePrice = c.Value.(decimal.NullDecimal)
		case FieldSold:
			it.Sold = c.Value.(bool)
		case FieldRequestStatus:
			it.RequestStatus = c.Value.(RequestStatus)
		case FieldRequestedBy:
			it.RequestedBy = c.Value.(string)
		}
	}
}

// SQLValue converts the change value into a driver argument. Empty lifecycle
// strings are stored as NULL.
func (c Change) SQLValue() any {
	switch v := c.Value.(type) {
	case RequestStatus:
		if v == RequestNone {
			return nil
		}
		return string(v)
	case CodeType:
		return string(v)
	case string:
		if c.Field == FieldRequestedBy && v == "" {
			return nil
		}
		return v
	case *string:
		if v == nil {
			return nil
		}
		return *v
	default:
		return v
	}
}

var schema = map[Field]func(Change) error{
	FieldMake:          requiredText,
	FieldModel:         requiredText,
	FieldBinLocation:   requiredText,
	FieldPartNumber:    optionalText,
	FieldSerialNumber:  optionalText,
	FieldCategory:      optionalText,
	FieldNotes:         optionalText,
	FieldPhotoURL:      optionalText,
	FieldQuantity:      quantityValue,
	FieldCodeType:      codeTypeValue,
	FieldPurchasePrice: priceValue,
	FieldRepairCost:    priceValue,
	FieldSalePrice:     priceValue,
	FieldSold:          boolValue,
	FieldRequestStatus: requestStatusValue,
	FieldRequestedBy:   textValue,
}

func typeError(c Change) error {
	return apperr.Validation(string(c.Field), "%s has invalid type %T", c.Field, c.Value)
}

func requiredText(c Change) error {
	v, ok := c.Value.(string)
	if !ok {
		return typeError(c)
	}
	if strings.TrimSpace(v) == "" {
		return apperr.Validation(string(c.Field), "%s is required", c.Field)
	}
	return nil
}

func optionalText(c Change) error {
	if _, ok := c.Value.(*string); !ok {
		return typeError(c)
	}
	return nil
}

func textValue(c Change) error {
	if _, ok := c.Value.(string); !ok {
		return typeError(c)
	}
	return nil
}

func boolValue(c Change) error {
	if _, ok := c.Value.(bool); !ok {
		return typeError(c)
	}
	return nil
}

func quantityValue(c Change) error {
	v, ok := c.Value.(int)
	if !ok {
		return typeError(c)
	}
	return ValidateQuantity(v)
}

func codeTypeValue(c Change) error {
	v, ok := c.Value.(CodeType)
	if !ok {
		return typeError(c)
	}
	if !v.Valid() {
		return apperr.Validation(string(c.Field), "code_type must be %q or %q, got %q", CodeBarcode128, CodeQR, v)
	}
	return nil
}

func priceValue(c Change) error {
	v, ok := c.Value.(decimal.NullDecimal)
	if !ok {
		return typeError(c)
	}
	return ValidatePrice(string(c.Field), v)
}

func requestStatusValue(c Change) error {
	v, ok := c.Value.(RequestStatus)
	if !ok {
		return typeError(c)
	}
	switch v {
	case RequestNone, RequestPending, RequestFulfilled:
		return nil
	}
	return apperr.Validation(string(c.Field), "unknown request_status %q", v)
}

// ValidateQuantity rejects negative stock counts
func ValidateQuantity(q int) error {
	if q < 0 {
		return apperr.Validation(string(FieldQuantity), "quantity must be >= 0, got %d", q)
	}
	return nil
}

// ValidatePrice accepts NULL or a non-negative amount with at most two decimals.
func ValidatePrice(field string, d decimal.NullDecimal) error {
	if !d.Valid {
		return nil
	}
	if d.Decimal.IsNegative() {
		return apperr.Validation(field, "%s must not be negative", field)
	}
	if !d.Decimal.Equal(d.Decimal.Round(2)) {
		return apperr.Validation(field, "%s must have at most 2 decimal places", field)
	}
	if d.Decimal.GreaterThan(maxPrice) {
		return apperr.Validation(field, "%s exceeds %s", field, maxPrice.StringFixed(2))
	}
	return nil
}

// ParsePrice reads an optional price cell. Blank input is NULL.
func ParsePrice(field, raw string) (decimal.NullDecimal, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "$"))
	if raw == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}, apperr.Validation(field, "%s: malformed price %q", field, raw)
	}
	out := decimal.NullDecimal{Decimal: d, Valid: true}
	if err := ValidatePrice(field, out); err != nil {
		return decimal.NullDecimal{}, err
	}
	return out, nil
}

// String renders the patch for logs
func (p Patch) String() string {
	parts := make([]string, 0, len(p))
	for _, c := range p {
		parts = append(parts, fmt.Sprintf("%s=%v", c.Field, c.SQLValue()))
	}
	return strings.Join(parts, ", ")
}
