package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CodeType selects how an item's code is rendered on labels
type CodeType string

const (
	CodeBarcode128 CodeType = "barcode128"
	CodeQR         CodeType = "qr"
)

// Valid reports whether t is a known code type
func (t CodeType) Valid() bool {
	return t == CodeBarcode128 || t == CodeQR
}

// RequestStatus is the pick request column. The empty value is stored as NULL.
type RequestStatus string

const (
	RequestNone      RequestStatus = ""
	RequestPending   RequestStatus = "pending"
	RequestFulfilled RequestStatus = "fulfilled"
)

// Item is one trackable inventory unit
type Item struct {
	ID            string              `json:"id"`
	Make          string              `json:"make"`
	Model         string              `json:"model"`
	PartNumber    *string             `json:"part_number,omitempty"`
	SerialNumber  *string             `json:"serial_number,omitempty"`
	BinLocation   string              `json:"bin_location"`
	Category      *string             `json:"category,omitempty"`
	Notes         *string             `json:"notes,omitempty"`
	Quantity      int                 `json:"quantity"`
	PhotoURL      *string             `json:"photo_url,omitempty"`
	CodeType      CodeType            `json:"code_type"`
	CodeValue     string              `json:"code_value"`
	PurchasePrice decimal.NullDecimal `json:"purchase_price"`
	RepairCost    decimal.NullDecimal `json:"repair_cost"`
	SalePrice     decimal.NullDecimal `json:"sale_price"`
	Sold          bool                `json:"sold"`
	RequestStatus RequestStatus       `json:"request_status,omitempty"`
	RequestedBy   string              `json:"requested_by,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
}

// Lifecycle is the pair of columns the pick workflow guards on
type Lifecycle struct {
	Sold          bool
	RequestStatus RequestStatus
}

// Lifecycle returns the item's current lifecycle columns
func (it Item) Lifecycle() Lifecycle {
	return Lifecycle{Sold: it.Sold, RequestStatus: it.RequestStatus}
}

// Active reports whether the item belongs in active inventory views
func (it Item) Active() bool {
	return !it.Sold
}

// StrPtr returns nil for blank strings so optional columns store NULL
func StrPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StrVal dereferences an optional column
func StrVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
