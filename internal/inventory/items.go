package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"warehouse-inventory-api/internal/apperr"
	"warehouse-inventory-api/internal/models"
)

// PhotoSaver stores an uploaded image and returns where it can be fetched.
// An empty URL means the photo could not be kept anywhere.
type PhotoSaver interface {
	Save(ctx context.Context, data []byte, filename string) (string, error)
}

// Photo is an uploaded image attached to a receive request
type Photo struct {
	Data     []byte
	Filename string
}

// ReceiveInput is the payload for creating an item
type ReceiveInput struct {
	Make          string              `json:"make" validate:"required,max=200"`
	Model         string              `json:"model" validate:"required,max=200"`
	PartNumber    string              `json:"part_number" validate:"max=200"`
	SerialNumber  string              `json:"serial_number" validate:"max=200"`
	BinLocation   string              `json:"bin_location" validate:"required,max=100"`
	Category      string              `json:"category" validate:"max=100"`
	Notes         string              `json:"notes" validate:"max=4000"`
	Quantity      *int                `json:"quantity" validate:"omitempty,gte=0"`
	CodeType      models.CodeType     `json:"code_type" validate:"omitempty,oneof=barcode128 qr"`
	PurchasePrice decimal.NullDecimal `json:"purchase_price"`
	RepairCost    decimal.NullDecimal `json:"repair_cost"`
	SalePrice     decimal.NullDecimal `json:"sale_price"`
	Photo         *Photo              `json:"-"`
}

func (in *ReceiveInput) normalize() {
	in.Make = strings.TrimSpace(in.Make)
	in.Model = strings.TrimSpace(in.Model)
	in.PartNumber = strings.TrimSpace(in.PartNumber)
	in.SerialNumber = strings.TrimSpace(in.SerialNumber)
	in.BinLocation = strings.TrimSpace(in.BinLocation)
	in.Category = strings.TrimSpace(in.Category)
	in.Notes = strings.TrimSpace(in.Notes)
}

// PriceUpdate tells an absent price apart from an explicit null
type PriceUpdate struct {
	Set   bool
	Value decimal.NullDecimal
}

func (p *PriceUpdate) UnmarshalJSON(b []byte) error {
	p.Set = true
	return p.Value.UnmarshalJSON(b)
}

// EditInput carries the fields to change. Nil fields are left alone; blank
// optional strings clear the column.
type EditInput struct {
	Make          *string          `json:"make" validate:"omitempty,max=200"`
	Model         *string          `json:"model" validate:"omitempty,max=200"`
	PartNumber    *string          `json:"part_number" validate:"omitempty,max=200"`
	SerialNumber  *string          `json:"serial_number" validate:"omitempty,max=200"`
	BinLocation   *string          `json:"bin_location" validate:"omitempty,max=100"`
	Category      *string          `json:"category" validate:"omitempty,max=100"`
	Notes         *string          `json:"notes" validate:"omitempty,max=4000"`
	Quantity      *int             `json:"quantity"`
	CodeType      *models.CodeType `json:"code_type"`
	PurchasePrice PriceUpdate      `json:"purchase_price"`
	RepairCost    PriceUpdate      `json:"repair_cost"`
	SalePrice     PriceUpdate      `json:"sale_price"`
}

// Patch converts the input into a typed partial update
func (in EditInput) Patch() models.Patch {
	p := models.Patch{}
	if in.Make != nil {
		p = append(p, models.SetMake(*in.Make))
	}
	if in.Model != nil {
		p = append(p, models.SetModel(*in.Model))
	}
	if in.PartNumber != nil {
		p = append(p, models.SetPartNumber(*in.PartNumber))
	}
	if in.SerialNumber != nil {
		p = append(p, models.SetSerialNumber(*in.SerialNumber))
	}
	if in.BinLocation != nil {
		p = append(p, models.SetBinLocation(*in.BinLocation))
	}
	if in.Category != nil {
		p = append(p, models.SetCategory(*in.Category))
	}
	if in.Notes != nil {
		p = append(p, models.SetNotes(*in.Notes))
	}
	if in.Quantity != nil {
		p = append(p, models.SetQuantity(*in.Quantity))
	}
	if in.CodeType != nil {
		p = append(p, models.SetCodeType(*in.CodeType))
	}
	if in.PurchasePrice.Set {
		p = append(p, models.SetPurchasePrice(in.PurchasePrice.Value))
	}
	if in.RepairCost.Set {
		p = append(p, models.SetRepairCost(in.RepairCost.Value))
	}
	if in.SalePrice.Set {
		p = append(p, models.SetSalePrice(in.SalePrice.Value))
	}
	return p
}

// Items covers the catalog side of the inventory: receiving, editing, lookups.
type Items struct {
	Store  RecordStore
	Photos PhotoSaver
	Logger *slog.Logger

	// Now and NewID are replaced in tests
	Now   func() time.Time
	NewID func() string
}

// NewItems creates the catalog service. photos may be nil.
func NewItems(store RecordStore, photos PhotoSaver, logger *slog.Logger) *Items {
	if logger == nil {
		logger = slog.Default()
	}
	return &Items{
		Store:  store,
		Photos: photos,
		Logger: logger,
		Now:    func() time.Time { return time.Now().UTC() },
		NewID:  NewItemID,
	}
}

// NewItemID returns a 12 character hex token
func NewItemID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// Receive validates the input, stores the optional photo and inserts a new
// item whose code value is its id.
func (s *Items) Receive(ctx context.Context, in ReceiveInput) (models.Item, error) {
	in.normalize()
	if err := Validate(in); err != nil {
		return models.Item{}, err
	}
	prices := []struct {
		field string
		value decimal.NullDecimal
	}{
		{"purchase_price", in.PurchasePrice},
		{"repair_cost", in.RepairCost},
		{"sale_price", in.SalePrice},
	}
	for _, p := range prices {
		if err := models.ValidatePrice(p.field, p.value); err != nil {
			return models.Item{}, err
		}
	}

	item := NewItem(s.NewID(), s.Now())
	item.Make = in.Make
	item.Model = in.Model
	item.PartNumber = models.StrPtr(in.PartNumber)
	item.SerialNumber = models.StrPtr(in.SerialNumber)
	item.BinLocation = in.BinLocation
	item.Category = models.StrPtr(in.Category)
	item.Notes = models.StrPtr(in.Notes)
	if in.Quantity != nil {
		item.Quantity = *in.Quantity
	}
	if in.CodeType != "" {
		item.CodeType = in.CodeType
	}
	item.PurchasePrice = in.PurchasePrice
	item.RepairCost = in.RepairCost
	item.SalePrice = in.SalePrice

	if in.Photo != nil && len(in.Photo.Data) > 0 && s.Photos != nil {
		url, err := s.Photos.Save(ctx, in.Photo.Data, item.ID+".jpg")
		if err != nil {
			s.Logger.Warn("photo not stored", "item_id", item.ID, "error", err)
		}
		item.PhotoURL = models.StrPtr(url)
	}

	if err := s.Store.Insert(ctx, item); err != nil {
		return models.Item{}, fmt.Errorf("receiving item: %w", err)
	}
	s.Logger.Info("item received", "item_id", item.ID, "make", item.Make, "model", item.Model, "quantity", item.Quantity)
	return item, nil
}

// NewItem returns an item with default code and lifecycle fields
func NewItem(id string, createdAt time.Time) models.Item {
	return models.Item{
		ID:        id,
		Quantity:  1,
		CodeType:  models.CodeBarcode128,
		CodeValue: id,
		CreatedAt: createdAt.UTC().Truncate(time.Second),
	}
}

// Get loads one item
func (s *Items) Get(ctx context.Context, id string) (models.Item, error) {
	return s.Store.Get(ctx, strings.TrimSpace(id))
}

// Lookup resolves a scanned code to its item
func (s *Items) Lookup(ctx context.Context, code string) (models.Item, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return models.Item{}, apperr.Validation("code", "code is required")
	}
	return s.Store.Get(ctx, code)
}

// Edit applies the given field changes and returns the stored item.
func (s *Items) Edit(ctx context.Context, id string, in EditInput) (models.Item, error) {
	if err := Validate(in); err != nil {
		return models.Item{}, err
	}
	return s.apply(ctx, id, in.Patch())
}

// AdjustQuantity sets the stock count of an item
func (s *Items) AdjustQuantity(ctx context.Context, id string, quantity int) (models.Item, error) {
	return s.apply(ctx, id, models.Patch{models.SetQuantity(quantity)})
}

func (s *Items) apply(ctx context.Context, id string, patch models.Patch) (models.Item, error) {
	if err := patch.Validate(); err != nil {
		return models.Item{}, err
	}
	if err := s.Store.Update(ctx, id, patch); err != nil {
		return models.Item{}, fmt.Errorf("updating item: %w", err)
	}
	if len(patch) > 0 {
		s.Logger.Info("item updated", "item_id", id, "changes", patch.String())
	}
	return s.Store.Get(ctx, id)
}

// Delete removes an item permanently
func (s *Items) Delete(ctx context.Context, id string) error {
	if err := s.Store.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	s.Logger.Info("item deleted", "item_id", id)
	return nil
}

// List returns the page of items matching f and the total match count
func (s *Items) List(ctx context.Context, f Filter) ([]models.Item, int, error) {
	all, err := s.Store.Scan(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("listing items: %w", err)
	}
	matched := f.Apply(all)
	return f.Page(matched), len(matched), nil
}

// Matching returns every item matching f without paging, for exports
func (s *Items) Matching(ctx context.Context, f Filter) ([]models.Item, error) {
	all, err := s.Store.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	return f.Apply(all), nil
}

// SoldArchive lists sold items, newest first
func (s *Items) SoldArchive(ctx context.Context, f Filter) ([]models.Item, int, error) {
	f.Status = StatusSold
	return s.List(ctx, f)
}
