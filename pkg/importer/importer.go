// Package importer loads items in bulk from CSV or XLSX files.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tealeg/xlsx/v3"

	"warehouse-inventory-api/internal/apperr"
	"warehouse-inventory-api/internal/inventory"
	"warehouse-inventory-api/internal/models"
)

// Format is the file type of an import
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// DetectFormat picks the format from a file name
func DetectFormat(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", apperr.Validation("file", "only .csv and .xlsx files are accepted")
	}
}

// ErrTooManyErrors stops an import whose rows fail more often than allowed.
var ErrTooManyErrors = errors.New("too many row errors")

// Inserter is the store side of an import
type Inserter interface {
	Insert(ctx context.Context, item models.Item) error
}

// ImportOptions configures a single import run
type ImportOptions struct {
	Format    Format
	Mapping   *Mapping // nil means DefaultMapping
	DryRun    bool
	MaxErrors int // default 50

	// Now and NewID are replaced in tests
	Now   func() time.Time
	NewID func() string
}

// RowError describes a row that could not be imported. Row is 1-based and
// counts the header.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportSummary contains the import statistics
type ImportSummary struct {
	Inserted int        `json:"inserted"`
	Skipped  int        `json:"skipped"`
	Errors   int        `json:"errors"`
	Samples  []RowError `json:"error_samples,omitempty"`
	DryRun   bool       `json:"dry_run"`
}

// Import parses r and inserts one new item per usable row. Rows missing a
// required value are skipped; rows with unparsable values are reported as
// errors. Nothing is written when the error count exceeds MaxErrors or
// DryRun is set.
func Import(ctx context.Context, store Inserter, r io.Reader, opts ImportOptions) (ImportSummary, error) {
	summary := ImportSummary{DryRun: opts.DryRun}

	if opts.Mapping == nil {
		opts.Mapping = DefaultMapping()
	}
	if opts.MaxErrors <= 0 {
		opts.MaxErrors = 50
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.NewID == nil {
		opts.NewID = inventory.NewItemID
	}

	rows, err := readRows(r, opts.Format)
	if err != nil {
		return summary, err
	}
	if len(rows) == 0 {
		return summary, apperr.Validation("file", "file is empty")
	}

	cols := opts.Mapping.resolve(rows[0])
	var missing []string
	for _, field := range opts.Mapping.Required {
		if _, ok := cols[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return summary, apperr.Validation("file", "missing required columns: %s", strings.Join(missing, ", "))
	}

	var items []models.Item
	for i, row := range rows[1:] {
		rowNum := i + 2
		rec := record{cols: cols, row: row}
		if rec.blank() || !rec.hasAll(opts.Mapping.Required) {
			summary.Skipped++
			continue
		}
		it, err := rec.item(opts.NewID(), opts.Now())
		if err != nil {
			summary.Errors++
			if len(summary.Samples) < opts.MaxErrors {
				summary.Samples = append(summary.Samples, RowError{Row: rowNum, Message: err.Error()})
			}
			continue
		}
		items = append(items, it)
	}

	if summary.Errors > opts.MaxErrors {
		return summary, fmt.Errorf("%w (%d), stopping import", ErrTooManyErrors, summary.Errors)
	}
	if opts.DryRun {
		summary.Inserted = len(items)
		return summary, nil
	}

	n, err := insert(ctx, store, items)
	summary.Inserted = n
	if err != nil {
		return summary, fmt.Errorf("inserting items: %w", err)
	}
	return summary, nil
}

// insert writes items in one batch when the store supports it
func insert(ctx context.Context, store Inserter, items []models.Item) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	if bulk, ok := store.(interface {
		InsertMany(ctx context.Context, items []models.Item) (int, error)
	}); ok {
		return bulk.InsertMany(ctx, items)
	}
	for i, it := range items {
		if err := store.Insert(ctx, it); err != nil {
			return i, err
		}
	}
	return len(items), nil
}

func readRows(r io.Reader, format Format) ([][]string, error) {
	switch format {
	case FormatCSV:
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		cr.TrimLeadingSpace = true
		rows, err := cr.ReadAll()
		if err != nil {
			return nil, apperr.Validation("file", "invalid CSV: %v", err)
		}
		return rows, nil
	case FormatXLSX:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("reading upload: %w", err)
		}
		return readXLSX(data)
	default:
		return nil, apperr.Validation("format", "unsupported format %q", format)
	}
}

// readXLSX returns the cells of the first sheet as text
func readXLSX(data []byte) ([][]string, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, apperr.Validation("file", "invalid XLSX: %v", err)
	}
	if len(f.Sheets) == 0 {
		return nil, nil
	}
	sheet := f.Sheets[0]
	defer sheet.Close()

	rows := make([][]string, 0, sheet.MaxRow)
	for r := 0; r < sheet.MaxRow; r++ {
		row := make([]string, sheet.MaxCol)
		for c := 0; c < sheet.MaxCol; c++ {
			cell, err := sheet.Cell(r, c)
			if err != nil {
				return nil, fmt.Errorf("reading cell %d,%d: %w", r+1, c+1, err)
			}
			row[c] = cell.String()
		}
		rows = append(rows, row)
	}
	return rows, nil
}

type record struct {
	cols map[string]int
	row  []string
}

func (r record) get(field string) string {
	i, ok := r.cols[field]
	if !ok || i >= len(r.row) {
		return ""
	}
	return strings.TrimSpace(r.row[i])
}

func (r record) blank() bool {
	for _, v := range r.row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func (r record) hasAll(fields []string) bool {
	for _, f := range fields {
		if r.get(f) == "" {
			return false
		}
	}
	return true
}

func (r record) item(id string, now time.Time) (models.Item, error) {
	it := inventory.NewItem(id, now)
	it.Make = r.get("make")
	it.Model = r.get("model")
	it.BinLocation = r.get("bin_location")
	it.PartNumber = models.StrPtr(r.get("part_number"))
	it.SerialNumber = models.StrPtr(r.get("serial_number"))
	it.Category = models.StrPtr(r.get("category"))
	it.Notes = models.StrPtr(r.get("notes"))

	if raw := r.get("quantity"); raw != "" {
		q, err := parseQuantity(raw)
		if err != nil {
			return it, err
		}
		it.Quantity = q
	}

	ct, err := parseCodeType(r.get("code_type"))
	if err != nil {
		return it, err
	}
	it.CodeType = ct

	if it.PurchasePrice, err = models.ParsePrice("purchase_price", r.get("purchase_price")); err != nil {
		return it, err
	}
	if it.RepairCost, err = models.ParsePrice("repair_cost", r.get("repair_cost")); err != nil {
		return it, err
	}
	if it.SalePrice, err = models.ParsePrice("sale_price", r.get("sale_price")); err != nil {
		return it, err
	}
	return it, nil
}

func parseQuantity(raw string) (int, error) {
	q, err := strconv.Atoi(raw)
	if err != nil {
		// spreadsheets often store counts as floats
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil || f != float64(int(f)) {
			return 0, apperr.Validation("quantity", "quantity %q is not a whole number", raw)
		}
		q = int(f)
	}
	if err := models.ValidateQuantity(q); err != nil {
		return 0, err
	}
	return q, nil
}

func parseCodeType(raw string) (models.CodeType, error) {
	switch normalize(raw) {
	case "", "barcode128", "barcode", "code128", "barcode_(code128)":
		return models.CodeBarcode128, nil
	case "qr", "qr_code", "qrcode":
		return models.CodeQR, nil
	default:
		return "", apperr.Validation("code_type", "unknown code type %q", raw)
	}
}
