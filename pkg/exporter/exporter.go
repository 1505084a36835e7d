// Package exporter writes item listings and audit reports as CSV or XLSX.
package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v3"

	"warehouse-inventory-api/internal/inventory"
	"warehouse-inventory-api/internal/models"
)

// Format is the output file type
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts csv (the default) or xlsx
func ParseFormat(s string) (Format, bool) {
	switch s {
	case "", "csv":
		return FormatCSV, true
	case "xlsx":
		return FormatXLSX, true
	}
	return "", false
}

// ContentType is the MIME type served for f
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// ItemColumns is the header of an item export
var ItemColumns = []string{
	"id", "make", "model", "part_number", "serial_number", "bin_location", "category",
	"quantity", "code_type", "code_value", "purchase_price", "repair_cost", "sale_price",
	"sold", "request_status", "requested_by", "notes", "photo_url", "created_at",
}

// AuditColumns is the header of an audit report
var AuditColumns = []string{"id", "make", "model", "bin_location", "quantity", "verified", "timestamp"}

func itemRecord(it models.Item) []string {
	return []string{
		it.ID,
		it.Make,
		it.Model,
		models.StrVal(it.PartNumber),
		models.StrVal(it.SerialNumber),
		it.BinLocation,
		models.StrVal(it.Category),
		strconv.Itoa(it.Quantity),
		string(it.CodeType),
		it.CodeValue,
		price(it.PurchasePrice),
		price(it.RepairCost),
		price(it.SalePrice),
		strconv.FormatBool(it.Sold),
		string(it.RequestStatus),
		it.RequestedBy,
		models.StrVal(it.Notes),
		models.StrVal(it.PhotoURL),
		it.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func auditRecord(r inventory.AuditRow) []string {
	return []string{
		r.ID,
		r.Make,
		r.Model,
		r.BinLocation,
		strconv.Itoa(r.Quantity),
		strconv.FormatBool(r.Verified),
		r.Timestamp.UTC().Format(time.RFC3339),
	}
}

func price(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.StringFixed(2)
}

// WriteItems writes items in the given format
func WriteItems(w io.Writer, format Format, items []models.Item) error {
	records := make([][]string, 0, len(items))
	for _, it := range items {
		records = append(records, itemRecord(it))
	}
	return write(w, format, "Items", ItemColumns, records)
}

// WriteAudit writes an audit report in the given format
func WriteAudit(w io.Writer, format Format, rows []inventory.AuditRow) error {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, auditRecord(r))
	}
	return write(w, format, "Audit", AuditColumns, records)
}

func write(w io.Writer, format Format, sheet string, header []string, records [][]string) error {
	switch format {
	case FormatCSV:
		return writeCSV(w, header, records)
	case FormatXLSX:
		return writeXLSX(w, sheet, header, records)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

func writeCSV(w io.Writer, header []string, records [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	return nil
}

// writeXLSX keeps numeric columns numeric so spreadsheets can sum them
func writeXLSX(w io.Writer, sheetName string, header []string, records [][]string) error {
	f := xlsx.NewFile()
	sh, err := f.AddSheet(sheetName)
	if err != nil {
		return fmt.Errorf("adding sheet: %w", err)
	}

	row := sh.AddRow()
	for _, h := range header {
		row.AddCell().SetString(h)
	}
	for _, rec := range records {
		row := sh.AddRow()
		for i, v := range rec {
			cell := row.AddCell()
			switch header[i] {
			case "quantity":
				if n, err := strconv.Atoi(v); err == nil {
					cell.SetInt(n)
					continue
				}
			case "purchase_price", "repair_cost", "sale_price":
				if f, err := strconv.ParseFloat(v, 64); err == nil && v != "" {
					cell.SetFloatWithFormat(f, "0.00")
					continue
				}
			}
			cell.SetString(v)
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing xlsx: %w", err)
	}
	return nil
}
