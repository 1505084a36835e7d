// Package labels renders printable label sheets for items.
package labels

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"strconv"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"warehouse-inventory-api/internal/apperr"
	"warehouse-inventory-api/internal/models"
)

const (
	maxTitle  = 40
	maxCopies = 100
)

//go:embed sheet.html.tmpl
var sheetSource string

var sheetTemplate = template.Must(template.New("sheet").Parse(sheetSource))

var upper = cases.Upper(language.Und)

// ErrNoRenderer is returned when PDF output is requested without a renderer.
var ErrNoRenderer = errors.New("no PDF renderer configured")

type label struct {
	Left, Top    string
	Title        string
	PartNumber   string
	SerialNumber string
	BinLocation  string
	Quantity     int
	ID           string
	Code         template.URL
}

type sheet struct {
	Layout     Layout
	PageWidth  string
	PageHeight string
	Width      string
	Height     string
	Pages      [][]label
}

// Generator builds label sheets. Codes and PDF may be nil: without Codes
// labels carry text only, without PDF only HTML output works.
type Generator struct {
	Codes  CodeRenderer
	PDF    PDFRenderer
	Logger *slog.Logger
}

// NewGenerator creates a Generator with the built-in code renderer
func NewGenerator(pdf PDFRenderer, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{Codes: BarcodeRenderer{}, PDF: pdf, Logger: logger}
}

// HTML lays out copies of each item in order, starting a new page whenever
// the current one is full.
func (g *Generator) HTML(items []models.Item, copies int, layout Layout) (string, error) {
	if len(items) == 0 {
		return "", apperr.Validation("ids", "select at least one item")
	}
	if copies < 1 || copies > maxCopies {
		return "", apperr.Validation("copies", "copies must be between 1 and %d", maxCopies)
	}
	if err := layout.Validate(); err != nil {
		return "", err
	}

	s := sheet{
		Layout:     layout,
		PageWidth:  inches(PageWidth),
		PageHeight: inches(PageHeight),
		Width:      inches(layout.LabelWidth),
		Height:     inches(layout.LabelHeight),
	}
	n := 0
	for _, it := range items {
		base := g.label(it)
		for range copies {
			if n%layout.PerPage() == 0 {
				s.Pages = append(s.Pages, nil)
			}
			l := base
			l.Left, l.Top = layout.position(n)
			s.Pages[len(s.Pages)-1] = append(s.Pages[len(s.Pages)-1], l)
			n++
		}
	}

	var buf bytes.Buffer
	if err := sheetTemplate.Execute(&buf, s); err != nil {
		return "", fmt.Errorf("rendering label sheet: %w", err)
	}
	return buf.String(), nil
}

// Sheet renders the label sheet as a PDF
func (g *Generator) Sheet(ctx context.Context, items []models.Item, copies int, layout Layout) ([]byte, error) {
	html, err := g.HTML(items, copies, layout)
	if err != nil {
		return nil, err
	}
	if g.PDF == nil {
		return nil, apperr.Unavailable("rendering labels", ErrNoRenderer)
	}
	pdf, err := g.PDF.RenderHTML(ctx, html)
	if err != nil {
		return nil, apperr.Unavailable("rendering labels", err)
	}
	g.Logger.Info("label sheet rendered", "items", len(items), "copies", copies, "bytes", len(pdf))
	return pdf, nil
}

// Label renders a single default-layout label for it
func (g *Generator) Label(ctx context.Context, it models.Item) ([]byte, error) {
	return g.Sheet(ctx, []models.Item{it}, 1, DefaultLayout())
}

func (g *Generator) label(it models.Item) label {
	l := label{
		Title:        truncate(upper.String(it.Make)+" "+it.Model, maxTitle),
		PartNumber:   models.StrVal(it.PartNumber),
		SerialNumber: models.StrVal(it.SerialNumber),
		BinLocation:  it.BinLocation,
		Quantity:     it.Quantity,
		ID:           it.CodeValue,
	}
	if l.ID == "" {
		l.ID = it.ID
	}
	if g.Codes == nil {
		return l
	}
	img, err := g.Codes.Render(l.ID, it.CodeType)
	if err != nil {
		// A label without a code is still useful for the text lines.
		g.Logger.Warn("code not rendered", "item_id", it.ID, "error", err)
		return l
	}
	l.Code = template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(img))
	return l
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// Filename names a PDF for the given item count
func Filename(count int) string {
	if count == 1 {
		return "label.pdf"
	}
	return "labels-" + strconv.Itoa(count) + ".pdf"
}
