package labels

import (
	"fmt"

	"warehouse-inventory-api/internal/apperr"
)

// Letter paper, in inches
const (
	PageWidth  = 8.5
	PageHeight = 11.0
)

// Layout places labels on a letter page. Lengths are inches.
type Layout struct {
	Columns     int     `json:"columns"`
	Rows        int     `json:"rows"`
	LabelWidth  float64 `json:"label_width"`
	LabelHeight float64 `json:"label_height"`
	LeftMargin  float64 `json:"left_margin"`
	TopMargin   float64 `json:"top_margin"`
	HSpacing    float64 `json:"h_spacing"`
	VSpacing    float64 `json:"v_spacing"`
}

// DefaultLayout is Avery 5160: 30 address labels per sheet.
func DefaultLayout() Layout {
	return Layout{
		Columns:     3,
		Rows:        10,
		LabelWidth:  2.625,
		LabelHeight: 1.0,
		LeftMargin:  0.1875,
		TopMargin:   0.5,
		HSpacing:    0.125,
		VSpacing:    0,
	}
}

// PerPage is the number of labels on one sheet
func (l Layout) PerPage() int {
	return l.Columns * l.Rows
}

// Validate rejects layouts that cannot be printed
func (l Layout) Validate() error {
	switch {
	case l.Columns < 1:
		return apperr.Validation("layout.columns", "columns must be at least 1")
	case l.Rows < 1:
		return apperr.Validation("layout.rows", "rows must be at least 1")
	case l.LabelWidth < 0.5:
		return apperr.Validation("layout.label_width", "label width must be at least 0.5in")
	case l.LabelHeight < 0.5:
		return apperr.Validation("layout.label_height", "label height must be at least 0.5in")
	case l.LeftMargin < 0 || l.TopMargin < 0 || l.HSpacing < 0 || l.VSpacing < 0:
		return apperr.Validation("layout", "margins and spacing cannot be negative")
	}
	return nil
}

// position returns the top-left corner of slot i on its page
func (l Layout) position(i int) (left, top string) {
	slot := i % l.PerPage()
	col, row := slot%l.Columns, slot/l.Columns
	x := l.LeftMargin + float64(col)*(l.LabelWidth+l.HSpacing)
	y := l.TopMargin + float64(row)*(l.LabelHeight+l.VSpacing)
	return inches(x), inches(y)
}

func inches(v float64) string {
	return fmt.Sprintf("%.4fin", v)
}
