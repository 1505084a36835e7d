package inventory

import (
	"cmp"
	"slices"
	"strings"

	"warehouse-inventory-api/internal/models"
)

// Status selects which side of the sold flag a listing shows
type Status string

const (
	StatusActive Status = "active"
	StatusSold   Status = "sold"
	StatusAll    Status = "all"
)

// ParseStatus maps a query value to a Status, defaulting to active
func ParseStatus(s string) Status {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusSold:
		return StatusSold
	case StatusAll:
		return StatusAll
	default:
		return StatusActive
	}
}

// Filter narrows and orders an item listing. Text matching is case-insensitive substring.
type Filter struct {
	// Query matches make, model, part number, serial number, id, bin or notes.
	Query      string
	Make       string
	Model      string
	PartNumber string
	Status     Status
	// Sort is a comma-separated list of keys, '-' prefix for descending.
	Sort   string
	Limit  int
	Offset int
}

type sortFunc func(a, b models.Item) int

// sortKeys whitelists the keys a caller may sort on
var sortKeys = map[string]sortFunc{
	"id":           func(a, b models.Item) int { return cmp.Compare(a.ID, b.ID) },
	"make":         func(a, b models.Item) int { return compareFold(a.Make, b.Make) },
	"model":        func(a, b models.Item) int { return compareFold(a.Model, b.Model) },
	"bin_location": func(a, b models.Item) int { return compareFold(a.BinLocation, b.BinLocation) },
	"quantity":     func(a, b models.Item) int { return cmp.Compare(a.Quantity, b.Quantity) },
	"created_at":   func(a, b models.Item) int { return a.CreatedAt.Compare(b.CreatedAt) },
}

func compareFold(a, b string) int {
	return cmp.Compare(strings.ToLower(a), strings.ToLower(b))
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// Matches reports whether it passes every filter
func (f Filter) Matches(it models.Item) bool {
	switch f.Status {
	case StatusSold:
		if !it.Sold {
			return false
		}
	case StatusAll:
	default:
		if it.Sold {
			return false
		}
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		fields := []string{
			it.Make, it.Model, models.StrVal(it.PartNumber), models.StrVal(it.SerialNumber),
			it.ID, it.BinLocation, models.StrVal(it.Notes),
		}
		if !slices.ContainsFunc(fields, func(v string) bool { return containsFold(v, q) }) {
			return false
		}
	}
	if f.Make != "" && !containsFold(it.Make, f.Make) {
		return false
	}
	if f.Model != "" && !containsFold(it.Model, f.Model) {
		return false
	}
	if f.PartNumber != "" && !containsFold(models.StrVal(it.PartNumber), f.PartNumber) {
		return false
	}
	return true
}

// Apply returns the matching items in the requested order. Without a usable
// sort key the input order is kept.
func (f Filter) Apply(items []models.Item) []models.Item {
	out := make([]models.Item, 0, len(items))
	for _, it := range items {
		if f.Matches(it) {
			out = append(out, it)
		}
	}
	if order := f.order(); order != nil {
		slices.SortStableFunc(out, order)
	}
	return out
}

// Page slices items by Offset and Limit. A non-positive Limit returns the rest.
func (f Filter) Page(items []models.Item) []models.Item {
	if f.Offset >= len(items) {
		return []models.Item{}
	}
	items = items[max(f.Offset, 0):]
	if f.Limit > 0 && f.Limit < len(items) {
		items = items[:f.Limit]
	}
	return items
}

func (f Filter) order() sortFunc {
	var fns []sortFunc
	for _, raw := range strings.Split(f.Sort, ",") {
		key := strings.TrimSpace(raw)
		desc := strings.HasPrefix(key, "-")
		key = strings.TrimPrefix(key, "-")
		fn, ok := sortKeys[key]
		if !ok {
			continue
		}
		if desc {
			asc := fn
			fn = func(a, b models.Item) int { return asc(b, a) }
		}
		fns = append(fns, fn)
	}
	if len(fns) == 0 {
		return nil
	}
	return func(a, b models.Item) int {
		for _, fn := range fns {
			if c := fn(a, b); c != 0 {
				return c
			}
		}
		return 0
	}
}
