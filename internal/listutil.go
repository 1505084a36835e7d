package internal

import (
	"net/http"
	"strconv"
	"strings"

	"warehouse-inventory-api/internal/handlers"
	"warehouse-inventory-api/internal/inventory"
	"warehouse-inventory-api/internal/models"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// parseFilter reads q, make, model, part_number, status, sort, limit and offset.
// Defaults: status=active, limit=50 (max 200), offset=0.
func parseFilter(r *http.Request) inventory.Filter {
	values := r.URL.Query()

	limit := defaultLimit
	if s := strings.TrimSpace(values.Get("limit")); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = min(v, maxLimit)
		}
	}

	offset := 0
	if s := strings.TrimSpace(values.Get("offset")); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	return inventory.Filter{
		Query:      strings.TrimSpace(values.Get("q")),
		Make:       strings.TrimSpace(values.Get("make")),
		Model:      strings.TrimSpace(values.Get("model")),
		PartNumber: strings.TrimSpace(values.Get("part_number")),
		Status:     inventory.ParseStatus(values.Get("status")),
		Sort:       strings.TrimSpace(values.Get("sort")),
		Limit:      limit,
		Offset:     offset,
	}
}

type listMeta struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Count  int `json:"count"`
}

// sendListResponse writes a page of items with paging metadata
func sendListResponse(w http.ResponseWriter, items []models.Item, total int, f inventory.Filter) {
	if items == nil {
		items = []models.Item{}
	}
	handlers.WriteJSON(w, http.StatusOK, map[string]any{
		"data": items,
		"meta": listMeta{Total: total, Limit: f.Limit, Offset: f.Offset, Count: len(items)},
	})
}
