package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"warehouse-inventory-api/internal/apperr"
	"warehouse-inventory-api/internal/handlers"
	"warehouse-inventory-api/internal/labels"
	"warehouse-inventory-api/internal/models"
	"warehouse-inventory-api/pkg/exporter"
)

// exportItems downloads every item matching the list filters. Paging is ignored.
func (s *Server) exportItems(w http.ResponseWriter, r *http.Request) {
	format, ok := exporter.ParseFormat(r.URL.Query().Get("format"))
	if !ok {
		handlers.BadRequest(w, "format must be csv or xlsx")
		return
	}

	items, err := s.Items.Matching(r.Context(), parseFilter(r))
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}

	name := fmt.Sprintf("inventory_%s.%s", time.Now().UTC().Format("20060102_150405"), format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	if err := exporter.WriteItems(w, format, items); err != nil {
		s.Logger.Error("writing export", "error", err)
	}
}

type labelsRequest struct {
	IDs    []string       `json:"ids"`
	Copies int            `json:"copies"`
	Layout *labels.Layout `json:"layout"`
}

// printLabels renders a PDF label sheet for the requested items
func (s *Server) printLabels(w http.ResponseWriter, r *http.Request) {
	var req labelsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.BadRequest(w, "invalid JSON: "+err.Error())
		return
	}
	if len(req.IDs) == 0 {
		handlers.WriteError(w, r, apperr.Validation("ids", "at least one item id is required"))
		return
	}
	if req.Copies == 0 {
		req.Copies = 1
	}
	layout := labels.DefaultLayout()
	if req.Layout != nil {
		layout = *req.Layout
	}

	items := make([]models.Item, 0, len(req.IDs))
	for _, id := range req.IDs {
		it, err := s.Items.Get(r.Context(), id)
		if err != nil {
			handlers.WriteError(w, r, err)
			return
		}
		items = append(items, it)
	}

	pdf, err := s.Labels.Sheet(r.Context(), items, req.Copies, layout)
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+labels.Filename(len(items))+`"`)
	if _, err := w.Write(pdf); err != nil {
		s.Logger.Warn("writing label sheet", "error", err)
	}
}
