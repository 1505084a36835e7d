package internal

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"warehouse-inventory-api/internal/apperr"
	"warehouse-inventory-api/internal/handlers"
	"warehouse-inventory-api/internal/inventory"
	"warehouse-inventory-api/internal/models"
)

const maxPhotoBytes = 10 << 20

// LIST with filters & pagination
func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	f := parseFilter(r)
	items, total, err := s.Items.List(r.Context(), f)
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	sendListResponse(w, items, total, f)
}

func (s *Server) listSold(w http.ResponseWriter, r *http.Request) {
	f := parseFilter(r)
	if f.Sort == "" {
		f.Sort = "-created_at"
	}
	items, total, err := s.Items.SoldArchive(r.Context(), f)
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	sendListResponse(w, items, total, f)
}

func (s *Server) getItem(w http.ResponseWriter, r *http.Request) {
	it, err := s.Items.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, it)
}

// lookupItem resolves a scanned barcode or QR value
func (s *Server) lookupItem(w http.ResponseWriter, r *http.Request) {
	it, err := s.Items.Lookup(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, it)
}

// createItem accepts JSON, or a multipart form whose optional "photo" part is the item image
func (s *Server) createItem(w http.ResponseWriter, r *http.Request) {
	var in inventory.ReceiveInput
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		parsed, err := receiveFromForm(w, r)
		if err != nil {
			writeInputError(w, r, err)
			return
		}
		in = parsed
	} else if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		handlers.BadRequest(w, "invalid JSON: "+err.Error())
		return
	}

	it, err := s.Items.Receive(r.Context(), in)
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusCreated, it)
}

// receiveFromForm maps form fields onto the JSON field names
func receiveFromForm(w http.ResponseWriter, r *http.Request) (inventory.ReceiveInput, error) {
	var in inventory.ReceiveInput
	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoBytes+1<<20)
	if err := r.ParseMultipartForm(maxPhotoBytes); err != nil {
		return in, err
	}

	in.Make = r.FormValue("make")
	in.Model = r.FormValue("model")
	in.PartNumber = r.FormValue("part_number")
	in.SerialNumber = r.FormValue("serial_number")
	in.BinLocation = r.FormValue("bin_location")
	in.Category = r.FormValue("category")
	in.Notes = r.FormValue("notes")
	in.CodeType = models.CodeType(strings.TrimSpace(r.FormValue("code_type")))

	if raw := strings.TrimSpace(r.FormValue("quantity")); raw != "" {
		q, err := strconv.Atoi(raw)
		if err != nil {
			return in, apperr.Validation("quantity", "quantity must be a whole number, got %q", raw)
		}
		in.Quantity = &q
	}

	var err error
	if in.PurchasePrice, err = models.ParsePrice("purchase_price", r.FormValue("purchase_price")); err != nil {
		return in, err
	}
	if in.RepairCost, err = models.ParsePrice("repair_cost", r.FormValue("repair_cost")); err != nil {
		return in, err
	}
	if in.SalePrice, err = models.ParsePrice("sale_price", r.FormValue("sale_price")); err != nil {
		return in, err
	}

	file, header, err := r.FormFile("photo")
	switch {
	case err == http.ErrMissingFile:
		return in, nil
	case err != nil:
		return in, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return in, err
	}
	in.Photo = &inventory.Photo{Data: data, Filename: header.Filename}
	return in, nil
}

// writeInputError reports domain errors by kind and anything else as a bad request
func writeInputError(w http.ResponseWriter, r *http.Request, err error) {
	if _, ok := apperr.As(err); ok {
		handlers.WriteError(w, r, err)
		return
	}
	handlers.BadRequest(w, err.Error())
}

func (s *Server) updateItem(w http.ResponseWriter, r *http.Request) {
	var in inventory.EditInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		handlers.BadRequest(w, "invalid JSON: "+err.Error())
		return
	}
	if len(in.Patch()) == 0 {
		handlers.BadRequest(w, "no fields to update")
		return
	}

	it, err := s.Items.Edit(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, it)
}

type quantityRequest struct {
	Quantity *int `json:"quantity"`
}

func (s *Server) adjustQuantity(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.BadRequest(w, "invalid JSON: "+err.Error())
		return
	}
	if req.Quantity == nil {
		handlers.WriteError(w, r, apperr.Validation("quantity", "quantity is required"))
		return
	}

	it, err := s.Items.AdjustQuantity(r.Context(), chi.URLParam(r, "id"), *req.Quantity)
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, it)
}

func (s *Server) deleteItem(w http.ResponseWriter, r *http.Request) {
	if err := s.Items.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
