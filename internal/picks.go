package internal

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"warehouse-inventory-api/internal/auth"
	"warehouse-inventory-api/internal/handlers"
	"warehouse-inventory-api/internal/models"
)

func (s *Server) listPending(w http.ResponseWriter, r *http.Request) {
	items, err := s.Picks.ListPending(r.Context())
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, map[string]any{"data": items})
}

// requestPick claims the item for the caller named in the token
func (s *Server) requestPick(w http.ResponseWriter, r *http.Request) {
	actor := auth.UsernameFromContext(r.Context())
	s.respondItem(w, r)(s.Picks.Request(r.Context(), chi.URLParam(r, "id"), actor))
}

type fulfillRequest struct {
	Code string `json:"code"`
}

func (s *Server) fulfillPick(w http.ResponseWriter, r *http.Request) {
	var req fulfillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		handlers.BadRequest(w, "invalid JSON: "+err.Error())
		return
	}
	s.respondItem(w, r)(s.Picks.Fulfill(r.Context(), chi.URLParam(r, "id"), req.Code))
}

func (s *Server) cancelPick(w http.ResponseWriter, r *http.Request) {
	s.respondItem(w, r)(s.Picks.Cancel(r.Context(), chi.URLParam(r, "id")))
}

func (s *Server) clearPick(w http.ResponseWriter, r *http.Request) {
	s.respondItem(w, r)(s.Picks.AdminClear(r.Context(), chi.URLParam(r, "id")))
}

func (s *Server) returnToStock(w http.ResponseWriter, r *http.Request) {
	s.respondItem(w, r)(s.Picks.ReturnToStock(r.Context(), chi.URLParam(r, "id")))
}

// respondItem writes the outcome of a transition
func (s *Server) respondItem(w http.ResponseWriter, r *http.Request) func(models.Item, error) {
	return func(it models.Item, err error) {
		if err != nil {
			handlers.WriteError(w, r, err)
			return
		}
		handlers.WriteJSON(w, http.StatusOK, it)
	}
}
