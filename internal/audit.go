package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"warehouse-inventory-api/internal/auth"
	"warehouse-inventory-api/internal/handlers"
	"warehouse-inventory-api/internal/inventory"
	"warehouse-inventory-api/pkg/exporter"
)

// session returns the caller's stored audit session, or a fresh inactive one
func (s *Server) session(ctx context.Context) (*inventory.AuditSession, error) {
	operator := auth.UsernameFromContext(ctx)
	sess, err := s.Sessions.Load(ctx, operator)
	if err != nil {
		return nil, fmt.Errorf("loading audit session: %w", err)
	}
	if sess == nil {
		sess = inventory.NewAuditSession(operator)
	}
	return sess, nil
}

func (s *Server) writeAuditStatus(w http.ResponseWriter, r *http.Request, sess *inventory.AuditSession) {
	st, err := s.Auditor.Status(r.Context(), sess)
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, st)
}

// startAudit begins a new pass for the caller, discarding any earlier one
func (s *Server) startAudit(w http.ResponseWriter, r *http.Request) {
	s.auditMu.Lock()
	defer s.auditMu.Unlock()

	sess := inventory.NewAuditSession(auth.UsernameFromContext(r.Context()))
	s.Auditor.Start(sess)
	if err := s.Sessions.Save(r.Context(), sess); err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	s.Logger.Info("audit started", "operator", sess.Operator)
	s.writeAuditStatus(w, r, sess)
}

type scanRequest struct {
	Code string `json:"code"`
}

func (s *Server) scanAudit(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.BadRequest(w, "invalid JSON: "+err.Error())
		return
	}

	s.auditMu.Lock()
	defer s.auditMu.Unlock()

	sess, err := s.session(r.Context())
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	if err := s.Auditor.RecordScan(r.Context(), sess, req.Code); err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	if err := s.Sessions.Save(r.Context(), sess); err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	s.writeAuditStatus(w, r, sess)
}

func (s *Server) auditStatus(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r.Context())
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	s.writeAuditStatus(w, r, sess)
}

// auditReport returns JSON, or a download when ?format=csv|xlsx
func (s *Server) auditReport(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r.Context())
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	rows, err := s.Auditor.Report(r.Context(), sess)
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}

	raw := r.URL.Query().Get("format")
	if raw == "" || raw == "json" {
		handlers.WriteJSON(w, http.StatusOK, map[string]any{"data": rows})
		return
	}
	format, ok := exporter.ParseFormat(raw)
	if !ok {
		handlers.BadRequest(w, "format must be json, csv or xlsx")
		return
	}
	name := fmt.Sprintf("audit_report_%s.%s", time.Now().UTC().Format("20060102_150405"), format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	if err := exporter.WriteAudit(w, format, rows); err != nil {
		s.Logger.Error("writing audit report", "error", err)
	}
}

func (s *Server) endAudit(w http.ResponseWriter, r *http.Request) {
	s.auditMu.Lock()
	defer s.auditMu.Unlock()

	sess, err := s.session(r.Context())
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	s.Auditor.End(sess)
	if err := s.Sessions.Delete(r.Context(), sess.Operator); err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	s.Logger.Info("audit ended", "operator", sess.Operator)
	s.writeAuditStatus(w, r, sess)
}
