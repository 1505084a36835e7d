package inventory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"warehouse-inventory-api/internal/apperr"
	"warehouse-inventory-api/internal/models"
)

// AuditSession is one operator's verification pass. The caller owns it and
// passes it into every Auditor call.
type AuditSession struct {
	Operator  string              `json:"operator"`
	Active    bool                `json:"active"`
	Scanned   map[string]struct{} `json:"scanned"`
	StartedAt time.Time           `json:"started_at"`
}

// NewAuditSession returns an inactive session for operator
func NewAuditSession(operator string) *AuditSession {
	return &AuditSession{Operator: operator, Scanned: map[string]struct{}{}}
}

// ScannedIDs returns the verified ids in sorted order
func (s *AuditSession) ScannedIDs() []string {
	ids := make([]string, 0, len(s.Scanned))
	for id := range s.Scanned {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// AuditStatus is the live reconciliation count
type AuditStatus struct {
	Active    bool `json:"active"`
	Verified  int  `json:"verified_count"`
	Total     int  `json:"total_count"`
	Remaining int  `json:"remaining_count"`
}

// AuditRow is one line of an audit report
type AuditRow struct {
	ID          string    `json:"id"`
	Make        string    `json:"make"`
	Model       string    `json:"model"`
	BinLocation string    `json:"bin_location"`
	Quantity    int       `json:"quantity"`
	Verified    bool      `json:"verified"`
	Timestamp   time.Time `json:"timestamp"`
}

// Auditor reconciles audit sessions against the active item set.
type Auditor struct {
	store    RecordStore
	recorder Recorder
	now      func() time.Time
}

// NewAuditor creates the audit engine. recorder may be nil.
func NewAuditor(store RecordStore, recorder Recorder) *Auditor {
	return &Auditor{
		store:    store,
		recorder: recorderOrNop(recorder),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Start activates s and discards any previous progress.
func (a *Auditor) Start(s *AuditSession) {
	s.Active = true
	s.Scanned = map[string]struct{}{}
	s.StartedAt = a.now()
}

// RecordScan marks code as verified. Rescanning is a no-op.
func (a *Auditor) RecordScan(ctx context.Context, s *AuditSession, code string) error {
	if !s.Active {
		return apperr.Transition(apperr.ReasonAuditNotActive, "no audit session is active for %s", s.Operator)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return apperr.Validation("code", "code is required")
	}
	active, err := a.store.ScanActive(ctx)
	if err != nil {
		return fmt.Errorf("loading active items: %w", err)
	}
	for _, it := range active {
		if it.ID == code {
			if s.Scanned == nil {
				s.Scanned = map[string]struct{}{}
			}
			s.Scanned[code] = struct{}{}
			a.recorder.Scan(true)
			return nil
		}
	}
	a.recorder.Scan(false)
	return apperr.UnknownID("%q is not an active item", code)
}

// Status counts verified items against the active set as it is now.
// Scans of items that have since left active stock do not count.
func (a *Auditor) Status(ctx context.Context, s *AuditSession) (AuditStatus, error) {
	active, err := a.store.ScanActive(ctx)
	if err != nil {
		return AuditStatus{}, fmt.Errorf("loading active items: %w", err)
	}
	verified := 0
	for _, it := range active {
		if _, ok := s.Scanned[it.ID]; ok {
			verified++
		}
	}
	return AuditStatus{
		Active:    s.Active,
		Verified:  verified,
		Total:     len(active),
		Remaining: len(active) - verified,
	}, nil
}

// Report lists every active item with its verified flag. All rows carry the
// same generation time.
func (a *Auditor) Report(ctx context.Context, s *AuditSession) ([]AuditRow, error) {
	active, err := a.store.ScanActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading active items: %w", err)
	}
	ts := a.now()
	rows := make([]AuditRow, 0, len(active))
	for _, it := range active {
		_, ok := s.Scanned[it.ID]
		rows = append(rows, auditRow(it, ok, ts))
	}
	return rows, nil
}

// End closes s and drops its scans.
func (a *Auditor) End(s *AuditSession) {
	s.Active = false
	s.Scanned = map[string]struct{}{}
}

func auditRow(it models.Item, verified bool, ts time.Time) AuditRow {
	return AuditRow{
		ID:          it.ID,
		Make:        it.Make,
		Model:       it.Model,
		BinLocation: it.BinLocation,
		Quantity:    it.Quantity,
		Verified:    verified,
		Timestamp:   ts,
	}
}
