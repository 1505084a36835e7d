package inventory

import (
	"context"

	"warehouse-inventory-api/internal/models"
)

// RecordStore is durable keyed storage for items. Implementations report
// apperr kinds: NOT_FOUND, DUPLICATE_KEY, STALE, and STORAGE_UNAVAILABLE for
// anything the backend itself failed on.
type RecordStore interface {
	Insert(ctx context.Context, item models.Item) error
	Get(ctx context.Context, id string) (models.Item, error)
	// Update applies patch in one statement. An empty patch only checks existence.
	Update(ctx context.Context, id string, patch models.Patch) error
	// UpdateIf applies patch only while the row still has the expected lifecycle columns.
	UpdateIf(ctx context.Context, id string, expect models.Lifecycle, patch models.Patch) error
	Delete(ctx context.Context, id string) error
	// Scan returns every item, newest first.
	Scan(ctx context.Context) ([]models.Item, error)
	// ScanActive returns Scan without sold items.
	ScanActive(ctx context.Context) ([]models.Item, error)
}

// AuditSessionStore keeps one audit session per operator between requests.
// Load returns nil, nil when the operator has none.
type AuditSessionStore interface {
	Load(ctx context.Context, operator string) (*AuditSession, error)
	Save(ctx context.Context, s *AuditSession) error
	Delete(ctx context.Context, operator string) error
}

// Recorder receives domain events for metrics. A nil Recorder is allowed.
type Recorder interface {
	Transition(event Event, err error)
	Scan(known bool)
}

type nopRecorder struct{}

func (nopRecorder) Transition(Event, error) {}
func (nopRecorder) Scan(bool)               {}

func recorderOrNop(r Recorder) Recorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}
