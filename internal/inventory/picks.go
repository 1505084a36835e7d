package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"warehouse-inventory-api/internal/apperr"
	"warehouse-inventory-api/internal/models"
)

// Picks coordinates the request, fulfill and cancel protocol between a
// requester and a fulfiller. Every transition reads the persisted item,
// validates it against the lifecycle table and writes only while the
// lifecycle columns are still the ones it validated.
type Picks struct {
	store    RecordStore
	recorder Recorder
	logger   *slog.Logger
}

// NewPicks creates the coordinator. recorder and logger may be nil.
func NewPicks(store RecordStore, recorder Recorder, logger *slog.Logger) *Picks {
	if logger == nil {
		logger = slog.Default()
	}
	return &Picks{store: store, recorder: recorderOrNop(recorder), logger: logger}
}

// Request claims an available item for actor.
func (p *Picks) Request(ctx context.Context, id, actor string) (models.Item, error) {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return models.Item{}, apperr.Validation("actor", "actor is required to request a pick")
	}
	return p.transition(ctx, id, EventRequestPick, nil, models.RequestPatch(actor))
}

// Fulfill confirms a pending request by the scanned code and marks the item sold.
func (p *Picks) Fulfill(ctx context.Context, id, scannedCode string) (models.Item, error) {
	scanned := strings.TrimSpace(scannedCode)
	matchCode := func(it models.Item) error {
		if scanned != it.CodeValue {
			return apperr.Transition(apperr.ReasonCodeMismatch,
				"scanned code %q does not match item %s", scanned, it.ID)
		}
		return nil
	}
	return p.transition(ctx, id, EventConfirmFulfill, matchCode, models.FulfillPatch())
}

// Cancel withdraws a pending request.
func (p *Picks) Cancel(ctx context.Context, id string) (models.Item, error) {
	return p.transition(ctx, id, EventCancelRequest, nil, models.ClearRequestPatch())
}

// AdminClear drops a stuck request. Callers gate it on admin.override.
func (p *Picks) AdminClear(ctx context.Context, id string) (models.Item, error) {
	return p.transition(ctx, id, EventAdminClear, nil, models.ClearRequestPatch())
}

// ReturnToStock puts a sold item back into active inventory.
func (p *Picks) ReturnToStock(ctx context.Context, id string) (models.Item, error) {
	return p.transition(ctx, id, EventReturnToStock, nil, models.RestockPatch())
}

// ListPending returns open requests, oldest item first.
func (p *Picks) ListPending(ctx context.Context) ([]models.Item, error) {
	all, err := p.store.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing pending picks: %w", err)
	}
	pending := make([]models.Item, 0)
	for _, it := range all {
		if !it.Sold && it.RequestStatus == models.RequestPending {
			pending = append(pending, it)
		}
	}
	slices.SortStableFunc(pending, func(a, b models.Item) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return pending, nil
}

func (p *Picks) transition(ctx context.Context, id string, ev Event, precondition func(models.Item) error, patch models.Patch) (out models.Item, err error) {
	defer func() { p.recorder.Transition(ev, err) }()

	id = strings.TrimSpace(id)
	if err := patch.Validate(); err != nil {
		return models.Item{}, err
	}
	it, err := p.store.Get(ctx, id)
	if err != nil {
		return models.Item{}, err
	}
	from := StateOf(it)
	to, err := Next(id, from, ev)
	if err != nil {
		return it, err
	}
	if precondition != nil {
		if err := precondition(it); err != nil {
			return it, err
		}
	}

	err = p.store.UpdateIf(ctx, id, it.Lifecycle(), patch)
	if errors.Is(err, apperr.ErrStale) {
		// Someone else moved the item first; report the state they left it in.
		current, gerr := p.store.Get(ctx, id)
		if gerr != nil {
			return models.Item{}, gerr
		}
		if _, terr := Next(id, StateOf(current), ev); terr != nil {
			return current, terr
		}
		return current, err
	}
	if err != nil {
		return it, fmt.Errorf("%s: %w", ev, err)
	}

	patch.Apply(&it)
	p.logger.Info("item transitioned", "item_id", id, "event", string(ev), "from", string(from), "to", string(to))
	return it, nil
}
