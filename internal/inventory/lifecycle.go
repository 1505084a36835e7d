package inventory

import (
	"warehouse-inventory-api/internal/apperr"
	"warehouse-inventory-api/internal/models"
)

// State is derived from the sold and request_status columns
type State string

const (
	StateAvailable    State = "AVAILABLE"
	StateRequested    State = "REQUESTED"
	StateSold         State = "SOLD"
	StateInconsistent State = "INCONSISTENT"
)

// Event drives a lifecycle transition
type Event string

const (
	EventRequestPick    Event = "request_pick"
	EventConfirmFulfill Event = "confirm_fulfill"
	EventCancelRequest  Event = "cancel_request"
	EventAdminClear     Event = "admin_clear"
	EventReturnToStock  Event = "return_to_stock"
)

var transitions = map[State]map[Event]State{
	StateAvailable: {
		EventRequestPick: StateRequested,
	},
	StateRequested: {
		EventConfirmFulfill: StateSold,
		EventCancelRequest:  StateAvailable,
		EventAdminClear:     StateAvailable,
	},
	StateSold: {
		EventReturnToStock: StateAvailable,
	},
}

// StateOf derives the lifecycle state of an item
func StateOf(it models.Item) State {
	pending := it.RequestStatus == models.RequestPending
	switch {
	case it.Sold && pending:
		return StateInconsistent
	case it.Sold:
		return StateSold
	case pending:
		return StateRequested
	default:
		return StateAvailable
	}
}

// Next returns the state reached by ev from, or the InvalidTransition error
// naming the state the item is actually in.
func Next(id string, from State, ev Event) (State, error) {
	if to, ok := transitions[from][ev]; ok {
		return to, nil
	}
	if from == StateInconsistent {
		return from, apperr.Transition(apperr.ReasonInconsistentState,
			"item %s is both sold and pending; clear it manually", id)
	}
	switch ev {
	case EventRequestPick:
		if from == StateSold {
			return from, apperr.Transition(apperr.ReasonAlreadySold, "item %s is already SOLD", id)
		}
		return from, apperr.Transition(apperr.ReasonAlreadyRequested, "item %s already has a pending pick request", id)
	case EventReturnToStock:
		return from, apperr.Transition(apperr.ReasonNotSold, "item %s is %s, not SOLD", id, from)
	default:
		return from, apperr.Transition(apperr.ReasonNotRequested, "item %s is %s, not REQUESTED", id, from)
	}
}
