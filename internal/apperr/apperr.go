package apperr

import (
	"errors"
	"fmt"
)

// Kind identifies a class of failure that callers can branch on
type Kind string

const (
	KindNotFound           Kind = "NOT_FOUND"
	KindDuplicateKey       Kind = "DUPLICATE_KEY"
	KindInvalidTransition  Kind = "INVALID_TRANSITION"
	KindUnknownID          Kind = "UNKNOWN_ID"
	KindValidation         Kind = "VALIDATION_ERROR"
	KindStorageUnavailable Kind = "STORAGE_UNAVAILABLE"
	// KindStale reports a guarded write that lost against a concurrent change.
	KindStale Kind = "STALE"
)

// Reason narrows an INVALID_TRANSITION failure
type Reason string

const (
	ReasonAlreadyRequested  Reason = "ALREADY_REQUESTED"
	ReasonAlreadySold       Reason = "ALREADY_SOLD"
	ReasonNotRequested      Reason = "NOT_REQUESTED"
	ReasonCodeMismatch      Reason = "CODE_MISMATCH"
	ReasonNotSold           Reason = "NOT_SOLD"
	ReasonInconsistentState Reason = "INCONSISTENT_STATE"
	ReasonAuditNotActive    Reason = "AUDIT_NOT_ACTIVE"
)

// Error is the single error type crossing the domain boundary
type Error struct {
	Kind    Kind
	Reason  Reason
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
		if e.Reason != "" {
			msg += ": " + string(e.Reason)
		}
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels by kind, and by reason when the target names one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

// Code returns the most specific machine-readable identifier
func (e *Error) Code() string {
	if e.Reason != "" {
		return string(e.Reason)
	}
	return string(e.Kind)
}

// Sentinels for errors.Is
var (
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrDuplicateKey       = &Error{Kind: KindDuplicateKey}
	ErrInvalidTransition  = &Error{Kind: KindInvalidTransition}
	ErrAlreadyRequested   = &Error{Kind: KindInvalidTransition, Reason: ReasonAlreadyRequested}
	ErrAlreadySold        = &Error{Kind: KindInvalidTransition, Reason: ReasonAlreadySold}
	ErrNotRequested       = &Error{Kind: KindInvalidTransition, Reason: ReasonNotRequested}
	ErrCodeMismatch       = &Error{Kind: KindInvalidTransition, Reason: ReasonCodeMismatch}
	ErrNotSold            = &Error{Kind: KindInvalidTransition, Reason: ReasonNotSold}
	ErrInconsistentState  = &Error{Kind: KindInvalidTransition, Reason: ReasonInconsistentState}
	ErrAuditNotActive     = &Error{Kind: KindInvalidTransition, Reason: ReasonAuditNotActive}
	ErrUnknownID          = &Error{Kind: KindUnknownID}
	ErrValidation         = &Error{Kind: KindValidation}
	ErrStorageUnavailable = &Error{Kind: KindStorageUnavailable}
	ErrStale              = &Error{Kind: KindStale}
)

func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func DuplicateKey(format string, args ...any) error {
	return &Error{Kind: KindDuplicateKey, Message: fmt.Sprintf(format, args...)}
}

func Transition(reason Reason, format string, args ...any) error {
	return &Error{Kind: KindInvalidTransition, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

func UnknownID(format string, args ...any) error {
	return &Error{Kind: KindUnknownID, Message: fmt.Sprintf(format, args...)}
}

// Validation reports a rejected input field before anything is written.
func Validation(field, format string, args ...any) error {
	return &Error{Kind: KindValidation, Field: field, Message: fmt.Sprintf(format, args...)}
}

// Unavailable wraps an infrastructure failure.
func Unavailable(op string, err error) error {
	return &Error{Kind: KindStorageUnavailable, Message: op, Err: err}
}

func Stale(id string) error {
	return &Error{Kind: KindStale, Message: fmt.Sprintf("item %s changed concurrently", id)}
}

// KindOf classifies err. Errors outside this package are infrastructure failures.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorageUnavailable
}

// As returns the first *Error in err's chain
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
