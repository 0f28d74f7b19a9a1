package match

import (
	"errors"

	"github.com/park285/rps-arena/internal/rps"
)

// Kind classifies errors for transports.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindTransient  Kind = "transient"
)

// Error carries a stable code next to its kind.
type Error struct {
	Kind Kind
	Code string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Msg == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

var (
	ErrInvalidArgs      = &Error{Kind: KindValidation, Code: "invalid_args", Msg: "invalid arguments"}
	ErrInvalidMode      = &Error{Kind: KindValidation, Code: "invalid_mode", Msg: "invalid mode"}
	ErrInvalidMove      = &Error{Kind: KindValidation, Code: "invalid_move", Err: rps.ErrInvalidMove}
	ErrMatchNotFound    = &Error{Kind: KindNotFound, Code: "match_not_found", Msg: "match not found or not active"}
	ErrNotAParticipant  = &Error{Kind: KindNotFound, Code: "not_a_participant", Msg: "not a player in this match"}
	ErrDuplicateMove    = &Error{Kind: KindConflict, Code: "duplicate_move", Msg: "move already submitted for this round"}
	ErrAlreadyWaiting   = &Error{Kind: KindConflict, Code: "already_waiting", Msg: "participant is already searching"}
	ErrAlreadyInMatch   = &Error{Kind: KindConflict, Code: "already_in_match", Msg: "participant already has an active match"}
	ErrNotEndless       = &Error{Kind: KindConflict, Code: "not_endless", Msg: "only endless matches can be ended manually"}
	ErrComputerDisabled = &Error{Kind: KindConflict, Code: "computer_disabled", Msg: "computer opponent is disabled"}
)

// Transient marks a storage failure after the in-memory state was committed.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindTransient, Code: "store_unavailable", Err: err}
}

// KindOf returns the kind of a match error, or "" for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// CodeOf returns the stable code of a match error, or "internal".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Code != "" {
		return e.Code
	}
	return "internal"
}
