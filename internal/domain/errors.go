package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Callers match them with errors.Is.
var (
	ErrNotFound              = errors.New("not found")
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrValidationFailed      = errors.New("validation failed")
	ErrAlreadyCancelled      = errors.New("already cancelled")
	ErrPersistenceConflict   = errors.New("persistence conflict")
	ErrForeignKeyViolation   = errors.New("foreign key violation")
	ErrDuplicateKey          = errors.New("duplicate key")
	ErrUnexpected            = errors.New("unexpected failure")
)

// Error is a typed failure carrying enough context for the caller to decide
// between retrying and surfacing the message to the end user.
type Error struct {
	Kind   error
	Op     string
	Entity string
	ID     string
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Kind != nil {
		msg = e.Kind.Error()
	}
	if e.Entity != "" && e.ID != "" {
		msg = fmt.Sprintf("%s %s: %s", e.Entity, e.ID, msg)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the kind of e. Foreign key and duplicate key
// violations are special cases of a persistence conflict.
func (e *Error) Is(target error) bool {
	if target == e.Kind {
		return true
	}
	return target == ErrPersistenceConflict && (e.Kind == ErrForeignKeyViolation || e.Kind == ErrDuplicateKey)
}

// WithOp returns a copy of e annotated with the operation name, keeping an
// already present operation.
func (e *Error) WithOp(op string) *Error {
	cp := *e
	if cp.Op == "" {
		cp.Op = op
	}
	return &cp
}

func NotFound(entity string, id any) *Error {
	return &Error{Kind: ErrNotFound, Entity: entity, ID: fmt.Sprint(id), Msg: "not found"}
}

func InsufficientInventory(flightID int64, requested, available int) *Error {
	return &Error{
		Kind:   ErrInsufficientInventory,
		Entity: "flight",
		ID:     fmt.Sprint(flightID),
		Msg:    fmt.Sprintf("requested %d seats, %d available", requested, available),
	}
}

func Validation(format string, args ...any) *Error {
	return &Error{Kind: ErrValidationFailed, Msg: fmt.Sprintf(format, args...)}
}

func AlreadyCancelled(entity string, id any) *Error {
	return &Error{Kind: ErrAlreadyCancelled, Entity: entity, ID: fmt.Sprint(id), Msg: "already cancelled"}
}

func Conflict(entity string, id any, msg string) *Error {
	return &Error{Kind: ErrPersistenceConflict, Entity: entity, ID: fmt.Sprint(id), Msg: msg}
}

// Duplicate reports a unique key collision. It stays retryable because a
// generated key may simply collide again with less luck.
func Duplicate(entity string, id any, msg string) *Error {
	return &Error{Kind: ErrDuplicateKey, Entity: entity, ID: fmt.Sprint(id), Msg: msg}
}

func ForeignKeyViolation(msg string, err error) *Error {
	return &Error{Kind: ErrForeignKeyViolation, Msg: msg, Err: err}
}

func Unexpected(op string, err error) *Error {
	return &Error{Kind: ErrUnexpected, Op: op, Msg: "unexpected failure", Err: err}
}

// Kind returns the kind of a domain error, or ErrUnexpected for anything else.
func Kind(err error) error {
	var de *Error
	if errors.As(err, &de) && de.Kind != nil {
		return de.Kind
	}
	return ErrUnexpected
}

// IsRetryable reports whether the operation may be safely retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrPersistenceConflict)
}

// Wrap converts any error into a domain error annotated with op. Domain
// errors keep their kind; everything else becomes ErrUnexpected.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return de.WithOp(op)
	}
	return Unexpected(op, err)
}
