package types

import (
	"errors"
	"strings"
)

// Error kinds. Every failure surfaced by the ledger matches exactly one of
// these through errors.Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrIntegrityViolation = errors.New("integrity violation")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrStorage            = errors.New("storage error")
)

// Backend lifecycle errors.
var (
	ErrBackendDetached = errors.New("backend is detached")
	ErrAlreadyAttached = errors.New("backend is already attached")
)

// Error carries the identity of the record involved in a failure and the
// rule that was violated. It unwraps to both Kind and Err.
type Error struct {
	Kind   error  // One of the Err* kinds above.
	Entity string // "project", "experiment", "file", ...
	Key    string // uuid, name, hash or path of the record.
	Rule   string // Violated rule, if any.
	Err    error  // Underlying cause, may be nil.
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Entity != "" {
		b.WriteString(e.Entity)
		if e.Key != "" {
			b.WriteString(" ")
			b.WriteString(e.Key)
		}
		b.WriteString(": ")
	}
	if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	}
	if e.Rule != "" {
		b.WriteString(": ")
		b.WriteString(e.Rule)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// NotFound returns an ErrNotFound failure for the given record.
func NotFound(entity, key string) error {
	return &Error{Kind: ErrNotFound, Entity: entity, Key: key}
}

// Conflict returns an ErrConflict failure for the given record.
func Conflict(entity, key, rule string) error {
	return &Error{Kind: ErrConflict, Entity: entity, Key: key, Rule: rule}
}

// Integrity returns an ErrIntegrityViolation failure for the given record.
func Integrity(entity, key, rule string) error {
	return &Error{Kind: ErrIntegrityViolation, Entity: entity, Key: key, Rule: rule}
}

// InvalidArgument returns an ErrInvalidArgument failure.
func InvalidArgument(entity, rule string) error {
	return &Error{Kind: ErrInvalidArgument, Entity: entity, Rule: rule}
}

// Kind reports which of the error kinds err belongs to, or nil when err is
// not one of them.
func Kind(err error) error {
	for _, k := range []error{ErrNotFound, ErrConflict, ErrIntegrityViolation, ErrInvalidArgument, ErrStorage} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
