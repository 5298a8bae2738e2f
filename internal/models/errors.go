package models

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by stores and engines when the referenced alert,
// incident, rule or execution does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError signals malformed input rejected at write time: unknown
// action kinds, bad comparators, empty required fields.
type ValidationError struct {
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Detail
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Detail)
}

// PersistenceError wraps a store failure. It is the only error class the
// engines propagate to callers rather than converting into an outcome.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
