package domain

import (
	"errors"
	"fmt"
)

// ValidationError rejects malformed input at the API boundary, before any
// store mutation happens.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid input: " + e.Reason
}

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError reports that a referenced match or player does not exist.
type NotFoundError struct {
	Kind string // "match" or "player"
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Key)
}

// DataIntegrityError means a stored record violates the structural
// assumptions of the aggregation pass (empty roster, bad team label). It
// indicates corrupted persisted state: the recompute that hit it is aborted
// and the previously published snapshot stays in effect.
type DataIntegrityError struct {
	MatchID string
	Reason  string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("corrupt match record %s: %s", e.MatchID, e.Reason)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsDataIntegrity(err error) bool {
	var de *DataIntegrityError
	return errors.As(err, &de)
}
