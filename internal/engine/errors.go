package engine

import (
	"errors"
	"fmt"
)

// ErrSnapshotUnavailable is returned when no dictionary snapshot could be
// loaded. The engine never falls back to a stale or partial snapshot.
var ErrSnapshotUnavailable = errors.New("classification unavailable")

// ErrUnknownLanguage marks a language hint the engine does not recognise.
// It is recovered locally and only ever appears in evidence.
var ErrUnknownLanguage = errors.New("unknown language")

// ValidationError describes malformed keyword input. It is recorded as
// evidence and the keyword is downgraded to generic / no_action.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
