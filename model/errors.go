package model

import "errors"

// Sentinel errors for the core decision/consistency engine. Callers match
// with errors.Is; lower layers wrap them with context via fmt.Errorf("%w").
var (
	// ErrNotFound: no such mapping, infraction or designation.
	ErrNotFound = errors.New("not found")
	// ErrConflict: duplicate active infraction, duplicate live mapping, or a
	// concurrent bootstrap already seeded the guild.
	ErrConflict = errors.New("conflict")
	// ErrForbidden: a claim or rank check denied the operation. A normal
	// decision result, not a fault.
	ErrForbidden = errors.New("forbidden")
	// ErrExternalUnavailable: a platform call failed after bounded retries.
	// Persisted state remains authoritative.
	ErrExternalUnavailable = errors.New("external platform unavailable")
	// ErrUnreconciled: an external event could not be attributed from the
	// platform audit trail. Logged and skipped, never shown to end users.
	ErrUnreconciled = errors.New("unreconciled external event")
)
