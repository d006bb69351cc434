package workspace

import (
	"errors"
	"fmt"
)

// ErrLegacyMode is returned by RegistryStore.Load when no registry exists yet
// and callers should fall back to the flat legacy layout.
var ErrLegacyMode = errors.New("workspace: no registry, legacy layout in use")

// ErrStaleTarget is returned when a cache write targets a profile or query
// that is no longer active. The payload is discarded.
var ErrStaleTarget = errors.New("workspace: write target is no longer active")

// ValidationError reports user input that breaks a naming, bound or limit
// rule. It is always recoverable.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// DependencyError reports an operation attempted before a prerequisite setup
// stage is complete. Missing names the stage the user has to finish first.
type DependencyError struct {
	Missing Stage
	Reason  string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s (complete the %s step first)", e.Reason, e.Missing)
}

// SafetyError blocks the deletion of an active or last remaining entity.
type SafetyError struct {
	Reason string
}

func (e *SafetyError) Error() string {
	return e.Reason
}

// NotFoundError reports a profile or query id that does not exist, usually
// because the caller holds stale state.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// CorruptionError reports a persisted record that failed to parse or
// validate.
type CorruptionError struct {
	Path string
	Err  error
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("corrupt record %s: %v", e.Path, e.Err)
}

func (e *CorruptionError) Unwrap() error {
	return e.Err
}

func profileNotFound(id string) error {
	return &NotFoundError{Entity: "profile", ID: id}
}

func queryNotFound(id string) error {
	return &NotFoundError{Entity: "query", ID: id}
}
