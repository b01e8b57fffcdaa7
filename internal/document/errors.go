package document

import "errors"

// Error taxonomy (spec.md §7). Each variant is distinct and matchable with
// errors.Is/errors.As; sentinels for the no-payload cases, struct types for
// the ones that carry detail.

var (
	// ErrNoSuchShape is returned by registry lookups for an unregistered
	// (doc_type, version) pair.
	ErrNoSuchShape = errors.New("document: no such shape")

	// ErrNoMigrationPath is returned when the registry cannot find a chain
	// of steps between two shapes.
	ErrNoMigrationPath = errors.New("document: no migration path")

	// ErrIncompleteTransaction is raised only from journal.Begin when a
	// prior InProgress journal is present.
	ErrIncompleteTransaction = errors.New("document: incomplete transaction in progress")
)

// ConfigurationError reports a registry built incorrectly (a duplicate
// (doc_type, version) pair or shape id, or a step referencing an unknown
// shape). Fatal at setup time;
// never raised during execution.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "document: configuration error: " + e.Reason
}

// SnapshotIntegrityFailure is raised by the snapshot store when a
// recomputed content hash does not match the one embedded in the filename,
// or the filename does not match the canonical pattern.
type SnapshotIntegrityFailure struct {
	SnapshotName string
	Reason       string
}

func (e *SnapshotIntegrityFailure) Error() string {
	return "document: snapshot integrity failure for " + e.SnapshotName + ": " + e.Reason
}

// SchemaValidationFailure is raised by the optional host validation
// collaborator on load.
type SchemaValidationFailure struct {
	Identifier string
	Reason     string
}

func (e *SchemaValidationFailure) Error() string {
	return "document: schema validation failure for " + e.Identifier + ": " + e.Reason
}

// ExecutionFailure wraps any other failure from a step function during
// execution.
type ExecutionFailure struct {
	Identifier string
	Err        error
}

func (e *ExecutionFailure) Error() string {
	return "document: execution failure for " + e.Identifier + ": " + e.Err.Error()
}

func (e *ExecutionFailure) Unwrap() error { return e.Err }
