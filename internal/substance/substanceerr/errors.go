// Package substanceerr holds the document core's error taxonomy: sentinel
// values wrapped with context via fmt.Errorf("%w: ...", ...) and tested
// with errors.Is, the same shape as the teacher's pkg/sdk error helpers.
package substanceerr

import (
	"errors"
	"fmt"
)

// Sentinel errors. Wrap these with %w to add context; never construct a
// parallel error type for the same condition.
var (
	// ErrUnknownNodeType is returned when a type name is not registered in
	// the schema.
	ErrUnknownNodeType = errors.New("unknown node type")

	// ErrSchemaConflict is returned when a type name is registered twice.
	ErrSchemaConflict = errors.New("schema conflict")

	// ErrInvalidOperation is returned when an op references a nonexistent
	// id, an out-of-range offset, or mismatches a property's type.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrNestedTransaction is returned by Stage.Start when a transaction is
	// already active.
	ErrNestedTransaction = errors.New("nested transaction")

	// ErrNoChangeToUndo is returned when the undo stack is empty.
	ErrNoChangeToUndo = errors.New("no change to undo")

	// ErrNoChangeToRedo is returned when the redo stack is empty.
	ErrNoChangeToRedo = errors.New("no change to redo")

	// ErrCoordinateNotFound is returned when a DOM point lies entirely
	// outside any property and no search direction yields a hit.
	ErrCoordinateNotFound = errors.New("coordinate not found")
)

// UnknownNodeType wraps ErrUnknownNodeType with the offending type name.
func UnknownNodeType(nodeType string) error {
	return fmt.Errorf("%w: %s", ErrUnknownNodeType, nodeType)
}

// SchemaConflict wraps ErrSchemaConflict with the offending type name.
func SchemaConflict(nodeType string) error {
	return fmt.Errorf("%w: %s", ErrSchemaConflict, nodeType)
}

// InvalidOperation wraps ErrInvalidOperation with a reason.
func InvalidOperation(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidOperation, reason)
}

// CoordinateNotFound wraps ErrCoordinateNotFound with a reason.
func CoordinateNotFound(reason string) error {
	return fmt.Errorf("%w: %s", ErrCoordinateNotFound, reason)
}

// IsUnknownNodeType reports whether err is (or wraps) ErrUnknownNodeType.
func IsUnknownNodeType(err error) bool { return errors.Is(err, ErrUnknownNodeType) }

// IsSchemaConflict reports whether err is (or wraps) ErrSchemaConflict.
func IsSchemaConflict(err error) bool { return errors.Is(err, ErrSchemaConflict) }

// IsInvalidOperation reports whether err is (or wraps) ErrInvalidOperation.
func IsInvalidOperation(err error) bool { return errors.Is(err, ErrInvalidOperation) }

// IsNestedTransaction reports whether err is (or wraps) ErrNestedTransaction.
func IsNestedTransaction(err error) bool { return errors.Is(err, ErrNestedTransaction) }

// IsNoChangeToUndo reports whether err is (or wraps) ErrNoChangeToUndo.
func IsNoChangeToUndo(err error) bool { return errors.Is(err, ErrNoChangeToUndo) }

// IsNoChangeToRedo reports whether err is (or wraps) ErrNoChangeToRedo.
func IsNoChangeToRedo(err error) bool { return errors.Is(err, ErrNoChangeToRedo) }

// IsCoordinateNotFound reports whether err is (or wraps) ErrCoordinateNotFound.
func IsCoordinateNotFound(err error) bool { return errors.Is(err, ErrCoordinateNotFound) }
