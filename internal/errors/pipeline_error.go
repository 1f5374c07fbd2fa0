package errors

import (
	"fmt"
	"strings"
)

// StageOrderError reports a pipeline stage invoked before its prerequisite
// stage completed. It is fatal; the pipeline never retries or rolls back.
type StageOrderError struct {
	Op       string // Stage method that was invoked (e.g., "Preprocess")
	Required string // Minimum stage the pipeline must have reached
	Actual   string // Stage the pipeline was actually in
}

// Error implements the error interface
func (e *StageOrderError) Error() string {
	return fmt.Sprintf("%s requires stage %s or later, pipeline is at %s", e.Op, e.Required, e.Actual)
}

// Is implements error equality checking for errors.Is()
func (e *StageOrderError) Is(target error) bool {
	if se, ok := target.(*StageOrderError); ok {
		return e.Op == se.Op && e.Required == se.Required && e.Actual == se.Actual
	}
	return false
}

// NewStageOrderError creates an error for out-of-order stage invocations
func NewStageOrderError(op, required, actual string) *StageOrderError {
	return &StageOrderError{
		Op:       op,
		Required: required,
		Actual:   actual,
	}
}

// DispatchError reports a transform dispatch that could not be routed:
// either the command is not one of the recognized transform commands, or the
// engineering command was requested without its reference table. It signals
// a programming or configuration error, never bad input data.
type DispatchError struct {
	Command string // Offending command name, empty if nil command
	Message string
}

// Error implements the error interface
func (e *DispatchError) Error() string {
	if e.Command != "" {
		return fmt.Sprintf("dispatch failed for command %q: %s", e.Command, e.Message)
	}
	return fmt.Sprintf("dispatch failed: %s", e.Message)
}

// Is implements error equality checking for errors.Is()
func (e *DispatchError) Is(target error) bool {
	if de, ok := target.(*DispatchError); ok {
		return e.Command == de.Command && e.Message == de.Message
	}
	return false
}

// NewUnknownCommandError creates an error for unrecognized transform commands
func NewUnknownCommandError(command string) *DispatchError {
	return &DispatchError{
		Command: command,
		Message: "unrecognized transform command",
	}
}

// NewMissingReferenceError creates an error for an engineering dispatch
// without its mandatory reference table
func NewMissingReferenceError() *DispatchError {
	return &DispatchError{
		Command: "engineering",
		Message: "reference table is required",
	}
}

// NullColumn records the residual null count of a single column.
type NullColumn struct {
	Name  string
	Nulls int
}

// DataIntegrityError reports that a transformer's output still contains
// missing values after its fill rules ran. It enumerates every offending
// column with its null count so the schema or fill-rule gap is identifiable
// from the error alone.
type DataIntegrityError struct {
	Op      string // Transformer name (e.g., "songs", "engineering")
	Columns []NullColumn
}

// Error implements the error interface
func (e *DataIntegrityError) Error() string {
	if len(e.Columns) == 0 {
		return fmt.Sprintf("%s produced missing data", e.Op)
	}
	parts := make([]string, len(e.Columns))
	for i, c := range e.Columns {
		parts[i] = fmt.Sprintf("%s (%d nulls)", c.Name, c.Nulls)
	}
	return fmt.Sprintf("%s produced missing data in columns: %s", e.Op, strings.Join(parts, ", "))
}

// NewDataIntegrityError creates an error enumerating columns with residual nulls
func NewDataIntegrityError(op string, columns []NullColumn) *DataIntegrityError {
	return &DataIntegrityError{
		Op:      op,
		Columns: columns,
	}
}

// CardinalityError reports a merge that changed the row count of its left
// (target) table, violating the join-key uniqueness assumption on the
// reference side.
type CardinalityError struct {
	Op     string // Merge description (e.g., "play_count merge")
	Key    string // Join key column
	Before int    // Left-table row count before the merge
	After  int    // Result row count
}

// Error implements the error interface
func (e *CardinalityError) Error() string {
	return fmt.Sprintf("%s on key '%s' changed row count from %d to %d", e.Op, e.Key, e.Before, e.After)
}

// NewCardinalityError creates an error for merges that violate target cardinality
func NewCardinalityError(op, key string, before, after int) *CardinalityError {
	return &CardinalityError{
		Op:     op,
		Key:    key,
		Before: before,
		After:  after,
	}
}
