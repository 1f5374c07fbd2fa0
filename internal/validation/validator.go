// Package validation provides the shared input and output checks the
// pipeline stages run against their tables: column existence, non-empty
// inputs, residual-null coverage after fill rules, and row-count
// preservation across merges. Validators implement a common interface so a
// transformer can declare its precondition set once and run it as a unit.
package validation

import (
	"github.com/paveg/reprise/internal/errors"
)

// Validator is the interface all table checks implement
type Validator interface {
	Validate() error
}

// TableInfo is the view of a table the structural validators need
type TableInfo interface {
	HasColumn(name string) bool
	Columns() []string
	Len() int
	Width() int
}

// NullInfo is the view of a table the null-coverage validator needs
type NullInfo interface {
	Columns() []string
	ColumnNullCount(name string) int
}

// ColumnValidator checks that a set of columns exists on a table
type ColumnValidator struct {
	table   TableInfo
	columns []string
	op      string
}

// NewColumnValidator creates a validator for required input columns
func NewColumnValidator(table TableInfo, op string, columns ...string) *ColumnValidator {
	return &ColumnValidator{
		table:   table,
		columns: columns,
		op:      op,
	}
}

// Validate reports the first missing column
func (v *ColumnValidator) Validate() error {
	for _, column := range v.columns {
		if !v.table.HasColumn(column) {
			return errors.NewColumnNotFoundError(v.op, column)
		}
	}
	return nil
}

// NonEmptyValidator checks that a table holds at least one row
type NonEmptyValidator struct {
	table TableInfo
	op    string
}

// NewNonEmptyValidator creates a validator for operations that need data
func NewNonEmptyValidator(table TableInfo, op string) *NonEmptyValidator {
	return &NonEmptyValidator{
		table: table,
		op:    op,
	}
}

// Validate rejects empty tables
func (v *NonEmptyValidator) Validate() error {
	if v.table.Len() == 0 {
		return errors.NewValidationError(v.op, "", "operation requires a non-empty table")
	}
	return nil
}

// NullCoverageValidator checks that columns contain no residual nulls.
// Transformers run it over their outputs after the fill rules so missing
// data surfaces as an error instead of flowing into the next stage.
type NullCoverageValidator struct {
	table   NullInfo
	columns []string // empty means every column
	op      string
}

// NewNullCoverageValidator creates a validator for residual nulls. With no
// columns given it covers the whole table.
func NewNullCoverageValidator(table NullInfo, op string, columns ...string) *NullCoverageValidator {
	return &NullCoverageValidator{
		table:   table,
		columns: columns,
		op:      op,
	}
}

// Validate enumerates every column that still holds nulls
func (v *NullCoverageValidator) Validate() error {
	columns := v.columns
	if len(columns) == 0 {
		columns = v.table.Columns()
	}

	var offending []errors.NullColumn
	for _, column := range columns {
		if n := v.table.ColumnNullCount(column); n > 0 {
			offending = append(offending, errors.NullColumn{Name: column, Nulls: n})
		}
	}

	if len(offending) > 0 {
		return errors.NewDataIntegrityError(v.op, offending)
	}
	return nil
}

// CardinalityValidator checks that a keyed merge preserved the row count
type CardinalityValidator struct {
	op     string
	key    string
	before int
	after  int
}

// NewCardinalityValidator creates a validator for row-count preservation
func NewCardinalityValidator(op, key string, before, after int) *CardinalityValidator {
	return &CardinalityValidator{
		op:     op,
		key:    key,
		before: before,
		after:  after,
	}
}

// Validate rejects merges that multiplied or dropped rows
func (v *CardinalityValidator) Validate() error {
	if v.before != v.after {
		return errors.NewCardinalityError(v.op, v.key, v.before, v.after)
	}
	return nil
}

// CompoundValidator combines multiple validators
type CompoundValidator struct {
	validators []Validator
}

// NewCompoundValidator creates a validator that checks multiple conditions
func NewCompoundValidator(validators ...Validator) *CompoundValidator {
	return &CompoundValidator{
		validators: validators,
	}
}

// Validate runs all validators and returns the first error encountered
func (v *CompoundValidator) Validate() error {
	for _, validator := range v.validators {
		if err := validator.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Convenience validation functions

// ValidateColumns is a convenience function for column existence
func ValidateColumns(table TableInfo, op string, columns ...string) error {
	return NewColumnValidator(table, op, columns...).Validate()
}

// ValidateNotEmpty is a convenience function for non-empty input
func ValidateNotEmpty(table TableInfo, op string) error {
	return NewNonEmptyValidator(table, op).Validate()
}

// ValidateNoNulls is a convenience function for null coverage
func ValidateNoNulls(table NullInfo, op string, columns ...string) error {
	return NewNullCoverageValidator(table, op, columns...).Validate()
}

// ValidateCardinality is a convenience function for row-count preservation
func ValidateCardinality(op, key string, before, after int) error {
	return NewCardinalityValidator(op, key, before, after).Validate()
}
