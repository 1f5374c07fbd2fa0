// Package frame provides the column-oriented table engine the pipeline runs
// on: ordered typed columns with null tracking, left-outer hash joins,
// deterministic group-by aggregation, deduplication and row-wise
// concatenation. All derived output is deterministic: no unordered map
// iteration reaches any result.
package frame

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/reprise/internal/errors"
	"github.com/paveg/reprise/internal/series"
)

// Frame represents a table of data with typed columns
type Frame struct {
	columns map[string]ISeries
	order   []string // Maintains column order
}

// New creates a new Frame from a slice of ISeries
func New(columns ...ISeries) *Frame {
	cols := make(map[string]ISeries)
	order := make([]string, 0, len(columns))

	for _, s := range columns {
		name := s.Name()
		cols[name] = s
		order = append(order, name)
	}

	return &Frame{
		columns: cols,
		order:   order,
	}
}

// Columns returns the names of all columns in order
func (f *Frame) Columns() []string {
	if len(f.order) == 0 {
		return []string{}
	}
	return append([]string(nil), f.order...)
}

// Len returns the number of rows (all columns share one length)
func (f *Frame) Len() int {
	if len(f.order) == 0 {
		return 0
	}
	if s, exists := f.columns[f.order[0]]; exists {
		return s.Len()
	}
	return 0
}

// Width returns the number of columns
func (f *Frame) Width() int {
	return len(f.columns)
}

// Column returns the series for the given column name
func (f *Frame) Column(name string) (ISeries, bool) {
	s, exists := f.columns[name]
	return s, exists
}

// HasColumn checks if a column exists
func (f *Frame) HasColumn(name string) bool {
	_, exists := f.columns[name]
	return exists
}

// Select returns a new Frame with only the specified columns, in the given order
func (f *Frame) Select(names ...string) *Frame {
	newColumns := make(map[string]ISeries)
	newOrder := make([]string, 0, len(names))

	for _, name := range names {
		if s, exists := f.columns[name]; exists {
			newColumns[name] = s
			newOrder = append(newOrder, name)
		}
	}

	return &Frame{
		columns: newColumns,
		order:   newOrder,
	}
}

// Drop returns a new Frame without the specified columns
func (f *Frame) Drop(names ...string) *Frame {
	dropSet := make(map[string]bool)
	for _, name := range names {
		dropSet[name] = true
	}

	newColumns := make(map[string]ISeries)
	newOrder := make([]string, 0, len(f.order))

	for _, name := range f.order {
		if !dropSet[name] {
			newColumns[name] = f.columns[name]
			newOrder = append(newOrder, name)
		}
	}

	return &Frame{
		columns: newColumns,
		order:   newOrder,
	}
}

// WithColumn returns a new Frame with the series added, or replacing an
// existing column of the same name in place. The series length must match
// the frame's row count unless the frame is empty.
func (f *Frame) WithColumn(s ISeries) (*Frame, error) {
	if len(f.order) > 0 && s.Len() != f.Len() {
		return nil, errors.NewValidationError("WithColumn", s.Name(),
			fmt.Sprintf("expected length %d, got %d", f.Len(), s.Len()))
	}

	newColumns := make(map[string]ISeries, len(f.columns)+1)
	for name, col := range f.columns {
		newColumns[name] = col
	}

	name := s.Name()
	newOrder := append([]string(nil), f.order...)
	if _, exists := f.columns[name]; !exists {
		newOrder = append(newOrder, name)
	}
	newColumns[name] = s

	return &Frame{
		columns: newColumns,
		order:   newOrder,
	}, nil
}

// Rename returns a new Frame with a column renamed, keeping its position
func (f *Frame) Rename(from, to string) (*Frame, error) {
	s, exists := f.columns[from]
	if !exists {
		return nil, errors.NewColumnNotFoundError("Rename", from)
	}
	if from == to {
		return f, nil
	}
	if _, taken := f.columns[to]; taken {
		return nil, errors.NewValidationError("Rename", to, "target column already exists")
	}

	newColumns := make(map[string]ISeries, len(f.columns))
	newOrder := make([]string, len(f.order))
	for i, name := range f.order {
		if name == from {
			newOrder[i] = to
			newColumns[to] = renameSeries(s, to)
		} else {
			newOrder[i] = name
			newColumns[name] = f.columns[name]
		}
	}

	return &Frame{
		columns: newColumns,
		order:   newOrder,
	}, nil
}

// renameSeries rebuilds a series under a new name, preserving validity
func renameSeries(s ISeries, name string) ISeries {
	arr := s.Array()
	defer arr.Release()
	return seriesFromArray(name, arr, allRows(arr.Len()))
}

// String returns a string representation of the Frame
func (f *Frame) String() string {
	if len(f.columns) == 0 {
		return "Frame[empty]"
	}

	parts := []string{fmt.Sprintf("Frame[%dx%d]", f.Len(), f.Width())}

	for _, name := range f.order {
		s := f.columns[name]
		parts = append(parts, fmt.Sprintf("  %s: %s (nulls=%d)", name, s.DataType().String(), s.NullCount()))
	}

	return strings.Join(parts, "\n")
}

// Release releases all underlying Arrow memory
func (f *Frame) Release() {
	for _, s := range f.columns {
		s.Release()
	}
}

// ColumnNulls records the null count of one column.
type ColumnNulls struct {
	Name  string
	Nulls int
}

// ColumnNullCount returns the null count of the named column, 0 when the
// column does not exist.
func (f *Frame) ColumnNullCount(name string) int {
	if s, exists := f.columns[name]; exists {
		return s.NullCount()
	}
	return 0
}

// NullCounts returns the per-column null counts in column order,
// listing only columns that contain nulls.
func (f *Frame) NullCounts() []ColumnNulls {
	var out []ColumnNulls
	for _, name := range f.order {
		if n := f.columns[name].NullCount(); n > 0 {
			out = append(out, ColumnNulls{Name: name, Nulls: n})
		}
	}
	return out
}

// FillNull returns a new Frame with nulls in the named column replaced by
// value. The value type must match the column type: string, int64, float64
// or bool.
func (f *Frame) FillNull(column string, value interface{}) (*Frame, error) {
	s, exists := f.columns[column]
	if !exists {
		return nil, errors.NewColumnNotFoundError("FillNull", column)
	}
	if s.NullCount() == 0 {
		return f, nil
	}

	arr := s.Array()
	defer arr.Release()

	mem := memory.NewGoAllocator()
	var filled ISeries

	switch typedArr := arr.(type) {
	case *array.String:
		v, ok := value.(string)
		if !ok {
			return nil, errors.NewTypeMismatchError("FillNull", column, "string", fmt.Sprintf("%T", value))
		}
		values := make([]string, typedArr.Len())
		for i := 0; i < typedArr.Len(); i++ {
			if typedArr.IsNull(i) {
				values[i] = v
			} else {
				values[i] = typedArr.Value(i)
			}
		}
		filled = series.New(column, values, mem)
	case *array.Int64:
		v, ok := toInt64(value)
		if !ok {
			return nil, errors.NewTypeMismatchError("FillNull", column, "int64", fmt.Sprintf("%T", value))
		}
		values := make([]int64, typedArr.Len())
		for i := 0; i < typedArr.Len(); i++ {
			if typedArr.IsNull(i) {
				values[i] = v
			} else {
				values[i] = typedArr.Value(i)
			}
		}
		filled = series.New(column, values, mem)
	case *array.Float64:
		v, ok := toFloat64(value)
		if !ok {
			return nil, errors.NewTypeMismatchError("FillNull", column, "float64", fmt.Sprintf("%T", value))
		}
		values := make([]float64, typedArr.Len())
		for i := 0; i < typedArr.Len(); i++ {
			if typedArr.IsNull(i) {
				values[i] = v
			} else {
				values[i] = typedArr.Value(i)
			}
		}
		filled = series.New(column, values, mem)
	case *array.Boolean:
		v, ok := value.(bool)
		if !ok {
			return nil, errors.NewTypeMismatchError("FillNull", column, "bool", fmt.Sprintf("%T", value))
		}
		values := make([]bool, typedArr.Len())
		for i := 0; i < typedArr.Len(); i++ {
			if typedArr.IsNull(i) {
				values[i] = v
			} else {
				values[i] = typedArr.Value(i)
			}
		}
		filled = series.New(column, values, mem)
	default:
		return nil, errors.NewUnsupportedTypeError("FillNull", arr.DataType().String())
	}

	return f.WithColumn(filled)
}

// toInt64 widens common integer literal types to int64
func toInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	default:
		return 0, false
	}
}

// toFloat64 widens common numeric literal types to float64
func toFloat64(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

// Concat concatenates Frames vertically (row-wise). All Frames must share
// the same column names, order and types.
func (f *Frame) Concat(others ...*Frame) (*Frame, error) {
	if len(others) == 0 {
		return f.Copy(), nil
	}

	for _, other := range others {
		if err := f.checkSameSchema(other); err != nil {
			return nil, err
		}
	}

	var concatenated []ISeries
	for _, colName := range f.order {
		allSeries := []ISeries{f.columns[colName]}
		for _, other := range others {
			allSeries = append(allSeries, other.columns[colName])
		}
		concatenated = append(concatenated, concatSeries(colName, allSeries))
	}

	return New(concatenated...), nil
}

// checkSameSchema verifies two Frames have identical column structure
func (f *Frame) checkSameSchema(other *Frame) error {
	if len(f.order) != len(other.order) {
		return errors.NewInvalidInputError("Concat",
			fmt.Sprintf("column count mismatch: %d vs %d", len(f.order), len(other.order)))
	}

	for i, colName := range f.order {
		if other.order[i] != colName {
			return errors.NewValidationError("Concat", colName,
				fmt.Sprintf("column order mismatch: position %d holds %q", i, other.order[i]))
		}

		left, right := f.columns[colName], other.columns[colName]
		if !arrow.TypeEqual(left.DataType(), right.DataType()) {
			return errors.NewTypeMismatchError("Concat", colName,
				left.DataType().String(), right.DataType().String())
		}
	}

	return nil
}

// concatSeries concatenates same-typed series preserving validity
func concatSeries(name string, seriesList []ISeries) ISeries {
	totalLength := 0
	for _, s := range seriesList {
		totalLength += s.Len()
	}

	arrays := make([]arrow.Array, len(seriesList))
	for i, s := range seriesList {
		arrays[i] = s.Array()
	}
	defer func() {
		for _, arr := range arrays {
			arr.Release()
		}
	}()

	firstType := arrays[0].DataType()

	switch firstType.ID() {
	case arrow.STRING:
		values := make([]string, 0, totalLength)
		valid := make([]bool, 0, totalLength)
		for _, arr := range arrays {
			typed := arr.(*array.String)
			for i := 0; i < typed.Len(); i++ {
				valid = append(valid, typed.IsValid(i))
				if typed.IsValid(i) {
					values = append(values, typed.Value(i))
				} else {
					values = append(values, "")
				}
			}
		}
		return series.NewNullable(name, values, valid, memory.NewGoAllocator())
	case arrow.INT64:
		values := make([]int64, 0, totalLength)
		valid := make([]bool, 0, totalLength)
		for _, arr := range arrays {
			typed := arr.(*array.Int64)
			for i := 0; i < typed.Len(); i++ {
				valid = append(valid, typed.IsValid(i))
				if typed.IsValid(i) {
					values = append(values, typed.Value(i))
				} else {
					values = append(values, 0)
				}
			}
		}
		return series.NewNullable(name, values, valid, memory.NewGoAllocator())
	case arrow.FLOAT64:
		values := make([]float64, 0, totalLength)
		valid := make([]bool, 0, totalLength)
		for _, arr := range arrays {
			typed := arr.(*array.Float64)
			for i := 0; i < typed.Len(); i++ {
				valid = append(valid, typed.IsValid(i))
				if typed.IsValid(i) {
					values = append(values, typed.Value(i))
				} else {
					values = append(values, 0)
				}
			}
		}
		return series.NewNullable(name, values, valid, memory.NewGoAllocator())
	case arrow.BOOL:
		values := make([]bool, 0, totalLength)
		valid := make([]bool, 0, totalLength)
		for _, arr := range arrays {
			typed := arr.(*array.Boolean)
			for i := 0; i < typed.Len(); i++ {
				valid = append(valid, typed.IsValid(i))
				if typed.IsValid(i) {
					values = append(values, typed.Value(i))
				} else {
					values = append(values, false)
				}
			}
		}
		return series.NewNullable(name, values, valid, memory.NewGoAllocator())
	case arrow.DATE32:
		values := make([]arrow.Date32, 0, totalLength)
		valid := make([]bool, 0, totalLength)
		for _, arr := range arrays {
			typed := arr.(*array.Date32)
			for i := 0; i < typed.Len(); i++ {
				valid = append(valid, typed.IsValid(i))
				if typed.IsValid(i) {
					values = append(values, typed.Value(i))
				} else {
					values = append(values, 0)
				}
			}
		}
		return series.NewNullable(name, values, valid, memory.NewGoAllocator())
	default:
		return series.New(name, []string{}, memory.NewGoAllocator())
	}
}

// Copy returns a deep copy of the Frame with independent memory
func (f *Frame) Copy() *Frame {
	copied := make([]ISeries, 0, len(f.order))
	for _, name := range f.order {
		copied = append(copied, copySeries(f.columns[name]))
	}
	return New(copied...)
}

// copySeries creates an independent copy of a series, preserving validity
func copySeries(s ISeries) ISeries {
	arr := s.Array()
	defer arr.Release()
	return seriesFromArray(s.Name(), arr, allRows(arr.Len()))
}

// allRows returns the identity index slice [0, n)
func allRows(n int) []int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	return indices
}

// TakeRows returns a new Frame holding the given rows, in index order.
// A negative index yields a null row in every column.
func (f *Frame) TakeRows(indices []int) *Frame {
	taken := make([]ISeries, 0, len(f.order))
	for _, name := range f.order {
		arr := f.columns[name].Array()
		taken = append(taken, seriesFromArray(name, arr, indices))
		arr.Release()
	}
	return New(taken...)
}

// seriesFromArray gathers rows of an Arrow array into a new series.
// A negative index or a null source entry produces a null.
func seriesFromArray(name string, arr arrow.Array, indices []int) ISeries {
	mem := memory.NewGoAllocator()
	n := len(indices)

	switch typed := arr.(type) {
	case *array.String:
		values := make([]string, n)
		valid := make([]bool, n)
		for i, idx := range indices {
			if idx >= 0 && idx < typed.Len() && typed.IsValid(idx) {
				values[i] = typed.Value(idx)
				valid[i] = true
			}
		}
		return series.NewNullable(name, values, valid, mem)
	case *array.Int64:
		values := make([]int64, n)
		valid := make([]bool, n)
		for i, idx := range indices {
			if idx >= 0 && idx < typed.Len() && typed.IsValid(idx) {
				values[i] = typed.Value(idx)
				valid[i] = true
			}
		}
		return series.NewNullable(name, values, valid, mem)
	case *array.Int32:
		values := make([]int32, n)
		valid := make([]bool, n)
		for i, idx := range indices {
			if idx >= 0 && idx < typed.Len() && typed.IsValid(idx) {
				values[i] = typed.Value(idx)
				valid[i] = true
			}
		}
		return series.NewNullable(name, values, valid, mem)
	case *array.Float64:
		values := make([]float64, n)
		valid := make([]bool, n)
		for i, idx := range indices {
			if idx >= 0 && idx < typed.Len() && typed.IsValid(idx) {
				values[i] = typed.Value(idx)
				valid[i] = true
			}
		}
		return series.NewNullable(name, values, valid, mem)
	case *array.Float32:
		values := make([]float32, n)
		valid := make([]bool, n)
		for i, idx := range indices {
			if idx >= 0 && idx < typed.Len() && typed.IsValid(idx) {
				values[i] = typed.Value(idx)
				valid[i] = true
			}
		}
		return series.NewNullable(name, values, valid, mem)
	case *array.Boolean:
		values := make([]bool, n)
		valid := make([]bool, n)
		for i, idx := range indices {
			if idx >= 0 && idx < typed.Len() && typed.IsValid(idx) {
				values[i] = typed.Value(idx)
				valid[i] = true
			}
		}
		return series.NewNullable(name, values, valid, mem)
	case *array.Date32:
		values := make([]arrow.Date32, n)
		valid := make([]bool, n)
		for i, idx := range indices {
			if idx >= 0 && idx < typed.Len() && typed.IsValid(idx) {
				values[i] = typed.Value(idx)
				valid[i] = true
			}
		}
		return series.NewNullable(name, values, valid, mem)
	default:
		values := make([]string, n)
		return series.NewNullable(name, values, make([]bool, n), mem)
	}
}

// rowKey renders the values of the given columns at a row as a composite
// key. Used by group-by, dedup and join; "|" separates the parts and nulls
// render "null".
func rowKey(arrays []arrow.Array, rowIdx int) string {
	if len(arrays) == 1 {
		return series.RenderValue(arrays[0], rowIdx)
	}

	keyParts := make([]string, len(arrays))
	for i, arr := range arrays {
		keyParts[i] = series.RenderValue(arr, rowIdx)
	}
	return strings.Join(keyParts, "|")
}

// columnArrays resolves columns to their Arrow arrays; the caller releases
func (f *Frame) columnArrays(columns []string) ([]arrow.Array, error) {
	arrays := make([]arrow.Array, len(columns))
	for i, col := range columns {
		s, exists := f.columns[col]
		if !exists {
			for _, arr := range arrays[:i] {
				arr.Release()
			}
			return nil, errors.NewColumnNotFoundError("columnArrays", col)
		}
		arrays[i] = s.Array()
	}
	return arrays, nil
}

func releaseArrays(arrays []arrow.Array) {
	for _, arr := range arrays {
		if arr != nil {
			arr.Release()
		}
	}
}
