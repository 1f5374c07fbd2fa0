// Package series provides typed, Arrow-backed data columns with null tracking
package series

import (
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Series represents a typed data column with Apache Arrow backend.
// Null entries are tracked through the Arrow validity bitmap.
type Series[T any] struct {
	name  string
	array arrow.Array
}

// New creates a new Series from a slice of values with no nulls
func New[T any](name string, values []T, mem memory.Allocator) *Series[T] {
	return NewNullable(name, values, nil, mem)
}

// NewNullable creates a new Series from values plus a validity mask.
// valid[i] == false marks row i null; a nil mask means all values are valid.
func NewNullable[T any](name string, values []T, valid []bool, mem memory.Allocator) *Series[T] {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	var arr arrow.Array

	// Use type switching to create the appropriate Arrow array
	switch v := any(values).(type) {
	case []string:
		builder := array.NewStringBuilder(mem)
		defer builder.Release()
		builder.AppendValues(v, valid)
		arr = builder.NewArray()
	case []int64:
		builder := array.NewInt64Builder(mem)
		defer builder.Release()
		builder.AppendValues(v, valid)
		arr = builder.NewArray()
	case []int32:
		builder := array.NewInt32Builder(mem)
		defer builder.Release()
		builder.AppendValues(v, valid)
		arr = builder.NewArray()
	case []float64:
		builder := array.NewFloat64Builder(mem)
		defer builder.Release()
		builder.AppendValues(v, valid)
		arr = builder.NewArray()
	case []float32:
		builder := array.NewFloat32Builder(mem)
		defer builder.Release()
		builder.AppendValues(v, valid)
		arr = builder.NewArray()
	case []bool:
		builder := array.NewBooleanBuilder(mem)
		defer builder.Release()
		builder.AppendValues(v, valid)
		arr = builder.NewArray()
	case []arrow.Date32:
		builder := array.NewDate32Builder(mem)
		defer builder.Release()
		builder.AppendValues(v, valid)
		arr = builder.NewArray()
	default:
		panic(fmt.Sprintf("unsupported type: %T", values))
	}

	return &Series[T]{
		name:  name,
		array: arr,
	}
}

// Name returns the column name
func (s *Series[T]) Name() string {
	return s.name
}

// Len returns the length of the series
func (s *Series[T]) Len() int {
	return s.array.Len()
}

// NullCount returns the number of null entries
func (s *Series[T]) NullCount() int {
	return s.array.NullN()
}

// Values returns the data as a Go slice; null entries hold the zero value
func (s *Series[T]) Values() []T {
	result := make([]T, s.array.Len())

	switch arr := s.array.(type) {
	case *array.String:
		values := any(result).([]string)
		for i := 0; i < arr.Len(); i++ {
			if arr.IsValid(i) {
				values[i] = arr.Value(i)
			}
		}
	case *array.Int64:
		values := any(result).([]int64)
		for i := 0; i < arr.Len(); i++ {
			if arr.IsValid(i) {
				values[i] = arr.Value(i)
			}
		}
	case *array.Int32:
		values := any(result).([]int32)
		for i := 0; i < arr.Len(); i++ {
			if arr.IsValid(i) {
				values[i] = arr.Value(i)
			}
		}
	case *array.Float64:
		values := any(result).([]float64)
		for i := 0; i < arr.Len(); i++ {
			if arr.IsValid(i) {
				values[i] = arr.Value(i)
			}
		}
	case *array.Float32:
		values := any(result).([]float32)
		for i := 0; i < arr.Len(); i++ {
			if arr.IsValid(i) {
				values[i] = arr.Value(i)
			}
		}
	case *array.Boolean:
		values := any(result).([]bool)
		for i := 0; i < arr.Len(); i++ {
			if arr.IsValid(i) {
				values[i] = arr.Value(i)
			}
		}
	case *array.Date32:
		values := any(result).([]arrow.Date32)
		for i := 0; i < arr.Len(); i++ {
			if arr.IsValid(i) {
				values[i] = arr.Value(i)
			}
		}
	default:
		panic(fmt.Sprintf("unsupported array type: %T", arr))
	}

	return result
}

// Value returns the value at the given index (zero value when null or out of range)
func (s *Series[T]) Value(index int) T {
	var result T
	if index < 0 || index >= s.array.Len() || s.array.IsNull(index) {
		return result
	}

	switch arr := s.array.(type) {
	case *array.String:
		if v, ok := any(&result).(*string); ok {
			*v = arr.Value(index)
		}
	case *array.Int64:
		if v, ok := any(&result).(*int64); ok {
			*v = arr.Value(index)
		}
	case *array.Int32:
		if v, ok := any(&result).(*int32); ok {
			*v = arr.Value(index)
		}
	case *array.Float64:
		if v, ok := any(&result).(*float64); ok {
			*v = arr.Value(index)
		}
	case *array.Float32:
		if v, ok := any(&result).(*float32); ok {
			*v = arr.Value(index)
		}
	case *array.Boolean:
		if v, ok := any(&result).(*bool); ok {
			*v = arr.Value(index)
		}
	case *array.Date32:
		if v, ok := any(&result).(*arrow.Date32); ok {
			*v = arr.Value(index)
		}
	}

	return result
}

// DataType returns the Arrow data type
func (s *Series[T]) DataType() arrow.DataType {
	return s.array.DataType()
}

// IsNull checks if the value at index is null
func (s *Series[T]) IsNull(index int) bool {
	return s.array.IsNull(index)
}

// GetAsString renders the value at index as a string. Floats render with a
// trailing .0 when integral (17 -> "17.0") so value rules can match on a
// stable textual form; dates render ISO (YYYY-MM-DD); nulls render "null".
func (s *Series[T]) GetAsString(index int) string {
	if index < 0 || index >= s.array.Len() {
		return ""
	}
	return RenderValue(s.array, index)
}

// String returns a string representation of the series
func (s *Series[T]) String() string {
	return fmt.Sprintf("Series[%s]: %s (len=%d, nulls=%d)",
		reflect.TypeOf(new(T)).Elem().Name(),
		s.name,
		s.Len(),
		s.NullCount())
}

// Array returns the underlying Arrow array (retains a reference)
func (s *Series[T]) Array() arrow.Array {
	if s.array != nil {
		s.array.Retain()
		return s.array
	}
	return nil
}

// Release releases the underlying Arrow memory
func (s *Series[T]) Release() {
	if s.array != nil {
		s.array.Release()
	}
}

// RenderValue renders one array entry per the GetAsString conventions.
// It is shared by group-key construction and CSV output.
func RenderValue(arr arrow.Array, index int) string {
	if arr.IsNull(index) {
		return "null"
	}

	switch a := arr.(type) {
	case *array.String:
		return a.Value(index)
	case *array.Int64:
		return strconv.FormatInt(a.Value(index), 10)
	case *array.Int32:
		return strconv.FormatInt(int64(a.Value(index)), 10)
	case *array.Float64:
		return FormatFloat(a.Value(index))
	case *array.Float32:
		return FormatFloat(float64(a.Value(index)))
	case *array.Boolean:
		return strconv.FormatBool(a.Value(index))
	case *array.Date32:
		return a.Value(index).ToTime().Format("2006-01-02")
	default:
		return fmt.Sprintf("%v", arr.ValueStr(index))
	}
}

// FormatFloat renders a float with a trailing .0 when integral, shortest
// round-trip form otherwise. NaN renders "nan", infinities "inf"/"-inf".
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case f == math.Trunc(f) && math.Abs(f) < 1e16:
		return strconv.FormatFloat(f, 'f', 1, 64)
	default:
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
}
