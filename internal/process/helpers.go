package process

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/paveg/reprise/internal/errors"
	"github.com/paveg/reprise/internal/frame"
	"github.com/paveg/reprise/internal/series"
	"github.com/paveg/reprise/internal/validation"
)

// columnStrings reads a string column into values with a validity mask
func columnStrings(f *frame.Frame, op, name string) ([]string, []bool, error) {
	col, ok := f.Column(name)
	if !ok {
		return nil, nil, errors.NewColumnNotFoundError(op, name)
	}
	arr := col.Array()
	defer arr.Release()

	typed, ok := arr.(*array.String)
	if !ok {
		return nil, nil, errors.NewTypeMismatchError(op, name, "utf8", arr.DataType().String())
	}

	values := make([]string, typed.Len())
	valid := make([]bool, typed.Len())
	for i := 0; i < typed.Len(); i++ {
		if typed.IsValid(i) {
			values[i] = typed.Value(i)
			valid[i] = true
		}
	}
	return values, valid, nil
}

// columnInts reads an int64 column; nulls surface through the validity mask
func columnInts(f *frame.Frame, op, name string) ([]int64, []bool, error) {
	col, ok := f.Column(name)
	if !ok {
		return nil, nil, errors.NewColumnNotFoundError(op, name)
	}
	arr := col.Array()
	defer arr.Release()

	typed, ok := arr.(*array.Int64)
	if !ok {
		return nil, nil, errors.NewTypeMismatchError(op, name, "int64", arr.DataType().String())
	}

	values := make([]int64, typed.Len())
	valid := make([]bool, typed.Len())
	for i := 0; i < typed.Len(); i++ {
		if typed.IsValid(i) {
			values[i] = typed.Value(i)
			valid[i] = true
		}
	}
	return values, valid, nil
}

// columnFloats reads a float64 column with a validity mask
func columnFloats(f *frame.Frame, op, name string) ([]float64, []bool, error) {
	col, ok := f.Column(name)
	if !ok {
		return nil, nil, errors.NewColumnNotFoundError(op, name)
	}
	arr := col.Array()
	defer arr.Release()

	typed, ok := arr.(*array.Float64)
	if !ok {
		return nil, nil, errors.NewTypeMismatchError(op, name, "float64", arr.DataType().String())
	}

	values := make([]float64, typed.Len())
	valid := make([]bool, typed.Len())
	for i := 0; i < typed.Len(); i++ {
		if typed.IsValid(i) {
			values[i] = typed.Value(i)
			valid[i] = true
		}
	}
	return values, valid, nil
}

// columnDates reads a date32 column with a validity mask
func columnDates(f *frame.Frame, op, name string) ([]arrow.Date32, []bool, error) {
	col, ok := f.Column(name)
	if !ok {
		return nil, nil, errors.NewColumnNotFoundError(op, name)
	}
	arr := col.Array()
	defer arr.Release()

	typed, ok := arr.(*array.Date32)
	if !ok {
		return nil, nil, errors.NewTypeMismatchError(op, name, "date32", arr.DataType().String())
	}

	values := make([]arrow.Date32, typed.Len())
	valid := make([]bool, typed.Len())
	for i := 0; i < typed.Len(); i++ {
		if typed.IsValid(i) {
			values[i] = typed.Value(i)
			valid[i] = true
		}
	}
	return values, valid, nil
}

// renderedStrings reads a column of any supported type as rendered strings
// ("17.0" for numeric values, "nan" for null). It backs value rules that
// match on rendered forms regardless of a column's inferred type.
func renderedStrings(f *frame.Frame, op, name string) ([]string, error) {
	col, ok := f.Column(name)
	if !ok {
		return nil, errors.NewColumnNotFoundError(op, name)
	}
	arr := col.Array()
	defer arr.Release()

	values := make([]string, arr.Len())
	switch typed := arr.(type) {
	case *array.String:
		for i := 0; i < typed.Len(); i++ {
			if typed.IsNull(i) {
				values[i] = "nan"
			} else {
				values[i] = typed.Value(i)
			}
		}
	case *array.Float64:
		for i := 0; i < typed.Len(); i++ {
			if typed.IsNull(i) {
				values[i] = "nan"
			} else {
				values[i] = series.FormatFloat(typed.Value(i))
			}
		}
	case *array.Int64:
		// Integer columns render in float form so value rules stay stable
		// whether or not missing entries forced a float promotion upstream
		for i := 0; i < typed.Len(); i++ {
			if typed.IsNull(i) {
				values[i] = "nan"
			} else {
				values[i] = series.FormatFloat(float64(typed.Value(i)))
			}
		}
	default:
		return nil, errors.NewUnsupportedTypeError(op, arr.DataType().String())
	}
	return values, nil
}

// withColumns appends or replaces a sequence of columns, failing fast
func withColumns(f *frame.Frame, cols ...frame.ISeries) (*frame.Frame, error) {
	var err error
	for _, c := range cols {
		if f, err = f.WithColumn(c); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// leftJoinPreserving left-joins right onto left and verifies the merge kept
// the left-table row count
func leftJoinPreserving(op string, left, right *frame.Frame, key string) (*frame.Frame, error) {
	before := left.Len()
	joined, err := left.Join(right, frame.JoinOptions{Type: frame.LeftJoin, On: []string{key}})
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateCardinality(op, key, before, joined.Len()); err != nil {
		return nil, err
	}
	return joined, nil
}

// boolInt converts a predicate result to a 0/1 feature value
func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
