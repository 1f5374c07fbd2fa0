package frame

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/paveg/reprise/internal/errors"
)

// JoinType represents the type of join operation
type JoinType int

const (
	InnerJoin JoinType = iota
	LeftJoin
)

// JoinOptions specifies parameters for join operations. On names the key
// column(s) shared by both frames; the key appears exactly once in the
// result, populated from the left side.
type JoinOptions struct {
	Type JoinType
	On   []string
}

// Join performs a hash join between two Frames. Left rows are scanned in
// order, so for fixed inputs the result is deterministic. For LeftJoin every
// left row survives; unmatched right-side columns are null. Right columns
// whose names collide with remaining left columns are suffixed "_right".
func (f *Frame) Join(right *Frame, options JoinOptions) (*Frame, error) {
	if len(options.On) == 0 {
		return nil, errors.NewInvalidInputError("Join", "no join keys specified")
	}

	for _, key := range options.On {
		leftCol, ok := f.Column(key)
		if !ok {
			return nil, errors.NewColumnNotFoundError("Join", key)
		}
		rightCol, ok := right.Column(key)
		if !ok {
			return nil, errors.NewColumnNotFoundError("Join", key)
		}
		if !arrow.TypeEqual(leftCol.DataType(), rightCol.DataType()) {
			return nil, errors.NewTypeMismatchError("Join", key,
				leftCol.DataType().String(), rightCol.DataType().String())
		}
	}

	rightArrays, err := right.columnArrays(options.On)
	if err != nil {
		return nil, err
	}
	index := newRowIndex(right.Len())
	for i := 0; i < right.Len(); i++ {
		index.Add(rowKey(rightArrays, i), i)
	}
	releaseArrays(rightArrays)

	leftArrays, err := f.columnArrays(options.On)
	if err != nil {
		return nil, err
	}
	defer releaseArrays(leftArrays)

	var leftIndices, rightIndices []int
	for i := 0; i < f.Len(); i++ {
		key := rowKey(leftArrays, i)
		if rows, ok := index.Rows(key); ok {
			for _, rightIdx := range rows {
				leftIndices = append(leftIndices, i)
				rightIndices = append(rightIndices, rightIdx)
			}
		} else if options.Type == LeftJoin {
			leftIndices = append(leftIndices, i)
			rightIndices = append(rightIndices, -1) // -1 marks a null row
		}
	}

	return f.buildJoinResult(right, options.On, leftIndices, rightIndices), nil
}

// buildJoinResult gathers the matched rows into the result frame: all left
// columns first, then the right columns minus the join keys.
func (f *Frame) buildJoinResult(right *Frame, on []string, leftIndices, rightIndices []int) *Frame {
	keySet := make(map[string]bool, len(on))
	for _, key := range on {
		keySet[key] = true
	}

	var resultSeries []ISeries

	for _, colName := range f.order {
		arr := f.columns[colName].Array()
		resultSeries = append(resultSeries, seriesFromArray(colName, arr, leftIndices))
		arr.Release()
	}

	for _, colName := range right.order {
		if keySet[colName] {
			continue
		}
		name := colName
		if f.HasColumn(colName) {
			name = colName + "_right"
		}
		arr := right.columns[colName].Array()
		resultSeries = append(resultSeries, seriesFromArray(name, arr, rightIndices))
		arr.Release()
	}

	return New(resultSeries...)
}
