package frame

import (
	"fmt"
	"runtime"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/reprise/internal/errors"
	"github.com/paveg/reprise/internal/parallel"
	"github.com/paveg/reprise/internal/series"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// AggregationType identifies a group aggregation function
type AggregationType int

const (
	AggCount AggregationType = iota
	AggSum
	AggMean
	AggMin
	AggMax
)

// Aggregation describes one aggregation over a named column
type Aggregation struct {
	aggType AggregationType
	column  string
	alias   string
}

// Count counts the non-null values of column per group
func Count(column string) Aggregation {
	return Aggregation{aggType: AggCount, column: column}
}

// Sum sums the values of column per group
func Sum(column string) Aggregation {
	return Aggregation{aggType: AggSum, column: column}
}

// Mean averages the non-null values of column per group
func Mean(column string) Aggregation {
	return Aggregation{aggType: AggMean, column: column}
}

// Min takes the minimum value of column per group
func Min(column string) Aggregation {
	return Aggregation{aggType: AggMin, column: column}
}

// Max takes the maximum value of column per group
func Max(column string) Aggregation {
	return Aggregation{aggType: AggMax, column: column}
}

// As sets the result column name
func (a Aggregation) As(alias string) Aggregation {
	a.alias = alias
	return a
}

// resultName returns the aggregation result column name
func (a Aggregation) resultName() string {
	if a.alias != "" {
		return a.alias
	}

	var aggName string
	switch a.aggType {
	case AggCount:
		aggName = "count"
	case AggSum:
		aggName = "sum"
	case AggMean:
		aggName = "mean"
	case AggMin:
		aggName = "min"
	case AggMax:
		aggName = "max"
	}

	return fmt.Sprintf("%s_%s", aggName, a.column)
}

// GroupBy represents a grouped Frame for aggregation operations. Group keys
// are held sorted so every aggregation emits groups in the same order.
type GroupBy struct {
	f           *Frame
	groupByCols []string
	groups      map[string][]int // group key -> row indices
	sortedKeys  []string
}

// GroupBy groups the Frame by the specified columns
func (f *Frame) GroupBy(columns ...string) (*GroupBy, error) {
	if len(columns) == 0 {
		return nil, errors.NewInvalidInputError("GroupBy", "no group columns specified")
	}
	for _, col := range columns {
		if !f.HasColumn(col) {
			return nil, errors.NewColumnNotFoundError("GroupBy", col)
		}
	}

	groups, err := f.buildGroups(columns)
	if err != nil {
		return nil, err
	}

	// Sorted iteration keeps aggregation output deterministic
	sortedKeys := maps.Keys(groups)
	slices.Sort(sortedKeys)

	return &GroupBy{
		f:           f,
		groupByCols: columns,
		groups:      groups,
		sortedKeys:  sortedKeys,
	}, nil
}

// buildGroups maps composite group keys to row indices
func (f *Frame) buildGroups(columns []string) (map[string][]int, error) {
	groups := make(map[string][]int)
	rowCount := f.Len()
	if rowCount == 0 {
		return groups, nil
	}

	arrays, err := f.columnArrays(columns)
	if err != nil {
		return nil, err
	}
	defer releaseArrays(arrays)

	for rowIdx := 0; rowIdx < rowCount; rowIdx++ {
		key := rowKey(arrays, rowIdx)
		groups[key] = append(groups[key], rowIdx)
	}

	return groups, nil
}

// minAggsForParallel gates worker-pool fan-out of independent aggregations
const minAggsForParallel = 2

// minGroupsForParallel gates parallelism by group count
const minGroupsForParallel = 100

// Agg aggregates the grouped data. The result holds the group columns
// followed by one column per aggregation, with one row per group in sorted
// group-key order.
func (gb *GroupBy) Agg(aggregations ...Aggregation) (*Frame, error) {
	if len(aggregations) == 0 {
		return nil, errors.NewInvalidInputError("Agg", "no aggregations specified")
	}
	for _, agg := range aggregations {
		if !gb.f.HasColumn(agg.column) {
			return nil, errors.NewColumnNotFoundError("Agg", agg.column)
		}
	}

	var resultSeries []ISeries

	// Group columns hold each group's first-row value, typed as the source
	firstRows := make([]int, len(gb.sortedKeys))
	for i, key := range gb.sortedKeys {
		firstRows[i] = gb.groups[key][0]
	}
	for _, groupCol := range gb.groupByCols {
		arr := gb.f.columns[groupCol].Array()
		resultSeries = append(resultSeries, seriesFromArray(groupCol, arr, firstRows))
		arr.Release()
	}

	if len(aggregations) >= minAggsForParallel && len(gb.groups) >= minGroupsForParallel {
		pool := parallel.NewWorkerPool(runtime.NumCPU())
		defer pool.Close()

		aggSeries, err := parallel.ProcessIndexed(pool, aggregations, func(_ int, agg Aggregation) (ISeries, error) {
			return gb.aggregateColumn(agg)
		})
		if err != nil {
			return nil, err
		}
		resultSeries = append(resultSeries, aggSeries...)
	} else {
		for _, agg := range aggregations {
			s, err := gb.aggregateColumn(agg)
			if err != nil {
				return nil, err
			}
			resultSeries = append(resultSeries, s)
		}
	}

	return New(resultSeries...), nil
}

// aggregateColumn computes one aggregation across all groups in key order
func (gb *GroupBy) aggregateColumn(agg Aggregation) (ISeries, error) {
	s := gb.f.columns[agg.column]
	arr := s.Array()
	defer arr.Release()

	mem := memory.NewGoAllocator()
	name := agg.resultName()

	if agg.aggType == AggCount {
		counts := make([]int64, len(gb.sortedKeys))
		for i, key := range gb.sortedKeys {
			counts[i] = countGroup(arr, gb.groups[key])
		}
		return series.New(name, counts, mem), nil
	}

	values := make([]float64, len(gb.sortedKeys))
	for i, key := range gb.sortedKeys {
		v, err := aggregateGroup(arr, gb.groups[key], agg.aggType)
		if err != nil {
			return nil, errors.NewValidationError("Agg", agg.column, err.Error())
		}
		values[i] = v
	}
	return series.New(name, values, mem), nil
}

// countGroup counts non-null entries of a group
func countGroup(arr arrow.Array, indices []int) int64 {
	var count int64
	for _, idx := range indices {
		if idx < arr.Len() && !arr.IsNull(idx) {
			count++
		}
	}
	return count
}

// aggregateGroup computes a numeric aggregation over one group, skipping nulls
func aggregateGroup(arr arrow.Array, indices []int, aggType AggregationType) (float64, error) {
	var sum, minimum, maximum float64
	var count int64
	first := true

	for _, idx := range indices {
		val, ok, err := numericValue(arr, idx)
		if err != nil {
			return 0, err
		}
		if !ok {
			continue
		}
		sum += val
		if first || val < minimum {
			minimum = val
		}
		if first || val > maximum {
			maximum = val
		}
		first = false
		count++
	}

	switch aggType {
	case AggSum:
		return sum, nil
	case AggMean:
		if count == 0 {
			return 0, nil
		}
		return sum / float64(count), nil
	case AggMin:
		return minimum, nil
	case AggMax:
		return maximum, nil
	default:
		return 0, fmt.Errorf("unsupported aggregation type: %d", aggType)
	}
}

// numericValue reads a numeric entry, reporting validity
func numericValue(arr arrow.Array, idx int) (float64, bool, error) {
	if idx >= arr.Len() || arr.IsNull(idx) {
		return 0, false, nil
	}

	switch typed := arr.(type) {
	case *array.Int64:
		return float64(typed.Value(idx)), true, nil
	case *array.Int32:
		return float64(typed.Value(idx)), true, nil
	case *array.Float64:
		return typed.Value(idx), true, nil
	case *array.Float32:
		return float64(typed.Value(idx)), true, nil
	default:
		return 0, false, fmt.Errorf("non-numeric column type %s", arr.DataType().String())
	}
}

// ValueCounts counts occurrences of each value of column, returning a Frame
// with the column and its counts under countName, in sorted value order.
func (f *Frame) ValueCounts(column, countName string) (*Frame, error) {
	gb, err := f.GroupBy(column)
	if err != nil {
		return nil, err
	}
	return gb.Agg(Count(column).As(countName))
}
