package frame_test

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paveg/reprise/internal/frame"
	"github.com/paveg/reprise/internal/series"
)

// stringColumn returns the named column as a string array, released on cleanup
func stringColumn(t *testing.T, f *frame.Frame, name string) *array.String {
	t.Helper()
	col, ok := f.Column(name)
	require.True(t, ok, "column %s not found", name)
	arr := col.Array()
	t.Cleanup(arr.Release)
	typed, ok := arr.(*array.String)
	require.True(t, ok, "column %s is not a string column", name)
	return typed
}

func intColumn(t *testing.T, f *frame.Frame, name string) *array.Int64 {
	t.Helper()
	col, ok := f.Column(name)
	require.True(t, ok, "column %s not found", name)
	arr := col.Array()
	t.Cleanup(arr.Release)
	typed, ok := arr.(*array.Int64)
	require.True(t, ok, "column %s is not an int64 column", name)
	return typed
}

func floatColumn(t *testing.T, f *frame.Frame, name string) *array.Float64 {
	t.Helper()
	col, ok := f.Column(name)
	require.True(t, ok, "column %s not found", name)
	arr := col.Array()
	t.Cleanup(arr.Release)
	typed, ok := arr.(*array.Float64)
	require.True(t, ok, "column %s is not a float64 column", name)
	return typed
}

func TestNew(t *testing.T) {
	mem := memory.NewGoAllocator()

	f := frame.New(
		series.New("song_id", []string{"a", "b", "c"}, mem),
		series.New("plays", []int64{3, 1, 4}, mem),
	)
	defer f.Release()

	assert.Equal(t, 3, f.Len())
	assert.Equal(t, 2, f.Width())
	assert.Equal(t, []string{"song_id", "plays"}, f.Columns())
	assert.True(t, f.HasColumn("plays"))
	assert.False(t, f.HasColumn("missing"))
}

func TestSelectAndDrop(t *testing.T) {
	mem := memory.NewGoAllocator()

	f := frame.New(
		series.New("a", []int64{1, 2}, mem),
		series.New("b", []int64{3, 4}, mem),
		series.New("c", []int64{5, 6}, mem),
	)
	defer f.Release()

	t.Run("select keeps requested order", func(t *testing.T) {
		sel := f.Select("c", "a")
		defer sel.Release()

		assert.Equal(t, []string{"c", "a"}, sel.Columns())
		assert.Equal(t, 2, sel.Len())
	})

	t.Run("select ignores unknown columns", func(t *testing.T) {
		sel := f.Select("a", "missing")
		defer sel.Release()

		assert.Equal(t, []string{"a"}, sel.Columns())
	})

	t.Run("drop removes columns", func(t *testing.T) {
		dropped := f.Drop("b")
		defer dropped.Release()

		assert.Equal(t, []string{"a", "c"}, dropped.Columns())
	})
}

func TestWithColumn(t *testing.T) {
	mem := memory.NewGoAllocator()

	t.Run("appends a new column at the end", func(t *testing.T) {
		f := frame.New(series.New("a", []int64{1, 2}, mem))
		defer f.Release()

		result, err := f.WithColumn(series.New("b", []int64{3, 4}, mem))
		require.NoError(t, err)
		defer result.Release()

		assert.Equal(t, []string{"a", "b"}, result.Columns())
	})

	t.Run("replaces an existing column in place", func(t *testing.T) {
		f := frame.New(
			series.New("a", []int64{1, 2}, mem),
			series.New("b", []int64{3, 4}, mem),
		)
		defer f.Release()

		result, err := f.WithColumn(series.New("a", []int64{9, 9}, mem))
		require.NoError(t, err)
		defer result.Release()

		assert.Equal(t, []string{"a", "b"}, result.Columns())
		a := intColumn(t, result, "a")
		assert.Equal(t, int64(9), a.Value(0))
	})

	t.Run("rejects length mismatch", func(t *testing.T) {
		f := frame.New(series.New("a", []int64{1, 2}, mem))
		defer f.Release()

		_, err := f.WithColumn(series.New("b", []int64{3}, mem))
		assert.Error(t, err)
	})
}

func TestRename(t *testing.T) {
	mem := memory.NewGoAllocator()

	f := frame.New(
		series.New("old", []int64{1}, mem),
		series.New("other", []int64{2}, mem),
	)
	defer f.Release()

	t.Run("renames and keeps position", func(t *testing.T) {
		result, err := f.Rename("old", "new")
		require.NoError(t, err)
		defer result.Release()

		assert.Equal(t, []string{"new", "other"}, result.Columns())
	})

	t.Run("unknown column errors", func(t *testing.T) {
		_, err := f.Rename("missing", "new")
		assert.Error(t, err)
	})
}

func TestFillNull(t *testing.T) {
	mem := memory.NewGoAllocator()

	t.Run("fills int nulls", func(t *testing.T) {
		f := frame.New(series.NewNullable("plays", []int64{3, 0, 7}, []bool{true, false, true}, mem))
		defer f.Release()

		result, err := f.FillNull("plays", int64(0))
		require.NoError(t, err)
		defer result.Release()

		plays := intColumn(t, result, "plays")
		assert.Equal(t, 0, plays.NullN())
		assert.Equal(t, int64(0), plays.Value(1))
		assert.Equal(t, int64(7), plays.Value(2))
	})

	t.Run("fills string nulls", func(t *testing.T) {
		f := frame.New(series.NewNullable("name", []string{"x", "", "z"}, []bool{true, false, true}, mem))
		defer f.Release()

		result, err := f.FillNull("name", "unknown")
		require.NoError(t, err)
		defer result.Release()

		name := stringColumn(t, result, "name")
		assert.Equal(t, "unknown", name.Value(1))
		assert.Equal(t, "z", name.Value(2))
	})

	t.Run("fills float nulls with int literal", func(t *testing.T) {
		f := frame.New(series.NewNullable("score", []float64{1.5, 0}, []bool{true, false}, mem))
		defer f.Release()

		result, err := f.FillNull("score", 0)
		require.NoError(t, err)
		defer result.Release()

		score := floatColumn(t, result, "score")
		assert.Equal(t, 0.0, score.Value(1))
	})

	t.Run("no nulls returns the frame unchanged", func(t *testing.T) {
		f := frame.New(series.New("a", []int64{1, 2}, mem))
		defer f.Release()

		result, err := f.FillNull("a", int64(0))
		require.NoError(t, err)
		assert.Equal(t, f, result)
	})

	t.Run("type mismatch errors", func(t *testing.T) {
		f := frame.New(series.NewNullable("a", []int64{1, 0}, []bool{true, false}, mem))
		defer f.Release()

		_, err := f.FillNull("a", "zero")
		assert.Error(t, err)
	})

	t.Run("unknown column errors", func(t *testing.T) {
		f := frame.New(series.New("a", []int64{1}, mem))
		defer f.Release()

		_, err := f.FillNull("missing", int64(0))
		assert.Error(t, err)
	})
}

func TestConcat(t *testing.T) {
	mem := memory.NewGoAllocator()

	t.Run("stacks rows and preserves nulls", func(t *testing.T) {
		top := frame.New(
			series.New("id", []string{"a", "b"}, mem),
			series.NewNullable("v", []int64{1, 0}, []bool{true, false}, mem),
		)
		defer top.Release()
		bottom := frame.New(
			series.New("id", []string{"c"}, mem),
			series.New("v", []int64{3}, mem),
		)
		defer bottom.Release()

		result, err := top.Concat(bottom)
		require.NoError(t, err)
		defer result.Release()

		assert.Equal(t, 3, result.Len())
		v := intColumn(t, result, "v")
		assert.True(t, v.IsNull(1))
		assert.Equal(t, int64(3), v.Value(2))
	})

	t.Run("rejects mismatched schemas", func(t *testing.T) {
		a := frame.New(series.New("x", []int64{1}, mem))
		defer a.Release()
		b := frame.New(series.New("x", []float64{1.0}, mem))
		defer b.Release()

		_, err := a.Concat(b)
		assert.Error(t, err)
	})

	t.Run("no arguments copies", func(t *testing.T) {
		f := frame.New(series.New("x", []int64{1, 2}, mem))
		defer f.Release()

		result, err := f.Concat()
		require.NoError(t, err)
		defer result.Release()

		assert.Equal(t, 2, result.Len())
	})
}

func TestNullCounts(t *testing.T) {
	mem := memory.NewGoAllocator()

	f := frame.New(
		series.New("clean", []int64{1, 2, 3}, mem),
		series.NewNullable("holes", []int64{1, 0, 0}, []bool{true, false, false}, mem),
	)
	defer f.Release()

	counts := f.NullCounts()
	require.Len(t, counts, 1)
	assert.Equal(t, "holes", counts[0].Name)
	assert.Equal(t, 2, counts[0].Nulls)
}

func TestTakeRows(t *testing.T) {
	mem := memory.NewGoAllocator()

	f := frame.New(
		series.New("id", []string{"a", "b", "c", "d"}, mem),
		series.NewNullable("v", []int64{1, 2, 0, 4}, []bool{true, true, false, true}, mem),
	)
	defer f.Release()

	result := f.TakeRows([]int{3, 0, 2})
	defer result.Release()

	require.Equal(t, 3, result.Len())
	id := stringColumn(t, result, "id")
	assert.Equal(t, "d", id.Value(0))
	assert.Equal(t, "a", id.Value(1))
	v := intColumn(t, result, "v")
	assert.Equal(t, int64(4), v.Value(0))
	assert.True(t, v.IsNull(2))
}

func TestCopy(t *testing.T) {
	mem := memory.NewGoAllocator()

	f := frame.New(series.New("a", []int64{1, 2, 3}, mem))
	cp := f.Copy()
	f.Release()

	defer cp.Release()
	a := intColumn(t, cp, "a")
	assert.Equal(t, int64(2), a.Value(1))
}
