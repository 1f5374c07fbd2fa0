package frame_test

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paveg/reprise/internal/frame"
	"github.com/paveg/reprise/internal/series"
)

func TestLeftJoin(t *testing.T) {
	mem := memory.NewGoAllocator()

	// Five interaction rows against a three-song count table; "d" has no match.
	left := frame.New(
		series.New("song_id", []string{"a", "a", "b", "c", "d"}, mem),
		series.New("user_id", []string{"u1", "u2", "u1", "u3", "u2"}, mem),
	)
	defer left.Release()

	right := frame.New(
		series.New("song_id", []string{"a", "b", "c"}, mem),
		series.New("play_count", []int64{2, 1, 1}, mem),
	)
	defer right.Release()

	result, err := left.Join(right, frame.JoinOptions{Type: frame.LeftJoin, On: []string{"song_id"}})
	require.NoError(t, err)
	defer result.Release()

	t.Run("preserves every left row", func(t *testing.T) {
		assert.Equal(t, 5, result.Len())
	})

	t.Run("key column appears once, left columns first", func(t *testing.T) {
		assert.Equal(t, []string{"song_id", "user_id", "play_count"}, result.Columns())
	})

	t.Run("matched rows carry right values", func(t *testing.T) {
		counts := intColumn(t, result, "play_count")
		assert.Equal(t, int64(2), counts.Value(0))
		assert.Equal(t, int64(2), counts.Value(1))
		assert.Equal(t, int64(1), counts.Value(2))
		assert.Equal(t, int64(1), counts.Value(3))
	})

	t.Run("unmatched rows are null until filled", func(t *testing.T) {
		counts := intColumn(t, result, "play_count")
		require.True(t, counts.IsNull(4))

		filled, err := result.FillNull("play_count", int64(0))
		require.NoError(t, err)
		defer filled.Release()

		filledCounts := intColumn(t, filled, "play_count")
		assert.Equal(t, int64(0), filledCounts.Value(4))
	})
}

func TestInnerJoin(t *testing.T) {
	mem := memory.NewGoAllocator()

	left := frame.New(
		series.New("id", []string{"a", "b", "c"}, mem),
		series.New("v", []int64{1, 2, 3}, mem),
	)
	defer left.Release()

	right := frame.New(
		series.New("id", []string{"b", "c"}, mem),
		series.New("w", []int64{20, 30}, mem),
	)
	defer right.Release()

	result, err := left.Join(right, frame.JoinOptions{Type: frame.InnerJoin, On: []string{"id"}})
	require.NoError(t, err)
	defer result.Release()

	assert.Equal(t, 2, result.Len())
	id := stringColumn(t, result, "id")
	assert.Equal(t, "b", id.Value(0))
	assert.Equal(t, "c", id.Value(1))
}

func TestJoinDuplicateRightKeys(t *testing.T) {
	mem := memory.NewGoAllocator()

	left := frame.New(series.New("id", []string{"a", "b"}, mem))
	defer left.Release()

	// Duplicate key rows on the right multiply matching left rows; callers
	// that must preserve cardinality deduplicate the right side first.
	right := frame.New(
		series.New("id", []string{"a", "a"}, mem),
		series.New("v", []int64{1, 2}, mem),
	)
	defer right.Release()

	result, err := left.Join(right, frame.JoinOptions{Type: frame.LeftJoin, On: []string{"id"}})
	require.NoError(t, err)
	defer result.Release()

	assert.Equal(t, 3, result.Len())

	deduped, err := right.DropDuplicates("id")
	require.NoError(t, err)
	defer deduped.Release()

	stable, err := left.Join(deduped, frame.JoinOptions{Type: frame.LeftJoin, On: []string{"id"}})
	require.NoError(t, err)
	defer stable.Release()

	assert.Equal(t, left.Len(), stable.Len())
}

func TestJoinColumnCollision(t *testing.T) {
	mem := memory.NewGoAllocator()

	left := frame.New(
		series.New("id", []string{"a"}, mem),
		series.New("name", []string{"left-name"}, mem),
	)
	defer left.Release()

	right := frame.New(
		series.New("id", []string{"a"}, mem),
		series.New("name", []string{"right-name"}, mem),
	)
	defer right.Release()

	result, err := left.Join(right, frame.JoinOptions{Type: frame.LeftJoin, On: []string{"id"}})
	require.NoError(t, err)
	defer result.Release()

	assert.Equal(t, []string{"id", "name", "name_right"}, result.Columns())
	name := stringColumn(t, result, "name")
	assert.Equal(t, "left-name", name.Value(0))
	renamed := stringColumn(t, result, "name_right")
	assert.Equal(t, "right-name", renamed.Value(0))
}

func TestJoinMultipleKeys(t *testing.T) {
	mem := memory.NewGoAllocator()

	left := frame.New(
		series.New("user_id", []string{"u1", "u1", "u2"}, mem),
		series.New("song_id", []string{"a", "b", "a"}, mem),
	)
	defer left.Release()

	right := frame.New(
		series.New("user_id", []string{"u1", "u2"}, mem),
		series.New("song_id", []string{"b", "a"}, mem),
		series.New("seen", []int64{1, 1}, mem),
	)
	defer right.Release()

	result, err := left.Join(right, frame.JoinOptions{
		Type: frame.LeftJoin,
		On:   []string{"user_id", "song_id"},
	})
	require.NoError(t, err)
	defer result.Release()

	require.Equal(t, 3, result.Len())
	seen := intColumn(t, result, "seen")
	assert.True(t, seen.IsNull(0))
	assert.Equal(t, int64(1), seen.Value(1))
	assert.Equal(t, int64(1), seen.Value(2))
}

func TestJoinErrors(t *testing.T) {
	mem := memory.NewGoAllocator()

	left := frame.New(series.New("id", []string{"a"}, mem))
	defer left.Release()

	t.Run("no join keys", func(t *testing.T) {
		right := frame.New(series.New("id", []string{"a"}, mem))
		defer right.Release()

		_, err := left.Join(right, frame.JoinOptions{Type: frame.LeftJoin})
		assert.Error(t, err)
	})

	t.Run("key missing on right", func(t *testing.T) {
		right := frame.New(series.New("other", []string{"a"}, mem))
		defer right.Release()

		_, err := left.Join(right, frame.JoinOptions{Type: frame.LeftJoin, On: []string{"id"}})
		assert.Error(t, err)
	})

	t.Run("key type mismatch", func(t *testing.T) {
		right := frame.New(series.New("id", []int64{1}, mem))
		defer right.Release()

		_, err := left.Join(right, frame.JoinOptions{Type: frame.LeftJoin, On: []string{"id"}})
		assert.Error(t, err)
	})
}

func TestJoinDeterministic(t *testing.T) {
	mem := memory.NewGoAllocator()

	left := frame.New(
		series.New("id", []string{"c", "a", "b", "a"}, mem),
		series.New("n", []int64{1, 2, 3, 4}, mem),
	)
	defer left.Release()

	right := frame.New(
		series.New("id", []string{"b", "a", "c"}, mem),
		series.New("v", []int64{20, 10, 30}, mem),
	)
	defer right.Release()

	first, err := left.Join(right, frame.JoinOptions{Type: frame.LeftJoin, On: []string{"id"}})
	require.NoError(t, err)
	defer first.Release()

	for i := 0; i < 10; i++ {
		again, err := left.Join(right, frame.JoinOptions{Type: frame.LeftJoin, On: []string{"id"}})
		require.NoError(t, err)
		assert.Equal(t, first.String(), again.String())
		again.Release()
	}
}
