package process_test

import (
	"context"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dferrors "github.com/paveg/reprise/internal/errors"
	"github.com/paveg/reprise/internal/frame"
	"github.com/paveg/reprise/internal/process"
	"github.com/paveg/reprise/internal/series"
)

// eventsInput builds a six-row event table. Row 3 has every source column
// missing; rows 1 and 6 share a listening context.
func eventsInput(t *testing.T, withTarget bool) *frame.Frame {
	t.Helper()
	mem := memory.NewGoAllocator()

	sourceValid := []bool{true, true, false, true, true, true}
	cols := []frame.ISeries{
		series.New("msno", []string{"u1", "u2", "u3", "u4", "u5", "u1"}, mem),
		series.New("song_id", []string{"s1", "s2", "s3", "s4", "s5", "s6"}, mem),
		series.NewNullable("source_system_tab",
			[]string{"my library", "discover", "", "my library", "search", "my library"}, sourceValid, mem),
		series.NewNullable("source_screen_name",
			[]string{"Local playlist more", "Explore", "", "My library", "Local playlist more", "Local playlist more"}, sourceValid, mem),
		series.NewNullable("source_type",
			[]string{"local-library", "online-playlist", "", "local-playlist", "song", "local-library"}, sourceValid, mem),
	}
	if withTarget {
		cols = append(cols, series.New("target", []int64{1, 0, 1, 0, 1, 1}, mem))
	}

	f := frame.New(cols...)
	t.Cleanup(f.Release)
	return f
}

func TestTransformEvents_FillsSourceColumns(t *testing.T) {
	input := eventsInput(t, true)

	result, err := process.TransformEvents(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"my library", "discover", "others", "my library", "search", "my library"},
		stringValues(t, result, "source_system_tab"))
	assert.Equal(t,
		[]string{"Local playlist more", "Explore", "others", "My library", "Local playlist more", "Local playlist more"},
		stringValues(t, result, "source_screen_name"))
	assert.Equal(t,
		[]string{"local-library", "online-playlist", "nan", "local-playlist", "song", "local-library"},
		stringValues(t, result, "source_type"))
	assert.Empty(t, result.NullCounts())
}

func TestTransformEvents_ContextFlags(t *testing.T) {
	input := eventsInput(t, true)

	result, err := process.TransformEvents(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 0, 0, 1, 0, 1}, intValues(t, result, "1h_system_tab"))
	assert.Equal(t, []int64{1, 0, 0, 1, 1, 1}, intValues(t, result, "1h_screen_name"))
	assert.Equal(t, []int64{1, 0, 0, 1, 0, 1}, intValues(t, result, "1h_source_type"))
}

func TestTransformEvents_ReplayFlagFromOwnOutcomes(t *testing.T) {
	input := eventsInput(t, true)

	result, err := process.TransformEvents(context.Background(), input)
	require.NoError(t, err)

	// Rows 1 and 6 share a context with outcomes 1,1; every other context is
	// a single row, so its flag is its own outcome.
	assert.Equal(t, []int64{1, 0, 1, 0, 1, 1}, intValues(t, result, "1h_source"))
}

func TestTransformEvents_ReplayThresholdBoundary(t *testing.T) {
	mem := memory.NewGoAllocator()

	tab := make([]string, 10)
	target := make([]int64, 10)
	for i := 0; i < 5; i++ {
		tab[i] = "radio"
	}
	copy(target, []int64{1, 1, 1, 0, 0}) // radio: 3/5 = 0.60
	for i := 5; i < 10; i++ {
		tab[i] = "discover"
	}
	copy(target[5:], []int64{1, 1, 0, 0, 0}) // discover: 2/5 = 0.40

	input := frame.New(
		series.New("msno", make([]string, 10), mem),
		series.New("song_id", make([]string, 10), mem),
		series.New("source_system_tab", tab, mem),
		series.New("source_screen_name", make([]string, 10), mem),
		series.New("source_type", make([]string, 10), mem),
		series.New("target", target, mem),
	)
	defer input.Release()

	result, err := process.TransformEvents(context.Background(), input)
	require.NoError(t, err)

	flags := intValues(t, result, "1h_source")
	assert.Equal(t, []int64{1, 1, 1, 1, 1}, flags[:5], "probability exactly at the threshold counts")
	assert.Equal(t, []int64{0, 0, 0, 0, 0}, flags[5:])
}

func TestTransformEvents_WithoutOutcomeColumn(t *testing.T) {
	input := eventsInput(t, false)

	result, err := process.TransformEvents(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, []int64{0, 0, 0, 0, 0, 0}, intValues(t, result, "1h_source"))
	assert.Empty(t, result.NullCounts())
}

func TestTransformEvents_DropsIntermediates(t *testing.T) {
	input := eventsInput(t, true)

	result, err := process.TransformEvents(context.Background(), input)
	require.NoError(t, err)

	assert.False(t, result.HasColumn("source_merged"))
	assert.False(t, result.HasColumn("source_replay_pb"))
	assert.False(t, result.HasColumn("source_replay_count"))
}

func TestTransformEvents_MissingColumn(t *testing.T) {
	mem := memory.NewGoAllocator()
	input := frame.New(
		series.New("msno", []string{"u1"}, mem),
		series.New("song_id", []string{"s1"}, mem),
	)
	defer input.Release()

	_, err := process.TransformEvents(context.Background(), input)
	require.Error(t, err)

	var frameErr *dferrors.FrameError
	require.ErrorAs(t, err, &frameErr)
	assert.Equal(t, "source_system_tab", frameErr.Column)
}

func TestTransformEvents_EmptyTable(t *testing.T) {
	input := frame.New()

	_, err := process.TransformEvents(context.Background(), input)
	require.Error(t, err)
}
