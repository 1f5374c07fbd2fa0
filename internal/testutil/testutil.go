// Package testutil provides shared fixtures for pipeline tests: a memory
// context, mini versions of the raw tables, a fixture data directory, and
// frame assertions.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paveg/reprise/internal/frame"
	"github.com/paveg/reprise/internal/io"
	"github.com/paveg/reprise/internal/series"
)

const defaultRowCount = 4

// TestMemoryContext provides a memory allocator with automatic cleanup.
type TestMemoryContext struct {
	Allocator memory.Allocator
	cleanup   func()
}

// Release performs cleanup of the memory context.
func (tmc *TestMemoryContext) Release() {
	if tmc.cleanup != nil {
		tmc.cleanup()
	}
}

// SetupMemoryTest creates a memory allocator with automatic cleanup for
// tests. Returns a TestMemoryContext that should be released with defer.
func SetupMemoryTest(tb testing.TB) *TestMemoryContext {
	tb.Helper()
	return &TestMemoryContext{
		Allocator: memory.NewGoAllocator(),
		cleanup:   func() {},
	}
}

// EventsOption configures the fixture event table.
type EventsOption func(*eventsConfig)

type eventsConfig struct {
	rowCount     int
	includeNulls bool
	withTarget   bool
}

// WithRowCount sets the number of rows in the fixture event table.
func WithRowCount(count int) EventsOption {
	return func(cfg *eventsConfig) {
		cfg.rowCount = count
	}
}

// WithNulls leaves the listening-context columns of every fourth row empty.
func WithNulls() EventsOption {
	return func(cfg *eventsConfig) {
		cfg.includeNulls = true
	}
}

// WithoutTarget omits the outcome column, like a held-out event table.
func WithoutTarget() EventsOption {
	return func(cfg *eventsConfig) {
		cfg.withTarget = false
	}
}

// EventsFrame creates a fixture listening-event table with member and song
// keys, the three listening-context columns, and by default the outcome
// column.
func EventsFrame(allocator memory.Allocator, opts ...EventsOption) *frame.Frame {
	cfg := &eventsConfig{
		rowCount:   defaultRowCount,
		withTarget: true,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	members := cycle([]string{"u1", "u2", "u3"}, cfg.rowCount)
	songs := cycle([]string{"s1", "s2", "s3", "s4"}, cfg.rowCount)
	tabs := cycle([]string{"my library", "discover", "search", "my library"}, cfg.rowCount)
	screens := cycle([]string{"Local playlist more", "Explore", "Search", "My library"}, cfg.rowCount)
	types := cycle([]string{"local-library", "online-playlist", "song-based-playlist", "local-playlist"}, cfg.rowCount)

	columns := []frame.ISeries{
		series.New("msno", members, allocator),
		series.New("song_id", songs, allocator),
	}
	if cfg.includeNulls {
		valid := make([]bool, cfg.rowCount)
		for i := range valid {
			valid[i] = i%4 != 3
		}
		columns = append(columns,
			series.NewNullable("source_system_tab", tabs, valid, allocator),
			series.NewNullable("source_screen_name", screens, valid, allocator),
			series.NewNullable("source_type", types, valid, allocator),
		)
	} else {
		columns = append(columns,
			series.New("source_system_tab", tabs, allocator),
			series.New("source_screen_name", screens, allocator),
			series.New("source_type", types, allocator),
		)
	}
	if cfg.withTarget {
		columns = append(columns, series.New("target", cycle([]int64{1, 0, 1, 1}, cfg.rowCount), allocator))
	}
	return frame.New(columns...)
}

// MembersFrame creates a fixture member table with both date columns decoded.
func MembersFrame(allocator memory.Allocator) *frame.Frame {
	genders := []string{"female", "", "male"}
	genderValid := []bool{true, false, true}
	return frame.New(
		series.New("msno", []string{"u1", "u2", "u3"}, allocator),
		series.New("city", []int64{1, 13, 5}, allocator),
		series.New("bd", []int64{25, 0, 41}, allocator),
		series.NewNullable("gender", genders, genderValid, allocator),
		series.New("registered_via", []int64{7, 4, 9}, allocator),
		series.New("registration_init_time", []arrow.Date32{
			date(2011, 9, 11), date(2015, 1, 1), date(2013, 6, 20),
		}, allocator),
		series.New("expiration_date", []arrow.Date32{
			date(2017, 12, 30), date(2016, 1, 1), date(2017, 9, 5),
		}, allocator),
	)
}

// SongsFrame creates a fixture song catalog covering the keys EventsFrame
// cycles through.
func SongsFrame(allocator memory.Allocator) *frame.Frame {
	composers := []string{"Dan Smith", "", "", "Jay Chou"}
	composerValid := []bool{true, false, false, true}
	lyricists := []string{"", "", "", "Jay Chou"}
	lyricistValid := []bool{false, false, false, true}
	return frame.New(
		series.New("song_id", []string{"s1", "s2", "s3", "s4"}, allocator),
		series.New("song_length", []int64{200000, 250000, 180000, 431999}, allocator),
		series.New("genre_ids", []string{"465", "465|958", "921", "2022"}, allocator),
		series.New("artist_name", []string{"Bastille", "Adele feat. Sia", "Bastille", "Jay Chou"}, allocator),
		series.NewNullable("composer", composers, composerValid, allocator),
		series.NewNullable("lyricist", lyricists, lyricistValid, allocator),
		series.New("language", []float64{52.0, 17.0, 52.0, 3.0}, allocator),
	)
}

// SongExtraFrame creates a fixture provenance table for the same song keys.
func SongExtraFrame(allocator memory.Allocator) *frame.Frame {
	isrcs := []string{"GBARL1600123", "USSM11400001", "", "TWA530900001"}
	isrcValid := []bool{true, true, false, true}
	return frame.New(
		series.New("song_id", []string{"s1", "s2", "s3", "s4"}, allocator),
		series.New("name", []string{"Pompeii", "First", "Untitled", "Secret"}, allocator),
		series.NewNullable("isrc", isrcs, isrcValid, allocator),
	)
}

// Raw CSV fixtures matching the frames above, for end-to-end runs that load
// from disk.
var dataDirFiles = map[string]string{
	"train.csv": "msno,song_id,source_system_tab,source_screen_name,source_type,target\n" +
		"u1,s1,my library,Local playlist more,local-library,1\n" +
		"u2,s2,discover,Explore,online-playlist,0\n" +
		"u3,s3,search,Search,song-based-playlist,1\n" +
		"u1,s4,my library,My library,local-playlist,1\n",
	"test.csv": "id,msno,song_id,source_system_tab,source_screen_name,source_type\n" +
		"1,u2,s1,my library,My library,local-playlist\n" +
		"2,u3,s4,radio,Radio,radio\n",
	"songs.csv": "song_id,song_length,genre_ids,artist_name,composer,lyricist,language\n" +
		"s1,200000,465,Bastille,Dan Smith,,52\n" +
		"s2,250000,465|958,Adele feat. Sia,,,17\n" +
		"s3,180000,921,Bastille,,,52\n" +
		"s4,431999,2022,Jay Chou,Jay Chou,Jay Chou,3\n",
	"song_extra_info.csv": "song_id,name,isrc\n" +
		"s1,Pompeii,GBARL1600123\n" +
		"s2,First,USSM11400001\n" +
		"s3,Untitled,\n" +
		"s4,Secret,TWA530900001\n",
	"members.csv": "msno,city,bd,gender,registered_via,registration_init_time,expiration_date\n" +
		"u1,1,25,female,7,20110911,20171230\n" +
		"u2,13,0,,4,20150101,20160101\n" +
		"u3,5,41,male,9,20130620,20170905\n",
}

// WriteDataDir writes the five fixture CSVs into a fresh temporary directory
// and returns its path.
func WriteDataDir(tb testing.TB) string {
	tb.Helper()
	dir := tb.TempDir()
	for name, content := range dataDirFiles {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			tb.Fatalf("writing fixture %s: %v", name, err)
		}
	}
	return dir
}

// RenderCSV renders a frame to CSV text for textual comparisons.
func RenderCSV(tb testing.TB, f *frame.Frame) string {
	tb.Helper()
	var buf bytes.Buffer
	if err := io.NewCSVWriter(&buf, io.DefaultCSVOptions()).Write(f); err != nil {
		tb.Fatalf("rendering frame: %v", err)
	}
	return buf.String()
}

// AssertFrameEqual compares two frames by schema and rendered content.
func AssertFrameEqual(t *testing.T, expected, actual *frame.Frame) {
	t.Helper()

	require.NotNil(t, expected, "expected frame should not be nil")
	require.NotNil(t, actual, "actual frame should not be nil")

	assert.Equal(t, expected.Len(), actual.Len(), "frame lengths should match")
	assert.Equal(t, expected.Columns(), actual.Columns(), "frame columns should match")
	assert.Equal(t, RenderCSV(t, expected), RenderCSV(t, actual), "frame content should match")
}

// AssertFrameHasColumns verifies that a frame has exactly the given columns,
// in order.
func AssertFrameHasColumns(t *testing.T, f *frame.Frame, expected []string) {
	t.Helper()

	require.NotNil(t, f, "frame should not be nil")
	assert.Equal(t, expected, f.Columns())
}

// AssertNoNulls verifies that no column of the frame contains missing values.
func AssertNoNulls(t *testing.T, f *frame.Frame) {
	t.Helper()

	require.NotNil(t, f, "frame should not be nil")
	assert.Empty(t, f.NullCounts(), "frame should not contain missing values")
}

func cycle[T any](base []T, count int) []T {
	values := make([]T, count)
	for i := range values {
		values[i] = base[i%len(base)]
	}
	return values
}

func date(year int, month time.Month, day int) arrow.Date32 {
	return arrow.Date32FromTime(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}
