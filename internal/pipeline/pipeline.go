// Package pipeline runs the staged feature-engineering flow: raw CSV
// loading, per-table transforms with their merges, and the cross-table
// aggregation stage. The pipeline is an explicit value carrying the stage
// marker and the table references; each stage method returns the advanced
// value, so out-of-order invocation is checkable up front instead of
// surfacing as corrupt data later.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/paveg/reprise/internal/config"
	"github.com/paveg/reprise/internal/errors"
	"github.com/paveg/reprise/internal/frame"
	"github.com/paveg/reprise/internal/io"
	"github.com/paveg/reprise/internal/logging"
	"github.com/paveg/reprise/internal/parallel"
	"github.com/paveg/reprise/internal/process"
	"github.com/paveg/reprise/internal/validation"
)

// Input and output file names within the configured directories
const (
	trainFile     = "train.csv"
	testFile      = "test.csv"
	songsFile     = "songs.csv"
	songExtraFile = "song_extra_info.csv"
	membersFile   = "members.csv"

	trainFeaturesFile = "train_features.csv"
	testFeaturesFile  = "test_features.csv"
)

// StageReport records one completed stage for the run summary
type StageReport struct {
	Stage     string
	Duration  time.Duration
	TrainRows int
	TestRows  int
}

// Pipeline carries the stage marker and the table references through a run.
// Stage methods take the pipeline by value and return the advanced value;
// invoking a stage before its prerequisite is a StageOrderError. There is no
// rollback: a failed stage leaves the returned value where it stopped.
type Pipeline struct {
	cfg   config.Config
	runID string
	log   zerolog.Logger
	state State

	train     *frame.Frame
	test      *frame.Frame
	members   *frame.Frame
	songs     *frame.Frame
	songExtra *frame.Frame
	combined  *frame.Frame

	reports []StageReport
}

// New creates a pipeline in the INITIALIZED stage
func New(cfg config.Config) Pipeline {
	runID := uuid.NewString()
	return Pipeline{
		cfg:   cfg,
		runID: runID,
		log:   logging.With().Str("run_id", runID).Logger(),
		state: StateInitialized,
	}
}

// State returns the stage the pipeline has reached
func (p Pipeline) State() State { return p.state }

// RunID returns the identifier attached to this run's log context
func (p Pipeline) RunID() string { return p.runID }

// Train returns the train event table in its current shape
func (p Pipeline) Train() *frame.Frame { return p.train }

// Test returns the test event table in its current shape
func (p Pipeline) Test() *frame.Frame { return p.test }

// Members returns the members table in its current shape
func (p Pipeline) Members() *frame.Frame { return p.members }

// Songs returns the songs table in its current shape
func (p Pipeline) Songs() *frame.Frame { return p.songs }

// SongExtra returns the song-provenance table in its current shape
func (p Pipeline) SongExtra() *frame.Frame { return p.songExtra }

// Combined returns the statistics source for the final stage, nil before
// Preprocess
func (p Pipeline) Combined() *frame.Frame { return p.combined }

// Reports returns the per-stage summaries accumulated so far
func (p Pipeline) Reports() []StageReport { return p.reports }

func (p Pipeline) requireState(op string, required State) error {
	if p.state < required {
		return errors.NewStageOrderError(op, required.String(), p.state.String())
	}
	return nil
}

// Load reads the five raw tables from the data directory. The directory must
// exist; member date columns are decoded during the read. Files load through
// an errgroup bounded by the configured concurrency, one goroutine per table
// with a fixed destination, so the outcome never depends on scheduling.
func (p Pipeline) Load(ctx context.Context) (Pipeline, error) {
	if err := p.requireState("Load", StateInitialized); err != nil {
		return p, err
	}

	dir := p.cfg.Data.Dir
	info, err := os.Stat(dir)
	if err != nil {
		return p, fmt.Errorf("data directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return p, fmt.Errorf("data directory %s is not a directory", dir)
	}

	start := time.Now()
	mem := memory.NewGoAllocator()

	options := io.DefaultCSVOptions()
	memberOptions := options
	memberOptions.ParseDates = []string{"registration_init_time", "expiration_date"}

	loads := []struct {
		file    string
		options io.CSVOptions
		dest    **frame.Frame
	}{
		{trainFile, options, &p.train},
		{testFile, options, &p.test},
		{songsFile, options, &p.songs},
		{songExtraFile, options, &p.songExtra},
		{membersFile, memberOptions, &p.members},
	}

	g, gctx := errgroup.WithContext(ctx)
	limit := p.cfg.Parallel.LoadConcurrency
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)

	for _, load := range loads {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			loaded, err := io.ReadCSVFile(filepath.Join(dir, load.file), load.options, mem)
			if err != nil {
				return err
			}
			*load.dest = loaded
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return p, err
	}

	elapsed := time.Since(start)
	p.state = StateLoaded
	p.reports = append(p.reports, StageReport{
		Stage:     "load",
		Duration:  elapsed,
		TrainRows: p.train.Len(),
		TestRows:  p.test.Len(),
	})
	p.log.Info().
		Dur("elapsed", elapsed).
		Int("train_rows", p.train.Len()).
		Int("test_rows", p.test.Len()).
		Int("member_rows", p.members.Len()).
		Int("song_rows", p.songs.Len()).
		Int("song_extra_rows", p.songExtra.Len()).
		Msg("raw tables loaded")
	return p, nil
}

// Preprocess dispatches the five per-table transforms, merges provenance
// into songs and the enriched songs and members into both event tables, and
// concatenates the event tables into the combined statistics source. Every
// merge must keep the event-table row count; a reference table with
// duplicate keys is a CardinalityError.
func (p Pipeline) Preprocess(ctx context.Context) (Pipeline, error) {
	if err := p.requireState("Preprocess", StateLoaded); err != nil {
		return p, err
	}

	start := time.Now()

	var err error
	if p.cfg.Pipeline.CorrectedTestTransform {
		p, err = p.transformTablesCorrected(ctx)
	} else {
		p, err = p.transformTablesLegacy(ctx)
	}
	if err != nil {
		return p, err
	}

	if p.songs, err = mergeLeft("song_extra merge", p.songs, p.songExtra, "song_id"); err != nil {
		return p, err
	}
	if p.train, err = mergeLeft("songs merge", p.train, p.songs, "song_id"); err != nil {
		return p, err
	}
	if p.test, err = mergeLeft("songs merge", p.test, p.songs, "song_id"); err != nil {
		return p, err
	}
	if p.train, err = mergeLeft("members merge", p.train, p.members, "msno"); err != nil {
		return p, err
	}
	if p.test, err = mergeLeft("members merge", p.test, p.members, "msno"); err != nil {
		return p, err
	}

	if p.combined, err = concatShared(p.train, p.test); err != nil {
		return p, err
	}

	elapsed := time.Since(start)
	p.state = StatePreprocessed
	p.reports = append(p.reports, StageReport{
		Stage:     "preprocess",
		Duration:  elapsed,
		TrainRows: p.train.Len(),
		TestRows:  p.test.Len(),
	})
	p.log.Info().
		Dur("elapsed", elapsed).
		Int("train_columns", p.train.Width()).
		Int("combined_rows", p.combined.Len()).
		Msg("tables transformed and merged")
	return p, nil
}

// transformTablesLegacy dispatches the five transforms sequentially. The
// transform labeled "test" consumes the transformed train table rather than
// the test table; this reproduces the historical behavior and is announced
// loudly on every run.
func (p Pipeline) transformTablesLegacy(ctx context.Context) (Pipeline, error) {
	p.log.Warn().
		Msg("test transform reads the transformed train table (historical behavior); set corrected_test_transform to transform the test table itself")

	var err error
	if p.train, err = process.Dispatch(ctx, p.train, process.TrainCommand{}); err != nil {
		return p, err
	}
	if p.test, err = process.Dispatch(ctx, p.train, process.TestCommand{}); err != nil {
		return p, err
	}
	if p.members, err = process.Dispatch(ctx, p.members, process.MembersCommand{}); err != nil {
		return p, err
	}
	if p.songs, err = process.Dispatch(ctx, p.songs, process.SongsCommand{}); err != nil {
		return p, err
	}
	if p.songExtra, err = process.Dispatch(ctx, p.songExtra, process.SongExtraCommand{}); err != nil {
		return p, err
	}
	return p, nil
}

type transformJob struct {
	table   *frame.Frame
	command process.Command
}

// transformTablesCorrected dispatches the five transforms over the worker
// pool. They are mutually independent in this mode, and results come back in
// item order, so the outcome matches a sequential run.
func (p Pipeline) transformTablesCorrected(ctx context.Context) (Pipeline, error) {
	jobs := []transformJob{
		{p.train, process.TrainCommand{}},
		{p.test, process.TestCommand{}},
		{p.members, process.MembersCommand{}},
		{p.songs, process.SongsCommand{}},
		{p.songExtra, process.SongExtraCommand{}},
	}

	pool := parallel.NewWorkerPool(p.cfg.Parallel.WorkerPoolSize)
	defer pool.Close()

	results, err := parallel.ProcessIndexed(pool, jobs, func(_ int, job transformJob) (*frame.Frame, error) {
		return process.Dispatch(ctx, job.table, job.command)
	})
	if err != nil {
		return p, err
	}

	p.train, p.test, p.members, p.songs, p.songExtra = results[0], results[1], results[2], results[3], results[4]
	return p, nil
}

// Engineer derives the aggregate features: the train table against itself as
// reference, the test table against the combined table so the held-out rows
// get informative priors without reading their own outcomes.
func (p Pipeline) Engineer(ctx context.Context) (Pipeline, error) {
	if err := p.requireState("Engineer", StatePreprocessed); err != nil {
		return p, err
	}

	start := time.Now()

	train, err := process.Dispatch(ctx, p.train, process.EngineeringCommand{Reference: p.train})
	if err != nil {
		return p, err
	}
	p.train = train

	test, err := process.Dispatch(ctx, p.test, process.EngineeringCommand{Reference: p.combined})
	if err != nil {
		return p, err
	}
	p.test = test

	elapsed := time.Since(start)
	p.state = StateEngineered
	p.reports = append(p.reports, StageReport{
		Stage:     "engineer",
		Duration:  elapsed,
		TrainRows: p.train.Len(),
		TestRows:  p.test.Len(),
	})
	p.log.Info().
		Dur("elapsed", elapsed).
		Int("train_columns", p.train.Width()).
		Int("test_columns", p.test.Width()).
		Msg("aggregate features derived")
	return p, nil
}

// Export writes the engineered feature tables to the output directory
func (p Pipeline) Export() error {
	if err := p.requireState("Export", StateEngineered); err != nil {
		return err
	}

	options := io.DefaultCSVOptions()
	trainPath := filepath.Join(p.cfg.Data.OutputDir, trainFeaturesFile)
	if err := io.WriteCSVFile(trainPath, p.train, options); err != nil {
		return err
	}
	testPath := filepath.Join(p.cfg.Data.OutputDir, testFeaturesFile)
	if err := io.WriteCSVFile(testPath, p.test, options); err != nil {
		return err
	}

	p.log.Info().
		Str("train", trainPath).
		Str("test", testPath).
		Msg("feature tables exported")
	return nil
}

// Run executes the whole pipeline and exports the feature tables unless the
// configuration asks for a dry run
func Run(ctx context.Context, cfg config.Config) (Pipeline, error) {
	p := New(cfg)

	p, err := p.Load(ctx)
	if err != nil {
		return p, err
	}
	if p, err = p.Preprocess(ctx); err != nil {
		return p, err
	}
	if p, err = p.Engineer(ctx); err != nil {
		return p, err
	}

	if cfg.Pipeline.DryRun {
		p.log.Info().Msg("dry run, skipping export")
		return p, nil
	}
	return p, p.Export()
}

// mergeLeft left-joins right onto left and verifies the left row count
// survived the merge
func mergeLeft(op string, left, right *frame.Frame, key string) (*frame.Frame, error) {
	before := left.Len()
	merged, err := left.Join(right, frame.JoinOptions{Type: frame.LeftJoin, On: []string{key}})
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateCardinality(op, key, before, merged.Len()); err != nil {
		return nil, err
	}
	return merged, nil
}

// concatShared concatenates the two event tables over their shared columns.
// Under the historical mode the schemas are identical; in corrected mode the
// train-only outcome column and the test-only id column drop out, and no
// combined-table consumer reads either.
func concatShared(train, test *frame.Frame) (*frame.Frame, error) {
	var shared []string
	for _, name := range train.Columns() {
		if test.HasColumn(name) {
			shared = append(shared, name)
		}
	}
	return train.Select(shared...).Concat(test.Select(shared...))
}
