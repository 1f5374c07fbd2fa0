// Package reprise builds replay-prediction features from raw music
// streaming logs. This package is the sole public API: it exposes the
// column-oriented frame engine, CSV input/output, and the staged pipeline
// that turns the five raw tables into the two engineered feature tables.
package reprise

import (
	"context"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/paveg/reprise/internal/config"
	"github.com/paveg/reprise/internal/frame"
	"github.com/paveg/reprise/internal/io"
	"github.com/paveg/reprise/internal/pipeline"
	"github.com/paveg/reprise/internal/series"
)

// ISeries provides a type-erased interface for Series of any type
type ISeries interface {
	Name() string
	Len() int
	NullCount() int
	DataType() arrow.DataType
	IsNull(index int) bool
	String() string
	Array() arrow.Array
	Release()
	GetAsString(index int) string
}

// Frame is the public type for a table of named, equal-length columns.
// It wraps the internal frame.Frame to hide implementation details.
type Frame struct {
	f *frame.Frame
}

// GroupBy is the public type for grouped aggregation.
type GroupBy struct {
	gb *frame.GroupBy
}

// Aggregation is the public type for a single grouped aggregation.
type Aggregation struct {
	agg frame.Aggregation
}

// JoinType represents the type of join operation
type JoinType int

const (
	InnerJoin JoinType = iota
	LeftJoin
)

// JoinOptions specifies parameters for join operations. On names the key
// column(s) shared by both frames.
type JoinOptions struct {
	Type JoinType
	On   []string
}

// ColumnNulls records the missing-value count of a single column.
type ColumnNulls struct {
	Name  string
	Nulls int
}

// NewFrame creates a new Frame from ISeries.
func NewFrame(columns ...ISeries) *Frame {
	internalColumns := make([]frame.ISeries, len(columns))
	for i, c := range columns {
		internalColumns[i] = c
	}
	return &Frame{f: frame.New(internalColumns...)}
}

// NewSeries creates a new typed Series from values.
func NewSeries[T any](name string, values []T, mem memory.Allocator) ISeries {
	return series.New(name, values, mem)
}

// NewNullableSeries creates a new typed Series with a validity mask; entries
// whose mask is false are missing.
func NewNullableSeries[T any](name string, values []T, valid []bool, mem memory.Allocator) ISeries {
	return series.NewNullable(name, values, valid, mem)
}

// Frame methods

// Columns returns the column names in order.
func (d *Frame) Columns() []string {
	return d.f.Columns()
}

// Len returns the number of rows.
func (d *Frame) Len() int {
	return d.f.Len()
}

// Width returns the number of columns.
func (d *Frame) Width() int {
	return d.f.Width()
}

// Column returns the column with the given name.
func (d *Frame) Column(name string) (ISeries, bool) {
	return d.f.Column(name)
}

// HasColumn returns true if the Frame has the given column.
func (d *Frame) HasColumn(name string) bool {
	return d.f.HasColumn(name)
}

// Select returns a new Frame with only the specified columns. Names that do
// not exist are ignored.
func (d *Frame) Select(names ...string) *Frame {
	return &Frame{f: d.f.Select(names...)}
}

// Drop returns a new Frame without the specified columns. Names that do not
// exist are ignored.
func (d *Frame) Drop(names ...string) *Frame {
	return &Frame{f: d.f.Drop(names...)}
}

// WithColumn returns a new Frame with the column added, replacing any
// existing column of the same name in place.
func (d *Frame) WithColumn(column ISeries) (*Frame, error) {
	result, err := d.f.WithColumn(column)
	if err != nil {
		return nil, err
	}
	return &Frame{f: result}, nil
}

// FillNull returns a new Frame with missing values of the column replaced.
func (d *Frame) FillNull(column string, value interface{}) (*Frame, error) {
	result, err := d.f.FillNull(column, value)
	if err != nil {
		return nil, err
	}
	return &Frame{f: result}, nil
}

// NullCounts returns the columns that contain missing values.
func (d *Frame) NullCounts() []ColumnNulls {
	internal := d.f.NullCounts()
	if len(internal) == 0 {
		return nil
	}
	counts := make([]ColumnNulls, len(internal))
	for i, c := range internal {
		counts[i] = ColumnNulls{Name: c.Name, Nulls: c.Nulls}
	}
	return counts
}

// Concat appends the other frames below this one. All frames must share the
// same schema.
func (d *Frame) Concat(others ...*Frame) (*Frame, error) {
	internalFrames := make([]*frame.Frame, len(others))
	for i, other := range others {
		internalFrames[i] = other.f
	}
	result, err := d.f.Concat(internalFrames...)
	if err != nil {
		return nil, err
	}
	return &Frame{f: result}, nil
}

// Join performs a join operation with another Frame.
func (d *Frame) Join(right *Frame, options JoinOptions) (*Frame, error) {
	result, err := d.f.Join(right.f, frame.JoinOptions{
		Type: frame.JoinType(options.Type),
		On:   options.On,
	})
	if err != nil {
		return nil, err
	}
	return &Frame{f: result}, nil
}

// GroupBy starts a grouped aggregation over the given key columns.
func (d *Frame) GroupBy(columns ...string) (*GroupBy, error) {
	gb, err := d.f.GroupBy(columns...)
	if err != nil {
		return nil, err
	}
	return &GroupBy{gb: gb}, nil
}

// ValueCounts returns one row per distinct value of the column with its
// occurrence count.
func (d *Frame) ValueCounts(column, countName string) (*Frame, error) {
	result, err := d.f.ValueCounts(column, countName)
	if err != nil {
		return nil, err
	}
	return &Frame{f: result}, nil
}

// DropDuplicates returns a new Frame keeping the first row of each distinct
// key. An empty subset means all columns form the key.
func (d *Frame) DropDuplicates(subset ...string) (*Frame, error) {
	result, err := d.f.DropDuplicates(subset...)
	if err != nil {
		return nil, err
	}
	return &Frame{f: result}, nil
}

// String returns a string representation of the Frame.
func (d *Frame) String() string {
	return d.f.String()
}

// Release frees the memory used by the Frame.
func (d *Frame) Release() {
	d.f.Release()
}

// GroupBy methods

// Agg computes the aggregations and returns one row per group.
func (gb *GroupBy) Agg(aggregations ...Aggregation) (*Frame, error) {
	internalAggs := make([]frame.Aggregation, len(aggregations))
	for i, agg := range aggregations {
		internalAggs[i] = agg.agg
	}
	result, err := gb.gb.Agg(internalAggs...)
	if err != nil {
		return nil, err
	}
	return &Frame{f: result}, nil
}

// Aggregation factory functions

// Count counts non-missing values of the column per group.
func Count(column string) Aggregation {
	return Aggregation{agg: frame.Count(column)}
}

// Sum sums the column per group.
func Sum(column string) Aggregation {
	return Aggregation{agg: frame.Sum(column)}
}

// Mean averages the column per group.
func Mean(column string) Aggregation {
	return Aggregation{agg: frame.Mean(column)}
}

// Min takes the per-group minimum of the column.
func Min(column string) Aggregation {
	return Aggregation{agg: frame.Min(column)}
}

// Max takes the per-group maximum of the column.
func Max(column string) Aggregation {
	return Aggregation{agg: frame.Max(column)}
}

// As renames the aggregation's result column.
func (a Aggregation) As(alias string) Aggregation {
	return Aggregation{agg: a.agg.As(alias)}
}

// CSV input/output

// CSVOptions contains configuration options for CSV operations
type CSVOptions struct {
	// Delimiter is the field delimiter (default: comma)
	Delimiter rune
	// Header indicates whether the first row contains headers
	Header bool
	// ParseDates names columns holding YYYYMMDD digits to decode as dates
	ParseDates []string
}

// DefaultCSVOptions returns default CSV options
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{
		Delimiter: ',',
		Header:    true,
	}
}

func (o CSVOptions) internal() io.CSVOptions {
	options := io.DefaultCSVOptions()
	options.Delimiter = o.Delimiter
	options.Header = o.Header
	options.ParseDates = o.ParseDates
	return options
}

// ReadCSV reads a CSV file into a Frame with automatic type inference.
func ReadCSV(path string, options CSVOptions, mem memory.Allocator) (*Frame, error) {
	f, err := io.ReadCSVFile(path, options.internal(), mem)
	if err != nil {
		return nil, err
	}
	return &Frame{f: f}, nil
}

// WriteCSV writes a Frame to a CSV file, creating parent directories as
// needed.
func WriteCSV(path string, f *Frame, options CSVOptions) error {
	return io.WriteCSVFile(path, f.f, options.internal())
}

// Pipeline surface

// RunOptions configures a pipeline run.
type RunOptions struct {
	// DataDir holds the five raw tables
	DataDir string
	// OutputDir receives the engineered feature tables
	OutputDir string
	// CorrectedTestTransform transforms the test table itself instead of
	// reproducing the historical behavior of re-reading the transformed
	// train table
	CorrectedTestTransform bool
	// DryRun skips writing the output tables
	DryRun bool
	// LoadConcurrency bounds concurrent CSV loads (0 = sequential)
	LoadConcurrency int
	// WorkerPoolSize sizes the transform worker pool (0 = CPU count)
	WorkerPoolSize int
}

// StageReport records one completed pipeline stage.
type StageReport struct {
	Stage     string
	Duration  time.Duration
	TrainRows int
	TestRows  int
}

// PipelineResult exposes the tables and reports of a finished run.
type PipelineResult struct {
	p pipeline.Pipeline
}

// RunPipeline executes the staged pipeline: load the five raw tables,
// transform and merge them, derive the aggregate features, and export the
// train and test feature tables unless DryRun is set.
func RunPipeline(ctx context.Context, opts RunOptions) (*PipelineResult, error) {
	cfg := config.NewConfig()
	if opts.DataDir != "" {
		cfg.Data.Dir = opts.DataDir
	}
	if opts.OutputDir != "" {
		cfg.Data.OutputDir = opts.OutputDir
	}
	cfg.Pipeline.CorrectedTestTransform = opts.CorrectedTestTransform
	cfg.Pipeline.DryRun = opts.DryRun
	cfg.Parallel.LoadConcurrency = opts.LoadConcurrency
	cfg.Parallel.WorkerPoolSize = opts.WorkerPoolSize

	p, err := pipeline.Run(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &PipelineResult{p: p}, nil
}

// RunID returns the identifier attached to the run's log context.
func (r *PipelineResult) RunID() string {
	return r.p.RunID()
}

// Train returns the engineered train feature table.
func (r *PipelineResult) Train() *Frame {
	return &Frame{f: r.p.Train()}
}

// Test returns the engineered test feature table.
func (r *PipelineResult) Test() *Frame {
	return &Frame{f: r.p.Test()}
}

// Reports returns the per-stage summaries of the run.
func (r *PipelineResult) Reports() []StageReport {
	internal := r.p.Reports()
	reports := make([]StageReport, len(internal))
	for i, rep := range internal {
		reports[i] = StageReport{
			Stage:     rep.Stage,
			Duration:  rep.Duration,
			TrainRows: rep.TrainRows,
			TestRows:  rep.TestRows,
		}
	}
	return reports
}
