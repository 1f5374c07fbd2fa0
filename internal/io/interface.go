// Package io provides table input/output for the pipeline.
//
// The primary format is CSV with automatic type inference: a column whose
// non-missing values all parse as integers becomes int64, unless it also
// contains missing values, in which case it is promoted to float64 so the
// missing entries stay representable as nulls. Columns named in ParseDates
// are decoded from YYYYMMDD digits into date32 values.
//
// Memory management: readers allocate through the provided Arrow allocator
// and returned frames must be released by the caller.
package io

import (
	"io"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/reprise/internal/frame"
)

// DataReader defines the interface for reading tables from a source
type DataReader interface {
	// Read reads data from the source and returns a Frame
	Read() (*frame.Frame, error)
}

// DataWriter defines the interface for writing tables to a destination
type DataWriter interface {
	// Write writes the Frame to the destination
	Write(f *frame.Frame) error
}

// CSVOptions contains configuration options for CSV operations
type CSVOptions struct {
	// Delimiter is the field delimiter (default: comma)
	Delimiter rune
	// Comment is the comment character (default: 0 = disabled)
	Comment rune
	// Header indicates whether the first row contains headers
	Header bool
	// SkipInitialSpace indicates whether to skip initial whitespace
	SkipInitialSpace bool
	// ParseDates names columns holding YYYYMMDD digits to decode as dates
	ParseDates []string
}

// DefaultCSVOptions returns default CSV options
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{
		Delimiter:        ',',
		Comment:          0,
		Header:           true,
		SkipInitialSpace: false,
	}
}

// CSVReader reads CSV data and converts it to Frames
type CSVReader struct {
	reader  io.Reader
	options CSVOptions
	mem     memory.Allocator
}

// NewCSVReader creates a new CSV reader with the specified options
func NewCSVReader(reader io.Reader, options CSVOptions, mem memory.Allocator) *CSVReader {
	return &CSVReader{
		reader:  reader,
		options: options,
		mem:     mem,
	}
}

// CSVWriter writes Frames to CSV format
type CSVWriter struct {
	writer  io.Writer
	options CSVOptions
}

// NewCSVWriter creates a new CSV writer with the specified options
func NewCSVWriter(writer io.Writer, options CSVOptions) *CSVWriter {
	return &CSVWriter{
		writer:  writer,
		options: options,
	}
}
