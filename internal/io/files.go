package io

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/reprise/internal/frame"
)

// ReadCSVFile reads the CSV file at path into a Frame
func ReadCSVFile(path string, options CSVOptions, mem memory.Allocator) (*frame.Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	f, err := NewCSVReader(file, options, mem).Read()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return f, nil
}

// WriteCSVFile writes the Frame to a CSV file at path, creating parent
// directories as needed
func WriteCSVFile(path string, f *frame.Frame, options CSVOptions) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	if err := NewCSVWriter(file, options).Write(f); err != nil {
		file.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return file.Close()
}
