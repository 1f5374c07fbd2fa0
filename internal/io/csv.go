package io

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/paveg/reprise/internal/errors"
	"github.com/paveg/reprise/internal/frame"
	"github.com/paveg/reprise/internal/series"
)

const (
	trueStr  = "true"
	falseStr = "false"
	boolType = "bool"

	// dateLayout decodes YYYYMMDD digit columns
	dateLayout = "20060102"
)

// Read reads CSV data and returns a Frame. Empty cells become nulls; an
// integer column containing empty cells is promoted to float64 so the nulls
// survive without inventing zero values.
func (r *CSVReader) Read() (*frame.Frame, error) {
	csvReader := csv.NewReader(r.reader)
	csvReader.Comma = r.options.Delimiter
	csvReader.Comment = r.options.Comment
	csvReader.TrimLeadingSpace = r.options.SkipInitialSpace

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}

	if len(records) == 0 {
		return frame.New(), nil
	}

	var headers []string
	var dataRows [][]string

	if r.options.Header {
		headers = records[0]
		dataRows = records[1:]
	} else {
		numCols := len(records[0])
		headers = make([]string, numCols)
		for i := 0; i < numCols; i++ {
			headers[i] = fmt.Sprintf("column_%d", i)
		}
		dataRows = records
	}

	if len(dataRows) == 0 {
		var emptySeries []frame.ISeries
		for _, header := range headers {
			emptySeries = append(emptySeries, series.New(header, []string{}, r.mem))
		}
		return frame.New(emptySeries...), nil
	}

	// Transpose to columns for per-column type inference
	numCols := len(headers)
	columns := make([][]string, numCols)
	for i := 0; i < numCols; i++ {
		columns[i] = make([]string, len(dataRows))
		for j, row := range dataRows {
			if i < len(row) {
				columns[i][j] = row[i]
			} else {
				columns[i][j] = ""
			}
		}
	}

	dateColumns := make(map[string]bool, len(r.options.ParseDates))
	for _, name := range r.options.ParseDates {
		dateColumns[name] = true
	}

	var seriesList []frame.ISeries
	for i, header := range headers {
		var s frame.ISeries
		var err error
		if dateColumns[header] {
			s, err = r.createDateSeries(header, columns[i])
		} else {
			s = r.createSeriesFromStrings(header, columns[i])
		}
		if err != nil {
			return nil, fmt.Errorf("creating series for column %s: %w", header, err)
		}
		seriesList = append(seriesList, s)
	}

	return frame.New(seriesList...), nil
}

// createSeriesFromStrings creates a series from string data, inferring the type
func (r *CSVReader) createSeriesFromStrings(name string, data []string) frame.ISeries {
	switch r.inferDataType(data) {
	case boolType:
		return r.createBoolSeries(name, data)
	case "int":
		return r.createIntSeries(name, data)
	case "float":
		return r.createFloatSeries(name, data)
	default:
		return r.createStringSeries(name, data)
	}
}

// inferDataType determines the most appropriate data type for the given
// string data. Missing values disqualify bool and demote int to float.
func (r *CSVReader) inferDataType(data []string) string {
	canBeInt := true
	canBeFloat := true
	canBeBool := true
	hasValue := false
	hasMissing := false

	for _, value := range data {
		if value == "" {
			hasMissing = true
			continue
		}
		hasValue = true

		if canBeBool {
			lower := strings.ToLower(value)
			if lower != trueStr && lower != falseStr {
				canBeBool = false
			}
		}

		if canBeInt {
			if _, err := strconv.ParseInt(value, 10, 64); err != nil {
				canBeInt = false
			}
		}

		if canBeFloat {
			if _, err := strconv.ParseFloat(value, 64); err != nil {
				canBeFloat = false
			}
		}
	}

	// An entirely missing column stays a string column of nulls
	if !hasValue {
		return "string"
	}

	if canBeBool && !hasMissing {
		return boolType
	}
	if canBeInt {
		if hasMissing {
			return "float"
		}
		return "int"
	}
	if canBeFloat {
		return "float"
	}
	return "string"
}

func (r *CSVReader) createBoolSeries(name string, data []string) frame.ISeries {
	values := make([]bool, len(data))
	for i, value := range data {
		values[i] = strings.EqualFold(value, trueStr)
	}
	return series.New(name, values, r.mem)
}

func (r *CSVReader) createIntSeries(name string, data []string) frame.ISeries {
	values := make([]int64, len(data))
	for i, value := range data {
		val, _ := strconv.ParseInt(value, 10, 64)
		values[i] = val
	}
	return series.New(name, values, r.mem)
}

func (r *CSVReader) createFloatSeries(name string, data []string) frame.ISeries {
	values := make([]float64, len(data))
	valid := make([]bool, len(data))
	for i, value := range data {
		if value == "" {
			continue
		}
		val, _ := strconv.ParseFloat(value, 64)
		values[i] = val
		valid[i] = true
	}
	return series.NewNullable(name, values, valid, r.mem)
}

func (r *CSVReader) createStringSeries(name string, data []string) frame.ISeries {
	valid := make([]bool, len(data))
	for i, value := range data {
		valid[i] = value != ""
	}
	return series.NewNullable(name, data, valid, r.mem)
}

func (r *CSVReader) createDateSeries(name string, data []string) (frame.ISeries, error) {
	values := make([]arrow.Date32, len(data))
	valid := make([]bool, len(data))
	for i, value := range data {
		if value == "" {
			continue
		}
		t, err := time.Parse(dateLayout, value)
		if err != nil {
			return nil, errors.NewValidationError("read_csv", name,
				fmt.Sprintf("cannot parse %q as a YYYYMMDD date", value))
		}
		values[i] = arrow.Date32FromTime(t)
		valid[i] = true
	}
	return series.NewNullable(name, values, valid, r.mem), nil
}

// Write writes the Frame to CSV format. Nulls become empty cells; floats
// keep a trailing ".0" when integral so reloading them keeps the same type.
func (w *CSVWriter) Write(f *frame.Frame) error {
	csvWriter := csv.NewWriter(w.writer)
	csvWriter.Comma = w.options.Delimiter

	columns := f.Columns()
	if w.options.Header {
		if err := csvWriter.Write(columns); err != nil {
			return fmt.Errorf("writing headers: %w", err)
		}
	}

	arrays := make([]arrow.Array, len(columns))
	for j, name := range columns {
		col, _ := f.Column(name)
		arrays[j] = col.Array()
	}
	defer func() {
		for _, arr := range arrays {
			arr.Release()
		}
	}()

	row := make([]string, len(columns))
	for i := 0; i < f.Len(); i++ {
		for j, arr := range arrays {
			row[j] = cellValue(arr, i)
		}
		if err := csvWriter.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

// cellValue renders one array entry as a CSV cell
func cellValue(arr arrow.Array, index int) string {
	if arr.IsNull(index) {
		return ""
	}

	switch typedArr := arr.(type) {
	case *array.String:
		return typedArr.Value(index)
	case *array.Int64:
		return strconv.FormatInt(typedArr.Value(index), 10)
	case *array.Int32:
		return strconv.FormatInt(int64(typedArr.Value(index)), 10)
	case *array.Float64:
		return series.FormatFloat(typedArr.Value(index))
	case *array.Float32:
		return series.FormatFloat(float64(typedArr.Value(index)))
	case *array.Boolean:
		if typedArr.Value(index) {
			return trueStr
		}
		return falseStr
	case *array.Date32:
		return typedArr.Value(index).ToTime().Format("2006-01-02")
	default:
		return ""
	}
}
