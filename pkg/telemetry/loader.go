package telemetry

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Column names required in every telemetry export.
const (
	columnTimestamp   = "timestamp"
	columnSignalName  = "signal_name"
	columnSignalValue = "signal_value"
)

// record is one long-format row after parsing.
type record struct {
	ms     int64
	signal Signal
	value  float64
}

// Load decodes a long-format telemetry export into a wide Frame:
// rows are pivoted by timestamp and signal name, then every column is
// forward- and backward-filled so any signal with at least one
// observation has a value on every row.
//
// The header must contain the timestamp, signal_name and signal_value
// columns, in any order; extra columns are ignored. Timestamps are
// epoch milliseconds. When the same (timestamp, signal) pair occurs
// more than once the last row wins. Structural problems return a
// MalformedInputError.
func Load(r io.Reader) (*Frame, error) {
	return load(r, "")
}

// LoadFile opens path and decodes it with Load. The file handle is
// closed before returning, whether or not decoding succeeded.
func LoadFile(path string) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening telemetry export: %w", err)
	}
	defer f.Close()
	return load(f, filepath.Base(path))
}

func load(r io.Reader, name string) (*Frame, error) {
	records, err := decode(r, name)
	if err != nil {
		return nil, err
	}
	f := pivot(records)
	for _, sig := range f.Signals() {
		f.ForwardFill(sig)
		f.BackwardFill(sig)
	}
	return f, nil
}

func decode(r io.Reader, name string) ([]record, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &MalformedInputError{File: name, Reason: "empty file, no header row"}
	}
	if err != nil {
		return nil, &MalformedInputError{File: name, Reason: fmt.Sprintf("reading header: %v", err)}
	}
	// Some exports start with a UTF-8 BOM glued to the first header cell.
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}

	index := make(map[string]int, len(header))
	for i, col := range header {
		index[col] = i
	}
	tsIdx, ok := index[columnTimestamp]
	if !ok {
		return nil, missingColumn(name, columnTimestamp)
	}
	nameIdx, ok := index[columnSignalName]
	if !ok {
		return nil, missingColumn(name, columnSignalName)
	}
	valIdx, ok := index[columnSignalValue]
	if !ok {
		return nil, missingColumn(name, columnSignalValue)
	}

	var records []record
	line := 1 // header was line 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, &MalformedInputError{File: name, Line: line, Reason: fmt.Sprintf("reading row: %v", err)}
		}

		ms, err := strconv.ParseInt(row[tsIdx], 10, 64)
		if err != nil {
			return nil, &MalformedInputError{
				File:   name,
				Line:   line,
				Column: columnTimestamp,
				Reason: fmt.Sprintf("unparseable timestamp %q", row[tsIdx]),
			}
		}
		val, err := strconv.ParseFloat(row[valIdx], 64)
		if err != nil {
			return nil, &MalformedInputError{
				File:   name,
				Line:   line,
				Column: columnSignalValue,
				Reason: fmt.Sprintf("unparseable value %q", row[valIdx]),
			}
		}

		records = append(records, record{
			ms:     ms,
			signal: Signal(row[nameIdx]),
			value:  val,
		})
	}
	return records, nil
}

func missingColumn(name, col string) error {
	return &MalformedInputError{
		File:   name,
		Column: col,
		Reason: fmt.Sprintf("missing required column %q", col),
	}
}

// pivot turns long-format records into a wide frame. Timestamps become
// sorted unique rows; signals become columns in first-seen order; cells
// nobody reported stay undefined (until the caller fills them).
func pivot(records []record) *Frame {
	cells := make(map[int64]map[Signal]float64) // key by unix millis, time.Time doesn't hash cleanly
	seen := make(map[Signal]bool)
	var order []Signal

	for _, rec := range records {
		row, ok := cells[rec.ms]
		if !ok {
			row = make(map[Signal]float64)
			cells[rec.ms] = row
		}
		// last write wins on duplicate (timestamp, signal) pairs
		row[rec.signal] = rec.value
		if !seen[rec.signal] {
			seen[rec.signal] = true
			order = append(order, rec.signal)
		}
	}

	millis := make([]int64, 0, len(cells))
	for ms := range cells {
		millis = append(millis, ms)
	}
	sort.Slice(millis, func(i, j int) bool { return millis[i] < millis[j] })

	times := make([]time.Time, len(millis))
	for i, ms := range millis {
		times[i] = time.UnixMilli(ms).UTC()
	}

	f := NewFrame(times)
	for _, sig := range order {
		col := make([]float64, len(millis))
		for i, ms := range millis {
			if v, ok := cells[ms][sig]; ok {
				col[i] = v
			} else {
				col[i] = Undefined()
			}
		}
		f.SetColumn(sig, col)
	}
	return f
}
