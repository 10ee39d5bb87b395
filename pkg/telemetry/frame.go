package telemetry

import (
	"fmt"
	"time"
)

// Frame is a wide snapshot of one battery's telemetry: sorted unique
// timestamps crossed with named signal columns. Cells are float64 with
// Undefined() marking cells that have no value.
//
// Pipeline operations treat frames as immutable inputs: they return new
// frames instead of modifying the ones they were given. The mutating
// methods below exist for building a frame before it is handed off.
type Frame struct {
	times   []time.Time
	order   []Signal
	columns map[Signal][]float64
}

// NewFrame returns a frame over the given timestamps, which must be
// sorted ascending and unique.
func NewFrame(times []time.Time) *Frame {
	return &Frame{
		times:   times,
		columns: make(map[Signal][]float64),
	}
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.times)
}

// Time returns the timestamp of row i.
func (f *Frame) Time(i int) time.Time {
	return f.times[i]
}

// Times returns the frame's timestamps. The slice is shared with the
// frame and must not be modified.
func (f *Frame) Times() []time.Time {
	return f.times
}

// Signals returns the frame's columns in the order they first appeared.
func (f *Frame) Signals() []Signal {
	return f.order
}

// Has reports whether the frame carries the given signal.
func (f *Frame) Has(sig Signal) bool {
	_, ok := f.columns[sig]
	return ok
}

// Column returns the values of the given signal, one per row. The slice
// is shared with the frame and must not be modified.
func (f *Frame) Column(sig Signal) ([]float64, bool) {
	col, ok := f.columns[sig]
	return col, ok
}

// Require is the validation boundary for signal presence: it returns a
// MissingSignalError naming the first signal the frame does not carry.
func (f *Frame) Require(sigs ...Signal) error {
	for _, sig := range sigs {
		if _, ok := f.columns[sig]; !ok {
			return &MissingSignalError{Signal: sig}
		}
	}
	return nil
}

// SetColumn adds or replaces a column. It panics if vals does not have
// one value per row; that is a programming error, not a data state.
func (f *Frame) SetColumn(sig Signal, vals []float64) {
	if len(vals) != len(f.times) {
		panic(fmt.Sprintf("telemetry: column %q has %d values for %d rows", sig, len(vals), len(f.times)))
	}
	if _, ok := f.columns[sig]; !ok {
		f.order = append(f.order, sig)
	}
	f.columns[sig] = vals
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	out := &Frame{
		times:   append([]time.Time(nil), f.times...),
		order:   append([]Signal(nil), f.order...),
		columns: make(map[Signal][]float64, len(f.columns)),
	}
	for sig, col := range f.columns {
		out.columns[sig] = append([]float64(nil), col...)
	}
	return out
}

// ForwardFill replaces each undefined cell of the column with the
// nearest defined value above it. Cells before the first defined value
// stay undefined. Missing columns are left alone.
func (f *Frame) ForwardFill(sig Signal) {
	col, ok := f.columns[sig]
	if !ok {
		return
	}
	last := Undefined()
	for i, v := range col {
		if Defined(v) {
			last = v
		} else if Defined(last) {
			col[i] = last
		}
	}
}

// BackwardFill replaces each undefined cell of the column with the
// nearest defined value below it. Cells after the last defined value
// stay undefined. Missing columns are left alone.
func (f *Frame) BackwardFill(sig Signal) {
	col, ok := f.columns[sig]
	if !ok {
		return
	}
	next := Undefined()
	for i := len(col) - 1; i >= 0; i-- {
		if Defined(col[i]) {
			next = col[i]
		} else if Defined(next) {
			col[i] = next
		}
	}
}
