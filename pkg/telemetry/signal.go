// Package telemetry decodes per-battery long-format telemetry exports
// into wide, gap-filled time series frames.
package telemetry

import "math"

// Signal names a telemetry column. The CSV boundary is the only place
// raw strings become Signals; everything downstream uses the constants.
type Signal string

// Signals recognized by the analysis pipeline. Exports may carry
// additional signals; they are pivoted into columns but never
// interpreted.
const (
	// SignalEnergyRemaining is the energy left in the pack (Wh).
	SignalEnergyRemaining Signal = "EnergyRemaining"
	// SignalFullPackEnergyAvailable is the pack's current full capacity (Wh).
	SignalFullPackEnergyAvailable Signal = "FullPackEnergyAvailable"
	// SignalAvailableChargePower is the charge power the battery can
	// accept right now (W).
	SignalAvailableChargePower Signal = "AvailableChargePower"
	// SignalSOE is the derived state of energy (%). It is computed from
	// EnergyRemaining and FullPackEnergyAvailable, never read from an
	// export.
	SignalSOE Signal = "SOE"
)

// Undefined returns the in-frame marker for a cell with no value.
// Undefined cells are a data state, distinct from 0.
func Undefined() float64 {
	return math.NaN()
}

// Defined reports whether v holds a real value rather than the
// undefined marker.
func Defined(v float64) bool {
	return !math.IsNaN(v)
}
