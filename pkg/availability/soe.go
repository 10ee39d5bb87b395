// Package availability derives state of energy and monthly charge
// availability from telemetry frames, and combines per-battery results
// into fleet-level series.
package availability

import (
	"github.com/fleetgauge/fleetgauge/pkg/telemetry"
)

// WithSOE returns a copy of f with a derived SOE column:
// 100 * EnergyRemaining / FullPackEnergyAvailable per row, then
// forward-filled. The ratio is undefined wherever the denominator is 0
// or either operand is undefined, and rows before the first defined
// ratio stay undefined because there is nothing earlier to fill from.
// SOE is intentionally not clamped: out-of-range ratios surface bad
// telemetry instead of hiding it. f itself is not modified.
func WithSOE(f *telemetry.Frame) (*telemetry.Frame, error) {
	if err := f.Require(telemetry.SignalEnergyRemaining, telemetry.SignalFullPackEnergyAvailable); err != nil {
		return nil, err
	}
	remaining, _ := f.Column(telemetry.SignalEnergyRemaining)
	fullPack, _ := f.Column(telemetry.SignalFullPackEnergyAvailable)

	soe := make([]float64, f.Len())
	for i := range soe {
		num, den := remaining[i], fullPack[i]
		if !telemetry.Defined(num) || !telemetry.Defined(den) || den == 0 {
			soe[i] = telemetry.Undefined()
			continue
		}
		soe[i] = 100 * num / den
	}

	out := f.Clone()
	out.SetColumn(telemetry.SignalSOE, soe)
	out.ForwardFill(telemetry.SignalSOE)
	return out, nil
}
