package availability

import (
	"github.com/fleetgauge/fleetgauge/pkg/telemetry"
	"github.com/fleetgauge/fleetgauge/pkg/types"
)

// Monthly computes one battery's charge availability per UTC calendar
// month: the percentage of rows whose AvailableChargePower is at least
// p.RatedCapacityWatts.
//
// With p.ExcludeHighSOE set, rows above p.HighSOECutoffPercent are
// dropped before bucketing, as are rows whose SOE is undefined (their
// exclusion status cannot be decided); the frame must then carry an SOE
// column. Without it the SOE column is not consulted at all.
//
// The series covers every month from the first to the last surviving
// row with no gaps. A month inside that span with no surviving rows is
// present with a nil percentage: no data is not the same as 0%
// availability. No surviving rows at all yield an empty series.
func Monthly(f *telemetry.Frame, p types.AvailabilityParams) (types.MonthlySeries, error) {
	if err := f.Require(telemetry.SignalAvailableChargePower); err != nil {
		return nil, err
	}
	power, _ := f.Column(telemetry.SignalAvailableChargePower)

	var soe []float64
	if p.ExcludeHighSOE {
		if err := f.Require(telemetry.SignalSOE); err != nil {
			return nil, err
		}
		soe, _ = f.Column(telemetry.SignalSOE)
	}

	// Group rows by month
	type bucket struct {
		available int
		total     int
	}
	buckets := make(map[types.Month]*bucket)
	var first, last types.Month
	for i := 0; i < f.Len(); i++ {
		if p.ExcludeHighSOE && (!telemetry.Defined(soe[i]) || soe[i] > p.HighSOECutoffPercent) {
			continue
		}
		if !telemetry.Defined(power[i]) {
			continue
		}

		m := types.MonthOf(f.Time(i))
		b := buckets[m]
		if b == nil {
			b = &bucket{}
			buckets[m] = b
		}
		b.total++
		if power[i] >= p.RatedCapacityWatts {
			b.available++
		}

		if first.IsZero() || m.Before(first) {
			first = m
		}
		if last.IsZero() || m.After(last) {
			last = m
		}
	}
	if len(buckets) == 0 {
		return nil, nil
	}

	var out types.MonthlySeries
	for m := first; !m.After(last); m = m.Next() {
		point := types.MonthlyPoint{Month: m}
		if b := buckets[m]; b != nil {
			point.Percent = types.Float64(100 * float64(b.available) / float64(b.total))
		}
		out = append(out, point)
	}
	return out, nil
}
