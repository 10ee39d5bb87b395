package types

import (
	"time"
)

// CurrentReportVersion is the current version of the stored FleetReport blob.
const CurrentReportVersion = 1

// DefaultRatedCapacityWatts is the charge power a battery must offer to
// count as available, unless overridden.
const DefaultRatedCapacityWatts = 3300

// DefaultHighSOECutoffPercent is the SOE above which rows are dropped
// when high-SOE exclusion is enabled.
const DefaultHighSOECutoffPercent = 90

// AvailabilityParams control the charge availability calculation. They
// are passed explicitly through every call, never read from package state.
type AvailabilityParams struct {
	// Minimum AvailableChargePower (in W) for a row to count as available.
	RatedCapacityWatts float64 `json:"ratedCapacityWatts"`
	// Drop rows above HighSOECutoffPercent before bucketing.
	ExcludeHighSOE bool `json:"excludeHighSOE"`
	// SOE percentage above which rows are dropped when ExcludeHighSOE is set.
	HighSOECutoffPercent float64 `json:"highSOECutoffPercent"`
}

// DefaultAvailabilityParams returns the stock parameters: 3300 W rated
// capacity, no high-SOE exclusion, 90% cutoff.
func DefaultAvailabilityParams() AvailabilityParams {
	return AvailabilityParams{
		RatedCapacityWatts:   DefaultRatedCapacityWatts,
		ExcludeHighSOE:       false,
		HighSOECutoffPercent: DefaultHighSOECutoffPercent,
	}
}

// MonthlyPoint is one month of an availability series. A nil Percent
// means the month had no usable rows; that is a data state distinct
// from an availability of 0.
type MonthlyPoint struct {
	Month   Month    `json:"month"`
	Percent *float64 `json:"percent"`
}

// Defined reports whether the point carries a value.
func (p MonthlyPoint) Defined() bool {
	return p.Percent != nil
}

// MonthlySeries is an ordered run of calendar months with no gaps:
// months inside the span that had no rows are present with a nil
// Percent rather than omitted.
type MonthlySeries []MonthlyPoint

// Percent returns the value for month m. The second return is false if
// the month is outside the series or undefined.
func (s MonthlySeries) Percent(m Month) (float64, bool) {
	for _, p := range s {
		if p.Month == m && p.Percent != nil {
			return *p.Percent, true
		}
	}
	return 0, false
}

// Since returns the points at or after m. The result shares backing
// storage with s.
func (s MonthlySeries) Since(m Month) MonthlySeries {
	for i, p := range s {
		if !p.Month.Before(m) {
			return s[i:]
		}
	}
	return nil
}

// DefinedCount returns how many points carry a value.
func (s MonthlySeries) DefinedCount() int {
	var n int
	for _, p := range s {
		if p.Percent != nil {
			n++
		}
	}
	return n
}

// Float64 returns a pointer to v, for optional JSON fields.
func Float64(v float64) *float64 {
	return &v
}

// BoxStats summarize a sample distribution for box plots. Quartiles use
// linear interpolation between order statistics.
type BoxStats struct {
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
	Count  int     `json:"count"`
}

// SOEHistogram is the pooled SOE distribution across the fleet.
type SOEHistogram struct {
	// BinStart is the left edge of the first bin.
	BinStart float64 `json:"binStart"`
	BinWidth float64 `json:"binWidth"`
	Counts   []int   `json:"counts"`
	// Median is nil when there were no samples.
	Median *float64 `json:"median"`
	Count  int      `json:"count"`
}

// BatteryReport is the analysis output for a single battery.
type BatteryReport struct {
	// ID is the URL/document-safe slug of the label.
	ID    string `json:"id"`
	Label string `json:"label"`
	// SourceFile is the base name of the telemetry export this battery
	// was read from.
	SourceFile string `json:"sourceFile"`
	// Availability is the monthly charge availability over all rows.
	Availability MonthlySeries `json:"availability"`
	// AvailabilityExclHighSOE is the same calculation with rows above
	// the high-SOE cutoff dropped first.
	AvailabilityExclHighSOE MonthlySeries `json:"availabilityExclHighSOE"`
	// SOE summarizes the battery's state-of-energy samples.
	SOE BoxStats `json:"soe"`
}

// BatteryFailure records a battery whose pipeline failed. The fleet run
// continues without it; the failure is surfaced instead of the series.
type BatteryFailure struct {
	BatteryID string `json:"batteryID"`
	File      string `json:"file"`
	Reason    string `json:"reason"`
}

// FleetReport is one full analysis over the fleet's telemetry exports.
type FleetReport struct {
	GeneratedAt time.Time          `json:"generatedAt"`
	Params      AvailabilityParams `json:"params"`
	Batteries   []BatteryReport    `json:"batteries"`
	// Combined averages the per-battery series month by month. Batteries
	// undefined for a month are left out of that month's mean.
	Combined        MonthlySeries    `json:"combined"`
	SOEDistribution SOEHistogram     `json:"soeDistribution"`
	Failures        []BatteryFailure `json:"failures,omitempty"`
}

// Battery returns the report for the battery with the given ID.
func (r FleetReport) Battery(id string) (BatteryReport, bool) {
	for _, b := range r.Batteries {
		if b.ID == id {
			return b, true
		}
	}
	return BatteryReport{}, false
}
