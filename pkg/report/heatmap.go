package report

import (
	"sort"

	"github.com/fleetgauge/fleetgauge/pkg/types"
)

// Heatmap is the battery-by-month availability matrix behind the
// dashboard's heatmap and trend lines.
type Heatmap struct {
	Months    []types.Month `json:"months"`
	Batteries []string      `json:"batteries"`
	IDs       []string      `json:"ids"`
	// Cells[i][j] is battery i's availability in month j; nil means the
	// battery has no defined value for that month.
	Cells [][]*float64 `json:"cells"`
}

// BuildHeatmap lays the fleet's per-battery series out as a matrix over
// the union of their months. With excludeHighSOE it uses each battery's
// high-SOE-excluded series instead of the plain one.
func BuildHeatmap(r types.FleetReport, excludeHighSOE bool) Heatmap {
	seen := make(map[types.Month]bool)
	for _, b := range r.Batteries {
		for _, point := range heatmapSeries(b, excludeHighSOE) {
			seen[point.Month] = true
		}
	}
	months := make([]types.Month, 0, len(seen))
	for m := range seen {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	h := Heatmap{
		Months:    months,
		Batteries: make([]string, len(r.Batteries)),
		IDs:       make([]string, len(r.Batteries)),
		Cells:     make([][]*float64, len(r.Batteries)),
	}
	for i, b := range r.Batteries {
		h.Batteries[i] = b.Label
		h.IDs[i] = b.ID

		byMonth := make(map[types.Month]*float64)
		for _, point := range heatmapSeries(b, excludeHighSOE) {
			byMonth[point.Month] = point.Percent
		}
		row := make([]*float64, len(months))
		for j, m := range months {
			row[j] = byMonth[m]
		}
		h.Cells[i] = row
	}
	return h
}

func heatmapSeries(b types.BatteryReport, excludeHighSOE bool) types.MonthlySeries {
	if excludeHighSOE {
		return b.AvailabilityExclHighSOE
	}
	return b.Availability
}
