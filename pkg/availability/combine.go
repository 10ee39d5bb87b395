package availability

import (
	"sort"

	"github.com/fleetgauge/fleetgauge/pkg/types"
)

// Combine merges per-battery monthly series into one fleet series with
// a point for every month present in any input, sorted ascending. Each
// point is the arithmetic mean of the defined values for that month;
// batteries with no point or an undefined point for a month are left
// out of that month's mean entirely, they never drag it toward 0. A
// month every battery left undefined stays undefined.
//
// Combining a single series returns an equal series, and combining
// identical series changes nothing.
func Combine(series []types.MonthlySeries) types.MonthlySeries {
	type agg struct {
		sum float64
		n   int
	}
	totals := make(map[types.Month]*agg)
	present := make(map[types.Month]bool)

	for _, s := range series {
		for _, point := range s {
			present[point.Month] = true
			if point.Percent == nil {
				continue
			}
			a := totals[point.Month]
			if a == nil {
				a = &agg{}
				totals[point.Month] = a
			}
			a.sum += *point.Percent
			a.n++
		}
	}
	if len(present) == 0 {
		return nil
	}

	months := make([]types.Month, 0, len(present))
	for m := range present {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	out := make(types.MonthlySeries, 0, len(months))
	for _, m := range months {
		point := types.MonthlyPoint{Month: m}
		if a := totals[m]; a != nil {
			point.Percent = types.Float64(a.sum / float64(a.n))
		}
		out = append(out, point)
	}
	return out
}
