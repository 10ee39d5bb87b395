// Package report shapes analysis results into visualization-ready
// payloads: heatmap matrices, SOE distributions, box stats, and text
// tables for the one-shot CLI report.
package report

import (
	"math"
	"sort"

	"github.com/fleetgauge/fleetgauge/pkg/types"
)

// SOEHistogram bins SOE samples into fixed-width buckets aligned to
// multiples of binWidth, so the dashboard can draw the fleet's SOE
// distribution with the median marked. Undefined samples are skipped;
// with no usable samples the histogram is empty and the median nil.
func SOEHistogram(samples []float64, binWidth float64) types.SOEHistogram {
	if binWidth <= 0 {
		binWidth = 5
	}

	defined := make([]float64, 0, len(samples))
	for _, v := range samples {
		if !math.IsNaN(v) {
			defined = append(defined, v)
		}
	}
	if len(defined) == 0 {
		return types.SOEHistogram{BinWidth: binWidth}
	}
	sort.Float64s(defined)

	min, max := defined[0], defined[len(defined)-1]
	binStart := math.Floor(min/binWidth) * binWidth
	bins := int(math.Floor((max-binStart)/binWidth)) + 1

	counts := make([]int, bins)
	for _, v := range defined {
		i := int((v - binStart) / binWidth)
		// the max sample can land one past the end through rounding
		if i >= bins {
			i = bins - 1
		}
		counts[i]++
	}

	return types.SOEHistogram{
		BinStart: binStart,
		BinWidth: binWidth,
		Counts:   counts,
		Median:   types.Float64(quantile(defined, 0.5)),
		Count:    len(defined),
	}
}

// BoxStats summarizes samples for a box plot. Undefined samples are
// skipped; with no usable samples all fields are zero and Count is 0.
func BoxStats(samples []float64) types.BoxStats {
	defined := make([]float64, 0, len(samples))
	for _, v := range samples {
		if !math.IsNaN(v) {
			defined = append(defined, v)
		}
	}
	if len(defined) == 0 {
		return types.BoxStats{}
	}
	sort.Float64s(defined)

	return types.BoxStats{
		Min:    defined[0],
		Q1:     quantile(defined, 0.25),
		Median: quantile(defined, 0.5),
		Q3:     quantile(defined, 0.75),
		Max:    defined[len(defined)-1],
		Count:  len(defined),
	}
}

// quantile interpolates linearly between order statistics; sorted must
// be ascending and non-empty.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
