package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fleetgauge/fleetgauge/pkg/types"
)

// undefinedCell is how months without data render; printing 0.0 would
// claim an availability nobody measured.
const undefinedCell = "--"

// WriteMonthlyTable renders one monthly series as a box-drawn table.
func WriteMonthlyTable(w io.Writer, title string, s types.MonthlySeries) {
	fmt.Fprintf(w, "%s\n", title)
	if len(s) == 0 {
		fmt.Fprintln(w, "  (no data)")
		return
	}

	fmt.Fprintln(w, "┌─────────┬──────────────┐")
	fmt.Fprintln(w, "│  Month  │ Availability │")
	fmt.Fprintln(w, "├─────────┼──────────────┤")
	for _, point := range s {
		fmt.Fprintf(w, "│ %7s │ %12s │\n", point.Month, cell(point.Percent))
	}
	fmt.Fprintln(w, "└─────────┴──────────────┘")
}

// WriteFleetTable renders the fleet matrix: one row per month of the
// heatmap, one column per battery, plus the combined series.
func WriteFleetTable(w io.Writer, r types.FleetReport) {
	h := BuildHeatmap(r, r.Params.ExcludeHighSOE)
	if len(h.Months) == 0 && len(r.Combined) == 0 {
		fmt.Fprintln(w, "(no data)")
		return
	}

	combined := make(map[types.Month]*float64, len(r.Combined))
	for _, point := range r.Combined {
		combined[point.Month] = point.Percent
	}

	headers := append([]string{"Month"}, h.Batteries...)
	headers = append(headers, "Combined")

	widths := make([]int, len(headers))
	for i, header := range headers {
		widths[i] = len([]rune(header))
		if widths[i] < 7 {
			widths[i] = 7
		}
	}

	border := func(left, mid, right string) string {
		parts := make([]string, len(widths))
		for i, width := range widths {
			parts[i] = strings.Repeat("─", width+2)
		}
		return left + strings.Join(parts, mid) + right
	}

	row := func(cells []string) string {
		parts := make([]string, len(cells))
		for i, c := range cells {
			parts[i] = fmt.Sprintf(" %*s ", widths[i], c)
		}
		return "│" + strings.Join(parts, "│") + "│"
	}

	fmt.Fprintln(w, border("┌", "┬", "┐"))
	fmt.Fprintln(w, row(headers))
	fmt.Fprintln(w, border("├", "┼", "┤"))
	for j, m := range h.Months {
		cells := make([]string, 0, len(headers))
		cells = append(cells, m.String())
		for i := range h.Batteries {
			cells = append(cells, cell(h.Cells[i][j]))
		}
		cells = append(cells, cell(combined[m]))
		fmt.Fprintln(w, row(cells))
	}
	fmt.Fprintln(w, border("└", "┴", "┘"))
}

// WriteSOETable renders per-battery SOE box stats.
func WriteSOETable(w io.Writer, r types.FleetReport) {
	fmt.Fprintln(w, "SOE distribution per battery")
	if len(r.Batteries) == 0 {
		fmt.Fprintln(w, "  (no data)")
		return
	}

	width := 7
	for _, b := range r.Batteries {
		if len([]rune(b.Label)) > width {
			width = len([]rune(b.Label))
		}
	}

	bar := strings.Repeat("─", width+2)
	fmt.Fprintf(w, "┌%s┬─────────┬─────────┬─────────┬─────────┬─────────┐\n", bar)
	fmt.Fprintf(w, "│ %*s │     Min │      Q1 │  Median │      Q3 │     Max │\n", width, "Battery")
	fmt.Fprintf(w, "├%s┼─────────┼─────────┼─────────┼─────────┼─────────┤\n", bar)
	for _, b := range r.Batteries {
		fmt.Fprintf(w, "│ %*s │ %7.1f │ %7.1f │ %7.1f │ %7.1f │ %7.1f │\n",
			width, b.Label, b.SOE.Min, b.SOE.Q1, b.SOE.Median, b.SOE.Q3, b.SOE.Max)
	}
	fmt.Fprintf(w, "└%s┴─────────┴─────────┴─────────┴─────────┴─────────┘\n", bar)
}

func cell(v *float64) string {
	if v == nil {
		return undefinedCell
	}
	return fmt.Sprintf("%.1f%%", *v)
}
