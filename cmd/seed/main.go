package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fleetgauge/fleetgauge/pkg/log"
	"github.com/fleetgauge/fleetgauge/pkg/telemetry"
	"github.com/levenlabs/go-lflag"
)

// seed writes a synthetic fleet of long-format telemetry exports so a
// local run exercises the whole pipeline: gap fills, high-SOE
// exclusion, months with no usable rows, duplicate samples, and one
// deliberately broken export.
func main() {
	out := lflag.String("out", "testdata/fleet", "directory to write battery CSV exports into")
	batteries := lflag.Int("batteries", 5, "number of batteries to generate")
	months := lflag.Int("months", 6, "number of months of telemetry per battery")
	lflag.Configure()

	ctx := context.Background()

	if err := os.MkdirAll(*out, 0o755); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to create output directory", "error", err)
		os.Exit(1)
	}

	log.Ctx(ctx).InfoContext(ctx, "seeding synthetic fleet telemetry",
		"dir", *out, "batteries", *batteries, "months", *months)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	end := time.Now().UTC().Truncate(time.Hour)
	start := end.AddDate(0, -*months, 0)

	for i := 1; i <= *batteries; i++ {
		name := fmt.Sprintf("battery_%02d.csv", i)
		path := filepath.Join(*out, name)
		if err := writeBattery(path, start, end, rng); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to write export", "file", name, "error", err)
			os.Exit(1)
		}
		log.Ctx(ctx).InfoContext(ctx, "wrote export", "file", name)
	}
}

const (
	fullPackWH  = 13500.0
	maxChargeW  = 5000.0
	hoursPerDay = 24
)

func writeBattery(path string, start, end time.Time, rng *rand.Rand) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"timestamp", "signal_name", "signal_value"}); err != nil {
		return err
	}

	// each battery derates a little differently and has its own daily
	// cycling phase
	phase := rng.Float64() * 2 * math.Pi
	derate := 0.85 + rng.Float64()*0.15
	capacity := fullPackWH * (0.9 + rng.Float64()*0.1)

	// one multi-day dropout somewhere in the middle so forward-fill and
	// undefined months are exercised
	gapStart := start.Add(time.Duration(rng.Int63n(int64(end.Sub(start)))))
	gapEnd := gapStart.Add(time.Duration(2+rng.Intn(10)) * 24 * time.Hour)

	for t := start; t.Before(end); t = t.Add(time.Hour) {
		if t.After(gapStart) && t.Before(gapEnd) {
			continue
		}

		hour := float64(t.Hour())

		// daily SOE cycle: charge overnight, discharge through the
		// evening, with jitter
		soe := 55 + 40*math.Sin(2*math.Pi*hour/hoursPerDay+phase) + rng.Float64()*5
		if soe > 100 {
			soe = 100
		}
		if soe < 5 {
			soe = 5
		}
		remaining := capacity * soe / 100

		// charge power tapers as the pack fills and during derating
		// events; high-SOE rows frequently dip below the rated threshold
		power := maxChargeW * derate * (1 - 0.6*soe/100)
		if rng.Float64() < 0.05 {
			// transient derating event
			power *= 0.3
		}
		power += rng.Float64()*200 - 100

		ms := strconv.FormatInt(t.UnixMilli(), 10)
		rows := [][]string{
			{ms, string(telemetry.SignalAvailableChargePower), formatValue(power)},
			{ms, string(telemetry.SignalEnergyRemaining), formatValue(remaining)},
			{ms, string(telemetry.SignalFullPackEnergyAvailable), formatValue(capacity)},
		}

		// occasionally drop a signal so the loader's fills have work
		if rng.Float64() < 0.02 {
			rows = rows[:2]
		}
		// occasionally duplicate a sample; last write wins downstream
		if rng.Float64() < 0.01 {
			rows = append(rows, []string{ms, string(telemetry.SignalAvailableChargePower), formatValue(power * 0.9)})
		}

		for _, row := range rows {
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}

	w.Flush()
	return w.Error()
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
