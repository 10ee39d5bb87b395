// Package fleet runs the telemetry pipeline across every battery
// export in a directory and assembles the combined fleet report.
package fleet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/levenlabs/go-lflag"

	"github.com/fleetgauge/fleetgauge/pkg/availability"
	"github.com/fleetgauge/fleetgauge/pkg/log"
	"github.com/fleetgauge/fleetgauge/pkg/report"
	"github.com/fleetgauge/fleetgauge/pkg/telemetry"
	"github.com/fleetgauge/fleetgauge/pkg/types"
)

// ErrNoTelemetryDir is returned by Run when no telemetry directory was
// configured. Callers can fall back to a previously stored report.
var ErrNoTelemetryDir = errors.New("no telemetry directory configured")

// Analyzer turns a directory of per-battery CSV exports into a
// FleetReport. Files are discovered on every Run so a refresh picks up
// new exports without restarting.
type Analyzer struct {
	dir      string
	defaults types.AvailabilityParams
}

// Configured returns an Analyzer wired from flags. Call lflag.Configure
// before using it.
func Configured() *Analyzer {
	a := &Analyzer{}
	dir := lflag.String("telemetry-dir", "", "Directory of per-battery telemetry CSV exports (one battery per file)")
	params := types.DefaultAvailabilityParams()
	lflag.JSON(&params, "availability-params", params, "JSON availability parameters (ratedCapacityWatts, excludeHighSOE, highSOECutoffPercent)")
	lflag.Do(func() {
		a.dir = *dir
		a.defaults = params
	})
	return a
}

// NewAnalyzer returns an Analyzer for the given directory, outside the
// flag lifecycle. Tests and the seed tool use this.
func NewAnalyzer(dir string, defaults types.AvailabilityParams) *Analyzer {
	return &Analyzer{dir: dir, defaults: defaults}
}

// DefaultParams returns the flag-provided analysis parameters, used
// until settings have been stored.
func (a *Analyzer) DefaultParams() types.AvailabilityParams {
	return a.defaults
}

// HasDir reports whether a telemetry directory was configured.
func (a *Analyzer) HasDir() bool {
	return a.dir != ""
}

// Run analyzes every CSV export in the telemetry directory and returns
// the fleet report. A battery that fails to analyze is logged, recorded
// in Failures and omitted from every series; it never aborts the other
// batteries. Only directory-level problems return an error.
func (a *Analyzer) Run(ctx context.Context, params types.AvailabilityParams, soeBinWidth float64) (types.FleetReport, error) {
	if a.dir == "" {
		return types.FleetReport{}, ErrNoTelemetryDir
	}

	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return types.FleetReport{}, fmt.Errorf("reading telemetry directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}
		files = append(files, entry.Name())
	}
	// battery order follows file name order
	sort.Strings(files)

	out := types.FleetReport{
		GeneratedAt: time.Now().UTC().Truncate(time.Second),
		Params:      params,
	}

	var configured []types.MonthlySeries
	var pooledSOE []float64
	for _, name := range files {
		battery, soeSamples, err := a.runBattery(ctx, filepath.Join(a.dir, name), params)
		if err != nil {
			log.Ctx(ctx).WarnContext(
				ctx,
				"battery analysis failed, continuing with the rest of the fleet",
				slog.String("file", name),
				slog.Any("error", err),
			)
			out.Failures = append(out.Failures, types.BatteryFailure{
				BatteryID: batteryID(name),
				File:      name,
				Reason:    err.Error(),
			})
			continue
		}

		out.Batteries = append(out.Batteries, battery)
		pooledSOE = append(pooledSOE, soeSamples...)
		if params.ExcludeHighSOE {
			configured = append(configured, battery.AvailabilityExclHighSOE)
		} else {
			configured = append(configured, battery.Availability)
		}
	}

	out.Combined = availability.Combine(configured)
	out.SOEDistribution = report.SOEHistogram(pooledSOE, soeBinWidth)

	log.Ctx(ctx).InfoContext(
		ctx,
		"fleet analysis finished",
		slog.Int("batteries", len(out.Batteries)),
		slog.Int("failures", len(out.Failures)),
		slog.Int("soeSamples", len(pooledSOE)),
	)
	return out, nil
}

// runBattery is the per-battery pipeline: load and pivot the export,
// derive SOE, then compute both availability variants.
func (a *Analyzer) runBattery(ctx context.Context, path string, params types.AvailabilityParams) (types.BatteryReport, []float64, error) {
	frame, err := telemetry.LoadFile(path)
	if err != nil {
		return types.BatteryReport{}, nil, err
	}

	frame, err = availability.WithSOE(frame)
	if err != nil {
		return types.BatteryReport{}, nil, err
	}

	plain := params
	plain.ExcludeHighSOE = false
	avail, err := availability.Monthly(frame, plain)
	if err != nil {
		return types.BatteryReport{}, nil, err
	}

	excl := params
	excl.ExcludeHighSOE = true
	availExcl, err := availability.Monthly(frame, excl)
	if err != nil {
		return types.BatteryReport{}, nil, err
	}

	var soeSamples []float64
	if col, ok := frame.Column(telemetry.SignalSOE); ok {
		for _, v := range col {
			if telemetry.Defined(v) {
				soeSamples = append(soeSamples, v)
			}
		}
	}

	name := filepath.Base(path)
	label := strings.TrimSuffix(name, filepath.Ext(name))
	return types.BatteryReport{
		ID:                      batteryID(name),
		Label:                   label,
		SourceFile:              name,
		Availability:            avail,
		AvailabilityExclHighSOE: availExcl,
		SOE:                     report.BoxStats(soeSamples),
	}, soeSamples, nil
}

// batteryID slugs an export file name into a stable URL- and
// document-safe battery ID.
func batteryID(name string) string {
	return slug.Make(strings.TrimSuffix(name, filepath.Ext(name)))
}
