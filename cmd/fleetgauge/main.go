package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fleetgauge/fleetgauge/pkg/fleet"
	"github.com/fleetgauge/fleetgauge/pkg/log"
	"github.com/fleetgauge/fleetgauge/pkg/report"
	"github.com/fleetgauge/fleetgauge/pkg/server"
	"github.com/fleetgauge/fleetgauge/pkg/storage"

	"github.com/levenlabs/go-lflag"
	"github.com/levenlabs/go-llog"
)

func main() {
	// init packages
	an := fleet.Configured()
	st := storage.Configured()

	// init server
	srv := server.Configured(st, an)

	reportMode := lflag.Bool("report", false, "analyze the fleet, print text tables to stdout, and exit without serving")

	// parse flags
	lflag.Configure()

	var level slog.Level
	// lflag automatically sets llog's level, but we need to set the slog level
	switch llog.GetLevel() {
	case llog.DebugLevel:
		level = slog.LevelDebug
	case llog.InfoLevel:
		level = slog.LevelInfo
	case llog.WarnLevel:
		level = slog.LevelWarn
	case llog.ErrorLevel:
		level = slog.LevelError
	default:
		panic(fmt.Errorf("unknown log level: %s", llog.GetLevel().String()))
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	log.SetDefaultLogLevel(level)
	slog.Debug("logger configured", slog.String("level", level.String()))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	defer func() {
		if err := st.Close(); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to close storage", "error", err)
		}
	}()

	if *reportMode {
		os.Exit(runReport(ctx, an))
	}

	// run the initial analysis (or load the stored report) before serving
	if err := srv.Bootstrap(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to bootstrap fleet report", "error", err)
		os.Exit(1)
	}

	// Run will block until context is canceled or error happens
	if err := srv.Run(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "server failed", "error", err)
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "server exited cleanly")
}

// runReport is the one-shot CLI mode: analyze with the flag-provided
// parameters and print the tables a dashboard would draw.
func runReport(ctx context.Context, an *fleet.Analyzer) int {
	params := an.DefaultParams()
	rep, err := an.Run(ctx, params, 0)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "fleet analysis failed", "error", err)
		return 1
	}

	report.WriteFleetTable(os.Stdout, rep)
	fmt.Println()
	title := "Combined fleet availability"
	if params.ExcludeHighSOE {
		title += fmt.Sprintf(" (rows above %.0f%% SOE excluded)", params.HighSOECutoffPercent)
	}
	report.WriteMonthlyTable(os.Stdout, title, rep.Combined)
	fmt.Println()
	report.WriteSOETable(os.Stdout, rep)

	for _, f := range rep.Failures {
		fmt.Fprintf(os.Stderr, "battery %s (%s) failed: %s\n", f.BatteryID, f.File, f.Reason)
	}
	if len(rep.Batteries) == 0 && len(rep.Failures) > 0 {
		return 1
	}
	return 0
}
