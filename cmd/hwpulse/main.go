package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"hwpulse/internal/catalog"
	"hwpulse/internal/collector"
	"hwpulse/internal/config"
	"hwpulse/internal/console"
	"hwpulse/internal/csvlog"
	"hwpulse/internal/logger"
	"hwpulse/internal/sampler"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "hwpulse:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	appLog := logger.New(cfg.LogLevel, cfg.LogFormat)
	appLog.Info("hwpulse starting", "run_id", cfg.RunID, "interval", cfg.Interval)

	cat, err := catalog.Discover(appLog, catalog.Options{
		StatPath:    cfg.StatPath,
		CPUDir:      cfg.CPUDir,
		ThermalDir:  cfg.ThermalDir,
		GPUDir:      cfg.GPUDir,
		SensorsFile: cfg.SensorsFile,
	})
	if err != nil {
		appLog.Error("counter discovery failed", "error", err)
		return err
	}

	var counters, sensors int
	for _, src := range cat.Extras() {
		if src.Kind == catalog.KindString {
			sensors++
		} else {
			counters++
		}
	}
	appLog.Info("counters discovered", "cores", len(cat.Cores()), "counters", counters, "sensors", sensors)

	col, err := collector.New(appLog, cat, cfg.StatPath)
	if err != nil {
		appLog.Error("failed to open counters", "error", err)
		return err
	}
	defer col.Close()

	var sinks []sampler.Sink
	if cfg.OutputFile != "" {
		csvw, err := csvlog.Open(appLog, cfg.OutputFile)
		if err != nil {
			appLog.Error("failed to open CSV output", "error", err)
			return err
		}
		defer csvw.Close()
		appLog.Info("logging samples", "file", cfg.OutputFile)
		sinks = append(sinks, csvw)
	} else {
		appLog.Info("CSV logging disabled, no output file configured")
	}
	if !cfg.Quiet {
		tty := term.IsTerminal(int(os.Stdout.Fd()))
		sinks = append(sinks, console.New(os.Stdout, tty))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	smp := sampler.New(appLog, col, cfg.Interval, cfg.Samples, sinks...)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return smp.Run(gCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		appLog.Error("sampler failed", "error", err)
		return err
	}

	appLog.Info("monitoring stopped", "run_id", cfg.RunID)
	return nil
}
