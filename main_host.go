//go:build !tinygo

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"slate/app"
	"slate/console"
	"slate/hal"
	"slate/internal/buildinfo"
)

func main() {
	var (
		headless   hal.HeadlessConfig
		configPath string
		tracePath  string
		logLevel   string
		timeslice  uint64
		stopOnHalt bool
		scale      int
	)
	flag.StringVar(&configPath, "config", "", "Boot configuration file (YAML).")
	flag.BoolVar(&headless.Enabled, "headless", false, "Run without a window.")
	flag.IntVar(&headless.Hz, "hz", 0, "Loop rate in headless mode (0 = kernel.tick_hz).")
	flag.Uint64Var(&headless.Ticks, "ticks", 0, "Stop after N loop iterations in headless mode (0 = run forever).")
	flag.StringVar(&tracePath, "trace", "", "Write OpenTelemetry spans to this file.")
	flag.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error.")
	flag.Uint64Var(&timeslice, "timeslice", 0, "Scheduling quantum in ticks.")
	flag.BoolVar(&stopOnHalt, "stop-on-halt", false, "Exit after a kernel panic instead of keeping the panic screen up.")
	flag.IntVar(&scale, "scale", 3, "Window scale factor.")
	flag.Parse()

	cfg := app.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = app.LoadConfig(configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if tracePath != "" {
		cfg.Trace.File = tracePath
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if timeslice != 0 {
		cfg.Kernel.Timeslice = timeslice
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	opts := hal.Options{
		Width:      console.Width,
		Height:     console.Height,
		TickPeriod: time.Second / time.Duration(cfg.Kernel.TickHz),
	}

	if headless.Hz == 0 {
		headless.Hz = int(cfg.Kernel.TickHz)
	}

	var m *app.Machine
	newApp := func(h hal.HAL) func() error {
		var err error
		m, err = app.New(h, cfg, app.Options{StopOnHalt: stopOnHalt || headless.Enabled})
		if err != nil {
			return func() error { return err }
		}
		return m.Step
	}

	var err error
	if headless.Enabled {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		err = hal.RunHeadless(ctx, opts, newApp, headless)
		stop()
		if errors.Is(err, context.Canceled) {
			err = nil
		}
	} else {
		err = hal.RunWindow(opts, newApp, hal.WindowConfig{
			Title: "slate (" + buildinfo.Short() + ")",
			Scale: scale,
			TPS:   int(cfg.Kernel.TickHz),
		})
	}

	if m != nil {
		if cerr := m.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
