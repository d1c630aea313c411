// Package app boots the kernel on a HAL: it wires logging, tracing, the
// console and the configured boot programs around a kernel core, and drives
// the result as a Machine.
package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"slate/console"
	"slate/hal"
	"slate/internal/buildinfo"
	"slate/internal/idgen"
	"slate/internal/klog"
	"slate/internal/tracing"
	"slate/kernel"
)

// Options tune how the machine is hosted.
type Options struct {
	// StopOnHalt makes Step return the halt error after a kernel panic.
	StopOnHalt bool

	// TraceWriter receives spans instead of Config.Trace.File.
	TraceWriter io.Writer
}

// New boots a machine on h.
func New(h hal.HAL, cfg *Config, opts Options) (_ *Machine, err error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level, err := klog.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	bootID := idgen.New()
	log := klog.New(h.Logger(), level, slog.String("boot", bootID))
	log.Info("booting", "os", cfg.Kernel.OSName, "version", buildinfo.Short())

	m := &Machine{log: log, stopOnHalt: opts.StopOnHalt}
	defer func() {
		if err != nil {
			_ = m.Close()
		}
	}()

	if err := m.initTracing(cfg, opts, bootID); err != nil {
		return nil, err
	}

	if d := h.Display(); d != nil {
		if fb := d.Framebuffer(); fb != nil && fb.Buffer() != nil {
			m.display = console.NewFramebufferDisplay(fb)
		}
	}
	if in := h.Input(); in != nil {
		if kbd := in.Keyboard(); kbd != nil {
			m.keys = kbd.Events()
		}
	}
	if t := h.Time(); t != nil {
		m.ticks = t.Ticks()
	}

	m.k = kernel.New(kernel.Config{
		Timeslice: cfg.Kernel.Timeslice,
		TickHz:    cfg.Kernel.TickHz,
		OSName:    cfg.Kernel.OSName,
		Idle:      idleProgram,
		Logger:    log.With("module", "kernel"),
		OnPanic:   panicHandler(h.Logger(), m.display, m.dumpProcs),
		OnSyscall: m.onSyscall,
	})

	m.con = console.New(console.NewScreen(), log.With("module", "tty"))
	if _, err := m.k.Timer().Register(m.con.Refresh, cfg.Console.RefreshTicks, -1); err != nil {
		return nil, fmt.Errorf("register tty refresh: %w", err)
	}
	fmt.Fprintf(m.con.TTY(0), "%s %s boot %s\n", cfg.Kernel.OSName, buildinfo.Short(), bootID)

	for _, pc := range cfg.Programs {
		if err := m.spawn(pc); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Machine) initTracing(cfg *Config, opts Options, bootID string) error {
	w := opts.TraceWriter
	if w == nil && cfg.Trace.File != "" {
		f, err := os.Create(cfg.Trace.File)
		if err != nil {
			return err
		}
		m.closers = append(m.closers, f.Close)
		w = f
	}
	if w == nil {
		return nil
	}

	tr, err := tracing.New(w, cfg.Kernel.OSName, buildinfo.Short(), bootID)
	if err != nil {
		return err
	}
	m.tracer = tr
	return nil
}

func (m *Machine) spawn(pc ProgramConfig) error {
	typ, err := parseType(pc.Type)
	if err != nil {
		return err
	}
	factory, ok := programs[pc.Program]
	if !ok {
		return fmt.Errorf("unknown program %q", pc.Program)
	}

	pid, err := m.k.Create(factory(), pc.Name, typ)
	if err != nil {
		return fmt.Errorf("create %s: %w", pc.Name, err)
	}
	tty := m.con.TTY(pc.TTY)
	if err := m.k.AttachIO(pid, kernel.ProcIOIn, &tty.In); err != nil {
		return err
	}
	return m.k.AttachIO(pid, kernel.ProcIOOut, &tty.Out)
}

// Run boots the machine and drives it forever (TinyGo entrypoint). After a
// kernel halt it blocks with the panic report on screen.
func Run(h hal.HAL, cfg *Config) {
	m, err := New(h, cfg, Options{StopOnHalt: true})
	if err != nil {
		h.Logger().WriteLineString("boot failed: " + err.Error())
		select {}
	}
	for {
		if err := m.Step(); err != nil {
			select {}
		}
		time.Sleep(time.Millisecond)
	}
}
