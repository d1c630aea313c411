package app

import (
	"context"
	"io"
	"log/slog"

	"slate/console"
	"slate/hal"
	"slate/internal/klog"
	"slate/internal/tracing"
	"slate/kernel"
)

// HaltError is returned by Step once the kernel has halted.
type HaltError struct {
	Fatal *kernel.Fatal
}

func (e *HaltError) Error() string { return e.Fatal.String() }

// Machine is the execution unit around the kernel core. Every timer tick it
// raises the timer interrupt, lets the scheduler decide, and resumes the
// active process for one step of its entry.
type Machine struct {
	k       *kernel.Kernel
	con     *console.Console
	display console.Displayer
	log     *slog.Logger

	keys  <-chan hal.KeyEvent
	ticks <-chan uint64

	tracer *tracing.Tracer
	span   *tracing.Span

	// stopOnHalt makes Step keep returning the halt error; otherwise the
	// halted machine idles so the panic screen stays up.
	stopOnHalt bool
	halted     *HaltError
	closers    []func() error
}

// Kernel returns the kernel core.
func (m *Machine) Kernel() *kernel.Kernel { return m.k }

// Console returns the TTY console.
func (m *Machine) Console() *console.Console { return m.con }

// Halted returns the halt reason, nil while the kernel is running.
func (m *Machine) Halted() *HaltError { return m.halted }

// Step drains pending keyboard events and ticks, then redraws the screen.
// It never blocks.
func (m *Machine) Step() (err error) {
	if m.halted != nil {
		if m.stopOnHalt {
			return m.halted
		}
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			f, ok := r.(*kernel.Fatal)
			if !ok {
				panic(r)
			}
			m.halted = &HaltError{Fatal: f}
			m.span.End(m.halted)
			m.span = nil
			err = m.halted
			if !m.stopOnHalt {
				err = nil
			}
		}
	}()

	m.drainKeys()
	for pending := true; pending; {
		select {
		case <-m.ticks:
			m.Tick()
		default:
			pending = false
		}
	}
	m.draw()
	return nil
}

func (m *Machine) drainKeys() {
	if m.keys == nil {
		return
	}
	for {
		select {
		case ev := <-m.keys:
			m.con.HandleKey(ev)
		default:
			return
		}
	}
}

func (m *Machine) draw() {
	if m.display == nil {
		return
	}
	if m.con.Screen().Draw(m.display) > 0 {
		if err := m.display.Display(); err != nil {
			m.log.Debug("display update failed", klog.ErrAttr(err))
		}
	}
}

// Tick advances the machine by one timer period.
func (m *Machine) Tick() {
	m.k.Interrupt(kernel.IRQTimer)
	m.k.Run()

	p := m.k.Active()
	entry := p.Entry()
	if entry == nil {
		return
	}
	ctx := m.k.ContextOf(p)
	if p.PID != 0 {
		_, m.span = m.tracer.StartStep(context.Background(), p.PID, p.Name(), m.k.Ticks())
	}
	entry(ctx)
	m.span.End(nil)
	m.span = nil
}

// dumpProcs writes the process table once the kernel exists.
func (m *Machine) dumpProcs(w io.Writer) {
	if m.k != nil {
		m.k.DumpProcs(w)
	}
}

func (m *Machine) onSyscall(pid int, op kernel.Syscall, rc int32) {
	m.span.Syscall(op.String(), rc)
}

// Close releases the tracer and any open trace file.
func (m *Machine) Close() error {
	var first error
	if err := m.tracer.Shutdown(context.Background()); err != nil {
		first = err
	}
	for _, c := range m.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
