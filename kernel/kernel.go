// Package kernel implements a fixed-capacity multitasking kernel core:
// process table and slot allocator, a round-robin scheduler with sleep/wake
// semantics, and the trap-driven system call dispatcher.
//
// All state lives in one *Kernel. The core is not safe for concurrent use;
// the surrounding machine must serialize every entry into it, the same way
// interrupts are serialized on a single CPU.
package kernel

import (
	"io"
	"log/slog"
)

const (
	// DefaultTimeslice is the scheduling quantum in ticks.
	DefaultTimeslice = 10

	// DefaultTickHz is the timer frequency used to convert between ticks
	// and seconds.
	DefaultTickHz = 100

	// DefaultOSName is reported by SysGetName.
	DefaultOSName = "slate"
)

// noProc marks an empty active-process reference.
const noProc = -1

// Config holds boot-time kernel settings. Zero fields take defaults.
type Config struct {
	Timeslice uint64
	TickHz    uint64
	OSName    string

	// Idle is the entry of the permanent idle process (pid 0).
	Idle Entry

	Logger *slog.Logger

	// OnPanic is invoked once, before the kernel halts. It must not panic.
	OnPanic func(PanicInfo)

	// OnSyscall observes every completed system call.
	OnSyscall func(pid int, op Syscall, rc int32)
}

// Kernel is the kernel core state: process table, stacks, allocator,
// scheduler queues, timer and interrupt table.
type Kernel struct {
	cfg Config
	log *slog.Logger

	timer Timer
	irq   [256]func()

	procs  [ProcMax]Proc
	frames [ProcMax]Trapframe
	stacks [ProcMax][ProcStackSize]byte

	allocator  Queue
	runQueue   Queue
	sleepQueue Queue

	// active is the slot of the running process, noProc if none.
	active  int
	nextPID int

	panicked bool
}

// New initializes a kernel: the process table and allocator, the scheduler,
// the timer and syscall vectors, and the idle process.
func New(cfg Config) *Kernel {
	if cfg.Timeslice == 0 {
		cfg.Timeslice = DefaultTimeslice
	}
	if cfg.TickHz == 0 {
		cfg.TickHz = DefaultTickHz
	}
	if cfg.OSName == "" {
		cfg.OSName = DefaultOSName
	}
	if cfg.Idle == nil {
		cfg.Idle = idle
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	k := &Kernel{cfg: cfg, log: log, active: noProc}
	k.initProcs()
	k.initScheduler()
	k.HandleInterrupt(IRQTimer, k.timer.tick)
	k.HandleInterrupt(IRQSyscall, k.syscall)

	if _, err := k.Create(cfg.Idle, "kernel_idle", TypeKernel); err != nil {
		k.panicf("proc", "failed to create idle process: %v", err)
	}
	return k
}

// Timer returns the kernel time source.
func (k *Kernel) Timer() *Timer { return &k.timer }

// Ticks returns the number of timer ticks since boot.
func (k *Kernel) Ticks() uint64 { return k.timer.Ticks() }

// TickHz returns the configured timer frequency.
func (k *Kernel) TickHz() uint64 { return k.cfg.TickHz }

// OSName returns the kernel identity string.
func (k *Kernel) OSName() string { return k.cfg.OSName }

// idle is the default idle process body: nothing to do until the next
// interrupt.
func idle(*Context) {}
