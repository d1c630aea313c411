package kernel

import (
	"fmt"
	"io"
	"reflect"

	"slate/kernel/ringbuf"
)

const (
	// ProcMax is the process table capacity, idle process included.
	ProcMax = 16

	// ProcStackSize is the size of each process's private stack region.
	ProcStackSize = 4096

	// ProcNameLen bounds a process name, terminator included.
	ProcNameLen = 32

	// ProcIOMax is the number of I/O slots per process.
	ProcIOMax = 2
)

// Conventional I/O slots.
const (
	ProcIOIn  = 0
	ProcIOOut = 1
)

// State is a process scheduling state.
type State uint8

const (
	StateNone State = iota
	StateIdle
	StateActive
	StateSleeping
)

func (s State) String() string {
	switch s {
	case StateNone:
		return "NONE"
	case StateIdle:
		return "IDLE"
	case StateActive:
		return "ACTIVE"
	case StateSleeping:
		return "SLEEPING"
	default:
		return "UNKNOWN"
	}
}

// Type selects the privilege selectors of a process.
type Type uint8

const (
	TypeKernel Type = iota
	TypeUser
)

func (t Type) String() string {
	if t == TypeUser {
		return "user"
	}
	return "kernel"
}

// Proc is a process control block.
type Proc struct {
	// PID is never reused, even when the slot is recycled.
	PID   int
	State State
	Type  Type

	name [ProcNameLen]byte

	StartTime uint64
	RunTime   uint64
	// CPUTime counts ticks of the current timeslice.
	CPUTime uint64
	// SleepTime is the absolute wake deadline, valid only while sleeping.
	SleepTime uint64

	IO [ProcIOMax]*ringbuf.Ring

	frame *Trapframe
	queue *Queue
	entry Entry
}

// Name returns the process name.
func (p *Proc) Name() string {
	for i, c := range p.name {
		if c == 0 {
			return string(p.name[:i])
		}
	}
	return string(p.name[:])
}

func (p *Proc) setName(name string) {
	n := copy(p.name[:ProcNameLen-1], name)
	p.name[n] = 0
}

// Frame returns the saved execution context.
func (p *Proc) Frame() *Trapframe { return p.frame }

// Entry returns the function the process was created with.
func (p *Proc) Entry() Entry { return p.entry }

// SchedQueue returns the scheduler queue currently holding the process, nil
// if none.
func (p *Proc) SchedQueue() *Queue { return p.queue }

func (k *Kernel) initProcs() {
	k.log.Info("initializing process management")
	k.nextPID = 0
	k.allocator.Init()
	for i := 0; i < ProcMax; i++ {
		k.procs[i] = Proc{}
		// Cannot fail: the allocator is sized to the table.
		_ = k.allocator.Enqueue(i)
	}
}

// Create allocates a table slot for a new process that will start at entry
// and registers it with the scheduler. It returns the new pid.
func (k *Kernel) Create(entry Entry, name string, typ Type) (int, error) {
	slot, err := k.allocator.Dequeue()
	if err != nil {
		return -1, ErrProcExhausted
	}

	frame := &k.frames[slot]
	*frame = Trapframe{
		EIP:    entryAddr(entry),
		EFlags: EFDefault | EFIntr,
		ESP:    ProcStackSize,
	}
	code, data := selectors(typ)
	frame.CS = code
	frame.DS, frame.ES, frame.FS, frame.GS, frame.SS = data, data, data, data, data

	p := &k.procs[slot]
	*p = Proc{
		PID:       k.nextPID,
		State:     StateIdle,
		Type:      typ,
		StartTime: k.timer.Ticks(),
		frame:     frame,
		entry:     entry,
	}
	p.setName(name)
	k.nextPID++

	k.Add(p)

	k.log.Info("created process", "name", p.Name(), "pid", p.PID, "entry", slot)
	return p.PID, nil
}

// Destroy unschedules p, clears its control block, context and stack, and
// returns its slot to the allocator. The idle process cannot be destroyed.
func (k *Kernel) Destroy(p *Proc) error {
	slot := k.ProcToEntry(p)
	if slot < 0 || p.State == StateNone || p.PID == 0 {
		return ErrInvalidProcess
	}

	k.log.Info("destroying process", "name", p.Name(), "pid", p.PID, "entry", slot)
	k.Remove(p)
	k.release(slot)
	return nil
}

// release clears a slot and hands it back to the allocator. The process
// must already be off the CPU.
func (k *Kernel) release(slot int) {
	if q := k.procs[slot].queue; q != nil {
		pid := k.procs[slot].PID
		q.Filter(func(v int) bool { return v != pid })
	}
	k.procs[slot] = Proc{}
	k.frames[slot] = Trapframe{}
	k.stacks[slot] = [ProcStackSize]byte{}
	if err := k.allocator.Enqueue(slot); err != nil {
		k.panicf("proc", "unable to release entry %d: %v", slot, err)
	}
}

// Lookup returns the live process with the given pid, nil if none.
func (k *Kernel) Lookup(pid int) *Proc {
	for i := range k.procs {
		p := &k.procs[i]
		if p.PID == pid && p.State != StateNone {
			return p
		}
	}
	return nil
}

// ProcToEntry returns the table index of p, -1 if p does not point into the
// process table.
func (k *Kernel) ProcToEntry(p *Proc) int {
	if p == nil {
		return -1
	}
	for i := range k.procs {
		if &k.procs[i] == p {
			return i
		}
	}
	return -1
}

// EntryToProc returns the live process at table index entry, nil if the
// index is out of range or the slot is free.
func (k *Kernel) EntryToProc(entry int) *Proc {
	if entry < 0 || entry >= ProcMax || k.procs[entry].State == StateNone {
		return nil
	}
	return &k.procs[entry]
}

// Stack returns the private stack region of p.
func (k *Kernel) Stack(p *Proc) []byte {
	slot := k.ProcToEntry(p)
	if slot < 0 {
		return nil
	}
	return k.stacks[slot][:]
}

// FreeSlots returns the number of unallocated table slots.
func (k *Kernel) FreeSlots() int { return k.allocator.Size() }

// AttachIO binds ring r to I/O slot n of process pid. A nil ring unbinds the
// slot.
func (k *Kernel) AttachIO(pid, n int, r *ringbuf.Ring) error {
	p := k.Lookup(pid)
	if p == nil {
		return ErrInvalidProcess
	}
	if n < 0 || n >= ProcIOMax {
		return ErrInvalidIO
	}
	p.IO[n] = r
	return nil
}

// DumpProcs writes the process table to w.
func (k *Kernel) DumpProcs(w io.Writer) {
	fmt.Fprintf(w, "%-5s %-5s %-20s %-8s %-6s %8s %8s\n", "ENTRY", "PID", "NAME", "STATE", "TYPE", "RUN", "CPU")
	for i := range k.procs {
		p := &k.procs[i]
		if p.State == StateNone {
			continue
		}
		mark := " "
		if i == k.active {
			mark = "*"
		}
		fmt.Fprintf(w, "%-5d%s%-5d %-20s %-8s %-6s %8d %8d\n", i, mark, p.PID, p.Name(), p.State, p.Type, p.RunTime, p.CPUTime)
	}
}

func selectors(typ Type) (code, data uint32) {
	if typ == TypeUser {
		return SelUserCode, SelUserData
	}
	return SelKernelCode, SelKernelData
}

func entryAddr(entry Entry) uintptr {
	if entry == nil {
		return 0
	}
	return reflect.ValueOf(entry).Pointer()
}
