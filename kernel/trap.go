package kernel

import (
	"fmt"
	"io"
)

// Trapframe is the saved execution context of a process: a snapshot of the
// registers taken when the process was interrupted, restored when it is
// resumed.
//
// Syscall ABI: EAX carries the operation on entry and the result on return;
// EBX, ECX and EDX carry the arguments.
type Trapframe struct {
	EDI uint32
	ESI uint32
	EBP uint32
	EBX uint32
	EDX uint32
	ECX uint32
	EAX uint32

	// Vector is the interrupt vector that produced this frame.
	Vector uint32

	// EIP is the resume address. On a host build it holds the entry
	// function's code address.
	EIP    uintptr
	CS     uint32
	EFlags uint32

	// ESP is an offset into the owning process's private stack.
	ESP uint32
	SS  uint32

	DS uint32
	ES uint32
	FS uint32
	GS uint32
}

// DumpTo outputs the register contents to w.
func (f *Trapframe) DumpTo(w io.Writer) {
	fmt.Fprintf(w, "EAX = %08x EBX = %08x\n", f.EAX, f.EBX)
	fmt.Fprintf(w, "ECX = %08x EDX = %08x\n", f.ECX, f.EDX)
	fmt.Fprintf(w, "ESI = %08x EDI = %08x\n", f.ESI, f.EDI)
	fmt.Fprintf(w, "EBP = %08x INT = %08x\n", f.EBP, f.Vector)
	fmt.Fprintf(w, "EIP = %16x CS  = %04x\n", f.EIP, f.CS)
	fmt.Fprintf(w, "ESP = %08x SS  = %04x\n", f.ESP, f.SS)
	fmt.Fprintf(w, "EFL = %08x\n", f.EFlags)
}

// EFLAGS bits.
const (
	EFDefault uint32 = 0x0002
	EFIntr    uint32 = 0x0200
)

// Segment selectors. User selectors carry requested privilege level 3.
const (
	SelKernelCode uint32 = 0x08
	SelKernelData uint32 = 0x10
	SelUserCode   uint32 = 0x18 | 3
	SelUserData   uint32 = 0x20 | 3
)

// Vector identifies an interrupt/trap slot.
type Vector uint8

const (
	// IRQTimer is raised by the periodic timer.
	IRQTimer = Vector(0x20)

	// IRQSyscall is raised explicitly by a process requesting a kernel
	// service.
	IRQSyscall = Vector(0x80)
)

// HandleInterrupt installs fn as the handler for vector, replacing any
// previous handler.
func (k *Kernel) HandleInterrupt(vector Vector, fn func()) {
	k.irq[vector] = fn
}

// Interrupt dispatches vector to its handler. If a process is active its
// saved context records the vector. Raising a vector with no handler halts
// the kernel.
func (k *Kernel) Interrupt(vector Vector) {
	fn := k.irq[vector]
	if fn == nil {
		k.panicf("irq", "unhandled interrupt %#x", uint8(vector))
	}
	if p := k.Active(); p != nil && p.frame != nil {
		p.frame.Vector = uint32(vector)
	}
	fn()
}
