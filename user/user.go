// Package user is the process-side system call library. Each call loads the
// request into the caller's saved registers, raises the syscall trap and
// returns what the kernel left in EAX.
//
// Buffers are staged through a scratch area at the bottom of the process's
// private memory, so callers can pass ordinary Go slices.
package user

import (
	"slate/kernel"
)

const (
	// ScratchAddr is the address of the scratch area. Address 0 is the
	// null pointer, so the area starts above it.
	ScratchAddr = 0x10

	// ScratchSize bounds a single buffer transfer.
	ScratchSize = 256
)

func syscall(ctx *kernel.Context, op kernel.Syscall, ebx, ecx, edx uint32) int {
	if !ctx.Live() {
		return -1
	}
	f := ctx.Frame()
	f.EAX = uint32(op)
	f.EBX = ebx
	f.ECX = ecx
	f.EDX = edx
	ctx.Int(kernel.IRQSyscall)
	return int(int32(f.EAX))
}

// scratch returns the caller's scratch area, nil if the caller is no longer
// on the CPU.
func scratch(ctx *kernel.Context) []byte {
	mem := ctx.Memory()
	if mem == nil {
		return nil
	}
	return mem[ScratchAddr : ScratchAddr+ScratchSize]
}

func cstring(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// Time returns the seconds elapsed since boot.
func Time(ctx *kernel.Context) int {
	return syscall(ctx, kernel.SysGetTime, 0, 0, 0)
}

// OSName returns the name of the running kernel, "" on failure.
func OSName(ctx *kernel.Context) string {
	if syscall(ctx, kernel.SysGetName, ScratchAddr, 0, 0) < 0 {
		return ""
	}
	return cstring(scratch(ctx))
}

// PID returns the caller's process id.
func PID(ctx *kernel.Context) int {
	return syscall(ctx, kernel.ProcGetPID, 0, 0, 0)
}

// Name returns the caller's process name, "" on failure.
func Name(ctx *kernel.Context) string {
	if syscall(ctx, kernel.ProcGetName, ScratchAddr, 0, 0) < 0 {
		return ""
	}
	return cstring(scratch(ctx))
}

// Sleep suspends the caller for the given number of seconds.
func Sleep(ctx *kernel.Context, seconds int) int {
	return syscall(ctx, kernel.ProcSleep, uint32(int32(seconds)), 0, 0)
}

// Exit terminates the caller. The context is dead afterwards.
func Exit(ctx *kernel.Context) {
	syscall(ctx, kernel.ProcExit, 0, 0, 0)
}

// Read reads up to len(p) bytes from I/O slot io. It returns the number of
// bytes read, -1 on failure.
func Read(ctx *kernel.Context, io int, p []byte) int {
	if len(p) > ScratchSize {
		p = p[:ScratchSize]
	}
	n := syscall(ctx, kernel.IORead, uint32(int32(io)), ScratchAddr, uint32(len(p)))
	if n > 0 {
		if buf := scratch(ctx); buf != nil {
			copy(p, buf[:n])
		}
	}
	return n
}

// Write writes p to I/O slot io in scratch-sized chunks. It returns the
// number of bytes accepted, which is short when the ring fills up, or -1 on
// failure.
func Write(ctx *kernel.Context, io int, p []byte) int {
	total := 0
	for len(p) > 0 {
		buf := scratch(ctx)
		if buf == nil {
			if total == 0 {
				return -1
			}
			return total
		}
		chunk := p
		if len(chunk) > ScratchSize {
			chunk = chunk[:ScratchSize]
		}
		copy(buf, chunk)
		n := syscall(ctx, kernel.IOWrite, uint32(int32(io)), ScratchAddr, uint32(len(chunk)))
		if n < 0 {
			if total == 0 {
				return -1
			}
			return total
		}
		total += n
		if n < len(chunk) {
			break
		}
		p = p[n:]
	}
	return total
}

// Puts writes s to the caller's output slot.
func Puts(ctx *kernel.Context, s string) int {
	return Write(ctx, kernel.ProcIOOut, []byte(s))
}

// Flush discards pending bytes in I/O slot io.
func Flush(ctx *kernel.Context, io int) int {
	return syscall(ctx, kernel.IOFlush, uint32(int32(io)), 0, 0)
}
