package kernel

import "fmt"

// Fatal describes an invariant violation. It is never returned as an error:
// the kernel halts by panicking with a *Fatal.
type Fatal struct {
	Module  string
	Message string
}

func (f *Fatal) String() string {
	return "[" + f.Module + "] unrecoverable error: " + f.Message
}

// PanicInfo contains details about a kernel halt.
type PanicInfo struct {
	// PID of the active process, -1 if none.
	PID   int
	Fatal *Fatal
	// Frame is a copy of the active process's saved context, if any.
	Frame *Trapframe
	Stack []byte
}

// InPanicMode reports whether the kernel has halted.
func (k *Kernel) InPanicMode() bool {
	return k.panicked
}

// panicf halts the kernel. The panic handler runs at most once; panicf never
// returns.
func (k *Kernel) panicf(module, format string, args ...any) {
	f := &Fatal{Module: module, Message: fmt.Sprintf(format, args...)}
	if !k.panicked {
		k.panicked = true

		info := PanicInfo{PID: -1, Fatal: f, Stack: captureStack()}
		if k.active != noProc {
			p := &k.procs[k.active]
			info.PID = p.PID
			if p.frame != nil {
				frame := *p.frame
				info.Frame = &frame
			}
		}
		k.log.Error("kernel panic", "module", f.Module, "error", f.Message, "pid", info.PID)
		if k.cfg.OnPanic != nil {
			k.cfg.OnPanic(info)
		}
	}
	panic(f)
}
