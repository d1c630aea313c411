package kernel

// Entry is the code a process runs. The machine resumes a process by calling
// its entry once per dispatch; the entry should return promptly.
type Entry func(*Context)

// Context provides process-local access to the execution unit: the
// process's saved registers, its private memory, and software interrupts.
type Context struct {
	k    *Kernel
	slot int
	pid  int
}

// ContextOf returns the execution context of p.
func (k *Kernel) ContextOf(p *Proc) *Context {
	slot := k.ProcToEntry(p)
	if slot < 0 {
		return nil
	}
	return &Context{k: k, slot: slot, pid: p.PID}
}

// PID returns the pid the context was created for.
func (c *Context) PID() int { return c.pid }

// Live reports whether the process owning this context is the one on the
// CPU. A context that is not live cannot raise interrupts.
func (c *Context) Live() bool {
	if c == nil || c.k == nil || c.k.active != c.slot {
		return false
	}
	p := &c.k.procs[c.slot]
	return p.PID == c.pid && p.State == StateActive
}

// Frame returns the process's saved registers, nil once the process is no
// longer on the CPU.
func (c *Context) Frame() *Trapframe {
	if !c.Live() {
		return nil
	}
	return &c.k.frames[c.slot]
}

// Memory returns the process's private memory region, nil once the process
// is no longer on the CPU. Syscall buffer addresses are offsets into it.
func (c *Context) Memory() []byte {
	if !c.Live() {
		return nil
	}
	return c.k.stacks[c.slot][:]
}

// Int raises a software interrupt on behalf of the process. It returns false
// without doing anything if the process is no longer on the CPU.
func (c *Context) Int(v Vector) bool {
	if !c.Live() {
		return false
	}
	c.k.Interrupt(v)
	return true
}
