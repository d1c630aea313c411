package kernel

// Syscall identifies a kernel service. It is passed in EAX.
type Syscall uint32

const (
	SysGetTime Syscall = 0x01
	SysGetName Syscall = 0x02

	ProcSleep   Syscall = 0x10
	ProcExit    Syscall = 0x11
	ProcGetPID  Syscall = 0x12
	ProcGetName Syscall = 0x13

	IORead  Syscall = 0x20
	IOWrite Syscall = 0x21
	IOFlush Syscall = 0x22
)

type sysentry struct {
	name string
	impl func(k *Kernel, f *Trapframe) int32
}

var sysent = [...]sysentry{
	SysGetTime:  {"sys_get_time", sysGetTime},
	SysGetName:  {"sys_get_name", sysGetName},
	ProcSleep:   {"proc_sleep", procSleep},
	ProcExit:    {"proc_exit", procExit},
	ProcGetPID:  {"proc_get_pid", procGetPID},
	ProcGetName: {"proc_get_name", procGetName},
	IORead:      {"io_read", ioRead},
	IOWrite:     {"io_write", ioWrite},
	IOFlush:     {"io_flush", ioFlush},
}

func (s Syscall) String() string {
	if int(s) < len(sysent) && sysent[s].impl != nil {
		return sysent[s].name
	}
	return "unknown"
}

// syscall is the IRQSyscall handler. The result is written back into EAX of
// the caller's saved context unless the caller no longer exists.
func (k *Kernel) syscall() {
	p := k.Active()
	if p == nil {
		k.panicf("syscall", "invalid process")
		return
	}
	f := p.frame
	if f == nil {
		k.panicf("syscall", "invalid trapframe for pid %d", p.PID)
		return
	}

	op := Syscall(f.EAX)
	if int(op) >= len(sysent) || sysent[op].impl == nil {
		k.panicf("syscall", "invalid system call %d", f.EAX)
		return
	}

	slot, pid := k.active, p.PID
	rc := sysent[op].impl(k, f)
	if q := k.EntryToProc(slot); q != nil && q.PID == pid {
		f.EAX = uint32(rc)
	}
	if k.cfg.OnSyscall != nil {
		k.cfg.OnSyscall(pid, op, rc)
	}
}

// userMem returns n bytes of the active process's memory at addr. Address
// zero is the null pointer; ranges outside the region are rejected too.
func (k *Kernel) userMem(addr, n uint32) []byte {
	if addr == 0 || k.active == noProc {
		return nil
	}
	end := uint64(addr) + uint64(n)
	if end > ProcStackSize {
		return nil
	}
	return k.stacks[k.active][addr:end]
}

func sysGetTime(k *Kernel, _ *Trapframe) int32 {
	return int32(k.timer.Ticks() / k.cfg.TickHz)
}

func sysGetName(k *Kernel, f *Trapframe) int32 {
	name := k.cfg.OSName
	dst := k.userMem(f.EBX, uint32(len(name))+1)
	if dst == nil {
		return -1
	}
	n := copy(dst, name)
	dst[n] = 0
	return 0
}

func procSleep(k *Kernel, f *Trapframe) int32 {
	p := k.Active()
	seconds := int32(f.EBX)
	if p == nil || p.PID == 0 || seconds < 0 {
		return -1
	}
	k.Sleep(p, uint64(seconds)*k.cfg.TickHz)
	k.Run()
	return 0
}

// procExit ends the active process. The scheduler runs before the slot is
// reclaimed, so control never returns to the exiting process.
func procExit(k *Kernel, _ *Trapframe) int32 {
	p := k.Active()
	if p == nil || p.PID == 0 {
		return -1
	}
	slot := k.active
	k.log.Info("process exited", "pid", p.PID, "name", p.Name())

	p.State = StateNone
	k.Run()
	k.release(slot)
	return 0
}

func procGetPID(k *Kernel, _ *Trapframe) int32 {
	p := k.Active()
	if p == nil {
		return -1
	}
	return int32(p.PID)
}

func procGetName(k *Kernel, f *Trapframe) int32 {
	p := k.Active()
	if p == nil {
		return -1
	}
	name := p.Name()
	dst := k.userMem(f.EBX, uint32(len(name))+1)
	if dst == nil {
		return -1
	}
	n := copy(dst, name)
	dst[n] = 0
	return 0
}

// ioBuffer validates the I/O slot in EBX and the buffer in ECX/EDX. Nothing
// is touched unless every check passes.
func ioBuffer(k *Kernel, f *Trapframe) (int, []byte, bool) {
	p := k.Active()
	if p == nil {
		return 0, nil, false
	}
	io := int32(f.EBX)
	if io < 0 || io >= ProcIOMax || p.IO[io] == nil {
		return 0, nil, false
	}
	size := int32(f.EDX)
	if size < 0 {
		return 0, nil, false
	}
	buf := k.userMem(f.ECX, uint32(size))
	if buf == nil {
		return 0, nil, false
	}
	return int(io), buf, true
}

func ioRead(k *Kernel, f *Trapframe) int32 {
	io, buf, ok := ioBuffer(k, f)
	if !ok {
		return -1
	}
	return int32(k.Active().IO[io].ReadMem(buf))
}

func ioWrite(k *Kernel, f *Trapframe) int32 {
	io, buf, ok := ioBuffer(k, f)
	if !ok {
		return -1
	}
	return int32(k.Active().IO[io].WriteMem(buf))
}

func ioFlush(k *Kernel, f *Trapframe) int32 {
	p := k.Active()
	if p == nil {
		return -1
	}
	io := int32(f.EBX)
	if io < 0 || io >= ProcIOMax || p.IO[io] == nil {
		return -1
	}
	p.IO[io].Flush()
	return 0
}
