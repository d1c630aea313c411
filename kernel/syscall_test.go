package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slate/kernel/ringbuf"
)

// call raises a system call from the active process and returns the value
// left in its EAX.
func call(k *Kernel, op Syscall, ebx, ecx, edx int32) int32 {
	f := k.Active().Frame()
	f.EAX = uint32(op)
	f.EBX = uint32(ebx)
	f.ECX = uint32(ecx)
	f.EDX = uint32(edx)
	k.Interrupt(IRQSyscall)
	return int32(f.EAX)
}

func cstring(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

func TestSysGetTime(t *testing.T) {
	k, _ := newTestKernel(t, Config{TickHz: 100})
	k.Run()
	assert.Zero(t, call(k, SysGetTime, 0, 0, 0))

	tick(k, 250)
	assert.Equal(t, int32(2), call(k, SysGetTime, 0, 0, 0))
}

func TestSysGetName(t *testing.T) {
	k, _ := newTestKernel(t, Config{OSName: "testos"})
	a := spawn(t, k, "a")
	k.Run()

	mem := k.Stack(a)
	assert.Zero(t, call(k, SysGetName, 64, 0, 0))
	assert.Equal(t, "testos", cstring(mem[64:]))

	assert.Equal(t, int32(-1), call(k, SysGetName, 0, 0, 0))
	assert.Equal(t, int32(-1), call(k, SysGetName, ProcStackSize-2, 0, 0))
}

func TestProcGetPIDAndName(t *testing.T) {
	k, _ := newTestKernel(t, Config{})
	spawn(t, k, "a")
	b := spawn(t, k, "shell")
	k.Remove(k.Lookup(1))
	k.Run()
	require.Equal(t, b.PID, k.Active().PID)

	assert.Equal(t, int32(b.PID), call(k, ProcGetPID, 0, 0, 0))
	assert.Zero(t, call(k, ProcGetName, 128, 0, 0))
	assert.Equal(t, "shell", cstring(k.Stack(b)[128:]))
	assert.Equal(t, int32(-1), call(k, ProcGetName, 0, 0, 0))
}

func TestProcExitReclaims(t *testing.T) {
	k, _ := newTestKernel(t, Config{Timeslice: 1})
	a := spawn(t, k, "a")
	b := spawn(t, k, "b")
	k.Run()
	require.Equal(t, a.PID, k.Active().PID)
	free := k.FreeSlots()
	slot := k.ProcToEntry(a)

	call(k, ProcExit, 0, 0, 0)

	assert.Equal(t, b.PID, k.Active().PID)
	assert.Equal(t, StateActive, b.State)
	assert.Nil(t, k.Lookup(1))
	assert.Nil(t, k.EntryToProc(slot))
	assert.Equal(t, free+1, k.FreeSlots())
	assert.Equal(t, Trapframe{}, k.frames[slot])

	for i := 0; i < 10; i++ {
		tick(k, 1)
		k.Run()
		require.NotEqual(t, 1, k.Active().PID)
	}
}

func TestProcExitLastProcessFallsBackToIdle(t *testing.T) {
	k, _ := newTestKernel(t, Config{})
	spawn(t, k, "a")
	k.Run()

	call(k, ProcExit, 0, 0, 0)
	assert.Equal(t, 0, k.Active().PID)
	assert.Equal(t, 1, activeCount(k))
	assert.Equal(t, ProcMax-1, k.FreeSlots())
}

func TestProcExitIdle(t *testing.T) {
	k, _ := newTestKernel(t, Config{})
	k.Run()

	assert.Equal(t, int32(-1), call(k, ProcExit, 0, 0, 0))
	assert.Equal(t, 0, k.Active().PID)
	assert.NotNil(t, k.Lookup(0))
}

func TestProcSleep(t *testing.T) {
	k, _ := newTestKernel(t, Config{TickHz: 10})
	a := spawn(t, k, "a")
	b := spawn(t, k, "b")
	k.Run()
	tick(k, 3)

	rc := call(k, ProcSleep, 2, 0, 0)
	assert.Zero(t, rc)
	assert.Equal(t, StateSleeping, a.State)
	assert.Equal(t, uint64(23), a.SleepTime)
	assert.True(t, k.SleepQueue().Contains(a.PID))
	assert.Equal(t, b.PID, k.Active().PID)
}

func TestProcSleepNegative(t *testing.T) {
	k, _ := newTestKernel(t, Config{})
	a := spawn(t, k, "a")
	k.Run()

	assert.Equal(t, int32(-1), call(k, ProcSleep, -1, 0, 0))
	assert.Equal(t, a.PID, k.Active().PID)
	assert.True(t, k.SleepQueue().IsEmpty())
}

func TestIOReadWrite(t *testing.T) {
	k, _ := newTestKernel(t, Config{})
	a := spawn(t, k, "a")
	var in, out ringbuf.Ring
	require.NoError(t, k.AttachIO(a.PID, ProcIOIn, &in))
	require.NoError(t, k.AttachIO(a.PID, ProcIOOut, &out))
	k.Run()
	mem := k.Stack(a)

	copy(mem[100:], "hi")
	assert.Equal(t, int32(2), call(k, IOWrite, ProcIOOut, 100, 2))
	got := make([]byte, 4)
	assert.Equal(t, 2, out.ReadMem(got))
	assert.Equal(t, "hi", string(got[:2]))

	_, err := in.Write([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, int32(3), call(k, IORead, ProcIOIn, 200, 8))
	assert.Equal(t, "abc", string(mem[200:203]))
	assert.Zero(t, call(k, IORead, ProcIOIn, 200, 8))

	_, err = out.Write([]byte("pending"))
	require.NoError(t, err)
	assert.Zero(t, call(k, IOFlush, ProcIOOut, 0, 0))
	assert.True(t, out.IsEmpty())
}

func TestIOInvalidLeavesBufferUntouched(t *testing.T) {
	k, _ := newTestKernel(t, Config{})
	a := spawn(t, k, "a")
	var in ringbuf.Ring
	require.NoError(t, k.AttachIO(a.PID, ProcIOIn, &in))
	_, err := in.Write([]byte("data"))
	require.NoError(t, err)
	k.Run()

	mem := k.Stack(a)
	copy(mem[100:], "keep")

	for _, io := range []int32{-1, ProcIOMax, 1000} {
		assert.Equal(t, int32(-1), call(k, IORead, io, 100, 4))
		assert.Equal(t, int32(-1), call(k, IOWrite, io, 100, 4))
		assert.Equal(t, int32(-1), call(k, IOFlush, io, 0, 0))
	}
	// Unattached slot.
	assert.Equal(t, int32(-1), call(k, IOWrite, ProcIOOut, 100, 4))
	// Null, out of range and negative-size buffers.
	assert.Equal(t, int32(-1), call(k, IORead, ProcIOIn, 0, 4))
	assert.Equal(t, int32(-1), call(k, IORead, ProcIOIn, ProcStackSize-2, 4))
	assert.Equal(t, int32(-1), call(k, IORead, ProcIOIn, 100, -4))

	assert.Equal(t, "keep", string(mem[100:104]))
	assert.Equal(t, 4, in.Len())
}

func TestSyscallHook(t *testing.T) {
	type record struct {
		pid int
		op  Syscall
		rc  int32
	}
	var got []record
	k, _ := newTestKernel(t, Config{OnSyscall: func(pid int, op Syscall, rc int32) {
		got = append(got, record{pid, op, rc})
	}})
	spawn(t, k, "a")
	k.Run()

	call(k, ProcGetPID, 0, 0, 0)
	call(k, ProcExit, 0, 0, 0)
	assert.Equal(t, []record{{1, ProcGetPID, 1}, {1, ProcExit, 0}}, got)
}

func TestSyscallUnknownIsFatal(t *testing.T) {
	k, rec := newTestKernel(t, Config{})
	k.Run()

	require.PanicsWithValue(t, &Fatal{Module: "syscall", Message: "invalid system call 153"}, func() {
		call(k, Syscall(0x99), 0, 0, 0)
	})
	require.Len(t, rec.calls, 1)
	assert.Equal(t, uint32(0x99), rec.calls[0].Frame.EAX)
}

func TestSyscallWithoutActiveIsFatal(t *testing.T) {
	k, _ := newTestKernel(t, Config{})

	require.PanicsWithValue(t, &Fatal{Module: "syscall", Message: "invalid process"}, func() {
		k.Interrupt(IRQSyscall)
	})
}

func TestSyscallString(t *testing.T) {
	assert.Equal(t, "proc_exit", ProcExit.String())
	assert.Equal(t, "io_write", IOWrite.String())
	assert.Equal(t, "unknown", Syscall(0x3).String())
	assert.Equal(t, "unknown", Syscall(0x1000).String())
}
