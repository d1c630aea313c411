package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slate/kernel"
	"slate/kernel/ringbuf"
)

func boot(t *testing.T, cfg kernel.Config) (*kernel.Kernel, *kernel.Context, *ringbuf.Ring, *ringbuf.Ring) {
	t.Helper()
	k := kernel.New(cfg)
	pid, err := k.Create(func(*kernel.Context) {}, "tester", kernel.TypeUser)
	require.NoError(t, err)

	var in, out ringbuf.Ring
	require.NoError(t, k.AttachIO(pid, kernel.ProcIOIn, &in))
	require.NoError(t, k.AttachIO(pid, kernel.ProcIOOut, &out))

	k.Run()
	p := k.Active()
	require.Equal(t, pid, p.PID)
	return k, k.ContextOf(p), &in, &out
}

func TestIdentity(t *testing.T) {
	_, ctx, _, _ := boot(t, kernel.Config{OSName: "slate-test"})

	assert.Equal(t, 1, PID(ctx))
	assert.Equal(t, "tester", Name(ctx))
	assert.Equal(t, "slate-test", OSName(ctx))
}

func TestTime(t *testing.T) {
	k, ctx, _, _ := boot(t, kernel.Config{TickHz: 10})
	for i := 0; i < 35; i++ {
		k.Interrupt(kernel.IRQTimer)
	}
	assert.Equal(t, 3, Time(ctx))
}

func TestReadWrite(t *testing.T) {
	_, ctx, in, out := boot(t, kernel.Config{})

	assert.Equal(t, 5, Puts(ctx, "hello"))
	got := make([]byte, 16)
	assert.Equal(t, 5, out.ReadMem(got))
	assert.Equal(t, "hello", string(got[:5]))

	_, err := in.Write([]byte("typed"))
	require.NoError(t, err)
	buf := make([]byte, 3)
	assert.Equal(t, 3, Read(ctx, kernel.ProcIOIn, buf))
	assert.Equal(t, "typ", string(buf))
	assert.Equal(t, 2, Read(ctx, kernel.ProcIOIn, buf))
	assert.Equal(t, "ed", string(buf[:2]))
	assert.Zero(t, Read(ctx, kernel.ProcIOIn, buf))

	assert.Equal(t, -1, Read(ctx, -1, buf))
	assert.Equal(t, -1, Write(ctx, kernel.ProcIOMax, buf))
}

func TestWriteTruncatesAtRingCapacity(t *testing.T) {
	_, ctx, _, out := boot(t, kernel.Config{})

	data := make([]byte, ringbuf.Size+ScratchSize)
	for i := range data {
		data[i] = 'a'
	}
	assert.Equal(t, ringbuf.Size, Write(ctx, kernel.ProcIOOut, data))
	assert.True(t, out.IsFull())

	assert.Zero(t, Flush(ctx, kernel.ProcIOOut))
	assert.True(t, out.IsEmpty())
}

func TestSleepAndExit(t *testing.T) {
	k, ctx, _, _ := boot(t, kernel.Config{TickHz: 10})

	assert.Equal(t, -1, Sleep(ctx, -3))
	assert.True(t, ctx.Live())

	assert.Zero(t, Sleep(ctx, 1))
	assert.False(t, ctx.Live())
	assert.Equal(t, 0, k.Active().PID)

	for i := 0; i < 10; i++ {
		k.Interrupt(kernel.IRQTimer)
	}
	k.Run()
	require.Equal(t, 1, k.Active().PID)
	ctx = k.ContextOf(k.Active())

	Exit(ctx)
	assert.False(t, ctx.Live())
	assert.Nil(t, k.Lookup(1))
	assert.Equal(t, -1, PID(ctx))
}

func TestExitedContextLeavesSlotClean(t *testing.T) {
	k, ctx, _, _ := boot(t, kernel.Config{})
	slot := k.ProcToEntry(k.Active())

	Exit(ctx)
	assert.Equal(t, -1, Puts(ctx, "stale"))
	assert.Equal(t, -1, Read(ctx, kernel.ProcIOIn, make([]byte, 4)))

	// The allocator hands out freed slots last, so fill the table until the
	// exited slot is reused.
	var p *kernel.Proc
	for p == nil || k.ProcToEntry(p) != slot {
		pid, err := k.Create(func(*kernel.Context) {}, "next", kernel.TypeUser)
		require.NoError(t, err)
		p = k.Lookup(pid)
	}
	assert.Equal(t, make([]byte, kernel.ProcStackSize), k.Stack(p))
}
