package app

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slate/console"
	"slate/hal"
	"slate/internal/idgen"
	"slate/kernel"
)

type testLogger struct {
	lines []string
}

func (l *testLogger) WriteLineString(s string) { l.lines = append(l.lines, s) }
func (l *testLogger) WriteLineBytes(b []byte)  { l.lines = append(l.lines, string(b)) }

func (l *testLogger) contains(sub string) bool {
	for _, line := range l.lines {
		if strings.Contains(line, sub) {
			return true
		}
	}
	return false
}

type testFramebuffer struct {
	buf []byte
}

func (f *testFramebuffer) Width() int              { return console.Width }
func (f *testFramebuffer) Height() int             { return console.Height }
func (f *testFramebuffer) Format() hal.PixelFormat { return hal.PixelFormatRGB565 }
func (f *testFramebuffer) StrideBytes() int        { return console.Width * 2 }
func (f *testFramebuffer) Buffer() []byte          { return f.buf }
func (f *testFramebuffer) ClearRGB(r, g, b uint8)  {}
func (f *testFramebuffer) Present() error          { return nil }

type testHAL struct {
	log   *testLogger
	fb    *testFramebuffer
	keys  chan hal.KeyEvent
	ticks chan uint64
}

func newTestHAL() *testHAL {
	return &testHAL{
		log:   &testLogger{},
		fb:    &testFramebuffer{buf: make([]byte, console.Width*console.Height*2)},
		keys:  make(chan hal.KeyEvent, 64),
		ticks: make(chan uint64, 1024),
	}
}

func (h *testHAL) Logger() hal.Logger   { return h.log }
func (h *testHAL) Display() hal.Display { return h }
func (h *testHAL) Input() hal.Input     { return h }
func (h *testHAL) Time() hal.Time       { return h }

func (h *testHAL) Framebuffer() hal.Framebuffer { return h.fb }
func (h *testHAL) Keyboard() hal.Keyboard       { return h }
func (h *testHAL) Events() <-chan hal.KeyEvent  { return h.keys }
func (h *testHAL) Ticks() <-chan uint64         { return h.ticks }

func (h *testHAL) tick(t *testing.T, m *Machine, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		h.ticks <- uint64(i)
	}
	require.NoError(t, m.Step())
}

func stubBootID(t *testing.T) {
	prev := idgen.NewFunc
	idgen.NewFunc = func() string { return "boot-test" }
	t.Cleanup(func() { idgen.NewFunc = prev })
}

func ttyText(m *Machine, n int) string {
	tty := m.Console().TTY(n)
	var lines []string
	for row := 0; row < console.TTYHeight; row++ {
		if line := tty.Line(row); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func testConfig(programs ...ProgramConfig) *Config {
	cfg := DefaultConfig()
	cfg.Kernel.TickHz = 10
	cfg.Kernel.Timeslice = 2
	cfg.Console.RefreshTicks = 1
	cfg.Programs = programs
	return cfg
}

func TestBootBanner(t *testing.T) {
	stubBootID(t)
	h := newTestHAL()
	m, err := New(h, testConfig(), Options{StopOnHalt: true})
	require.NoError(t, err)
	defer m.Close()

	h.tick(t, m, 1)
	assert.Contains(t, m.Console().Screen().Text(0), "slate dev boot boot-test")
	assert.True(t, h.log.contains("boot=boot-test"))
	assert.NotEqual(t, make([]byte, len(h.fb.buf)), h.fb.buf)
}

func TestHelloExits(t *testing.T) {
	h := newTestHAL()
	m, err := New(h, testConfig(ProgramConfig{Name: "greeter", Program: "hello", Type: "user", TTY: 1}), Options{StopOnHalt: true})
	require.NoError(t, err)
	free := m.Kernel().FreeSlots()

	h.tick(t, m, 3)
	assert.Contains(t, ttyText(m, 1), "hello from greeter (pid 1) on slate")
	assert.Nil(t, m.Kernel().Lookup(1))
	assert.Equal(t, free+1, m.Kernel().FreeSlots())
}

func TestClockSleeps(t *testing.T) {
	h := newTestHAL()
	m, err := New(h, testConfig(ProgramConfig{Name: "clock", Program: "clock", TTY: 0}), Options{StopOnHalt: true})
	require.NoError(t, err)

	h.tick(t, m, 1)
	p := m.Kernel().Lookup(1)
	require.NotNil(t, p)
	assert.Equal(t, kernel.StateSleeping, p.State)

	h.tick(t, m, 25)
	text := ttyText(m, 0)
	assert.Contains(t, text, "uptime 0s")
	assert.Contains(t, text, "uptime 1s")
	assert.Contains(t, text, "uptime 2s")
}

func TestEchoReadsKeyboard(t *testing.T) {
	h := newTestHAL()
	m, err := New(h, testConfig(ProgramConfig{Name: "echo", Program: "echo", TTY: 1}), Options{StopOnHalt: true})
	require.NoError(t, err)

	h.keys <- hal.KeyEvent{Code: hal.KeyF2, Press: true}
	for _, r := range "hey" {
		h.keys <- hal.KeyEvent{Press: true, Rune: r}
	}
	h.keys <- hal.KeyEvent{Code: hal.KeyEnter, Press: true}
	h.tick(t, m, 4)

	assert.Equal(t, 1, m.Console().Active().ID)
	assert.Equal(t, "hey\n> hey", ttyText(m, 1))
	assert.Equal(t, "> hey", m.Console().Screen().Text(1))
}

func TestSpinIsPreempted(t *testing.T) {
	h := newTestHAL()
	m, err := New(h, testConfig(
		ProgramConfig{Name: "spin-a", Program: "spin", TTY: 2},
		ProgramConfig{Name: "spin-b", Program: "spin", TTY: 2},
	), Options{StopOnHalt: true})
	require.NoError(t, err)

	h.tick(t, m, 1000)
	a, b := m.Kernel().Lookup(1), m.Kernel().Lookup(2)
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.InDelta(t, a.RunTime, b.RunTime, 2)
	assert.Contains(t, ttyText(m, 2), "spin 500")
}

func TestTracing(t *testing.T) {
	h := newTestHAL()
	var trace bytes.Buffer
	m, err := New(h, testConfig(ProgramConfig{Name: "greeter", Program: "hello", TTY: 0}), Options{TraceWriter: &trace})
	require.NoError(t, err)

	h.tick(t, m, 2)
	require.NoError(t, m.Close())
	out := trace.String()
	assert.Contains(t, out, "proc.step")
	assert.Contains(t, out, "greeter")
	assert.Contains(t, out, "proc_exit")
}

func TestKernelHalt(t *testing.T) {
	h := newTestHAL()
	m, err := New(h, testConfig(), Options{StopOnHalt: true})
	require.NoError(t, err)
	h.tick(t, m, 1)

	require.NoError(t, m.Kernel().RunQueue().Enqueue(42))
	m.Kernel().Active().CPUTime = 100
	h.ticks <- 1
	err = m.Step()

	var halt *HaltError
	require.ErrorAs(t, err, &halt)
	assert.Equal(t, "sched", halt.Fatal.Module)
	assert.Same(t, halt, m.Halted())
	assert.True(t, m.Kernel().InPanicMode())
	assert.True(t, h.log.contains("slate panic: [sched] unrecoverable error: unable to schedule pid 42"))
	assert.True(t, h.log.contains("pid: none"))
	assert.True(t, h.log.contains("ENTRY PID"))

	// Halted machines stay halted.
	h.ticks <- 2
	assert.ErrorIs(t, m.Step(), halt)
}

func TestKernelHaltKeepsRunningWindow(t *testing.T) {
	h := newTestHAL()
	m, err := New(h, testConfig(), Options{})
	require.NoError(t, err)
	h.tick(t, m, 1)

	require.NoError(t, m.Kernel().RunQueue().Enqueue(42))
	m.Kernel().Active().CPUTime = 100
	h.ticks <- 1
	assert.NoError(t, m.Step())
	assert.NotNil(t, m.Halted())
	assert.NoError(t, m.Step())
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(ProgramConfig{Name: "x", Program: "missing"})
	_, err := New(newTestHAL(), cfg, Options{})
	assert.ErrorContains(t, err, "unknown program")
}
