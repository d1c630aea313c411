package console

import (
	"log/slog"

	"slate/kernel/ringbuf"
)

const (
	// TTYMax is the number of virtual terminals.
	TTYMax = 3

	// TTY geometry matches the text screen.
	TTYWidth  = Cols
	TTYHeight = Rows

	tabWidth = 4
)

// TTY is a virtual terminal: a private text buffer with a cursor, plus the
// input and output rings processes attach to.
type TTY struct {
	ID int

	// In receives decoded keyboard input while the TTY is selected.
	In ringbuf.Ring
	// Out collects process output; it is drained into the buffer on
	// every console refresh.
	Out ringbuf.Ring

	FG, BG Color

	// Scroll moves the contents up when the cursor passes the last row;
	// otherwise the cursor wraps to the top.
	Scroll bool
	// Echo copies keyboard input into the buffer.
	Echo bool

	buf     [TTYWidth * TTYHeight]byte
	x, y    int
	refresh bool
}

func (t *TTY) reset(id int) {
	*t = TTY{ID: id, FG: LightGrey, BG: Black, Scroll: true, Echo: true}
	for i := range t.buf {
		t.buf[i] = ' '
	}
}

// Cursor returns the cursor position.
func (t *TTY) Cursor() (row, col int) { return t.y, t.x }

// Line returns row of the buffer with trailing blanks removed.
func (t *TTY) Line(row int) string {
	if row < 0 || row >= TTYHeight {
		return ""
	}
	line := t.buf[row*TTYWidth : (row+1)*TTYWidth]
	end := len(line)
	for end > 0 && line[end-1] == ' ' {
		end--
	}
	return string(line[:end])
}

// Update writes c at the cursor, interpreting newline, carriage return,
// backspace and tab.
func (t *TTY) Update(c byte) {
	switch c {
	case '\n':
		t.x = 0
		t.y++
	case '\r':
		t.x = 0
	case '\b':
		if t.x > 0 {
			t.x--
			t.buf[t.y*TTYWidth+t.x] = ' '
		}
	case '\t':
		t.x = (t.x/tabWidth + 1) * tabWidth
	default:
		if c < ' ' || c >= 0x7F {
			return
		}
		t.buf[t.y*TTYWidth+t.x] = c
		t.x++
	}

	if t.x >= TTYWidth {
		t.x = 0
		t.y++
	}
	if t.y >= TTYHeight {
		if t.Scroll {
			t.scrollUp()
			t.y = TTYHeight - 1
		} else {
			t.y = 0
		}
	}
	t.refresh = true
}

// Write implements io.Writer by applying Update to every byte.
func (t *TTY) Write(p []byte) (int, error) {
	for _, c := range p {
		t.Update(c)
	}
	return len(p), nil
}

func (t *TTY) scrollUp() {
	copy(t.buf[:], t.buf[TTYWidth:])
	last := t.buf[(TTYHeight-1)*TTYWidth:]
	for i := range last {
		last[i] = ' '
	}
}

// Console multiplexes the TTY table onto one screen. Exactly one TTY is
// selected at a time; only it is drawn and receives keyboard input.
type Console struct {
	screen *Screen
	ttys   [TTYMax]TTY
	active int
	log    *slog.Logger
}

// New returns a console drawing on screen with TTY 0 selected.
func New(screen *Screen, log *slog.Logger) *Console {
	if log == nil {
		log = slog.Default()
	}
	log.Info("initializing tty driver", "ttys", TTYMax)

	c := &Console{screen: screen, log: log}
	for i := range c.ttys {
		c.ttys[i].reset(i)
	}
	c.ttys[0].refresh = true
	return c
}

// TTY returns terminal n, nil if out of range.
func (c *Console) TTY(n int) *TTY {
	if n < 0 || n >= TTYMax {
		return nil
	}
	return &c.ttys[n]
}

// Active returns the selected terminal.
func (c *Console) Active() *TTY { return &c.ttys[c.active] }

// Select makes terminal n the visible one and schedules a full redraw.
func (c *Console) Select(n int) error {
	if n < 0 || n >= TTYMax {
		c.log.Warn("invalid tty", "tty", n)
		return ErrInvalidTTY
	}
	c.active = n
	c.ttys[n].refresh = true
	c.log.Debug("tty selected", "tty", n)
	return nil
}

// Refresh drains pending process output into every terminal and, if the
// selected one changed, copies it to the screen. It runs as a kernel timer
// callback.
func (c *Console) Refresh() {
	var chunk [ringbuf.Size]byte
	for i := range c.ttys {
		t := &c.ttys[i]
		n := t.Out.ReadMem(chunk[:])
		for _, b := range chunk[:n] {
			t.Update(b)
		}
	}

	t := c.Active()
	if !t.refresh {
		return
	}
	for row := 0; row < TTYHeight; row++ {
		for col := 0; col < TTYWidth; col++ {
			c.screen.PutcAt(row, col, t.BG, t.FG, t.buf[row*TTYWidth+col])
		}
	}
	t.refresh = false
}

// Screen returns the screen the console draws on.
func (c *Console) Screen() *Screen { return c.screen }
