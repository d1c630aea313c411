package console

import (
	"slate/hal"
)

// Error is an allocation-free console error.
type Error string

// Error implements the error interface.
func (e Error) Error() string { return string(e) }

const ErrInvalidTTY = Error("console: invalid tty")

// Decode maps a key press to the byte a process reads. Releases, non-ASCII
// runes and keys without a character return false.
func Decode(ev hal.KeyEvent) (byte, bool) {
	if !ev.Press {
		return 0, false
	}
	switch ev.Code {
	case hal.KeyEnter:
		return '\n', true
	case hal.KeyBackspace:
		return '\b', true
	case hal.KeyTab:
		return '\t', true
	case hal.KeyEscape:
		return 0x1b, true
	case hal.KeyUnknown:
		if ev.Rune > 0 && ev.Rune < 0x80 {
			return byte(ev.Rune), true
		}
	}
	return 0, false
}

// SelectKey reports which terminal a key press switches to: F1 through F3
// select TTY 0 through 2.
func SelectKey(ev hal.KeyEvent) (int, bool) {
	if !ev.Press {
		return 0, false
	}
	switch ev.Code {
	case hal.KeyF1:
		return 0, true
	case hal.KeyF2:
		return 1, true
	case hal.KeyF3:
		return 2, true
	}
	return 0, false
}

// HandleKey routes one keyboard event: terminal switches are applied,
// characters go to the selected terminal's input ring and, with echo on,
// into its buffer. Input that does not fit in the ring is dropped.
func (c *Console) HandleKey(ev hal.KeyEvent) {
	if n, ok := SelectKey(ev); ok {
		_ = c.Select(n)
		return
	}
	b, ok := Decode(ev)
	if !ok {
		return
	}
	t := c.Active()
	if err := t.In.WriteByte(b); err != nil {
		c.log.Debug("tty input dropped", "tty", t.ID)
		return
	}
	if t.Echo {
		t.Update(b)
	}
}
