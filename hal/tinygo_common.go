//go:build tinygo && baremetal

package hal

import (
	"machine"
	"time"
)

type tinyGoDisplay struct {
	fb Framebuffer
}

func (d tinyGoDisplay) Framebuffer() Framebuffer { return d.fb }

type tinyGoInput struct {
	kbd Keyboard
}

func (in tinyGoInput) Keyboard() Keyboard { return in.kbd }

// tickSource drives the timer interrupt from a hardware ticker. Ticks that
// the machine has not consumed yet are dropped, not queued up.
type tickSource struct {
	ch  chan uint64
	seq uint64
}

func newTickSource(period time.Duration) *tickSource {
	if period <= 0 {
		period = defaultTickPeriod
	}
	t := &tickSource{ch: make(chan uint64, 16)}
	go func() {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for range ticker.C {
			t.seq++
			select {
			case t.ch <- t.seq:
			default:
			}
		}
	}()
	return t
}

func (t *tickSource) Ticks() <-chan uint64 { return t.ch }

type uartLogger struct {
	uart *machine.UART
}

func (l *uartLogger) WriteLineString(s string) {
	for i := 0; i < len(s); i++ {
		l.uart.WriteByte(s[i])
	}
	l.crlf()
}

func (l *uartLogger) WriteLineBytes(b []byte) {
	_, _ = l.uart.Write(b)
	l.crlf()
}

func (l *uartLogger) crlf() {
	l.uart.WriteByte('\r')
	l.uart.WriteByte('\n')
}

// uartKeyboard turns bytes received on the serial console into key events.
// A serial terminal has no function keys, so TTY 0 stays selected.
type uartKeyboard struct {
	ch chan KeyEvent
}

func newUARTKeyboard(uart *machine.UART, poll time.Duration) *uartKeyboard {
	k := &uartKeyboard{ch: make(chan KeyEvent, 32)}
	go func() {
		for {
			for uart.Buffered() > 0 {
				b, err := uart.ReadByte()
				if err != nil {
					break
				}
				select {
				case k.ch <- serialKey(b):
				default:
				}
			}
			time.Sleep(poll)
		}
	}()
	return k
}

func (k *uartKeyboard) Events() <-chan KeyEvent { return k.ch }

func serialKey(b byte) KeyEvent {
	switch b {
	case '\r', '\n':
		return KeyEvent{Code: KeyEnter, Press: true}
	case 0x08, 0x7F:
		return KeyEvent{Code: KeyBackspace, Press: true}
	case '\t':
		return KeyEvent{Code: KeyTab, Press: true}
	case 0x1B:
		return KeyEvent{Code: KeyEscape, Press: true}
	}
	return KeyEvent{Press: true, Rune: rune(b)}
}
