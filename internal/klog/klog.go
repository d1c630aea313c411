// Package klog builds the structured loggers used by the kernel and the
// machine. Records are rendered by log/slog and delivered line by line to a
// hal.Logger, so the same output works over a host terminal or a UART.
package klog

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"

	"slate/hal"
)

// New returns a logger writing text records at level or above to out.
func New(out hal.Logger, level slog.Level, attrs ...slog.Attr) *slog.Logger {
	h := slog.NewTextHandler(&lineWriter{out: out}, &slog.HandlerOptions{Level: level})
	if len(attrs) == 0 {
		return slog.New(h)
	}
	return slog.New(h.WithAttrs(attrs))
}

// ParseLevel maps debug, info, warn and error (case-insensitive) to a level.
// An empty string is info.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if strings.TrimSpace(s) == "" {
		return slog.LevelInfo, nil
	}
	err := level.UnmarshalText([]byte(s))
	return level, err
}

// ErrAttr wraps err for structured logging.
func ErrAttr(err error) slog.Attr {
	return slog.Any("error", err)
}

// lineWriter splits writes into lines for a hal.Logger. A trailing partial
// line is held until its newline arrives.
type lineWriter struct {
	mu      sync.Mutex
	out     hal.Logger
	partial []byte
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := len(p)
	for len(p) > 0 {
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			w.partial = append(w.partial, p...)
			break
		}
		if len(w.partial) > 0 {
			w.partial = append(w.partial, p[:i]...)
			w.out.WriteLineBytes(w.partial)
			w.partial = w.partial[:0]
		} else {
			w.out.WriteLineBytes(p[:i])
		}
		p = p[i+1:]
	}
	return n, nil
}
