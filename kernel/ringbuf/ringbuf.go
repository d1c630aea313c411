// Package ringbuf provides the fixed-capacity byte queues that back process
// I/O slots and TTY input/output.
package ringbuf

import "io"

// Size is the capacity of a ring in bytes.
const Size = 128

// Error is an allocation-free ring buffer error.
type Error string

// Error implements the error interface.
func (e Error) Error() string { return string(e) }

// ErrFull is returned by Write when not all bytes fit.
const ErrFull = Error("ringbuf: buffer full")

// Ring is a fixed-size byte FIFO. It never overwrites unread data: writes
// that do not fit are truncated.
//
// The zero value is an empty ring ready for use.
type Ring struct {
	head uint32
	tail uint32
	buf  [Size]byte
}

// Len returns the number of unread bytes.
func (r *Ring) Len() int { return int(r.head - r.tail) }

// Free returns the number of bytes that can be written before the ring is
// full.
func (r *Ring) Free() int { return Size - r.Len() }

// IsEmpty reports whether there is nothing to read.
func (r *Ring) IsEmpty() bool { return r.head == r.tail }

// IsFull reports whether no more bytes can be written.
func (r *Ring) IsFull() bool { return r.head-r.tail >= Size }

// WriteByte appends one byte.
func (r *Ring) WriteByte(b byte) error {
	if r.IsFull() {
		return ErrFull
	}
	r.buf[r.head%Size] = b
	r.head++
	return nil
}

// ReadByte removes and returns one byte, io.EOF if the ring is empty.
func (r *Ring) ReadByte() (byte, error) {
	if r.IsEmpty() {
		return 0, io.EOF
	}
	b := r.buf[r.tail%Size]
	r.tail++
	return b, nil
}

// WriteMem copies as many bytes of p as fit and returns the count.
func (r *Ring) WriteMem(p []byte) int {
	n := 0
	for _, b := range p {
		if r.WriteByte(b) != nil {
			break
		}
		n++
	}
	return n
}

// ReadMem copies up to len(p) unread bytes into p and returns the count.
func (r *Ring) ReadMem(p []byte) int {
	n := 0
	for n < len(p) {
		b, err := r.ReadByte()
		if err != nil {
			break
		}
		p[n] = b
		n++
	}
	return n
}

// Write implements io.Writer. A short write returns ErrFull.
func (r *Ring) Write(p []byte) (int, error) {
	n := r.WriteMem(p)
	if n < len(p) {
		return n, ErrFull
	}
	return n, nil
}

// Read implements io.Reader. It returns io.EOF when the ring is empty.
func (r *Ring) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if r.IsEmpty() {
		return 0, io.EOF
	}
	return r.ReadMem(p), nil
}

// Flush discards all unread bytes.
func (r *Ring) Flush() {
	*r = Ring{}
}
