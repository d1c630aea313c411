package kernel

// Error describes a recoverable kernel error. Errors are package-level
// pointers so returning one never allocates.
type Error struct {
	// The module where the error occurred.
	Module string

	// The error message
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Module + ": " + e.Message
}

var (
	ErrQueueFull      = &Error{Module: "queue", Message: "queue is full"}
	ErrQueueEmpty     = &Error{Module: "queue", Message: "queue is empty"}
	ErrProcExhausted  = &Error{Module: "proc", Message: "process table exhausted"}
	ErrInvalidProcess = &Error{Module: "proc", Message: "invalid process"}
	ErrInvalidIO      = &Error{Module: "proc", Message: "invalid io slot"}
	ErrTimerFull      = &Error{Module: "timer", Message: "no free timer callback slots"}
	ErrInvalidTimer   = &Error{Module: "timer", Message: "invalid timer callback"}
)
