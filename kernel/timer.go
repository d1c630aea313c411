package kernel

// TimerCallbacksMax bounds the number of registered timer callbacks.
const TimerCallbacksMax = 16

type timerCallback struct {
	fn       func()
	interval uint64
	// repeat counts remaining invocations, -1 for forever.
	repeat int
}

// Timer is the kernel time source: a monotonic tick counter plus a fixed
// table of periodic callbacks run from the timer interrupt.
type Timer struct {
	ticks     uint64
	callbacks [TimerCallbacksMax]timerCallback
}

// Ticks returns the number of ticks since boot.
func (t *Timer) Ticks() uint64 { return t.ticks }

// Register arranges for fn to run every interval ticks, repeat times (-1
// for forever). It returns an id for Unregister.
func (t *Timer) Register(fn func(), interval uint64, repeat int) (int, error) {
	if fn == nil || interval == 0 || repeat == 0 || repeat < -1 {
		return -1, ErrInvalidTimer
	}
	for i := range t.callbacks {
		if t.callbacks[i].fn != nil {
			continue
		}
		t.callbacks[i] = timerCallback{fn: fn, interval: interval, repeat: repeat}
		return i, nil
	}
	return -1, ErrTimerFull
}

// Unregister removes the callback with the given id.
func (t *Timer) Unregister(id int) error {
	if id < 0 || id >= TimerCallbacksMax || t.callbacks[id].fn == nil {
		return ErrInvalidTimer
	}
	t.callbacks[id] = timerCallback{}
	return nil
}

// tick is the timer interrupt handler.
func (t *Timer) tick() {
	t.ticks++
	for i := range t.callbacks {
		cb := &t.callbacks[i]
		if cb.fn == nil || t.ticks%cb.interval != 0 {
			continue
		}
		cb.fn()
		if cb.repeat > 0 {
			cb.repeat--
			if cb.repeat == 0 {
				*cb = timerCallback{}
			}
		}
	}
}
