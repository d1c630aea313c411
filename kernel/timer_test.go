package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerCallbacks(t *testing.T) {
	var tm Timer
	var every, twice int

	_, err := tm.Register(func() { every++ }, 1, -1)
	require.NoError(t, err)
	_, err = tm.Register(func() { twice++ }, 2, 2)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		tm.tick()
	}
	assert.Equal(t, uint64(10), tm.Ticks())
	assert.Equal(t, 10, every)
	assert.Equal(t, 2, twice)
}

func TestTimerUnregister(t *testing.T) {
	var tm Timer
	n := 0
	id, err := tm.Register(func() { n++ }, 1, -1)
	require.NoError(t, err)

	tm.tick()
	require.NoError(t, tm.Unregister(id))
	tm.tick()
	assert.Equal(t, 1, n)
	assert.Equal(t, ErrInvalidTimer, tm.Unregister(id))
	assert.Equal(t, ErrInvalidTimer, tm.Unregister(-1))
}

func TestTimerRegisterInvalid(t *testing.T) {
	var tm Timer
	fn := func() {}

	for _, tc := range []struct {
		name     string
		fn       func()
		interval uint64
		repeat   int
	}{
		{"nil fn", nil, 1, -1},
		{"zero interval", fn, 0, -1},
		{"zero repeat", fn, 1, 0},
		{"negative repeat", fn, 1, -2},
	} {
		t.Run(tc.name, func(t *testing.T) {
			id, err := tm.Register(tc.fn, tc.interval, tc.repeat)
			assert.Equal(t, ErrInvalidTimer, err)
			assert.Equal(t, -1, id)
		})
	}
}

func TestTimerFull(t *testing.T) {
	var tm Timer
	for i := 0; i < TimerCallbacksMax; i++ {
		_, err := tm.Register(func() {}, 1, -1)
		require.NoError(t, err)
	}
	_, err := tm.Register(func() {}, 1, -1)
	assert.Equal(t, ErrTimerFull, err)
}
