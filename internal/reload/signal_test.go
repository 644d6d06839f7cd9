package reload

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignal_StartsAtZero(t *testing.T) {
	s := New()

	assert.Equal(t, uint64(0), s.Version())
	assert.True(t, s.LastChangedAt().IsZero())
	assert.False(t, s.Snapshot().ChangedSince(s.Epoch(), 0))
}

func TestSignal_EpochPerInstance(t *testing.T) {
	a, b := New(), New()

	assert.NotEmpty(t, a.Epoch())
	assert.NotEqual(t, a.Epoch(), b.Epoch())
	assert.Equal(t, a.Epoch(), a.Snapshot().Epoch)

	var zero Signal
	assert.Empty(t, zero.Epoch())
}

func TestSignal_ZeroValueUsable(t *testing.T) {
	var s Signal

	assert.Equal(t, uint64(1), s.Advance())
	assert.False(t, s.LastChangedAt().IsZero())
}

func TestSignal_AdvanceIncrementsByOne(t *testing.T) {
	s := New()

	assert.Equal(t, uint64(1), s.Advance())
	assert.Equal(t, uint64(2), s.Advance())
	assert.Equal(t, uint64(2), s.Version())
	assert.True(t, s.Snapshot().ChangedSince(s.Epoch(), 1))
	assert.False(t, s.Snapshot().ChangedSince(s.Epoch(), 2))
}

func TestState_ChangedSince(t *testing.T) {
	st := State{Epoch: "b", Version: 1}

	tests := []struct {
		name    string
		epoch   string
		version uint64
		want    bool
	}{
		{"same epoch newer", "b", 0, true},
		{"same epoch current", "b", 1, false},
		{"same epoch ahead", "b", 3, false},
		{"no epoch newer", "", 0, true},
		{"no epoch ahead", "", 3, false},
		// A tab opened before a restart saw a higher version of the old process.
		{"previous process ahead", "a", 3, true},
		{"previous process current", "a", 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, st.ChangedSince(tt.epoch, tt.version))
		})
	}
}

func TestSignal_AdvanceStampsTime(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := &Signal{now: func() time.Time { return fixed }}

	s.Advance()

	state := s.Snapshot()
	assert.Equal(t, uint64(1), state.Version)
	assert.True(t, fixed.Equal(state.ChangedAt))
}

func TestSignal_ConcurrentAdvanceLosesNothing(t *testing.T) {
	s := New()

	const writers, perWriter = 8, 250

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				s.Advance()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(writers*perWriter), s.Version())
}

func TestSignal_ReadersNeverSeeVersionDecrease(t *testing.T) {
	s := New()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for i := 0; i < 5000; i++ {
			s.Advance()
		}
	}()

	var last uint64
	for {
		v := s.Version()
		require.GreaterOrEqual(t, v, last, "version went backwards")
		last = v

		select {
		case <-done:
			assert.Equal(t, uint64(5000), s.Version())
			return
		default:
		}
	}
}
