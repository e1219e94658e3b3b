package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeadline_Arm(t *testing.T) {
	t.Run("Fires the callback after the duration", func(t *testing.T) {
		// Given: an armed deadline
		deadline := NewDeadline()
		fired := make(chan struct{})

		// When: the duration elapses
		deadline.Arm(10*time.Millisecond, func() { close(fired) })

		// Then: the callback fires
		select {
		case <-fired:
		case <-time.After(time.Second):
			t.Fatal("deadline did not fire")
		}
	})

	t.Run("Re-arming replaces the pending callback", func(t *testing.T) {
		// Given: a deadline armed with a first callback
		deadline := NewDeadline()
		var first, second atomic.Int32

		deadline.Arm(50*time.Millisecond, func() { first.Add(1) })

		// When: it is re-armed before firing
		replaced := make(chan struct{})
		deadline.Arm(10*time.Millisecond, func() {
			second.Add(1)
			close(replaced)
		})

		// Then: only the replacement fires
		select {
		case <-replaced:
		case <-time.After(time.Second):
			t.Fatal("replacement callback did not fire")
		}

		time.Sleep(100 * time.Millisecond)
		assert.Equal(t, int32(0), first.Load())
		assert.Equal(t, int32(1), second.Load())
	})

	t.Run("Stop cancels the pending callback", func(t *testing.T) {
		// Given: an armed deadline
		deadline := NewDeadline()
		var fired atomic.Int32

		deadline.Arm(20*time.Millisecond, func() { fired.Add(1) })

		// When: it is stopped before firing
		deadline.Stop()

		// Then: the callback never runs
		time.Sleep(100 * time.Millisecond)
		assert.Equal(t, int32(0), fired.Load())
	})

	t.Run("Stop on an unarmed deadline is harmless", func(t *testing.T) {
		deadline := NewDeadline()

		require.NotPanics(t, func() { deadline.Stop() })
	})

	t.Run("Concurrent re-arms leave a single live callback", func(t *testing.T) {
		// Given: a deadline re-armed from several goroutines
		deadline := NewDeadline()
		var fired atomic.Int32

		done := make(chan struct{})
		for i := 0; i < 8; i++ {
			go func() {
				deadline.Arm(20*time.Millisecond, func() { fired.Add(1) })
				done <- struct{}{}
			}()
		}
		for i := 0; i < 8; i++ {
			<-done
		}

		// Then: at most one callback fires
		time.Sleep(150 * time.Millisecond)
		assert.LessOrEqual(t, fired.Load(), int32(1))
	})
}
