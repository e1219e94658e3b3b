package scheduler

import (
	"sync"
	"time"
)

// Deadline is a single re-armable timer slot. Arm atomically replaces any
// previously scheduled callback; Stop cancels the slot outright.
//
// Stopping does not interrupt a callback that has already started, so a
// callback must revalidate the state it targets under the owner's lock and
// treat a stale fire as a no-op.
type Deadline struct {
	mu    sync.Mutex
	timer *time.Timer
}

func NewDeadline() *Deadline {
	return &Deadline{}
}

func (that *Deadline) Arm(d time.Duration, fn func()) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.timer != nil {
		that.timer.Stop()
	}

	that.timer = time.AfterFunc(d, fn)
}

func (that *Deadline) Stop() {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.timer != nil {
		that.timer.Stop()
		that.timer = nil
	}
}
