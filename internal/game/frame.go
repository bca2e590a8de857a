package game

import (
	"sync"
	"time"
)

// FrameQueue is the single-consumer command queue that stands in for the
// engine's run-on-next-frame hook. Any goroutine may enqueue; only the
// game-loop goroutine drains. All game-state mutation triggered off the
// loop (webhook handlers, HTTP callbacks, timers) must pass through it.
type FrameQueue struct {
	mu   sync.Mutex
	cmds []func()
}

func NewFrameQueue() *FrameQueue {
	return &FrameQueue{}
}

// NextFrame schedules fn to run on the next drain. Safe from any goroutine.
func (q *FrameQueue) NextFrame(fn func()) {
	if fn == nil {
		return
	}

	q.mu.Lock()
	q.cmds = append(q.cmds, fn)
	q.mu.Unlock()
}

// After schedules fn onto the frame queue once d has elapsed.
func (q *FrameQueue) After(d time.Duration, fn func()) *time.Timer {
	return time.AfterFunc(d, func() {
		q.NextFrame(fn)
	})
}

// Drain runs every queued command in FIFO order and returns how many ran.
// Must only ever be called from the game-loop goroutine. Commands queued
// while draining run on the next drain.
func (q *FrameQueue) Drain() int {
	q.mu.Lock()
	cmds := q.cmds
	q.cmds = nil
	q.mu.Unlock()

	for _, fn := range cmds {
		fn()
	}

	return len(cmds)
}
