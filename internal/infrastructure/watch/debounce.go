// Package watch reports changes to workspace files once they settle.
package watch

import (
	"time"
)

// coalescer collects changes until none has arrived for the quiet period.
// A path changed several times is reported once with its latest op.
type coalescer struct {
	quiet   time.Duration
	timer   *time.Timer
	pending []Change
	index   map[string]int
}

func newCoalescer(quiet time.Duration) *coalescer {
	t := time.NewTimer(quiet)
	t.Stop()
	return &coalescer{quiet: quiet, timer: t, index: make(map[string]int)}
}

// add records c and restarts the quiet period.
func (c *coalescer) add(ch Change) {
	if i, ok := c.index[ch.Path]; ok {
		c.pending[i].Op = ch.Op
	} else {
		c.index[ch.Path] = len(c.pending)
		c.pending = append(c.pending, ch)
	}
	c.timer.Reset(c.quiet)
}

// ready fires when the pending batch has settled.
func (c *coalescer) ready() <-chan time.Time {
	return c.timer.C
}

// flush returns and clears the pending batch.
func (c *coalescer) flush() []Change {
	batch := c.pending
	c.pending = nil
	clear(c.index)
	return batch
}

func (c *coalescer) stop() {
	c.timer.Stop()
}
