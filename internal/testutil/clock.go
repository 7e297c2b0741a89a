// Package testutil holds deterministic stand-ins used by the harness and by
// tests: a resettable sequence clock, fixed run ids, a fixed wall clock and
// a silent logger.
package testutil

import (
	"io"
	"log/slog"
	"sync"
	"time"
)

// DeterministicClock stamps trace events with 1, 2, 3, ...
//
// Unlike journal.Clock it can be reset, so one clock can drive several runs
// of the same scenario and produce identical seq values each time.
// It satisfies runner.Sequencer.
type DeterministicClock struct {
	mu  sync.Mutex
	seq int64
}

// NewDeterministicClock creates a clock whose first Next returns 1.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// Next advances the clock and returns the new value.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the last value handed out, 0 before the first Next.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Reset rewinds the clock to 0.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}

// FixedNow is the wall clock scenarios run at: Wednesday 2024-03-13 12:00 UTC.
var FixedNow = time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)

// Now returns FixedNow. Pass it where a func() time.Time is expected.
func Now() time.Time {
	return FixedNow
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
