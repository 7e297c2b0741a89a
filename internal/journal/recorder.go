package journal

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/tagmgr/internal/bus"
)

// Recorder journals bus events for one run. Pass Tap to bus.WithTap; every
// bus built with that option (nested schedulers included) shares the run's
// clock, so seq reflects global publish order.
type Recorder struct {
	j      *Journal
	ctx    context.Context
	runID  string
	clock  *Clock
	logger *slog.Logger

	mu  sync.Mutex
	err error
}

// NewRecorder creates a recorder for an already begun run.
func (j *Journal) NewRecorder(ctx context.Context, runID string, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		j:      j,
		ctx:    ctx,
		runID:  runID,
		clock:  NewClock(),
		logger: logger,
	}
}

// Tap records one event. The first write failure is logged and kept in
// Err, and later events are dropped; the bus is never interrupted by the
// journal.
func (r *Recorder) Tap(ev bus.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return
	}

	payload, err := MarshalPayload(ev.Data)
	if err != nil {
		r.logger.Warn("journal: payload not encodable",
			"topic", ev.Topic,
			"type", fmt.Sprintf("%T", ev.Data),
			"error", err)
		payload, _ = MarshalPayload(fmt.Sprintf("<%T>", ev.Data))
	}

	mode := ModeAsync
	if ev.Sync {
		mode = ModeSync
	}

	err = r.j.Record(r.ctx, Entry{
		RunID:     r.runID,
		Seq:       r.clock.Next(),
		Topic:     ev.Topic,
		Payload:   []byte(payload),
		Mode:      mode,
		Archived:  ev.Archived,
		Delivered: ev.Delivered,
	})
	if err != nil {
		r.logger.Warn("journal: record failed", "topic", ev.Topic, "error", err)
		r.err = err
	}
}

// RunID returns the run being recorded.
func (r *Recorder) RunID() string {
	return r.runID
}

// Count returns the number of events stamped so far. Events dropped
// after a write failure are not counted.
func (r *Recorder) Count() int64 {
	return r.clock.Current()
}

// Err returns the first write error, if any.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
