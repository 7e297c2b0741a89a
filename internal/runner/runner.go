package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/tagmgr/internal/bus"
	"github.com/roach88/tagmgr/internal/journal"
	"github.com/roach88/tagmgr/internal/loop"
	"github.com/roach88/tagmgr/internal/manifest"
	"github.com/roach88/tagmgr/internal/match"
	"github.com/roach88/tagmgr/internal/page"
	"github.com/roach88/tagmgr/internal/scheduler"
	"github.com/roach88/tagmgr/internal/unit"
)

// ErrAlreadyRun is returned by a second call to Run.
var ErrAlreadyRun = errors.New("runner already ran")

// Sequencer stamps trace events. journal.Clock and
// testutil.DeterministicClock implement it.
type Sequencer interface {
	Next() int64
}

// Runner executes one manifest against a simulated page.
type Runner struct {
	m        *manifest.Manifest
	serial   bool
	ready    bool
	logger   *slog.Logger
	seq      Sequencer
	taps     []func(bus.Event)
	loop     *loop.Loop
	doc      *page.Document
	factory  *unit.Factory
	sched    *scheduler.Scheduler
	uncaught []string

	mu    sync.Mutex
	trace []TraceEvent
	done  bool
	ran   bool
}

type settings struct {
	serial    *bool
	immediate bool
	taps      []func(bus.Event)
	logger    *slog.Logger
	seq       Sequencer
	defaults  manifest.Page
}

// Option configures a Runner.
type Option func(*settings)

// WithSerial overrides the manifest's serial flag.
func WithSerial(serial bool) Option {
	return func(s *settings) {
		s.serial = &serial
	}
}

// WithImmediateErrors sets the bus default for the immediate error flag.
func WithImmediateErrors(immediate bool) Option {
	return func(s *settings) {
		s.immediate = immediate
	}
}

// WithTap adds a callback that sees every bus event of the run, after the
// runner has traced it. Used for journaling.
func WithTap(tap func(bus.Event)) Option {
	return func(s *settings) {
		if tap != nil {
			s.taps = append(s.taps, tap)
		}
	}
}

// WithLogger sets the logger for every component of the run.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithSequencer sets the trace sequencer. Default: a fresh journal.Clock.
func WithSequencer(seq Sequencer) Option {
	return func(s *settings) {
		s.seq = seq
	}
}

// WithPageDefaults fills page fields the manifest leaves empty.
func WithPageDefaults(p manifest.Page) Option {
	return func(s *settings) {
		s.defaults = p
	}
}

// New builds the page, factory and scheduler for m. Nothing is dispatched
// until Run.
func New(m *manifest.Manifest, opts ...Option) (*Runner, error) {
	if m == nil {
		return nil, fmt.Errorf("nil manifest")
	}

	st := settings{logger: slog.Default()}
	for _, opt := range opts {
		opt(&st)
	}
	if st.logger == nil {
		st.logger = slog.Default()
	}
	if st.seq == nil {
		st.seq = journal.NewClock()
	}

	pg := mergePage(m.Page, st.defaults)
	mctx, err := pg.Context()
	if err != nil {
		return nil, fmt.Errorf("page context: %w", err)
	}

	r := &Runner{
		m:      m,
		serial: m.Serial,
		ready:  pg.Ready,
		logger: st.logger,
		seq:    st.seq,
		taps:   st.taps,
	}
	if st.serial != nil {
		r.serial = *st.serial
	}

	r.loop = loop.New(loop.WithErrorHandler(r.onUncaught))
	r.doc = page.New(r.loop,
		page.WithReady(pg.Ready),
		page.WithFailing(pg.Failing...),
		page.WithLogger(st.logger),
	)

	busOpts := []bus.Option{
		bus.WithTap(r.tap),
		bus.WithImmediateErrors(st.immediate),
	}
	checker := match.NewChecker(mctx, match.WithLogger(st.logger))
	r.factory = unit.NewFactory(r.doc, r.loop,
		unit.WithPredicate(checker),
		unit.WithBusOptions(busOpts...),
		unit.WithLogger(st.logger),
	)
	r.sched = scheduler.New(r.loop, r.factory,
		scheduler.WithSerial(r.serial),
		scheduler.WithDescriptors(m.Descriptors()...),
		scheduler.WithBusOptions(busOpts...),
		scheduler.WithLogger(st.logger),
	)

	done := bus.HandlerFunc(func(bus.Message) error {
		r.mu.Lock()
		r.done = true
		r.mu.Unlock()
		return nil
	})
	if _, err := r.sched.Subscribe(scheduler.TopicAllWorkDone, done); err != nil {
		return nil, fmt.Errorf("watch all-work-done: %w", err)
	}

	return r, nil
}

// mergePage fills empty fields of p from defaults.
func mergePage(p, defaults manifest.Page) manifest.Page {
	if p.URL == "" {
		p.URL = defaults.URL
	}
	if p.Cookies == "" {
		p.Cookies = defaults.Cookies
	}
	if p.Now == "" {
		p.Now = defaults.Now
	}
	return p
}

// Run dispatches the queue and fires the document lifecycle, draining the
// loop after each step. It stops early, returning ctx.Err(), when ctx is
// done. A stalled run is not an error; check Report.Stalled.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	r.mu.Lock()
	if r.ran {
		r.mu.Unlock()
		return nil, ErrAlreadyRun
	}
	r.ran = true
	r.mu.Unlock()

	r.logger.Info("run started",
		"manifest", r.m.Name,
		"units", len(r.m.Units),
		"serial", r.serial,
	)

	if r.ready {
		r.sched.DocumentReady()
	}
	r.sched.DispatchNext()
	if err := r.drain(ctx); err != nil {
		return nil, err
	}

	if !r.ready {
		r.doc.SetReady()
		r.sched.DocumentReady()
		if err := r.drain(ctx); err != nil {
			return nil, err
		}
	}

	r.sched.PageLoaded()
	if err := r.drain(ctx); err != nil {
		return nil, err
	}

	rep := r.report()
	r.logger.Info("run finished",
		"manifest", r.m.Name,
		"done", rep.Done,
		"pending", rep.Pending,
		"events", len(rep.Trace),
	)
	return rep, nil
}

func (r *Runner) drain(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !r.loop.RunOnce() {
			return nil
		}
	}
}

// tap is installed on every bus of the run.
func (r *Runner) tap(ev bus.Event) {
	te := TraceEvent{
		Topic:     ev.Topic,
		Mode:      string(journal.ModeAsync),
		Delivered: ev.Delivered,
	}
	if ev.Sync {
		te.Mode = string(journal.ModeSync)
	}
	if ue, ok := ev.Data.(scheduler.UnitEvent); ok {
		te.UnitID = ue.UnitID
	}

	r.mu.Lock()
	te.Seq = r.seq.Next()
	r.trace = append(r.trace, te)
	r.mu.Unlock()

	for _, tap := range r.taps {
		tap(ev)
	}
}

func (r *Runner) onUncaught(err error) {
	r.logger.Warn("uncaught handler error", "error", err)
	r.mu.Lock()
	r.uncaught = append(r.uncaught, err.Error())
	r.mu.Unlock()
}

// Scheduler returns the top-level scheduler.
func (r *Runner) Scheduler() *scheduler.Scheduler { return r.sched }

// Document returns the simulated page.
func (r *Runner) Document() *page.Document { return r.doc }

// Factory returns the unit factory.
func (r *Runner) Factory() *unit.Factory { return r.factory }

// Serial reports the effective scheduling mode.
func (r *Runner) Serial() bool { return r.serial }
