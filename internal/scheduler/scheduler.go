package scheduler

import (
	"log/slog"
	"sync"

	"github.com/roach88/tagmgr/internal/bus"
)

// Scheduler dispatches queued descriptors one at a time and publishes
// TopicAllWorkDone when every queued unit has loaded or been ignored.
//
// States: idle (nothing queued or waiting on a unit), dispatching, paused.
// While paused, DispatchNext is a no-op and completions are not counted:
// they are dropped from the pending count, not deferred.
//
// Thread-safety: all methods are safe for concurrent use. The scheduler's
// lock is never held while a unit attaches or a message is published, so
// handlers and units may call back into the scheduler.
type Scheduler struct {
	id      int
	serial  bool
	bus     *bus.Bus
	factory UnitFactory
	logger  *slog.Logger

	mu       sync.Mutex
	queue    []Descriptor
	pending  int
	paused   bool
	docReady bool

	pageLoad sync.Once
}

// Option configures a Scheduler.
type Option func(*config)

type config struct {
	serial      bool
	descriptors []Descriptor
	busOpts     []bus.Option
	logger      *slog.Logger
}

// WithSerial selects serial mode: the next descriptor is dispatched only
// after the current unit reports "loaded" (or "ignored"). The default,
// eager mode, dispatches as soon as the unit reports "appended".
func WithSerial(serial bool) Option {
	return func(c *config) {
		c.serial = serial
	}
}

// WithDescriptors seeds the queue with an initial batch.
func WithDescriptors(descs ...Descriptor) Option {
	return func(c *config) {
		c.descriptors = append(c.descriptors, descs...)
	}
}

// WithBusOptions passes options to the scheduler's bus.
func WithBusOptions(opts ...bus.Option) Option {
	return func(c *config) {
		c.busOpts = append(c.busOpts, opts...)
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// New creates a scheduler, registers it, wires its internal subscriptions
// and enqueues the initial batch, if any. Nothing is dispatched until
// DispatchNext or Resume is called.
func New(d bus.Deferrer, factory UnitFactory, opts ...Option) *Scheduler {
	cfg := config{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	busOpts := append([]bus.Option{bus.WithLogger(cfg.logger)}, cfg.busOpts...)

	s := &Scheduler{
		serial:  cfg.serial,
		bus:     bus.New(d, busOpts...),
		factory: factory,
		logger:  cfg.logger,
	}
	s.id = register(s)

	s.setupEvents()
	s.AddToQueue(cfg.descriptors, false)

	s.logger.Debug("scheduler created",
		"scheduler", s.id,
		"serial", s.serial,
		"queued", len(cfg.descriptors),
	)

	return s
}

// setupEvents subscribes the scheduler to its own bus. Called on
// construction and after Reset.
func (s *Scheduler) setupEvents() {
	trigger := TopicAppended
	if s.serial {
		trigger = TopicLoaded
	}

	next := bus.HandlerFunc(func(bus.Message) error {
		s.DispatchNext()
		return nil
	})
	done := bus.HandlerFunc(func(bus.Message) error {
		s.onUnitDone()
		return nil
	})

	// Dispatch the next unit as soon as the current one is appended (eager)
	// or loaded (serial); ignored units never block the queue.
	s.subscribe(trigger, next)
	s.subscribe(TopicIgnored, next)

	// Count completions toward "all-work-done".
	s.subscribe(TopicIgnored, done)
	s.subscribe(TopicLoaded, done)
}

func (s *Scheduler) subscribe(topic string, h bus.Handler) {
	if _, err := s.bus.Subscribe(topic, h); err != nil {
		s.logger.Error("internal subscription failed",
			"scheduler", s.id,
			"topic", topic,
			"error", err,
		)
	}
}

// onUnitDone handles "loaded" and "ignored".
func (s *Scheduler) onUnitDone() {
	s.mu.Lock()
	if s.paused || s.pending == 0 {
		s.mu.Unlock()
		return
	}
	s.pending--
	finished := s.pending == 0
	s.mu.Unlock()

	if finished {
		s.logger.Debug("all work done", "scheduler", s.id)
		s.bus.Publish(TopicAllWorkDone, nil)
	}
}

// AddToQueue appends descs to the queue, or inserts them at the front in
// their given order when prepend is true, and adds len(descs) to the
// pending count.
//
// Returns false, changing nothing, if descs is empty.
func (s *Scheduler) AddToQueue(descs []Descriptor, prepend bool) bool {
	if len(descs) == 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prepend {
		q := make([]Descriptor, 0, len(descs)+len(s.queue))
		q = append(q, descs...)
		s.queue = append(q, s.queue...)
	} else {
		s.queue = append(s.queue, descs...)
	}
	s.pending += len(descs)

	return true
}

// DispatchNext removes the head descriptor, materialises it through the
// factory and asks the unit to attach. No-op when the queue is empty or the
// scheduler is paused.
func (s *Scheduler) DispatchNext() {
	s.mu.Lock()
	if len(s.queue) == 0 || s.paused {
		s.mu.Unlock()
		return
	}
	desc := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]
	s.mu.Unlock()

	u := s.factory.Create(desc, s)
	s.logger.Debug("dispatch", "scheduler", s.id, "unit", u.ID())
	u.Attach()
}

// Pause stops dispatching and completion counting until Resume.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
}

// Resume clears the pause and immediately tries to dispatch.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()

	s.DispatchNext()
}

// Paused reports whether the scheduler is paused.
func (s *Scheduler) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Reset empties the queue, clears the bus (subscriptions and archive) and
// re-establishes the internal subscriptions. When the document is already
// ready, TopicDocumentReady is published again so the fresh archive holds
// it for later subscribers.
//
// The pending count is left as it is, so descriptors dropped from the queue
// are still counted as outstanding.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	s.queue = nil
	pending := s.pending
	ready := s.docReady
	s.mu.Unlock()

	s.bus.Reset()
	s.setupEvents()
	if ready {
		s.bus.Publish(TopicDocumentReady, nil)
	}

	s.logger.Debug("scheduler reset", "scheduler", s.id, "pending", pending)
}

// DocumentReady publishes TopicDocumentReady. Only the first call has an
// effect; Reset republishes it.
func (s *Scheduler) DocumentReady() {
	s.mu.Lock()
	if s.docReady {
		s.mu.Unlock()
		return
	}
	s.docReady = true
	s.mu.Unlock()

	s.bus.Publish(TopicDocumentReady, nil)
}

// PageLoaded publishes TopicPageLoad. Only the first call has an effect.
func (s *Scheduler) PageLoaded() {
	s.pageLoad.Do(func() {
		s.bus.Publish(TopicPageLoad, nil)
	})
}

// ID returns the scheduler's registry index.
func (s *Scheduler) ID() int {
	return s.id
}

// Serial reports whether the scheduler runs in serial mode.
func (s *Scheduler) Serial() bool {
	return s.serial
}

// Pending returns the number of units not yet loaded or ignored.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// QueueLen returns the number of descriptors waiting for dispatch.
func (s *Scheduler) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Queue returns a copy of the descriptors waiting for dispatch.
func (s *Scheduler) Queue() []Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Descriptor, len(s.queue))
	copy(out, s.queue)
	return out
}

// Bus returns the scheduler's message bus.
func (s *Scheduler) Bus() *bus.Bus {
	return s.bus
}

// Subscribe forwards to the scheduler's bus.
func (s *Scheduler) Subscribe(topic string, h bus.Handler, opts ...bus.SubscribeOption) (bus.Token, error) {
	return s.bus.Subscribe(topic, h, opts...)
}

// Unsubscribe forwards to the scheduler's bus.
func (s *Scheduler) Unsubscribe(token bus.Token) bool {
	return s.bus.Unsubscribe(token)
}

// UnsubscribeHandler forwards to the scheduler's bus.
func (s *Scheduler) UnsubscribeHandler(h bus.Handler) bool {
	return s.bus.UnsubscribeHandler(h)
}

// Publish forwards to the scheduler's bus.
func (s *Scheduler) Publish(topic string, data any, opts ...bus.PublishOption) bool {
	return s.bus.Publish(topic, data, opts...)
}

// PublishSync forwards to the scheduler's bus.
func (s *Scheduler) PublishSync(topic string, data any, opts ...bus.PublishOption) (bool, error) {
	return s.bus.PublishSync(topic, data, opts...)
}
