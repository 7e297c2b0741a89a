package loop

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Task is one unit of deferred work. A non-nil error is treated as an
// uncaught error and handed to the loop's error handler.
type Task func() error

// PanicError wraps a value recovered from a panicking task.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// Loop is a FIFO queue of deferred tasks drained by a single dispatcher.
//
// It is the "next turn of the event loop" for the message bus: Publish and
// archive replay post tasks here instead of running them inline. Tasks run
// one at a time, in the order they were posted.
//
// Thread-safety model:
//   - Post(): safe from any goroutine
//   - Run(), Drain(), RunOnce(): call from exactly one goroutine at a time
type Loop struct {
	mu      sync.Mutex
	tasks   []Task
	closed  bool
	signal  chan struct{} // Signals task availability (buffered, size 1)
	onError func(error)
}

// Option configures a Loop.
type Option func(*Loop)

// WithErrorHandler sets the function that receives uncaught task errors.
// The default logs them with slog.Error.
func WithErrorHandler(fn func(error)) Option {
	return func(l *Loop) {
		if fn != nil {
			l.onError = fn
		}
	}
}

// New creates an empty loop.
func New(opts ...Option) *Loop {
	l := &Loop{
		tasks:  make([]Task, 0, 64),
		signal: make(chan struct{}, 1),
		onError: func(err error) {
			slog.Error("uncaught handler error", "error", err)
		},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Post appends a task to the back of the queue.
// Returns false if the loop is closed.
func (l *Loop) Post(t Task) bool {
	if t == nil {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return false
	}

	l.tasks = append(l.tasks, t)

	// Non-blocking: a buffer of 1 coalesces multiple signals
	select {
	case l.signal <- struct{}{}:
	default:
	}

	return true
}

// next removes and returns the head task.
func (l *Loop) next() (Task, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.tasks) == 0 {
		return nil, false
	}

	t := l.tasks[0]

	// Nil out the slot so the closure (and its snapshot) can be collected
	l.tasks[0] = nil
	if len(l.tasks) == 1 {
		l.tasks = l.tasks[:0]
	} else {
		l.tasks = l.tasks[1:]
	}

	return t, true
}

// RunOnce runs the head task on the calling goroutine.
// Returns false if the queue was empty.
func (l *Loop) RunOnce() bool {
	t, ok := l.next()
	if !ok {
		return false
	}
	l.execute(t)
	return true
}

// Drain runs tasks until the queue is empty, including tasks posted by the
// tasks themselves. Returns the number of tasks run.
func (l *Loop) Drain() int {
	n := 0
	for l.RunOnce() {
		n++
	}
	return n
}

// execute runs one task, routing its error or panic to the error handler.
func (l *Loop) execute(t Task) {
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = &PanicError{Value: r}
			}
		}()
		err = t()
	}()
	if err != nil {
		l.onError(err)
	}
}

// Run starts the dispatcher loop. Blocks until ctx is cancelled or Close()
// is called and the queue has drained.
//
// Must be called from exactly one goroutine.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if l.RunOnce() {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-l.signal:
			// The signal channel is closed by Close(), so this fires
			// immediately once closed
			l.mu.Lock()
			done := l.closed && len(l.tasks) == 0
			l.mu.Unlock()
			if done {
				return nil
			}
		}
	}
}

// Len returns the number of queued tasks.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks)
}

// Close stops accepting tasks and wakes a blocked Run.
// Tasks already queued still run.
func (l *Loop) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}

	l.closed = true
	close(l.signal)
}
