package bus

import (
	"log/slog"
	"reflect"
	"sort"
	"sync"

	"github.com/roach88/tagmgr/internal/loop"
)

// Message is what a handler receives. Topic is the topic the message was
// published to, even when the handler subscribed to one of its ancestors.
type Message struct {
	Topic string
	Data  any
}

// Handler reacts to messages. Returning an error (or panicking) marks the
// delivery as failed; see the package documentation for how failures are
// routed.
type Handler interface {
	HandleMessage(Message) error
}

// HandlerFunc adapts a function to Handler. HandlerFunc values are never
// equal to each other, so they cannot be removed with UnsubscribeHandler;
// keep the token instead.
type HandlerFunc func(Message) error

// HandleMessage calls f(msg).
func (f HandlerFunc) HandleMessage(msg Message) error {
	return f(msg)
}

// Deferrer schedules a task on a later turn. *loop.Loop implements it.
type Deferrer interface {
	Post(loop.Task) bool
}

// Event describes one publish call. It is handed to the tap, if any.
type Event struct {
	Topic     string
	Data      any
	Sync      bool
	Archived  bool
	Delivered bool // at least one subscriber existed at call time
}

type subscription struct {
	token   Token
	topic   string
	handler Handler
}

// entry is one archived message.
type entry struct {
	topic     string
	data      any
	sync      bool
	immediate bool
}

// level is the subscriber list of one topic captured at publish time.
type level struct {
	topic string
	subs  []subscription
}

// Bus is a hierarchical publish/subscribe bus with a message archive.
//
// Subscriber slices are copy-on-write: they are replaced, never modified in
// place, so a snapshot taken under the lock stays valid after it is
// released. Handlers are always called without the lock held, which lets
// them publish, subscribe and unsubscribe freely.
type Bus struct {
	mu         sync.Mutex
	subs       map[string][]subscription // topic -> subscriptions in subscribe order
	archive    map[string][]entry        // topic -> entries in publish order
	topicOrder []string                  // archived topics in order of first publish

	deferrer  Deferrer
	immediate bool
	tap       func(Event)
	logger    *slog.Logger
}

// New creates an empty bus that schedules asynchronous work on d.
func New(d Deferrer, opts ...Option) *Bus {
	b := &Bus{
		subs:     make(map[string][]subscription),
		archive:  make(map[string][]entry),
		deferrer: d,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish archives the message (unless NoArchive) and schedules delivery to
// subscribers of topic and its ancestors on the Deferrer.
//
// Returns true iff at least one subscriber existed at call time.
func (b *Bus) Publish(topic string, data any, opts ...PublishOption) bool {
	ok, _ := b.publish(topic, data, false, opts)
	return ok
}

// PublishSync is Publish with inline delivery. The returned error is the
// first exact-topic handler failure when the immediate flag is in effect;
// every other failure is deferred and the error is nil.
func (b *Bus) PublishSync(topic string, data any, opts ...PublishOption) (bool, error) {
	return b.publish(topic, data, true, opts)
}

func (b *Bus) publish(topic string, data any, sync bool, opts []PublishOption) (bool, error) {
	po := publishOptions{archive: true, immediate: b.immediate}
	for _, opt := range opts {
		opt(&po)
	}

	if topic == "" {
		return false, nil
	}

	b.mu.Lock()
	levels := b.snapshotLocked(topic)
	if po.archive {
		b.archiveLocked(entry{topic: topic, data: data, sync: sync, immediate: po.immediate})
	}
	tap := b.tap
	b.mu.Unlock()

	delivered := hasSubscribers(levels)

	if tap != nil {
		tap(Event{Topic: topic, Data: data, Sync: sync, Archived: po.archive, Delivered: delivered})
	}

	b.logger.Debug("publish",
		"topic", topic,
		"sync", sync,
		"delivered", delivered,
	)

	if !delivered {
		return false, nil
	}

	msg := Message{Topic: topic, Data: data}
	if sync {
		return true, b.deliver(msg, levels, po.immediate)
	}

	b.deferrer.Post(func() error {
		return b.deliver(msg, levels, po.immediate)
	})
	return true, nil
}

// snapshotLocked captures the subscriber lists of topic and its ancestors,
// exact topic first. Caller holds b.mu.
func (b *Bus) snapshotLocked(topic string) []level {
	anc := ancestors(topic)
	levels := make([]level, 0, len(anc)+1)
	levels = append(levels, level{topic: topic, subs: b.subs[topic]})
	for _, t := range anc {
		levels = append(levels, level{topic: t, subs: b.subs[t]})
	}
	return levels
}

func hasSubscribers(levels []level) bool {
	for _, lvl := range levels {
		if len(lvl.subs) > 0 {
			return true
		}
	}
	return false
}

// deliver calls every handler in the snapshot. Only the exact topic (the
// first level) can fail fast; ancestor failures are always deferred.
func (b *Bus) deliver(msg Message, levels []level, immediate bool) error {
	for i, lvl := range levels {
		failFast := immediate && i == 0
		for _, sub := range lvl.subs {
			err := call(sub.handler, lvl.topic, msg)
			if err == nil {
				continue
			}
			if failFast {
				return err
			}
			b.rethrow(err)
		}
	}
	return nil
}

// rethrow posts err as its own task so it surfaces as an uncaught error on
// a later turn without interrupting the current delivery.
func (b *Bus) rethrow(err error) {
	b.deferrer.Post(func() error {
		return err
	})
}

// call invokes h, converting a panic into *HandlerPanicError and wrapping a
// returned error in *HandlerError. subscribed is the topic h listens on.
func call(h Handler, subscribed string, msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &HandlerPanicError{Topic: subscribed, Value: r}
		}
	}()
	if herr := h.HandleMessage(msg); herr != nil {
		return &HandlerError{Topic: subscribed, Err: herr}
	}
	return nil
}

// archiveLocked appends e under its exact topic. Caller holds b.mu.
func (b *Bus) archiveLocked(e entry) {
	if _, seen := b.archive[e.topic]; !seen {
		b.topicOrder = append(b.topicOrder, e.topic)
	}
	b.archive[e.topic] = append(b.archive[e.topic], e)
}

// Subscribe registers h under topic and returns its token.
//
// Unless NoReplay is passed, every archived message whose topic is topic or
// one of its descendants is replayed to h: entries archived by PublishSync
// inline, entries archived by Publish on the Deferrer. Topics are visited in
// the order they were first published, entries in publish order.
//
// A non-nil error means an inline replay failed with the immediate flag set.
// The subscription is registered regardless and the token is valid.
func (b *Bus) Subscribe(topic string, h Handler, opts ...SubscribeOption) (Token, error) {
	so := subscribeOptions{replay: true}
	for _, opt := range opts {
		opt(&so)
	}

	if topic == "" {
		return "", ErrEmptyTopic
	}
	if h == nil {
		return "", ErrNilHandler
	}

	token := nextToken()

	b.mu.Lock()
	cur := b.subs[topic]
	// Full slice expression forces append to copy, keeping snapshots intact
	b.subs[topic] = append(cur[:len(cur):len(cur)], subscription{token: token, topic: topic, handler: h})
	var pending []entry
	if so.replay {
		pending = b.matchArchiveLocked(topic)
	}
	b.mu.Unlock()

	b.logger.Debug("subscribe", "topic", topic, "token", token, "replay", len(pending))

	return token, b.replay(topic, h, pending)
}

// matchArchiveLocked copies the archived entries for topic and its
// descendants. Caller holds b.mu.
func (b *Bus) matchArchiveLocked(topic string) []entry {
	var out []entry
	for _, t := range b.topicOrder {
		if isDescendantOrSelf(t, topic) {
			out = append(out, b.archive[t]...)
		}
	}
	return out
}

func (b *Bus) replay(subscribed string, h Handler, entries []entry) error {
	for _, e := range entries {
		msg := Message{Topic: e.topic, Data: e.data}
		if e.sync {
			if err := call(h, subscribed, msg); err != nil {
				if e.immediate {
					return err
				}
				b.rethrow(err)
			}
			continue
		}

		immediate := e.immediate
		b.deferrer.Post(func() error {
			err := call(h, subscribed, msg)
			if err != nil && !immediate {
				b.rethrow(err)
				return nil
			}
			return err
		})
	}
	return nil
}

// Unsubscribe removes the subscription with the given token.
// Returns false if no subscription has that token.
func (b *Bus) Unsubscribe(token Token) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for topic, subs := range b.subs {
		for i, sub := range subs {
			if sub.token != token {
				continue
			}
			b.replaceLocked(topic, without(subs, i))
			b.logger.Debug("unsubscribe", "topic", topic, "token", token)
			// tokens are unique
			return true
		}
	}
	return false
}

// UnsubscribeHandler removes every subscription, on any topic, whose
// handler is identical to h. Returns true if at least one was removed.
func (b *Bus) UnsubscribeHandler(h Handler) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	removed := false
	for topic, subs := range b.subs {
		kept := make([]subscription, 0, len(subs))
		for _, sub := range subs {
			if sameHandler(sub.handler, h) {
				removed = true
				continue
			}
			kept = append(kept, sub)
		}
		if len(kept) != len(subs) {
			b.replaceLocked(topic, kept)
		}
	}
	return removed
}

// replaceLocked installs a new subscriber slice, dropping empty topics.
func (b *Bus) replaceLocked(topic string, subs []subscription) {
	if len(subs) == 0 {
		delete(b.subs, topic)
		return
	}
	b.subs[topic] = subs
}

func without(subs []subscription, i int) []subscription {
	out := make([]subscription, 0, len(subs)-1)
	out = append(out, subs[:i]...)
	return append(out, subs[i+1:]...)
}

// sameHandler compares handlers by identity. Non-comparable handler
// values (funcs, structs holding funcs) never match.
func sameHandler(a, b Handler) bool {
	if a == nil || b == nil {
		return false
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	// Value.Comparable inspects interface fields, Type.Comparable does not
	if !reflect.ValueOf(a).Comparable() || !reflect.ValueOf(b).Comparable() {
		return false
	}
	return a == b
}

// Reset clears all subscriptions and the archive. Deliveries already
// scheduled keep their snapshots and still run.
func (b *Bus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subs = make(map[string][]subscription)
	b.archive = make(map[string][]entry)
	b.topicOrder = nil
}

// Subscribers returns the number of subscriptions on exactly topic.
func (b *Bus) Subscribers(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[topic])
}

// Topics returns the topics with at least one subscription, sorted.
func (b *Bus) Topics() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	topics := make([]string, 0, len(b.subs))
	for t := range b.subs {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}

// Archived returns the messages archived under exactly topic, in publish
// order.
func (b *Bus) Archived(topic string) []Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.archive[topic]
	out := make([]Message, len(entries))
	for i, e := range entries {
		out[i] = Message{Topic: e.topic, Data: e.data}
	}
	return out
}
