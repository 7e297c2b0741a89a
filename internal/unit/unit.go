package unit

import (
	"strings"

	"github.com/roach88/tagmgr/internal/bus"
	"github.com/roach88/tagmgr/internal/scheduler"
)

// outcome is what rendering did with a unit.
type outcome int

const (
	outcomeIgnored  outcome = iota // nothing was injected
	outcomeAppended                // a node is on the page
	outcomeHeld                    // a nested scheduler reports later
)

// Unit is a LoadableUnit created by a Factory.
type Unit struct {
	id        string
	requested string // id asked for by the descriptor, before deduplication
	kind      Kind
	desc      Descriptor
	f         *Factory
	s         *scheduler.Scheduler

	nested *scheduler.Scheduler
}

// ID returns the unit's unique id.
func (u *Unit) ID() string { return u.id }

// Kind returns the descriptor's type.
func (u *Unit) Kind() Kind { return u.kind }

// Descriptor returns the descriptor with the resolved id.
func (u *Unit) Descriptor() Descriptor { return u.desc }

// Scheduler returns the scheduler that dispatched the unit.
func (u *Unit) Scheduler() *scheduler.Scheduler { return u.s }

// Nested returns the scheduler loading the pieces of an html fragment that
// contains scripts, or nil.
func (u *Unit) Nested() *scheduler.Scheduler { return u.nested }

// Attach checks the unit's match conditions, renders it into the page and
// reports the result with PublishSync: "ignored.<id>" if it is not eligible
// or nothing could be injected, "appended.<id>" otherwise. "loaded.<id>"
// follows with Publish once the host reports the node loaded.
//
// An html fragment with scripts reports nothing from Attach; both
// "appended.<id>" and "loaded.<id>" follow once all its pieces are done.
func (u *Unit) Attach() {
	if !u.f.allow(u.desc.Match) {
		u.f.logger.Debug("unit not eligible", "unit", u.id)
		u.publishSync(scheduler.TopicIgnored)
		return
	}

	u.watchOnLoad()

	switch u.render() {
	case outcomeAppended:
		u.publishSync(scheduler.TopicAppended)
	case outcomeHeld:
	default:
		u.publishSync(scheduler.TopicIgnored)
	}
}

func (u *Unit) render() outcome {
	switch u.kind {
	case KindScript:
		return u.renderScript()
	case KindJS:
		return u.renderJS()
	case KindBlockScript:
		return u.renderBlockScript()
	case KindHTML:
		return u.renderHTML()
	default:
		return outcomeIgnored
	}
}

func (u *Unit) renderScript() outcome {
	if u.desc.Src == "" {
		return outcomeIgnored
	}
	return u.inject(Node{
		Kind:  NodeScript,
		ID:    u.id,
		Src:   u.desc.Src,
		Async: u.desc.async(u.kind),
		Defer: u.desc.deferred(u.kind),
	})
}

func (u *Unit) renderJS() outcome {
	if u.desc.Src == "" {
		return outcomeIgnored
	}
	return u.inject(Node{
		Kind:  NodeScript,
		ID:    u.id,
		Text:  u.desc.Src,
		Async: u.desc.async(u.kind),
		Defer: u.desc.deferred(u.kind),
	})
}

// renderBlockScript injects a parser-blocking script while the document is
// still parsing. Afterwards blocking is impossible: the unit re-queues a
// plain script descriptor for the same source and ignores itself.
func (u *Unit) renderBlockScript() outcome {
	if u.desc.Src == "" {
		return outcomeIgnored
	}

	if u.f.doc.Ready() {
		d := u.desc
		d.ID = u.requested
		d.Type = KindScript
		d.Match = nil
		u.s.AddToQueue([]scheduler.Descriptor{d}, false)
		u.f.logger.Debug("block-script requeued as script", "unit", u.id)
		return outcomeIgnored
	}

	return u.inject(Node{
		Kind:     NodeScript,
		ID:       u.id,
		Src:      u.desc.Src,
		Async:    u.desc.async(u.kind),
		Defer:    u.desc.deferred(u.kind),
		Blocking: true,
	})
}

// renderHTML injects a fragment directly when it has no scripts. Otherwise
// the fragment is split into html, script and js pieces loaded in order by
// a nested serial scheduler. The parent gets no dispatch trigger until the
// pieces are done.
func (u *Unit) renderHTML() outcome {
	if strings.TrimSpace(u.desc.Src) == "" {
		return outcomeIgnored
	}

	chunks, hasScript := splitFragment(u.desc.Src)
	if !hasScript {
		return u.inject(Node{
			Kind: NodeHTML,
			ID:   u.id,
			HTML: u.desc.Src,
		})
	}
	if len(chunks) == 0 {
		return outcomeIgnored
	}

	descs := make([]scheduler.Descriptor, len(chunks))
	for i, c := range chunks {
		c.Inject = u.desc.Inject
		descs[i] = c
	}

	u.nested = scheduler.New(u.f.deferrer, u.f,
		scheduler.WithSerial(true),
		scheduler.WithDescriptors(descs...),
		scheduler.WithBusOptions(u.f.busOpts...),
		scheduler.WithLogger(u.f.logger),
	)
	if _, err := u.nested.Subscribe(scheduler.TopicAllWorkDone, &nestedDone{u: u}); err != nil {
		u.f.logger.Error("watch nested scheduler", "unit", u.id, "error", err)
		return outcomeIgnored
	}

	u.f.logger.Debug("html fragment split",
		"unit", u.id,
		"chunks", len(chunks),
		"nested", u.nested.ID(),
	)

	u.nested.DispatchNext()

	return outcomeHeld
}

func (u *Unit) inject(n Node) outcome {
	n.OnLoad = u.loaded
	if !u.f.doc.Inject(n, u.desc.Inject.target(), u.desc.Inject.position()) {
		u.f.logger.Debug("inject failed",
			"unit", u.id,
			"target", u.desc.Inject.target(),
			"position", u.desc.Inject.position(),
		)
		return outcomeIgnored
	}
	return outcomeAppended
}

// loaded is the node's load callback.
func (u *Unit) loaded() {
	u.s.Publish(scheduler.UnitTopic(scheduler.TopicLoaded, u.id), u.event())
}

// watchOnLoad runs the descriptor's onload snippet when the unit loads.
func (u *Unit) watchOnLoad() {
	if u.desc.OnLoad == "" {
		return
	}
	topic := scheduler.UnitTopic(scheduler.TopicLoaded, u.id)
	if _, err := u.s.Subscribe(topic, &onLoadHandler{u: u}); err != nil {
		u.f.logger.Error("watch onload", "unit", u.id, "error", err)
	}
}

func (u *Unit) publishSync(base string) {
	topic := scheduler.UnitTopic(base, u.id)
	if _, err := u.s.PublishSync(topic, u.event()); err != nil {
		u.f.logger.Warn("unit event handler failed", "topic", topic, "error", err)
	}
}

func (u *Unit) event() scheduler.UnitEvent {
	return scheduler.UnitEvent{UnitID: u.id, Kind: string(u.kind), Unit: u}
}

// onLoadHandler executes a unit's onload snippet.
type onLoadHandler struct {
	u *Unit
}

func (h *onLoadHandler) HandleMessage(msg bus.Message) error {
	ev, ok := msg.Data.(scheduler.UnitEvent)
	if !ok || ev.UnitID != h.u.id {
		return nil
	}
	h.u.f.doc.Exec(h.u.desc.OnLoad)
	return nil
}

// nestedDone reports an html fragment once its nested scheduler is done.
type nestedDone struct {
	u *Unit
}

func (h *nestedDone) HandleMessage(bus.Message) error {
	h.u.publishSync(scheduler.TopicAppended)
	h.u.loaded()
	return nil
}
