package page

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/roach88/tagmgr/internal/bus"
	"github.com/roach88/tagmgr/internal/unit"
)

// Element is a node that was injected into the document.
type Element struct {
	Kind     unit.NodeKind `json:"kind"`
	ID       string        `json:"id,omitempty"`
	Src      string        `json:"src,omitempty"`
	Text     string        `json:"text,omitempty"`
	HTML     string        `json:"html,omitempty"`
	Async    bool          `json:"async,omitempty"`
	Defer    bool          `json:"defer,omitempty"`
	Blocking bool          `json:"blocking,omitempty"`
}

func elementOf(n unit.Node) Element {
	return Element{
		Kind:     n.Kind,
		ID:       n.ID,
		Src:      n.Src,
		Text:     n.Text,
		HTML:     n.HTML,
		Async:    n.Async,
		Defer:    n.Defer,
		Blocking: n.Blocking,
	}
}

// Document is an in-memory host document implementing unit.Injector.
//
// External scripts "load" on a later turn: injection posts the node's load
// callback to the deferrer, so loads complete in injection order. Inline
// scripts and fragments load during injection. Sources marked as failing
// never load.
type Document struct {
	deferrer bus.Deferrer
	logger   *slog.Logger

	mu       sync.Mutex
	head     []Element
	body     []Element
	ready    bool
	failing  map[string]bool
	executed []string
}

// Option configures a Document.
type Option func(*Document)

// WithReady marks the document as already parsed.
func WithReady(ready bool) Option {
	return func(d *Document) {
		d.ready = ready
	}
}

// WithFailing marks external script sources that never load.
func WithFailing(srcs ...string) Option {
	return func(d *Document) {
		for _, src := range srcs {
			d.failing[src] = true
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Document) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// New creates an empty document whose script loads are scheduled on dl.
func New(dl bus.Deferrer, opts ...Option) *Document {
	d := &Document{
		deferrer: dl,
		logger:   slog.Default(),
		failing:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Inject implements unit.Injector.
func (d *Document) Inject(n unit.Node, target unit.Target, pos unit.Position) bool {
	el := elementOf(n)

	d.mu.Lock()
	var list *[]Element
	switch target {
	case unit.TargetHead:
		list = &d.head
	case unit.TargetBody:
		list = &d.body
	default:
		d.mu.Unlock()
		return false
	}
	switch pos {
	case unit.AtStart:
		*list = slices.Insert(*list, 0, el)
	case unit.AtEnd:
		*list = append(*list, el)
	default:
		d.mu.Unlock()
		return false
	}
	failing := n.Src != "" && d.failing[n.Src]
	d.mu.Unlock()

	d.logger.Debug("inject",
		"kind", n.Kind,
		"id", n.ID,
		"target", target,
		"position", pos,
	)

	switch {
	case n.OnLoad == nil:
	case failing:
		d.logger.Debug("script failed to load", "id", n.ID, "src", n.Src)
	case n.Kind == unit.NodeScript && n.Src != "":
		onLoad := n.OnLoad
		d.deferrer.Post(func() error {
			onLoad()
			return nil
		})
	default:
		n.OnLoad()
	}

	return true
}

// Ready implements unit.Injector.
func (d *Document) Ready() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ready
}

// SetReady marks the document as parsed.
func (d *Document) SetReady() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ready = true
}

// Exec implements unit.Injector by recording code.
func (d *Document) Exec(code string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.executed = append(d.executed, code)
}

// Executed returns the onload snippets run so far, in order.
func (d *Document) Executed() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.executed)
}

// Head returns the head's injected elements in document order.
func (d *Document) Head() []Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.head)
}

// Body returns the body's injected elements in document order.
func (d *Document) Body() []Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.body)
}
