package unit

import "github.com/roach88/tagmgr/internal/match"

// NodeKind tells the host how to treat an injected node.
type NodeKind string

const (
	// NodeScript is a script element: external when Src is set, inline
	// otherwise.
	NodeScript NodeKind = "script"

	// NodeHTML is a parsed markup fragment without scripts.
	NodeHTML NodeKind = "html"
)

// Node is what a unit asks the host to insert.
type Node struct {
	Kind NodeKind
	ID   string // unit id; empty for anonymous nodes

	Src  string // external script URL
	Text string // inline script code
	HTML string // fragment markup

	Async    bool
	Defer    bool
	Blocking bool // parser-blocking script

	// OnLoad is called by the host once the node has loaded: on a later turn
	// for external scripts, during injection for inline scripts and
	// fragments. A node that fails to load never calls it.
	OnLoad func()
}

// Injector is the host document units are rendered into. page.Document is
// the in-memory implementation.
type Injector interface {
	// Inject inserts n into target at pos. Returns false if the target does
	// not exist or the position is unknown.
	Inject(n Node, target Target, pos Position) bool

	// Ready reports whether the document has finished parsing.
	Ready() bool

	// Exec runs an onload snippet in the page.
	Exec(code string)
}

// Predicate decides whether a unit's match conditions hold on this page.
// *match.Checker implements it.
type Predicate interface {
	Allow(conds []match.Condition) bool
}
