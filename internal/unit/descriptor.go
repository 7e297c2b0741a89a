package unit

import "github.com/roach88/tagmgr/internal/match"

// Kind selects how a descriptor is rendered into the page.
type Kind string

const (
	// KindScript is an external script loaded from Src.
	KindScript Kind = "script"

	// KindJS is inline JavaScript; Src holds the code.
	KindJS Kind = "js"

	// KindBlockScript is an external script that blocks parsing. Once the
	// document is ready it can no longer block and is re-queued as a script.
	KindBlockScript Kind = "block-script"

	// KindHTML is a markup fragment; Src holds the markup.
	KindHTML Kind = "html"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindScript, KindJS, KindBlockScript, KindHTML:
		return true
	}
	return false
}

// Target is the element a node is injected into.
type Target string

const (
	TargetHead Target = "head"
	TargetBody Target = "body"
)

// Position is where inside the target a node is inserted.
type Position string

const (
	AtStart Position = "start"
	AtEnd   Position = "end"
)

// Inject places a unit's node. Zero values mean body, at end.
type Inject struct {
	Target   Target   `yaml:"target,omitempty" json:"target,omitempty"`
	Position Position `yaml:"position,omitempty" json:"position,omitempty"`
}

func (i Inject) target() Target {
	if i.Target == "" {
		return TargetBody
	}
	return i.Target
}

func (i Inject) position() Position {
	if i.Position == "" {
		return AtEnd
	}
	return i.Position
}

// Attributes are script loading flags. Nil means the kind's default:
// true for script, false for js and block-script.
type Attributes struct {
	Async *bool `yaml:"async,omitempty" json:"async,omitempty"`
	Defer *bool `yaml:"defer,omitempty" json:"defer,omitempty"`
}

// Descriptor is the configuration of one unit.
type Descriptor struct {
	ID         string            `yaml:"id,omitempty" json:"id,omitempty"`
	Type       Kind              `yaml:"type,omitempty" json:"type,omitempty"`
	Src        string            `yaml:"src,omitempty" json:"src,omitempty"`
	OnLoad     string            `yaml:"onload,omitempty" json:"onload,omitempty"`
	Inject     Inject            `yaml:"inject,omitempty" json:"inject,omitempty"`
	Attributes Attributes        `yaml:"attributes,omitempty" json:"attributes,omitempty"`
	Match      []match.Condition `yaml:"match,omitempty" json:"match,omitempty"`
}

// async and deferred resolve the attribute defaults for kind.
func (d Descriptor) async(kind Kind) bool {
	if d.Attributes.Async != nil {
		return *d.Attributes.Async
	}
	return kind == KindScript
}

func (d Descriptor) deferred(kind Kind) bool {
	if d.Attributes.Defer != nil {
		return *d.Attributes.Defer
	}
	return kind == KindScript
}
