package manifest

import (
	"fmt"
	"time"

	"github.com/roach88/tagmgr/internal/match"
	"github.com/roach88/tagmgr/internal/scheduler"
	"github.com/roach88/tagmgr/internal/unit"
)

// Manifest is a named batch of units plus the page they load on.
type Manifest struct {
	// Name identifies the manifest in traces and the journal.
	Name string `yaml:"name" json:"name"`

	// Serial selects serial mode for the top-level scheduler.
	Serial bool `yaml:"serial,omitempty" json:"serial,omitempty"`

	// Page describes the simulated host page.
	Page Page `yaml:"page,omitempty" json:"page,omitempty"`

	// Units are dispatched in order.
	Units []unit.Descriptor `yaml:"units" json:"units"`
}

// Page describes the host page conditions are evaluated against.
type Page struct {
	URL     string `yaml:"url,omitempty" json:"url,omitempty"`
	Cookies string `yaml:"cookies,omitempty" json:"cookies,omitempty"`

	// Now fixes the evaluation time (RFC 3339 or YYYY-MM-DD).
	// Empty means the wall clock.
	Now string `yaml:"now,omitempty" json:"now,omitempty"`

	// Ready starts the document as already parsed.
	Ready bool `yaml:"ready,omitempty" json:"ready,omitempty"`

	// Failing lists script sources that never finish loading.
	Failing []string `yaml:"failing,omitempty" json:"failing,omitempty"`
}

// Context builds the match context for the page.
func (p Page) Context() (match.Context, error) {
	var now time.Time
	if p.Now != "" {
		t, err := match.ParseDate(p.Now)
		if err != nil {
			return match.Context{}, fmt.Errorf("page.now: %w", err)
		}
		now = t
	}
	return match.NewContext(p.URL, p.Cookies, now)
}

// Descriptors returns the units as scheduler descriptors.
func (m *Manifest) Descriptors() []scheduler.Descriptor {
	out := make([]scheduler.Descriptor, len(m.Units))
	for i, d := range m.Units {
		out[i] = d
	}
	return out
}
