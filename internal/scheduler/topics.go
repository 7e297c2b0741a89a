package scheduler

// Topics published on a scheduler's bus.
const (
	// TopicAppended is published (suffixed with the unit id) once a unit's
	// node has been attached to the page.
	TopicAppended = "appended"

	// TopicLoaded is published (suffixed with the unit id) once a unit has
	// fully loaded.
	TopicLoaded = "loaded"

	// TopicIgnored is published (suffixed with the unit id) when a unit is
	// not eligible or could not be attached.
	TopicIgnored = "ignored"

	// TopicAllWorkDone is published when the pending count reaches zero.
	TopicAllWorkDone = "all-work-done"

	// TopicDocumentReady is published once when the host document reaches
	// the "content loaded" ready state.
	TopicDocumentReady = "dom-content-loaded"

	// TopicPageLoad is published once on full page load.
	TopicPageLoad = "page-load"
)

// UnitTopic returns the per-unit topic for base, e.g. "loaded.tm_0".
func UnitTopic(base, unitID string) string {
	return base + "." + unitID
}

// UnitEvent is the payload units publish with their lifecycle topics.
type UnitEvent struct {
	UnitID string       `json:"unit_id"`
	Kind   string       `json:"kind,omitempty"`
	Unit   LoadableUnit `json:"-"`
}
