package runner

import (
	"fmt"
	"io"
	"slices"

	"github.com/roach88/tagmgr/internal/page"
)

// TraceEvent is one publish call observed during a run.
type TraceEvent struct {
	Seq       int64  `json:"seq"`
	Topic     string `json:"topic"`
	Mode      string `json:"mode"`
	Delivered bool   `json:"delivered"`
	UnitID    string `json:"unit_id,omitempty"`
}

// Report is the outcome of a run.
type Report struct {
	Name     string         `json:"name"`
	Serial   bool           `json:"serial"`
	Done     bool           `json:"done"`
	Stalled  bool           `json:"stalled"`
	Pending  int            `json:"pending"`
	Queued   int            `json:"queued"`
	Units    []string       `json:"units"`
	Executed []string       `json:"executed"`
	Head     []page.Element `json:"head"`
	Body     []page.Element `json:"body"`
	Trace    []TraceEvent   `json:"trace"`
	Errors   []string       `json:"errors,omitempty"`
}

func (r *Runner) report() *Report {
	units := r.factory.Registry().Units()
	ids := make([]string, len(units))
	for i, u := range units {
		ids[i] = u.ID()
	}

	executed := r.doc.Executed()
	if executed == nil {
		executed = []string{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	pending := r.sched.Pending()
	return &Report{
		Name:     r.m.Name,
		Serial:   r.serial,
		Done:     r.done,
		Stalled:  !r.done && pending > 0,
		Pending:  pending,
		Queued:   r.sched.QueueLen(),
		Units:    ids,
		Executed: executed,
		Head:     r.doc.Head(),
		Body:     r.doc.Body(),
		Trace:    slices.Clone(r.trace),
		Errors:   slices.Clone(r.uncaught),
	}
}

// WriteTrace writes one line per trace event:
//
//	3 sync ignored.gated
//	4 sync appended.s2 (no subscribers)
func (rep *Report) WriteTrace(w io.Writer) error {
	for _, ev := range rep.Trace {
		suffix := ""
		if !ev.Delivered {
			suffix = " (no subscribers)"
		}
		if _, err := fmt.Fprintf(w, "%d %s %s%s\n", ev.Seq, ev.Mode, ev.Topic, suffix); err != nil {
			return err
		}
	}
	return nil
}

// WriteSummary writes the final state on one line.
func (rep *Report) WriteSummary(w io.Writer) error {
	_, err := fmt.Fprintf(w, "done: %t pending: %d queued: %d\n", rep.Done, rep.Pending, rep.Queued)
	return err
}
