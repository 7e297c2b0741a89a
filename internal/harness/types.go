package harness

import "github.com/roach88/tagmgr/internal/runner"

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	Pass bool `json:"pass"`

	// RunID identifies the run in the scenario's journal.
	RunID string `json:"run_id"`

	// Trace contains every publish call of the run, in order.
	Trace []runner.TraceEvent `json:"trace"`

	// Report is the runner's final report.
	Report *runner.Report `json:"report,omitempty"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []runner.TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
