package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/tagmgr/internal/journal"
	"github.com/roach88/tagmgr/internal/manifest"
	"github.com/roach88/tagmgr/internal/runner"
	"github.com/roach88/tagmgr/internal/testutil"
)

// Run executes a test scenario and returns the result.
//
// Each scenario runs against a fresh in-memory journal for isolation.
// Deterministic helpers ensure reproducible results.
//
// Execution flow:
// 1. Load the manifest file, or build one from the inline units
// 2. Validate the manifest
// 3. Open an in-memory journal and begin a run with a fixed id
// 4. Run the manifest, journaling every bus event
// 5. Evaluate assertions against the trace, journal and report
//
// An error means the scenario could not be executed; assertion failures are
// reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	m, err := scenarioManifest(scenario)
	if err != nil {
		return nil, err
	}
	if errs := manifest.Validate(m); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("invalid manifest: %s", strings.Join(msgs, "; "))
	}

	j, err := journal.Open(":memory:",
		journal.WithIDGenerator(testutil.NewFixedRunIDGenerator(scenario.RunID)),
		journal.WithNow(testutil.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory journal: %w", err)
	}
	defer j.Close()

	runID, err := j.Begin(ctx, m.Name)
	if err != nil {
		return nil, err
	}

	logger := testutil.DiscardLogger() // Suppress logs in tests
	rec := j.NewRecorder(ctx, runID, logger)

	opts := []runner.Option{
		runner.WithLogger(logger),
		runner.WithSequencer(testutil.NewDeterministicClock()),
		runner.WithTap(rec.Tap),
	}
	if scenario.Serial != nil {
		opts = append(opts, runner.WithSerial(*scenario.Serial))
	}

	r, err := runner.New(m, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build runner: %w", err)
	}
	rep, err := r.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run manifest: %w", err)
	}
	if err := rec.Err(); err != nil {
		return nil, fmt.Errorf("failed to journal run: %w", err)
	}

	result := NewResult()
	result.RunID = runID
	result.Report = rep
	result.Trace = rep.Trace

	actx := &AssertionContext{
		Journal: j,
		RunID:   runID,
		Ctx:     ctx,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// scenarioManifest loads the referenced manifest or builds an inline one
// named after the scenario.
func scenarioManifest(s *Scenario) (*manifest.Manifest, error) {
	if s.Manifest != "" {
		m, err := manifest.Load(s.Manifest)
		if err != nil {
			return nil, fmt.Errorf("failed to load manifest: %w", err)
		}
		return m, nil
	}
	return &manifest.Manifest{
		Name:  s.Name,
		Page:  s.Page,
		Units: s.Units,
	}, nil
}
