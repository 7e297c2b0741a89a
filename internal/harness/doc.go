// Package harness provides conformance testing for unit manifests.
//
// The harness loads a manifest (from a file or inline), runs it through a
// runner.Runner against a simulated page and checks the resulting bus trace
// and final state.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	manifest: ../manifests/checkout.yaml   # or inline page/units below
//	serial: true                           # optional override
//	page:
//	  url: https://shop.example.com/checkout
//	units:
//	  - {id: a, type: script, src: a.js}
//	assertions:
//	  - type: trace_contains
//	    topic: loaded.a
//	    mode: async
//	  - type: trace_order
//	    topics: [appended.a, loaded.a, all-work-done]
//	  - type: trace_count
//	    topic: all-work-done
//	    count: 1
//	  - type: final_state
//	    table: events
//	    where: { topic: "loaded.a" }
//	    expect: { mode: "async", delivered: true }
//	  - type: report
//	    expect: { done: true, pending: 0, body: [a] }
//
// # Assertion Types
//
//   - trace_contains: A publish of topic (and mode, if given) is in the trace
//   - trace_order: Topics were first published in the given order
//   - trace_count: Topic was published exactly N times
//   - final_state: Queries a journal table and verifies one row
//   - report: Compares fields of the run report
//
// # Deterministic Testing
//
// Every scenario runs with:
//   - A fixed run id (scenario.run_id or testutil.DefaultRunID)
//   - A deterministic sequence clock (testutil.DeterministicClock)
//   - A fixed wall clock (testutil.FixedNow) for the journal
//   - An in-memory SQLite journal (isolated per run)
//
// This ensures identical traces across runs for golden file comparison.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/serial_gated.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, e := range result.Errors {
//	        log.Println(e)
//	    }
//	}
package harness
