package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tagmgr/internal/runner"
)

// First run with -update to create golden files:
//
//	go test ./internal/harness -run TestRunWithGolden -update
func TestRunWithGolden(t *testing.T) {
	for _, name := range []string{"eager_inline", "serial_gated", "stalled"} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario("testdata/scenarios/" + name + ".yaml")
			require.NoError(t, err)

			require.NoError(t, RunWithGolden(t, scenario))
		})
	}
}

func TestAssertGolden_ReusesResult(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/eager_inline.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)

	require.NoError(t, AssertGolden(t, "eager_inline", result))
}

func TestSnapshot(t *testing.T) {
	result := NewResult()
	result.Report = &runner.Report{
		Done:    false,
		Pending: 1,
		Queued:  0,
		Trace: []runner.TraceEvent{
			{Seq: 1, Topic: "appended.x", Mode: "sync"},
			{Seq: 2, Topic: "loaded.x", Mode: "async", Delivered: true},
		},
	}

	got, err := Snapshot("snap", result)
	require.NoError(t, err)
	assert.Equal(t, `scenario: snap
1 sync appended.x (no subscribers)
2 async loaded.x
done: false pending: 1 queued: 0
`, string(got))

	_, err = Snapshot("empty", NewResult())
	assert.Error(t, err)
}

func TestSnapshot_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/serial_gated.yaml")
	require.NoError(t, err)

	var snapshots []string
	for i := 0; i < 3; i++ {
		result, err := Run(scenario)
		require.NoError(t, err)
		snap, err := Snapshot(scenario.Name, result)
		require.NoError(t, err)
		snapshots = append(snapshots, string(snap))
	}

	assert.Equal(t, snapshots[0], snapshots[1])
	assert.Equal(t, snapshots[1], snapshots[2])
}
