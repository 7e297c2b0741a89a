package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tagmgr/internal/journal"
)

// journaledRun runs the inline manifest into a fresh journal and returns
// the journal path. The run id is "run-1".
func journaledRun(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := writeTestFile(t, dir, "m.yaml", inlineManifest)
	dbPath := filepath.Join(dir, "tagmgr.db")

	_, err := executeRun(t, &RunOptions{RunIDs: journal.NewFixedGenerator("run-1")}, path, "--journal", dbPath)
	require.NoError(t, err)
	return dbPath
}

// executeTrace runs the trace command and returns stdout and the error.
func executeTrace(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	if opts == nil {
		opts = &RootOptions{Format: "text"}
	}
	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestTraceListRuns(t *testing.T) {
	dbPath := journaledRun(t)

	out, err := executeTrace(t, nil, "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "inline")
	assert.Contains(t, out, "7 events")
}

func TestTraceListRunsEmpty(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")
	j, err := journal.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	out, err := executeTrace(t, nil, "--db", dbPath)
	require.NoError(t, err)
	assert.Equal(t, "No runs found.\n", out)
}

func TestTraceRun(t *testing.T) {
	dbPath := journaledRun(t)

	out, err := executeTrace(t, nil, "--db", dbPath, "run-1")
	require.NoError(t, err)

	assert.Contains(t, out, "Trace for run: run-1 (inline)")
	assert.Contains(t, out, "Status: Finished")
	assert.Contains(t, out, "  [1] async loaded.a [archived]\n")
	assert.Contains(t, out, "  [2] sync  appended.a [archived]\n")
	assert.Contains(t, out, "  [7] async page-load [archived] [no subscribers]\n")
	assert.Contains(t, out, "  Total Events: 7\n")
	assert.Contains(t, out, "  Sync:         2\n")
	assert.Contains(t, out, "  Undelivered:  2\n")
	assert.Contains(t, out, "  Archived:     7\n")
	assert.NotContains(t, out, "Payload:")
}

func TestTraceRunVerbose(t *testing.T) {
	dbPath := journaledRun(t)

	out, err := executeTrace(t, &RootOptions{Format: "text", Verbose: true}, "--db", dbPath, "run-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Payload:")
}

func TestTraceRunTopicFilter(t *testing.T) {
	dbPath := journaledRun(t)

	out, err := executeTrace(t, nil, "--db", dbPath, "run-1", "--topic", "loaded")
	require.NoError(t, err)
	assert.Contains(t, out, "loaded.a")
	assert.Contains(t, out, "loaded.b")
	assert.NotContains(t, out, "appended.a")

	// Stats always cover the whole run
	assert.Contains(t, out, "  Total Events: 7\n")
}

func TestTraceRunJSON(t *testing.T) {
	dbPath := journaledRun(t)

	out, err := executeTrace(t, &RootOptions{Format: "json"}, "--db", dbPath, "run-1")
	require.NoError(t, err)

	var resp struct {
		Status  string      `json:"status"`
		TraceID string      `json:"trace_id"`
		Data    TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-1", resp.TraceID)
	assert.Equal(t, "inline", resp.Data.Run.Name)
	require.Len(t, resp.Data.Events, 7)
	assert.Equal(t, int64(1), resp.Data.Events[0].Seq)
	assert.True(t, resp.Data.Stats.Finished)
	assert.Equal(t, 5, resp.Data.Stats.Async)
}

func TestTraceUnknownRun(t *testing.T) {
	dbPath := journaledRun(t)

	_, err := executeTrace(t, nil, "--db", dbPath, "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.ErrorIs(t, err, journal.ErrRunNotFound)
}

func TestTraceMissingJournal(t *testing.T) {
	_, err := executeTrace(t, nil, "--db", filepath.Join(t.TempDir(), "absent.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "journal not found")

	_, err = executeTrace(t, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no journal")
}

func TestFilterTopic(t *testing.T) {
	events := []journal.Entry{
		{Seq: 1, Topic: "loaded"},
		{Seq: 2, Topic: "loaded.a"},
		{Seq: 3, Topic: "loadedx"},
		{Seq: 4, Topic: "appended.a"},
	}

	got := filterTopic(events, "loaded")
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].Seq)
	assert.Equal(t, int64(2), got[1].Seq)

	assert.Len(t, filterTopic(events, ""), 4)
}

func TestTraceStats(t *testing.T) {
	stats := traceStats([]journal.Entry{
		{Topic: "appended.a", Mode: journal.ModeSync, Archived: true},
		{Topic: "loaded.a", Mode: journal.ModeAsync, Delivered: true},
	})
	assert.Equal(t, TraceStats{TotalEvents: 2, Sync: 1, Async: 1, Undelivered: 1, Archived: 1}, stats)
}
