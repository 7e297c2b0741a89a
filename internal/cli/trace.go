package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tagmgr/internal/journal"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Topic    string // optional - filter to a topic and its descendants
}

// TraceResult holds the events of one journaled run.
type TraceResult struct {
	Run    journal.Run     `json:"run"`
	Events []journal.Entry `json:"events"`
	Stats  TraceStats      `json:"stats"`
}

// TraceStats holds summary statistics for a run.
type TraceStats struct {
	TotalEvents int  `json:"total_events"`
	Sync        int  `json:"sync"`
	Async       int  `json:"async"`
	Undelivered int  `json:"undelivered"`
	Archived    int  `json:"archived"`
	Finished    bool `json:"finished"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace [run-id]",
		Short: "Show journaled runs and their events",
		Long: `Show runs recorded by "tagmgr run --journal".

Without a run id, lists every run in the journal. With a run id, prints
the run's events in publish order. --topic keeps events whose topic is
the given topic or one of its descendants ("loaded" matches "loaded.a").

Examples:
  tagmgr trace --db ./tagmgr.db
  tagmgr trace --db ./tagmgr.db 0190c7e2-...
  tagmgr trace --db ./tagmgr.db 0190c7e2-... --topic loaded --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runListRuns(opts, cmd)
			}
			return runTrace(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (default from config)")
	cmd.Flags().StringVar(&opts.Topic, "topic", "", "filter to a topic and its descendants")

	return cmd
}

func openTraceJournal(opts *TraceOptions) (*journal.Journal, error) {
	path := opts.Database
	if path == "" {
		path = opts.config().Journal
	}
	if path == "" {
		return nil, NewExitError(ExitCommandError, "no journal: pass --db or set journal in config")
	}
	// Opening would create an empty journal
	if _, err := os.Stat(path); err != nil {
		return nil, WrapExitError(ExitCommandError, "journal not found", err)
	}
	j, err := journal.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	return j, nil
}

func runListRuns(opts *TraceOptions, cmd *cobra.Command) error {
	j, err := openTraceJournal(opts)
	if err != nil {
		return err
	}
	defer j.Close()

	runs, err := j.Runs(context.Background())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	if opts.Format == "json" {
		return encodeIndented(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: runs})
	}

	w := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %s  %s  %d events\n", r.ID, r.StartedAt, r.Name, r.Events)
	}
	return nil
}

func runTrace(opts *TraceOptions, runID string, cmd *cobra.Command) error {
	ctx := context.Background()

	j, err := openTraceJournal(opts)
	if err != nil {
		return err
	}
	defer j.Close()

	run, err := j.FindRun(ctx, runID)
	if err != nil {
		if errors.Is(err, journal.ErrRunNotFound) {
			return WrapExitError(ExitCommandError, "unknown run", err)
		}
		return WrapExitError(ExitCommandError, "failed to find run", err)
	}

	events, err := j.Events(ctx, runID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}

	result := TraceResult{
		Run:    run,
		Events: filterTopic(events, opts.Topic),
		Stats:  traceStats(events),
	}

	if opts.Format == "json" {
		return encodeIndented(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: result, TraceID: run.ID})
	}

	return outputTraceText(cmd.OutOrStdout(), result, opts.Verbose)
}

// filterTopic keeps events published on topic or one of its descendants.
func filterTopic(events []journal.Entry, topic string) []journal.Entry {
	if topic == "" {
		return events
	}
	out := make([]journal.Entry, 0, len(events))
	for _, e := range events {
		if e.Topic == topic || strings.HasPrefix(e.Topic, topic+".") {
			out = append(out, e)
		}
	}
	return out
}

// traceStats summarizes every event of the run, ignoring any filter.
// A run is finished when all-work-done was published.
func traceStats(events []journal.Entry) TraceStats {
	stats := TraceStats{TotalEvents: len(events)}
	for _, e := range events {
		if e.Mode == journal.ModeSync {
			stats.Sync++
		} else {
			stats.Async++
		}
		if !e.Delivered {
			stats.Undelivered++
		}
		if e.Archived {
			stats.Archived++
		}
		if e.Topic == "all-work-done" {
			stats.Finished = true
		}
	}
	return stats
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) error {
	fmt.Fprintf(w, "Trace for run: %s (%s)\n", result.Run.ID, result.Run.Name)
	fmt.Fprintf(w, "Started: %s\n", result.Run.StartedAt)
	fmt.Fprintf(w, "Status: %s\n", finishedStatus(result.Stats.Finished))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Events ===")
	if len(result.Events) == 0 {
		fmt.Fprintln(w, "  (no events)")
	}
	for _, e := range result.Events {
		flags := ""
		if e.Archived {
			flags += " [archived]"
		}
		if !e.Delivered {
			flags += " [no subscribers]"
		}
		fmt.Fprintf(w, "  [%d] %-5s %s%s\n", e.Seq, e.Mode, e.Topic, flags)
		if verbose {
			fmt.Fprintf(w, "       Payload: %s\n", string(e.Payload))
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Events: %d\n", result.Stats.TotalEvents)
	fmt.Fprintf(w, "  Sync:         %d\n", result.Stats.Sync)
	fmt.Fprintf(w, "  Async:        %d\n", result.Stats.Async)
	fmt.Fprintf(w, "  Undelivered:  %d\n", result.Stats.Undelivered)
	fmt.Fprintf(w, "  Archived:     %d\n", result.Stats.Archived)

	return nil
}

func encodeIndented(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// finishedStatus returns a human-readable completion status.
func finishedStatus(finished bool) string {
	if finished {
		return "Finished"
	}
	return "Unfinished (units pending)"
}
