package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/tagmgr/internal/journal"
	"github.com/roach88/tagmgr/internal/manifest"
	"github.com/roach88/tagmgr/internal/runner"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Serial          bool
	ImmediateErrors bool
	Journal         string
	URL             string

	// RunIDs allows overriding the journal run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs journal.IDGenerator
}

// RunResult is the JSON payload of the run command.
type RunResult struct {
	RunID  string         `json:"run_id,omitempty"`
	Report *runner.Report `json:"report"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <manifest>",
		Short: "Load a manifest's units against a simulated page",
		Long: `Load every unit of a manifest against a simulated page and print the
bus trace.

Units are matched against the page, injected eagerly (default) or one at a
time (--serial), and the document lifecycle is fired. With --journal, every
bus event is also written to a SQLite journal for "tagmgr trace".

Exit codes:
  0 - All units finished
  1 - Run stalled (units still pending)
  2 - Command error (invalid manifest, journal error, etc.)

Examples:
  tagmgr run ./manifests/checkout.yaml
  tagmgr run ./manifests/checkout.yaml --serial --journal ./tagmgr.db
  tagmgr run ./manifests/checkout.cue --url https://shop.example.com/cart --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runManifest(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Serial, "serial", false, "load units one at a time (overrides manifest and config)")
	cmd.Flags().BoolVar(&opts.ImmediateErrors, "immediate-errors", false, "rethrow handler errors at the publish call")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite journal (default from config)")
	cmd.Flags().StringVar(&opts.URL, "url", "", "page URL when the manifest has none")

	return cmd
}

func runManifest(opts *RunOptions, path string, cmd *cobra.Command) error {
	cfg := opts.config()
	logger := opts.logger()

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	m, err := manifest.Load(path)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	if errs := manifest.Validate(m); len(errs) > 0 {
		err := outputValidationErrors(formatter, errs)
		return WrapExitError(ExitCommandError, "invalid manifest", err)
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	runOpts := []runner.Option{
		runner.WithLogger(logger),
		runner.WithImmediateErrors(cfg.ImmediateErrors),
		runner.WithPageDefaults(manifest.Page{
			URL:     cfg.Page.URL,
			Cookies: cfg.Page.Cookies,
			Now:     cfg.Page.Now,
		}),
	}
	if cmd.Flags().Changed("immediate-errors") {
		runOpts = append(runOpts, runner.WithImmediateErrors(opts.ImmediateErrors))
	}
	if opts.URL != "" {
		runOpts = append(runOpts, runner.WithPageDefaults(manifest.Page{
			URL:     opts.URL,
			Cookies: cfg.Page.Cookies,
			Now:     cfg.Page.Now,
		}))
	}
	switch {
	case cmd.Flags().Changed("serial"):
		runOpts = append(runOpts, runner.WithSerial(opts.Serial))
	case cfg.Serial:
		runOpts = append(runOpts, runner.WithSerial(true))
	}

	journalPath := opts.Journal
	if journalPath == "" {
		journalPath = cfg.Journal
	}

	var rec *journal.Recorder
	if journalPath != "" {
		logger.Info("opening journal", "path", journalPath)
		var jopts []journal.Option
		if opts.RunIDs != nil {
			jopts = append(jopts, journal.WithIDGenerator(opts.RunIDs))
		}
		j, err := journal.Open(journalPath, jopts...)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if closeErr := j.Close(); closeErr != nil {
				logger.Error("error closing journal", "error", closeErr)
			}
		}()

		runID, err := j.Begin(ctx, m.Name)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to begin run", err)
		}
		rec = j.NewRecorder(ctx, runID, logger)
		runOpts = append(runOpts, runner.WithTap(rec.Tap))
	}

	r, err := runner.New(m, runOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build run", err)
	}

	rep, err := r.Run(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "run interrupted", err)
	}

	result := RunResult{Report: rep}
	if rec != nil {
		if err := rec.Err(); err != nil {
			return WrapExitError(ExitCommandError, "failed to journal run", err)
		}
		result.RunID = rec.RunID()
		logger.Info("run journaled", "run_id", rec.RunID(), "events", rec.Count())
	}

	if formatter.Format == "json" {
		if err := outputRunJSON(formatter, result); err != nil {
			return err
		}
	} else if err := outputRunText(formatter, result); err != nil {
		return err
	}

	if rep.Stalled {
		return NewExitError(ExitFailure, fmt.Sprintf("run stalled with %d unit(s) pending", rep.Pending))
	}
	return nil
}

// outputRunJSON outputs the run result as JSON.
func outputRunJSON(formatter *OutputFormatter, result RunResult) error {
	response := CLIResponse{
		Status:  "ok",
		Data:    result,
		TraceID: result.RunID,
	}
	if result.Report.Stalled {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_RUN_STALLED",
			Message: fmt.Sprintf("%d unit(s) pending", result.Report.Pending),
		}
	}

	encoder := json.NewEncoder(formatter.Writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputRunText outputs the trace, uncaught errors and summary.
func outputRunText(formatter *OutputFormatter, result RunResult) error {
	w := formatter.Writer
	rep := result.Report

	if err := rep.WriteTrace(w); err != nil {
		return err
	}
	for _, e := range rep.Errors {
		fmt.Fprintf(w, "uncaught: %s\n", e)
	}
	if err := rep.WriteSummary(w); err != nil {
		return err
	}
	if result.RunID != "" {
		fmt.Fprintf(w, "journal run: %s\n", result.RunID)
	}

	if formatter.Verbose {
		for _, el := range rep.Head {
			formatter.VerboseLog("head: %s %s", el.Kind, elementLabel(el.ID, el.Src))
		}
		for _, el := range rep.Body {
			formatter.VerboseLog("body: %s %s", el.Kind, elementLabel(el.ID, el.Src))
		}
	}
	return nil
}

func elementLabel(id, src string) string {
	if src == "" {
		return id
	}
	return id + " (" + src + ")"
}
