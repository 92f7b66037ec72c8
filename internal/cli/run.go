package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/acharya-hq/smokecheck/internal/api"
	"github.com/acharya-hq/smokecheck/internal/checklist"
	"github.com/acharya-hq/smokecheck/internal/client"
)

// DefaultChecklist runs when no checklist is named.
const DefaultChecklist = "company-tests"

// Output formats for the run command.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	BaseURL string
	Timeout time.Duration
	Strict  bool
	Reset   bool
	Format  string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run [checklist|path]...",
		Short: "Run checklists against the API",
		Long: `Run one or more checklists in order. Each argument is a checklist file,
a directory of checklist files, or the name of a built-in checklist
(see "smokecheck list"). With no arguments the company-tests checklist runs.

Exit status is 0 when every step passed or was skipped, 1 when a step
failed, and 2 when the configuration or a checklist could not be loaded.`,
		Example: `  smokecheck run
  smokecheck run single-company-test --base-url http://localhost:8000
  smokecheck run ./checklists --strict --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChecklists(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.BaseURL, "base-url", "", "service root URL (overrides config and $SMOKECHECK_BASE_URL)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "per-request timeout (overrides config)")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "treat every step as fatal")
	cmd.Flags().BoolVar(&opts.Reset, "reset", false, "reset the twin at the base URL before running")
	cmd.Flags().StringVar(&opts.Format, "format", FormatText, "output format (text|json)")

	return cmd
}

func runChecklists(cmd *cobra.Command, args []string, opts *RunOptions) error {
	if opts.Format != FormatText && opts.Format != FormatJSON {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be text or json", opts.Format))
	}

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("base-url") {
		cfg.BaseURL = opts.BaseURL
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Timeout = opts.Timeout
	}
	if opts.Strict {
		cfg.Strict = true
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}

	if len(args) == 0 {
		args = []string{DefaultChecklist}
	}
	var lists []*checklist.Checklist
	for _, arg := range args {
		resolved, err := checklist.Resolve(arg)
		if err != nil {
			return WrapExitError(ExitCommandError, "loading checklists", err)
		}
		lists = append(lists, resolved...)
	}

	ctx := cmd.Context()
	logger := opts.logger.With(zap.String("base_url", cfg.BaseURL))

	if opts.Reset {
		if _, err := client.New(cfg.BaseURL).Reset(ctx); err != nil {
			return WrapExitError(ExitCommandError, "resetting twin", err)
		}
		logger.Debug("twin reset")
	}

	svc := api.New(cfg.BaseURL, cfg.Timeout, api.WithLogger(logger))
	out := cmd.OutOrStdout()

	var results []*checklist.Result
	for i, c := range lists {
		runnerOpts := []checklist.Option{
			checklist.WithLogger(logger),
			checklist.WithPolicy(checklist.Policy{Strict: cfg.Strict, Overrides: cfg.FatalOverrides}),
		}
		if opts.Format == FormatText {
			if i > 0 {
				fmt.Fprintln(out)
			}
			runnerOpts = append(runnerOpts, checklist.WithObserver(checklist.NewReport(out, opts.Verbose)))
		}

		res, err := checklist.NewRunner(svc, cfg.Credentials, runnerOpts...).Run(ctx, c)
		if err != nil {
			return WrapExitError(ExitCommandError, "checklist "+c.Name, err)
		}
		results = append(results, res)
	}

	if opts.Format == FormatJSON {
		if err := writeJSONResults(out, results); err != nil {
			return WrapExitError(ExitCommandError, "writing results", err)
		}
	}

	failed := 0
	for _, res := range results {
		if !res.Passed {
			failed++
		}
	}
	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d checklists failed", failed, len(results)))
	}
	return nil
}

type jsonStep struct {
	Name       string   `json:"name"`
	Action     string   `json:"action"`
	Status     string   `json:"status"`
	Fatal      bool     `json:"fatal"`
	Kind       string   `json:"kind,omitempty"`
	Error      string   `json:"error,omitempty"`
	Reason     string   `json:"reason,omitempty"`
	Summary    string   `json:"summary,omitempty"`
	Details    []string `json:"details,omitempty"`
	DurationMs int64    `json:"duration_ms"`
}

type jsonResult struct {
	Checklist  string     `json:"checklist"`
	RunID      string     `json:"run_id"`
	Passed     bool       `json:"passed"`
	Aborted    bool       `json:"aborted"`
	Steps      []jsonStep `json:"steps"`
	DurationMs int64      `json:"duration_ms"`
}

func writeJSONResults(w io.Writer, results []*checklist.Result) error {
	out := make([]jsonResult, 0, len(results))
	for _, res := range results {
		jr := jsonResult{
			Checklist:  res.Checklist,
			RunID:      res.RunID,
			Passed:     res.Passed,
			Aborted:    res.Aborted,
			Steps:      make([]jsonStep, 0, len(res.Steps)),
			DurationMs: res.Duration.Milliseconds(),
		}
		for _, s := range res.Steps {
			jr.Steps = append(jr.Steps, jsonStep{
				Name:       s.Name,
				Action:     string(s.Action),
				Status:     string(s.Status),
				Fatal:      s.Fatal,
				Kind:       s.Kind,
				Error:      s.Error,
				Reason:     s.Reason,
				Summary:    s.Summary,
				Details:    s.Details,
				DurationMs: s.Duration.Milliseconds(),
			})
		}
		out = append(out, jr)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
