package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/acharya-hq/smokecheck/internal/client"
	"github.com/acharya-hq/smokecheck/internal/twin"
)

// AdminOptions holds flags shared by the admin subcommands.
type AdminOptions struct {
	*RootOptions
	BaseURL string
}

// NewAdminCommand creates the admin command group, which drives a running
// twin's /admin endpoints.
func NewAdminCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AdminOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Control a running twin",
	}
	cmd.PersistentFlags().StringVar(&opts.BaseURL, "base-url", "", "twin root URL (overrides config)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "health",
			Short: "Check that the twin is up",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				ac, err := opts.client(cmd)
				if err != nil {
					return err
				}
				ok, body := ac.Health(cmd.Context())
				if !ok {
					return NewExitError(ExitFailure, "twin unhealthy: "+body)
				}
				fmt.Fprintln(cmd.OutOrStdout(), body)
				return nil
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Drop all tests, faults and logged requests",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				ac, err := opts.client(cmd)
				if err != nil {
					return err
				}
				body, err := ac.Reset(cmd.Context())
				if err != nil {
					return WrapExitError(ExitFailure, "reset", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), body)
				return nil
			},
		},
		&cobra.Command{
			Use:   "requests",
			Short: "Print the twin's request log",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				ac, err := opts.client(cmd)
				if err != nil {
					return err
				}
				entries, err := ac.Requests(cmd.Context())
				if err != nil {
					return WrapExitError(ExitFailure, "requests", err)
				}
				out := cmd.OutOrStdout()
				for _, e := range entries {
					fmt.Fprintf(out, "%s %-6s %-55s %d\n", e.Timestamp.Format("15:04:05.000"), e.Method, e.Path, e.StatusCode)
				}
				return nil
			},
		},
		newFaultCommand(opts),
	)

	return cmd
}

func newFaultCommand(opts *AdminOptions) *cobra.Command {
	var (
		body     string
		delayMs  int
		clearAll bool
	)
	cmd := &cobra.Command{
		Use:   "fault [path status]",
		Short: "Inject a fault for an API path, or clear all faults",
		Example: `  smokecheck admin fault /api/recruiter/assign-company-test 500
  smokecheck admin fault /api/login 200 --body '{"token_type":"bearer"}'
  smokecheck admin fault --clear`,
		Args: func(cmd *cobra.Command, args []string) error {
			if clearAll {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ac, err := opts.client(cmd)
			if err != nil {
				return err
			}
			if clearAll {
				msg, err := ac.ClearFaults(cmd.Context())
				if err != nil {
					return WrapExitError(ExitFailure, "clear faults", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), msg)
				return nil
			}

			status, err := strconv.Atoi(args[1])
			if err != nil || status < 100 || status > 599 {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid status code %q", args[1]))
			}
			if body != "" && !json.Valid([]byte(body)) {
				return NewExitError(ExitCommandError, "--body must be valid JSON")
			}
			msg, err := ac.SetFault(cmd.Context(), twin.Fault{Path: args[0], StatusCode: status, Body: body, DelayMs: delayMs})
			if err != nil {
				return WrapExitError(ExitFailure, "set fault", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
	cmd.Flags().StringVar(&body, "body", "", "response body to return (JSON)")
	cmd.Flags().IntVar(&delayMs, "delay-ms", 0, "delay before responding, in milliseconds")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "remove all faults")
	return cmd
}

func (o *AdminOptions) client(cmd *cobra.Command) (*client.AdminClient, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("base-url") {
		cfg.BaseURL = o.BaseURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid config", err)
	}
	return client.New(cfg.BaseURL), nil
}
