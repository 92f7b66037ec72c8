// Package cli implements the smokecheck command tree.
package cli

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/acharya-hq/smokecheck/internal/config"
	"github.com/acharya-hq/smokecheck/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	ConfigPath string

	logger *zap.Logger
}

// NewRootCommand creates the root command for the smokecheck CLI.
func NewRootCommand(version string) *cobra.Command {
	opts := &RootOptions{logger: zap.NewNop()}

	cmd := &cobra.Command{
		Use:   "smokecheck",
		Short: "Integration checklists for the ACHARYA company-test API",
		Long: `smokecheck runs ordered checklists against the ACHARYA recruiting API:
log in, assign a company test, and read it back as the candidate.

It also serves an in-memory twin of the API for local runs.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.New(opts.Verbose)
			if err != nil {
				return WrapExitError(ExitCommandError, "building logger", err)
			}
			opts.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = opts.logger.Sync()
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging and step timings")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default "+config.DefaultFile+", or $"+config.EnvConfig+")")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewTwinCommand(opts))
	cmd.AddCommand(NewAdminCommand(opts))

	return cmd
}

// loadConfig reads the configuration named by --config or $SMOKECHECK_CONFIG,
// which must exist, or else smokecheck.yaml in the working directory, which
// may be absent. Environment overrides are applied.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	path := o.ConfigPath
	if path == "" {
		path = os.Getenv(config.EnvConfig)
	}

	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load(config.DefaultFile)
	}
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "loading config", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, WrapExitError(ExitCommandError, "reading environment", err)
	}
	return cfg, nil
}
