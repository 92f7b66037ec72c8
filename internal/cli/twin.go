package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/acharya-hq/smokecheck/internal/config"
	"github.com/acharya-hq/smokecheck/internal/twin"
)

const shutdownTimeout = 5 * time.Second

// TwinOptions holds flags for the twin command.
type TwinOptions struct {
	*RootOptions
	Host   string
	Port   int
	Secret string
}

// NewTwinCommand creates the twin command.
func NewTwinCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TwinOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "twin",
		Short: "Serve an in-memory twin of the company-test API",
		Long: `Serve a fake of the company-test API with the same endpoints, bearer
tokens and error shapes. Accounts come from the config credentials
(recruiter1 and candidate1 with password123 by default). The /admin
endpoints reset state, inject faults and show the request log.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			twinOpts := []twin.Option{
				twin.WithUsers(usersFromConfig(cfg)...),
				twin.WithLogger(opts.logger),
			}
			if opts.Secret != "" {
				twinOpts = append(twinOpts, twin.WithSecret([]byte(opts.Secret)))
			}

			ln, err := net.Listen("tcp", net.JoinHostPort(opts.Host, fmt.Sprint(opts.Port)))
			if err != nil {
				return WrapExitError(ExitCommandError, "listening", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "twin listening on http://%s\n", ln.Addr())

			return serveTwin(cmd.Context(), ln, twin.New(twinOpts...), opts.logger)
		},
	}

	cmd.Flags().StringVar(&opts.Host, "host", "127.0.0.1", "interface to listen on")
	cmd.Flags().IntVarP(&opts.Port, "port", "p", 8000, "port to listen on")
	cmd.Flags().StringVar(&opts.Secret, "secret", "", "HS256 signing key for access tokens (random by default)")

	return cmd
}

// serveTwin serves h on ln until ctx is canceled, then shuts down gracefully.
func serveTwin(ctx context.Context, ln net.Listener, h http.Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("twin started", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("twin shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// usersFromConfig turns the configured credentials into twin accounts. The
// map key is the role.
func usersFromConfig(cfg *config.Config) []twin.User {
	roles := make([]string, 0, len(cfg.Credentials))
	for role := range cfg.Credentials {
		roles = append(roles, role)
	}
	sort.Strings(roles)

	users := make([]twin.User, 0, len(roles))
	for _, role := range roles {
		c := cfg.Credentials[role]
		users = append(users, twin.User{Username: c.Username, Password: c.Password, Role: role})
	}
	return users
}
