// smokecheck runs integration checklists against the ACHARYA company-test API.
//
// Usage:
//
//	smokecheck run [checklist|path]...   Run checklists (default: company-tests)
//	smokecheck list                      List the built-in checklists
//	smokecheck twin                      Serve an in-memory twin of the API
//	smokecheck admin <cmd>               Control a running twin
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/acharya-hq/smokecheck/internal/cli"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := cli.NewRootCommand(version).ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
