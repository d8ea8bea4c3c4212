package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/n8n-cli/n8nctl/cli"
	"github.com/n8n-cli/n8nctl/cli/helpers"
	"github.com/n8n-cli/n8nctl/engine/lifecycle"
	"github.com/n8n-cli/n8nctl/pkg/config"
)

// cleanupTimeout reads the shutdown cap from the environment. The signal
// handler is installed before configuration is loaded, so the config
// pipeline cannot supply this one.
func cleanupTimeout() time.Duration {
	if ms, err := strconv.Atoi(os.Getenv("N8N_CLI_CLEANUP_TIMEOUT_MS")); err == nil && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return config.Default().CleanupTimeout
}

func main() {
	manager := lifecycle.NewManager(cleanupTimeout())
	ctx, stop := manager.Watch(context.Background())
	defer stop()

	cmd := cli.RootCmd()
	cmd.SetContext(ctx)
	err := cmd.Execute()
	manager.Cleanup(context.WithoutCancel(ctx))
	if err != nil {
		verbose, _ := cmd.Flags().GetBool("debug")
		fmt.Fprintln(os.Stderr, helpers.RenderError(err, verbose))
		os.Exit(cli.ExitCode(err))
	}
}
