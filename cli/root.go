// Package cli assembles the n8nctl command tree. The root command owns
// configuration loading and logger setup; subcommands pull both from the
// command context.
package cli

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/n8n-cli/n8nctl/cli/cmd/executions"
	"github.com/n8n-cli/n8nctl/cli/cmd/nodes"
	"github.com/n8n-cli/n8nctl/cli/cmd/workflow"
	"github.com/n8n-cli/n8nctl/cli/helpers"
	"github.com/n8n-cli/n8nctl/pkg/config"
	"github.com/n8n-cli/n8nctl/pkg/logger"
)

// RootCmd builds the n8nctl command tree.
func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "n8nctl",
		Short:         "Control plane for a remote workflow-automation server",
		Long:          "n8nctl validates, repairs, diffs, and manages workflow documents against a remote workflow-automation server.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupContext(cmd)
		},
	}

	registerGlobalFlags(root.PersistentFlags())

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", errUsage, err)
	})

	root.AddCommand(
		workflow.Cmd(),
		nodes.Cmd(),
		executions.Cmd(),
		webhookCmd(),
		healthCmd(),
	)
	return root
}

// registerGlobalFlags declares the flags shared by every subcommand.
func registerGlobalFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "path to the JSON config file")
	flags.StringP("output", "o", "auto", "output format: json, yaml, table, auto")
	flags.Bool("debug", false, "enable debug logging")
	flags.String("host", "", "base URL of the workflow server")
	flags.Bool("insecure", false, "allow self-signed TLS certificates")
	flags.Bool("strict", false, "fail hard on permissive config files and backup errors")
}

// setupContext resolves configuration and the logger, attaching both to
// the command context for every subcommand.
func setupContext(cmd *cobra.Command) error {
	// A missing .env is the common case and not an error.
	_ = godotenv.Load()

	debug, _ := cmd.Flags().GetBool("debug")
	level := "info"
	if debug {
		level = "debug"
	}
	log := logger.SetupLogger(level, false, false)
	ctx := logger.ContextWithLogger(cmd.Context(), log)

	format, _ := cmd.Flags().GetString("output")
	if _, err := helpers.ParseFormat(format); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.NewLoader().Load(ctx, configPath)
	if err != nil {
		return err
	}
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		cfg.Host = host
	}
	if insecure, _ := cmd.Flags().GetBool("insecure"); insecure {
		cfg.InsecureHTTPS = true
	}
	if strict, _ := cmd.Flags().GetBool("strict"); strict {
		cfg.StrictPermissions = true
	}

	cmd.SetContext(config.ContextWithConfig(ctx, cfg))
	return nil
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe the server's health endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := helpers.APIClient(cmd.Context())
			if err != nil {
				return err
			}
			if err := client.Health(cmd.Context()); err != nil {
				return err
			}
			cmd.Println(helpers.Success("server is healthy"))
			return nil
		},
	}
}
