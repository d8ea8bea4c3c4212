package workflow

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/n8n-cli/n8nctl/cli/helpers"
	"github.com/n8n-cli/n8nctl/engine/autofix"
	"github.com/n8n-cli/n8nctl/engine/workflow"
)

func fixCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fix <file>",
		Short: "Detect and optionally apply automatic workflow repairs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			relaxed, _ := cmd.Flags().GetBool("relaxed")
			wf, err := loadWorkflowFile(args[0], relaxed)
			if err != nil {
				return err
			}

			cfg, err := fixConfig(cmd)
			if err != nil {
				return err
			}

			cat, err := helpers.Catalog(cmd.Context())
			if err != nil {
				return err
			}
			defer cat.Close()

			result, err := autofix.New(cat).GenerateFixes(cmd.Context(), wf, nil, cfg)
			if err != nil {
				return err
			}
			if err := helpers.Output(cmd).WriteData(result); err != nil {
				return err
			}

			if result.Modified != nil {
				out, _ := cmd.Flags().GetString("write")
				if out == "" {
					out = args[0]
				}
				doc, err := workflow.Serialize(result.Modified)
				if err != nil {
					return err
				}
				if err := os.WriteFile(out, doc, 0o600); err != nil {
					return fmt.Errorf("write %s: %w", out, err)
				}
				cmd.Println(helpers.Success(fmt.Sprintf("applied %d fix(es) to %s", len(result.Fixes), out)))
			}
			return nil
		},
	}
	cmd.Flags().Bool("apply", false, "apply the generated fixes instead of only reporting them")
	cmd.Flags().StringP("write", "w", "", "where to write the fixed document (defaults to the input file)")
	cmd.Flags().StringSlice("types", nil, "restrict to specific fix types")
	cmd.Flags().String("confidence", "", "minimum confidence: high, medium, low")
	cmd.Flags().Int("max-fixes", 0, "cap the number of fixes per run")
	cmd.Flags().Bool("upgrade-versions", false, "propose node type-version upgrades with migrations")
	cmd.Flags().Bool("relaxed", false, "accept relaxed JSON (comments, trailing commas, unquoted keys)")
	return cmd
}

func fixConfig(cmd *cobra.Command) (autofix.Config, error) {
	cfg := autofix.Config{}
	cfg.ApplyFixes, _ = cmd.Flags().GetBool("apply")
	cfg.MaxFixes, _ = cmd.Flags().GetInt("max-fixes")
	cfg.UpgradeVersions, _ = cmd.Flags().GetBool("upgrade-versions")

	types, _ := cmd.Flags().GetStringSlice("types")
	for _, t := range types {
		cfg.FixTypes = append(cfg.FixTypes, autofix.FixType(t))
	}

	confidence, _ := cmd.Flags().GetString("confidence")
	switch confidence {
	case "":
	case "high":
		cfg.ConfidenceThreshold = autofix.ConfidenceHigh
	case "medium":
		cfg.ConfidenceThreshold = autofix.ConfidenceMedium
	case "low":
		cfg.ConfidenceThreshold = autofix.ConfidenceLow
	default:
		return cfg, fmt.Errorf("unsupported confidence %q (high, medium, low)", confidence)
	}
	return cfg, nil
}
