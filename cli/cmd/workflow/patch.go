package workflow

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/n8n-cli/n8nctl/cli/helpers"
	"github.com/n8n-cli/n8nctl/engine/diff"
	"github.com/n8n-cli/n8nctl/engine/workflow"
)

func patchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patch [workflow-id]",
		Short: "Apply structural operations to a workflow",
		Long: "Apply a JSON list of structural operations to a workflow. With a workflow id the " +
			"document is fetched from the server, patched, and pushed back; with --file the patch " +
			"runs against a local document.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opsPath, _ := cmd.Flags().GetString("ops")
			opsData, err := helpers.ReadWorkflowFile(opsPath)
			if err != nil {
				return err
			}
			ops, err := diff.ParseOperations(opsData)
			if err != nil {
				return err
			}

			opts := diff.Options{}
			opts.DryRun, _ = cmd.Flags().GetBool("dry-run")
			opts.ContinueOnError, _ = cmd.Flags().GetBool("continue-on-error")

			localPath, _ := cmd.Flags().GetString("file")
			if localPath != "" {
				return patchLocal(cmd, localPath, ops, opts)
			}
			if len(args) == 0 {
				return fmt.Errorf("a workflow id or --file is required")
			}
			return patchRemote(cmd, args[0], ops, opts)
		},
	}
	cmd.Flags().String("ops", "", "JSON file holding the operation list")
	cmd.Flags().StringP("file", "f", "", "patch a local workflow document instead of the server copy")
	cmd.Flags().StringP("write", "w", "", "where to write the patched document (local mode; defaults to the input file)")
	cmd.Flags().Bool("dry-run", false, "validate and apply without persisting the result")
	cmd.Flags().Bool("continue-on-error", false, "apply surviving operations when some fail")
	cmd.Flags().Bool("relaxed", false, "accept relaxed JSON (comments, trailing commas, unquoted keys)")
	_ = cmd.MarkFlagRequired("ops")
	return cmd
}

func patchLocal(cmd *cobra.Command, path string, ops []diff.Operation, opts diff.Options) error {
	relaxed, _ := cmd.Flags().GetBool("relaxed")
	wf, err := loadWorkflowFile(path, relaxed)
	if err != nil {
		return err
	}
	cat, err := helpers.Catalog(cmd.Context())
	if err != nil {
		return err
	}
	defer cat.Close()

	result, err := diff.New(cat).Apply(cmd.Context(), wf, ops, opts)
	if err != nil {
		return err
	}
	if err := helpers.Output(cmd).WriteData(result); err != nil {
		return err
	}
	if opts.DryRun {
		return nil
	}

	out, _ := cmd.Flags().GetString("write")
	if out == "" {
		out = path
	}
	doc, err := workflow.Serialize(result.Workflow)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, doc, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	cmd.Println(helpers.Success(fmt.Sprintf("applied %d operation(s) to %s", result.Applied, out)))
	return nil
}

func patchRemote(cmd *cobra.Command, id string, ops []diff.Operation, opts diff.Options) error {
	ctx := cmd.Context()
	client, err := helpers.APIClient(ctx)
	if err != nil {
		return err
	}
	wf, err := client.GetWorkflow(ctx, id)
	if err != nil {
		return err
	}

	cat, err := helpers.Catalog(ctx)
	if err != nil {
		return err
	}
	defer cat.Close()

	result, err := diff.New(cat).Apply(ctx, wf, ops, opts)
	if err != nil {
		return err
	}
	if err := helpers.Output(cmd).WriteData(result); err != nil {
		return err
	}
	if opts.DryRun {
		return nil
	}

	// Backup runs before the mutation RPC, not after.
	doc, err := workflow.Serialize(wf)
	if err != nil {
		return err
	}
	backups, err := helpers.BackupService(ctx)
	if err != nil {
		return err
	}
	if _, err := backups.SaveBestEffort(ctx, "patch", id, doc); err != nil {
		return err
	}

	updated, err := client.UpdateWorkflow(ctx, id, result.Workflow)
	if err != nil {
		return err
	}
	recordSnapshot(ctx, "patch", updated)
	cmd.Println(helpers.Success(fmt.Sprintf("applied %d operation(s) to workflow %s", result.Applied, id)))
	return nil
}
