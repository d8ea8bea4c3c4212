package workflow

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/n8n-cli/n8nctl/cli/helpers"
)

func createCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a workflow on the server from a local file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("file")
			relaxed, _ := cmd.Flags().GetBool("relaxed")
			wf, err := loadWorkflowFile(path, relaxed)
			if err != nil {
				return err
			}
			client, err := helpers.APIClient(cmd.Context())
			if err != nil {
				return err
			}
			created, err := client.CreateWorkflow(cmd.Context(), wf)
			if err != nil {
				return err
			}
			recordSnapshot(cmd.Context(), "create", created)
			cmd.Println(helpers.Success(fmt.Sprintf("created workflow %s (%s)", created.Name, created.ID)))
			return nil
		},
	}
	cmd.Flags().StringP("file", "f", "", "workflow document to upload")
	cmd.Flags().Bool("relaxed", false, "accept relaxed JSON (comments, trailing commas, unquoted keys)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func updateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <workflow-id>",
		Short: "Replace a workflow on the server with a local file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			relaxed, _ := cmd.Flags().GetBool("relaxed")
			wf, err := loadWorkflowFile(path, relaxed)
			if err != nil {
				return err
			}
			// Backup runs before the mutation RPC, not after.
			if err := backupCurrent(cmd.Context(), "update", args[0]); err != nil {
				return err
			}
			client, err := helpers.APIClient(cmd.Context())
			if err != nil {
				return err
			}
			updated, err := client.UpdateWorkflow(cmd.Context(), args[0], wf)
			if err != nil {
				return err
			}
			recordSnapshot(cmd.Context(), "update", updated)
			cmd.Println(helpers.Success(fmt.Sprintf("updated workflow %s (%s)", updated.Name, updated.ID)))
			return nil
		},
	}
	cmd.Flags().StringP("file", "f", "", "workflow document to upload")
	cmd.Flags().Bool("relaxed", false, "accept relaxed JSON (comments, trailing commas, unquoted keys)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func deleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <workflow-id>",
		Short: "Delete a workflow from the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := backupCurrent(cmd.Context(), "delete", args[0]); err != nil {
				return err
			}
			client, err := helpers.APIClient(cmd.Context())
			if err != nil {
				return err
			}
			if err := client.DeleteWorkflow(cmd.Context(), args[0]); err != nil {
				return err
			}
			cmd.Println(helpers.Success(fmt.Sprintf("deleted workflow %s", args[0])))
			return nil
		},
	}
	return cmd
}

func activateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activate <workflow-id>",
		Short: "Activate a workflow on the server",
		Args:  cobra.ExactArgs(1),
		RunE:  runSetActive(true),
	}
}

func deactivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <workflow-id>",
		Short: "Deactivate a workflow on the server",
		Args:  cobra.ExactArgs(1),
		RunE:  runSetActive(false),
	}
}

func runSetActive(active bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		operation := "deactivate"
		if active {
			operation = "activate"
		}
		if err := backupCurrent(cmd.Context(), operation, args[0]); err != nil {
			return err
		}
		client, err := helpers.APIClient(cmd.Context())
		if err != nil {
			return err
		}
		wf, err := client.ActivateWorkflow(cmd.Context(), args[0], active)
		if err != nil {
			return err
		}
		recordSnapshot(cmd.Context(), operation, wf)
		cmd.Println(helpers.Success(fmt.Sprintf("%sd workflow %s", operation, args[0])))
		return nil
	}
}
