// Package workflow holds the n8nctl workflow subcommands: local
// validation and repair, structural patching, and server CRUD with
// backup-before-mutation.
package workflow

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/n8n-cli/n8nctl/cli/helpers"
	"github.com/n8n-cli/n8nctl/engine/infra/sqlite"
	"github.com/n8n-cli/n8nctl/engine/workflow"
	"github.com/n8n-cli/n8nctl/pkg/logger"
)

// Cmd builds the workflow command group.
func Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workflow",
		Aliases: []string{"wf"},
		Short:   "Validate, repair, diff, and manage workflows",
	}
	cmd.AddCommand(
		listCmd(),
		getCmd(),
		createCmd(),
		updateCmd(),
		deleteCmd(),
		activateCmd(),
		deactivateCmd(),
		validateCmd(),
		fixCmd(),
		patchCmd(),
		snapshotsCmd(),
	)
	return cmd
}

// loadWorkflowFile reads and parses a local workflow document.
func loadWorkflowFile(path string, relaxed bool) (*workflow.Workflow, error) {
	data, err := helpers.ReadWorkflowFile(path)
	if err != nil {
		return nil, err
	}
	return workflow.Parse(data, workflow.ParseOptions{Relaxed: relaxed})
}

// recordSnapshot stores a workflow version in the local database. Snapshot
// bookkeeping never fails a command.
func recordSnapshot(ctx context.Context, operation string, wf *workflow.Workflow) {
	if wf == nil || wf.ID == "" {
		return
	}
	store, err := helpers.LocalStore(ctx)
	if err != nil {
		logger.FromContext(ctx).Debug("snapshot store unavailable", "error", err)
		return
	}
	defer store.Close()

	doc, err := workflow.Serialize(wf)
	if err != nil {
		return
	}
	if _, err := store.SaveSnapshot(ctx, &sqlite.Snapshot{
		WorkflowID: wf.ID,
		Name:       wf.Name,
		Operation:  operation,
		Document:   string(doc),
	}); err != nil {
		logger.FromContext(ctx).Debug("snapshot save failed", "error", err)
	}
}

// backupCurrent pulls the server copy of a workflow and writes the
// pre-mutation dump. Best-effort outside strict mode.
func backupCurrent(ctx context.Context, operation, id string) error {
	client, err := helpers.APIClient(ctx)
	if err != nil {
		return err
	}
	current, err := client.GetWorkflow(ctx, id)
	if err != nil {
		return err
	}
	doc, err := workflow.Serialize(current)
	if err != nil {
		return fmt.Errorf("serialize current workflow: %w", err)
	}
	backups, err := helpers.BackupService(ctx)
	if err != nil {
		return err
	}
	if _, err := backups.SaveBestEffort(ctx, operation, id, doc); err != nil {
		return err
	}
	return nil
}
