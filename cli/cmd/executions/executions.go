// Package executions holds the n8nctl execution subcommands.
package executions

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/n8n-cli/n8nctl/cli/helpers"
	"github.com/n8n-cli/n8nctl/engine/api"
)

// Cmd builds the executions command group.
func Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "executions",
		Aliases: []string{"exec"},
		Short:   "Inspect and manage workflow executions",
	}
	cmd.AddCommand(listCmd(), getCmd(), retryCmd(), deleteCmd())
	return cmd
}

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List executions on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := helpers.APIClient(cmd.Context())
			if err != nil {
				return err
			}
			opts := api.ListExecutionsOptions{}
			opts.WorkflowID, _ = cmd.Flags().GetString("workflow")
			opts.Status, _ = cmd.Flags().GetString("status")
			opts.Limit, _ = cmd.Flags().GetInt("limit")
			opts.Cursor, _ = cmd.Flags().GetString("cursor")
			opts.IncludeData, _ = cmd.Flags().GetBool("data")

			list, err := client.ListExecutions(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return helpers.Output(cmd).WriteData(executionListView{list})
		},
	}
	cmd.Flags().String("workflow", "", "filter by workflow id")
	cmd.Flags().String("status", "", "filter by execution status")
	cmd.Flags().Int("limit", 0, "maximum number of executions to return")
	cmd.Flags().String("cursor", "", "pagination cursor from a previous page")
	cmd.Flags().Bool("data", false, "include run data (slower)")
	return cmd
}

func getCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <execution-id>",
		Short: "Fetch a single execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := helpers.APIClient(cmd.Context())
			if err != nil {
				return err
			}
			includeData, _ := cmd.Flags().GetBool("data")
			exec, err := client.GetExecution(cmd.Context(), args[0], includeData)
			if err != nil {
				return err
			}
			return helpers.Output(cmd).WriteData(exec)
		},
	}
	cmd.Flags().Bool("data", false, "include run data (slower)")
	return cmd
}

func retryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retry <execution-id>",
		Short: "Re-run a finished execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := helpers.APIClient(cmd.Context())
			if err != nil {
				return err
			}
			exec, err := client.RetryExecution(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			cmd.Println(helpers.Success(fmt.Sprintf("started execution %s", exec.ID)))
			return nil
		},
	}
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <execution-id>",
		Short: "Delete an execution record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := helpers.APIClient(cmd.Context())
			if err != nil {
				return err
			}
			if err := client.DeleteExecution(cmd.Context(), args[0]); err != nil {
				return err
			}
			cmd.Println(helpers.Success(fmt.Sprintf("deleted execution %s", args[0])))
			return nil
		},
	}
}

type executionListView struct {
	*api.ExecutionList
}

func (v executionListView) TableHeader() []string {
	return []string{"ID", "WORKFLOW", "STATUS", "STARTED", "STOPPED"}
}

func (v executionListView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Data))
	for _, e := range v.Data {
		rows = append(rows, []string{
			e.ID,
			e.WorkflowID,
			e.Status,
			formatTime(e.StartedAt),
			formatTime(e.StoppedAt),
		})
	}
	return rows
}

func formatTime(ts *time.Time) string {
	if ts == nil {
		return ""
	}
	return ts.Format(time.RFC3339)
}
