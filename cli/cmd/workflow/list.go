package workflow

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/n8n-cli/n8nctl/cli/helpers"
	"github.com/n8n-cli/n8nctl/engine/api"
)

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List workflows on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := helpers.APIClient(cmd.Context())
			if err != nil {
				return err
			}
			opts := api.ListWorkflowsOptions{}
			opts.Limit, _ = cmd.Flags().GetInt("limit")
			opts.Cursor, _ = cmd.Flags().GetString("cursor")
			opts.Name, _ = cmd.Flags().GetString("name")
			opts.Tag, _ = cmd.Flags().GetString("tag")
			if cmd.Flags().Changed("active") {
				active, _ := cmd.Flags().GetBool("active")
				opts.Active = &active
			}

			list, err := client.ListWorkflows(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return helpers.Output(cmd).WriteData(workflowListView{list})
		},
	}
	cmd.Flags().Int("limit", 0, "maximum number of workflows to return")
	cmd.Flags().String("cursor", "", "pagination cursor from a previous page")
	cmd.Flags().Bool("active", false, "filter by active state")
	cmd.Flags().String("name", "", "filter by workflow name")
	cmd.Flags().String("tag", "", "filter by tag")
	return cmd
}

// workflowListView renders a workflow page as a table.
type workflowListView struct {
	*api.WorkflowList
}

func (v workflowListView) TableHeader() []string {
	return []string{"ID", "NAME", "ACTIVE", "NODES", "TAGS"}
}

func (v workflowListView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Data))
	for _, wf := range v.Data {
		tags := ""
		for i, tag := range wf.Tags {
			if i > 0 {
				tags += ", "
			}
			tags += tag
		}
		active := wf.Active != nil && *wf.Active
		rows = append(rows, []string{
			wf.ID,
			wf.Name,
			strconv.FormatBool(active),
			strconv.Itoa(len(wf.Nodes)),
			tags,
		})
	}
	return rows
}
