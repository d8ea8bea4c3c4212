package workflow

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/n8n-cli/n8nctl/cli/helpers"
	"github.com/n8n-cli/n8nctl/engine/workflow"
)

func getCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <workflow-id>",
		Short: "Fetch a workflow from the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := helpers.APIClient(cmd.Context())
			if err != nil {
				return err
			}
			wf, err := client.GetWorkflow(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			recordSnapshot(cmd.Context(), "pull", wf)

			if out, _ := cmd.Flags().GetString("file"); out != "" {
				doc, err := workflow.Serialize(wf)
				if err != nil {
					return err
				}
				if err := os.WriteFile(out, doc, 0o600); err != nil {
					return fmt.Errorf("write %s: %w", out, err)
				}
				cmd.Println(helpers.Success(fmt.Sprintf("wrote workflow %s to %s", wf.ID, out)))
				return nil
			}
			return helpers.Output(cmd).WriteData(wf)
		},
	}
	cmd.Flags().StringP("file", "f", "", "write the workflow document to a file instead of stdout")
	return cmd
}
