package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/n8n-cli/n8nctl/cli/helpers"
	"github.com/n8n-cli/n8nctl/engine/api"
)

func webhookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook <path-or-url>",
		Short: "Trigger a published webhook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := api.WebhookRequest{Path: args[0]}
			req.Method, _ = cmd.Flags().GetString("method")
			req.Test, _ = cmd.Flags().GetBool("test")
			req.WaitForResponse, _ = cmd.Flags().GetBool("wait")

			if body, _ := cmd.Flags().GetString("body"); body != "" {
				var payload map[string]any
				if err := json.Unmarshal([]byte(body), &payload); err != nil {
					return fmt.Errorf("%w: --body is not valid JSON: %v", errUsage, err)
				}
				req.Body = payload
			}

			client, err := helpers.APIClient(cmd.Context())
			if err != nil {
				return err
			}
			resp, err := client.TriggerWebhook(cmd.Context(), req)
			if err != nil {
				return err
			}
			return helpers.Output(cmd).WriteData(resp.Body)
		},
	}
	cmd.Flags().String("method", "POST", "HTTP method for the trigger")
	cmd.Flags().String("body", "", "JSON payload to send")
	cmd.Flags().Bool("test", false, "hit the test webhook endpoint")
	cmd.Flags().Bool("wait", false, "keep the connection open for a deferred response")
	return cmd
}
