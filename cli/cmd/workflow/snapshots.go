package workflow

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/n8n-cli/n8nctl/cli/helpers"
	"github.com/n8n-cli/n8nctl/engine/infra/sqlite"
)

func snapshotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshots <workflow-id>",
		Short: "List locally recorded versions of a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := helpers.LocalStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			limit, _ := cmd.Flags().GetInt("limit")
			list, err := store.ListSnapshots(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			return helpers.Output(cmd).WriteData(snapshotView(list))
		},
	}
	cmd.Flags().Int("limit", 20, "maximum number of snapshots to list")
	return cmd
}

type snapshotView []*sqlite.Snapshot

func (v snapshotView) TableHeader() []string {
	return []string{"ID", "OPERATION", "NAME", "RECORDED"}
}

func (v snapshotView) TableRows() [][]string {
	rows := make([][]string, 0, len(v))
	for _, s := range v {
		rows = append(rows, []string{
			strconv.FormatInt(s.ID, 10),
			s.Operation,
			s.Name,
			s.CreatedAt.Format(time.RFC3339),
		})
	}
	return rows
}
