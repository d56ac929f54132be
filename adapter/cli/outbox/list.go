package outbox

import (
	"fmt"
	"os"

	"github.com/bookhive/bookhive/adapter/cli"
	"github.com/bookhive/bookhive/internal/automations/domain"
	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	listStatus string
	listType   string
	listRule   string
	listLimit  int
)

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List outbox actions",
	Aliases: []string{"ls"},
	RunE: func(cmd *cobra.Command, args []string) error {
		c := cli.GetContainer()
		if c == nil {
			fmt.Println("The outbox requires a database connection.")
			return nil
		}

		filter := domain.ActionFilter{Limit: listLimit}
		if listStatus != "" {
			status := domain.ActionStatus(listStatus)
			filter.Status = &status
		}
		if listType != "" {
			filter.ActionType = &listType
		}
		if listRule != "" {
			ruleID, err := uuid.Parse(listRule)
			if err != nil {
				return fmt.Errorf("invalid rule id %q", listRule)
			}
			filter.RuleID = &ruleID
		}

		actions, total, err := c.Outbox.List(cmd.Context(), filter)
		if err != nil {
			return fmt.Errorf("failed to list actions: %w", err)
		}
		if len(actions) == 0 {
			fmt.Println("No actions match.")
			return nil
		}

		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.AppendHeader(table.Row{"ID", "Type", "Status", "Created", "Notes"})
		for _, action := range actions {
			notes := action.Notes
			if len(notes) > 40 {
				notes = notes[:37] + "..."
			}
			tw.AppendRow(table.Row{
				action.ID,
				action.ActionType,
				action.Status,
				action.CreatedAt.In(c.Config.Location()).Format("2006-01-02 15:04"),
				notes,
			})
		}
		tw.Render()
		fmt.Printf("Showing %d of %d actions\n", len(actions), total)
		return nil
	},
}

func init() {
	listCmd.Flags().StringVarP(&listStatus, "status", "s", "", "filter by status (draft, approved, executed, rejected, failed)")
	listCmd.Flags().StringVarP(&listType, "type", "t", "", "filter by action type")
	listCmd.Flags().StringVarP(&listRule, "rule", "r", "", "filter by owning rule id")
	listCmd.Flags().IntVarP(&listLimit, "limit", "l", 50, "maximum actions to show")
}
