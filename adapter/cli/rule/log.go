package rule

import (
	"fmt"
	"os"

	"github.com/bookhive/bookhive/adapter/cli"
	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var logLimit int

var logCmd = &cobra.Command{
	Use:   "log <id>",
	Short: "Show a rule's run history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := cli.GetContainer()
		if c == nil {
			fmt.Println("Rule management requires a database connection.")
			return nil
		}

		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid rule id %q", args[0])
		}

		entries, err := c.RunLog.ListByRule(cmd.Context(), id, logLimit)
		if err != nil {
			return fmt.Errorf("failed to load run log: %w", err)
		}
		if len(entries) == 0 {
			fmt.Println("No runs recorded yet.")
			return nil
		}

		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.AppendHeader(table.Row{"Run at", "Result", "Message"})
		for _, entry := range entries {
			result := "ok"
			if !entry.Success {
				result = "failed"
			}
			tw.AppendRow(table.Row{
				entry.RunAt.In(c.Config.Location()).Format("2006-01-02 15:04:05"),
				result,
				entry.Message,
			})
		}
		tw.Render()
		return nil
	},
}

func init() {
	logCmd.Flags().IntVarP(&logLimit, "limit", "l", 20, "maximum entries to show")
}
