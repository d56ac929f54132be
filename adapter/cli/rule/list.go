package rule

import (
	"fmt"
	"os"

	"github.com/bookhive/bookhive/adapter/cli"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var listAll bool

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List automation rules",
	Aliases: []string{"ls"},
	RunE: func(cmd *cobra.Command, args []string) error {
		c := cli.GetContainer()
		if c == nil {
			fmt.Println("Rule management requires a database connection.")
			return nil
		}

		rules, err := c.Rules.ListAll(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list rules: %w", err)
		}

		if len(rules) == 0 {
			fmt.Println("No automation rules found.")
			fmt.Println()
			fmt.Println("Create one with: bookhive rule create \"Chase payments\" --type payment_reminder --daily 09:00")
			return nil
		}

		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.AppendHeader(table.Row{"ID", "Name", "Type", "Enabled", "Mode", "Schedule", "Last run", "Next run"})
		shown := 0
		for _, r := range rules {
			if !listAll && !r.Enabled {
				continue
			}
			lastRun, nextRun := "-", "-"
			if r.LastRunAt != nil {
				lastRun = r.LastRunAt.In(c.Config.Location()).Format("2006-01-02 15:04")
			}
			if r.NextRunAt != nil {
				nextRun = r.NextRunAt.In(c.Config.Location()).Format("2006-01-02 15:04")
			}
			tw.AppendRow(table.Row{r.ID, r.Name, r.Type, r.Enabled, r.Mode, describeSchedule(r.Schedule), lastRun, nextRun})
			shown++
		}
		tw.Render()
		fmt.Printf("%d of %d rules shown\n", shown, len(rules))
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVarP(&listAll, "all", "a", false, "include disabled rules")
}
