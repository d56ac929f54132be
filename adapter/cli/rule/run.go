package rule

import (
	"fmt"

	"github.com/bookhive/bookhive/adapter/cli"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <id>",
	Short: "Run a rule immediately",
	Long: `Run one rule right now, through the same pipeline as a
scheduled run: factory, approval gate, outbox. Bookkeeping and the run
log advance exactly as they would on a tick.`,
	Args: cobra.ExactArgs(1),
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

		if err := c.Runner.RunRule(cmd.Context(), id); err != nil {
			return fmt.Errorf("failed to run rule: %w", err)
		}

		entries, err := c.RunLog.ListByRule(cmd.Context(), id, 1)
		if err == nil && len(entries) > 0 {
			fmt.Printf("Rule run complete: %s\n", entries[0].Message)
		} else {
			fmt.Println("Rule run complete.")
		}
		return nil
	},
}
