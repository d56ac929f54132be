package rule

import (
	"fmt"

	"github.com/bookhive/bookhive/adapter/cli"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var deleteForce bool

var deleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Short:   "Delete a rule",
	Aliases: []string{"rm"},
	Args:    cobra.ExactArgs(1),
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

		if !deleteForce {
			rule, err := c.Rules.GetByID(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Printf("This will delete rule %q and stop its automation.\n", rule.Name)
			fmt.Println("Re-run with --force to confirm.")
			return nil
		}

		if err := c.Rules.Delete(cmd.Context(), id); err != nil {
			return fmt.Errorf("failed to delete rule: %w", err)
		}
		fmt.Printf("Deleted rule %s\n", id)
		return nil
	},
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "delete without confirmation")
}
