package outbox

import (
	"fmt"

	"github.com/bookhive/bookhive/adapter/cli"
	"github.com/bookhive/bookhive/internal/automations/domain"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var executeCmd = &cobra.Command{
	Use:   "execute <id>",
	Short: "Execute an approved action",
	Long: `Run the side effect of an already-approved action. A failed
execution moves the action to failed with the error in its notes; it
is never retried automatically.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := cli.GetContainer()
		if c == nil {
			fmt.Println("The outbox requires a database connection.")
			return nil
		}

		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid action id %q", args[0])
		}

		if err := c.Outbox.Execute(cmd.Context(), id); err != nil {
			return fmt.Errorf("failed to execute: %w", err)
		}

		action, err := c.Outbox.GetByID(cmd.Context(), id)
		if err != nil {
			return err
		}
		switch action.Status {
		case domain.ActionStatusExecuted:
			fmt.Printf("Action %s executed\n", action.ID)
		case domain.ActionStatusFailed:
			fmt.Printf("Action %s failed: %s\n", action.ID, action.Notes)
		default:
			fmt.Printf("Action %s is now %s\n", action.ID, action.Status)
		}
		return nil
	},
}
