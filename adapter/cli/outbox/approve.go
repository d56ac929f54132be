package outbox

import (
	"fmt"

	"github.com/bookhive/bookhive/adapter/cli"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var approveExecute bool

var approveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Approve a draft action",
	Long: `Approve a draft. With --execute the side effect runs
immediately; without it the action waits for a separate execute.`,
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

		if approveExecute {
			if err := c.Outbox.ApproveAndExecute(cmd.Context(), id, operatorActorID); err != nil {
				return fmt.Errorf("failed to approve and execute: %w", err)
			}
		} else {
			if err := c.Outbox.Approve(cmd.Context(), id, operatorActorID); err != nil {
				return fmt.Errorf("failed to approve: %w", err)
			}
		}

		action, err := c.Outbox.GetByID(cmd.Context(), id)
		if err != nil {
			return err
		}
		fmt.Printf("Action %s is now %s\n", action.ID, action.Status)
		if action.Notes != "" {
			fmt.Printf("Notes: %s\n", action.Notes)
		}
		return nil
	},
}

func init() {
	approveCmd.Flags().BoolVarP(&approveExecute, "execute", "x", false, "execute immediately after approving")
}
