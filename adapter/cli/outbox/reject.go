package outbox

import (
	"fmt"

	"github.com/bookhive/bookhive/adapter/cli"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var rejectNote string

var rejectCmd = &cobra.Command{
	Use:   "reject <id>",
	Short: "Reject a draft action",
	Args:  cobra.ExactArgs(1),
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

		if err := c.Outbox.Reject(cmd.Context(), id, operatorActorID, rejectNote); err != nil {
			return fmt.Errorf("failed to reject: %w", err)
		}
		fmt.Printf("Action %s rejected\n", id)
		return nil
	},
}

func init() {
	rejectCmd.Flags().StringVarP(&rejectNote, "message", "m", "", "reason for rejection")
}
