package outbox

import (
	"encoding/json"
	"fmt"

	"github.com/bookhive/bookhive/adapter/cli"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:     "show <id>",
	Short:   "Show one action in full",
	Aliases: []string{"get"},
	Args:    cobra.ExactArgs(1),
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

		action, err := c.Outbox.GetByID(cmd.Context(), id)
		if err != nil {
			return err
		}

		fmt.Printf("Action:          %s\n", action.ID)
		fmt.Printf("Type:            %s\n", action.ActionType)
		fmt.Printf("Status:          %s\n", action.Status)
		fmt.Printf("Idempotency key: %s\n", action.IdempotencyKey)
		if action.RuleID != nil {
			fmt.Printf("Rule:            %s\n", *action.RuleID)
		} else {
			fmt.Printf("Rule:            (manual)\n")
		}
		if action.ActorID != nil {
			fmt.Printf("Actor:           %s\n", *action.ActorID)
		}
		if action.Notes != "" {
			fmt.Printf("Notes:           %s\n", action.Notes)
		}
		fmt.Printf("Created:         %s\n", action.CreatedAt.In(c.Config.Location()).Format("2006-01-02 15:04:05"))
		fmt.Printf("Updated:         %s\n", action.UpdatedAt.In(c.Config.Location()).Format("2006-01-02 15:04:05"))

		payload, _ := json.MarshalIndent(action.OutputPayload, "", "  ")
		fmt.Printf("\nPayload:\n%s\n", payload)
		snapshot, _ := json.MarshalIndent(action.InputSnapshot, "", "  ")
		fmt.Printf("\nInput snapshot:\n%s\n", snapshot)
		return nil
	},
}
