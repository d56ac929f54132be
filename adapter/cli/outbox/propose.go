package outbox

import (
	"fmt"
	"strings"
	"time"

	"github.com/bookhive/bookhive/adapter/cli"
	"github.com/bookhive/bookhive/internal/automations/domain"
	"github.com/spf13/cobra"
)

var (
	proposeType    string
	proposeKey     string
	proposePayload []string
)

var proposeCmd = &cobra.Command{
	Use:   "propose",
	Short: "Propose an action by hand",
	Long: `Create a draft action without an automation rule. The draft
goes through the same approval and execution pipeline as
rule-generated actions.

Examples:
  bookhive outbox propose --type email --key manual:welcome:2026-03-10 \
    --payload to=guest@example.com --payload subject=Welcome --payload "body=See you soon"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := cli.GetContainer()
		if c == nil {
			fmt.Println("The outbox requires a database connection.")
			return nil
		}

		payload := make(map[string]any, len(proposePayload))
		for _, kv := range proposePayload {
			key, value, ok := strings.Cut(kv, "=")
			if !ok {
				return fmt.Errorf("invalid --payload %q, expected key=value", kv)
			}
			payload[key] = value
		}

		snapshot := map[string]any{"proposed_by": "cli"}
		action, err := domain.NewAction(nil, proposeType, proposeKey, snapshot, payload, time.Now())
		if err != nil {
			return err
		}

		id, err := c.Outbox.CreateDraft(cmd.Context(), action)
		if err != nil {
			return fmt.Errorf("failed to propose: %w", err)
		}
		if id != action.ID {
			fmt.Printf("A live action already holds key %q: %s\n", proposeKey, id)
			return nil
		}
		fmt.Printf("Draft %s created (%s)\n", id, proposeType)
		return nil
	},
}

func init() {
	proposeCmd.Flags().StringVar(&proposeType, "type", "", "action type (e.g. email)")
	proposeCmd.Flags().StringVar(&proposeKey, "key", "", "idempotency key")
	proposeCmd.Flags().StringArrayVar(&proposePayload, "payload", nil, "output payload field as key=value (repeatable)")
	_ = proposeCmd.MarkFlagRequired("type")
	_ = proposeCmd.MarkFlagRequired("key")
}
