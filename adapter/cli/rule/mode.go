package rule

import (
	"fmt"
	"time"

	"github.com/bookhive/bookhive/adapter/cli"
	"github.com/bookhive/bookhive/internal/automations/domain"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var modeCmd = &cobra.Command{
	Use:   "mode <id> <inherit|force_hitl|force_autonomous>",
	Short: "Set a rule's operating mode override",
	Long: `Set how the rule's actions pass the approval gate.

  inherit           follow the engine-wide GLOBAL_MODE
  force_hitl        always hold drafts for human approval
  force_autonomous  always execute immediately`,
	Args: cobra.ExactArgs(2),
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

		mode := domain.RuleMode(args[1])
		switch mode {
		case domain.ModeInherit, domain.ModeForceHITL, domain.ModeForceAutonomous:
		default:
			return fmt.Errorf("unknown mode %q", args[1])
		}

		rule, err := c.Rules.GetByID(cmd.Context(), id)
		if err != nil {
			return err
		}
		rule.SetMode(mode, time.Now())
		if err := c.Rules.Update(cmd.Context(), rule); err != nil {
			return fmt.Errorf("failed to update rule: %w", err)
		}

		fmt.Printf("Rule %s (%s) mode set to %s\n", rule.ID, rule.Name, mode)
		return nil
	},
}
