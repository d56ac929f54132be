package rule

import (
	"fmt"
	"time"

	"github.com/bookhive/bookhive/adapter/cli"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var enableCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "Enable a rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return toggleRule(cmd, args[0], true)
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable <id>",
	Short: "Disable a rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return toggleRule(cmd, args[0], false)
	},
}

func toggleRule(cmd *cobra.Command, idArg string, enable bool) error {
	c := cli.GetContainer()
	if c == nil {
		fmt.Println("Rule management requires a database connection.")
		return nil
	}

	id, err := uuid.Parse(idArg)
	if err != nil {
		return fmt.Errorf("invalid rule id %q", idArg)
	}

	rule, err := c.Rules.GetByID(cmd.Context(), id)
	if err != nil {
		return err
	}
	if enable {
		rule.Enable(time.Now())
	} else {
		rule.Disable(time.Now())
	}
	if err := c.Rules.Update(cmd.Context(), rule); err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}

	state := "disabled"
	if enable {
		state = "enabled"
	}
	fmt.Printf("Rule %s (%s) %s\n", rule.ID, rule.Name, state)
	return nil
}
