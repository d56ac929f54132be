// Package rule contains the automation rule command group.
package rule

import (
	"github.com/spf13/cobra"
)

// Cmd is the rule command group
var Cmd = &cobra.Command{
	Use:     "rule",
	Aliases: []string{"rules"},
	Short:   "Manage automation rules",
	Long: `Create, list and manage the automation rules the engine runs.

Examples:
  bookhive rule list                          # List all rules
  bookhive rule create "Chase payments" --type payment_reminder --daily 09:00
  bookhive rule enable <id>                   # Enable a rule
  bookhive rule run <id>                      # Run a rule right now
  bookhive rule log <id>                      # Show run history`,
}

func init() {
	Cmd.AddCommand(createCmd)
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(enableCmd)
	Cmd.AddCommand(disableCmd)
	Cmd.AddCommand(modeCmd)
	Cmd.AddCommand(runCmd)
	Cmd.AddCommand(logCmd)
	Cmd.AddCommand(deleteCmd)
}
