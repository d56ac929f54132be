// Package outbox contains the action outbox command group.
package outbox

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// operatorActorID is recorded on transitions made from this CLI.
var operatorActorID = uuid.MustParse("00000000-0000-0000-0000-000000000002")

// Cmd is the outbox command group
var Cmd = &cobra.Command{
	Use:     "outbox",
	Aliases: []string{"actions"},
	Short:   "Review and act on proposed actions",
	Long: `Inspect the action outbox and approve, reject or execute
drafts the automation rules have proposed.

Examples:
  bookhive outbox list --status draft     # Pending approvals
  bookhive outbox show <id>               # Full action detail
  bookhive outbox approve <id> --execute  # Approve and send
  bookhive outbox reject <id> -m "wrong"  # Reject with a note`,
}

func init() {
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(approveCmd)
	Cmd.AddCommand(rejectCmd)
	Cmd.AddCommand(executeCmd)
	Cmd.AddCommand(proposeCmd)
}
