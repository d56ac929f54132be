// Package cli implements the bookhive administrative command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/bookhive/bookhive/internal/app"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	verbose   bool
	logger    *slog.Logger
	container *app.Container
)

type commandContext struct {
	correlationID uuid.UUID
	startedAt     time.Time
}

type commandContextKey struct{}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bookhive",
	Short: "BookHive - booking automation engine",
	Long: `BookHive runs recurring automations over a booking system:
payment reminders, invoice delivery, overdue chasers, weekly insight
reports and room assignment proposals.

Proposed actions land in an outbox where they are auto-executed or
held for human approval, depending on the configured operating mode.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if logger == nil {
			logger = slog.Default()
		}
		ctx := cmd.Context()
		info := commandContext{
			correlationID: uuid.New(),
			startedAt:     time.Now(),
		}
		cmd.SetContext(context.WithValue(ctx, commandContextKey{}, info))
		if verbose {
			logger.Info("command start",
				"command", cmd.CommandPath(),
				"correlation_id", info.correlationID.String(),
			)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger == nil {
			logger = slog.Default()
		}
		info, ok := cmd.Context().Value(commandContextKey{}).(commandContext)
		if !ok || !verbose {
			return
		}
		logger.Info("command end",
			"command", cmd.CommandPath(),
			"correlation_id", info.correlationID.String(),
			"duration_ms", time.Since(info.startedAt).Milliseconds(),
		)
	},
}

// Execute runs the root command.
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// SetLogger sets the logger used by all commands.
func SetLogger(l *slog.Logger) {
	logger = l
}

// SetContainer injects the wired application container.
func SetContainer(c *app.Container) {
	container = c
}

// GetContainer returns the wired container, or nil when the engine
// could not connect to its storage.
func GetContainer() *app.Container {
	return container
}

// AddCommand registers a top-level command group.
func AddCommand(cmd *cobra.Command) {
	rootCmd.AddCommand(cmd)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
