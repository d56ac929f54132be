package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bookhive/bookhive/adapter/cli"
	"github.com/bookhive/bookhive/adapter/cli/outbox"
	"github.com/bookhive/bookhive/adapter/cli/rule"
	"github.com/bookhive/bookhive/internal/app"
	"github.com/bookhive/bookhive/pkg/config"
)

func main() {
	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// In development without .env, use defaults
		logger.Warn("failed to load config, using development mode", "error", err)
		cfg = &config.Config{
			AppEnv:              "development",
			LogLevel:            "debug",
			Timezone:            "UTC",
			GlobalMode:          "human_in_the_loop",
			SQLitePath:          "bookhive.db",
			TickInterval:        time.Minute,
			RunLogCap:           50,
			CollaboratorTimeout: 10 * time.Second,
			MaxDraftsPerRule:    20,
		}
	}

	if cfg.IsDevelopment() {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	cli.SetLogger(logger)

	// Try to initialize the full container
	container, err := app.NewContainer(ctx, cfg)
	if err != nil {
		if cfg.IsDevelopment() {
			// In development, allow the CLI to start without storage so
			// commands like --help still work.
			logger.Warn("failed to initialize container, running in limited mode", "error", err)
		} else {
			logger.Error("failed to initialize container", "error", err)
			os.Exit(1)
		}
	} else {
		defer container.Close()
		cli.SetContainer(container)
	}

	cli.AddCommand(rule.Cmd)
	cli.AddCommand(outbox.Cmd)

	cli.Execute(ctx)
}
