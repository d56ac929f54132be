// Package app wires the engine's components together from config.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/bookhive/bookhive/internal/automations/application/factories"
	"github.com/bookhive/bookhive/internal/automations/application/services"
	"github.com/bookhive/bookhive/internal/automations/domain"
	autoPersistence "github.com/bookhive/bookhive/internal/automations/infrastructure/persistence"
	bookingDomain "github.com/bookhive/bookhive/internal/booking/domain"
	bookingPersistence "github.com/bookhive/bookhive/internal/booking/infrastructure/persistence"
	"github.com/bookhive/bookhive/internal/notifications"
	"github.com/bookhive/bookhive/internal/shared/infrastructure/database"
	"github.com/bookhive/bookhive/internal/shared/infrastructure/database/postgres"
	"github.com/bookhive/bookhive/internal/shared/infrastructure/database/sqlite"
	"github.com/bookhive/bookhive/internal/shared/infrastructure/eventbus"
	"github.com/bookhive/bookhive/internal/shared/infrastructure/keylock"
	"github.com/bookhive/bookhive/internal/shared/infrastructure/migrations"
	"github.com/bookhive/bookhive/pkg/config"
	"github.com/bookhive/bookhive/pkg/observability"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// lockTTL bounds how long a crashed process can hold a distributed
// idempotency-key lock.
const lockTTL = 30 * time.Second

// Container holds the wired application services.
type Container struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics observability.Metrics

	Rules   domain.RuleRepository
	Actions domain.ActionRepository
	RunLog  domain.RunLogRepository

	Outbox *services.Outbox
	Runner *services.RuleRunner

	sqliteDB  *sql.DB
	pgPool    *pgxpool.Pool
	redis     *redis.Client
	publisher eventbus.Publisher
}

// NewContainer builds the full dependency graph from config.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.LogLevel,
		Format:      logFormat(cfg),
		ServiceName: "bookhive",
	})

	var metrics observability.Metrics = observability.NewPrometheusMetrics("bookhive")

	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics,
	}

	// Storage. An explicit DATABASE_URL selects PostgreSQL; otherwise
	// the engine runs zero-config on SQLite.
	var (
		bookings  bookingDomain.BookingQuery
		resources bookingDomain.ResourceQuery
		invoices  bookingDomain.InvoiceQuery
		stats     bookingDomain.StatsQuery
		assigner  bookingDomain.ResourceAssigner
	)
	switch driver := database.DetectDriver(cfg.DatabaseURL); driver {
	case database.DriverPostgres:
		pool, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("opening postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrating postgres: %w", err)
		}
		c.pgPool = pool

		c.Rules = autoPersistence.NewPostgresRuleRepository(pool)
		c.Actions = autoPersistence.NewPostgresActionRepository(pool)
		c.RunLog = autoPersistence.NewPostgresRunLogRepository(pool)
		bookings = bookingPersistence.NewPostgresBookingQuery(pool)
		resources = bookingPersistence.NewPostgresResourceQuery(pool)
		invoices = bookingPersistence.NewPostgresInvoiceQuery(pool)
		stats = bookingPersistence.NewPostgresStatsQuery(pool)
		assigner = bookingPersistence.NewPostgresResourceAssigner(pool)

	case database.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite: %w", err)
		}
		if err := migrations.RunSQLiteMigrations(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrating sqlite: %w", err)
		}
		c.sqliteDB = db

		c.Rules = autoPersistence.NewSQLiteRuleRepository(db)
		c.Actions = autoPersistence.NewSQLiteActionRepository(db)
		c.RunLog = autoPersistence.NewSQLiteRunLogRepository(db)
		bookings = bookingPersistence.NewSQLiteBookingQuery(db)
		resources = bookingPersistence.NewSQLiteResourceQuery(db)
		invoices = bookingPersistence.NewSQLiteInvoiceQuery(db)
		stats = bookingPersistence.NewSQLiteStatsQuery(db)
		assigner = bookingPersistence.NewSQLiteResourceAssigner(db)

	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	// Idempotency-key guard: distributed when Redis is configured,
	// in-process otherwise.
	var guard keylock.Guard = keylock.NewMutexGuard()
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("parsing REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			c.Close()
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		c.redis = client
		guard = keylock.NewRedisGuard(client, lockTTL)
	}

	// Audit sink.
	c.publisher = eventbus.NewNoopPublisher(logger)
	if cfg.RabbitMQURL != "" {
		pub, err := eventbus.NewRabbitMQPublisher(cfg.RabbitMQURL, logger)
		if err != nil {
			if !cfg.IsDevelopment() {
				c.Close()
				return nil, fmt.Errorf("connecting to rabbitmq: %w", err)
			}
			logger.Warn("rabbitmq unavailable, audit events disabled", "error", err)
		} else {
			c.publisher = pub
		}
	}

	// Mail transport.
	var mailer notifications.Mailer = notifications.NewLogMailer(logger)
	if cfg.SMTPHost != "" {
		mailer = notifications.NewSMTPMailer(notifications.SMTPConfig{
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			User: cfg.SMTPUser,
			Pass: cfg.SMTPPass,
			From: cfg.MailFrom,
		}, logger)
	}

	executor := services.NewExecutor(cfg.CollaboratorTimeout, logger)
	executor.RegisterHandler(services.NewEmailActionHandler(mailer))
	executor.RegisterHandler(services.NewAssignmentActionHandler(assigner))

	clock := domain.SystemClock{}
	c.Outbox = services.NewOutbox(c.Actions, guard, executor, c.publisher, clock, logger, metrics)

	loc := cfg.Location()
	registry := factories.NewRegistry()
	registry.Register(factories.NewPaymentReminderFactory(bookings, loc))
	registry.Register(factories.NewInvoiceSendFactory(invoices, loc))
	registry.Register(factories.NewOverdueReminderFactory(invoices, loc))
	registry.Register(factories.NewInsightsReportFactory(stats, loc))
	registry.Register(factories.NewRoomAssignmentFactory(bookings, resources, loc))

	globalMode, err := domain.ParseGlobalMode(cfg.GlobalMode)
	if err != nil {
		c.Close()
		return nil, err
	}

	c.Runner = services.NewRuleRunner(
		c.Rules, c.RunLog, registry, c.Outbox, c.publisher,
		globalMode, loc, cfg.RunLogCap, cfg.MaxDraftsPerRule,
		clock, logger, metrics,
	)

	return c, nil
}

// Ping checks connectivity to the active storage backend.
func (c *Container) Ping(ctx context.Context) error {
	if c.pgPool != nil {
		return c.pgPool.Ping(ctx)
	}
	if c.sqliteDB != nil {
		return c.sqliteDB.PingContext(ctx)
	}
	return fmt.Errorf("no storage configured")
}

// Close releases all external connections.
func (c *Container) Close() error {
	if c.publisher != nil {
		c.publisher.Close()
	}
	if c.redis != nil {
		c.redis.Close()
	}
	if c.sqliteDB != nil {
		c.sqliteDB.Close()
	}
	if c.pgPool != nil {
		c.pgPool.Close()
	}
	return nil
}

func logFormat(cfg *config.Config) observability.LogFormat {
	if cfg.IsDevelopment() {
		return observability.LogFormatText
	}
	return observability.LogFormatJSON
}
