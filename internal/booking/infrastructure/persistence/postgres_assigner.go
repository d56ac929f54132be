package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bookhive/bookhive/internal/booking/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresResourceAssigner implements domain.ResourceAssigner on pgx.
// Row locks on the booking and resource serialize competing
// assignments; capacity is re-validated inside the transaction.
type PostgresResourceAssigner struct {
	pool *pgxpool.Pool
}

// NewPostgresResourceAssigner creates a PostgreSQL resource assigner.
func NewPostgresResourceAssigner(pool *pgxpool.Pool) *PostgresResourceAssigner {
	return &PostgresResourceAssigner{pool: pool}
}

// Assign commits the assignment or fails cleanly on conflict.
func (a *PostgresResourceAssigner) Assign(ctx context.Context, bookingID, resourceID uuid.UUID) error {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin assignment transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	var start, end time.Time
	var partySize int
	var existing *string
	err = tx.QueryRow(ctx,
		`SELECT start_time, end_time, party_size, resource_id FROM bookings WHERE id = $1 FOR UPDATE`,
		bookingID.String(),
	).Scan(&start, &end, &partySize, &existing)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrBookingNotFound
	}
	if err != nil {
		return err
	}
	if existing != nil {
		return domain.ErrAlreadyAssigned
	}

	var capacity int
	err = tx.QueryRow(ctx,
		`SELECT capacity FROM resources WHERE id = $1 AND active FOR UPDATE`,
		resourceID.String(),
	).Scan(&capacity)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrResourceNotFound
	}
	if err != nil {
		return err
	}

	var used int
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(party_size), 0)
		FROM bookings
		WHERE resource_id = $1 AND start_time < $2 AND end_time > $3
	`, resourceID.String(), end, start).Scan(&used)
	if err != nil {
		return err
	}

	if capacity-used < partySize {
		return fmt.Errorf("%w: resource %s has %d free, booking needs %d",
			domain.ErrCapacityExceeded, resourceID, capacity-used, partySize)
	}

	_, err = tx.Exec(ctx,
		`UPDATE bookings SET resource_id = $1 WHERE id = $2 AND resource_id IS NULL`,
		resourceID.String(), bookingID.String(),
	)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}
