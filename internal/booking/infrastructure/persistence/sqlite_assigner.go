package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bookhive/bookhive/internal/booking/domain"
	"github.com/google/uuid"
)

// SQLiteResourceAssigner implements domain.ResourceAssigner. The
// assignment re-validates capacity inside a transaction: the
// allocator's view may be stale by the time an approved action
// executes.
type SQLiteResourceAssigner struct {
	db *sql.DB
}

// NewSQLiteResourceAssigner creates a SQLite resource assigner.
func NewSQLiteResourceAssigner(db *sql.DB) *SQLiteResourceAssigner {
	return &SQLiteResourceAssigner{db: db}
}

// Assign commits the assignment or fails cleanly on conflict.
func (a *SQLiteResourceAssigner) Assign(ctx context.Context, bookingID, resourceID uuid.UUID) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin assignment transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var startStr, endStr string
	var partySize int
	var existing sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT start_time, end_time, party_size, resource_id FROM bookings WHERE id = ?`,
		bookingID.String(),
	).Scan(&startStr, &endStr, &partySize, &existing)
	if err == sql.ErrNoRows {
		return domain.ErrBookingNotFound
	}
	if err != nil {
		return err
	}
	if existing.Valid {
		return domain.ErrAlreadyAssigned
	}

	var capacity int
	err = tx.QueryRowContext(ctx,
		`SELECT capacity FROM resources WHERE id = ? AND active = 1`,
		resourceID.String(),
	).Scan(&capacity)
	if err == sql.ErrNoRows {
		return domain.ErrResourceNotFound
	}
	if err != nil {
		return err
	}

	var used int
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(party_size), 0)
		FROM bookings
		WHERE resource_id = ? AND start_time < ? AND end_time > ?
	`, resourceID.String(), endStr, startStr).Scan(&used)
	if err != nil {
		return err
	}

	if capacity-used < partySize {
		return fmt.Errorf("%w: resource %s has %d free, booking needs %d",
			domain.ErrCapacityExceeded, resourceID, capacity-used, partySize)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE bookings SET resource_id = ? WHERE id = ? AND resource_id IS NULL`,
		resourceID.String(), bookingID.String(),
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}
