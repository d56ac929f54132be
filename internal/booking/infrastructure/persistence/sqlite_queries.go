// Package persistence implements the booking read models on SQLite.
package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/bookhive/bookhive/internal/booking/domain"
	"github.com/google/uuid"
)

// SQLiteBookingQuery implements domain.BookingQuery.
type SQLiteBookingQuery struct {
	db *sql.DB
}

// NewSQLiteBookingQuery creates a SQLite booking query.
func NewSQLiteBookingQuery(db *sql.DB) *SQLiteBookingQuery {
	return &SQLiteBookingQuery{db: db}
}

const bookingColumns = `id, customer_name, customer_email, service_name, party_size, start_time, end_time, paid, resource_id`

// UnpaidStartingBetween returns unpaid bookings starting in [from, to).
func (q *SQLiteBookingQuery) UnpaidStartingBetween(ctx context.Context, from, to time.Time, limit int) ([]domain.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE paid = 0 AND start_time >= ? AND start_time < ?
		ORDER BY start_time ASC
		LIMIT ?
	`
	rows, err := q.db.QueryContext(ctx, query, from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookings(rows)
}

// UnassignedBetween returns bookings with no resource in [from, to).
func (q *SQLiteBookingQuery) UnassignedBetween(ctx context.Context, from, to time.Time, limit int) ([]domain.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE resource_id IS NULL AND start_time >= ? AND start_time < ?
		ORDER BY start_time ASC
		LIMIT ?
	`
	rows, err := q.db.QueryContext(ctx, query, from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookings(rows)
}

// SQLiteResourceQuery implements domain.ResourceQuery.
type SQLiteResourceQuery struct {
	db *sql.DB
}

// NewSQLiteResourceQuery creates a SQLite resource query.
func NewSQLiteResourceQuery(db *sql.DB) *SQLiteResourceQuery {
	return &SQLiteResourceQuery{db: db}
}

// ActiveResources returns all active resources.
func (q *SQLiteResourceQuery) ActiveResources(ctx context.Context) ([]domain.Resource, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT id, name, capacity, active FROM resources WHERE active = 1 ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var resources []domain.Resource
	for rows.Next() {
		var res domain.Resource
		var idStr string
		if err := rows.Scan(&idStr, &res.Name, &res.Capacity, &res.Active); err != nil {
			return nil, err
		}
		if res.ID, err = uuid.Parse(idStr); err != nil {
			return nil, err
		}
		resources = append(resources, res)
	}
	return resources, rows.Err()
}

// OverlappingUsage sums party sizes of assigned bookings overlapping
// [from, to), per resource.
func (q *SQLiteResourceQuery) OverlappingUsage(ctx context.Context, from, to time.Time) (map[uuid.UUID]int, error) {
	query := `
		SELECT resource_id, COALESCE(SUM(party_size), 0)
		FROM bookings
		WHERE resource_id IS NOT NULL AND start_time < ? AND end_time > ?
		GROUP BY resource_id
	`
	rows, err := q.db.QueryContext(ctx, query, to.UTC().Format(time.RFC3339), from.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	usage := make(map[uuid.UUID]int)
	for rows.Next() {
		var idStr string
		var used int
		if err := rows.Scan(&idStr, &used); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, err
		}
		usage[id] = used
	}
	return usage, rows.Err()
}

// SQLiteInvoiceQuery implements domain.InvoiceQuery.
type SQLiteInvoiceQuery struct {
	db *sql.DB
}

// NewSQLiteInvoiceQuery creates a SQLite invoice query.
func NewSQLiteInvoiceQuery(db *sql.DB) *SQLiteInvoiceQuery {
	return &SQLiteInvoiceQuery{db: db}
}

const invoiceColumns = `id, booking_id, number, customer_name, customer_email, amount_cents, currency, issued_at, due_date, status`

// OpenForPastBookings returns open invoices whose booking ended before asOf.
func (q *SQLiteInvoiceQuery) OpenForPastBookings(ctx context.Context, asOf time.Time, limit int) ([]domain.Invoice, error) {
	query := `
		SELECT i.id, i.booking_id, i.number, i.customer_name, i.customer_email,
			i.amount_cents, i.currency, i.issued_at, i.due_date, i.status
		FROM invoices i
		JOIN bookings b ON b.id = i.booking_id
		WHERE i.status = 'open' AND b.end_time < ?
		ORDER BY b.end_time ASC
		LIMIT ?
	`
	rows, err := q.db.QueryContext(ctx, query, asOf.UTC().Format(time.RFC3339), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInvoices(rows)
}

// OverdueAsOf returns sent invoices past their due date.
func (q *SQLiteInvoiceQuery) OverdueAsOf(ctx context.Context, asOf time.Time, limit int) ([]domain.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE status = 'sent' AND due_date IS NOT NULL AND due_date < ?
		ORDER BY due_date ASC
		LIMIT ?
	`
	rows, err := q.db.QueryContext(ctx, query, asOf.UTC().Format(time.RFC3339), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInvoices(rows)
}

// SQLiteStatsQuery implements domain.StatsQuery.
type SQLiteStatsQuery struct {
	db *sql.DB
}

// NewSQLiteStatsQuery creates a SQLite stats query.
func NewSQLiteStatsQuery(db *sql.DB) *SQLiteStatsQuery {
	return &SQLiteStatsQuery{db: db}
}

// Snapshot aggregates bookings and revenue over [from, to).
func (q *SQLiteStatsQuery) Snapshot(ctx context.Context, from, to time.Time) (domain.Stats, error) {
	stats := domain.Stats{From: from, To: to}

	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(party_size), 0), COALESCE(SUM(CASE WHEN paid = 0 THEN 1 ELSE 0 END), 0)
		FROM bookings
		WHERE start_time >= ? AND start_time < ?
	`, from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339)).
		Scan(&stats.BookingCount, &stats.GuestCount, &stats.UnpaidCount)
	if err != nil {
		return domain.Stats{}, err
	}

	err = q.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(i.amount_cents), 0)
		FROM invoices i
		JOIN bookings b ON b.id = i.booking_id
		WHERE i.status = 'paid' AND b.start_time >= ? AND b.start_time < ?
	`, from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339)).
		Scan(&stats.RevenueCents)
	if err != nil {
		return domain.Stats{}, err
	}

	return stats, nil
}

func scanBookings(rows *sql.Rows) ([]domain.Booking, error) {
	var bookings []domain.Booking
	for rows.Next() {
		var b domain.Booking
		var idStr, startStr, endStr string
		var resourceIDStr sql.NullString
		if err := rows.Scan(&idStr, &b.CustomerName, &b.CustomerEmail, &b.ServiceName, &b.PartySize, &startStr, &endStr, &b.Paid, &resourceIDStr); err != nil {
			return nil, err
		}

		var err error
		if b.ID, err = uuid.Parse(idStr); err != nil {
			return nil, err
		}
		if b.StartTime, err = time.Parse(time.RFC3339, startStr); err != nil {
			return nil, err
		}
		if b.EndTime, err = time.Parse(time.RFC3339, endStr); err != nil {
			return nil, err
		}
		if resourceIDStr.Valid {
			rid, err := uuid.Parse(resourceIDStr.String)
			if err != nil {
				return nil, err
			}
			b.ResourceID = &rid
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func scanInvoices(rows *sql.Rows) ([]domain.Invoice, error) {
	var invoices []domain.Invoice
	for rows.Next() {
		var inv domain.Invoice
		var idStr, bookingIDStr string
		var issuedAtStr, dueDateStr sql.NullString
		if err := rows.Scan(&idStr, &bookingIDStr, &inv.Number, &inv.CustomerName, &inv.CustomerEmail, &inv.AmountCents, &inv.Currency, &issuedAtStr, &dueDateStr, &inv.Status); err != nil {
			return nil, err
		}

		var err error
		if inv.ID, err = uuid.Parse(idStr); err != nil {
			return nil, err
		}
		if inv.BookingID, err = uuid.Parse(bookingIDStr); err != nil {
			return nil, err
		}
		if issuedAtStr.Valid {
			t, err := time.Parse(time.RFC3339, issuedAtStr.String)
			if err != nil {
				return nil, err
			}
			inv.IssuedAt = &t
		}
		if dueDateStr.Valid {
			t, err := time.Parse(time.RFC3339, dueDateStr.String)
			if err != nil {
				return nil, err
			}
			inv.DueDate = &t
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}
