package persistence

import (
	"context"
	"time"

	"github.com/bookhive/bookhive/internal/booking/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBookingQuery implements domain.BookingQuery on pgx.
type PostgresBookingQuery struct {
	pool *pgxpool.Pool
}

// NewPostgresBookingQuery creates a PostgreSQL booking query.
func NewPostgresBookingQuery(pool *pgxpool.Pool) *PostgresBookingQuery {
	return &PostgresBookingQuery{pool: pool}
}

const pgBookingColumns = `id, customer_name, customer_email, service_name, party_size, start_time, end_time, paid, resource_id`

// UnpaidStartingBetween returns unpaid bookings starting in [from, to).
func (q *PostgresBookingQuery) UnpaidStartingBetween(ctx context.Context, from, to time.Time, limit int) ([]domain.Booking, error) {
	query := `
		SELECT ` + pgBookingColumns + `
		FROM bookings
		WHERE NOT paid AND start_time >= $1 AND start_time < $2
		ORDER BY start_time ASC
		LIMIT $3
	`
	rows, err := q.pool.Query(ctx, query, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPgBookings(rows)
}

// UnassignedBetween returns bookings with no resource in [from, to).
func (q *PostgresBookingQuery) UnassignedBetween(ctx context.Context, from, to time.Time, limit int) ([]domain.Booking, error) {
	query := `
		SELECT ` + pgBookingColumns + `
		FROM bookings
		WHERE resource_id IS NULL AND start_time >= $1 AND start_time < $2
		ORDER BY start_time ASC
		LIMIT $3
	`
	rows, err := q.pool.Query(ctx, query, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPgBookings(rows)
}

// PostgresResourceQuery implements domain.ResourceQuery on pgx.
type PostgresResourceQuery struct {
	pool *pgxpool.Pool
}

// NewPostgresResourceQuery creates a PostgreSQL resource query.
func NewPostgresResourceQuery(pool *pgxpool.Pool) *PostgresResourceQuery {
	return &PostgresResourceQuery{pool: pool}
}

// ActiveResources returns all active resources.
func (q *PostgresResourceQuery) ActiveResources(ctx context.Context) ([]domain.Resource, error) {
	rows, err := q.pool.Query(ctx, `SELECT id, name, capacity, active FROM resources WHERE active ORDER BY name`)
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
func (q *PostgresResourceQuery) OverlappingUsage(ctx context.Context, from, to time.Time) (map[uuid.UUID]int, error) {
	query := `
		SELECT resource_id, COALESCE(SUM(party_size), 0)
		FROM bookings
		WHERE resource_id IS NOT NULL AND start_time < $1 AND end_time > $2
		GROUP BY resource_id
	`
	rows, err := q.pool.Query(ctx, query, to, from)
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

// PostgresInvoiceQuery implements domain.InvoiceQuery on pgx.
type PostgresInvoiceQuery struct {
	pool *pgxpool.Pool
}

// NewPostgresInvoiceQuery creates a PostgreSQL invoice query.
func NewPostgresInvoiceQuery(pool *pgxpool.Pool) *PostgresInvoiceQuery {
	return &PostgresInvoiceQuery{pool: pool}
}

// OpenForPastBookings returns open invoices whose booking ended before asOf.
func (q *PostgresInvoiceQuery) OpenForPastBookings(ctx context.Context, asOf time.Time, limit int) ([]domain.Invoice, error) {
	query := `
		SELECT i.id, i.booking_id, i.number, i.customer_name, i.customer_email,
			i.amount_cents, i.currency, i.issued_at, i.due_date, i.status
		FROM invoices i
		JOIN bookings b ON b.id = i.booking_id
		WHERE i.status = 'open' AND b.end_time < $1
		ORDER BY b.end_time ASC
		LIMIT $2
	`
	rows, err := q.pool.Query(ctx, query, asOf, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPgInvoices(rows)
}

// OverdueAsOf returns sent invoices past their due date.
func (q *PostgresInvoiceQuery) OverdueAsOf(ctx context.Context, asOf time.Time, limit int) ([]domain.Invoice, error) {
	query := `
		SELECT id, booking_id, number, customer_name, customer_email,
			amount_cents, currency, issued_at, due_date, status
		FROM invoices
		WHERE status = 'sent' AND due_date IS NOT NULL AND due_date < $1
		ORDER BY due_date ASC
		LIMIT $2
	`
	rows, err := q.pool.Query(ctx, query, asOf, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPgInvoices(rows)
}

// PostgresStatsQuery implements domain.StatsQuery on pgx.
type PostgresStatsQuery struct {
	pool *pgxpool.Pool
}

// NewPostgresStatsQuery creates a PostgreSQL stats query.
func NewPostgresStatsQuery(pool *pgxpool.Pool) *PostgresStatsQuery {
	return &PostgresStatsQuery{pool: pool}
}

// Snapshot aggregates bookings and revenue over [from, to).
func (q *PostgresStatsQuery) Snapshot(ctx context.Context, from, to time.Time) (domain.Stats, error) {
	stats := domain.Stats{From: from, To: to}

	err := q.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(party_size), 0), COALESCE(SUM(CASE WHEN paid THEN 0 ELSE 1 END), 0)
		FROM bookings
		WHERE start_time >= $1 AND start_time < $2
	`, from, to).Scan(&stats.BookingCount, &stats.GuestCount, &stats.UnpaidCount)
	if err != nil {
		return domain.Stats{}, err
	}

	err = q.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(i.amount_cents), 0)
		FROM invoices i
		JOIN bookings b ON b.id = i.booking_id
		WHERE i.status = 'paid' AND b.start_time >= $1 AND b.start_time < $2
	`, from, to).Scan(&stats.RevenueCents)
	if err != nil {
		return domain.Stats{}, err
	}

	return stats, nil
}

func scanPgBookings(rows pgx.Rows) ([]domain.Booking, error) {
	var bookings []domain.Booking
	for rows.Next() {
		var b domain.Booking
		var idStr string
		var resourceID *string
		if err := rows.Scan(&idStr, &b.CustomerName, &b.CustomerEmail, &b.ServiceName, &b.PartySize, &b.StartTime, &b.EndTime, &b.Paid, &resourceID); err != nil {
			return nil, err
		}

		var err error
		if b.ID, err = uuid.Parse(idStr); err != nil {
			return nil, err
		}
		if resourceID != nil {
			rid, err := uuid.Parse(*resourceID)
			if err != nil {
				return nil, err
			}
			b.ResourceID = &rid
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func scanPgInvoices(rows pgx.Rows) ([]domain.Invoice, error) {
	var invoices []domain.Invoice
	for rows.Next() {
		var inv domain.Invoice
		var idStr, bookingIDStr, status string
		if err := rows.Scan(&idStr, &bookingIDStr, &inv.Number, &inv.CustomerName, &inv.CustomerEmail, &inv.AmountCents, &inv.Currency, &inv.IssuedAt, &inv.DueDate, &status); err != nil {
			return nil, err
		}

		var err error
		if inv.ID, err = uuid.Parse(idStr); err != nil {
			return nil, err
		}
		if inv.BookingID, err = uuid.Parse(bookingIDStr); err != nil {
			return nil, err
		}
		inv.Status = domain.InvoiceStatus(status)
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}
