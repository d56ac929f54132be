package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/bookhive/bookhive/internal/booking/domain"
	"github.com/bookhive/bookhive/internal/shared/infrastructure/database/sqlite"
	"github.com/bookhive/bookhive/internal/shared/infrastructure/migrations"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, migrations.RunSQLiteMigrations(context.Background(), db))
	return db
}

func insertResource(t *testing.T, db *sql.DB, name string, capacity int) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := db.Exec(`INSERT INTO resources (id, name, capacity, active) VALUES (?, ?, ?, 1)`,
		id.String(), name, capacity)
	require.NoError(t, err)
	return id
}

func insertBooking(t *testing.T, db *sql.DB, email string, party int, start, end time.Time, paid bool, resourceID *uuid.UUID) uuid.UUID {
	t.Helper()
	id := uuid.New()
	var rid any
	if resourceID != nil {
		rid = resourceID.String()
	}
	paidInt := 0
	if paid {
		paidInt = 1
	}
	_, err := db.Exec(`
		INSERT INTO bookings (id, customer_name, customer_email, service_name, party_size, start_time, end_time, paid, resource_id)
		VALUES (?, ?, ?, 'dinner', ?, ?, ?, ?, ?)
	`, id.String(), "Guest", email, party,
		start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339), paidInt, rid)
	require.NoError(t, err)
	return id
}

func TestSQLiteBookingQuery(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	q := NewSQLiteBookingQuery(db)

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	inWindow := insertBooking(t, db, "a@example.com", 2, now.Add(24*time.Hour), now.Add(26*time.Hour), false, nil)
	insertBooking(t, db, "b@example.com", 2, now.Add(24*time.Hour), now.Add(26*time.Hour), true, nil)    // paid
	insertBooking(t, db, "c@example.com", 2, now.Add(200*time.Hour), now.Add(202*time.Hour), false, nil) // outside window

	unpaid, err := q.UnpaidStartingBetween(ctx, now, now.Add(72*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, unpaid, 1)
	assert.Equal(t, inWindow, unpaid[0].ID)
	assert.False(t, unpaid[0].Paid)

	unassigned, err := q.UnassignedBetween(ctx, now, now.Add(72*time.Hour), 10)
	require.NoError(t, err)
	assert.Len(t, unassigned, 2, "paid but unassigned bookings still need a room")
}

func TestSQLiteResourceQueryOverlappingUsage(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	q := NewSQLiteResourceQuery(db)

	room := insertResource(t, db, "Terrace", 8)
	start := time.Date(2026, 3, 11, 18, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)

	insertBooking(t, db, "a@example.com", 3, start, end, true, &room)
	// Adjacent booking: half-open windows do not overlap.
	insertBooking(t, db, "b@example.com", 4, end, end.Add(2*time.Hour), true, &room)

	usage, err := q.OverlappingUsage(ctx, start, end)
	require.NoError(t, err)
	assert.Equal(t, 3, usage[room])
}

func TestSQLiteResourceAssigner(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	assigner := NewSQLiteResourceAssigner(db)

	start := time.Date(2026, 3, 11, 18, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	room := insertResource(t, db, "Alcove", 4)

	t.Run("assigns when capacity allows", func(t *testing.T) {
		booking := insertBooking(t, db, "a@example.com", 2, start, end, true, nil)
		require.NoError(t, assigner.Assign(ctx, booking, room))

		var got string
		require.NoError(t, db.QueryRow(`SELECT resource_id FROM bookings WHERE id = ?`, booking.String()).Scan(&got))
		assert.Equal(t, room.String(), got)
	})

	t.Run("re-validates capacity at commit time", func(t *testing.T) {
		// Room already holds a party of 2; another 3 will not fit in 4 seats.
		booking := insertBooking(t, db, "b@example.com", 3, start, end, true, nil)
		err := assigner.Assign(ctx, booking, room)
		require.ErrorIs(t, err, domain.ErrCapacityExceeded)
	})

	t.Run("rejects double assignment", func(t *testing.T) {
		other := insertResource(t, db, "Terrace", 8)
		booking := insertBooking(t, db, "c@example.com", 1, start, end, true, &other)
		err := assigner.Assign(ctx, booking, room)
		require.ErrorIs(t, err, domain.ErrAlreadyAssigned)
	})

	t.Run("unknown booking and resource", func(t *testing.T) {
		require.ErrorIs(t, assigner.Assign(ctx, uuid.New(), room), domain.ErrBookingNotFound)

		booking := insertBooking(t, db, "d@example.com", 1, start, end, true, nil)
		require.ErrorIs(t, assigner.Assign(ctx, booking, uuid.New()), domain.ErrResourceNotFound)
	})
}

func TestSQLiteStatsQuerySnapshot(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	q := NewSQLiteStatsQuery(db)

	from := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	to := from.Add(7 * 24 * time.Hour)

	paid := insertBooking(t, db, "a@example.com", 4, from.Add(24*time.Hour), from.Add(26*time.Hour), true, nil)
	insertBooking(t, db, "b@example.com", 2, from.Add(48*time.Hour), from.Add(50*time.Hour), false, nil)
	insertBooking(t, db, "c@example.com", 9, to.Add(time.Hour), to.Add(3*time.Hour), false, nil) // outside period

	_, err := db.Exec(`
		INSERT INTO invoices (id, booking_id, number, customer_name, customer_email, amount_cents, currency, status)
		VALUES (?, ?, 'INV-1', 'Guest', 'a@example.com', 15000, 'EUR', 'paid')
	`, uuid.New().String(), paid.String())
	require.NoError(t, err)

	stats, err := q.Snapshot(ctx, from, to)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.BookingCount)
	assert.Equal(t, 6, stats.GuestCount)
	assert.Equal(t, 1, stats.UnpaidCount)
	assert.Equal(t, int64(15000), stats.RevenueCents)
}
