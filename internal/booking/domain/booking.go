// Package domain contains the booking read models and the narrow
// collaborator contracts the automation engine consumes. The engine
// never mutates bookings except through the ResourceAssigner.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrBookingNotFound  = errors.New("booking not found")
	ErrResourceNotFound = errors.New("resource not found")
	ErrCapacityExceeded = errors.New("resource capacity exceeded")
	ErrAlreadyAssigned  = errors.New("booking already has a resource assigned")
)

// Booking is a read model of one reservation.
type Booking struct {
	ID            uuid.UUID
	CustomerName  string
	CustomerEmail string
	ServiceName   string
	PartySize     int
	StartTime     time.Time
	EndTime       time.Time
	Paid          bool
	ResourceID    *uuid.UUID
}

// Resource is a bookable resource (room, table, court) with a fixed
// seat capacity.
type Resource struct {
	ID       uuid.UUID
	Name     string
	Capacity int
	Active   bool
}

// InvoiceStatus is the lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusOpen    InvoiceStatus = "open"
	InvoiceStatusSent    InvoiceStatus = "sent"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusOverdue InvoiceStatus = "overdue"
)

// Invoice is a read model of one invoice.
type Invoice struct {
	ID            uuid.UUID
	BookingID     uuid.UUID
	Number        string
	CustomerName  string
	CustomerEmail string
	AmountCents   int64
	Currency      string
	IssuedAt      *time.Time
	DueDate       *time.Time
	Status        InvoiceStatus
}

// BookingQuery is the read-only booking lookup used by action factories.
type BookingQuery interface {
	// UnpaidStartingBetween returns unpaid bookings whose start time
	// falls in [from, to), oldest first.
	UnpaidStartingBetween(ctx context.Context, from, to time.Time, limit int) ([]Booking, error)

	// UnassignedBetween returns bookings in [from, to) with no
	// resource assigned, earliest start first.
	UnassignedBetween(ctx context.Context, from, to time.Time, limit int) ([]Booking, error)
}

// ResourceQuery is the read-only resource lookup used by the room
// assignment factory.
type ResourceQuery interface {
	// ActiveResources returns all active resources.
	ActiveResources(ctx context.Context) ([]Resource, error)

	// OverlappingUsage returns, per resource, the summed party size of
	// bookings overlapping [from, to).
	OverlappingUsage(ctx context.Context, from, to time.Time) (map[uuid.UUID]int, error)
}

// InvoiceQuery is the read-only invoice lookup used by action factories.
type InvoiceQuery interface {
	// OpenForPastBookings returns open invoices whose booking already
	// ended before asOf.
	OpenForPastBookings(ctx context.Context, asOf time.Time, limit int) ([]Invoice, error)

	// OverdueAsOf returns sent invoices past their due date.
	OverdueAsOf(ctx context.Context, asOf time.Time, limit int) ([]Invoice, error)
}

// StatsQuery supplies aggregate numbers for insight reports.
type StatsQuery interface {
	Snapshot(ctx context.Context, from, to time.Time) (Stats, error)
}

// Stats is an aggregate over one reporting period.
type Stats struct {
	From         time.Time
	To           time.Time
	BookingCount int
	GuestCount   int
	UnpaidCount  int
	RevenueCents int64
}

// ResourceAssigner commits a resource assignment. Implementations must
// re-validate capacity at commit time; the allocator's view may be
// stale by the time an approved action executes.
type ResourceAssigner interface {
	Assign(ctx context.Context, bookingID, resourceID uuid.UUID) error
}
