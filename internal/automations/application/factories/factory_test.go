package factories

import (
	"context"
	"testing"
	"time"

	"github.com/bookhive/bookhive/internal/automations/domain"
	bookingDomain "github.com/bookhive/bookhive/internal/booking/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBookingQuery struct {
	unpaid     []bookingDomain.Booking
	unassigned []bookingDomain.Booking
}

func (q *fakeBookingQuery) UnpaidStartingBetween(_ context.Context, _, _ time.Time, limit int) ([]bookingDomain.Booking, error) {
	if limit < len(q.unpaid) {
		return q.unpaid[:limit], nil
	}
	return q.unpaid, nil
}

func (q *fakeBookingQuery) UnassignedBetween(_ context.Context, _, _ time.Time, limit int) ([]bookingDomain.Booking, error) {
	if limit < len(q.unassigned) {
		return q.unassigned[:limit], nil
	}
	return q.unassigned, nil
}

type fakeResourceQuery struct {
	resources []bookingDomain.Resource
	usage     map[uuid.UUID]int
}

func (q *fakeResourceQuery) ActiveResources(_ context.Context) ([]bookingDomain.Resource, error) {
	return q.resources, nil
}

func (q *fakeResourceQuery) OverlappingUsage(_ context.Context, _, _ time.Time) (map[uuid.UUID]int, error) {
	return q.usage, nil
}

type fakeInvoiceQuery struct {
	open    []bookingDomain.Invoice
	overdue []bookingDomain.Invoice
}

func (q *fakeInvoiceQuery) OpenForPastBookings(_ context.Context, _ time.Time, _ int) ([]bookingDomain.Invoice, error) {
	return q.open, nil
}

func (q *fakeInvoiceQuery) OverdueAsOf(_ context.Context, _ time.Time, _ int) ([]bookingDomain.Invoice, error) {
	return q.overdue, nil
}

type fakeStatsQuery struct {
	stats bookingDomain.Stats
}

func (q *fakeStatsQuery) Snapshot(_ context.Context, from, to time.Time) (bookingDomain.Stats, error) {
	s := q.stats
	s.From = from
	s.To = to
	return s, nil
}

func viewFor(t *testing.T, ruleType string, params map[string]any) domain.RuleView {
	t.Helper()
	schedule, err := domain.DailySchedule(9, 0)
	require.NoError(t, err)
	rule, err := domain.NewRule("test rule", ruleType, schedule, time.Now())
	require.NoError(t, err)
	for k, v := range params {
		rule.Params[k] = v
	}
	return rule.View()
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	registry.Register(NewPaymentReminderFactory(&fakeBookingQuery{}, time.UTC))

	f, err := registry.Lookup(RuleTypePaymentReminder)
	require.NoError(t, err)
	assert.Equal(t, RuleTypePaymentReminder, f.RuleType())

	_, err = registry.Lookup("no_such_type")
	require.ErrorIs(t, err, ErrUnknownRuleType)
}

func TestPaymentReminderFactory(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	booking := bookingDomain.Booking{
		ID:            uuid.New(),
		CustomerName:  "Ada",
		CustomerEmail: "ada@example.com",
		ServiceName:   "dinner",
		PartySize:     2,
		StartTime:     now.Add(24 * time.Hour),
		EndTime:       now.Add(26 * time.Hour),
	}
	noEmail := booking
	noEmail.ID = uuid.New()
	noEmail.CustomerEmail = ""

	factory := NewPaymentReminderFactory(&fakeBookingQuery{unpaid: []bookingDomain.Booking{booking, noEmail}}, time.UTC)
	view := viewFor(t, RuleTypePaymentReminder, nil)

	drafts, err := factory.Propose(ctx, view, now)
	require.NoError(t, err)
	require.Len(t, drafts, 1, "bookings without an email address are skipped")

	draft := drafts[0]
	assert.Equal(t, domain.ActionTypeEmail, draft.ActionType)
	assert.Equal(t, view.ID.String()+":"+booking.ID.String()+":2026-03-10", draft.IdempotencyKey)
	assert.Equal(t, "ada@example.com", draft.OutputPayload["to"])
	assert.Contains(t, draft.OutputPayload["subject"], "dinner")
	assert.Equal(t, booking.ID.String(), draft.InputSnapshot["booking_id"])

	// Same tick, same targets: identical keys.
	again, err := factory.Propose(ctx, view, now)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, draft.IdempotencyKey, again[0].IdempotencyKey)
}

func TestPaymentReminderFactoryRespectsLimit(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	var unpaid []bookingDomain.Booking
	for i := 0; i < 5; i++ {
		unpaid = append(unpaid, bookingDomain.Booking{
			ID:            uuid.New(),
			CustomerEmail: "guest@example.com",
			StartTime:     now.Add(24 * time.Hour),
			EndTime:       now.Add(25 * time.Hour),
		})
	}

	factory := NewPaymentReminderFactory(&fakeBookingQuery{unpaid: unpaid}, time.UTC)
	view := viewFor(t, RuleTypePaymentReminder, map[string]any{"limit": 2})

	drafts, err := factory.Propose(context.Background(), view, now)
	require.NoError(t, err)
	assert.Len(t, drafts, 2)
}

func TestInvoiceSendFactory(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	invoice := bookingDomain.Invoice{
		ID:            uuid.New(),
		BookingID:     uuid.New(),
		Number:        "INV-0042",
		CustomerName:  "Ada",
		CustomerEmail: "ada@example.com",
		AmountCents:   12550,
		Currency:      "EUR",
		Status:        bookingDomain.InvoiceStatusOpen,
	}

	factory := NewInvoiceSendFactory(&fakeInvoiceQuery{open: []bookingDomain.Invoice{invoice}}, time.UTC)
	view := viewFor(t, RuleTypeInvoiceSend, nil)

	drafts, err := factory.Propose(context.Background(), view, now)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Contains(t, drafts[0].OutputPayload["subject"], "INV-0042")
	assert.Contains(t, drafts[0].OutputPayload["body"], "125.50")
}

func TestOverdueReminderFactory(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	due := now.Add(-10 * 24 * time.Hour)
	invoice := bookingDomain.Invoice{
		ID:            uuid.New(),
		Number:        "INV-0007",
		CustomerName:  "Grace",
		CustomerEmail: "grace@example.com",
		DueDate:       &due,
		Status:        bookingDomain.InvoiceStatusOverdue,
	}

	factory := NewOverdueReminderFactory(&fakeInvoiceQuery{overdue: []bookingDomain.Invoice{invoice}}, time.UTC)
	view := viewFor(t, RuleTypeOverdueReminder, nil)

	drafts, err := factory.Propose(context.Background(), view, now)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Contains(t, drafts[0].OutputPayload["subject"], "overdue")
	assert.Contains(t, drafts[0].OutputPayload["body"], "28 February 2026")
}

func TestInsightsReportFactory(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	stats := &fakeStatsQuery{stats: bookingDomain.Stats{
		BookingCount: 12,
		GuestCount:   38,
		UnpaidCount:  3,
		RevenueCents: 250000,
	}}
	factory := NewInsightsReportFactory(stats, time.UTC)

	t.Run("drafts one report keyed by iso week", func(t *testing.T) {
		view := viewFor(t, RuleTypeInsightsReport, map[string]any{"recipient": "owner@example.com"})

		drafts, err := factory.Propose(context.Background(), view, now)
		require.NoError(t, err)
		require.Len(t, drafts, 1)
		assert.Equal(t, view.ID.String()+":insights:2026-W11", drafts[0].IdempotencyKey)
		assert.Equal(t, "owner@example.com", drafts[0].OutputPayload["to"])
		assert.Equal(t, 12, drafts[0].InputSnapshot["booking_count"])
	})

	t.Run("missing recipient is a configuration error", func(t *testing.T) {
		view := viewFor(t, RuleTypeInsightsReport, nil)
		_, err := factory.Propose(context.Background(), view, now)
		require.Error(t, err)
	})
}

func TestRoomAssignmentFactory(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	small := bookingDomain.Resource{ID: uuid.New(), Name: "Alcove", Capacity: 2, Active: true}
	large := bookingDomain.Resource{ID: uuid.New(), Name: "Ballroom", Capacity: 10, Active: true}

	booking := bookingDomain.Booking{
		ID:        uuid.New(),
		PartySize: 2,
		StartTime: now.Add(24 * time.Hour),
		EndTime:   now.Add(26 * time.Hour),
	}

	t.Run("proposes the tightest fit and keeps the ranked list", func(t *testing.T) {
		factory := NewRoomAssignmentFactory(
			&fakeBookingQuery{unassigned: []bookingDomain.Booking{booking}},
			&fakeResourceQuery{resources: []bookingDomain.Resource{large, small}},
			time.UTC,
		)
		view := viewFor(t, RuleTypeRoomAssignment, nil)

		drafts, err := factory.Propose(ctx, view, now)
		require.NoError(t, err)
		require.Len(t, drafts, 1)

		draft := drafts[0]
		assert.Equal(t, domain.ActionTypeResourceAssignment, draft.ActionType)
		assert.Equal(t, small.ID.String(), draft.OutputPayload["resource_id"])
		assert.Equal(t, "Alcove", draft.OutputPayload["resource_name"])

		ranked, ok := draft.InputSnapshot["candidates"].([]map[string]any)
		require.True(t, ok)
		require.Len(t, ranked, 2)
		assert.Equal(t, "Alcove", ranked[0]["name"])
		assert.Equal(t, "Ballroom", ranked[1]["name"])
		assert.Equal(t, 120, draft.InputSnapshot["duration_minutes"])
	})

	t.Run("no feasible resource skips the booking", func(t *testing.T) {
		crowd := booking
		crowd.ID = uuid.New()
		crowd.PartySize = 50

		factory := NewRoomAssignmentFactory(
			&fakeBookingQuery{unassigned: []bookingDomain.Booking{crowd}},
			&fakeResourceQuery{resources: []bookingDomain.Resource{small, large}},
			time.UTC,
		)
		view := viewFor(t, RuleTypeRoomAssignment, nil)

		drafts, err := factory.Propose(ctx, view, now)
		require.NoError(t, err)
		assert.Empty(t, drafts)
	})

	t.Run("existing usage changes the ranking", func(t *testing.T) {
		factory := NewRoomAssignmentFactory(
			&fakeBookingQuery{unassigned: []bookingDomain.Booking{booking}},
			&fakeResourceQuery{
				resources: []bookingDomain.Resource{small, large},
				usage:     map[uuid.UUID]int{small.ID: 1},
			},
			time.UTC,
		)
		view := viewFor(t, RuleTypeRoomAssignment, nil)

		drafts, err := factory.Propose(ctx, view, now)
		require.NoError(t, err)
		require.Len(t, drafts, 1)
		assert.Equal(t, large.ID.String(), drafts[0].OutputPayload["resource_id"], "partially used room no longer fits a party of two")
	})
}
