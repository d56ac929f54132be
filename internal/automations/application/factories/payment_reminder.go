package factories

import (
	"context"
	"fmt"
	"time"

	"github.com/bookhive/bookhive/internal/automations/domain"
	bookingDomain "github.com/bookhive/bookhive/internal/booking/domain"
)

// PaymentReminderFactory emails customers whose upcoming booking is
// still unpaid. Params: days_before (horizon, default 3), limit.
type PaymentReminderFactory struct {
	bookings bookingDomain.BookingQuery
	loc      *time.Location
}

// NewPaymentReminderFactory creates the payment reminder factory.
func NewPaymentReminderFactory(bookings bookingDomain.BookingQuery, loc *time.Location) *PaymentReminderFactory {
	return &PaymentReminderFactory{bookings: bookings, loc: loc}
}

// RuleType returns the rule type.
func (f *PaymentReminderFactory) RuleType() string {
	return RuleTypePaymentReminder
}

// Propose drafts one reminder email per unpaid booking starting within
// the rule's horizon.
func (f *PaymentReminderFactory) Propose(ctx context.Context, rule domain.RuleView, now time.Time) ([]Draft, error) {
	daysBefore := rule.IntParam("days_before", 3)
	if daysBefore <= 0 {
		daysBefore = 3
	}
	horizon := now.Add(time.Duration(daysBefore) * 24 * time.Hour)

	bookings, err := f.bookings.UnpaidStartingBetween(ctx, now, horizon, limitFor(rule))
	if err != nil {
		return nil, fmt.Errorf("querying unpaid bookings: %w", err)
	}

	bucket := dayBucket(now, f.loc)
	drafts := make([]Draft, 0, len(bookings))
	for _, b := range bookings {
		if b.CustomerEmail == "" {
			continue
		}
		start := b.StartTime.In(f.loc)
		drafts = append(drafts, Draft{
			ActionType:     domain.ActionTypeEmail,
			IdempotencyKey: idempotencyKey(rule.ID, b.ID.String(), bucket),
			InputSnapshot: map[string]any{
				"booking_id":    b.ID.String(),
				"customer_name": b.CustomerName,
				"start_time":    b.StartTime.Format(time.RFC3339),
				"paid":          b.Paid,
			},
			OutputPayload: map[string]any{
				"to":      b.CustomerEmail,
				"subject": fmt.Sprintf("Payment reminder for your %s booking", b.ServiceName),
				"body": fmt.Sprintf(
					"Hi %s,\n\nYour booking for %s on %s is still awaiting payment. "+
						"Please settle it before your visit.\n\nThank you!",
					b.CustomerName, b.ServiceName, start.Format("Monday, 2 January 2006 at 15:04"),
				),
			},
		})
	}
	return drafts, nil
}
