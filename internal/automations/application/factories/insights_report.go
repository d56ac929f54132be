package factories

import (
	"context"
	"fmt"
	"time"

	"github.com/bookhive/bookhive/internal/automations/domain"
	bookingDomain "github.com/bookhive/bookhive/internal/booking/domain"
)

// InsightsReportFactory emails an aggregate business summary covering
// the seven days before now. Params: recipient (required), limit is
// ignored; the report is always a single draft.
type InsightsReportFactory struct {
	stats bookingDomain.StatsQuery
	loc   *time.Location
}

// NewInsightsReportFactory creates the insights report factory.
func NewInsightsReportFactory(stats bookingDomain.StatsQuery, loc *time.Location) *InsightsReportFactory {
	return &InsightsReportFactory{stats: stats, loc: loc}
}

// RuleType returns the rule type.
func (f *InsightsReportFactory) RuleType() string {
	return RuleTypeInsightsReport
}

// Propose drafts the weekly report. The idempotency key buckets by ISO
// week, so re-running within the same week proposes nothing new.
func (f *InsightsReportFactory) Propose(ctx context.Context, rule domain.RuleView, now time.Time) ([]Draft, error) {
	recipient := rule.StringParam("recipient", "")
	if recipient == "" {
		return nil, fmt.Errorf("rule %s: recipient param is required", rule.ID)
	}

	from := now.Add(-7 * 24 * time.Hour)
	stats, err := f.stats.Snapshot(ctx, from, now)
	if err != nil {
		return nil, fmt.Errorf("querying booking stats: %w", err)
	}

	bucket := weekBucket(now, f.loc)
	return []Draft{{
		ActionType:     domain.ActionTypeEmail,
		IdempotencyKey: idempotencyKey(rule.ID, "insights", bucket),
		InputSnapshot: map[string]any{
			"from":          stats.From.Format(time.RFC3339),
			"to":            stats.To.Format(time.RFC3339),
			"booking_count": stats.BookingCount,
			"guest_count":   stats.GuestCount,
			"unpaid_count":  stats.UnpaidCount,
			"revenue_cents": stats.RevenueCents,
		},
		OutputPayload: map[string]any{
			"to":      recipient,
			"subject": fmt.Sprintf("Weekly insights %s", bucket),
			"body": fmt.Sprintf(
				"Weekly summary %s to %s\n\n"+
					"Bookings: %d\nGuests: %d\nUnpaid bookings: %d\nRevenue: %.2f\n",
				from.In(f.loc).Format("2 Jan"), now.In(f.loc).Format("2 Jan 2006"),
				stats.BookingCount, stats.GuestCount, stats.UnpaidCount,
				float64(stats.RevenueCents)/100,
			),
		},
	}}, nil
}
