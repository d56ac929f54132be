package factories

import (
	"context"
	"fmt"
	"time"

	"github.com/bookhive/bookhive/internal/automations/domain"
	bookingDomain "github.com/bookhive/bookhive/internal/booking/domain"
)

// OverdueReminderFactory emails customers whose sent invoice is past
// its due date. Params: limit.
type OverdueReminderFactory struct {
	invoices bookingDomain.InvoiceQuery
	loc      *time.Location
}

// NewOverdueReminderFactory creates the overdue reminder factory.
func NewOverdueReminderFactory(invoices bookingDomain.InvoiceQuery, loc *time.Location) *OverdueReminderFactory {
	return &OverdueReminderFactory{invoices: invoices, loc: loc}
}

// RuleType returns the rule type.
func (f *OverdueReminderFactory) RuleType() string {
	return RuleTypeOverdueReminder
}

// Propose drafts one chaser email per overdue invoice.
func (f *OverdueReminderFactory) Propose(ctx context.Context, rule domain.RuleView, now time.Time) ([]Draft, error) {
	invoices, err := f.invoices.OverdueAsOf(ctx, now, limitFor(rule))
	if err != nil {
		return nil, fmt.Errorf("querying overdue invoices: %w", err)
	}

	bucket := dayBucket(now, f.loc)
	drafts := make([]Draft, 0, len(invoices))
	for _, inv := range invoices {
		if inv.CustomerEmail == "" {
			continue
		}
		snapshot := map[string]any{
			"invoice_id":     inv.ID.String(),
			"invoice_number": inv.Number,
			"amount_cents":   inv.AmountCents,
			"currency":       inv.Currency,
		}
		due := "recently"
		if inv.DueDate != nil {
			due = inv.DueDate.In(f.loc).Format("2 January 2006")
			snapshot["due_date"] = inv.DueDate.Format(time.RFC3339)
		}
		drafts = append(drafts, Draft{
			ActionType:     domain.ActionTypeEmail,
			IdempotencyKey: idempotencyKey(rule.ID, inv.ID.String(), bucket),
			InputSnapshot:  snapshot,
			OutputPayload: map[string]any{
				"to":      inv.CustomerEmail,
				"subject": fmt.Sprintf("Payment overdue: invoice %s", inv.Number),
				"body": fmt.Sprintf(
					"Hi %s,\n\nInvoice %s was due on %s and is still unpaid. "+
						"Please arrange payment at your earliest convenience.\n\nThank you!",
					inv.CustomerName, inv.Number, due,
				),
			},
		})
	}
	return drafts, nil
}
