package factories

import (
	"context"
	"fmt"
	"time"

	"github.com/bookhive/bookhive/internal/automations/domain"
	bookingDomain "github.com/bookhive/bookhive/internal/booking/domain"
)

// InvoiceSendFactory emails open invoices for bookings that have
// already taken place. Params: limit.
type InvoiceSendFactory struct {
	invoices bookingDomain.InvoiceQuery
	loc      *time.Location
}

// NewInvoiceSendFactory creates the invoice send factory.
func NewInvoiceSendFactory(invoices bookingDomain.InvoiceQuery, loc *time.Location) *InvoiceSendFactory {
	return &InvoiceSendFactory{invoices: invoices, loc: loc}
}

// RuleType returns the rule type.
func (f *InvoiceSendFactory) RuleType() string {
	return RuleTypeInvoiceSend
}

// Propose drafts one email per open invoice whose booking is in the
// past.
func (f *InvoiceSendFactory) Propose(ctx context.Context, rule domain.RuleView, now time.Time) ([]Draft, error) {
	invoices, err := f.invoices.OpenForPastBookings(ctx, now, limitFor(rule))
	if err != nil {
		return nil, fmt.Errorf("querying open invoices: %w", err)
	}

	bucket := dayBucket(now, f.loc)
	drafts := make([]Draft, 0, len(invoices))
	for _, inv := range invoices {
		if inv.CustomerEmail == "" {
			continue
		}
		drafts = append(drafts, Draft{
			ActionType:     domain.ActionTypeEmail,
			IdempotencyKey: idempotencyKey(rule.ID, inv.ID.String(), bucket),
			InputSnapshot: map[string]any{
				"invoice_id":     inv.ID.String(),
				"invoice_number": inv.Number,
				"booking_id":     inv.BookingID.String(),
				"amount_cents":   inv.AmountCents,
				"currency":       inv.Currency,
				"status":         string(inv.Status),
			},
			OutputPayload: map[string]any{
				"to":      inv.CustomerEmail,
				"subject": fmt.Sprintf("Invoice %s", inv.Number),
				"body": fmt.Sprintf(
					"Hi %s,\n\nPlease find invoice %s for your recent visit. "+
						"Amount due: %s %.2f.\n\nThank you!",
					inv.CustomerName, inv.Number, inv.Currency, float64(inv.AmountCents)/100,
				),
			},
		})
	}
	return drafts, nil
}
