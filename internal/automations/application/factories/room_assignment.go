package factories

import (
	"context"
	"fmt"
	"time"

	allocDomain "github.com/bookhive/bookhive/internal/allocation/domain"
	"github.com/bookhive/bookhive/internal/automations/domain"
	bookingDomain "github.com/bookhive/bookhive/internal/booking/domain"
)

// RoomAssignmentFactory proposes a resource for each unassigned
// booking in the lookahead window, using the best-fit allocator.
// Params: days_ahead (default 7), limit.
//
// The top-ranked candidate becomes the action payload; the full ranked
// list is kept in the input snapshot so a reviewer can see what the
// allocator considered.
type RoomAssignmentFactory struct {
	bookings  bookingDomain.BookingQuery
	resources bookingDomain.ResourceQuery
	loc       *time.Location
}

// NewRoomAssignmentFactory creates the room assignment factory.
func NewRoomAssignmentFactory(
	bookings bookingDomain.BookingQuery,
	resources bookingDomain.ResourceQuery,
	loc *time.Location,
) *RoomAssignmentFactory {
	return &RoomAssignmentFactory{bookings: bookings, resources: resources, loc: loc}
}

// RuleType returns the rule type.
func (f *RoomAssignmentFactory) RuleType() string {
	return RuleTypeRoomAssignment
}

// Propose drafts one assignment per unassigned booking that has at
// least one feasible resource. Bookings with no feasible resource are
// skipped silently; no capacity is an expected outcome.
func (f *RoomAssignmentFactory) Propose(ctx context.Context, rule domain.RuleView, now time.Time) ([]Draft, error) {
	daysAhead := rule.IntParam("days_ahead", 7)
	if daysAhead <= 0 {
		daysAhead = 7
	}
	horizon := now.Add(time.Duration(daysAhead) * 24 * time.Hour)

	unassigned, err := f.bookings.UnassignedBetween(ctx, now, horizon, limitFor(rule))
	if err != nil {
		return nil, fmt.Errorf("querying unassigned bookings: %w", err)
	}
	if len(unassigned) == 0 {
		return []Draft{}, nil
	}

	active, err := f.resources.ActiveResources(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying resources: %w", err)
	}
	pool := make([]allocDomain.Resource, 0, len(active))
	for _, r := range active {
		pool = append(pool, allocDomain.Resource{ID: r.ID, Name: r.Name, Capacity: r.Capacity})
	}

	bucket := dayBucket(now, f.loc)
	drafts := make([]Draft, 0, len(unassigned))
	for _, b := range unassigned {
		window, err := allocDomain.NewWindow(b.StartTime, b.EndTime)
		if err != nil {
			continue
		}
		usage, err := f.resources.OverlappingUsage(ctx, b.StartTime, b.EndTime)
		if err != nil {
			return nil, fmt.Errorf("querying overlapping usage: %w", err)
		}

		candidates := allocDomain.BestFit(window, b.PartySize, pool, usage)
		if len(candidates) == 0 {
			continue
		}

		ranked := make([]map[string]any, 0, len(candidates))
		for _, c := range candidates {
			ranked = append(ranked, map[string]any{
				"resource_id": c.ResourceID.String(),
				"name":        c.Name,
				"leftover":    c.Leftover,
			})
		}

		top := candidates[0]
		drafts = append(drafts, Draft{
			ActionType:     domain.ActionTypeResourceAssignment,
			IdempotencyKey: idempotencyKey(rule.ID, b.ID.String(), bucket),
			InputSnapshot: map[string]any{
				"booking_id":       b.ID.String(),
				"party_size":       b.PartySize,
				"start_time":       b.StartTime.Format(time.RFC3339),
				"end_time":         b.EndTime.Format(time.RFC3339),
				"duration_minutes": int(window.Duration().Minutes()),
				"candidates":       ranked,
			},
			OutputPayload: map[string]any{
				"booking_id":    b.ID.String(),
				"resource_id":   top.ResourceID.String(),
				"resource_name": top.Name,
			},
		})
	}
	return drafts, nil
}
