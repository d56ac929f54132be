package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var berlin = mustLoadLocation("Europe/Berlin")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func TestScheduleConstructorsValidate(t *testing.T) {
	tests := []struct {
		name    string
		build   func() (Schedule, error)
		wantErr bool
	}{
		{"minutely ok", func() (Schedule, error) { return MinutelySchedule(15) }, false},
		{"minutely zero interval", func() (Schedule, error) { return MinutelySchedule(0) }, true},
		{"hourly ok", func() (Schedule, error) { return HourlySchedule(30) }, false},
		{"hourly minute out of range", func() (Schedule, error) { return HourlySchedule(60) }, true},
		{"daily ok", func() (Schedule, error) { return DailySchedule(9, 0) }, false},
		{"daily bad hour", func() (Schedule, error) { return DailySchedule(24, 0) }, true},
		{"weekly ok", func() (Schedule, error) { return WeeklySchedule(time.Monday, 8, 30) }, false},
		{"monthly ok", func() (Schedule, error) { return MonthlySchedule(28, 0, 0) }, false},
		{"monthly day 29 rejected", func() (Schedule, error) { return MonthlySchedule(29, 0, 0) }, true},
		{"monthly day 0 rejected", func() (Schedule, error) { return MonthlySchedule(0, 0, 0) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSchedule)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNextRunAfterMinutely(t *testing.T) {
	s, err := MinutelySchedule(15)
	require.NoError(t, err)

	now := time.Date(2026, 5, 4, 10, 7, 12, 0, time.UTC)
	next, err := s.NextRunAfter(nil, now, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 4, 10, 15, 0, 0, time.UTC), next)

	// Exactly on a boundary: next boundary is strictly after.
	onBoundary := time.Date(2026, 5, 4, 10, 15, 0, 0, time.UTC)
	next, err = s.NextRunAfter(nil, onBoundary, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC), next)
}

func TestNextRunAfterHourly(t *testing.T) {
	s, err := HourlySchedule(45)
	require.NoError(t, err)

	now := time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)
	next, err := s.NextRunAfter(nil, now, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 4, 10, 45, 0, 0, time.UTC), next)

	// Past this hour's minute: rolls to the next hour.
	now = time.Date(2026, 5, 4, 10, 50, 0, 0, time.UTC)
	next, err = s.NextRunAfter(nil, now, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 4, 11, 45, 0, 0, time.UTC), next)
}

func TestNextRunAfterDaily(t *testing.T) {
	s, err := DailySchedule(9, 0)
	require.NoError(t, err)

	// Before 09:00: today.
	now := time.Date(2026, 5, 4, 8, 59, 0, 0, berlin)
	next, err := s.NextRunAfter(nil, now, berlin)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 4, 9, 0, 0, 0, berlin), next)

	// Exactly 09:00: tomorrow (strictly after now).
	now = time.Date(2026, 5, 4, 9, 0, 0, 0, berlin)
	next, err = s.NextRunAfter(nil, now, berlin)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 5, 9, 0, 0, 0, berlin), next)
}

func TestNextRunAfterWeekly(t *testing.T) {
	s, err := WeeklySchedule(time.Monday, 8, 0)
	require.NoError(t, err)

	// 2026-05-04 is a Monday.
	monday7 := time.Date(2026, 5, 4, 7, 0, 0, 0, time.UTC)
	next, err := s.NextRunAfter(nil, monday7, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC), next)

	// Monday after the slot: next Monday.
	monday9 := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	next, err = s.NextRunAfter(nil, monday9, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 11, 8, 0, 0, 0, time.UTC), next)

	// Mid-week: upcoming Monday.
	wednesday := time.Date(2026, 5, 6, 12, 0, 0, 0, time.UTC)
	next, err = s.NextRunAfter(nil, wednesday, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 11, 8, 0, 0, 0, time.UTC), next)
}

func TestNextRunAfterMonthly(t *testing.T) {
	s, err := MonthlySchedule(28, 6, 0)
	require.NoError(t, err)

	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	next, err := s.NextRunAfter(nil, now, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 28, 6, 0, 0, 0, time.UTC), next)

	// After February's slot: March, same clamped day.
	now = time.Date(2026, 2, 28, 6, 0, 0, 0, time.UTC)
	next, err = s.NextRunAfter(nil, now, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 28, 6, 0, 0, 0, time.UTC), next)
}

func TestNextRunAfterDefensiveFutureLastRun(t *testing.T) {
	s, err := DailySchedule(9, 0)
	require.NoError(t, err)

	now := time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)
	futureLast := time.Date(2026, 5, 6, 10, 0, 0, 0, time.UTC)
	next, err := s.NextRunAfter(&futureLast, now, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 7, 9, 0, 0, 0, time.UTC), next)
}

func TestNextRunAfterIsDeterministicAndStrictlyAfterNow(t *testing.T) {
	schedules := []Schedule{
		{Kind: ScheduleMinutely, IntervalMinutes: 5},
		{Kind: ScheduleHourly, MinuteOfHour: 15},
		{Kind: ScheduleDaily, At: TimeOfDay{Hour: 9, Minute: 0}},
		{Kind: ScheduleWeekly, Weekday: time.Friday, At: TimeOfDay{Hour: 17, Minute: 30}},
		{Kind: ScheduleMonthly, DayOfMonth: 1, At: TimeOfDay{Hour: 0, Minute: 5}},
	}
	nows := []time.Time{
		time.Date(2026, 1, 1, 0, 0, 0, 0, berlin),
		time.Date(2026, 6, 15, 23, 59, 59, 0, berlin),
		time.Date(2026, 12, 31, 12, 0, 0, 0, berlin),
	}

	for _, s := range schedules {
		for _, now := range nows {
			first, err := s.NextRunAfter(nil, now, berlin)
			require.NoError(t, err)
			second, err := s.NextRunAfter(nil, now, berlin)
			require.NoError(t, err)

			assert.Equal(t, first, second, "kind %s at %s", s.Kind, now)
			assert.True(t, first.After(now), "kind %s: %s is not after %s", s.Kind, first, now)
		}
	}
}

func TestNextRunAfterRejectsMalformedSchedule(t *testing.T) {
	bad := Schedule{Kind: "fortnightly"}
	_, err := bad.NextRunAfter(nil, time.Now(), time.UTC)
	assert.ErrorIs(t, err, ErrInvalidSchedule)
}
