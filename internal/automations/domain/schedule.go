package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidSchedule marks a malformed schedule specification. Rules
// carrying one are skipped at runtime with a logged failure rather
// than crashing the runner.
var ErrInvalidSchedule = errors.New("invalid schedule")

// ScheduleKind discriminates the schedule variants.
type ScheduleKind string

const (
	ScheduleMinutely ScheduleKind = "minutely"
	ScheduleHourly   ScheduleKind = "hourly"
	ScheduleDaily    ScheduleKind = "daily"
	ScheduleWeekly   ScheduleKind = "weekly"
	ScheduleMonthly  ScheduleKind = "monthly"
)

// TimeOfDay is a wall-clock time in the reference timezone.
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

func (t TimeOfDay) valid() bool {
	return t.Hour >= 0 && t.Hour <= 23 && t.Minute >= 0 && t.Minute <= 59
}

// Schedule is a tagged recurrence specification. Only the fields of
// the active kind are meaningful; the constructors keep illegal
// combinations unrepresentable.
type Schedule struct {
	Kind ScheduleKind `json:"kind"`

	// Minutely
	IntervalMinutes int `json:"interval_minutes,omitempty"`

	// Hourly
	MinuteOfHour int `json:"minute_of_hour,omitempty"`

	// Daily, Weekly, Monthly
	At TimeOfDay `json:"at,omitempty"`

	// Weekly
	Weekday time.Weekday `json:"weekday,omitempty"`

	// Monthly. Clamped to 1-28 to avoid short-month ambiguity.
	DayOfMonth int `json:"day_of_month,omitempty"`
}

// MinutelySchedule fires every interval minutes.
func MinutelySchedule(intervalMinutes int) (Schedule, error) {
	s := Schedule{Kind: ScheduleMinutely, IntervalMinutes: intervalMinutes}
	return s, s.Validate()
}

// HourlySchedule fires at the given minute of every hour.
func HourlySchedule(minuteOfHour int) (Schedule, error) {
	s := Schedule{Kind: ScheduleHourly, MinuteOfHour: minuteOfHour}
	return s, s.Validate()
}

// DailySchedule fires every day at the given time.
func DailySchedule(hour, minute int) (Schedule, error) {
	s := Schedule{Kind: ScheduleDaily, At: TimeOfDay{Hour: hour, Minute: minute}}
	return s, s.Validate()
}

// WeeklySchedule fires on the given weekday at the given time.
func WeeklySchedule(weekday time.Weekday, hour, minute int) (Schedule, error) {
	s := Schedule{Kind: ScheduleWeekly, Weekday: weekday, At: TimeOfDay{Hour: hour, Minute: minute}}
	return s, s.Validate()
}

// MonthlySchedule fires on the given day of month (1-28) at the given time.
func MonthlySchedule(dayOfMonth, hour, minute int) (Schedule, error) {
	s := Schedule{Kind: ScheduleMonthly, DayOfMonth: dayOfMonth, At: TimeOfDay{Hour: hour, Minute: minute}}
	return s, s.Validate()
}

// Validate checks the schedule for illegal field values.
func (s Schedule) Validate() error {
	switch s.Kind {
	case ScheduleMinutely:
		if s.IntervalMinutes < 1 {
			return fmt.Errorf("%w: interval must be at least 1 minute", ErrInvalidSchedule)
		}
	case ScheduleHourly:
		if s.MinuteOfHour < 0 || s.MinuteOfHour > 59 {
			return fmt.Errorf("%w: minute of hour %d out of range", ErrInvalidSchedule, s.MinuteOfHour)
		}
	case ScheduleDaily:
		if !s.At.valid() {
			return fmt.Errorf("%w: time of day %02d:%02d out of range", ErrInvalidSchedule, s.At.Hour, s.At.Minute)
		}
	case ScheduleWeekly:
		if s.Weekday < time.Sunday || s.Weekday > time.Saturday {
			return fmt.Errorf("%w: weekday %d out of range", ErrInvalidSchedule, s.Weekday)
		}
		if !s.At.valid() {
			return fmt.Errorf("%w: time of day %02d:%02d out of range", ErrInvalidSchedule, s.At.Hour, s.At.Minute)
		}
	case ScheduleMonthly:
		if s.DayOfMonth < 1 || s.DayOfMonth > 28 {
			return fmt.Errorf("%w: day of month %d out of range (1-28)", ErrInvalidSchedule, s.DayOfMonth)
		}
		if !s.At.valid() {
			return fmt.Errorf("%w: time of day %02d:%02d out of range", ErrInvalidSchedule, s.At.Hour, s.At.Minute)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidSchedule, s.Kind)
	}
	return nil
}

// NextRunAfter computes the next due timestamp strictly after now, in
// the reference timezone loc. If lastRunAt lies in the future the
// computation starts there instead.
func (s Schedule) NextRunAfter(lastRunAt *time.Time, now time.Time, loc *time.Location) (time.Time, error) {
	if err := s.Validate(); err != nil {
		return time.Time{}, err
	}

	base := now
	if lastRunAt != nil && lastRunAt.After(base) {
		base = *lastRunAt
	}
	base = base.In(loc)

	switch s.Kind {
	case ScheduleMinutely:
		interval := time.Duration(s.IntervalMinutes) * time.Minute
		return base.Truncate(interval).Add(interval), nil

	case ScheduleHourly:
		candidate := time.Date(base.Year(), base.Month(), base.Day(), base.Hour(), s.MinuteOfHour, 0, 0, loc)
		if !candidate.After(base) {
			candidate = candidate.Add(time.Hour)
		}
		return candidate, nil

	case ScheduleDaily:
		candidate := time.Date(base.Year(), base.Month(), base.Day(), s.At.Hour, s.At.Minute, 0, 0, loc)
		if !candidate.After(base) {
			candidate = time.Date(base.Year(), base.Month(), base.Day()+1, s.At.Hour, s.At.Minute, 0, 0, loc)
		}
		return candidate, nil

	case ScheduleWeekly:
		offset := (int(s.Weekday) - int(base.Weekday()) + 7) % 7
		candidate := time.Date(base.Year(), base.Month(), base.Day()+offset, s.At.Hour, s.At.Minute, 0, 0, loc)
		if !candidate.After(base) {
			candidate = time.Date(base.Year(), base.Month(), base.Day()+offset+7, s.At.Hour, s.At.Minute, 0, 0, loc)
		}
		return candidate, nil

	case ScheduleMonthly:
		candidate := time.Date(base.Year(), base.Month(), s.DayOfMonth, s.At.Hour, s.At.Minute, 0, 0, loc)
		if !candidate.After(base) {
			candidate = time.Date(base.Year(), base.Month()+1, s.DayOfMonth, s.At.Hour, s.At.Minute, 0, 0, loc)
		}
		return candidate, nil
	}

	return time.Time{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidSchedule, s.Kind)
}
