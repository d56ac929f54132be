package rule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bookhive/bookhive/adapter/cli"
	"github.com/bookhive/bookhive/internal/automations/domain"
	"github.com/spf13/cobra"
)

var (
	createType     string
	createMinutely int
	createHourly   int
	createDaily    string
	createWeekly   string
	createMonthly  string
	createParams   []string
)

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create an automation rule",
	Long: `Create an automation rule with a recurrence schedule.

Exactly one schedule flag must be given.

Examples:
  bookhive rule create "Chase payments" --type payment_reminder --daily 09:00
  bookhive rule create "Weekly digest" --type insights_report --weekly mon@08:00 --param recipient=owner@example.com
  bookhive rule create "Assign rooms" --type room_assignment_proposal --minutely 30
  bookhive rule create "Send invoices" --type invoice_send --monthly 1@07:30`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := cli.GetContainer()
		if c == nil {
			fmt.Println("Rule management requires a database connection.")
			return nil
		}

		schedule, err := scheduleFromFlags()
		if err != nil {
			return err
		}

		rule, err := domain.NewRule(args[0], createType, schedule, time.Now())
		if err != nil {
			return err
		}
		for _, kv := range createParams {
			key, value, ok := strings.Cut(kv, "=")
			if !ok {
				return fmt.Errorf("invalid --param %q, expected key=value", kv)
			}
			if n, err := strconv.Atoi(value); err == nil {
				rule.Params[key] = n
			} else {
				rule.Params[key] = value
			}
		}

		if err := c.Rules.Create(cmd.Context(), rule); err != nil {
			return fmt.Errorf("failed to create rule: %w", err)
		}

		fmt.Printf("Created rule %s (%s)\n", rule.ID, rule.Name)
		fmt.Printf("  Schedule: %s\n", describeSchedule(rule.Schedule))
		return nil
	},
}

func scheduleFromFlags() (domain.Schedule, error) {
	set := 0
	for _, given := range []bool{createMinutely > 0, createHourly >= 0, createDaily != "", createWeekly != "", createMonthly != ""} {
		if given {
			set++
		}
	}
	if set != 1 {
		return domain.Schedule{}, fmt.Errorf("exactly one of --minutely, --hourly, --daily, --weekly, --monthly is required")
	}

	switch {
	case createMinutely > 0:
		return domain.MinutelySchedule(createMinutely)
	case createHourly >= 0:
		return domain.HourlySchedule(createHourly)
	case createDaily != "":
		hour, minute, err := parseClock(createDaily)
		if err != nil {
			return domain.Schedule{}, err
		}
		return domain.DailySchedule(hour, minute)
	case createWeekly != "":
		dayPart, clockPart, ok := strings.Cut(createWeekly, "@")
		if !ok {
			return domain.Schedule{}, fmt.Errorf("invalid --weekly %q, expected weekday@HH:MM", createWeekly)
		}
		weekday, err := parseWeekday(dayPart)
		if err != nil {
			return domain.Schedule{}, err
		}
		hour, minute, err := parseClock(clockPart)
		if err != nil {
			return domain.Schedule{}, err
		}
		return domain.WeeklySchedule(weekday, hour, minute)
	default:
		dayPart, clockPart, ok := strings.Cut(createMonthly, "@")
		if !ok {
			return domain.Schedule{}, fmt.Errorf("invalid --monthly %q, expected day@HH:MM", createMonthly)
		}
		day, err := strconv.Atoi(dayPart)
		if err != nil {
			return domain.Schedule{}, fmt.Errorf("invalid day of month %q", dayPart)
		}
		hour, minute, err := parseClock(clockPart)
		if err != nil {
			return domain.Schedule{}, err
		}
		return domain.MonthlySchedule(day, hour, minute)
	}
}

func parseClock(s string) (hour, minute int, err error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	if hour, err = strconv.Atoi(hh); err != nil {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	if minute, err = strconv.Atoi(mm); err != nil {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	return hour, minute, nil
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

func parseWeekday(s string) (time.Weekday, error) {
	day, ok := weekdays[strings.ToLower(s)[:min(3, len(s))]]
	if !ok {
		return 0, fmt.Errorf("invalid weekday %q", s)
	}
	return day, nil
}

func describeSchedule(s domain.Schedule) string {
	switch s.Kind {
	case domain.ScheduleMinutely:
		return fmt.Sprintf("every %dm", s.IntervalMinutes)
	case domain.ScheduleHourly:
		return fmt.Sprintf("hourly at :%02d", s.MinuteOfHour)
	case domain.ScheduleDaily:
		return fmt.Sprintf("daily %02d:%02d", s.At.Hour, s.At.Minute)
	case domain.ScheduleWeekly:
		return fmt.Sprintf("%s %02d:%02d", s.Weekday.String()[:3], s.At.Hour, s.At.Minute)
	case domain.ScheduleMonthly:
		return fmt.Sprintf("monthly %d at %02d:%02d", s.DayOfMonth, s.At.Hour, s.At.Minute)
	default:
		return string(s.Kind)
	}
}

func init() {
	createCmd.Flags().StringVarP(&createType, "type", "t", "", "rule type (payment_reminder, invoice_send, overdue_reminder, insights_report, room_assignment_proposal)")
	createCmd.Flags().IntVar(&createMinutely, "minutely", 0, "run every N minutes")
	createCmd.Flags().IntVar(&createHourly, "hourly", -1, "run every hour at the given minute")
	createCmd.Flags().StringVar(&createDaily, "daily", "", "run daily at HH:MM")
	createCmd.Flags().StringVar(&createWeekly, "weekly", "", "run weekly at weekday@HH:MM")
	createCmd.Flags().StringVar(&createMonthly, "monthly", "", "run monthly at day@HH:MM (day 1-28)")
	createCmd.Flags().StringSliceVar(&createParams, "param", nil, "rule parameter key=value (repeatable)")
	_ = createCmd.MarkFlagRequired("type")
}
