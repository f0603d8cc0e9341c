package hr

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - calendar date without a time of day
// =============================================================================

const dateLayout = "2006-01-02"

// Date is a calendar date. The zero value is "no date".
type Date struct {
	t time.Time
}

// Constructors
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t as observed in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	y, m, d := t.In(loc).Date()
	return NewDate(y, m, d)
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, &ValidationError{Field: "date", Message: fmt.Sprintf("invalid date %q", s)}
	}
	return NewDate(t.Date()), nil
}

func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Comparison
func (d Date) Before(o Date) bool        { return d.t.Before(o.t) }
func (d Date) After(o Date) bool         { return d.t.After(o.t) }
func (d Date) Equal(o Date) bool         { return d.t.Equal(o.t) }
func (d Date) BeforeOrEqual(o Date) bool { return !d.After(o) }
func (d Date) AfterOrEqual(o Date) bool  { return !d.Before(o) }

// Arithmetic
func (d Date) AddDays(n int) Date   { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{t: d.t.AddDate(0, n, 0)} }

// Properties
func (d Date) Year() int             { return d.t.Year() }
func (d Date) Month() time.Month     { return d.t.Month() }
func (d Date) Day() int              { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) IsZero() bool          { return d.t.IsZero() }
func (d Date) Time() time.Time       { return d.t }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(dateLayout)
}

// At combines the date with a time of day in loc.
func (d Date) At(c ClockTime, loc *time.Location) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), 0, 0, loc)
}

func (d Date) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DaysBetween returns to - from in whole days.
func DaysBetween(from, to Date) int {
	return int(to.t.Sub(from.t).Hours() / 24)
}

// =============================================================================
// CLOCK TIME - time of day used by work schedules
// =============================================================================

// ClockTime is a time of day expressed as minutes since midnight.
type ClockTime int

func NewClockTime(hour, minute int) ClockTime {
	return ClockTime(hour*60 + minute)
}

// ParseClockTime accepts "15:04" and "15:04:05" (seconds are dropped).
func ParseClockTime(s string) (ClockTime, error) {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return NewClockTime(t.Hour(), t.Minute()), nil
		}
	}
	return 0, &ValidationError{Field: "time", Message: fmt.Sprintf("invalid time of day %q", s)}
}

func MustParseClockTime(s string) ClockTime {
	c, err := ParseClockTime(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c ClockTime) Hour() int   { return int(c) / 60 }
func (c ClockTime) Minute() int { return int(c) % 60 }

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

func (c ClockTime) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *ClockTime) UnmarshalText(b []byte) error {
	parsed, err := ParseClockTime(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// =============================================================================
// SCHEDULE - fixed daily work schedule
// =============================================================================

type Schedule struct {
	Start       ClockTime
	End         ClockTime
	DaysPerWeek int
}

// DefaultSchedule is 09:00-17:00, five days a week.
func DefaultSchedule() Schedule {
	return Schedule{Start: NewClockTime(9, 0), End: NewClockTime(17, 0), DaysPerWeek: 5}
}

func (s Schedule) Validate() error {
	if s.Start < 0 || s.Start >= 24*60 {
		return &ValidationError{Field: "work_start_time", Message: "must be within the day"}
	}
	if s.End < 0 || s.End >= 24*60 {
		return &ValidationError{Field: "work_end_time", Message: "must be within the day"}
	}
	if s.Start == s.End {
		return &ValidationError{Field: "work_end_time", Message: "must differ from work_start_time"}
	}
	if s.DaysPerWeek < 1 || s.DaysPerWeek > 7 {
		return &ValidationError{Field: "work_days_per_week", Message: "must be between 1 and 7"}
	}
	return nil
}

// DailyHours is the scheduled length of one working day.
func (s Schedule) DailyHours() time.Duration {
	return DailyScheduledHours(s.Start, s.End)
}

// DailyScheduledHours returns the duration between start and end. An end
// before the start is an overnight shift and wraps past midnight.
func DailyScheduledHours(start, end ClockTime) time.Duration {
	d := time.Duration(end-start) * time.Minute
	if end < start {
		d += 24 * time.Hour
	}
	return d
}

// DefaultGracePeriod is the tolerance after the scheduled start before a
// check-in counts as late.
const DefaultGracePeriod = 15 * time.Minute

// IsLate reports whether checkIn falls strictly after the scheduled start of
// date plus grace. The scheduled start is evaluated in loc.
func IsLate(checkIn time.Time, date Date, start ClockTime, grace time.Duration, loc *time.Location) bool {
	return checkIn.After(ScheduledStart(date, start, loc).Add(grace))
}

// ScheduledStart is the instant the work day on date begins.
func ScheduledStart(date Date, start ClockTime, loc *time.Location) time.Time {
	return date.At(start, loc)
}

// =============================================================================
// CLOCK - injected source of "now"
// =============================================================================

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns T.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }

// Today is the calendar date of clock.Now() in loc.
func Today(clock Clock, loc *time.Location) Date {
	return DateOf(clock.Now(), loc)
}
