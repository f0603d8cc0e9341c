package hr_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/workforce-engine/hr"
)

// =============================================================================
// SCHEDULED HOURS
// =============================================================================

func TestDailyScheduledHours(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
		want  time.Duration
	}{
		{"regular day", "09:00", "17:00", 8 * time.Hour},
		{"half hour shift", "08:30", "12:00", 3*time.Hour + 30*time.Minute},
		{"overnight shift wraps past midnight", "22:00", "06:00", 8 * time.Hour},
		{"equal start and end is zero", "09:00", "09:00", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := hr.DailyScheduledHours(hr.MustParseClockTime(tt.start), hr.MustParseClockTime(tt.end))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseClockTime_AcceptsSeconds(t *testing.T) {
	c, err := hr.ParseClockTime("09:15:59")
	require.NoError(t, err)
	assert.Equal(t, "09:15", c.String())

	_, err = hr.ParseClockTime("9am")
	assert.ErrorIs(t, err, hr.ErrValidation)
}

// =============================================================================
// LATENESS
// =============================================================================

func TestIsLate_GraceBoundary(t *testing.T) {
	// GIVEN: Schedule starts at 09:00 with a 15 minute grace period
	// WHEN: Checking in exactly at 09:15 and at 09:15:01
	// THEN: Only the later check-in is late

	date := hr.NewDate(2025, time.March, 10)
	start := hr.NewClockTime(9, 0)
	loc := time.UTC

	atBoundary := time.Date(2025, time.March, 10, 9, 15, 0, 0, loc)
	justAfter := atBoundary.Add(time.Second)

	assert.False(t, hr.IsLate(atBoundary, date, start, hr.DefaultGracePeriod, loc))
	assert.True(t, hr.IsLate(justAfter, date, start, hr.DefaultGracePeriod, loc))
}

func TestIsLate_UsesConfiguredZone(t *testing.T) {
	// GIVEN: System zone is UTC+2 and the schedule starts at 09:00 local
	// WHEN: Checking in at 07:30 UTC (09:30 local)
	// THEN: The check-in is late

	loc := time.FixedZone("UTC+2", 2*60*60)
	date := hr.NewDate(2025, time.June, 2)
	checkIn := time.Date(2025, time.June, 2, 7, 30, 0, 0, time.UTC)

	assert.True(t, hr.IsLate(checkIn, date, hr.NewClockTime(9, 0), hr.DefaultGracePeriod, loc))
	assert.False(t, hr.IsLate(checkIn, date, hr.NewClockTime(9, 0), hr.DefaultGracePeriod, time.FixedZone("UTC-1", -60*60)))
}

// =============================================================================
// DATES
// =============================================================================

func TestDate_ArithmeticAndParsing(t *testing.T) {
	d := hr.MustParseDate("2024-02-28")

	assert.Equal(t, "2024-02-29", d.AddDays(1).String())
	assert.Equal(t, "2024-03-01", d.AddDays(2).String())
	assert.Equal(t, 2, hr.DaysBetween(d, d.AddDays(2)))
	assert.True(t, d.Before(d.AddDays(1)))
	assert.True(t, d.Equal(hr.NewDate(2024, time.February, 28)))

	_, err := hr.ParseDate("2024-13-01")
	assert.ErrorIs(t, err, hr.ErrValidation)
}

func TestDateOf_ObservesZone(t *testing.T) {
	instant := time.Date(2025, time.January, 1, 23, 30, 0, 0, time.UTC)
	tokyo := time.FixedZone("JST", 9*60*60)

	assert.Equal(t, "2025-01-01", hr.DateOf(instant, time.UTC).String())
	assert.Equal(t, "2025-01-02", hr.DateOf(instant, tokyo).String())
	assert.Equal(t, "2025-01-02", hr.Today(hr.FixedClock{T: instant}, tokyo).String())
}

func TestDate_TextRoundTrip(t *testing.T) {
	var d hr.Date
	require.NoError(t, d.UnmarshalText([]byte("2025-07-04")))
	b, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "2025-07-04", string(b))
}

func TestSchedule_Validate(t *testing.T) {
	assert.NoError(t, hr.DefaultSchedule().Validate())

	s := hr.DefaultSchedule()
	s.DaysPerWeek = 8
	assert.ErrorIs(t, s.Validate(), hr.ErrValidation)

	s.DaysPerWeek = 0
	assert.ErrorIs(t, s.Validate(), hr.ErrValidation)

	// Overnight is fine, zero length is not
	night := hr.Schedule{Start: hr.NewClockTime(22, 0), End: hr.NewClockTime(6, 0), DaysPerWeek: 5}
	assert.NoError(t, night.Validate())

	empty := hr.Schedule{Start: hr.NewClockTime(9, 0), End: hr.NewClockTime(9, 0), DaysPerWeek: 5}
	var verr *hr.ValidationError
	require.ErrorAs(t, empty.Validate(), &verr)
	assert.Equal(t, "work_end_time", verr.Field)
}
