package attendance_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/workforce-engine/attendance"
	"github.com/warp/workforce-engine/hr"
	"github.com/warp/workforce-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var clerk = hr.Actor{UserID: "hr-1", Role: hr.RoleHR}

func newTestRecorder(t *testing.T) (*attendance.Recorder, *sqlite.Store, *hr.MemorySink) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	now := time.Date(2025, time.March, 10, 18, 0, 0, 0, time.UTC)
	require.NoError(t, store.InsertEmployee(context.Background(), &hr.Employee{
		ID:         "EMP001",
		UserID:     "u1",
		Status:     hr.EmployeeActive,
		HireDate:   hr.MustParseDate("2024-01-01"),
		BaseSalary: hr.MustDecimal("60000"),
		Schedule:   hr.DefaultSchedule(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}))

	sink := &hr.MemorySink{}
	rec := attendance.NewRecorder(store, hr.DefaultGracePeriod, hr.Runtime{
		Clock:  hr.FixedClock{T: now},
		Events: sink,
		Audit:  store,
	})
	return rec, store, sink
}

func at(hour, minute int) *time.Time {
	t := time.Date(2025, time.March, 10, hour, minute, 0, 0, time.UTC)
	return &t
}

var march10 = hr.NewDate(2025, time.March, 10)

// =============================================================================
// COMPUTE
// =============================================================================

func TestCompute_Scenarios(t *testing.T) {
	tests := []struct {
		name     string
		in, out  *time.Time
		work     string
		overtime string
		late     bool
	}{
		{"regular day", at(9, 0), at(17, 0), "8.00", "0.00", false},
		{"overtime day", at(9, 0), at(18, 30), "8.00", "1.50", false},
		{"late arrival", at(9, 30), at(17, 0), "7.50", "0.00", true},
		{"only check-in", at(9, 0), nil, "0.00", "0.00", false},
		{"nothing recorded", nil, nil, "0.00", "0.00", false},
		{"within grace", at(9, 15), at(17, 15), "8.00", "0.00", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			att := &hr.Attendance{Date: march10, CheckIn: tt.in, CheckOut: tt.out}
			require.NoError(t, attendance.Compute(att, hr.DefaultSchedule(), hr.DefaultGracePeriod, time.UTC))

			assert.Equal(t, tt.work, att.WorkHours.StringFixed(2))
			assert.Equal(t, tt.overtime, att.OvertimeHours.StringFixed(2))
			assert.Equal(t, tt.late, att.IsLate)
		})
	}
}

func TestCompute_WorkPlusOvertimeEqualsRaw(t *testing.T) {
	att := &hr.Attendance{Date: march10, CheckIn: at(8, 10), CheckOut: at(19, 40)}
	require.NoError(t, attendance.Compute(att, hr.DefaultSchedule(), hr.DefaultGracePeriod, time.UTC))

	assert.Equal(t, "11.5", att.WorkHours.Add(att.OvertimeHours).String())
	assert.True(t, att.WorkHours.LessThanOrEqual(hr.MustDecimal("8")))
}

func TestCompute_CheckOutBeforeCheckInRejected(t *testing.T) {
	att := &hr.Attendance{Date: march10, CheckIn: at(9, 0), CheckOut: at(9, 0)}
	err := attendance.Compute(att, hr.DefaultSchedule(), hr.DefaultGracePeriod, time.UTC)

	var verr *hr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "check_out", verr.Field)
}

func TestCompute_OvernightSchedule(t *testing.T) {
	// GIVEN: A 22:00-06:00 schedule (8 scheduled hours)
	// WHEN: Working 22:00 to 07:00 the next morning
	// THEN: 8 work hours and 1 overtime hour

	schedule := hr.Schedule{Start: hr.NewClockTime(22, 0), End: hr.NewClockTime(6, 0), DaysPerWeek: 5}
	in := time.Date(2025, time.March, 10, 22, 0, 0, 0, time.UTC)
	out := in.Add(9 * time.Hour)
	att := &hr.Attendance{Date: march10, CheckIn: &in, CheckOut: &out}

	require.NoError(t, attendance.Compute(att, schedule, hr.DefaultGracePeriod, time.UTC))
	assert.Equal(t, "8.00", att.WorkHours.StringFixed(2))
	assert.Equal(t, "1.00", att.OvertimeHours.StringFixed(2))
	assert.False(t, att.IsLate)
}

// =============================================================================
// RECORDER
// =============================================================================

func TestRecord_PersistsDerivedFieldsAndEmitsLate(t *testing.T) {
	rec, store, sink := newTestRecorder(t)
	ctx := context.Background()

	att, err := rec.Record(ctx, clerk, attendance.RecordInput{
		EmployeeID: "EMP001", Date: march10, CheckIn: at(9, 40), CheckOut: at(18, 40),
	})
	require.NoError(t, err)
	assert.True(t, att.IsLate)
	assert.Equal(t, "8.00", att.WorkHours.StringFixed(2))
	assert.Equal(t, "1.00", att.OvertimeHours.StringFixed(2))

	stored, err := store.GetAttendance(ctx, "EMP001", march10)
	require.NoError(t, err)
	assert.True(t, stored.IsLate)
	assert.Equal(t, []string{"attendance.late_check_in"}, sink.Names())
}

func TestRecord_DuplicateDayRejected(t *testing.T) {
	// GIVEN: EMP001 already has a record on March 10
	// WHEN: Recording March 10 again
	// THEN: DuplicateRecordError; the original record is untouched

	rec, store, _ := newTestRecorder(t)
	ctx := context.Background()

	_, err := rec.Record(ctx, clerk, attendance.RecordInput{EmployeeID: "EMP001", Date: march10, CheckIn: at(9, 0)})
	require.NoError(t, err)

	_, err = rec.Record(ctx, clerk, attendance.RecordInput{EmployeeID: "EMP001", Date: march10, CheckIn: at(10, 0)})
	var dup *hr.DuplicateRecordError
	require.ErrorAs(t, err, &dup)

	stored, err := store.GetAttendance(ctx, "EMP001", march10)
	require.NoError(t, err)
	assert.True(t, stored.CheckIn.Equal(*at(9, 0)))
}

func TestRecord_ConcurrentDuplicates_ExactlyOneWins(t *testing.T) {
	rec, _, _ := newTestRecorder(t)
	ctx := context.Background()

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		dupes     int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := rec.Record(ctx, clerk, attendance.RecordInput{EmployeeID: "EMP001", Date: march10, CheckIn: at(9, 0)})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if assert.ErrorIs(t, err, hr.ErrDuplicateRecord) {
				dupes++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, dupes)
}

func TestUpdate_RecomputesOnSave(t *testing.T) {
	rec, _, _ := newTestRecorder(t)
	ctx := context.Background()

	_, err := rec.Record(ctx, clerk, attendance.RecordInput{EmployeeID: "EMP001", Date: march10, CheckIn: at(9, 0)})
	require.NoError(t, err)

	att, err := rec.Update(ctx, clerk, "EMP001", march10, attendance.UpdateInput{SetCheckOut: true, CheckOut: at(19, 0)})
	require.NoError(t, err)
	assert.Equal(t, "8.00", att.WorkHours.StringFixed(2))
	assert.Equal(t, "2.00", att.OvertimeHours.StringFixed(2))

	// Clearing the check-out zeroes the hours again
	att, err = rec.Update(ctx, clerk, "EMP001", march10, attendance.UpdateInput{SetCheckOut: true})
	require.NoError(t, err)
	assert.True(t, att.WorkHours.IsZero())
	assert.True(t, att.OvertimeHours.IsZero())
}

func TestRecord_UnknownEmployee(t *testing.T) {
	rec, _, _ := newTestRecorder(t)
	_, err := rec.Record(context.Background(), clerk, attendance.RecordInput{EmployeeID: "EMP404", Date: march10})
	assert.ErrorIs(t, err, hr.ErrNotFound)
}

func TestRecord_EmployeeMayOnlyRecordSelf(t *testing.T) {
	rec, _, _ := newTestRecorder(t)
	ctx := context.Background()

	other := hr.Actor{UserID: "u2", Role: hr.RoleEmployee, EmployeeID: "EMP002"}
	_, err := rec.Record(ctx, other, attendance.RecordInput{EmployeeID: "EMP001", Date: march10})
	assert.ErrorIs(t, err, hr.ErrPermissionDenied)

	self := hr.Actor{UserID: "u1", Role: hr.RoleEmployee, EmployeeID: "EMP001"}
	_, err = rec.Record(ctx, self, attendance.RecordInput{EmployeeID: "EMP001", Date: march10, CheckIn: at(8, 55)})
	assert.NoError(t, err)
}

func TestSummary(t *testing.T) {
	rec, _, _ := newTestRecorder(t)
	ctx := context.Background()

	inputs := []attendance.RecordInput{
		{EmployeeID: "EMP001", Date: march10, CheckIn: at(9, 0), CheckOut: at(17, 0)},
		{EmployeeID: "EMP001", Date: march10.AddDays(1), IsAbsent: true},
		{EmployeeID: "EMP001", Date: march10.AddDays(2), CheckIn: ptr(at(9, 45).AddDate(0, 0, 2)), CheckOut: ptr(at(17, 0).AddDate(0, 0, 2))},
	}
	for _, in := range inputs {
		_, err := rec.Record(ctx, clerk, in)
		require.NoError(t, err)
	}

	s, err := rec.Summary(ctx, clerk, "EMP001", hr.Period{Start: march10, End: march10.AddDays(6)})
	require.NoError(t, err)
	assert.Equal(t, 3, s.TotalDays)
	assert.Equal(t, 2, s.PresentDays)
	assert.Equal(t, 1, s.LateDays)
	assert.Equal(t, 1, s.AbsentDays)
	assert.Equal(t, "66.67", s.AttendanceRate.StringFixed(2))
	assert.Equal(t, "15.25", s.WorkHours.StringFixed(2))
}

func ptr(t time.Time) *time.Time { return &t }
