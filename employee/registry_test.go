package employee_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/workforce-engine/employee"
	"github.com/warp/workforce-engine/hr"
	"github.com/warp/workforce-engine/store/sqlite"
)

var hrActor = hr.Actor{UserID: "hr-1", Role: hr.RoleHR}

func newTestRegistry(t *testing.T) (*employee.Registry, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	clock := hr.FixedClock{T: time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)}
	return employee.NewRegistry(store, hr.Runtime{Clock: clock, Audit: store}), store
}

func baseInput(userID string) employee.CreateInput {
	return employee.CreateInput{
		UserID:       userID,
		FirstName:    "Grace",
		LastName:     "Hopper",
		HireDate:     hr.MustParseDate("2024-06-01"),
		BaseSalary:   hr.MustDecimal("52000"),
		VacationDays: 15,
	}
}

func TestCreate_AssignsSequentialIDs(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	first, err := reg.Create(ctx, hrActor, baseInput("u1"))
	require.NoError(t, err)
	second, err := reg.Create(ctx, hrActor, baseInput("u2"))
	require.NoError(t, err)

	assert.Equal(t, "EMP001", first.ID)
	assert.Equal(t, "EMP002", second.ID)
	assert.Equal(t, hr.EmployeeActive, first.Status)
	assert.Equal(t, hr.DefaultSchedule(), first.Schedule)
}

func TestCreate_ContinuesFromHighestNumber(t *testing.T) {
	// GIVEN: EMP999 already exists
	// WHEN: A new employee is created
	// THEN: The id keeps growing past three digits

	reg, store := newTestRegistry(t)
	ctx := context.Background()

	emp := &hr.Employee{
		ID: "EMP999", UserID: "legacy", Status: hr.EmployeeActive,
		HireDate: hr.MustParseDate("2020-01-01"), BaseSalary: hr.MustDecimal("1"), Schedule: hr.DefaultSchedule(),
	}
	require.NoError(t, store.InsertEmployee(ctx, emp))

	created, err := reg.Create(ctx, hrActor, baseInput("u1"))
	require.NoError(t, err)
	assert.Equal(t, "EMP1000", created.ID)
}

func TestCreate_Validation(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		mut   func(*employee.CreateInput)
		field string
	}{
		{"termination before hire", func(in *employee.CreateInput) { in.TerminationDate = hr.MustParseDate("2024-05-31") }, "termination_date"},
		{"probation before hire", func(in *employee.CreateInput) { in.ProbationEndDate = hr.MustParseDate("2024-01-01") }, "probation_end_date"},
		{"eight day week", func(in *employee.CreateInput) {
			s := hr.DefaultSchedule()
			s.DaysPerWeek = 8
			in.Schedule = &s
		}, "work_days_per_week"},
		{"negative balance", func(in *employee.CreateInput) { in.SickDays = -1 }, "sick_days"},
		{"negative balances report the first", func(in *employee.CreateInput) {
			in.VacationDays, in.SickDays, in.PersonalDays = -1, -2, -3
		}, "vacation_days"},
		{"zero length schedule", func(in *employee.CreateInput) {
			s := hr.Schedule{Start: hr.NewClockTime(9, 0), End: hr.NewClockTime(9, 0), DaysPerWeek: 5}
			in.Schedule = &s
		}, "work_end_time"},
		{"missing hire date", func(in *employee.CreateInput) { in.HireDate = hr.Date{} }, "hire_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := baseInput("u-" + tt.field)
			tt.mut(&in)
			_, err := reg.Create(ctx, hrActor, in)

			var verr *hr.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestCreate_SalaryOverflow(t *testing.T) {
	reg, _ := newTestRegistry(t)
	in := baseInput("u1")
	in.BaseSalary = hr.MustDecimal("12345678901.00")

	_, err := reg.Create(context.Background(), hrActor, in)
	assert.ErrorIs(t, err, hr.ErrArithmeticOverflow)
}

func TestCreate_DuplicateUser(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	_, err := reg.Create(ctx, hrActor, baseInput("u1"))
	require.NoError(t, err)
	_, err = reg.Create(ctx, hrActor, baseInput("u1"))
	assert.ErrorIs(t, err, hr.ErrDuplicateRecord)
}

func TestCreate_EmployeeRoleDenied(t *testing.T) {
	reg, _ := newTestRegistry(t)
	_, err := reg.Create(context.Background(), hr.Actor{UserID: "u9", Role: hr.RoleEmployee}, baseInput("u9"))
	assert.ErrorIs(t, err, hr.ErrPermissionDenied)
}

func TestSetManager_RejectsCycle(t *testing.T) {
	// GIVEN: EMP002 reports to EMP001
	// WHEN: EMP001 is set to report to EMP002
	// THEN: The change is rejected and EMP001 keeps no manager

	reg, store := newTestRegistry(t)
	ctx := context.Background()

	a, err := reg.Create(ctx, hrActor, baseInput("u1"))
	require.NoError(t, err)
	in := baseInput("u2")
	in.ManagerID = a.ID
	b, err := reg.Create(ctx, hrActor, in)
	require.NoError(t, err)

	_, err = reg.SetManager(ctx, hrActor, a.ID, b.ID)
	assert.ErrorIs(t, err, hr.ErrValidation)

	_, err = reg.SetManager(ctx, hrActor, a.ID, a.ID)
	assert.ErrorIs(t, err, hr.ErrValidation)

	got, err := store.GetEmployee(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, got.ManagerID)
}

func TestUpdate_PatchesAndAudits(t *testing.T) {
	reg, store := newTestRegistry(t)
	ctx := context.Background()
	emp, err := reg.Create(ctx, hrActor, baseInput("u1"))
	require.NoError(t, err)

	days := 25
	updated, err := reg.Update(ctx, hrActor, emp.ID, employee.UpdateInput{VacationDays: &days})
	require.NoError(t, err)
	assert.Equal(t, 25, updated.VacationDays)

	entries, err := store.QueryAudit(ctx, hr.AuditFilter{EntityID: emp.ID})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "employee.create", entries[0].Action)
	assert.Equal(t, "employee.update", entries[1].Action)
}

func TestUpdate_RejectsZeroLengthSchedule(t *testing.T) {
	reg, store := newTestRegistry(t)
	ctx := context.Background()
	emp, err := reg.Create(ctx, hrActor, baseInput("u1"))
	require.NoError(t, err)

	// WHEN: The schedule is patched so that it starts and ends at 09:00
	s := hr.Schedule{Start: hr.NewClockTime(9, 0), End: hr.NewClockTime(9, 0), DaysPerWeek: 5}
	_, err = reg.Update(ctx, hrActor, emp.ID, employee.UpdateInput{Schedule: &s})

	// THEN: The update is refused and the stored schedule is unchanged
	var verr *hr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "work_end_time", verr.Field)

	stored, err := store.GetEmployee(ctx, emp.ID)
	require.NoError(t, err)
	assert.Equal(t, hr.DefaultSchedule(), stored.Schedule)
}

func TestGet_EmployeeSeesOnlySelf(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()
	emp, err := reg.Create(ctx, hrActor, baseInput("u1"))
	require.NoError(t, err)

	self := hr.Actor{UserID: "u1", Role: hr.RoleEmployee, EmployeeID: emp.ID}
	_, err = reg.Get(ctx, self, emp.ID)
	assert.NoError(t, err)

	other := hr.Actor{UserID: "u2", Role: hr.RoleEmployee, EmployeeID: "EMP777"}
	_, err = reg.Get(ctx, other, emp.ID)
	assert.ErrorIs(t, err, hr.ErrPermissionDenied)
}
