package hr_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/workforce-engine/hr"
)

func TestPeriod_ValidateAndContains(t *testing.T) {
	p, err := hr.NewPeriod(hr.MustParseDate("2025-01-01"), hr.MustParseDate("2025-01-14"))
	require.NoError(t, err)

	assert.Equal(t, 14, p.Len())
	assert.Len(t, p.Days(), 14)
	assert.True(t, p.Contains(hr.MustParseDate("2025-01-01")))
	assert.True(t, p.Contains(hr.MustParseDate("2025-01-14")))
	assert.False(t, p.Contains(hr.MustParseDate("2025-01-15")))

	_, err = hr.NewPeriod(hr.MustParseDate("2025-01-14"), hr.MustParseDate("2025-01-01"))
	assert.ErrorIs(t, err, hr.ErrValidation)
}

func TestDefaultPayPeriod(t *testing.T) {
	ref := hr.NewDate(2025, time.March, 15)

	tests := []struct {
		kind  hr.PayPeriodKind
		start string
	}{
		{hr.PayPeriodWeekly, "2025-03-08"},
		{hr.PayPeriodBiweekly, "2025-03-01"},
		{hr.PayPeriodMonthly, "2025-02-01"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			p, err := hr.DefaultPayPeriod(tt.kind, ref)
			require.NoError(t, err)
			assert.Equal(t, tt.start, p.Start.String())
			assert.Equal(t, "2025-03-15", p.End.String())
		})
	}

	// Monthly across a year boundary
	p, err := hr.DefaultPayPeriod(hr.PayPeriodMonthly, hr.NewDate(2025, time.January, 10))
	require.NoError(t, err)
	assert.Equal(t, "2024-12-01", p.Start.String())

	_, err = hr.DefaultPayPeriod("fortnightly", ref)
	assert.ErrorIs(t, err, hr.ErrValidation)
}

func TestCheckPrecision(t *testing.T) {
	// GIVEN: Values near the 10 integer digit limit
	// WHEN: Checking precision
	// THEN: Values are rounded half away from zero; 11 digits overflow

	v, err := hr.CheckPrecision("net_salary", hr.MustDecimal("9999999999.994"))
	require.NoError(t, err)
	assert.Equal(t, "9999999999.99", v.StringFixed(2))

	v, err = hr.CheckPrecision("overtime_pay", hr.MustDecimal("2.345"))
	require.NoError(t, err)
	assert.Equal(t, "2.35", v.StringFixed(2))

	v, err = hr.CheckPrecision("deductions", hr.MustDecimal("-2.345"))
	require.NoError(t, err)
	assert.Equal(t, "-2.35", v.StringFixed(2))

	_, err = hr.CheckPrecision("net_salary", decimal.New(1, 10))
	var overflow *hr.ArithmeticOverflowError
	require.ErrorAs(t, err, &overflow)
	assert.Equal(t, "net_salary", overflow.Field)
	assert.ErrorIs(t, err, hr.ErrArithmeticOverflow)
}

func TestHoursFromDuration(t *testing.T) {
	assert.Equal(t, "8.5", hr.HoursFromDuration(8*time.Hour+30*time.Minute).String())
}

func TestErrorTaxonomy(t *testing.T) {
	assert.True(t, hr.IsClientError(&hr.ValidationError{Field: "days", Message: "must be positive"}))
	assert.True(t, hr.IsClientError(&hr.InsufficientBalanceError{EmployeeID: "EMP001", LeaveType: hr.LeaveVacation}))
	assert.True(t, hr.IsConflict(&hr.DuplicateRecordError{Entity: "payroll", Key: "EMP001"}))
	assert.True(t, hr.IsConflict(&hr.InvalidTransitionError{Entity: "leave request", From: "approved", Action: "approve"}))
	assert.True(t, hr.IsNotFound(&hr.NotFoundError{Entity: "employee", ID: "EMP404"}))
	assert.False(t, hr.IsNotFound(&hr.PermissionDeniedError{Role: hr.RoleEmployee, Action: "approve leave"}))
}

func TestEmit_SwallowsSinkFailures(t *testing.T) {
	sink := hr.EventSinkFunc(func(_ context.Context, _ hr.Event) error {
		return assert.AnError
	})

	assert.NotPanics(t, func() {
		hr.Emit(context.Background(), sink, nil, hr.LeaveSubmittedEvent{})
	})
}
