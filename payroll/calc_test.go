package payroll_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/workforce-engine/hr"
	"github.com/warp/workforce-engine/payroll"
)

func referenceInput() payroll.CalcInput {
	return payroll.CalcInput{
		BaseSalary:    hr.MustDecimal("60000"),
		Schedule:      hr.DefaultSchedule(),
		HoursWorked:   hr.MustDecimal("80"),
		OvertimeHours: hr.MustDecimal("5"),
		Deductions:    hr.MustDecimal("200"),
		Bonuses:       hr.MustDecimal("100"),
	}
}

func TestComputeNetSalary_ReferenceCase(t *testing.T) {
	// GIVEN: 60000 base, 09:00-17:00 × 5 days, 80h + 5h overtime,
	//        100 bonuses, 200 deductions
	// WHEN: Computing with the default parameters
	// THEN: overtime pay 216.35, net 2424.04

	b, err := payroll.ComputeNetSalary(referenceInput(), payroll.DefaultParams())
	require.NoError(t, err)

	assert.Equal(t, "80.00", b.ExpectedHours.StringFixed(2))
	assert.Equal(t, "28.85", b.HourlyRate.StringFixed(2))
	assert.Equal(t, "2307.69", b.RegularPay.StringFixed(2))
	assert.Equal(t, "216.35", b.OvertimePay.StringFixed(2))
	assert.Equal(t, "2424.04", b.NetSalary.StringFixed(2))
}

func TestComputeNetSalary_Deterministic(t *testing.T) {
	first, err := payroll.ComputeNetSalary(referenceInput(), payroll.DefaultParams())
	require.NoError(t, err)
	second, err := payroll.ComputeNetSalary(referenceInput(), payroll.DefaultParams())
	require.NoError(t, err)

	assert.True(t, first.NetSalary.Equal(second.NetSalary))
	assert.True(t, first.OvertimePay.Equal(second.OvertimePay))
}

func TestComputeNetSalary_RegularHoursCappedAtSchedule(t *testing.T) {
	// GIVEN: 120 hours recorded against 80 expected
	// WHEN: Computing
	// THEN: Regular pay is the same as for exactly 80 hours

	in := referenceInput()
	in.HoursWorked = hr.MustDecimal("120")
	capped, err := payroll.ComputeNetSalary(in, payroll.DefaultParams())
	require.NoError(t, err)

	assert.Equal(t, "80.00", capped.ActualHours.StringFixed(2))
	assert.Equal(t, "2307.69", capped.RegularPay.StringFixed(2))
}

func TestComputeNetSalary_ParametersAreConfigurable(t *testing.T) {
	// Monthly-ish: 4 weeks per period, 12 periods per year, double overtime
	params := payroll.Params{
		PeriodsMultiplier:  4,
		PayPeriodsPerYear:  12,
		OvertimeMultiplier: hr.MustDecimal("2"),
	}
	in := referenceInput()
	in.HoursWorked = hr.MustDecimal("160")
	in.OvertimeHours = hr.MustDecimal("0")
	in.Deductions = hr.MustDecimal("0")
	in.Bonuses = hr.MustDecimal("0")

	b, err := payroll.ComputeNetSalary(in, params)
	require.NoError(t, err)
	assert.Equal(t, "160.00", b.ExpectedHours.StringFixed(2))
	assert.Equal(t, "5000.00", b.NetSalary.StringFixed(2))
}

func TestComputeNetSalary_Errors(t *testing.T) {
	t.Run("zero expected hours", func(t *testing.T) {
		in := referenceInput()
		in.Schedule = hr.Schedule{Start: hr.NewClockTime(9, 0), End: hr.NewClockTime(9, 0), DaysPerWeek: 5}
		_, err := payroll.ComputeNetSalary(in, payroll.DefaultParams())
		assert.ErrorIs(t, err, hr.ErrValidation)
	})

	t.Run("negative deductions", func(t *testing.T) {
		in := referenceInput()
		in.Deductions = hr.MustDecimal("-1")
		_, err := payroll.ComputeNetSalary(in, payroll.DefaultParams())
		assert.ErrorIs(t, err, hr.ErrValidation)
	})

	t.Run("input over ten integer digits", func(t *testing.T) {
		in := referenceInput()
		in.Bonuses = hr.MustDecimal("10000000000")
		_, err := payroll.ComputeNetSalary(in, payroll.DefaultParams())
		var overflow *hr.ArithmeticOverflowError
		require.ErrorAs(t, err, &overflow)
		assert.Equal(t, "bonuses", overflow.Field)
	})

	t.Run("result over ten integer digits", func(t *testing.T) {
		in := referenceInput()
		in.BaseSalary = hr.MustDecimal("9999999999")
		in.OvertimeHours = hr.MustDecimal("9999999")
		_, err := payroll.ComputeNetSalary(in, payroll.DefaultParams())
		assert.ErrorIs(t, err, hr.ErrArithmeticOverflow)
	})

	t.Run("invalid params", func(t *testing.T) {
		params := payroll.DefaultParams()
		params.PayPeriodsPerYear = 0
		_, err := payroll.ComputeNetSalary(referenceInput(), params)
		assert.ErrorIs(t, err, hr.ErrValidation)
	})
}

func TestNext_TransitionTable(t *testing.T) {
	tests := []struct {
		from   hr.PayrollStatus
		action payroll.Action
		to     hr.PayrollStatus
		ok     bool
	}{
		{hr.PayrollDraft, payroll.ActionSubmit, hr.PayrollPending, true},
		{hr.PayrollDraft, payroll.ActionApprove, hr.PayrollApproved, true},
		{hr.PayrollPending, payroll.ActionApprove, hr.PayrollApproved, true},
		{hr.PayrollPending, payroll.ActionReject, hr.PayrollRejected, true},
		{hr.PayrollApproved, payroll.ActionPay, hr.PayrollPaid, true},
		{hr.PayrollPending, payroll.ActionSubmit, "", false},
		{hr.PayrollApproved, payroll.ActionReject, "", false},
		{hr.PayrollRejected, payroll.ActionApprove, "", false},
		{hr.PayrollPaid, payroll.ActionPay, "", false},
		{hr.PayrollDraft, payroll.ActionPay, "", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"_"+string(tt.action), func(t *testing.T) {
			to, ok := payroll.Next(tt.from, tt.action)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.to, to)
		})
	}
}
