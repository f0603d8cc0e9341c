/*
Package payroll computes and manages per-period pay records.

PURPOSE:
  Turns a base salary and the hours recorded in a pay period into a net
  salary, and moves the resulting record through its approval workflow.

NET SALARY:
  expected_hours = daily scheduled hours × work days per week × PeriodsMultiplier
  hourly_rate    = base_salary / (expected_hours × PayPeriodsPerYear)
  actual_hours   = min(hours_worked, expected_hours)
  regular_pay    = actual_hours × hourly_rate
  overtime_pay   = overtime_hours × hourly_rate × OvertimeMultiplier
  net_salary     = regular_pay + overtime_pay + bonuses - deductions

  Regular pay never exceeds the scheduled hours, whatever was recorded.
  Every monetary value is rounded to 2 places (half away from zero) and
  checked against the 10 integer digit limit.

EXAMPLE:
  base 60000, 09:00-17:00 × 5 days, multiplier 2, 26 periods:
    expected_hours = 80, hourly_rate = 28.846...
    80 worked, 5 overtime, bonuses 100, deductions 200
    regular 2307.69 + overtime 216.35 + 100 - 200 = 2424.04

SEE ALSO:
  - status.go: Status transition table
  - engine.go: Create/Update/Approve with recompute on every save
*/
package payroll

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/workforce-engine/hr"
)

// =============================================================================
// PARAMETERS
// =============================================================================

// Params are the engine constants of the net salary formula.
type Params struct {
	PeriodsMultiplier  int
	PayPeriodsPerYear  int
	OvertimeMultiplier decimal.Decimal
}

// DefaultParams is a bi-weekly payroll paid 26 times a year with overtime at
// time and a half.
func DefaultParams() Params {
	return Params{
		PeriodsMultiplier:  2,
		PayPeriodsPerYear:  26,
		OvertimeMultiplier: decimal.RequireFromString("1.5"),
	}
}

func (p Params) Validate() error {
	if p.PeriodsMultiplier <= 0 {
		return &hr.ValidationError{Field: "periods_multiplier", Message: "must be positive"}
	}
	if p.PayPeriodsPerYear <= 0 {
		return &hr.ValidationError{Field: "pay_periods_per_year", Message: "must be positive"}
	}
	if p.OvertimeMultiplier.IsNegative() {
		return &hr.ValidationError{Field: "overtime_multiplier", Message: "cannot be negative"}
	}
	return nil
}

// =============================================================================
// COMPUTATION
// =============================================================================

type CalcInput struct {
	BaseSalary    decimal.Decimal
	Schedule      hr.Schedule
	HoursWorked   decimal.Decimal
	OvertimeHours decimal.Decimal
	Deductions    decimal.Decimal
	Bonuses       decimal.Decimal
}

// Breakdown is the full result of ComputeNetSalary. HourlyRate is rounded for
// display; the pay amounts use the unrounded rate.
type Breakdown struct {
	ExpectedHours decimal.Decimal
	HourlyRate    decimal.Decimal
	ActualHours   decimal.Decimal
	RegularPay    decimal.Decimal
	OvertimePay   decimal.Decimal
	NetSalary     decimal.Decimal
}

// ComputeNetSalary applies the net salary formula to in. It has no side
// effects and returns the same Breakdown for the same input.
func ComputeNetSalary(in CalcInput, params Params) (Breakdown, error) {
	if err := params.Validate(); err != nil {
		return Breakdown{}, err
	}

	inputs := []struct {
		field string
		value decimal.Decimal
	}{
		{"base_salary", in.BaseSalary},
		{"hours_worked", in.HoursWorked},
		{"overtime_hours", in.OvertimeHours},
		{"deductions", in.Deductions},
		{"bonuses", in.Bonuses},
	}
	for _, input := range inputs {
		if input.value.IsNegative() {
			return Breakdown{}, &hr.ValidationError{Field: input.field, Message: "cannot be negative"}
		}
		if _, err := hr.CheckPrecision(input.field, input.value); err != nil {
			return Breakdown{}, err
		}
	}

	daily := hr.HoursFromDuration(in.Schedule.DailyHours())
	expected := daily.
		Mul(decimal.NewFromInt(int64(in.Schedule.DaysPerWeek))).
		Mul(decimal.NewFromInt(int64(params.PeriodsMultiplier)))
	if !expected.IsPositive() {
		return Breakdown{}, &hr.ValidationError{Field: "schedule", Message: "expected hours per period must be positive"}
	}

	rate := in.BaseSalary.Div(expected.Mul(decimal.NewFromInt(int64(params.PayPeriodsPerYear))))
	actual := decimal.Min(in.HoursWorked, expected)

	var b Breakdown
	var err error
	if b.RegularPay, err = hr.CheckPrecision("regular_pay", actual.Mul(rate)); err != nil {
		return Breakdown{}, err
	}
	if b.OvertimePay, err = hr.CheckPrecision("overtime_pay", in.OvertimeHours.Mul(rate).Mul(params.OvertimeMultiplier)); err != nil {
		return Breakdown{}, err
	}
	net := b.RegularPay.Add(b.OvertimePay).Add(in.Bonuses.Round(hr.Scale)).Sub(in.Deductions.Round(hr.Scale))
	if b.NetSalary, err = hr.CheckPrecision("net_salary", net); err != nil {
		return Breakdown{}, err
	}

	b.ExpectedHours = expected.Round(hr.Scale)
	b.HourlyRate = rate.Round(hr.Scale)
	b.ActualHours = actual.Round(hr.Scale)
	return b, nil
}

// recompute refreshes the derived pay fields of p from its inputs.
func recompute(p *hr.Payroll, schedule hr.Schedule, params Params) error {
	b, err := ComputeNetSalary(CalcInput{
		BaseSalary:    p.BaseSalary,
		Schedule:      schedule,
		HoursWorked:   p.HoursWorked,
		OvertimeHours: p.OvertimeHours,
		Deductions:    p.Deductions,
		Bonuses:       p.Bonuses,
	}, params)
	if err != nil {
		return fmt.Errorf("payroll %s: %w", p.EmployeeID, err)
	}
	p.BaseSalary = p.BaseSalary.Round(hr.Scale)
	p.HoursWorked = p.HoursWorked.Round(hr.Scale)
	p.OvertimeHours = p.OvertimeHours.Round(hr.Scale)
	p.Deductions = p.Deductions.Round(hr.Scale)
	p.Bonuses = p.Bonuses.Round(hr.Scale)
	p.OvertimePay = b.OvertimePay
	p.NetSalary = b.NetSalary
	return nil
}
