package hr

import "fmt"

// =============================================================================
// PERIOD - inclusive date range (pay periods, report windows)
// =============================================================================

// Period is the inclusive range [Start, End].
type Period struct {
	Start Date
	End   Date
}

// NewPeriod validates and returns [start, end].
func NewPeriod(start, end Date) (Period, error) {
	p := Period{Start: start, End: end}
	return p, p.Validate()
}

func (p Period) Validate() error {
	if p.Start.IsZero() || p.End.IsZero() {
		return &ValidationError{Field: "period", Message: "start and end dates are required"}
	}
	if p.End.Before(p.Start) {
		return &ValidationError{Field: "period", Message: "end date cannot be before start date"}
	}
	return nil
}

// Contains returns true if d is within [Start, End].
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Days returns every date in the period.
func (p Period) Days() []Date {
	var days []Date
	for current := p.Start; current.BeforeOrEqual(p.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

// Len is the inclusive number of days.
func (p Period) Len() int {
	return DaysBetween(p.Start, p.End) + 1
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// =============================================================================
// DEFAULT PAY PERIODS
// =============================================================================

type PayPeriodKind string

const (
	PayPeriodWeekly   PayPeriodKind = "weekly"
	PayPeriodBiweekly PayPeriodKind = "biweekly"
	PayPeriodMonthly  PayPeriodKind = "monthly"
)

// DefaultPayPeriod derives the period a scheduled payroll run covers when the
// caller supplies only a reference date:
//
//	weekly:   [ref-7, ref]
//	biweekly: [ref-14, ref]
//	monthly:  [first day of the previous month, ref]
func DefaultPayPeriod(kind PayPeriodKind, ref Date) (Period, error) {
	if ref.IsZero() {
		return Period{}, &ValidationError{Field: "reference_date", Message: "is required"}
	}
	switch kind {
	case PayPeriodWeekly:
		return Period{Start: ref.AddDays(-7), End: ref}, nil
	case PayPeriodBiweekly:
		return Period{Start: ref.AddDays(-14), End: ref}, nil
	case PayPeriodMonthly:
		firstOfMonth := NewDate(ref.Year(), ref.Month(), 1)
		lastOfPrevious := firstOfMonth.AddDays(-1)
		return Period{Start: NewDate(lastOfPrevious.Year(), lastOfPrevious.Month(), 1), End: ref}, nil
	default:
		return Period{}, &ValidationError{Field: "period", Message: fmt.Sprintf("unknown pay period kind %q", kind)}
	}
}
