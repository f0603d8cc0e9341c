package attendance

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/warp/workforce-engine/hr"
)

// Summary aggregates an employee's attendance over a period.
// AttendanceRate is PresentDays / TotalDays as a percentage.
type Summary struct {
	EmployeeID     string
	Period         hr.Period
	TotalDays      int
	PresentDays    int
	LateDays       int
	AbsentDays     int
	WorkHours      decimal.Decimal
	OvertimeHours  decimal.Decimal
	AttendanceRate decimal.Decimal
}

// Summarize folds records into a Summary. A day counts as present when it
// has a check-in.
func Summarize(employeeID string, period hr.Period, records []hr.Attendance) Summary {
	s := Summary{
		EmployeeID:     employeeID,
		Period:         period,
		WorkHours:      decimal.Zero,
		OvertimeHours:  decimal.Zero,
		AttendanceRate: decimal.Zero,
	}
	for _, rec := range records {
		s.TotalDays++
		if rec.CheckIn != nil {
			s.PresentDays++
		}
		if rec.IsLate {
			s.LateDays++
		}
		if rec.IsAbsent {
			s.AbsentDays++
		}
		s.WorkHours = s.WorkHours.Add(rec.WorkHours)
		s.OvertimeHours = s.OvertimeHours.Add(rec.OvertimeHours)
	}
	if s.TotalDays > 0 {
		s.AttendanceRate = decimal.NewFromInt(int64(s.PresentDays)).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(int64(s.TotalDays))).
			Round(hr.Scale)
	}
	return s
}

// Summary loads and summarizes an employee's records in period.
func (r *Recorder) Summary(ctx context.Context, actor hr.Actor, employeeID string, period hr.Period) (Summary, error) {
	records, err := r.List(ctx, actor, employeeID, period)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(employeeID, period, records), nil
}
