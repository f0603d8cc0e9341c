/*
Package attendance records daily check-in/check-out and derives hours.

PURPOSE:
  Records one attendance entry per employee per calendar date and keeps the
  derived fields consistent with the raw inputs.

INVARIANT:
  At most one record per (EmployeeID, Date). A second create for the same
  day fails with DuplicateRecordError; changes go through Update. The
  unique index in the store backs this up when two creates race.

DERIVED FIELDS (recomputed on every save):
  Both check-in and check-out present:
    raw       = check_out - check_in (must be > 0)
    max       = scheduled daily hours (overnight shifts wrap)
    work      = min(raw, max)
    overtime  = max(0, raw - max)
  Only check-in present:   work = overtime = 0
  is_late = check_in > scheduled start + grace, in the system zone

SEE ALSO:
  - hr/time.go: DailyScheduledHours, IsLate
  - compensation: Sums WorkHours/OvertimeHours into payroll
*/
package attendance

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/workforce-engine/hr"
)

// =============================================================================
// COMPUTE - pure derivation of hours and lateness
// =============================================================================

// Compute recomputes WorkHours, OvertimeHours and IsLate on att from its
// check-in/check-out and the employee's schedule.
func Compute(att *hr.Attendance, schedule hr.Schedule, grace time.Duration, loc *time.Location) error {
	att.WorkHours = decimal.Zero
	att.OvertimeHours = decimal.Zero
	att.IsLate = false

	if att.CheckIn == nil {
		return nil
	}
	att.IsLate = hr.IsLate(*att.CheckIn, att.Date, schedule.Start, grace, loc)

	if att.CheckOut == nil {
		return nil
	}
	if !att.CheckOut.After(*att.CheckIn) {
		return &hr.ValidationError{Field: "check_out", Message: "must be after check-in"}
	}

	raw := hr.HoursFromDuration(att.CheckOut.Sub(*att.CheckIn))
	maxHours := hr.HoursFromDuration(schedule.DailyHours())

	work, err := hr.CheckPrecision("work_hours", decimal.Min(raw, maxHours))
	if err != nil {
		return err
	}
	overtime, err := hr.CheckPrecision("overtime_hours", decimal.Max(decimal.Zero, raw.Sub(maxHours)))
	if err != nil {
		return err
	}
	att.WorkHours = work
	att.OvertimeHours = overtime
	return nil
}

// =============================================================================
// RECORDER
// =============================================================================

type RecordInput struct {
	EmployeeID string
	Date       hr.Date
	CheckIn    *time.Time
	CheckOut   *time.Time
	IsAbsent   bool
	Notes      string
}

// UpdateInput patches an existing record. A Set flag with a nil time clears
// that field.
type UpdateInput struct {
	SetCheckIn  bool
	CheckIn     *time.Time
	SetCheckOut bool
	CheckOut    *time.Time
	IsAbsent    *bool
	Notes       *string
}

type Recorder struct {
	Store hr.TxStore
	Grace time.Duration
	hr.Runtime
}

func NewRecorder(store hr.TxStore, grace time.Duration, rt hr.Runtime) *Recorder {
	if grace < 0 {
		grace = hr.DefaultGracePeriod
	}
	return &Recorder{Store: store, Grace: grace, Runtime: rt.Normalize()}
}

// Record creates the attendance entry for (EmployeeID, Date).
func (r *Recorder) Record(ctx context.Context, actor hr.Actor, in RecordInput) (*hr.Attendance, error) {
	if !actor.CanRecordAttendance() && !actor.Owns(in.EmployeeID) {
		return nil, &hr.PermissionDeniedError{Role: actor.Role, Action: "record attendance for other employees"}
	}
	if in.EmployeeID == "" {
		return nil, &hr.ValidationError{Field: "employee_id", Message: "is required"}
	}
	if in.Date.IsZero() {
		return nil, &hr.ValidationError{Field: "date", Message: "is required"}
	}

	now := r.Clock.Now().UTC()
	att := &hr.Attendance{
		EmployeeID: in.EmployeeID,
		Date:       in.Date,
		CheckIn:    in.CheckIn,
		CheckOut:   in.CheckOut,
		IsAbsent:   in.IsAbsent,
		Notes:      in.Notes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := r.Store.WithTx(ctx, func(tx hr.Store) error {
		// 1. Employee must exist; its schedule drives the derived fields
		emp, err := tx.GetEmployee(ctx, in.EmployeeID)
		if err != nil {
			return err
		}

		// 2. One record per day
		if _, err := tx.GetAttendance(ctx, in.EmployeeID, in.Date); err == nil {
			return &hr.DuplicateRecordError{Entity: "attendance", Key: in.EmployeeID + " on " + in.Date.String()}
		} else if !hr.IsNotFound(err) {
			return err
		}

		// 3. Derive and persist in the same transaction
		if err := Compute(att, emp.Schedule, r.Grace, r.Location); err != nil {
			return err
		}
		return tx.InsertAttendance(ctx, att)
	})
	if err != nil {
		return nil, err
	}

	if att.IsLate {
		r.Emit(ctx, hr.LateCheckInEvent{Attendance: *att})
	}
	r.RecordAudit(ctx, actor, "attendance.create", "attendance", att.EmployeeID+"/"+att.Date.String(), summarize(att))
	return att, nil
}

// Update patches an existing record and recomputes its derived fields.
func (r *Recorder) Update(ctx context.Context, actor hr.Actor, employeeID string, date hr.Date, in UpdateInput) (*hr.Attendance, error) {
	if !actor.CanRecordAttendance() && !actor.Owns(employeeID) {
		return nil, &hr.PermissionDeniedError{Role: actor.Role, Action: "update attendance for other employees"}
	}

	var att *hr.Attendance
	err := r.Store.WithTx(ctx, func(tx hr.Store) error {
		emp, err := tx.GetEmployee(ctx, employeeID)
		if err != nil {
			return err
		}
		att, err = tx.GetAttendance(ctx, employeeID, date)
		if err != nil {
			return err
		}

		if in.SetCheckIn {
			att.CheckIn = in.CheckIn
		}
		if in.SetCheckOut {
			att.CheckOut = in.CheckOut
		}
		if in.IsAbsent != nil {
			att.IsAbsent = *in.IsAbsent
		}
		if in.Notes != nil {
			att.Notes = *in.Notes
		}
		att.UpdatedAt = r.Clock.Now().UTC()

		if err := Compute(att, emp.Schedule, r.Grace, r.Location); err != nil {
			return err
		}
		return tx.UpdateAttendance(ctx, att)
	})
	if err != nil {
		return nil, err
	}

	r.RecordAudit(ctx, actor, "attendance.update", "attendance", att.EmployeeID+"/"+att.Date.String(), summarize(att))
	return att, nil
}

// List returns an employee's records in period.
func (r *Recorder) List(ctx context.Context, actor hr.Actor, employeeID string, period hr.Period) ([]hr.Attendance, error) {
	if !actor.CanViewAll() && !actor.Owns(employeeID) {
		return nil, &hr.PermissionDeniedError{Role: actor.Role, Action: "view attendance of other employees"}
	}
	if err := period.Validate(); err != nil {
		return nil, err
	}
	return r.Store.ListAttendance(ctx, employeeID, period)
}

func summarize(att *hr.Attendance) string {
	return "work " + att.WorkHours.StringFixed(hr.Scale) + "h, overtime " + att.OvertimeHours.StringFixed(hr.Scale) + "h"
}
