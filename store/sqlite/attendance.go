package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/warp/workforce-engine/hr"
)

// =============================================================================
// ATTENDANCE STORE (hr.AttendanceStore interface)
// =============================================================================

const attendanceColumns = `employee_id, date, check_in, check_out, work_hours, overtime_hours,
	is_late, is_absent, notes, created_at, updated_at`

func (q *queries) InsertAttendance(ctx context.Context, att *hr.Attendance) error {
	query := `INSERT INTO attendance (` + attendanceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := q.db.ExecContext(ctx, query,
		att.EmployeeID,
		att.Date.String(),
		nullTime(att.CheckIn),
		nullTime(att.CheckOut),
		att.WorkHours.String(),
		att.OvertimeHours.String(),
		att.IsLate,
		att.IsAbsent,
		att.Notes,
		formatTime(att.CreatedAt),
		formatTime(att.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &hr.DuplicateRecordError{Entity: "attendance", Key: att.EmployeeID + " on " + att.Date.String()}
		}
		if isForeignKeyError(err) {
			return &hr.NotFoundError{Entity: "employee", ID: att.EmployeeID}
		}
		return fmt.Errorf("failed to insert attendance: %w", err)
	}
	return nil
}

func (q *queries) UpdateAttendance(ctx context.Context, att *hr.Attendance) error {
	query := `UPDATE attendance SET
		check_in = ?, check_out = ?, work_hours = ?, overtime_hours = ?,
		is_late = ?, is_absent = ?, notes = ?, updated_at = ?
		WHERE employee_id = ? AND date = ?`

	res, err := q.db.ExecContext(ctx, query,
		nullTime(att.CheckIn),
		nullTime(att.CheckOut),
		att.WorkHours.String(),
		att.OvertimeHours.String(),
		att.IsLate,
		att.IsAbsent,
		att.Notes,
		formatTime(att.UpdatedAt),
		att.EmployeeID,
		att.Date.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update attendance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &hr.NotFoundError{Entity: "attendance", ID: att.EmployeeID + " on " + att.Date.String()}
	}
	return nil
}

func (q *queries) GetAttendance(ctx context.Context, employeeID string, date hr.Date) (*hr.Attendance, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+attendanceColumns+` FROM attendance WHERE employee_id = ? AND date = ?`,
		employeeID, date.String())
	att, err := scanAttendance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &hr.NotFoundError{Entity: "attendance", ID: employeeID + " on " + date.String()}
	}
	if err != nil {
		return nil, err
	}
	return &att, nil
}

// ListAttendance returns the employee's records within period, ordered by date.
func (q *queries) ListAttendance(ctx context.Context, employeeID string, period hr.Period) ([]hr.Attendance, error) {
	return q.queryAttendance(ctx, `
		SELECT `+attendanceColumns+` FROM attendance
		WHERE employee_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`, employeeID, period.Start.String(), period.End.String())
}

// ListAttendanceOn returns every record for date, ordered by employee.
func (q *queries) ListAttendanceOn(ctx context.Context, date hr.Date) ([]hr.Attendance, error) {
	return q.queryAttendance(ctx, `
		SELECT `+attendanceColumns+` FROM attendance
		WHERE date = ?
		ORDER BY employee_id ASC
	`, date.String())
}

// ListAttendanceIn returns every record dated in period, ordered by date and
// employee.
func (q *queries) ListAttendanceIn(ctx context.Context, period hr.Period) ([]hr.Attendance, error) {
	return q.queryAttendance(ctx, `
		SELECT `+attendanceColumns+` FROM attendance
		WHERE date >= ? AND date <= ?
		ORDER BY date ASC, employee_id ASC
	`, period.Start.String(), period.End.String())
}

func (q *queries) queryAttendance(ctx context.Context, query string, args ...any) ([]hr.Attendance, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance: %w", err)
	}
	defer rows.Close()

	var records []hr.Attendance
	for rows.Next() {
		att, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, att)
	}
	return records, rows.Err()
}

func scanAttendance(row scanner) (hr.Attendance, error) {
	var (
		att                            hr.Attendance
		date, workHours, overtimeHours string
		checkIn, checkOut              sql.NullString
		createdAt, updatedAt           string
	)
	err := row.Scan(&att.EmployeeID, &date, &checkIn, &checkOut, &workHours, &overtimeHours,
		&att.IsLate, &att.IsAbsent, &att.Notes, &createdAt, &updatedAt)
	if err != nil {
		return att, err
	}

	if att.Date, err = hr.ParseDate(date); err != nil {
		return att, err
	}
	if att.CheckIn, err = parseNullTime(checkIn); err != nil {
		return att, err
	}
	if att.CheckOut, err = parseNullTime(checkOut); err != nil {
		return att, err
	}
	if att.WorkHours, err = parseDecimal(workHours); err != nil {
		return att, err
	}
	if att.OvertimeHours, err = parseDecimal(overtimeHours); err != nil {
		return att, err
	}
	if att.CreatedAt, err = parseTime(createdAt); err != nil {
		return att, err
	}
	att.UpdatedAt, err = parseTime(updatedAt)
	return att, err
}
