package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/warp/workforce-engine/hr"
)

// =============================================================================
// EMPLOYEE STORE (hr.EmployeeStore interface)
// =============================================================================

const employeeColumns = `id, user_id, first_name, last_name, email, department_id, position_id,
	manager_id, status, hire_date, termination_date, probation_end_date, base_salary, hourly_rate,
	work_start, work_end, work_days_per_week, vacation_days, sick_days, personal_days,
	created_at, updated_at`

func (q *queries) InsertEmployee(ctx context.Context, emp *hr.Employee) error {
	query := `INSERT INTO employees (` + employeeColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := q.db.ExecContext(ctx, query, employeeArgs(emp)...)
	if err != nil {
		if isUniqueConstraintError(err) {
			if strings.Contains(err.Error(), "user_id") {
				return &hr.DuplicateRecordError{Entity: "employee", Key: "user " + emp.UserID}
			}
			return &hr.DuplicateRecordError{Entity: "employee", Key: emp.ID}
		}
		if isForeignKeyError(err) {
			return &hr.NotFoundError{Entity: "manager", ID: emp.ManagerID}
		}
		return fmt.Errorf("failed to insert employee: %w", err)
	}
	return nil
}

func (q *queries) UpdateEmployee(ctx context.Context, emp *hr.Employee) error {
	query := `UPDATE employees SET
		user_id = ?, first_name = ?, last_name = ?, email = ?, department_id = ?, position_id = ?,
		manager_id = ?, status = ?, hire_date = ?, termination_date = ?, probation_end_date = ?,
		base_salary = ?, hourly_rate = ?, work_start = ?, work_end = ?, work_days_per_week = ?,
		vacation_days = ?, sick_days = ?, personal_days = ?, created_at = ?, updated_at = ?
		WHERE id = ?`

	args := employeeArgs(emp)
	args = append(args[1:], emp.ID)
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &hr.DuplicateRecordError{Entity: "employee", Key: "user " + emp.UserID}
		}
		if isForeignKeyError(err) {
			return &hr.NotFoundError{Entity: "manager", ID: emp.ManagerID}
		}
		return fmt.Errorf("failed to update employee: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &hr.NotFoundError{Entity: "employee", ID: emp.ID}
	}
	return nil
}

func (q *queries) GetEmployee(ctx context.Context, id string) (*hr.Employee, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = ?`, id)
	emp, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &hr.NotFoundError{Entity: "employee", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &emp, nil
}

func (q *queries) ListEmployees(ctx context.Context, filter hr.EmployeeFilter) ([]hr.Employee, error) {
	var w where
	if filter.Status != "" {
		w.add("status = ?", string(filter.Status))
	}
	if filter.ManagerID != "" {
		w.add("manager_id = ?", filter.ManagerID)
	}

	rows, err := q.db.QueryContext(ctx, `SELECT `+employeeColumns+` FROM employees`+w.String()+` ORDER BY id`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var employees []hr.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

func (q *queries) MaxEmployeeNumber(ctx context.Context) (int, error) {
	var maxNumber sql.NullInt64
	err := q.db.QueryRowContext(ctx, `
		SELECT MAX(CAST(SUBSTR(id, 4) AS INTEGER))
		FROM employees
		WHERE id LIKE 'EMP%'
			AND SUBSTR(id, 4) GLOB '[0-9]*'
			AND SUBSTR(id, 4) NOT GLOB '*[^0-9]*'
	`).Scan(&maxNumber)
	if err != nil {
		return 0, fmt.Errorf("failed to read employee numbers: %w", err)
	}
	return int(maxNumber.Int64), nil
}

func employeeArgs(emp *hr.Employee) []any {
	return []any{
		emp.ID,
		emp.UserID,
		emp.FirstName,
		emp.LastName,
		emp.Email,
		nullString(emp.DepartmentID),
		nullString(emp.PositionID),
		nullString(emp.ManagerID),
		string(emp.Status),
		emp.HireDate.String(),
		nullDate(emp.TerminationDate),
		nullDate(emp.ProbationEndDate),
		emp.BaseSalary.String(),
		nullDecimal(emp.HourlyRate),
		emp.Schedule.Start.String(),
		emp.Schedule.End.String(),
		emp.Schedule.DaysPerWeek,
		emp.VacationDays,
		emp.SickDays,
		emp.PersonalDays,
		formatTime(emp.CreatedAt),
		formatTime(emp.UpdatedAt),
	}
}

func scanEmployee(row scanner) (hr.Employee, error) {
	var (
		emp                                hr.Employee
		department, position, manager      sql.NullString
		status, hireDate                   string
		termination, probation, hourlyRate sql.NullString
		baseSalary, workStart, workEnd     string
		createdAt, updatedAt               string
	)
	err := row.Scan(
		&emp.ID, &emp.UserID, &emp.FirstName, &emp.LastName, &emp.Email,
		&department, &position, &manager, &status, &hireDate, &termination, &probation,
		&baseSalary, &hourlyRate, &workStart, &workEnd, &emp.Schedule.DaysPerWeek,
		&emp.VacationDays, &emp.SickDays, &emp.PersonalDays, &createdAt, &updatedAt,
	)
	if err != nil {
		return emp, err
	}

	emp.DepartmentID = department.String
	emp.PositionID = position.String
	emp.ManagerID = manager.String
	emp.Status = hr.EmployeeStatus(status)

	if emp.HireDate, err = hr.ParseDate(hireDate); err != nil {
		return emp, err
	}
	if emp.TerminationDate, err = parseNullDate(termination); err != nil {
		return emp, err
	}
	if emp.ProbationEndDate, err = parseNullDate(probation); err != nil {
		return emp, err
	}
	if emp.BaseSalary, err = parseDecimal(baseSalary); err != nil {
		return emp, err
	}
	if hourlyRate.Valid {
		rate, err := parseDecimal(hourlyRate.String)
		if err != nil {
			return emp, err
		}
		emp.HourlyRate = &rate
	}
	if emp.Schedule.Start, err = hr.ParseClockTime(workStart); err != nil {
		return emp, err
	}
	if emp.Schedule.End, err = hr.ParseClockTime(workEnd); err != nil {
		return emp, err
	}
	if emp.CreatedAt, err = parseTime(createdAt); err != nil {
		return emp, err
	}
	if emp.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return emp, err
	}
	return emp, nil
}
