package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/workforce-engine/hr"
)

// =============================================================================
// PAYROLL STORE (hr.PayrollStore interface)
// =============================================================================

const payrollColumns = `id, employee_id, period_start, period_end, base_salary, hours_worked,
	overtime_hours, overtime_pay, deductions, bonuses, net_salary, status, created_by,
	approved_by, approved_at, rejection_reason, payslip_generated, payslip_path, version,
	created_at, updated_at`

func (q *queries) InsertPayroll(ctx context.Context, p *hr.Payroll) error {
	if p.Version == 0 {
		p.Version = 1
	}
	query := `INSERT INTO payrolls (` + payrollColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := q.db.ExecContext(ctx, query,
		p.ID,
		p.EmployeeID,
		p.PeriodStart.String(),
		p.PeriodEnd.String(),
		p.BaseSalary.String(),
		p.HoursWorked.String(),
		p.OvertimeHours.String(),
		p.OvertimePay.String(),
		p.Deductions.String(),
		p.Bonuses.String(),
		p.NetSalary.String(),
		string(p.Status),
		p.CreatedBy,
		nullString(p.ApprovedBy),
		nullTime(p.ApprovedAt),
		nullString(p.RejectionReason),
		p.PayslipGenerated,
		nullString(p.PayslipPath),
		p.Version,
		formatTime(p.CreatedAt),
		formatTime(p.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &hr.DuplicateRecordError{Entity: "payroll", Key: p.EmployeeID + " " + p.Period().String()}
		}
		if isForeignKeyError(err) {
			return &hr.NotFoundError{Entity: "employee", ID: p.EmployeeID}
		}
		return fmt.Errorf("failed to insert payroll: %w", err)
	}
	return nil
}

// UpdatePayroll rewrites every mutable column if the stored version still
// equals expectedVersion. On success p.Version is advanced.
func (q *queries) UpdatePayroll(ctx context.Context, p *hr.Payroll, expectedVersion int) error {
	query := `UPDATE payrolls SET
		base_salary = ?, hours_worked = ?, overtime_hours = ?, overtime_pay = ?,
		deductions = ?, bonuses = ?, net_salary = ?, status = ?,
		approved_by = ?, approved_at = ?, rejection_reason = ?,
		payslip_generated = ?, payslip_path = ?, version = ?, updated_at = ?
		WHERE id = ? AND version = ?`

	res, err := q.db.ExecContext(ctx, query,
		p.BaseSalary.String(),
		p.HoursWorked.String(),
		p.OvertimeHours.String(),
		p.OvertimePay.String(),
		p.Deductions.String(),
		p.Bonuses.String(),
		p.NetSalary.String(),
		string(p.Status),
		nullString(p.ApprovedBy),
		nullTime(p.ApprovedAt),
		nullString(p.RejectionReason),
		p.PayslipGenerated,
		nullString(p.PayslipPath),
		expectedVersion+1,
		formatTime(p.UpdatedAt),
		p.ID,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update payroll: %w", err)
	}
	if err := q.checkAffected(ctx, res, "payrolls", "payroll", p.ID); err != nil {
		return err
	}
	p.Version = expectedVersion + 1
	return nil
}

func (q *queries) GetPayroll(ctx context.Context, id string) (*hr.Payroll, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+payrollColumns+` FROM payrolls WHERE id = ?`, id)
	p, err := scanPayroll(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &hr.NotFoundError{Entity: "payroll", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (q *queries) FindPayroll(ctx context.Context, employeeID string, period hr.Period) (*hr.Payroll, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+payrollColumns+` FROM payrolls WHERE employee_id = ? AND period_start = ? AND period_end = ?`,
		employeeID, period.Start.String(), period.End.String())
	p, err := scanPayroll(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &hr.NotFoundError{Entity: "payroll", ID: employeeID + " " + period.String()}
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (q *queries) ListPayrolls(ctx context.Context, filter hr.PayrollFilter) ([]hr.Payroll, error) {
	var w where
	if filter.EmployeeID != "" {
		w.add("employee_id = ?", filter.EmployeeID)
	}
	if filter.Status != "" {
		w.add("status = ?", string(filter.Status))
	}
	if filter.Period != nil {
		w.add("period_start = ?", filter.Period.Start.String())
		w.add("period_end = ?", filter.Period.End.String())
	}

	rows, err := q.db.QueryContext(ctx,
		`SELECT `+payrollColumns+` FROM payrolls`+w.String()+` ORDER BY period_start DESC, employee_id ASC`,
		w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payrolls: %w", err)
	}
	defer rows.Close()

	var payrolls []hr.Payroll
	for rows.Next() {
		p, err := scanPayroll(rows)
		if err != nil {
			return nil, err
		}
		payrolls = append(payrolls, p)
	}
	return payrolls, rows.Err()
}

func scanPayroll(row scanner) (hr.Payroll, error) {
	var (
		p                                             hr.Payroll
		periodStart, periodEnd, status                string
		baseSalary, hoursWorked, overtimeHours        string
		overtimePay, deductions, bonuses, netSalary   string
		approvedBy, approvedAt, rejectionReason, path sql.NullString
		createdAt, updatedAt                          string
	)
	err := row.Scan(&p.ID, &p.EmployeeID, &periodStart, &periodEnd, &baseSalary, &hoursWorked,
		&overtimeHours, &overtimePay, &deductions, &bonuses, &netSalary, &status, &p.CreatedBy,
		&approvedBy, &approvedAt, &rejectionReason, &p.PayslipGenerated, &path, &p.Version,
		&createdAt, &updatedAt)
	if err != nil {
		return p, err
	}

	p.Status = hr.PayrollStatus(status)
	p.ApprovedBy = approvedBy.String
	p.RejectionReason = rejectionReason.String
	p.PayslipPath = path.String

	if p.PeriodStart, err = hr.ParseDate(periodStart); err != nil {
		return p, err
	}
	if p.PeriodEnd, err = hr.ParseDate(periodEnd); err != nil {
		return p, err
	}
	decimals := []struct {
		raw string
		dst *decimal.Decimal
	}{
		{baseSalary, &p.BaseSalary},
		{hoursWorked, &p.HoursWorked},
		{overtimeHours, &p.OvertimeHours},
		{overtimePay, &p.OvertimePay},
		{deductions, &p.Deductions},
		{bonuses, &p.Bonuses},
		{netSalary, &p.NetSalary},
	}
	for _, d := range decimals {
		if *d.dst, err = parseDecimal(d.raw); err != nil {
			return p, err
		}
	}
	if p.ApprovedAt, err = parseNullTime(approvedAt); err != nil {
		return p, err
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return p, err
	}
	p.UpdatedAt, err = parseTime(updatedAt)
	return p, err
}
