package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/warp/workforce-engine/hr"
)

// =============================================================================
// LEAVE STORE (hr.LeaveStore interface)
// =============================================================================

const leaveColumns = `id, employee_id, leave_type, start_date, end_date, days_requested, reason,
	status, approved_by, approved_at, rejection_reason, version, created_at, updated_at`

func (q *queries) InsertLeaveRequest(ctx context.Context, req *hr.LeaveRequest) error {
	if req.Version == 0 {
		req.Version = 1
	}
	query := `INSERT INTO leave_requests (` + leaveColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := q.db.ExecContext(ctx, query,
		req.ID,
		req.EmployeeID,
		string(req.Type),
		req.StartDate.String(),
		req.EndDate.String(),
		req.DaysRequested,
		req.Reason,
		string(req.Status),
		nullString(req.ApprovedBy),
		nullTime(req.ApprovedAt),
		nullString(req.RejectionReason),
		req.Version,
		formatTime(req.CreatedAt),
		formatTime(req.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &hr.DuplicateRecordError{Entity: "leave request", Key: req.ID}
		}
		if isForeignKeyError(err) {
			return &hr.NotFoundError{Entity: "employee", ID: req.EmployeeID}
		}
		return fmt.Errorf("failed to insert leave request: %w", err)
	}
	return nil
}

// UpdateLeaveRequest writes the mutable workflow fields if the stored version
// still equals expectedVersion. On success req.Version is advanced.
func (q *queries) UpdateLeaveRequest(ctx context.Context, req *hr.LeaveRequest, expectedVersion int) error {
	query := `UPDATE leave_requests SET
		status = ?, approved_by = ?, approved_at = ?, rejection_reason = ?,
		version = ?, updated_at = ?
		WHERE id = ? AND version = ?`

	res, err := q.db.ExecContext(ctx, query,
		string(req.Status),
		nullString(req.ApprovedBy),
		nullTime(req.ApprovedAt),
		nullString(req.RejectionReason),
		expectedVersion+1,
		formatTime(req.UpdatedAt),
		req.ID,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update leave request: %w", err)
	}
	if err := q.checkAffected(ctx, res, "leave_requests", "leave request", req.ID); err != nil {
		return err
	}
	req.Version = expectedVersion + 1
	return nil
}

func (q *queries) GetLeaveRequest(ctx context.Context, id string) (*hr.LeaveRequest, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+leaveColumns+` FROM leave_requests WHERE id = ?`, id)
	req, err := scanLeaveRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &hr.NotFoundError{Entity: "leave request", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (q *queries) ListLeaveRequests(ctx context.Context, filter hr.LeaveFilter) ([]hr.LeaveRequest, error) {
	var w where
	if filter.EmployeeID != "" {
		w.add("employee_id = ?", filter.EmployeeID)
	}
	if filter.Status != "" {
		w.add("status = ?", string(filter.Status))
	}
	if filter.Type != "" {
		w.add("leave_type = ?", string(filter.Type))
	}

	rows, err := q.db.QueryContext(ctx,
		`SELECT `+leaveColumns+` FROM leave_requests`+w.String()+` ORDER BY start_date ASC, created_at ASC`,
		w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leave requests: %w", err)
	}
	defer rows.Close()

	var requests []hr.LeaveRequest
	for rows.Next() {
		req, err := scanLeaveRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

func scanLeaveRequest(row scanner) (hr.LeaveRequest, error) {
	var (
		req                                     hr.LeaveRequest
		leaveType, startDate, endDate, status   string
		approvedBy, approvedAt, rejectionReason sql.NullString
		createdAt, updatedAt                    string
	)
	err := row.Scan(&req.ID, &req.EmployeeID, &leaveType, &startDate, &endDate, &req.DaysRequested,
		&req.Reason, &status, &approvedBy, &approvedAt, &rejectionReason, &req.Version,
		&createdAt, &updatedAt)
	if err != nil {
		return req, err
	}

	req.Type = hr.LeaveType(leaveType)
	req.Status = hr.LeaveStatus(status)
	req.ApprovedBy = approvedBy.String
	req.RejectionReason = rejectionReason.String

	if req.StartDate, err = hr.ParseDate(startDate); err != nil {
		return req, err
	}
	if req.EndDate, err = hr.ParseDate(endDate); err != nil {
		return req, err
	}
	if req.ApprovedAt, err = parseNullTime(approvedAt); err != nil {
		return req, err
	}
	if req.CreatedAt, err = parseTime(createdAt); err != nil {
		return req, err
	}
	req.UpdatedAt, err = parseTime(updatedAt)
	return req, err
}
