/*
Package leave manages leave requests and the balance they consume.

PURPOSE:
  Runs the leave request lifecycle and keeps the employee's leave counters
  in step with approved requests.

REQUEST FLOW:
  ┌──────────────────────────────────────────────────────────┐
  │                                                          │
  │  Submit ──▶ pending ──▶ Approve ──▶ approved (consumes)  │
  │                │                                         │
  │                ├──────▶ Reject  ──▶ rejected             │
  │                │                                         │
  │                └──────▶ Cancel  ──▶ cancelled            │
  │                                                          │
  └──────────────────────────────────────────────────────────┘

  Terminal states never change again. Any action on them fails with
  InvalidTransitionError.

BALANCE CONSUMPTION:
  Balance is checked and consumed at approval, never at submission.
  Vacation, sick and personal leave decrement the matching counter on the
  employee. The other leave types have no counter and are approved without
  a balance effect.

  When the counter is smaller than the request:
    PolicyReject: the approval fails with InsufficientBalanceError
    PolicyClamp:  the counter is floored at zero

CONCURRENT APPROVALS:
  The reload, balance update and status change run in one transaction, and
  the status write is compare-and-set on the request version. Of N
  concurrent approvals of one request exactly one succeeds; the others see
  a non-pending request and get InvalidTransitionError.

SEE ALSO:
  - balance.go: BalanceView (remaining, pending, projected)
  - hr/entities.go: LeaveType.HasBalance, Employee.LeaveBalance
*/
package leave

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/warp/workforce-engine/hr"
)

// =============================================================================
// BALANCE POLICY
// =============================================================================

// BalancePolicy decides what happens when an approval exceeds the counter.
type BalancePolicy string

const (
	PolicyReject BalancePolicy = "reject"
	PolicyClamp  BalancePolicy = "clamp"
)

func (p BalancePolicy) Valid() bool {
	return p == PolicyReject || p == PolicyClamp
}

// =============================================================================
// LEDGER
// =============================================================================

type SubmitInput struct {
	EmployeeID    string
	Type          hr.LeaveType
	StartDate     hr.Date
	EndDate       hr.Date
	DaysRequested int
	Reason        string
}

type Ledger struct {
	Store  hr.TxStore
	Policy BalancePolicy
	hr.Runtime
}

func NewLedger(store hr.TxStore, policy BalancePolicy, rt hr.Runtime) *Ledger {
	if !policy.Valid() {
		policy = PolicyReject
	}
	return &Ledger{Store: store, Policy: policy, Runtime: rt.Normalize()}
}

// Submit validates in and stores a pending request. No balance is checked.
func (l *Ledger) Submit(ctx context.Context, actor hr.Actor, in SubmitInput) (*hr.LeaveRequest, error) {
	if !actor.CanApproveLeave() && !actor.Owns(in.EmployeeID) {
		return nil, &hr.PermissionDeniedError{Role: actor.Role, Action: "submit leave for other employees"}
	}
	if err := l.validateSubmit(in); err != nil {
		return nil, err
	}

	if _, err := l.Store.GetEmployee(ctx, in.EmployeeID); err != nil {
		return nil, err
	}

	now := l.Clock.Now().UTC()
	req := &hr.LeaveRequest{
		ID:            hr.NewID(),
		EmployeeID:    in.EmployeeID,
		Type:          in.Type,
		StartDate:     in.StartDate,
		EndDate:       in.EndDate,
		DaysRequested: in.DaysRequested,
		Reason:        strings.TrimSpace(in.Reason),
		Status:        hr.LeavePending,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := l.Store.InsertLeaveRequest(ctx, req); err != nil {
		return nil, err
	}

	l.Logger.Info("leave submitted",
		"request_id", req.ID, "employee_id", req.EmployeeID, "type", req.Type, "days", req.DaysRequested)
	l.Emit(ctx, hr.LeaveSubmittedEvent{Request: *req})
	l.RecordAudit(ctx, actor, "leave.submit", "leave_request", req.ID,
		fmt.Sprintf("%s %d days from %s", req.Type, req.DaysRequested, req.StartDate))
	return req, nil
}

func (l *Ledger) validateSubmit(in SubmitInput) error {
	if in.EmployeeID == "" {
		return &hr.ValidationError{Field: "employee_id", Message: "is required"}
	}
	if !in.Type.Valid() {
		return &hr.ValidationError{Field: "leave_type", Message: fmt.Sprintf("unknown leave type %q", in.Type)}
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return &hr.ValidationError{Field: "start_date", Message: "start and end dates are required"}
	}
	if in.EndDate.Before(in.StartDate) {
		return &hr.ValidationError{Field: "end_date", Message: "cannot be before start date"}
	}
	if in.DaysRequested <= 0 {
		return &hr.ValidationError{Field: "days_requested", Message: "must be positive"}
	}
	if span := hr.DaysBetween(in.StartDate, in.EndDate) + 1; in.DaysRequested != span {
		return &hr.ValidationError{
			Field:   "days_requested",
			Message: fmt.Sprintf("must equal the %d days between start and end", span),
		}
	}
	if in.StartDate.Before(l.Today()) {
		return &hr.ValidationError{Field: "start_date", Message: "cannot be in the past"}
	}
	return nil
}

// Approve consumes the employee's balance and marks the request approved.
func (l *Ledger) Approve(ctx context.Context, approver hr.Actor, requestID string) (*hr.LeaveRequest, error) {
	if !approver.CanApproveLeave() {
		return nil, &hr.PermissionDeniedError{Role: approver.Role, Action: "approve leave"}
	}

	var req *hr.LeaveRequest
	err := l.Store.WithTx(ctx, func(tx hr.Store) error {
		// 1. Reload; only pending requests can be approved
		var err error
		req, err = tx.GetLeaveRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status != hr.LeavePending {
			return transitionError(req, "approve")
		}

		// 2. Consume the counter, if this leave type has one
		if req.Type.HasBalance() {
			emp, err := tx.GetEmployee(ctx, req.EmployeeID)
			if err != nil {
				return err
			}
			if err := l.consume(emp, req); err != nil {
				return err
			}
			emp.UpdatedAt = l.Clock.Now().UTC()
			if err := tx.UpdateEmployee(ctx, emp); err != nil {
				return err
			}
		}

		// 3. Compare-and-set the status
		now := l.Clock.Now().UTC()
		expected := req.Version
		req.Status = hr.LeaveApproved
		req.ApprovedBy = approver.UserID
		req.ApprovedAt = &now
		req.UpdatedAt = now
		return tx.UpdateLeaveRequest(ctx, req, expected)
	})
	if err != nil {
		return nil, staleAsTransition(err, requestID, "approve")
	}

	l.Logger.Info("leave approved", "request_id", req.ID, "employee_id", req.EmployeeID, "approver", approver.UserID)
	l.Emit(ctx, hr.LeaveApprovedEvent{Request: *req, Approver: approver.UserID})
	l.RecordAudit(ctx, approver, "leave.approve", "leave_request", req.ID,
		fmt.Sprintf("%s %d days", req.Type, req.DaysRequested))
	return req, nil
}

// consume decrements the matching counter on emp according to the policy.
func (l *Ledger) consume(emp *hr.Employee, req *hr.LeaveRequest) error {
	available, _ := emp.LeaveBalance(req.Type)
	remaining := available - req.DaysRequested
	if remaining < 0 {
		if l.Policy == PolicyReject {
			return &hr.InsufficientBalanceError{
				EmployeeID: emp.ID,
				LeaveType:  req.Type,
				Available:  available,
				Requested:  req.DaysRequested,
			}
		}
		l.Logger.Warn("leave balance clamped at zero",
			"employee_id", emp.ID, "type", req.Type, "available", available, "requested", req.DaysRequested)
		remaining = 0
	}
	emp.SetLeaveBalance(req.Type, remaining)
	return nil
}

// Reject closes a pending request. A reason is mandatory.
func (l *Ledger) Reject(ctx context.Context, approver hr.Actor, requestID, reason string) (*hr.LeaveRequest, error) {
	if !approver.CanApproveLeave() {
		return nil, &hr.PermissionDeniedError{Role: approver.Role, Action: "reject leave"}
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, &hr.ValidationError{Field: "rejection_reason", Message: "is required"}
	}

	req, err := l.close(ctx, requestID, "reject", func(req *hr.LeaveRequest) error {
		req.Status = hr.LeaveRejected
		req.ApprovedBy = approver.UserID
		req.RejectionReason = reason
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.Emit(ctx, hr.LeaveRejectedEvent{Request: *req, Approver: approver.UserID})
	l.RecordAudit(ctx, approver, "leave.reject", "leave_request", req.ID, reason)
	return req, nil
}

// Cancel withdraws a pending request. The owner or an approver may cancel.
func (l *Ledger) Cancel(ctx context.Context, actor hr.Actor, requestID string) (*hr.LeaveRequest, error) {
	req, err := l.close(ctx, requestID, "cancel", func(req *hr.LeaveRequest) error {
		if !actor.CanApproveLeave() && !actor.Owns(req.EmployeeID) {
			return &hr.PermissionDeniedError{Role: actor.Role, Action: "cancel leave of other employees"}
		}
		req.Status = hr.LeaveCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.Emit(ctx, hr.LeaveCancelledEvent{Request: *req})
	l.RecordAudit(ctx, actor, "leave.cancel", "leave_request", req.ID, "cancelled")
	return req, nil
}

// close moves a pending request to a terminal state without balance effect.
func (l *Ledger) close(ctx context.Context, requestID, action string, mutate func(*hr.LeaveRequest) error) (*hr.LeaveRequest, error) {
	var req *hr.LeaveRequest
	err := l.Store.WithTx(ctx, func(tx hr.Store) error {
		var err error
		req, err = tx.GetLeaveRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status != hr.LeavePending {
			return transitionError(req, action)
		}
		expected := req.Version
		if err := mutate(req); err != nil {
			return err
		}
		req.UpdatedAt = l.Clock.Now().UTC()
		return tx.UpdateLeaveRequest(ctx, req, expected)
	})
	if err != nil {
		return nil, staleAsTransition(err, requestID, action)
	}
	return req, nil
}

// Get returns one request. Employees may only read their own.
func (l *Ledger) Get(ctx context.Context, actor hr.Actor, requestID string) (*hr.LeaveRequest, error) {
	req, err := l.Store.GetLeaveRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !actor.CanViewAll() && !actor.Owns(req.EmployeeID) {
		return nil, &hr.PermissionDeniedError{Role: actor.Role, Action: "view leave of other employees"}
	}
	return req, nil
}

// List returns requests matching filter. Employees are restricted to their
// own requests.
func (l *Ledger) List(ctx context.Context, actor hr.Actor, filter hr.LeaveFilter) ([]hr.LeaveRequest, error) {
	if !actor.CanViewAll() {
		if filter.EmployeeID != "" && !actor.Owns(filter.EmployeeID) {
			return nil, &hr.PermissionDeniedError{Role: actor.Role, Action: "view leave of other employees"}
		}
		filter.EmployeeID = actor.EmployeeID
	}
	return l.Store.ListLeaveRequests(ctx, filter)
}

// =============================================================================
// HELPERS
// =============================================================================

func transitionError(req *hr.LeaveRequest, action string) error {
	return &hr.InvalidTransitionError{
		Entity: "leave request",
		ID:     req.ID,
		From:   string(req.Status),
		Action: action,
	}
}

// staleAsTransition reports a lost compare-and-set as an invalid transition:
// the request is no longer in the state the caller read.
func staleAsTransition(err error, requestID, action string) error {
	if errors.Is(err, hr.ErrConcurrentModification) {
		return &hr.InvalidTransitionError{Entity: "leave request", ID: requestID, From: "modified", Action: action}
	}
	return err
}
