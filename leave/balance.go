package leave

import (
	"context"

	"github.com/warp/workforce-engine/hr"
)

// =============================================================================
// BALANCE VIEW - informational, nothing is reserved
// =============================================================================

// Balance is one leave counter as seen by the employee.
//
//	Remaining: the counter on the employee profile
//	Pending:   days in requests still awaiting a decision
//	Projected: Remaining - Pending, what is left if every pending request
//	           is approved (may be negative)
type Balance struct {
	Type      hr.LeaveType
	Remaining int
	Pending   int
	Projected int
}

// BalanceView is the per-counter summary for one employee, in LeaveTypes
// order.
type BalanceView struct {
	EmployeeID string
	Balances   []Balance
}

// Get returns the balance for t, or false when t has no counter.
func (v BalanceView) Get(t hr.LeaveType) (Balance, bool) {
	for _, b := range v.Balances {
		if b.Type == t {
			return b, true
		}
	}
	return Balance{}, false
}

// BalanceView summarizes the employee's counters and pending requests.
// Pending days are shown but not held; approval re-checks the counter.
func (l *Ledger) BalanceView(ctx context.Context, actor hr.Actor, employeeID string) (BalanceView, error) {
	if !actor.CanViewAll() && !actor.Owns(employeeID) {
		return BalanceView{}, &hr.PermissionDeniedError{Role: actor.Role, Action: "view leave balance of other employees"}
	}

	emp, err := l.Store.GetEmployee(ctx, employeeID)
	if err != nil {
		return BalanceView{}, err
	}
	pending, err := l.Store.ListLeaveRequests(ctx, hr.LeaveFilter{EmployeeID: employeeID, Status: hr.LeavePending})
	if err != nil {
		return BalanceView{}, err
	}

	pendingDays := make(map[hr.LeaveType]int)
	for _, req := range pending {
		pendingDays[req.Type] += req.DaysRequested
	}

	view := BalanceView{EmployeeID: employeeID}
	for _, t := range hr.LeaveTypes {
		remaining, ok := emp.LeaveBalance(t)
		if !ok {
			continue
		}
		view.Balances = append(view.Balances, Balance{
			Type:      t,
			Remaining: remaining,
			Pending:   pendingDays[t],
			Projected: remaining - pendingDays[t],
		})
	}
	return view, nil
}
