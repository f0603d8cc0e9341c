package payroll

import "github.com/warp/workforce-engine/hr"

// =============================================================================
// STATUS WORKFLOW
// =============================================================================
//
//	draft ──submit──▶ pending ──approve──▶ approved ──pay──▶ paid
//	  │                  │
//	  ├──approve─────────┼──────────────▶ approved
//	  │                  │
//	  └──reject──────────┴──────────────▶ rejected
//
// paid and rejected are terminal. Only draft and pending records can be
// edited.

type Action string

const (
	ActionSubmit  Action = "submit"
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionPay     Action = "pay"
)

var transitions = map[Action]struct {
	from []hr.PayrollStatus
	to   hr.PayrollStatus
}{
	ActionSubmit:  {from: []hr.PayrollStatus{hr.PayrollDraft}, to: hr.PayrollPending},
	ActionApprove: {from: []hr.PayrollStatus{hr.PayrollDraft, hr.PayrollPending}, to: hr.PayrollApproved},
	ActionReject:  {from: []hr.PayrollStatus{hr.PayrollDraft, hr.PayrollPending}, to: hr.PayrollRejected},
	ActionPay:     {from: []hr.PayrollStatus{hr.PayrollApproved}, to: hr.PayrollPaid},
}

// Next returns the status reached by applying action in status from.
func Next(from hr.PayrollStatus, action Action) (hr.PayrollStatus, bool) {
	t, ok := transitions[action]
	if !ok {
		return "", false
	}
	for _, allowed := range t.from {
		if allowed == from {
			return t.to, true
		}
	}
	return "", false
}

// Editable reports whether amounts may still change in status s.
func Editable(s hr.PayrollStatus) bool {
	return s == hr.PayrollDraft || s == hr.PayrollPending
}
