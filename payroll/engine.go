package payroll

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/workforce-engine/hr"
)

// =============================================================================
// INPUTS
// =============================================================================

// CreateInput describes a new payroll. A nil BaseSalary snapshots the
// employee's current salary.
type CreateInput struct {
	EmployeeID    string
	Period        hr.Period
	BaseSalary    *decimal.Decimal
	HoursWorked   decimal.Decimal
	OvertimeHours decimal.Decimal
	Deductions    decimal.Decimal
	Bonuses       decimal.Decimal
}

// UpdateInput patches the amounts that are set; the net salary is always
// recomputed.
type UpdateInput struct {
	BaseSalary    *decimal.Decimal
	HoursWorked   *decimal.Decimal
	OvertimeHours *decimal.Decimal
	Deductions    *decimal.Decimal
	Bonuses       *decimal.Decimal
}

// =============================================================================
// ENGINE
// =============================================================================

type Engine struct {
	Store      hr.TxStore
	Params     Params
	PayslipDir string
	hr.Runtime
}

func NewEngine(store hr.TxStore, params Params, payslipDir string, rt hr.Runtime) *Engine {
	if payslipDir == "" {
		payslipDir = "payslips"
	}
	return &Engine{Store: store, Params: params, PayslipDir: payslipDir, Runtime: rt.Normalize()}
}

// Create computes and stores a draft payroll. An existing record for the same
// employee and period yields DuplicateRecordError and nothing is written.
func (e *Engine) Create(ctx context.Context, actor hr.Actor, in CreateInput) (*hr.Payroll, error) {
	if !actor.CanManagePayroll() {
		return nil, &hr.PermissionDeniedError{Role: actor.Role, Action: "create payroll"}
	}

	var p *hr.Payroll
	err := e.Store.WithTx(ctx, func(tx hr.Store) error {
		var err error
		p, err = e.CreateIn(ctx, tx, actor, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.Announce(ctx, actor, p)
	return p, nil
}

// CreateIn runs the create path against tx, an open transaction. The caller
// commits and then calls Announce.
func (e *Engine) CreateIn(ctx context.Context, tx hr.Store, actor hr.Actor, in CreateInput) (*hr.Payroll, error) {
	if in.EmployeeID == "" {
		return nil, &hr.ValidationError{Field: "employee_id", Message: "is required"}
	}
	if err := in.Period.Validate(); err != nil {
		return nil, err
	}

	emp, err := tx.GetEmployee(ctx, in.EmployeeID)
	if err != nil {
		return nil, err
	}

	if existing, err := tx.FindPayroll(ctx, in.EmployeeID, in.Period); err == nil {
		return nil, &hr.DuplicateRecordError{Entity: "payroll", Key: existing.EmployeeID + " for " + in.Period.String()}
	} else if !hr.IsNotFound(err) {
		return nil, err
	}

	now := e.Clock.Now().UTC()
	p := &hr.Payroll{
		ID:            hr.NewID(),
		EmployeeID:    in.EmployeeID,
		PeriodStart:   in.Period.Start,
		PeriodEnd:     in.Period.End,
		BaseSalary:    emp.BaseSalary,
		HoursWorked:   in.HoursWorked,
		OvertimeHours: in.OvertimeHours,
		Deductions:    in.Deductions,
		Bonuses:       in.Bonuses,
		Status:        hr.PayrollDraft,
		CreatedBy:     actor.UserID,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if in.BaseSalary != nil {
		p.BaseSalary = *in.BaseSalary
	}
	if err := recompute(p, emp.Schedule, e.Params); err != nil {
		return nil, err
	}
	if err := tx.InsertPayroll(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Announce publishes PayrollReady and audits the creation of p.
func (e *Engine) Announce(ctx context.Context, actor hr.Actor, p *hr.Payroll) {
	e.Logger.Info("payroll created",
		"payroll_id", p.ID, "employee_id", p.EmployeeID, "period", p.Period().String(), "net", p.NetSalary.StringFixed(hr.Scale))
	e.Emit(ctx, hr.PayrollReadyEvent{Payroll: *p})
	e.RecordAudit(ctx, actor, "payroll.create", "payroll", p.ID,
		fmt.Sprintf("%s %s net %s", p.EmployeeID, p.Period(), p.NetSalary.StringFixed(hr.Scale)))
}

// Update changes the amounts of a draft or pending payroll and recomputes it.
func (e *Engine) Update(ctx context.Context, actor hr.Actor, id string, in UpdateInput) (*hr.Payroll, error) {
	if !actor.CanManagePayroll() {
		return nil, &hr.PermissionDeniedError{Role: actor.Role, Action: "edit payroll"}
	}

	var p *hr.Payroll
	err := e.Store.WithTx(ctx, func(tx hr.Store) error {
		var err error
		p, err = tx.GetPayroll(ctx, id)
		if err != nil {
			return err
		}
		if !Editable(p.Status) {
			return &hr.InvalidTransitionError{Entity: "payroll", ID: id, From: string(p.Status), Action: "edit"}
		}
		emp, err := tx.GetEmployee(ctx, p.EmployeeID)
		if err != nil {
			return err
		}

		if in.BaseSalary != nil {
			p.BaseSalary = *in.BaseSalary
		}
		if in.HoursWorked != nil {
			p.HoursWorked = *in.HoursWorked
		}
		if in.OvertimeHours != nil {
			p.OvertimeHours = *in.OvertimeHours
		}
		if in.Deductions != nil {
			p.Deductions = *in.Deductions
		}
		if in.Bonuses != nil {
			p.Bonuses = *in.Bonuses
		}
		if err := recompute(p, emp.Schedule, e.Params); err != nil {
			return err
		}
		p.UpdatedAt = e.Clock.Now().UTC()
		return tx.UpdatePayroll(ctx, p, p.Version)
	})
	if err != nil {
		return nil, staleAsTransition(err, id, "edit")
	}

	e.RecordAudit(ctx, actor, "payroll.update", "payroll", p.ID, "net "+p.NetSalary.StringFixed(hr.Scale))
	return p, nil
}

// Submit moves a draft payroll to pending.
func (e *Engine) Submit(ctx context.Context, actor hr.Actor, id string) (*hr.Payroll, error) {
	p, err := e.transition(ctx, actor, id, ActionSubmit, nil)
	if err != nil {
		return nil, err
	}
	e.RecordAudit(ctx, actor, "payroll.submit", "payroll", p.ID, "submitted for approval")
	return p, nil
}

// Approve authorizes a draft or pending payroll for payment.
func (e *Engine) Approve(ctx context.Context, actor hr.Actor, id string) (*hr.Payroll, error) {
	p, err := e.transition(ctx, actor, id, ActionApprove, func(p *hr.Payroll) {
		now := e.Clock.Now().UTC()
		p.ApprovedBy = actor.UserID
		p.ApprovedAt = &now
	})
	if err != nil {
		return nil, err
	}
	e.Emit(ctx, hr.PayrollApprovedEvent{Payroll: *p})
	e.RecordAudit(ctx, actor, "payroll.approve", "payroll", p.ID, "net "+p.NetSalary.StringFixed(hr.Scale))
	return p, nil
}

// Reject closes a draft or pending payroll. A reason is mandatory.
func (e *Engine) Reject(ctx context.Context, actor hr.Actor, id, reason string) (*hr.Payroll, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, &hr.ValidationError{Field: "rejection_reason", Message: "is required"}
	}
	p, err := e.transition(ctx, actor, id, ActionReject, func(p *hr.Payroll) {
		p.RejectionReason = reason
	})
	if err != nil {
		return nil, err
	}
	e.Emit(ctx, hr.PayrollRejectedEvent{Payroll: *p})
	e.RecordAudit(ctx, actor, "payroll.reject", "payroll", p.ID, reason)
	return p, nil
}

// MarkPaid records the disbursement of an approved payroll.
func (e *Engine) MarkPaid(ctx context.Context, actor hr.Actor, id string) (*hr.Payroll, error) {
	p, err := e.transition(ctx, actor, id, ActionPay, nil)
	if err != nil {
		return nil, err
	}
	e.RecordAudit(ctx, actor, "payroll.pay", "payroll", p.ID, "paid "+p.NetSalary.StringFixed(hr.Scale))
	return p, nil
}

// transition applies action to the payroll with compare-and-set on its
// version.
func (e *Engine) transition(ctx context.Context, actor hr.Actor, id string, action Action, mutate func(*hr.Payroll)) (*hr.Payroll, error) {
	if !actor.CanManagePayroll() {
		return nil, &hr.PermissionDeniedError{Role: actor.Role, Action: string(action) + " payroll"}
	}

	var p *hr.Payroll
	err := e.Store.WithTx(ctx, func(tx hr.Store) error {
		var err error
		p, err = tx.GetPayroll(ctx, id)
		if err != nil {
			return err
		}
		next, ok := Next(p.Status, action)
		if !ok {
			return &hr.InvalidTransitionError{Entity: "payroll", ID: id, From: string(p.Status), Action: string(action)}
		}
		p.Status = next
		if mutate != nil {
			mutate(p)
		}
		p.UpdatedAt = e.Clock.Now().UTC()
		return tx.UpdatePayroll(ctx, p, p.Version)
	})
	if err != nil {
		return nil, staleAsTransition(err, id, string(action))
	}

	e.Logger.Info("payroll "+string(action), "payroll_id", p.ID, "status", p.Status, "actor", actor.UserID)
	return p, nil
}

// Get returns one payroll. Employees may only read their own.
func (e *Engine) Get(ctx context.Context, actor hr.Actor, id string) (*hr.Payroll, error) {
	p, err := e.Store.GetPayroll(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanViewAll() && !actor.Owns(p.EmployeeID) {
		return nil, &hr.PermissionDeniedError{Role: actor.Role, Action: "view payroll of other employees"}
	}
	return p, nil
}

func (e *Engine) List(ctx context.Context, actor hr.Actor, filter hr.PayrollFilter) ([]hr.Payroll, error) {
	if !actor.CanViewAll() {
		if filter.EmployeeID != "" && !actor.Owns(filter.EmployeeID) {
			return nil, &hr.PermissionDeniedError{Role: actor.Role, Action: "view payroll of other employees"}
		}
		filter.EmployeeID = actor.EmployeeID
	}
	return e.Store.ListPayrolls(ctx, filter)
}

// =============================================================================
// PAYSLIP
// =============================================================================

// GeneratePayslip writes the PDF payslip of an approved payroll and sets
// PayslipGenerated. It succeeds once per payroll.
func (e *Engine) GeneratePayslip(ctx context.Context, actor hr.Actor, id string) (*hr.Payroll, error) {
	if !actor.CanManagePayroll() {
		return nil, &hr.PermissionDeniedError{Role: actor.Role, Action: "generate payslips"}
	}
	if err := os.MkdirAll(e.PayslipDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create payslip directory: %w", err)
	}

	var p *hr.Payroll
	err := e.Store.WithTx(ctx, func(tx hr.Store) error {
		var err error
		p, err = tx.GetPayroll(ctx, id)
		if err != nil {
			return err
		}
		if p.Status != hr.PayrollApproved {
			return &hr.InvalidTransitionError{Entity: "payroll", ID: id, From: string(p.Status), Action: "generate payslip for"}
		}
		if p.PayslipGenerated {
			return &hr.InvalidTransitionError{Entity: "payroll", ID: id, From: "payslip_generated", Action: "generate payslip for"}
		}
		emp, err := tx.GetEmployee(ctx, p.EmployeeID)
		if err != nil {
			return err
		}

		path := filepath.Join(e.PayslipDir, fmt.Sprintf("payslip_%s_%s.pdf", p.EmployeeID, p.ID))
		if err := WritePayslipPDF(path, p, emp); err != nil {
			return err
		}
		p.PayslipGenerated = true
		p.PayslipPath = path
		p.UpdatedAt = e.Clock.Now().UTC()
		if err := tx.UpdatePayroll(ctx, p, p.Version); err != nil {
			os.Remove(path)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, staleAsTransition(err, id, "generate payslip for")
	}

	e.RecordAudit(ctx, actor, "payroll.payslip", "payroll", p.ID, p.PayslipPath)
	return p, nil
}

func staleAsTransition(err error, id, action string) error {
	if errors.Is(err, hr.ErrConcurrentModification) {
		return &hr.InvalidTransitionError{Entity: "payroll", ID: id, From: "modified", Action: action}
	}
	return err
}
