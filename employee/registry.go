/*
Package employee maintains employment profiles.

PURPOSE:
  Creates and updates employees while holding the profile invariants:
  - ids are EMP### and assigned from the highest existing number
  - termination and probation end never precede the hire date
  - the work schedule is well formed (1-7 days per week)
  - leave counters are never negative
  - the manager chain has no cycles

  Leave counters change here only on explicit adjustment; the leave ledger
  is the only component that consumes them.

SEE ALSO:
  - hr/store.go: EmployeeStore
  - leave: Balance consumption on approval
*/
package employee

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/workforce-engine/hr"
)

// MaxManagerDepth bounds the manager-chain walk during cycle detection.
const MaxManagerDepth = 64

// FormatID renders the n-th employee id.
func FormatID(n int) string {
	return fmt.Sprintf("EMP%03d", n)
}

// =============================================================================
// INPUTS
// =============================================================================

// CreateInput describes a new employee. A nil Schedule means
// hr.DefaultSchedule.
type CreateInput struct {
	UserID           string
	FirstName        string
	LastName         string
	Email            string
	DepartmentID     string
	PositionID       string
	ManagerID        string
	Status           hr.EmployeeStatus
	HireDate         hr.Date
	TerminationDate  hr.Date
	ProbationEndDate hr.Date
	BaseSalary       decimal.Decimal
	HourlyRate       *decimal.Decimal
	Schedule         *hr.Schedule
	VacationDays     int
	SickDays         int
	PersonalDays     int
}

// UpdateInput patches the fields that are set. The manager is changed through
// SetManager.
type UpdateInput struct {
	FirstName        *string
	LastName         *string
	Email            *string
	DepartmentID     *string
	PositionID       *string
	Status           *hr.EmployeeStatus
	TerminationDate  *hr.Date
	ProbationEndDate *hr.Date
	BaseSalary       *decimal.Decimal
	HourlyRate       *decimal.Decimal
	Schedule         *hr.Schedule
	VacationDays     *int
	SickDays         *int
	PersonalDays     *int
}

// =============================================================================
// REGISTRY
// =============================================================================

type Registry struct {
	Store hr.TxStore
	hr.Runtime
}

func NewRegistry(store hr.TxStore, rt hr.Runtime) *Registry {
	return &Registry{Store: store, Runtime: rt.Normalize()}
}

// Create validates in and stores a new employee with the next EMP### id.
func (r *Registry) Create(ctx context.Context, actor hr.Actor, in CreateInput) (*hr.Employee, error) {
	if !actor.CanEditEmployees() {
		return nil, &hr.PermissionDeniedError{Role: actor.Role, Action: "create employees"}
	}

	now := r.Clock.Now().UTC()
	emp := &hr.Employee{
		UserID:           in.UserID,
		FirstName:        in.FirstName,
		LastName:         in.LastName,
		Email:            in.Email,
		DepartmentID:     in.DepartmentID,
		PositionID:       in.PositionID,
		ManagerID:        in.ManagerID,
		Status:           in.Status,
		HireDate:         in.HireDate,
		TerminationDate:  in.TerminationDate,
		ProbationEndDate: in.ProbationEndDate,
		BaseSalary:       in.BaseSalary,
		HourlyRate:       in.HourlyRate,
		Schedule:         hr.DefaultSchedule(),
		VacationDays:     in.VacationDays,
		SickDays:         in.SickDays,
		PersonalDays:     in.PersonalDays,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if emp.Status == "" {
		emp.Status = hr.EmployeeActive
	}
	if in.Schedule != nil {
		emp.Schedule = *in.Schedule
	}
	if emp.UserID == "" {
		return nil, &hr.ValidationError{Field: "user_id", Message: "is required"}
	}
	if err := validate(emp); err != nil {
		return nil, err
	}

	err := r.Store.WithTx(ctx, func(tx hr.Store) error {
		if emp.ManagerID != "" {
			if _, err := tx.GetEmployee(ctx, emp.ManagerID); err != nil {
				return err
			}
		}
		n, err := tx.MaxEmployeeNumber(ctx)
		if err != nil {
			return err
		}
		emp.ID = FormatID(n + 1)
		return tx.InsertEmployee(ctx, emp)
	})
	if err != nil {
		return nil, err
	}

	r.Logger.Info("employee created", "employee_id", emp.ID, "user_id", emp.UserID)
	r.RecordAudit(ctx, actor, "employee.create", "employee", emp.ID, emp.FullName())
	return emp, nil
}

// Update applies the set fields of in and re-validates the profile.
func (r *Registry) Update(ctx context.Context, actor hr.Actor, id string, in UpdateInput) (*hr.Employee, error) {
	if !actor.CanEditEmployees() {
		return nil, &hr.PermissionDeniedError{Role: actor.Role, Action: "edit employees"}
	}

	var emp *hr.Employee
	err := r.Store.WithTx(ctx, func(tx hr.Store) error {
		var err error
		emp, err = tx.GetEmployee(ctx, id)
		if err != nil {
			return err
		}
		apply(emp, in)
		if err := validate(emp); err != nil {
			return err
		}
		emp.UpdatedAt = r.Clock.Now().UTC()
		return tx.UpdateEmployee(ctx, emp)
	})
	if err != nil {
		return nil, err
	}

	r.RecordAudit(ctx, actor, "employee.update", "employee", emp.ID, "profile updated")
	return emp, nil
}

// SetManager points id at managerID (empty clears it). Assignments that
// would close a loop in the manager chain are rejected.
func (r *Registry) SetManager(ctx context.Context, actor hr.Actor, id, managerID string) (*hr.Employee, error) {
	if !actor.CanEditEmployees() {
		return nil, &hr.PermissionDeniedError{Role: actor.Role, Action: "edit employees"}
	}

	var emp *hr.Employee
	err := r.Store.WithTx(ctx, func(tx hr.Store) error {
		var err error
		emp, err = tx.GetEmployee(ctx, id)
		if err != nil {
			return err
		}
		if managerID != "" {
			if err := checkManagerChain(ctx, tx, id, managerID); err != nil {
				return err
			}
		}
		emp.ManagerID = managerID
		emp.UpdatedAt = r.Clock.Now().UTC()
		return tx.UpdateEmployee(ctx, emp)
	})
	if err != nil {
		return nil, err
	}

	r.RecordAudit(ctx, actor, "employee.set_manager", "employee", id, "manager "+managerID)
	return emp, nil
}

// Get returns one employee. Employees may only read their own profile.
func (r *Registry) Get(ctx context.Context, actor hr.Actor, id string) (*hr.Employee, error) {
	if !actor.CanViewAll() && !actor.Owns(id) {
		return nil, &hr.PermissionDeniedError{Role: actor.Role, Action: "view other employees"}
	}
	return r.Store.GetEmployee(ctx, id)
}

func (r *Registry) List(ctx context.Context, actor hr.Actor, filter hr.EmployeeFilter) ([]hr.Employee, error) {
	if !actor.CanViewAll() {
		return nil, &hr.PermissionDeniedError{Role: actor.Role, Action: "list employees"}
	}
	return r.Store.ListEmployees(ctx, filter)
}

// =============================================================================
// VALIDATION
// =============================================================================

func validate(emp *hr.Employee) error {
	if emp.HireDate.IsZero() {
		return &hr.ValidationError{Field: "hire_date", Message: "is required"}
	}
	if !emp.Status.Valid() {
		return &hr.ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", emp.Status)}
	}
	if !emp.TerminationDate.IsZero() && emp.TerminationDate.Before(emp.HireDate) {
		return &hr.ValidationError{Field: "termination_date", Message: "cannot be before hire date"}
	}
	if !emp.ProbationEndDate.IsZero() && emp.ProbationEndDate.Before(emp.HireDate) {
		return &hr.ValidationError{Field: "probation_end_date", Message: "cannot be before hire date"}
	}
	if err := emp.Schedule.Validate(); err != nil {
		return err
	}
	if emp.BaseSalary.IsNegative() {
		return &hr.ValidationError{Field: "base_salary", Message: "cannot be negative"}
	}
	salary, err := hr.CheckPrecision("base_salary", emp.BaseSalary)
	if err != nil {
		return err
	}
	emp.BaseSalary = salary
	if emp.HourlyRate != nil {
		rate, err := hr.CheckPrecision("hourly_rate", *emp.HourlyRate)
		if err != nil {
			return err
		}
		emp.HourlyRate = &rate
	}
	for _, c := range []struct {
		field string
		days  int
	}{
		{"vacation_days", emp.VacationDays},
		{"sick_days", emp.SickDays},
		{"personal_days", emp.PersonalDays},
	} {
		if c.days < 0 {
			return &hr.ValidationError{Field: c.field, Message: "cannot be negative"}
		}
	}
	return nil
}

func apply(emp *hr.Employee, in UpdateInput) {
	if in.FirstName != nil {
		emp.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		emp.LastName = *in.LastName
	}
	if in.Email != nil {
		emp.Email = *in.Email
	}
	if in.DepartmentID != nil {
		emp.DepartmentID = *in.DepartmentID
	}
	if in.PositionID != nil {
		emp.PositionID = *in.PositionID
	}
	if in.Status != nil {
		emp.Status = *in.Status
	}
	if in.TerminationDate != nil {
		emp.TerminationDate = *in.TerminationDate
	}
	if in.ProbationEndDate != nil {
		emp.ProbationEndDate = *in.ProbationEndDate
	}
	if in.BaseSalary != nil {
		emp.BaseSalary = *in.BaseSalary
	}
	if in.HourlyRate != nil {
		emp.HourlyRate = in.HourlyRate
	}
	if in.Schedule != nil {
		emp.Schedule = *in.Schedule
	}
	if in.VacationDays != nil {
		emp.VacationDays = *in.VacationDays
	}
	if in.SickDays != nil {
		emp.SickDays = *in.SickDays
	}
	if in.PersonalDays != nil {
		emp.PersonalDays = *in.PersonalDays
	}
}

// checkManagerChain walks up from managerID and fails if it reaches id.
func checkManagerChain(ctx context.Context, store hr.EmployeeStore, id, managerID string) error {
	current := managerID
	for depth := 0; current != ""; depth++ {
		if current == id {
			return &hr.ValidationError{Field: "manager_id", Message: "would create a management cycle"}
		}
		if depth >= MaxManagerDepth {
			return &hr.ValidationError{Field: "manager_id", Message: "management chain is too deep"}
		}
		mgr, err := store.GetEmployee(ctx, current)
		if err != nil {
			return err
		}
		current = mgr.ManagerID
	}
	return nil
}
