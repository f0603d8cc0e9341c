package hr

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// EMPLOYEE
// =============================================================================

type EmployeeStatus string

const (
	EmployeeActive     EmployeeStatus = "active"
	EmployeeInactive   EmployeeStatus = "inactive"
	EmployeeTerminated EmployeeStatus = "terminated"
	EmployeeSuspended  EmployeeStatus = "suspended"
	EmployeeOnLeave    EmployeeStatus = "on_leave"
)

func (s EmployeeStatus) Valid() bool {
	switch s {
	case EmployeeActive, EmployeeInactive, EmployeeTerminated, EmployeeSuspended, EmployeeOnLeave:
		return true
	}
	return false
}

// Employee is the employment profile of one user. The leave counters are
// remaining whole days and never go negative.
type Employee struct {
	ID               string
	UserID           string
	FirstName        string
	LastName         string
	Email            string
	DepartmentID     string
	PositionID       string
	ManagerID        string
	Status           EmployeeStatus
	HireDate         Date
	TerminationDate  Date
	ProbationEndDate Date
	BaseSalary       decimal.Decimal
	HourlyRate       *decimal.Decimal
	Schedule         Schedule
	VacationDays     int
	SickDays         int
	PersonalDays     int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (e Employee) FullName() string {
	switch {
	case e.FirstName == "" && e.LastName == "":
		return e.ID
	case e.LastName == "":
		return e.FirstName
	case e.FirstName == "":
		return e.LastName
	}
	return e.FirstName + " " + e.LastName
}

// IsOnProbation reports whether ref falls on or before the probation end.
func (e Employee) IsOnProbation(ref Date) bool {
	return !e.ProbationEndDate.IsZero() && ref.BeforeOrEqual(e.ProbationEndDate)
}

// LeaveBalance returns the counter for t. ok is false for leave types that
// have no counter.
func (e Employee) LeaveBalance(t LeaveType) (days int, ok bool) {
	switch t {
	case LeaveVacation:
		return e.VacationDays, true
	case LeaveSick:
		return e.SickDays, true
	case LeavePersonal:
		return e.PersonalDays, true
	}
	return 0, false
}

// SetLeaveBalance overwrites the counter for t. It is a no-op for leave types
// without a counter.
func (e *Employee) SetLeaveBalance(t LeaveType, days int) {
	switch t {
	case LeaveVacation:
		e.VacationDays = days
	case LeaveSick:
		e.SickDays = days
	case LeavePersonal:
		e.PersonalDays = days
	}
}

// =============================================================================
// ATTENDANCE
// =============================================================================

// Attendance is one employee's record for one calendar date. WorkHours,
// OvertimeHours and IsLate are derived and recomputed on every save.
type Attendance struct {
	EmployeeID    string
	Date          Date
	CheckIn       *time.Time
	CheckOut      *time.Time
	WorkHours     decimal.Decimal
	OvertimeHours decimal.Decimal
	IsLate        bool
	IsAbsent      bool
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// MissingCheckOut reports a check-in with no matching check-out.
func (a Attendance) MissingCheckOut() bool {
	return a.CheckIn != nil && a.CheckOut == nil
}

// =============================================================================
// LEAVE
// =============================================================================

type LeaveType string

const (
	LeaveVacation    LeaveType = "vacation"
	LeaveSick        LeaveType = "sick"
	LeavePersonal    LeaveType = "personal"
	LeaveMaternity   LeaveType = "maternity"
	LeavePaternity   LeaveType = "paternity"
	LeaveBereavement LeaveType = "bereavement"
	LeaveUnpaid      LeaveType = "unpaid"
)

// LeaveTypes lists every leave type in display order.
var LeaveTypes = []LeaveType{
	LeaveVacation, LeaveSick, LeavePersonal, LeaveMaternity,
	LeavePaternity, LeaveBereavement, LeaveUnpaid,
}

func (t LeaveType) Valid() bool {
	for _, known := range LeaveTypes {
		if t == known {
			return true
		}
	}
	return false
}

// HasBalance reports whether approving this type consumes a counter.
func (t LeaveType) HasBalance() bool {
	return t == LeaveVacation || t == LeaveSick || t == LeavePersonal
}

type LeaveStatus string

const (
	LeavePending   LeaveStatus = "pending"
	LeaveApproved  LeaveStatus = "approved"
	LeaveRejected  LeaveStatus = "rejected"
	LeaveCancelled LeaveStatus = "cancelled"
)

func (s LeaveStatus) Terminal() bool {
	return s == LeaveApproved || s == LeaveRejected || s == LeaveCancelled
}

// LeaveRequest covers the inclusive date range [StartDate, EndDate].
// Version increments on every persisted change.
type LeaveRequest struct {
	ID              string
	EmployeeID      string
	Type            LeaveType
	StartDate       Date
	EndDate         Date
	DaysRequested   int
	Reason          string
	Status          LeaveStatus
	ApprovedBy      string
	ApprovedAt      *time.Time
	RejectionReason string
	Version         int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// =============================================================================
// PAYROLL
// =============================================================================

type PayrollStatus string

const (
	PayrollDraft    PayrollStatus = "draft"
	PayrollPending  PayrollStatus = "pending"
	PayrollApproved PayrollStatus = "approved"
	PayrollRejected PayrollStatus = "rejected"
	PayrollPaid     PayrollStatus = "paid"
)

// Payroll is the pay record for one employee and one pay period. At most one
// exists per (EmployeeID, PeriodStart, PeriodEnd).
type Payroll struct {
	ID               string
	EmployeeID       string
	PeriodStart      Date
	PeriodEnd        Date
	BaseSalary       decimal.Decimal
	HoursWorked      decimal.Decimal
	OvertimeHours    decimal.Decimal
	OvertimePay      decimal.Decimal
	Deductions       decimal.Decimal
	Bonuses          decimal.Decimal
	NetSalary        decimal.Decimal
	Status           PayrollStatus
	CreatedBy        string
	ApprovedBy       string
	ApprovedAt       *time.Time
	RejectionReason  string
	PayslipGenerated bool
	PayslipPath      string
	Version          int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (p Payroll) Period() Period {
	return Period{Start: p.PeriodStart, End: p.PeriodEnd}
}

// =============================================================================
// SUPPORTING RECORDS
// =============================================================================

// Document is the slice of an employee document the expiry sweep needs.
type Document struct {
	ID         string
	EmployeeID string
	Type       string
	Title      string
	ExpiryDate Date
	CreatedAt  time.Time
}

// Notification is a persisted, user-facing message produced from an event.
type Notification struct {
	ID          string
	Recipient   string
	Title       string
	Message     string
	Type        string
	RelatedType string
	RelatedID   string
	EmailSent   bool
	CreatedAt   time.Time
}

type AuditEntry struct {
	ID         string
	Actor      string
	Action     string
	EntityType string
	EntityID   string
	Summary    string
	Timestamp  time.Time
}
