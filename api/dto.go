/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication so the domain types in
  package hr can change without breaking clients.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

FORMATS:
  Dates        "2006-01-02"
  Timestamps   RFC 3339, UTC
  Money/hours  decimal strings with two places ("2424.04")
  Clock times  "09:00"

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/workforce-engine/attendance"
	"github.com/warp/workforce-engine/compensation"
	"github.com/warp/workforce-engine/hr"
	"github.com/warp/workforce-engine/leave"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

type EmployeeDTO struct {
	ID               string  `json:"id"`
	UserID           string  `json:"user_id"`
	FirstName        string  `json:"first_name"`
	LastName         string  `json:"last_name"`
	FullName         string  `json:"full_name"`
	Email            string  `json:"email"`
	DepartmentID     string  `json:"department_id,omitempty"`
	PositionID       string  `json:"position_id,omitempty"`
	ManagerID        string  `json:"manager_id,omitempty"`
	Status           string  `json:"status"`
	HireDate         string  `json:"hire_date"`
	TerminationDate  string  `json:"termination_date,omitempty"`
	ProbationEndDate string  `json:"probation_end_date,omitempty"`
	BaseSalary       string  `json:"base_salary"`
	HourlyRate       *string `json:"hourly_rate,omitempty"`
	WorkStart        string  `json:"work_start"`
	WorkEnd          string  `json:"work_end"`
	WorkDaysPerWeek  int     `json:"work_days_per_week"`
	VacationDays     int     `json:"vacation_days"`
	SickDays         int     `json:"sick_days"`
	PersonalDays     int     `json:"personal_days"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
}

// ScheduleRequest is a work schedule in a request body.
type ScheduleRequest struct {
	Start       hr.ClockTime `json:"start"`
	End         hr.ClockTime `json:"end"`
	DaysPerWeek int          `json:"days_per_week"`
}

func (s *ScheduleRequest) toSchedule() *hr.Schedule {
	if s == nil {
		return nil
	}
	return &hr.Schedule{Start: s.Start, End: s.End, DaysPerWeek: s.DaysPerWeek}
}

type CreateEmployeeRequest struct {
	UserID           string           `json:"user_id"`
	FirstName        string           `json:"first_name"`
	LastName         string           `json:"last_name"`
	Email            string           `json:"email"`
	DepartmentID     string           `json:"department_id"`
	PositionID       string           `json:"position_id"`
	ManagerID        string           `json:"manager_id"`
	Status           string           `json:"status"`
	HireDate         hr.Date          `json:"hire_date"`
	TerminationDate  hr.Date          `json:"termination_date"`
	ProbationEndDate hr.Date          `json:"probation_end_date"`
	BaseSalary       decimal.Decimal  `json:"base_salary"`
	HourlyRate       *decimal.Decimal `json:"hourly_rate"`
	Schedule         *ScheduleRequest `json:"schedule"`
	VacationDays     int              `json:"vacation_days"`
	SickDays         int              `json:"sick_days"`
	PersonalDays     int              `json:"personal_days"`
}

// UpdateEmployeeRequest patches the fields that are present.
type UpdateEmployeeRequest struct {
	FirstName        *string          `json:"first_name"`
	LastName         *string          `json:"last_name"`
	Email            *string          `json:"email"`
	DepartmentID     *string          `json:"department_id"`
	PositionID       *string          `json:"position_id"`
	Status           *string          `json:"status"`
	TerminationDate  *hr.Date         `json:"termination_date"`
	ProbationEndDate *hr.Date         `json:"probation_end_date"`
	BaseSalary       *decimal.Decimal `json:"base_salary"`
	HourlyRate       *decimal.Decimal `json:"hourly_rate"`
	Schedule         *ScheduleRequest `json:"schedule"`
	VacationDays     *int             `json:"vacation_days"`
	SickDays         *int             `json:"sick_days"`
	PersonalDays     *int             `json:"personal_days"`
}

type SetManagerRequest struct {
	ManagerID string `json:"manager_id"`
}

func toEmployeeDTO(e *hr.Employee) EmployeeDTO {
	dto := EmployeeDTO{
		ID:               e.ID,
		UserID:           e.UserID,
		FirstName:        e.FirstName,
		LastName:         e.LastName,
		FullName:         e.FullName(),
		Email:            e.Email,
		DepartmentID:     e.DepartmentID,
		PositionID:       e.PositionID,
		ManagerID:        e.ManagerID,
		Status:           string(e.Status),
		HireDate:         e.HireDate.String(),
		TerminationDate:  e.TerminationDate.String(),
		ProbationEndDate: e.ProbationEndDate.String(),
		BaseSalary:       money(e.BaseSalary),
		WorkStart:        e.Schedule.Start.String(),
		WorkEnd:          e.Schedule.End.String(),
		WorkDaysPerWeek:  e.Schedule.DaysPerWeek,
		VacationDays:     e.VacationDays,
		SickDays:         e.SickDays,
		PersonalDays:     e.PersonalDays,
		CreatedAt:        timestamp(e.CreatedAt),
		UpdatedAt:        timestamp(e.UpdatedAt),
	}
	if e.HourlyRate != nil {
		rate := money(*e.HourlyRate)
		dto.HourlyRate = &rate
	}
	return dto
}

// =============================================================================
// ATTENDANCE
// =============================================================================

type AttendanceDTO struct {
	EmployeeID    string  `json:"employee_id"`
	Date          string  `json:"date"`
	CheckIn       *string `json:"check_in,omitempty"`
	CheckOut      *string `json:"check_out,omitempty"`
	WorkHours     string  `json:"work_hours"`
	OvertimeHours string  `json:"overtime_hours"`
	IsLate        bool    `json:"is_late"`
	IsAbsent      bool    `json:"is_absent"`
	Notes         string  `json:"notes,omitempty"`
}

type RecordAttendanceRequest struct {
	EmployeeID string     `json:"employee_id"`
	Date       hr.Date    `json:"date"`
	CheckIn    *time.Time `json:"check_in"`
	CheckOut   *time.Time `json:"check_out"`
	IsAbsent   bool       `json:"is_absent"`
	Notes      string     `json:"notes"`
}

// UpdateAttendanceRequest patches a record. The clear flags remove a
// check-in or check-out; a present time replaces it.
type UpdateAttendanceRequest struct {
	CheckIn       *time.Time `json:"check_in"`
	CheckOut      *time.Time `json:"check_out"`
	ClearCheckIn  bool       `json:"clear_check_in"`
	ClearCheckOut bool       `json:"clear_check_out"`
	IsAbsent      *bool      `json:"is_absent"`
	Notes         *string    `json:"notes"`
}

func (req UpdateAttendanceRequest) toInput() attendance.UpdateInput {
	in := attendance.UpdateInput{IsAbsent: req.IsAbsent, Notes: req.Notes}
	if req.CheckIn != nil || req.ClearCheckIn {
		in.SetCheckIn, in.CheckIn = true, req.CheckIn
	}
	if req.CheckOut != nil || req.ClearCheckOut {
		in.SetCheckOut, in.CheckOut = true, req.CheckOut
	}
	return in
}

type AttendanceSummaryDTO struct {
	EmployeeID     string `json:"employee_id"`
	PeriodStart    string `json:"period_start"`
	PeriodEnd      string `json:"period_end"`
	TotalDays      int    `json:"total_days"`
	PresentDays    int    `json:"present_days"`
	LateDays       int    `json:"late_days"`
	AbsentDays     int    `json:"absent_days"`
	WorkHours      string `json:"work_hours"`
	OvertimeHours  string `json:"overtime_hours"`
	AttendanceRate string `json:"attendance_rate"`
}

func toAttendanceDTO(a *hr.Attendance) AttendanceDTO {
	return AttendanceDTO{
		EmployeeID:    a.EmployeeID,
		Date:          a.Date.String(),
		CheckIn:       optTimestamp(a.CheckIn),
		CheckOut:      optTimestamp(a.CheckOut),
		WorkHours:     money(a.WorkHours),
		OvertimeHours: money(a.OvertimeHours),
		IsLate:        a.IsLate,
		IsAbsent:      a.IsAbsent,
		Notes:         a.Notes,
	}
}

func toAttendanceSummaryDTO(s attendance.Summary) AttendanceSummaryDTO {
	return AttendanceSummaryDTO{
		EmployeeID:     s.EmployeeID,
		PeriodStart:    s.Period.Start.String(),
		PeriodEnd:      s.Period.End.String(),
		TotalDays:      s.TotalDays,
		PresentDays:    s.PresentDays,
		LateDays:       s.LateDays,
		AbsentDays:     s.AbsentDays,
		WorkHours:      money(s.WorkHours),
		OvertimeHours:  money(s.OvertimeHours),
		AttendanceRate: money(s.AttendanceRate),
	}
}

// =============================================================================
// LEAVE
// =============================================================================

type LeaveRequestDTO struct {
	ID              string  `json:"id"`
	EmployeeID      string  `json:"employee_id"`
	LeaveType       string  `json:"leave_type"`
	StartDate       string  `json:"start_date"`
	EndDate         string  `json:"end_date"`
	DaysRequested   int     `json:"days_requested"`
	Reason          string  `json:"reason,omitempty"`
	Status          string  `json:"status"`
	ApprovedBy      string  `json:"approved_by,omitempty"`
	ApprovedAt      *string `json:"approved_at,omitempty"`
	RejectionReason string  `json:"rejection_reason,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

type SubmitLeaveRequest struct {
	EmployeeID    string  `json:"employee_id"`
	LeaveType     string  `json:"leave_type"`
	StartDate     hr.Date `json:"start_date"`
	EndDate       hr.Date `json:"end_date"`
	DaysRequested int     `json:"days_requested"`
	Reason        string  `json:"reason"`
}

// RejectRequest carries the reason for a leave or payroll rejection.
type RejectRequest struct {
	Reason string `json:"reason"`
}

type LeaveBalanceDTO struct {
	LeaveType string `json:"leave_type"`
	Remaining int    `json:"remaining"`
	Pending   int    `json:"pending"`
	Projected int    `json:"projected"`
}

type BalanceViewDTO struct {
	EmployeeID string            `json:"employee_id"`
	Balances   []LeaveBalanceDTO `json:"balances"`
}

func toLeaveRequestDTO(r *hr.LeaveRequest) LeaveRequestDTO {
	return LeaveRequestDTO{
		ID:              r.ID,
		EmployeeID:      r.EmployeeID,
		LeaveType:       string(r.Type),
		StartDate:       r.StartDate.String(),
		EndDate:         r.EndDate.String(),
		DaysRequested:   r.DaysRequested,
		Reason:          r.Reason,
		Status:          string(r.Status),
		ApprovedBy:      r.ApprovedBy,
		ApprovedAt:      optTimestamp(r.ApprovedAt),
		RejectionReason: r.RejectionReason,
		CreatedAt:       timestamp(r.CreatedAt),
	}
}

func toBalanceViewDTO(v leave.BalanceView) BalanceViewDTO {
	dto := BalanceViewDTO{EmployeeID: v.EmployeeID, Balances: make([]LeaveBalanceDTO, 0, len(v.Balances))}
	for _, b := range v.Balances {
		dto.Balances = append(dto.Balances, LeaveBalanceDTO{
			LeaveType: string(b.Type),
			Remaining: b.Remaining,
			Pending:   b.Pending,
			Projected: b.Projected,
		})
	}
	return dto
}

// =============================================================================
// PAYROLL
// =============================================================================

type PayrollDTO struct {
	ID               string  `json:"id"`
	EmployeeID       string  `json:"employee_id"`
	PeriodStart      string  `json:"period_start"`
	PeriodEnd        string  `json:"period_end"`
	BaseSalary       string  `json:"base_salary"`
	HoursWorked      string  `json:"hours_worked"`
	OvertimeHours    string  `json:"overtime_hours"`
	OvertimePay      string  `json:"overtime_pay"`
	Deductions       string  `json:"deductions"`
	Bonuses          string  `json:"bonuses"`
	NetSalary        string  `json:"net_salary"`
	Status           string  `json:"status"`
	CreatedBy        string  `json:"created_by"`
	ApprovedBy       string  `json:"approved_by,omitempty"`
	ApprovedAt       *string `json:"approved_at,omitempty"`
	RejectionReason  string  `json:"rejection_reason,omitempty"`
	PayslipGenerated bool    `json:"payslip_generated"`
	PayslipPath      string  `json:"payslip_path,omitempty"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
}

type CreatePayrollRequest struct {
	EmployeeID    string           `json:"employee_id"`
	PeriodStart   hr.Date          `json:"period_start"`
	PeriodEnd     hr.Date          `json:"period_end"`
	BaseSalary    *decimal.Decimal `json:"base_salary"`
	HoursWorked   decimal.Decimal  `json:"hours_worked"`
	OvertimeHours decimal.Decimal  `json:"overtime_hours"`
	Deductions    decimal.Decimal  `json:"deductions"`
	Bonuses       decimal.Decimal  `json:"bonuses"`
}

type UpdatePayrollRequest struct {
	BaseSalary    *decimal.Decimal `json:"base_salary"`
	HoursWorked   *decimal.Decimal `json:"hours_worked"`
	OvertimeHours *decimal.Decimal `json:"overtime_hours"`
	Deductions    *decimal.Decimal `json:"deductions"`
	Bonuses       *decimal.Decimal `json:"bonuses"`
}

// PayrollRunRequest starts a batch. Either both period bounds, or a pay
// period kind plus a reference date, must be given. No employee ids means
// every active employee.
type PayrollRunRequest struct {
	PeriodStart   hr.Date  `json:"period_start"`
	PeriodEnd     hr.Date  `json:"period_end"`
	PeriodKind    string   `json:"period_kind"`
	ReferenceDate hr.Date  `json:"reference_date"`
	EmployeeIDs   []string `json:"employee_ids"`
}

type BatchItemDTO struct {
	EmployeeID string `json:"employee_id"`
	PayrollID  string `json:"payroll_id,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

type BatchResultDTO struct {
	PeriodStart string         `json:"period_start"`
	PeriodEnd   string         `json:"period_end"`
	Created     []BatchItemDTO `json:"created"`
	Skipped     []BatchItemDTO `json:"skipped"`
	Failed      []BatchItemDTO `json:"failed"`
}

func toPayrollDTO(p *hr.Payroll) PayrollDTO {
	return PayrollDTO{
		ID:               p.ID,
		EmployeeID:       p.EmployeeID,
		PeriodStart:      p.PeriodStart.String(),
		PeriodEnd:        p.PeriodEnd.String(),
		BaseSalary:       money(p.BaseSalary),
		HoursWorked:      money(p.HoursWorked),
		OvertimeHours:    money(p.OvertimeHours),
		OvertimePay:      money(p.OvertimePay),
		Deductions:       money(p.Deductions),
		Bonuses:          money(p.Bonuses),
		NetSalary:        money(p.NetSalary),
		Status:           string(p.Status),
		CreatedBy:        p.CreatedBy,
		ApprovedBy:       p.ApprovedBy,
		ApprovedAt:       optTimestamp(p.ApprovedAt),
		RejectionReason:  p.RejectionReason,
		PayslipGenerated: p.PayslipGenerated,
		PayslipPath:      p.PayslipPath,
		CreatedAt:        timestamp(p.CreatedAt),
		UpdatedAt:        timestamp(p.UpdatedAt),
	}
}

func toBatchResultDTO(r compensation.BatchResult) BatchResultDTO {
	items := func(in []compensation.ItemResult) []BatchItemDTO {
		out := make([]BatchItemDTO, 0, len(in))
		for _, it := range in {
			out = append(out, BatchItemDTO{EmployeeID: it.EmployeeID, PayrollID: it.PayrollID, Reason: it.Reason})
		}
		return out
	}
	return BatchResultDTO{
		PeriodStart: r.Period.Start.String(),
		PeriodEnd:   r.Period.End.String(),
		Created:     items(r.Created),
		Skipped:     items(r.Skipped),
		Failed:      items(r.Failed),
	}
}

// =============================================================================
// SWEEPS, NOTIFICATIONS, AUDIT
// =============================================================================

// SweepRequest names the reference date of a sweep. Empty means today in
// the system time zone.
type SweepRequest struct {
	Date hr.Date `json:"date"`
}

type AttendanceReportDTO struct {
	Date            string `json:"date"`
	LateCheckIns    int    `json:"late_check_ins"`
	MissedCheckOuts int    `json:"missed_check_outs"`
}

type ExpiringDocumentDTO struct {
	DocumentID string `json:"document_id"`
	EmployeeID string `json:"employee_id"`
	Title      string `json:"title"`
	ExpiryDate string `json:"expiry_date"`
	DaysLeft   int    `json:"days_left"`
}

type AttendanceDigestDTO struct {
	PeriodStart     string `json:"period_start"`
	PeriodEnd       string `json:"period_end"`
	ActiveEmployees int    `json:"active_employees"`
	Present         int    `json:"present"`
	Late            int    `json:"late"`
	Absent          int    `json:"absent"`
	AttendanceRate  string `json:"attendance_rate"`
}

type PayrollReminderDTO struct {
	Date     string `json:"date"`
	Drafts   int    `json:"drafts"`
	Pending  int    `json:"pending"`
	Approved int    `json:"approved"`
}

type NotificationDTO struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Message     string `json:"message"`
	Type        string `json:"type"`
	RelatedType string `json:"related_type,omitempty"`
	RelatedID   string `json:"related_id,omitempty"`
	EmailSent   bool   `json:"email_sent"`
	CreatedAt   string `json:"created_at"`
}

type AuditEntryDTO struct {
	ID         string `json:"id"`
	Actor      string `json:"actor"`
	Action     string `json:"action"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Summary    string `json:"summary"`
	Timestamp  string `json:"timestamp"`
}

func toNotificationDTO(n hr.Notification) NotificationDTO {
	return NotificationDTO{
		ID:          n.ID,
		Title:       n.Title,
		Message:     n.Message,
		Type:        n.Type,
		RelatedType: n.RelatedType,
		RelatedID:   n.RelatedID,
		EmailSent:   n.EmailSent,
		CreatedAt:   timestamp(n.CreatedAt),
	}
}

func toAuditEntryDTO(e hr.AuditEntry) AuditEntryDTO {
	return AuditEntryDTO{
		ID:         e.ID,
		Actor:      e.Actor,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Summary:    e.Summary,
		Timestamp:  timestamp(e.Timestamp),
	}
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Field   string `json:"field,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// FORMATTING
// =============================================================================

func money(d decimal.Decimal) string {
	return d.StringFixed(hr.Scale)
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func optTimestamp(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := timestamp(*t)
	return &s
}
