/*
handlers.go - HTTP API handlers for the workforce engine

PURPOSE:
  Exposes the engine services over REST. Handles HTTP request/response and
  JSON serialization, and delegates every decision to the services.
  Permission checks live in the services; the handlers only pass the
  authenticated actor along.

ENDPOINTS:
  Employees:
    GET    /api/employees                         List (HR/admin)
    POST   /api/employees                         Create
    GET    /api/employees/{id}                    Get
    PUT    /api/employees/{id}                    Patch
    PUT    /api/employees/{id}/manager            Change manager
    GET    /api/employees/{id}/attendance         Records in ?start=&end=
    GET    /api/employees/{id}/attendance/summary Summary for ?start=&end=
    GET    /api/employees/{id}/leave-balance      Remaining/pending/projected

  Attendance:
    POST   /api/attendance                        Record one day
    PUT    /api/attendance/{employeeID}/{date}    Patch and recompute

  Leave:
    GET    /api/leave-requests                    List (own only for employees)
    POST   /api/leave-requests                    Submit
    GET    /api/leave-requests/{id}               Get
    POST   /api/leave-requests/{id}/approve       Approve, consumes balance
    POST   /api/leave-requests/{id}/reject        Reject with reason
    POST   /api/leave-requests/{id}/cancel        Withdraw

  Payroll:
    GET    /api/payrolls                          List
    POST   /api/payrolls                          Create draft
    GET    /api/payrolls/{id}                     Get
    PUT    /api/payrolls/{id}                     Patch amounts, recompute
    POST   /api/payrolls/{id}/submit|approve|reject|pay
    POST   /api/payrolls/{id}/payslip             Generate the PDF once
    GET    /api/payrolls/{id}/payslip             Download the PDF
    POST   /api/payroll-runs                      Batch over a period

  Sweeps (HR/admin):
    POST   /api/sweeps/attendance                 Late/missed check-out events
    POST   /api/sweeps/documents                  Expiring document events
    POST   /api/sweeps/weekly                     Attendance digest for HR
    POST   /api/sweeps/monthly                    Payroll reminder for HR

  Other:
    GET    /api/notifications                     Caller's inbox (?inbox=hr)
    GET    /api/audit                             Audit trail (admin)

ERROR HANDLING:
  Errors are returned as JSON with an HTTP status chosen by writeDomainError:
  - 400: Validation
  - 403: PermissionDenied
  - 404: NotFound
  - 409: InvalidTransition, DuplicateRecord
  - 422: InsufficientBalance, ArithmeticOverflow
  - 500: anything else (logged)

SEE ALSO:
  - dto.go: Request/response data structures
  - auth.go: Where the actor comes from
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/warp/workforce-engine/attendance"
	"github.com/warp/workforce-engine/compensation"
	"github.com/warp/workforce-engine/config"
	"github.com/warp/workforce-engine/employee"
	"github.com/warp/workforce-engine/hr"
	"github.com/warp/workforce-engine/leave"
	"github.com/warp/workforce-engine/notify"
	"github.com/warp/workforce-engine/payroll"
	"github.com/warp/workforce-engine/store/sqlite"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds the engine services.
type Handler struct {
	Store        *sqlite.Store
	Employees    *employee.Registry
	Attendance   *attendance.Recorder
	Leave        *leave.Ledger
	Payroll      *payroll.Engine
	Compensation *compensation.Orchestrator
	Logger       *slog.Logger

	mu              sync.Mutex
	currentScenario string
}

// NewHandler builds every service on store. rt carries the clock, the
// event sink and the audit sink shared by all of them.
func NewHandler(store *sqlite.Store, cfg config.EngineConfig, rt hr.Runtime) (*Handler, error) {
	params, err := cfg.PayrollParams()
	if err != nil {
		return nil, err
	}
	if rt.Location == nil {
		rt.Location = cfg.Location
	}
	rt = rt.Normalize()

	engine := payroll.NewEngine(store, params, cfg.PayslipDir, rt)
	return &Handler{
		Store:        store,
		Employees:    employee.NewRegistry(store, rt),
		Attendance:   attendance.NewRecorder(store, cfg.GracePeriod, rt),
		Leave:        leave.NewLedger(store, leave.BalancePolicy(cfg.BalancePolicy), rt),
		Payroll:      engine,
		Compensation: compensation.NewOrchestrator(store, engine, cfg.BatchWorkers, cfg.ExpiryWindow(), rt),
		Logger:       rt.Logger,
	}, nil
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	filter := hr.EmployeeFilter{
		Status:    hr.EmployeeStatus(r.URL.Query().Get("status")),
		ManagerID: r.URL.Query().Get("manager_id"),
	}
	emps, err := h.Employees.List(r.Context(), actorOf(r), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	dtos := make([]EmployeeDTO, 0, len(emps))
	for i := range emps {
		dtos = append(dtos, toEmployeeDTO(&emps[i]))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Employees.Get(r.Context(), actorOf(r), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}

func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	emp, err := h.Employees.Create(r.Context(), actorOf(r), employee.CreateInput{
		UserID:           req.UserID,
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Email:            req.Email,
		DepartmentID:     req.DepartmentID,
		PositionID:       req.PositionID,
		ManagerID:        req.ManagerID,
		Status:           hr.EmployeeStatus(req.Status),
		HireDate:         req.HireDate,
		TerminationDate:  req.TerminationDate,
		ProbationEndDate: req.ProbationEndDate,
		BaseSalary:       req.BaseSalary,
		HourlyRate:       req.HourlyRate,
		Schedule:         req.Schedule.toSchedule(),
		VacationDays:     req.VacationDays,
		SickDays:         req.SickDays,
		PersonalDays:     req.PersonalDays,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(emp))
}

func (h *Handler) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	var req UpdateEmployeeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	in := employee.UpdateInput{
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Email:            req.Email,
		DepartmentID:     req.DepartmentID,
		PositionID:       req.PositionID,
		TerminationDate:  req.TerminationDate,
		ProbationEndDate: req.ProbationEndDate,
		BaseSalary:       req.BaseSalary,
		HourlyRate:       req.HourlyRate,
		Schedule:         req.Schedule.toSchedule(),
		VacationDays:     req.VacationDays,
		SickDays:         req.SickDays,
		PersonalDays:     req.PersonalDays,
	}
	if req.Status != nil {
		status := hr.EmployeeStatus(*req.Status)
		in.Status = &status
	}

	emp, err := h.Employees.Update(r.Context(), actorOf(r), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}

func (h *Handler) SetManager(w http.ResponseWriter, r *http.Request) {
	var req SetManagerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	emp, err := h.Employees.SetManager(r.Context(), actorOf(r), chi.URLParam(r, "id"), req.ManagerID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}

// =============================================================================
// ATTENDANCE HANDLERS
// =============================================================================

func (h *Handler) RecordAttendance(w http.ResponseWriter, r *http.Request) {
	var req RecordAttendanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	att, err := h.Attendance.Record(r.Context(), actorOf(r), attendance.RecordInput{
		EmployeeID: req.EmployeeID,
		Date:       req.Date,
		CheckIn:    req.CheckIn,
		CheckOut:   req.CheckOut,
		IsAbsent:   req.IsAbsent,
		Notes:      req.Notes,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAttendanceDTO(att))
}

func (h *Handler) UpdateAttendance(w http.ResponseWriter, r *http.Request) {
	date, err := hr.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req UpdateAttendanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	att, err := h.Attendance.Update(r.Context(), actorOf(r), chi.URLParam(r, "employeeID"), date, req.toInput())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAttendanceDTO(att))
}

func (h *Handler) ListAttendance(w http.ResponseWriter, r *http.Request) {
	period, err := periodQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	records, err := h.Attendance.List(r.Context(), actorOf(r), chi.URLParam(r, "id"), period)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	dtos := make([]AttendanceDTO, 0, len(records))
	for i := range records {
		dtos = append(dtos, toAttendanceDTO(&records[i]))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) AttendanceSummary(w http.ResponseWriter, r *http.Request) {
	period, err := periodQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	summary, err := h.Attendance.Summary(r.Context(), actorOf(r), chi.URLParam(r, "id"), period)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAttendanceSummaryDTO(summary))
}

// =============================================================================
// LEAVE HANDLERS
// =============================================================================

func (h *Handler) SubmitLeave(w http.ResponseWriter, r *http.Request) {
	var req SubmitLeaveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	lr, err := h.Leave.Submit(r.Context(), actorOf(r), leave.SubmitInput{
		EmployeeID:    req.EmployeeID,
		Type:          hr.LeaveType(req.LeaveType),
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		DaysRequested: req.DaysRequested,
		Reason:        req.Reason,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLeaveRequestDTO(lr))
}

func (h *Handler) ListLeave(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	reqs, err := h.Leave.List(r.Context(), actorOf(r), hr.LeaveFilter{
		EmployeeID: q.Get("employee_id"),
		Status:     hr.LeaveStatus(q.Get("status")),
		Type:       hr.LeaveType(q.Get("leave_type")),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	dtos := make([]LeaveRequestDTO, 0, len(reqs))
	for i := range reqs {
		dtos = append(dtos, toLeaveRequestDTO(&reqs[i]))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetLeave(w http.ResponseWriter, r *http.Request) {
	lr, err := h.Leave.Get(r.Context(), actorOf(r), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTO(lr))
}

func (h *Handler) ApproveLeave(w http.ResponseWriter, r *http.Request) {
	lr, err := h.Leave.Approve(r.Context(), actorOf(r), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTO(lr))
}

func (h *Handler) RejectLeave(w http.ResponseWriter, r *http.Request) {
	var req RejectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	lr, err := h.Leave.Reject(r.Context(), actorOf(r), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTO(lr))
}

func (h *Handler) CancelLeave(w http.ResponseWriter, r *http.Request) {
	lr, err := h.Leave.Cancel(r.Context(), actorOf(r), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTO(lr))
}

func (h *Handler) LeaveBalance(w http.ResponseWriter, r *http.Request) {
	view, err := h.Leave.BalanceView(r.Context(), actorOf(r), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceViewDTO(view))
}

// =============================================================================
// PAYROLL HANDLERS
// =============================================================================

func (h *Handler) CreatePayroll(w http.ResponseWriter, r *http.Request) {
	var req CreatePayrollRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.Payroll.Create(r.Context(), actorOf(r), payroll.CreateInput{
		EmployeeID:    req.EmployeeID,
		Period:        hr.Period{Start: req.PeriodStart, End: req.PeriodEnd},
		BaseSalary:    req.BaseSalary,
		HoursWorked:   req.HoursWorked,
		OvertimeHours: req.OvertimeHours,
		Deductions:    req.Deductions,
		Bonuses:       req.Bonuses,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPayrollDTO(p))
}

func (h *Handler) ListPayrolls(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := hr.PayrollFilter{
		EmployeeID: q.Get("employee_id"),
		Status:     hr.PayrollStatus(q.Get("status")),
	}
	if q.Get("start") != "" || q.Get("end") != "" {
		period, err := periodQuery(r)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		filter.Period = &period
	}

	payrolls, err := h.Payroll.List(r.Context(), actorOf(r), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	dtos := make([]PayrollDTO, 0, len(payrolls))
	for i := range payrolls {
		dtos = append(dtos, toPayrollDTO(&payrolls[i]))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetPayroll(w http.ResponseWriter, r *http.Request) {
	p, err := h.Payroll.Get(r.Context(), actorOf(r), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPayrollDTO(p))
}

func (h *Handler) UpdatePayroll(w http.ResponseWriter, r *http.Request) {
	var req UpdatePayrollRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.Payroll.Update(r.Context(), actorOf(r), chi.URLParam(r, "id"), payroll.UpdateInput{
		BaseSalary:    req.BaseSalary,
		HoursWorked:   req.HoursWorked,
		OvertimeHours: req.OvertimeHours,
		Deductions:    req.Deductions,
		Bonuses:       req.Bonuses,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPayrollDTO(p))
}

func (h *Handler) SubmitPayroll(w http.ResponseWriter, r *http.Request) {
	h.payrollTransition(w, r, h.Payroll.Submit)
}

func (h *Handler) ApprovePayroll(w http.ResponseWriter, r *http.Request) {
	h.payrollTransition(w, r, h.Payroll.Approve)
}

func (h *Handler) PayPayroll(w http.ResponseWriter, r *http.Request) {
	h.payrollTransition(w, r, h.Payroll.MarkPaid)
}

func (h *Handler) GeneratePayslip(w http.ResponseWriter, r *http.Request) {
	h.payrollTransition(w, r, h.Payroll.GeneratePayslip)
}

func (h *Handler) RejectPayroll(w http.ResponseWriter, r *http.Request) {
	var req RejectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.Payroll.Reject(r.Context(), actorOf(r), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPayrollDTO(p))
}

type payrollAction func(ctx context.Context, actor hr.Actor, id string) (*hr.Payroll, error)

func (h *Handler) payrollTransition(w http.ResponseWriter, r *http.Request, action payrollAction) {
	p, err := action(r.Context(), actorOf(r), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPayrollDTO(p))
}

// DownloadPayslip serves the generated PDF to the owner or to HR.
func (h *Handler) DownloadPayslip(w http.ResponseWriter, r *http.Request) {
	p, err := h.Payroll.Get(r.Context(), actorOf(r), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !p.PayslipGenerated || p.PayslipPath == "" {
		h.fail(w, r, &hr.NotFoundError{Entity: "payslip", ID: p.ID})
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "payslip_"+p.EmployeeID+"_"+p.ID+".pdf"))
	http.ServeFile(w, r, p.PayslipPath)
}

// RunPayrollBatch creates draft payrolls for a period.
func (h *Handler) RunPayrollBatch(w http.ResponseWriter, r *http.Request) {
	var req PayrollRunRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	period := hr.Period{Start: req.PeriodStart, End: req.PeriodEnd}
	if req.PeriodKind != "" {
		ref := req.ReferenceDate
		if ref.IsZero() {
			ref = h.Compensation.Today()
		}
		var err error
		if period, err = hr.DefaultPayPeriod(hr.PayPeriodKind(req.PeriodKind), ref); err != nil {
			h.fail(w, r, err)
			return
		}
	}

	result, err := h.Compensation.RunPayrollBatch(r.Context(), actorOf(r), period, req.EmployeeIDs)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBatchResultDTO(result))
}

// =============================================================================
// SWEEPS
// =============================================================================

func (h *Handler) SweepAttendance(w http.ResponseWriter, r *http.Request) {
	date, ok := h.sweepDate(w, r, -1)
	if !ok {
		return
	}
	report, err := h.Compensation.CheckDailyAttendance(r.Context(), date)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AttendanceReportDTO{
		Date:            report.Date.String(),
		LateCheckIns:    report.LateCheckIns,
		MissedCheckOuts: report.MissedCheckOuts,
	})
}

func (h *Handler) SweepDocuments(w http.ResponseWriter, r *http.Request) {
	date, ok := h.sweepDate(w, r, 0)
	if !ok {
		return
	}
	events, err := h.Compensation.CheckDocumentExpiry(r.Context(), date)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	dtos := make([]ExpiringDocumentDTO, 0, len(events))
	for _, ev := range events {
		dtos = append(dtos, ExpiringDocumentDTO{
			DocumentID: ev.Document.ID,
			EmployeeID: ev.Document.EmployeeID,
			Title:      ev.Document.Title,
			ExpiryDate: ev.Document.ExpiryDate.String(),
			DaysLeft:   ev.DaysLeft,
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SweepWeekly sends the attendance digest for the week ending on the date
// (default today).
func (h *Handler) SweepWeekly(w http.ResponseWriter, r *http.Request) {
	date, ok := h.sweepDate(w, r, 0)
	if !ok {
		return
	}
	digest, err := h.Compensation.WeeklyAttendanceDigest(r.Context(), date)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AttendanceDigestDTO{
		PeriodStart:     digest.Period.Start.String(),
		PeriodEnd:       digest.Period.End.String(),
		ActiveEmployees: digest.ActiveEmployees,
		Present:         digest.Present,
		Late:            digest.Late,
		Absent:          digest.Absent,
		AttendanceRate:  digest.Rate.StringFixed(1),
	})
}

func (h *Handler) SweepMonthly(w http.ResponseWriter, r *http.Request) {
	date, ok := h.sweepDate(w, r, 0)
	if !ok {
		return
	}
	reminder, err := h.Compensation.PayrollReminder(r.Context(), date)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PayrollReminderDTO{
		Date:     reminder.Date.String(),
		Drafts:   reminder.Drafts,
		Pending:  reminder.Pending,
		Approved: reminder.Approved,
	})
}

// sweepDate reads the optional body date. Without one the sweep runs for
// today plus offset days in the system zone.
func (h *Handler) sweepDate(w http.ResponseWriter, r *http.Request, offset int) (hr.Date, bool) {
	var req SweepRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return hr.Date{}, false
	}
	if req.Date.IsZero() {
		return h.Compensation.Today().AddDays(offset), true
	}
	return req.Date, true
}

// =============================================================================
// NOTIFICATIONS AND AUDIT
// =============================================================================

// ListNotifications returns the caller's inbox. HR and admins may read the
// shared HR inbox with ?inbox=hr.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	actor := actorOf(r)
	recipient := actor.UserID
	if r.URL.Query().Get("inbox") == "hr" {
		if !actor.CanViewAll() {
			h.fail(w, r, &hr.PermissionDeniedError{Role: actor.Role, Action: "read the HR inbox"})
			return
		}
		recipient = notify.RoleHR
	}

	notes, err := h.Store.ListNotifications(r.Context(), recipient)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	dtos := make([]NotificationDTO, 0, len(notes))
	for _, n := range notes {
		dtos = append(dtos, toNotificationDTO(n))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entries, err := h.Store.QueryAudit(r.Context(), hr.AuditFilter{
		EntityType: q.Get("entity_type"),
		EntityID:   q.Get("entity_id"),
		Actor:      q.Get("actor"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	dtos := make([]AuditEntryDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, toAuditEntryDTO(e))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func actorOf(r *http.Request) hr.Actor {
	actor, _ := ActorFrom(r.Context())
	return actor
}

// periodQuery reads ?start=&end= as an inclusive period.
func periodQuery(r *http.Request) (hr.Period, error) {
	q := r.URL.Query()
	start, err := hr.ParseDate(q.Get("start"))
	if err != nil {
		return hr.Period{}, &hr.ValidationError{Field: "start", Message: "must be a date (YYYY-MM-DD)"}
	}
	end, err := hr.ParseDate(q.Get("end"))
	if err != nil {
		return hr.Period{}, &hr.ValidationError{Field: "end", Message: "must be a date (YYYY-MM-DD)"}
	}
	return hr.NewPeriod(start, end)
}

// decodeJSON reads a bounded JSON body into v and writes a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var verr *hr.ValidationError
		if errors.As(err, &verr) {
			writeDomainError(w, verr)
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

// fail writes err and logs it when it is not a client or state error.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if status := statusFor(err); status == http.StatusInternalServerError {
		h.Logger.Error("request failed", "err", err, "method", r.Method, "path", r.URL.Path)
	}
	writeDomainError(w, err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, hr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, hr.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, hr.ErrNotFound):
		return http.StatusNotFound
	case hr.IsConflict(err):
		return http.StatusConflict
	case errors.Is(err, hr.ErrInsufficientBalance), errors.Is(err, hr.ErrArithmeticOverflow):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, hr.ErrValidation):
		return "validation"
	case errors.Is(err, hr.ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, hr.ErrNotFound):
		return "not_found"
	case errors.Is(err, hr.ErrDuplicateRecord):
		return "duplicate_record"
	case errors.Is(err, hr.ErrInvalidTransition), errors.Is(err, hr.ErrConcurrentModification):
		return "invalid_transition"
	case errors.Is(err, hr.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, hr.ErrArithmeticOverflow):
		return "arithmetic_overflow"
	default:
		return "internal"
	}
}

// writeDomainError maps the engine error taxonomy onto HTTP.
func writeDomainError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	resp := ErrorResponse{Code: errorCode(err), Error: err.Error()}
	if status == http.StatusInternalServerError {
		resp.Error = "Internal error"
	}

	var verr *hr.ValidationError
	if errors.As(err, &verr) {
		resp.Field = verr.Field
	}
	var ierr *hr.InsufficientBalanceError
	if errors.As(err, &ierr) {
		resp.Details = map[string]int{"available": ierr.Available, "requested": ierr.Requested}
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
