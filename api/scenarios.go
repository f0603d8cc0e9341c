/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Populates the database with a small, realistic data set by calling the
	engine services as the system actor, so every record passes the same
	validation, events and audit as live traffic.

AVAILABLE SCENARIOS:

	small-team:      A manager, two reports, one document about to expire
	leave-workflow:  small-team plus pending, approved and rejected leave
	payroll-period:  small-team plus two weeks of attendance and a payroll run

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create employees through the registry
 3. Record attendance / submit leave / run payroll through the services

Dates are relative to today in the system zone so leave submissions are
never in the past.

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "leave-workflow"}

NOTE:

	Scenarios reset the database. The routes are admin-only.

SEE ALSO:
  - handlers.go: Handler and the services it holds
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/workforce-engine/attendance"
	"github.com/warp/workforce-engine/employee"
	"github.com/warp/workforce-engine/hr"
	"github.com/warp/workforce-engine/leave"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "small-team",
		Name:        "Small Team",
		Description: "A manager with two reports; one passport expires in ten days",
	},
	{
		ID:          "leave-workflow",
		Name:        "Leave Workflow",
		Description: "Small team with pending, approved and rejected leave requests",
	},
	{
		ID:          "payroll-period",
		Name:        "Payroll Period",
		Description: "Small team with two weeks of attendance and a biweekly payroll run",
	},
}

// ListScenarios returns available demo scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the database and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.LoadScenarioByID(r.Context(), req.ScenarioID); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// LoadScenarioByID resets the store and loads id. Callers hold h.mu.
func (h *Handler) LoadScenarioByID(ctx context.Context, id string) error {
	var load func(context.Context) error
	switch id {
	case "small-team":
		load = func(ctx context.Context) error {
			_, err := h.loadSmallTeam(ctx)
			return err
		}
	case "leave-workflow":
		load = h.loadLeaveWorkflow
	case "payroll-period":
		load = h.loadPayrollPeriod
	default:
		return &hr.ValidationError{Field: "scenario_id", Message: fmt.Sprintf("unknown scenario %q", id)}
	}

	if err := h.Store.Reset(ctx); err != nil {
		return fmt.Errorf("reset database: %w", err)
	}
	h.currentScenario = ""
	if err := load(ctx); err != nil {
		return fmt.Errorf("load scenario %s: %w", id, err)
	}
	h.currentScenario = id
	h.Logger.Info("scenario loaded", "scenario", id)
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

type team struct {
	manager, analyst, engineer *hr.Employee
}

func (h *Handler) loadSmallTeam(ctx context.Context) (team, error) {
	actor := hr.SystemActor
	today := h.Compensation.Today()

	manager, err := h.Employees.Create(ctx, actor, employee.CreateInput{
		UserID:       "grace",
		FirstName:    "Grace",
		LastName:     "Hopper",
		Email:        "grace@example.com",
		DepartmentID: "engineering",
		PositionID:   "engineering-manager",
		HireDate:     today.AddMonths(-60),
		BaseSalary:   hr.MustDecimal("98000.00"),
		VacationDays: 25,
		SickDays:     10,
		PersonalDays: 3,
	})
	if err != nil {
		return team{}, err
	}

	analyst, err := h.Employees.Create(ctx, actor, employee.CreateInput{
		UserID:       "ada",
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Email:        "ada@example.com",
		DepartmentID: "engineering",
		PositionID:   "analyst",
		ManagerID:    manager.ID,
		HireDate:     today.AddMonths(-18),
		BaseSalary:   hr.MustDecimal("60000.00"),
		VacationDays: 20,
		SickDays:     10,
		PersonalDays: 3,
	})
	if err != nil {
		return team{}, err
	}

	// Late shift, still on probation
	lateShift := hr.Schedule{Start: hr.NewClockTime(12, 0), End: hr.NewClockTime(20, 0), DaysPerWeek: 5}
	engineer, err := h.Employees.Create(ctx, actor, employee.CreateInput{
		UserID:           "alan",
		FirstName:        "Alan",
		LastName:         "Turing",
		Email:            "alan@example.com",
		DepartmentID:     "engineering",
		PositionID:       "engineer",
		ManagerID:        manager.ID,
		HireDate:         today.AddMonths(-2),
		ProbationEndDate: today.AddMonths(1),
		BaseSalary:       hr.MustDecimal("72000.00"),
		Schedule:         &lateShift,
		VacationDays:     5,
		SickDays:         5,
	})
	if err != nil {
		return team{}, err
	}

	if err := h.Store.InsertDocument(ctx, &hr.Document{
		ID:         hr.NewID(),
		EmployeeID: analyst.ID,
		Type:       "passport",
		Title:      "Passport",
		ExpiryDate: today.AddDays(10),
		CreatedAt:  h.Compensation.Clock.Now().UTC(),
	}); err != nil {
		return team{}, err
	}

	return team{manager: manager, analyst: analyst, engineer: engineer}, nil
}

func (h *Handler) loadLeaveWorkflow(ctx context.Context) error {
	tm, err := h.loadSmallTeam(ctx)
	if err != nil {
		return err
	}
	actor := hr.SystemActor
	today := h.Compensation.Today()

	submit := func(emp *hr.Employee, t hr.LeaveType, startIn, days int, reason string) (*hr.LeaveRequest, error) {
		start := today.AddDays(startIn)
		return h.Leave.Submit(ctx, actor, leave.SubmitInput{
			EmployeeID:    emp.ID,
			Type:          t,
			StartDate:     start,
			EndDate:       start.AddDays(days - 1),
			DaysRequested: days,
			Reason:        reason,
		})
	}

	// Awaiting a decision
	if _, err := submit(tm.analyst, hr.LeaveVacation, 14, 5, "Family trip"); err != nil {
		return err
	}

	sick, err := submit(tm.engineer, hr.LeaveSick, 1, 2, "Flu")
	if err != nil {
		return err
	}
	if _, err := h.Leave.Approve(ctx, actor, sick.ID); err != nil {
		return err
	}

	// More days than the engineer has left
	long, err := submit(tm.engineer, hr.LeaveVacation, 30, 10, "Long holiday")
	if err != nil {
		return err
	}
	_, err = h.Leave.Reject(ctx, actor, long.ID, "Only 5 vacation days left during probation")
	return err
}

func (h *Handler) loadPayrollPeriod(ctx context.Context) error {
	tm, err := h.loadSmallTeam(ctx)
	if err != nil {
		return err
	}
	actor := hr.SystemActor
	loc := h.Compensation.Location

	period, err := hr.DefaultPayPeriod(hr.PayPeriodBiweekly, h.Compensation.Today().AddDays(-1))
	if err != nil {
		return err
	}

	for _, emp := range []*hr.Employee{tm.manager, tm.analyst, tm.engineer} {
		for i, day := range period.Days() {
			if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
				continue
			}
			in := day.At(emp.Schedule.Start, loc).Add(time.Duration(i%4) * 10 * time.Minute)
			out := day.At(emp.Schedule.End, loc).Add(time.Duration(i%3) * 30 * time.Minute)
			rec := attendance.RecordInput{EmployeeID: emp.ID, Date: day, CheckIn: &in, CheckOut: &out}
			if emp == tm.engineer && i == 2 {
				// Forgot to check out
				rec.CheckOut = nil
			}
			if _, err := h.Attendance.Record(ctx, actor, rec); err != nil {
				return err
			}
		}
	}

	result, err := h.Compensation.RunPayrollBatch(ctx, actor, period, nil)
	if err != nil {
		return err
	}
	if len(result.Failed) > 0 {
		return fmt.Errorf("payroll run failed for %s: %s", result.Failed[0].EmployeeID, result.Failed[0].Reason)
	}
	return nil
}
