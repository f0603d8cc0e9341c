/*
Package compensation runs the batch and sweep operations an external
scheduler triggers.

PURPOSE:
  Aggregates attendance into payroll for many employees at once and scans
  for conditions that need a notification. Every operation takes explicit
  dates from the caller; nothing here reads the wall clock.

BATCH PAYROLL RUN:
  For each employee, in one transaction:
    1. skip if a payroll already exists for the exact period
    2. sum work_hours and overtime_hours of attendance dated in the period
    3. create a draft payroll through the payroll engine
  Employees are processed in parallel (bounded by Workers). A failure is
  recorded against that employee and the batch carries on.

SWEEPS:
  CheckDocumentExpiry:    documents expiring in [ref, ref + window]
  CheckDailyAttendance:   late check-ins and missing check-outs on a date
  WeeklyAttendanceDigest: active/present/late/absent counts over [ref-7, ref]
  PayrollReminder:        payrolls still in draft, pending or approved

SEE ALSO:
  - payroll/engine.go: CreateIn, Announce
  - api/scheduler.go: Periodic trigger
  - cmd/hrctl: Command-line trigger
*/
package compensation

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/warp/workforce-engine/hr"
	"github.com/warp/workforce-engine/payroll"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultWorkers      = 4
	DefaultExpiryWindow = 30
)

// =============================================================================
// RESULTS
// =============================================================================

type ItemResult struct {
	EmployeeID string
	PayrollID  string
	Reason     string
}

// BatchResult lists the outcome per employee, each slice sorted by employee
// id.
type BatchResult struct {
	Period  hr.Period
	Created []ItemResult
	Skipped []ItemResult
	Failed  []ItemResult
}

func (r BatchResult) Total() int {
	return len(r.Created) + len(r.Skipped) + len(r.Failed)
}

type AttendanceReport struct {
	Date            hr.Date
	LateCheckIns    int
	MissedCheckOuts int
}

// =============================================================================
// ORCHESTRATOR
// =============================================================================

type Orchestrator struct {
	Store        hr.TxStore
	Payroll      *payroll.Engine
	Workers      int
	ExpiryWindow int
	hr.Runtime
}

func NewOrchestrator(store hr.TxStore, engine *payroll.Engine, workers, expiryWindow int, rt hr.Runtime) *Orchestrator {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if expiryWindow < 0 {
		expiryWindow = DefaultExpiryWindow
	}
	return &Orchestrator{
		Store:        store,
		Payroll:      engine,
		Workers:      workers,
		ExpiryWindow: expiryWindow,
		Runtime:      rt.Normalize(),
	}
}

// RunPayrollBatch creates draft payrolls over period for employeeIDs, or for
// every active employee when employeeIDs is empty.
func (o *Orchestrator) RunPayrollBatch(ctx context.Context, actor hr.Actor, period hr.Period, employeeIDs []string) (BatchResult, error) {
	if !actor.CanManagePayroll() {
		return BatchResult{}, &hr.PermissionDeniedError{Role: actor.Role, Action: "run payroll"}
	}
	if err := period.Validate(); err != nil {
		return BatchResult{}, err
	}

	if len(employeeIDs) == 0 {
		active, err := o.Store.ListEmployees(ctx, hr.EmployeeFilter{Status: hr.EmployeeActive})
		if err != nil {
			return BatchResult{}, err
		}
		for _, emp := range active {
			employeeIDs = append(employeeIDs, emp.ID)
		}
	}

	result := BatchResult{Period: period}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.Workers)
	for _, id := range dedupe(employeeIDs) {
		id := id
		g.Go(func() error {
			item, outcome := o.runOne(gctx, actor, period, id)
			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case outcomeCreated:
				result.Created = append(result.Created, item)
			case outcomeSkipped:
				result.Skipped = append(result.Skipped, item)
			default:
				result.Failed = append(result.Failed, item)
			}
			// Per-employee failures never cancel the group
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return BatchResult{}, err
	}

	sortItems(result.Created)
	sortItems(result.Skipped)
	sortItems(result.Failed)

	o.Logger.Info("payroll batch finished",
		"period", period.String(),
		"created", len(result.Created),
		"skipped", len(result.Skipped),
		"failed", len(result.Failed),
	)
	return result, nil
}

type outcome int

const (
	outcomeCreated outcome = iota
	outcomeSkipped
	outcomeFailed
)

// runOne computes and persists one employee's payroll atomically.
func (o *Orchestrator) runOne(ctx context.Context, actor hr.Actor, period hr.Period, employeeID string) (ItemResult, outcome) {
	item := ItemResult{EmployeeID: employeeID}
	if err := ctx.Err(); err != nil {
		item.Reason = err.Error()
		return item, outcomeFailed
	}

	var created *hr.Payroll
	err := o.Store.WithTx(ctx, func(tx hr.Store) error {
		existing, err := tx.FindPayroll(ctx, employeeID, period)
		if err == nil {
			item.PayrollID = existing.ID
			return errSkip
		}
		if !hr.IsNotFound(err) {
			return err
		}

		records, err := tx.ListAttendance(ctx, employeeID, period)
		if err != nil {
			return err
		}
		hours, overtime := decimal.Zero, decimal.Zero
		for _, rec := range records {
			hours = hours.Add(rec.WorkHours)
			overtime = overtime.Add(rec.OvertimeHours)
		}

		created, err = o.Payroll.CreateIn(ctx, tx, actor, payroll.CreateInput{
			EmployeeID:    employeeID,
			Period:        period,
			HoursWorked:   hours,
			OvertimeHours: overtime,
			Deductions:    decimal.Zero,
			Bonuses:       decimal.Zero,
		})
		return err
	})

	switch {
	case errors.Is(err, errSkip):
		item.Reason = "payroll already exists for period"
		return item, outcomeSkipped
	case errors.Is(err, hr.ErrDuplicateRecord):
		// Lost a race with a concurrent creator
		item.Reason = "payroll already exists for period"
		return item, outcomeSkipped
	case err != nil:
		o.Logger.Warn("payroll batch item failed", "err", err, "employee_id", employeeID)
		item.Reason = err.Error()
		return item, outcomeFailed
	}

	item.PayrollID = created.ID
	o.Payroll.Announce(ctx, actor, created)
	return item, outcomeCreated
}

var errSkip = errors.New("skip")

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func sortItems(items []ItemResult) {
	sort.Slice(items, func(i, j int) bool { return items[i].EmployeeID < items[j].EmployeeID })
}

// =============================================================================
// SWEEPS
// =============================================================================

// CheckDocumentExpiry emits DocumentExpiring for every document whose expiry
// date falls in [ref, ref + ExpiryWindow days].
func (o *Orchestrator) CheckDocumentExpiry(ctx context.Context, ref hr.Date) ([]hr.DocumentExpiringEvent, error) {
	window := hr.Period{Start: ref, End: ref.AddDays(o.ExpiryWindow)}
	docs, err := o.Store.ListDocumentsExpiring(ctx, window)
	if err != nil {
		return nil, err
	}

	events := make([]hr.DocumentExpiringEvent, 0, len(docs))
	for _, doc := range docs {
		ev := hr.DocumentExpiringEvent{Document: doc, DaysLeft: hr.DaysBetween(ref, doc.ExpiryDate)}
		events = append(events, ev)
		o.Emit(ctx, ev)
	}

	o.Logger.Info("document expiry sweep", "ref", ref.String(), "expiring", len(events))
	return events, nil
}

// CheckDailyAttendance emits LateCheckIn and MissedCheckOut for the
// attendance records on date.
func (o *Orchestrator) CheckDailyAttendance(ctx context.Context, date hr.Date) (AttendanceReport, error) {
	records, err := o.Store.ListAttendanceOn(ctx, date)
	if err != nil {
		return AttendanceReport{}, err
	}

	report := AttendanceReport{Date: date}
	for _, rec := range records {
		if rec.IsLate {
			report.LateCheckIns++
			o.Emit(ctx, hr.LateCheckInEvent{Attendance: rec})
		}
		if rec.MissingCheckOut() {
			report.MissedCheckOuts++
			o.Emit(ctx, hr.MissedCheckOutEvent{Attendance: rec})
		}
	}

	o.Logger.Info("attendance sweep",
		"date", date.String(), "late", report.LateCheckIns, "missed_check_out", report.MissedCheckOuts)
	return report, nil
}

// WeeklyAttendanceDigest counts, over [ref-7, ref], the active employees that
// checked in at least once, that were late at least once, and the rest.
// Records of inactive employees are ignored so Absent never goes negative.
func (o *Orchestrator) WeeklyAttendanceDigest(ctx context.Context, ref hr.Date) (hr.AttendanceDigestEvent, error) {
	if ref.IsZero() {
		return hr.AttendanceDigestEvent{}, &hr.ValidationError{Field: "date", Message: "is required"}
	}
	period := hr.Period{Start: ref.AddDays(-7), End: ref}

	active, err := o.Store.ListEmployees(ctx, hr.EmployeeFilter{Status: hr.EmployeeActive})
	if err != nil {
		return hr.AttendanceDigestEvent{}, err
	}
	records, err := o.Store.ListAttendanceIn(ctx, period)
	if err != nil {
		return hr.AttendanceDigestEvent{}, err
	}

	isActive := make(map[string]bool, len(active))
	for _, emp := range active {
		isActive[emp.ID] = true
	}
	present := make(map[string]bool)
	late := make(map[string]bool)
	for _, rec := range records {
		if !isActive[rec.EmployeeID] || rec.CheckIn == nil {
			continue
		}
		present[rec.EmployeeID] = true
		if rec.IsLate {
			late[rec.EmployeeID] = true
		}
	}

	digest := hr.AttendanceDigestEvent{
		Period:          period,
		ActiveEmployees: len(active),
		Present:         len(present),
		Late:            len(late),
		Absent:          len(active) - len(present),
		Rate:            decimal.Zero,
	}
	if digest.ActiveEmployees > 0 {
		digest.Rate = decimal.NewFromInt(int64(digest.Present)).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(int64(digest.ActiveEmployees))).
			Round(1)
	}
	o.Emit(ctx, digest)

	o.Logger.Info("weekly attendance digest",
		"period", period.String(), "active", digest.ActiveEmployees,
		"present", digest.Present, "late", digest.Late, "absent", digest.Absent)
	return digest, nil
}

// PayrollReminder counts the payrolls HR still has to act on and emits one
// reminder, even when every count is zero.
func (o *Orchestrator) PayrollReminder(ctx context.Context, ref hr.Date) (hr.PayrollReminderEvent, error) {
	if ref.IsZero() {
		return hr.PayrollReminderEvent{}, &hr.ValidationError{Field: "date", Message: "is required"}
	}
	reminder := hr.PayrollReminderEvent{Date: ref}
	for _, c := range []struct {
		status hr.PayrollStatus
		count  *int
	}{
		{hr.PayrollDraft, &reminder.Drafts},
		{hr.PayrollPending, &reminder.Pending},
		{hr.PayrollApproved, &reminder.Approved},
	} {
		payrolls, err := o.Store.ListPayrolls(ctx, hr.PayrollFilter{Status: c.status})
		if err != nil {
			return hr.PayrollReminderEvent{}, err
		}
		*c.count = len(payrolls)
	}
	o.Emit(ctx, reminder)

	o.Logger.Info("payroll reminder",
		"date", ref.String(), "draft", reminder.Drafts, "pending", reminder.Pending, "approved", reminder.Approved)
	return reminder, nil
}
