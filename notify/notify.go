/*
Package notify turns domain events into stored notifications and mail.

PURPOSE:
  Implements hr.EventSink. Each event becomes one notification per
  recipient; recipients that are people also get an email.

RECIPIENTS:
  user id     the employee's user, mailed at the employee's address
  "role:hr"   the HR inbox, stored only

  leave.submitted            role:hr, and the manager if there is one
  leave.approved/rejected    the employee
  leave.cancelled            role:hr
  payroll.ready              the employee
  payroll.approved           the employee (payslip text as the mail body)
  payroll.rejected           role:hr
  attendance.late_check_in   the employee
  attendance.missed_check_out the employee
  document.expiring          the employee and role:hr
  attendance.weekly_digest   role:hr
  payroll.reminder           role:hr

FAILURES:
  A mail failure is logged and the notification stays unsent. Only a
  storage failure is returned, and hr.Emit logs it without failing the
  operation that raised the event.
*/
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/warp/workforce-engine/hr"
	"github.com/warp/workforce-engine/payroll"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// RoleHR is the recipient used for notifications addressed to the HR team.
const RoleHR = "role:hr"

// Mailer delivers one email.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogMailer writes mail to the log instead of sending it.
type LogMailer struct {
	Logger *slog.Logger
}

func (m LogMailer) Send(_ context.Context, to, subject, body string) error {
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("mail", "to", to, "subject", subject, "bytes", len(body))
	return nil
}

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	Store     hr.NotificationStore
	Employees hr.EmployeeStore
	Mailer    Mailer
	Clock     hr.Clock
	Logger    *slog.Logger
}

var _ hr.EventSink = (*Service)(nil)

func NewService(store hr.NotificationStore, employees hr.EmployeeStore, mailer Mailer, clock hr.Clock, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if mailer == nil {
		mailer = LogMailer{Logger: logger}
	}
	if clock == nil {
		clock = hr.SystemClock{}
	}
	return &Service{
		Store:     store,
		Employees: employees,
		Mailer:    mailer,
		Clock:     clock,
		Logger:    logger,
	}
}

// message is one notification before it is addressed.
type message struct {
	title       string
	body        string
	mailBody    string
	related     string
	relatedID   string
	toEmployee  string
	toManagerOf string
	toHR        bool
}

// Publish stores and delivers the notifications for event.
func (s *Service) Publish(ctx context.Context, event hr.Event) error {
	msg, ok := s.compose(ctx, event)
	if !ok {
		return nil
	}

	var errs []error
	if msg.toHR {
		if err := s.deliver(ctx, event, msg, RoleHR, ""); err != nil {
			errs = append(errs, err)
		}
	}
	for _, id := range []string{msg.toEmployee, s.managerOf(ctx, msg.toManagerOf)} {
		if id == "" {
			continue
		}
		emp, err := s.Employees.GetEmployee(ctx, id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := s.deliver(ctx, event, msg, emp.UserID, emp.Email); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Service) deliver(ctx context.Context, event hr.Event, msg message, recipient, email string) error {
	n := &hr.Notification{
		ID:          hr.NewID(),
		Recipient:   recipient,
		Title:       msg.title,
		Message:     msg.body,
		Type:        event.EventName(),
		RelatedType: msg.related,
		RelatedID:   msg.relatedID,
		CreatedAt:   s.Clock.Now().UTC(),
	}
	if err := s.Store.InsertNotification(ctx, n); err != nil {
		return fmt.Errorf("notification for %s: %w", recipient, err)
	}
	if email == "" {
		return nil
	}

	body := msg.body
	if msg.mailBody != "" {
		body = msg.mailBody
	}
	if err := s.Mailer.Send(ctx, email, msg.title, body); err != nil {
		s.Logger.Warn("notification mail failed", "err", err, "notification_id", n.ID, "recipient", recipient)
		return nil
	}
	if err := s.Store.MarkNotificationEmailed(ctx, n.ID); err != nil {
		s.Logger.Warn("failed to mark notification emailed", "err", err, "notification_id", n.ID)
	}
	return nil
}

func (s *Service) managerOf(ctx context.Context, employeeID string) string {
	if employeeID == "" {
		return ""
	}
	emp, err := s.Employees.GetEmployee(ctx, employeeID)
	if err != nil {
		s.Logger.Warn("manager lookup failed", "err", err, "employee_id", employeeID)
		return ""
	}
	return emp.ManagerID
}

// compose maps an event to its message. Unknown events are ignored.
func (s *Service) compose(ctx context.Context, event hr.Event) (message, bool) {
	switch ev := event.(type) {
	case hr.LeaveSubmittedEvent:
		r := ev.Request
		return message{
			title:       fmt.Sprintf("%s leave request from %s", s.leaveTitle(r.Type), r.EmployeeID),
			body:        fmt.Sprintf("%d days from %s to %s awaiting approval.", r.DaysRequested, r.StartDate, r.EndDate),
			related:     "leave_request",
			relatedID:   r.ID,
			toHR:        true,
			toManagerOf: r.EmployeeID,
		}, true

	case hr.LeaveApprovedEvent:
		r := ev.Request
		return message{
			title:      fmt.Sprintf("%s leave approved", s.leaveTitle(r.Type)),
			body:       fmt.Sprintf("Your leave from %s to %s was approved.", r.StartDate, r.EndDate),
			related:    "leave_request",
			relatedID:  r.ID,
			toEmployee: r.EmployeeID,
		}, true

	case hr.LeaveRejectedEvent:
		r := ev.Request
		return message{
			title:      fmt.Sprintf("%s leave rejected", s.leaveTitle(r.Type)),
			body:       fmt.Sprintf("Your leave from %s to %s was rejected: %s", r.StartDate, r.EndDate, r.RejectionReason),
			related:    "leave_request",
			relatedID:  r.ID,
			toEmployee: r.EmployeeID,
		}, true

	case hr.LeaveCancelledEvent:
		r := ev.Request
		return message{
			title:     fmt.Sprintf("%s leave cancelled by %s", s.leaveTitle(r.Type), r.EmployeeID),
			body:      fmt.Sprintf("The request for %s to %s was withdrawn.", r.StartDate, r.EndDate),
			related:   "leave_request",
			relatedID: r.ID,
			toHR:      true,
		}, true

	case hr.PayrollReadyEvent:
		p := ev.Payroll
		return message{
			title:      "Payroll ready",
			body:       fmt.Sprintf("Your payroll for %s to %s has been prepared.", p.PeriodStart, p.PeriodEnd),
			related:    "payroll",
			relatedID:  p.ID,
			toEmployee: p.EmployeeID,
		}, true

	case hr.PayrollApprovedEvent:
		p := ev.Payroll
		msg := message{
			title:      "Payroll approved",
			body:       fmt.Sprintf("Your payroll for %s to %s was approved. Net salary %s.", p.PeriodStart, p.PeriodEnd, p.NetSalary.StringFixed(hr.Scale)),
			related:    "payroll",
			relatedID:  p.ID,
			toEmployee: p.EmployeeID,
		}
		if emp, err := s.Employees.GetEmployee(ctx, p.EmployeeID); err == nil {
			msg.mailBody = payroll.RenderPayslipText(&p, emp)
		}
		return msg, true

	case hr.PayrollRejectedEvent:
		p := ev.Payroll
		return message{
			title:     fmt.Sprintf("Payroll for %s rejected", p.EmployeeID),
			body:      p.RejectionReason,
			related:   "payroll",
			relatedID: p.ID,
			toHR:      true,
		}, true

	case hr.LateCheckInEvent:
		a := ev.Attendance
		return message{
			title:      "Late check-in",
			body:       fmt.Sprintf("Your check-in on %s was after the scheduled start.", a.Date),
			related:    "attendance",
			relatedID:  a.EmployeeID + "/" + a.Date.String(),
			toEmployee: a.EmployeeID,
		}, true

	case hr.MissedCheckOutEvent:
		a := ev.Attendance
		return message{
			title:      "Missing check-out",
			body:       fmt.Sprintf("No check-out was recorded on %s.", a.Date),
			related:    "attendance",
			relatedID:  a.EmployeeID + "/" + a.Date.String(),
			toEmployee: a.EmployeeID,
		}, true

	case hr.DocumentExpiringEvent:
		d := ev.Document
		return message{
			title:      fmt.Sprintf("Document expiring: %s", d.Title),
			body:       fmt.Sprintf("%s expires on %s (%d days).", d.Title, d.ExpiryDate, ev.DaysLeft),
			related:    "document",
			relatedID:  d.ID,
			toEmployee: d.EmployeeID,
			toHR:       true,
		}, true

	case hr.AttendanceDigestEvent:
		return message{
			title: "Weekly attendance summary",
			body: fmt.Sprintf("%s to %s: %d active employees, %d present, %d late, %d absent. Attendance rate %s%%.",
				ev.Period.Start, ev.Period.End, ev.ActiveEmployees, ev.Present, ev.Late, ev.Absent, ev.Rate.StringFixed(1)),
			related: "attendance",
			toHR:    true,
		}, true

	case hr.PayrollReminderEvent:
		return message{
			title: "Payroll reminder",
			body: fmt.Sprintf("It's time to process payroll. %d draft, %d pending and %d approved payrolls are waiting.",
				ev.Drafts, ev.Pending, ev.Approved),
			related: "payroll",
			toHR:    true,
		}, true
	}

	s.Logger.Debug("no notification for event", "event", event.EventName())
	return message{}, false
}

// leaveTitle renders "vacation" as "Vacation". A Caser is stateful, so one
// is built per call.
func (s *Service) leaveTitle(t hr.LeaveType) string {
	return cases.Title(language.English).String(string(t))
}
