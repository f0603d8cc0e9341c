package hr

import (
	"context"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DOMAIN EVENTS
// =============================================================================

// Event is something that happened which recipients may need to know about.
// Events are emitted after the producing write has committed.
type Event interface {
	EventName() string
}

type LeaveSubmittedEvent struct{ Request LeaveRequest }

type LeaveApprovedEvent struct {
	Request  LeaveRequest
	Approver string
}

type LeaveRejectedEvent struct {
	Request  LeaveRequest
	Approver string
}

type LeaveCancelledEvent struct{ Request LeaveRequest }

// PayrollReadyEvent is emitted when a payroll record is created.
type PayrollReadyEvent struct{ Payroll Payroll }

type PayrollApprovedEvent struct{ Payroll Payroll }

type PayrollRejectedEvent struct{ Payroll Payroll }

type LateCheckInEvent struct{ Attendance Attendance }

type MissedCheckOutEvent struct{ Attendance Attendance }

type DocumentExpiringEvent struct {
	Document Document
	DaysLeft int
}

// AttendanceDigestEvent summarizes a week of attendance over active employees.
// Rate is Present / ActiveEmployees as a percentage with one decimal.
type AttendanceDigestEvent struct {
	Period          Period
	ActiveEmployees int
	Present         int
	Late            int
	Absent          int
	Rate            decimal.Decimal
}

// PayrollReminderEvent asks HR to process the payrolls still waiting on them.
type PayrollReminderEvent struct {
	Date     Date
	Drafts   int
	Pending  int
	Approved int // approved, not yet paid
}

func (LeaveSubmittedEvent) EventName() string   { return "leave.submitted" }
func (LeaveApprovedEvent) EventName() string    { return "leave.approved" }
func (LeaveRejectedEvent) EventName() string    { return "leave.rejected" }
func (LeaveCancelledEvent) EventName() string   { return "leave.cancelled" }
func (PayrollReadyEvent) EventName() string     { return "payroll.ready" }
func (PayrollApprovedEvent) EventName() string  { return "payroll.approved" }
func (PayrollRejectedEvent) EventName() string  { return "payroll.rejected" }
func (LateCheckInEvent) EventName() string      { return "attendance.late_check_in" }
func (MissedCheckOutEvent) EventName() string   { return "attendance.missed_check_out" }
func (DocumentExpiringEvent) EventName() string { return "document.expiring" }
func (AttendanceDigestEvent) EventName() string { return "attendance.weekly_digest" }
func (PayrollReminderEvent) EventName() string  { return "payroll.reminder" }

// =============================================================================
// SINKS
// =============================================================================

type EventSink interface {
	Publish(ctx context.Context, event Event) error
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ctx context.Context, event Event) error

func (f EventSinkFunc) Publish(ctx context.Context, event Event) error { return f(ctx, event) }

// Emit delivers each event to sink. Delivery errors are logged, never
// returned: a failed notification must not undo the operation that caused it.
func Emit(ctx context.Context, sink EventSink, logger *slog.Logger, events ...Event) {
	if sink == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	for _, event := range events {
		if err := sink.Publish(ctx, event); err != nil {
			logger.Warn("event delivery failed", "err", err, "event", event.EventName())
		}
	}
}

// MemorySink collects published events. Safe for concurrent use.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

func (s *MemorySink) Publish(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a copy of everything published so far.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// Names returns the event names in publish order.
func (s *MemorySink) Names() []string {
	var names []string
	for _, e := range s.Events() {
		names = append(names, e.EventName())
	}
	return names
}
