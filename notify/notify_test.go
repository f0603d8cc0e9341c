package notify_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/workforce-engine/hr"
	"github.com/warp/workforce-engine/notify"
	"github.com/warp/workforce-engine/store/sqlite"
)

var now = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

type mail struct{ to, subject, body string }

type recordingMailer struct {
	mu   sync.Mutex
	sent []mail
	err  error
}

func (m *recordingMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, mail{to, subject, body})
	return nil
}

func newTestService(t *testing.T, mailer notify.Mailer) (*notify.Service, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	for _, emp := range []*hr.Employee{
		{ID: "EMP001", UserID: "boss", FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com"},
		{ID: "EMP002", UserID: "u2", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", ManagerID: "EMP001"},
	} {
		emp.Status = hr.EmployeeActive
		emp.HireDate = hr.MustParseDate("2024-01-01")
		emp.Schedule = hr.DefaultSchedule()
		emp.CreatedAt, emp.UpdatedAt = now, now
		require.NoError(t, store.InsertEmployee(ctx, emp))
	}

	return notify.NewService(store, store, mailer, hr.FixedClock{T: now}, nil), store
}

func TestPublish_LeaveSubmitted_NotifiesHRAndManager(t *testing.T) {
	mailer := &recordingMailer{}
	svc, store := newTestService(t, mailer)
	ctx := context.Background()

	err := svc.Publish(ctx, hr.LeaveSubmittedEvent{Request: hr.LeaveRequest{
		ID: "req-1", EmployeeID: "EMP002", Type: hr.LeaveVacation,
		StartDate: hr.MustParseDate("2025-03-17"), EndDate: hr.MustParseDate("2025-03-19"), DaysRequested: 3,
	}})
	require.NoError(t, err)

	inbox, err := store.ListNotifications(ctx, notify.RoleHR)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, "Vacation leave request from EMP002", inbox[0].Title)
	assert.Equal(t, "leave.submitted", inbox[0].Type)
	assert.False(t, inbox[0].EmailSent)

	boss, err := store.ListNotifications(ctx, "boss")
	require.NoError(t, err)
	require.Len(t, boss, 1)
	assert.True(t, boss[0].EmailSent)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "grace@example.com", mailer.sent[0].to)
}

func TestPublish_PayrollApproved_MailsPayslip(t *testing.T) {
	mailer := &recordingMailer{}
	svc, _ := newTestService(t, mailer)

	err := svc.Publish(context.Background(), hr.PayrollApprovedEvent{Payroll: hr.Payroll{
		ID: "pay-1", EmployeeID: "EMP002",
		PeriodStart: hr.MustParseDate("2025-03-01"), PeriodEnd: hr.MustParseDate("2025-03-14"),
		NetSalary: hr.MustDecimal("2424.04"), Status: hr.PayrollApproved,
	}})
	require.NoError(t, err)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "ada@example.com", mailer.sent[0].to)
	assert.True(t, strings.HasPrefix(mailer.sent[0].body, "PAYSLIP"))
	assert.Contains(t, mailer.sent[0].body, "2424.04")
}

func TestPublish_MailFailureIsNotFatal(t *testing.T) {
	// GIVEN: A mailer that always fails
	// WHEN: Publishing an approval
	// THEN: No error; the notification is stored and marked unsent

	mailer := &recordingMailer{err: errors.New("smtp down")}
	svc, store := newTestService(t, mailer)
	ctx := context.Background()

	err := svc.Publish(ctx, hr.LeaveApprovedEvent{Request: hr.LeaveRequest{ID: "req-1", EmployeeID: "EMP002", Type: hr.LeaveSick}})
	require.NoError(t, err)

	stored, err := store.ListNotifications(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "Sick leave approved", stored[0].Title)
	assert.False(t, stored[0].EmailSent)
}

func TestPublish_UnknownEmployeeIsReported(t *testing.T) {
	svc, _ := newTestService(t, &recordingMailer{})
	err := svc.Publish(context.Background(), hr.LateCheckInEvent{Attendance: hr.Attendance{EmployeeID: "EMP404", Date: hr.MustParseDate("2025-03-10")}})
	assert.ErrorIs(t, err, hr.ErrNotFound)
}

func TestPublish_ThroughEmitNeverFails(t *testing.T) {
	svc, store := newTestService(t, &recordingMailer{})
	ctx := context.Background()

	hr.Emit(ctx, svc, nil,
		hr.DocumentExpiringEvent{Document: hr.Document{ID: "doc-1", EmployeeID: "EMP002", Title: "Passport", ExpiryDate: hr.MustParseDate("2025-04-01")}, DaysLeft: 22},
		hr.MissedCheckOutEvent{Attendance: hr.Attendance{EmployeeID: "EMP404"}},
	)

	inbox, err := store.ListNotifications(ctx, notify.RoleHR)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, "Document expiring: Passport", inbox[0].Title)
}

func TestPublish_DigestAndReminderGoToHROnly(t *testing.T) {
	mailer := &recordingMailer{}
	svc, store := newTestService(t, mailer)
	ctx := context.Background()

	err := svc.Publish(ctx, hr.AttendanceDigestEvent{
		Period:          hr.Period{Start: hr.MustParseDate("2025-03-03"), End: hr.MustParseDate("2025-03-10")},
		ActiveEmployees: 3,
		Present:         2,
		Late:            1,
		Absent:          1,
		Rate:            hr.MustDecimal("66.7"),
	})
	require.NoError(t, err)
	require.NoError(t, svc.Publish(ctx, hr.PayrollReminderEvent{Date: hr.MustParseDate("2025-03-01"), Drafts: 2, Pending: 1}))

	inbox, err := store.ListNotifications(ctx, notify.RoleHR)
	require.NoError(t, err)
	require.Len(t, inbox, 2)
	assert.Equal(t, "Weekly attendance summary", inbox[0].Title)
	assert.Equal(t, "2025-03-03 to 2025-03-10: 3 active employees, 2 present, 1 late, 1 absent. Attendance rate 66.7%.", inbox[0].Message)
	assert.Equal(t, "Payroll reminder", inbox[1].Title)
	assert.Contains(t, inbox[1].Message, "2 draft, 1 pending and 0 approved")

	// The HR inbox has no address
	assert.Empty(t, mailer.sent)
}
