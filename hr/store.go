/*
store.go - Persistence interfaces

PURPOSE:
  Defines the boundary between the engine and the database. Services only
  depend on these interfaces; store/sqlite provides the implementation.

KEY INTERFACES:
  Store:   Per-entity persistence (employees, attendance, leave, payroll,
           documents)
  TxStore: Store plus WithTx for atomic read-check-write sequences

UNIQUENESS:
  The store enforces the business keys itself (unique indexes), so a
  concurrent duplicate that slips past an in-transaction check still fails:
  - attendance: (employee_id, date)
  - payroll:    (employee_id, period_start, period_end)
  - employee:   user_id
  Inserts that violate a key return *DuplicateRecordError.

COMPARE-AND-SET:
  UpdateLeaveRequest and UpdatePayroll take the version the caller read.
  If the stored version differs, nothing is written and
  ErrConcurrentModification is returned.

SEE ALSO:
  - store/sqlite: Concrete implementation
*/
package hr

import "context"

// =============================================================================
// FILTERS
// =============================================================================

type EmployeeFilter struct {
	Status    EmployeeStatus
	ManagerID string
}

type LeaveFilter struct {
	EmployeeID string
	Status     LeaveStatus
	Type       LeaveType
}

// PayrollFilter selects payrolls. A non-nil Period matches that exact period.
type PayrollFilter struct {
	EmployeeID string
	Status     PayrollStatus
	Period     *Period
}

type AuditFilter struct {
	EntityType string
	EntityID   string
	Actor      string
}

// =============================================================================
// STORE INTERFACES
// =============================================================================

type EmployeeStore interface {
	InsertEmployee(ctx context.Context, emp *Employee) error
	UpdateEmployee(ctx context.Context, emp *Employee) error
	GetEmployee(ctx context.Context, id string) (*Employee, error)
	ListEmployees(ctx context.Context, filter EmployeeFilter) ([]Employee, error)
	// MaxEmployeeNumber returns the highest numeric suffix of EMP### ids, or 0.
	MaxEmployeeNumber(ctx context.Context) (int, error)
}

type AttendanceStore interface {
	InsertAttendance(ctx context.Context, att *Attendance) error
	UpdateAttendance(ctx context.Context, att *Attendance) error
	GetAttendance(ctx context.Context, employeeID string, date Date) (*Attendance, error)
	ListAttendance(ctx context.Context, employeeID string, period Period) ([]Attendance, error)
	ListAttendanceOn(ctx context.Context, date Date) ([]Attendance, error)
	// ListAttendanceIn returns every employee's records dated in period.
	ListAttendanceIn(ctx context.Context, period Period) ([]Attendance, error)
}

type LeaveStore interface {
	InsertLeaveRequest(ctx context.Context, req *LeaveRequest) error
	GetLeaveRequest(ctx context.Context, id string) (*LeaveRequest, error)
	UpdateLeaveRequest(ctx context.Context, req *LeaveRequest, expectedVersion int) error
	ListLeaveRequests(ctx context.Context, filter LeaveFilter) ([]LeaveRequest, error)
}

type PayrollStore interface {
	InsertPayroll(ctx context.Context, p *Payroll) error
	GetPayroll(ctx context.Context, id string) (*Payroll, error)
	// FindPayroll returns the payroll for (employeeID, period) or a
	// *NotFoundError.
	FindPayroll(ctx context.Context, employeeID string, period Period) (*Payroll, error)
	UpdatePayroll(ctx context.Context, p *Payroll, expectedVersion int) error
	ListPayrolls(ctx context.Context, filter PayrollFilter) ([]Payroll, error)
}

type DocumentStore interface {
	InsertDocument(ctx context.Context, doc *Document) error
	ListDocumentsExpiring(ctx context.Context, window Period) ([]Document, error)
}

// Store combines the entity stores the engine reads and writes.
type Store interface {
	EmployeeStore
	AttendanceStore
	LeaveStore
	PayrollStore
	DocumentStore
}

// TxStore runs fn against a transactional view of the store. If fn returns
// an error every write made through the view is rolled back.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(Store) error) error
}

// NotificationStore persists notifications produced by the event sink.
type NotificationStore interface {
	InsertNotification(ctx context.Context, n *Notification) error
	MarkNotificationEmailed(ctx context.Context, id string) error
	ListNotifications(ctx context.Context, recipient string) ([]Notification, error)
}

// AuditSink receives audit entries. Failures are logged by the caller and
// never fail the audited operation.
type AuditSink interface {
	RecordAudit(ctx context.Context, entry AuditEntry) error
}

// SweepJournal remembers which scheduled sweeps already ran, so a restart
// does not notify twice for the same reference date.
type SweepJournal interface {
	// ClaimSweep records (kind, ref) and reports whether this caller is the
	// first to claim it.
	ClaimSweep(ctx context.Context, kind string, ref Date) (bool, error)
	// ReleaseSweep forgets a claim so a failed sweep can be retried.
	ReleaseSweep(ctx context.Context, kind string, ref Date) error
}

type AuditLog interface {
	AuditSink
	QueryAudit(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}
