/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements every persistence interface of package hr (hr.TxStore,
  hr.NotificationStore, hr.AuditLog) on a single SQLite database.

KEY TABLES:
  employees:       Employment profiles and leave counters
  attendance:      One row per (employee, date)
  leave_requests:  Leave workflow, versioned for compare-and-set
  payrolls:        One row per (employee, period), versioned
  documents:       Employee documents with optional expiry
  notifications:   Messages produced by the event sink
  audit_log:       Append-only audit trail

UNIQUENESS:
  Business keys are unique indexes so the database itself rejects
  duplicates, including ones that race past an in-transaction check:
  - idx_attendance_employee_date
  - idx_payrolls_employee_period
  - idx_employees_user

CONCURRENCY:
  The pool is limited to one connection. A WithTx callback holds that
  connection until it commits, so every other statement waits for it.
  Inside WithTx only the store passed to the callback may be used.

USAGE:
  store, err := sqlite.New("./data/workforce.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - hr/store.go: Interface definitions
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/workforce-engine/hr"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	*queries
	db *sql.DB
}

var (
	_ hr.TxStore           = (*Store)(nil)
	_ hr.NotificationStore = (*Store)(nil)
	_ hr.AuditLog          = (*Store)(nil)
	_ hr.SweepJournal      = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every :memory: connection is its own database.
	db.SetMaxOpenConns(1)

	store := &Store{queries: &queries{db: db}, db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store hr.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&queries{db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Reset deletes every row. Used by the demo scenarios.
func (s *Store) Reset(ctx context.Context) error {
	return s.WithTx(ctx, func(store hr.Store) error {
		q := store.(*queries)
		if _, err := q.db.ExecContext(ctx, "UPDATE employees SET manager_id = NULL"); err != nil {
			return fmt.Errorf("failed to detach managers: %w", err)
		}
		// Children first so foreign keys hold.
		tables := []string{"sweep_runs", "audit_log", "notifications", "documents", "payrolls", "leave_requests", "attendance", "employees"}
		for _, table := range tables {
			if _, err := q.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		return nil
	})
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		department_id TEXT,
		position_id TEXT,
		manager_id TEXT REFERENCES employees(id),
		status TEXT NOT NULL,
		hire_date TEXT NOT NULL,
		termination_date TEXT,
		probation_end_date TEXT,
		base_salary TEXT NOT NULL,
		hourly_rate TEXT,
		work_start TEXT NOT NULL,
		work_end TEXT NOT NULL,
		work_days_per_week INTEGER NOT NULL,
		vacation_days INTEGER NOT NULL DEFAULT 0,
		sick_days INTEGER NOT NULL DEFAULT 0,
		personal_days INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_employees_user
		ON employees(user_id);
	CREATE INDEX IF NOT EXISTS idx_employees_manager
		ON employees(manager_id) WHERE manager_id IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_employees_status
		ON employees(status);

	CREATE TABLE IF NOT EXISTS attendance (
		employee_id TEXT NOT NULL REFERENCES employees(id),
		date TEXT NOT NULL,
		check_in TEXT,
		check_out TEXT,
		work_hours TEXT NOT NULL DEFAULT '0',
		overtime_hours TEXT NOT NULL DEFAULT '0',
		is_late BOOLEAN NOT NULL DEFAULT FALSE,
		is_absent BOOLEAN NOT NULL DEFAULT FALSE,
		notes TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- At most one attendance record per employee per calendar date
	CREATE UNIQUE INDEX IF NOT EXISTS idx_attendance_employee_date
		ON attendance(employee_id, date);
	CREATE INDEX IF NOT EXISTS idx_attendance_date
		ON attendance(date);

	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		leave_type TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		days_requested INTEGER NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		approved_by TEXT,
		approved_at TEXT,
		rejection_reason TEXT,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leave_requests_employee
		ON leave_requests(employee_id);
	CREATE INDEX IF NOT EXISTS idx_leave_requests_status
		ON leave_requests(status);

	CREATE TABLE IF NOT EXISTS payrolls (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		base_salary TEXT NOT NULL,
		hours_worked TEXT NOT NULL,
		overtime_hours TEXT NOT NULL,
		overtime_pay TEXT NOT NULL,
		deductions TEXT NOT NULL,
		bonuses TEXT NOT NULL,
		net_salary TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'draft',
		created_by TEXT NOT NULL DEFAULT '',
		approved_by TEXT,
		approved_at TEXT,
		rejection_reason TEXT,
		payslip_generated BOOLEAN NOT NULL DEFAULT FALSE,
		payslip_path TEXT,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- At most one payroll per employee per pay period
	CREATE UNIQUE INDEX IF NOT EXISTS idx_payrolls_employee_period
		ON payrolls(employee_id, period_start, period_end);
	CREATE INDEX IF NOT EXISTS idx_payrolls_status
		ON payrolls(status);

	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		document_type TEXT NOT NULL,
		title TEXT NOT NULL,
		expiry_date TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_documents_expiry
		ON documents(expiry_date) WHERE expiry_date IS NOT NULL;

	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		recipient TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		notification_type TEXT NOT NULL,
		related_type TEXT,
		related_id TEXT,
		email_sent BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_notifications_recipient
		ON notifications(recipient, created_at);

	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		actor TEXT NOT NULL,
		action TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		summary TEXT NOT NULL DEFAULT '',
		timestamp TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_log_entity
		ON audit_log(entity_type, entity_id);

	CREATE TABLE IF NOT EXISTS sweep_runs (
		kind TEXT NOT NULL,
		ref_date TEXT NOT NULL,
		claimed_at TEXT NOT NULL,
		PRIMARY KEY (kind, ref_date)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// QUERIES - shared by the pooled store and transactional views
// =============================================================================

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	db queryer
}

var _ hr.Store = (*queries)(nil)

type scanner interface {
	Scan(dest ...any) error
}

// where accumulates optional filter clauses.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, arg any) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, arg)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDate(d hr.Date) sql.NullString {
	return nullString(d.String())
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func nullDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseNullDate(s sql.NullString) (hr.Date, error) {
	if !s.Valid || s.String == "" {
		return hr.Date{}, nil
	}
	return hr.ParseDate(s.String)
}

func parseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	return d, nil
}

// isUniqueConstraintError reports a UNIQUE or PRIMARY KEY violation.
func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	return false
}

// checkAffected turns a zero-row compare-and-set update into the right error.
func (q *queries) checkAffected(ctx context.Context, res sql.Result, table, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var count int
	if err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table+" WHERE id = ?", id).Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		return &hr.NotFoundError{Entity: entity, ID: id}
	}
	return hr.ErrConcurrentModification
}
