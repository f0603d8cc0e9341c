/*
Package hr provides the shared kernel of the workforce engine.

PURPOSE:
  This package contains the entity types, calendar math, error taxonomy and
  persistence contracts that the attendance, leave, payroll and compensation
  packages build on. It has no knowledge of HTTP, SQL or delivery channels.

KEY CONCEPTS IN THIS FILE (types.go):
  - Decimal precision: every persisted money/hours value has 2 fractional
    places and at most 10 integer digits
  - Actor: an already-authenticated caller with a role
  - Runtime: clock, zone, event and audit sinks shared by the services

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal everywhere, never float64
  2. Determinism: no wall clock inside the engine, callers inject a Clock
  3. Fire-and-forget side effects: events and audit entries never fail the
     operation that produced them

SEE ALSO:
  - time.go: Date, ClockTime, Schedule and the lateness rule
  - errors.go: Error taxonomy
  - store.go: Persistence interfaces
  - events.go: Domain events and sinks
*/
package hr

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// DECIMAL PRECISION
// =============================================================================

const (
	// Scale is the number of fractional digits kept for money and hours.
	Scale = 2

	// MaxIntegerDigits bounds the integer part of every persisted decimal.
	MaxIntegerDigits = 10
)

var precisionLimit = decimal.New(1, MaxIntegerDigits)

// CheckPrecision rounds d to Scale places and rejects values whose integer
// part needs more than MaxIntegerDigits digits.
func CheckPrecision(field string, d decimal.Decimal) (decimal.Decimal, error) {
	rounded := d.Round(Scale)
	if rounded.Abs().GreaterThanOrEqual(precisionLimit) {
		return decimal.Zero, &ArithmeticOverflowError{Field: field, Value: d}
	}
	return rounded, nil
}

// MustDecimal parses s and panics on malformed input. Intended for constants
// and tests.
func MustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// HoursFromDuration converts a duration to fractional hours.
func HoursFromDuration(d time.Duration) decimal.Decimal {
	return decimal.NewFromInt(int64(d)).Div(decimal.NewFromInt(int64(time.Hour)))
}

// NewID returns a random identifier for records that have no business key.
func NewID() string {
	return uuid.NewString()
}

// =============================================================================
// ACTOR - authenticated caller supplied by the identity provider
// =============================================================================

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleHR       Role = "hr"
	RoleEmployee Role = "employee"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleHR, RoleEmployee:
		return true
	}
	return false
}

// Actor is the authenticated caller. EmployeeID is set for employee-role
// actors that own an employee profile.
type Actor struct {
	UserID     string
	Role       Role
	EmployeeID string
}

// SystemActor is used by scheduled jobs.
var SystemActor = Actor{UserID: "system", Role: RoleAdmin}

func (a Actor) CanViewAll() bool          { return a.Role == RoleAdmin || a.Role == RoleHR }
func (a Actor) CanEditEmployees() bool    { return a.Role == RoleAdmin || a.Role == RoleHR }
func (a Actor) CanApproveLeave() bool     { return a.Role == RoleHR || a.Role == RoleAdmin }
func (a Actor) CanManagePayroll() bool    { return a.Role == RoleHR || a.Role == RoleAdmin }
func (a Actor) CanRecordAttendance() bool { return a.Role == RoleHR || a.Role == RoleAdmin }

// Owns reports whether the actor is the employee identified by employeeID.
func (a Actor) Owns(employeeID string) bool {
	return a.EmployeeID != "" && a.EmployeeID == employeeID
}

// =============================================================================
// RUNTIME - collaborators shared by every service
// =============================================================================

// Runtime bundles the clock, the system time zone and the outbound sinks.
// Zero values are replaced by defaults in Normalize.
type Runtime struct {
	Clock    Clock
	Location *time.Location
	Events   EventSink
	Audit    AuditSink
	Logger   *slog.Logger
}

// Normalize fills unset collaborators with defaults.
func (r Runtime) Normalize() Runtime {
	if r.Clock == nil {
		r.Clock = SystemClock{}
	}
	if r.Location == nil {
		r.Location = time.UTC
	}
	if r.Logger == nil {
		r.Logger = slog.Default()
	}
	return r
}

// Now returns the current instant in the system zone.
func (r Runtime) Now() time.Time {
	return r.Clock.Now().In(r.Location)
}

// Today returns the current calendar date in the system zone.
func (r Runtime) Today() Date {
	return Today(r.Clock, r.Location)
}

// Emit publishes events without failing the caller.
func (r Runtime) Emit(ctx context.Context, events ...Event) {
	Emit(ctx, r.Events, r.Logger, events...)
}

// RecordAudit writes an audit entry without failing the caller.
func (r Runtime) RecordAudit(ctx context.Context, actor Actor, action, entityType, entityID, summary string) {
	if r.Audit == nil {
		return
	}
	entry := AuditEntry{
		ID:         NewID(),
		Actor:      actor.UserID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Summary:    summary,
		Timestamp:  r.Clock.Now().UTC(),
	}
	if err := r.Audit.RecordAudit(ctx, entry); err != nil {
		r.Logger.Warn("audit record failed", "err", err, "action", action, "entity_id", entityID)
	}
}
