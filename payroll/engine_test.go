package payroll_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/workforce-engine/hr"
	"github.com/warp/workforce-engine/payroll"
	"github.com/warp/workforce-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var (
	hrClerk = hr.Actor{UserID: "hr-1", Role: hr.RoleHR}
	worker  = hr.Actor{UserID: "u1", Role: hr.RoleEmployee, EmployeeID: "EMP001"}

	now    = time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)
	period = hr.Period{Start: hr.MustParseDate("2025-03-01"), End: hr.MustParseDate("2025-03-14")}
)

func newTestEngine(t *testing.T) (*payroll.Engine, *sqlite.Store, *hr.MemorySink) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.InsertEmployee(context.Background(), &hr.Employee{
		ID:         "EMP001",
		UserID:     "u1",
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Status:     hr.EmployeeActive,
		HireDate:   hr.MustParseDate("2024-01-01"),
		BaseSalary: hr.MustDecimal("60000"),
		Schedule:   hr.DefaultSchedule(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}))

	sink := &hr.MemorySink{}
	engine := payroll.NewEngine(store, payroll.DefaultParams(), t.TempDir(), hr.Runtime{
		Clock:  hr.FixedClock{T: now},
		Events: sink,
		Audit:  store,
	})
	return engine, store, sink
}

func referenceCreate() payroll.CreateInput {
	return payroll.CreateInput{
		EmployeeID:    "EMP001",
		Period:        period,
		HoursWorked:   hr.MustDecimal("80"),
		OvertimeHours: hr.MustDecimal("5"),
		Deductions:    hr.MustDecimal("200"),
		Bonuses:       hr.MustDecimal("100"),
	}
}

// =============================================================================
// CREATE / UPDATE
// =============================================================================

func TestCreate_SnapshotsSalaryAndComputes(t *testing.T) {
	engine, _, sink := newTestEngine(t)

	p, err := engine.Create(context.Background(), hrClerk, referenceCreate())
	require.NoError(t, err)

	assert.Equal(t, hr.PayrollDraft, p.Status)
	assert.Equal(t, "60000.00", p.BaseSalary.StringFixed(2))
	assert.Equal(t, "216.35", p.OvertimePay.StringFixed(2))
	assert.Equal(t, "2424.04", p.NetSalary.StringFixed(2))
	assert.Equal(t, "hr-1", p.CreatedBy)
	assert.Equal(t, []string{"payroll.ready"}, sink.Names())
}

func TestCreate_ExplicitBaseSalary(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	in := referenceCreate()
	base := hr.MustDecimal("52000")
	in.BaseSalary = &base
	p, err := engine.Create(context.Background(), hrClerk, in)
	require.NoError(t, err)
	assert.Equal(t, "52000.00", p.BaseSalary.StringFixed(2))
}

func TestCreate_Idempotent(t *testing.T) {
	// GIVEN: A payroll for EMP001 over the period
	// WHEN: Creating the same (employee, period) again
	// THEN: DuplicateRecordError; exactly one record exists

	engine, store, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.Create(ctx, hrClerk, referenceCreate())
	require.NoError(t, err)

	_, err = engine.Create(ctx, hrClerk, referenceCreate())
	var dup *hr.DuplicateRecordError
	require.ErrorAs(t, err, &dup)

	all, err := store.ListPayrolls(ctx, hr.PayrollFilter{EmployeeID: "EMP001"})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreate_ConcurrentDuplicates_ExactlyOne(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 6)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = engine.Create(ctx, hrClerk, referenceCreate())
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, hr.ErrDuplicateRecord)
	}
	assert.Equal(t, 1, created)

	all, err := store.ListPayrolls(ctx, hr.PayrollFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreate_RequiresPayrollRole(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	_, err := engine.Create(context.Background(), worker, referenceCreate())
	assert.ErrorIs(t, err, hr.ErrPermissionDenied)
}

func TestCreate_InvalidPeriod(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	in := referenceCreate()
	in.Period = hr.Period{Start: period.End, End: period.Start}
	_, err := engine.Create(context.Background(), hrClerk, in)
	assert.ErrorIs(t, err, hr.ErrValidation)
}

func TestUpdate_RecomputesNet(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	p, err := engine.Create(ctx, hrClerk, referenceCreate())
	require.NoError(t, err)

	bonus := hr.MustDecimal("300")
	updated, err := engine.Update(ctx, hrClerk, p.ID, payroll.UpdateInput{Bonuses: &bonus})
	require.NoError(t, err)
	assert.Equal(t, "2624.04", updated.NetSalary.StringFixed(2))
	assert.Equal(t, 2, updated.Version)
}

func TestUpdate_NotAllowedAfterApproval(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	p, err := engine.Create(ctx, hrClerk, referenceCreate())
	require.NoError(t, err)
	_, err = engine.Approve(ctx, hrClerk, p.ID)
	require.NoError(t, err)

	zero := decimal.Zero
	_, err = engine.Update(ctx, hrClerk, p.ID, payroll.UpdateInput{Deductions: &zero})
	assert.ErrorIs(t, err, hr.ErrInvalidTransition)
}

// =============================================================================
// WORKFLOW
// =============================================================================

func TestWorkflow_DraftPendingApprovedPaid(t *testing.T) {
	engine, _, sink := newTestEngine(t)
	ctx := context.Background()

	p, err := engine.Create(ctx, hrClerk, referenceCreate())
	require.NoError(t, err)

	p, err = engine.Submit(ctx, hrClerk, p.ID)
	require.NoError(t, err)
	assert.Equal(t, hr.PayrollPending, p.Status)

	p, err = engine.Approve(ctx, hrClerk, p.ID)
	require.NoError(t, err)
	assert.Equal(t, hr.PayrollApproved, p.Status)
	assert.Equal(t, "hr-1", p.ApprovedBy)
	require.NotNil(t, p.ApprovedAt)

	p, err = engine.MarkPaid(ctx, hrClerk, p.ID)
	require.NoError(t, err)
	assert.Equal(t, hr.PayrollPaid, p.Status)

	_, err = engine.Reject(ctx, hrClerk, p.ID, "too late")
	assert.ErrorIs(t, err, hr.ErrInvalidTransition)
	assert.Equal(t, []string{"payroll.ready", "payroll.approved"}, sink.Names())
}

func TestReject_RequiresReason(t *testing.T) {
	engine, _, sink := newTestEngine(t)
	ctx := context.Background()

	p, err := engine.Create(ctx, hrClerk, referenceCreate())
	require.NoError(t, err)

	_, err = engine.Reject(ctx, hrClerk, p.ID, "")
	assert.ErrorIs(t, err, hr.ErrValidation)

	p, err = engine.Reject(ctx, hrClerk, p.ID, "hours disputed")
	require.NoError(t, err)
	assert.Equal(t, hr.PayrollRejected, p.Status)
	assert.Equal(t, "hours disputed", p.RejectionReason)
	assert.Contains(t, sink.Names(), "payroll.rejected")

	_, err = engine.Approve(ctx, hrClerk, p.ID)
	assert.ErrorIs(t, err, hr.ErrInvalidTransition)
}

func TestGet_OwnerOnly(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	p, err := engine.Create(ctx, hrClerk, referenceCreate())
	require.NoError(t, err)

	got, err := engine.Get(ctx, worker, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	stranger := hr.Actor{UserID: "u9", Role: hr.RoleEmployee, EmployeeID: "EMP009"}
	_, err = engine.Get(ctx, stranger, p.ID)
	assert.ErrorIs(t, err, hr.ErrPermissionDenied)
}

// =============================================================================
// PAYSLIP
// =============================================================================

func TestGeneratePayslip_OnceAndOnlyWhenApproved(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	p, err := engine.Create(ctx, hrClerk, referenceCreate())
	require.NoError(t, err)

	_, err = engine.GeneratePayslip(ctx, hrClerk, p.ID)
	assert.ErrorIs(t, err, hr.ErrInvalidTransition, "draft payroll has no payslip")

	_, err = engine.Approve(ctx, hrClerk, p.ID)
	require.NoError(t, err)

	p, err = engine.GeneratePayslip(ctx, hrClerk, p.ID)
	require.NoError(t, err)
	assert.True(t, p.PayslipGenerated)
	info, err := os.Stat(p.PayslipPath)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	_, err = engine.GeneratePayslip(ctx, hrClerk, p.ID)
	assert.ErrorIs(t, err, hr.ErrInvalidTransition)
}

func TestRenderPayslipText_Golden(t *testing.T) {
	emp := &hr.Employee{ID: "EMP001", FirstName: "Ada", LastName: "Lovelace"}
	p := &hr.Payroll{
		EmployeeID:    "EMP001",
		PeriodStart:   period.Start,
		PeriodEnd:     period.End,
		BaseSalary:    hr.MustDecimal("60000"),
		HoursWorked:   hr.MustDecimal("80"),
		OvertimeHours: hr.MustDecimal("5"),
		OvertimePay:   hr.MustDecimal("216.35"),
		Deductions:    hr.MustDecimal("200"),
		Bonuses:       hr.MustDecimal("100"),
		NetSalary:     hr.MustDecimal("2424.04"),
		Status:        hr.PayrollApproved,
	}

	g := goldie.New(t)
	g.Assert(t, "payslip_text", []byte(payroll.RenderPayslipText(p, emp)))
}
