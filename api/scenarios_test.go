package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/workforce-engine/hr"
)

func TestScenarios_AdminOnly(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(hrActor, http.MethodGet, "/api/scenarios", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(adminActor, http.MethodGet, "/api/scenarios", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]ScenarioDTO](t, rec), len(scenarios))
}

func TestScenarios_LoadEach(t *testing.T) {
	for _, sc := range scenarios {
		t.Run(sc.ID, func(t *testing.T) {
			// GIVEN: An empty database
			// WHEN: Loading the scenario through the API
			// THEN: It loads and becomes the current scenario

			s := newTestServer(t)

			rec := s.do(adminActor, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: sc.ID})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			rec = s.do(adminActor, http.MethodGet, "/api/scenarios/current", nil)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, sc.ID, decode[ScenarioDTO](t, rec).ID)

			rec = s.do(hrActor, http.MethodGet, "/api/employees", nil)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Len(t, decode[[]EmployeeDTO](t, rec), 3)
		})
	}
}

func TestScenarios_LeaveWorkflowStates(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(adminActor, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "leave-workflow"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(hrActor, http.MethodGet, "/api/leave-requests", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	statuses := map[string]int{}
	for _, lr := range decode[[]LeaveRequestDTO](t, rec) {
		statuses[lr.Status]++
	}
	assert.Equal(t, map[string]int{"pending": 1, "approved": 1, "rejected": 1}, statuses)
}

func TestScenarios_PayrollPeriodCreatesDrafts(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(adminActor, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "payroll-period"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(hrActor, http.MethodGet, "/api/payrolls?status=draft", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	payrolls := decode[[]PayrollDTO](t, rec)
	require.Len(t, payrolls, 3)
	for _, p := range payrolls {
		assert.NotEqual(t, "0.00", p.HoursWorked, p.EmployeeID)
	}
}

func TestScenarios_ReloadResets(t *testing.T) {
	s := newTestServer(t)
	for i := 0; i < 2; i++ {
		rec := s.do(adminActor, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "small-team"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := s.do(hrActor, http.MethodGet, "/api/employees", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]EmployeeDTO](t, rec), 3)
}

func TestScenarios_Unknown(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(adminActor, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "mars-colony"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "scenario_id", decode[ErrorResponse](t, rec).Field)
}

func TestSweepScheduler_RunNow(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(adminActor, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "small-team"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	sched := NewSweepScheduler(s.handler.Compensation, nil, 0, nil)
	assert.True(t, sched.NextRun().IsZero())

	sched.RunNow(context.Background())

	assert.Contains(t, s.sink.Names(), hr.DocumentExpiringEvent{}.EventName())
	assert.Equal(t, testNow.Add(sched.Interval), sched.NextRun())
}

func TestSweepScheduler_JournalPreventsRepeats(t *testing.T) {
	// GIVEN: A Monday (2025-03-10) and a scheduler whose monthly day is today
	// WHEN: It runs twice, as after a restart
	// THEN: Every sweep fires once

	s := newTestServer(t)
	rec := s.do(adminActor, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "small-team"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	before := len(s.sink.Names())

	sched := NewSweepScheduler(s.handler.Compensation, s.handler.Store, time.Hour, nil)
	sched.MonthlyOn = testNow.Day()

	sched.RunNow(context.Background())
	fired := s.sink.Names()[before:]
	assert.Contains(t, fired, hr.DocumentExpiringEvent{}.EventName())
	assert.Contains(t, fired, hr.AttendanceDigestEvent{}.EventName())
	assert.Contains(t, fired, hr.PayrollReminderEvent{}.EventName())

	restarted := NewSweepScheduler(s.handler.Compensation, s.handler.Store, time.Hour, nil)
	restarted.MonthlyOn = testNow.Day()
	restarted.RunNow(context.Background())

	assert.Len(t, s.sink.Names(), before+len(fired))
}

func TestSweepScheduler_WeeklyAndMonthlyOnlyOnTheirDay(t *testing.T) {
	s := newTestServer(t)

	sched := NewSweepScheduler(s.handler.Compensation, s.handler.Store, time.Hour, nil)
	sched.WeeklyOn = time.Friday
	sched.MonthlyOn = 1
	sched.RunNow(context.Background())

	assert.NotContains(t, s.sink.Names(), hr.AttendanceDigestEvent{}.EventName())
	assert.NotContains(t, s.sink.Names(), hr.PayrollReminderEvent{}.EventName())
}
