/*
scheduler.go - Automated sweeps

PURPOSE:
  Periodically runs the scheduled checks of the engine:
  - attendance sweep for yesterday (late check-ins, missing check-outs)
  - document expiry sweep for today
  - weekly attendance digest, on WeeklyOn
  - payroll reminder, on day MonthlyOn of the month

DESIGN:
  - Runs a background goroutine with a configurable interval
  - Runs once immediately on start
  - The reference dates are computed here, at the boundary, from the
    engine clock and time zone; the orchestrator never reads the clock
    for them
  - Each (sweep, reference date) is claimed in the Journal before it runs,
    so a restart or a second instance on the same day does not notify
    twice. A failing sweep releases its claim and is retried on the next
    tick.

USAGE:
  scheduler := NewSweepScheduler(orchestrator, store, time.Hour, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: Sweep* handlers (manual trigger, never journaled)
  - compensation/orchestrator.go: the sweeps themselves
*/
package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/warp/workforce-engine/compensation"
	"github.com/warp/workforce-engine/hr"
)

// Journal kinds
const (
	SweepAttendance = "attendance"
	SweepDocuments  = "documents"
	SweepWeekly     = "weekly_digest"
	SweepMonthly    = "payroll_reminder"
)

// SweepScheduler runs the sweeps on an interval.
type SweepScheduler struct {
	Orchestrator *compensation.Orchestrator
	// Journal may be nil, in which case every run sweeps.
	Journal   hr.SweepJournal
	Interval  time.Duration
	WeeklyOn  time.Weekday
	MonthlyOn int
	Logger    *slog.Logger

	ticker  *time.Ticker
	stop    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	lastRun time.Time
}

// NewSweepScheduler creates a scheduler. A non-positive interval means
// once a day. The digest goes out on Mondays and the reminder on the 1st.
func NewSweepScheduler(orch *compensation.Orchestrator, journal hr.SweepJournal, interval time.Duration, logger *slog.Logger) *SweepScheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SweepScheduler{
		Orchestrator: orch,
		Journal:      journal,
		Interval:     interval,
		WeeklyOn:     time.Monday,
		MonthlyOn:    1,
		Logger:       logger,
	}
}

// Start begins the scheduler. Calling Start twice is a no-op.
func (s *SweepScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		return
	}
	s.ticker = time.NewTicker(s.Interval)
	s.stop = make(chan struct{})
	s.wg.Add(1)

	go s.run(s.ticker, s.stop)

	s.Logger.Info("sweep scheduler started", "interval", s.Interval)
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (s *SweepScheduler) Stop() {
	s.mu.Lock()
	if s.ticker == nil {
		s.mu.Unlock()
		return
	}
	s.ticker.Stop()
	close(s.stop)
	s.ticker = nil
	s.mu.Unlock()

	s.wg.Wait()
	s.Logger.Info("sweep scheduler stopped")
}

func (s *SweepScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer s.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stop
		cancel()
	}()

	// Run immediately on start
	s.RunNow(ctx)

	for {
		select {
		case <-ticker.C:
			s.RunNow(ctx)
		case <-stop:
			return
		}
	}
}

// RunNow runs every sweep that is due today and has not run yet.
func (s *SweepScheduler) RunNow(ctx context.Context) {
	orch := s.Orchestrator
	today := orch.Today()
	yesterday := today.AddDays(-1)

	s.once(ctx, SweepAttendance, yesterday, func(ctx context.Context) error {
		report, err := orch.CheckDailyAttendance(ctx, yesterday)
		if err == nil {
			s.Logger.Debug("attendance sweep done", "late", report.LateCheckIns, "missed_check_out", report.MissedCheckOuts)
		}
		return err
	})

	s.once(ctx, SweepDocuments, today, func(ctx context.Context) error {
		events, err := orch.CheckDocumentExpiry(ctx, today)
		if err == nil {
			s.Logger.Debug("document sweep done", "expiring", len(events))
		}
		return err
	})

	if today.Weekday() == s.WeeklyOn {
		s.once(ctx, SweepWeekly, today, func(ctx context.Context) error {
			_, err := orch.WeeklyAttendanceDigest(ctx, today)
			return err
		})
	}

	if today.Day() == s.MonthlyOn {
		s.once(ctx, SweepMonthly, today, func(ctx context.Context) error {
			_, err := orch.PayrollReminder(ctx, today)
			return err
		})
	}

	s.mu.Lock()
	s.lastRun = orch.Clock.Now()
	s.mu.Unlock()
}

// once runs sweep unless (kind, ref) was already claimed.
func (s *SweepScheduler) once(ctx context.Context, kind string, ref hr.Date, sweep func(context.Context) error) {
	if s.Journal != nil {
		claimed, err := s.Journal.ClaimSweep(ctx, kind, ref)
		if err != nil {
			s.Logger.Error("sweep claim failed", "err", err, "sweep", kind, "date", ref.String())
			return
		}
		if !claimed {
			s.Logger.Debug("sweep already ran", "sweep", kind, "date", ref.String())
			return
		}
	}

	if err := sweep(ctx); err != nil {
		s.Logger.Error("sweep failed", "err", err, "sweep", kind, "date", ref.String())
		if s.Journal != nil {
			if err := s.Journal.ReleaseSweep(ctx, kind, ref); err != nil {
				s.Logger.Warn("failed to release sweep claim", "err", err, "sweep", kind, "date", ref.String())
			}
		}
	}
}

// NextRun returns when the next scheduled sweep will occur, or the zero
// time before the first run.
func (s *SweepScheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastRun.IsZero() {
		return time.Time{}
	}
	return s.lastRun.Add(s.Interval)
}
