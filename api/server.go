/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:     Unique ID per request for tracing
  2. RequestLogger: One slog line per request
  3. Recoverer:     Panic recovery (500 instead of crash)
  4. CORS:          Cross-origin requests from the configured origins
  5. Authenticate:  Bearer token -> hr.Actor (everything under /api)
  6. RequireRole:   Role gates on HR-only groups

ROUTE GROUPS:
  /healthz                 Liveness, no auth
  /api/employees/*         Employee profiles, attendance and leave views
  /api/attendance/*        Recording
  /api/leave-requests/*    Leave workflow
  /api/payrolls/*          Payroll workflow
  /api/payroll-runs        Batch (HR/admin)
  /api/sweeps/*            Scheduled checks on demand (HR/admin)
  /api/notifications       Inbox
  /api/audit               Audit trail (admin)
  /api/scenarios/*         Demo data (admin)

SEE ALSO:
  - handlers.go: Handler implementations
  - auth.go: Authentication middleware
  - cmd/server/main.go: Server startup
*/
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/warp/workforce-engine/hr"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	JWTSecret      []byte
	AllowedOrigins []string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(h.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	hrOnly := RequireRole(hr.RoleHR, hr.RoleAdmin)

	r.Route("/api", func(r chi.Router) {
		r.Use(Authenticate(opts.JWTSecret))

		// Employee routes
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.CreateEmployee)
			r.Get("/{id}", h.GetEmployee)
			r.Put("/{id}", h.UpdateEmployee)
			r.Put("/{id}/manager", h.SetManager)
			r.Get("/{id}/attendance", h.ListAttendance)
			r.Get("/{id}/attendance/summary", h.AttendanceSummary)
			r.Get("/{id}/leave-balance", h.LeaveBalance)
		})

		// Attendance routes
		r.Route("/attendance", func(r chi.Router) {
			r.Post("/", h.RecordAttendance)
			r.Put("/{employeeID}/{date}", h.UpdateAttendance)
		})

		// Leave routes
		r.Route("/leave-requests", func(r chi.Router) {
			r.Get("/", h.ListLeave)
			r.Post("/", h.SubmitLeave)
			r.Get("/{id}", h.GetLeave)
			r.Post("/{id}/approve", h.ApproveLeave)
			r.Post("/{id}/reject", h.RejectLeave)
			r.Post("/{id}/cancel", h.CancelLeave)
		})

		// Payroll routes
		r.Route("/payrolls", func(r chi.Router) {
			r.Get("/", h.ListPayrolls)
			r.Post("/", h.CreatePayroll)
			r.Get("/{id}", h.GetPayroll)
			r.Put("/{id}", h.UpdatePayroll)
			r.Post("/{id}/submit", h.SubmitPayroll)
			r.Post("/{id}/approve", h.ApprovePayroll)
			r.Post("/{id}/reject", h.RejectPayroll)
			r.Post("/{id}/pay", h.PayPayroll)
			r.Post("/{id}/payslip", h.GeneratePayslip)
			r.Get("/{id}/payslip", h.DownloadPayslip)
		})

		r.With(hrOnly).Post("/payroll-runs", h.RunPayrollBatch)

		// Sweep routes
		r.Route("/sweeps", func(r chi.Router) {
			r.Use(hrOnly)
			r.Post("/attendance", h.SweepAttendance)
			r.Post("/documents", h.SweepDocuments)
			r.Post("/weekly", h.SweepWeekly)
			r.Post("/monthly", h.SweepMonthly)
		})

		r.Get("/notifications", h.ListNotifications)
		r.With(RequireRole(hr.RoleAdmin)).Get("/audit", h.ListAudit)

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Use(RequireRole(hr.RoleAdmin))
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}

// RequestLogger logs method, path, status, duration and request id.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
