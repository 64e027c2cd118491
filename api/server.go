/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging through logrus
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests, origins from config
  5. WithActor:  Gateway identity headers into the context

ROUTES:
  POST   /leaves/apply                       Apply (JSON or multipart)
  PATCH  /leaves/{id}/approve                Approve (approver roles)
  PATCH  /leaves/{id}/reject                 Reject (approver roles)
  PATCH  /leaves/{id}/cancel                 Cancel (owner or approver)
  PATCH  /bulkupdate                         Bulk approve/reject
  GET    /leaves/{companyId}/{employeeId}    Employee's requests
  GET    /leaves/{companyId}?status=         Company's requests
  GET    /leave/{id}                         One request
  GET    /{employeeId}/summary?companyId=    Balance per leave type

  POST   /policies                           Create company policy
  GET    /policies/company/{companyId}       Policy of a company
  GET    /policies/{id}                      Policy by ID
  PATCH  /policies/{id}/settings             Year start, week off, holidays
  POST   /policies/{id}/leave-types          Add leave type
  PATCH  /policies/{id}/leave-types/{typeId} Update leave type
  PATCH  /policies/{id}/leave-types/{typeId}/toggle

  GET    /calendar/{companyId}/business-days Business-day count
  GET    /healthz                            Store health
  GET    /scenarios, POST /scenarios/load    Demo data

SECURITY NOTE:
  Authentication happens upstream. The API trusts X-User-ID, X-Company-ID
  and X-Role as asserted by the gateway.

SEE ALSO:
  - handlers.go: Handler implementations
  - actor.go: Identity headers
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	log "github.com/sirupsen/logrus"
)

// RouterOptions configures the middleware stack.
type RouterOptions struct {
	AllowedOrigins []string
	Logger         *log.Logger
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	logger := opts.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: logger, NoColor: true}))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", HeaderUserID, HeaderCompanyID, HeaderRole},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))
	r.Use(WithActor)

	r.Get("/healthz", h.Health)

	// Leave routes
	r.Post("/leaves/apply", h.ApplyLeave)
	r.Patch("/leaves/{id}/approve", h.ApproveLeave)
	r.Patch("/leaves/{id}/reject", h.RejectLeave)
	r.Patch("/leaves/{id}/cancel", h.CancelLeave)
	r.Patch("/bulkupdate", h.BulkUpdate)
	r.Get("/leaves/{companyId}/{employeeId}", h.ListEmployeeLeaves)
	r.Get("/leaves/{companyId}", h.ListCompanyLeaves)
	r.Get("/leave/{id}", h.GetLeave)
	r.Get("/{employeeId}/summary", h.GetSummary)

	// Policy routes
	r.Route("/policies", func(r chi.Router) {
		r.Post("/", h.CreatePolicy)
		r.Get("/company/{companyId}", h.GetCompanyPolicy)
		r.Get("/{id}", h.GetPolicy)
		r.Patch("/{id}/settings", h.UpdatePolicySettings)
		r.Post("/{id}/leave-types", h.AddLeaveType)
		r.Patch("/{id}/leave-types/{typeId}", h.UpdateLeaveType)
		r.Patch("/{id}/leave-types/{typeId}/toggle", h.ToggleLeaveType)
	})

	// Calendar routes
	r.Get("/calendar/{companyId}/business-days", h.BusinessDays)

	// Scenario routes
	r.Route("/scenarios", func(r chi.Router) {
		r.Get("/", h.ListScenarios)
		r.Post("/load", h.LoadScenario)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Route not found", nil)
	})
	return r
}
