package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

// Gateway headers carrying the authenticated identity.
const (
	HeaderUserID    = "X-User-ID"
	HeaderCompanyID = "X-Company-ID"
	HeaderRole      = "X-Role"
)

// approverRoles may approve, reject and bulk update leave requests.
var approverRoles = map[string]bool{
	"superadmin": true,
	"admin":      true,
	"subadmin":   true,
}

// readerRoles may list and read every request of their company.
var readerRoles = map[string]bool{
	"superadmin": true,
	"admin":      true,
	"subadmin":   true,
	"hr":         true,
	"manager":    true,
}

// Actor is the caller as asserted by the upstream gateway.
type Actor struct {
	UserID    string
	CompanyID string
	Role      string
}

// IsApprover reports whether the role may act on other employees' requests.
func (a Actor) IsApprover() bool {
	return approverRoles[a.Role]
}

// CanReadCompany reports whether the role may read other employees' requests.
func (a Actor) CanReadCompany() bool {
	return readerRoles[a.Role]
}

// CanAccessCompany is false when the actor is bound to another company.
func (a Actor) CanAccessCompany(companyID string) bool {
	return a.CompanyID == "" || a.CompanyID == companyID
}

type actorKey struct{}

// ActorFromContext returns the actor set by WithActor.
func ActorFromContext(ctx context.Context) Actor {
	a, _ := ctx.Value(actorKey{}).(Actor)
	return a
}

// WithActor reads the gateway headers into the request context and tags
// the request log entry.
func WithActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := Actor{
			UserID:    strings.TrimSpace(r.Header.Get(HeaderUserID)),
			CompanyID: strings.TrimSpace(r.Header.Get(HeaderCompanyID)),
			Role:      strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderRole))),
		}
		ctx := context.WithValue(r.Context(), actorKey{}, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLogger tags service log entries with the request and actor.
func requestLogger(r *http.Request) *log.Entry {
	actor := ActorFromContext(r.Context())
	return log.WithContext(r.Context()).WithFields(log.Fields{
		"request_id": middleware.GetReqID(r.Context()),
		"user_id":    actor.UserID,
		"company_id": actor.CompanyID,
	})
}
