/*
store.go - Persistence contract of the leave engine

PURPOSE:
  The validator depends only on: find-by-filter with date-range and status
  predicates, an aggregate sum over a filtered set, atomic create and
  update, and a transaction wrapper with commit/abort semantics.

IMPLEMENTATIONS:
  - store/memory:   Mutex + snapshot rollback (tests, demos)
  - store/sqlite:   Single connection, BEGIN IMMEDIATE
  - store/postgres: SERIALIZABLE + per-employee advisory lock

UNIT OF WORK:
  WithTx runs fn with a Store bound to one transaction. Returning an error
  rolls everything back. Backends report lost races as
  generic.ErrConcurrentModification so callers can retry.

  Inside fn, all reads and writes must go through the handle passed to fn.

SEE ALSO:
  - apply.go: The main unit of work
  - generic/retry.go: Retry on ErrConcurrentModification
*/
package leave

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/generic"
)

// RequestFilter selects requests. Zero fields do not filter.
type RequestFilter struct {
	EmployeeID string
	CompanyID  string
	Statuses   []Status

	// StartWithin keeps requests whose StartDate falls inside the period.
	StartWithin *generic.Period

	// Overlapping keeps requests whose date range intersects the period.
	Overlapping *generic.Period

	ExcludeID string
}

// Matches is the reference semantics every backend implements.
func (f RequestFilter) Matches(r *Request) bool {
	if f.EmployeeID != "" && r.EmployeeID != f.EmployeeID {
		return false
	}
	if f.CompanyID != "" && r.CompanyID != f.CompanyID {
		return false
	}
	if len(f.Statuses) > 0 && !hasStatus(f.Statuses, r.Status) {
		return false
	}
	if f.StartWithin != nil && !f.StartWithin.Contains(r.StartDate) {
		return false
	}
	if f.Overlapping != nil && !f.Overlapping.Overlaps(r.Period()) {
		return false
	}
	if f.ExcludeID != "" && r.ID == f.ExcludeID {
		return false
	}
	return true
}

func hasStatus(statuses []Status, s Status) bool {
	for _, candidate := range statuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// BreakupFilter selects breakup entries for SumBreakupDays.
type BreakupFilter struct {
	EmployeeID string
	CompanyID  string
	ShortCode  string
	Statuses   []Status

	// StartWithin is matched against the owning request's StartDate.
	StartWithin generic.Period
}

// Sum applies the filter to a set of requests.
func (f BreakupFilter) Sum(requests []*Request) decimal.Decimal {
	rf := RequestFilter{
		EmployeeID:  f.EmployeeID,
		CompanyID:   f.CompanyID,
		Statuses:    f.Statuses,
		StartWithin: &f.StartWithin,
	}
	total := decimal.Zero
	for _, r := range requests {
		if rf.Matches(r) {
			total = total.Add(r.DaysFor(f.ShortCode))
		}
	}
	return total
}

// RequestStore persists leave requests.
type RequestStore interface {
	// GetRequest fails with ErrRequestNotFound.
	GetRequest(ctx context.Context, id string) (*Request, error)

	// FindRequests returns matches ordered by StartDate desc, CreatedAt desc.
	FindRequests(ctx context.Context, filter RequestFilter) ([]*Request, error)

	// SumBreakupDays sums Days over matching breakup entries.
	SumBreakupDays(ctx context.Context, filter BreakupFilter) (decimal.Decimal, error)

	CreateRequest(ctx context.Context, r *Request) error

	// UpdateRequest persists status and audit fields. Historical content
	// (dates, breakup, documents) is fixed at creation.
	UpdateRequest(ctx context.Context, r *Request) error
}

// PolicyStore persists leave policies.
type PolicyStore interface {
	PolicyReader

	// GetPolicy fails with ErrPolicyNotFound.
	GetPolicy(ctx context.Context, policyID string) (*Policy, error)

	// CreatePolicy fails with ErrPolicyConflict if the company has one.
	CreatePolicy(ctx context.Context, p *Policy) error

	// SavePolicy replaces the policy if its stored version equals
	// expectedVersion, then sets p.Version to expectedVersion+1. A mismatch
	// is generic.ErrConcurrentModification.
	SavePolicy(ctx context.Context, p *Policy, expectedVersion int) error
}

// Store is one transaction's view of persistence.
type Store interface {
	RequestStore
	PolicyStore

	// LockEmployee serializes units of work for one employee. Outside a
	// transaction it is a no-op.
	LockEmployee(ctx context.Context, companyID, employeeID string) error
}

// TxStore can run units of work.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(tx Store) error) error
}
