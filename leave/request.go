/*
Package leave implements the leave application and policy engine.

PURPOSE:
  Validates leave requests against a per-company policy (leave-type catalogue,
  yearly and monthly quotas, half-day rules, document requirements, business
  days with holidays and week offs), checks overlap and balance inside one
  unit of work, and drives the approval state machine.

KEY CONCEPTS:
  - Policy:        Per-company configuration, versioned, never mutated in place
  - LeaveType:     One entry of the catalogue (CL, SL, EL, ...)
  - Request:       A leave application, split into an ordered breakup
  - BreakupEntry:  {leaveType, shortCode, days} allocation of one request
  - Ledger:        Read-side "days used" aggregation over policy windows
  - Service:       ApplyLeave and the approve/reject/cancel transitions
  - PolicyService: The write path for policies and leave types

LIFECYCLE:
  pending ──approve──► approved ──cancel──► cancelled
     │
     ├──reject───► rejected
     └──cancel───► cancelled

  A request whose every breakup type has RequiresApproval=false is approved
  by the applicant in the same unit of work that creates it.

SEE ALSO:
  - apply.go: The ApplyLeave pipeline
  - workflow.go: Status transitions
  - store.go: Persistence contract
*/
package leave

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/generic"
)

// HalfDay is the fixed quantity of a half-day request.
var HalfDay = decimal.RequireFromString("0.5")

// =============================================================================
// STATUS
// =============================================================================

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// CountedStatuses are the statuses that consume balance and block overlaps.
var CountedStatuses = []Status{StatusPending, StatusApproved}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// ParseStatus accepts the four status names.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.Valid() {
		return "", invalid("status", "unknown status %q (use pending, approved, rejected or cancelled)", s)
	}
	return status, nil
}

type HalfDayType string

const (
	HalfDayNone   HalfDayType = "none"
	HalfDayFirst  HalfDayType = "first-half"
	HalfDaySecond HalfDayType = "second-half"
)

// =============================================================================
// REQUEST
// =============================================================================

// BreakupEntry allocates part of a request to one leave type. Callers may
// reference the type by name or short code; persisted entries carry both.
type BreakupEntry struct {
	LeaveType string          `json:"leaveType" validate:"required_without=ShortCode"`
	ShortCode string          `json:"shortCode" validate:"required_without=LeaveType"`
	Days      decimal.Decimal `json:"days"`
}

// Document is an uploaded piece of evidence. Name is the original filename.
type Document struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Request is a leave application. Only status transitions mutate it after
// creation; it is never deleted.
type Request struct {
	ID           string
	EmployeeID   string
	CompanyID    string
	LeaveBreakup []BreakupEntry
	StartDate    generic.Date
	EndDate      generic.Date
	TotalDays    decimal.Decimal
	Reason       string
	IsHalfDay    bool
	HalfDayType  HalfDayType
	Documents    []Document
	Status       Status

	ApprovedBy      string
	RejectedBy      string
	CancelledBy     string
	ApprovedAt      *time.Time
	RejectedAt      *time.Time
	CancelledAt     *time.Time
	RejectionReason string
	ApprovalComment string

	// PolicyVersion is the version of the policy the request was validated against.
	PolicyVersion int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Period returns the inclusive date range of the request.
func (r *Request) Period() generic.Period {
	return generic.Period{Start: r.StartDate, End: r.EndDate}
}

// DaysFor sums the breakup days allocated to a short code.
func (r *Request) DaysFor(shortCode string) decimal.Decimal {
	total := decimal.Zero
	for _, entry := range r.LeaveBreakup {
		if entry.ShortCode == shortCode {
			total = total.Add(entry.Days)
		}
	}
	return total
}

// Clone returns a deep copy.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	c := *r
	c.LeaveBreakup = append([]BreakupEntry(nil), r.LeaveBreakup...)
	c.Documents = append([]Document(nil), r.Documents...)
	c.ApprovedAt = cloneTime(r.ApprovedAt)
	c.RejectedAt = cloneTime(r.RejectedAt)
	c.CancelledAt = cloneTime(r.CancelledAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
