/*
workflow.go - Approval state machine

TRANSITIONS:
  pending  → approved   Approve (approver required, optional comment)
  pending  → rejected   Reject  (non-empty reason required)
  pending  → cancelled  Cancel
  approved → cancelled  Cancel

  Everything else fails with InvalidTransitionError and leaves the request
  untouched. A request auto-approved at creation is already approved, so a
  later Approve fails instead of stamping a second approval.

SCOPING:
  When an input carries CompanyID the request must belong to that company.
  Cancel by a non-approver is limited to the request's own employee.
  Violations fail with ErrForbidden.

BULK:
  BulkTransition evaluates each ID in its own unit of work; one failure is
  recorded in its result slot and never aborts the others.
*/
package leave

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/warp/leave-engine/generic"
)

var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved: {StatusCancelled},
}

// CanTransition reports whether the state machine allows from → to.
func CanTransition(from, to Status) bool {
	return hasStatus(transitions[from], to)
}

type ApproveInput struct {
	ApproverID string
	Comment    string
	CompanyID  string
}

type RejectInput struct {
	RejectedBy string
	Reason     string
	CompanyID  string
}

type CancelInput struct {
	CancelledBy string
	CompanyID   string

	// AsApprover lets the actor cancel requests of other employees.
	AsApprover bool
}

// Approve moves a pending request to approved.
func (s *Service) Approve(ctx context.Context, id string, in ApproveInput) (*Request, error) {
	approver := strings.TrimSpace(in.ApproverID)
	if approver == "" {
		return nil, invalid("approvedBy", "approver identity is required")
	}
	return s.transition(ctx, id, StatusApproved, in.CompanyID, nil, func(r *Request, now time.Time) {
		r.ApprovedBy = approver
		r.ApprovedAt = &now
		r.ApprovalComment = strings.TrimSpace(in.Comment)
	})
}

// Reject moves a pending request to rejected.
func (s *Service) Reject(ctx context.Context, id string, in RejectInput) (*Request, error) {
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return nil, invalid("rejectionReason", "a rejection reason is required")
	}
	return s.transition(ctx, id, StatusRejected, in.CompanyID, nil, func(r *Request, now time.Time) {
		r.RejectedBy = strings.TrimSpace(in.RejectedBy)
		r.RejectedAt = &now
		r.RejectionReason = reason
	})
}

// Cancel moves a pending or approved request to cancelled.
func (s *Service) Cancel(ctx context.Context, id string, in CancelInput) (*Request, error) {
	actor := strings.TrimSpace(in.CancelledBy)
	guard := func(r *Request) error {
		if !in.AsApprover && actor != "" && actor != r.EmployeeID {
			return fmt.Errorf("%w: only %s or an approver may cancel leave request %s", ErrForbidden, r.EmployeeID, r.ID)
		}
		return nil
	}
	return s.transition(ctx, id, StatusCancelled, in.CompanyID, guard, func(r *Request, now time.Time) {
		r.CancelledBy = actor
		r.CancelledAt = &now
	})
}

func (s *Service) transition(ctx context.Context, id string, to Status, companyID string, guard func(*Request) error, stamp func(*Request, time.Time)) (*Request, error) {
	logger := s.logger(ctx).WithFields(log.Fields{"request_id": id, "to": to})

	var updated *Request
	err := s.unitOfWork(ctx, func(tx Store) error {
		req, err := tx.GetRequest(ctx, id)
		if err != nil {
			return err
		}
		if companyID != "" && req.CompanyID != companyID {
			return fmt.Errorf("%w: leave request %s belongs to another company", ErrForbidden, id)
		}
		if guard != nil {
			if err := guard(req); err != nil {
				return err
			}
		}
		if !CanTransition(req.Status, to) {
			return &InvalidTransitionError{RequestID: id, From: req.Status, To: to}
		}

		now := s.now()
		stamp(req, now)
		req.Status = to
		req.UpdatedAt = now
		if err := tx.UpdateRequest(ctx, req); err != nil {
			return err
		}
		updated = req
		return nil
	})
	if err != nil {
		logger.WithError(err).Info("leave transition refused")
		return nil, err
	}

	logger.Info("leave request transitioned")
	return updated, nil
}

// =============================================================================
// BULK TRANSITIONS
// =============================================================================

type BulkInput struct {
	IDs       []string
	Status    Status // approved or rejected
	ActorID   string
	CompanyID string
	Comment   string
	Reason    string
}

// BulkResult is the outcome for one ID.
type BulkResult struct {
	ID      string
	Request *Request
	Err     error
}

// BulkTransition approves or rejects each ID independently. Malformed input
// (no IDs, unsupported target status) fails as a whole.
func (s *Service) BulkTransition(ctx context.Context, in BulkInput) ([]BulkResult, error) {
	if len(in.IDs) == 0 {
		return nil, invalid("ids", "at least one leave request id is required")
	}
	if in.Status != StatusApproved && in.Status != StatusRejected {
		return nil, invalid("status", "bulk update supports %s or %s, got %q", StatusApproved, StatusRejected, in.Status)
	}

	results := make([]BulkResult, 0, len(in.IDs))
	for _, id := range in.IDs {
		id = strings.TrimSpace(id)
		var (
			req *Request
			err error
		)
		if in.Status == StatusApproved {
			req, err = s.Approve(ctx, id, ApproveInput{ApproverID: in.ActorID, Comment: in.Comment, CompanyID: in.CompanyID})
		} else {
			req, err = s.Reject(ctx, id, RejectInput{RejectedBy: in.ActorID, Reason: in.Reason, CompanyID: in.CompanyID})
		}
		results = append(results, BulkResult{ID: id, Request: req, Err: err})
	}
	return results, nil
}

// =============================================================================
// QUERIES
// =============================================================================

func (s *Service) GetRequest(ctx context.Context, id string) (*Request, error) {
	return s.Store.GetRequest(ctx, id)
}

// ListEmployeeRequests returns an employee's requests, newest start first.
func (s *Service) ListEmployeeRequests(ctx context.Context, companyID, employeeID string) ([]*Request, error) {
	return s.Store.FindRequests(ctx, RequestFilter{CompanyID: companyID, EmployeeID: employeeID})
}

// ListCompanyRequests returns a company's requests, optionally by status.
func (s *Service) ListCompanyRequests(ctx context.Context, companyID string, statuses ...Status) ([]*Request, error) {
	return s.Store.FindRequests(ctx, RequestFilter{CompanyID: companyID, Statuses: statuses})
}

// Summary reports the employee's balance per active leave type as of a
// date (today when zero).
func (s *Service) Summary(ctx context.Context, companyID, employeeID string, asOf generic.Date) ([]TypeBalance, error) {
	policy, err := s.Store.FindPolicyByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if asOf.IsZero() {
		asOf = generic.DateOf(s.now())
	}
	return NewLedger(s.Store).Summary(ctx, policy, employeeID, asOf)
}
