/*
errors.go - Error taxonomy of the leave engine

PURPOSE:
  Every rejection carries a specific, human-readable reason. Callers branch
  on the sentinels with errors.Is() and read the context (remaining
  allowance, conflicting request, offending field) with errors.As().

ERROR CATEGORIES:
  1. Input errors      - ValidationError, InvalidLeaveType, DocumentRequired
  2. Business errors   - QuotaExceeded, Overlap, InvalidTransition, PolicyConflict
  3. Lookup errors     - PolicyNotFound, RequestNotFound
  4. Collaborator errors - UploadError (document storage)

PROPAGATION:
  Errors raised inside a unit of work abort it and are returned unchanged
  (wrapped only with %w). Bulk transitions record errors per item.

SEE ALSO:
  - generic/errors.go: ErrConcurrentModification (retryable)
  - api/handlers.go: Mapping to HTTP status codes
*/
package leave

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrValidation        = errors.New("validation failed")
	ErrPolicyNotFound    = errors.New("leave policy not found")
	ErrRequestNotFound   = errors.New("leave request not found")
	ErrInvalidLeaveType  = errors.New("invalid leave type")
	ErrQuotaExceeded     = errors.New("leave quota exceeded")
	ErrOverlap           = errors.New("overlapping leave request")
	ErrDocumentRequired  = errors.New("supporting documents required")
	ErrUpload            = errors.New("document upload failed")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrPolicyConflict    = errors.New("leave policy conflict")

	// ErrForbidden is returned when the acting user may not touch the request.
	ErrForbidden = errors.New("operation not permitted")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError is a field-level input failure.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// InvalidLeaveTypeError names the reference that did not resolve.
type InvalidLeaveTypeError struct {
	Ref      string
	Inactive bool
}

func (e *InvalidLeaveTypeError) Error() string {
	if e.Inactive {
		return fmt.Sprintf("leave type %q is not active", e.Ref)
	}
	return fmt.Sprintf("leave type %q is not defined in the company policy", e.Ref)
}

func (e *InvalidLeaveTypeError) Unwrap() error { return ErrInvalidLeaveType }

// QuotaExceededError reports a yearly or monthly balance breach.
type QuotaExceededError struct {
	ShortCode string
	Window    string // "yearly" or "monthly"
	Period    generic.Period
	Limit     decimal.Decimal
	Used      decimal.Decimal
	Requested decimal.Decimal
}

// Remaining is the allowance left in the window, never negative.
func (e *QuotaExceededError) Remaining() decimal.Decimal {
	remaining := e.Limit.Sub(e.Used)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("%s: %s limit of %s day(s) exceeded for %s (used %s, requested %s). Remaining: %s",
		e.ShortCode, e.Window, e.Limit, e.Period, e.Used, e.Requested, e.Remaining())
}

func (e *QuotaExceededError) Unwrap() error { return ErrQuotaExceeded }

// OverlapError names the existing request that intersects the new range.
type OverlapError struct {
	ConflictingID string
	Status        Status
	Period        generic.Period
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("leave overlaps with %s request %s from %s to %s",
		e.Status, e.ConflictingID, e.Period.Start, e.Period.End)
}

func (e *OverlapError) Unwrap() error { return ErrOverlap }

// DocumentRequiredError is returned when a leave type's document threshold
// is breached without any attachment.
type DocumentRequiredError struct {
	ShortCode string
	Days      decimal.Decimal
	Threshold decimal.Decimal
}

func (e *DocumentRequiredError) Error() string {
	return fmt.Sprintf("%s: supporting documents are required for requests over %s day(s) (requested %s)",
		e.ShortCode, e.Threshold, e.Days)
}

func (e *DocumentRequiredError) Unwrap() error { return ErrDocumentRequired }

// UploadError wraps a document storage failure.
type UploadError struct {
	FileName string
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("uploading %q: %v", e.FileName, e.Err)
}

func (e *UploadError) Unwrap() []error { return []error{ErrUpload, e.Err} }

// InvalidTransitionError is a state machine violation.
type InvalidTransitionError struct {
	RequestID string
	From      Status
	To        Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("leave request %s cannot move from %s to %s", e.RequestID, e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// PolicyConflictError is a write-time policy invariant violation.
type PolicyConflictError struct {
	Reason string
}

func (e *PolicyConflictError) Error() string { return e.Reason }

func (e *PolicyConflictError) Unwrap() error { return ErrPolicyConflict }

func conflict(format string, args ...any) *PolicyConflictError {
	return &PolicyConflictError{Reason: fmt.Sprintf(format, args...)}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to the caller's input or a
// business rule the caller can correct.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidLeaveType) ||
		errors.Is(err, ErrQuotaExceeded) ||
		errors.Is(err, ErrOverlap) ||
		errors.Is(err, ErrDocumentRequired) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrPolicyConflict)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPolicyNotFound) || errors.Is(err, ErrRequestNotFound)
}

// PolicyNotFound builds the lookup error stores return for a company.
func PolicyNotFound(companyID string) error {
	return fmt.Errorf("%w for company %s", ErrPolicyNotFound, companyID)
}

// PolicyIDNotFound builds the lookup error stores return for a policy ID.
func PolicyIDNotFound(policyID string) error {
	return fmt.Errorf("%w: id %s", ErrPolicyNotFound, policyID)
}

// RequestNotFound builds the lookup error stores return for a request ID.
func RequestNotFound(id string) error {
	return fmt.Errorf("%w: %s", ErrRequestNotFound, id)
}
