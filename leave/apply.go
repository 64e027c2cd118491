/*
apply.go - The leave application pipeline

PURPOSE:
  ApplyLeave decides whether a request is accepted, then records it. Steps,
  in order; any failure aborts and leaves nothing persisted:

   1. Required fields      employeeId, companyId, dates, reason, breakup
   2. Half-day rule        first-half | second-half, single day, 0.5 day
   3. Date ordering        endDate >= startDate
   4. Policy load          PolicyNotFound if the company has none
   5. Document intake      uploads, UploadError on failure
   6. Business days        calendar over the policy snapshot
   7. Zero-day guard       "no business days in range"
   8. Per breakup entry    type lookup, per-request bounds, documents,
                           yearly quota, monthly quota
   9. Overlap              pending/approved range intersection
  10. Persist              status pending
  11. Auto-approval        every type RequiresApproval=false

TRANSACTION BOUNDARY:
  Uploads cannot join a database transaction, so step 5 runs before the
  unit of work. The policy is loaded once before uploading to fail fast,
  and again inside the transaction. Steps 6-11 run inside WithTx after
  LockEmployee, and the whole unit is retried on
  generic.ErrConcurrentModification. When it finally fails, uploaded files
  are removed if the storage supports it.

NUMERIC SEMANTICS:
  Quantities are decimals in 0.5 steps. Quota checks are strict:
  used + days > max is rejected, reaching max exactly is legal. A zero
  bound is unlimited.

SEE ALSO:
  - ledger.go: Used days per window
  - workflow.go: Transitions after creation
*/
package leave

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/warp/leave-engine/generic"
)

// ApplyInput is a leave application.
type ApplyInput struct {
	EmployeeID   string         `json:"employeeId" validate:"required"`
	CompanyID    string         `json:"companyId" validate:"required"`
	LeaveBreakup []BreakupEntry `json:"leaveBreakup" validate:"required,min=1,dive"`
	StartDate    time.Time      `json:"startDate" validate:"required"`
	EndDate      time.Time      `json:"endDate" validate:"required"`
	Reason       string         `json:"reason" validate:"required"`
	IsHalfDay    bool           `json:"isHalfDay"`
	HalfDayType  HalfDayType    `json:"halfDayType"`

	// Documents are already hosted elsewhere and recorded as given.
	Documents []Document `json:"documents"`

	// Files are uploaded to document storage before recording.
	Files []File `json:"-"`
}

func (in ApplyInput) normalized() ApplyInput {
	in.EmployeeID = strings.TrimSpace(in.EmployeeID)
	in.CompanyID = strings.TrimSpace(in.CompanyID)
	in.Reason = strings.TrimSpace(in.Reason)
	in.HalfDayType = HalfDayType(strings.ToLower(strings.TrimSpace(string(in.HalfDayType))))
	breakup := make([]BreakupEntry, len(in.LeaveBreakup))
	for i, entry := range in.LeaveBreakup {
		entry.LeaveType = strings.TrimSpace(entry.LeaveType)
		entry.ShortCode = NormalizeShortCode(entry.ShortCode)
		breakup[i] = entry
	}
	if in.LeaveBreakup != nil {
		in.LeaveBreakup = breakup
	}
	return in
}

// ApplyLeave validates and records a leave application.
func (s *Service) ApplyLeave(ctx context.Context, in ApplyInput) (*Request, error) {
	in = in.normalized()
	logger := s.logger(ctx).WithFields(log.Fields{
		"company_id":  in.CompanyID,
		"employee_id": in.EmployeeID,
	})

	// 1. Required fields
	if err := s.checkStruct(in); err != nil {
		return nil, err
	}
	start, end := generic.DateOf(in.StartDate), generic.DateOf(in.EndDate)

	// 2. Half-day rule
	if in.IsHalfDay {
		if in.HalfDayType != HalfDayFirst && in.HalfDayType != HalfDaySecond {
			return nil, invalid("halfDayType", "must be %s or %s for a half-day leave", HalfDayFirst, HalfDaySecond)
		}
		if !start.Equal(end) {
			return nil, invalid("endDate", "a half-day leave must start and end on the same day")
		}
		if len(in.LeaveBreakup) != 1 {
			return nil, invalid("leaveBreakup", "a half-day leave must use exactly one leave type")
		}
	} else {
		in.HalfDayType = HalfDayNone
	}

	// 3. Date ordering
	if end.Before(start) {
		return nil, invalid("endDate", "end date %s is before start date %s", end, start)
	}

	// 4. Policy load, fail fast before touching document storage
	if _, err := s.Store.FindPolicyByCompany(ctx, in.CompanyID); err != nil {
		return nil, err
	}

	// 5. Document intake
	documents, uploaded, err := s.intakeDocuments(ctx, in)
	if err != nil {
		logger.WithError(err).Warn("leave documents could not be uploaded")
		return nil, err
	}

	var created *Request
	err = s.unitOfWork(ctx, func(tx Store) error {
		req, err := s.applyInTx(ctx, tx, in, start, end, documents)
		if err != nil {
			return err
		}
		created = req
		return nil
	})
	if err != nil {
		s.discardUploads(ctx, uploaded)
		logger.WithError(err).Info("leave application rejected")
		return nil, err
	}

	logger.WithFields(log.Fields{
		"request_id": created.ID,
		"status":     created.Status,
		"total_days": created.TotalDays.String(),
	}).Info("leave application recorded")
	return created, nil
}

func (s *Service) applyInTx(ctx context.Context, tx Store, in ApplyInput, start, end generic.Date, documents []Document) (*Request, error) {
	if err := tx.LockEmployee(ctx, in.CompanyID, in.EmployeeID); err != nil {
		return nil, err
	}

	// 4. Policy snapshot for this unit of work
	policy, err := tx.FindPolicyByCompany(ctx, in.CompanyID)
	if err != nil {
		return nil, err
	}

	breakup, types, err := resolveBreakup(policy, in.LeaveBreakup)
	if err != nil {
		return nil, err
	}

	// 6. Business days
	days := HalfDay
	if !in.IsHalfDay {
		excludeHolidays := false
		for _, lt := range types {
			excludeHolidays = excludeHolidays || lt.ExcludeHolidays
		}
		days = decimal.NewFromInt(int64(policy.BusinessDays(start, end, excludeHolidays, false)))
	}

	// 7. Zero-day guard
	if !days.IsPositive() {
		return nil, invalid("startDate", "no business days in range %s to %s", start, end)
	}

	if in.IsHalfDay {
		breakup[0].Days = HalfDay
	} else if len(breakup) == 1 && breakup[0].Days.IsZero() {
		breakup[0].Days = days
	}

	// 8. Per breakup entry
	ledger := NewLedger(tx)
	total := decimal.Zero
	for i, entry := range breakup {
		if err := s.checkEntry(ctx, ledger, policy, in, start, types[i], entry, documents); err != nil {
			return nil, err
		}
		total = total.Add(entry.Days)
	}
	if !total.Equal(days) {
		return nil, invalid("leaveBreakup", "breakup totals %s day(s) but the requested range has %s business day(s)", total, days)
	}

	// 9. Overlap
	period := generic.Period{Start: start, End: end}
	existing, err := tx.FindRequests(ctx, RequestFilter{
		EmployeeID:  in.EmployeeID,
		CompanyID:   in.CompanyID,
		Statuses:    CountedStatuses,
		Overlapping: &period,
	})
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, &OverlapError{ConflictingID: existing[0].ID, Status: existing[0].Status, Period: existing[0].Period()}
	}

	// 10. Persist pending
	now := s.now()
	req := &Request{
		ID:            s.newID(),
		EmployeeID:    in.EmployeeID,
		CompanyID:     in.CompanyID,
		LeaveBreakup:  breakup,
		StartDate:     start,
		EndDate:       end,
		TotalDays:     total,
		Reason:        in.Reason,
		IsHalfDay:     in.IsHalfDay,
		HalfDayType:   in.HalfDayType,
		Documents:     documents,
		Status:        StatusPending,
		PolicyVersion: policy.Version,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := tx.CreateRequest(ctx, req); err != nil {
		return nil, err
	}

	// 11. Auto-approval
	if !anyRequiresApproval(types) {
		req.Status = StatusApproved
		req.ApprovedBy = in.EmployeeID
		req.ApprovedAt = &now
		if err := tx.UpdateRequest(ctx, req); err != nil {
			return nil, err
		}
	}
	return req, nil
}

// resolveBreakup looks up every entry's type and canonicalizes the entry.
func resolveBreakup(policy *Policy, entries []BreakupEntry) ([]BreakupEntry, []LeaveType, error) {
	breakup := make([]BreakupEntry, len(entries))
	types := make([]LeaveType, len(entries))
	seen := make(map[string]bool, len(entries))
	for i, entry := range entries {
		ref := entry.ShortCode
		if ref == "" {
			ref = entry.LeaveType
		}
		lt, err := policy.LeaveType(ref)
		if err != nil {
			return nil, nil, err
		}
		if seen[lt.ShortCode] {
			return nil, nil, invalid("leaveBreakup", "leave type %s appears more than once", lt.ShortCode)
		}
		seen[lt.ShortCode] = true
		breakup[i] = BreakupEntry{LeaveType: lt.Name, ShortCode: lt.ShortCode, Days: entry.Days}
		types[i] = lt
	}
	return breakup, types, nil
}

func (s *Service) checkEntry(ctx context.Context, ledger *Ledger, policy *Policy, in ApplyInput, start generic.Date, lt LeaveType, entry BreakupEntry, documents []Document) error {
	if !entry.Days.IsPositive() || !isHalfStep(entry.Days) {
		return invalid("leaveBreakup", "%s: days must be a positive multiple of 0.5, got %s", lt.ShortCode, entry.Days)
	}

	// Per-request bounds
	if !lt.MinPerRequest.IsZero() && entry.Days.LessThan(lt.MinPerRequest) {
		return invalid("leaveBreakup", "%s: at least %s day(s) must be taken per request, requested %s", lt.ShortCode, lt.MinPerRequest, entry.Days)
	}
	if !lt.MaxPerRequest.IsZero() && entry.Days.GreaterThan(lt.MaxPerRequest) {
		return invalid("leaveBreakup", "%s: at most %s day(s) can be taken per request, requested %s", lt.ShortCode, lt.MaxPerRequest, entry.Days)
	}

	// Documents
	if lt.RequiresDocs && entry.Days.GreaterThan(lt.DocsRequiredAfterDays) && len(documents) == 0 {
		return &DocumentRequiredError{ShortCode: lt.ShortCode, Days: entry.Days, Threshold: lt.DocsRequiredAfterDays}
	}

	// Quotas
	if !lt.MaxInstancesPerYear.IsZero() {
		if err := s.checkQuota(ctx, ledger, in, lt.ShortCode, "yearly", YearlyWindow(policy, start), lt.MaxInstancesPerYear, entry.Days); err != nil {
			return err
		}
	}
	if !lt.MaxInstancesPerMonth.IsZero() {
		if err := s.checkQuota(ctx, ledger, in, lt.ShortCode, "monthly", MonthlyWindow(start), lt.MaxInstancesPerMonth, entry.Days); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) checkQuota(ctx context.Context, ledger *Ledger, in ApplyInput, shortCode, window string, period generic.Period, limit, days decimal.Decimal) error {
	used, err := ledger.UsedDays(ctx, in.EmployeeID, in.CompanyID, shortCode, period)
	if err != nil {
		return err
	}
	if used.Add(days).GreaterThan(limit) {
		return &QuotaExceededError{
			ShortCode: shortCode,
			Window:    window,
			Period:    period,
			Limit:     limit,
			Used:      used,
			Requested: days,
		}
	}
	return nil
}

func anyRequiresApproval(types []LeaveType) bool {
	for _, lt := range types {
		if lt.RequiresApproval {
			return true
		}
	}
	return false
}

// =============================================================================
// DOCUMENT INTAKE
// =============================================================================

// intakeDocuments uploads files and returns every document to record plus
// the URLs created by this call.
func (s *Service) intakeDocuments(ctx context.Context, in ApplyInput) ([]Document, []string, error) {
	documents := append([]Document(nil), in.Documents...)
	if len(in.Files) == 0 {
		return documents, nil, nil
	}

	var uploaded []string
	for _, f := range in.Files {
		if s.Documents == nil {
			s.discardUploads(ctx, uploaded)
			return nil, nil, &UploadError{FileName: f.Name, Err: errNoDocumentStorage}
		}
		result, err := s.Documents.Upload(ctx, f, documentDestination(in.CompanyID, in.EmployeeID, f.Name))
		if err != nil {
			s.discardUploads(ctx, uploaded)
			return nil, nil, &UploadError{FileName: f.Name, Err: err}
		}
		uploaded = append(uploaded, result.URL)
		documents = append(documents, Document{Name: f.Name, URL: result.URL})
	}
	return documents, uploaded, nil
}

// discardUploads removes files of an application that was not recorded.
func (s *Service) discardUploads(ctx context.Context, urls []string) {
	if len(urls) == 0 {
		return
	}
	remover, ok := s.Documents.(DocumentRemover)
	if !ok {
		return
	}
	for _, url := range urls {
		if err := remover.Remove(context.WithoutCancel(ctx), url); err != nil {
			s.logger(ctx).WithError(err).WithField("url", url).Warn("orphaned leave document could not be removed")
		}
	}
}
