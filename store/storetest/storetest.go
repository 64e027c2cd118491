/*
Package storetest is the behavioral contract shared by every leave.TxStore.

PURPOSE:
  The memory, SQLite and PostgreSQL stores must be interchangeable under
  the services. Each backend's tests call Run with a constructor, so the
  same cases cover policy versioning, request filters, breakup sums and
  transaction rollback on all of them.

ISOLATION:
  Every case provisions its own company and employee IDs, so a shared
  database (PostgreSQL in CI) needs no cleanup between runs.
*/
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// Open returns a fresh or shared store for one test.
type Open func(t *testing.T) leave.TxStore

// Run executes the contract against the store returned by open.
func Run(t *testing.T, open Open) {
	t.Run("PolicyRoundTrip", func(t *testing.T) { testPolicyRoundTrip(t, open(t)) })
	t.Run("PolicyOnePerCompany", func(t *testing.T) { testPolicyOnePerCompany(t, open(t)) })
	t.Run("PolicyOptimisticVersion", func(t *testing.T) { testPolicyOptimisticVersion(t, open(t)) })
	t.Run("PolicyNotFound", func(t *testing.T) { testPolicyNotFound(t, open(t)) })
	t.Run("RequestRoundTrip", func(t *testing.T) { testRequestRoundTrip(t, open(t)) })
	t.Run("RequestUpdateKeepsContent", func(t *testing.T) { testRequestUpdateKeepsContent(t, open(t)) })
	t.Run("RequestFilters", func(t *testing.T) { testRequestFilters(t, open(t)) })
	t.Run("SumBreakupDays", func(t *testing.T) { testSumBreakupDays(t, open(t)) })
	t.Run("TxRollback", func(t *testing.T) { testTxRollback(t, open(t)) })
	t.Run("TxCommit", func(t *testing.T) { testTxCommit(t, open(t)) })
}

// =============================================================================
// FIXTURES
// =============================================================================

var stamp = time.Date(2024, time.May, 20, 9, 30, 0, 0, time.UTC)

func uniqueID(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

func newPolicy(companyID string) *leave.Policy {
	return &leave.Policy{
		ID:             uuid.NewString(),
		CompanyID:      companyID,
		YearStartMonth: time.April,
		WeekOff:        []time.Weekday{time.Sunday, time.Saturday},
		Holidays: []leave.Holiday{
			{Date: generic.NewDate(2024, time.August, 15), Name: "Independence Day"},
		},
		LeaveTypes: []leave.LeaveType{
			{
				ID: uuid.NewString(), Name: "Casual Leave", ShortCode: "CL",
				MaxPerRequest: decimal.NewFromInt(3), MaxInstancesPerYear: decimal.NewFromInt(12),
				MaxInstancesPerMonth: decimal.RequireFromString("2.5"),
				RequiresApproval:     true, ExcludeHolidays: true, IsActive: true,
			},
			{
				ID: uuid.NewString(), Name: "Sick Leave", ShortCode: "SL",
				RequiresDocs: true, DocsRequiredAfterDays: decimal.NewFromInt(2), IsActive: false,
			},
		},
		Version:   1,
		CreatedAt: stamp,
		UpdatedAt: stamp,
	}
}

type requestFields struct {
	employee   string
	start, end string
	status     leave.Status
	breakup    []leave.BreakupEntry
}

func newRequest(companyID string, fields requestFields) *leave.Request {
	breakup := fields.breakup
	if breakup == nil {
		breakup = []leave.BreakupEntry{{LeaveType: "Casual Leave", ShortCode: "CL", Days: decimal.NewFromInt(1)}}
	}
	total := decimal.Zero
	for _, b := range breakup {
		total = total.Add(b.Days)
	}
	status := fields.status
	if status == "" {
		status = leave.StatusPending
	}
	return &leave.Request{
		ID:            uuid.NewString(),
		EmployeeID:    fields.employee,
		CompanyID:     companyID,
		LeaveBreakup:  breakup,
		StartDate:     generic.MustParseDate(fields.start),
		EndDate:       generic.MustParseDate(fields.end),
		TotalDays:     total,
		Reason:        "Personal",
		HalfDayType:   leave.HalfDayNone,
		Status:        status,
		PolicyVersion: 1,
		CreatedAt:     stamp,
		UpdatedAt:     stamp,
	}
}

func create(t *testing.T, store leave.TxStore, reqs ...*leave.Request) {
	t.Helper()
	err := store.WithTx(context.Background(), func(tx leave.Store) error {
		for _, r := range reqs {
			if err := tx.CreateRequest(context.Background(), r); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func ids(reqs []*leave.Request) []string {
	out := make([]string, len(reqs))
	for i, r := range reqs {
		out[i] = r.ID
	}
	return out
}

// =============================================================================
// POLICY CASES
// =============================================================================

func testPolicyRoundTrip(t *testing.T, store leave.TxStore) {
	ctx := context.Background()
	p := newPolicy(uniqueID("co"))
	require.NoError(t, store.CreatePolicy(ctx, p))

	got, err := store.FindPolicyByCompany(ctx, p.CompanyID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, time.April, got.YearStartMonth)
	assert.Equal(t, p.WeekOff, got.WeekOff)
	require.Len(t, got.Holidays, 1)
	assert.Equal(t, "2024-08-15", got.Holidays[0].Date.String())
	assert.Equal(t, "Independence Day", got.Holidays[0].Name)
	assert.Equal(t, 1, got.Version)
	assert.True(t, stamp.Equal(got.CreatedAt), "created at %s", got.CreatedAt)

	require.Len(t, got.LeaveTypes, 2)
	cl := got.LeaveTypes[0]
	assert.Equal(t, p.LeaveTypes[0].ID, cl.ID)
	assert.Equal(t, "CL", cl.ShortCode)
	assert.True(t, decimal.RequireFromString("2.5").Equal(cl.MaxInstancesPerMonth))
	assert.True(t, cl.RequiresApproval)
	assert.True(t, cl.ExcludeHolidays)
	assert.True(t, cl.IsActive)
	sl := got.LeaveTypes[1]
	assert.True(t, sl.RequiresDocs)
	assert.False(t, sl.IsActive)
	assert.True(t, decimal.NewFromInt(2).Equal(sl.DocsRequiredAfterDays))

	byID, err := store.GetPolicy(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.CompanyID, byID.CompanyID)
}

func testPolicyOnePerCompany(t *testing.T, store leave.TxStore) {
	ctx := context.Background()
	companyID := uniqueID("co")
	require.NoError(t, store.CreatePolicy(ctx, newPolicy(companyID)))

	err := store.CreatePolicy(ctx, newPolicy(companyID))
	assert.ErrorIs(t, err, leave.ErrPolicyConflict)
}

func testPolicyOptimisticVersion(t *testing.T, store leave.TxStore) {
	// GIVEN: A stored policy at version 1
	// WHEN: Saving with the current version, then with the stale one
	// THEN: The first save bumps the version, the second is a conflict

	ctx := context.Background()
	p := newPolicy(uniqueID("co"))
	require.NoError(t, store.CreatePolicy(ctx, p))

	next := p.Clone()
	next.WeekOff = []time.Weekday{time.Friday}
	next.Holidays = nil
	next.UpdatedAt = stamp.Add(time.Hour)
	require.NoError(t, store.SavePolicy(ctx, next, 1))
	assert.Equal(t, 2, next.Version)

	got, err := store.GetPolicy(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)
	assert.Equal(t, []time.Weekday{time.Friday}, got.WeekOff)
	assert.Empty(t, got.Holidays)

	stale := p.Clone()
	err = store.SavePolicy(ctx, stale, 1)
	assert.True(t, errors.Is(err, generic.ErrConcurrentModification), "got %v", err)

	missing := newPolicy(uniqueID("co"))
	err = store.SavePolicy(ctx, missing, 1)
	assert.ErrorIs(t, err, leave.ErrPolicyNotFound)
}

func testPolicyNotFound(t *testing.T, store leave.TxStore) {
	ctx := context.Background()
	_, err := store.FindPolicyByCompany(ctx, uniqueID("nobody"))
	assert.ErrorIs(t, err, leave.ErrPolicyNotFound)

	_, err = store.GetPolicy(ctx, uuid.NewString())
	assert.ErrorIs(t, err, leave.ErrPolicyNotFound)
}

// =============================================================================
// REQUEST CASES
// =============================================================================

func testRequestRoundTrip(t *testing.T, store leave.TxStore) {
	ctx := context.Background()
	companyID := uniqueID("co")
	r := newRequest(companyID, requestFields{
		employee: "emp-1", start: "2024-06-03", end: "2024-06-05",
		breakup: []leave.BreakupEntry{
			{LeaveType: "Casual Leave", ShortCode: "CL", Days: decimal.NewFromInt(2)},
			{LeaveType: "Earned Leave", ShortCode: "EL", Days: decimal.RequireFromString("1")},
		},
	})
	r.Documents = []leave.Document{{Name: "note.pdf", URL: "https://files.test/note.pdf"}}
	create(t, store, r)

	half := newRequest(companyID, requestFields{employee: "emp-1", start: "2024-06-10", end: "2024-06-10",
		breakup: []leave.BreakupEntry{{LeaveType: "Casual Leave", ShortCode: "CL", Days: leave.HalfDay}}})
	half.IsHalfDay = true
	half.HalfDayType = leave.HalfDaySecond
	create(t, store, half)

	got, err := store.GetRequest(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.EmployeeID, got.EmployeeID)
	assert.Equal(t, "2024-06-03", got.StartDate.String())
	assert.Equal(t, "2024-06-05", got.EndDate.String())
	assert.True(t, decimal.NewFromInt(3).Equal(got.TotalDays))
	require.Len(t, got.LeaveBreakup, 2)
	assert.Equal(t, "CL", got.LeaveBreakup[0].ShortCode, "breakup order is kept")
	assert.Equal(t, "Earned Leave", got.LeaveBreakup[1].LeaveType)
	assert.Equal(t, r.Documents, got.Documents)
	assert.Equal(t, leave.StatusPending, got.Status)
	assert.Nil(t, got.ApprovedAt)
	assert.Empty(t, got.ApprovedBy)

	gotHalf, err := store.GetRequest(ctx, half.ID)
	require.NoError(t, err)
	assert.True(t, gotHalf.IsHalfDay)
	assert.Equal(t, leave.HalfDaySecond, gotHalf.HalfDayType)
	assert.True(t, leave.HalfDay.Equal(gotHalf.TotalDays))
	assert.Empty(t, gotHalf.Documents)

	_, err = store.GetRequest(ctx, uuid.NewString())
	assert.ErrorIs(t, err, leave.ErrRequestNotFound)
}

func testRequestUpdateKeepsContent(t *testing.T, store leave.TxStore) {
	ctx := context.Background()
	r := newRequest(uniqueID("co"), requestFields{employee: "emp-1", start: "2024-06-03", end: "2024-06-03"})
	create(t, store, r)

	approvedAt := stamp.Add(2 * time.Hour)
	update := r.Clone()
	update.Status = leave.StatusApproved
	update.ApprovedBy = "mgr-1"
	update.ApprovedAt = &approvedAt
	update.ApprovalComment = "Enjoy"
	update.UpdatedAt = approvedAt
	update.Reason = "Changed"
	update.EndDate = generic.MustParseDate("2024-06-30")

	err := store.WithTx(ctx, func(tx leave.Store) error { return tx.UpdateRequest(ctx, update) })
	require.NoError(t, err)

	got, err := store.GetRequest(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, got.Status)
	assert.Equal(t, "mgr-1", got.ApprovedBy)
	assert.Equal(t, "Enjoy", got.ApprovalComment)
	require.NotNil(t, got.ApprovedAt)
	assert.True(t, approvedAt.Equal(*got.ApprovedAt))
	assert.Equal(t, "Personal", got.Reason, "content is fixed at creation")
	assert.Equal(t, "2024-06-03", got.EndDate.String())

	missing := newRequest(r.CompanyID, requestFields{employee: "emp-1", start: "2024-06-03", end: "2024-06-03"})
	err = store.WithTx(ctx, func(tx leave.Store) error { return tx.UpdateRequest(ctx, missing) })
	assert.ErrorIs(t, err, leave.ErrRequestNotFound)
}

func testRequestFilters(t *testing.T, store leave.TxStore) {
	ctx := context.Background()
	companyID := uniqueID("co")
	early := newRequest(companyID, requestFields{employee: "emp-1", start: "2024-06-03", end: "2024-06-05"})
	late := newRequest(companyID, requestFields{employee: "emp-1", start: "2024-07-01", end: "2024-07-02", status: leave.StatusApproved})
	gone := newRequest(companyID, requestFields{employee: "emp-1", start: "2024-06-10", end: "2024-06-10", status: leave.StatusCancelled})
	other := newRequest(companyID, requestFields{employee: "emp-2", start: "2024-06-04", end: "2024-06-04"})
	elsewhere := newRequest(uniqueID("co"), requestFields{employee: "emp-1", start: "2024-06-04", end: "2024-06-04"})
	create(t, store, early, late, gone, other, elsewhere)

	find := func(f leave.RequestFilter) []string {
		t.Helper()
		got, err := store.FindRequests(ctx, f)
		require.NoError(t, err)
		return ids(got)
	}

	// Newest start first
	assert.Equal(t, []string{late.ID, gone.ID, early.ID}, find(leave.RequestFilter{CompanyID: companyID, EmployeeID: "emp-1"}))
	assert.Len(t, find(leave.RequestFilter{CompanyID: companyID}), 4)

	counted := leave.RequestFilter{CompanyID: companyID, EmployeeID: "emp-1", Statuses: leave.CountedStatuses}
	assert.Equal(t, []string{late.ID, early.ID}, find(counted))

	// Overlap is inclusive on both ends
	edge := generic.Period{Start: generic.MustParseDate("2024-06-05"), End: generic.MustParseDate("2024-06-09")}
	overlapping := counted
	overlapping.Overlapping = &edge
	assert.Equal(t, []string{early.ID}, find(overlapping))

	after := generic.Period{Start: generic.MustParseDate("2024-06-06"), End: generic.MustParseDate("2024-06-09")}
	overlapping.Overlapping = &after
	assert.Empty(t, find(overlapping))

	june := generic.Period{Start: generic.MustParseDate("2024-06-01"), End: generic.MustParseDate("2024-06-30")}
	assert.Equal(t, []string{early.ID}, find(leave.RequestFilter{CompanyID: companyID, EmployeeID: "emp-1", Statuses: leave.CountedStatuses, StartWithin: &june}))

	assert.Equal(t, []string{late.ID}, find(leave.RequestFilter{CompanyID: companyID, EmployeeID: "emp-1", Statuses: leave.CountedStatuses, ExcludeID: early.ID}))
	assert.Empty(t, find(leave.RequestFilter{CompanyID: uniqueID("co")}))
}

func testSumBreakupDays(t *testing.T, store leave.TxStore) {
	// GIVEN: Split and single requests with various statuses
	// WHEN: Summing CL inside June for counted statuses
	// THEN: Only CL entries of pending and approved June requests add up

	ctx := context.Background()
	companyID := uniqueID("co")
	split := newRequest(companyID, requestFields{employee: "emp-1", start: "2024-06-03", end: "2024-06-05",
		breakup: []leave.BreakupEntry{
			{LeaveType: "Casual Leave", ShortCode: "CL", Days: decimal.RequireFromString("1.5")},
			{LeaveType: "Earned Leave", ShortCode: "EL", Days: decimal.RequireFromString("1.5")},
		}})
	approved := newRequest(companyID, requestFields{employee: "emp-1", start: "2024-06-28", end: "2024-07-01", status: leave.StatusApproved,
		breakup: []leave.BreakupEntry{{LeaveType: "Casual Leave", ShortCode: "CL", Days: decimal.NewFromInt(2)}}})
	rejected := newRequest(companyID, requestFields{employee: "emp-1", start: "2024-06-10", end: "2024-06-10", status: leave.StatusRejected})
	july := newRequest(companyID, requestFields{employee: "emp-1", start: "2024-07-02", end: "2024-07-02"})
	other := newRequest(companyID, requestFields{employee: "emp-2", start: "2024-06-11", end: "2024-06-11"})
	create(t, store, split, approved, rejected, july, other)

	june := generic.Period{Start: generic.MustParseDate("2024-06-01"), End: generic.MustParseDate("2024-06-30")}
	sum := func(code string, window generic.Period) decimal.Decimal {
		t.Helper()
		total, err := store.SumBreakupDays(ctx, leave.BreakupFilter{
			EmployeeID:  "emp-1",
			CompanyID:   companyID,
			ShortCode:   code,
			Statuses:    leave.CountedStatuses,
			StartWithin: window,
		})
		require.NoError(t, err)
		return total
	}

	assert.Equal(t, "3.5", sum("CL", june).String())
	assert.Equal(t, "1.5", sum("EL", june).String())
	assert.True(t, sum("SL", june).IsZero())

	year := generic.Period{Start: generic.MustParseDate("2024-01-01"), End: generic.MustParseDate("2024-12-31")}
	assert.Equal(t, "4.5", sum("CL", year).String())
}

// =============================================================================
// UNIT OF WORK
// =============================================================================

func testTxRollback(t *testing.T, store leave.TxStore) {
	// GIVEN: A unit of work that writes a policy and a request
	// WHEN: It fails afterwards
	// THEN: Neither write is visible

	ctx := context.Background()
	boom := errors.New("boom")
	p := newPolicy(uniqueID("co"))
	r := newRequest(p.CompanyID, requestFields{employee: "emp-1", start: "2024-06-03", end: "2024-06-03"})

	err := store.WithTx(ctx, func(tx leave.Store) error {
		if err := tx.LockEmployee(ctx, p.CompanyID, "emp-1"); err != nil {
			return err
		}
		if err := tx.CreatePolicy(ctx, p); err != nil {
			return err
		}
		if err := tx.CreateRequest(ctx, r); err != nil {
			return err
		}
		// Writes are visible inside the transaction
		if _, err := tx.GetRequest(ctx, r.ID); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = store.FindPolicyByCompany(ctx, p.CompanyID)
	assert.ErrorIs(t, err, leave.ErrPolicyNotFound)
	_, err = store.GetRequest(ctx, r.ID)
	assert.ErrorIs(t, err, leave.ErrRequestNotFound)
}

func testTxCommit(t *testing.T, store leave.TxStore) {
	ctx := context.Background()
	p := newPolicy(uniqueID("co"))
	r := newRequest(p.CompanyID, requestFields{employee: "emp-1", start: "2024-06-03", end: "2024-06-03"})

	err := store.WithTx(ctx, func(tx leave.Store) error {
		if err := tx.CreatePolicy(ctx, p); err != nil {
			return err
		}
		return tx.CreateRequest(ctx, r)
	})
	require.NoError(t, err)

	_, err = store.FindPolicyByCompany(ctx, p.CompanyID)
	assert.NoError(t, err)
	_, err = store.GetRequest(ctx, r.ID)
	assert.NoError(t, err)
}
