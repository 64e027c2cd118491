package leave_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/leave"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to leave.Status
		want     bool
	}{
		{leave.StatusPending, leave.StatusApproved, true},
		{leave.StatusPending, leave.StatusRejected, true},
		{leave.StatusPending, leave.StatusCancelled, true},
		{leave.StatusApproved, leave.StatusCancelled, true},
		{leave.StatusApproved, leave.StatusApproved, false},
		{leave.StatusApproved, leave.StatusRejected, false},
		{leave.StatusRejected, leave.StatusApproved, false},
		{leave.StatusRejected, leave.StatusCancelled, false},
		{leave.StatusCancelled, leave.StatusPending, false},
		{leave.StatusCancelled, leave.StatusApproved, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, leave.CanTransition(tt.from, tt.to), "%s → %s", tt.from, tt.to)
	}
}

func TestParseStatus(t *testing.T) {
	s, err := leave.ParseStatus("rejected")
	require.NoError(t, err)
	assert.Equal(t, leave.StatusRejected, s)

	_, err = leave.ParseStatus("archived")
	assert.ErrorIs(t, err, leave.ErrValidation)
}

// =============================================================================
// APPROVE
// =============================================================================

func TestApprove_StampsApprover(t *testing.T) {
	f := newFixture(t)
	req := f.apply(t, input("CL", "2024-06-03", "2024-06-04"))

	approved, err := f.leaves.Approve(context.Background(), req.ID, leave.ApproveInput{
		ApproverID: approver,
		Comment:    " Enjoy ",
		CompanyID:  company,
	})
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, approved.Status)
	assert.Equal(t, approver, approved.ApprovedBy)
	assert.Equal(t, "Enjoy", approved.ApprovalComment)
	require.NotNil(t, approved.ApprovedAt)
	assert.Equal(t, testNow, approved.UpdatedAt)
}

func TestApprove_Twice(t *testing.T) {
	// GIVEN: An approved request
	// WHEN: Approving it again
	// THEN: The transition is refused and the first approval stands

	f := newFixture(t)
	ctx := context.Background()
	req := f.apply(t, input("CL", "2024-06-03", "2024-06-04"))
	_, err := f.leaves.Approve(ctx, req.ID, leave.ApproveInput{ApproverID: approver})
	require.NoError(t, err)

	_, err = f.leaves.Approve(ctx, req.ID, leave.ApproveInput{ApproverID: "mgr-002"})
	var te *leave.InvalidTransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, leave.StatusApproved, te.From)

	stored, err := f.leaves.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, approver, stored.ApprovedBy)
}

func TestApprove_AutoApprovedRequest(t *testing.T) {
	f := newFixture(t)
	req := f.apply(t, input("WFH", "2024-06-03", "2024-06-03"))

	_, err := f.leaves.Approve(context.Background(), req.ID, leave.ApproveInput{ApproverID: approver})
	assert.ErrorIs(t, err, leave.ErrInvalidTransition)
}

func TestApprove_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.apply(t, input("CL", "2024-06-03", "2024-06-04"))

	_, err := f.leaves.Approve(ctx, req.ID, leave.ApproveInput{})
	assert.ErrorIs(t, err, leave.ErrValidation)

	_, err = f.leaves.Approve(ctx, "missing", leave.ApproveInput{ApproverID: approver})
	assert.ErrorIs(t, err, leave.ErrRequestNotFound)

	_, err = f.leaves.Approve(ctx, req.ID, leave.ApproveInput{ApproverID: approver, CompanyID: "globex"})
	assert.ErrorIs(t, err, leave.ErrForbidden)

	stored, err := f.leaves.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusPending, stored.Status)
}

// =============================================================================
// REJECT AND CANCEL
// =============================================================================

func TestReject_RequiresReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.apply(t, input("CL", "2024-06-03", "2024-06-04"))

	_, err := f.leaves.Reject(ctx, req.ID, leave.RejectInput{RejectedBy: approver, Reason: "   "})
	var ve *leave.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "rejectionReason", ve.Field)

	rejected, err := f.leaves.Reject(ctx, req.ID, leave.RejectInput{RejectedBy: approver, Reason: "Release week"})
	require.NoError(t, err)
	assert.Equal(t, leave.StatusRejected, rejected.Status)
	assert.Equal(t, "Release week", rejected.RejectionReason)
	assert.Equal(t, approver, rejected.RejectedBy)

	// Terminal
	_, err = f.leaves.Cancel(ctx, req.ID, leave.CancelInput{CancelledBy: employee})
	assert.ErrorIs(t, err, leave.ErrInvalidTransition)
}

func TestCancel_OwnerOrApprover(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.apply(t, input("CL", "2024-06-03", "2024-06-04"))

	_, err := f.leaves.Cancel(ctx, req.ID, leave.CancelInput{CancelledBy: "emp-002"})
	assert.ErrorIs(t, err, leave.ErrForbidden)

	cancelled, err := f.leaves.Cancel(ctx, req.ID, leave.CancelInput{CancelledBy: "hr-001", AsApprover: true})
	require.NoError(t, err)
	assert.Equal(t, leave.StatusCancelled, cancelled.Status)
	assert.Equal(t, "hr-001", cancelled.CancelledBy)
	require.NotNil(t, cancelled.CancelledAt)
}

func TestCancel_Approved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.apply(t, input("WFH", "2024-06-03", "2024-06-03"))

	cancelled, err := f.leaves.Cancel(ctx, req.ID, leave.CancelInput{CancelledBy: employee})
	require.NoError(t, err)
	assert.Equal(t, leave.StatusCancelled, cancelled.Status)
	assert.Equal(t, employee, cancelled.ApprovedBy, "approval audit is kept")
}

// =============================================================================
// BULK
// =============================================================================

func TestBulkTransition_IndependentResults(t *testing.T) {
	// GIVEN: Two pending requests and one already approved
	// WHEN: Bulk approving all three plus an unknown ID
	// THEN: Each ID gets its own outcome and failures do not abort the others

	f := newFixture(t)
	ctx := context.Background()
	first := f.apply(t, input("CL", "2024-06-03", "2024-06-03"))
	second := f.apply(t, input("EL", "2024-06-10", "2024-06-11"))
	auto := f.apply(t, input("WFH", "2024-06-12", "2024-06-12"))

	results, err := f.leaves.BulkTransition(ctx, leave.BulkInput{
		IDs:       []string{first.ID, auto.ID, "missing", second.ID},
		Status:    leave.StatusApproved,
		ActorID:   approver,
		CompanyID: company,
	})
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.NoError(t, results[0].Err)
	assert.Equal(t, leave.StatusApproved, results[0].Request.Status)
	assert.ErrorIs(t, results[1].Err, leave.ErrInvalidTransition)
	assert.ErrorIs(t, results[2].Err, leave.ErrRequestNotFound)
	assert.Nil(t, results[2].Request)
	assert.NoError(t, results[3].Err)
	assert.Equal(t, second.ID, results[3].ID)

	pending, err := f.leaves.ListCompanyRequests(ctx, company, leave.StatusPending)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestBulkTransition_Reject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.apply(t, input("CL", "2024-06-03", "2024-06-03"))

	results, err := f.leaves.BulkTransition(ctx, leave.BulkInput{IDs: []string{req.ID}, Status: leave.StatusRejected, ActorID: approver})
	require.NoError(t, err)
	assert.ErrorIs(t, results[0].Err, leave.ErrValidation, "reason is required per item")

	results, err = f.leaves.BulkTransition(ctx, leave.BulkInput{IDs: []string{req.ID}, Status: leave.StatusRejected, ActorID: approver, Reason: "Crunch"})
	require.NoError(t, err)
	require.NoError(t, results[0].Err)
	assert.Equal(t, leave.StatusRejected, results[0].Request.Status)
}

func TestBulkTransition_MalformedInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.leaves.BulkTransition(ctx, leave.BulkInput{Status: leave.StatusApproved, ActorID: approver})
	assert.ErrorIs(t, err, leave.ErrValidation)

	_, err = f.leaves.BulkTransition(ctx, leave.BulkInput{IDs: []string{"x"}, Status: leave.StatusCancelled, ActorID: approver})
	assert.ErrorIs(t, err, leave.ErrValidation)
}

// =============================================================================
// QUERIES
// =============================================================================

func TestListRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	older := f.apply(t, input("CL", "2024-06-03", "2024-06-03"))
	newer := f.apply(t, input("CL", "2024-06-10", "2024-06-10"))
	other := input("CL", "2024-06-05", "2024-06-05")
	other.EmployeeID = "emp-002"
	f.apply(t, other)

	mine, err := f.leaves.ListEmployeeRequests(ctx, company, employee)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, newer.ID, mine[0].ID, "newest start first")
	assert.Equal(t, older.ID, mine[1].ID)

	all, err := f.leaves.ListCompanyRequests(ctx, company)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := f.leaves.ListCompanyRequests(ctx, company, leave.StatusApproved)
	require.NoError(t, err)
	assert.Empty(t, none)
}
