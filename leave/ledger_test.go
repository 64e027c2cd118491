package leave_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

func TestLedger_UsedDays(t *testing.T) {
	// GIVEN: Pending, approved, rejected and cancelled CL requests
	// WHEN: Summing CL usage for June
	// THEN: Only pending and approved requests count

	f := newFixture(t)
	ctx := context.Background()
	f.apply(t, input("CL", "2024-06-03", "2024-06-03"))
	approved := f.apply(t, input("CL", "2024-06-04", "2024-06-04"))
	rejected := f.apply(t, input("CL", "2024-06-05", "2024-06-05"))
	cancelled := f.apply(t, input("CL", "2024-06-06", "2024-06-06"))

	_, err := f.leaves.Approve(ctx, approved.ID, leave.ApproveInput{ApproverID: approver})
	require.NoError(t, err)
	_, err = f.leaves.Reject(ctx, rejected.ID, leave.RejectInput{RejectedBy: approver, Reason: "No"})
	require.NoError(t, err)
	_, err = f.leaves.Cancel(ctx, cancelled.ID, leave.CancelInput{CancelledBy: employee})
	require.NoError(t, err)

	ledger := leave.NewLedger(f.store)
	used, err := ledger.UsedDays(ctx, employee, company, "cl", leave.MonthlyWindow(d("2024-06-20")))
	require.NoError(t, err)
	assert.True(t, days("2").Equal(used), "got %s", used)
}

func TestLedger_WindowKeyedOnStartDate(t *testing.T) {
	// A request spanning two months counts fully in the month it starts in.
	f := newFixture(t)
	ctx := context.Background()
	f.apply(t, input("EL", "2024-06-28", "2024-07-02"))

	ledger := leave.NewLedger(f.store)
	june, err := ledger.UsedDays(ctx, employee, company, "EL", leave.MonthlyWindow(d("2024-06-01")))
	require.NoError(t, err)
	july, err := ledger.UsedDays(ctx, employee, company, "EL", leave.MonthlyWindow(d("2024-07-01")))
	require.NoError(t, err)

	assert.True(t, days("3").Equal(june))
	assert.True(t, july.IsZero())
}

func TestService_Summary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.apply(t, input("CL", "2024-06-03", "2024-06-04"))
	f.apply(t, input("CL", "2024-05-27", "2024-05-27"))
	f.apply(t, input("WFH", "2024-06-05", "2024-06-05"))

	balances, err := f.leaves.Summary(ctx, company, employee, d("2024-06-15"))
	require.NoError(t, err)
	require.Len(t, balances, 4, "inactive types are left out")

	byCode := make(map[string]leave.TypeBalance)
	for _, b := range balances {
		byCode[b.LeaveType.ShortCode] = b
	}

	cl := byCode["CL"]
	assert.True(t, days("3").Equal(cl.YearlyUsed))
	assert.True(t, days("2").Equal(cl.MonthlyUsed))
	require.NotNil(t, cl.YearlyRemaining())
	assert.True(t, days("9").Equal(*cl.YearlyRemaining()))
	require.NotNil(t, cl.MonthlyRemaining())
	assert.True(t, days("2").Equal(*cl.MonthlyRemaining()))
	assert.Equal(t, "2024-01-01", cl.Year.Start.String())
	assert.Equal(t, "2024-06-01", cl.Month.Start.String())

	wfh := byCode["WFH"]
	assert.True(t, days("1").Equal(wfh.YearlyUsed))
	assert.Nil(t, wfh.YearlyRemaining(), "no yearly quota configured")
	assert.Nil(t, wfh.MonthlyRemaining())

	el := byCode["EL"]
	assert.True(t, el.YearlyUsed.IsZero())
	assert.Nil(t, el.MonthlyRemaining())
}

func TestService_SummaryDefaultsToToday(t *testing.T) {
	f := newFixture(t)
	f.apply(t, input("CL", "2024-05-21", "2024-05-21"))

	// The service clock is 2024-05-20
	balances, err := f.leaves.Summary(context.Background(), company, employee, generic.Date{})
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01", balances[0].Month.Start.String())
	assert.True(t, days("1").Equal(balances[0].MonthlyUsed))
}
