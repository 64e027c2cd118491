package leave_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/memory"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

const (
	company  = "acme"
	employee = "emp-001"
	approver = "mgr-001"
)

var testNow = time.Date(2024, time.May, 20, 9, 0, 0, 0, time.UTC)

func d(s string) generic.Date {
	return generic.MustParseDate(s)
}

func days(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr[T any](v T) *T {
	return &v
}

// testPolicy is a calendar-year policy with a Saturday/Sunday week off and
// one holiday on Wednesday 2024-06-19.
//
//	CL   max 3/request, 12/year, 4/month
//	EL   1..15/request, 18/year
//	SL   max 5/request, 10/year, documents over 2 days
//	WFH  max 2/request, no approval, holidays count
//	OLD  inactive
func testPolicy() leave.Policy {
	return leave.Policy{
		CompanyID:      company,
		YearStartMonth: time.January,
		WeekOff:        leave.DefaultWeekOff(),
		Holidays:       []leave.Holiday{{Date: d("2024-06-19"), Name: "Founders Day"}},
		LeaveTypes: []leave.LeaveType{
			{
				Name: "Casual Leave", ShortCode: "CL",
				MaxPerRequest: days("3"), MaxInstancesPerYear: days("12"), MaxInstancesPerMonth: days("4"),
				RequiresApproval: true, ExcludeHolidays: true, IsActive: true,
			},
			{
				Name: "Earned Leave", ShortCode: "EL",
				MinPerRequest: days("1"), MaxPerRequest: days("15"), MaxInstancesPerYear: days("18"),
				RequiresApproval: true, ExcludeHolidays: true, IsActive: true,
			},
			{
				Name: "Sick Leave", ShortCode: "SL",
				MaxPerRequest: days("5"), MaxInstancesPerYear: days("10"),
				RequiresApproval: true, RequiresDocs: true, DocsRequiredAfterDays: days("2"),
				ExcludeHolidays: true, IsActive: true,
			},
			{
				Name: "Work From Home", ShortCode: "WFH",
				MaxPerRequest: days("2"), IsActive: true,
			},
			{
				Name: "Old Leave", ShortCode: "OLD",
				RequiresApproval: true, IsActive: false,
			},
		},
	}
}

type fixture struct {
	store    *memory.Memory
	leaves   *leave.Service
	policies *leave.PolicyService
	policy   *leave.Policy
	logs     *test.Hook
}

// newFixture wires both services on a memory store with a fixed clock and
// sequential IDs, and provisions testPolicy for the company.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	var (
		mu  sync.Mutex
		seq int
	)
	nextID := func() string {
		mu.Lock()
		defer mu.Unlock()
		seq++
		return fmt.Sprintf("id-%03d", seq)
	}

	leaves := leave.NewService(store, nil)
	leaves.Log = logger
	leaves.Now = func() time.Time { return testNow }
	leaves.NewID = nextID

	policies := leave.NewPolicyService(store)
	policies.Log = logger
	policies.Now = func() time.Time { return testNow }
	policies.NewID = nextID

	policy, err := policies.CreatePolicy(context.Background(), testPolicy())
	require.NoError(t, err)

	return &fixture{store: store, leaves: leaves, policies: policies, policy: policy, logs: hook}
}

// input builds a single-entry application with the day count left to the
// service.
func input(code, start, end string) leave.ApplyInput {
	return leave.ApplyInput{
		EmployeeID:   employee,
		CompanyID:    company,
		LeaveBreakup: []leave.BreakupEntry{{ShortCode: code}},
		StartDate:    d(start).Time(),
		EndDate:      d(end).Time(),
		Reason:       "Personal",
	}
}

func (f *fixture) apply(t *testing.T, in leave.ApplyInput) *leave.Request {
	t.Helper()
	req, err := f.leaves.ApplyLeave(context.Background(), in)
	require.NoError(t, err)
	return req
}

func (f *fixture) leaveType(t *testing.T, code string) leave.LeaveType {
	t.Helper()
	for _, lt := range f.policy.LeaveTypes {
		if lt.ShortCode == code {
			return lt
		}
	}
	t.Fatalf("leave type %s not in policy", code)
	return leave.LeaveType{}
}
