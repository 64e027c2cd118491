package leave_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/memory"
	"github.com/warp/leave-engine/store/sqlite"
)

// =============================================================================
// CONCURRENT APPLICATIONS
// =============================================================================

func backends(t *testing.T) map[string]func(t *testing.T) leave.TxStore {
	return map[string]func(t *testing.T) leave.TxStore{
		"memory": func(t *testing.T) leave.TxStore { return memory.New() },
		"sqlite": func(t *testing.T) leave.TxStore {
			store, err := sqlite.New(":memory:")
			require.NoError(t, err)
			t.Cleanup(func() { store.Close() })
			return store
		},
	}
}

func TestApplyLeave_ConcurrentOverlapping(t *testing.T) {
	// GIVEN: Concurrent applications for the same employee and dates
	// WHEN: They race through ApplyLeave
	// THEN: Exactly one is recorded and every other fails with an overlap

	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			ctx := context.Background()
			_, err := leave.NewPolicyService(store).CreatePolicy(ctx, testPolicy())
			require.NoError(t, err)
			svc := leave.NewService(store, nil)

			const n = 8
			var wg sync.WaitGroup
			errs := make([]error, n)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, errs[i] = svc.ApplyLeave(ctx, input("EL", "2024-06-03", "2024-06-05"))
				}(i)
			}
			wg.Wait()

			succeeded := 0
			for _, err := range errs {
				if err == nil {
					succeeded++
					continue
				}
				assert.ErrorIs(t, err, leave.ErrOverlap)
			}
			assert.Equal(t, 1, succeeded)

			recorded, err := svc.ListEmployeeRequests(ctx, company, employee)
			require.NoError(t, err)
			assert.Len(t, recorded, 1)
		})
	}
}

func TestApplyLeave_ConcurrentQuota(t *testing.T) {
	// GIVEN: CL allows 4 days in June
	// WHEN: Four separate two-day applications race
	// THEN: Exactly two are recorded and the others exceed the quota

	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			ctx := context.Background()
			_, err := leave.NewPolicyService(store).CreatePolicy(ctx, testPolicy())
			require.NoError(t, err)
			svc := leave.NewService(store, nil)

			ranges := [][2]string{
				{"2024-06-03", "2024-06-04"},
				{"2024-06-10", "2024-06-11"},
				{"2024-06-12", "2024-06-13"},
				{"2024-06-24", "2024-06-25"},
			}
			var wg sync.WaitGroup
			errs := make([]error, len(ranges))
			for i, r := range ranges {
				wg.Add(1)
				go func(i int, start, end string) {
					defer wg.Done()
					_, errs[i] = svc.ApplyLeave(ctx, input("CL", start, end))
				}(i, r[0], r[1])
			}
			wg.Wait()

			succeeded := 0
			for _, err := range errs {
				if err == nil {
					succeeded++
					continue
				}
				assert.ErrorIs(t, err, leave.ErrQuotaExceeded)
			}
			assert.Equal(t, 2, succeeded)

			balances, err := svc.Summary(ctx, company, employee, d("2024-06-15"))
			require.NoError(t, err)
			assert.True(t, days("4").Equal(balances[0].MonthlyUsed))
		})
	}
}
