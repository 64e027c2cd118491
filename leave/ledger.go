/*
ledger.go - Balance ledger: days used per leave type and window

PURPOSE:
  Answers "how many days of leave type X has employee Y consumed in
  period P". Used days are the sum of breakup Days for the short code over
  requests that are pending or approved and whose StartDate is inside P.
  Rejected and cancelled requests never count.

WINDOWS:
  yearly:  the policy year containing the date. With YearStartMonth=4 the
           window for 2025-02-10 is 2024-04-01 .. 2025-03-31.
  monthly: the calendar month containing the date.

  A request that spans a window boundary is charged entirely to the window
  of its StartDate.

CONSISTENCY:
  Inside ApplyLeave the ledger reads through the transaction handle, so
  the quota check and the write see the same point in time.

SEE ALSO:
  - generic/period.go: PeriodConfig
  - apply.go: Quota checks
*/
package leave

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/generic"
)

// YearlyWindow is the policy year containing date.
func YearlyWindow(p *Policy, date generic.Date) generic.Period {
	return p.YearConfig().PeriodFor(date)
}

// MonthlyWindow is the calendar month containing date.
func MonthlyWindow(date generic.Date) generic.Period {
	return generic.PeriodConfig{Type: generic.PeriodCalendarMonth}.PeriodFor(date)
}

// Ledger aggregates consumption from stored requests.
type Ledger struct {
	store RequestStore
}

func NewLedger(store RequestStore) *Ledger {
	return &Ledger{store: store}
}

// UsedDays sums the days of shortCode in counted requests starting within period.
func (l *Ledger) UsedDays(ctx context.Context, employeeID, companyID, shortCode string, period generic.Period) (decimal.Decimal, error) {
	return l.store.SumBreakupDays(ctx, BreakupFilter{
		EmployeeID:  employeeID,
		CompanyID:   companyID,
		ShortCode:   NormalizeShortCode(shortCode),
		Statuses:    CountedStatuses,
		StartWithin: period,
	})
}

// TypeBalance is the standing of one leave type for an employee.
type TypeBalance struct {
	LeaveType LeaveType
	Year      generic.Period
	Month     generic.Period

	// Limits are zero when the quota is not configured (unlimited).
	YearlyLimit  decimal.Decimal
	YearlyUsed   decimal.Decimal
	MonthlyLimit decimal.Decimal
	MonthlyUsed  decimal.Decimal
}

// YearlyRemaining is nil when the yearly quota is unlimited.
func (b TypeBalance) YearlyRemaining() *decimal.Decimal {
	return remaining(b.YearlyLimit, b.YearlyUsed)
}

// MonthlyRemaining is nil when the monthly quota is unlimited.
func (b TypeBalance) MonthlyRemaining() *decimal.Decimal {
	return remaining(b.MonthlyLimit, b.MonthlyUsed)
}

func remaining(limit, used decimal.Decimal) *decimal.Decimal {
	if limit.IsZero() {
		return nil
	}
	r := limit.Sub(used)
	if r.IsNegative() {
		r = decimal.Zero
	}
	return &r
}

// Summary reports every active leave type of the policy as of a date.
func (l *Ledger) Summary(ctx context.Context, p *Policy, employeeID string, asOf generic.Date) ([]TypeBalance, error) {
	year := YearlyWindow(p, asOf)
	month := MonthlyWindow(asOf)

	var balances []TypeBalance
	for _, lt := range p.ActiveLeaveTypes() {
		yearUsed, err := l.UsedDays(ctx, employeeID, p.CompanyID, lt.ShortCode, year)
		if err != nil {
			return nil, err
		}
		monthUsed, err := l.UsedDays(ctx, employeeID, p.CompanyID, lt.ShortCode, month)
		if err != nil {
			return nil, err
		}
		balances = append(balances, TypeBalance{
			LeaveType:    lt,
			Year:         year,
			Month:        month,
			YearlyLimit:  lt.MaxInstancesPerYear,
			YearlyUsed:   yearUsed,
			MonthlyLimit: lt.MaxInstancesPerMonth,
			MonthlyUsed:  monthUsed,
		})
	}
	return balances, nil
}
