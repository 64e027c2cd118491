package leave

import (
	"context"

	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// CALENDAR SERVICE - Business days between two dates
// =============================================================================

// BusinessDays walks every date in [start, end]. A date counts unless it is
// a week off (and includeWeekOff is false) or a holiday (and excludeHoliday
// is true). Inverted ranges yield 0.
func (p *Policy) BusinessDays(start, end generic.Date, excludeHoliday, includeWeekOff bool) int {
	count := 0
	for _, d := range (generic.Period{Start: start, End: end}).Days() {
		if !includeWeekOff && p.IsWeekOff(d) {
			continue
		}
		if excludeHoliday && p.IsHoliday(d) {
			continue
		}
		count++
	}
	return count
}

// PolicyReader is the read side the calendar needs.
type PolicyReader interface {
	FindPolicyByCompany(ctx context.Context, companyID string) (*Policy, error)
}

// Calendar answers business-day questions for a company.
type Calendar struct {
	Policies PolicyReader
}

func NewCalendar(policies PolicyReader) *Calendar {
	return &Calendar{Policies: policies}
}

// BusinessDaysBetween loads the company policy and counts business days.
func (c *Calendar) BusinessDaysBetween(ctx context.Context, companyID string, start, end generic.Date, excludeHoliday, includeWeekOff bool) (int, error) {
	policy, err := c.Policies.FindPolicyByCompany(ctx, companyID)
	if err != nil {
		return 0, err
	}
	return policy.BusinessDays(start, end, excludeHoliday, includeWeekOff), nil
}
