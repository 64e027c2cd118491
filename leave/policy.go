/*
policy.go - Per-company leave policy

PURPOSE:
  The single source of truth consulted by every validation step: the
  leave-type catalogue, the policy year boundary, week offs and holidays.

VERSIONING:
  A Policy is a value. Readers receive copies; writers go through
  PolicyService which loads, clones, mutates, validates and saves with an
  optimistic version check. Requests record the version they were
  validated against.

INVARIANTS (checked by Validate):
  - YearStartMonth in 1..12
  - WeekOff values in 0..6 and not every day of the week
  - Short codes unique within the policy
  - Per type: MinPerRequest <= MaxPerRequest <= MaxInstancesPerYear,
    MaxInstancesPerMonth <= MaxInstancesPerYear (when both bounds are set)
  - Quantities non-negative, in 0.5 steps

SEE ALSO:
  - policy_service.go: Write path
  - calendar.go: Business-day computation over WeekOff and Holidays
  - factory/policy.go: JSON documents to Policy
*/
package leave

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/generic"
)

// Holiday is a company holiday.
type Holiday struct {
	Date generic.Date
	Name string
}

// LeaveType is one entry of a policy's catalogue. A zero bound means the
// bound is not configured.
type LeaveType struct {
	ID        string
	Name      string
	ShortCode string

	MaxPerRequest        decimal.Decimal
	MinPerRequest        decimal.Decimal
	MaxInstancesPerYear  decimal.Decimal
	MaxInstancesPerMonth decimal.Decimal

	RequiresApproval      bool
	RequiresDocs          bool
	DocsRequiredAfterDays decimal.Decimal
	ExcludeHolidays       bool
	IsActive              bool
}

// Policy is the leave configuration of one company.
type Policy struct {
	ID             string
	CompanyID      string
	YearStartMonth time.Month
	WeekOff        []time.Weekday
	Holidays       []Holiday
	LeaveTypes     []LeaveType
	Version        int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DefaultWeekOff is Sunday and Saturday.
func DefaultWeekOff() []time.Weekday {
	return []time.Weekday{time.Sunday, time.Saturday}
}

// NormalizeShortCode is the canonical stored form of a short code.
func NormalizeShortCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Clone returns a deep copy.
func (p *Policy) Clone() *Policy {
	if p == nil {
		return nil
	}
	c := *p
	c.WeekOff = append([]time.Weekday(nil), p.WeekOff...)
	c.Holidays = append([]Holiday(nil), p.Holidays...)
	c.LeaveTypes = append([]LeaveType(nil), p.LeaveTypes...)
	return &c
}

// YearConfig is the policy year as a period configuration.
func (p *Policy) YearConfig() generic.PeriodConfig {
	if p.YearStartMonth <= time.January {
		return generic.PeriodConfig{Type: generic.PeriodCalendarYear}
	}
	return generic.PeriodConfig{Type: generic.PeriodFiscalYear, FiscalYearStartMonth: p.YearStartMonth}
}

func (p *Policy) IsWeekOff(d generic.Date) bool {
	for _, w := range p.WeekOff {
		if d.Weekday() == w {
			return true
		}
	}
	return false
}

func (p *Policy) IsHoliday(d generic.Date) bool {
	_, ok := p.HolidayOn(d)
	return ok
}

// HolidayOn returns the holiday configured for the date, if any.
func (p *Policy) HolidayOn(d generic.Date) (Holiday, bool) {
	for _, h := range p.Holidays {
		if h.Date.Equal(d) {
			return h, true
		}
	}
	return Holiday{}, false
}

// =============================================================================
// LEAVE TYPE LOOKUP
// =============================================================================

// LeaveType resolves a reference by short code or name, case-insensitively.
// Unknown and inactive types fail with InvalidLeaveTypeError.
func (p *Policy) LeaveType(ref string) (LeaveType, error) {
	ref = strings.TrimSpace(ref)
	for _, lt := range p.LeaveTypes {
		if strings.EqualFold(lt.ShortCode, ref) || strings.EqualFold(lt.Name, ref) {
			if !lt.IsActive {
				return LeaveType{}, &InvalidLeaveTypeError{Ref: ref, Inactive: true}
			}
			return lt, nil
		}
	}
	return LeaveType{}, &InvalidLeaveTypeError{Ref: ref}
}

// ActiveLeaveTypes returns the active catalogue in policy order.
func (p *Policy) ActiveLeaveTypes() []LeaveType {
	var active []LeaveType
	for _, lt := range p.LeaveTypes {
		if lt.IsActive {
			active = append(active, lt)
		}
	}
	return active
}

func (p *Policy) leaveTypeIndex(typeID string) int {
	for i, lt := range p.LeaveTypes {
		if lt.ID == typeID {
			return i
		}
	}
	return -1
}

// =============================================================================
// INVARIANTS
// =============================================================================

// Normalize canonicalizes short codes, week offs and the holiday list.
func (p *Policy) Normalize() {
	for i := range p.LeaveTypes {
		p.LeaveTypes[i].Name = strings.TrimSpace(p.LeaveTypes[i].Name)
		p.LeaveTypes[i].ShortCode = NormalizeShortCode(p.LeaveTypes[i].ShortCode)
	}

	seen := make(map[time.Weekday]bool, len(p.WeekOff))
	weekOff := p.WeekOff[:0:0]
	for _, w := range p.WeekOff {
		if !seen[w] {
			seen[w] = true
			weekOff = append(weekOff, w)
		}
	}
	sort.Slice(weekOff, func(i, j int) bool { return weekOff[i] < weekOff[j] })
	p.WeekOff = weekOff

	p.Holidays = normalizeHolidays(p.Holidays)
}

// normalizeHolidays orders holidays by date and keeps the first entry per date.
func normalizeHolidays(holidays []Holiday) []Holiday {
	out := make([]Holiday, 0, len(holidays))
	seen := make(map[string]bool, len(holidays))
	for _, h := range holidays {
		key := h.Date.String()
		if h.Date.IsZero() || seen[key] {
			continue
		}
		seen[key] = true
		h.Name = strings.TrimSpace(h.Name)
		out = append(out, h)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Validate checks every policy invariant.
func (p *Policy) Validate() error {
	if strings.TrimSpace(p.CompanyID) == "" {
		return invalid("companyId", "is required")
	}
	if p.YearStartMonth < time.January || p.YearStartMonth > time.December {
		return invalid("yearStartMonth", "must be between 1 and 12, got %d", p.YearStartMonth)
	}
	days := make(map[time.Weekday]bool)
	for _, w := range p.WeekOff {
		if w < time.Sunday || w > time.Saturday {
			return invalid("weekOff", "weekday %d is out of range 0-6", w)
		}
		days[w] = true
	}
	if len(days) == 7 {
		return invalid("weekOff", "cannot cover every day of the week")
	}

	codes := make(map[string]bool, len(p.LeaveTypes))
	for _, lt := range p.LeaveTypes {
		if err := lt.Validate(); err != nil {
			return err
		}
		code := NormalizeShortCode(lt.ShortCode)
		if codes[code] {
			return conflict("duplicate shortCode %s in leave policy", code)
		}
		codes[code] = true
	}
	return nil
}

var two = decimal.NewFromInt(2)

// isHalfStep reports whether d is a multiple of 0.5.
func isHalfStep(d decimal.Decimal) bool {
	return d.Mul(two).Equal(d.Mul(two).Truncate(0))
}

// Validate checks the field and quota ordering rules of one leave type.
func (lt LeaveType) Validate() error {
	if strings.TrimSpace(lt.Name) == "" {
		return invalid("name", "leave type name is required")
	}
	if strings.TrimSpace(lt.ShortCode) == "" {
		return invalid("shortCode", "leave type short code is required")
	}

	quantities := []struct {
		field string
		value decimal.Decimal
	}{
		{"maxPerRequest", lt.MaxPerRequest},
		{"minPerRequest", lt.MinPerRequest},
		{"maxInstancesPerYear", lt.MaxInstancesPerYear},
		{"maxInstancesPerMonth", lt.MaxInstancesPerMonth},
		{"docsRequiredAfterDays", lt.DocsRequiredAfterDays},
	}
	for _, q := range quantities {
		if q.value.IsNegative() {
			return invalid(q.field, "must not be negative")
		}
		if !isHalfStep(q.value) {
			return invalid(q.field, "must be a multiple of 0.5 day, got %s", q.value)
		}
	}

	one := decimal.NewFromInt(1)
	code := NormalizeShortCode(lt.ShortCode)
	hasMax := !lt.MaxPerRequest.IsZero()
	hasMin := !lt.MinPerRequest.IsZero()
	hasYear := !lt.MaxInstancesPerYear.IsZero()
	hasMonth := !lt.MaxInstancesPerMonth.IsZero()

	if hasMax && lt.MaxPerRequest.LessThan(one) {
		return conflict("%s: maxPerRequest must be at least 1", code)
	}
	if hasYear && lt.MaxInstancesPerYear.LessThan(one) {
		return conflict("%s: maxInstancesPerYear must be at least 1", code)
	}
	if hasMin && hasMax && lt.MinPerRequest.GreaterThan(lt.MaxPerRequest) {
		return conflict("%s: minPerRequest (%s) cannot exceed maxPerRequest (%s)", code, lt.MinPerRequest, lt.MaxPerRequest)
	}
	if hasMax && hasYear && lt.MaxPerRequest.GreaterThan(lt.MaxInstancesPerYear) {
		return conflict("%s: maxPerRequest (%s) cannot exceed maxInstancesPerYear (%s)", code, lt.MaxPerRequest, lt.MaxInstancesPerYear)
	}
	if hasMin && hasYear && lt.MinPerRequest.GreaterThan(lt.MaxInstancesPerYear) {
		return conflict("%s: minPerRequest (%s) cannot exceed maxInstancesPerYear (%s)", code, lt.MinPerRequest, lt.MaxInstancesPerYear)
	}
	if hasMonth && hasYear && lt.MaxInstancesPerMonth.GreaterThan(lt.MaxInstancesPerYear) {
		return conflict("%s: maxInstancesPerMonth (%s) cannot exceed maxInstancesPerYear (%s)", code, lt.MaxInstancesPerMonth, lt.MaxInstancesPerYear)
	}
	return nil
}

func (lt LeaveType) String() string {
	return fmt.Sprintf("%s (%s)", lt.Name, lt.ShortCode)
}
