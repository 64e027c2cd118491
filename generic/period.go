package generic

import "time"

// =============================================================================
// PERIOD - The window every quota is computed for
// =============================================================================

// Period is an inclusive range of calendar days.
//
// Examples:
//   - Calendar year 2025: Jan 1 - Dec 31
//   - Fiscal year 2025: Apr 1 2025 - Mar 31 2026
//   - Calendar month: Jun 1 - Jun 30
type Period struct {
	Start Date
	End   Date
}

// Contains returns true if the date is within [Start, End].
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Overlaps reports whether the two inclusive ranges share at least one day.
func (p Period) Overlaps(other Period) bool {
	return p.Start.BeforeOrEqual(other.End) && other.Start.BeforeOrEqual(p.End)
}

// Days returns every day of the period. Inverted periods have no days.
func (p Period) Days() []Date {
	var days []Date
	for current := p.Start; current.BeforeOrEqual(p.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// PeriodType defines how periods are calculated
type PeriodType string

const (
	PeriodCalendarYear  PeriodType = "calendar_year"  // Jan 1 - Dec 31
	PeriodFiscalYear    PeriodType = "fiscal_year"    // Custom start month (e.g., Apr 1)
	PeriodCalendarMonth PeriodType = "calendar_month" // 1st - last day of the month
)

// PeriodConfig defines how to calculate the period a date falls into.
type PeriodConfig struct {
	Type PeriodType

	// For fiscal year: which month starts the fiscal year (1-12)
	FiscalYearStartMonth time.Month
}

// =============================================================================
// PERIOD CALCULATOR
// =============================================================================

// PeriodFor returns the period that contains the given date.
func (pc PeriodConfig) PeriodFor(date Date) Period {
	switch pc.Type {
	case PeriodFiscalYear:
		if pc.FiscalYearStartMonth <= time.January || pc.FiscalYearStartMonth > time.December {
			return calendarYear(date)
		}
		return pc.fiscalYearPeriod(date)

	case PeriodCalendarMonth:
		return Period{
			Start: StartOfMonth(date.Year(), date.Month()),
			End:   EndOfMonth(date.Year(), date.Month()),
		}

	default:
		return calendarYear(date)
	}
}

func calendarYear(date Date) Period {
	return Period{Start: NewDate(date.Year(), time.January, 1), End: NewDate(date.Year(), time.December, 31)}
}

func (pc PeriodConfig) fiscalYearPeriod(date Date) Period {
	fiscalStart := NewDate(date.Year(), pc.FiscalYearStartMonth, 1)

	// Before this year's start month we are still in the previous fiscal year
	if date.Before(fiscalStart) {
		fiscalStart = NewDate(date.Year()-1, pc.FiscalYearStartMonth, 1)
	}

	return Period{Start: fiscalStart, End: fiscalStart.AddYears(1).AddDays(-1)}
}
