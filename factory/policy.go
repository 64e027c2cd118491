/*
Package factory provides JSON to Go leave policy conversion.

PURPOSE:
  Converts JSON policy documents into leave.Policy values and back. HR can
  define a company's catalogue in JSON (admin UI, API, presets) and the
  factory applies defaults and produces the Go structs.

JSON SCHEMA:
  {
    "companyId": "acme",
    "yearStartMonth": 4,
    "weekOff": [0, 6],
    "holidays": [{"date": "2025-08-15", "name": "Independence Day"}],
    "leaveTypes": [
      {
        "name": "Casual Leave",
        "shortCode": "CL",
        "maxPerRequest": 3,
        "maxInstancesPerYear": 12,
        "maxInstancesPerMonth": 2,
        "requiresApproval": true
      }
    ]
  }

DEFAULTS:
  - yearStartMonth: 1
  - weekOff:        [0, 6] when omitted ([] means no week off)
  - isActive, requiresApproval, excludeHolidays: true when omitted
  - requiresDocs:   false
  - quantities:     0 (not configured)

USAGE:
  factory := NewPolicyFactory()
  policy, err := factory.ParsePolicy(StandardPolicyJSON("acme"))
  created, err := policies.CreatePolicy(ctx, *policy)

SEE ALSO:
  - leave/policy.go: Policy type and invariants
  - presets.go: Ready-made policy documents
*/
package factory

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// PolicyJSON is the JSON representation of a policy.
type PolicyJSON struct {
	ID             string          `json:"id,omitempty"`
	CompanyID      string          `json:"companyId"`
	YearStartMonth int             `json:"yearStartMonth,omitempty"` // Month 1-12
	WeekOff        []int           `json:"weekOff"`                  // 0 = Sunday
	Holidays       []HolidayJSON   `json:"holidays,omitempty"`
	LeaveTypes     []LeaveTypeJSON `json:"leaveTypes"`
	Version        int             `json:"version,omitempty"`
	CreatedAt      *time.Time      `json:"createdAt,omitempty"`
	UpdatedAt      *time.Time      `json:"updatedAt,omitempty"`
}

// HolidayJSON is one company holiday.
type HolidayJSON struct {
	Date generic.Date `json:"date"`
	Name string       `json:"name,omitempty"`
}

// LeaveTypeJSON represents one leave type. Pointer flags default to true.
type LeaveTypeJSON struct {
	ID                    string  `json:"id,omitempty"`
	Name                  string  `json:"name"`
	ShortCode             string  `json:"shortCode"`
	MaxPerRequest         float64 `json:"maxPerRequest,omitempty"`
	MinPerRequest         float64 `json:"minPerRequest,omitempty"`
	MaxInstancesPerYear   float64 `json:"maxInstancesPerYear,omitempty"`
	MaxInstancesPerMonth  float64 `json:"maxInstancesPerMonth,omitempty"`
	RequiresApproval      *bool   `json:"requiresApproval,omitempty"`
	RequiresDocs          bool    `json:"requiresDocs"`
	DocsRequiredAfterDays float64 `json:"docsRequiredAfterDays,omitempty"`
	ExcludeHolidays       *bool   `json:"excludeHolidays,omitempty"`
	IsActive              *bool   `json:"isActive,omitempty"`
}

// LeaveTypePatchJSON is a partial leave type update.
type LeaveTypePatchJSON struct {
	Name                  *string  `json:"name,omitempty"`
	ShortCode             *string  `json:"shortCode,omitempty"`
	MaxPerRequest         *float64 `json:"maxPerRequest,omitempty"`
	MinPerRequest         *float64 `json:"minPerRequest,omitempty"`
	MaxInstancesPerYear   *float64 `json:"maxInstancesPerYear,omitempty"`
	MaxInstancesPerMonth  *float64 `json:"maxInstancesPerMonth,omitempty"`
	RequiresApproval      *bool    `json:"requiresApproval,omitempty"`
	RequiresDocs          *bool    `json:"requiresDocs,omitempty"`
	DocsRequiredAfterDays *float64 `json:"docsRequiredAfterDays,omitempty"`
	ExcludeHolidays       *bool    `json:"excludeHolidays,omitempty"`
	IsActive              *bool    `json:"isActive,omitempty"`
}

// SettingsPatchJSON is a partial calendar settings update.
type SettingsPatchJSON struct {
	YearStartMonth *int           `json:"yearStartMonth,omitempty"`
	WeekOff        *[]int         `json:"weekOff,omitempty"`
	Holidays       *[]HolidayJSON `json:"holidays,omitempty"`
}

// =============================================================================
// POLICY FACTORY
// =============================================================================

// PolicyFactory converts JSON policies to Go structs.
type PolicyFactory struct{}

// NewPolicyFactory creates a new policy factory.
func NewPolicyFactory() *PolicyFactory {
	return &PolicyFactory{}
}

// ParsePolicy parses a JSON policy document.
func (f *PolicyFactory) ParsePolicy(jsonStr string) (*leave.Policy, error) {
	var pj PolicyJSON
	if err := json.Unmarshal([]byte(jsonStr), &pj); err != nil {
		return nil, fmt.Errorf("invalid policy JSON: %w", err)
	}
	return f.FromJSON(pj)
}

// FromJSON applies defaults and builds the policy. Invariants are checked
// by the write path, not here.
func (f *PolicyFactory) FromJSON(pj PolicyJSON) (*leave.Policy, error) {
	if strings.TrimSpace(pj.CompanyID) == "" {
		return nil, &leave.ValidationError{Field: "companyId", Reason: "is required"}
	}

	policy := &leave.Policy{
		ID:             pj.ID,
		CompanyID:      strings.TrimSpace(pj.CompanyID),
		YearStartMonth: time.Month(pj.YearStartMonth),
		Version:        pj.Version,
	}
	if policy.YearStartMonth == 0 {
		policy.YearStartMonth = time.January
	}
	if pj.WeekOff == nil {
		policy.WeekOff = leave.DefaultWeekOff()
	} else {
		policy.WeekOff = parseWeekOff(pj.WeekOff)
	}
	policy.Holidays = parseHolidays(pj.Holidays)
	for _, ltj := range pj.LeaveTypes {
		policy.LeaveTypes = append(policy.LeaveTypes, f.LeaveTypeFromJSON(ltj))
	}
	if pj.CreatedAt != nil {
		policy.CreatedAt = *pj.CreatedAt
	}
	if pj.UpdatedAt != nil {
		policy.UpdatedAt = *pj.UpdatedAt
	}
	return policy, nil
}

// LeaveTypeFromJSON applies the leave type defaults.
func (f *PolicyFactory) LeaveTypeFromJSON(ltj LeaveTypeJSON) leave.LeaveType {
	return leave.LeaveType{
		ID:                    ltj.ID,
		Name:                  strings.TrimSpace(ltj.Name),
		ShortCode:             leave.NormalizeShortCode(ltj.ShortCode),
		MaxPerRequest:         decimal.NewFromFloat(ltj.MaxPerRequest),
		MinPerRequest:         decimal.NewFromFloat(ltj.MinPerRequest),
		MaxInstancesPerYear:   decimal.NewFromFloat(ltj.MaxInstancesPerYear),
		MaxInstancesPerMonth:  decimal.NewFromFloat(ltj.MaxInstancesPerMonth),
		RequiresApproval:      boolOr(ltj.RequiresApproval, true),
		RequiresDocs:          ltj.RequiresDocs,
		DocsRequiredAfterDays: decimal.NewFromFloat(ltj.DocsRequiredAfterDays),
		ExcludeHolidays:       boolOr(ltj.ExcludeHolidays, true),
		IsActive:              boolOr(ltj.IsActive, true),
	}
}

// PatchFromJSON converts a partial leave type update.
func (f *PolicyFactory) PatchFromJSON(pj LeaveTypePatchJSON) leave.LeaveTypePatch {
	return leave.LeaveTypePatch{
		Name:                  pj.Name,
		ShortCode:             pj.ShortCode,
		MaxPerRequest:         decimalPtr(pj.MaxPerRequest),
		MinPerRequest:         decimalPtr(pj.MinPerRequest),
		MaxInstancesPerYear:   decimalPtr(pj.MaxInstancesPerYear),
		MaxInstancesPerMonth:  decimalPtr(pj.MaxInstancesPerMonth),
		RequiresApproval:      pj.RequiresApproval,
		RequiresDocs:          pj.RequiresDocs,
		DocsRequiredAfterDays: decimalPtr(pj.DocsRequiredAfterDays),
		ExcludeHolidays:       pj.ExcludeHolidays,
		IsActive:              pj.IsActive,
	}
}

// SettingsFromJSON converts a partial settings update.
func (f *PolicyFactory) SettingsFromJSON(sj SettingsPatchJSON) leave.SettingsPatch {
	var patch leave.SettingsPatch
	if sj.YearStartMonth != nil {
		m := time.Month(*sj.YearStartMonth)
		patch.YearStartMonth = &m
	}
	if sj.WeekOff != nil {
		w := parseWeekOff(*sj.WeekOff)
		patch.WeekOff = &w
	}
	if sj.Holidays != nil {
		h := parseHolidays(*sj.Holidays)
		patch.Holidays = &h
	}
	return patch
}

// ToJSON converts a policy to its JSON representation.
func (f *PolicyFactory) ToJSON(p *leave.Policy) PolicyJSON {
	pj := PolicyJSON{
		ID:             p.ID,
		CompanyID:      p.CompanyID,
		YearStartMonth: int(p.YearStartMonth),
		WeekOff:        make([]int, len(p.WeekOff)),
		Holidays:       make([]HolidayJSON, len(p.Holidays)),
		LeaveTypes:     make([]LeaveTypeJSON, len(p.LeaveTypes)),
		Version:        p.Version,
	}
	for i, w := range p.WeekOff {
		pj.WeekOff[i] = int(w)
	}
	for i, h := range p.Holidays {
		pj.Holidays[i] = HolidayJSON{Date: h.Date, Name: h.Name}
	}
	for i, lt := range p.LeaveTypes {
		pj.LeaveTypes[i] = f.LeaveTypeToJSON(lt)
	}
	if !p.CreatedAt.IsZero() {
		created, updated := p.CreatedAt, p.UpdatedAt
		pj.CreatedAt, pj.UpdatedAt = &created, &updated
	}
	return pj
}

func (f *PolicyFactory) LeaveTypeToJSON(lt leave.LeaveType) LeaveTypeJSON {
	return LeaveTypeJSON{
		ID:                    lt.ID,
		Name:                  lt.Name,
		ShortCode:             lt.ShortCode,
		MaxPerRequest:         lt.MaxPerRequest.InexactFloat64(),
		MinPerRequest:         lt.MinPerRequest.InexactFloat64(),
		MaxInstancesPerYear:   lt.MaxInstancesPerYear.InexactFloat64(),
		MaxInstancesPerMonth:  lt.MaxInstancesPerMonth.InexactFloat64(),
		RequiresApproval:      boolPtr(lt.RequiresApproval),
		RequiresDocs:          lt.RequiresDocs,
		DocsRequiredAfterDays: lt.DocsRequiredAfterDays.InexactFloat64(),
		ExcludeHolidays:       boolPtr(lt.ExcludeHolidays),
		IsActive:              boolPtr(lt.IsActive),
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func parseWeekOff(days []int) []time.Weekday {
	weekOff := make([]time.Weekday, len(days))
	for i, d := range days {
		weekOff[i] = time.Weekday(d)
	}
	return weekOff
}

func parseHolidays(hs []HolidayJSON) []leave.Holiday {
	holidays := make([]leave.Holiday, 0, len(hs))
	for _, h := range hs {
		holidays = append(holidays, leave.Holiday{Date: h.Date, Name: h.Name})
	}
	return holidays
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}

func boolPtr(v bool) *bool { return &v }

func decimalPtr(v *float64) *decimal.Decimal {
	if v == nil {
		return nil
	}
	d := decimal.NewFromFloat(*v)
	return &d
}
