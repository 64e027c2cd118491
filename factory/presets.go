/*
presets.go - Pre-built leave policy documents

PURPOSE:
  Ready-to-use policy documents for common company setups. They are used
  by the demo scenarios and are a starting point for HR admins.

AVAILABLE PRESETS:
  standard:      Calendar year, CL/SL/EL, Saturday and Sunday off
  fiscal-april:  April-March year, CL/SL/EL plus WFH without approval,
                 national holidays of the given year

EXAMPLE:
  policy, err := factory.Preset("fiscal-april", "acme", 2025)
  created, err := policies.CreatePolicy(ctx, *policy)

SEE ALSO:
  - policy.go: JSON schema and defaults
*/
package factory

import (
	"fmt"
	"sort"

	"github.com/warp/leave-engine/leave"
)

// StandardPolicyJSON returns a calendar-year policy document for a company.
func StandardPolicyJSON(companyID string) string {
	return fmt.Sprintf(`{
		"companyId": %q,
		"yearStartMonth": 1,
		"weekOff": [0, 6],
		"leaveTypes": [
			{
				"name": "Casual Leave",
				"shortCode": "CL",
				"maxPerRequest": 3,
				"maxInstancesPerYear": 12,
				"maxInstancesPerMonth": 2
			},
			{
				"name": "Sick Leave",
				"shortCode": "SL",
				"maxPerRequest": 5,
				"maxInstancesPerYear": 10,
				"requiresDocs": true,
				"docsRequiredAfterDays": 2
			},
			{
				"name": "Earned Leave",
				"shortCode": "EL",
				"minPerRequest": 1,
				"maxPerRequest": 15,
				"maxInstancesPerYear": 18
			}
		]
	}`, companyID)
}

// FiscalAprilPolicyJSON returns an April-March policy with the holidays
// of the fiscal year starting in April of year.
func FiscalAprilPolicyJSON(companyID string, year int) string {
	return fmt.Sprintf(`{
		"companyId": %q,
		"yearStartMonth": 4,
		"weekOff": [0, 6],
		"holidays": [
			{"date": "%04d-08-15", "name": "Independence Day"},
			{"date": "%04d-10-02", "name": "Gandhi Jayanti"},
			{"date": "%04d-12-25", "name": "Christmas"},
			{"date": "%04d-01-26", "name": "Republic Day"}
		],
		"leaveTypes": [
			{
				"name": "Casual Leave",
				"shortCode": "CL",
				"maxPerRequest": 3,
				"maxInstancesPerYear": 12,
				"maxInstancesPerMonth": 2
			},
			{
				"name": "Sick Leave",
				"shortCode": "SL",
				"maxPerRequest": 5,
				"maxInstancesPerYear": 10,
				"requiresDocs": true,
				"docsRequiredAfterDays": 2
			},
			{
				"name": "Earned Leave",
				"shortCode": "EL",
				"minPerRequest": 1,
				"maxPerRequest": 15,
				"maxInstancesPerYear": 18
			},
			{
				"name": "Work From Home",
				"shortCode": "WFH",
				"maxPerRequest": 2,
				"maxInstancesPerMonth": 4,
				"maxInstancesPerYear": 48,
				"requiresApproval": false,
				"excludeHolidays": false
			}
		]
	}`, companyID, year, year, year, year+1)
}

var presets = map[string]func(companyID string, year int) string{
	"standard":     func(companyID string, _ int) string { return StandardPolicyJSON(companyID) },
	"fiscal-april": FiscalAprilPolicyJSON,
}

// PresetNames lists the available presets in order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Preset parses the named preset for a company.
func Preset(name, companyID string, year int) (*leave.Policy, error) {
	build, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("unknown policy preset %q", name)
	}
	return NewPolicyFactory().ParsePolicy(build(companyID, year))
}
