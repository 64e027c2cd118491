/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that provision a company with a policy
	preset and a few leave requests, so the API can be explored without
	manual setup.

AVAILABLE SCENARIOS:

	new-company:   Standard calendar-year policy, no requests
	busy-team:     Standard policy with approved, pending and rejected requests
	fiscal-april:  April-March policy with holidays, an auto-approved WFH day
	               and a pending half day

HOW SCENARIOS WORK:
 1. Create the company policy from a factory preset
 2. Apply for leave through the leave service (all rules apply)
 3. Approve or reject some of the requests

Dates are the next business days after today, so the requests never land
on a week off or a holiday.

USAGE VIA API:

	POST /scenarios/load
	{"scenario_id": "busy-team", "company_id": "acme"}

NOTE:

	A company has one policy, so loading a scenario twice for the same
	company fails. Omit company_id to use "demo-<scenario>".

SEE ALSO:
  - handlers.go: Error mapping
  - factory/presets.go: Policy presets
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "new-company",
		Name:        "New Company",
		Description: "Calendar-year policy with casual, sick and earned leave",
		Preset:      "standard",
	},
	{
		ID:          "busy-team",
		Name:        "Busy Team",
		Description: "Standard policy with approved, pending and rejected requests",
		Preset:      "standard",
	},
	{
		ID:          "fiscal-april",
		Name:        "Fiscal Year April",
		Description: "April-March year with holidays, auto-approved work from home and a half day",
		Preset:      "fiscal-april",
	},
}

const scenarioApprover = "mgr-001"

func findScenario(id string) (ScenarioDTO, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return ScenarioDTO{}, false
}

// ListScenarios returns all available demo scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario provisions a scenario for a company.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	scenario, ok := findScenario(req.ScenarioID)
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", fmt.Errorf("scenario %q", req.ScenarioID))
		return
	}
	companyID := req.CompanyID
	if companyID == "" {
		companyID = "demo-" + scenario.ID
	}

	policy, leaves, err := h.loadScenario(r.Context(), scenario, companyID, generic.Today())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	requestLogger(r).WithField("scenario", scenario.ID).Info("scenario loaded")

	writeJSON(w, http.StatusCreated, LoadScenarioResponse{
		Scenario: scenario,
		Policy:   h.PolicyFactory.ToJSON(policy),
		Leaves:   toLeaveRequestDTOs(leaves),
	})
}

func (h *Handler) loadScenario(ctx context.Context, scenario ScenarioDTO, companyID string, today generic.Date) (*leave.Policy, []*leave.Request, error) {
	preset, err := presetPolicy(scenario.Preset, companyID, today)
	if err != nil {
		return nil, nil, err
	}
	policy, err := h.Policies.CreatePolicy(ctx, *preset)
	if err != nil {
		return nil, nil, err
	}

	var leaves []*leave.Request
	switch scenario.ID {
	case "new-company":
	case "busy-team":
		leaves, err = h.loadBusyTeamScenario(ctx, policy, today)
	case "fiscal-april":
		leaves, err = h.loadFiscalAprilScenario(ctx, policy, today)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load scenario %s: %w", scenario.ID, err)
	}
	return policy, leaves, nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadBusyTeamScenario(ctx context.Context, policy *leave.Policy, today generic.Date) ([]*leave.Request, error) {
	first := nextBusinessDays(policy, today, 1)
	pair := nextBusinessDays(policy, first, 2)
	later := nextBusinessDays(policy, pair.AddDays(1), 1)

	casual, err := h.applyDemo(ctx, policy.CompanyID, "emp-001", "CL", first, first, "Family function")
	if err != nil {
		return nil, err
	}
	casual, err = h.Leaves.Approve(ctx, casual.ID, leave.ApproveInput{ApproverID: scenarioApprover, Comment: "Enjoy"})
	if err != nil {
		return nil, err
	}

	earned, err := h.applyDemo(ctx, policy.CompanyID, "emp-002", "EL", pair, pair.AddDays(1), "Trip home")
	if err != nil {
		return nil, err
	}

	sick, err := h.applyDemo(ctx, policy.CompanyID, "emp-003", "SL", later, later, "Dentist")
	if err != nil {
		return nil, err
	}
	sick, err = h.Leaves.Reject(ctx, sick.ID, leave.RejectInput{RejectedBy: scenarioApprover, Reason: "Release day, please move it"})
	if err != nil {
		return nil, err
	}

	return []*leave.Request{casual, earned, sick}, nil
}

func (h *Handler) loadFiscalAprilScenario(ctx context.Context, policy *leave.Policy, today generic.Date) ([]*leave.Request, error) {
	wfhDay := nextBusinessDays(policy, today, 1)
	halfDay := nextBusinessDays(policy, wfhDay, 1)

	wfh, err := h.applyDemo(ctx, policy.CompanyID, "emp-001", "WFH", wfhDay, wfhDay, "Internet installation")
	if err != nil {
		return nil, err
	}

	half, err := h.Leaves.ApplyLeave(ctx, leave.ApplyInput{
		EmployeeID:   "emp-002",
		CompanyID:    policy.CompanyID,
		LeaveBreakup: []leave.BreakupEntry{{ShortCode: "CL"}},
		StartDate:    halfDay.Time(),
		EndDate:      halfDay.Time(),
		Reason:       "Bank appointment",
		IsHalfDay:    true,
		HalfDayType:  leave.HalfDayFirst,
	})
	if err != nil {
		return nil, err
	}
	return []*leave.Request{wfh, half}, nil
}

// applyDemo applies for a single leave type; the day count is computed.
func (h *Handler) applyDemo(ctx context.Context, companyID, employeeID, shortCode string, start, end generic.Date, reason string) (*leave.Request, error) {
	return h.Leaves.ApplyLeave(ctx, leave.ApplyInput{
		EmployeeID:   employeeID,
		CompanyID:    companyID,
		LeaveBreakup: []leave.BreakupEntry{{ShortCode: shortCode, Days: decimal.Zero}},
		StartDate:    start.Time(),
		EndDate:      end.Time(),
		Reason:       reason,
	})
}

// =============================================================================
// HELPERS
// =============================================================================

// presetPolicy picks the fiscal year containing today for dated presets.
func presetPolicy(preset, companyID string, today generic.Date) (*leave.Policy, error) {
	year := today.Year()
	if preset == "fiscal-april" && today.Month() < time.April {
		year--
	}
	return factory.Preset(preset, companyID, year)
}

// nextBusinessDays returns the first date after `after` that starts a run
// of n consecutive business days.
func nextBusinessDays(policy *leave.Policy, after generic.Date, n int) generic.Date {
	d := after.AddDays(1)
	for i := 0; i < 366; i++ {
		if policy.BusinessDays(d, d.AddDays(n-1), true, false) == n {
			return d
		}
		d = d.AddDays(1)
	}
	return d
}
