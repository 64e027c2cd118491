/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the domain model (decimal quantities, Go enums) from the wire contract
  (float days, camelCase field names).

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Leave requests:
    ApplyLeaveRequest, LeaveRequestDTO, BreakupDTO, DocumentDTO
    ApproveRequest, RejectRequest, BulkUpdateRequest, BulkResultDTO

  Balances:
    SummaryResponse, TypeBalanceDTO

  Policies:
    factory.PolicyJSON is used as-is

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

VALIDATION:
  DTOs are pure data carriers. Required fields are checked by the leave
  service so JSON and multipart submissions behave the same.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/policy.go: PolicyJSON type
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

// BreakupDTO is one leave type share of a request.
type BreakupDTO struct {
	LeaveType string  `json:"leaveType,omitempty"`
	ShortCode string  `json:"shortCode,omitempty"`
	Days      float64 `json:"days"`
}

// DocumentDTO is an attached document.
type DocumentDTO struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ApplyLeaveRequest is the body of POST /leaves/apply. In multipart form
// it is the "data" field.
type ApplyLeaveRequest struct {
	EmployeeID   string        `json:"employeeId"`
	CompanyID    string        `json:"companyId"`
	LeaveBreakup []BreakupDTO  `json:"leaveBreakup"`
	StartDate    generic.Date  `json:"startDate"`
	EndDate      generic.Date  `json:"endDate"`
	Reason       string        `json:"reason"`
	IsHalfDay    bool          `json:"isHalfDay"`
	HalfDayType  string        `json:"halfDayType,omitempty"`
	Documents    []DocumentDTO `json:"documents,omitempty"`
}

func (r ApplyLeaveRequest) toInput() leave.ApplyInput {
	in := leave.ApplyInput{
		EmployeeID:  r.EmployeeID,
		CompanyID:   r.CompanyID,
		StartDate:   r.StartDate.Time(),
		EndDate:     r.EndDate.Time(),
		Reason:      r.Reason,
		IsHalfDay:   r.IsHalfDay,
		HalfDayType: leave.HalfDayType(r.HalfDayType),
	}
	if r.LeaveBreakup != nil {
		in.LeaveBreakup = make([]leave.BreakupEntry, len(r.LeaveBreakup))
		for i, b := range r.LeaveBreakup {
			in.LeaveBreakup[i] = leave.BreakupEntry{
				LeaveType: b.LeaveType,
				ShortCode: b.ShortCode,
				Days:      decimal.NewFromFloat(b.Days),
			}
		}
	}
	for _, d := range r.Documents {
		in.Documents = append(in.Documents, leave.Document{Name: d.Name, URL: d.URL})
	}
	return in
}

// LeaveRequestDTO represents a leave request in API responses.
type LeaveRequestDTO struct {
	ID              string        `json:"id"`
	EmployeeID      string        `json:"employeeId"`
	CompanyID       string        `json:"companyId"`
	LeaveBreakup    []BreakupDTO  `json:"leaveBreakup"`
	StartDate       generic.Date  `json:"startDate"`
	EndDate         generic.Date  `json:"endDate"`
	TotalDays       float64       `json:"totalDays"`
	Reason          string        `json:"reason"`
	IsHalfDay       bool          `json:"isHalfDay"`
	HalfDayType     string        `json:"halfDayType"`
	Documents       []DocumentDTO `json:"documents"`
	Status          string        `json:"status"`
	ApprovedBy      string        `json:"approvedBy,omitempty"`
	ApprovedAt      *time.Time    `json:"approvedAt,omitempty"`
	ApprovalComment string        `json:"approvalComment,omitempty"`
	RejectedBy      string        `json:"rejectedBy,omitempty"`
	RejectedAt      *time.Time    `json:"rejectedAt,omitempty"`
	RejectionReason string        `json:"rejectionReason,omitempty"`
	CancelledBy     string        `json:"cancelledBy,omitempty"`
	CancelledAt     *time.Time    `json:"cancelledAt,omitempty"`
	PolicyVersion   int           `json:"policyVersion"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

func toLeaveRequestDTO(r *leave.Request) LeaveRequestDTO {
	dto := LeaveRequestDTO{
		ID:              r.ID,
		EmployeeID:      r.EmployeeID,
		CompanyID:       r.CompanyID,
		LeaveBreakup:    make([]BreakupDTO, len(r.LeaveBreakup)),
		StartDate:       r.StartDate,
		EndDate:         r.EndDate,
		TotalDays:       r.TotalDays.InexactFloat64(),
		Reason:          r.Reason,
		IsHalfDay:       r.IsHalfDay,
		HalfDayType:     string(r.HalfDayType),
		Documents:       make([]DocumentDTO, len(r.Documents)),
		Status:          string(r.Status),
		ApprovedBy:      r.ApprovedBy,
		ApprovedAt:      r.ApprovedAt,
		ApprovalComment: r.ApprovalComment,
		RejectedBy:      r.RejectedBy,
		RejectedAt:      r.RejectedAt,
		RejectionReason: r.RejectionReason,
		CancelledBy:     r.CancelledBy,
		CancelledAt:     r.CancelledAt,
		PolicyVersion:   r.PolicyVersion,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	for i, b := range r.LeaveBreakup {
		dto.LeaveBreakup[i] = BreakupDTO{LeaveType: b.LeaveType, ShortCode: b.ShortCode, Days: b.Days.InexactFloat64()}
	}
	for i, d := range r.Documents {
		dto.Documents[i] = DocumentDTO{Name: d.Name, URL: d.URL}
	}
	return dto
}

func toLeaveRequestDTOs(requests []*leave.Request) []LeaveRequestDTO {
	dtos := make([]LeaveRequestDTO, len(requests))
	for i, r := range requests {
		dtos[i] = toLeaveRequestDTO(r)
	}
	return dtos
}

// LeaveListResponse wraps a list of requests.
type LeaveListResponse struct {
	Results int               `json:"results"`
	Leaves  []LeaveRequestDTO `json:"leaves"`
}

// ApproveRequest is the body of PATCH /leaves/{id}/approve.
type ApproveRequest struct {
	Comment string `json:"comment"`
}

// RejectRequest is the body of PATCH /leaves/{id}/reject.
type RejectRequest struct {
	RejectionReason string `json:"rejectionReason"`
}

// BulkUpdateRequest is the body of PATCH /bulkupdate.
type BulkUpdateRequest struct {
	IDs             []string `json:"ids"`
	Status          string   `json:"status"` // approved | rejected
	Comment         string   `json:"comment,omitempty"`
	RejectionReason string   `json:"rejectionReason,omitempty"`
}

// BulkResultDTO is the outcome for one ID of a bulk update.
type BulkResultDTO struct {
	ID      string           `json:"id"`
	Success bool             `json:"success"`
	Leave   *LeaveRequestDTO `json:"leave,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// BulkUpdateResponse summarizes a bulk update.
type BulkUpdateResponse struct {
	Updated int             `json:"updated"`
	Failed  int             `json:"failed"`
	Results []BulkResultDTO `json:"results"`
}

// =============================================================================
// BALANCES
// =============================================================================

// TypeBalanceDTO is the standing of one leave type. Nil limits and
// remainders mean unlimited.
type TypeBalanceDTO struct {
	LeaveType        string   `json:"leaveType"`
	ShortCode        string   `json:"shortCode"`
	YearStart        string   `json:"yearStart"`
	YearEnd          string   `json:"yearEnd"`
	YearlyLimit      *float64 `json:"yearlyLimit"`
	YearlyUsed       float64  `json:"yearlyUsed"`
	YearlyRemaining  *float64 `json:"yearlyRemaining"`
	MonthlyLimit     *float64 `json:"monthlyLimit"`
	MonthlyUsed      float64  `json:"monthlyUsed"`
	MonthlyRemaining *float64 `json:"monthlyRemaining"`
}

// SummaryResponse is the body of GET /{employeeId}/summary.
type SummaryResponse struct {
	EmployeeID string           `json:"employeeId"`
	CompanyID  string           `json:"companyId"`
	AsOf       generic.Date     `json:"asOf"`
	Balances   []TypeBalanceDTO `json:"balances"`
}

func toTypeBalanceDTO(b leave.TypeBalance) TypeBalanceDTO {
	return TypeBalanceDTO{
		LeaveType:        b.LeaveType.Name,
		ShortCode:        b.LeaveType.ShortCode,
		YearStart:        b.Year.Start.String(),
		YearEnd:          b.Year.End.String(),
		YearlyLimit:      limitPtr(b.YearlyLimit),
		YearlyUsed:       b.YearlyUsed.InexactFloat64(),
		YearlyRemaining:  floatPtr(b.YearlyRemaining()),
		MonthlyLimit:     limitPtr(b.MonthlyLimit),
		MonthlyUsed:      b.MonthlyUsed.InexactFloat64(),
		MonthlyRemaining: floatPtr(b.MonthlyRemaining()),
	}
}

func limitPtr(d decimal.Decimal) *float64 {
	if d.IsZero() {
		return nil
	}
	return floatPtr(&d)
}

func floatPtr(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	f := d.InexactFloat64()
	return &f
}

// BusinessDaysResponse is the body of the calendar route.
type BusinessDaysResponse struct {
	CompanyID       string       `json:"companyId"`
	Start           generic.Date `json:"start"`
	End             generic.Date `json:"end"`
	ExcludeHolidays bool         `json:"excludeHolidays"`
	IncludeWeekOff  bool         `json:"includeWeekOff"`
	BusinessDays    int          `json:"businessDays"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Preset      string `json:"preset"`
}

// LoadScenarioRequest is the body of POST /scenarios/load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
	CompanyID  string `json:"company_id,omitempty"`
}

// LoadScenarioResponse reports what a scenario created.
type LoadScenarioResponse struct {
	Scenario ScenarioDTO        `json:"scenario"`
	Policy   factory.PolicyJSON `json:"policy"`
	Leaves   []LeaveRequestDTO  `json:"leaves"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Field   string `json:"field,omitempty"`
}
