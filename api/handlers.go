/*
handlers.go - HTTP API handlers for the leave engine

PURPOSE:
  Exposes the leave service and the policy service via REST API. Handles
  HTTP request/response, JSON serialization, actor checks, and delegates
  to domain logic.

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Leaves:   Apply, approval workflow, listings, summary
  - Policies: Policy catalogue writes
  - Calendar: Business-day computation
  - PolicyFactory: JSON to Policy conversion

REQUEST FLOW:
  1. Resolve the actor from gateway headers
  2. Parse HTTP request
  3. Check role and company binding
  4. Call the service
  5. Serialize response, or map the error to a status

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors and business rule failures, with the reason
  - 403: Role, company or ownership denied
  - 404: Policy or request not found
  - 409: Concurrent modification retries exhausted
  - 502: Document storage failed
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// DefaultMaxUploadBytes bounds multipart applications.
const DefaultMaxUploadBytes = 10 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Pinger is implemented by stores that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Leaves        *leave.Service
	Policies      *leave.PolicyService
	Calendar      *leave.Calendar
	PolicyFactory *factory.PolicyFactory

	MaxUploadBytes int64
}

// NewHandler wires the handlers to the services.
func NewHandler(leaves *leave.Service, policies *leave.PolicyService) *Handler {
	return &Handler{
		Leaves:         leaves,
		Policies:       policies,
		Calendar:       leave.NewCalendar(leaves.Store),
		PolicyFactory:  factory.NewPolicyFactory(),
		MaxUploadBytes: DefaultMaxUploadBytes,
	}
}

// Health reports whether the store answers.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.Leaves.Store.(Pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "Store unavailable", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// LEAVE HANDLERS
// =============================================================================

// ApplyLeave accepts a JSON body, or a multipart form with the JSON in
// "data" and attachments in "documents".
func (h *Handler) ApplyLeave(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var (
		req   ApplyLeaveRequest
		files []leave.File
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes())
		if err := r.ParseMultipartForm(h.maxUploadBytes()); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid multipart form", err)
			return
		}
		defer r.MultipartForm.RemoveAll()

		if err := json.Unmarshal([]byte(r.FormValue("data")), &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid data field", err)
			return
		}
		for _, fh := range r.MultipartForm.File["documents"] {
			f, err := fh.Open()
			if err != nil {
				writeError(w, http.StatusBadRequest, "Invalid document", err)
				return
			}
			defer f.Close()
			files = append(files, leave.File{
				Name:        fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Size:        fh.Size,
				Body:        f,
			})
		}
	} else if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if strings.TrimSpace(req.EmployeeID) == "" {
		req.EmployeeID = actor.UserID
	}
	if strings.TrimSpace(req.CompanyID) == "" {
		req.CompanyID = actor.CompanyID
	}
	if !actor.CanAccessCompany(strings.TrimSpace(req.CompanyID)) {
		writeError(w, http.StatusForbidden, "Company not accessible", nil)
		return
	}
	if strings.TrimSpace(req.EmployeeID) != actor.UserID && !actor.IsApprover() {
		writeError(w, http.StatusForbidden, "Cannot apply for another employee", nil)
		return
	}

	in := req.toInput()
	in.Files = files
	created, err := h.Leaves.ApplyLeave(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLeaveRequestDTO(created))
}

// ApproveLeave approves a pending request.
func (h *Handler) ApproveLeave(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireApprover(w, r)
	if !ok {
		return
	}
	var body ApproveRequest
	if err := decodeOptionalJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	updated, err := h.Leaves.Approve(r.Context(), chi.URLParam(r, "id"), leave.ApproveInput{
		ApproverID: actor.UserID,
		Comment:    body.Comment,
		CompanyID:  actor.CompanyID,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTO(updated))
}

// RejectLeave rejects a pending request with a reason.
func (h *Handler) RejectLeave(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireApprover(w, r)
	if !ok {
		return
	}
	var body RejectRequest
	if err := decodeOptionalJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	updated, err := h.Leaves.Reject(r.Context(), chi.URLParam(r, "id"), leave.RejectInput{
		RejectedBy: actor.UserID,
		Reason:     body.RejectionReason,
		CompanyID:  actor.CompanyID,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTO(updated))
}

// CancelLeave cancels a pending or approved request.
func (h *Handler) CancelLeave(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	updated, err := h.Leaves.Cancel(r.Context(), chi.URLParam(r, "id"), leave.CancelInput{
		CancelledBy: actor.UserID,
		CompanyID:   actor.CompanyID,
		AsApprover:  actor.IsApprover(),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTO(updated))
}

// BulkUpdate approves or rejects many requests; each ID succeeds or fails
// on its own.
func (h *Handler) BulkUpdate(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireApprover(w, r)
	if !ok {
		return
	}
	var body BulkUpdateRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	results, err := h.Leaves.BulkTransition(r.Context(), leave.BulkInput{
		IDs:       body.IDs,
		Status:    leave.Status(strings.ToLower(strings.TrimSpace(body.Status))),
		ActorID:   actor.UserID,
		CompanyID: actor.CompanyID,
		Comment:   body.Comment,
		Reason:    body.RejectionReason,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := BulkUpdateResponse{Results: make([]BulkResultDTO, len(results))}
	for i, res := range results {
		dto := BulkResultDTO{ID: res.ID, Success: res.Err == nil}
		if res.Err != nil {
			dto.Error = res.Err.Error()
			resp.Failed++
		} else {
			leaveDTO := toLeaveRequestDTO(res.Request)
			dto.Leave = &leaveDTO
			resp.Updated++
		}
		resp.Results[i] = dto
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListEmployeeLeaves returns an employee's requests, newest first.
func (h *Handler) ListEmployeeLeaves(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	companyID, employeeID := chi.URLParam(r, "companyId"), chi.URLParam(r, "employeeId")
	if !actor.CanAccessCompany(companyID) {
		writeError(w, http.StatusForbidden, "Company not accessible", nil)
		return
	}
	if employeeID != actor.UserID && !actor.CanReadCompany() {
		writeError(w, http.StatusForbidden, "Cannot list another employee's leaves", nil)
		return
	}

	requests, err := h.Leaves.ListEmployeeRequests(r.Context(), companyID, employeeID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, LeaveListResponse{Results: len(requests), Leaves: toLeaveRequestDTOs(requests)})
}

// ListCompanyLeaves returns a company's requests, optionally filtered by
// a comma separated status list.
func (h *Handler) ListCompanyLeaves(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	companyID := chi.URLParam(r, "companyId")
	if !actor.CanAccessCompany(companyID) || !actor.CanReadCompany() {
		writeError(w, http.StatusForbidden, "Company leaves not accessible", nil)
		return
	}

	var statuses []leave.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status, err := leave.ParseStatus(strings.ToLower(strings.TrimSpace(part)))
			if err != nil {
				writeServiceError(w, r, err)
				return
			}
			statuses = append(statuses, status)
		}
	}

	requests, err := h.Leaves.ListCompanyRequests(r.Context(), companyID, statuses...)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, LeaveListResponse{Results: len(requests), Leaves: toLeaveRequestDTOs(requests)})
}

// GetLeave returns one request.
func (h *Handler) GetLeave(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	req, err := h.Leaves.GetRequest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !actor.CanAccessCompany(req.CompanyID) || (req.EmployeeID != actor.UserID && !actor.CanReadCompany()) {
		writeError(w, http.StatusForbidden, "Leave request not accessible", nil)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTO(req))
}

// GetSummary returns the per leave type balance of an employee.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	employeeID := chi.URLParam(r, "employeeId")
	companyID := r.URL.Query().Get("companyId")
	if companyID == "" {
		companyID = actor.CompanyID
	}
	if companyID == "" {
		writeError(w, http.StatusBadRequest, "companyId is required", nil)
		return
	}
	if !actor.CanAccessCompany(companyID) || (employeeID != actor.UserID && !actor.CanReadCompany()) {
		writeError(w, http.StatusForbidden, "Summary not accessible", nil)
		return
	}

	var asOf generic.Date
	if raw := r.URL.Query().Get("asOf"); raw != "" {
		parsed, err := generic.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid asOf date", err)
			return
		}
		asOf = parsed
	}

	balances, err := h.Leaves.Summary(r.Context(), companyID, employeeID, asOf)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	resp := SummaryResponse{
		EmployeeID: employeeID,
		CompanyID:  companyID,
		AsOf:       asOf,
		Balances:   make([]TypeBalanceDTO, len(balances)),
	}
	for i, b := range balances {
		resp.Balances[i] = toTypeBalanceDTO(b)
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// POLICY HANDLERS
// =============================================================================

// CreatePolicy creates the policy of a company from a JSON document.
func (h *Handler) CreatePolicy(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireApprover(w, r)
	if !ok {
		return
	}
	var pj factory.PolicyJSON
	if err := decodeJSON(r, &pj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid policy JSON", err)
		return
	}
	if pj.CompanyID == "" {
		pj.CompanyID = actor.CompanyID
	}
	if !actor.CanAccessCompany(pj.CompanyID) {
		writeError(w, http.StatusForbidden, "Company not accessible", nil)
		return
	}
	policy, err := h.PolicyFactory.FromJSON(pj)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	created, err := h.Policies.CreatePolicy(r.Context(), *policy)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.PolicyFactory.ToJSON(created))
}

// GetCompanyPolicy returns the policy of a company.
func (h *Handler) GetCompanyPolicy(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	companyID := chi.URLParam(r, "companyId")
	if !actor.CanAccessCompany(companyID) {
		writeError(w, http.StatusForbidden, "Company not accessible", nil)
		return
	}
	policy, err := h.Policies.GetPolicy(r.Context(), companyID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.PolicyFactory.ToJSON(policy))
}

// GetPolicy returns a policy by ID.
func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	policy, ok := h.loadPolicy(w, r, actor)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.PolicyFactory.ToJSON(policy))
}

// UpdatePolicySettings changes the year start, week off or holidays.
func (h *Handler) UpdatePolicySettings(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireApprover(w, r)
	if !ok {
		return
	}
	var body factory.SettingsPatchJSON
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	policy, ok := h.loadPolicy(w, r, actor)
	if !ok {
		return
	}

	updated, err := h.Policies.UpdatePolicySettings(r.Context(), policy.ID, h.PolicyFactory.SettingsFromJSON(body))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.PolicyFactory.ToJSON(updated))
}

// AddLeaveType appends a leave type to the catalogue.
func (h *Handler) AddLeaveType(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireApprover(w, r)
	if !ok {
		return
	}
	var body factory.LeaveTypeJSON
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid leave type JSON", err)
		return
	}
	policy, ok := h.loadPolicy(w, r, actor)
	if !ok {
		return
	}

	updated, err := h.Policies.AddLeaveType(r.Context(), policy.ID, h.PolicyFactory.LeaveTypeFromJSON(body))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.PolicyFactory.ToJSON(updated))
}

// UpdateLeaveType applies a partial update to a leave type.
func (h *Handler) UpdateLeaveType(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireApprover(w, r)
	if !ok {
		return
	}
	var body factory.LeaveTypePatchJSON
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	policy, ok := h.loadPolicy(w, r, actor)
	if !ok {
		return
	}

	updated, err := h.Policies.UpdateLeaveType(r.Context(), policy.ID, chi.URLParam(r, "typeId"), h.PolicyFactory.PatchFromJSON(body))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.PolicyFactory.ToJSON(updated))
}

// ToggleLeaveType flips a leave type between active and inactive.
func (h *Handler) ToggleLeaveType(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireApprover(w, r)
	if !ok {
		return
	}
	policy, ok := h.loadPolicy(w, r, actor)
	if !ok {
		return
	}

	updated, err := h.Policies.ToggleLeaveType(r.Context(), policy.ID, chi.URLParam(r, "typeId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.PolicyFactory.ToJSON(updated))
}

// loadPolicy fetches the {id} policy and checks the company binding.
func (h *Handler) loadPolicy(w http.ResponseWriter, r *http.Request, actor Actor) (*leave.Policy, bool) {
	policy, err := h.Policies.GetPolicyByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return nil, false
	}
	if !actor.CanAccessCompany(policy.CompanyID) {
		writeError(w, http.StatusForbidden, "Company not accessible", nil)
		return nil, false
	}
	return policy, true
}

// =============================================================================
// CALENDAR HANDLERS
// =============================================================================

// BusinessDays counts the business days of a company between two dates.
func (h *Handler) BusinessDays(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "companyId")
	q := r.URL.Query()

	start, err := generic.ParseDate(q.Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start date", err)
		return
	}
	end, err := generic.ParseDate(q.Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end date", err)
		return
	}
	excludeHolidays, err := queryBool(q.Get("excludeHolidays"), true)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid excludeHolidays", err)
		return
	}
	includeWeekOff, err := queryBool(q.Get("includeWeekOff"), false)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid includeWeekOff", err)
		return
	}

	days, err := h.Calendar.BusinessDaysBetween(r.Context(), companyID, start, end, excludeHolidays, includeWeekOff)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BusinessDaysResponse{
		CompanyID:       companyID,
		Start:           start,
		End:             end,
		ExcludeHolidays: excludeHolidays,
		IncludeWeekOff:  includeWeekOff,
		BusinessDays:    days,
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) maxUploadBytes() int64 {
	if h.MaxUploadBytes <= 0 {
		return DefaultMaxUploadBytes
	}
	return h.MaxUploadBytes
}

func requireActor(w http.ResponseWriter, r *http.Request) (Actor, bool) {
	actor := ActorFromContext(r.Context())
	if actor.UserID == "" {
		writeError(w, http.StatusForbidden, "Missing actor identity", fmt.Errorf("%s header is required", HeaderUserID))
		return actor, false
	}
	return actor, true
}

func requireApprover(w http.ResponseWriter, r *http.Request) (Actor, bool) {
	actor, ok := requireActor(w, r)
	if !ok {
		return actor, false
	}
	if !actor.IsApprover() {
		writeError(w, http.StatusForbidden, "Approver role required", fmt.Errorf("role %q may not perform this action", actor.Role))
		return actor, false
	}
	return actor, true
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

// decodeOptionalJSON accepts an empty body.
func decodeOptionalJSON(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func queryBool(raw string, fallback bool) (bool, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.ParseBool(raw)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// statusFor maps a service error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, leave.ErrForbidden):
		return http.StatusForbidden
	case leave.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, generic.ErrConcurrentModification):
		return http.StatusConflict
	case leave.IsClientError(err):
		return http.StatusBadRequest
	case errors.Is(err, leave.ErrUpload):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError writes the mapped status with the error's own message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		requestLogger(r).WithError(err).Error("request failed")
		writeError(w, status, http.StatusText(status), err)
		return
	}

	resp := ErrorResponse{Error: err.Error()}
	var ve *leave.ValidationError
	if errors.As(err, &ve) {
		resp.Field = ve.Field
	}
	writeJSON(w, status, resp)
}
