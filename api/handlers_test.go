/*
handlers_test.go - HTTP tests for the leave API

Tests for:
- Applying over JSON and multipart
- Role, company and ownership checks
- Approval workflow and bulk updates
- Error to status mapping
- Policy, calendar and summary routes
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/docstore"
	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/memory"
)

var (
	employee = Actor{UserID: "emp-1", CompanyID: "acme", Role: "employee"}
	admin    = Actor{UserID: "mgr-1", CompanyID: "acme", Role: "admin"}
)

type testAPI struct {
	router   *chi.Mux
	handler  *Handler
	docsRoot string
}

func setupTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store := memory.New()
	root := t.TempDir()
	docs, err := docstore.NewLocal(root, "http://files.test/uploads")
	require.NoError(t, err)

	svc := leave.NewService(store, docs)
	svc.Now = func() time.Time { return time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC) }
	h := NewHandler(svc, leave.NewPolicyService(store))

	policy, err := factory.Preset("standard", "acme", 2024)
	require.NoError(t, err)
	_, err = h.Policies.CreatePolicy(context.Background(), *policy)
	require.NoError(t, err)

	return &testAPI{router: NewRouter(h, RouterOptions{}), handler: h, docsRoot: root}
}

func (a *testAPI) do(t *testing.T, method, path string, actor Actor, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	setActor(req, actor)
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func setActor(req *http.Request, actor Actor) {
	if actor.UserID != "" {
		req.Header.Set(HeaderUserID, actor.UserID)
	}
	if actor.CompanyID != "" {
		req.Header.Set(HeaderCompanyID, actor.CompanyID)
	}
	if actor.Role != "" {
		req.Header.Set(HeaderRole, actor.Role)
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func applyBody(shortCode, start, end string) map[string]any {
	return map[string]any{
		"leaveBreakup": []map[string]any{{"shortCode": shortCode}},
		"startDate":    start,
		"endDate":      end,
		"reason":       "Personal",
	}
}

func (a *testAPI) apply(t *testing.T, actor Actor, shortCode, start, end string) LeaveRequestDTO {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/leaves/apply", actor, applyBody(shortCode, start, end))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[LeaveRequestDTO](t, rec)
}

// =============================================================================
// APPLY
// =============================================================================

func TestApplyLeave_JSON(t *testing.T) {
	api := setupTestAPI(t)

	// GIVEN: An employee of acme
	// WHEN: Applying for one casual day on a Monday
	dto := api.apply(t, employee, "cl", "2024-06-03", "2024-06-03")

	// THEN: A pending request for that employee is recorded
	assert.Equal(t, "pending", dto.Status)
	assert.Equal(t, "emp-1", dto.EmployeeID)
	assert.Equal(t, "acme", dto.CompanyID)
	assert.Equal(t, 1.0, dto.TotalDays)
	require.Len(t, dto.LeaveBreakup, 1)
	assert.Equal(t, "CL", dto.LeaveBreakup[0].ShortCode)
	assert.Equal(t, "Casual Leave", dto.LeaveBreakup[0].LeaveType)
	assert.Equal(t, "2024-06-03", dto.StartDate.String())
}

func TestApplyLeave_RequiresActor(t *testing.T) {
	api := setupTestAPI(t)
	rec := api.do(t, http.MethodPost, "/leaves/apply", Actor{}, applyBody("CL", "2024-06-03", "2024-06-03"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestApplyLeave_ForAnotherEmployee(t *testing.T) {
	api := setupTestAPI(t)
	body := applyBody("CL", "2024-06-03", "2024-06-03")
	body["employeeId"] = "emp-2"

	rec := api.do(t, http.MethodPost, "/leaves/apply", employee, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, http.MethodPost, "/leaves/apply", admin, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "emp-2", decode[LeaveRequestDTO](t, rec).EmployeeID)
}

func TestApplyLeave_OtherCompany(t *testing.T) {
	api := setupTestAPI(t)
	body := applyBody("CL", "2024-06-03", "2024-06-03")
	body["companyId"] = "globex"

	rec := api.do(t, http.MethodPost, "/leaves/apply", employee, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestApplyLeave_ErrorStatuses(t *testing.T) {
	api := setupTestAPI(t)
	api.apply(t, employee, "EL", "2024-06-03", "2024-06-04")

	tests := []struct {
		name   string
		actor  Actor
		body   map[string]any
		status int
		substr string
	}{
		{
			name:   "missing reason",
			actor:  employee,
			body:   map[string]any{"leaveBreakup": []map[string]any{{"shortCode": "CL"}}, "startDate": "2024-07-01", "endDate": "2024-07-01"},
			status: http.StatusBadRequest,
			substr: "reason",
		},
		{
			name:   "inverted range",
			actor:  employee,
			body:   applyBody("CL", "2024-07-05", "2024-07-01"),
			status: http.StatusBadRequest,
			substr: "before start date",
		},
		{
			name:   "unknown leave type",
			actor:  employee,
			body:   applyBody("XX", "2024-07-01", "2024-07-01"),
			status: http.StatusBadRequest,
			substr: "XX",
		},
		{
			name:   "overlap",
			actor:  employee,
			body:   applyBody("CL", "2024-06-04", "2024-06-04"),
			status: http.StatusBadRequest,
			substr: "overlaps",
		},
		{
			name:   "weekend only",
			actor:  employee,
			body:   applyBody("CL", "2024-06-08", "2024-06-09"),
			status: http.StatusBadRequest,
			substr: "no business days",
		},
		{
			name:   "no policy",
			actor:  Actor{UserID: "emp-9", CompanyID: "globex", Role: "employee"},
			body:   applyBody("CL", "2024-07-01", "2024-07-01"),
			status: http.StatusNotFound,
			substr: "globex",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(t, http.MethodPost, "/leaves/apply", tt.actor, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Contains(t, decode[ErrorResponse](t, rec).Error, tt.substr)
		})
	}
}

func TestApplyLeave_ValidationField(t *testing.T) {
	api := setupTestAPI(t)
	body := applyBody("CL", "2024-07-01", "2024-07-01")
	delete(body, "reason")

	rec := api.do(t, http.MethodPost, "/leaves/apply", employee, body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "reason", decode[ErrorResponse](t, rec).Field)
}

func TestApplyLeave_MultipartWithDocument(t *testing.T) {
	api := setupTestAPI(t)

	// GIVEN: Three sick days, above the two day document threshold
	data, err := json.Marshal(applyBody("SL", "2024-06-04", "2024-06-06"))
	require.NoError(t, err)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("data", string(data)))
	part, err := mw.CreateFormFile("documents", "medical-certificate.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("clinic slip"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	// WHEN: Submitted as multipart with a document
	req := httptest.NewRequest(http.MethodPost, "/leaves/apply", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	setActor(req, employee)
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)

	// THEN: The document is stored and recorded
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	dto := decode[LeaveRequestDTO](t, rec)
	require.Len(t, dto.Documents, 1)
	assert.Equal(t, "medical-certificate.pdf", dto.Documents[0].Name)
	require.True(t, strings.HasPrefix(dto.Documents[0].URL, "http://files.test/uploads/leaves/acme/emp-1/"))

	rel := strings.TrimPrefix(dto.Documents[0].URL, "http://files.test/uploads/")
	content, err := os.ReadFile(filepath.Join(api.docsRoot, filepath.FromSlash(rel)))
	require.NoError(t, err)
	assert.Equal(t, "clinic slip", string(content))
}

func TestApplyLeave_DocumentRequired(t *testing.T) {
	api := setupTestAPI(t)
	rec := api.do(t, http.MethodPost, "/leaves/apply", employee, applyBody("SL", "2024-06-04", "2024-06-06"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Error, "SL")
}

// =============================================================================
// WORKFLOW
// =============================================================================

func TestApprove_Workflow(t *testing.T) {
	api := setupTestAPI(t)
	created := api.apply(t, employee, "CL", "2024-06-03", "2024-06-03")
	path := "/leaves/" + created.ID + "/approve"

	// Employees may not approve
	rec := api.do(t, http.MethodPatch, path, employee, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Approvers bound to another company may not approve
	rec = api.do(t, http.MethodPatch, path, Actor{UserID: "mgr-9", CompanyID: "globex", Role: "admin"}, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, http.MethodPatch, path, admin, ApproveRequest{Comment: "ok"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	approved := decode[LeaveRequestDTO](t, rec)
	assert.Equal(t, "approved", approved.Status)
	assert.Equal(t, "mgr-1", approved.ApprovedBy)
	assert.Equal(t, "ok", approved.ApprovalComment)
	require.NotNil(t, approved.ApprovedAt)

	// A second approval is an invalid transition
	rec = api.do(t, http.MethodPatch, path, admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Error, "approved")
}

func TestApprove_NotFound(t *testing.T) {
	api := setupTestAPI(t)
	rec := api.do(t, http.MethodPatch, "/leaves/nope/approve", admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReject_RequiresReason(t *testing.T) {
	api := setupTestAPI(t)
	created := api.apply(t, employee, "CL", "2024-06-03", "2024-06-03")
	path := "/leaves/" + created.ID + "/reject"

	rec := api.do(t, http.MethodPatch, path, admin, RejectRequest{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "rejectionReason", decode[ErrorResponse](t, rec).Field)

	rec = api.do(t, http.MethodPatch, path, admin, RejectRequest{RejectionReason: "Audit week"})
	require.Equal(t, http.StatusOK, rec.Code)
	rejected := decode[LeaveRequestDTO](t, rec)
	assert.Equal(t, "rejected", rejected.Status)
	assert.Equal(t, "Audit week", rejected.RejectionReason)
}

func TestCancel_OwnerOrApprover(t *testing.T) {
	api := setupTestAPI(t)
	created := api.apply(t, employee, "CL", "2024-06-03", "2024-06-03")
	path := "/leaves/" + created.ID + "/cancel"

	rec := api.do(t, http.MethodPatch, path, Actor{UserID: "emp-2", CompanyID: "acme", Role: "employee"}, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, http.MethodPatch, path, employee, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cancelled := decode[LeaveRequestDTO](t, rec)
	assert.Equal(t, "cancelled", cancelled.Status)
	assert.Equal(t, "emp-1", cancelled.CancelledBy)

	// The range is free again
	api.apply(t, employee, "CL", "2024-06-03", "2024-06-03")
}

func TestBulkUpdate(t *testing.T) {
	api := setupTestAPI(t)
	first := api.apply(t, employee, "CL", "2024-06-03", "2024-06-03")
	second := api.apply(t, employee, "CL", "2024-06-05", "2024-06-05")

	body := BulkUpdateRequest{IDs: []string{first.ID, "missing", second.ID}, Status: "approved"}
	rec := api.do(t, http.MethodPatch, "/bulkupdate", employee, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, http.MethodPatch, "/bulkupdate", admin, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[BulkUpdateResponse](t, rec)
	assert.Equal(t, 2, resp.Updated)
	assert.Equal(t, 1, resp.Failed)
	require.Len(t, resp.Results, 3)
	assert.True(t, resp.Results[0].Success)
	assert.False(t, resp.Results[1].Success)
	assert.Contains(t, resp.Results[1].Error, "missing")
	assert.Equal(t, "approved", resp.Results[2].Leave.Status)

	rec = api.do(t, http.MethodPatch, "/bulkupdate", admin, BulkUpdateRequest{IDs: []string{first.ID}, Status: "cancelled"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// QUERIES
// =============================================================================

func TestListLeaves(t *testing.T) {
	api := setupTestAPI(t)
	first := api.apply(t, employee, "CL", "2024-06-03", "2024-06-03")
	api.apply(t, employee, "CL", "2024-06-10", "2024-06-10")
	api.apply(t, Actor{UserID: "emp-2", CompanyID: "acme", Role: "employee"}, "EL", "2024-06-03", "2024-06-04")
	rec := api.do(t, http.MethodPatch, "/leaves/"+first.ID+"/approve", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Own requests, newest start first
	rec = api.do(t, http.MethodGet, "/leaves/acme/emp-1", employee, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	own := decode[LeaveListResponse](t, rec)
	require.Equal(t, 2, own.Results)
	assert.Equal(t, "2024-06-10", own.Leaves[0].StartDate.String())

	// Another employee's requests need a reader role
	rec = api.do(t, http.MethodGet, "/leaves/acme/emp-2", employee, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = api.do(t, http.MethodGet, "/leaves/acme/emp-2", Actor{UserID: "hr-1", CompanyID: "acme", Role: "hr"}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Company listing with a status filter
	rec = api.do(t, http.MethodGet, "/leaves/acme", employee, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = api.do(t, http.MethodGet, "/leaves/acme?status=pending", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[LeaveListResponse](t, rec).Results)
	rec = api.do(t, http.MethodGet, "/leaves/acme?status=approved,pending", admin, nil)
	assert.Equal(t, 3, decode[LeaveListResponse](t, rec).Results)
	rec = api.do(t, http.MethodGet, "/leaves/acme?status=lost", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Single request
	rec = api.do(t, http.MethodGet, "/leave/"+first.ID, employee, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "approved", decode[LeaveRequestDTO](t, rec).Status)
	rec = api.do(t, http.MethodGet, "/leave/"+first.ID, Actor{UserID: "emp-2", CompanyID: "acme"}, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSummary(t *testing.T) {
	api := setupTestAPI(t)
	api.apply(t, employee, "CL", "2024-06-03", "2024-06-04")

	rec := api.do(t, http.MethodGet, "/emp-1/summary?companyId=acme&asOf=2024-06-15", employee, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[SummaryResponse](t, rec)
	require.Len(t, resp.Balances, 3)

	var cl TypeBalanceDTO
	for _, b := range resp.Balances {
		if b.ShortCode == "CL" {
			cl = b
		}
	}
	assert.Equal(t, "2024-01-01", cl.YearStart)
	assert.Equal(t, 2.0, cl.YearlyUsed)
	require.NotNil(t, cl.YearlyRemaining)
	assert.Equal(t, 10.0, *cl.YearlyRemaining)
	require.NotNil(t, cl.MonthlyRemaining)
	assert.Equal(t, 0.0, *cl.MonthlyRemaining)

	rec = api.do(t, http.MethodGet, "/emp-1/summary?companyId=acme&asOf=June", employee, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBusinessDays(t *testing.T) {
	api := setupTestAPI(t)

	rec := api.do(t, http.MethodGet, "/calendar/acme/business-days?start=2024-06-01&end=2024-06-07", Actor{}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 5, decode[BusinessDaysResponse](t, rec).BusinessDays)

	rec = api.do(t, http.MethodGet, "/calendar/acme/business-days?start=2024-06-01&end=2024-06-07&includeWeekOff=true", Actor{}, nil)
	assert.Equal(t, 7, decode[BusinessDaysResponse](t, rec).BusinessDays)

	rec = api.do(t, http.MethodGet, "/calendar/acme/business-days?start=2024-06-07&end=2024-06-01", Actor{}, nil)
	assert.Equal(t, 0, decode[BusinessDaysResponse](t, rec).BusinessDays)

	rec = api.do(t, http.MethodGet, "/calendar/acme/business-days?start=x&end=2024-06-01", Actor{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodGet, "/calendar/globex/business-days?start=2024-06-01&end=2024-06-07", Actor{}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// POLICIES
// =============================================================================

func TestPolicyRoutes(t *testing.T) {
	api := setupTestAPI(t)
	globexAdmin := Actor{UserID: "adm-1", CompanyID: "globex", Role: "superadmin"}

	// Create
	var pj factory.PolicyJSON
	require.NoError(t, json.Unmarshal([]byte(factory.StandardPolicyJSON("globex")), &pj))
	rec := api.do(t, http.MethodPost, "/policies/", Actor{UserID: "emp-9", CompanyID: "globex"}, pj)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = api.do(t, http.MethodPost, "/policies/", globexAdmin, pj)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[factory.PolicyJSON](t, rec)
	assert.Equal(t, 1, created.Version)
	require.NotEmpty(t, created.ID)

	// One policy per company
	rec = api.do(t, http.MethodPost, "/policies/", globexAdmin, pj)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Read
	rec = api.do(t, http.MethodGet, "/policies/company/globex", globexAdmin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = api.do(t, http.MethodGet, "/policies/"+created.ID, admin, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Add a type, then reject a duplicate short code
	wfh := factory.LeaveTypeJSON{Name: "Work From Home", ShortCode: "wfh", MaxPerRequest: 2}
	rec = api.do(t, http.MethodPost, "/policies/"+created.ID+"/leave-types", globexAdmin, wfh)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	withWFH := decode[factory.PolicyJSON](t, rec)
	require.Len(t, withWFH.LeaveTypes, 4)
	assert.Equal(t, 2, withWFH.Version)
	rec = api.do(t, http.MethodPost, "/policies/"+created.ID+"/leave-types", globexAdmin, wfh)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Update with a quota ordering conflict
	typeID := withWFH.LeaveTypes[0].ID
	tooMany := 50.0
	rec = api.do(t, http.MethodPatch, "/policies/"+created.ID+"/leave-types/"+typeID, globexAdmin, factory.LeaveTypePatchJSON{MaxPerRequest: &tooMany})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Toggle
	rec = api.do(t, http.MethodPatch, "/policies/"+created.ID+"/leave-types/"+typeID+"/toggle", globexAdmin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	toggled := decode[factory.PolicyJSON](t, rec)
	require.NotNil(t, toggled.LeaveTypes[0].IsActive)
	assert.False(t, *toggled.LeaveTypes[0].IsActive)

	// Settings
	month := 4
	rec = api.do(t, http.MethodPatch, "/policies/"+created.ID+"/settings", globexAdmin, factory.SettingsPatchJSON{YearStartMonth: &month})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4, decode[factory.PolicyJSON](t, rec).YearStartMonth)

	rec = api.do(t, http.MethodGet, "/policies/missing", globexAdmin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// PLUMBING
// =============================================================================

func TestHealthz(t *testing.T) {
	api := setupTestAPI(t)
	rec := api.do(t, http.MethodGet, "/healthz", Actor{}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("wrapped: %w", leave.ErrForbidden), http.StatusForbidden},
		{leave.RequestNotFound("x"), http.StatusNotFound},
		{leave.PolicyNotFound("acme"), http.StatusNotFound},
		{generic.ErrConcurrentModification, http.StatusConflict},
		{&leave.OverlapError{ConflictingID: "r1"}, http.StatusBadRequest},
		{&leave.QuotaExceededError{ShortCode: "CL"}, http.StatusBadRequest},
		{&leave.UploadError{FileName: "a.pdf", Err: errors.New("bucket gone")}, http.StatusBadGateway},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, statusFor(tt.err), tt.err.Error())
	}
}
