// Package memory provides an in-memory leave.TxStore (for tests and demos).
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

// Memory keeps requests and policies in maps. Values are copied on the way
// in and out, so callers never share state with the store.
type Memory struct {
	mu        sync.Mutex
	requests  map[string]*leave.Request
	policies  map[string]*leave.Policy
	companies map[string]string // companyID -> policyID
}

func New() *Memory {
	return &Memory{
		requests:  make(map[string]*leave.Request),
		policies:  make(map[string]*leave.Policy),
		companies: make(map[string]string),
	}
}

func (m *Memory) GetRequest(_ context.Context, id string) (*leave.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getRequestLocked(id)
}

func (m *Memory) FindRequests(_ context.Context, filter leave.RequestFilter) ([]*leave.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findRequestsLocked(filter), nil
}

func (m *Memory) SumBreakupDays(_ context.Context, filter leave.BreakupFilter) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sumLocked(filter), nil
}

func (m *Memory) CreateRequest(_ context.Context, r *leave.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createRequestLocked(r)
}

func (m *Memory) UpdateRequest(_ context.Context, r *leave.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateRequestLocked(r)
}

func (m *Memory) FindPolicyByCompany(_ context.Context, companyID string) (*leave.Policy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findPolicyLocked(companyID)
}

func (m *Memory) GetPolicy(_ context.Context, policyID string) (*leave.Policy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getPolicyLocked(policyID)
}

func (m *Memory) CreatePolicy(_ context.Context, p *leave.Policy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createPolicyLocked(p)
}

func (m *Memory) SavePolicy(_ context.Context, p *leave.Policy, expectedVersion int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.savePolicyLocked(p, expectedVersion)
}

// LockEmployee is a no-op outside WithTx.
func (m *Memory) LockEmployee(context.Context, string, string) error { return nil }

// =============================================================================
// LOCKED OPERATIONS
// =============================================================================

func (m *Memory) getRequestLocked(id string) (*leave.Request, error) {
	r, ok := m.requests[id]
	if !ok {
		return nil, leave.RequestNotFound(id)
	}
	return r.Clone(), nil
}

func (m *Memory) findRequestsLocked(filter leave.RequestFilter) []*leave.Request {
	var result []*leave.Request
	for _, r := range m.requests {
		if filter.Matches(r) {
			result = append(result, r.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].StartDate.Equal(result[j].StartDate) {
			return result[i].StartDate.After(result[j].StartDate)
		}
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result
}

func (m *Memory) sumLocked(filter leave.BreakupFilter) decimal.Decimal {
	all := make([]*leave.Request, 0, len(m.requests))
	for _, r := range m.requests {
		all = append(all, r)
	}
	return filter.Sum(all)
}

func (m *Memory) createRequestLocked(r *leave.Request) error {
	if _, exists := m.requests[r.ID]; exists {
		return generic.ErrConcurrentModification
	}
	m.requests[r.ID] = r.Clone()
	return nil
}

// updateRequestLocked keeps the historical content of the stored request.
func (m *Memory) updateRequestLocked(r *leave.Request) error {
	stored, ok := m.requests[r.ID]
	if !ok {
		return leave.RequestNotFound(r.ID)
	}
	next := stored.Clone()
	next.Status = r.Status
	next.ApprovedBy, next.RejectedBy, next.CancelledBy = r.ApprovedBy, r.RejectedBy, r.CancelledBy
	next.ApprovedAt, next.RejectedAt, next.CancelledAt = r.ApprovedAt, r.RejectedAt, r.CancelledAt
	next.RejectionReason, next.ApprovalComment = r.RejectionReason, r.ApprovalComment
	next.UpdatedAt = r.UpdatedAt
	m.requests[r.ID] = next.Clone()
	return nil
}

func (m *Memory) findPolicyLocked(companyID string) (*leave.Policy, error) {
	id, ok := m.companies[companyID]
	if !ok {
		return nil, leave.PolicyNotFound(companyID)
	}
	return m.policies[id].Clone(), nil
}

func (m *Memory) getPolicyLocked(policyID string) (*leave.Policy, error) {
	p, ok := m.policies[policyID]
	if !ok {
		return nil, leave.PolicyIDNotFound(policyID)
	}
	return p.Clone(), nil
}

func (m *Memory) createPolicyLocked(p *leave.Policy) error {
	if _, exists := m.companies[p.CompanyID]; exists {
		return &leave.PolicyConflictError{Reason: "company " + p.CompanyID + " already has a leave policy"}
	}
	if p.Version == 0 {
		p.Version = 1
	}
	m.policies[p.ID] = p.Clone()
	m.companies[p.CompanyID] = p.ID
	return nil
}

func (m *Memory) savePolicyLocked(p *leave.Policy, expectedVersion int) error {
	stored, ok := m.policies[p.ID]
	if !ok {
		return leave.PolicyIDNotFound(p.ID)
	}
	if stored.Version != expectedVersion {
		return generic.ErrConcurrentModification
	}
	p.Version = expectedVersion + 1
	m.policies[p.ID] = p.Clone()
	return nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx runs fn while holding the store lock. This serializes every unit
// of work, so LockEmployee has nothing left to do. Writes go straight to
// the maps and a snapshot restores them if fn fails.
func (m *Memory) WithTx(ctx context.Context, fn func(leave.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(&txMemoryView{parent: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	requests  map[string]*leave.Request
	policies  map[string]*leave.Policy
	companies map[string]string
}

// snapshot copies the maps. Stored values are replaced, never mutated, so
// sharing the pointers is safe.
func (m *Memory) snapshot() memorySnapshot {
	s := memorySnapshot{
		requests:  make(map[string]*leave.Request, len(m.requests)),
		policies:  make(map[string]*leave.Policy, len(m.policies)),
		companies: make(map[string]string, len(m.companies)),
	}
	for k, v := range m.requests {
		s.requests[k] = v
	}
	for k, v := range m.policies {
		s.policies[k] = v
	}
	for k, v := range m.companies {
		s.companies[k] = v
	}
	return s
}

func (m *Memory) restore(s memorySnapshot) {
	m.requests = s.requests
	m.policies = s.policies
	m.companies = s.companies
}

// txMemoryView is the Store handed to fn; the parent lock is already held.
type txMemoryView struct {
	parent *Memory
}

func (tv *txMemoryView) GetRequest(_ context.Context, id string) (*leave.Request, error) {
	return tv.parent.getRequestLocked(id)
}

func (tv *txMemoryView) FindRequests(_ context.Context, filter leave.RequestFilter) ([]*leave.Request, error) {
	return tv.parent.findRequestsLocked(filter), nil
}

func (tv *txMemoryView) SumBreakupDays(_ context.Context, filter leave.BreakupFilter) (decimal.Decimal, error) {
	return tv.parent.sumLocked(filter), nil
}

func (tv *txMemoryView) CreateRequest(_ context.Context, r *leave.Request) error {
	return tv.parent.createRequestLocked(r)
}

func (tv *txMemoryView) UpdateRequest(_ context.Context, r *leave.Request) error {
	return tv.parent.updateRequestLocked(r)
}

func (tv *txMemoryView) FindPolicyByCompany(_ context.Context, companyID string) (*leave.Policy, error) {
	return tv.parent.findPolicyLocked(companyID)
}

func (tv *txMemoryView) GetPolicy(_ context.Context, policyID string) (*leave.Policy, error) {
	return tv.parent.getPolicyLocked(policyID)
}

func (tv *txMemoryView) CreatePolicy(_ context.Context, p *leave.Policy) error {
	return tv.parent.createPolicyLocked(p)
}

func (tv *txMemoryView) SavePolicy(_ context.Context, p *leave.Policy, expectedVersion int) error {
	return tv.parent.savePolicyLocked(p, expectedVersion)
}

func (tv *txMemoryView) LockEmployee(context.Context, string, string) error { return nil }

var _ leave.TxStore = (*Memory)(nil)
