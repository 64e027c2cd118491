/*
policy_service.go - Write path for leave policies

PURPOSE:
  Every policy mutation goes through here:

    load → clone → mutate → Normalize → Validate → SavePolicy(expectedVersion)

  inside one unit of work. A concurrent writer that saved first makes the
  version check fail with generic.ErrConcurrentModification, and the whole
  unit is retried against the fresh policy.

  Readers always get copies; a validation in flight keeps the snapshot it
  loaded even if the policy changes underneath it.

SEE ALSO:
  - policy.go: Invariants
  - factory/policy.go: JSON documents for CreatePolicy
*/
package leave

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/warp/leave-engine/generic"
)

// PolicyService manages company policies and their leave types.
type PolicyService struct {
	Store       TxStore
	Log         *log.Logger
	Now         func() time.Time
	NewID       func() string
	MaxAttempts int
}

func NewPolicyService(store TxStore) *PolicyService {
	return &PolicyService{
		Store:       store,
		Log:         log.StandardLogger(),
		Now:         func() time.Time { return time.Now().UTC() },
		NewID:       uuid.NewString,
		MaxAttempts: generic.DefaultAttempts,
	}
}

func (s *PolicyService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *PolicyService) newID() string {
	if s.NewID == nil {
		return uuid.NewString()
	}
	return s.NewID()
}

func (s *PolicyService) logger(ctx context.Context) *log.Entry {
	if s.Log == nil {
		return log.WithContext(ctx)
	}
	return s.Log.WithContext(ctx)
}

// GetPolicy returns the policy of a company.
func (s *PolicyService) GetPolicy(ctx context.Context, companyID string) (*Policy, error) {
	return s.Store.FindPolicyByCompany(ctx, companyID)
}

func (s *PolicyService) GetPolicyByID(ctx context.Context, policyID string) (*Policy, error) {
	return s.Store.GetPolicy(ctx, policyID)
}

// CreatePolicy provisions the single policy of a company. YearStartMonth
// defaults to January and a nil WeekOff to Sunday and Saturday.
func (s *PolicyService) CreatePolicy(ctx context.Context, p Policy) (*Policy, error) {
	policy := p.Clone()
	policy.CompanyID = strings.TrimSpace(policy.CompanyID)
	if policy.YearStartMonth == 0 {
		policy.YearStartMonth = time.January
	}
	if policy.WeekOff == nil {
		policy.WeekOff = DefaultWeekOff()
	}
	if policy.ID == "" {
		policy.ID = s.newID()
	}
	for i := range policy.LeaveTypes {
		if policy.LeaveTypes[i].ID == "" {
			policy.LeaveTypes[i].ID = s.newID()
		}
	}
	policy.Normalize()
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	policy.Version = 1
	policy.CreatedAt = now
	policy.UpdatedAt = now

	err := generic.Retry(ctx, s.MaxAttempts, func() error {
		return s.Store.WithTx(ctx, func(tx Store) error {
			if _, err := tx.FindPolicyByCompany(ctx, policy.CompanyID); err == nil {
				return conflict("company %s already has a leave policy", policy.CompanyID)
			} else if !IsNotFound(err) {
				return err
			}
			return tx.CreatePolicy(ctx, policy)
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger(ctx).WithFields(log.Fields{"company_id": policy.CompanyID, "policy_id": policy.ID}).Info("leave policy created")
	return policy.Clone(), nil
}

// SettingsPatch changes calendar settings. Nil fields are left unchanged.
type SettingsPatch struct {
	YearStartMonth *time.Month
	WeekOff        *[]time.Weekday
	Holidays       *[]Holiday
}

// UpdatePolicySettings changes the year boundary, week off or holidays.
func (s *PolicyService) UpdatePolicySettings(ctx context.Context, policyID string, patch SettingsPatch) (*Policy, error) {
	return s.mutate(ctx, policyID, "settings updated", func(p *Policy) error {
		if patch.YearStartMonth != nil {
			p.YearStartMonth = *patch.YearStartMonth
		}
		if patch.WeekOff != nil {
			p.WeekOff = append([]time.Weekday(nil), (*patch.WeekOff)...)
		}
		if patch.Holidays != nil {
			p.Holidays = append([]Holiday(nil), (*patch.Holidays)...)
		}
		return nil
	})
}

// AddLeaveType appends a leave type to the catalogue. Callers decide
// IsActive, RequiresApproval and the other flags explicitly.
func (s *PolicyService) AddLeaveType(ctx context.Context, policyID string, lt LeaveType) (*Policy, error) {
	if lt.ID == "" {
		lt.ID = s.newID()
	}
	return s.mutate(ctx, policyID, "leave type added", func(p *Policy) error {
		code := NormalizeShortCode(lt.ShortCode)
		for _, existing := range p.LeaveTypes {
			if code != "" && existing.ShortCode == code {
				return conflict("leave type with shortCode %s already exists", code)
			}
		}
		p.LeaveTypes = append(p.LeaveTypes, lt)
		return nil
	})
}

// LeaveTypePatch changes a leave type. Nil fields are left unchanged; the
// short code changes only when ShortCode is set.
type LeaveTypePatch struct {
	Name      *string
	ShortCode *string

	MaxPerRequest        *decimal.Decimal
	MinPerRequest        *decimal.Decimal
	MaxInstancesPerYear  *decimal.Decimal
	MaxInstancesPerMonth *decimal.Decimal

	RequiresApproval      *bool
	RequiresDocs          *bool
	DocsRequiredAfterDays *decimal.Decimal
	ExcludeHolidays       *bool
	IsActive              *bool
}

func (patch LeaveTypePatch) apply(lt *LeaveType) {
	setString(&lt.Name, patch.Name)
	setString(&lt.ShortCode, patch.ShortCode)
	setDecimal(&lt.MaxPerRequest, patch.MaxPerRequest)
	setDecimal(&lt.MinPerRequest, patch.MinPerRequest)
	setDecimal(&lt.MaxInstancesPerYear, patch.MaxInstancesPerYear)
	setDecimal(&lt.MaxInstancesPerMonth, patch.MaxInstancesPerMonth)
	setDecimal(&lt.DocsRequiredAfterDays, patch.DocsRequiredAfterDays)
	setBool(&lt.RequiresApproval, patch.RequiresApproval)
	setBool(&lt.RequiresDocs, patch.RequiresDocs)
	setBool(&lt.ExcludeHolidays, patch.ExcludeHolidays)
	setBool(&lt.IsActive, patch.IsActive)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDecimal(dst *decimal.Decimal, v *decimal.Decimal) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// UpdateLeaveType patches one leave type of the catalogue.
func (s *PolicyService) UpdateLeaveType(ctx context.Context, policyID, typeID string, patch LeaveTypePatch) (*Policy, error) {
	return s.mutate(ctx, policyID, "leave type updated", func(p *Policy) error {
		i := p.leaveTypeIndex(typeID)
		if i < 0 {
			return &InvalidLeaveTypeError{Ref: typeID}
		}
		patch.apply(&p.LeaveTypes[i])

		code := NormalizeShortCode(p.LeaveTypes[i].ShortCode)
		for j, other := range p.LeaveTypes {
			if j != i && other.ShortCode == code {
				return conflict("leave type with shortCode %s already exists", code)
			}
		}
		return nil
	})
}

// ToggleLeaveType flips IsActive of one leave type.
func (s *PolicyService) ToggleLeaveType(ctx context.Context, policyID, typeID string) (*Policy, error) {
	return s.mutate(ctx, policyID, "leave type toggled", func(p *Policy) error {
		i := p.leaveTypeIndex(typeID)
		if i < 0 {
			return &InvalidLeaveTypeError{Ref: typeID}
		}
		p.LeaveTypes[i].IsActive = !p.LeaveTypes[i].IsActive
		return nil
	})
}

func (s *PolicyService) mutate(ctx context.Context, policyID, event string, fn func(p *Policy) error) (*Policy, error) {
	var saved *Policy
	err := generic.Retry(ctx, s.MaxAttempts, func() error {
		return s.Store.WithTx(ctx, func(tx Store) error {
			current, err := tx.GetPolicy(ctx, policyID)
			if err != nil {
				return err
			}
			next := current.Clone()
			if err := fn(next); err != nil {
				return err
			}
			next.Normalize()
			if err := next.Validate(); err != nil {
				return err
			}
			next.UpdatedAt = s.now()
			if err := tx.SavePolicy(ctx, next, current.Version); err != nil {
				return err
			}
			saved = next
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger(ctx).WithFields(log.Fields{
		"policy_id": saved.ID,
		"version":   saved.Version,
	}).Info("leave policy " + event)
	return saved.Clone(), nil
}
