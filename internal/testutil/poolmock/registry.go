package poolmock

import (
	"context"

	"github.com/shopspring/decimal"

	domain "p2p-credit-origination/internal/domain/pool"
)

var _ domain.Registry = (*Registry)(nil)

// Registry is a function-backed pool.Registry. Each Fn falls back to Inner
// when set, so tests can override a single call on a real registry.
type Registry struct {
	Inner domain.Registry

	QueryPoolsFn        func(ctx context.Context, f domain.Filter) ([]domain.Pool, error)
	CommitAllocationFn  func(ctx context.Context, req domain.AllocationRequest) (*domain.Allocation, error)
	FindAllocationFn    func(ctx context.Context, attemptID string) (*domain.Allocation, error)
	ReleaseAllocationFn func(ctx context.Context, attemptID string) error
	CreateFn            func(ctx context.Context, p *domain.Pool) error
	GetByPoolIDFn       func(ctx context.Context, poolID string) (*domain.Pool, error)
	ListByInvestorFn    func(ctx context.Context, investorID string) ([]domain.Pool, error)
	ListAllocationsFn   func(ctx context.Context, poolID string) ([]domain.Allocation, error)
	UpdateCriteriaFn    func(ctx context.Context, poolID string, u domain.CriteriaUpdate) (*domain.Pool, error)
	SetStatusFn         func(ctx context.Context, poolID string, s domain.Status) (*domain.Pool, error)
	IncreaseCapitalFn   func(ctx context.Context, poolID string, amount decimal.Decimal) (*domain.Pool, error)
}

func (m *Registry) QueryPools(ctx context.Context, f domain.Filter) ([]domain.Pool, error) {
	if m.QueryPoolsFn != nil {
		return m.QueryPoolsFn(ctx, f)
	}
	if m.Inner != nil {
		return m.Inner.QueryPools(ctx, f)
	}
	return nil, nil
}

func (m *Registry) CommitAllocation(ctx context.Context, req domain.AllocationRequest) (*domain.Allocation, error) {
	if m.CommitAllocationFn != nil {
		return m.CommitAllocationFn(ctx, req)
	}
	if m.Inner != nil {
		return m.Inner.CommitAllocation(ctx, req)
	}
	return nil, domain.ErrAllocationConflict
}

func (m *Registry) FindAllocation(ctx context.Context, attemptID string) (*domain.Allocation, error) {
	if m.FindAllocationFn != nil {
		return m.FindAllocationFn(ctx, attemptID)
	}
	if m.Inner != nil {
		return m.Inner.FindAllocation(ctx, attemptID)
	}
	return nil, domain.ErrAllocationNotFound
}

func (m *Registry) ReleaseAllocation(ctx context.Context, attemptID string) error {
	if m.ReleaseAllocationFn != nil {
		return m.ReleaseAllocationFn(ctx, attemptID)
	}
	if m.Inner != nil {
		return m.Inner.ReleaseAllocation(ctx, attemptID)
	}
	return nil
}

func (m *Registry) Create(ctx context.Context, p *domain.Pool) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, p)
	}
	if m.Inner != nil {
		return m.Inner.Create(ctx, p)
	}
	return nil
}

func (m *Registry) GetByPoolID(ctx context.Context, poolID string) (*domain.Pool, error) {
	if m.GetByPoolIDFn != nil {
		return m.GetByPoolIDFn(ctx, poolID)
	}
	if m.Inner != nil {
		return m.Inner.GetByPoolID(ctx, poolID)
	}
	return nil, domain.ErrNotFound
}

func (m *Registry) ListByInvestor(ctx context.Context, investorID string) ([]domain.Pool, error) {
	if m.ListByInvestorFn != nil {
		return m.ListByInvestorFn(ctx, investorID)
	}
	if m.Inner != nil {
		return m.Inner.ListByInvestor(ctx, investorID)
	}
	return nil, nil
}

func (m *Registry) ListAllocations(ctx context.Context, poolID string) ([]domain.Allocation, error) {
	if m.ListAllocationsFn != nil {
		return m.ListAllocationsFn(ctx, poolID)
	}
	if m.Inner != nil {
		return m.Inner.ListAllocations(ctx, poolID)
	}
	return nil, nil
}

func (m *Registry) UpdateCriteria(ctx context.Context, poolID string, u domain.CriteriaUpdate) (*domain.Pool, error) {
	if m.UpdateCriteriaFn != nil {
		return m.UpdateCriteriaFn(ctx, poolID, u)
	}
	if m.Inner != nil {
		return m.Inner.UpdateCriteria(ctx, poolID, u)
	}
	return nil, domain.ErrNotFound
}

func (m *Registry) SetStatus(ctx context.Context, poolID string, s domain.Status) (*domain.Pool, error) {
	if m.SetStatusFn != nil {
		return m.SetStatusFn(ctx, poolID, s)
	}
	if m.Inner != nil {
		return m.Inner.SetStatus(ctx, poolID, s)
	}
	return nil, domain.ErrNotFound
}

func (m *Registry) IncreaseCapital(ctx context.Context, poolID string, amount decimal.Decimal) (*domain.Pool, error) {
	if m.IncreaseCapitalFn != nil {
		return m.IncreaseCapitalFn(ctx, poolID, amount)
	}
	if m.Inner != nil {
		return m.Inner.IncreaseCapital(ctx, poolID, amount)
	}
	return nil, domain.ErrNotFound
}
