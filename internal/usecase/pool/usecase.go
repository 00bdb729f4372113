package pool

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	domain "p2p-credit-origination/internal/domain/pool"
	"p2p-credit-origination/pkg/id"
)

type Usecase struct {
	registry domain.Registry
	newID    func() string
}

func NewUsecase(r domain.Registry) *Usecase {
	return &Usecase{registry: r, newID: id.NewID32}
}

// Create opens an active pool. Capital below MinInitialCapital is refused.
func (u *Usecase) Create(ctx context.Context, in CreateInput) (*domain.Pool, error) {
	if in.InvestorID == "" {
		return nil, fmt.Errorf("%w: investor_id is required", domain.ErrInvalidPool)
	}
	if in.Capital.LessThan(domain.MinInitialCapital) {
		return nil, fmt.Errorf("%w: initial capital must be at least %s", domain.ErrInvalidPool, domain.MinInitialCapital)
	}
	p := &domain.Pool{
		PoolID:                u.newID(),
		InvestorID:            in.InvestorID,
		Name:                  in.Name,
		CapitalAvailable:      in.Capital.Round(2),
		Status:                domain.StatusActive,
		MinScore:              in.MinScore,
		RequiresCollateral:    in.RequiresCollateral,
		AcceptedCollateral:    in.AcceptedCollateral,
		MinAcceptedRate:       in.MinAcceptedRate.Round(2),
		MaxAcceptedTermMonths: in.MaxAcceptedTermMonths,
	}
	if err := p.ValidateCriteria(); err != nil {
		return nil, err
	}
	if err := u.registry.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (u *Usecase) Get(ctx context.Context, poolID string) (*PoolDetails, error) {
	p, err := u.registry.GetByPoolID(ctx, poolID)
	if err != nil {
		return nil, err
	}
	allocs, err := u.registry.ListAllocations(ctx, poolID)
	if err != nil {
		return nil, err
	}
	out := &PoolDetails{Pool: *p, AllocatedAmount: decimal.Zero, Allocations: allocs}
	if out.Allocations == nil {
		out.Allocations = []domain.Allocation{}
	}
	for _, a := range allocs {
		if a.Released() {
			continue
		}
		out.ActiveAllocations++
		out.AllocatedAmount = out.AllocatedAmount.Add(a.Amount)
	}
	return out, nil
}

// List returns every pool, or only those in status when it is set.
func (u *Usecase) List(ctx context.Context, status domain.Status) ([]domain.Pool, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidPool, status)
	}
	ps, err := u.registry.QueryPools(ctx, domain.Filter{Status: status})
	if err != nil {
		return nil, err
	}
	if ps == nil {
		ps = []domain.Pool{}
	}
	return ps, nil
}

func (u *Usecase) ListByInvestor(ctx context.Context, investorID string) (*InvestorPools, error) {
	ps, err := u.registry.ListByInvestor(ctx, investorID)
	if err != nil {
		return nil, err
	}
	out := &InvestorPools{InvestorID: investorID, TotalAvailable: decimal.Zero, Pools: ps}
	if out.Pools == nil {
		out.Pools = []domain.Pool{}
	}
	for _, p := range ps {
		out.TotalAvailable = out.TotalAvailable.Add(p.CapitalAvailable)
	}
	out.Count = len(out.Pools)
	return out, nil
}

func (u *Usecase) UpdateCriteria(ctx context.Context, poolID string, upd domain.CriteriaUpdate) (*domain.Pool, error) {
	if upd.Empty() {
		return nil, fmt.Errorf("%w: nothing to update", domain.ErrInvalidPool)
	}
	return u.registry.UpdateCriteria(ctx, poolID, upd)
}

// SetStatus pauses, resumes or closes a pool. A closed pool stays closed.
func (u *Usecase) SetStatus(ctx context.Context, poolID string, s domain.Status) (*domain.Pool, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidPool, s)
	}
	return u.registry.SetStatus(ctx, poolID, s)
}

func (u *Usecase) IncreaseCapital(ctx context.Context, poolID string, amount decimal.Decimal) (*domain.Pool, error) {
	return u.registry.IncreaseCapital(ctx, poolID, amount.Round(2))
}
