package fundingmock

import (
	"context"

	domain "p2p-credit-origination/internal/domain/funding"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
type Repo struct {
	CreateFn         func(ctx context.Context, f *domain.Funding) error
	GetByLoanIDFn    func(ctx context.Context, loanID string) (*domain.Funding, error)
	GetByFundingIDFn func(ctx context.Context, fundingID string) (*domain.Funding, error)
	ListByFunderIDFn func(ctx context.Context, funderID string) ([]domain.Funding, error)
}

func (m *Repo) Create(ctx context.Context, f *domain.Funding) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, f)
	}
	return nil
}

func (m *Repo) GetByLoanID(ctx context.Context, loanID string) (*domain.Funding, error) {
	if m.GetByLoanIDFn != nil {
		return m.GetByLoanIDFn(ctx, loanID)
	}
	return nil, domain.ErrNotFound
}

func (m *Repo) GetByFundingID(ctx context.Context, fundingID string) (*domain.Funding, error) {
	if m.GetByFundingIDFn != nil {
		return m.GetByFundingIDFn(ctx, fundingID)
	}
	return nil, domain.ErrNotFound
}

func (m *Repo) ListByFunderID(ctx context.Context, funderID string) ([]domain.Funding, error) {
	if m.ListByFunderIDFn != nil {
		return m.ListByFunderIDFn(ctx, funderID)
	}
	return nil, nil
}
