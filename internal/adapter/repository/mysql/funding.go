package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	fundingDomain "p2p-credit-origination/internal/domain/funding"
)

type FundingRepository struct{ db *gorm.DB }

func NewFundingRepository(db *gorm.DB) *FundingRepository { return &FundingRepository{db: db} }

func (r *FundingRepository) Create(ctx context.Context, f *fundingDomain.Funding) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *FundingRepository) GetByLoanID(ctx context.Context, loanID string) (*fundingDomain.Funding, error) {
	return r.first(ctx, "loan_id = ?", loanID)
}

func (r *FundingRepository) GetByFundingID(ctx context.Context, fundingID string) (*fundingDomain.Funding, error) {
	return r.first(ctx, "funding_id = ?", fundingID)
}

func (r *FundingRepository) ListByFunderID(ctx context.Context, funderID string) ([]fundingDomain.Funding, error) {
	var out []fundingDomain.Funding
	err := r.db.WithContext(ctx).
		Where("funder_id = ?", funderID).
		Order("funded_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

func (r *FundingRepository) first(ctx context.Context, where string, arg any) (*fundingDomain.Funding, error) {
	var out fundingDomain.Funding
	err := r.db.WithContext(ctx).Where(where, arg).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fundingDomain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}
