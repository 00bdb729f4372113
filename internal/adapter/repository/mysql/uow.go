package mysql

import (
	"context"

	"gorm.io/gorm"

	fundingDomain "p2p-credit-origination/internal/domain/funding"
	loanDomain "p2p-credit-origination/internal/domain/loan"
	poolDomain "p2p-credit-origination/internal/domain/pool"
	"p2p-credit-origination/internal/domain/uow"
)

type GormUoW struct{ db *gorm.DB }

func NewGormUoW(db *gorm.DB) *GormUoW { return &GormUoW{db: db} }

func (u *GormUoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := uow.Repos{
			Loans:    &LoanRepository{db: tx},
			Fundings: &FundingRepository{db: tx},
		}
		return fn(r)
	})
}

// Migrate creates or updates every table the repositories use.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&poolDomain.Pool{},
		&poolDomain.Allocation{},
		&loanDomain.Loan{},
		&loanDomain.Installment{},
		&fundingDomain.Funding{},
	)
}
