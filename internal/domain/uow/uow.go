package uow

import (
	"context"

	"p2p-credit-origination/internal/domain/funding"
	"p2p-credit-origination/internal/domain/loan"
)

type Repos struct {
	Loans    loan.Repository
	Fundings funding.Repository
}

type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(r Repos) error) error
}
