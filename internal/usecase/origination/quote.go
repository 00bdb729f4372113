package origination

import (
	"context"

	"github.com/shopspring/decimal"

	"p2p-credit-origination/internal/domain/credit"
	"p2p-credit-origination/internal/domain/eligibility"
	"p2p-credit-origination/internal/domain/pool"
	"p2p-credit-origination/internal/domain/pricing"
)

type QuoteInput struct {
	Amount           decimal.Decimal
	InstallmentCount int
	Collateral       *credit.CollateralType
}

// Quote prices a prospective request without admitting it.
func (e *Engine) Quote(in QuoteInput) (pricing.Result, error) {
	return e.pricer.Price(in.Amount, in.InstallmentCount, pricing.RiskAdjustments{Collateral: in.Collateral})
}

type CompatibleInput struct {
	QuoteInput
	BorrowerScore int
}

// CompatiblePools lists the pools that would accept the request right now, in
// the order matching would try them.
func (e *Engine) CompatiblePools(ctx context.Context, in CompatibleInput) ([]pool.Pool, pricing.Result, error) {
	priced, err := e.Quote(in.QuoteInput)
	if err != nil {
		return nil, pricing.Result{}, err
	}
	pools, err := e.pools.QueryPools(ctx, pool.Filter{MinCapital: in.Amount, Status: pool.StatusActive})
	if err != nil {
		return nil, pricing.Result{}, err
	}
	subject := eligibility.Subject{
		Score:            in.BorrowerScore,
		InstallmentCount: in.InstallmentCount,
		Collateral:       in.Collateral,
		AnnualRate:       priced.AnnualRate,
	}
	return Candidates(pools, subject, in.Amount), priced, nil
}
