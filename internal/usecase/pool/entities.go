package pool

import (
	"github.com/shopspring/decimal"

	domain "p2p-credit-origination/internal/domain/pool"
)

// CreateInput is a new pool as its investor describes it.
type CreateInput struct {
	InvestorID            string
	Name                  string
	Capital               decimal.Decimal
	MinScore              int
	RequiresCollateral    bool
	AcceptedCollateral    domain.CollateralList
	MinAcceptedRate       decimal.Decimal
	MaxAcceptedTermMonths int
}

// PoolDetails is a pool with the allocations taken from it.
type PoolDetails struct {
	domain.Pool
	AllocatedAmount   decimal.Decimal     `json:"allocated_amount"`
	ActiveAllocations int                 `json:"active_allocations"`
	Allocations       []domain.Allocation `json:"allocations"`
}

type InvestorPools struct {
	InvestorID     string          `json:"investor_id"`
	Count          int             `json:"count"`
	TotalAvailable decimal.Decimal `json:"total_available"`
	Pools          []domain.Pool   `json:"pools"`
}
