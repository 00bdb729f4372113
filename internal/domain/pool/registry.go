package pool

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound           = errors.New("pool not found")
	ErrAllocationNotFound = errors.New("allocation not found")
	// ErrAllocationConflict means the pool no longer had enough capital at commit time.
	ErrAllocationConflict = errors.New("pool allocation conflict")
	ErrPoolClosed         = errors.New("pool is closed")
)

// Filter narrows QueryPools. Zero values disable a bound.
type Filter struct {
	MinCapital decimal.Decimal
	Status     Status
}

type AllocationRequest struct {
	AllocationID string
	PoolID       string
	AttemptID    string
	Amount       decimal.Decimal
}

// Registry is the pool store the matching stage reads and commits against.
type Registry interface {
	QueryPools(ctx context.Context, f Filter) ([]Pool, error)
	// CommitAllocation atomically takes Amount from the pool. A second call for
	// the same attempt returns the existing allocation untouched.
	CommitAllocation(ctx context.Context, req AllocationRequest) (*Allocation, error)
	FindAllocation(ctx context.Context, attemptID string) (*Allocation, error)
	// ReleaseAllocation returns the capital of an attempt's allocation to its pool.
	ReleaseAllocation(ctx context.Context, attemptID string) error

	Create(ctx context.Context, p *Pool) error
	GetByPoolID(ctx context.Context, poolID string) (*Pool, error)
	ListByInvestor(ctx context.Context, investorID string) ([]Pool, error)
	ListAllocations(ctx context.Context, poolID string) ([]Allocation, error)

	// UpdateCriteria, SetStatus and IncreaseCapital fail with ErrPoolClosed on a
	// closed pool. None of them reads and writes back capital.
	UpdateCriteria(ctx context.Context, poolID string, u CriteriaUpdate) (*Pool, error)
	SetStatus(ctx context.Context, poolID string, s Status) (*Pool, error)
	IncreaseCapital(ctx context.Context, poolID string, amount decimal.Decimal) (*Pool, error)
}
