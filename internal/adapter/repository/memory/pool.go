// Package memory holds in-process implementations of the engine's stores.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"p2p-credit-origination/internal/domain/pool"
)

var ErrDuplicatePool = errors.New("pool already exists")

type poolEntry struct {
	mu sync.Mutex // held only for check-and-decrement of capital
	p  pool.Pool
}

// PoolRegistry is a pool.Registry kept in memory.
type PoolRegistry struct {
	mu     sync.RWMutex
	pools  map[string]*poolEntry
	allocs map[string]*pool.Allocation // by attempt id
	now    func() time.Time
}

func NewPoolRegistry(seed ...pool.Pool) *PoolRegistry {
	r := &PoolRegistry{
		pools:  map[string]*poolEntry{},
		allocs: map[string]*pool.Allocation{},
		now:    func() time.Time { return time.Now().UTC() },
	}
	for i := range seed {
		_ = r.Create(context.Background(), &seed[i])
	}
	return r
}

func (r *PoolRegistry) Create(_ context.Context, p *pool.Pool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pools[p.PoolID]; ok {
		return ErrDuplicatePool
	}
	if p.Status == "" {
		p.Status = pool.StatusActive
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = r.now()
	}
	p.UpdatedAt = p.CreatedAt
	p.ID = uint64(len(r.pools) + 1)
	r.pools[p.PoolID] = &poolEntry{p: *p}
	return nil
}

func (r *PoolRegistry) GetByPoolID(_ context.Context, poolID string) (*pool.Pool, error) {
	r.mu.RLock()
	e, ok := r.pools[poolID]
	r.mu.RUnlock()
	if !ok {
		return nil, pool.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.p
	return &out, nil
}

func (r *PoolRegistry) QueryPools(_ context.Context, f pool.Filter) ([]pool.Pool, error) {
	r.mu.RLock()
	entries := make([]*poolEntry, 0, len(r.pools))
	for _, e := range r.pools {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	out := make([]pool.Pool, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		p := e.p
		e.mu.Unlock()
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if p.CapitalAvailable.LessThan(f.MinCapital) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *PoolRegistry) CommitAllocation(_ context.Context, req pool.AllocationRequest) (*pool.Allocation, error) {
	r.mu.RLock()
	if a, ok := r.allocs[req.AttemptID]; ok {
		out := *a
		r.mu.RUnlock()
		return &out, nil
	}
	e, ok := r.pools[req.PoolID]
	r.mu.RUnlock()
	if !ok {
		return nil, pool.ErrNotFound
	}

	now := r.now()
	e.mu.Lock()
	if e.p.Status != pool.StatusActive || e.p.CapitalAvailable.LessThan(req.Amount) {
		e.mu.Unlock()
		return nil, pool.ErrAllocationConflict
	}
	e.p.CapitalAvailable = e.p.CapitalAvailable.Sub(req.Amount)
	e.p.LoanCount++
	e.p.UpdatedAt = now
	e.mu.Unlock()

	a := &pool.Allocation{
		AllocationID: req.AllocationID,
		PoolID:       req.PoolID,
		AttemptID:    req.AttemptID,
		Amount:       req.Amount,
		AllocatedAt:  now,
	}
	r.mu.Lock()
	r.allocs[req.AttemptID] = a
	r.mu.Unlock()
	out := *a
	return &out, nil
}

func (r *PoolRegistry) FindAllocation(_ context.Context, attemptID string) (*pool.Allocation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.allocs[attemptID]
	if !ok {
		return nil, pool.ErrAllocationNotFound
	}
	out := *a
	return &out, nil
}

func (r *PoolRegistry) ReleaseAllocation(_ context.Context, attemptID string) error {
	r.mu.Lock()
	a, ok := r.allocs[attemptID]
	if !ok {
		r.mu.Unlock()
		return pool.ErrAllocationNotFound
	}
	if a.Released() {
		r.mu.Unlock()
		return nil
	}
	now := r.now()
	a.ReleasedAt = &now
	e := r.pools[a.PoolID]
	r.mu.Unlock()

	if e != nil {
		e.mu.Lock()
		e.p.CapitalAvailable = e.p.CapitalAvailable.Add(a.Amount)
		e.p.LoanCount--
		e.p.UpdatedAt = now
		e.mu.Unlock()
	}
	return nil
}

func (r *PoolRegistry) ListByInvestor(ctx context.Context, investorID string) ([]pool.Pool, error) {
	all, err := r.QueryPools(ctx, pool.Filter{})
	if err != nil {
		return nil, err
	}
	out := make([]pool.Pool, 0, len(all))
	for _, p := range all {
		if p.InvestorID == investorID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *PoolRegistry) ListAllocations(_ context.Context, poolID string) ([]pool.Allocation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]pool.Allocation, 0)
	for _, a := range r.allocs {
		if a.PoolID == poolID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AllocatedAt.Equal(out[j].AllocatedAt) {
			return out[i].AllocatedAt.Before(out[j].AllocatedAt)
		}
		return out[i].AllocationID < out[j].AllocationID
	})
	return out, nil
}

func (r *PoolRegistry) UpdateCriteria(_ context.Context, poolID string, u pool.CriteriaUpdate) (*pool.Pool, error) {
	return r.mutate(poolID, func(p *pool.Pool) error {
		next := *p
		u.Apply(&next)
		if err := next.ValidateCriteria(); err != nil {
			return err
		}
		*p = next
		return nil
	})
}

func (r *PoolRegistry) SetStatus(_ context.Context, poolID string, s pool.Status) (*pool.Pool, error) {
	e, err := r.entry(poolID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	same := e.p.Status == s
	out := e.p
	e.mu.Unlock()
	if same {
		return &out, nil
	}
	return r.mutate(poolID, func(p *pool.Pool) error {
		p.Status = s
		return nil
	})
}

func (r *PoolRegistry) IncreaseCapital(_ context.Context, poolID string, amount decimal.Decimal) (*pool.Pool, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: capital increase must be positive", pool.ErrInvalidPool)
	}
	return r.mutate(poolID, func(p *pool.Pool) error {
		p.CapitalAvailable = p.CapitalAvailable.Add(amount)
		return nil
	})
}

func (r *PoolRegistry) entry(poolID string) (*poolEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.pools[poolID]
	if !ok {
		return nil, pool.ErrNotFound
	}
	return e, nil
}

// mutate applies fn under the pool's lock unless the pool is closed.
func (r *PoolRegistry) mutate(poolID string, fn func(p *pool.Pool) error) (*pool.Pool, error) {
	e, err := r.entry(poolID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.p.Status == pool.StatusClosed {
		return nil, pool.ErrPoolClosed
	}
	if err := fn(&e.p); err != nil {
		return nil, err
	}
	e.p.UpdatedAt = r.now()
	out := e.p
	return &out, nil
}
