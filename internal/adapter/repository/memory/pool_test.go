package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"p2p-credit-origination/internal/domain/pool"
)

func TestPoolRegistry_CommitIsAtomicUnderContention(t *testing.T) {
	r := NewPoolRegistry(pool.Pool{PoolID: "p1", CapitalAvailable: decimal.NewFromInt(10000)})
	ctx := context.Background()

	var ok, conflicts int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := r.CommitAllocation(ctx, pool.AllocationRequest{
				AllocationID: fmt.Sprintf("al-%d", i),
				PoolID:       "p1",
				AttemptID:    fmt.Sprintf("at-%d", i),
				Amount:       decimal.NewFromInt(1000),
			})
			switch {
			case err == nil:
				atomic.AddInt64(&ok, 1)
			case errors.Is(err, pool.ErrAllocationConflict):
				atomic.AddInt64(&conflicts, 1)
			default:
				t.Errorf("unexpected err: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 10, ok)
	assert.EqualValues(t, 40, conflicts)
	p, err := r.GetByPoolID(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, p.CapitalAvailable.IsZero())
	assert.Equal(t, 10, p.LoanCount)
}

func TestPoolRegistry_CommitIsIdempotentPerAttempt(t *testing.T) {
	r := NewPoolRegistry(
		pool.Pool{PoolID: "p1", CapitalAvailable: decimal.NewFromInt(5000)},
		pool.Pool{PoolID: "p2", CapitalAvailable: decimal.NewFromInt(5000)},
	)
	ctx := context.Background()

	first, err := r.CommitAllocation(ctx, pool.AllocationRequest{AllocationID: "a1", PoolID: "p1", AttemptID: "att", Amount: decimal.NewFromInt(3000)})
	require.NoError(t, err)
	again, err := r.CommitAllocation(ctx, pool.AllocationRequest{AllocationID: "a2", PoolID: "p2", AttemptID: "att", Amount: decimal.NewFromInt(3000)})
	require.NoError(t, err)

	assert.Equal(t, first.AllocationID, again.AllocationID)
	assert.Equal(t, "p1", again.PoolID)
	p2, _ := r.GetByPoolID(ctx, "p2")
	assert.True(t, p2.CapitalAvailable.Equal(decimal.NewFromInt(5000)))
}

func TestPoolRegistry_ReleaseRestoresCapital(t *testing.T) {
	r := NewPoolRegistry(pool.Pool{PoolID: "p1", CapitalAvailable: decimal.NewFromInt(5000)})
	ctx := context.Background()

	_, err := r.CommitAllocation(ctx, pool.AllocationRequest{AllocationID: "a1", PoolID: "p1", AttemptID: "att", Amount: decimal.NewFromInt(2000)})
	require.NoError(t, err)
	require.NoError(t, r.ReleaseAllocation(ctx, "att"))
	require.NoError(t, r.ReleaseAllocation(ctx, "att"))

	p, _ := r.GetByPoolID(ctx, "p1")
	assert.True(t, p.CapitalAvailable.Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, 0, p.LoanCount)

	a, err := r.FindAllocation(ctx, "att")
	require.NoError(t, err)
	assert.True(t, a.Released())

	assert.ErrorIs(t, r.ReleaseAllocation(ctx, "nope"), pool.ErrAllocationNotFound)
}

func TestPoolRegistry_QueryPools(t *testing.T) {
	r := NewPoolRegistry(
		pool.Pool{PoolID: "small", CapitalAvailable: decimal.NewFromInt(100)},
		pool.Pool{PoolID: "big", CapitalAvailable: decimal.NewFromInt(9000)},
		pool.Pool{PoolID: "paused", CapitalAvailable: decimal.NewFromInt(9000), Status: pool.StatusPaused},
	)
	got, err := r.QueryPools(context.Background(), pool.Filter{MinCapital: decimal.NewFromInt(500), Status: pool.StatusActive})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "big", got[0].PoolID)

	all, _ := r.QueryPools(context.Background(), pool.Filter{})
	assert.Len(t, all, 3)
}

func TestPoolRegistry_Errors(t *testing.T) {
	r := NewPoolRegistry(pool.Pool{PoolID: "p1"})
	ctx := context.Background()

	assert.ErrorIs(t, r.Create(ctx, &pool.Pool{PoolID: "p1"}), ErrDuplicatePool)
	_, err := r.GetByPoolID(ctx, "zz")
	assert.ErrorIs(t, err, pool.ErrNotFound)
	_, err = r.CommitAllocation(ctx, pool.AllocationRequest{PoolID: "zz", AttemptID: "a"})
	assert.ErrorIs(t, err, pool.ErrNotFound)
	_, err = r.FindAllocation(ctx, "a")
	assert.ErrorIs(t, err, pool.ErrAllocationNotFound)
}

func TestSeed_SkipsExistingPools(t *testing.T) {
	ctx := context.Background()
	r := NewPoolRegistry(pool.Pool{PoolID: "p-1", CapitalAvailable: decimal.NewFromInt(100)})

	seed := []pool.Pool{
		{PoolID: "p-1", CapitalAvailable: decimal.NewFromInt(999)},
		{PoolID: "p-2", CapitalAvailable: decimal.NewFromInt(200)},
	}
	n, err := pool.Seed(ctx, r, seed)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	p1, err := r.GetByPoolID(ctx, "p-1")
	require.NoError(t, err)
	assert.True(t, p1.CapitalAvailable.Equal(decimal.NewFromInt(100)), "existing pool untouched")

	n, err = pool.Seed(ctx, r, seed)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestPoolRegistry_ListByInvestor(t *testing.T) {
	r := NewPoolRegistry(
		pool.Pool{PoolID: "a", InvestorID: "inv-1"},
		pool.Pool{PoolID: "b", InvestorID: "inv-2"},
		pool.Pool{PoolID: "c", InvestorID: "inv-1"},
	)
	got, err := r.ListByInvestor(context.Background(), "inv-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.ElementsMatch(t, []string{"a", "c"}, []string{got[0].PoolID, got[1].PoolID})

	none, err := r.ListByInvestor(context.Background(), "inv-9")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPoolRegistry_UpdateCriteriaKeepsCapital(t *testing.T) {
	r := NewPoolRegistry(pool.Pool{PoolID: "p1", Name: "old", CapitalAvailable: decimal.NewFromInt(5000), MinScore: 600})
	ctx := context.Background()

	name, score := "new", 720
	got, err := r.UpdateCriteria(ctx, "p1", pool.CriteriaUpdate{Name: &name, MinScore: &score})
	require.NoError(t, err)
	assert.Equal(t, "new", got.Name)
	assert.Equal(t, 720, got.MinScore)
	assert.True(t, got.CapitalAvailable.Equal(decimal.NewFromInt(5000)))

	bad := 1200
	_, err = r.UpdateCriteria(ctx, "p1", pool.CriteriaUpdate{MinScore: &bad})
	assert.ErrorIs(t, err, pool.ErrInvalidPool)
	p, _ := r.GetByPoolID(ctx, "p1")
	assert.Equal(t, 720, p.MinScore, "rejected edit leaves the pool untouched")
}

func TestPoolRegistry_IncreaseCapitalUnderContention(t *testing.T) {
	r := NewPoolRegistry(pool.Pool{PoolID: "p1", CapitalAvailable: decimal.NewFromInt(1000)})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.IncreaseCapital(ctx, "p1", decimal.NewFromInt(100))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	p, err := r.GetByPoolID(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, p.CapitalAvailable.Equal(decimal.NewFromInt(6000)), "got %s", p.CapitalAvailable)

	_, err = r.IncreaseCapital(ctx, "p1", decimal.Zero)
	assert.ErrorIs(t, err, pool.ErrInvalidPool)
	_, err = r.IncreaseCapital(ctx, "zz", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, pool.ErrNotFound)
}

func TestPoolRegistry_ClosedPoolIsFinal(t *testing.T) {
	r := NewPoolRegistry(pool.Pool{PoolID: "p1", CapitalAvailable: decimal.NewFromInt(5000)})
	ctx := context.Background()

	got, err := r.SetStatus(ctx, "p1", pool.StatusPaused)
	require.NoError(t, err)
	assert.Equal(t, pool.StatusPaused, got.Status)
	_, err = r.CommitAllocation(ctx, pool.AllocationRequest{AllocationID: "al-1", PoolID: "p1", AttemptID: "a1", Amount: decimal.NewFromInt(100)})
	assert.ErrorIs(t, err, pool.ErrAllocationConflict, "paused pools take no allocations")

	_, err = r.SetStatus(ctx, "p1", pool.StatusClosed)
	require.NoError(t, err)
	again, err := r.SetStatus(ctx, "p1", pool.StatusClosed)
	require.NoError(t, err, "setting the current status is a no-op")
	assert.Equal(t, pool.StatusClosed, again.Status)

	_, err = r.SetStatus(ctx, "p1", pool.StatusActive)
	assert.ErrorIs(t, err, pool.ErrPoolClosed)
	_, err = r.IncreaseCapital(ctx, "p1", decimal.NewFromInt(10))
	assert.ErrorIs(t, err, pool.ErrPoolClosed)
	name := "x"
	_, err = r.UpdateCriteria(ctx, "p1", pool.CriteriaUpdate{Name: &name})
	assert.ErrorIs(t, err, pool.ErrPoolClosed)
}

func TestPoolRegistry_ListAllocations(t *testing.T) {
	r := NewPoolRegistry(
		pool.Pool{PoolID: "p1", CapitalAvailable: decimal.NewFromInt(5000)},
		pool.Pool{PoolID: "p2", CapitalAvailable: decimal.NewFromInt(5000)},
	)
	ctx := context.Background()
	for i, pid := range []string{"p1", "p2", "p1"} {
		_, err := r.CommitAllocation(ctx, pool.AllocationRequest{
			AllocationID: fmt.Sprintf("al-%d", i), PoolID: pid, AttemptID: fmt.Sprintf("att-%d", i), Amount: decimal.NewFromInt(500),
		})
		require.NoError(t, err)
	}

	got, err := r.ListAllocations(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, a := range got {
		assert.Equal(t, "p1", a.PoolID)
	}
}
