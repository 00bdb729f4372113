package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	poolDomain "p2p-credit-origination/internal/domain/pool"
)

// PoolRepository is the gorm backed pool.Registry. Capital is only ever taken
// with a single conditional UPDATE, so concurrent commits cannot overdraw.
type PoolRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewPoolRepository(db *gorm.DB) *PoolRepository {
	return &PoolRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *PoolRepository) Create(ctx context.Context, p *poolDomain.Pool) error {
	if p.Status == "" {
		p.Status = poolDomain.StatusActive
	}
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PoolRepository) GetByPoolID(ctx context.Context, poolID string) (*poolDomain.Pool, error) {
	var out poolDomain.Pool
	err := r.db.WithContext(ctx).Where("pool_id = ?", poolID).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, poolDomain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *PoolRepository) QueryPools(ctx context.Context, f poolDomain.Filter) ([]poolDomain.Pool, error) {
	q := r.db.WithContext(ctx).Model(&poolDomain.Pool{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.MinCapital.IsPositive() {
		q = q.Where("capital_available >= ?", f.MinCapital)
	}
	var out []poolDomain.Pool
	if err := q.Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PoolRepository) CommitAllocation(ctx context.Context, req poolDomain.AllocationRequest) (*poolDomain.Allocation, error) {
	var out *poolDomain.Allocation
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing poolDomain.Allocation
		err := tx.Where("attempt_id = ?", req.AttemptID).First(&existing).Error
		if err == nil {
			out = &existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		now := r.now()
		res := tx.Model(&poolDomain.Pool{}).
			Where("pool_id = ? AND status = ? AND capital_available >= ?", req.PoolID, poolDomain.StatusActive, req.Amount).
			Updates(map[string]any{
				"capital_available": gorm.Expr("capital_available - ?", req.Amount),
				"loan_count":        gorm.Expr("loan_count + 1"),
				"updated_at":        now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return poolDomain.ErrAllocationConflict
		}

		a := &poolDomain.Allocation{
			AllocationID: req.AllocationID,
			PoolID:       req.PoolID,
			AttemptID:    req.AttemptID,
			Amount:       req.Amount,
			AllocatedAt:  now,
		}
		if err := tx.Create(a).Error; err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PoolRepository) FindAllocation(ctx context.Context, attemptID string) (*poolDomain.Allocation, error) {
	var out poolDomain.Allocation
	err := r.db.WithContext(ctx).Where("attempt_id = ?", attemptID).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, poolDomain.ErrAllocationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *PoolRepository) ReleaseAllocation(ctx context.Context, attemptID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a poolDomain.Allocation
		err := tx.Where("attempt_id = ?", attemptID).First(&a).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return poolDomain.ErrAllocationNotFound
		}
		if err != nil {
			return err
		}
		if a.Released() {
			return nil
		}

		now := r.now()
		res := tx.Model(&poolDomain.Allocation{}).
			Where("id = ? AND released_at IS NULL", a.ID).
			Update("released_at", now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// released concurrently
			return nil
		}
		return tx.Model(&poolDomain.Pool{}).
			Where("pool_id = ?", a.PoolID).
			Updates(map[string]any{
				"capital_available": gorm.Expr("capital_available + ?", a.Amount),
				"loan_count":        gorm.Expr("loan_count - 1"),
				"updated_at":        now,
			}).Error
	})
}

func (r *PoolRepository) ListByInvestor(ctx context.Context, investorID string) ([]poolDomain.Pool, error) {
	var out []poolDomain.Pool
	err := r.db.WithContext(ctx).Where("investor_id = ?", investorID).Order("id ASC").Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PoolRepository) ListAllocations(ctx context.Context, poolID string) ([]poolDomain.Allocation, error) {
	var out []poolDomain.Allocation
	err := r.db.WithContext(ctx).Where("pool_id = ?", poolID).Order("id ASC").Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateCriteria writes only the criteria columns, so capital moved by
// concurrent allocations is never written back.
func (r *PoolRepository) UpdateCriteria(ctx context.Context, poolID string, u poolDomain.CriteriaUpdate) (*poolDomain.Pool, error) {
	p, err := r.GetByPoolID(ctx, poolID)
	if err != nil {
		return nil, err
	}
	if p.Status == poolDomain.StatusClosed {
		return nil, poolDomain.ErrPoolClosed
	}
	u.Apply(p)
	if err := p.ValidateCriteria(); err != nil {
		return nil, err
	}

	cols := p.CriteriaColumns()
	cols["updated_at"] = r.now()
	res := r.db.WithContext(ctx).Model(&poolDomain.Pool{}).
		Where("pool_id = ? AND status <> ?", poolID, poolDomain.StatusClosed).
		Updates(cols)
	if res.Error != nil {
		return nil, res.Error
	}
	return r.afterGuardedUpdate(ctx, poolID, res.RowsAffected)
}

func (r *PoolRepository) SetStatus(ctx context.Context, poolID string, s poolDomain.Status) (*poolDomain.Pool, error) {
	p, err := r.GetByPoolID(ctx, poolID)
	if err != nil {
		return nil, err
	}
	if p.Status == s {
		return p, nil
	}
	if p.Status == poolDomain.StatusClosed {
		return nil, poolDomain.ErrPoolClosed
	}
	res := r.db.WithContext(ctx).Model(&poolDomain.Pool{}).
		Where("pool_id = ? AND status <> ?", poolID, poolDomain.StatusClosed).
		Updates(map[string]any{"status": s, "updated_at": r.now()})
	if res.Error != nil {
		return nil, res.Error
	}
	return r.afterGuardedUpdate(ctx, poolID, res.RowsAffected)
}

// IncreaseCapital adds to the pool in one statement, like CommitAllocation takes from it.
func (r *PoolRepository) IncreaseCapital(ctx context.Context, poolID string, amount decimal.Decimal) (*poolDomain.Pool, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: capital increase must be positive", poolDomain.ErrInvalidPool)
	}
	res := r.db.WithContext(ctx).Model(&poolDomain.Pool{}).
		Where("pool_id = ? AND status <> ?", poolID, poolDomain.StatusClosed).
		Updates(map[string]any{
			"capital_available": gorm.Expr("capital_available + ?", amount),
			"updated_at":        r.now(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	return r.afterGuardedUpdate(ctx, poolID, res.RowsAffected)
}

// afterGuardedUpdate reloads the pool. No affected row means the pool is
// missing or closed, or (on MySQL) the row already held those values.
func (r *PoolRepository) afterGuardedUpdate(ctx context.Context, poolID string, affected int64) (*poolDomain.Pool, error) {
	p, err := r.GetByPoolID(ctx, poolID)
	if err != nil {
		return nil, err
	}
	if affected == 0 && p.Status == poolDomain.StatusClosed {
		return nil, poolDomain.ErrPoolClosed
	}
	return p, nil
}
