package pool

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"p2p-credit-origination/internal/domain/credit"
	"p2p-credit-origination/internal/domain/eligibility"
)

type Status string

// Only active pools take allocations. Closed is final.
const (
	StatusActive Status = "active"
	StatusPaused Status = "paused"
	StatusClosed Status = "closed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusClosed:
		return true
	}
	return false
}

// CollateralList is stored as a comma separated column.
type CollateralList []credit.CollateralType

func (l CollateralList) Value() (driver.Value, error) {
	parts := make([]string, 0, len(l))
	for _, t := range l {
		parts = append(parts, string(t))
	}
	return strings.Join(parts, ","), nil
}

func (l *CollateralList) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("collateral list: unsupported type %T", src)
	}
	out := CollateralList{}
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, credit.CollateralType(p))
		}
	}
	*l = out
	return nil
}

// Table: pools
type Pool struct {
	ID                    uint64          `gorm:"primaryKey;column:id" json:"-"`
	PoolID                string          `gorm:"column:pool_id;size:32;uniqueIndex:ux_pools_pool_id" json:"pool_id"`
	InvestorID            string          `gorm:"column:investor_id;size:32;index:idx_pools_investor" json:"investor_id"`
	Name                  string          `gorm:"column:name;size:120" json:"name"`
	CapitalAvailable      decimal.Decimal `gorm:"column:capital_available;type:decimal(18,2);not null" json:"capital_available"`
	LoanCount             int             `gorm:"column:loan_count;not null;default:0" json:"loan_count"`
	Status                Status          `gorm:"column:status;size:16;not null;default:'active'" json:"status"`
	MinScore              int             `gorm:"column:min_score;not null;default:0" json:"min_score"`
	RequiresCollateral    bool            `gorm:"column:requires_collateral;not null;default:false" json:"requires_collateral"`
	AcceptedCollateral    CollateralList  `gorm:"column:accepted_collateral;type:varchar(128)" json:"accepted_collateral_types"`
	MinAcceptedRate       decimal.Decimal `gorm:"column:min_accepted_rate;type:decimal(6,2);not null" json:"min_accepted_rate"`
	MaxAcceptedTermMonths int             `gorm:"column:max_accepted_term_months;not null;default:0" json:"max_accepted_term_months"`
	CreatedAt             time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Pool) TableName() string { return "pools" }

func (p Pool) Criteria() eligibility.Criteria {
	return eligibility.Criteria{
		MinScore:                p.MinScore,
		RequiresCollateral:      p.RequiresCollateral,
		AcceptedCollateralTypes: []credit.CollateralType(p.AcceptedCollateral),
		MinAcceptedRate:         p.MinAcceptedRate,
		MaxAcceptedTermMonths:   p.MaxAcceptedTermMonths,
	}
}

// Table: pool_allocations. One row per origination attempt.
type Allocation struct {
	ID           uint64          `gorm:"primaryKey;column:id" json:"-"`
	AllocationID string          `gorm:"column:allocation_id;size:32;uniqueIndex:ux_alloc_allocation_id" json:"allocation_id"`
	PoolID       string          `gorm:"column:pool_id;size:32;index:idx_alloc_pool" json:"pool_id"`
	AttemptID    string          `gorm:"column:attempt_id;size:32;uniqueIndex:ux_alloc_attempt_id" json:"attempt_id"`
	Amount       decimal.Decimal `gorm:"column:amount;type:decimal(18,2);not null" json:"amount"`
	AllocatedAt  time.Time       `gorm:"column:allocated_at" json:"allocated_at"`
	ReleasedAt   *time.Time      `gorm:"column:released_at" json:"released_at,omitempty"`
}

func (Allocation) TableName() string { return "pool_allocations" }

func (a Allocation) Released() bool { return a.ReleasedAt != nil }
