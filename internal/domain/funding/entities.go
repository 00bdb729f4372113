package funding

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"p2p-credit-origination/internal/domain/loan"
)

var ErrNotFound = errors.New("funding not found")

// Table: fundings. The investor side of a loan: which pool or lender put the
// capital in. At most one per loan.
type Funding struct {
	ID           uint64             `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	FundingID    string             `gorm:"column:funding_id;size:32;not null;uniqueIndex:ux_fundings_funding_id" json:"funding_id"`
	LoanID       string             `gorm:"column:loan_id;size:32;not null;uniqueIndex:ux_fundings_loan_id" json:"loan_id"`
	Source       loan.FundingSource `gorm:"column:source;size:16;not null" json:"source"`
	FunderID     string             `gorm:"column:funder_id;size:32;not null;index" json:"funder_id"`
	AllocationID *string            `gorm:"column:allocation_id;size:32" json:"allocation_id,omitempty"`
	Amount       decimal.Decimal    `gorm:"column:amount;type:decimal(18,2);not null" json:"amount"`
	FundedAt     time.Time          `gorm:"column:funded_at;not null" json:"funded_at"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Funding) TableName() string { return "fundings" }
