package funding

import (
	"time"

	"github.com/shopspring/decimal"
)

type FundingDTO struct {
	FundingID    string          `json:"funding_id"`
	LoanID       string          `json:"loan_id"`
	Source       string          `json:"source"`
	FunderID     string          `json:"funder_id"`
	AllocationID string          `json:"allocation_id,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	FundedAt     time.Time       `json:"funded_at"`
}

// PortfolioDTO is what one pool or lender has funded.
type PortfolioDTO struct {
	FunderID string          `json:"funder_id"`
	Count    int             `json:"count"`
	Total    decimal.Decimal `json:"total"`
	Fundings []FundingDTO    `json:"fundings"`
}
