package funding

import "context"

type Repository interface {
	// Create a new funding (DB uniqueness ensures at most one per loan)
	Create(ctx context.Context, f *Funding) error

	GetByLoanID(ctx context.Context, loanID string) (*Funding, error)

	// Get by public funding_id
	GetByFundingID(ctx context.Context, fundingID string) (*Funding, error)

	ListByFunderID(ctx context.Context, funderID string) ([]Funding, error)
}
