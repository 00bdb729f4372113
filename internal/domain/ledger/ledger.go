package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// Ledger credits a borrower's wallet once a loan is approved.
type Ledger interface {
	CreditBorrowerAccount(ctx context.Context, loanID, borrowerID string, amount decimal.Decimal) error
}
