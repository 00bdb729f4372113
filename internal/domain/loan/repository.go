package loan

import "context"

type Repository interface {
	// Create stores the loan and its installments.
	Create(ctx context.Context, l *Loan) error
	GetByLoanID(ctx context.Context, loanID string) (*Loan, error)
	GetByAttemptID(ctx context.Context, attemptID string) (*Loan, error)
	ListByBorrowerID(ctx context.Context, borrowerID string) ([]Loan, error)
}
