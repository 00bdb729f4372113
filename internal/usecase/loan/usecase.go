package loan

import (
	"context"
	"errors"

	"p2p-credit-origination/internal/domain/funding"
	"p2p-credit-origination/internal/domain/loan"
)

// Usecase is the read side of originated loans. Loans are only ever written by
// the origination engine.
type Usecase struct {
	loans    loan.Repository
	fundings funding.Repository
}

func NewUsecase(loans loan.Repository, fundings funding.Repository) *Usecase {
	return &Usecase{loans: loans, fundings: fundings}
}

func (u *Usecase) Get(ctx context.Context, loanID string) (*LoanDTO, error) {
	l, err := u.loans.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	return u.withFunding(ctx, l)
}

func (u *Usecase) GetByAttempt(ctx context.Context, attemptID string) (*LoanDTO, error) {
	l, err := u.loans.GetByAttemptID(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	return u.withFunding(ctx, l)
}

// ListByBorrower returns the borrower's loans without installments.
func (u *Usecase) ListByBorrower(ctx context.Context, borrowerID string) ([]LoanDTO, error) {
	ls, err := u.loans.ListByBorrowerID(ctx, borrowerID)
	if err != nil {
		return nil, err
	}
	out := make([]LoanDTO, 0, len(ls))
	for i := range ls {
		dto := toDTO(&ls[i])
		dto.Installments = nil
		out = append(out, dto)
	}
	return out, nil
}

func (u *Usecase) withFunding(ctx context.Context, l *loan.Loan) (*LoanDTO, error) {
	dto := toDTO(l)
	f, err := u.fundings.GetByLoanID(ctx, l.LoanID)
	switch {
	case err == nil:
		dto.Funding = fundingDTO(f)
	case !errors.Is(err, funding.ErrNotFound):
		return nil, err
	}
	return &dto, nil
}

func toDTO(l *loan.Loan) LoanDTO {
	dto := LoanDTO{
		LoanID:              l.LoanID,
		AttemptID:           l.AttemptID,
		BorrowerID:          l.BorrowerID,
		Principal:           l.Principal,
		AnnualRate:          l.AnnualRate,
		EffectiveAnnualCost: l.EffectiveAnnualCost,
		InstallmentCount:    l.InstallmentCount,
		InstallmentPayment:  l.InstallmentPayment,
		TotalPayable:        l.TotalPayable,
		RemainingAmount:     l.RemainingAmount,
		FirstDueDate:        l.FirstDueDate,
		State:               string(l.State),
		CreatedAt:           l.CreatedAt,
	}
	for _, in := range l.Installments {
		dto.Installments = append(dto.Installments, InstallmentDTO{
			Number:           in.Number,
			DueDate:          in.DueDate,
			Principal:        in.Principal,
			Interest:         in.Interest,
			Amount:           in.Amount,
			RemainingBalance: in.RemainingBalance,
			Status:           string(in.Status),
		})
	}
	return dto
}

func fundingDTO(f *funding.Funding) *FundingDTO {
	out := &FundingDTO{
		FundingID: f.FundingID,
		Source:    string(f.Source),
		FunderID:  f.FunderID,
		FundedAt:  f.FundedAt,
	}
	if f.AllocationID != nil {
		out.AllocationID = *f.AllocationID
	}
	return out
}
