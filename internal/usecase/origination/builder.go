package origination

import (
	"time"

	"p2p-credit-origination/internal/domain/credit"
	"p2p-credit-origination/internal/domain/funding"
	"p2p-credit-origination/internal/domain/loan"
	"p2p-credit-origination/internal/domain/pricing"
)

// FirstDueAfter is the gap between submission and the first installment.
const FirstDueAfter = 30 * 24 * time.Hour

// Winner is whoever funds the loan.
type Winner struct {
	Source       loan.FundingSource
	FunderID     string
	AllocationID string
}

type RecordIDs struct {
	LoanID    string
	FundingID string
}

// BuildLoan materializes the loan and its funding record for an approved attempt.
func BuildLoan(attemptID string, req credit.Request, p pricing.Result, w Winner, ids RecordIDs, fundedAt time.Time) (*loan.Loan, *funding.Funding) {
	firstDue := req.SubmittedAt.Add(FirstDueAfter)

	sched := pricing.Schedule(req.Amount, p, firstDue)
	installments := make([]loan.Installment, 0, len(sched))
	for _, s := range sched {
		installments = append(installments, loan.Installment{
			LoanID:           ids.LoanID,
			Number:           s.Number,
			DueDate:          s.DueDate,
			Principal:        s.Principal,
			Interest:         s.Interest,
			Amount:           s.Amount,
			RemainingBalance: s.RemainingBalance,
			Status:           loan.InstallmentPending,
		})
	}

	l := &loan.Loan{
		LoanID:              ids.LoanID,
		AttemptID:           attemptID,
		BorrowerID:          req.BorrowerID,
		FundingSource:       w.Source,
		FunderID:            w.FunderID,
		Principal:           req.Amount,
		AnnualRate:          p.AnnualRate,
		EffectiveAnnualCost: p.EffectiveAnnualCost,
		InstallmentCount:    p.InstallmentCount,
		InstallmentPayment:  p.InstallmentPayment,
		TotalPayable:        p.TotalPayable,
		RemainingAmount:     p.TotalPayable,
		FirstDueDate:        firstDue,
		State:               loan.StateActive,
		Installments:        installments,
	}

	f := &funding.Funding{
		FundingID: ids.FundingID,
		LoanID:    ids.LoanID,
		Source:    w.Source,
		FunderID:  w.FunderID,
		Amount:    req.Amount,
		FundedAt:  fundedAt.UTC(),
	}
	if w.AllocationID != "" {
		alloc := w.AllocationID
		f.AllocationID = &alloc
	}
	return l, f
}
