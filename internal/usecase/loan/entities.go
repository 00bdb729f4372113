package loan

import (
	"time"

	"github.com/shopspring/decimal"
)

type InstallmentDTO struct {
	Number           int             `json:"number"`
	DueDate          time.Time       `json:"due_date"`
	Principal        decimal.Decimal `json:"principal"`
	Interest         decimal.Decimal `json:"interest"`
	Amount           decimal.Decimal `json:"amount"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	Status           string          `json:"status"`
}

type FundingDTO struct {
	FundingID    string    `json:"funding_id"`
	Source       string    `json:"source"`
	FunderID     string    `json:"funder_id"`
	AllocationID string    `json:"allocation_id,omitempty"`
	FundedAt     time.Time `json:"funded_at"`
}

type LoanDTO struct {
	LoanID              string           `json:"loan_id"`
	AttemptID           string           `json:"attempt_id"`
	BorrowerID          string           `json:"borrower_id"`
	Principal           decimal.Decimal  `json:"principal"`
	AnnualRate          decimal.Decimal  `json:"annual_rate"`
	EffectiveAnnualCost decimal.Decimal  `json:"effective_annual_cost"`
	InstallmentCount    int              `json:"installment_count"`
	InstallmentPayment  decimal.Decimal  `json:"installment_payment"`
	TotalPayable        decimal.Decimal  `json:"total_payable"`
	RemainingAmount     decimal.Decimal  `json:"remaining_amount"`
	FirstDueDate        time.Time        `json:"first_due_date"`
	State               string           `json:"state"`
	Funding             *FundingDTO      `json:"funding,omitempty"`
	Installments        []InstallmentDTO `json:"installments,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
}
