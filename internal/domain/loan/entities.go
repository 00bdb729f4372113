package loan

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("loan not found")

type State string

const (
	StateActive    State = "active"
	StatePaid      State = "paid"
	StateDefaulted State = "defaulted"
)

type FundingSource string

const (
	SourcePool   FundingSource = "pool"
	SourceLender FundingSource = "lender"
)

// Table: loans. Immutable after creation except for payment tracking.
type Loan struct {
	ID                  uint64          `gorm:"primaryKey;column:id" json:"-"`
	LoanID              string          `gorm:"column:loan_id;size:32;uniqueIndex:ux_loans_loan_id" json:"loan_id"`
	AttemptID           string          `gorm:"column:attempt_id;size:32;uniqueIndex:ux_loans_attempt_id" json:"attempt_id"`
	BorrowerID          string          `gorm:"column:borrower_id;size:32;index:idx_loans_borrower" json:"borrower_id"`
	FundingSource       FundingSource   `gorm:"column:funding_source;size:16;not null" json:"funding_source"`
	FunderID            string          `gorm:"column:funder_id;size:32" json:"funder_id"`
	Principal           decimal.Decimal `gorm:"column:principal;type:decimal(18,2);not null" json:"principal"`
	AnnualRate          decimal.Decimal `gorm:"column:annual_rate;type:decimal(6,2);not null" json:"annual_rate"`
	EffectiveAnnualCost decimal.Decimal `gorm:"column:effective_annual_cost;type:decimal(6,2);not null" json:"effective_annual_cost"`
	InstallmentCount    int             `gorm:"column:installment_count;not null" json:"installment_count"`
	InstallmentPayment  decimal.Decimal `gorm:"column:installment_payment;type:decimal(18,2);not null" json:"installment_payment"`
	TotalPayable        decimal.Decimal `gorm:"column:total_payable;type:decimal(18,2);not null" json:"total_payable"`
	RemainingAmount     decimal.Decimal `gorm:"column:remaining_amount;type:decimal(18,2);not null" json:"remaining_amount"`
	FirstDueDate        time.Time       `gorm:"column:first_due_date" json:"first_due_date"`
	State               State           `gorm:"column:state;size:16;not null;default:'active'" json:"state"`
	Installments        []Installment   `gorm:"foreignKey:LoanID;references:LoanID" json:"installments,omitempty"`
	CreatedAt           time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Loan) TableName() string { return "loans" }

type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "pending"
	InstallmentPaid    InstallmentStatus = "paid"
)

// Table: loan_installments
type Installment struct {
	ID               uint64            `gorm:"primaryKey;column:id" json:"-"`
	LoanID           string            `gorm:"column:loan_id;size:32;uniqueIndex:ux_installments_loan_number" json:"-"`
	Number           int               `gorm:"column:number;uniqueIndex:ux_installments_loan_number" json:"number"`
	DueDate          time.Time         `gorm:"column:due_date" json:"due_date"`
	Principal        decimal.Decimal   `gorm:"column:principal;type:decimal(18,2);not null" json:"principal"`
	Interest         decimal.Decimal   `gorm:"column:interest;type:decimal(18,2);not null" json:"interest"`
	Amount           decimal.Decimal   `gorm:"column:amount;type:decimal(18,2);not null" json:"amount"`
	RemainingBalance decimal.Decimal   `gorm:"column:remaining_balance;type:decimal(18,2);not null" json:"remaining_balance"`
	Status           InstallmentStatus `gorm:"column:status;size:16;not null;default:'pending'" json:"status"`
}

func (Installment) TableName() string { return "loan_installments" }
