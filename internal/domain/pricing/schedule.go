package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Installment is one monthly period of an amortization schedule.
type Installment struct {
	Number           int             `json:"number"`
	DueDate          time.Time       `json:"due_date"`
	Principal        decimal.Decimal `json:"principal"`
	Interest         decimal.Decimal `json:"interest"`
	Amount           decimal.Decimal `json:"amount"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
}

// Schedule splits a priced loan into monthly installments, the first one due on firstDue.
// Every installment but the last pays InstallmentPayment. The last one pays what is left of
// TotalPayable and retires the remaining principal, so the rows sum to TotalPayable exactly.
func Schedule(amount decimal.Decimal, r Result, firstDue time.Time) []Installment {
	n := r.InstallmentCount
	if n <= 0 || !amount.IsPositive() {
		return nil
	}

	monthly := r.AnnualRate.Div(hundred).Div(twelve)
	out := make([]Installment, 0, n)
	remaining := amount
	paid := decimal.Zero
	for k := 1; k <= n; k++ {
		var principal, interest, due decimal.Decimal
		if k == n {
			due = r.TotalPayable.Sub(paid)
			principal = remaining
			interest = due.Sub(principal)
		} else {
			due = r.InstallmentPayment
			interest = remaining.Mul(monthly).Round(2)
			principal = due.Sub(interest)
			if principal.GreaterThan(remaining) {
				principal = remaining
				interest = due.Sub(principal)
			}
		}
		remaining = remaining.Sub(principal)
		paid = paid.Add(due)

		out = append(out, Installment{
			Number:           k,
			DueDate:          firstDue.AddDate(0, k-1, 0),
			Principal:        principal,
			Interest:         interest,
			Amount:           due,
			RemainingBalance: remaining,
		})
	}
	return out
}
