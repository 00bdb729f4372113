package pricing

import (
	"errors"
	"math"
	"slices"

	"github.com/shopspring/decimal"

	"p2p-credit-origination/internal/domain/credit"
)

var (
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrInvalidInstallments = errors.New("installment count is not offered")
	ErrBelowMinAmount      = errors.New("amount is below the minimum")
)

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
)

// RiskAdjustments are the borrower-specific inputs that move the rate off the rate card.
type RiskAdjustments struct {
	Collateral *credit.CollateralType
}

// Result is derived on demand and never stored on its own.
// Percentages are in percent units (17.5 means 17.5% a.a.).
type Result struct {
	BaseRate            decimal.Decimal `json:"base_rate"`
	AmountDiscount      decimal.Decimal `json:"amount_discount"`
	CollateralDiscount  decimal.Decimal `json:"collateral_discount"`
	AnnualRate          decimal.Decimal `json:"annual_rate"`
	MonthlyRate         decimal.Decimal `json:"monthly_rate"`
	InstallmentCount    int             `json:"installment_count"`
	InstallmentPayment  decimal.Decimal `json:"installment_payment"`
	TotalPayable        decimal.Decimal `json:"total_payable"`
	TotalInterest       decimal.Decimal `json:"total_interest"`
	EffectiveAnnualCost decimal.Decimal `json:"effective_annual_cost"`
}

// Calculator prices loans against a Table. It holds no mutable state and is safe
// for concurrent use.
type Calculator struct {
	table Table
}

func NewCalculator(t Table) (*Calculator, error) {
	t.Installments = slices.Clone(t.Installments)
	t.TermRates = slices.Clone(t.TermRates)
	t.AmountDiscounts = slices.Clone(t.AmountDiscounts)
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{table: t}, nil
}

func (c *Calculator) Installments() []int { return slices.Clone(c.table.Installments) }

func (c *Calculator) Rules() credit.Rules { return c.table.Rules() }

// Price computes rate, installment, total payable and CET for a principal repaid in n
// monthly installments.
func (c *Calculator) Price(amount decimal.Decimal, n int, adj RiskAdjustments) (Result, error) {
	if !amount.IsPositive() {
		return Result{}, ErrInvalidAmount
	}
	if amount.LessThan(c.table.MinAmount) {
		return Result{}, ErrBelowMinAmount
	}
	if n <= 0 || !slices.Contains(c.table.Installments, n) {
		return Result{}, ErrInvalidInstallments
	}

	base, _ := c.table.baseRate(n)
	amountDiscount := c.table.amountDiscount(amount)
	collateralDiscount := decimal.Zero
	if adj.Collateral != nil {
		collateralDiscount = c.table.CollateralDiscounts[*adj.Collateral]
	}

	rate := base.Sub(amountDiscount).Sub(collateralDiscount)
	if rate.LessThan(c.table.FloorRate) {
		rate = c.table.FloorRate
	}
	rate = rate.Round(1)

	monthly := rate.InexactFloat64() / 100 / 12
	payment := annuityPayment(amount, monthly, n)
	count := decimal.NewFromInt(int64(n))
	total := payment.Mul(count)

	return Result{
		BaseRate:            base,
		AmountDiscount:      amountDiscount,
		CollateralDiscount:  collateralDiscount,
		AnnualRate:          rate,
		MonthlyRate:         rate.Div(hundred).Div(twelve).Round(8),
		InstallmentCount:    n,
		InstallmentPayment:  payment,
		TotalPayable:        total,
		TotalInterest:       total.Sub(amount),
		EffectiveAnnualCost: effectiveAnnualCost(amount, payment, n).Round(1),
	}, nil
}

// annuityPayment is P * r * (1+r)^n / ((1+r)^n - 1), rounded to cents. The pow runs in
// float64 and the money goes back to decimal.
func annuityPayment(amount decimal.Decimal, monthly float64, n int) decimal.Decimal {
	count := decimal.NewFromInt(int64(n))
	if monthly == 0 {
		return amount.Div(count).RoundUp(2)
	}
	factor := math.Pow(1+monthly, float64(n))
	payment := decimal.NewFromFloat(amount.InexactFloat64() * monthly * factor / (factor - 1)).Round(2)

	// Rounding must never let the borrower repay less than the principal.
	if payment.Mul(count).LessThan(amount) {
		payment = amount.Div(count).RoundUp(2)
	}
	return payment
}

// effectiveAnnualCost finds the monthly rate that discounts n payments back to the
// principal and compounds it over twelve months. Result is in percent.
func effectiveAnnualCost(amount, payment decimal.Decimal, n int) decimal.Decimal {
	p := amount.InexactFloat64()
	pmt := payment.InexactFloat64()
	if pmt*float64(n) <= p {
		return decimal.Zero
	}

	presentValue := func(i float64) float64 {
		return pmt * (1 - math.Pow(1+i, -float64(n))) / i
	}

	lo, hi := 1e-12, 1.0
	for presentValue(hi) > p {
		hi *= 2
	}
	for iter := 0; iter < 200; iter++ {
		mid := (lo + hi) / 2
		if presentValue(mid) > p {
			lo = mid
		} else {
			hi = mid
		}
	}
	irr := (lo + hi) / 2
	return decimal.NewFromFloat((math.Pow(1+irr, 12) - 1) * 100)
}
