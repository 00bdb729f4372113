package pricing

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"p2p-credit-origination/internal/domain/credit"
)

// TermRate applies to every installment count up to MaxInstallments.
// MaxInstallments == 0 is the catch-all tier.
type TermRate struct {
	MaxInstallments int
	AnnualRate      decimal.Decimal
}

// AmountDiscount lowers the base rate by Points once the principal reaches MinAmount.
type AmountDiscount struct {
	MinAmount decimal.Decimal
	Points    decimal.Decimal
}

// Table is the rate card used by the Calculator. MinAmount and Installments also
// bound what a credit request may ask for.
type Table struct {
	MinAmount           decimal.Decimal
	Installments        []int
	TermRates           []TermRate
	AmountDiscounts     []AmountDiscount
	CollateralDiscounts map[credit.CollateralType]decimal.Decimal
	FloorRate           decimal.Decimal
}

func DefaultTable() Table {
	return Table{
		MinAmount:    decimal.NewFromInt(500),
		Installments: []int{3, 6, 12, 18, 24},
		TermRates: []TermRate{
			{MaxInstallments: 6, AnnualRate: decimal.NewFromInt(15)},
			{MaxInstallments: 12, AnnualRate: decimal.NewFromInt(18)},
			{MaxInstallments: 18, AnnualRate: decimal.NewFromInt(22)},
			{MaxInstallments: 0, AnnualRate: decimal.NewFromInt(25)},
		},
		AmountDiscounts: []AmountDiscount{
			{MinAmount: decimal.NewFromInt(30_000), Points: decimal.NewFromInt(2)},
			{MinAmount: decimal.NewFromInt(15_000), Points: decimal.NewFromInt(1)},
			{MinAmount: decimal.NewFromInt(5_000), Points: decimal.RequireFromString("0.5")},
		},
		CollateralDiscounts: map[credit.CollateralType]decimal.Decimal{
			credit.CollateralVehicle:     decimal.NewFromInt(2),
			credit.CollateralProperty:    decimal.NewFromInt(3),
			credit.CollateralEquipment:   decimal.NewFromInt(1),
			credit.CollateralReceivables: decimal.NewFromInt(1),
		},
		FloorRate: decimal.NewFromInt(1),
	}
}

var ErrInvalidTable = errors.New("invalid pricing table")

// Validate checks the table is usable and normalises tier ordering.
func (t *Table) Validate() error {
	if len(t.Installments) == 0 {
		return fmt.Errorf("%w: no installment options", ErrInvalidTable)
	}
	if len(t.TermRates) == 0 {
		return fmt.Errorf("%w: no term rates", ErrInvalidTable)
	}
	for _, tr := range t.TermRates {
		if !tr.AnnualRate.IsPositive() {
			return fmt.Errorf("%w: term rate for <=%d must be positive", ErrInvalidTable, tr.MaxInstallments)
		}
	}
	for _, d := range t.AmountDiscounts {
		if d.Points.IsNegative() || d.MinAmount.IsNegative() {
			return fmt.Errorf("%w: negative amount discount", ErrInvalidTable)
		}
	}
	if t.MinAmount.IsNegative() {
		return fmt.Errorf("%w: negative minimum amount", ErrInvalidTable)
	}
	if t.FloorRate.IsNegative() {
		return fmt.Errorf("%w: negative floor rate", ErrInvalidTable)
	}

	sort.SliceStable(t.TermRates, func(i, j int) bool {
		a, b := t.TermRates[i].MaxInstallments, t.TermRates[j].MaxInstallments
		if a == 0 || b == 0 {
			return b == 0 && a != 0
		}
		return a < b
	})
	sort.SliceStable(t.AmountDiscounts, func(i, j int) bool {
		return t.AmountDiscounts[i].MinAmount.GreaterThan(t.AmountDiscounts[j].MinAmount)
	})
	slices.Sort(t.Installments)

	for _, n := range t.Installments {
		if n <= 0 {
			return fmt.Errorf("%w: installment option %d", ErrInvalidTable, n)
		}
		if _, ok := t.baseRate(n); !ok {
			return fmt.Errorf("%w: no term rate covers %d installments", ErrInvalidTable, n)
		}
	}
	return nil
}

// Rules are the submission limits this rate card can price.
func (t Table) Rules() credit.Rules {
	return credit.Rules{
		MinAmount:           t.MinAmount,
		AllowedInstallments: slices.Clone(t.Installments),
	}
}

func (t Table) baseRate(n int) (decimal.Decimal, bool) {
	for _, tr := range t.TermRates {
		if tr.MaxInstallments == 0 || n <= tr.MaxInstallments {
			return tr.AnnualRate, true
		}
	}
	return decimal.Zero, false
}

// amountDiscount returns the points of the highest tier the amount reaches. Tiers never stack.
func (t Table) amountDiscount(amount decimal.Decimal) decimal.Decimal {
	for _, d := range t.AmountDiscounts {
		if amount.GreaterThanOrEqual(d.MinAmount) {
			return d.Points
		}
	}
	return decimal.Zero
}

type tableFile struct {
	MinAmount    *float64 `yaml:"min_amount"`
	Installments []int    `yaml:"installments"`
	FloorRate    *float64 `yaml:"floor_rate"`
	TermRates    []struct {
		MaxInstallments int     `yaml:"max_installments"`
		AnnualRate      float64 `yaml:"annual_rate"`
	} `yaml:"term_rates"`
	AmountDiscounts []struct {
		MinAmount float64 `yaml:"min_amount"`
		Points    float64 `yaml:"points"`
	} `yaml:"amount_discounts"`
	CollateralDiscounts map[string]float64 `yaml:"collateral_discounts"`
}

// LoadTable reads a YAML rate card. Sections left out keep the DefaultTable values.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, err
	}
	return ParseTable(data)
}

func ParseTable(data []byte) (Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Table{}, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}

	t := DefaultTable()
	if f.MinAmount != nil {
		t.MinAmount = decimal.NewFromFloat(*f.MinAmount)
	}
	if len(f.Installments) > 0 {
		t.Installments = f.Installments
	}
	if f.FloorRate != nil {
		t.FloorRate = decimal.NewFromFloat(*f.FloorRate)
	}
	if len(f.TermRates) > 0 {
		t.TermRates = make([]TermRate, 0, len(f.TermRates))
		for _, tr := range f.TermRates {
			t.TermRates = append(t.TermRates, TermRate{
				MaxInstallments: tr.MaxInstallments,
				AnnualRate:      decimal.NewFromFloat(tr.AnnualRate),
			})
		}
	}
	if f.AmountDiscounts != nil {
		t.AmountDiscounts = make([]AmountDiscount, 0, len(f.AmountDiscounts))
		for _, d := range f.AmountDiscounts {
			t.AmountDiscounts = append(t.AmountDiscounts, AmountDiscount{
				MinAmount: decimal.NewFromFloat(d.MinAmount),
				Points:    decimal.NewFromFloat(d.Points),
			})
		}
	}
	if f.CollateralDiscounts != nil {
		t.CollateralDiscounts = make(map[credit.CollateralType]decimal.Decimal, len(f.CollateralDiscounts))
		for k, v := range f.CollateralDiscounts {
			ct := credit.CollateralType(k)
			if !ct.Valid() {
				return Table{}, fmt.Errorf("%w: unknown collateral type %q", ErrInvalidTable, k)
			}
			t.CollateralDiscounts[ct] = decimal.NewFromFloat(v)
		}
	}

	if err := t.Validate(); err != nil {
		return Table{}, err
	}
	return t, nil
}
