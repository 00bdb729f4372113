package credit

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

var ErrInvalidRequest = errors.New("invalid credit request")

const (
	MaxBorrowerScore         = 1000
	MinCollateralDescription = 10
)

// Rules are the submission limits a request is validated against.
type Rules struct {
	MinAmount           decimal.Decimal
	AllowedInstallments []int
}

func DefaultRules() Rules {
	return Rules{
		MinAmount:           decimal.NewFromInt(500),
		AllowedInstallments: []int{3, 6, 12, 18, 24},
	}
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every field that failed; it unwraps to ErrInvalidRequest.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return ErrInvalidRequest.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidRequest }

func (r Request) Validate(rules Rules) error {
	var fields []FieldError
	add := func(field, msg string) { fields = append(fields, FieldError{Field: field, Message: msg}) }

	if strings.TrimSpace(r.BorrowerID) == "" {
		add("borrower_id", "is required")
	}
	if !r.Amount.IsPositive() {
		add("amount", "must be greater than zero")
	} else if r.Amount.LessThan(rules.MinAmount) {
		add("amount", "must be at least "+rules.MinAmount.StringFixed(2))
	}
	if !slices.Contains(rules.AllowedInstallments, r.InstallmentCount) {
		add("installment_count", fmt.Sprintf("must be one of %v", rules.AllowedInstallments))
	}
	if r.BorrowerScore < 0 || r.BorrowerScore > MaxBorrowerScore {
		add("borrower_score", fmt.Sprintf("must be between 0 and %d", MaxBorrowerScore))
	}
	if !r.ApprovalMode.Valid() {
		add("approval_mode", "must be automatic, manual or both")
	}
	if c := r.Collateral; c != nil {
		if !c.Type.Valid() {
			add("collateral.type", "is not a supported collateral type")
		}
		if !c.EstimatedValue.IsPositive() {
			add("collateral.estimated_value", "must be greater than zero")
		}
		if utf8.RuneCountInString(strings.TrimSpace(c.Description)) < MinCollateralDescription {
			add("collateral.description", fmt.Sprintf("must have at least %d characters", MinCollateralDescription))
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
