// Package eligibility decides whether a priced credit request fits a capital provider's
// declared criteria. Pools and individual lenders share the same predicate.
package eligibility

import (
	"slices"

	"github.com/shopspring/decimal"

	"p2p-credit-origination/internal/domain/credit"
)

type Check string

const (
	CheckScore      Check = "score"
	CheckCollateral Check = "collateral"
	CheckRate       Check = "rate"
	CheckTerm       Check = "term"
)

// Criteria is what a pool or lender accepts. Zero MinScore and zero
// MaxAcceptedTermMonths mean "no minimum" and "no limit".
type Criteria struct {
	MinScore                int                     `json:"min_score"`
	RequiresCollateral      bool                    `json:"requires_collateral"`
	AcceptedCollateralTypes []credit.CollateralType `json:"accepted_collateral_types,omitempty"`
	MinAcceptedRate         decimal.Decimal         `json:"min_accepted_rate"`
	MaxAcceptedTermMonths   int                     `json:"max_accepted_term_months"`
}

// Subject is the part of a priced request the filter looks at.
type Subject struct {
	Score            int
	InstallmentCount int
	Collateral       *credit.CollateralType
	AnnualRate       decimal.Decimal
}

func SubjectOf(r credit.Request, annualRate decimal.Decimal) Subject {
	return Subject{
		Score:            r.BorrowerScore,
		InstallmentCount: r.InstallmentCount,
		Collateral:       r.CollateralType(),
		AnnualRate:       annualRate,
	}
}

type Verdict struct {
	Failed []Check
}

func (v Verdict) OK() bool { return len(v.Failed) == 0 }

// Evaluate runs every check and reports all that failed.
func Evaluate(s Subject, c Criteria) Verdict {
	var failed []Check
	if c.MinScore > 0 && s.Score < c.MinScore {
		failed = append(failed, CheckScore)
	}
	if c.RequiresCollateral && (s.Collateral == nil || !slices.Contains(c.AcceptedCollateralTypes, *s.Collateral)) {
		failed = append(failed, CheckCollateral)
	}
	if s.AnnualRate.LessThan(c.MinAcceptedRate) {
		failed = append(failed, CheckRate)
	}
	if c.MaxAcceptedTermMonths > 0 && s.InstallmentCount > c.MaxAcceptedTermMonths {
		failed = append(failed, CheckTerm)
	}
	return Verdict{Failed: failed}
}

func Matches(s Subject, c Criteria) bool { return Evaluate(s, c).OK() }
