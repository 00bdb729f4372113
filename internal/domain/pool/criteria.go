package pool

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"p2p-credit-origination/internal/domain/credit"
)

var ErrInvalidPool = errors.New("invalid pool")

// MinInitialCapital is the least a new pool may open with.
var MinInitialCapital = decimal.NewFromInt(1000)

// CriteriaUpdate edits what a pool lends to. Nil fields are left alone.
type CriteriaUpdate struct {
	Name                  *string
	MinScore              *int
	RequiresCollateral    *bool
	AcceptedCollateral    *CollateralList
	MinAcceptedRate       *decimal.Decimal
	MaxAcceptedTermMonths *int
}

func (u CriteriaUpdate) Empty() bool {
	return u.Name == nil && u.MinScore == nil && u.RequiresCollateral == nil &&
		u.AcceptedCollateral == nil && u.MinAcceptedRate == nil && u.MaxAcceptedTermMonths == nil
}

func (u CriteriaUpdate) Apply(p *Pool) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.MinScore != nil {
		p.MinScore = *u.MinScore
	}
	if u.RequiresCollateral != nil {
		p.RequiresCollateral = *u.RequiresCollateral
	}
	if u.AcceptedCollateral != nil {
		p.AcceptedCollateral = append(CollateralList(nil), (*u.AcceptedCollateral)...)
	}
	if u.MinAcceptedRate != nil {
		p.MinAcceptedRate = *u.MinAcceptedRate
	}
	if u.MaxAcceptedTermMonths != nil {
		p.MaxAcceptedTermMonths = *u.MaxAcceptedTermMonths
	}
}

// CriteriaColumns lists the criteria columns of p for a partial UPDATE.
func (p Pool) CriteriaColumns() map[string]any {
	return map[string]any{
		"name":                     p.Name,
		"min_score":                p.MinScore,
		"requires_collateral":      p.RequiresCollateral,
		"accepted_collateral":      p.AcceptedCollateral,
		"min_accepted_rate":        p.MinAcceptedRate,
		"max_accepted_term_months": p.MaxAcceptedTermMonths,
	}
}

// ValidateCriteria rejects criteria no request could ever satisfy or that are out of range.
func (p Pool) ValidateCriteria() error {
	if p.MinScore < 0 || p.MinScore > credit.MaxBorrowerScore {
		return fmt.Errorf("%w: min_score must be between 0 and %d", ErrInvalidPool, credit.MaxBorrowerScore)
	}
	if p.MinAcceptedRate.IsNegative() {
		return fmt.Errorf("%w: min_accepted_rate must not be negative", ErrInvalidPool)
	}
	if p.MaxAcceptedTermMonths < 0 {
		return fmt.Errorf("%w: max_accepted_term_months must not be negative", ErrInvalidPool)
	}
	for _, t := range p.AcceptedCollateral {
		if !t.Valid() {
			return fmt.Errorf("%w: unknown collateral type %q", ErrInvalidPool, t)
		}
	}
	if p.RequiresCollateral && len(p.AcceptedCollateral) == 0 {
		return fmt.Errorf("%w: requires_collateral needs accepted collateral types", ErrInvalidPool)
	}
	return nil
}
