package pool

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"p2p-credit-origination/internal/domain/credit"
)

type seedFile struct {
	Pools []struct {
		PoolID                string   `yaml:"pool_id"`
		InvestorID            string   `yaml:"investor_id"`
		Name                  string   `yaml:"name"`
		Capital               float64  `yaml:"capital"`
		MinScore              int      `yaml:"min_score"`
		RequiresCollateral    bool     `yaml:"requires_collateral"`
		AcceptedCollateral    []string `yaml:"accepted_collateral"`
		MinAcceptedRate       float64  `yaml:"min_accepted_rate"`
		MaxAcceptedTermMonths int      `yaml:"max_accepted_term_months"`
	} `yaml:"pools"`
}

var ErrInvalidSeed = errors.New("invalid pool seed")

// LoadSeed reads a YAML list of pools for bootstrapping an empty registry.
func LoadSeed(path string) ([]Pool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSeed(data)
}

func ParseSeed(data []byte) ([]Pool, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}
	out := make([]Pool, 0, len(f.Pools))
	for i, s := range f.Pools {
		if s.PoolID == "" || s.Capital < 0 || s.MinScore < 0 || s.MaxAcceptedTermMonths < 0 {
			return nil, fmt.Errorf("%w: entry %d", ErrInvalidSeed, i)
		}
		var accepted CollateralList
		for _, c := range s.AcceptedCollateral {
			t := credit.CollateralType(c)
			if !t.Valid() {
				return nil, fmt.Errorf("%w: entry %d: collateral %q", ErrInvalidSeed, i, c)
			}
			accepted = append(accepted, t)
		}
		out = append(out, Pool{
			PoolID:                s.PoolID,
			InvestorID:            s.InvestorID,
			Name:                  s.Name,
			CapitalAvailable:      decimal.NewFromFloat(s.Capital).Round(2),
			Status:                StatusActive,
			MinScore:              s.MinScore,
			RequiresCollateral:    s.RequiresCollateral,
			AcceptedCollateral:    accepted,
			MinAcceptedRate:       decimal.NewFromFloat(s.MinAcceptedRate),
			MaxAcceptedTermMonths: s.MaxAcceptedTermMonths,
		})
	}
	return out, nil
}

// Seed creates the pools the registry does not know yet and reports how many.
func Seed(ctx context.Context, r Registry, pools []Pool) (int, error) {
	n := 0
	for i := range pools {
		_, err := r.GetByPoolID(ctx, pools[i].PoolID)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return n, err
		}
		p := pools[i]
		if err := r.Create(ctx, &p); err != nil {
			return n, fmt.Errorf("seed pool %s: %w", p.PoolID, err)
		}
		n++
	}
	return n, nil
}
