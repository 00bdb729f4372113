package origination

import (
	"sort"

	"github.com/shopspring/decimal"

	"p2p-credit-origination/internal/domain/eligibility"
	"p2p-credit-origination/internal/domain/pool"
)

// Candidates returns the active pools that accept s and can cover amount, in
// commit order: most capital first, then oldest pool, then pool id.
func Candidates(pools []pool.Pool, s eligibility.Subject, amount decimal.Decimal) []pool.Pool {
	out := make([]pool.Pool, 0, len(pools))
	for _, p := range pools {
		if p.Status != pool.StatusActive || p.CapitalAvailable.LessThan(amount) {
			continue
		}
		if eligibility.Matches(s, p.Criteria()) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if c := a.CapitalAvailable.Cmp(b.CapitalAvailable); c != 0 {
			return c > 0
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.PoolID < b.PoolID
	})
	return out
}
