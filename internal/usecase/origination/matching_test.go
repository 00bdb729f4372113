package origination

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"p2p-credit-origination/internal/domain/credit"
	"p2p-credit-origination/internal/domain/eligibility"
	"p2p-credit-origination/internal/domain/pool"
)

func poolIDs(ps []pool.Pool) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.PoolID)
	}
	return out
}

func TestCandidates_Order(t *testing.T) {
	pools := []pool.Pool{
		openPool("c", 20000, t0),
		openPool("b", 20000, t0.Add(-time.Hour)),
		openPool("a", 20000, t0),
		openPool("big", 90000, t0.Add(time.Hour)),
		openPool("small", 6000, t0.Add(-48*time.Hour)),
	}
	s := eligibility.Subject{Score: 700, InstallmentCount: 12, AnnualRate: decimal.NewFromInt(18)}

	got := Candidates(pools, s, decimal.NewFromInt(5000))
	assert.Equal(t, []string{"big", "b", "a", "c", "small"}, poolIDs(got))
}

func TestCandidates_Filters(t *testing.T) {
	paused := openPool("paused", 90000, t0)
	paused.Status = pool.StatusPaused
	closed := openPool("closed", 90000, t0)
	closed.Status = pool.StatusClosed

	short := openPool("short-term", 50000, t0)
	short.MaxAcceptedTermMonths = 6

	secured := openPool("secured", 40000, t0)
	secured.RequiresCollateral = true
	secured.AcceptedCollateral = pool.CollateralList{credit.CollateralProperty, credit.CollateralVehicle}

	vehicleOnly := openPool("vehicle-only", 35000, t0)
	vehicleOnly.RequiresCollateral = true
	vehicleOnly.AcceptedCollateral = pool.CollateralList{credit.CollateralVehicle}

	greedy := openPool("greedy", 30000, t0)
	greedy.MinAcceptedRate = decimal.NewFromInt(20)

	poor := openPool("poor", 1000, t0)
	plain := openPool("plain", 10000, t0)

	pools := []pool.Pool{paused, closed, short, secured, vehicleOnly, greedy, poor, plain}
	property := credit.CollateralProperty

	unsecured := eligibility.Subject{Score: 700, InstallmentCount: 12, AnnualRate: decimal.NewFromInt(18)}
	assert.Equal(t, []string{"plain"}, poolIDs(Candidates(pools, unsecured, decimal.NewFromInt(5000))))

	withProperty := unsecured
	withProperty.Collateral = &property
	assert.Equal(t, []string{"secured", "plain"}, poolIDs(Candidates(pools, withProperty, decimal.NewFromInt(5000))))

	assert.Empty(t, Candidates(nil, unsecured, decimal.NewFromInt(5000)))
}
