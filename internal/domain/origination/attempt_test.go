package origination

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"p2p-credit-origination/internal/domain/credit"
	"p2p-credit-origination/internal/domain/pricing"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newAttempt(mode credit.ApprovalMode) *Attempt {
	req := credit.Request{
		ID:               "req-1",
		BorrowerID:       "b-1",
		Amount:           decimal.NewFromInt(5000),
		InstallmentCount: 12,
		ApprovalMode:     mode,
		BorrowerScore:    750,
		Collateral:       &credit.Collateral{Type: credit.CollateralVehicle, EstimatedValue: decimal.NewFromInt(9000), Description: "scooter 2021 model"},
	}
	return NewAttempt("att-1", req, pricing.Result{}, t0)
}

func TestNewAttempt_StartsAnalyzing(t *testing.T) {
	a := newAttempt(credit.ApprovalAutomatic)
	assert.Equal(t, StageAnalyzing, a.Stage)
	assert.Equal(t, []Stage{StageAnalyzing}, a.Stages())
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Stage
		mode     credit.ApprovalMode
		reason   Reason
		want     bool
	}{
		{StageAnalyzing, StagePoolSearch, credit.ApprovalAutomatic, "", true},
		{StageAnalyzing, StagePoolSearch, credit.ApprovalBoth, "", true},
		{StageAnalyzing, StagePoolSearch, credit.ApprovalManual, "", false},
		{StageAnalyzing, StageMarketplaceSearch, credit.ApprovalManual, "", true},
		{StageAnalyzing, StageMarketplaceSearch, credit.ApprovalBoth, "", false},
		{StagePoolSearch, StagePoolMatched, credit.ApprovalAutomatic, "", true},
		{StagePoolSearch, StageApproved, credit.ApprovalAutomatic, "", false},
		{StagePoolMatched, StageApproved, credit.ApprovalBoth, "", true},
		{StagePoolNoMatch, StageMarketplaceSearch, credit.ApprovalBoth, "", true},
		{StagePoolNoMatch, StageMarketplaceSearch, credit.ApprovalAutomatic, "", false},
		{StagePoolNoMatch, StageRejected, credit.ApprovalAutomatic, ReasonNoPoolMatch, true},
		{StagePoolNoMatch, StageRejected, credit.ApprovalBoth, ReasonNoPoolMatch, false},
		{StageMarketplaceSearch, StageRejected, credit.ApprovalManual, ReasonNoInterest, true},
		{StageMarketplaceSearch, StageRejected, credit.ApprovalManual, "", false},
		{StageMarketplaceSearch, StageApproved, credit.ApprovalManual, "", true},
		{StagePoolSearch, StageRejected, credit.ApprovalAutomatic, ReasonInternalError, true},
		{StageAnalyzing, StageRejected, credit.ApprovalManual, ReasonCancelled, true},
		{StageApproved, StageRejected, credit.ApprovalManual, ReasonInternalError, false},
		{StageRejected, StageMarketplaceSearch, credit.ApprovalBoth, "", false},
	}
	for _, tt := range tests {
		got := CanTransition(tt.from, tt.to, tt.mode, tt.reason)
		assert.Equal(t, tt.want, got, "%s -> %s (%s, %q)", tt.from, tt.to, tt.mode, tt.reason)
	}
}

func TestTransition_AppendsMonotonicHistory(t *testing.T) {
	a := newAttempt(credit.ApprovalBoth)

	require.NoError(t, a.Transition(StagePoolSearch, t0, "", nil))
	require.NoError(t, a.Transition(StagePoolNoMatch, t0.Add(-time.Second), "", nil))
	require.NoError(t, a.Transition(StageMarketplaceSearch, t0.Add(time.Minute), "", nil))
	require.NoError(t, a.Transition(StageRejected, t0.Add(time.Minute), ReasonNoInterest, nil))

	assert.Equal(t, []Stage{StageAnalyzing, StagePoolSearch, StagePoolNoMatch, StageMarketplaceSearch, StageRejected}, a.Stages())
	for i := 1; i < len(a.History); i++ {
		assert.True(t, a.History[i].At.After(a.History[i-1].At), "entry %d not after %d", i, i-1)
	}
	assert.Equal(t, ReasonNoInterest, a.Reason)
	assert.Equal(t, ReasonNoInterest, a.History[4].Reason)
}

func TestTransition_RejectsInvalidAndKeepsHistory(t *testing.T) {
	a := newAttempt(credit.ApprovalAutomatic)

	err := a.Transition(StageMarketplaceSearch, t0.Add(time.Second), "", nil)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.Equal(t, StageAnalyzing, a.Stage)
	assert.Len(t, a.History, 1)
}

func TestTransition_RecordsCause(t *testing.T) {
	a := newAttempt(credit.ApprovalAutomatic)
	require.NoError(t, a.Transition(StagePoolSearch, t0.Add(time.Second), "", nil))
	require.NoError(t, a.Transition(StageRejected, t0.Add(2*time.Second), ReasonInternalError, errors.New("registry down")))

	last := a.History[len(a.History)-1]
	assert.Equal(t, "registry down", last.Error)
	assert.Equal(t, ReasonInternalError, a.Reason)
	assert.True(t, a.Stage.Terminal())
}

func TestSnapshot_IsIndependent(t *testing.T) {
	a := newAttempt(credit.ApprovalAutomatic)
	s := a.Snapshot()

	require.NoError(t, a.Transition(StagePoolSearch, t0.Add(time.Second), "", nil))
	a.Request.Collateral.Description = "changed later"

	assert.Equal(t, StageAnalyzing, s.Stage)
	assert.Len(t, s.History, 1)
	assert.Equal(t, "scooter 2021 model", s.Request.Collateral.Description)
}
