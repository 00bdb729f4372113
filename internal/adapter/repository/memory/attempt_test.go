package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"p2p-credit-origination/internal/domain/credit"
	"p2p-credit-origination/internal/domain/origination"
	"p2p-credit-origination/internal/domain/pricing"
)

func TestAttemptStore_RoundTripIsolated(t *testing.T) {
	s := NewAttemptStore()
	ctx := context.Background()
	t0 := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	a := origination.NewAttempt("a1", credit.Request{ApprovalMode: credit.ApprovalAutomatic}, pricing.Result{}, t0)
	require.NoError(t, s.Create(ctx, a))
	assert.ErrorIs(t, s.Create(ctx, a), ErrDuplicateAttempt)

	require.NoError(t, a.Transition(origination.StagePoolSearch, t0.Add(time.Second), "", nil))
	got, err := s.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, origination.StageAnalyzing, got.Stage, "store must not alias caller memory")

	require.NoError(t, s.Update(ctx, a))
	got, _ = s.Get(ctx, "a1")
	assert.Equal(t, origination.StagePoolSearch, got.Stage)

	got.History = nil
	again, _ := s.Get(ctx, "a1")
	assert.Len(t, again.History, 2)
}

func TestAttemptStore_ListActive(t *testing.T) {
	s := NewAttemptStore()
	ctx := context.Background()
	t0 := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	open := origination.NewAttempt("open", credit.Request{ApprovalMode: credit.ApprovalAutomatic}, pricing.Result{}, t0)
	done := origination.NewAttempt("done", credit.Request{ApprovalMode: credit.ApprovalAutomatic}, pricing.Result{}, t0)
	require.NoError(t, done.Transition(origination.StageRejected, t0.Add(time.Second), origination.ReasonCancelled, nil))
	require.NoError(t, s.Create(ctx, open))
	require.NoError(t, s.Create(ctx, done))

	active, err := s.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "open", active[0].ID)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, origination.ErrNotFound)
	assert.ErrorIs(t, s.Update(ctx, origination.NewAttempt("missing", credit.Request{}, pricing.Result{}, t0)), origination.ErrNotFound)
}
