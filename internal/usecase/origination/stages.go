package origination

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"p2p-credit-origination/internal/domain/eligibility"
	"p2p-credit-origination/internal/domain/loan"
	"p2p-credit-origination/internal/domain/marketplace"
	domain "p2p-credit-origination/internal/domain/origination"
	"p2p-credit-origination/internal/domain/pool"
	"p2p-credit-origination/internal/domain/uow"
)

func (e *Engine) searchPools(ctx context.Context, a *domain.Attempt) error {
	// re-entry after a crash must reuse the allocation already taken
	alloc, err := e.pools.FindAllocation(ctx, a.ID)
	switch {
	case err == nil && alloc.Released():
		return fmt.Errorf("%w: allocation %s already released", domain.ErrEngineFault, alloc.AllocationID)
	case err == nil:
	case errors.Is(err, pool.ErrAllocationNotFound):
		alloc, err = e.matchPool(ctx, a)
		if err != nil {
			return err
		}
	default:
		return err
	}

	if alloc == nil {
		return e.advance(ctx, a, domain.StagePoolNoMatch, "", nil)
	}
	a.MatchedPoolID = alloc.PoolID
	a.AllocationID = alloc.AllocationID
	return e.advance(ctx, a, domain.StagePoolMatched, "", nil)
}

// matchPool commits against candidates in priority order. A lost race moves on
// to the next candidate; the registry is re-read at most MaxMatchRounds times.
func (e *Engine) matchPool(ctx context.Context, a *domain.Attempt) (*pool.Allocation, error) {
	subject := eligibility.SubjectOf(a.Request, a.Pricing.AnnualRate)
	amount := a.Request.Amount
	lost := map[string]bool{}

	for round := 0; round < e.cfg.MaxMatchRounds; round++ {
		pools, err := e.pools.QueryPools(ctx, pool.Filter{MinCapital: amount, Status: pool.StatusActive})
		if err != nil {
			return nil, err
		}
		var tried int
		for _, p := range Candidates(pools, subject, amount) {
			if lost[p.PoolID] {
				continue
			}
			tried++
			alloc, err := e.pools.CommitAllocation(ctx, pool.AllocationRequest{
				AllocationID: e.newID(),
				PoolID:       p.PoolID,
				AttemptID:    a.ID,
				Amount:       amount,
			})
			if errors.Is(err, pool.ErrAllocationConflict) {
				lost[p.PoolID] = true
				e.metrics.AllocationConflict()
				e.log.Debug("allocation conflict",
					zap.String("attempt_id", a.ID),
					zap.String("pool_id", p.PoolID),
					zap.Int("round", round),
				)
				continue
			}
			if err != nil {
				return nil, err
			}
			return alloc, nil
		}
		if tried == 0 {
			break
		}
	}
	return nil, nil
}

func (e *Engine) enterMarketplace(ctx context.Context, a *domain.Attempt) error {
	a.ListingID = e.newID()
	return e.advance(ctx, a, domain.StageMarketplaceSearch, "", nil)
}

func (e *Engine) searchMarketplace(ctx context.Context, a *domain.Attempt) error {
	listing := marketplace.Listing{
		ListingID:   a.ListingID,
		AttemptID:   a.ID,
		Request:     a.Request.Clone(),
		Pricing:     a.Pricing,
		PublishedAt: e.now(),
	}
	if _, err := e.market.Publish(ctx, listing); err != nil {
		return err
	}

	res, err := e.market.AwaitAcceptance(ctx, a.ListingID, e.cfg.MarketplaceTimeout)
	cancelled := false
	if err != nil {
		if ctx.Err() == nil {
			return err
		}
		cancelled = true
		ctx = context.WithoutCancel(ctx)
		if res, err = e.settleCancelled(ctx, a.ListingID); err != nil {
			return err
		}
	}

	switch res.Outcome {
	case marketplace.OutcomeAccepted:
		a.MatchedLenderID = res.LenderID
		return e.approve(ctx, a, Winner{Source: loan.SourceLender, FunderID: res.LenderID})
	case marketplace.OutcomeWithdrawn:
		reason := domain.ReasonWithdrawn
		if cancelled {
			reason = domain.ReasonCancelled
		}
		return e.advance(ctx, a, domain.StageRejected, reason, nil)
	case marketplace.OutcomeExpired:
		if !cancelled && e.cfg.Relist && (e.cfg.MaxRelists == 0 || a.Relists < e.cfg.MaxRelists) {
			a.Relists++
			a.ListingID = e.newID()
			if err := e.store.Update(ctx, a); err != nil {
				return err
			}
			e.metrics.Relisted()
			e.log.Info("listing relisted", zap.String("attempt_id", a.ID), zap.Int("relists", a.Relists))
			return nil
		}
		return e.advance(ctx, a, domain.StageRejected, domain.ReasonNoInterest, nil)
	}
	return fmt.Errorf("%w: unknown marketplace outcome %q", domain.ErrEngineFault, res.Outcome)
}

// settleCancelled withdraws the listing on shutdown. If a lender got there
// first the acceptance stands.
func (e *Engine) settleCancelled(ctx context.Context, listingID string) (marketplace.Resolution, error) {
	err := e.market.Withdraw(ctx, listingID)
	if err == nil {
		return marketplace.Resolution{Outcome: marketplace.OutcomeWithdrawn, ResolvedAt: e.now()}, nil
	}
	if errors.Is(err, marketplace.ErrAlreadyClaimed) {
		return e.market.AwaitAcceptance(ctx, listingID, 0)
	}
	return marketplace.Resolution{}, err
}

// approve writes the loan and funding records once per attempt, moves to
// APPROVED and credits the borrower.
func (e *Engine) approve(ctx context.Context, a *domain.Attempt, w Winner) error {
	var approved *loan.Loan
	err := e.uow.WithinTx(ctx, func(r uow.Repos) error {
		existing, err := r.Loans.GetByAttemptID(ctx, a.ID)
		if err == nil {
			approved = existing
			return nil
		}
		if !errors.Is(err, loan.ErrNotFound) {
			return err
		}

		l, f := BuildLoan(a.ID, a.Request, a.Pricing, w, RecordIDs{LoanID: e.newID(), FundingID: e.newID()}, e.now())
		if err := r.Loans.Create(ctx, l); err != nil {
			return err
		}
		if err := r.Fundings.Create(ctx, f); err != nil {
			return err
		}
		approved = l
		return nil
	})
	if err != nil {
		return err
	}

	a.LoanID = approved.LoanID
	if err := e.advance(ctx, a, domain.StageApproved, "", nil); err != nil {
		return err
	}
	e.creditBorrower(ctx, a)
	return nil
}

// creditBorrower pays out the principal of an APPROVED attempt's loan.
func (e *Engine) creditBorrower(ctx context.Context, a *domain.Attempt) {
	if e.ledger == nil {
		return
	}
	if err := e.ledger.CreditBorrowerAccount(context.WithoutCancel(ctx), a.LoanID, a.Request.BorrowerID, a.Request.Amount); err != nil {
		e.metrics.LedgerFailure()
		e.log.Error("credit borrower account",
			zap.String("attempt_id", a.ID),
			zap.String("loan_id", a.LoanID),
			zap.Error(err),
		)
	}
}
