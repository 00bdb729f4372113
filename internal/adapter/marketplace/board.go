// Package marketplace keeps unmatched credit requests visible to individual
// lenders until the listing resolves.
package marketplace

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"p2p-credit-origination/internal/domain/eligibility"
	domain "p2p-credit-origination/internal/domain/marketplace"
	"p2p-credit-origination/pkg/id"
)

type entry struct {
	listing domain.Listing
	done    chan struct{}
	once    sync.Once
}

// Board is the in-process listing index. Listings are local to the instance
// that published them; accepting one elsewhere reports ErrListingNotFound.
// Which outcome wins is decided by the Claimer and the board only mirrors the
// result. No lock is held while waiting.
type Board struct {
	mu        sync.RWMutex
	entries   map[string]*entry
	claimer   domain.Claimer
	retention time.Duration
	now       func() time.Time
	log       *zap.Logger
}

func NewBoard(claimer domain.Claimer, retention time.Duration, log *zap.Logger) *Board {
	if log == nil {
		log = zap.NewNop()
	}
	return &Board{
		entries:   map[string]*entry{},
		claimer:   claimer,
		retention: retention,
		now:       func() time.Time { return time.Now().UTC() },
		log:       log,
	}
}

// Publish makes l visible. Publishing an existing listing id is a no-op.
func (b *Board) Publish(_ context.Context, l domain.Listing) (string, error) {
	if l.ListingID == "" {
		l.ListingID = id.NewID32()
	}
	if l.PublishedAt.IsZero() {
		l.PublishedAt = b.now()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.entries[l.ListingID]; ok {
		return l.ListingID, nil
	}
	l.Resolution = nil
	b.entries[l.ListingID] = &entry{listing: l, done: make(chan struct{})}
	b.log.Debug("listing published", zap.String("listing_id", l.ListingID), zap.String("attempt_id", l.AttemptID))
	return l.ListingID, nil
}

// AwaitAcceptance waits for the listing to resolve. A non-positive timeout
// settles the listing right away.
func (b *Board) AwaitAcceptance(ctx context.Context, listingID string, timeout time.Duration) (domain.Resolution, error) {
	e, err := b.lookup(listingID)
	if err != nil {
		return domain.Resolution{}, err
	}
	if r := b.resolution(e); r != nil {
		return *r, nil
	}

	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		select {
		case <-e.done:
			return *b.resolution(e), nil
		case <-ctx.Done():
			return domain.Resolution{}, ctx.Err()
		case <-t.C:
		}
	}

	winner, _, err := b.claim(ctx, e, domain.Resolution{Outcome: domain.OutcomeExpired, ResolvedAt: b.now()})
	return winner, err
}

func (b *Board) Accept(ctx context.Context, listingID string, lender domain.Lender) error {
	e, err := b.lookup(listingID)
	if err != nil {
		return err
	}
	if b.resolution(e) != nil {
		return domain.ErrAlreadyClaimed
	}
	if !eligibility.Matches(e.listing.Subject(), lender.Criteria) {
		return domain.ErrNotEligible
	}
	_, won, err := b.claim(ctx, e, domain.Resolution{Outcome: domain.OutcomeAccepted, LenderID: lender.ID, ResolvedAt: b.now()})
	if err != nil {
		return err
	}
	if !won {
		return domain.ErrAlreadyClaimed
	}
	b.log.Info("listing accepted", zap.String("listing_id", listingID), zap.String("lender_id", lender.ID))
	return nil
}

// Withdraw is idempotent for an already withdrawn listing and fails with
// ErrAlreadyClaimed when any other outcome won.
func (b *Board) Withdraw(ctx context.Context, listingID string) error {
	e, err := b.lookup(listingID)
	if err != nil {
		return err
	}
	winner := b.resolution(e)
	if winner == nil {
		w, _, err := b.claim(ctx, e, domain.Resolution{Outcome: domain.OutcomeWithdrawn, ResolvedAt: b.now()})
		if err != nil {
			return err
		}
		winner = &w
	}
	if winner.Outcome != domain.OutcomeWithdrawn {
		return domain.ErrAlreadyClaimed
	}
	return nil
}

// Open lists unresolved listings the lender's criteria accept, oldest first.
func (b *Board) Open(_ context.Context, lender domain.Lender) ([]domain.Listing, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := []domain.Listing{}
	for _, e := range b.entries {
		if e.listing.Resolution != nil {
			continue
		}
		if eligibility.Matches(e.listing.Subject(), lender.Criteria) {
			l := e.listing
			l.Request = l.Request.Clone()
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PublishedAt.Equal(out[j].PublishedAt) {
			return out[i].PublishedAt.Before(out[j].PublishedAt)
		}
		return out[i].ListingID < out[j].ListingID
	})
	return out, nil
}

// Sweep drops listings resolved before now minus the retention window.
func (b *Board) Sweep(now time.Time) int {
	cutoff := now.Add(-b.retention)
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for k, e := range b.entries {
		if r := e.listing.Resolution; r != nil && r.ResolvedAt.Before(cutoff) {
			delete(b.entries, k)
			if f, ok := b.claimer.(interface{ Forget(string) }); ok {
				f.Forget(k)
			}
			n++
		}
	}
	return n
}

func (b *Board) lookup(listingID string) (*entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.entries[listingID]
	if !ok {
		return nil, domain.ErrListingNotFound
	}
	return e, nil
}

func (b *Board) resolution(e *entry) *domain.Resolution {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if e.listing.Resolution == nil {
		return nil
	}
	r := *e.listing.Resolution
	return &r
}

func (b *Board) claim(ctx context.Context, e *entry, r domain.Resolution) (domain.Resolution, bool, error) {
	winner, won, err := b.claimer.Claim(ctx, e.listing.ListingID, r)
	if err != nil {
		return domain.Resolution{}, false, err
	}
	b.mu.Lock()
	if e.listing.Resolution == nil {
		e.listing.Resolution = &winner
	}
	b.mu.Unlock()
	e.once.Do(func() { close(e.done) })
	return winner, won, nil
}
