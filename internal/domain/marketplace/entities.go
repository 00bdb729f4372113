package marketplace

import (
	"context"
	"errors"
	"time"

	"p2p-credit-origination/internal/domain/credit"
	"p2p-credit-origination/internal/domain/eligibility"
	"p2p-credit-origination/internal/domain/pricing"
)

var (
	ErrListingNotFound = errors.New("listing not found")
	ErrAlreadyClaimed  = errors.New("listing already claimed")
	ErrNotEligible     = errors.New("lender criteria do not match listing")
)

type Outcome string

const (
	OutcomeAccepted  Outcome = "accepted"
	OutcomeExpired   Outcome = "expired"
	OutcomeWithdrawn Outcome = "withdrawn"
)

// Resolution is the single winning outcome of a listing.
type Resolution struct {
	Outcome    Outcome   `json:"outcome"`
	LenderID   string    `json:"lender_id,omitempty"`
	ResolvedAt time.Time `json:"resolved_at"`
}

type Listing struct {
	ListingID   string         `json:"listing_id"`
	AttemptID   string         `json:"attempt_id"`
	Request     credit.Request `json:"request"`
	Pricing     pricing.Result `json:"pricing"`
	PublishedAt time.Time      `json:"published_at"`
	Resolution  *Resolution    `json:"resolution,omitempty"`
}

func (l Listing) Subject() eligibility.Subject {
	return eligibility.SubjectOf(l.Request, l.Pricing.AnnualRate)
}

type Lender struct {
	ID       string               `json:"lender_id"`
	Criteria eligibility.Criteria `json:"criteria"`
}

// Marketplace exposes unmatched requests to individual lenders.
type Marketplace interface {
	Publish(ctx context.Context, l Listing) (string, error)
	// AwaitAcceptance blocks until the listing resolves or timeout elapses. A
	// timeout resolves the listing as expired unless another outcome won first.
	AwaitAcceptance(ctx context.Context, listingID string, timeout time.Duration) (Resolution, error)
	Accept(ctx context.Context, listingID string, lender Lender) error
	Withdraw(ctx context.Context, listingID string) error
	Open(ctx context.Context, lender Lender) ([]Listing, error)
}

// Claimer arbitrates the first outcome of a listing. Claim reports the winning
// resolution and whether r is it.
type Claimer interface {
	Claim(ctx context.Context, listingID string, r Resolution) (Resolution, bool, error)
}
