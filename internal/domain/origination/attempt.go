package origination

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"p2p-credit-origination/internal/domain/credit"
	"p2p-credit-origination/internal/domain/pricing"
)

var (
	ErrNotFound          = errors.New("origination attempt not found")
	ErrInvalidTransition = errors.New("invalid stage transition")
	ErrInvalidStage      = errors.New("operation not allowed in current stage")
	// ErrEngineFault marks unexpected failures absorbed into a REJECTED decision.
	ErrEngineFault = errors.New("engine fault")
)

type Stage string

const (
	StageAnalyzing         Stage = "ANALYZING"
	StagePoolSearch        Stage = "POOL_SEARCH"
	StagePoolMatched       Stage = "POOL_MATCHED"
	StagePoolNoMatch       Stage = "POOL_NO_MATCH"
	StageMarketplaceSearch Stage = "MARKETPLACE_SEARCH"
	StageApproved          Stage = "APPROVED"
	StageRejected          Stage = "REJECTED"
)

func (s Stage) Terminal() bool { return s == StageApproved || s == StageRejected }

type Reason string

const (
	ReasonNoPoolMatch   Reason = "no_pool_match"
	ReasonNoInterest    Reason = "no_interest"
	ReasonWithdrawn     Reason = "withdrawn"
	ReasonInternalError Reason = "internal_error"
	ReasonCancelled     Reason = "cancelled"
)

type HistoryEntry struct {
	Stage  Stage     `json:"stage"`
	At     time.Time `json:"at"`
	Reason Reason    `json:"reason,omitempty"`
	Error  string    `json:"error,omitempty"`
}

// Attempt is one request's journey through the origination stages.
type Attempt struct {
	ID              string         `json:"attempt_id"`
	Request         credit.Request `json:"request"`
	Pricing         pricing.Result `json:"pricing"`
	Stage           Stage          `json:"stage"`
	MatchedPoolID   string         `json:"matched_pool_id,omitempty"`
	MatchedLenderID string         `json:"matched_lender_id,omitempty"`
	AllocationID    string         `json:"allocation_id,omitempty"`
	ListingID       string         `json:"listing_id,omitempty"`
	LoanID          string         `json:"loan_id,omitempty"`
	Reason          Reason         `json:"reason,omitempty"`
	Relists         int            `json:"relists,omitempty"`
	History         []HistoryEntry `json:"history"`
}

func NewAttempt(id string, req credit.Request, p pricing.Result, at time.Time) *Attempt {
	return &Attempt{
		ID:      id,
		Request: req.Clone(),
		Pricing: p,
		Stage:   StageAnalyzing,
		History: []HistoryEntry{{Stage: StageAnalyzing, At: at}},
	}
}

var edges = map[Stage][]Stage{
	StageAnalyzing:         {StagePoolSearch, StageMarketplaceSearch},
	StagePoolSearch:        {StagePoolMatched, StagePoolNoMatch},
	StagePoolMatched:       {StageApproved},
	StagePoolNoMatch:       {StageMarketplaceSearch, StageRejected},
	StageMarketplaceSearch: {StageApproved, StageRejected},
}

// CanTransition applies the stage graph and the approval mode guards. Any
// non-terminal stage may be forced to REJECTED for internal_error or cancelled.
func CanTransition(from, to Stage, mode credit.ApprovalMode, reason Reason) bool {
	if from.Terminal() {
		return false
	}
	if to == StageRejected && (reason == ReasonInternalError || reason == ReasonCancelled) {
		return true
	}
	if !slices.Contains(edges[from], to) {
		return false
	}
	switch {
	case from == StageAnalyzing && to == StagePoolSearch:
		return mode.UsesPools()
	case from == StageAnalyzing && to == StageMarketplaceSearch:
		return mode == credit.ApprovalManual
	case from == StagePoolNoMatch && to == StageMarketplaceSearch:
		return mode == credit.ApprovalBoth
	case from == StagePoolNoMatch && to == StageRejected:
		return mode == credit.ApprovalAutomatic && reason == ReasonNoPoolMatch
	case to == StageRejected:
		return reason != ""
	}
	return true
}

// Transition moves the attempt and appends to its history. Timestamps never go
// backwards: an entry at or before the previous one is nudged 1ns past it.
func (a *Attempt) Transition(to Stage, at time.Time, reason Reason, cause error) error {
	if !CanTransition(a.Stage, to, a.Request.ApprovalMode, reason) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Stage, to)
	}
	if n := len(a.History); n > 0 && !at.After(a.History[n-1].At) {
		at = a.History[n-1].At.Add(time.Nanosecond)
	}
	e := HistoryEntry{Stage: to, At: at, Reason: reason}
	if cause != nil {
		e.Error = cause.Error()
	}
	a.History = append(a.History, e)
	a.Stage = to
	if to == StageRejected {
		a.Reason = reason
	}
	return nil
}

func (a *Attempt) Stages() []Stage {
	out := make([]Stage, 0, len(a.History))
	for _, h := range a.History {
		out = append(out, h.Stage)
	}
	return out
}

// Snapshot returns a copy that shares no memory with a.
func (a *Attempt) Snapshot() *Attempt {
	out := *a
	out.Request = a.Request.Clone()
	out.History = slices.Clone(a.History)
	return &out
}
