package origination

import "context"

// Store keeps attempts. Get returns a snapshot; callers persist changes with Update.
type Store interface {
	Create(ctx context.Context, a *Attempt) error
	Get(ctx context.Context, id string) (*Attempt, error)
	Update(ctx context.Context, a *Attempt) error
	// ListActive returns attempts that have not reached a terminal stage.
	ListActive(ctx context.Context) ([]*Attempt, error)
}
