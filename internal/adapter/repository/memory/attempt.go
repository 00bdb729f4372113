package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"p2p-credit-origination/internal/domain/origination"
)

var ErrDuplicateAttempt = errors.New("attempt already exists")

// AttemptStore keeps snapshots so callers never share an attempt's memory.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts map[string]*origination.Attempt
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{attempts: map[string]*origination.Attempt{}}
}

func (s *AttemptStore) Create(_ context.Context, a *origination.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attempts[a.ID]; ok {
		return ErrDuplicateAttempt
	}
	s.attempts[a.ID] = a.Snapshot()
	return nil
}

func (s *AttemptStore) Get(_ context.Context, id string) (*origination.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.attempts[id]
	if !ok {
		return nil, origination.ErrNotFound
	}
	return a.Snapshot(), nil
}

func (s *AttemptStore) Update(_ context.Context, a *origination.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attempts[a.ID]; !ok {
		return origination.ErrNotFound
	}
	s.attempts[a.ID] = a.Snapshot()
	return nil
}

func (s *AttemptStore) ListActive(_ context.Context) ([]*origination.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*origination.Attempt
	for _, a := range s.attempts {
		if !a.Stage.Terminal() {
			out = append(out, a.Snapshot())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].History[0].At.Before(out[j].History[0].At) })
	return out, nil
}
