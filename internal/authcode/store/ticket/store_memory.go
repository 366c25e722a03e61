package ticket

import (
	"context"
	"fmt"
	"sync"
	"time"

	"authgate/internal/authcode/models"
	"authgate/pkg/platform/sentinel"
)

// Error Contract:
//   - Put returns ErrConflict when the ticket id is already bound
//   - TakeIfValid returns ErrNotFound for unknown or consumed tickets and
//     ErrExpired for tickets past ExpiresAt; both remove nothing further
//   - infrastructure failures are wrapped with context

// InMemoryTicketStore keeps ticket bindings in memory for tests/dev.
type InMemoryTicketStore struct {
	mu       sync.Mutex
	bindings map[string]*models.TicketBinding
}

// New constructs an empty in-memory ticket store.
func New() *InMemoryTicketStore {
	return &InMemoryTicketStore{
		bindings: make(map[string]*models.TicketBinding),
	}
}

// Put records a binding under its ticket id.
func (s *InMemoryTicketStore) Put(_ context.Context, binding *models.TicketBinding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.bindings[binding.Ticket]; exists {
		return fmt.Errorf("ticket already bound: %w", sentinel.ErrConflict)
	}
	stored := *binding
	s.bindings[binding.Ticket] = &stored
	return nil
}

// TakeIfValid removes the binding and returns it if it has not expired.
// Removal and lookup happen under one lock, so of many concurrent callers
// exactly one receives the binding.
func (s *InMemoryTicketStore) TakeIfValid(_ context.Context, ticket string, now time.Time) (*models.TicketBinding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	binding, ok := s.bindings[ticket]
	if !ok {
		return nil, fmt.Errorf("ticket not found: %w", sentinel.ErrNotFound)
	}
	delete(s.bindings, ticket)

	if binding.IsExpired(now) {
		return nil, fmt.Errorf("ticket expired at %s: %w", binding.ExpiresAt.Format(time.RFC3339), sentinel.ErrExpired)
	}
	return binding, nil
}

// DeleteExpired removes all bindings that have expired as of now.
// The time parameter is injected for testability.
func (s *InMemoryTicketStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for id, binding := range s.bindings {
		if binding.IsExpired(now) {
			delete(s.bindings, id)
			deleted++
		}
	}
	return deleted, nil
}

// Len returns the number of live bindings.
func (s *InMemoryTicketStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bindings)
}
