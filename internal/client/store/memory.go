package store

import (
	"context"
	"fmt"
	"sync"

	"authgate/internal/client/models"
	"authgate/pkg/platform/sentinel"
)

// InMemory is a client registry for tests and single-instance deployments.
// Records are copied on the way in and out so callers cannot mutate shared state.
type InMemory struct {
	mu      sync.RWMutex
	clients map[string]models.Client
}

// NewInMemory constructs an empty in-memory client registry.
func NewInMemory() *InMemory {
	return &InMemory{clients: make(map[string]models.Client)}
}

// Create registers a client. Returns ErrConflict when the id is taken.
func (s *InMemory) Create(_ context.Context, c *models.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.clients[c.ID]; exists {
		return fmt.Errorf("client %q: %w", c.ID, sentinel.ErrConflict)
	}
	s.clients[c.ID] = clone(c)
	return nil
}

// FindByID returns the client registered under id.
func (s *InMemory) FindByID(_ context.Context, id string) (*models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[id]
	if !ok {
		return nil, fmt.Errorf("client not found: %w", sentinel.ErrNotFound)
	}
	out := clone(&c)
	return &out, nil
}

func clone(c *models.Client) models.Client {
	out := *c
	out.RedirectURIs = append([]string(nil), c.RedirectURIs...)
	out.DefaultScopes = append([]string(nil), c.DefaultScopes...)
	return out
}
