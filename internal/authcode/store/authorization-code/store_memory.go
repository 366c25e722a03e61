package authorizationcode

import (
	"context"
	"fmt"
	"sync"
	"time"

	"authgate/internal/authcode/models"
	"authgate/pkg/platform/sentinel"
)

// Error Contract:
//   - Create returns ErrConflict for a code that already exists
//   - FindByCode returns ErrNotFound for unknown codes

// InMemoryAuthorizationCodeStore stores authorization codes minted on consent.
type InMemoryAuthorizationCodeStore struct {
	mu        sync.RWMutex
	authCodes map[string]*models.AuthorizationCodeRecord
}

// New constructs an empty in-memory auth code store.
func New() *InMemoryAuthorizationCodeStore {
	return &InMemoryAuthorizationCodeStore{
		authCodes: make(map[string]*models.AuthorizationCodeRecord),
	}
}

func (s *InMemoryAuthorizationCodeStore) Create(_ context.Context, record *models.AuthorizationCodeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.authCodes[record.Code]; exists {
		return fmt.Errorf("authorization code exists: %w", sentinel.ErrConflict)
	}
	stored := *record
	s.authCodes[record.Code] = &stored
	return nil
}

// FindByCode returns a copy of the record minted under code. The token
// exchange that redeems codes lives outside this service.
func (s *InMemoryAuthorizationCodeStore) FindByCode(_ context.Context, code string) (*models.AuthorizationCodeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if record, ok := s.authCodes[code]; ok {
		out := *record
		return &out, nil
	}
	return nil, fmt.Errorf("authorization code not found: %w", sentinel.ErrNotFound)
}

// DeleteExpiredCodes removes all authorization codes that have expired as of now.
// The time parameter is injected for testability (no hidden time.Now() calls).
func (s *InMemoryAuthorizationCodeStore) DeleteExpiredCodes(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deletedCount := 0
	for code, record := range s.authCodes {
		if record.IsExpired(now) {
			delete(s.authCodes, code)
			deletedCount++
		}
	}
	return deletedCount, nil
}
