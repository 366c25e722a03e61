package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"authgate/internal/user/models"
	dErrors "authgate/pkg/domain-errors"
	"authgate/pkg/platform/sentinel"
	"authgate/pkg/secrets"
)

// ErrInvalidCredentials is returned by Verify for an unknown username or a
// wrong password. Callers cannot tell the two cases apart.
var ErrInvalidCredentials = dErrors.New(dErrors.CodeUnauthorized, "invalid username or password")

// missingUserPassword is hashed once and compared against when the username
// is unknown, so both rejection paths pay for one bcrypt comparison.
const missingUserPassword = "authgate-missing-user"

var (
	missingUserHashOnce sync.Once
	missingUserHash     string
)

func dummyHash() string {
	missingUserHashOnce.Do(func() {
		if hash, err := secrets.Hash(missingUserPassword); err == nil {
			missingUserHash = hash
		}
	})
	return missingUserHash
}

// InMemory keeps users keyed by lower-cased username.
type InMemory struct {
	mu     sync.RWMutex
	users  map[string]*models.User
	verify func(secret, hash string) error
}

// NewInMemory constructs an empty user store.
func NewInMemory() *InMemory {
	return &InMemory{
		users:  make(map[string]*models.User),
		verify: secrets.Verify,
	}
}

// Register hashes password and stores a new user.
func (s *InMemory) Register(_ context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "username cannot be empty")
	}
	hash, err := secrets.Hash(password)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(username)
	if _, exists := s.users[key]; exists {
		return nil, fmt.Errorf("user %q: %w", username, sentinel.ErrConflict)
	}
	u := &models.User{ID: uuid.New(), Username: username, PasswordHash: hash}
	s.users[key] = u
	out := *u
	return &out, nil
}

// Verify compares the credentials against the stored hash.
func (s *InMemory) Verify(_ context.Context, creds models.Credentials) (*models.User, error) {
	s.mu.RLock()
	u, ok := s.users[strings.ToLower(strings.TrimSpace(creds.Username))]
	s.mu.RUnlock()
	if !ok {
		_ = s.verify(creds.Password, dummyHash())
		return nil, ErrInvalidCredentials
	}
	if err := s.verify(creds.Password, u.PasswordHash); err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			return nil, ErrInvalidCredentials
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify credentials")
	}
	out := *u
	return &out, nil
}

// SeedDemoUser registers user "demo" with the given password. An existing
// demo user is kept.
func SeedDemoUser(ctx context.Context, s *InMemory, password string) error {
	if _, err := s.Register(ctx, "demo", password); err != nil && !errors.Is(err, sentinel.ErrConflict) {
		return err
	}
	return nil
}
