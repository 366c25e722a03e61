package authorizationcode

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"authgate/internal/authcode/models"
	"authgate/pkg/platform/sentinel"
)

type AuthCodeStoreSuite struct {
	suite.Suite
	store *InMemoryAuthorizationCodeStore
	now   time.Time
}

func (s *AuthCodeStoreSuite) SetupTest() {
	s.store = New()
	s.now = time.Now()
}

func TestAuthCodeStoreSuite(t *testing.T) {
	suite.Run(t, new(AuthCodeStoreSuite))
}

func (s *AuthCodeStoreSuite) record(code string, ttl time.Duration) *models.AuthorizationCodeRecord {
	return &models.AuthorizationCodeRecord{
		Code:        code,
		ClientID:    "c1",
		UserID:      uuid.New(),
		RedirectURI: "https://app/cb",
		Scope:       "profile",
		CreatedAt:   s.now,
		ExpiresAt:   s.now.Add(ttl),
	}
}

func (s *AuthCodeStoreSuite) TestCodeLookup() {
	ctx := context.Background()

	s.Run("returns stored code when found", func() {
		rec := s.record("authz_123456", 10*time.Minute)
		s.Require().NoError(s.store.Create(ctx, rec))

		found, err := s.store.FindByCode(ctx, "authz_123456")
		s.Require().NoError(err)
		s.Equal(rec, found)
	})

	s.Run("returns ErrNotFound when code does not exist", func() {
		_, err := s.store.FindByCode(ctx, "non_existent_code")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("rejects duplicate code", func() {
		s.Require().ErrorIs(s.store.Create(ctx, s.record("authz_123456", time.Minute)), sentinel.ErrConflict)
	})
}

func (s *AuthCodeStoreSuite) TestStoredRecordIsCopied() {
	ctx := context.Background()
	rec := s.record("authz_copy", time.Minute)
	s.Require().NoError(s.store.Create(ctx, rec))
	rec.RedirectURI = "https://evil/cb"

	found, err := s.store.FindByCode(ctx, "authz_copy")
	s.Require().NoError(err)
	s.Equal("https://app/cb", found.RedirectURI)
}

func (s *AuthCodeStoreSuite) TestDeleteExpiredCodes() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.record("old", -time.Second)))
	s.Require().NoError(s.store.Create(ctx, s.record("new", time.Hour)))

	deleted, err := s.store.DeleteExpiredCodes(ctx, s.now)
	s.Require().NoError(err)
	s.Equal(1, deleted)

	_, err = s.store.FindByCode(ctx, "new")
	s.Require().NoError(err)
}
