package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"authgate/internal/client/models"
	"authgate/pkg/platform/sentinel"
)

type ClientStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *ClientStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestClientStoreSuite(t *testing.T) {
	suite.Run(t, new(ClientStoreSuite))
}

func (s *ClientStoreSuite) TestLookups() {
	s.Run("finds client after creation", func() {
		c, err := models.NewClient("app-1", "acme", []string{"https://app/cb"}, nil)
		s.Require().NoError(err)
		s.Require().NoError(s.store.Create(s.ctx, c))

		found, err := s.store.FindByID(s.ctx, "app-1")
		s.Require().NoError(err)
		s.Equal(c, found)
	})

	s.Run("returns ErrNotFound for unknown id", func() {
		_, err := s.store.FindByID(s.ctx, "missing")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returns ErrConflict for duplicate id", func() {
		c := &models.Client{ID: "dup"}
		s.Require().NoError(s.store.Create(s.ctx, c))
		s.Require().ErrorIs(s.store.Create(s.ctx, c), sentinel.ErrConflict)
	})
}

func (s *ClientStoreSuite) TestIsolation() {
	c := &models.Client{ID: "iso", RedirectURIs: []string{"https://app/cb"}}
	s.Require().NoError(s.store.Create(s.ctx, c))
	c.RedirectURIs[0] = "https://evil/cb"

	found, err := s.store.FindByID(s.ctx, "iso")
	s.Require().NoError(err)
	s.Equal([]string{"https://app/cb"}, found.RedirectURIs)

	found.RedirectURIs[0] = "https://evil/cb"
	again, err := s.store.FindByID(s.ctx, "iso")
	s.Require().NoError(err)
	s.Equal([]string{"https://app/cb"}, again.RedirectURIs)
}

func (s *ClientStoreSuite) TestSeedDemoClient() {
	c, err := SeedDemoClient(s.ctx, s.store)
	s.Require().NoError(err)
	s.Equal("c1", c.ID)

	// idempotent
	_, err = SeedDemoClient(s.ctx, s.store)
	s.Require().NoError(err)

	found, err := s.store.FindByID(s.ctx, "c1")
	s.Require().NoError(err)
	s.Equal([]string{"https://app/cb"}, found.RedirectURIs)
	s.Equal([]string{"profile"}, found.DefaultScopes)
}
