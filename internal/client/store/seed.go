package store

import (
	"context"
	"errors"

	"authgate/internal/client/models"
	"authgate/pkg/platform/sentinel"
)

// Creator is satisfied by every client store.
type Creator interface {
	Create(ctx context.Context, c *models.Client) error
}

// SeedDemoClient registers client "c1" of organization "demo" with a single
// redirect URI, for local development. An existing c1 is left untouched.
func SeedDemoClient(ctx context.Context, store Creator) (*models.Client, error) {
	c, err := models.NewClient("c1", "demo", []string{"https://app/cb"}, nil)
	if err != nil {
		return nil, err
	}
	if err := store.Create(ctx, c); err != nil && !errors.Is(err, sentinel.ErrConflict) {
		return nil, err
	}
	return c, nil
}
