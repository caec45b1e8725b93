package settings

import (
	"context"
	"errors"
)

// Repo persists Settings per user
type Repo interface {
	// Get returns ErrNotFound when nothing is stored for userID
	Get(ctx context.Context, userID string) (*Settings, error)

	// Save replaces the stored settings for s.UserID
	Save(ctx context.Context, s *Settings) error

	// Update applies patch to the stored settings, starting from Defaults
	// when none exist, and returns the result
	Update(ctx context.Context, userID string, patch Patch) (*Settings, error)

	// List returns the ids of every user with stored settings
	List(ctx context.Context) ([]string, error)
}

// GetOrDefaults returns stored settings, or Defaults when none exist.
// Other errors are returned with the defaults so callers may fall back.
func GetOrDefaults(ctx context.Context, repo Repo, userID string) (*Settings, error) {
	s, err := repo.Get(ctx, userID)
	if err == nil {
		return s, nil
	}
	if errors.Is(err, ErrNotFound) {
		return Defaults(userID), nil
	}
	return Defaults(userID), err
}
