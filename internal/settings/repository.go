package settings

import "context"

// Repository persists settings keyed by user id.
type Repository interface {
	// Get returns ErrSettingsNotFound for users without saved settings.
	Get(ctx context.Context, userID string) (*Settings, error)

	Upsert(ctx context.Context, s *Settings) error

	// Delete is idempotent.
	Delete(ctx context.Context, userID string) error
}
