package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sunsafe/sunsafe/internal/uv"
)

// PostgresRepository stores settings in the user_settings table. Enums are
// stored by their wire names.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a repository on pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Get loads the user's settings.
func (r *PostgresRepository) Get(ctx context.Context, userID string) (*Settings, error) {
	query := `
		SELECT user_id, skin_type, spf, cloud_condition, aqi, colorblind_safe, alerts_enabled, updated_at
		FROM user_settings
		WHERE user_id = $1
	`

	var (
		s            Settings
		skin, cloud string
	)
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&s.UserID,
		&skin,
		&s.SPF,
		&cloud,
		&s.AQI,
		&s.ColorblindSafe,
		&s.AlertsEnabled,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSettingsNotFound
		}
		return nil, fmt.Errorf("get settings: %w", err)
	}

	if s.SkinType, err = uv.ParseSkinType(skin); err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	if s.Cloud, err = uv.ParseCloudCondition(cloud); err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return &s, nil
}

// Upsert creates or replaces the user's settings.
func (r *PostgresRepository) Upsert(ctx context.Context, s *Settings) error {
	query := `
		INSERT INTO user_settings (user_id, skin_type, spf, cloud_condition, aqi, colorblind_safe, alerts_enabled, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE SET
			skin_type = EXCLUDED.skin_type,
			spf = EXCLUDED.spf,
			cloud_condition = EXCLUDED.cloud_condition,
			aqi = EXCLUDED.aqi,
			colorblind_safe = EXCLUDED.colorblind_safe,
			alerts_enabled = EXCLUDED.alerts_enabled,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.pool.Exec(ctx, query,
		s.UserID,
		s.SkinType.String(),
		s.SPF,
		s.Cloud.String(),
		s.AQI,
		s.ColorblindSafe,
		s.AlertsEnabled,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}

// Delete removes the user's settings.
func (r *PostgresRepository) Delete(ctx context.Context, userID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM user_settings WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete settings: %w", err)
	}
	return nil
}

var _ Repository = (*PostgresRepository)(nil)
