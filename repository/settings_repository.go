package repository

import (
	"context"
	"errors"
	"fmt"

	"signalbot/database"

	"github.com/jackc/pgx/v5"
)

// SettingsRepository implements service.SettingsRepository on the bot_settings table
type SettingsRepository struct {
	q queryable
}

// NewSettingsRepository creates a settings repository bound to the pool
func NewSettingsRepository(db *database.DB) *SettingsRepository {
	return &SettingsRepository{q: db.Pool}
}

func newSettingsRepositoryWithTx(tx queryable) *SettingsRepository {
	return &SettingsRepository{q: tx}
}

// Get returns the value of key and whether it is set
func (r *SettingsRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.q.QueryRow(ctx, `SELECT value FROM bot_settings WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return value, true, nil
}

// Set upserts key
func (r *SettingsRepository) Set(ctx context.Context, key, value string, updatedBy int64) error {
	query := `
		INSERT INTO bot_settings (key, value, updated_by, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_by = EXCLUDED.updated_by, updated_at = NOW()
	`
	if _, err := r.q.Exec(ctx, query, key, value, updatedBy); err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}
	return nil
}

// Delete removes key; deleting a missing key is not an error
func (r *SettingsRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM bot_settings WHERE key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete setting %s: %w", key, err)
	}
	return nil
}
