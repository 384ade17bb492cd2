package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"signalbot/database"
	"signalbot/models"
)

// BalanceHistoryRepository implements service.BalanceHistoryRepository on Postgres
type BalanceHistoryRepository struct {
	q queryable
}

// NewBalanceHistoryRepository creates a new balance history repository
func NewBalanceHistoryRepository(db *database.DB) *BalanceHistoryRepository {
	return &BalanceHistoryRepository{q: db.Pool}
}

func newBalanceHistoryRepositoryWithTx(tx queryable) *BalanceHistoryRepository {
	return &BalanceHistoryRepository{q: tx}
}

// Record appends a balance history entry and fills in its id and timestamp
func (r *BalanceHistoryRepository) Record(ctx context.Context, history *models.BalanceHistory) error {
	metadata := history.TransactionMetadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction metadata: %w", err)
	}

	query := `
		INSERT INTO balance_history
		(telegram_id, balance_before, balance_after, change_amount, reason, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err = r.q.QueryRow(ctx, query,
		history.TelegramID,
		history.BalanceBefore,
		history.BalanceAfter,
		history.ChangeAmount,
		history.TransactionType,
		metadataJSON,
	).Scan(&history.ID, &history.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record balance history for account %d: %w", history.TelegramID, err)
	}

	return nil
}

// GetByAccount returns the newest entries of an account first
func (r *BalanceHistoryRepository) GetByAccount(ctx context.Context, telegramID int64, limit int) ([]*models.BalanceHistory, error) {
	query := `
		SELECT id, telegram_id, balance_before, balance_after, change_amount, reason, metadata, created_at
		FROM balance_history
		WHERE telegram_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := r.q.Query(ctx, query, telegramID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance history for account %d: %w", telegramID, err)
	}
	defer rows.Close()

	var histories []*models.BalanceHistory
	for rows.Next() {
		var history models.BalanceHistory
		var metadataJSON []byte

		err := rows.Scan(
			&history.ID,
			&history.TelegramID,
			&history.BalanceBefore,
			&history.BalanceAfter,
			&history.ChangeAmount,
			&history.TransactionType,
			&metadataJSON,
			&history.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan balance history: %w", err)
		}

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &history.TransactionMetadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal transaction metadata: %w", err)
			}
		}

		histories = append(histories, &history)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate balance history: %w", err)
	}

	return histories, nil
}

// SumByAccount returns the sum of every change recorded for an account
func (r *BalanceHistoryRepository) SumByAccount(ctx context.Context, telegramID int64) (int64, error) {
	var sum int64
	err := r.q.QueryRow(ctx,
		`SELECT COALESCE(SUM(change_amount), 0) FROM balance_history WHERE telegram_id = $1`,
		telegramID,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum balance history for account %d: %w", telegramID, err)
	}
	return sum, nil
}
