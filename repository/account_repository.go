package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"signalbot/database"
	"signalbot/models"
	"signalbot/service"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolation          = "23505"
	redemptionCodeConstraint = "accounts_redemption_code_key"
)

const accountColumns = `
	telegram_id, username, balance, redemption_code, referred_by, referrals,
	total_signals, free_signals, promo_used, apk_access, start_bonus_given,
	start_bonus_due_at, created_at, updated_at`

// AccountRepository implements service.AccountRepository on Postgres
type AccountRepository struct {
	q queryable
}

// NewAccountRepository creates an account repository bound to the pool
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{q: db.Pool}
}

func newAccountRepositoryWithTx(tx queryable) *AccountRepository {
	return &AccountRepository{q: tx}
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(
		&a.TelegramID,
		&a.Username,
		&a.Balance,
		&a.RedemptionCode,
		&a.ReferredBy,
		&a.Referrals,
		&a.TotalSignals,
		&a.FreeSignals,
		&a.PromoUsed,
		&a.APKAccess,
		&a.StartBonusGiven,
		&a.StartBonusDueAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByID retrieves an account by its Telegram ID
func (r *AccountRepository) GetByID(ctx context.Context, telegramID int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE telegram_id = $1`

	account, err := scanAccount(r.q.QueryRow(ctx, query, telegramID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %d: %w", telegramID, err)
	}
	return account, nil
}

// GetByIDForUpdate retrieves an account and holds its row lock until the transaction ends
func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, telegramID int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE telegram_id = $1 FOR UPDATE`

	account, err := scanAccount(r.q.QueryRow(ctx, query, telegramID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock account %d: %w", telegramID, err)
	}
	return account, nil
}

// Create inserts a new account. It returns nil when the id is already taken,
// which lets concurrent first contacts converge on a single row.
func (r *AccountRepository) Create(ctx context.Context, account *models.NewAccount) (*models.Account, error) {
	query := `
		INSERT INTO accounts (telegram_id, username, balance, redemption_code, free_signals, start_bonus_due_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (telegram_id) DO NOTHING
		RETURNING ` + accountColumns

	// a failed insert must not abort the caller's transaction
	sp, err := r.q.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open savepoint: %w", err)
	}
	defer sp.Rollback(ctx)

	created, err := scanAccount(sp.QueryRow(ctx, query,
		account.TelegramID,
		account.Username,
		account.InitialBalance,
		account.RedemptionCode,
		account.FreeSignals,
		account.StartBonusDueAt,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if isRedemptionCodeConflict(err) {
		return nil, service.ErrDuplicateCode
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create account %d: %w", account.TelegramID, err)
	}
	if err := sp.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to release savepoint: %w", err)
	}
	return created, nil
}

func isRedemptionCodeConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == uniqueViolation &&
		pgErr.ConstraintName == redemptionCodeConstraint
}

// UpdateUsername refreshes the display name of an account
func (r *AccountRepository) UpdateUsername(ctx context.Context, telegramID int64, username string) error {
	query := `
		UPDATE accounts
		SET username = $1, updated_at = NOW()
		WHERE telegram_id = $2 AND username IS DISTINCT FROM $1
	`
	if _, err := r.q.Exec(ctx, query, username, telegramID); err != nil {
		return fmt.Errorf("failed to update username for account %d: %w", telegramID, err)
	}
	return nil
}

// UpdateBalance overwrites the balance of an account
func (r *AccountRepository) UpdateBalance(ctx context.Context, telegramID int64, newBalance int64) error {
	query := `UPDATE accounts SET balance = $1, updated_at = NOW() WHERE telegram_id = $2`

	result, err := r.q.Exec(ctx, query, newBalance, telegramID)
	if err != nil {
		return fmt.Errorf("failed to update balance for account %d: %w", telegramID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("account %d not found", telegramID)
	}
	return nil
}

// CodeExists reports whether a redemption code is already assigned
func (r *AccountRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE redemption_code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check redemption code: %w", err)
	}
	return exists, nil
}

// SetReferredBy sets the referrer once; false when the account already had one
func (r *AccountRepository) SetReferredBy(ctx context.Context, telegramID, referrerID int64) (bool, error) {
	query := `
		UPDATE accounts
		SET referred_by = $1, updated_at = NOW()
		WHERE telegram_id = $2 AND referred_by IS NULL AND telegram_id <> $1
	`
	result, err := r.q.Exec(ctx, query, referrerID, telegramID)
	if err != nil {
		return false, fmt.Errorf("failed to set referrer of account %d: %w", telegramID, err)
	}
	return result.RowsAffected() == 1, nil
}

// IncrementReferrals bumps the invitee counter of an inviter
func (r *AccountRepository) IncrementReferrals(ctx context.Context, telegramID int64) error {
	query := `UPDATE accounts SET referrals = referrals + 1, updated_at = NOW() WHERE telegram_id = $1`
	if _, err := r.q.Exec(ctx, query, telegramID); err != nil {
		return fmt.Errorf("failed to increment referrals of account %d: %w", telegramID, err)
	}
	return nil
}

// MarkStartBonusGiven flips the flag; false when it was already set
func (r *AccountRepository) MarkStartBonusGiven(ctx context.Context, telegramID int64) (bool, error) {
	query := `
		UPDATE accounts
		SET start_bonus_given = TRUE, updated_at = NOW()
		WHERE telegram_id = $1 AND start_bonus_given = FALSE
	`
	result, err := r.q.Exec(ctx, query, telegramID)
	if err != nil {
		return false, fmt.Errorf("failed to mark start bonus for account %d: %w", telegramID, err)
	}
	return result.RowsAffected() == 1, nil
}

// MarkPromoUsed flips promo_used and unlocks APK access; false when already used
func (r *AccountRepository) MarkPromoUsed(ctx context.Context, telegramID int64) (bool, error) {
	query := `
		UPDATE accounts
		SET promo_used = TRUE, apk_access = TRUE, updated_at = NOW()
		WHERE telegram_id = $1 AND promo_used = FALSE
	`
	result, err := r.q.Exec(ctx, query, telegramID)
	if err != nil {
		return false, fmt.Errorf("failed to mark promo used for account %d: %w", telegramID, err)
	}
	return result.RowsAffected() == 1, nil
}

// SetAPKAccess grants or revokes APK access
func (r *AccountRepository) SetAPKAccess(ctx context.Context, telegramID int64, granted bool) error {
	query := `UPDATE accounts SET apk_access = $1, updated_at = NOW() WHERE telegram_id = $2`

	result, err := r.q.Exec(ctx, query, granted, telegramID)
	if err != nil {
		return fmt.Errorf("failed to set apk access for account %d: %w", telegramID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("account %d not found", telegramID)
	}
	return nil
}

// RecordSignal counts a signal, consuming a free one when useFree is set
func (r *AccountRepository) RecordSignal(ctx context.Context, telegramID int64, useFree bool) error {
	query := `
		UPDATE accounts
		SET total_signals = total_signals + 1,
		    free_signals = CASE WHEN $2 THEN GREATEST(free_signals - 1, 0) ELSE free_signals END,
		    updated_at = NOW()
		WHERE telegram_id = $1
	`
	if _, err := r.q.Exec(ctx, query, telegramID, useFree); err != nil {
		return fmt.Errorf("failed to record signal for account %d: %w", telegramID, err)
	}
	return nil
}

// GetDueStartBonuses returns up to limit accounts whose start bonus is overdue
func (r *AccountRepository) GetDueStartBonuses(ctx context.Context, now time.Time, limit int) ([]int64, error) {
	query := `
		SELECT telegram_id
		FROM accounts
		WHERE start_bonus_given = FALSE
		  AND start_bonus_due_at IS NOT NULL
		  AND start_bonus_due_at <= $1
		ORDER BY start_bonus_due_at
		LIMIT $2
	`
	rows, err := r.q.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query due start bonuses: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to scan due start bonuses: %w", err)
	}
	return ids, nil
}

// ApplyImport copies the non-balance fields of a legacy record onto an account.
// One-shot flags are only ever raised, and a raised start bonus flag clears the schedule.
func (r *AccountRepository) ApplyImport(ctx context.Context, record *models.ImportedAccount) error {
	query := `
		UPDATE accounts
		SET username = $2,
		    redemption_code = $3,
		    total_signals = $4,
		    free_signals = $5,
		    promo_used = promo_used OR $6,
		    apk_access = apk_access OR $7,
		    start_bonus_given = start_bonus_given OR $8,
		    start_bonus_due_at = CASE WHEN start_bonus_given OR $8 THEN NULL ELSE start_bonus_due_at END,
		    updated_at = NOW()
		WHERE telegram_id = $1
	`
	result, err := r.q.Exec(ctx, query,
		record.TelegramID,
		record.Username,
		record.RedemptionCode,
		record.TotalSignals,
		record.FreeSignals,
		record.PromoUsed,
		record.APKAccess,
		record.StartBonusGiven,
	)
	if err != nil {
		return fmt.Errorf("failed to import account %d: %w", record.TelegramID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("account %d not found", record.TelegramID)
	}
	return nil
}

// GetLedgerStats aggregates accounts, referral edges and bonus history
func (r *AccountRepository) GetLedgerStats(ctx context.Context) (*models.LedgerStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM accounts),
			(SELECT COALESCE(SUM(balance), 0) FROM accounts),
			(SELECT COUNT(*) FROM referrals),
			(SELECT COUNT(*) FROM balance_history WHERE reason IN ('start_bonus', 'referral_bonus')),
			(SELECT COUNT(*) FROM accounts WHERE start_bonus_given),
			(SELECT COUNT(*) FROM accounts WHERE referred_by IS NOT NULL),
			(SELECT COUNT(*) FROM accounts WHERE promo_used)
	`
	var stats models.LedgerStats
	err := r.q.QueryRow(ctx, query).Scan(
		&stats.TotalAccounts,
		&stats.TotalBalance,
		&stats.TotalReferrals,
		&stats.TotalBonusEvents,
		&stats.StartBonusesGiven,
		&stats.ReferredAccounts,
		&stats.PromoRedemptions,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate ledger stats: %w", err)
	}
	return &stats, nil
}
