package repository

import (
	"context"
	"errors"
	"fmt"

	"signalbot/database"
	"signalbot/models"

	"github.com/jackc/pgx/v5"
)

// ReferralRepository implements service.ReferralRepository on Postgres
type ReferralRepository struct {
	q queryable
}

// NewReferralRepository creates a referral repository bound to the pool
func NewReferralRepository(db *database.DB) *ReferralRepository {
	return &ReferralRepository{q: db.Pool}
}

func newReferralRepositoryWithTx(tx queryable) *ReferralRepository {
	return &ReferralRepository{q: tx}
}

// Create inserts the edge for referredID; false when one already exists
func (r *ReferralRepository) Create(ctx context.Context, referrerID, referredID int64, bonusGiven bool) (bool, error) {
	query := `
		INSERT INTO referrals (referrer_id, referred_id, bonus_given, paid_at)
		VALUES ($1, $2, $3, CASE WHEN $3 THEN NOW() END)
		ON CONFLICT (referred_id) DO NOTHING
	`
	result, err := r.q.Exec(ctx, query, referrerID, referredID, bonusGiven)
	if err != nil {
		return false, fmt.Errorf("failed to create referral %d -> %d: %w", referrerID, referredID, err)
	}
	return result.RowsAffected() == 1, nil
}

// GetByReferred returns the edge pointing at referredID
func (r *ReferralRepository) GetByReferred(ctx context.Context, referredID int64) (*models.Referral, error) {
	return r.getByReferred(ctx, referredID, "")
}

// GetByReferredForUpdate returns the edge pointing at referredID and locks it
func (r *ReferralRepository) GetByReferredForUpdate(ctx context.Context, referredID int64) (*models.Referral, error) {
	return r.getByReferred(ctx, referredID, " FOR UPDATE")
}

func (r *ReferralRepository) getByReferred(ctx context.Context, referredID int64, lock string) (*models.Referral, error) {
	query := `
		SELECT id, referrer_id, referred_id, bonus_given, bonus_amount, created_at, paid_at
		FROM referrals
		WHERE referred_id = $1` + lock

	var ref models.Referral
	err := r.q.QueryRow(ctx, query, referredID).Scan(
		&ref.ID,
		&ref.ReferrerID,
		&ref.ReferredID,
		&ref.BonusGiven,
		&ref.BonusAmount,
		&ref.CreatedAt,
		&ref.PaidAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get referral of account %d: %w", referredID, err)
	}
	return &ref, nil
}

// MarkBonusPaid flips bonus_given; false when the bonus was already paid
func (r *ReferralRepository) MarkBonusPaid(ctx context.Context, referredID int64, amount int64) (bool, error) {
	query := `
		UPDATE referrals
		SET bonus_given = TRUE, bonus_amount = $2, paid_at = NOW()
		WHERE referred_id = $1 AND bonus_given = FALSE
	`
	result, err := r.q.Exec(ctx, query, referredID, amount)
	if err != nil {
		return false, fmt.Errorf("failed to mark referral bonus of account %d: %w", referredID, err)
	}
	return result.RowsAffected() == 1, nil
}

// GetSummary returns the referral counters of an inviter
func (r *ReferralRepository) GetSummary(ctx context.Context, referrerID int64) (*models.ReferralSummary, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE bonus_given),
		       COALESCE(SUM(bonus_amount), 0)
		FROM referrals
		WHERE referrer_id = $1
	`
	var summary models.ReferralSummary
	if err := r.q.QueryRow(ctx, query, referrerID).Scan(
		&summary.TotalReferrals,
		&summary.PaidReferrals,
		&summary.TotalEarned,
	); err != nil {
		return nil, fmt.Errorf("failed to get referral summary of account %d: %w", referrerID, err)
	}
	return &summary, nil
}
