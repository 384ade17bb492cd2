package service

import (
	"context"
	"io"
	"time"

	"signalbot/events"
	"signalbot/models"
)

// AccountRepository defines the interface for account data access.
// Getters return nil without an error when the account does not exist.
type AccountRepository interface {
	// GetByID retrieves an account by its Telegram ID
	GetByID(ctx context.Context, telegramID int64) (*models.Account, error)

	// GetByIDForUpdate retrieves an account and locks its row until the transaction ends
	GetByIDForUpdate(ctx context.Context, telegramID int64) (*models.Account, error)

	// Create inserts a new account, returning nil when the id already exists
	Create(ctx context.Context, account *models.NewAccount) (*models.Account, error)

	// UpdateUsername refreshes the display name
	UpdateUsername(ctx context.Context, telegramID int64, username string) error

	// UpdateBalance overwrites the balance
	UpdateBalance(ctx context.Context, telegramID int64, newBalance int64) error

	// CodeExists reports whether a redemption code is already assigned
	CodeExists(ctx context.Context, code string) (bool, error)

	// SetReferredBy attributes the account to referrerID unless it already has a referrer
	SetReferredBy(ctx context.Context, telegramID, referrerID int64) (bool, error)

	// IncrementReferrals bumps the invitee counter of an inviter
	IncrementReferrals(ctx context.Context, telegramID int64) error

	// MarkStartBonusGiven flips start_bonus_given, false when it was already set
	MarkStartBonusGiven(ctx context.Context, telegramID int64) (bool, error)

	// MarkPromoUsed flips promo_used and unlocks APK access, false when already used
	MarkPromoUsed(ctx context.Context, telegramID int64) (bool, error)

	// SetAPKAccess grants or revokes APK access
	SetAPKAccess(ctx context.Context, telegramID int64, granted bool) error

	// RecordSignal counts a handed out signal, consuming a free one when useFree is set
	RecordSignal(ctx context.Context, telegramID int64, useFree bool) error

	// GetDueStartBonuses returns accounts whose start bonus is due at now and not yet given
	GetDueStartBonuses(ctx context.Context, now time.Time, limit int) ([]int64, error)

	// ApplyImport overwrites the non-balance fields of an account from a legacy record
	ApplyImport(ctx context.Context, record *models.ImportedAccount) error

	// GetLedgerStats aggregates the whole ledger
	GetLedgerStats(ctx context.Context) (*models.LedgerStats, error)
}

// ReferralRepository defines the interface for referral edge access
type ReferralRepository interface {
	// Create inserts an edge, false when the referred account already has one
	Create(ctx context.Context, referrerID, referredID int64, bonusGiven bool) (bool, error)

	// GetByReferred returns the edge of an invitee
	GetByReferred(ctx context.Context, referredID int64) (*models.Referral, error)

	// GetByReferredForUpdate returns the edge of an invitee and locks it
	GetByReferredForUpdate(ctx context.Context, referredID int64) (*models.Referral, error)

	// MarkBonusPaid records the payout, false when it was already paid
	MarkBonusPaid(ctx context.Context, referredID int64, amount int64) (bool, error)

	// GetSummary returns the referral counters of an inviter
	GetSummary(ctx context.Context, referrerID int64) (*models.ReferralSummary, error)
}

// BalanceHistoryRepository defines the interface for balance history tracking
type BalanceHistoryRepository interface {
	// Record creates a new balance history entry
	Record(ctx context.Context, history *models.BalanceHistory) error

	// GetByAccount returns the most recent entries of an account
	GetByAccount(ctx context.Context, telegramID int64, limit int) ([]*models.BalanceHistory, error)

	// SumByAccount returns the sum of all change amounts of an account
	SumByAccount(ctx context.Context, telegramID int64) (int64, error)
}

// SettingsRepository stores admin editable bot settings
type SettingsRepository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, updatedBy int64) error
	Delete(ctx context.Context, key string) error
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and flushes pending events
	Commit() error

	// Rollback rolls back the transaction, a no-op after Commit
	Rollback() error

	// Repository getters
	AccountRepository() AccountRepository
	ReferralRepository() ReferralRepository
	BalanceHistoryRepository() BalanceHistoryRepository
	SettingsRepository() SettingsRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// LedgerService owns accounts, balances and their history
type LedgerService interface {
	// GetOrCreateAccount returns the account, creating it on first contact
	GetOrCreateAccount(ctx context.Context, telegramID int64, username string) (*models.Account, bool, error)

	// GetAccount returns ErrAccountNotFound for unknown ids
	GetAccount(ctx context.Context, telegramID int64) (*models.Account, error)

	// ApplyDelta changes the balance and appends one history entry atomically
	ApplyDelta(ctx context.Context, telegramID int64, amount int64, reason models.TransactionType, metadata map[string]any) (int64, error)

	// GenerateUniqueCode returns an unassigned redemption code
	GenerateUniqueCode(ctx context.Context) (string, error)

	// AggregateStats returns ledger wide totals
	AggregateStats(ctx context.Context) (*models.LedgerStats, error)

	// History returns the most recent balance changes of an account
	History(ctx context.Context, telegramID int64, limit int) ([]*models.BalanceHistory, error)

	// Snapshot returns an account with its referral edge and recent history
	Snapshot(ctx context.Context, telegramID int64, historyLimit int) (*models.AccountSnapshot, error)

	// AdminAdjust credits or debits an account on behalf of an admin
	AdminAdjust(ctx context.Context, adminID, telegramID int64, amount int64) (int64, error)

	// MarkStartBonusGiven flips the start bonus flag without crediting
	MarkStartBonusGiven(ctx context.Context, adminID, telegramID int64) (bool, error)

	// SetAPKAccess grants or revokes APK access
	SetAPKAccess(ctx context.Context, adminID, telegramID int64, granted bool) error

	// Redemption returns the withdrawal code and eligibility
	Redemption(ctx context.Context, telegramID int64) (*models.RedemptionInfo, error)
}

// ReferralService runs the referral state machine
type ReferralService interface {
	// Link attributes referredID to inviterID, first writer wins
	Link(ctx context.Context, referredID, inviterID int64) (*models.LinkResult, error)

	// PayBonus pays the inviter of referredID at most once
	PayBonus(ctx context.Context, referredID int64) (*models.BonusResult, error)

	// Summary returns the referral counters of an inviter
	Summary(ctx context.Context, telegramID int64) (*models.ReferralSummary, error)
}

// PromoService issues the start bonus and the promo unlock
type PromoService interface {
	// GrantStartBonus credits the start bonus at most once
	GrantStartBonus(ctx context.Context, telegramID int64) (*models.BonusResult, error)

	// GrantDueStartBonuses grants every persisted start bonus due at now
	GrantDueStartBonuses(ctx context.Context, now time.Time) (int, error)

	// Redeem checks text for the promo keyword and unlocks the promo once
	Redeem(ctx context.Context, telegramID int64, text string) (*models.PromoResult, error)
}

// SignalService hands out game signals
type SignalService interface {
	ConsumeSignal(ctx context.Context, telegramID int64) (*models.SignalResult, error)
}

// OnboardingService handles the first contact of a user
type OnboardingService interface {
	Start(ctx context.Context, telegramID int64, username, startParam string) (*models.StartResult, error)
}

// SettingsService manages admin editable links
type SettingsService interface {
	APKURL(ctx context.Context) (string, error)
	SetAPKURL(ctx context.Context, adminID int64, url string) error
	RemoveAPKURL(ctx context.Context, adminID int64) error
}

// LegacyImporter loads accounts exported by the previous bot
type LegacyImporter interface {
	Import(ctx context.Context, r io.Reader) (*models.ImportReport, error)
}

// StartBonusScheduler arms delayed start bonus grants
type StartBonusScheduler interface {
	Schedule(telegramID int64, dueAt time.Time)
}
