package models

import (
	"time"
)

// Account represents a Telegram user of the bot with their point balance
type Account struct {
	TelegramID      int64      `db:"telegram_id"`
	Username        string     `db:"username"`
	Balance         int64      `db:"balance"`
	RedemptionCode  string     `db:"redemption_code"`
	ReferredBy      *int64     `db:"referred_by"`
	Referrals       int        `db:"referrals"`
	TotalSignals    int        `db:"total_signals"`
	FreeSignals     int        `db:"free_signals"`
	PromoUsed       bool       `db:"promo_used"`
	APKAccess       bool       `db:"apk_access"`
	StartBonusGiven bool       `db:"start_bonus_given"`
	StartBonusDueAt *time.Time `db:"start_bonus_due_at"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

// HasReferrer reports whether the account has already been attributed to an inviter
func (a *Account) HasReferrer() bool {
	return a.ReferredBy != nil
}

// HasSufficientBalance checks if the account can cover a debit of amount
func (a *Account) HasSufficientBalance(amount int64) bool {
	return a.Balance >= amount
}

// StartBonusPending reports whether a delayed start bonus is still owed
func (a *Account) StartBonusPending() bool {
	return !a.StartBonusGiven && a.StartBonusDueAt != nil
}

// NewAccount holds the values used when inserting a brand new account
type NewAccount struct {
	TelegramID      int64
	Username        string
	InitialBalance  int64
	RedemptionCode  string
	FreeSignals     int
	StartBonusDueAt *time.Time
}
