package testutil

import (
	"fmt"
	"time"

	"signalbot/models"
)

// NewTestAccount returns an account value with sensible defaults
func NewTestAccount(telegramID int64, username string) *models.Account {
	now := time.Now()
	return &models.Account{
		TelegramID:     telegramID,
		Username:       username,
		RedemptionCode: TestCode(telegramID),
		FreeSignals:    3,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// NewTestAccountWithBalance returns an account value with a specific balance
func NewTestAccountWithBalance(telegramID int64, username string, balance int64) *models.Account {
	account := NewTestAccount(telegramID, username)
	account.Balance = balance
	return account
}

// NewAccountParams returns the insert parameters for a fresh account
func NewAccountParams(telegramID int64, username string, initialBalance int64) *models.NewAccount {
	return &models.NewAccount{
		TelegramID:     telegramID,
		Username:       username,
		InitialBalance: initialBalance,
		RedemptionCode: TestCode(telegramID),
		FreeSignals:    3,
	}
}

// TestCode derives a deterministic 7-digit redemption code from an id
func TestCode(telegramID int64) string {
	return fmt.Sprintf("%07d", telegramID%10_000_000)
}

// NewTestBalanceHistory returns a consistent history entry
func NewTestBalanceHistory(telegramID int64, before, change int64, transactionType models.TransactionType) *models.BalanceHistory {
	return &models.BalanceHistory{
		TelegramID:      telegramID,
		BalanceBefore:   before,
		BalanceAfter:    before + change,
		ChangeAmount:    change,
		TransactionType: transactionType,
		TransactionMetadata: map[string]any{
			"test": true,
		},
		CreatedAt: time.Now(),
	}
}

// NewTestReferral returns an unpaid referral edge
func NewTestReferral(referrerID, referredID int64) *models.Referral {
	return &models.Referral{
		ReferrerID: referrerID,
		ReferredID: referredID,
		CreatedAt:  time.Now(),
	}
}
