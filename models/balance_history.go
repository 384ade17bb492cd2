package models

import (
	"errors"
	"time"
)

// BalanceHistory represents a single append-only change to an account balance
type BalanceHistory struct {
	ID                  int64           `db:"id"`
	TelegramID          int64           `db:"telegram_id"`
	BalanceBefore       int64           `db:"balance_before"`
	BalanceAfter        int64           `db:"balance_after"`
	ChangeAmount        int64           `db:"change_amount"`
	TransactionType     TransactionType `db:"reason"`
	TransactionMetadata map[string]any  `db:"metadata"`
	CreatedAt           time.Time       `db:"created_at"`
}

// ValidateTransaction performs basic validation on the entry
func (bh *BalanceHistory) ValidateTransaction() error {
	if bh.ChangeAmount == 0 {
		return errors.New("change amount cannot be zero")
	}

	if bh.BalanceAfter != bh.BalanceBefore+bh.ChangeAmount {
		return errors.New("balance calculation is inconsistent")
	}

	return nil
}

// GetTransactionDescription returns a human-readable description of the entry
func (bh *BalanceHistory) GetTransactionDescription() string {
	switch bh.TransactionType {
	case TransactionTypeInitial:
		return "Starting balance"
	case TransactionTypeStartBonus:
		return "Start bonus"
	case TransactionTypeReferralBonus:
		return "Referral bonus"
	case TransactionTypeAdminAdjustment:
		return "Admin adjustment"
	case TransactionTypeSignalPurchase:
		return "Signal"
	case TransactionTypeLegacyImport:
		return "Legacy import"
	default:
		return string(bh.TransactionType)
	}
}
