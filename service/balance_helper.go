package service

import (
	"context"
	"fmt"
	"math"

	"signalbot/events"
	"signalbot/models"
)

// RecordBalanceChange records a balance history entry and publishes the matching event.
// Every balance change in the system goes through here.
func RecordBalanceChange(ctx context.Context, uow UnitOfWork, history *models.BalanceHistory) error {
	if err := history.ValidateTransaction(); err != nil {
		return fmt.Errorf("invalid balance change for account %d: %w", history.TelegramID, err)
	}

	if err := uow.BalanceHistoryRepository().Record(ctx, history); err != nil {
		return fmt.Errorf("failed to record balance history: %w", err)
	}

	uow.EventBus().Publish(events.BalanceChangeEvent{
		AccountID:       history.TelegramID,
		OldBalance:      history.BalanceBefore,
		NewBalance:      history.BalanceAfter,
		ChangeAmount:    history.ChangeAmount,
		TransactionType: history.TransactionType,
	})

	return nil
}

// addOverflows reports whether a+b leaves the int64 range
func addOverflows(a, b int64) bool {
	return (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b)
}

// subOverflows reports whether a-b leaves the int64 range
func subOverflows(a, b int64) bool {
	return (b < 0 && a > math.MaxInt64+b) || (b > 0 && a < math.MinInt64+b)
}

// applyDelta moves the balance of an account locked by the caller and records the change.
// account.Balance is updated in place.
func applyDelta(ctx context.Context, uow UnitOfWork, account *models.Account, amount int64, reason models.TransactionType, metadata map[string]any) (*models.BalanceHistory, error) {
	if amount == 0 {
		return nil, ErrInvalidAmount
	}

	before := account.Balance
	if addOverflows(before, amount) {
		return nil, ErrBalanceOverflow
	}
	after := before + amount

	if err := uow.AccountRepository().UpdateBalance(ctx, account.TelegramID, after); err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}

	history := &models.BalanceHistory{
		TelegramID:          account.TelegramID,
		BalanceBefore:       before,
		BalanceAfter:        after,
		ChangeAmount:        amount,
		TransactionType:     reason,
		TransactionMetadata: metadata,
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return nil, err
	}

	account.Balance = after
	return history, nil
}
