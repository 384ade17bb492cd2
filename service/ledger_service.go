package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"signalbot/events"
	"signalbot/models"

	log "github.com/sirupsen/logrus"
)

// ledgerService implements the LedgerService interface
type ledgerService struct {
	uowFactory UnitOfWorkFactory
	policy     Policy
	codes      CodeGenerator
	now        func() time.Time
}

// NewLedgerService creates a new ledger service
func NewLedgerService(uowFactory UnitOfWorkFactory, policy Policy) LedgerService {
	return &ledgerService{
		uowFactory: uowFactory,
		policy:     policy,
		codes:      RandomCode,
		now:        time.Now,
	}
}

// GetOrCreateAccount returns the account of telegramID, creating it on first contact.
// The second return value is true only for the call that created the row.
func (s *ledgerService) GetOrCreateAccount(ctx context.Context, telegramID int64, username string) (*models.Account, bool, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, false, storageErr("begin transaction", err)
	}
	defer uow.Rollback()

	accounts := uow.AccountRepository()

	account, err := accounts.GetByID(ctx, telegramID)
	if err != nil {
		return nil, false, storageErr("get account", err)
	}
	if account != nil {
		if username != "" && username != account.Username {
			if err := accounts.UpdateUsername(ctx, telegramID, username); err != nil {
				return nil, false, storageErr("update username", err)
			}
			account.Username = username
		}
		if err := uow.Commit(); err != nil {
			return nil, false, storageErr("commit transaction", err)
		}
		return account, false, nil
	}

	code, err := generateUniqueCode(ctx, accounts, s.codes)
	if err != nil {
		return nil, false, storageErr("generate redemption code", err)
	}

	params := &models.NewAccount{
		TelegramID:     telegramID,
		Username:       username,
		InitialBalance: s.policy.StartingBalance,
		RedemptionCode: code,
		FreeSignals:    s.policy.FreeSignals,
	}
	if s.policy.StartBonus > 0 {
		dueAt := s.now().Add(s.policy.StartBonusDelay)
		params.StartBonusDueAt = &dueAt
	}

	account, err = createWithFreshCode(ctx, accounts, s.codes, params)
	if err != nil {
		return nil, false, storageErr("create account", err)
	}
	if account == nil {
		// a concurrent first contact created the row
		account, err = accounts.GetByID(ctx, telegramID)
		if err != nil {
			return nil, false, storageErr("get account", err)
		}
		if account == nil {
			return nil, false, storageErr("get account", fmt.Errorf("account %d vanished after conflict", telegramID))
		}
		if err := uow.Commit(); err != nil {
			return nil, false, storageErr("commit transaction", err)
		}
		return account, false, nil
	}

	if s.policy.StartingBalance != 0 {
		history := &models.BalanceHistory{
			TelegramID:      telegramID,
			BalanceBefore:   0,
			BalanceAfter:    s.policy.StartingBalance,
			ChangeAmount:    s.policy.StartingBalance,
			TransactionType: models.TransactionTypeInitial,
			TransactionMetadata: map[string]any{
				"username": username,
			},
		}
		if err := RecordBalanceChange(ctx, uow, history); err != nil {
			return nil, false, storageErr("record initial balance", err)
		}
	}

	created := events.AccountCreatedEvent{
		AccountID:      telegramID,
		Username:       username,
		InitialBalance: account.Balance,
	}
	if account.StartBonusDueAt != nil {
		created.StartBonusDueAt = account.StartBonusDueAt.Unix()
	}
	uow.EventBus().Publish(created)

	if err := uow.Commit(); err != nil {
		return nil, false, storageErr("commit transaction", err)
	}

	log.WithFields(log.Fields{
		"telegramID": telegramID,
		"username":   username,
	}).Info("Created account")

	return account, true, nil
}

// GetAccount returns ErrAccountNotFound for unknown ids
func (s *ledgerService) GetAccount(ctx context.Context, telegramID int64) (*models.Account, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storageErr("begin transaction", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByID(ctx, telegramID)
	if err != nil {
		return nil, storageErr("get account", err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

// ApplyDelta changes the balance of telegramID by amount and appends one history entry.
// No floor is enforced; callers that debit check the balance themselves.
func (s *ledgerService) ApplyDelta(ctx context.Context, telegramID int64, amount int64, reason models.TransactionType, metadata map[string]any) (int64, error) {
	if amount == 0 {
		return 0, ErrInvalidAmount
	}
	// its negation does not fit in int64
	if amount == math.MinInt64 {
		return 0, ErrBalanceOverflow
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, storageErr("begin transaction", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByIDForUpdate(ctx, telegramID)
	if err != nil {
		return 0, storageErr("lock account", err)
	}
	if account == nil {
		return 0, ErrAccountNotFound
	}

	if _, err := applyDelta(ctx, uow, account, amount, reason, metadata); err != nil {
		return 0, storageErr("apply delta", err)
	}

	if err := uow.Commit(); err != nil {
		return 0, storageErr("commit transaction", err)
	}
	return account.Balance, nil
}

// GenerateUniqueCode returns a redemption code no account holds at the time of the call
func (s *ledgerService) GenerateUniqueCode(ctx context.Context) (string, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return "", storageErr("begin transaction", err)
	}
	defer uow.Rollback()

	code, err := generateUniqueCode(ctx, uow.AccountRepository(), s.codes)
	if err != nil {
		return "", storageErr("generate redemption code", err)
	}
	return code, nil
}

// AggregateStats returns ledger wide totals
func (s *ledgerService) AggregateStats(ctx context.Context) (*models.LedgerStats, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storageErr("begin transaction", err)
	}
	defer uow.Rollback()

	stats, err := uow.AccountRepository().GetLedgerStats(ctx)
	if err != nil {
		return nil, storageErr("aggregate stats", err)
	}
	return stats, nil
}

// History returns the newest balance changes of an account
func (s *ledgerService) History(ctx context.Context, telegramID int64, limit int) ([]*models.BalanceHistory, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storageErr("begin transaction", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByID(ctx, telegramID)
	if err != nil {
		return nil, storageErr("get account", err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}

	history, err := uow.BalanceHistoryRepository().GetByAccount(ctx, telegramID, limit)
	if err != nil {
		return nil, storageErr("get history", err)
	}
	return history, nil
}

// Snapshot gathers everything the admin lookup screen shows
func (s *ledgerService) Snapshot(ctx context.Context, telegramID int64, historyLimit int) (*models.AccountSnapshot, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storageErr("begin transaction", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByID(ctx, telegramID)
	if err != nil {
		return nil, storageErr("get account", err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}

	referral, err := uow.ReferralRepository().GetByReferred(ctx, telegramID)
	if err != nil {
		return nil, storageErr("get referral", err)
	}

	history, err := uow.BalanceHistoryRepository().GetByAccount(ctx, telegramID, historyLimit)
	if err != nil {
		return nil, storageErr("get history", err)
	}

	return &models.AccountSnapshot{
		Account:  account,
		Referral: referral,
		History:  history,
	}, nil
}

// AdminAdjust credits or debits an account. Debits may not take the balance below zero.
func (s *ledgerService) AdminAdjust(ctx context.Context, adminID, telegramID int64, amount int64) (int64, error) {
	if amount == 0 {
		return 0, ErrInvalidAmount
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, storageErr("begin transaction", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByIDForUpdate(ctx, telegramID)
	if err != nil {
		return 0, storageErr("lock account", err)
	}
	if account == nil {
		return 0, ErrAccountNotFound
	}
	if amount < 0 && !account.HasSufficientBalance(-amount) {
		return account.Balance, ErrInsufficientFunds
	}

	metadata := map[string]any{"admin_id": adminID}
	if _, err := applyDelta(ctx, uow, account, amount, models.TransactionTypeAdminAdjustment, metadata); err != nil {
		return 0, storageErr("apply admin adjustment", err)
	}

	if err := uow.Commit(); err != nil {
		return 0, storageErr("commit transaction", err)
	}

	log.WithFields(log.Fields{
		"adminID":    adminID,
		"telegramID": telegramID,
		"amount":     amount,
		"newBalance": account.Balance,
	}).Info("Admin adjusted balance")

	return account.Balance, nil
}

// MarkStartBonusGiven flips the start bonus flag without crediting.
// It returns false when the flag was already set.
func (s *ledgerService) MarkStartBonusGiven(ctx context.Context, adminID, telegramID int64) (bool, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, storageErr("begin transaction", err)
	}
	defer uow.Rollback()

	accounts := uow.AccountRepository()
	account, err := accounts.GetByIDForUpdate(ctx, telegramID)
	if err != nil {
		return false, storageErr("lock account", err)
	}
	if account == nil {
		return false, ErrAccountNotFound
	}

	changed, err := accounts.MarkStartBonusGiven(ctx, telegramID)
	if err != nil {
		return false, storageErr("mark start bonus", err)
	}

	if err := uow.Commit(); err != nil {
		return false, storageErr("commit transaction", err)
	}

	log.WithFields(log.Fields{
		"adminID":    adminID,
		"telegramID": telegramID,
		"changed":    changed,
	}).Info("Admin marked start bonus given")

	return changed, nil
}

// SetAPKAccess grants or revokes APK access
func (s *ledgerService) SetAPKAccess(ctx context.Context, adminID, telegramID int64, granted bool) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return storageErr("begin transaction", err)
	}
	defer uow.Rollback()

	accounts := uow.AccountRepository()
	account, err := accounts.GetByIDForUpdate(ctx, telegramID)
	if err != nil {
		return storageErr("lock account", err)
	}
	if account == nil {
		return ErrAccountNotFound
	}

	if err := accounts.SetAPKAccess(ctx, telegramID, granted); err != nil {
		return storageErr("set apk access", err)
	}
	if err := uow.Commit(); err != nil {
		return storageErr("commit transaction", err)
	}

	log.WithFields(log.Fields{
		"adminID":    adminID,
		"telegramID": telegramID,
		"granted":    granted,
	}).Info("Admin changed APK access")
	return nil
}

// Redemption returns the withdrawal code and whether the balance reached the minimum
func (s *ledgerService) Redemption(ctx context.Context, telegramID int64) (*models.RedemptionInfo, error) {
	account, err := s.GetAccount(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	return &models.RedemptionInfo{
		Code:       account.RedemptionCode,
		Balance:    account.Balance,
		MinimumDue: s.policy.MinWithdraw,
		Eligible:   account.Balance >= s.policy.MinWithdraw,
	}, nil
}
