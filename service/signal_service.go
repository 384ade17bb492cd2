package service

import (
	"context"

	"signalbot/models"
)

// ValidBetID reports whether id looks like a game bet id: 9 to 12 ASCII digits
func ValidBetID(id string) bool {
	if len(id) < 9 || len(id) > 12 {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// signalService implements the SignalService interface
type signalService struct {
	uowFactory UnitOfWorkFactory
	policy     Policy
}

// NewSignalService creates a new signal service
func NewSignalService(uowFactory UnitOfWorkFactory, policy Policy) SignalService {
	return &signalService{
		uowFactory: uowFactory,
		policy:     policy,
	}
}

// ConsumeSignal counts one signal for telegramID. A remaining free signal is used
// first; otherwise the signal cost is debited, failing with ErrInsufficientFunds.
func (s *signalService) ConsumeSignal(ctx context.Context, telegramID int64) (*models.SignalResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storageErr("begin transaction", err)
	}
	defer uow.Rollback()

	accounts := uow.AccountRepository()

	account, err := accounts.GetByIDForUpdate(ctx, telegramID)
	if err != nil {
		return nil, storageErr("lock account", err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}

	result := &models.SignalResult{}
	switch {
	case account.FreeSignals > 0:
		result.UsedFreeSignal = true
		account.FreeSignals--
	case s.policy.SignalCost > 0:
		if !account.HasSufficientBalance(s.policy.SignalCost) {
			return nil, ErrInsufficientFunds
		}
		if _, err := applyDelta(ctx, uow, account, -s.policy.SignalCost, models.TransactionTypeSignalPurchase, nil); err != nil {
			return nil, storageErr("charge signal", err)
		}
		result.Charged = s.policy.SignalCost
	}

	if err := accounts.RecordSignal(ctx, telegramID, result.UsedFreeSignal); err != nil {
		return nil, storageErr("record signal", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, storageErr("commit transaction", err)
	}

	result.NewBalance = account.Balance
	result.FreeSignalsLeft = account.FreeSignals
	result.TotalSignals = account.TotalSignals + 1
	return result, nil
}
