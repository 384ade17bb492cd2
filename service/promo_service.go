package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"signalbot/events"
	"signalbot/models"

	log "github.com/sirupsen/logrus"
)

// dueSweepBatch caps how many overdue start bonuses one sweep grants
const dueSweepBatch = 500

// promoService implements the PromoService interface
type promoService struct {
	uowFactory UnitOfWorkFactory
	policy     Policy
}

// NewPromoService creates a new promo service
func NewPromoService(uowFactory UnitOfWorkFactory, policy Policy) PromoService {
	return &promoService{
		uowFactory: uowFactory,
		policy:     policy,
	}
}

// MatchesPromo reports whether text contains keyword, ignoring case
func MatchesPromo(text, keyword string) bool {
	if keyword == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(keyword))
}

// GrantStartBonus credits the start bonus once. Unknown accounts are not eligible.
func (s *promoService) GrantStartBonus(ctx context.Context, telegramID int64) (*models.BonusResult, error) {
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
		return &models.BonusResult{Outcome: models.BonusNotEligible}, nil
	}
	if account.StartBonusGiven {
		return &models.BonusResult{Outcome: models.BonusAlreadyGranted, AccountID: telegramID, NewBalance: account.Balance}, nil
	}

	flipped, err := accounts.MarkStartBonusGiven(ctx, telegramID)
	if err != nil {
		return nil, storageErr("mark start bonus", err)
	}
	if !flipped {
		return &models.BonusResult{Outcome: models.BonusAlreadyGranted, AccountID: telegramID, NewBalance: account.Balance}, nil
	}

	if s.policy.StartBonus != 0 {
		if _, err := applyDelta(ctx, uow, account, s.policy.StartBonus, models.TransactionTypeStartBonus, nil); err != nil {
			return nil, storageErr("credit start bonus", err)
		}
	}

	uow.EventBus().Publish(events.BonusGrantedEvent{
		AccountID:       telegramID,
		Amount:          s.policy.StartBonus,
		TransactionType: models.TransactionTypeStartBonus,
	})

	if err := uow.Commit(); err != nil {
		return nil, storageErr("commit transaction", err)
	}

	log.WithFields(log.Fields{
		"telegramID": telegramID,
		"amount":     s.policy.StartBonus,
	}).Info("Granted start bonus")

	return &models.BonusResult{
		Outcome:    models.BonusGranted,
		AccountID:  telegramID,
		Amount:     s.policy.StartBonus,
		NewBalance: account.Balance,
	}, nil
}

// GrantDueStartBonuses grants the persisted start bonuses that are due at now.
// A failing account does not stop the sweep; the failures are joined into the error.
func (s *promoService) GrantDueStartBonuses(ctx context.Context, now time.Time) (int, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, storageErr("begin transaction", err)
	}
	ids, err := uow.AccountRepository().GetDueStartBonuses(ctx, now, dueSweepBatch)
	uow.Rollback()
	if err != nil {
		return 0, storageErr("get due start bonuses", err)
	}

	granted := 0
	var errs []error
	for _, id := range ids {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		result, err := s.GrantStartBonus(ctx, id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if result.Granted() {
			granted++
		}
	}
	return granted, errors.Join(errs...)
}

// Redeem unlocks the promo for telegramID when text contains the keyword.
// With the promo trigger the pending referral bonus is paid in the same transaction.
func (s *promoService) Redeem(ctx context.Context, telegramID int64, text string) (*models.PromoResult, error) {
	if !MatchesPromo(text, s.policy.PromoKeyword) {
		return &models.PromoResult{Outcome: models.PromoNoMatch}, nil
	}

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
	if account.PromoUsed {
		return &models.PromoResult{Outcome: models.PromoAlreadyUsed}, nil
	}

	flipped, err := accounts.MarkPromoUsed(ctx, telegramID)
	if err != nil {
		return nil, storageErr("mark promo used", err)
	}
	if !flipped {
		return &models.PromoResult{Outcome: models.PromoAlreadyUsed}, nil
	}
	uow.EventBus().Publish(events.PromoRedeemedEvent{AccountID: telegramID})

	result := &models.PromoResult{Outcome: models.PromoRedeemed}
	if s.policy.paysReferralOnPromo() {
		bonus, err := payReferralBonus(ctx, uow, telegramID, s.policy.ReferralBonus)
		if err != nil {
			return nil, storageErr("pay referral bonus", err)
		}
		result.ReferralBonus = bonus
	}

	if err := uow.Commit(); err != nil {
		return nil, storageErr("commit transaction", err)
	}

	log.WithFields(log.Fields{
		"telegramID":    telegramID,
		"referralBonus": result.ReferralBonus.Granted(),
	}).Info("Promo redeemed")

	return result, nil
}
