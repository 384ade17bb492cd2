package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"signalbot/events"
	"signalbot/models"

	log "github.com/sirupsen/logrus"
)

const referralParamPrefix = "ref_"

// ParseReferralParam extracts the inviter id from a /start payload such as "ref_12345"
func ParseReferralParam(param string) (int64, bool) {
	raw, ok := strings.CutPrefix(strings.TrimSpace(param), referralParamPrefix)
	if !ok || raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// ReferralLink builds the deep link that starts the bot on behalf of an inviter
func ReferralLink(botUsername string, telegramID int64) string {
	return fmt.Sprintf("https://t.me/%s?start=%s%d", strings.TrimPrefix(botUsername, "@"), referralParamPrefix, telegramID)
}

// referralService implements the ReferralService interface
type referralService struct {
	uowFactory UnitOfWorkFactory
	policy     Policy
}

// NewReferralService creates a new referral service
func NewReferralService(uowFactory UnitOfWorkFactory, policy Policy) ReferralService {
	return &referralService{
		uowFactory: uowFactory,
		policy:     policy,
	}
}

// Link attributes referredID to inviterID. Self referrals, unknown inviters and
// accounts that already have a referrer are reported as outcomes, not errors.
func (s *referralService) Link(ctx context.Context, referredID, inviterID int64) (*models.LinkResult, error) {
	if referredID == inviterID {
		return &models.LinkResult{Outcome: models.LinkSelf}, nil
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storageErr("begin transaction", err)
	}
	defer uow.Rollback()

	accounts := uow.AccountRepository()

	referred, err := accounts.GetByIDForUpdate(ctx, referredID)
	if err != nil {
		return nil, storageErr("lock account", err)
	}
	if referred == nil {
		return nil, ErrAccountNotFound
	}
	if referred.HasReferrer() {
		return &models.LinkResult{Outcome: models.LinkAlreadyLinked, ReferrerID: *referred.ReferredBy}, nil
	}

	inviter, err := accounts.GetByID(ctx, inviterID)
	if err != nil {
		return nil, storageErr("get inviter", err)
	}
	if inviter == nil {
		return &models.LinkResult{Outcome: models.LinkUnknownInviter}, nil
	}

	linked, err := linkReferral(ctx, uow, referredID, inviterID, false)
	if err != nil {
		return nil, storageErr("link referral", err)
	}
	if !linked {
		return &models.LinkResult{Outcome: models.LinkAlreadyLinked}, nil
	}

	result := &models.LinkResult{Outcome: models.LinkCreated, ReferrerID: inviterID}
	if s.policy.paysReferralOnSignup() {
		bonus, err := payReferralBonus(ctx, uow, referredID, s.policy.ReferralBonus)
		if err != nil {
			return nil, storageErr("pay referral bonus", err)
		}
		result.Bonus = bonus
	}

	if err := uow.Commit(); err != nil {
		return nil, storageErr("commit transaction", err)
	}

	log.WithFields(log.Fields{
		"referredID": referredID,
		"referrerID": inviterID,
	}).Info("Linked referral")

	return result, nil
}

// PayBonus pays the inviter of referredID unless the bonus was already paid
func (s *referralService) PayBonus(ctx context.Context, referredID int64) (*models.BonusResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storageErr("begin transaction", err)
	}
	defer uow.Rollback()

	result, err := payReferralBonus(ctx, uow, referredID, s.policy.ReferralBonus)
	if err != nil {
		return nil, storageErr("pay referral bonus", err)
	}
	if !result.Granted() {
		return result, nil
	}

	if err := uow.Commit(); err != nil {
		return nil, storageErr("commit transaction", err)
	}
	return result, nil
}

// Summary returns the referral counters of an inviter
func (s *referralService) Summary(ctx context.Context, telegramID int64) (*models.ReferralSummary, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storageErr("begin transaction", err)
	}
	defer uow.Rollback()

	summary, err := uow.ReferralRepository().GetSummary(ctx, telegramID)
	if err != nil {
		return nil, storageErr("get referral summary", err)
	}
	return summary, nil
}

// linkReferral sets the referrer of an account locked by the caller and records the edge.
// It returns false when another writer linked the account first.
func linkReferral(ctx context.Context, uow UnitOfWork, referredID, referrerID int64, bonusGiven bool) (bool, error) {
	accounts := uow.AccountRepository()

	ok, err := accounts.SetReferredBy(ctx, referredID, referrerID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	created, err := uow.ReferralRepository().Create(ctx, referrerID, referredID, bonusGiven)
	if err != nil {
		return false, err
	}
	if created {
		if err := accounts.IncrementReferrals(ctx, referrerID); err != nil {
			return false, err
		}
	}

	uow.EventBus().Publish(events.ReferralLinkedEvent{
		ReferrerID: referrerID,
		ReferredID: referredID,
	})
	return true, nil
}

// payReferralBonus credits the inviter of referredID once. The edge row lock
// serializes concurrent payouts for the same invitee.
func payReferralBonus(ctx context.Context, uow UnitOfWork, referredID int64, amount int64) (*models.BonusResult, error) {
	edge, err := uow.ReferralRepository().GetByReferredForUpdate(ctx, referredID)
	if err != nil {
		return nil, err
	}
	switch edge.State() {
	case models.ReferralStateUnlinked:
		return &models.BonusResult{Outcome: models.BonusNotEligible}, nil
	case models.ReferralStateBonusPaid:
		return &models.BonusResult{Outcome: models.BonusAlreadyGranted, AccountID: edge.ReferrerID}, nil
	}

	referrer, err := uow.AccountRepository().GetByIDForUpdate(ctx, edge.ReferrerID)
	if err != nil {
		return nil, err
	}
	if referrer == nil {
		return &models.BonusResult{Outcome: models.BonusNotEligible}, nil
	}

	paid, err := uow.ReferralRepository().MarkBonusPaid(ctx, referredID, amount)
	if err != nil {
		return nil, err
	}
	if !paid {
		return &models.BonusResult{Outcome: models.BonusAlreadyGranted, AccountID: edge.ReferrerID}, nil
	}

	if amount != 0 {
		metadata := map[string]any{"referred_id": referredID}
		if _, err := applyDelta(ctx, uow, referrer, amount, models.TransactionTypeReferralBonus, metadata); err != nil {
			return nil, err
		}
	}

	uow.EventBus().Publish(events.BonusGrantedEvent{
		AccountID:       referrer.TelegramID,
		Amount:          amount,
		TransactionType: models.TransactionTypeReferralBonus,
		SourceID:        referredID,
	})

	return &models.BonusResult{
		Outcome:    models.BonusGranted,
		AccountID:  referrer.TelegramID,
		Amount:     amount,
		NewBalance: referrer.Balance,
	}, nil
}
