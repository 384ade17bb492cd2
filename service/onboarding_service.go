package service

import (
	"context"

	"signalbot/models"

	log "github.com/sirupsen/logrus"
)

// onboardingService implements the OnboardingService interface
type onboardingService struct {
	ledger    LedgerService
	referrals ReferralService
	scheduler StartBonusScheduler
}

// NewOnboardingService creates a new onboarding service. scheduler may be nil,
// in which case pending start bonuses are left to the sweep.
func NewOnboardingService(ledger LedgerService, referrals ReferralService, scheduler StartBonusScheduler) OnboardingService {
	return &onboardingService{
		ledger:    ledger,
		referrals: referrals,
		scheduler: scheduler,
	}
}

// Start handles /start. Only the call that creates the account arms the start bonus
// and links the referral carried by startParam.
func (s *onboardingService) Start(ctx context.Context, telegramID int64, username, startParam string) (*models.StartResult, error) {
	account, created, err := s.ledger.GetOrCreateAccount(ctx, telegramID, username)
	if err != nil {
		return nil, err
	}

	result := &models.StartResult{Account: account, Created: created}
	if !created {
		return result, nil
	}

	if s.scheduler != nil && account.StartBonusPending() {
		s.scheduler.Schedule(telegramID, *account.StartBonusDueAt)
	}

	inviterID, ok := ParseReferralParam(startParam)
	if !ok {
		return result, nil
	}

	link, err := s.referrals.Link(ctx, telegramID, inviterID)
	if err != nil {
		// the account exists already; a failed link must not block the welcome
		log.WithFields(log.Fields{
			"telegramID": telegramID,
			"inviterID":  inviterID,
			"error":      err,
		}).Error("Failed to link referral")
		return result, nil
	}
	result.Link = link
	return result, nil
}
