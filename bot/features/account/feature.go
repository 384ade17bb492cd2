package account

import (
	"time"

	"signalbot/config"
	"signalbot/service"
	"signalbot/session"
)

// Settings are the amounts and links the account screens show
type Settings struct {
	BotUsername     string
	WithdrawSiteURL string
	ReferralBonus   int64
	ReferralTrigger config.ReferralTrigger
	StartBonus      int64
	StartBonusDelay time.Duration
	MinWithdraw     int64
}

// Feature serves /start, the main menu screens and promo codes
type Feature struct {
	onboarding service.OnboardingService
	ledger     service.LedgerService
	referrals  service.ReferralService
	promo      service.PromoService
	settings   service.SettingsService
	sessions   session.Store
	cfg        Settings
}

func New(
	onboarding service.OnboardingService,
	ledger service.LedgerService,
	referrals service.ReferralService,
	promo service.PromoService,
	settings service.SettingsService,
	sessions session.Store,
	cfg Settings,
) *Feature {
	return &Feature{
		onboarding: onboarding,
		ledger:     ledger,
		referrals:  referrals,
		promo:      promo,
		settings:   settings,
		sessions:   sessions,
		cfg:        cfg,
	}
}
