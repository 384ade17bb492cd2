package service

import (
	"time"

	"signalbot/config"
)

// Policy holds the ledger amounts and rules the services apply
type Policy struct {
	StartingBalance int64
	FreeSignals     int
	SignalCost      int64
	MinWithdraw     int64
	ReferralBonus   int64
	ReferralTrigger config.ReferralTrigger
	StartBonus      int64
	StartBonusDelay time.Duration
	PromoKeyword    string
}

// PolicyFromConfig copies the ledger rules out of cfg
func PolicyFromConfig(cfg *config.Config) Policy {
	return Policy{
		StartingBalance: cfg.StartingBalance,
		FreeSignals:     cfg.FreeSignals,
		SignalCost:      cfg.SignalCost,
		MinWithdraw:     cfg.MinWithdraw,
		ReferralBonus:   cfg.ReferralBonus,
		ReferralTrigger: cfg.ReferralBonusTrigger,
		StartBonus:      cfg.StartBonus,
		StartBonusDelay: cfg.StartBonusDelay,
		PromoKeyword:    cfg.PromoKeyword,
	}
}

func (p Policy) paysReferralOnSignup() bool {
	return p.ReferralTrigger == config.ReferralTriggerSignup
}

func (p Policy) paysReferralOnPromo() bool {
	return p.ReferralTrigger != config.ReferralTriggerSignup
}
