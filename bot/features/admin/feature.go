package admin

import (
	"signalbot/service"
	"signalbot/session"
)

const (
	// historyLimit is how many history entries the user lookup shows
	historyLimit = 5

	// maxAdjustment bounds a single admin credit or debit
	maxAdjustment = 1_000_000_000
)

// Feature is the admin panel: stats, user lookup, balance and APK management
type Feature struct {
	ledger   service.LedgerService
	settings service.SettingsService
	sessions session.Store
}

func New(ledger service.LedgerService, settings service.SettingsService, sessions session.Store) *Feature {
	return &Feature{
		ledger:   ledger,
		settings: settings,
		sessions: sessions,
	}
}
