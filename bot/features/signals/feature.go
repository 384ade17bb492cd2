package signals

import (
	"math/rand/v2"

	"signalbot/bot/common"
	"signalbot/service"
	"signalbot/session"
)

// Feature runs the signal wizard: bet id, game start, game rounds
type Feature struct {
	signals  service.SignalService
	sessions session.Store
	perm     func(n int) []int
}

func New(signals service.SignalService, sessions session.Store) *Feature {
	return &Feature{
		signals:  signals,
		sessions: sessions,
		perm:     rand.Perm,
	}
}

// Handles reports whether callback belongs to the signal wizard
func Handles(callback string) bool {
	switch callback {
	case common.CallbackGetSignal, common.CallbackStartGame, common.CallbackNextRow, common.CallbackEndGame:
		return true
	}
	return false
}
