package service

import (
	"testing"
	"time"

	"signalbot/config"
	"signalbot/events"
	"signalbot/models"

	"github.com/stretchr/testify/mock"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testPolicy() Policy {
	return Policy{
		StartingBalance: 0,
		FreeSignals:     3,
		SignalCost:      500,
		MinWithdraw:     25000,
		ReferralBonus:   2500,
		ReferralTrigger: config.ReferralTriggerPromo,
		StartBonus:      15000,
		StartBonusDelay: time.Minute,
		PromoKeyword:    "WINWIN",
	}
}

// uowMocks wires a mock unit of work with every repository mock
type uowMocks struct {
	factory   *MockUnitOfWorkFactory
	uow       *MockUnitOfWork
	accounts  *MockAccountRepository
	referrals *MockReferralRepository
	history   *MockBalanceHistoryRepository
	settings  *MockSettingsRepository
	bus       *MockEventPublisher
}

func newUowMocks() *uowMocks {
	m := &uowMocks{
		factory:   new(MockUnitOfWorkFactory),
		uow:       new(MockUnitOfWork),
		accounts:  new(MockAccountRepository),
		referrals: new(MockReferralRepository),
		history:   new(MockBalanceHistoryRepository),
		settings:  new(MockSettingsRepository),
		bus:       new(MockEventPublisher),
	}
	m.uow.SetRepositories(m.accounts, m.referrals, m.history, m.settings, m.bus)

	m.factory.On("Create").Return(m.uow)
	m.uow.On("Begin", mock.Anything).Return(nil)
	m.uow.On("Rollback").Return(nil)
	return m
}

func (m *uowMocks) expectCommit() {
	m.uow.On("Commit").Return(nil)
}

func (m *uowMocks) assertExpectations(t *testing.T) {
	t.Helper()
	m.uow.AssertExpectations(t)
	m.accounts.AssertExpectations(t)
	m.referrals.AssertExpectations(t)
	m.history.AssertExpectations(t)
	m.settings.AssertExpectations(t)
	m.bus.AssertExpectations(t)
}

// expectEvent expects one published event of eventType
func (m *uowMocks) expectEvent(eventType events.EventType) {
	m.bus.On("Publish", mock.MatchedBy(func(e events.Event) bool {
		return e.Type() == eventType
	})).Return().Once()
}

// expectCredit sets up the calls applyDelta makes for one balance change
func (m *uowMocks) expectCredit(telegramID, before, amount int64, reason models.TransactionType) {
	m.accounts.On("UpdateBalance", mock.Anything, telegramID, before+amount).Return(nil).Once()
	m.history.On("Record", mock.Anything, mock.MatchedBy(func(h *models.BalanceHistory) bool {
		return h.TelegramID == telegramID &&
			h.BalanceBefore == before &&
			h.ChangeAmount == amount &&
			h.BalanceAfter == before+amount &&
			h.TransactionType == reason
	})).Return(nil).Once()
	m.expectEvent(events.EventTypeBalanceChange)
}

// sequenceCodes returns a generator yielding codes in order, repeating the last one
func sequenceCodes(codes ...string) CodeGenerator {
	i := 0
	return func() (string, error) {
		code := codes[min(i, len(codes)-1)]
		i++
		return code, nil
	}
}

func fixedClock() time.Time {
	return testNow
}

func ptr[T any](v T) *T {
	return &v
}
