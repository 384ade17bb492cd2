package service

import (
	"context"
	"time"

	"signalbot/events"
	"signalbot/models"

	"github.com/stretchr/testify/mock"
)

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetByID(ctx context.Context, telegramID int64) (*models.Account, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByIDForUpdate(ctx context.Context, telegramID int64) (*models.Account, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) Create(ctx context.Context, account *models.NewAccount) (*models.Account, error) {
	args := m.Called(ctx, account)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) UpdateUsername(ctx context.Context, telegramID int64, username string) error {
	args := m.Called(ctx, telegramID, username)
	return args.Error(0)
}

func (m *MockAccountRepository) UpdateBalance(ctx context.Context, telegramID int64, newBalance int64) error {
	args := m.Called(ctx, telegramID, newBalance)
	return args.Error(0)
}

func (m *MockAccountRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccountRepository) SetReferredBy(ctx context.Context, telegramID, referrerID int64) (bool, error) {
	args := m.Called(ctx, telegramID, referrerID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccountRepository) IncrementReferrals(ctx context.Context, telegramID int64) error {
	args := m.Called(ctx, telegramID)
	return args.Error(0)
}

func (m *MockAccountRepository) MarkStartBonusGiven(ctx context.Context, telegramID int64) (bool, error) {
	args := m.Called(ctx, telegramID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccountRepository) MarkPromoUsed(ctx context.Context, telegramID int64) (bool, error) {
	args := m.Called(ctx, telegramID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccountRepository) SetAPKAccess(ctx context.Context, telegramID int64, granted bool) error {
	args := m.Called(ctx, telegramID, granted)
	return args.Error(0)
}

func (m *MockAccountRepository) RecordSignal(ctx context.Context, telegramID int64, useFree bool) error {
	args := m.Called(ctx, telegramID, useFree)
	return args.Error(0)
}

func (m *MockAccountRepository) GetDueStartBonuses(ctx context.Context, now time.Time, limit int) ([]int64, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockAccountRepository) ApplyImport(ctx context.Context, record *models.ImportedAccount) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockAccountRepository) GetLedgerStats(ctx context.Context) (*models.LedgerStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LedgerStats), args.Error(1)
}

// MockReferralRepository is a mock implementation of ReferralRepository
type MockReferralRepository struct {
	mock.Mock
}

func (m *MockReferralRepository) Create(ctx context.Context, referrerID, referredID int64, bonusGiven bool) (bool, error) {
	args := m.Called(ctx, referrerID, referredID, bonusGiven)
	return args.Bool(0), args.Error(1)
}

func (m *MockReferralRepository) GetByReferred(ctx context.Context, referredID int64) (*models.Referral, error) {
	args := m.Called(ctx, referredID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Referral), args.Error(1)
}

func (m *MockReferralRepository) GetByReferredForUpdate(ctx context.Context, referredID int64) (*models.Referral, error) {
	args := m.Called(ctx, referredID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Referral), args.Error(1)
}

func (m *MockReferralRepository) MarkBonusPaid(ctx context.Context, referredID int64, amount int64) (bool, error) {
	args := m.Called(ctx, referredID, amount)
	return args.Bool(0), args.Error(1)
}

func (m *MockReferralRepository) GetSummary(ctx context.Context, referrerID int64) (*models.ReferralSummary, error) {
	args := m.Called(ctx, referrerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReferralSummary), args.Error(1)
}

// MockBalanceHistoryRepository is a mock implementation of BalanceHistoryRepository
type MockBalanceHistoryRepository struct {
	mock.Mock
}

func (m *MockBalanceHistoryRepository) Record(ctx context.Context, history *models.BalanceHistory) error {
	args := m.Called(ctx, history)
	return args.Error(0)
}

func (m *MockBalanceHistoryRepository) GetByAccount(ctx context.Context, telegramID int64, limit int) ([]*models.BalanceHistory, error) {
	args := m.Called(ctx, telegramID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BalanceHistory), args.Error(1)
}

func (m *MockBalanceHistoryRepository) SumByAccount(ctx context.Context, telegramID int64) (int64, error) {
	args := m.Called(ctx, telegramID)
	return args.Get(0).(int64), args.Error(1)
}

// MockSettingsRepository is a mock implementation of SettingsRepository
type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) Get(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockSettingsRepository) Set(ctx context.Context, key, value string, updatedBy int64) error {
	args := m.Called(ctx, key, value, updatedBy)
	return args.Error(0)
}

func (m *MockSettingsRepository) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Repository getters
// return whatever SetRepositories installed.
type MockUnitOfWork struct {
	mock.Mock
	accountRepo        AccountRepository
	referralRepo       ReferralRepository
	balanceHistoryRepo BalanceHistoryRepository
	settingsRepo       SettingsRepository
	eventBus           EventPublisher
}

// SetRepositories installs the repositories handed out by the getters
func (m *MockUnitOfWork) SetRepositories(accountRepo AccountRepository, referralRepo ReferralRepository, balanceHistoryRepo BalanceHistoryRepository, settingsRepo SettingsRepository, eventBus EventPublisher) {
	m.accountRepo = accountRepo
	m.referralRepo = referralRepo
	m.balanceHistoryRepo = balanceHistoryRepo
	m.settingsRepo = settingsRepo
	m.eventBus = eventBus
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) AccountRepository() AccountRepository {
	return m.accountRepo
}

func (m *MockUnitOfWork) ReferralRepository() ReferralRepository {
	return m.referralRepo
}

func (m *MockUnitOfWork) BalanceHistoryRepository() BalanceHistoryRepository {
	return m.balanceHistoryRepo
}

func (m *MockUnitOfWork) SettingsRepository() SettingsRepository {
	return m.settingsRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	return m.eventBus
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
