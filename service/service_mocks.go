package service

import (
	"context"
	"io"
	"time"

	"signalbot/models"

	"github.com/stretchr/testify/mock"
)

// MockLedgerService is a mock implementation of LedgerService
type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) GetOrCreateAccount(ctx context.Context, telegramID int64, username string) (*models.Account, bool, error) {
	args := m.Called(ctx, telegramID, username)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.Account), args.Bool(1), args.Error(2)
}

func (m *MockLedgerService) GetAccount(ctx context.Context, telegramID int64) (*models.Account, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockLedgerService) ApplyDelta(ctx context.Context, telegramID int64, amount int64, reason models.TransactionType, metadata map[string]any) (int64, error) {
	args := m.Called(ctx, telegramID, amount, reason, metadata)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerService) GenerateUniqueCode(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockLedgerService) AggregateStats(ctx context.Context) (*models.LedgerStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LedgerStats), args.Error(1)
}

func (m *MockLedgerService) History(ctx context.Context, telegramID int64, limit int) ([]*models.BalanceHistory, error) {
	args := m.Called(ctx, telegramID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BalanceHistory), args.Error(1)
}

func (m *MockLedgerService) Snapshot(ctx context.Context, telegramID int64, historyLimit int) (*models.AccountSnapshot, error) {
	args := m.Called(ctx, telegramID, historyLimit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AccountSnapshot), args.Error(1)
}

func (m *MockLedgerService) AdminAdjust(ctx context.Context, adminID, telegramID int64, amount int64) (int64, error) {
	args := m.Called(ctx, adminID, telegramID, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerService) MarkStartBonusGiven(ctx context.Context, adminID, telegramID int64) (bool, error) {
	args := m.Called(ctx, adminID, telegramID)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedgerService) SetAPKAccess(ctx context.Context, adminID, telegramID int64, granted bool) error {
	args := m.Called(ctx, adminID, telegramID, granted)
	return args.Error(0)
}

func (m *MockLedgerService) Redemption(ctx context.Context, telegramID int64) (*models.RedemptionInfo, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RedemptionInfo), args.Error(1)
}

// MockReferralService is a mock implementation of ReferralService
type MockReferralService struct {
	mock.Mock
}

func (m *MockReferralService) Link(ctx context.Context, referredID, inviterID int64) (*models.LinkResult, error) {
	args := m.Called(ctx, referredID, inviterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LinkResult), args.Error(1)
}

func (m *MockReferralService) PayBonus(ctx context.Context, referredID int64) (*models.BonusResult, error) {
	args := m.Called(ctx, referredID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BonusResult), args.Error(1)
}

func (m *MockReferralService) Summary(ctx context.Context, telegramID int64) (*models.ReferralSummary, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReferralSummary), args.Error(1)
}

// MockPromoService is a mock implementation of PromoService
type MockPromoService struct {
	mock.Mock
}

func (m *MockPromoService) GrantStartBonus(ctx context.Context, telegramID int64) (*models.BonusResult, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BonusResult), args.Error(1)
}

func (m *MockPromoService) GrantDueStartBonuses(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

func (m *MockPromoService) Redeem(ctx context.Context, telegramID int64, text string) (*models.PromoResult, error) {
	args := m.Called(ctx, telegramID, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PromoResult), args.Error(1)
}

// MockSignalService is a mock implementation of SignalService
type MockSignalService struct {
	mock.Mock
}

func (m *MockSignalService) ConsumeSignal(ctx context.Context, telegramID int64) (*models.SignalResult, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SignalResult), args.Error(1)
}

// MockOnboardingService is a mock implementation of OnboardingService
type MockOnboardingService struct {
	mock.Mock
}

func (m *MockOnboardingService) Start(ctx context.Context, telegramID int64, username, startParam string) (*models.StartResult, error) {
	args := m.Called(ctx, telegramID, username, startParam)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StartResult), args.Error(1)
}

// MockSettingsService is a mock implementation of SettingsService
type MockSettingsService struct {
	mock.Mock
}

func (m *MockSettingsService) APKURL(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockSettingsService) SetAPKURL(ctx context.Context, adminID int64, url string) error {
	args := m.Called(ctx, adminID, url)
	return args.Error(0)
}

func (m *MockSettingsService) RemoveAPKURL(ctx context.Context, adminID int64) error {
	args := m.Called(ctx, adminID)
	return args.Error(0)
}

// MockLegacyImporter is a mock implementation of LegacyImporter
type MockLegacyImporter struct {
	mock.Mock
}

func (m *MockLegacyImporter) Import(ctx context.Context, r io.Reader) (*models.ImportReport, error) {
	args := m.Called(ctx, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ImportReport), args.Error(1)
}

// MockStartBonusScheduler is a mock implementation of StartBonusScheduler
type MockStartBonusScheduler struct {
	mock.Mock
}

func (m *MockStartBonusScheduler) Schedule(telegramID int64, dueAt time.Time) {
	m.Called(telegramID, dueAt)
}
