package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"signalbot/events"
	"signalbot/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestLedger(m *uowMocks, policy Policy) *ledgerService {
	return &ledgerService{
		uowFactory: m.factory,
		policy:     policy,
		codes:      sequenceCodes("0000001"),
		now:        fixedClock,
	}
}

func TestLedgerService_GetOrCreateAccount_Existing(t *testing.T) {
	ctx := context.Background()
	m := newUowMocks()
	m.expectCommit()
	svc := newTestLedger(m, testPolicy())

	existing := &models.Account{TelegramID: 42, Username: "old", Balance: 700}
	m.accounts.On("GetByID", ctx, int64(42)).Return(existing, nil)
	m.accounts.On("UpdateUsername", ctx, int64(42), "new").Return(nil)

	account, created, err := svc.GetOrCreateAccount(ctx, 42, "new")

	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "new", account.Username)
	assert.Equal(t, int64(700), account.Balance)
	m.accounts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	m.assertExpectations(t)
}

func TestLedgerService_GetOrCreateAccount_New(t *testing.T) {
	ctx := context.Background()
	m := newUowMocks()
	m.expectCommit()
	svc := newTestLedger(m, testPolicy())
	svc.codes = sequenceCodes("1111111", "2222222")

	dueAt := testNow.Add(testPolicy().StartBonusDelay)

	m.accounts.On("GetByID", ctx, int64(42)).Return(nil, nil)
	m.accounts.On("CodeExists", ctx, "1111111").Return(true, nil)
	m.accounts.On("CodeExists", ctx, "2222222").Return(false, nil)
	m.accounts.On("Create", ctx, mock.MatchedBy(func(p *models.NewAccount) bool {
		return p.TelegramID == 42 &&
			p.RedemptionCode == "2222222" &&
			p.InitialBalance == 0 &&
			p.FreeSignals == 3 &&
			p.StartBonusDueAt != nil && p.StartBonusDueAt.Equal(dueAt)
	})).Return(&models.Account{
		TelegramID:      42,
		Username:        "alice",
		RedemptionCode:  "2222222",
		FreeSignals:     3,
		StartBonusDueAt: &dueAt,
	}, nil)
	m.expectEvent(events.EventTypeAccountCreated)

	account, created, err := svc.GetOrCreateAccount(ctx, 42, "alice")

	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "2222222", account.RedemptionCode)
	assert.True(t, account.StartBonusPending())
	m.history.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	m.assertExpectations(t)
}

func TestLedgerService_GetOrCreateAccount_CodeClaimedConcurrently(t *testing.T) {
	ctx := context.Background()

	t.Run("draws a fresh code", func(t *testing.T) {
		m := newUowMocks()
		m.expectCommit()
		svc := newTestLedger(m, testPolicy())
		svc.codes = sequenceCodes("1111111", "2222222")

		m.accounts.On("GetByID", ctx, int64(42)).Return(nil, nil)
		m.accounts.On("CodeExists", ctx, "1111111").Return(false, nil)
		m.accounts.On("CodeExists", ctx, "2222222").Return(false, nil)
		m.accounts.On("Create", ctx, mock.MatchedBy(func(p *models.NewAccount) bool {
			return p.RedemptionCode == "1111111"
		})).Return(nil, ErrDuplicateCode).Once()
		m.accounts.On("Create", ctx, mock.MatchedBy(func(p *models.NewAccount) bool {
			return p.RedemptionCode == "2222222"
		})).Return(&models.Account{TelegramID: 42, RedemptionCode: "2222222", FreeSignals: 3}, nil).Once()
		m.expectEvent(events.EventTypeAccountCreated)

		account, created, err := svc.GetOrCreateAccount(ctx, 42, "alice")

		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "2222222", account.RedemptionCode)
		m.assertExpectations(t)
	})

	t.Run("gives up after repeated conflicts", func(t *testing.T) {
		m := newUowMocks()
		svc := newTestLedger(m, testPolicy())

		m.accounts.On("GetByID", ctx, int64(42)).Return(nil, nil)
		m.accounts.On("CodeExists", ctx, "0000001").Return(false, nil)
		m.accounts.On("Create", ctx, mock.Anything).Return(nil, ErrDuplicateCode)

		_, _, err := svc.GetOrCreateAccount(ctx, 42, "alice")

		assert.ErrorIs(t, err, ErrCodeSpaceExhausted)
		m.accounts.AssertNumberOfCalls(t, "Create", maxCodeAttempts)
		m.uow.AssertNotCalled(t, "Commit")
	})
}

func TestLedgerService_GetOrCreateAccount_StartingGrantIsRecorded(t *testing.T) {
	ctx := context.Background()
	m := newUowMocks()
	m.expectCommit()
	policy := testPolicy()
	policy.StartingBalance = 1000
	policy.StartBonus = 0
	svc := newTestLedger(m, policy)

	m.accounts.On("GetByID", ctx, int64(7)).Return(nil, nil)
	m.accounts.On("CodeExists", ctx, "0000001").Return(false, nil)
	m.accounts.On("Create", ctx, mock.MatchedBy(func(p *models.NewAccount) bool {
		return p.InitialBalance == 1000 && p.StartBonusDueAt == nil
	})).Return(&models.Account{TelegramID: 7, Balance: 1000, RedemptionCode: "0000001"}, nil)
	m.history.On("Record", ctx, mock.MatchedBy(func(h *models.BalanceHistory) bool {
		return h.TransactionType == models.TransactionTypeInitial && h.ChangeAmount == 1000 && h.BalanceAfter == 1000
	})).Return(nil)
	m.expectEvent(events.EventTypeBalanceChange)
	m.expectEvent(events.EventTypeAccountCreated)

	account, created, err := svc.GetOrCreateAccount(ctx, 7, "bob")

	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(1000), account.Balance)
	assert.False(t, account.StartBonusPending())
	m.assertExpectations(t)
}

func TestLedgerService_GetOrCreateAccount_ConcurrentCreate(t *testing.T) {
	ctx := context.Background()
	m := newUowMocks()
	m.expectCommit()
	svc := newTestLedger(m, testPolicy())

	winner := &models.Account{TelegramID: 9, Username: "carol", RedemptionCode: "5555555"}
	m.accounts.On("GetByID", ctx, int64(9)).Return(nil, nil).Once()
	m.accounts.On("CodeExists", ctx, "0000001").Return(false, nil)
	m.accounts.On("Create", ctx, mock.Anything).Return(nil, nil)
	m.accounts.On("GetByID", ctx, int64(9)).Return(winner, nil).Once()

	account, created, err := svc.GetOrCreateAccount(ctx, 9, "carol")

	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, winner, account)
	m.bus.AssertNotCalled(t, "Publish", mock.Anything)
	m.assertExpectations(t)
}

func TestLedgerService_GenerateUniqueCode_Exhausted(t *testing.T) {
	ctx := context.Background()
	m := newUowMocks()
	svc := newTestLedger(m, testPolicy())
	svc.codes = sequenceCodes("1234567")

	m.accounts.On("CodeExists", ctx, "1234567").Return(true, nil).Times(maxCodeAttempts)

	_, err := svc.GenerateUniqueCode(ctx)

	assert.ErrorIs(t, err, ErrCodeSpaceExhausted)
	assert.NotErrorIs(t, err, ErrStorageUnavailable)
	m.assertExpectations(t)
}

func TestRandomCode_Format(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := RandomCode()
		require.NoError(t, err)
		assert.Regexp(t, `^[0-9]{7}$`, code)
	}
}

func TestLedgerService_ApplyDelta(t *testing.T) {
	ctx := context.Background()

	t.Run("credits and records history", func(t *testing.T) {
		m := newUowMocks()
		m.expectCommit()
		svc := newTestLedger(m, testPolicy())

		m.accounts.On("GetByIDForUpdate", ctx, int64(1)).Return(&models.Account{TelegramID: 1, Balance: 1000}, nil)
		m.expectCredit(1, 1000, 500, models.TransactionTypeAdminAdjustment)

		balance, err := svc.ApplyDelta(ctx, 1, 500, models.TransactionTypeAdminAdjustment, nil)

		require.NoError(t, err)
		assert.Equal(t, int64(1500), balance)
		m.assertExpectations(t)
	})

	t.Run("debit below zero is allowed", func(t *testing.T) {
		m := newUowMocks()
		m.expectCommit()
		svc := newTestLedger(m, testPolicy())

		m.accounts.On("GetByIDForUpdate", ctx, int64(1)).Return(&models.Account{TelegramID: 1, Balance: 100}, nil)
		m.expectCredit(1, 100, -300, models.TransactionTypeSignalPurchase)

		balance, err := svc.ApplyDelta(ctx, 1, -300, models.TransactionTypeSignalPurchase, nil)

		require.NoError(t, err)
		assert.Equal(t, int64(-200), balance)
	})

	t.Run("unknown account", func(t *testing.T) {
		m := newUowMocks()
		svc := newTestLedger(m, testPolicy())

		m.accounts.On("GetByIDForUpdate", ctx, int64(404)).Return(nil, nil)

		_, err := svc.ApplyDelta(ctx, 404, 10, models.TransactionTypeAdminAdjustment, nil)

		assert.ErrorIs(t, err, ErrAccountNotFound)
		m.history.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	})

	t.Run("zero amount is rejected before touching storage", func(t *testing.T) {
		m := newUowMocks()
		svc := newTestLedger(m, testPolicy())

		_, err := svc.ApplyDelta(ctx, 1, 0, models.TransactionTypeAdminAdjustment, nil)

		assert.ErrorIs(t, err, ErrInvalidAmount)
		m.factory.AssertNotCalled(t, "Create")
	})

	t.Run("storage failure is classified", func(t *testing.T) {
		m := newUowMocks()
		svc := newTestLedger(m, testPolicy())

		driverErr := errors.New("connection reset by peer")
		m.accounts.On("GetByIDForUpdate", ctx, int64(1)).Return(nil, driverErr)

		_, err := svc.ApplyDelta(ctx, 1, 10, models.TransactionTypeAdminAdjustment, nil)

		assert.ErrorIs(t, err, ErrStorageUnavailable)
		assert.ErrorIs(t, err, driverErr)
		var storageError *StorageError
		require.ErrorAs(t, err, &storageError)
		assert.Equal(t, "lock account", storageError.Op)
	})
}

func TestLedgerService_AdminAdjust(t *testing.T) {
	ctx := context.Background()

	t.Run("debit beyond balance is refused", func(t *testing.T) {
		m := newUowMocks()
		svc := newTestLedger(m, testPolicy())

		m.accounts.On("GetByIDForUpdate", ctx, int64(5)).Return(&models.Account{TelegramID: 5, Balance: 100}, nil)

		balance, err := svc.AdminAdjust(ctx, 999999, 5, -101)

		assert.ErrorIs(t, err, ErrInsufficientFunds)
		assert.Equal(t, int64(100), balance)
		m.accounts.AssertNotCalled(t, "UpdateBalance", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("credit records admin metadata", func(t *testing.T) {
		m := newUowMocks()
		m.expectCommit()
		svc := newTestLedger(m, testPolicy())

		m.accounts.On("GetByIDForUpdate", ctx, int64(5)).Return(&models.Account{TelegramID: 5, Balance: 100}, nil)
		m.accounts.On("UpdateBalance", ctx, int64(5), int64(5100)).Return(nil)
		m.history.On("Record", ctx, mock.MatchedBy(func(h *models.BalanceHistory) bool {
			return h.TransactionType == models.TransactionTypeAdminAdjustment &&
				h.TransactionMetadata["admin_id"] == int64(999999)
		})).Return(nil)
		m.expectEvent(events.EventTypeBalanceChange)

		balance, err := svc.AdminAdjust(ctx, 999999, 5, 5000)

		require.NoError(t, err)
		assert.Equal(t, int64(5100), balance)
		m.assertExpectations(t)
	})
	t.Run("credit past the int64 range is refused", func(t *testing.T) {
		m := newUowMocks()
		svc := newTestLedger(m, testPolicy())

		m.accounts.On("GetByIDForUpdate", ctx, int64(1)).Return(&models.Account{TelegramID: 1, Balance: 15000}, nil)

		_, err := svc.AdminAdjust(ctx, 99, 1, math.MaxInt64)

		assert.ErrorIs(t, err, ErrBalanceOverflow)
		m.accounts.AssertNotCalled(t, "UpdateBalance", mock.Anything, mock.Anything, mock.Anything)
		m.history.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
		m.uow.AssertNotCalled(t, "Commit")
	})

	t.Run("minimum int64 debit is refused", func(t *testing.T) {
		m := newUowMocks()
		svc := newTestLedger(m, testPolicy())

		_, err := svc.AdminAdjust(ctx, 99, 1, math.MinInt64)

		assert.ErrorIs(t, err, ErrBalanceOverflow)
		m.factory.AssertNotCalled(t, "Create")
	})
}

func TestAddOverflows(t *testing.T) {
	tests := []struct {
		name string
		a, b int64
		want bool
	}{
		{"small credit", 15000, 100, false},
		{"credit to max", math.MaxInt64 - 1, 1, false},
		{"credit past max", 15000, math.MaxInt64, true},
		{"debit to min", math.MinInt64 + 1, -1, false},
		{"debit past min", -2, math.MinInt64, true},
		{"zero", math.MaxInt64, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, addOverflows(tt.a, tt.b))
		})
	}
}

func TestSubOverflows(t *testing.T) {
	assert.False(t, subOverflows(100, 15000))
	assert.True(t, subOverflows(math.MaxInt64, -1))
	assert.True(t, subOverflows(math.MinInt64, 1))
	assert.False(t, subOverflows(0, math.MaxInt64))
}

func TestLedgerService_MarkStartBonusGiven(t *testing.T) {
	ctx := context.Background()
	m := newUowMocks()
	m.expectCommit()
	svc := newTestLedger(m, testPolicy())

	m.accounts.On("GetByIDForUpdate", ctx, int64(3)).Return(&models.Account{TelegramID: 3}, nil)
	m.accounts.On("MarkStartBonusGiven", ctx, int64(3)).Return(true, nil)

	changed, err := svc.MarkStartBonusGiven(ctx, 999999, 3)

	require.NoError(t, err)
	assert.True(t, changed)
	m.accounts.AssertNotCalled(t, "UpdateBalance", mock.Anything, mock.Anything, mock.Anything)
	m.assertExpectations(t)
}

func TestLedgerService_Redemption(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		balance  int64
		eligible bool
	}{
		{"below minimum", 24999, false},
		{"exactly minimum", 25000, true},
		{"above minimum", 40000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newUowMocks()
			svc := newTestLedger(m, testPolicy())

			m.accounts.On("GetByID", ctx, int64(8)).Return(&models.Account{TelegramID: 8, Balance: tt.balance, RedemptionCode: "0012345"}, nil)

			info, err := svc.Redemption(ctx, 8)

			require.NoError(t, err)
			assert.Equal(t, "0012345", info.Code)
			assert.Equal(t, tt.eligible, info.Eligible)
			assert.Equal(t, int64(25000), info.MinimumDue)
		})
	}
}

func TestLedgerService_Snapshot_UnknownAccount(t *testing.T) {
	ctx := context.Background()
	m := newUowMocks()
	svc := newTestLedger(m, testPolicy())

	m.accounts.On("GetByID", ctx, int64(1)).Return(nil, nil)

	_, err := svc.Snapshot(ctx, 1, 5)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}
