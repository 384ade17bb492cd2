package service

import (
	"context"
	"errors"
	"testing"

	"signalbot/config"
	"signalbot/events"
	"signalbot/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestMatchesPromo(t *testing.T) {
	tests := []struct {
		text    string
		keyword string
		want    bool
	}{
		{"WINWIN", "WINWIN", true},
		{"my code is winwin!", "WINWIN", true},
		{"WinWin2024", "winwin", true},
		{"win win", "WINWIN", false},
		{"", "WINWIN", false},
		{"anything", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesPromo(tt.text, tt.keyword))
		})
	}
}

func TestPromoService_Redeem(t *testing.T) {
	ctx := context.Background()

	t.Run("no match touches nothing", func(t *testing.T) {
		m := newUowMocks()
		svc := NewPromoService(m.factory, testPolicy())

		result, err := svc.Redeem(ctx, 10, "hello there")

		require.NoError(t, err)
		assert.Equal(t, models.PromoNoMatch, result.Outcome)
		m.factory.AssertNotCalled(t, "Create")
	})

	t.Run("already used", func(t *testing.T) {
		m := newUowMocks()
		svc := NewPromoService(m.factory, testPolicy())

		m.accounts.On("GetByIDForUpdate", ctx, int64(10)).Return(&models.Account{TelegramID: 10, PromoUsed: true}, nil)

		result, err := svc.Redeem(ctx, 10, "winwin")

		require.NoError(t, err)
		assert.Equal(t, models.PromoAlreadyUsed, result.Outcome)
		m.accounts.AssertNotCalled(t, "MarkPromoUsed", mock.Anything, mock.Anything)
		m.uow.AssertNotCalled(t, "Commit")
	})

	t.Run("unknown account", func(t *testing.T) {
		m := newUowMocks()
		svc := NewPromoService(m.factory, testPolicy())

		m.accounts.On("GetByIDForUpdate", ctx, int64(10)).Return(nil, nil)

		_, err := svc.Redeem(ctx, 10, "WINWIN")
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})

	t.Run("redeem pays pending referral bonus", func(t *testing.T) {
		m := newUowMocks()
		m.expectCommit()
		svc := NewPromoService(m.factory, testPolicy())

		m.accounts.On("GetByIDForUpdate", ctx, int64(10)).Return(&models.Account{TelegramID: 10}, nil)
		m.accounts.On("MarkPromoUsed", ctx, int64(10)).Return(true, nil)
		m.expectEvent(events.EventTypePromoRedeemed)
		m.referrals.On("GetByReferredForUpdate", ctx, int64(10)).Return(&models.Referral{ReferrerID: 20, ReferredID: 10}, nil)
		m.accounts.On("GetByIDForUpdate", ctx, int64(20)).Return(&models.Account{TelegramID: 20, Balance: 100}, nil)
		m.referrals.On("MarkBonusPaid", ctx, int64(10), int64(2500)).Return(true, nil)
		m.expectCredit(20, 100, 2500, models.TransactionTypeReferralBonus)
		m.expectEvent(events.EventTypeBonusGranted)

		result, err := svc.Redeem(ctx, 10, "code: WinWin")

		require.NoError(t, err)
		assert.Equal(t, models.PromoRedeemed, result.Outcome)
		require.True(t, result.ReferralBonus.Granted())
		assert.Equal(t, int64(20), result.ReferralBonus.AccountID)
		m.assertExpectations(t)
	})

	t.Run("redeem without referrer", func(t *testing.T) {
		m := newUowMocks()
		m.expectCommit()
		svc := NewPromoService(m.factory, testPolicy())

		m.accounts.On("GetByIDForUpdate", ctx, int64(10)).Return(&models.Account{TelegramID: 10}, nil)
		m.accounts.On("MarkPromoUsed", ctx, int64(10)).Return(true, nil)
		m.expectEvent(events.EventTypePromoRedeemed)
		m.referrals.On("GetByReferredForUpdate", ctx, int64(10)).Return(nil, nil)

		result, err := svc.Redeem(ctx, 10, "WINWIN")

		require.NoError(t, err)
		assert.Equal(t, models.PromoRedeemed, result.Outcome)
		assert.Equal(t, models.BonusNotEligible, result.ReferralBonus.Outcome)
		m.assertExpectations(t)
	})

	t.Run("signup trigger leaves referral alone", func(t *testing.T) {
		m := newUowMocks()
		m.expectCommit()
		policy := testPolicy()
		policy.ReferralTrigger = config.ReferralTriggerSignup
		svc := NewPromoService(m.factory, policy)

		m.accounts.On("GetByIDForUpdate", ctx, int64(10)).Return(&models.Account{TelegramID: 10}, nil)
		m.accounts.On("MarkPromoUsed", ctx, int64(10)).Return(true, nil)
		m.expectEvent(events.EventTypePromoRedeemed)

		result, err := svc.Redeem(ctx, 10, "WINWIN")

		require.NoError(t, err)
		assert.Equal(t, models.PromoRedeemed, result.Outcome)
		assert.Nil(t, result.ReferralBonus)
		m.referrals.AssertNotCalled(t, "GetByReferredForUpdate", mock.Anything, mock.Anything)
		m.assertExpectations(t)
	})
}

func TestPromoService_GrantStartBonus(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown account is a silent no-op", func(t *testing.T) {
		m := newUowMocks()
		svc := NewPromoService(m.factory, testPolicy())

		m.accounts.On("GetByIDForUpdate", ctx, int64(1)).Return(nil, nil)

		result, err := svc.GrantStartBonus(ctx, 1)

		require.NoError(t, err)
		assert.Equal(t, models.BonusNotEligible, result.Outcome)
	})

	t.Run("already given", func(t *testing.T) {
		m := newUowMocks()
		svc := NewPromoService(m.factory, testPolicy())

		m.accounts.On("GetByIDForUpdate", ctx, int64(1)).Return(&models.Account{TelegramID: 1, StartBonusGiven: true, Balance: 15000}, nil)

		result, err := svc.GrantStartBonus(ctx, 1)

		require.NoError(t, err)
		assert.Equal(t, models.BonusAlreadyGranted, result.Outcome)
		assert.Equal(t, int64(15000), result.NewBalance)
		m.accounts.AssertNotCalled(t, "MarkStartBonusGiven", mock.Anything, mock.Anything)
	})

	t.Run("grants once", func(t *testing.T) {
		m := newUowMocks()
		m.expectCommit()
		svc := NewPromoService(m.factory, testPolicy())

		m.accounts.On("GetByIDForUpdate", ctx, int64(1)).Return(&models.Account{TelegramID: 1, Balance: 200}, nil)
		m.accounts.On("MarkStartBonusGiven", ctx, int64(1)).Return(true, nil)
		m.expectCredit(1, 200, 15000, models.TransactionTypeStartBonus)
		m.expectEvent(events.EventTypeBonusGranted)

		result, err := svc.GrantStartBonus(ctx, 1)

		require.NoError(t, err)
		assert.True(t, result.Granted())
		assert.Equal(t, int64(15200), result.NewBalance)
		m.assertExpectations(t)
	})

	t.Run("flag flipped by another writer", func(t *testing.T) {
		m := newUowMocks()
		svc := NewPromoService(m.factory, testPolicy())

		m.accounts.On("GetByIDForUpdate", ctx, int64(1)).Return(&models.Account{TelegramID: 1}, nil)
		m.accounts.On("MarkStartBonusGiven", ctx, int64(1)).Return(false, nil)

		result, err := svc.GrantStartBonus(ctx, 1)

		require.NoError(t, err)
		assert.Equal(t, models.BonusAlreadyGranted, result.Outcome)
		m.accounts.AssertNotCalled(t, "UpdateBalance", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestPromoService_GrantDueStartBonuses(t *testing.T) {
	ctx := context.Background()
	m := newUowMocks()
	m.expectCommit()
	svc := NewPromoService(m.factory, testPolicy())

	m.accounts.On("GetDueStartBonuses", ctx, testNow, dueSweepBatch).Return([]int64{1, 2, 3}, nil)

	m.accounts.On("GetByIDForUpdate", ctx, int64(1)).Return(&models.Account{TelegramID: 1}, nil)
	m.accounts.On("MarkStartBonusGiven", ctx, int64(1)).Return(true, nil)
	m.expectCredit(1, 0, 15000, models.TransactionTypeStartBonus)
	m.expectEvent(events.EventTypeBonusGranted)

	m.accounts.On("GetByIDForUpdate", ctx, int64(2)).Return(nil, errors.New("deadlock detected"))

	m.accounts.On("GetByIDForUpdate", ctx, int64(3)).Return(&models.Account{TelegramID: 3, StartBonusGiven: true}, nil)

	granted, err := svc.GrantDueStartBonuses(ctx, testNow)

	assert.Equal(t, 1, granted)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	m.assertExpectations(t)
}
