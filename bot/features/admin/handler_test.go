package admin

import (
	"context"
	"errors"
	"testing"
	"time"

	"signalbot/bot/common"
	"signalbot/models"
	"signalbot/service"
	"signalbot/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const adminID = int64(999)

func newTestFeature() (*Feature, *service.MockLedgerService, *service.MockSettingsService, *session.MemoryStore) {
	ledger := new(service.MockLedgerService)
	settings := new(service.MockSettingsService)
	store := session.NewMemoryStore(0)
	return New(ledger, settings, store), ledger, settings, store
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	f, ledger, _, _ := newTestFeature()

	ledger.On("AggregateStats", ctx).Return(&models.LedgerStats{
		TotalAccounts:     120,
		TotalBalance:      1500000,
		TotalReferrals:    40,
		TotalBonusEvents:  150,
		StartBonusesGiven: 110,
		ReferredAccounts:  40,
		PromoRedemptions:  35,
	}, nil)

	replies := f.HandleCallback(ctx, common.Inbound{UserID: adminID, Callback: common.CallbackAdminStats})

	text := replies[0].Text
	assert.Contains(t, text, "Users: 120")
	assert.Contains(t, text, "Start bonuses given: 110")
	assert.Contains(t, text, "Promo redemptions: 35")
	assert.Contains(t, text, "1,500,000 points")
}

func TestUserLookup(t *testing.T) {
	ctx := context.Background()
	f, ledger, _, store := newTestFeature()
	in := common.Inbound{UserID: adminID, Callback: common.CallbackAdminUser}

	f.HandleCallback(ctx, in)
	state, _ := store.Get(ctx, adminID)
	require.Equal(t, session.StageAdminAwaitingUserID, state.Stage)

	in.Callback = ""
	in.Text = "abc"
	replies := f.HandleText(ctx, in, state)
	assert.Contains(t, replies[0].Text, "not a user ID")

	referrer := int64(20)
	ledger.On("Snapshot", ctx, int64(10), historyLimit).Return(&models.AccountSnapshot{
		Account: &models.Account{
			TelegramID:     10,
			Username:       "bob",
			Balance:        15000,
			RedemptionCode: "0012345",
			ReferredBy:     &referrer,
			CreatedAt:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		},
		Referral: &models.Referral{ReferrerID: 20, ReferredID: 10},
		History: []*models.BalanceHistory{
			{TelegramID: 10, BalanceBefore: 0, BalanceAfter: 15000, ChangeAmount: 15000, TransactionType: models.TransactionTypeStartBonus},
		},
	}, nil)

	in.Text = "10"
	replies = f.HandleText(ctx, in, state)

	text := replies[0].Text
	assert.Contains(t, text, "<b>bob</b> (<code>10</code>)")
	assert.Contains(t, text, "Balance: 15,000")
	assert.Contains(t, text, "Invited by: <code>20</code> (bonus pending)")
	assert.Contains(t, text, "Start bonus: +15,000")

	keyboard := replies[0].Keyboard
	require.NotNil(t, keyboard)
	assert.Equal(t, "admin_adjust:10", *keyboard.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "admin_mark_bonus:10", *keyboard.InlineKeyboard[1][0].CallbackData)
	assert.Equal(t, "admin_grant_apk:10", *keyboard.InlineKeyboard[1][1].CallbackData)

	state, _ = store.Get(ctx, adminID)
	assert.True(t, state.IsIdle())
}

func TestUserLookup_NotFound(t *testing.T) {
	ctx := context.Background()
	f, ledger, _, _ := newTestFeature()

	ledger.On("Snapshot", ctx, int64(10), historyLimit).Return(nil, service.ErrAccountNotFound)

	replies := f.HandleText(ctx, common.Inbound{UserID: adminID, Text: "10"}, session.State{Stage: session.StageAdminAwaitingUserID})
	assert.Contains(t, replies[0].Text, "not found")
}

func TestAdjustBalance(t *testing.T) {
	ctx := context.Background()

	t.Run("id and amount in one message", func(t *testing.T) {
		f, ledger, _, store := newTestFeature()
		state := session.State{Stage: session.StageAdminAwaitingBalance}
		require.NoError(t, store.Set(ctx, adminID, state))

		ledger.On("AdminAdjust", ctx, adminID, int64(10), int64(5000)).Return(int64(20000), nil)

		replies := f.HandleText(ctx, common.Inbound{UserID: adminID, Text: "10 5,000"}, state)

		assert.Contains(t, replies[0].Text, "+5,000 points for <code>10</code>. New balance: 20,000")
		got, _ := store.Get(ctx, adminID)
		assert.True(t, got.IsIdle())
	})

	t.Run("amount for a looked up user", func(t *testing.T) {
		f, ledger, _, store := newTestFeature()

		f.HandleCallback(ctx, common.Inbound{UserID: adminID, Callback: "admin_adjust:10"})
		state, _ := store.Get(ctx, adminID)
		require.Equal(t, int64(10), state.TargetID)

		ledger.On("AdminAdjust", ctx, adminID, int64(10), int64(-500)).Return(int64(100), service.ErrInsufficientFunds)

		replies := f.HandleText(ctx, common.Inbound{UserID: adminID, Text: "-500"}, state)
		assert.Contains(t, replies[0].Text, "only has 100 points")
	})

	t.Run("rejects bad input", func(t *testing.T) {
		f, ledger, _, _ := newTestFeature()
		state := session.State{Stage: session.StageAdminAwaitingBalance}

		for _, text := range []string{"10", "x 10", "10 zero", "10 0", "10 9223372036854775807", "10 -1000000001"} {
			replies := f.HandleText(ctx, common.Inbound{UserID: adminID, Text: text}, state)
			assert.Contains(t, replies[0].Text, "❌", text)
		}
		ledger.AssertNotCalled(t, "AdminAdjust", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestMarkBonusAndGrantAPK(t *testing.T) {
	ctx := context.Background()
	f, ledger, _, _ := newTestFeature()

	ledger.On("MarkStartBonusGiven", ctx, adminID, int64(10)).Return(true, nil).Once()
	ledger.On("MarkStartBonusGiven", ctx, adminID, int64(10)).Return(false, nil).Once()
	ledger.On("SetAPKAccess", ctx, adminID, int64(10), true).Return(nil)

	replies := f.HandleCallback(ctx, common.Inbound{UserID: adminID, Callback: "admin_mark_bonus:10"})
	assert.Contains(t, replies[0].Text, "marked as given")

	replies = f.HandleCallback(ctx, common.Inbound{UserID: adminID, Callback: "admin_mark_bonus:10"})
	assert.Contains(t, replies[0].Text, "already given")

	replies = f.HandleCallback(ctx, common.Inbound{UserID: adminID, Callback: "admin_grant_apk:10"})
	assert.Contains(t, replies[0].Text, "APK access granted")

	replies = f.HandleCallback(ctx, common.Inbound{UserID: adminID, Callback: "admin_grant_apk:oops"})
	assert.Contains(t, replies[0].Text, "Admin panel")
	ledger.AssertExpectations(t)
}

func TestAPKLink(t *testing.T) {
	ctx := context.Background()

	t.Run("set", func(t *testing.T) {
		f, _, settings, _ := newTestFeature()
		state := session.State{Stage: session.StageAdminAwaitingAPKURL}

		settings.On("SetAPKURL", ctx, adminID, "ftp://x").Return(errors.New("invalid apk url")).Once()
		settings.On("SetAPKURL", ctx, adminID, "https://cdn.example.com/app.apk").Return(nil).Once()

		replies := f.HandleText(ctx, common.Inbound{UserID: adminID, Text: "ftp://x"}, state)
		assert.Contains(t, replies[0].Text, "full http(s) URL")

		replies = f.HandleText(ctx, common.Inbound{UserID: adminID, Text: "https://cdn.example.com/app.apk"}, state)
		assert.Contains(t, replies[0].Text, "APK link updated")
		settings.AssertExpectations(t)
	})

	t.Run("remove needs confirmation", func(t *testing.T) {
		f, _, settings, _ := newTestFeature()
		state := session.State{Stage: session.StageAdminConfirmRemoveAPK}

		replies := f.HandleText(ctx, common.Inbound{UserID: adminID, Text: "no"}, state)
		assert.Contains(t, replies[0].Text, "Cancelled")
		settings.AssertNotCalled(t, "RemoveAPKURL", mock.Anything, mock.Anything)

		settings.On("RemoveAPKURL", ctx, adminID).Return(nil)
		replies = f.HandleText(ctx, common.Inbound{UserID: adminID, Text: "Yes"}, state)
		assert.Contains(t, replies[0].Text, "APK link removed")
	})
}
