package repository

import (
	"context"
	"testing"
	"time"

	"signalbot/events"
	"signalbot/models"
	"signalbot/repository/testutil"
	"signalbot/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountRepository_CreateAndGet(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewAccountRepository(testDB.DB)
	ctx := context.Background()

	t.Run("account not found", func(t *testing.T) {
		account, err := repo.GetByID(ctx, 999999)
		require.NoError(t, err)
		assert.Nil(t, account)
	})

	t.Run("create then get", func(t *testing.T) {
		dueAt := time.Now().Add(time.Minute).UTC().Truncate(time.Microsecond)
		params := testutil.NewAccountParams(123456, "alice", 100)
		params.StartBonusDueAt = &dueAt

		created, err := repo.Create(ctx, params)
		require.NoError(t, err)
		require.NotNil(t, created)

		account, err := repo.GetByID(ctx, 123456)
		require.NoError(t, err)
		require.NotNil(t, account)

		assert.Equal(t, "alice", account.Username)
		assert.Equal(t, int64(100), account.Balance)
		assert.Equal(t, params.RedemptionCode, account.RedemptionCode)
		assert.Equal(t, 3, account.FreeSignals)
		assert.Nil(t, account.ReferredBy)
		assert.False(t, account.StartBonusGiven)
		require.NotNil(t, account.StartBonusDueAt)
		assert.True(t, dueAt.Equal(*account.StartBonusDueAt))
	})

	t.Run("duplicate id returns nil", func(t *testing.T) {
		_, err := repo.Create(ctx, testutil.NewAccountParams(222222, "bob", 0))
		require.NoError(t, err)

		params := testutil.NewAccountParams(222222, "bob-again", 0)
		params.RedemptionCode = "7654321"
		again, err := repo.Create(ctx, params)
		require.NoError(t, err)
		assert.Nil(t, again)

		account, err := repo.GetByID(ctx, 222222)
		require.NoError(t, err)
		assert.Equal(t, "bob", account.Username)
	})

	t.Run("duplicate code is rejected", func(t *testing.T) {
		params := testutil.NewAccountParams(333333, "carol", 0)
		params.RedemptionCode = testutil.TestCode(123456)

		created, err := repo.Create(ctx, params)
		assert.ErrorIs(t, err, service.ErrDuplicateCode)
		assert.Nil(t, created)

		exists, err := repo.CodeExists(ctx, testutil.TestCode(123456))
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.CodeExists(ctx, "0000000")
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestAccountRepository_OneShotFlags(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewAccountRepository(testDB.DB)
	ctx := context.Background()

	_, err := repo.Create(ctx, testutil.NewAccountParams(1001, "inviter", 0))
	require.NoError(t, err)
	_, err = repo.Create(ctx, testutil.NewAccountParams(1002, "invitee", 0))
	require.NoError(t, err)

	t.Run("referrer is set once", func(t *testing.T) {
		ok, err := repo.SetReferredBy(ctx, 1002, 1001)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.SetReferredBy(ctx, 1002, 1001)
		require.NoError(t, err)
		assert.False(t, ok)

		account, err := repo.GetByID(ctx, 1002)
		require.NoError(t, err)
		require.NotNil(t, account.ReferredBy)
		assert.Equal(t, int64(1001), *account.ReferredBy)
	})

	t.Run("self referral is refused", func(t *testing.T) {
		ok, err := repo.SetReferredBy(ctx, 1001, 1001)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("start bonus flag flips once", func(t *testing.T) {
		ok, err := repo.MarkStartBonusGiven(ctx, 1002)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.MarkStartBonusGiven(ctx, 1002)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("promo flips once and unlocks apk", func(t *testing.T) {
		ok, err := repo.MarkPromoUsed(ctx, 1002)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.MarkPromoUsed(ctx, 1002)
		require.NoError(t, err)
		assert.False(t, ok)

		account, err := repo.GetByID(ctx, 1002)
		require.NoError(t, err)
		assert.True(t, account.PromoUsed)
		assert.True(t, account.APKAccess)
	})

	t.Run("signals consume free allowance without going negative", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			require.NoError(t, repo.RecordSignal(ctx, 1001, true))
		}
		account, err := repo.GetByID(ctx, 1001)
		require.NoError(t, err)
		assert.Equal(t, 5, account.TotalSignals)
		assert.Equal(t, 0, account.FreeSignals)
	})
}

func TestAccountRepository_GetDueStartBonuses(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewAccountRepository(testDB.DB)
	ctx := context.Background()
	now := time.Now()

	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	due := testutil.NewAccountParams(1, "due", 0)
	due.StartBonusDueAt = &past
	notYet := testutil.NewAccountParams(2, "not-yet", 0)
	notYet.StartBonusDueAt = &future
	given := testutil.NewAccountParams(3, "given", 0)
	given.StartBonusDueAt = &past
	unscheduled := testutil.NewAccountParams(4, "unscheduled", 0)

	for _, p := range []*models.NewAccount{due, notYet, given, unscheduled} {
		_, err := repo.Create(ctx, p)
		require.NoError(t, err)
	}
	_, err := repo.MarkStartBonusGiven(ctx, 3)
	require.NoError(t, err)

	ids, err := repo.GetDueStartBonuses(ctx, now, 100)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids)
}

func TestAccountRepository_CreateRetriesInsideTransaction(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	_, err := NewAccountRepository(testDB.DB).Create(ctx, testutil.NewAccountParams(10, "taken", 0))
	require.NoError(t, err)

	uow := NewUnitOfWorkFactory(testDB.DB, events.NewBus()).Create()
	require.NoError(t, uow.Begin(ctx))
	defer uow.Rollback()

	params := testutil.NewAccountParams(20, "late", 0)
	params.RedemptionCode = testutil.TestCode(10)

	_, err = uow.AccountRepository().Create(ctx, params)
	require.ErrorIs(t, err, service.ErrDuplicateCode)

	params.RedemptionCode = testutil.TestCode(20)
	created, err := uow.AccountRepository().Create(ctx, params)
	require.NoError(t, err)
	require.NotNil(t, created)
	require.NoError(t, uow.Commit())

	account, err := NewAccountRepository(testDB.DB).GetByID(ctx, 20)
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, testutil.TestCode(20), account.RedemptionCode)
}

func TestAccountRepository_GetLedgerStats(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	accounts := NewAccountRepository(testDB.DB)
	referrals := NewReferralRepository(testDB.DB)
	history := NewBalanceHistoryRepository(testDB.DB)
	ctx := context.Background()

	_, err := accounts.Create(ctx, testutil.NewAccountParams(10, "a", 15000))
	require.NoError(t, err)
	_, err = accounts.Create(ctx, testutil.NewAccountParams(20, "b", 2500))
	require.NoError(t, err)

	_, err = accounts.SetReferredBy(ctx, 20, 10)
	require.NoError(t, err)
	_, err = referrals.Create(ctx, 10, 20, false)
	require.NoError(t, err)
	_, err = accounts.MarkStartBonusGiven(ctx, 10)
	require.NoError(t, err)
	_, err = accounts.MarkPromoUsed(ctx, 20)
	require.NoError(t, err)

	require.NoError(t, history.Record(ctx, testutil.NewTestBalanceHistory(10, 0, 15000, models.TransactionTypeStartBonus)))
	require.NoError(t, history.Record(ctx, testutil.NewTestBalanceHistory(20, 0, 2500, models.TransactionTypeReferralBonus)))
	require.NoError(t, history.Record(ctx, testutil.NewTestBalanceHistory(20, 2500, 100, models.TransactionTypeAdminAdjustment)))

	stats, err := accounts.GetLedgerStats(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalAccounts)
	assert.Equal(t, int64(17500), stats.TotalBalance)
	assert.Equal(t, 1, stats.TotalReferrals)
	assert.Equal(t, 2, stats.TotalBonusEvents)
	assert.Equal(t, 1, stats.StartBonusesGiven)
	assert.Equal(t, 1, stats.ReferredAccounts)
	assert.Equal(t, 1, stats.PromoRedemptions)
}

func TestAccountRepository_ApplyImport(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewAccountRepository(testDB.DB)
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	params := testutil.NewAccountParams(77, "old-name", 0)
	params.StartBonusDueAt = &past
	_, err := repo.Create(ctx, params)
	require.NoError(t, err)

	err = repo.ApplyImport(ctx, &models.ImportedAccount{
		TelegramID:      77,
		Username:        "imported",
		RedemptionCode:  "0420042",
		TotalSignals:    9,
		FreeSignals:     1,
		PromoUsed:       true,
		APKAccess:       true,
		StartBonusGiven: true,
	})
	require.NoError(t, err)

	account, err := repo.GetByID(ctx, 77)
	require.NoError(t, err)
	assert.Equal(t, "imported", account.Username)
	assert.Equal(t, "0420042", account.RedemptionCode)
	assert.Equal(t, 9, account.TotalSignals)
	assert.True(t, account.StartBonusGiven)
	assert.Nil(t, account.StartBonusDueAt)

	err = repo.ApplyImport(ctx, &models.ImportedAccount{TelegramID: 78, RedemptionCode: "1111111"})
	assert.Error(t, err)
}
