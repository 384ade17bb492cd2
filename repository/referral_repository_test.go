package repository

import (
	"context"
	"testing"

	"signalbot/models"
	"signalbot/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferralRepository_Lifecycle(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	accounts := NewAccountRepository(testDB.DB)
	repo := NewReferralRepository(testDB.DB)
	ctx := context.Background()

	for _, id := range []int64{1, 2, 3} {
		_, err := accounts.Create(ctx, testutil.NewAccountParams(id, "user", 0))
		require.NoError(t, err)
	}

	t.Run("missing edge is unlinked", func(t *testing.T) {
		ref, err := repo.GetByReferred(ctx, 2)
		require.NoError(t, err)
		assert.Nil(t, ref)
		assert.Equal(t, models.ReferralStateUnlinked, ref.State())
	})

	t.Run("first writer wins", func(t *testing.T) {
		ok, err := repo.Create(ctx, 1, 2, false)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.Create(ctx, 3, 2, false)
		require.NoError(t, err)
		assert.False(t, ok)

		ref, err := repo.GetByReferred(ctx, 2)
		require.NoError(t, err)
		require.NotNil(t, ref)
		assert.Equal(t, int64(1), ref.ReferrerID)
		assert.Equal(t, models.ReferralStateLinked, ref.State())
	})

	t.Run("self edge violates check", func(t *testing.T) {
		_, err := repo.Create(ctx, 3, 3, false)
		assert.Error(t, err)
	})

	t.Run("bonus is paid once", func(t *testing.T) {
		ok, err := repo.MarkBonusPaid(ctx, 2, 2500)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.MarkBonusPaid(ctx, 2, 2500)
		require.NoError(t, err)
		assert.False(t, ok)

		ref, err := repo.GetByReferredForUpdate(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, models.ReferralStateBonusPaid, ref.State())
		assert.Equal(t, int64(2500), ref.BonusAmount)
		assert.NotNil(t, ref.PaidAt)
	})

	t.Run("summary", func(t *testing.T) {
		_, err := repo.Create(ctx, 1, 3, false)
		require.NoError(t, err)

		summary, err := repo.GetSummary(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 2, summary.TotalReferrals)
		assert.Equal(t, 1, summary.PaidReferrals)
		assert.Equal(t, int64(2500), summary.TotalEarned)
	})
}
