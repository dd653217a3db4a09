package repository

import (
	"context"
	"testing"
	"time"

	"github.com/sekolahpay/canteen-ledger/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanteenRepository_CreateAndFind(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCanteenRepository(db.DB)
	ctx := context.Background()

	opener := seedUser(t, db, "staff")

	created, err := repo.Create(ctx, &model.CanteenSession{
		OpenedBy: opener.ID,
		OpenedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	got, err := repo.FindByID(ctx, created.ID)
	assert.NoError(t, err)
	assert.Equal(t, opener.ID, got.OpenedBy)
	assert.False(t, got.IsClosed())
	assert.False(t, got.IsSettled)

	_, err = repo.FindByID(ctx, 99999)
	assert.ErrorIs(t, err, ErrCanteenNotFound)
}

func TestCanteenRepository_FindOpenByOpener(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCanteenRepository(db.DB)
	ctx := context.Background()

	opener := seedUser(t, db, "staff")

	now := time.Now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	t.Run("no session today", func(t *testing.T) {
		_, err := repo.FindOpenByOpener(ctx, opener.ID, dayStart, dayEnd)
		assert.ErrorIs(t, err, ErrCanteenNotFound)
	})

	t.Run("yesterday's session is out of range", func(t *testing.T) {
		_, err := repo.Create(ctx, &model.CanteenSession{
			OpenedBy: opener.ID,
			OpenedAt: dayStart.Add(-12 * time.Hour),
		})
		require.NoError(t, err)

		_, err = repo.FindOpenByOpener(ctx, opener.ID, dayStart, dayEnd)
		assert.ErrorIs(t, err, ErrCanteenNotFound)
	})

	t.Run("today's open session is found", func(t *testing.T) {
		created, err := repo.Create(ctx, &model.CanteenSession{
			OpenedBy: opener.ID,
			OpenedAt: now,
		})
		require.NoError(t, err)

		got, err := repo.FindOpenByOpener(ctx, opener.ID, dayStart, dayEnd)
		assert.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
	})

	t.Run("closed session is skipped", func(t *testing.T) {
		got, err := repo.FindOpenByOpener(ctx, opener.ID, dayStart, dayEnd)
		require.NoError(t, err)

		require.NoError(t, repo.Close(ctx, got.ID, now))

		_, err = repo.FindOpenByOpener(ctx, opener.ID, dayStart, dayEnd)
		assert.ErrorIs(t, err, ErrCanteenNotFound)
	})
}

func TestCanteenRepository_Fund(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCanteenRepository(db.DB)
	ctx := context.Background()

	opener := seedUser(t, db, "staff")
	session, err := repo.Create(ctx, &model.CanteenSession{
		OpenedBy: opener.ID,
		OpenedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	funded, err := repo.Fund(ctx, session.ID, 50000)
	assert.NoError(t, err)
	assert.True(t, funded)

	// The float is bookkeeping only: with no transactions yet the running
	// balance must stay zero.
	got, err := repo.FindByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), got.InitialBalance)
	assert.Equal(t, int64(0), got.CurrentBalance)

	// Second fund hits the initial_balance = 0 guard and is a no-op.
	funded, err = repo.Fund(ctx, session.ID, 10000)
	assert.NoError(t, err)
	assert.False(t, funded)

	got, err = repo.FindByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), got.InitialBalance)
	assert.Equal(t, int64(0), got.CurrentBalance)
}

func TestCanteenRepository_FundKeepsRunningBalanceTransactional(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCanteenRepository(db.DB)
	ctx := context.Background()

	opener := seedUser(t, db, "staff")
	session, err := repo.Create(ctx, &model.CanteenSession{
		OpenedBy: opener.ID,
		OpenedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	funded, err := repo.Fund(ctx, session.ID, 10000)
	require.NoError(t, err)
	require.True(t, funded)

	// A purchase and a refund move current_balance; the float never does.
	require.NoError(t, repo.AddToBalance(ctx, session.ID, 12000))
	require.NoError(t, repo.AddToBalance(ctx, session.ID, -4000))

	got, err := repo.FindByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), got.InitialBalance)
	assert.Equal(t, int64(8000), got.CurrentBalance)
	assert.Equal(t, int64(-2000), got.NetProfit())
}

func TestCanteenRepository_AddToBalance(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCanteenRepository(db.DB)
	ctx := context.Background()

	opener := seedUser(t, db, "staff")
	session, err := repo.Create(ctx, &model.CanteenSession{
		OpenedBy: opener.ID,
		OpenedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	_, err = repo.Fund(ctx, session.ID, 10000)
	require.NoError(t, err)

	err = repo.AddToBalance(ctx, session.ID, 2500)
	assert.NoError(t, err)

	err = repo.AddToBalance(ctx, session.ID, -1500)
	assert.NoError(t, err)

	got, err := repo.FindByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(11000), got.CurrentBalance)
	assert.Equal(t, int64(1000), got.NetProfit())

	err = repo.AddToBalance(ctx, 99999, 100)
	assert.ErrorIs(t, err, ErrCanteenNotFound)
}

func TestCanteenRepository_CloseAndSettle(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCanteenRepository(db.DB)
	ctx := context.Background()

	opener := seedUser(t, db, "staff")
	session, err := repo.Create(ctx, &model.CanteenSession{
		OpenedBy: opener.ID,
		OpenedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	now := time.Now().UTC()

	err = repo.Close(ctx, session.ID, now)
	assert.NoError(t, err)

	got, err := repo.FindByID(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, got.IsClosed())

	// Closing twice hits the closed_at IS NULL guard.
	err = repo.Close(ctx, session.ID, now)
	assert.ErrorIs(t, err, ErrCanteenNotFound)

	note := "reconciled against till count"
	err = repo.MarkSettled(ctx, session.ID, now, &note)
	assert.NoError(t, err)

	got, err = repo.FindByID(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, got.IsSettled)
	require.NotNil(t, got.SettlementTime)
	require.NotNil(t, got.Note)
	assert.Equal(t, note, *got.Note)

	// Settling twice hits the is_settled guard.
	err = repo.MarkSettled(ctx, session.ID, now, nil)
	assert.ErrorIs(t, err, ErrCanteenNotFound)
}

func TestCanteenRepository_ListByOpener(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCanteenRepository(db.DB)
	ctx := context.Background()

	opener := seedUser(t, db, "staff")
	other := seedUser(t, db, "staff")

	for i := 0; i < 3; i++ {
		_, err := repo.Create(ctx, &model.CanteenSession{
			OpenedBy: opener.ID,
			OpenedAt: time.Now().UTC().Add(time.Duration(-i) * 24 * time.Hour),
		})
		require.NoError(t, err)
	}
	_, err := repo.Create(ctx, &model.CanteenSession{
		OpenedBy: other.ID,
		OpenedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	sessions, total, err := repo.ListByOpener(ctx, opener.ID, 2, 0)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, sessions, 2)
}
