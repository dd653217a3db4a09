package repository

import (
	"context"
	"testing"

	"github.com/sekolahpay/canteen-ledger/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }

func TestTransactionRepository_Create(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTransactionRepository(db.DB)
	ctx := context.Background()

	u := seedUser(t, db, "student")

	created, err := repo.Create(ctx, &model.Transaction{
		UserID: u.ID,
		Type:   model.TransactionTypeTopUp,
		Status: model.TransactionStatusSuccess,
		Amount: 5000,
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, model.TransactionTypeTopUp, created.Type)

	got, err := repo.FindByID(ctx, created.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(5000), got.Amount)

	_, err = repo.FindByID(ctx, 99999)
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestTransactionRepository_FindSuccessfulPurchase(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTransactionRepository(db.DB)
	ctx := context.Background()

	u := seedUser(t, db, "student")

	purchase, err := repo.Create(ctx, &model.Transaction{
		UserID: u.ID,
		Type:   model.TransactionTypePurchase,
		Status: model.TransactionStatusSuccess,
		Amount: 3000,
	})
	require.NoError(t, err)

	failed, err := repo.Create(ctx, &model.Transaction{
		UserID: u.ID,
		Type:   model.TransactionTypePurchase,
		Status: model.TransactionStatusFailed,
		Amount: 3000,
	})
	require.NoError(t, err)

	topUp, err := repo.Create(ctx, &model.Transaction{
		UserID: u.ID,
		Type:   model.TransactionTypeTopUp,
		Status: model.TransactionStatusSuccess,
		Amount: 3000,
	})
	require.NoError(t, err)

	got, err := repo.FindSuccessfulPurchase(ctx, purchase.ID)
	assert.NoError(t, err)
	assert.Equal(t, purchase.ID, got.ID)

	// A failed purchase is not refundable.
	_, err = repo.FindSuccessfulPurchase(ctx, failed.ID)
	assert.ErrorIs(t, err, ErrTransactionNotFound)

	// Neither is a top-up.
	_, err = repo.FindSuccessfulPurchase(ctx, topUp.ID)
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestTransactionRepository_RefundExists(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTransactionRepository(db.DB)
	ctx := context.Background()

	u := seedUser(t, db, "student")

	purchase, err := repo.Create(ctx, &model.Transaction{
		UserID: u.ID,
		Type:   model.TransactionTypePurchase,
		Status: model.TransactionStatusSuccess,
		Amount: 2000,
	})
	require.NoError(t, err)

	exists, err := repo.RefundExists(ctx, purchase.ID)
	assert.NoError(t, err)
	assert.False(t, exists)

	_, err = repo.Create(ctx, &model.Transaction{
		UserID:                u.ID,
		Type:                  model.TransactionTypeRefund,
		Status:                model.TransactionStatusSuccess,
		Amount:                2000,
		OriginalTransactionID: int64Ptr(purchase.ID),
	})
	require.NoError(t, err)

	exists, err = repo.RefundExists(ctx, purchase.ID)
	assert.NoError(t, err)
	assert.True(t, exists)

	// The unique index rejects a second refund of the same purchase.
	_, err = repo.Create(ctx, &model.Transaction{
		UserID:                u.ID,
		Type:                  model.TransactionTypeRefund,
		Status:                model.TransactionStatusSuccess,
		Amount:                2000,
		OriginalTransactionID: int64Ptr(purchase.ID),
	})
	assert.Error(t, err)
}

func TestTransactionRepository_WithdrawalLifecycle(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTransactionRepository(db.DB)
	ctx := context.Background()

	opener := seedUser(t, db, "staff")
	admin := seedUser(t, db, "admin")

	canteenRepo := NewCanteenRepository(db.DB)
	session, err := canteenRepo.Create(ctx, &model.CanteenSession{
		OpenedBy: opener.ID,
	})
	require.NoError(t, err)

	t.Run("approval is exactly-once", func(t *testing.T) {
		request, err := repo.Create(ctx, &model.Transaction{
			UserID:    opener.ID,
			CanteenID: int64Ptr(session.ID),
			Type:      model.TransactionTypeWithdrawal,
			Status:    model.TransactionStatusPending,
			Amount:    10000,
		})
		require.NoError(t, err)

		got, err := repo.FindPendingWithdrawal(ctx, request.ID)
		assert.NoError(t, err)
		assert.Equal(t, request.ID, got.ID)

		exists, err := repo.PendingWithdrawalExists(ctx, session.ID)
		assert.NoError(t, err)
		assert.True(t, exists)

		err = repo.MarkWithdrawalApproved(ctx, request.ID, admin.ID)
		assert.NoError(t, err)

		got, err = repo.FindByID(ctx, request.ID)
		require.NoError(t, err)
		assert.Equal(t, model.TransactionStatusSuccess, got.Status)
		require.NotNil(t, got.ApprovedBy)
		assert.Equal(t, admin.ID, *got.ApprovedBy)

		err = repo.MarkWithdrawalApproved(ctx, request.ID, admin.ID)
		assert.ErrorIs(t, err, ErrRequestNotPending)

		_, err = repo.FindPendingWithdrawal(ctx, request.ID)
		assert.ErrorIs(t, err, ErrRequestNotPending)

		exists, err = repo.PendingWithdrawalExists(ctx, session.ID)
		assert.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("rejection records the decision", func(t *testing.T) {
		request, err := repo.Create(ctx, &model.Transaction{
			UserID:    opener.ID,
			CanteenID: int64Ptr(session.ID),
			Type:      model.TransactionTypeWithdrawal,
			Status:    model.TransactionStatusPending,
			Amount:    5000,
		})
		require.NoError(t, err)

		err = repo.MarkWithdrawalRejected(ctx, request.ID, admin.ID, "till count mismatch")
		assert.NoError(t, err)

		got, err := repo.FindByID(ctx, request.ID)
		require.NoError(t, err)
		assert.Equal(t, model.TransactionStatusFailed, got.Status)
		require.NotNil(t, got.RejectedBy)
		assert.Equal(t, admin.ID, *got.RejectedBy)
		require.NotNil(t, got.RejectReason)
		assert.Equal(t, "till count mismatch", *got.RejectReason)

		err = repo.MarkWithdrawalRejected(ctx, request.ID, admin.ID, "again")
		assert.ErrorIs(t, err, ErrRequestNotPending)
	})

	t.Run("unknown request", func(t *testing.T) {
		_, err := repo.FindPendingWithdrawal(ctx, 99999)
		assert.ErrorIs(t, err, ErrTransactionNotFound)
	})
}

func TestTransactionRepository_List(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTransactionRepository(db.DB)
	ctx := context.Background()

	u := seedUser(t, db, "student")
	other := seedUser(t, db, "student")

	for i := 0; i < 3; i++ {
		_, err := repo.Create(ctx, &model.Transaction{
			UserID: u.ID,
			Type:   model.TransactionTypeTopUp,
			Status: model.TransactionStatusSuccess,
			Amount: 1000,
		})
		require.NoError(t, err)
	}
	_, err := repo.Create(ctx, &model.Transaction{
		UserID: u.ID,
		Type:   model.TransactionTypePurchase,
		Status: model.TransactionStatusFailed,
		Amount: 500,
	})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &model.Transaction{
		UserID: other.ID,
		Type:   model.TransactionTypeTopUp,
		Status: model.TransactionStatusSuccess,
		Amount: 1000,
	})
	require.NoError(t, err)

	txns, total, err := repo.List(ctx, model.TransactionFilter{
		UserID: &u.ID,
		Types:  []model.TransactionType{model.TransactionTypeTopUp},
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, txns, 3)

	txns, total, err = repo.List(ctx, model.TransactionFilter{
		UserID:   &u.ID,
		Statuses: []model.TransactionStatus{model.TransactionStatusFailed},
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, model.TransactionTypePurchase, txns[0].Type)
}
