package repository

import (
	"context"
	"errors"

	"github.com/sekolahpay/canteen-ledger/internal/model"
	"github.com/sekolahpay/canteen-ledger/pkg/pg"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrRequestNotPending   = errors.New("withdrawal request is not pending")
)

type TransactionRepository struct {
	*pg.DB
}

func NewTransactionRepository(db *pg.DB) *TransactionRepository {
	return &TransactionRepository{
		db,
	}
}

func (r *TransactionRepository) Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	entity := toTransactionEntity(txn)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toTransactionModel(entity), nil
}

func (r *TransactionRepository) FindByID(ctx context.Context, id int64) (*model.Transaction, error) {
	var entity TransactionEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("id = ?", id).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}

	return toTransactionModel(&entity), nil
}

// FindSuccessfulPurchase loads the row a refund would reverse; anything that
// is not a committed purchase is reported as not found.
func (r *TransactionRepository) FindSuccessfulPurchase(ctx context.Context, id int64) (*model.Transaction, error) {
	var entity TransactionEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("id = ? AND type = ? AND status = ?",
			id, string(model.TransactionTypePurchase), string(model.TransactionStatusSuccess)).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}

	return toTransactionModel(&entity), nil
}

// RefundExists reports whether any refund already back-references the given
// purchase. The unique index on original_transaction_id is the hard guarantee;
// this check exists to return a clean conflict instead of a driver error.
func (r *TransactionRepository) RefundExists(ctx context.Context, originalTransactionID int64) (bool, error) {
	var count int64
	err := r.Read(ctx).WithContext(ctx).
		Model(&TransactionEntity{}).
		Where("original_transaction_id = ? AND type = ?",
			originalTransactionID, string(model.TransactionTypeRefund)).
		Count(&count).
		Error

	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// FindPendingWithdrawal locks the pending request row. Callers must be inside
// WithinTransaction so the pending -> success|failed transition is exclusive.
func (r *TransactionRepository) FindPendingWithdrawal(ctx context.Context, requestID int64) (*model.Transaction, error) {
	var entity TransactionEntity
	err := r.Write(ctx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND type = ?", requestID, string(model.TransactionTypeWithdrawal)).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}

	if entity.Status != string(model.TransactionStatusPending) {
		return nil, ErrRequestNotPending
	}

	return toTransactionModel(&entity), nil
}

func (r *TransactionRepository) PendingWithdrawalExists(ctx context.Context, canteenID int64) (bool, error) {
	var count int64
	err := r.Read(ctx).WithContext(ctx).
		Model(&TransactionEntity{}).
		Where("canteen_id = ? AND type = ? AND status = ?",
			canteenID, string(model.TransactionTypeWithdrawal), string(model.TransactionStatusPending)).
		Count(&count).
		Error

	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// MarkWithdrawalApproved flips the request row pending -> success. The status
// guard in the WHERE clause makes the transition exactly-once even when two
// admins race.
func (r *TransactionRepository) MarkWithdrawalApproved(ctx context.Context, requestID, adminID int64) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&TransactionEntity{}).
		Where("id = ? AND status = ?", requestID, string(model.TransactionStatusPending)).
		Updates(map[string]interface{}{
			"status":      string(model.TransactionStatusSuccess),
			"approved_by": adminID,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRequestNotPending
	}
	return nil
}

func (r *TransactionRepository) MarkWithdrawalRejected(ctx context.Context, requestID, adminID int64, reason string) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&TransactionEntity{}).
		Where("id = ? AND status = ?", requestID, string(model.TransactionStatusPending)).
		Updates(map[string]interface{}{
			"status":        string(model.TransactionStatusFailed),
			"rejected_by":   adminID,
			"reject_reason": reason,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRequestNotPending
	}
	return nil
}

func (r *TransactionRepository) List(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, int64, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&TransactionEntity{})

	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.CanteenID != nil {
		q = q.Where("canteen_id = ?", *f.CanteenID)
	}
	if len(f.Types) > 0 {
		q = q.Where("type IN ?", f.Types)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at < ?", *f.To)
	}

	// Count before pagination
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "created_at"
	if f.Desc {
		order += " DESC"
	} else {
		order += " ASC"
	}

	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var entities []*TransactionEntity
	if err := q.Order(order).Limit(limit).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}

	return toTransactionModels(entities), total, nil
}
