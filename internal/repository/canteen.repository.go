package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sekolahpay/canteen-ledger/internal/model"
	"github.com/sekolahpay/canteen-ledger/pkg/pg"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrCanteenNotFound = errors.New("canteen session not found")
)

type CanteenRepository struct {
	*pg.DB
}

func NewCanteenRepository(db *pg.DB) *CanteenRepository {
	return &CanteenRepository{
		db,
	}
}

func (r *CanteenRepository) Create(ctx context.Context, session *model.CanteenSession) (*model.CanteenSession, error) {
	entity := toCanteenEntity(session)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toCanteenModel(entity), nil
}

func (r *CanteenRepository) FindByID(ctx context.Context, id int64) (*model.CanteenSession, error) {
	var entity CanteenSessionEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("id = ?", id).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCanteenNotFound
		}
		return nil, err
	}

	return toCanteenModel(&entity), nil
}

// FindByIDForUpdate locks the session row for the remainder of the
// surrounding transaction. Callers must be inside WithinTransaction.
func (r *CanteenRepository) FindByIDForUpdate(ctx context.Context, id int64) (*model.CanteenSession, error) {
	var entity CanteenSessionEntity
	err := r.Write(ctx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCanteenNotFound
		}
		return nil, err
	}

	return toCanteenModel(&entity), nil
}

// FindOpenByOpener returns the opener's still-open session in [from, to).
// Used both to reject a second Open on the same day and to route a purchase
// to the till that serves it.
func (r *CanteenRepository) FindOpenByOpener(ctx context.Context, openerID int64, from, to time.Time) (*model.CanteenSession, error) {
	var entity CanteenSessionEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("opened_by = ? AND closed_at IS NULL AND opened_at >= ? AND opened_at < ?", openerID, from, to).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCanteenNotFound
		}
		return nil, err
	}

	return toCanteenModel(&entity), nil
}

// Fund seeds the float exactly once: it only matches a row whose initial
// balance is still zero, so a second Fund affects nothing. The float is
// bookkeeping only; current_balance stays the running sum of transactions.
func (r *CanteenRepository) Fund(ctx context.Context, id int64, amount int64) (bool, error) {
	result := r.Write(ctx).WithContext(ctx).
		Model(&CanteenSessionEntity{}).
		Where("id = ? AND initial_balance = 0", id).
		Update("initial_balance", amount)

	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

// AddToBalance moves the running till balance by delta (positive for a
// purchase, negative for a refund or withdrawal).
func (r *CanteenRepository) AddToBalance(ctx context.Context, id int64, delta int64) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&CanteenSessionEntity{}).
		Where("id = ?", id).
		Update("current_balance", gorm.Expr("current_balance + ?", delta))

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCanteenNotFound
	}
	return nil
}

func (r *CanteenRepository) Close(ctx context.Context, id int64, at time.Time) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&CanteenSessionEntity{}).
		Where("id = ? AND closed_at IS NULL", id).
		Update("closed_at", at)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCanteenNotFound
	}
	return nil
}

func (r *CanteenRepository) MarkSettled(ctx context.Context, id int64, at time.Time, note *string) error {
	fields := map[string]interface{}{
		"is_settled":      true,
		"settlement_time": at,
	}
	if note != nil {
		fields["note"] = *note
	}

	result := r.Write(ctx).WithContext(ctx).
		Model(&CanteenSessionEntity{}).
		Where("id = ? AND is_settled = ?", id, false).
		Updates(fields)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCanteenNotFound
	}
	return nil
}

func (r *CanteenRepository) ListByOpener(ctx context.Context, openerID int64, limit, offset int) ([]*model.CanteenSession, int64, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&CanteenSessionEntity{}).
		Where("opened_by = ?", openerID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var entities []*CanteenSessionEntity
	if err := q.Order("opened_at DESC").Limit(limit).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}

	return toCanteenModels(entities), total, nil
}
