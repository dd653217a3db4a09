package repository

import (
	"context"
	"errors"

	"github.com/sekolahpay/canteen-ledger/internal/model"
	"github.com/sekolahpay/canteen-ledger/pkg/pg"
	"gorm.io/gorm"
)

var (
	ErrCardNotFound = errors.New("rfid card not found")
	ErrCardInactive = errors.New("rfid card is not active")
)

type CardRepository struct {
	*pg.DB
}

func NewCardRepository(db *pg.DB) *CardRepository {
	return &CardRepository{
		db,
	}
}

// FindActiveByUID resolves a tapped card to its owner. An existing but
// blocked card is reported distinctly from an unknown one.
func (r *CardRepository) FindActiveByUID(ctx context.Context, uid string) (*model.RfidCard, error) {
	var entity RfidCardEntity
	err := r.Read(ctx).WithContext(ctx).
		Preload("User").
		Where("uid = ?", uid).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, err
	}

	if !entity.IsActive {
		return nil, ErrCardInactive
	}

	return toRfidCardModel(&entity), nil
}

func (r *CardRepository) FindByUserID(ctx context.Context, userID int64) (*model.RfidCard, error) {
	var entity RfidCardEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, err
	}

	return toRfidCardModel(&entity), nil
}
