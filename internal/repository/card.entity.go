package repository

import (
	"time"

	"github.com/sekolahpay/canteen-ledger/internal/model"
)

type RfidCardEntity struct {
	ID          int64       `db:"id"           gorm:"primaryKey;autoIncrement;column:id"`
	UserID      int64       `db:"user_id"      gorm:"column:user_id;not null;index"`
	User        *UserEntity `gorm:"foreignKey:UserID;references:ID"`
	UID         string      `db:"uid"          gorm:"column:uid;not null;uniqueIndex"`
	IsActive    bool        `db:"is_active"    gorm:"column:is_active;not null"`
	ActivatedAt time.Time   `db:"activated_at" gorm:"column:activated_at"`
	BlockedAt   *time.Time  `db:"blocked_at"   gorm:"column:blocked_at"`
}

func (RfidCardEntity) TableName() string {
	return "rfid_cards"
}

func toRfidCardEntity(m *model.RfidCard) *RfidCardEntity {
	if m == nil {
		return nil
	}
	return &RfidCardEntity{
		ID:          m.ID,
		UserID:      m.UserID,
		UID:         m.UID,
		IsActive:    m.IsActive,
		ActivatedAt: m.ActivatedAt,
		BlockedAt:   m.BlockedAt,
	}
}

func toRfidCardModel(e *RfidCardEntity) *model.RfidCard {
	if e == nil {
		return nil
	}
	return &model.RfidCard{
		ID:          e.ID,
		UserID:      e.UserID,
		User:        toUserModel(e.User),
		UID:         e.UID,
		IsActive:    e.IsActive,
		ActivatedAt: e.ActivatedAt,
		BlockedAt:   e.BlockedAt,
	}
}
