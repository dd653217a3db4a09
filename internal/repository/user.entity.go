package repository

import (
	"time"

	"github.com/sekolahpay/canteen-ledger/internal/model"
)

type UserEntity struct {
	ID        int64      `db:"id"         gorm:"primaryKey;autoIncrement;column:id"`
	Name      string     `db:"name"       gorm:"column:name;not null"`
	Email     string     `db:"email"      gorm:"column:email;not null;unique"`
	Role      string     `db:"role"       gorm:"column:role;not null"`
	PinHash   *string    `db:"pin_hash"   gorm:"column:pin_hash"`
	CreatedAt time.Time  `db:"created_at" gorm:"column:created_at;autoCreateTime"`
}

func (UserEntity) TableName() string {
	return "users"
}

func toUserEntity(m *model.User) *UserEntity {
	if m == nil {
		return nil
	}
	return &UserEntity{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		Role:      string(m.Role),
		PinHash:   m.PinHash,
		CreatedAt: m.CreatedAt,
	}
}

func toUserModel(e *UserEntity) *model.User {
	if e == nil {
		return nil
	}
	return &model.User{
		ID:        e.ID,
		Name:      e.Name,
		Email:     e.Email,
		Role:      model.Role(e.Role),
		PinHash:   e.PinHash,
		CreatedAt: e.CreatedAt,
	}
}
