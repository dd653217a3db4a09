package repository

import (
	"time"

	"github.com/sekolahpay/canteen-ledger/internal/model"
)

type CanteenSessionEntity struct {
	ID             int64      `db:"id"              gorm:"primaryKey;autoIncrement;column:id"`
	OpenedBy       int64      `db:"opened_by"       gorm:"column:opened_by;not null;index"`
	OpenedAt       time.Time  `db:"opened_at"       gorm:"column:opened_at;not null"`
	ClosedAt       *time.Time `db:"closed_at"       gorm:"column:closed_at"`
	InitialBalance int64      `db:"initial_balance" gorm:"column:initial_balance;not null;default:0"`
	CurrentBalance int64      `db:"current_balance" gorm:"column:current_balance;not null;default:0"`
	IsSettled      bool       `db:"is_settled"      gorm:"column:is_settled;not null;default:false"`
	SettlementTime *time.Time `db:"settlement_time" gorm:"column:settlement_time"`
	Note           *string    `db:"note"            gorm:"column:note"`
}

func (CanteenSessionEntity) TableName() string {
	return "canteen_sessions"
}

func toCanteenEntity(m *model.CanteenSession) *CanteenSessionEntity {
	if m == nil {
		return nil
	}
	return &CanteenSessionEntity{
		ID:             m.ID,
		OpenedBy:       m.OpenedBy,
		OpenedAt:       m.OpenedAt,
		ClosedAt:       m.ClosedAt,
		InitialBalance: m.InitialBalance,
		CurrentBalance: m.CurrentBalance,
		IsSettled:      m.IsSettled,
		SettlementTime: m.SettlementTime,
		Note:           m.Note,
	}
}

func toCanteenModel(e *CanteenSessionEntity) *model.CanteenSession {
	if e == nil {
		return nil
	}
	return &model.CanteenSession{
		ID:             e.ID,
		OpenedBy:       e.OpenedBy,
		OpenedAt:       e.OpenedAt,
		ClosedAt:       e.ClosedAt,
		InitialBalance: e.InitialBalance,
		CurrentBalance: e.CurrentBalance,
		IsSettled:      e.IsSettled,
		SettlementTime: e.SettlementTime,
		Note:           e.Note,
	}
}

func toCanteenModels(entities []*CanteenSessionEntity) []*model.CanteenSession {
	if entities == nil {
		return nil
	}
	models := make([]*model.CanteenSession, len(entities))
	for i, e := range entities {
		models[i] = toCanteenModel(e)
	}
	return models
}
