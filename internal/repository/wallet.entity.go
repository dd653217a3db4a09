package repository

import (
	"time"

	"github.com/sekolahpay/canteen-ledger/internal/model"
)

type WalletEntity struct {
	ID          int64      `db:"id"             gorm:"primaryKey;autoIncrement;column:id"`
	UserID      int64      `db:"user_id"        gorm:"column:user_id;not null;uniqueIndex"`
	RfidCardID  *int64     `db:"rfid_card_id"   gorm:"column:rfid_card_id;index"`
	Balance     int64      `db:"balance"        gorm:"column:balance;not null;default:0"`
	LastTopUpAt *time.Time `db:"last_top_up_at" gorm:"column:last_top_up_at"`
}

func (WalletEntity) TableName() string {
	return "wallets"
}

func toWalletEntity(m *model.Wallet) *WalletEntity {
	if m == nil {
		return nil
	}
	return &WalletEntity{
		ID:          m.ID,
		UserID:      m.UserID,
		RfidCardID:  m.RfidCardID,
		Balance:     m.Balance,
		LastTopUpAt: m.LastTopUpAt,
	}
}

func toWalletModel(e *WalletEntity) *model.Wallet {
	if e == nil {
		return nil
	}
	return &model.Wallet{
		ID:          e.ID,
		UserID:      e.UserID,
		RfidCardID:  e.RfidCardID,
		Balance:     e.Balance,
		LastTopUpAt: e.LastTopUpAt,
	}
}
