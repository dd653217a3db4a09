package model

import "time"

// Wallet holds a student's spendable balance in whole currency units.
// Balance never goes negative after a committed operation; only the ledger
// services mutate it, always under a row lock.
type Wallet struct {
	ID          int64      `json:"id"           db:"id"           gorm:"primaryKey;autoIncrement;column:id"`
	UserID      int64      `json:"user_id"      db:"user_id"      gorm:"column:user_id;not null;uniqueIndex"`
	User        *User      `json:"-"                               gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
	RfidCardID  *int64     `json:"rfid_card_id" db:"rfid_card_id" gorm:"column:rfid_card_id;index"`
	Balance     int64      `json:"balance"      db:"balance"      gorm:"column:balance;not null;default:0"`
	LastTopUpAt *time.Time `json:"last_top_up_at" db:"last_top_up_at" gorm:"column:last_top_up_at"`
}

func (Wallet) TableName() string { return "wallets" }
