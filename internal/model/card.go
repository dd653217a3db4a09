package model

import "time"

// RfidCard is the physical token addressing a wallet. The ledger only reads
// it: lookups by UID plus the activation flag.
type RfidCard struct {
	ID          int64      `json:"id"           db:"id"           gorm:"primaryKey;autoIncrement;column:id"`
	UserID      int64      `json:"user_id"      db:"user_id"      gorm:"column:user_id;not null;index"`
	User        *User      `json:"-"                               gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
	UID         string     `json:"uid"          db:"uid"          gorm:"column:uid;not null;uniqueIndex"`
	IsActive    bool       `json:"is_active"    db:"is_active"    gorm:"column:is_active;not null"`
	ActivatedAt time.Time  `json:"activated_at" db:"activated_at" gorm:"column:activated_at"`
	BlockedAt   *time.Time `json:"blocked_at"   db:"blocked_at"   gorm:"column:blocked_at"`
}

func (RfidCard) TableName() string { return "rfid_cards" }
