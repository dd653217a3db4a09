package model

import "time"

// CanteenSession is one day's till for one opener.
// Lifecycle: Open -> Funded -> Closed -> Settled. No transition is reversible.
type CanteenSession struct {
	ID             int64      `json:"id"              db:"id"              gorm:"primaryKey;autoIncrement;column:id"`
	OpenedBy       int64      `json:"opened_by"       db:"opened_by"       gorm:"column:opened_by;not null;index"`
	Opener         *User      `json:"-"                                    gorm:"foreignKey:OpenedBy;references:ID"`
	OpenedAt       time.Time  `json:"opened_at"       db:"opened_at"       gorm:"column:opened_at;not null"`
	ClosedAt       *time.Time `json:"closed_at"       db:"closed_at"       gorm:"column:closed_at"`
	InitialBalance int64      `json:"initial_balance" db:"initial_balance" gorm:"column:initial_balance;not null;default:0"`
	CurrentBalance int64      `json:"current_balance" db:"current_balance" gorm:"column:current_balance;not null;default:0"`
	IsSettled      bool       `json:"is_settled"      db:"is_settled"      gorm:"column:is_settled;not null;default:false"`
	SettlementTime *time.Time `json:"settlement_time" db:"settlement_time" gorm:"column:settlement_time"`
	Note           *string    `json:"note"            db:"note"            gorm:"column:note"`
}

func (CanteenSession) TableName() string { return "canteen_sessions" }

func (c *CanteenSession) IsClosed() bool {
	return c.ClosedAt != nil
}

func (c *CanteenSession) NetProfit() int64 {
	return c.CurrentBalance - c.InitialBalance
}
