package model

import "time"

// Attendance is the daily check-in record consulted before a purchase.
// Read-only to the ledger: purchases are only allowed between check-in and
// check-out on the same day.
type Attendance struct {
	ID           int64      `json:"id"             db:"id"             gorm:"primaryKey;autoIncrement;column:id"`
	UserID       int64      `json:"user_id"        db:"user_id"        gorm:"column:user_id;not null;index"`
	CheckedInAt  time.Time  `json:"checked_in_at"  db:"checked_in_at"  gorm:"column:checked_in_at;not null"`
	CheckedOutAt *time.Time `json:"checked_out_at" db:"checked_out_at" gorm:"column:checked_out_at"`
}

func (Attendance) TableName() string { return "attendances" }
