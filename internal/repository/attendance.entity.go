package repository

import (
	"time"

	"github.com/sekolahpay/canteen-ledger/internal/model"
)

type AttendanceEntity struct {
	ID           int64      `db:"id"             gorm:"primaryKey;autoIncrement;column:id"`
	UserID       int64      `db:"user_id"        gorm:"column:user_id;not null;index"`
	CheckedInAt  time.Time  `db:"checked_in_at"  gorm:"column:checked_in_at;not null"`
	CheckedOutAt *time.Time `db:"checked_out_at" gorm:"column:checked_out_at"`
}

func (AttendanceEntity) TableName() string {
	return "attendances"
}

func toAttendanceModel(e *AttendanceEntity) *model.Attendance {
	if e == nil {
		return nil
	}
	return &model.Attendance{
		ID:           e.ID,
		UserID:       e.UserID,
		CheckedInAt:  e.CheckedInAt,
		CheckedOutAt: e.CheckedOutAt,
	}
}
