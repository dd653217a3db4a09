package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sekolahpay/canteen-ledger/internal/model"
	"github.com/sekolahpay/canteen-ledger/pkg/pg"
	"gorm.io/gorm"
)

var (
	ErrAttendanceNotFound = errors.New("attendance record not found")
)

type AttendanceRepository struct {
	*pg.DB
}

func NewAttendanceRepository(db *pg.DB) *AttendanceRepository {
	return &AttendanceRepository{
		db,
	}
}

// FindCheckIn returns the user's attendance row with a check-in inside
// [from, to). Purchases require such a row without a check-out yet.
func (r *AttendanceRepository) FindCheckIn(ctx context.Context, userID int64, from, to time.Time) (*model.Attendance, error) {
	var entity AttendanceEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("user_id = ? AND checked_in_at >= ? AND checked_in_at < ?", userID, from, to).
		Order("checked_in_at DESC").
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttendanceNotFound
		}
		return nil, err
	}

	return toAttendanceModel(&entity), nil
}
