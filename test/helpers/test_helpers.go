package helpers

import (
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/sekolahpay/canteen-ledger/internal/repository"
	"github.com/sekolahpay/canteen-ledger/pkg/pg"
	"github.com/sekolahpay/canteen-ledger/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func SetupTestDB(t *testing.T) *pg.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&repository.UserEntity{},
		&repository.RfidCardEntity{},
		&repository.WalletEntity{},
		&repository.CanteenSessionEntity{},
		&repository.TransactionEntity{},
		&repository.AttendanceEntity{},
	)
	require.NoError(t, err)

	pgDB := &pg.DB{}
	pgDBValue := reflect.ValueOf(pgDB).Elem()

	readField := pgDBValue.FieldByName("read")
	writeField := pgDBValue.FieldByName("write")

	readField = reflect.NewAt(readField.Type(), readField.Addr().UnsafePointer()).Elem()
	writeField = reflect.NewAt(writeField.Type(), writeField.Addr().UnsafePointer()).Elem()

	readField.Set(reflect.ValueOf(db))
	writeField.Set(reflect.ValueOf(db))

	return pgDB
}

func SetupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	// Unique connection name per test to avoid global adapter caching issues
	connName := fmt.Sprintf("test-%d", time.Now().UnixNano())
	adapter, err := redis.NewRedisAdapter(connName, "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

func CreateTestUser(t *testing.T, db *pg.DB, role string) *repository.UserEntity {
	ctx := context.Background()
	user := &repository.UserEntity{
		Name:  "Test " + role,
		Email: RandomEmail(),
		Role:  role,
	}
	err := db.Write(ctx).Create(user).Error
	require.NoError(t, err)
	return user
}

func CreateTestUserWithPin(t *testing.T, db *pg.DB, role, pin string) *repository.UserEntity {
	user := CreateTestUser(t, db, role)
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	require.NoError(t, err)
	hashStr := string(hash)
	user.PinHash = &hashStr
	err = db.Write(context.Background()).Save(user).Error
	require.NoError(t, err)
	return user
}

func CreateTestCard(t *testing.T, db *pg.DB, userID int64, uid string) *repository.RfidCardEntity {
	ctx := context.Background()
	card := &repository.RfidCardEntity{
		UserID:      userID,
		UID:         uid,
		IsActive:    true,
		ActivatedAt: time.Now(),
	}
	err := db.Write(ctx).Create(card).Error
	require.NoError(t, err)
	return card
}

func CreateTestWallet(t *testing.T, db *pg.DB, userID int64, balance int64) *repository.WalletEntity {
	ctx := context.Background()
	wallet := &repository.WalletEntity{
		UserID:  userID,
		Balance: balance,
	}
	err := db.Write(ctx).Create(wallet).Error
	require.NoError(t, err)
	return wallet
}

func CreateTestCheckIn(t *testing.T, db *pg.DB, userID int64) *repository.AttendanceEntity {
	ctx := context.Background()
	attendance := &repository.AttendanceEntity{
		UserID:      userID,
		CheckedInAt: time.Now(),
	}
	err := db.Write(ctx).Create(attendance).Error
	require.NoError(t, err)
	return attendance
}

func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func AssertEventually(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	if !WaitForCondition(t, timeout, condition) {
		t.Fatal(msg)
	}
}

func ContextWithTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

var emailCounter int

func RandomEmail() string {
	emailCounter++
	return fmt.Sprintf("user-%d-%d@example.test", time.Now().UnixNano(), emailCounter)
}

func Ptr[T any](v T) *T {
	return &v
}
