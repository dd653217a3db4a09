package repository

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/sekolahpay/canteen-ledger/pkg/pg"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testDB struct {
	*pg.DB
	rawDB *gorm.DB
}

func setupTestDB(t *testing.T) *testDB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&UserEntity{},
		&RfidCardEntity{},
		&WalletEntity{},
		&CanteenSessionEntity{},
		&TransactionEntity{},
		&AttendanceEntity{},
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

	return &testDB{
		DB:    pgDB,
		rawDB: db,
	}
}

func seedUser(t *testing.T, db *testDB, role string) *UserEntity {
	t.Helper()
	u := &UserEntity{
		Name:  "Test User",
		Email: uniqueEmail(t),
		Role:  role,
	}
	require.NoError(t, db.rawDB.Create(u).Error)
	return u
}

func seedWallet(t *testing.T, db *testDB, userID int64, balance int64) *WalletEntity {
	t.Helper()
	w := &WalletEntity{
		UserID:  userID,
		Balance: balance,
	}
	require.NoError(t, db.rawDB.Create(w).Error)
	return w
}

var emailCounter int

func uniqueEmail(t *testing.T) string {
	t.Helper()
	emailCounter++
	return fmt.Sprintf("user%d@example.test", emailCounter)
}
