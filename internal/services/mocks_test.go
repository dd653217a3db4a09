package services

import (
	"context"
	"time"

	"github.com/sekolahpay/canteen-ledger/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockWalletRepository struct {
	mock.Mock
}

func (m *MockWalletRepository) FindByUserID(ctx context.Context, userID int64) (*model.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Wallet), args.Error(1)
}

func (m *MockWalletRepository) FindByUserIDForUpdate(ctx context.Context, userID int64) (*model.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Wallet), args.Error(1)
}

func (m *MockWalletRepository) Credit(ctx context.Context, walletID int64, amount int64) error {
	args := m.Called(ctx, walletID, amount)
	return args.Error(0)
}

func (m *MockWalletRepository) Debit(ctx context.Context, walletID int64, amount int64) error {
	args := m.Called(ctx, walletID, amount)
	return args.Error(0)
}

func (m *MockWalletRepository) GetBalance(ctx context.Context, walletID int64) (int64, error) {
	args := m.Called(ctx, walletID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockWalletRepository) MarkToppedUp(ctx context.Context, walletID int64, at time.Time) error {
	args := m.Called(ctx, walletID, at)
	return args.Error(0)
}

func (m *MockWalletRepository) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(ctx)
}

type MockCardRepository struct {
	mock.Mock
}

func (m *MockCardRepository) FindActiveByUID(ctx context.Context, uid string) (*model.RfidCard, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RfidCard), args.Error(1)
}

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	args := m.Called(ctx, txn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindSuccessfulPurchase(ctx context.Context, id int64) (*model.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) RefundExists(ctx context.Context, originalTransactionID int64) (bool, error) {
	args := m.Called(ctx, originalTransactionID)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransactionRepository) List(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*model.Transaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockTransactionRepository) FindPendingWithdrawal(ctx context.Context, requestID int64) (*model.Transaction, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) PendingWithdrawalExists(ctx context.Context, canteenID int64) (bool, error) {
	args := m.Called(ctx, canteenID)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransactionRepository) MarkWithdrawalApproved(ctx context.Context, requestID, adminID int64) error {
	args := m.Called(ctx, requestID, adminID)
	return args.Error(0)
}

func (m *MockTransactionRepository) MarkWithdrawalRejected(ctx context.Context, requestID, adminID int64, reason string) error {
	args := m.Called(ctx, requestID, adminID, reason)
	return args.Error(0)
}

type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, session *model.CanteenSession) (*model.CanteenSession, error) {
	args := m.Called(ctx, session)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CanteenSession), args.Error(1)
}

func (m *MockSessionRepository) FindByID(ctx context.Context, id int64) (*model.CanteenSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CanteenSession), args.Error(1)
}

func (m *MockSessionRepository) FindByIDForUpdate(ctx context.Context, id int64) (*model.CanteenSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CanteenSession), args.Error(1)
}

func (m *MockSessionRepository) FindOpenByOpener(ctx context.Context, openerID int64, from, to time.Time) (*model.CanteenSession, error) {
	args := m.Called(ctx, openerID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CanteenSession), args.Error(1)
}

func (m *MockSessionRepository) Fund(ctx context.Context, id int64, amount int64) (bool, error) {
	args := m.Called(ctx, id, amount)
	return args.Bool(0), args.Error(1)
}

func (m *MockSessionRepository) AddToBalance(ctx context.Context, id int64, delta int64) error {
	args := m.Called(ctx, id, delta)
	return args.Error(0)
}

func (m *MockSessionRepository) Close(ctx context.Context, id int64, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockSessionRepository) MarkSettled(ctx context.Context, id int64, at time.Time, note *string) error {
	args := m.Called(ctx, id, at, note)
	return args.Error(0)
}

func (m *MockSessionRepository) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(ctx)
}

type MockAttendanceRepository struct {
	mock.Mock
}

func (m *MockAttendanceRepository) FindCheckIn(ctx context.Context, userID int64, from, to time.Time) (*model.Attendance, error) {
	args := m.Called(ctx, userID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Attendance), args.Error(1)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) UpdatePinHash(ctx context.Context, userID int64, pinHash string) error {
	args := m.Called(ctx, userID, pinHash)
	return args.Error(0)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishJSON(ctx context.Context, data interface{}, metadata map[string]string) (string, error) {
	args := m.Called(ctx, data, metadata)
	return args.String(0), args.Error(1)
}
