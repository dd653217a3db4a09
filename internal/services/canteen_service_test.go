package services

import (
	"context"
	"testing"
	"time"

	"github.com/sekolahpay/canteen-ledger/internal/model"
	"github.com/sekolahpay/canteen-ledger/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newCanteenFixture() (*CanteenService, *MockSessionRepository, *MockUserRepository) {
	sessionRepo := new(MockSessionRepository)
	userRepo := new(MockUserRepository)
	return NewCanteenService(sessionRepo, userRepo), sessionRepo, userRepo
}

func TestCanteenService_Open(t *testing.T) {
	ctx := context.Background()
	staff := &model.User{ID: 2, Role: model.RoleStaff}

	t.Run("staff opens today's session", func(t *testing.T) {
		svc, sessionRepo, userRepo := newCanteenFixture()

		userRepo.On("FindByID", ctx, int64(2)).Return(staff, nil)
		sessionRepo.On("FindOpenByOpener", ctx, int64(2), mock.Anything, mock.Anything).Return(nil, repository.ErrCanteenNotFound)
		sessionRepo.On("Create", ctx, mock.MatchedBy(func(s *model.CanteenSession) bool {
			return s.OpenedBy == 2 && !s.OpenedAt.IsZero()
		})).Return(&model.CanteenSession{ID: 3, OpenedBy: 2}, nil)

		session, err := svc.Open(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(3), session.ID)

		sessionRepo.AssertExpectations(t)
	})

	t.Run("second open on the same day is a conflict", func(t *testing.T) {
		svc, sessionRepo, userRepo := newCanteenFixture()

		userRepo.On("FindByID", ctx, int64(2)).Return(staff, nil)
		sessionRepo.On("FindOpenByOpener", ctx, int64(2), mock.Anything, mock.Anything).
			Return(&model.CanteenSession{ID: 3, OpenedBy: 2}, nil)

		_, err := svc.Open(ctx, 2)
		assert.ErrorIs(t, err, ErrSessionAlreadyOpen)
		assert.Equal(t, KindConflict, KindOf(err))

		sessionRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("students cannot open", func(t *testing.T) {
		svc, _, userRepo := newCanteenFixture()

		userRepo.On("FindByID", ctx, int64(5)).Return(&model.User{ID: 5, Role: model.RoleStudent}, nil)

		_, err := svc.Open(ctx, 5)
		assert.ErrorIs(t, err, ErrStaffRequired)
		assert.Equal(t, KindAuthorizationRequired, KindOf(err))
	})

	t.Run("unknown user", func(t *testing.T) {
		svc, _, userRepo := newCanteenFixture()

		userRepo.On("FindByID", ctx, int64(99)).Return(nil, repository.ErrUserNotFound)

		_, err := svc.Open(ctx, 99)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestCanteenService_Fund(t *testing.T) {
	ctx := context.Background()

	t.Run("fund once", func(t *testing.T) {
		svc, sessionRepo, _ := newCanteenFixture()

		sessionRepo.On("FindOpenByOpener", ctx, int64(2), mock.Anything, mock.Anything).
			Return(&model.CanteenSession{ID: 3, OpenedBy: 2}, nil)
		sessionRepo.On("Fund", ctx, int64(3), int64(50000)).Return(true, nil)
		sessionRepo.On("FindByID", ctx, int64(3)).
			Return(&model.CanteenSession{ID: 3, OpenedBy: 2, InitialBalance: 50000}, nil)

		session, err := svc.Fund(ctx, 2, 50000)
		require.NoError(t, err)
		assert.Equal(t, int64(50000), session.InitialBalance)
		assert.Equal(t, int64(0), session.CurrentBalance)
	})

	t.Run("second fund is a conflict", func(t *testing.T) {
		svc, sessionRepo, _ := newCanteenFixture()

		sessionRepo.On("FindOpenByOpener", ctx, int64(2), mock.Anything, mock.Anything).
			Return(&model.CanteenSession{ID: 3, OpenedBy: 2, InitialBalance: 50000}, nil)

		_, err := svc.Fund(ctx, 2, 10000)
		assert.ErrorIs(t, err, ErrSessionAlreadyFunded)
	})

	t.Run("losing the fund race is still a conflict", func(t *testing.T) {
		svc, sessionRepo, _ := newCanteenFixture()

		sessionRepo.On("FindOpenByOpener", ctx, int64(2), mock.Anything, mock.Anything).
			Return(&model.CanteenSession{ID: 3, OpenedBy: 2}, nil)
		sessionRepo.On("Fund", ctx, int64(3), int64(10000)).Return(false, nil)

		_, err := svc.Fund(ctx, 2, 10000)
		assert.ErrorIs(t, err, ErrSessionAlreadyFunded)
	})

	t.Run("negative amount", func(t *testing.T) {
		svc, _, _ := newCanteenFixture()

		_, err := svc.Fund(ctx, 2, -1)
		assert.Error(t, err)
	})

	t.Run("no open session", func(t *testing.T) {
		svc, sessionRepo, _ := newCanteenFixture()

		sessionRepo.On("FindOpenByOpener", ctx, int64(2), mock.Anything, mock.Anything).
			Return(nil, repository.ErrCanteenNotFound)

		_, err := svc.Fund(ctx, 2, 10000)
		assert.ErrorIs(t, err, ErrNoOpenSession)
	})
}

func TestCanteenService_Close(t *testing.T) {
	ctx := context.Background()

	t.Run("close today's session", func(t *testing.T) {
		svc, sessionRepo, _ := newCanteenFixture()

		closedAt := time.Now()
		sessionRepo.On("FindOpenByOpener", ctx, int64(2), mock.Anything, mock.Anything).
			Return(&model.CanteenSession{ID: 3, OpenedBy: 2}, nil)
		sessionRepo.On("Close", ctx, int64(3), mock.AnythingOfType("time.Time")).Return(nil)
		sessionRepo.On("FindByID", ctx, int64(3)).
			Return(&model.CanteenSession{ID: 3, OpenedBy: 2, ClosedAt: &closedAt}, nil)

		session, err := svc.Close(ctx, 2)
		require.NoError(t, err)
		assert.True(t, session.IsClosed())
	})

	t.Run("nothing open to close", func(t *testing.T) {
		svc, sessionRepo, _ := newCanteenFixture()

		sessionRepo.On("FindOpenByOpener", ctx, int64(2), mock.Anything, mock.Anything).
			Return(nil, repository.ErrCanteenNotFound)

		_, err := svc.Close(ctx, 2)
		assert.ErrorIs(t, err, ErrNoOpenSession)
	})
}

func TestCanteenService_Settle(t *testing.T) {
	ctx := context.Background()
	closedAt := time.Now().Add(-time.Hour)

	t.Run("settle computes net profit", func(t *testing.T) {
		svc, sessionRepo, _ := newCanteenFixture()

		closed := &model.CanteenSession{
			ID: 3, OpenedBy: 2, ClosedAt: &closedAt,
			InitialBalance: 50000, CurrentBalance: 80000,
		}
		settledAt := time.Now()
		settled := &model.CanteenSession{
			ID: 3, OpenedBy: 2, ClosedAt: &closedAt,
			InitialBalance: 50000, CurrentBalance: 80000,
			IsSettled: true, SettlementTime: &settledAt,
		}

		sessionRepo.On("WithinTransaction", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
		sessionRepo.On("FindByIDForUpdate", ctx, int64(3)).Return(closed, nil)
		sessionRepo.On("MarkSettled", ctx, int64(3), mock.AnythingOfType("time.Time"), mock.Anything).Return(nil)
		sessionRepo.On("FindByID", ctx, int64(3)).Return(settled, nil)

		result, err := svc.Settle(ctx, 2, 3, "books balanced")
		require.NoError(t, err)
		assert.Equal(t, int64(30000), result.NetProfit)
		assert.True(t, result.Session.IsSettled)
	})

	t.Run("settle before close is rejected", func(t *testing.T) {
		svc, sessionRepo, _ := newCanteenFixture()

		open := &model.CanteenSession{ID: 3, OpenedBy: 2, InitialBalance: 50000, CurrentBalance: 80000}
		sessionRepo.On("WithinTransaction", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
		sessionRepo.On("FindByIDForUpdate", ctx, int64(3)).Return(open, nil)

		_, err := svc.Settle(ctx, 2, 3, "")
		assert.ErrorIs(t, err, ErrSessionNotClosed)
		assert.Equal(t, KindConflict, KindOf(err))

		sessionRepo.AssertNotCalled(t, "MarkSettled", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("settling twice is rejected", func(t *testing.T) {
		svc, sessionRepo, _ := newCanteenFixture()

		already := &model.CanteenSession{ID: 3, OpenedBy: 2, ClosedAt: &closedAt, IsSettled: true}
		sessionRepo.On("WithinTransaction", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
		sessionRepo.On("FindByIDForUpdate", ctx, int64(3)).Return(already, nil)

		_, err := svc.Settle(ctx, 2, 3, "")
		assert.ErrorIs(t, err, ErrSessionAlreadySettled)
	})

	t.Run("only the opener may settle", func(t *testing.T) {
		svc, sessionRepo, _ := newCanteenFixture()

		closed := &model.CanteenSession{ID: 3, OpenedBy: 2, ClosedAt: &closedAt}
		sessionRepo.On("WithinTransaction", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
		sessionRepo.On("FindByIDForUpdate", ctx, int64(3)).Return(closed, nil)

		_, err := svc.Settle(ctx, 9, 3, "")
		assert.ErrorIs(t, err, ErrNotSessionOwner)
	})

	t.Run("unknown session", func(t *testing.T) {
		svc, sessionRepo, _ := newCanteenFixture()

		sessionRepo.On("WithinTransaction", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
		sessionRepo.On("FindByIDForUpdate", ctx, int64(99)).Return(nil, repository.ErrCanteenNotFound)

		_, err := svc.Settle(ctx, 2, 99, "")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})
}
