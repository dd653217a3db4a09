package handlers

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/sekolahpay/canteen-ledger/internal/model"
	"github.com/sekolahpay/canteen-ledger/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCanteenService struct {
	mock.Mock
}

func (m *MockCanteenService) Open(ctx context.Context, userID int64) (*model.CanteenSession, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CanteenSession), args.Error(1)
}

func (m *MockCanteenService) Fund(ctx context.Context, userID int64, amount int64) (*model.CanteenSession, error) {
	args := m.Called(ctx, userID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CanteenSession), args.Error(1)
}

func (m *MockCanteenService) Close(ctx context.Context, userID int64) (*model.CanteenSession, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CanteenSession), args.Error(1)
}

func (m *MockCanteenService) Settle(ctx context.Context, userID, canteenID int64, note string) (*services.SettleResult, error) {
	args := m.Called(ctx, userID, canteenID, note)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SettleResult), args.Error(1)
}

func (m *MockCanteenService) Get(ctx context.Context, canteenID int64) (*model.CanteenSession, error) {
	args := m.Called(ctx, canteenID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CanteenSession), args.Error(1)
}

func TestCanteenHandler_Open(t *testing.T) {
	t.Run("successful open", func(t *testing.T) {
		svc := new(MockCanteenService)
		handler := NewCanteenHandler(svc)

		bodyBytes, _ := json.Marshal(openSessionRequest{UserID: 7})

		svc.On("Open", mock.Anything, int64(7)).
			Return(&model.CanteenSession{ID: 3, OpenedBy: 7, OpenedAt: time.Now()}, nil)

		ctx := setupTestContext("POST", "/canteens/open", bodyBytes)
		handler.Open(ctx)

		assert.Equal(t, 201, ctx.Response.StatusCode())

		var response model.CanteenSession
		err := json.Unmarshal(ctx.Response.Body(), &response)
		require.NoError(t, err)
		assert.Equal(t, int64(3), response.ID)

		svc.AssertExpectations(t)
	})

	t.Run("duplicate open maps to 409", func(t *testing.T) {
		svc := new(MockCanteenService)
		handler := NewCanteenHandler(svc)

		bodyBytes, _ := json.Marshal(openSessionRequest{UserID: 7})

		svc.On("Open", mock.Anything, int64(7)).Return(nil, services.ErrSessionAlreadyOpen)

		ctx := setupTestContext("POST", "/canteens/open", bodyBytes)
		handler.Open(ctx)

		assert.Equal(t, 409, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})

	t.Run("student opener maps to 403", func(t *testing.T) {
		svc := new(MockCanteenService)
		handler := NewCanteenHandler(svc)

		bodyBytes, _ := json.Marshal(openSessionRequest{UserID: 5})

		svc.On("Open", mock.Anything, int64(5)).Return(nil, services.ErrStaffRequired)

		ctx := setupTestContext("POST", "/canteens/open", bodyBytes)
		handler.Open(ctx)

		assert.Equal(t, 403, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})

	t.Run("missing user id", func(t *testing.T) {
		svc := new(MockCanteenService)
		handler := NewCanteenHandler(svc)

		ctx := setupTestContext("POST", "/canteens/open", []byte(`{}`))
		handler.Open(ctx)

		assert.Equal(t, 422, ctx.Response.StatusCode())
		svc.AssertNotCalled(t, "Open")
	})
}

func TestCanteenHandler_Fund(t *testing.T) {
	t.Run("successful fund", func(t *testing.T) {
		svc := new(MockCanteenService)
		handler := NewCanteenHandler(svc)

		bodyBytes, _ := json.Marshal(fundSessionRequest{UserID: 7, Amount: 200000})

		svc.On("Fund", mock.Anything, int64(7), int64(200000)).
			Return(&model.CanteenSession{ID: 3, OpenedBy: 7, InitialBalance: 200000, CurrentBalance: 200000}, nil)

		ctx := setupTestContext("POST", "/canteens/fund", bodyBytes)
		handler.Fund(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})

	t.Run("second fund maps to 409", func(t *testing.T) {
		svc := new(MockCanteenService)
		handler := NewCanteenHandler(svc)

		bodyBytes, _ := json.Marshal(fundSessionRequest{UserID: 7, Amount: 100})

		svc.On("Fund", mock.Anything, int64(7), int64(100)).Return(nil, services.ErrSessionAlreadyFunded)

		ctx := setupTestContext("POST", "/canteens/fund", bodyBytes)
		handler.Fund(ctx)

		assert.Equal(t, 409, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})

	t.Run("negative amount", func(t *testing.T) {
		svc := new(MockCanteenService)
		handler := NewCanteenHandler(svc)

		bodyBytes, _ := json.Marshal(fundSessionRequest{UserID: 7, Amount: -1})

		ctx := setupTestContext("POST", "/canteens/fund", bodyBytes)
		handler.Fund(ctx)

		assert.Equal(t, 422, ctx.Response.StatusCode())
		svc.AssertNotCalled(t, "Fund")
	})
}

func TestCanteenHandler_Close(t *testing.T) {
	t.Run("successful close", func(t *testing.T) {
		svc := new(MockCanteenService)
		handler := NewCanteenHandler(svc)

		bodyBytes, _ := json.Marshal(openSessionRequest{UserID: 7})
		closedAt := time.Now()

		svc.On("Close", mock.Anything, int64(7)).
			Return(&model.CanteenSession{ID: 3, OpenedBy: 7, ClosedAt: &closedAt}, nil)

		ctx := setupTestContext("POST", "/canteens/close", bodyBytes)
		handler.Close(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})

	t.Run("no open session maps to 409", func(t *testing.T) {
		svc := new(MockCanteenService)
		handler := NewCanteenHandler(svc)

		bodyBytes, _ := json.Marshal(openSessionRequest{UserID: 7})

		svc.On("Close", mock.Anything, int64(7)).Return(nil, services.ErrNoOpenSession)

		ctx := setupTestContext("POST", "/canteens/close", bodyBytes)
		handler.Close(ctx)

		assert.Equal(t, 409, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})
}

func TestCanteenHandler_Settle(t *testing.T) {
	t.Run("successful settle", func(t *testing.T) {
		svc := new(MockCanteenService)
		handler := NewCanteenHandler(svc)

		bodyBytes, _ := json.Marshal(settleSessionRequest{UserID: 7, Note: "end of day"})

		svc.On("Settle", mock.Anything, int64(7), int64(3), "end of day").
			Return(&services.SettleResult{NetProfit: 30000}, nil)

		ctx := setupTestContext("POST", "/canteens/3/settle", bodyBytes)
		ctx.SetUserValue("id", "3")
		handler.Settle(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())

		var response services.SettleResult
		err := json.Unmarshal(ctx.Response.Body(), &response)
		require.NoError(t, err)
		assert.Equal(t, int64(30000), response.NetProfit)

		svc.AssertExpectations(t)
	})

	t.Run("settle before close maps to 409", func(t *testing.T) {
		svc := new(MockCanteenService)
		handler := NewCanteenHandler(svc)

		bodyBytes, _ := json.Marshal(settleSessionRequest{UserID: 7})

		svc.On("Settle", mock.Anything, int64(7), int64(3), "").
			Return(nil, services.ErrSessionNotClosed)

		ctx := setupTestContext("POST", "/canteens/3/settle", bodyBytes)
		ctx.SetUserValue("id", "3")
		handler.Settle(ctx)

		assert.Equal(t, 409, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})

	t.Run("invalid canteen id", func(t *testing.T) {
		svc := new(MockCanteenService)
		handler := NewCanteenHandler(svc)

		ctx := setupTestContext("POST", "/canteens/abc/settle", []byte(`{"user_id":7}`))
		ctx.SetUserValue("id", "abc")
		handler.Settle(ctx)

		assert.Equal(t, 422, ctx.Response.StatusCode())
		svc.AssertNotCalled(t, "Settle")
	})
}

func TestCanteenHandler_Get(t *testing.T) {
	t.Run("successful get", func(t *testing.T) {
		svc := new(MockCanteenService)
		handler := NewCanteenHandler(svc)

		svc.On("Get", mock.Anything, int64(3)).
			Return(&model.CanteenSession{ID: 3, OpenedBy: 7, CurrentBalance: 500000}, nil)

		ctx := setupTestContext("GET", "/canteens/3", nil)
		ctx.SetUserValue("id", "3")
		handler.Get(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})

	t.Run("unknown session maps to 404", func(t *testing.T) {
		svc := new(MockCanteenService)
		handler := NewCanteenHandler(svc)

		svc.On("Get", mock.Anything, int64(99)).Return(nil, services.ErrSessionNotFound)

		ctx := setupTestContext("GET", "/canteens/99", nil)
		ctx.SetUserValue("id", "99")
		handler.Get(ctx)

		assert.Equal(t, 404, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})
}
