package handlers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sekolahpay/canteen-ledger/internal/model"
	"github.com/sekolahpay/canteen-ledger/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockWithdrawalService struct {
	mock.Mock
}

func (m *MockWithdrawalService) Request(ctx context.Context, p model.WithdrawalCreateRequest) (*model.Transaction, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockWithdrawalService) Approve(ctx context.Context, p model.WithdrawalDecision) (*model.Transaction, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockWithdrawalService) Reject(ctx context.Context, p model.WithdrawalDecision) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func TestWithdrawalHandler_Request(t *testing.T) {
	t.Run("successful request", func(t *testing.T) {
		svc := new(MockWithdrawalService)
		handler := NewWithdrawalHandler(svc)

		bodyBytes, _ := json.Marshal(withdrawalRequest{CanteenID: 3, OpenerID: 7, Amount: 2500000})

		svc.On("Request", mock.Anything, mock.MatchedBy(func(p model.WithdrawalCreateRequest) bool {
			return p.CanteenID == 3 && p.OpenerID == 7 && p.Amount == 2500000
		})).Return(&model.Transaction{ID: 70, Status: model.TransactionStatusPending, Amount: 2500000}, nil)

		ctx := setupTestContext("POST", "/withdrawals", bodyBytes)
		handler.Request(ctx)

		assert.Equal(t, 201, ctx.Response.StatusCode())

		var response model.Transaction
		err := json.Unmarshal(ctx.Response.Body(), &response)
		require.NoError(t, err)
		assert.Equal(t, model.TransactionStatusPending, response.Status)

		svc.AssertExpectations(t)
	})

	t.Run("session still open maps to 409", func(t *testing.T) {
		svc := new(MockWithdrawalService)
		handler := NewWithdrawalHandler(svc)

		bodyBytes, _ := json.Marshal(withdrawalRequest{CanteenID: 3, OpenerID: 7, Amount: 1000})

		svc.On("Request", mock.Anything, mock.Anything).Return(nil, services.ErrSessionNotClosed)

		ctx := setupTestContext("POST", "/withdrawals", bodyBytes)
		handler.Request(ctx)

		assert.Equal(t, 409, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})

	t.Run("over balance maps to 422", func(t *testing.T) {
		svc := new(MockWithdrawalService)
		handler := NewWithdrawalHandler(svc)

		bodyBytes, _ := json.Marshal(withdrawalRequest{CanteenID: 3, OpenerID: 7, Amount: 9999999})

		svc.On("Request", mock.Anything, mock.Anything).Return(nil, services.ErrCanteenInsufficientBalance)

		ctx := setupTestContext("POST", "/withdrawals", bodyBytes)
		handler.Request(ctx)

		assert.Equal(t, 422, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})

	t.Run("zero amount rejected before the service", func(t *testing.T) {
		svc := new(MockWithdrawalService)
		handler := NewWithdrawalHandler(svc)

		bodyBytes, _ := json.Marshal(withdrawalRequest{CanteenID: 3, OpenerID: 7, Amount: 0})

		ctx := setupTestContext("POST", "/withdrawals", bodyBytes)
		handler.Request(ctx)

		assert.Equal(t, 422, ctx.Response.StatusCode())
		svc.AssertNotCalled(t, "Request")
	})
}

func TestWithdrawalHandler_Approve(t *testing.T) {
	t.Run("successful approve", func(t *testing.T) {
		svc := new(MockWithdrawalService)
		handler := NewWithdrawalHandler(svc)

		bodyBytes, _ := json.Marshal(withdrawalDecisionRequest{AdminID: 1})

		svc.On("Approve", mock.Anything, mock.MatchedBy(func(p model.WithdrawalDecision) bool {
			return p.RequestID == 70 && p.AdminID == 1
		})).Return(&model.Transaction{ID: 71, Status: model.TransactionStatusSuccess, Amount: 2500000}, nil)

		ctx := setupTestContext("POST", "/withdrawals/70/approve", bodyBytes)
		ctx.SetUserValue("id", "70")
		handler.Approve(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())

		var response model.Transaction
		err := json.Unmarshal(ctx.Response.Body(), &response)
		require.NoError(t, err)
		assert.Equal(t, int64(71), response.ID)
		assert.Equal(t, model.TransactionStatusSuccess, response.Status)

		svc.AssertExpectations(t)
	})

	t.Run("non-admin maps to 403", func(t *testing.T) {
		svc := new(MockWithdrawalService)
		handler := NewWithdrawalHandler(svc)

		bodyBytes, _ := json.Marshal(withdrawalDecisionRequest{AdminID: 7})

		svc.On("Approve", mock.Anything, mock.Anything).Return(nil, services.ErrAdminRequired)

		ctx := setupTestContext("POST", "/withdrawals/70/approve", bodyBytes)
		ctx.SetUserValue("id", "70")
		handler.Approve(ctx)

		assert.Equal(t, 403, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})

	t.Run("already decided maps to 409", func(t *testing.T) {
		svc := new(MockWithdrawalService)
		handler := NewWithdrawalHandler(svc)

		bodyBytes, _ := json.Marshal(withdrawalDecisionRequest{AdminID: 1})

		svc.On("Approve", mock.Anything, mock.Anything).Return(nil, services.ErrRequestNotPending)

		ctx := setupTestContext("POST", "/withdrawals/70/approve", bodyBytes)
		ctx.SetUserValue("id", "70")
		handler.Approve(ctx)

		assert.Equal(t, 409, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})

	t.Run("invalid request id", func(t *testing.T) {
		svc := new(MockWithdrawalService)
		handler := NewWithdrawalHandler(svc)

		ctx := setupTestContext("POST", "/withdrawals/abc/approve", []byte(`{"admin_id":1}`))
		ctx.SetUserValue("id", "abc")
		handler.Approve(ctx)

		assert.Equal(t, 422, ctx.Response.StatusCode())
		svc.AssertNotCalled(t, "Approve")
	})
}

func TestWithdrawalHandler_Reject(t *testing.T) {
	t.Run("successful reject", func(t *testing.T) {
		svc := new(MockWithdrawalService)
		handler := NewWithdrawalHandler(svc)

		bodyBytes, _ := json.Marshal(withdrawalDecisionRequest{AdminID: 1, Reason: "amount mismatch"})

		svc.On("Reject", mock.Anything, mock.MatchedBy(func(p model.WithdrawalDecision) bool {
			return p.RequestID == 70 && p.AdminID == 1 && p.Reason == "amount mismatch"
		})).Return(nil)

		ctx := setupTestContext("POST", "/withdrawals/70/reject", bodyBytes)
		ctx.SetUserValue("id", "70")
		handler.Reject(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})

	t.Run("missing reason rejected before the service", func(t *testing.T) {
		svc := new(MockWithdrawalService)
		handler := NewWithdrawalHandler(svc)

		bodyBytes, _ := json.Marshal(withdrawalDecisionRequest{AdminID: 1})

		ctx := setupTestContext("POST", "/withdrawals/70/reject", bodyBytes)
		ctx.SetUserValue("id", "70")
		handler.Reject(ctx)

		assert.Equal(t, 422, ctx.Response.StatusCode())
		svc.AssertNotCalled(t, "Reject")
	})
}
