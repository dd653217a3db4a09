package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/sekolahpay/canteen-ledger/internal/model"
	xhttp "github.com/sekolahpay/canteen-ledger/pkg/http"
	"github.com/sekolahpay/canteen-ledger/pkg/prom"
)

type WithdrawalService interface {
	Request(ctx context.Context, p model.WithdrawalCreateRequest) (*model.Transaction, error)
	Approve(ctx context.Context, p model.WithdrawalDecision) (*model.Transaction, error)
	Reject(ctx context.Context, p model.WithdrawalDecision) error
}

type WithdrawalHandler struct {
	svc WithdrawalService
}

func RegisterWithdrawalRoutes(e *router.Group, h *WithdrawalHandler) {
	e.POST("/withdrawals", h.Request)
	e.POST("/withdrawals/{id}/approve", h.Approve)
	e.POST("/withdrawals/{id}/reject", h.Reject)
}

func NewWithdrawalHandler(svc WithdrawalService) *WithdrawalHandler {
	return &WithdrawalHandler{
		svc: svc,
	}
}

type withdrawalRequest struct {
	CanteenID int64  `json:"canteen_id"`
	OpenerID  int64  `json:"opener_id"`
	Amount    int64  `json:"amount"`
	Note      string `json:"note"`
}

type withdrawalDecisionRequest struct {
	AdminID int64  `json:"admin_id"`
	Reason  string `json:"reason"`
}

func (h *WithdrawalHandler) Request(ctx *xhttp.RequestCtx) {
	var req withdrawalRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	p := model.WithdrawalCreateRequest{
		CanteenID: req.CanteenID,
		OpenerID:  req.OpenerID,
		Amount:    req.Amount,
		Note:      req.Note,
	}
	if err := p.Validate(); err != nil {
		writeError(ctx, 422, err.Error())
		return
	}

	request, err := h.svc.Request(ctx, p)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 201, request)
}

func (h *WithdrawalHandler) Approve(ctx *xhttp.RequestCtx) {
	requestID, err := paramInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 422, "invalid request id")
		return
	}

	var req withdrawalDecisionRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	p := model.WithdrawalDecision{RequestID: requestID, AdminID: req.AdminID}
	if err := p.Validate(); err != nil {
		writeError(ctx, 422, err.Error())
		return
	}

	execution, err := h.svc.Approve(ctx, p)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}

	prom.AddWithdrawalAmount(float64(execution.Amount))
	writeJSON(ctx, 200, execution)
}

func (h *WithdrawalHandler) Reject(ctx *xhttp.RequestCtx) {
	requestID, err := paramInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 422, "invalid request id")
		return
	}

	var req withdrawalDecisionRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	p := model.WithdrawalDecision{RequestID: requestID, AdminID: req.AdminID, Reason: req.Reason}
	if err := p.Validate(); err != nil {
		writeError(ctx, 422, err.Error())
		return
	}
	if p.Reason == "" {
		writeError(ctx, 422, "reason is required")
		return
	}

	if err := h.svc.Reject(ctx, p); err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, map[string]string{"status": "rejected"})
}
