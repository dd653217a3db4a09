package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/fasthttp/router"
	"github.com/sekolahpay/canteen-ledger/internal/model"
	"github.com/sekolahpay/canteen-ledger/internal/services"
	xhttp "github.com/sekolahpay/canteen-ledger/pkg/http"
	"github.com/sekolahpay/canteen-ledger/pkg/prom"
)

type LedgerService interface {
	TopUp(ctx context.Context, p model.TopUpRequest) (*services.TopUpResult, error)
	Purchase(ctx context.Context, p model.PurchaseRequest) (*services.PurchaseResult, error)
	Refund(ctx context.Context, p model.RefundRequest) (*services.RefundResult, error)
	GetBalance(ctx context.Context, cardUID string) (*services.BalanceInfo, error)
	ListTransactions(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, int64, error)
}

type LedgerHandler struct {
	svc LedgerService
}

func RegisterLedgerRoutes(e *router.Group, h *LedgerHandler) {
	e.POST("/topups", h.TopUp)
	e.POST("/purchases", h.Purchase)
	e.POST("/refunds", h.Refund)
	e.GET("/wallets/balance", h.GetBalance)
	e.GET("/transactions", h.ListTransactions)
}

func NewLedgerHandler(svc LedgerService) *LedgerHandler {
	return &LedgerHandler{
		svc: svc,
	}
}

type topUpRequest struct {
	CardUID string `json:"card_uid"`
	Amount  int64  `json:"amount"`
}

type purchaseRequest struct {
	CardUID  string  `json:"card_uid"`
	Amount   int64   `json:"amount"`
	OpenerID int64   `json:"opener_id"`
	Pin      *string `json:"pin,omitempty"`
}

type refundRequest struct {
	TransactionID int64  `json:"transaction_id"`
	OpenerID      int64  `json:"opener_id"`
	Note          string `json:"note"`
}

func (h *LedgerHandler) TopUp(ctx *xhttp.RequestCtx) {
	defer observeOperation("top_up", time.Now())

	var req topUpRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	p := model.TopUpRequest{CardUID: req.CardUID, Amount: req.Amount}
	if err := p.Validate(); err != nil {
		writeError(ctx, 422, err.Error())
		return
	}

	result, err := h.svc.TopUp(ctx, p)
	if err != nil {
		prom.ObserveTransaction("top_up", "failed")
		writeServiceError(ctx, err)
		return
	}

	prom.ObserveTransaction("top_up", "success")
	writeJSON(ctx, 201, result)
}

func (h *LedgerHandler) Purchase(ctx *xhttp.RequestCtx) {
	defer observeOperation("purchase", time.Now())

	var req purchaseRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	p := model.PurchaseRequest{
		CardUID:  req.CardUID,
		Amount:   req.Amount,
		OpenerID: req.OpenerID,
		Pin:      req.Pin,
	}
	if err := p.Validate(); err != nil {
		writeError(ctx, 422, err.Error())
		return
	}

	result, err := h.svc.Purchase(ctx, p)
	if err != nil {
		prom.ObserveTransaction("purchase", "failed")
		writeServiceError(ctx, err)
		return
	}

	prom.ObserveTransaction("purchase", "success")
	writeJSON(ctx, 201, result)
}

func (h *LedgerHandler) Refund(ctx *xhttp.RequestCtx) {
	defer observeOperation("refund", time.Now())

	var req refundRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	p := model.RefundRequest{
		TransactionID: req.TransactionID,
		OpenerID:      req.OpenerID,
		Note:          req.Note,
	}
	if err := p.Validate(); err != nil {
		writeError(ctx, 422, err.Error())
		return
	}

	result, err := h.svc.Refund(ctx, p)
	if err != nil {
		prom.ObserveTransaction("refund", "failed")
		writeServiceError(ctx, err)
		return
	}

	prom.ObserveTransaction("refund", "success")
	writeJSON(ctx, 201, result)
}

func (h *LedgerHandler) GetBalance(ctx *xhttp.RequestCtx) {
	cardUID := query(ctx, "card_uid")
	if cardUID == "" {
		writeError(ctx, 422, "card_uid is required")
		return
	}

	info, err := h.svc.GetBalance(ctx, cardUID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}

	writeJSON(ctx, 200, info)
}

func (h *LedgerHandler) ListTransactions(ctx *xhttp.RequestCtx) {
	f := model.TransactionFilter{Limit: 50, Desc: true}

	if v := query(ctx, "user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(ctx, 422, "invalid user_id")
			return
		}
		f.UserID = &id
	}
	if v := query(ctx, "canteen_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(ctx, 422, "invalid canteen_id")
			return
		}
		f.CanteenID = &id
	}
	if v := query(ctx, "type"); v != "" {
		f.Types = []model.TransactionType{model.TransactionType(v)}
	}
	if v := query(ctx, "status"); v != "" {
		f.Statuses = []model.TransactionStatus{model.TransactionStatus(v)}
	}
	if v := query(ctx, "from"); v != "" {
		t, err := parseTime(v)
		if err != nil {
			writeError(ctx, 422, "invalid from time")
			return
		}
		f.From = &t
	}
	if v := query(ctx, "to"); v != "" {
		t, err := parseTime(v)
		if err != nil {
			writeError(ctx, 422, "invalid to time")
			return
		}
		f.To = &t
	}
	if v := query(ctx, "limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			writeError(ctx, 422, "invalid limit")
			return
		}
		f.Limit = n
	}
	if v := query(ctx, "offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(ctx, 422, "invalid offset")
			return
		}
		f.Offset = n
	}

	txns, total, err := h.svc.ListTransactions(ctx, f)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}

	writeJSON(ctx, 200, map[string]any{
		"transactions": txns,
		"total":        total,
	})
}
