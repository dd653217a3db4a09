package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/sekolahpay/canteen-ledger/internal/model"
	"github.com/sekolahpay/canteen-ledger/internal/services"
	xhttp "github.com/sekolahpay/canteen-ledger/pkg/http"
)

type CanteenService interface {
	Open(ctx context.Context, userID int64) (*model.CanteenSession, error)
	Fund(ctx context.Context, userID int64, amount int64) (*model.CanteenSession, error)
	Close(ctx context.Context, userID int64) (*model.CanteenSession, error)
	Settle(ctx context.Context, userID, canteenID int64, note string) (*services.SettleResult, error)
	Get(ctx context.Context, canteenID int64) (*model.CanteenSession, error)
}

type CanteenHandler struct {
	svc CanteenService
}

func RegisterCanteenRoutes(e *router.Group, h *CanteenHandler) {
	e.POST("/canteens/open", h.Open)
	e.POST("/canteens/fund", h.Fund)
	e.POST("/canteens/close", h.Close)
	e.POST("/canteens/{id}/settle", h.Settle)
	e.GET("/canteens/{id}", h.Get)
}

func NewCanteenHandler(svc CanteenService) *CanteenHandler {
	return &CanteenHandler{
		svc: svc,
	}
}

type openSessionRequest struct {
	UserID int64 `json:"user_id"`
}

type fundSessionRequest struct {
	UserID int64 `json:"user_id"`
	Amount int64 `json:"amount"`
}

type settleSessionRequest struct {
	UserID int64  `json:"user_id"`
	Note   string `json:"note"`
}

func (h *CanteenHandler) Open(ctx *xhttp.RequestCtx) {
	var req openSessionRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	if req.UserID == 0 {
		writeError(ctx, 422, "user_id is required")
		return
	}

	session, err := h.svc.Open(ctx, req.UserID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 201, session)
}

func (h *CanteenHandler) Fund(ctx *xhttp.RequestCtx) {
	var req fundSessionRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	if req.UserID == 0 {
		writeError(ctx, 422, "user_id is required")
		return
	}
	if req.Amount < 0 {
		writeError(ctx, 422, "amount must not be negative")
		return
	}

	session, err := h.svc.Fund(ctx, req.UserID, req.Amount)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, session)
}

func (h *CanteenHandler) Close(ctx *xhttp.RequestCtx) {
	var req openSessionRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	if req.UserID == 0 {
		writeError(ctx, 422, "user_id is required")
		return
	}

	session, err := h.svc.Close(ctx, req.UserID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, session)
}

func (h *CanteenHandler) Settle(ctx *xhttp.RequestCtx) {
	canteenID, err := paramInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 422, "invalid canteen id")
		return
	}

	var req settleSessionRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	if req.UserID == 0 {
		writeError(ctx, 422, "user_id is required")
		return
	}

	result, err := h.svc.Settle(ctx, req.UserID, canteenID, req.Note)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, result)
}

func (h *CanteenHandler) Get(ctx *xhttp.RequestCtx) {
	canteenID, err := paramInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 422, "invalid canteen id")
		return
	}

	session, err := h.svc.Get(ctx, canteenID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, session)
}
