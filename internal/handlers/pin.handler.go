package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/sekolahpay/canteen-ledger/internal/model"
	xhttp "github.com/sekolahpay/canteen-ledger/pkg/http"
)

type PinService interface {
	Add(ctx context.Context, p model.PinSetRequest) error
	Update(ctx context.Context, p model.PinSetRequest) error
}

type PinHandler struct {
	svc PinService
}

func RegisterPinRoutes(e *router.Group, h *PinHandler) {
	e.POST("/pins", h.Add)
	e.PUT("/pins", h.Update)
}

func NewPinHandler(svc PinService) *PinHandler {
	return &PinHandler{
		svc: svc,
	}
}

type pinRequest struct {
	UserID     int64  `json:"user_id"`
	Pin        string `json:"pin"`
	CurrentPin string `json:"current_pin"`
}

func (h *PinHandler) Add(ctx *xhttp.RequestCtx) {
	var req pinRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	p := model.PinSetRequest{UserID: req.UserID, Pin: req.Pin}
	if err := p.Validate(); err != nil {
		writeError(ctx, 422, err.Error())
		return
	}

	if err := h.svc.Add(ctx, p); err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 201, map[string]string{"status": "pin set"})
}

func (h *PinHandler) Update(ctx *xhttp.RequestCtx) {
	var req pinRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	p := model.PinSetRequest{UserID: req.UserID, Pin: req.Pin, CurrentPin: req.CurrentPin}
	if err := p.Validate(); err != nil {
		writeError(ctx, 422, err.Error())
		return
	}

	if err := h.svc.Update(ctx, p); err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, map[string]string{"status": "pin updated"})
}
