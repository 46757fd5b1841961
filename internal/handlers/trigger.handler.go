package handlers

import (
	"context"
	"errors"

	"github.com/fasthttp/router"
	"github.com/waveline/engage-gateway/internal/model"
	"github.com/waveline/engage-gateway/internal/services"
	xhttp "github.com/waveline/engage-gateway/pkg/http"
)

type TriggerService interface {
	Create(ctx context.Context, t *model.Trigger) (*model.Trigger, error)
	Get(ctx context.Context, id int64) (*model.Trigger, error)
	List(ctx context.Context, limit, offset int) ([]*model.Trigger, int64, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

type TriggerHandler struct {
	svc TriggerService
}

func RegisterTriggerRoutes(e *router.Group, h *TriggerHandler) {
	e.POST("/triggers", h.CreateTrigger)
	e.GET("/triggers", h.ListTriggers)
	e.GET("/triggers/{id}", h.GetTrigger)
	e.PUT("/triggers/{id}/active", h.SetTriggerActive)
}

func NewTriggerHandler(svc TriggerService) *TriggerHandler {
	return &TriggerHandler{svc: svc}
}

type triggerListResponse struct {
	Items []*model.Trigger `json:"items"`
	Total int64            `json:"total"`
}

func (h *TriggerHandler) CreateTrigger(ctx *xhttp.RequestCtx) {
	var t model.Trigger
	if err := readJSON(ctx, &t); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	created, err := h.svc.Create(ctx, &t)
	if err != nil {
		writeError(ctx, 400, err.Error())
		return
	}
	writeJSON(ctx, 201, created)
}

func (h *TriggerHandler) ListTriggers(ctx *xhttp.RequestCtx) {
	items, total, err := h.svc.List(ctx, queryInt(ctx, "limit"), queryInt(ctx, "offset"))
	if err != nil {
		writeError(ctx, 400, err.Error())
		return
	}
	writeJSON(ctx, 200, triggerListResponse{Items: items, Total: total})
}

func (h *TriggerHandler) GetTrigger(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid trigger id")
		return
	}

	t, err := h.svc.Get(ctx, id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(ctx, 404, "trigger not found")
			return
		}
		writeError(ctx, 500, err.Error())
		return
	}
	writeJSON(ctx, 200, t)
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

func (h *TriggerHandler) SetTriggerActive(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid trigger id")
		return
	}

	var req setActiveRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	if err := h.svc.SetActive(ctx, id, req.Active); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(ctx, 404, "trigger not found")
			return
		}
		writeError(ctx, 500, err.Error())
		return
	}
	writeJSON(ctx, 200, map[string]any{"id": id, "active": req.Active})
}
