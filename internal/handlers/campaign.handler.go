package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/fasthttp/router"
	"github.com/waveline/engage-gateway/internal/model"
	"github.com/waveline/engage-gateway/internal/services"
	xhttp "github.com/waveline/engage-gateway/pkg/http"
)

type CampaignService interface {
	Create(ctx context.Context, p model.CampaignCreateRequest) (*model.Campaign, error)
	Get(ctx context.Context, id int64) (*model.Campaign, error)
	List(ctx context.Context, limit, offset int) ([]*model.Campaign, int64, error)
	Dispatch(ctx context.Context, id int64) error
}

type CampaignHandler struct {
	svc CampaignService
}

func RegisterCampaignRoutes(e *router.Group, h *CampaignHandler) {
	e.POST("/campaigns", h.CreateCampaign)
	e.GET("/campaigns", h.ListCampaigns)
	e.GET("/campaigns/{id}", h.GetCampaign)
	e.POST("/campaigns/{id}/dispatch", h.DispatchCampaign)
}

func NewCampaignHandler(svc CampaignService) *CampaignHandler {
	return &CampaignHandler{svc: svc}
}

type createCampaignRequest struct {
	Name            string   `json:"name"`
	MessageTemplate string   `json:"message_template"`
	TargetTags      []string `json:"target_tags"`
	ScheduledAt     *string  `json:"scheduled_at"`
}

type campaignListResponse struct {
	Items []*model.Campaign `json:"items"`
	Total int64             `json:"total"`
}

func (h *CampaignHandler) CreateCampaign(ctx *xhttp.RequestCtx) {
	var req createCampaignRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	p := model.CampaignCreateRequest{
		Name:            req.Name,
		MessageTemplate: req.MessageTemplate,
		TargetTags:      req.TargetTags,
	}
	if req.ScheduledAt != nil && *req.ScheduledAt != "" {
		t, err := time.Parse(time.RFC3339, *req.ScheduledAt)
		if err != nil {
			writeError(ctx, 400, "scheduled_at must be RFC3339")
			return
		}
		p.ScheduledAt = &t
	}

	c, err := h.svc.Create(ctx, p)
	if err != nil {
		writeError(ctx, 400, err.Error())
		return
	}
	writeJSON(ctx, 201, c)
}

func (h *CampaignHandler) ListCampaigns(ctx *xhttp.RequestCtx) {
	items, total, err := h.svc.List(ctx, queryInt(ctx, "limit"), queryInt(ctx, "offset"))
	if err != nil {
		writeError(ctx, 400, err.Error())
		return
	}
	writeJSON(ctx, 200, campaignListResponse{Items: items, Total: total})
}

func (h *CampaignHandler) GetCampaign(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid campaign id")
		return
	}

	c, err := h.svc.Get(ctx, id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(ctx, 404, "campaign not found")
			return
		}
		writeError(ctx, 500, err.Error())
		return
	}
	writeJSON(ctx, 200, c)
}

func (h *CampaignHandler) DispatchCampaign(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid campaign id")
		return
	}

	if err := h.svc.Dispatch(ctx, id); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(ctx, 404, "campaign not found")
			return
		}
		if errors.Is(err, services.ErrCampaignNotDispatchable) {
			writeError(ctx, 409, err.Error())
			return
		}
		writeError(ctx, 500, err.Error())
		return
	}

	writeJSON(ctx, 202, map[string]any{"campaign_id": id, "status": "dispatching"})
}
