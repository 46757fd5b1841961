package handlers

import (
	"context"
	"errors"

	"github.com/fasthttp/router"
	"github.com/waveline/engage-gateway/internal/services"
	xhttp "github.com/waveline/engage-gateway/pkg/http"
)

type WebhookService interface {
	Accept(ctx context.Context, ev services.WebhookEvent) error
}

type WebhookHandler struct {
	svc WebhookService
}

func RegisterWebhookRoutes(e *router.Group, h *WebhookHandler) {
	e.POST("/webhook/whatsapp", h.ReceiveWhatsApp)
}

func NewWebhookHandler(svc WebhookService) *WebhookHandler {
	return &WebhookHandler{svc: svc}
}

// ReceiveWhatsApp acknowledges the provider before any processing
// happens. A 200 here only means the event is queued; a 500 tells the
// provider to redeliver.
func (h *WebhookHandler) ReceiveWhatsApp(ctx *xhttp.RequestCtx) {
	var ev services.WebhookEvent
	if err := readJSON(ctx, &ev); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	if err := h.svc.Accept(ctx, ev); err != nil {
		if errors.Is(err, services.ErrInvalidEvent) || errors.Is(err, services.ErrInvalidPhone) {
			writeError(ctx, 400, err.Error())
			return
		}
		writeError(ctx, 500, "failed to queue event")
		return
	}

	writeJSON(ctx, 200, map[string]string{"status": "queued"})
}
