package trigger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
	"github.com/waveline/engage-gateway/internal/model"
)

// WebhookExecutor posts activation payloads to the external automation
// platform. The call is fire-and-forget beyond success/failure: no
// response body is interpreted.
type WebhookExecutor struct {
	client *fasthttp.Client
}

func NewWebhookExecutor(timeout time.Duration) *WebhookExecutor {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &WebhookExecutor{
		client: &fasthttp.Client{
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		},
	}
}

func (w *WebhookExecutor) Execute(ctx context.Context, action model.TriggerAction, payload ActionPayload) error {
	switch action.Kind {
	case model.ActionNone:
		return nil
	case model.ActionWebhook:
		return w.post(ctx, action.URL, payload)
	default:
		return fmt.Errorf("unknown action kind %q", action.Kind)
	}
}

// NoopExecutor discards every action. Used where actions are disabled
// and in tests.
type NoopExecutor struct{}

func (NoopExecutor) Execute(ctx context.Context, action model.TriggerAction, payload ActionPayload) error {
	return nil
}

func (w *WebhookExecutor) post(ctx context.Context, url string, payload ActionPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal action payload: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(5 * time.Second)
	}

	if err := w.client.DoDeadline(req, resp, deadline); err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	if code := resp.StatusCode(); code >= 300 {
		return fmt.Errorf("webhook returned status %d", code)
	}
	return nil
}
