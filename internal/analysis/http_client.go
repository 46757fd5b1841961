package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
	"github.com/waveline/engage-gateway/internal/model"
)

// HTTPClient talks to a self-hosted analysis service over its JSON API.
type HTTPClient struct {
	baseURL string
	timeout time.Duration
	client  *fasthttp.Client
}

type HTTPClientConfig struct {
	BaseURL  string
	Timeout  time.Duration
	MaxConns int
}

func NewHTTPClient(cfg HTTPClientConfig) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("analysis base url is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxConns == 0 {
		cfg.MaxConns = 100
	}
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		timeout: cfg.Timeout,
		client: &fasthttp.Client{
			MaxConnsPerHost: cfg.MaxConns,
			ReadTimeout:     cfg.Timeout,
			WriteTimeout:    cfg.Timeout,
		},
	}, nil
}

func (c *HTTPClient) Classify(ctx context.Context, req ClassifyRequest) (*model.Classification, error) {
	var out model.Classification
	if err := c.post(ctx, "/v1/classify", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type generateReplyRequest struct {
	Classification *model.Classification `json:"classification"`
	Contact        *model.Contact        `json:"contact"`
	History        []ContextMessage      `json:"history"`
}

type generateReplyResponse struct {
	Reply string `json:"reply"`
}

func (c *HTTPClient) GenerateReply(ctx context.Context, cl *model.Classification, contact *model.Contact, history []*model.Message) (string, error) {
	req := generateReplyRequest{
		Classification: cl,
		Contact:        contact,
		History:        ContextFromMessages(history),
	}
	var out generateReplyResponse
	if err := c.post(ctx, "/v1/generate-reply", req, &out); err != nil {
		return "", err
	}
	return out.Reply, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return ctx.Err()
	}

	if err := c.client.DoTimeout(req, resp, timeout); err != nil {
		return fmt.Errorf("analysis request failed: %w", err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return fmt.Errorf("analysis service returned status %d", resp.StatusCode())
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode analysis response: %w", err)
	}
	return nil
}
