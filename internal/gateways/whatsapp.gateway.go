// Package gateway is the outbound WhatsApp transport. One logical
// client fans out over weighted provider endpoints with circuit
// breaking and health checks; a send returns a typed result so callers
// can count failures instead of parsing logs.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/valyala/fasthttp"
	"github.com/waveline/engage-gateway/pkg/logger"
)

var (
	ErrNoAvailableProviders = errors.New("no available providers")
)

// SendRequest is one outbound text message to one recipient.
type SendRequest struct {
	To   string `json:"to"` // E.164 without '+'
	Body string `json:"body"`
}

// SendResponse is the provider's acknowledgement of a send.
type SendResponse struct {
	Success     bool      `json:"success"`
	MessageID   string    `json:"message_id,omitempty"`
	Error       string    `json:"error,omitempty"`
	ProcessedAt time.Time `json:"processed_at"`
}

type ProviderMetrics struct {
	TotalRequests    atomic.Int64
	SuccessfulReqs   atomic.Int64
	FailedReqs       atomic.Int64
	TotalLatencyMs   atomic.Int64
	ConsecutiveFails atomic.Int32
	LastErrorTime    atomic.Int64
	LastSuccessTime  atomic.Int64
}

func (m *ProviderMetrics) RecordSuccess(latencyMs int64) {
	m.TotalRequests.Add(1)
	m.SuccessfulReqs.Add(1)
	m.TotalLatencyMs.Add(latencyMs)
	m.ConsecutiveFails.Store(0)
	m.LastSuccessTime.Store(time.Now().Unix())
}

func (m *ProviderMetrics) RecordFailure() {
	m.TotalRequests.Add(1)
	m.FailedReqs.Add(1)
	m.ConsecutiveFails.Add(1)
	m.LastErrorTime.Store(time.Now().Unix())
}

func (m *ProviderMetrics) AvgLatencyMs() int64 {
	total := m.TotalRequests.Load()
	if total == 0 {
		return 0
	}
	return m.TotalLatencyMs.Load() / total
}

func (m *ProviderMetrics) SuccessRate() float64 {
	total := m.TotalRequests.Load()
	if total == 0 {
		return 1.0
	}
	return float64(m.SuccessfulReqs.Load()) / float64(total)
}

type ProviderState int

const (
	StateHealthy ProviderState = iota
	StateDegraded
	StateUnhealthy
	StateCircuitOpen
)

type Provider struct {
	name             string
	url              string
	client           *fasthttp.Client
	metrics          *ProviderMetrics
	state            atomic.Int32
	weight           atomic.Int32
	circuitOpenUntil atomic.Int64
}

func NewProvider(name, url string, weight int, client *fasthttp.Client) *Provider {
	p := &Provider{
		name:    name,
		url:     url,
		client:  client,
		metrics: &ProviderMetrics{},
	}
	p.state.Store(int32(StateHealthy))
	p.weight.Store(int32(weight))
	return p
}

func (p *Provider) GetState() ProviderState {
	return ProviderState(p.state.Load())
}

func (p *Provider) SetState(state ProviderState) {
	p.state.Store(int32(state))
}

func (p *Provider) IsAvailable() bool {
	state := p.GetState()
	if state == StateCircuitOpen {
		// half-open once the cooldown has elapsed
		if time.Now().Unix() > p.circuitOpenUntil.Load() {
			p.SetState(StateDegraded)
			return true
		}
		return false
	}
	return state != StateUnhealthy
}

// Score ranks the provider for selection (higher is better). Success
// rate and latency dominate; the configured weight breaks ties between
// equally healthy endpoints.
func (p *Provider) Score() float64 {
	if !p.IsAvailable() {
		return 0.0
	}

	successScore := p.metrics.SuccessRate() * 100

	latencyScore := 100.0
	if avg := p.metrics.AvgLatencyMs(); avg > 0 {
		latencyScore = 100.0 * (1.0 - (float64(avg) / 5000.0))
		if latencyScore < 0 {
			latencyScore = 0
		}
	}

	recentPenalty := 1.0 - (float64(p.metrics.ConsecutiveFails.Load()) * 0.1)
	if recentPenalty < 0.1 {
		recentPenalty = 0.1
	}

	statePenalty := 1.0
	switch p.GetState() {
	case StateDegraded:
		statePenalty = 0.5
	case StateUnhealthy, StateCircuitOpen:
		statePenalty = 0.0
	}

	return (successScore*0.5 + latencyScore*0.3 + float64(p.weight.Load())*0.2) * recentPenalty * statePenalty
}

type ProviderConfig struct {
	Name   string
	URL    string
	Weight int // base priority weight (1-100)
}

type Config struct {
	Providers               []ProviderConfig
	Timeout                 time.Duration
	MaxRetries              int
	RetryDelay              time.Duration
	MaxConns                int
	HealthCheckInterval     time.Duration
	CircuitBreakerThreshold int
	CircuitBreakerTimeout   time.Duration
}

// Client is the WhatsApp transport used by the handover unit and the
// campaign dispatcher.
type Client struct {
	config    *Config
	providers []*Provider
	mu        sync.RWMutex
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if len(config.Providers) == 0 {
		return nil, errors.New("at least one provider is required")
	}
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Second
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = 100 * time.Millisecond
	}
	if config.HealthCheckInterval == 0 {
		config.HealthCheckInterval = 30 * time.Second
	}
	if config.CircuitBreakerThreshold == 0 {
		config.CircuitBreakerThreshold = 5
	}
	if config.CircuitBreakerTimeout == 0 {
		config.CircuitBreakerTimeout = 60 * time.Second
	}

	client := &Client{
		config:    config,
		providers: make([]*Provider, 0, len(config.Providers)),
		stopCh:    make(chan struct{}),
	}

	for _, pc := range config.Providers {
		httpClient := &fasthttp.Client{
			MaxConnsPerHost:     config.MaxConns,
			ReadTimeout:         config.Timeout,
			WriteTimeout:        config.Timeout,
			MaxIdleConnDuration: 60 * time.Second,
		}
		client.providers = append(client.providers, NewProvider(pc.Name, pc.URL, pc.Weight, httpClient))
		logger.Info("Provider initialized", "name", pc.Name, "url", pc.URL, "weight", pc.Weight)
	}

	client.wg.Add(1)
	go client.healthChecker()

	return client, nil
}

// SelectBestProvider picks the highest scoring available provider.
func (c *Client) SelectBestProvider() (*Provider, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var best *Provider
	var bestScore float64

	for _, provider := range c.providers {
		if !provider.IsAvailable() {
			continue
		}
		if score := provider.Score(); score > bestScore {
			bestScore = score
			best = provider
		}
	}

	if best == nil {
		return nil, ErrNoAvailableProviders
	}
	return best, nil
}

// Send delivers one text message through the best available provider,
// retrying across providers up to MaxRetries.
func (c *Client) Send(ctx context.Context, req *SendRequest) (*SendResponse, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.config.RetryDelay):
			}
		}

		provider, err := c.SelectBestProvider()
		if err != nil {
			lastErr = err
			continue
		}

		start := time.Now()
		body, err := c.doRequest(ctx, provider, fasthttp.MethodPost, "/api/v1/messages", reqBody)
		latency := time.Since(start).Milliseconds()

		if err != nil {
			provider.metrics.RecordFailure()
			c.checkCircuitBreaker(provider)
			logger.Warn("Send failed, retrying", "error", err, "provider", provider.name, "attempt", attempt+1)
			lastErr = err
			continue
		}

		provider.metrics.RecordSuccess(latency)

		var resp SendResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("failed to unmarshal response: %w", err)
		}
		if !resp.Success {
			lastErr = fmt.Errorf("provider rejected message: %s", resp.Error)
			continue
		}

		logger.Info("Message sent", "to", req.To, "provider", provider.name, "provider_message_id", resp.MessageID, "latency_ms", latency)
		return &resp, nil
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", c.config.MaxRetries+1, lastErr)
}

func (c *Client) doRequest(ctx context.Context, provider *Provider, method, path string, body []byte) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(provider.url + path)
	req.Header.SetMethod(method)
	req.Header.SetContentType("application/json")
	if body != nil {
		req.SetBody(body)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.config.Timeout)
	}

	if err := provider.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	statusCode := resp.StatusCode()
	if statusCode != fasthttp.StatusOK && statusCode != fasthttp.StatusAccepted {
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", statusCode, resp.Body())
	}

	result := make([]byte, len(resp.Body()))
	copy(result, resp.Body())
	return result, nil
}

func (c *Client) checkCircuitBreaker(provider *Provider) {
	fails := provider.metrics.ConsecutiveFails.Load()
	if fails >= int32(c.config.CircuitBreakerThreshold) {
		provider.SetState(StateCircuitOpen)
		provider.circuitOpenUntil.Store(time.Now().Add(c.config.CircuitBreakerTimeout).Unix())
		logger.Warn("Circuit breaker opened", "provider", provider.name, "consecutive_fails", fails)
	}
}

func (c *Client) healthChecker() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.performHealthChecks()
		case <-c.stopCh:
			return
		}
	}
}

func (c *Client) performHealthChecks() {
	ctx, cancel := context.WithTimeout(context.Background(), c.config.Timeout)
	defer cancel()

	c.mu.RLock()
	providers := make([]*Provider, len(c.providers))
	copy(providers, c.providers)
	c.mu.RUnlock()

	for _, provider := range providers {
		if provider.GetState() == StateCircuitOpen {
			continue
		}
		if _, err := c.doRequest(ctx, provider, fasthttp.MethodGet, "/health", nil); err != nil {
			provider.SetState(StateDegraded)
			logger.Warn("Health check failed", "provider", provider.name, "error", err)
			continue
		}
		provider.SetState(StateHealthy)
	}
}

// Stop terminates the background health checker.
func (c *Client) Stop() {
	close(c.stopCh)
	c.wg.Wait()
}
