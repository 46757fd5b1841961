package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SendMessageRequest is the payload the gateway posts to a provider.
type SendMessageRequest struct {
	To   string `json:"to" binding:"required"`
	Body string `json:"body" binding:"required"`
}

// SendMessageResponse mirrors the gateway's SendResponse contract.
type SendMessageResponse struct {
	Success     bool      `json:"success"`
	MessageID   string    `json:"message_id,omitempty"`
	Error       string    `json:"error,omitempty"`
	ProcessedAt time.Time `json:"processed_at"`
	ProviderID  string    `json:"provider_id"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status      string    `json:"status"`
	ProviderID  string    `json:"provider_id"`
	Timestamp   time.Time `json:"timestamp"`
	SuccessRate float64   `json:"success_rate"`
}

// MockProvider simulates a WhatsApp Business API provider.
type MockProvider struct {
	successRate float64
	minDelay    time.Duration
	maxDelay    time.Duration
	providerID  string
	rng         *rand.Rand
}

func NewMockProvider(successRate float64, minDelay, maxDelay time.Duration) *MockProvider {
	return &MockProvider{
		successRate: successRate,
		minDelay:    minDelay,
		maxDelay:    maxDelay,
		providerID:  "MOCK_PROVIDER_" + uuid.New().String()[:8],
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// simulateSend simulates pushing one message through the provider.
func (m *MockProvider) simulateSend(req *SendMessageRequest) *SendMessageResponse {
	delay := m.randomDelay()
	time.Sleep(delay)

	response := &SendMessageResponse{
		ProviderID:  m.providerID,
		ProcessedAt: time.Now(),
	}

	if m.shouldSucceed() {
		response.Success = true
		response.MessageID = "wamid." + uuid.New().String()

		log.Info().
			Str("to", req.To).
			Str("message_id", response.MessageID).
			Dur("delay", delay).
			Msg("Message accepted")
	} else {
		response.Error = m.randomError()

		log.Warn().
			Str("to", req.To).
			Str("error", response.Error).
			Msg("Message rejected")
	}

	return response
}

func (m *MockProvider) randomDelay() time.Duration {
	delta := m.maxDelay - m.minDelay
	randomDelta := time.Duration(m.rng.Int63n(int64(delta)))
	return m.minDelay + randomDelta
}

func (m *MockProvider) shouldSucceed() bool {
	return m.rng.Float64() < m.successRate
}

func (m *MockProvider) randomError() string {
	errs := []string{
		"recipient not on whatsapp",
		"rate limit hit",
		"message undeliverable",
		"template not approved",
		"recipient opted out",
	}
	return errs[m.rng.Intn(len(errs))]
}

// Handler struct holds the mock provider and routes
type Handler struct {
	provider *MockProvider
}

func NewHandler(provider *MockProvider) *Handler {
	return &Handler{provider: provider}
}

// SendMessage handles message send requests from the gateway.
func (h *Handler) SendMessage(c *gin.Context) {
	var req SendMessageRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	log.Info().
		Str("to", req.To).
		Int("body_len", len(req.Body)).
		Msg("Received send request")

	response := h.provider.simulateSend(&req)

	statusCode := http.StatusOK
	if !response.Success {
		statusCode = http.StatusAccepted // 202: accepted but not delivered
	}

	c.JSON(statusCode, response)
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(c *gin.Context) {
	// Simulate 5% downtime
	if h.provider.rng.Float64() < 0.05 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"error":  "Provider temporarily unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:      "healthy",
		ProviderID:  h.provider.providerID,
		Timestamp:   time.Now(),
		SuccessRate: h.provider.successRate,
	})
}

// UpdateConfig allows changing provider configuration at runtime
func (h *Handler) UpdateConfig(c *gin.Context) {
	var config struct {
		SuccessRate *float64 `json:"success_rate"`
	}

	if err := c.ShouldBindJSON(&config); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if config.SuccessRate != nil {
		if *config.SuccessRate >= 0 && *config.SuccessRate <= 1.0 {
			h.provider.successRate = *config.SuccessRate
			log.Info().Float64("rate", *config.SuccessRate).Msg("Updated success rate")
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Configuration updated",
		"success_rate": h.provider.successRate,
	})
}

// SetupRouter configures all routes
func SetupRouter(handler *Handler) *gin.Engine {
	router := gin.Default()

	// Add request logging middleware
	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Msg("Request processed")
	})

	// API routes
	v1 := router.Group("/api/v1")
	{
		v1.POST("/messages", handler.SendMessage)
		v1.GET("/health", handler.HealthCheck)
		v1.PUT("/config", handler.UpdateConfig)
	}

	// Root health check, polled by the gateway's health checker
	router.GET("/health", handler.HealthCheck)

	return router
}

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Get configuration from environment
	port := getEnv("PORT", "8081")
	successRate := getEnvFloat("SUCCESS_RATE", 1)
	minDelay := getEnvDuration("MIN_DELAY", 100*time.Millisecond)
	maxDelay := getEnvDuration("MAX_DELAY", 2*time.Second)

	log.Info().
		Str("port", port).
		Float64("success_rate", successRate).
		Dur("min_delay", minDelay).
		Dur("max_delay", maxDelay).
		Msg("Starting Mock WhatsApp Provider")

	provider := NewMockProvider(successRate, minDelay, maxDelay)
	handler := NewHandler(provider)
	router := SetupRouter(handler)

	// Setup HTTP server
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var f float64
		if _, err := fmt.Sscanf(value, "%f", &f); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
