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

// DeliveryStatus represents the delivery status of an email
type DeliveryStatus string

const (
	StatusSent    DeliveryStatus = "SENT"
	StatusFailed  DeliveryStatus = "FAILED"
	StatusPending DeliveryStatus = "PENDING"
)

// SendMailRequest represents the request to send an email
type SendMailRequest struct {
	EventID string `json:"event_id" binding:"required"`
	To      string `json:"to" binding:"required"`
	Subject string `json:"subject" binding:"required"`
	Body    string `json:"body" binding:"required"`
	Kind    string `json:"kind"`
}

// SendMailResponse represents the response from sending an email
type SendMailResponse struct {
	EventID     string         `json:"event_id"`
	Status      DeliveryStatus `json:"status"`
	SentAt      *time.Time     `json:"sent_at,omitempty"`
	ErrorCode   string         `json:"error_code,omitempty"`
	ErrorMsg    string         `json:"error_message,omitempty"`
	RelayID     string         `json:"relay_id"`
	ProcessedAt time.Time      `json:"processed_at"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status       string    `json:"status"`
	RelayID      string    `json:"relay_id"`
	Timestamp    time.Time `json:"timestamp"`
	DeliveryRate float64   `json:"delivery_rate"`
}

// MockRelay simulates an SMTP relay service
type MockRelay struct {
	deliveryRate float64
	minDelay     time.Duration
	maxDelay     time.Duration
	relayID      string
	rng          *rand.Rand
}

// NewMockRelay creates a new mock relay instance
func NewMockRelay(deliveryRate float64, minDelay, maxDelay time.Duration) *MockRelay {
	return &MockRelay{
		deliveryRate: deliveryRate,
		minDelay:     minDelay,
		maxDelay:     maxDelay,
		relayID:      "MOCK_RELAY_" + uuid.New().String()[:8],
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// simulateDelivery simulates the email delivery process
func (m *MockRelay) simulateDelivery(req *SendMailRequest) *SendMailResponse {
	delay := m.randomDelay()

	// Simulate network delay
	time.Sleep(delay)

	response := &SendMailResponse{
		EventID:     req.EventID,
		RelayID:     m.relayID,
		ProcessedAt: time.Now(),
	}

	// Determine success or failure
	if m.shouldSucceed() {
		now := time.Now()
		response.Status = StatusSent
		response.SentAt = &now

		log.Info().
			Str("event_id", req.EventID).
			Str("to", req.To).
			Dur("delay", delay).
			Msg("Email sent successfully")
	} else {
		response.Status = StatusFailed
		response.ErrorCode = m.randomErrorCode()
		response.ErrorMsg = m.errorMessage(response.ErrorCode)

		log.Warn().
			Str("event_id", req.EventID).
			Str("to", req.To).
			Str("error_code", response.ErrorCode).
			Msg("Email delivery failed")
	}

	return response
}

func (m *MockRelay) randomDelay() time.Duration {
	delta := m.maxDelay - m.minDelay
	randomDelta := time.Duration(m.rng.Int63n(int64(delta)))
	return m.minDelay + randomDelta
}

func (m *MockRelay) shouldSucceed() bool {
	return m.rng.Float64() < m.deliveryRate
}

func (m *MockRelay) randomErrorCode() string {
	errorCodes := []string{
		"INVALID_ADDRESS",
		"MAILBOX_FULL",
		"TIMEOUT",
		"REJECTED",
		"GREYLISTED",
		"RELAY_UNAVAILABLE",
	}
	return errorCodes[m.rng.Intn(len(errorCodes))]
}

func (m *MockRelay) errorMessage(code string) string {
	messages := map[string]string{
		"INVALID_ADDRESS":   "The recipient address is invalid or does not exist",
		"MAILBOX_FULL":      "The recipient mailbox is over quota",
		"TIMEOUT":           "Email delivery timed out",
		"REJECTED":          "The receiving server rejected the message",
		"GREYLISTED":        "The receiving server asked to retry later",
		"RELAY_UNAVAILABLE": "Relay temporarily unable to deliver",
	}

	if msg, ok := messages[code]; ok {
		return msg
	}
	return "Unknown error occurred"
}

// Handler struct holds the mock relay and routes
type Handler struct {
	relay *MockRelay
}

func NewHandler(relay *MockRelay) *Handler {
	return &Handler{relay: relay}
}

// SendMail handles single email send requests
func (h *Handler) SendMail(c *gin.Context) {
	var req SendMailRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	log.Info().
		Str("event_id", req.EventID).
		Str("to", req.To).
		Str("kind", req.Kind).
		Msg("Received email send request")

	response := h.relay.simulateDelivery(&req)

	statusCode := http.StatusOK
	if response.Status == StatusFailed {
		statusCode = http.StatusAccepted // 202: accepted but failed delivery
	}

	c.JSON(statusCode, response)
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(c *gin.Context) {
	// Simulate 5% downtime
	if h.relay.rng.Float64() < 0.05 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"error":  "Relay temporarily unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:       "healthy",
		RelayID:      h.relay.relayID,
		Timestamp:    time.Now(),
		DeliveryRate: h.relay.deliveryRate,
	})
}

// UpdateConfig allows changing relay configuration at runtime
func (h *Handler) UpdateConfig(c *gin.Context) {
	var config struct {
		DeliveryRate *float64 `json:"delivery_rate"`
	}

	if err := c.ShouldBindJSON(&config); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if config.DeliveryRate != nil {
		if *config.DeliveryRate >= 0 && *config.DeliveryRate <= 1.0 {
			h.relay.deliveryRate = *config.DeliveryRate
			log.Info().Float64("rate", *config.DeliveryRate).Msg("Updated delivery rate")
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "Configuration updated",
		"delivery_rate": h.relay.deliveryRate,
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
		v1.POST("/mail/send", handler.SendMail)
		v1.GET("/health", handler.HealthCheck)
		v1.PUT("/config", handler.UpdateConfig)
	}

	// Root health check
	router.GET("/health", handler.HealthCheck)

	return router
}

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Get configuration from environment
	port := getEnv("PORT", "8081")
	deliveryRate := getEnvFloat("DELIVERY_RATE", 1)
	minDelay := getEnvDuration("MIN_DELAY", 100*time.Millisecond)
	maxDelay := getEnvDuration("MAX_DELAY", 2*time.Second)

	log.Info().
		Str("port", port).
		Float64("delivery_rate", deliveryRate).
		Dur("min_delay", minDelay).
		Dur("max_delay", maxDelay).
		Msg("Starting Mock Mail Relay")

	// Create mock relay
	relay := NewMockRelay(deliveryRate, minDelay, maxDelay)
	handler := NewHandler(relay)
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
