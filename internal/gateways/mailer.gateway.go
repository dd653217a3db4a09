package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sekolahpay/canteen-ledger/pkg/logger"
	"github.com/valyala/fasthttp"
)

var (
	ErrNoAvailableRelays = errors.New("no available mail relays")
)

type DeliveryStatus string

const (
	StatusSent    DeliveryStatus = "SENT"
	StatusFailed  DeliveryStatus = "FAILED"
	StatusPending DeliveryStatus = "PENDING"
)

// Request/Response types
type SendRequest struct {
	EventID string `json:"event_id"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Kind    string `json:"kind"`
}

type SendResponse struct {
	EventID     string         `json:"event_id"`
	Status      DeliveryStatus `json:"status"`
	SentAt      *time.Time     `json:"sent_at,omitempty"`
	ErrorCode   string         `json:"error_code,omitempty"`
	ErrorMsg    string         `json:"error_message,omitempty"`
	RelayID     string         `json:"relay_id"`
	ProcessedAt time.Time      `json:"processed_at"`
}

type RelayMetrics struct {
	TotalRequests    atomic.Int64
	SuccessfulReqs   atomic.Int64
	FailedReqs       atomic.Int64
	TotalLatencyMs   atomic.Int64
	LastLatencyMs    atomic.Int64
	ConsecutiveFails atomic.Int32
	LastErrorTime    atomic.Int64
	LastSuccessTime  atomic.Int64

	mu             sync.RWMutex
	latencyHistory []int64 // Last N latencies for percentile calculation
	maxHistorySize int
}

func NewRelayMetrics() *RelayMetrics {
	return &RelayMetrics{
		latencyHistory: make([]int64, 0, 100),
		maxHistorySize: 100,
	}
}

func (m *RelayMetrics) RecordSuccess(latencyMs int64) {
	m.TotalRequests.Add(1)
	m.SuccessfulReqs.Add(1)
	m.TotalLatencyMs.Add(latencyMs)
	m.LastLatencyMs.Store(latencyMs)
	m.ConsecutiveFails.Store(0)
	m.LastSuccessTime.Store(time.Now().Unix())

	m.mu.Lock()
	if len(m.latencyHistory) >= m.maxHistorySize {
		m.latencyHistory = m.latencyHistory[1:]
	}
	m.latencyHistory = append(m.latencyHistory, latencyMs)
	m.mu.Unlock()
}

func (m *RelayMetrics) RecordFailure() {
	m.TotalRequests.Add(1)
	m.FailedReqs.Add(1)
	m.ConsecutiveFails.Add(1)
	m.LastErrorTime.Store(time.Now().Unix())
}

func (m *RelayMetrics) AvgLatencyMs() int64 {
	total := m.TotalRequests.Load()
	if total == 0 {
		return 0
	}
	return m.TotalLatencyMs.Load() / total
}

func (m *RelayMetrics) SuccessRate() float64 {
	total := m.TotalRequests.Load()
	if total == 0 {
		return 1.0
	}
	return float64(m.SuccessfulReqs.Load()) / float64(total)
}

func (m *RelayMetrics) P95LatencyMs() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.latencyHistory) == 0 {
		return 0
	}

	sorted := make([]int64, len(m.latencyHistory))
	copy(sorted, m.latencyHistory)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	p95Index := int(float64(len(sorted)) * 0.95)
	if p95Index >= len(sorted) {
		p95Index = len(sorted) - 1
	}
	return sorted[p95Index]
}

type RelayState int

const (
	StateHealthy RelayState = iota
	StateDegraded
	StateUnhealthy
	StateCircuitOpen
)

type Relay struct {
	name             string
	url              string
	client           *fasthttp.Client
	metrics          *RelayMetrics
	state            atomic.Int32
	weight           atomic.Int32 // Base weight/priority
	lastHealthCheck  atomic.Int64
	circuitOpenUntil atomic.Int64

	mu sync.RWMutex
}

func NewRelay(name, url string, weight int, client *fasthttp.Client) *Relay {
	r := &Relay{
		name:    name,
		url:     url,
		client:  client,
		metrics: NewRelayMetrics(),
	}
	r.state.Store(int32(StateHealthy))
	r.weight.Store(int32(weight))
	return r
}

func (r *Relay) GetState() RelayState {
	return RelayState(r.state.Load())
}

func (r *Relay) SetState(state RelayState) {
	r.state.Store(int32(state))
}

func (r *Relay) IsAvailable() bool {
	state := r.GetState()
	if state == StateCircuitOpen {
		// Check if circuit should close
		openUntil := r.circuitOpenUntil.Load()
		if time.Now().Unix() > openUntil {
			r.SetState(StateDegraded)
			return true
		}
		return false
	}
	return state != StateUnhealthy
}

// CalculateScore calculates relay score based on metrics (higher is better)
func (r *Relay) CalculateScore() float64 {
	if !r.IsAvailable() {
		return 0.0
	}

	metrics := r.metrics
	baseWeight := float64(r.weight.Load())

	// Success rate weight (0-100 points)
	successRate := metrics.SuccessRate()
	successScore := successRate * 100

	// Latency score (0-100 points, lower latency = higher score)
	avgLatency := metrics.AvgLatencyMs()
	latencyScore := 100.0
	if avgLatency > 0 {
		// Normalize: 100ms = 100 points, 1000ms = 10 points, 5000ms+ = 0 points
		latencyScore = 100.0 * (1.0 - (float64(avgLatency) / 5000.0))
		if latencyScore < 0 {
			latencyScore = 0
		}
	}

	// Recent performance weight (penalize recent failures)
	consecutiveFails := float64(metrics.ConsecutiveFails.Load())
	recentPenalty := 1.0 - (consecutiveFails * 0.1) // Each fail reduces by 10%
	if recentPenalty < 0.1 {
		recentPenalty = 0.1
	}

	// State penalty
	statePenalty := 1.0
	switch r.GetState() {
	case StateDegraded:
		statePenalty = 0.5
	case StateUnhealthy, StateCircuitOpen:
		statePenalty = 0.0
	}

	// Calculate final score
	score := (successScore*0.4 + latencyScore*0.4 + baseWeight*0.2) * recentPenalty * statePenalty

	return score
}

type Config struct {
	Relays                  []RelayConfig
	Timeout                 time.Duration
	MaxRetries              int
	RetryDelay              time.Duration
	MaxConns                int
	ReadBufferSize          int
	WriteBufferSize         int
	HealthCheckInterval     time.Duration
	CircuitBreakerThreshold int
	CircuitBreakerTimeout   time.Duration
	MetricsWindow           time.Duration
}

type RelayConfig struct {
	Name   string
	URL    string
	Weight int // Base priority weight (1-100)
}

type Client struct {
	config *Config
	relays []*Relay
	mu     sync.RWMutex
	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	if len(config.Relays) == 0 {
		return nil, errors.New("at least one relay is required")
	}

	client := &Client{
		config: config,
		relays: make([]*Relay, 0, len(config.Relays)),
		stopCh: make(chan struct{}),
	}

	// Initialize relays
	for _, rc := range config.Relays {
		httpClient := &fasthttp.Client{
			MaxConnsPerHost:     config.MaxConns,
			ReadTimeout:         config.Timeout,
			WriteTimeout:        config.Timeout,
			MaxIdleConnDuration: 60 * time.Second,
			ReadBufferSize:      config.ReadBufferSize,
			WriteBufferSize:     config.WriteBufferSize,
		}

		relay := NewRelay(rc.Name, rc.URL, rc.Weight, httpClient)
		client.relays = append(client.relays, relay)

		logger.Info("Mail relay initialized", "name", rc.Name, "url", rc.URL, "weight", rc.Weight)
	}

	// Start background tasks
	client.wg.Add(2)
	go client.healthChecker()
	go client.metricsCollector()

	logger.Info("Mailer client initialized", "relays", len(client.relays), "timeout", config.Timeout)

	return client, nil
}

// SelectBestRelay selects the best performing relay
func (c *Client) SelectBestRelay() (*Relay, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.relays) == 0 {
		return nil, ErrNoAvailableRelays
	}

	var bestRelay *Relay
	var bestScore float64

	for _, relay := range c.relays {
		if !relay.IsAvailable() {
			continue
		}

		score := relay.CalculateScore()
		if score > bestScore {
			bestScore = score
			bestRelay = relay
		}
	}

	if bestRelay == nil {
		return nil, ErrNoAvailableRelays
	}

	logger.Debug("Selected relay", "relay", bestRelay.name, "score", bestScore)

	return bestRelay, nil
}

// SendEmail sends a single notification email through the best available relay
func (c *Client) SendEmail(ctx context.Context, req *SendRequest) (*SendResponse, error) {
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

		relay, err := c.SelectBestRelay()
		if err != nil {
			lastErr = err
			continue
		}

		startTime := time.Now()
		response, err := c.doRequest(ctx, relay, "POST", "/api/v1/mail/send", reqBody)
		latency := time.Since(startTime).Milliseconds()

		if err != nil {
			relay.metrics.RecordFailure()
			c.checkCircuitBreaker(relay)

			logger.Warn("Request failed, retrying", "error", err, "relay", relay.name, "attempt", attempt+1)

			lastErr = err
			continue
		}

		relay.metrics.RecordSuccess(latency)

		var resp SendResponse
		if err := json.Unmarshal(response, &resp); err != nil {
			return nil, fmt.Errorf("failed to unmarshal response: %w", err)
		}

		logger.Info("Email handed to relay", "event_id", req.EventID, "status", string(resp.Status), "relay", relay.name, "latency_ms", latency)

		return &resp, nil
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", c.config.MaxRetries+1, lastErr)
}

// doRequest performs HTTP request with timeout
func (c *Client) doRequest(ctx context.Context, relay *Relay, method, path string, body []byte) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	url := relay.url + path
	req.SetRequestURI(url)
	req.Header.SetMethod(method)
	req.Header.SetContentType("application/json")

	if body != nil {
		req.SetBody(body)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.config.Timeout)
	}

	if err := relay.client.DoDeadline(req, resp, deadline); err != nil {
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

func (c *Client) checkCircuitBreaker(relay *Relay) {
	consecutiveFails := relay.metrics.ConsecutiveFails.Load()
	if consecutiveFails >= int32(c.config.CircuitBreakerThreshold) {
		relay.SetState(StateCircuitOpen)
		openUntil := time.Now().Add(c.config.CircuitBreakerTimeout).Unix()
		relay.circuitOpenUntil.Store(openUntil)

		logger.Warn("Circuit breaker opened", "relay", relay.name, "consecutive_fails", consecutiveFails, "timeout", c.config.CircuitBreakerTimeout)
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

// performHealthChecks checks health of all relays
func (c *Client) performHealthChecks() {
	ctx, cancel := context.WithTimeout(context.Background(), c.config.Timeout)
	defer cancel()

	c.mu.RLock()
	relays := make([]*Relay, len(c.relays))
	copy(relays, c.relays)
	c.mu.RUnlock()

	for _, relay := range relays {
		healthy := c.checkRelayHealth(ctx, relay)
		relay.lastHealthCheck.Store(time.Now().Unix())

		oldState := relay.GetState()
		newState := oldState

		if healthy {
			if oldState == StateUnhealthy || oldState == StateDegraded {
				newState = StateHealthy
			}
		} else {
			newState = StateUnhealthy
		}

		if newState != oldState {
			relay.SetState(newState)
			logger.Info("Relay state changed", "relay", relay.name, "old_state", stateString(oldState), "new_state", stateString(newState))
		}
	}
}

// checkRelayHealth checks if a relay is healthy
func (c *Client) checkRelayHealth(ctx context.Context, relay *Relay) bool {
	response, err := c.doRequest(ctx, relay, "GET", "/health", nil)
	if err != nil {
		return false
	}

	var health struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(response, &health); err != nil {
		return false
	}

	return health.Status == "healthy"
}

// metricsCollector periodically evaluates relay performance
func (c *Client) metricsCollector() {
	defer c.wg.Done()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.evaluateRelays()
		case <-c.stopCh:
			return
		}
	}
}

// evaluateRelays evaluates and adjusts relay states based on metrics
func (c *Client) evaluateRelays() {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, relay := range c.relays {
		if relay.GetState() == StateCircuitOpen {
			continue
		}

		successRate := relay.metrics.SuccessRate()
		avgLatency := relay.metrics.AvgLatencyMs()

		// Determine state based on performance
		if successRate < 0.8 || avgLatency > 5000 {
			if relay.GetState() != StateDegraded {
				relay.SetState(StateDegraded)
				logger.Warn("Relay degraded", "relay", relay.name, "success_rate", successRate, "avg_latency_ms", avgLatency)
			}
		} else if successRate > 0.95 && avgLatency < 2000 {
			if relay.GetState() != StateHealthy {
				relay.SetState(StateHealthy)
				logger.Info("Relay recovered to healthy state", "relay", relay.name)
			}
		}
	}
}

// GetRelayStats returns detailed statistics for all relays
func (c *Client) GetRelayStats() []RelayStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := make([]RelayStats, 0, len(c.relays))
	for _, relay := range c.relays {
		stats = append(stats, RelayStats{
			Name:             relay.name,
			URL:              relay.url,
			State:            stateString(relay.GetState()),
			Score:            relay.CalculateScore(),
			TotalRequests:    relay.metrics.TotalRequests.Load(),
			SuccessfulReqs:   relay.metrics.SuccessfulReqs.Load(),
			FailedReqs:       relay.metrics.FailedReqs.Load(),
			SuccessRate:      relay.metrics.SuccessRate(),
			AvgLatencyMs:     relay.metrics.AvgLatencyMs(),
			P95LatencyMs:     relay.metrics.P95LatencyMs(),
			LastLatencyMs:    relay.metrics.LastLatencyMs.Load(),
			ConsecutiveFails: relay.metrics.ConsecutiveFails.Load(),
		})
	}

	// Sort by score
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Score > stats[j].Score
	})

	return stats
}

// Close closes the client and releases resources
func (c *Client) Close() error {
	close(c.stopCh)
	c.wg.Wait()
	logger.Info("Mailer client closed")
	return nil
}

// Supporting types
type RelayStats struct {
	Name             string
	URL              string
	State            string
	Score            float64
	TotalRequests    int64
	SuccessfulReqs   int64
	FailedReqs       int64
	SuccessRate      float64
	AvgLatencyMs     int64
	P95LatencyMs     int64
	LastLatencyMs    int64
	ConsecutiveFails int32
}

func stateString(state RelayState) string {
	switch state {
	case StateHealthy:
		return "HEALTHY"
	case StateDegraded:
		return "DEGRADED"
	case StateUnhealthy:
		return "UNHEALTHY"
	case StateCircuitOpen:
		return "CIRCUIT_OPEN"
	default:
		return "UNKNOWN"
	}
}
