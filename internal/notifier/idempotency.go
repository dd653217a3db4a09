package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sekolahpay/canteen-ledger/pkg/logger"
	"github.com/sekolahpay/canteen-ledger/pkg/redis"
)

var (
	ErrAlreadyProcessed   = errors.New("event already processed")
	ErrLockAcquireFailed  = errors.New("failed to acquire processing lock")
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded")
)

type IdempotencyConfig struct {
	LockTTL time.Duration

	ProcessedTTL time.Duration

	MaxRetries int

	RetryKeyPrefix string

	LockKeyPrefix string

	ProcessedKeyPrefix string
}

func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		LockTTL:            30 * time.Second,
		ProcessedTTL:       24 * time.Hour,
		MaxRetries:         3,
		RetryKeyPrefix:     "notify:retry:",
		LockKeyPrefix:      "notify:lock:",
		ProcessedKeyPrefix: "notify:processed:",
	}
}

// IdempotencyService guarantees at-most-once email delivery per event.
// The ledger publishes each event with a unique event_id; everything here
// is keyed on that.
type IdempotencyService struct {
	redis  redis.RedisAdapter
	config IdempotencyConfig
}

func NewIdempotencyService(redisAdapter redis.RedisAdapter, config IdempotencyConfig) *IdempotencyService {
	return &IdempotencyService{
		redis:  redisAdapter,
		config: config,
	}
}

type ProcessingContext struct {
	EventID      string
	RetryCount   int
	IsRetry      bool
	lockAcquired bool
	service      *IdempotencyService
}

func (s *IdempotencyService) AcquireProcessingLock(ctx context.Context, eventID string) (*ProcessingContext, error) {
	// Step 1: Check if already processed (long-term marker)
	processedKey := s.config.ProcessedKeyPrefix + eventID
	exists, err := s.redis.Exist(processedKey)
	if err != nil {
		logger.Warn("Failed to check processed status", "event_id", eventID, "error", err)
		// Continue even if check fails - better to risk duplicate than block processing
	} else if exists > 0 {
		logger.Info("Event already processed, skipping", "event_id", eventID)
		return nil, ErrAlreadyProcessed
	}

	// Step 2: Get current retry count
	retryKey := s.config.RetryKeyPrefix + eventID
	retryCountBytes, err := s.redis.Get(retryKey)
	retryCount := 0
	if err == nil && len(retryCountBytes) > 0 {
		fmt.Sscanf(string(retryCountBytes), "%d", &retryCount)
	}

	// Step 3: Check if max retries exceeded
	if retryCount >= s.config.MaxRetries {
		logger.Error("Max retries exceeded for event", "event_id", eventID, "retry_count", retryCount)
		return nil, fmt.Errorf("%w: event_id=%s, retries=%d", ErrMaxRetriesExceeded, eventID, retryCount)
	}

	// Step 4: Acquire short-term processing lock (prevents concurrent processing)
	lockKey := s.config.LockKeyPrefix + eventID
	lockValue := []byte(fmt.Sprintf("%d", time.Now().UnixNano()))

	acquired, err := s.redis.SetNX(lockKey, lockValue, s.config.LockTTL)
	if err != nil {
		logger.Error("Failed to acquire lock", "event_id", eventID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrLockAcquireFailed, err)
	}

	if !acquired {
		logger.Info("Lock already held by another consumer", "event_id", eventID)
		return nil, ErrLockAcquireFailed
	}

	logger.Info("Processing lock acquired",
		"event_id", eventID,
		"retry_count", retryCount,
		"lock_ttl", s.config.LockTTL)

	return &ProcessingContext{
		EventID:      eventID,
		RetryCount:   retryCount,
		IsRetry:      retryCount > 0,
		lockAcquired: true,
		service:      s,
	}, nil
}

func (s *IdempotencyService) MarkSuccess(ctx context.Context, pc *ProcessingContext) error {
	eventID := pc.EventID

	// Step 1: Set long-term processed marker (24 hours)
	processedKey := s.config.ProcessedKeyPrefix + eventID
	err := s.redis.Set(processedKey, []byte("1"), s.config.ProcessedTTL)
	if err != nil {
		logger.Error("Failed to mark event as processed", "event_id", eventID, "error", err)
		return fmt.Errorf("failed to mark as processed: %w", err)
	}

	// Step 2: Clean up lock and retry counter
	s.cleanup(ctx, pc)

	logger.Info("Event marked as successfully processed",
		"event_id", eventID,
		"retry_count", pc.RetryCount)

	return nil
}

func (s *IdempotencyService) MarkFailure(ctx context.Context, pc *ProcessingContext, reason error) error {
	eventID := pc.EventID

	// Step 1: Increment retry counter
	retryKey := s.config.RetryKeyPrefix + eventID
	newRetryCount := pc.RetryCount + 1
	retryValue := []byte(fmt.Sprintf("%d", newRetryCount))

	// Keep retry counter for longer to track across retries
	err := s.redis.Set(retryKey, retryValue, s.config.ProcessedTTL)
	if err != nil {
		logger.Error("Failed to increment retry counter", "event_id", eventID, "error", err)
	}

	// Step 2: Remove lock to allow retry
	lockKey := s.config.LockKeyPrefix + eventID
	if err := s.redis.Del(lockKey); err != nil {
		logger.Warn("Failed to remove lock", "event_id", eventID, "error", err)
	}

	logger.Warn("Event processing failed, will retry",
		"event_id", eventID,
		"retry_count", newRetryCount,
		"max_retries", s.config.MaxRetries,
		"reason", reason)

	return nil
}

func (s *IdempotencyService) ReleaseLock(ctx context.Context, pc *ProcessingContext) error {
	if pc == nil || !pc.lockAcquired {
		return nil
	}

	lockKey := s.config.LockKeyPrefix + pc.EventID
	if err := s.redis.Del(lockKey); err != nil {
		logger.Warn("Failed to release lock", "event_id", pc.EventID, "error", err)
		return err
	}

	pc.lockAcquired = false
	logger.Debug("Processing lock released", "event_id", pc.EventID)
	return nil
}

func (s *IdempotencyService) cleanup(ctx context.Context, pc *ProcessingContext) {
	eventID := pc.EventID

	// Remove lock
	lockKey := s.config.LockKeyPrefix + eventID
	if err := s.redis.Del(lockKey); err != nil {
		logger.Warn("Failed to cleanup lock", "event_id", eventID, "error", err)
	}

	// Remove retry counter (no longer needed)
	retryKey := s.config.RetryKeyPrefix + eventID
	if err := s.redis.Del(retryKey); err != nil {
		logger.Warn("Failed to cleanup retry counter", "event_id", eventID, "error", err)
	}

	pc.lockAcquired = false
}

func (s *IdempotencyService) GetRetryCount(ctx context.Context, eventID string) (int, error) {
	retryKey := s.config.RetryKeyPrefix + eventID
	retryCountBytes, err := s.redis.Get(retryKey)
	if err != nil {
		if err == redis.NilError {
			return 0, nil
		}
		return 0, err
	}

	retryCount := 0
	fmt.Sscanf(string(retryCountBytes), "%d", &retryCount)
	return retryCount, nil
}

func (s *IdempotencyService) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	processedKey := s.config.ProcessedKeyPrefix + eventID
	exists, err := s.redis.Exist(processedKey)
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}
