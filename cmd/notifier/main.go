package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sekolahpay/canteen-ledger/internal/config"
	gateway "github.com/sekolahpay/canteen-ledger/internal/gateways"
	"github.com/sekolahpay/canteen-ledger/internal/notifier"
	"github.com/sekolahpay/canteen-ledger/pkg/logger"
	"github.com/sekolahpay/canteen-ledger/pkg/prom"
	"github.com/sekolahpay/canteen-ledger/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}

	redisAdap, err := redis.NewRedisAdapter("default", config.Get().RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{config.Get().RedisAddr},
		ClientName: "default",
		DB:         config.Get().RedisDatabase,
		Username:   config.Get().RedisUsername,
		Password:   config.Get().RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	cfg := &gateway.Config{
		Relays: []gateway.RelayConfig{
			{Name: "primary", URL: config.Get().MailerPrimaryUrl, Weight: 100},
			{Name: "secondary", URL: config.Get().MailerSecondaryUrl, Weight: 80},
			{Name: "backup", URL: config.Get().MailerBackupUrl, Weight: 60},
		},
		Timeout:                 time.Second * 5,
		MaxRetries:              3,
		RetryDelay:              time.Millisecond * 100,
		MaxConns:                1000,
		ReadBufferSize:          1024 * 4,
		WriteBufferSize:         1024 * 4,
		HealthCheckInterval:     30 * time.Second,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   60 * time.Second,
	}
	client, err := gateway.NewClient(cfg)
	if err != nil {
		logger.Error("failed to create mailer gateway", "error", err)
		return
	}

	// Idempotency state lives in redis, keyed on event_id
	idempotencyConfig := notifier.DefaultIdempotencyConfig()
	idempotencyService := notifier.NewIdempotencyService(redisAdap, idempotencyConfig)

	service, err := notifier.NewNotifierService(redisAdap)
	if err != nil {
		logger.Error("failed to create the notifier", "error", err)
		return
	}
	service.RegisterProcessor(notifier.NewEmailNotificationProcessor(client, idempotencyService))

	var hostname string
	hostname, err = os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	err = prom.Create(hostname, config.Get().AppEnv, config.Get().PromNamespace)
	if err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}

	go func() {
		prom.ListenAndServer(":9100", "/metrics")
	}()

	go func() {
		err := service.Start()
		if err != nil {
			logger.Error("failed to start notifier", "error", err)
		}
	}()

	select {
	case <-c:
		service.Stop()
	}
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	return ""
}
