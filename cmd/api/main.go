package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sekolahpay/canteen-ledger/internal/config"
	"github.com/sekolahpay/canteen-ledger/internal/handlers"
	"github.com/sekolahpay/canteen-ledger/internal/queue"
	"github.com/sekolahpay/canteen-ledger/internal/repository"
	"github.com/sekolahpay/canteen-ledger/internal/services"
	xhttp "github.com/sekolahpay/canteen-ledger/pkg/http"
	"github.com/sekolahpay/canteen-ledger/pkg/logger"
	"github.com/sekolahpay/canteen-ledger/pkg/pg"
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

	// transport (tcp for now)
	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.Server.ReadBufferSize = 1024 * 16
	s.Server.WriteBufferSize = 1024 * 16
	s.Use(xhttp.CompressMiddleware(6))
	s.Use(xhttp.TimeoutMiddleware(time.Second * 5))
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.RecoverMiddleware)
	s.Router = xhttp.CreateDefaultRouter()

	readConf := pg.Config{
		User:     config.Get().PostgresReadUser,
		Host:     config.Get().PostgresReadHost,
		Port:     config.Get().PostgresReadPort,
		Password: config.Get().PostgresReadPassword,
		Database: config.Get().PostgresReadDatabase,
	}
	writeConf := pg.Config{
		User:     config.Get().PostgresWriteUser,
		Host:     config.Get().PostgresWriteHost,
		Port:     config.Get().PostgresWritePort,
		Password: config.Get().PostgresWritePassword,
		Database: config.Get().PostgresWriteDatabase,
	}

	pgDebug := false
	if config.Get().AppEnv == "dev" {
		pgDebug = true
	}
	db, err := pg.CreateReadWrite(readConf, writeConf, pgDebug)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
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

	events, err := queue.NewQueue(redisAdap, queue.QueueConfig{
		Name:              config.Get().QueueName,
		ConsumerGroup:     config.Get().QueueConsumerGroup,
		ConsumerName:      config.Get().QueueConsumerName,
		MaxRetries:        config.Get().QueueMaxRetries,
		VisibilityTimeout: config.Get().QueueVisibilityTimeout,
		PollInterval:      config.Get().QueuePollInterval,
		BatchSize:         config.Get().QueueBatchSize,
		MaxLen:            config.Get().QueueMaxLen,
		EnableDLQ:         config.Get().QueueEnableDLQ,
	})
	if err != nil {
		logger.Error("failed creating queue", "error", err)
		return
	}

	userRepo := repository.NewUserRepository(db)
	cardRepo := repository.NewCardRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	canteenRepo := repository.NewCanteenRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)

	// services
	ledgerService := services.NewLedgerService(walletRepo, cardRepo, transactionRepo, canteenRepo, attendanceRepo, events)
	canteenService := services.NewCanteenService(canteenRepo, userRepo)
	withdrawalService := services.NewWithdrawalService(canteenRepo, transactionRepo, userRepo)
	pinService := services.NewPinService(userRepo)
	healthService := services.NewHealthService(db, redisAdap)

	// v1 handlers
	ledgerHandler := handlers.NewLedgerHandler(ledgerService)
	canteenHandler := handlers.NewCanteenHandler(canteenService)
	withdrawalHandler := handlers.NewWithdrawalHandler(withdrawalService)
	pinHandler := handlers.NewPinHandler(pinService)
	healthHandler := handlers.NewHealthHandler(healthService)

	g := s.Router.Group("/api/v1")
	handlers.RegisterLedgerRoutes(g, ledgerHandler)
	handlers.RegisterCanteenRoutes(g, canteenHandler)
	handlers.RegisterWithdrawalRoutes(g, withdrawalHandler)
	handlers.RegisterPinRoutes(g, pinHandler)
	handlers.RegisterHealthRoutes(g, healthHandler)

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

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		var err = s.ListenAndServe(config.Get().HttpListenAddr)
		if err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}()

	select {
	case <-c:
		s.Shutdown()
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
