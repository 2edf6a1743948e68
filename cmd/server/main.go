package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quickpay/internal/cache"
	"quickpay/internal/config"
	"quickpay/internal/db"
	"quickpay/internal/events"
	"quickpay/internal/fee"
	"quickpay/internal/handlers"
	"quickpay/internal/idgen"
	"quickpay/internal/ledger"
	"quickpay/internal/logger"
	"quickpay/internal/metrics"
	"quickpay/internal/services"
	"quickpay/internal/store"
	"quickpay/internal/websocket"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	requestTimeout = 15 * time.Second
	cachePrefix    = "quickpay:"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to connect database", zap.Error(err))
	}
	defer database.Close()

	policy, err := fee.NewRatePolicy(cfg.FeeRate, cfg.FeeMinMinor, cfg.FeeMaxMinor)
	if err != nil {
		log.Fatal("invalid fee configuration", zap.Error(err))
	}

	users := store.NewUserStore(database)
	wallets := store.NewWalletStore(database)
	transactions := store.NewTransactionStore(database)
	entries := store.NewEntryStore(database)
	beneficiaries := store.NewBeneficiaryStore(database)
	admin := store.NewAdminStore(database)
	audit := store.NewAuditStore(database)
	txRunner := db.NewTxRunner(database, cfg.LockTimeout)

	// Redis is optional. Without it stats are not cached and transaction
	// events are dropped.
	var statsCache cache.Cache = cache.Nop{}
	var publisher services.EventPublisher = events.NopPublisher{}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Warn("redis unreachable at startup", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		cancel()
		statsCache = cache.NewRedisCache(rdb, cachePrefix)
		publisher = events.NewRedisPublisher(rdb)
	}

	hub := websocket.NewHub(cfg.AllowedOrigins...)
	if err := metrics.RegisterConnectionGauge(prometheus.DefaultRegisterer, hub.Connections); err != nil {
		log.Warn("failed to register websocket gauge", zap.Error(err))
	}

	core := ledger.New(wallets, transactions, entries, policy, idgen.New(idgen.TransactionCodeLength))

	accountService := services.NewAccountService(txRunner, users, wallets, audit, idgen.New(idgen.WalletCodeLength), cfg.JWTSecret, cfg.TokenTTL, log)
	transferService := services.NewTransferService(services.TransferDeps{
		TxRunner:     txRunner,
		Ledger:       core,
		Wallets:      wallets,
		Users:        users,
		Transactions: transactions,
		Access:       admin,
		Audit:        audit,
		Hub:          hub,
		Events:       publisher,
		StatsCache:   statsCache,
		Logger:       log,
		Limits:       services.Limits{MinMinor: cfg.MinAmountMinor, MaxMinor: cfg.MaxAmountMinor},
	})
	adjustmentService := services.NewAdjustmentService(txRunner, core, audit, hub, publisher, statsCache, log)
	adminService := services.NewAdminService(txRunner, users, admin, audit, statsCache, cfg.StatsCacheTTL, log)

	handler := handlers.New(handlers.Deps{
		Settings: handlers.Settings{
			JWTSecret:          cfg.JWTSecret,
			AllowedOrigins:     cfg.AllowedOrigins,
			LoginRatePerSecond: cfg.LoginRatePerSecond,
			LoginBurst:         cfg.LoginBurst,
			RequestTimeout:     requestTimeout,
		},
		Accounts:      accountService,
		Transfers:     transferService,
		Adjustments:   adjustmentService,
		Admin:         adminService,
		Users:         users,
		Wallets:       wallets,
		Entries:       entries,
		Transactions:  transactions,
		Beneficiaries: beneficiaries,
		Audit:         audit,
		Access:        admin,
		Socket:        hub,
		Logger:        log,
	})
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 20 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("quickpay API listening",
			zap.String("addr", server.Addr),
			zap.String("env", cfg.AppEnv),
			zap.String("fee_rate", policy.Rate().String()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("shutdown error", zap.Error(err))
	}
	log.Info("server stopped")
}
