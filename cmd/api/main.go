package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"wallet-ledger/config"
	httpHandler "wallet-ledger/internal/adapter/http/handler"
	"wallet-ledger/internal/adapter/http/middleware"
	"wallet-ledger/internal/adapter/metrics"
	"wallet-ledger/internal/adapter/storage/memory"
	pgStorage "wallet-ledger/internal/adapter/storage/postgres"
	redisStorage "wallet-ledger/internal/adapter/storage/redis"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/service"
	"wallet-ledger/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// repositories is the storage backend selected by storage.driver.
type repositories struct {
	wallets      ports.WalletRepository
	ledger       ports.LedgerRepository
	transactions ports.TransactionRepository
	limits       ports.LimitRepository
	risk         ports.RiskRepository
	audit        ports.AuditRepository
	transactor   ports.DBTransactor
	health       ports.HealthChecker
	close        func()
}

func main() {
	configPath := flag.String("config", "", "path to config file (yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("mode", cfg.Server.Mode).
		Str("storage", cfg.Storage.Driver).
		Int("port", cfg.Server.Port).
		Msg("Starting wallet ledger")

	ctx := context.Background()

	repos, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer repos.close()

	// Metrics
	collector := metrics.NewPrometheusCollector(cfg.Metrics.Namespace)
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := collector.Register(registry); err != nil {
		log.Fatal().Err(err).Msg("Failed to register metrics")
	}

	healthCheckers := []ports.HealthChecker{repos.health}

	// Redis: idempotency fast path and rate limiting. Optional.
	var (
		cache       ports.IdempotencyCache
		rateLimiter middleware.Limiter
	)
	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		log.Info().Msg("Redis connected")

		cache = redisStorage.NewResilientIdempotencyCache(
			redisStorage.NewIdempotencyCache(rdb),
			cfg.CircuitBreaker,
			collector,
			log,
		)
		if cfg.RateLimit.Enabled {
			rateLimiter = redisStorage.NewRateLimitStore(rdb)
		}
		healthCheckers = append(healthCheckers, redisStorage.NewHealthCheck(rdb))
	} else {
		log.Warn().Msg("Redis disabled, idempotency uses the database only and rate limiting is off")
	}

	// Core collaborators
	checksum := service.NewHMACChecksumVerifier(cfg.Ledger.ChecksumSecret)
	hasher := service.NewArgon2HashService()
	risk := service.NewRiskService(repos.risk, log)
	audit := service.NewAuditService(repos.audit, log)

	// Business services
	ledger := service.NewLedgerService(repos.wallets, repos.ledger, checksum, risk, repos.transactor, collector, log)
	pins := service.NewPinService(repos.wallets, hasher, risk, audit, repos.transactor, collector, cfg.Pin.MaxLockoutMinutes, log)
	limits := service.NewLimitService(repos.limits, ports.LimitDefaults{
		DailyLimit:             cfg.Limits.DailyLimit,
		SingleTransactionLimit: cfg.Limits.SingleTransactionLimit,
		MaxDailyTransactions:   cfg.Limits.MaxDailyTransactions,
	}, log)
	integrity := service.NewIntegrityService(repos.wallets, repos.ledger, checksum, risk, audit, repos.transactor, collector, log)
	wallets := service.NewWalletService(repos.wallets, repos.ledger, checksum, audit, repos.transactor, service.WalletPolicy{
		MaxPinAttempts:  cfg.Pin.MaxAttempts,
		LockoutMinutes:  cfg.Pin.BaseLockoutMinutes,
		DefaultCurrency: cfg.Ledger.DefaultCurrency,
	}, log)
	transfers := service.NewTransferService(
		repos.transactions,
		repos.ledger,
		repos.wallets,
		ledger,
		limits,
		pins,
		risk,
		cache,
		repos.transactor,
		collector,
		service.TransferPolicy{
			DefaultCurrency:      cfg.Ledger.DefaultCurrency,
			IdempotencyTTL:       cfg.Ledger.IdempotencyTTL,
			ReferenceRetries:     cfg.Ledger.ReferenceRetries,
			PinRequiredTypes:     transactionTypes(cfg.Ledger.PinRequiredTypes, log),
			LargeAmountThreshold: cfg.Risk.LargeAmountThreshold,
			LargeAmountScore:     cfg.Risk.LargeAmountScore,
		},
		log,
	)

	gin.SetMode(ginMode(cfg.Server.Mode))

	deps := httpHandler.RouterDeps{
		WalletSvc:      wallets,
		TransferSvc:    transfers,
		LedgerEngine:   ledger,
		PinGuard:       pins,
		LimitEnforcer:  limits,
		IntegritySvc:   integrity,
		RateLimiter:    rateLimiter,
		HTTPMetrics:    collector,
		HealthCheckers: healthCheckers,
		Logger:         logger.Component(log, "http"),
	}
	if cfg.Metrics.Enabled {
		deps.MetricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
	}
	router := httpHandler.SetupRouter(deps)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

// openStorage connects the configured balance store.
func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*repositories, error) {
	if cfg.Storage.Driver == config.DriverMemory {
		store := memory.NewStore(cfg.Database.LockTimeout)
		log.Warn().Msg("Using in-memory storage, data is lost on restart")
		return &repositories{
			wallets:      memory.NewWalletRepo(store),
			ledger:       memory.NewLedgerRepo(store),
			transactions: memory.NewTransactionRepo(store),
			limits:       memory.NewLimitRepo(store),
			risk:         memory.NewRiskRepo(store),
			audit:        memory.NewAuditRepo(store),
			transactor:   store,
			health:       store,
			close:        func() {},
		}, nil
	}

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	log.Info().Msg("PostgreSQL connected")

	if cfg.Database.AutoMigrate {
		if err := pgStorage.ApplySchema(ctx, pool, log); err != nil {
			pool.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	return &repositories{
		wallets:      pgStorage.NewWalletRepo(pool),
		ledger:       pgStorage.NewLedgerRepo(pool),
		transactions: pgStorage.NewTransactionRepo(pool),
		limits:       pgStorage.NewLimitRepo(pool),
		risk:         pgStorage.NewRiskRepo(pool),
		audit:        pgStorage.NewAuditRepo(pool),
		transactor:   pgStorage.NewTransactor(pool, cfg.Database.IsolationLevel, cfg.Database.LockTimeout),
		health:       pgStorage.NewHealthCheck(pool),
		close:        pool.Close,
	}, nil
}

// transactionTypes converts configured names, dropping unknown ones.
func transactionTypes(names []string, log zerolog.Logger) []domain.TransactionType {
	out := make([]domain.TransactionType, 0, len(names))
	for _, n := range names {
		t := domain.TransactionType(n)
		if !t.Valid() {
			log.Warn().Str("type", n).Msg("Ignoring unknown transaction type in ledger.pin_required_types")
			continue
		}
		out = append(out, t)
	}
	return out
}

func ginMode(mode string) string {
	switch mode {
	case gin.DebugMode, gin.TestMode:
		return mode
	default:
		return gin.ReleaseMode
	}
}
