package handler

import (
	"net/http"

	"wallet-ledger/internal/adapter/http/middleware"
	"wallet-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	WalletSvc      ports.WalletService
	TransferSvc    ports.TransferService
	LedgerEngine   ports.LedgerEngine
	PinGuard       ports.PinGuard
	LimitEnforcer  ports.LimitEnforcer
	IntegritySvc   ports.IntegrityService
	RateLimiter    middleware.Limiter     // nil = rate limiting disabled
	HTTPMetrics    middleware.HTTPMetrics // nil = no request metrics
	MetricsHandler http.Handler           // nil = /metrics not exposed
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger, deps.HTTPMetrics))
	r.Use(middleware.MaxBodySize(1 << 20))
	r.Use(middleware.Actor())

	r.GET("/health", HealthCheck(deps.HealthCheckers...))
	if deps.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(deps.MetricsHandler))
	}

	rules := middleware.DefaultRateLimitRules()
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimiter == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimiter, group, rule, deps.Logger)
	}

	v1 := r.Group("/api/v1")

	walletHandler := NewWalletHandler(deps.WalletSvc, deps.LedgerEngine, deps.PinGuard, deps.IntegritySvc)
	wallets := v1.Group("/wallets")
	{
		wallets.POST("", rl(middleware.GroupWallets), walletHandler.Create)
		wallets.GET("/:id", rl(middleware.GroupWallets), walletHandler.Get)
		wallets.GET("/:id/entries", rl(middleware.GroupWallets), walletHandler.Entries)
		wallets.GET("/:id/integrity", rl(middleware.GroupWallets), walletHandler.Integrity)

		wallets.POST("/:id/lock", rl(middleware.GroupAdmin), walletHandler.Lock)
		wallets.POST("/:id/unlock", rl(middleware.GroupAdmin), walletHandler.Unlock)
		wallets.POST("/:id/deactivate", rl(middleware.GroupAdmin), walletHandler.Deactivate)
		wallets.POST("/:id/reseal", rl(middleware.GroupAdmin), walletHandler.Reseal)

		wallets.PUT("/:id/pin", rl(middleware.GroupPinSet), walletHandler.SetPIN)
		wallets.POST("/:id/pin/verify", rl(middleware.GroupPinVerify), walletHandler.VerifyPIN)

		wallets.POST("/:id/credit", rl(middleware.GroupMovements), walletHandler.Credit)
		wallets.POST("/:id/debit", rl(middleware.GroupMovements), walletHandler.Debit)
	}

	transferHandler := NewTransferHandler(deps.TransferSvc)
	transfers := v1.Group("/transfers")
	{
		transfers.POST("", rl(middleware.GroupTransfers), transferHandler.Create)
		transfers.GET("/:reference", rl(middleware.GroupWallets), transferHandler.Get)
	}

	limitHandler := NewLimitHandler(deps.LimitEnforcer)
	users := v1.Group("/users")
	{
		users.GET("/:id/wallets", rl(middleware.GroupWallets), walletHandler.ListByUser)
		users.GET("/:id/limits", rl(middleware.GroupWallets), limitHandler.Get)
	}

	return r
}
