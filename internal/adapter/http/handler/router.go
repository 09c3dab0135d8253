package handler

import (
	"blackjack-engine/internal/adapter/http/middleware"
	"blackjack-engine/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	RoundSvc       ports.RoundService
	Ledger         ports.Ledger
	TokenSvc       ports.TokenService
	RateLimitStore middleware.RateLimitStore // nil = rate limiting disabled
	RateLimits     map[string]middleware.RateLimitRule
	HealthCheckers []ports.HealthChecker
	Mode           string // gin mode, release when empty
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	mode := deps.Mode
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)
	r := gin.New()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(64 << 10))

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	rules := deps.RateLimits
	if rules == nil {
		rules = middleware.DefaultRateLimitRules()
	}
	rl := func(group string) gin.HandlerFunc {
		rule, ok := rules[group]
		if deps.RateLimitStore == nil || !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	v1 := r.Group("/api/v1", middleware.JWTAuth(deps.TokenSvc, deps.Logger))

	roundHandler := NewRoundHandler(deps.RoundSvc)
	rounds := v1.Group("/rounds")
	{
		rounds.POST("", rl("rounds_create"), roundHandler.CreateRound)
		rounds.GET("/:id", rl("reads"), roundHandler.GetRound)
		rounds.POST("/:id/actions", rl("rounds_action"), roundHandler.ApplyAction)
		rounds.POST("/:id/settle", rl("rounds_action"), roundHandler.Settle)
		rounds.GET("/:id/reveal", rl("reads"), roundHandler.Reveal)
		rounds.GET("/:id/audit", rl("reads"), roundHandler.AuditTrail)
	}

	walletHandler := NewWalletHandler(deps.Ledger)
	wallet := v1.Group("/wallet")
	{
		wallet.GET("/balance", rl("reads"), walletHandler.GetBalance)
	}

	return r
}
