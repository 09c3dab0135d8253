package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blackjack-engine/config"
	httpHandler "blackjack-engine/internal/adapter/http/handler"
	"blackjack-engine/internal/adapter/http/middleware"
	pgStorage "blackjack-engine/internal/adapter/storage/postgres"
	redisStorage "blackjack-engine/internal/adapter/storage/redis"
	"blackjack-engine/internal/core/domain"
	"blackjack-engine/internal/core/ports"
	"blackjack-engine/internal/service"
	"blackjack-engine/pkg/logger"

	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load(os.Getenv("BJE_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	table := tableConfig(cfg.Table)
	if err := table.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid table configuration")
	}

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("server_id", cfg.Engine.ServerID).
		Msg("Starting blackjack round engine")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	if err := pgStorage.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database schema")
	}
	log.Info().Msg("PostgreSQL connected")

	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	clock := quartz.NewReal()

	// Repositories
	roundRepo := pgStorage.NewRoundRepo(pool)
	walletRepo := pgStorage.NewWalletRepo(pool)
	reservationRepo := pgStorage.NewReservationRepo(pool)
	entryRepo := pgStorage.NewLedgerEntryRepo(pool)
	auditRepo := pgStorage.NewAuditRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Redis stores
	settlementCache := redisStorage.NewSettlementCache(rdb)
	roundLock := redisStorage.NewRoundLock(rdb)
	nonceStore := redisStorage.NewNonceStore(rdb)
	commitments := redisStorage.NewCommitmentRegistry(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb, clock)

	sealSvc, err := service.NewSealService(cfg.Seal.Key)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize seed sealing")
	}
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Issuer)

	ledger := service.NewLedgerService(
		walletRepo,
		reservationRepo,
		entryRepo,
		settlementCache,
		transactor,
		clock,
		cfg.Engine.SettlementCacheTTL,
		log,
	)
	auditSvc := service.NewAuditService(auditRepo, clock, log)
	roundSvc := service.NewRoundService(
		roundRepo,
		ledger,
		auditSvc,
		transactor,
		roundLock,
		nonceStore,
		commitments,
		sealSvc,
		service.RoundServiceConfig{
			ServerID:      cfg.Engine.ServerID,
			Table:         table,
			LockTTL:       cfg.Engine.RoundLockTTL,
			CommitmentTTL: cfg.Engine.CommitmentTTL,
		},
		clock,
		log,
	)
	sweeper := service.NewSweeper(roundRepo, reservationRepo, ledger, roundSvc, clock, service.SweeperConfig{
		AbandonTimeout: cfg.Engine.AbandonTimeout,
		Interval:       cfg.Engine.SweepInterval,
		Batch:          cfg.Engine.SweepBatch,
		Workers:        cfg.Engine.SweepWorkers,
	}, log)

	if specBytes, err := os.ReadFile("docs/api/openapi.yaml"); err == nil {
		httpHandler.SetSwaggerSpec(specBytes)
		log.Info().Msg("OpenAPI spec loaded for Swagger UI at /swagger")
	} else {
		log.Warn().Err(err).Msg("OpenAPI spec not found, Swagger UI will be unavailable")
	}

	rules := middleware.DefaultRateLimitRules()
	if cfg.Engine.ActionRateLimit > 0 {
		rules["rounds_action"] = middleware.RateLimitRule{
			Limit:  int64(cfg.Engine.ActionRateLimit),
			Window: cfg.Engine.ActionRateWindow,
		}
	}

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		RoundSvc:       roundSvc,
		Ledger:         ledger,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		RateLimits:     rules,
		HealthCheckers: []ports.HealthChecker{pgStorage.NewHealthCheck(pool), redisStorage.NewHealthCheck(rdb)},
		Mode:           cfg.Server.Mode,
		Logger:         log,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return sweeper.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Engine stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("Engine exited")
}

func tableConfig(t config.TableConfig) domain.TableConfig {
	return domain.TableConfig{
		DeckCount:             t.DeckCount,
		BlackjackPayoutNum:    t.BlackjackPayoutNum,
		BlackjackPayoutDen:    t.BlackjackPayoutDen,
		DealerHitsSoft17:      t.DealerHitsSoft17,
		AllowSplit:            t.AllowSplit,
		MaxHands:              t.MaxHands,
		AllowDoubleAfterSplit: t.AllowDoubleAfterSplit,
		AllowSurrender:        t.AllowSurrender,
		MinBet:                t.MinBet,
		MaxBet:                t.MaxBet,
	}
}
