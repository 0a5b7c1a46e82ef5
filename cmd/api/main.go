package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"

	"voiceagent-platform/internal/audit"
	"voiceagent-platform/internal/auth"
	"voiceagent-platform/internal/calls"
	"voiceagent-platform/internal/callstate"
	"voiceagent-platform/internal/config"
	"voiceagent-platform/internal/convlog"
	"voiceagent-platform/internal/events"
	"voiceagent-platform/internal/httpapi"
	"voiceagent-platform/internal/identity"
	"voiceagent-platform/internal/knowledge"
	"voiceagent-platform/internal/realtime"
	"voiceagent-platform/internal/reporting"
	"voiceagent-platform/internal/resilience"
	"voiceagent-platform/internal/telephony"
	"voiceagent-platform/internal/transcripts"
	"voiceagent-platform/pkg/logger"
	"voiceagent-platform/pkg/utils"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Everything below is explicit construction; no service locator, no
	// globals. Each component gets exactly the references it needs.
	breakerSettings := resilience.Settings{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		ResetTimeout:     cfg.Breaker.ResetTimeout,
	}

	bus := events.NewRedisBus(rdb, log)
	defer bus.Close()

	callStore := callstate.NewStore(
		callstate.NewRedisRepository(rdb),
		resilience.NewBreaker("callstate", breakerSettings, log),
		log,
	)
	turns := convlog.NewLog(
		convlog.NewRedisRepository(rdb),
		resilience.NewBreaker("convlog", breakerSettings, log),
		log,
	)
	facts := knowledge.NewCache(
		knowledge.NewPostgresProvider(db),
		knowledge.NewRedisRepository(rdb),
		resilience.NewBreaker("knowledge", breakerSettings, log),
		log,
	)

	resolver := identity.NewService(identity.NewPostgresDirectory(db), callStore, bus, log)
	if err := resolver.Start(); err != nil {
		log.Error("identity reactor start failed", "err", err)
		os.Exit(1)
	}

	flusher := transcripts.NewFlusher(transcripts.NewPostgresSink(db), turns, callStore, bus, log)
	if err := flusher.Start(); err != nil {
		log.Error("transcript reactor start failed", "err", err)
		os.Exit(1)
	}

	history := audit.NewService(audit.NewMemoryRepo(), bus, log)
	if err := history.Start(); err != nil {
		log.Error("call history start failed", "err", err)
		os.Exit(1)
	}

	stats := reporting.NewService(reporting.NewRedisRepo(rdb), bus, log)
	if err := stats.Start(); err != nil {
		log.Error("reporting start failed", "err", err)
		os.Exit(1)
	}

	facade := calls.NewToolFacade(callStore, calls.UnpricedQuotes{}, calls.NoopBooker{}, bus, log)
	sessions := realtime.NewManager(realtime.Config{
		APIKey:               cfg.Realtime.APIKey,
		BaseURL:              cfg.Realtime.BaseURL,
		Model:                cfg.Realtime.Model,
		Voice:                cfg.Realtime.Voice,
		TurnSummaryThreshold: cfg.Call.TurnSummaryThreshold,
	}, facade, callStore, turns, bus, log)

	acceptor := telephony.NewAcceptor(cfg.Provider.APIKey, cfg.Provider.AcceptURL, cfg.Provider.AcceptFallbackURL, log)
	guard := calls.NewRedisOwnership(rdb, cfg.App.InstanceID, cfg.Call.OwnershipTTL)

	orchestrator := calls.NewOrchestrator(
		guard, callStore, facts, bus, acceptor, sessions,
		calls.StaticPrompter(""),
		calls.Options{
			Model:    cfg.Realtime.Model,
			Voice:    cfg.Realtime.Voice,
			EndedTTL: cfg.Call.EndedTTL,
		},
		log,
	)
	if err := orchestrator.Start(); err != nil {
		log.Error("call reactor start failed", "err", err)
		os.Exit(1)
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, routeDeps{
		authMW:       auth.RequireAccessToken(authManager),
		orchestrator: orchestrator,
		handlers:     httpapi.Handlers{Calls: callStore, Turns: turns, History: history, Stats: stats},
		db:           db,
		rdb:          rdb,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
