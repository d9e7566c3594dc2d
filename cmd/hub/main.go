package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tomcat65/agent-hub/internal/agentreg"
	"github.com/tomcat65/agent-hub/internal/hubauth"
	"github.com/tomcat65/agent-hub/internal/hubcache"
	"github.com/tomcat65/agent-hub/internal/hubconfig"
	"github.com/tomcat65/agent-hub/internal/hubdb"
	"github.com/tomcat65/agent-hub/internal/hubserver"
	"github.com/tomcat65/agent-hub/internal/memstore"
	"github.com/tomcat65/agent-hub/internal/router"
	"github.com/tomcat65/agent-hub/internal/sessionmgr"
	"github.com/tomcat65/agent-hub/internal/slacknotify"
	"github.com/tomcat65/agent-hub/internal/tools"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = log.With().Str("service", "agent-hub").Logger()

	cfg, err := hubconfig.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	if cfg.Env == "dev" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}

	ctx := context.Background()

	pool, err := hubdb.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()

	store := memstore.New(pool, nil, log.Logger)
	if cfg.VectorStoreURL != "" {
		log.Warn().Msg("VECTOR_STORE_URL set but no concrete vector store client is wired; semantic search stays in degrade-to-empty mode")
	}
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure schema")
	}

	var cache *hubcache.Cache
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		cache = hubcache.New(redisClient, log.Logger)
	} else {
		log.Warn().Msg("REDIS_URL unset; running without a cache, every read goes to Postgres")
	}

	jwtCfg := hubauth.JWTCfg{
		HS256Secret: cfg.JWTHS256Secret,
		DevMode:     cfg.Env == "dev",
		Issuer:      cfg.JWTIssuer,
		JWKSURL:     cfg.JWTJWKSURL,
		Audience:    cfg.JWTAudience,
	}
	jwtValidator, err := hubauth.NewJWTValidator(jwtCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to construct JWT validator")
	}
	membership := hubauth.NewDBMembershipChecker(pool)
	resolver := hubauth.NewResolver(pool, jwtValidator, membership, cfg.Env == "dev", "")

	var notifier sessionmgr.SlackNotifier
	if cfg.SlackWebhookURL != "" {
		notifier = slacknotify.New(cfg.SlackWebhookURL)
	}

	agents := agentreg.New(store, cfg.AgentTTL, log.Logger)
	msgRouter := router.New(store, agents, log.Logger)
	sessions := sessionmgr.New(store, notifier, log.Logger)
	toolRegistry := tools.NewDefaultRegistry()

	handler := &hubserver.MCPHandler{
		Store:    store,
		Cache:    cache,
		Router:   msgRouter,
		Sessions: sessions,
		Agents:   agents,
		Tools:    toolRegistry,
		Log:      log.Logger,
	}

	limiter := hubserver.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	httpServer := &http.Server{
		Addr:         ":" + cfg.MessageHubPort,
		Handler:      handler.Routes(resolver, limiter),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	sweepCtx, cancelSweep := context.WithCancel(ctx)
	defer cancelSweep()
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				if _, err := agents.SweepStale(sweepCtx); err != nil {
					log.Error().Err(err).Msg("stale-agent sweep failed")
				}
			}
		}
	}()

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("starting agent-hub")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("shutting down gracefully...")
	cancelSweep()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}
	agents.Close()
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error().Err(err).Msg("redis client close error")
		}
	}

	log.Info().Msg("agent-hub stopped")
}
