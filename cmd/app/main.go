// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shipboard-community/internal/config"
	"shipboard-community/internal/infra/api"
	pg "shipboard-community/internal/infra/db/postgres"
	"shipboard-community/internal/infra/logging"
	"shipboard-community/internal/infra/metrics"
	red "shipboard-community/internal/infra/redis"
	"shipboard-community/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logging)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.PoolSize)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres unavailable")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis unavailable")
	}
	defer redisClient.Close()

	// ---- Repositories ----
	snapshotRepo := pg.NewSnapshotRepo(pool)
	accountRepo := pg.NewAccountRepo(pool)
	notificationRepo := red.NewNotificationRepo(redisClient)

	// ---- Core components ----
	cache := usecase.NewUserCache(snapshotRepo, cfg.Cache.UpdateWorkers, logger)
	notifUC := usecase.NewNotificationUseCase(notificationRepo, cache, logger)
	accountUC := usecase.NewAccountUseCase(accountRepo, cache, notificationRepo, cfg.Cache.RefreshTimeout, logger)

	// Boot ordering contract: the cache must be complete before the listener
	// accepts a single request. A partial cache is worse than not starting.
	if err := cache.Populate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("user attribute cache population failed; refusing to serve")
	}

	// ---- HTTP ----
	server := api.NewServer(cache, notifUC, accountUC, logger)
	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: server.Router(),
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// ---- Shutdown ----
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}
