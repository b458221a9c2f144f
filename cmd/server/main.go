package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpAdapter "github.com/iho/gotransfer/internal/adapter/http"
	"github.com/iho/gotransfer/internal/adapter/http/handler"
	"github.com/iho/gotransfer/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/gotransfer/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/gotransfer/internal/adapter/repository/redis"
	"github.com/iho/gotransfer/internal/infrastructure/config"
	"github.com/iho/gotransfer/internal/infrastructure/idgen"
	"github.com/iho/gotransfer/internal/infrastructure/logger"
	"github.com/iho/gotransfer/internal/infrastructure/metrics"
	"github.com/iho/gotransfer/internal/infrastructure/postgres"
	"github.com/iho/gotransfer/internal/infrastructure/redis"
	"github.com/iho/gotransfer/internal/seed"
	"github.com/iho/gotransfer/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx := context.Background()

	var (
		txManager usecase.TransactionManager
		accounts  usecase.AccountStore
		records   usecase.RecordStore
		pingers   []handler.Pinger
	)

	switch cfg.StoreBackend {
	case "memory":
		log.Warn().Msg("using in-memory store, data will not survive a restart")

		store := memory.NewStore()
		txManager = store
		accounts = store
		records = store

	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to postgres")
		}
		defer pool.Close()
		log.Info().Msg("connected to postgres")

		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}

		txManager = postgresRepo.NewTxManager(pool)
		accounts = postgresRepo.NewAccountRepository(pool)
		records = postgresRepo.NewRecordRepository(pool)
		pingers = append(pingers, pool)

	default:
		log.Fatal().Str("backend", cfg.StoreBackend).Msg("unknown store backend")
	}

	var cache usecase.Cache
	if cfg.RedisURL != "" {
		redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		log.Info().Msg("connected to redis")

		redisCache := redisRepo.NewCache(redisClient)
		cache = redisCache
		pingers = append(pingers, redisCache)
	}

	if cfg.SeedData {
		if err := seed.Load(ctx, accounts, log); err != nil {
			log.Fatal().Err(err).Msg("failed to seed accounts")
		}
	}

	m := metrics.New()
	idGenerator := idgen.NewULIDGenerator()

	accountUC := usecase.NewAccountUseCase(accounts, records, cache, log)
	transferUC := usecase.NewTransferUseCase(txManager, accounts, records, idGenerator, cache, log)
	transferUC.SetMaxConflictRetries(cfg.MaxConflictRetries)

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AccountHandler:  handler.NewAccountHandler(accountUC),
		TransferHandler: handler.NewTransferHandler(transferUC, m),
		HealthHandler:   handler.NewHealthHandler(pingers...),
		Logger:          log,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Str("backend", cfg.StoreBackend).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
