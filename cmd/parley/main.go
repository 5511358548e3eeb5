package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/parley-chat/parley/internal/app"
	"github.com/parley-chat/parley/internal/auth"
	"github.com/parley-chat/parley/internal/channels"
	"github.com/parley-chat/parley/internal/gateway"
	"github.com/parley-chat/parley/internal/guilds"
	"github.com/parley-chat/parley/internal/invites"
	"github.com/parley-chat/parley/internal/observability"
	"github.com/parley-chat/parley/internal/platform/cache"
	"github.com/parley-chat/parley/internal/platform/db"
	"github.com/parley-chat/parley/internal/relationships"
	"github.com/parley-chat/parley/internal/snowflake"
	"github.com/parley-chat/parley/internal/tracks"
	"github.com/parley-chat/parley/internal/users"
	"github.com/parley-chat/parley/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable", slog.Any("error", err))
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	ids, err := snowflake.NewGenerator(cfg.SnowflakeWorkerID, cfg.SnowflakeProcessID)
	if err != nil {
		logger.Error("init id generator", slog.Any("error", err))
		os.Exit(1)
	}

	events := gateway.NewPublisher(logger, redisClient, cfg.GatewayEnabled)
	hasher := auth.BcryptHasher{Cost: cfg.BcryptCost}

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(logger, authRepo, hasher, ids)
	authHandler := auth.NewHandler(logger, authService)

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(logger, usersRepo, hasher, events)
	usersHandler := users.NewHandler(logger, usersService)

	guildsRepo := guilds.NewRepository(pool)
	guildsService := guilds.NewService(logger, guildsRepo, ids, events)
	guildsHandler := guilds.NewHandler(logger, guildsService)

	channelsRepo := channels.NewRepository(pool)
	channelsService := channels.NewService(logger, channelsRepo, ids, events)
	channelsHandler := channels.NewHandler(logger, channelsService)

	invitesRepo := invites.NewRepository(pool)
	invitesService := invites.NewService(logger, invitesRepo, events)
	invitesHandler := invites.NewHandler(logger, invitesService)

	relationshipsRepo := relationships.NewRepository(pool)
	relationshipsService := relationships.NewService(logger, relationshipsRepo, events)
	relationshipsHandler := relationships.NewHandler(logger, relationshipsService)

	tracksRepo := tracks.NewRepository(pool)
	tracksService := tracks.NewService(logger, tracksRepo, ids)
	tracksHandler := tracks.NewHandler(logger, tracksService)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, jobClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:               logger,
		Config:               cfg,
		AuthService:          authService,
		AuthHandler:          authHandler,
		UsersHandler:         usersHandler,
		GuildsHandler:        guildsHandler,
		ChannelsHandler:      channelsHandler,
		InvitesHandler:       invitesHandler,
		RelationshipsHandler: relationshipsHandler,
		TracksHandler:        tracksHandler,
		JobHandler:           jobHandler,
		Metrics:              metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
