package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"go.pilab.hu/idlink/avatar"
	"go.pilab.hu/idlink/config"
	"go.pilab.hu/idlink/domain"
	"go.pilab.hu/idlink/internal/auth"
	"go.pilab.hu/idlink/internal/metrics"
	"go.pilab.hu/idlink/internal/server"
	"go.pilab.hu/idlink/log"
	"go.pilab.hu/idlink/mongodb"
	"go.pilab.hu/idlink/services"
	"go.pilab.hu/idlink/tracing"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		bootLogger := zerolog.New(os.Stdout).With().Timestamp().Logger()
		bootLogger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logLevel, parseErr := zerolog.ParseLevel(cfg.LogLevel)
	if parseErr != nil {
		logLevel = zerolog.InfoLevel
	}
	appLogger := log.NewZerologAdapter(logLevel, cfg.LogPretty)

	ctx := context.Background()
	appLogger.Info(ctx, "Starting idlink server", map[string]interface{}{
		"http_port":     cfg.HTTPPort,
		"mongo_db_name": cfg.MongoDBName,
		"log_level":     logLevel.String(),
	})

	tp, err := tracing.InitTracerProvider(cfg.OtelServiceName)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize TracerProvider", err)
	}

	if initErr := mongodb.InitMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName); initErr != nil {
		appLogger.Fatal(ctx, "Failed to initialize MongoDB connection", initErr)
	}
	db := mongodb.GetDB()

	userRepo, err := mongodb.NewUserRepositoryMongo(ctx, db)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize user repository", err)
	}
	assocRepo, err := mongodb.NewAssociationRepositoryMongo(ctx, db)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize association repository", err)
	}

	var txRunner domain.TxRunner = mongodb.NewSessionTxRunner(mongodb.GetClient())
	if !cfg.MongoTransactions {
		appLogger.Warn(ctx, "Mongo transactions disabled, running write sequences without atomicity")
		txRunner = mongodb.PassthroughTxRunner{}
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	avatarQueue := avatar.NewDedupeQueue(avatar.NewRedisQueue(redisClient, cfg.AvatarQueueKey), 0)
	defer avatarQueue.Stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.InitCustomMetrics(reg)

	provisioner := services.NewProvisioner(
		userRepo,
		assocRepo,
		txRunner,
		avatarQueue,
		auth.NewBcryptPasswordHasher(cfg.BcryptCost),
		services.Policy{
			EmailMatchEnabled:     cfg.EmailMatchEnabled,
			RequireVerifiedEmail:  cfg.RequireVerifiedEmail,
			AvatarOverrideAllowed: cfg.AvatarOverrideAllowed,
		},
	)

	httpServer := server.NewOpsServer(cfg, appLogger, reg, provisioner, map[string]server.ReadyCheck{
		"mongodb": mongodb.Ping,
		"redis": func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		},
	})

	go func() {
		appLogger.Info(ctx, "Ops HTTP server listening", map[string]interface{}{"addr": httpServer.Addr})
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal(ctx, "HTTP server failed", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info(ctx, "Shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, "HTTP server shutdown failed", err)
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, "TracerProvider shutdown failed", err)
	}
	if err := redisClient.Close(); err != nil {
		appLogger.Error(shutdownCtx, "Redis client close failed", err)
	}
	mongodb.CloseMongoDB(shutdownCtx)
	appLogger.Info(ctx, "Shutdown complete")
}
