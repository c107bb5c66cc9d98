package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go"
	"go.uber.org/zap"

	"registration-system/config"
	"registration-system/logger"
	"registration-system/monitoring"
	"registration-system/services"
	"registration-system/store"
	"registration-system/utils"
)

func main() {
	_ = godotenv.Load()

	cfg := config.LoadConfig()
	logger.Initialize(cfg.LogLevel, cfg.Environment)

	// Initialize Redis
	redisClient, err := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatal("redis connection failed", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("connected to redis", zap.String("addr", cfg.RedisURL))

	// Initialize the persistent store
	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("store open failed", zap.Error(err))
	}
	defer db.Close()
	logger.Info("store ready", zap.String("path", cfg.DatabasePath))

	// Initialize PubNub
	pnConfig := pubnub.NewConfig()
	pnConfig.PublishKey = cfg.PubNubPublishKey
	pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
	pnConfig.SecretKey = cfg.PubNubSecretKey

	pn := pubnub.NewPubNub(pnConfig)

	// Wire up services
	stage := services.NewIntentStage(redisClient)
	notifier := services.NewPubNubNotifier(pn, cfg.BaseURL)
	locks := services.NewEventLocker(redisClient, cfg.ResolveLockTTL)
	resolver := services.NewResolutionService(db, stage, notifier)
	scheduler := services.NewScheduler(stage, resolver, locks, cfg.ResolveInterval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler.Start(ctx)

	if cfg.EnableMetrics {
		monitor := monitoring.NewMonitor(redisClient)
		go monitor.Collect(ctx, 30*time.Second)
		go serveMetrics(cfg.MetricsPort)
	}

	// Block until SIGINT or SIGTERM.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received, cleaning up")
	cancel()
	scheduler.Shutdown()
}

func serveMetrics(port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	logger.Info("metrics endpoint listening", zap.String("port", port))
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		logger.Error("metrics server stopped", zap.Error(err))
	}
}
