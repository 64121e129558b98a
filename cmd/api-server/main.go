package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pcmindustrial/pcm/pkg/alerting"
	"github.com/pcmindustrial/pcm/pkg/apiserver"
	"github.com/pcmindustrial/pcm/pkg/config"
	"github.com/pcmindustrial/pcm/pkg/lifecycle"
	"github.com/pcmindustrial/pcm/pkg/metrics"
	"github.com/pcmindustrial/pcm/pkg/model"
	"github.com/pcmindustrial/pcm/pkg/seed"
	"github.com/pcmindustrial/pcm/pkg/store/postgres"
	redisclient "github.com/pcmindustrial/pcm/pkg/store/redis"
)

// gatewayHook matches gateway-pushed readings against alert rules on behalf
// of a system account, so unattended ingest can still open automatic calls.
func gatewayHook(db *postgres.Store, logger *zap.Logger) metrics.ReadingHook {
	users, err := postgres.NewUserRepository(db.DB()).List(context.Background(), nil)
	if err != nil {
		logger.Warn("Failed to resolve ingest account, alert evaluation disabled", zap.Error(err))
		return nil
	}
	var account *model.User
	for i := range users {
		if users[i].Role == model.RoleSystemAdministrator {
			account = &users[i]
			break
		}
	}
	if account == nil {
		logger.Warn("No system administrator account, alert evaluation disabled for gateway readings")
		return nil
	}

	service := alerting.NewService(
		postgres.NewAlertRuleRepository(db.DB()),
		postgres.NewEquipmentRepository(db.DB()),
		postgres.NewCallRepository(db.DB()),
		lifecycle.NewEngine(),
		logger,
	)
	return func(ctx context.Context, reading metrics.Reading) {
		equipmentID, err := uuid.Parse(reading.EquipmentID)
		if err != nil {
			return
		}
		if _, err := service.ProcessReading(ctx, *account, equipmentID, reading.Metric, reading.Value); err != nil {
			logger.Warn("Failed to evaluate gateway reading", zap.Error(err))
		}
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	db, err := postgres.NewStore(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	if cfg.Seed.OnEmpty {
		loader := seed.NewLoader(db.DB(), logger, cfg.Seed.DefaultPassword)
		if err := loader.Run(context.Background()); err != nil {
			logger.Fatal("Failed to seed database", zap.Error(err))
		}
	}

	// Notification streaming degrades to polling without redis.
	redis, err := redisclient.NewClient(&cfg.Redis)
	if err != nil {
		logger.Warn("Redis unavailable, live streaming disabled", zap.Error(err))
		redis = nil
	} else {
		defer redis.Close()
	}

	server := apiserver.NewServer(db, redis, cfg, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.ReadTimeout * 2,
	}

	collector := metrics.NewCollector(logger, gatewayHook(db, logger))

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsMux.HandleFunc("/ingest/readings", collector.HandleIngest)
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: metricsMux,
	}

	go func() {
		logger.Info("Starting metrics server", zap.Int("port", cfg.Server.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics server error", zap.Error(err))
		}
	}()

	go func() {
		logger.Info("Starting API server", zap.Int("port", cfg.Server.HTTPPort))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := metricsServer.Shutdown(ctx); err != nil {
		logger.Error("Metrics server forced to shutdown", zap.Error(err))
	}
}
