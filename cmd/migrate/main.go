package main

import (
	"go.uber.org/zap"

	"github.com/pcmindustrial/pcm/pkg/config"
	"github.com/pcmindustrial/pcm/pkg/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	db, err := postgres.NewStore(&cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}

	logger.Info("migrations applied",
		zap.String("database", cfg.Database.Database),
		zap.String("host", cfg.Database.Host))
}
