// Command import runs the one-shot symbol import job: it downloads the
// vendor archive and loads the configured exchanges into the symbol corpus.
package main

import (
	"context"
	"log"

	"github.com/yourorg/symbol-directory/internal/config"
	"github.com/yourorg/symbol-directory/internal/importer"
	"github.com/yourorg/symbol-directory/internal/repository"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Fatal("Invalid Redis URL", zap.Error(err))
	}

	redisClient := redis.NewClient(opts)
	defer redisClient.Close()

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	logger.Info("Connected to Redis", zap.String("url", cfg.Redis.URL))

	symbolRepo := repository.NewSymbolRepository(redisClient, logger)
	job := importer.NewImporter(symbolRepo, cfg.Importer, logger)

	if err := job.Run(ctx); err != nil {
		logger.Fatal("Symbol import failed", zap.Error(err))
	}
}
