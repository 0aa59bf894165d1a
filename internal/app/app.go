package app

import (
	"context"
	"log"
	"time"
	"vkozyrev/photocaption/internal/config"
	"vkozyrev/photocaption/internal/handler"
	"vkozyrev/photocaption/internal/repository"
	"vkozyrev/photocaption/internal/service"

	"github.com/redis/go-redis/v9"
)

func Run(cfg *config.Config) {
	blob, err := service.NewS3BlobService(cfg)
	if err != nil {
		log.Fatal(err)
	}

	if err := blob.HealthCheck(context.Background()); err != nil {
		log.Printf("Storage health check: %v", err)
	}

	captioner, err := service.NewGeminiCaptioner(
		cfg.GeminiBaseURL,
		cfg.GeminiAPIKey,
		cfg.GeminiModel,
		time.Duration(cfg.GeminiTimeoutSeconds)*time.Second,
	)
	if err != nil {
		log.Fatal(err)
	}

	// The structured store is optional: without DB_HOST only the JSON
	// sidecars are written.
	var photoRepo repository.PhotoRepository
	if cfg.DBHost != "" {
		db, err := repository.NewDB(cfg.DSN())
		if err != nil {
			log.Fatal(err)
		}
		photoRepo = repository.NewPhotoRepository(db)
	}

	var outbox repository.OutboxRepository
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		outbox = repository.NewOutboxRepository(rdb)
	}

	metadataService := service.NewMetadataService(blob, photoRepo, outbox)
	photoService := service.NewPhotoService(blob, captioner, metadataService)
	photoHandler := handler.NewPhotoHandler(photoService)

	if outbox != nil {
		go replayLoop(metadataService, time.Duration(cfg.OutboxIntervalSeconds)*time.Second)
	}

	server := NewServer(photoHandler)
	server.Run(cfg.ServerPort)
}

// replayLoop periodically retries metadata writes that failed one of
// their two legs.
func replayLoop(metadata service.MetadataService, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		metadata.ReplayOutbox(context.Background())
	}
}
