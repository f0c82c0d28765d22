package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/MatheusOliveiraSilva/ChatWithDocs-API/internal/config"
	"github.com/MatheusOliveiraSilva/ChatWithDocs-API/internal/database"
	"github.com/MatheusOliveiraSilva/ChatWithDocs-API/internal/handler"
	"github.com/MatheusOliveiraSilva/ChatWithDocs-API/internal/service"
)

func main() {
	// Load .env file if exists
	godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize Redis (ingestion task queue)
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Invalid REDIS_URL: %v", err)
	}
	rdb := redis.NewClient(redisOpts)

	// Initialize object storage
	storage, err := service.NewObjectStorage(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize object storage: %v", err)
	}
	if err := storage.EnsureBucket(context.Background()); err != nil {
		log.Fatalf("Failed to ensure storage bucket: %v", err)
	}

	// Initialize embedding and vector index clients
	embedder := service.NewEmbeddingService(
		cfg.EmbeddingAPIKey,
		cfg.EmbeddingBaseURL,
		cfg.EmbeddingModel,
		cfg.EmbeddingDimensions,
	)
	index, err := service.NewQdrantIndex(cfg, embedder)
	if err != nil {
		log.Fatalf("Failed to connect to vector database: %v", err)
	}
	defer index.Close()

	// Setup router
	r := handler.SetupRouter(cfg, db, rdb, storage, index)

	// Start server
	addr := cfg.Host + ":" + cfg.Port
	log.Printf("ChatWithDocs API starting on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
