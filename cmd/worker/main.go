package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/MatheusOliveiraSilva/ChatWithDocs-API/internal/config"
	"github.com/MatheusOliveiraSilva/ChatWithDocs-API/internal/database"
	"github.com/MatheusOliveiraSilva/ChatWithDocs-API/internal/repository"
	"github.com/MatheusOliveiraSilva/ChatWithDocs-API/internal/service"
	"github.com/MatheusOliveiraSilva/ChatWithDocs-API/internal/worker"
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

	// Wire the ingestion pipeline
	docRepo := repository.NewDocumentRepository(db)
	chunkRepo := repository.NewChunkRepository(db)

	// A previous crash may have left documents in the transient processing
	// state; mark them failed so they can be re-ingested.
	if n, err := docRepo.ResetStuckProcessing(context.Background()); err != nil {
		log.Printf("Failed to reset stuck documents: %v", err)
	} else if n > 0 {
		log.Printf("Reset %d documents stuck in processing", n)
	}
	resolver := service.NewIndexNamespaceResolver(cfg.VectorIndexName)
	chunker := service.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	extractor := service.NewTextExtractor()
	ingestSvc := service.NewIngestService(docRepo, chunkRepo, storage, extractor, chunker, resolver, index, cfg)
	queue := service.NewIngestQueue(rdb, cfg.IngestQueueKey)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("Ingestion worker starting (%d workers)", cfg.WorkerCount)
	w := worker.NewIngestWorker(queue, ingestSvc)
	if err := w.Start(ctx, cfg.WorkerCount); err != nil {
		log.Fatalf("Worker stopped with error: %v", err)
	}
	log.Println("Ingestion worker stopped")
}
