package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/MatheusOliveiraSilva/ChatWithDocs-API/internal/config"
	"github.com/MatheusOliveiraSilva/ChatWithDocs-API/internal/repository"
	"github.com/MatheusOliveiraSilva/ChatWithDocs-API/internal/service"
)

func SetupRouter(cfg *config.Config, db *gorm.DB, rdb *redis.Client, storage *service.ObjectStorage, index service.VectorIndex) *gin.Engine {
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	// Health check endpoints
	r.GET("/health", healthCheck)
	r.GET("/ready", readinessCheck(db, rdb))
	r.GET("/live", livenessCheck)

	// Root endpoint
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":      "ChatWithDocs API",
			"version":      "1.0.0",
			"status":       "running",
			"health_check": "/health",
		})
	})

	// Initialize repositories
	docRepo := repository.NewDocumentRepository(db)
	chunkRepo := repository.NewChunkRepository(db)

	// Initialize services
	resolver := service.NewIndexNamespaceResolver(cfg.VectorIndexName)
	chunker := service.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	extractor := service.NewTextExtractor()
	ingestSvc := service.NewIngestService(docRepo, chunkRepo, storage, extractor, chunker, resolver, index, cfg)
	docSvc := service.NewDocumentService(docRepo, chunkRepo, storage, ingestSvc, cfg)
	retrievalSvc := service.NewRetrievalService(resolver, index, cfg)
	queue := service.NewIngestQueue(rdb, cfg.IngestQueueKey)

	// Initialize handlers
	docHandler := NewDocumentHandler(docSvc)
	ingestionHandler := NewIngestionHandler(docSvc, ingestSvc, queue)
	retrieveHandler := NewRetrieveHandler(retrievalSvc)
	conversationHandler := NewConversationHandler(docSvc)

	// API v1
	v1 := r.Group("/v1")
	{
		// Documents
		documents := v1.Group("/documents")
		{
			documents.GET("", docHandler.List)
			documents.POST("", docHandler.Upload)
			documents.GET("/:id", docHandler.Get)
			documents.DELETE("/:id", docHandler.Delete)
			documents.GET("/:id/download", docHandler.Download)
			documents.GET("/:id/chunks", docHandler.ListChunks)
			documents.POST("/:id/process", ingestionHandler.Process)
			documents.DELETE("/:id/index", ingestionHandler.DeleteFromIndex)
		}

		// Conversations
		conversations := v1.Group("/conversations")
		{
			conversations.POST("/process", ingestionHandler.ProcessConversation)
			conversations.DELETE("/:id", conversationHandler.Delete)
		}
	}

	// Retrieve endpoint (for AI agent tool calls)
	r.POST("/retrieve", retrieveHandler.Retrieve)

	return r
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "chatwithdocs",
	})
}

func readinessCheck(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "reason": "database"})
			return
		}
		if err := rdb.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "reason": "redis"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}

func livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
