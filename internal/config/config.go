package config

import (
	"os"

	"github.com/spf13/viper"
)

type Config struct {
	// Server
	Host        string `mapstructure:"HOST"`
	Port        string `mapstructure:"PORT"`
	GinMode     string `mapstructure:"GIN_MODE"`
	Environment string `mapstructure:"ENVIRONMENT"`

	// Database
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// Redis (ingestion task queue)
	RedisURL       string `mapstructure:"REDIS_URL"`
	IngestQueueKey string `mapstructure:"INGEST_QUEUE_KEY"`
	WorkerCount    int    `mapstructure:"INGEST_WORKER_COUNT"`

	// Object storage (S3-compatible)
	MinioEndpoint  string `mapstructure:"MINIO_ENDPOINT"`
	MinioAccessKey string `mapstructure:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `mapstructure:"MINIO_SECRET_KEY"`
	MinioBucket    string `mapstructure:"MINIO_BUCKET"`
	MinioUseSSL    bool   `mapstructure:"MINIO_USE_SSL"`

	// Vector database (Qdrant)
	QdrantHost string `mapstructure:"QDRANT_HOST"`
	QdrantPort int    `mapstructure:"QDRANT_PORT"`

	// Embedding service (OpenAI compatible)
	EmbeddingAPIKey     string `mapstructure:"OPENAI_API_KEY"`
	EmbeddingBaseURL    string `mapstructure:"EMBEDDING_BASE_URL"`
	EmbeddingModel      string `mapstructure:"EMBEDDING_MODEL"`
	EmbeddingDimensions int    `mapstructure:"EMBEDDING_DIMENSIONS"`

	// Index naming
	VectorIndexName string `mapstructure:"VECTOR_INDEX_NAME"`

	// Chunking and ingestion
	ChunkSize       int `mapstructure:"CHUNK_SIZE"`
	ChunkOverlap    int `mapstructure:"CHUNK_OVERLAP"`
	IngestBatchSize int `mapstructure:"INGEST_BATCH_SIZE"`

	// Caps
	MaxUploadSize               int64 `mapstructure:"MAX_UPLOAD_SIZE"`
	MaxDocumentPages            int   `mapstructure:"MAX_DOCUMENT_PAGES"`
	MaxDocumentsPerConversation int   `mapstructure:"MAX_DOCUMENTS_PER_CONVERSATION"`
	MaxDocumentsPerOwner        int   `mapstructure:"MAX_DOCUMENTS_PER_OWNER"`

	// Retrieval
	DefaultTopK int `mapstructure:"DEFAULT_TOP_K"`
	MaxTopK     int `mapstructure:"MAX_TOP_K"`
}

func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("HOST", "0.0.0.0")
	viper.SetDefault("PORT", "8088")
	viper.SetDefault("GIN_MODE", "release")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("DATABASE_URL", "postgres://localhost:5432/chatwithdocs?sslmode=disable")
	viper.SetDefault("REDIS_URL", "redis://localhost:6379")
	viper.SetDefault("INGEST_QUEUE_KEY", "ingest:documents")
	viper.SetDefault("INGEST_WORKER_COUNT", 2)
	viper.SetDefault("MINIO_ENDPOINT", "localhost:9000")
	viper.SetDefault("MINIO_BUCKET", "chatwithdocs")
	viper.SetDefault("QDRANT_HOST", "localhost")
	viper.SetDefault("QDRANT_PORT", 6334)
	viper.SetDefault("EMBEDDING_BASE_URL", "https://api.openai.com/v1")
	viper.SetDefault("EMBEDDING_MODEL", "text-embedding-3-large")
	viper.SetDefault("EMBEDDING_DIMENSIONS", 3072)
	viper.SetDefault("VECTOR_INDEX_NAME", "chatwithdocs")
	viper.SetDefault("CHUNK_SIZE", 512)
	viper.SetDefault("CHUNK_OVERLAP", 128)
	viper.SetDefault("INGEST_BATCH_SIZE", 32)
	viper.SetDefault("MAX_UPLOAD_SIZE", 50*1024*1024)
	viper.SetDefault("MAX_DOCUMENT_PAGES", 50)
	viper.SetDefault("MAX_DOCUMENTS_PER_CONVERSATION", 3)
	viper.SetDefault("MAX_DOCUMENTS_PER_OWNER", 10)
	viper.SetDefault("DEFAULT_TOP_K", 5)
	viper.SetDefault("MAX_TOP_K", 50)

	_ = viper.ReadInConfig()

	for _, key := range []string{
		"HOST", "PORT", "GIN_MODE", "ENVIRONMENT", "DATABASE_URL", "REDIS_URL",
		"INGEST_QUEUE_KEY", "INGEST_WORKER_COUNT",
		"MINIO_ENDPOINT", "MINIO_ACCESS_KEY", "MINIO_SECRET_KEY", "MINIO_BUCKET", "MINIO_USE_SSL",
		"QDRANT_HOST", "QDRANT_PORT",
		"OPENAI_API_KEY", "EMBEDDING_BASE_URL", "EMBEDDING_MODEL", "EMBEDDING_DIMENSIONS",
		"VECTOR_INDEX_NAME", "CHUNK_SIZE", "CHUNK_OVERLAP", "INGEST_BATCH_SIZE",
		"MAX_UPLOAD_SIZE", "MAX_DOCUMENT_PAGES", "MAX_DOCUMENTS_PER_CONVERSATION",
		"MAX_DOCUMENTS_PER_OWNER", "DEFAULT_TOP_K", "MAX_TOP_K",
	} {
		if val := os.Getenv(key); val != "" {
			viper.Set(key, val)
		}
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
