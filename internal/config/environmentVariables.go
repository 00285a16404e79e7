package config

import (
	"log/slog"
	"time"
)

const (
	LOG_LEVEL_PROD                  = slog.LevelInfo
	FALLBACK_REDIS_TO_INTERNALSTORE = true //if redis init fails, it falls back to an internals in-memory store
	TRACE_ID_KEY                    = "traceId"
	RATE_LIMIT_PER_SECOND           = 2
	BURST_RATE_LIMIT_PER_SECOND     = 5
	INGEST_RATE_LIMIT_PER_MINUTE    = 3
	RateLimiterIdleTTL              = 10 * time.Minute

	RequestsPerNewWorkerCount int64 = 10
	MaxWorkerCount            int64 = 10
	MinWorkerCount            int64 = 1
	IdleWorkerTimeout               = 1 * time.Minute
	JobTimeout                      = 60 * time.Second
	IngestJobTimeout                = 10 * time.Minute

	//serverTimeouts
	ReadTimeout            = 5 * time.Second
	WriteTimeout           = 10 * time.Second
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	//server listening port
	ServerListenAddr = ":3000"

	//job requests buffer limit
	BufferLimit = 100

	//uploads
	MaxUploadSize   = 32 << 20 //32mb
	UploadDirectory = "temporary_data"

	//passage extraction
	DefaultChunkSize          = 1000
	DefaultChunkOverlap       = 200
	ExtractionConcurrency     = 4
	PageExtractionTimeout     = 10 * time.Second
	EmbeddingBatchSize        = 100
	DefaultRetrievalK         = 4
	PassageTimestampLayout    = "2006-01-02T15:04:05.000000Z"
	DefaultVectorBackend      = "memory"
	DefaultVectorCollection   = "docqa-passages"
	DefaultPgvectorTableName  = "passages"
	DefaultModelCallTimeout   = 30 * time.Second
	DefaultModelCallRetries   = 2
	PromptTokenWarnThreshold  = 3000
	DefaultChatHistoryListMax = 0 //0 keeps the whole conversation

	//vectorDB
	QdrantHost     = "localhost"
	QdrantGrpcPort = 6334
	QdrantPoolSize = 1 //2-5 is preferred for prod according to documentation

	//model gateway defaults
	DefaultLLMProvider        = "openai"
	DefaultEmbeddingProvider  = "openai"
	DefaultChatModel          = "gpt-3.5-turbo"
	DefaultTemperature        = 0.5
	DefaultMaxTokens          = 1000
	DefaultEmbeddingModel     = "text-embedding-3-small"
	DefaultEmbeddingDimension = 512
	GeminiModelName           = "gemini-2.5-flash-lite-preview-09-2025"
	GoogleEmbeddingModel      = "gemini-embedding-001"
	AnthropicModelName        = "claude-3-5-haiku-latest"
	DefaultSystemPrompt       = "You are a helpful assistant answering questions about the provided documents. Keep the tone professional. If the documents do not contain the answer, say you don't know."
	EmbeddingRateLimitBackoff = 5 * time.Second
	GoogleEmbeddingTaskType   = "RETRIEVAL_DOCUMENT"
	GoogleQueryEmbeddingTask  = "RETRIEVAL_QUERY"
	TokenizerFallbackEncoding = "cl100k_base"
	DefaultAnthropicMaxTokens = 1000

	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second

	//redis
	redisHost = "127.0.0.1"
	redisPort = "6379"
	RedisAddr = redisHost + ":" + redisPort

	//redis has 16 DB we can use
	RedisJobStore     = 0
	RedisMessageStore = 1

	//redis timeouts
	RedisJobStoreTTL     = 24 * time.Hour
	RedisMessageStoreTTL = 24 * time.Hour
	RedisPingTimeout     = 3 * time.Second
)
