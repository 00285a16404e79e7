// @title           Document Q&A API
// @version         1.0
// @description     Ingests PDF documents and answers questions about them, citing the source passages.
// @termsOfService  http://swagger.io/terms/

// @contact.name    API Support
// @contact.url
// @contact.email   ank.github@gmail.com

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/akolanti/DocQA/internal/adapter/utils"
	"github.com/akolanti/DocQA/internal/config"
	"github.com/akolanti/DocQA/internal/customHttpClient"
	"github.com/akolanti/DocQA/internal/data/store"
	jobmodel "github.com/akolanti/DocQA/internal/domain/jobModel"
	"github.com/akolanti/DocQA/internal/handlers"
	"github.com/akolanti/DocQA/internal/job"
	"github.com/akolanti/DocQA/internal/mcpServer"
	"github.com/akolanti/DocQA/internal/middleware"
	"github.com/akolanti/DocQA/internal/rag"
	"github.com/akolanti/DocQA/internal/rag/gateway"
	"github.com/akolanti/DocQA/internal/rag/ingest"
	"github.com/akolanti/DocQA/internal/rag/llm"
	"github.com/akolanti/DocQA/internal/rag/vectorDB"
	"github.com/akolanti/DocQA/internal/rag/vectorDB/memoryDB"
	"github.com/akolanti/DocQA/internal/rag/vectorDB/pgvectorDB"
	"github.com/akolanti/DocQA/internal/rag/vectorDB/qdrantDB"
	"github.com/akolanti/DocQA/internal/server"
	"github.com/akolanti/DocQA/internal/worker"
	"github.com/akolanti/DocQA/pkg/logger_i"
)

var (
	configPath        string
	listenAddr        string
	requestCount      int64
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

func main() {
	flag.StringVar(&configPath, "config", "config.yaml", "path to the yaml config file")
	flag.StringVar(&listenAddr, "listen-addr", "", "server listen address, overrides the config")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if listenAddr != "" {
		cfg.Server.ListenAddr = listenAddr
	}

	logger_i.Init(cfg.Log.IsProd, cfg.Log.Level)
	var logger = logger_i.NewLogger("main")
	middleware.Init(cfg.Server)

	//init buffered job channel
	jobChannel := make(chan jobmodel.Job, config.BufferLimit)
	dispatcherChannel := make(chan bool, 1)
	stopWorkerChannel = make(chan bool, 1)

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	//init job service and job store
	serviceConfig := job.ServiceConfig{
		JobChannel:        jobChannel,
		RequestCount:      requestCount,
		DispatcherChannel: dispatcherChannel,
	}
	logger.Info("Starting job service")

	jobStore, jobErr := store.GetRedisJobStore(serviceContext, cfg.Redis)
	messageStore, messageErr := store.GetRedisMessageStore(serviceContext, cfg.Redis)
	if jobErr != nil || messageErr != nil {
		if !config.FALLBACK_REDIS_TO_INTERNALSTORE {
			logger.Error("Redis stores are offline", "jobStore", jobErr, "messageStore", messageErr)
			return
		}
		logger.Warn("Redis stores are offline, using in-memory stores", "jobStore", jobErr, "messageStore", messageErr)
		serviceConfig.JobStore = store.InitInMemoryJobStore()
		serviceConfig.MessageStore = store.InitMessageStore(config.DefaultChatHistoryListMax)
	} else {
		serviceConfig.JobStore = jobStore
		serviceConfig.MessageStore = messageStore
	}
	service := job.InitJobService(serviceConfig)

	modelGateway, err := gateway.New(serviceContext, gatewayConfig(cfg.Models))
	if err != nil {
		logger.Error("Model gateway failed to initialize. Shutting down.", "error", err)
		return
	}

	newStore, closeStores, err := storeFactory(serviceContext, cfg.VectorStore)
	if err != nil {
		logger.Error("Vector store failed to initialize. Shutting down.", "backend", cfg.VectorStore.Backend, "error", err)
		return
	}
	defer closeStores()

	var counter llm.TokenCounter = llm.EstimateCounter{}
	if tc, err := llm.NewTiktokenCounter(cfg.Models.ChatModel); err == nil {
		counter = tc
	} else {
		logger.Warn("Tokenizer unavailable, estimating prompt sizes", "error", err)
	}

	holder := vectorDB.NewHolder()
	engine := rag.NewEngine(modelGateway, holder,
		rag.WithSystemPrompt(cfg.Models.SystemPrompt),
		rag.WithTopK(cfg.Retrieval.K),
		rag.WithTokenCounter(counter),
	)
	ragService := rag.NewService(rag.ServiceConfig{
		Engine:    engine,
		Extractor: ingest.NewExtractor(ingest.WithChunking(cfg.Chunking.Size, cfg.Chunking.Overlap)),
		Holder:    holder,
		NewStore:  newStore,
		Embedder:  modelGateway,
		BuildOpts: []vectorDB.BuildOption{vectorDB.WithTopK(cfg.Retrieval.K)},
	})

	handlers.InitJobHandler(service, ragService)
	handlers.SetIndexBackend(cfg.VectorStore.Backend)

	//init worker pool
	worker.InitServices(service, ragService)
	worker.InitWorkerPool(stopWorkerChannel, &workerWaitGroup)

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    closeExternalServices,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(cfg.Server.ListenAddr, mcpServer.NewServer(ragService).Handler())

	<-stopExecution
	logger.Info("Server stopped")
}

func gatewayConfig(m config.ModelConfig) gateway.Config {
	keys := map[string]string{
		gateway.ProviderOpenAI:    m.OpenAIAPIKey,
		gateway.ProviderGemini:    m.GeminiAPIKey,
		gateway.ProviderAnthropic: m.AnthropicAPIKey,
	}
	return gateway.Config{
		Provider:           m.Provider,
		EmbeddingProvider:  m.EmbeddingProvider,
		ChatModel:          m.ChatModel,
		Temperature:        m.Temperature,
		MaxTokens:          m.MaxTokens,
		EmbeddingModel:     m.EmbeddingModel,
		EmbeddingDimension: m.EmbeddingDimension,
		APIKey:             keys[m.Provider],
		EmbeddingAPIKey:    keys[m.EmbeddingProvider],
		BaseURL:            m.OpenAIBaseURL,
		Timeout:            m.Timeout(),
		MaxRetries:         m.MaxRetries,
		HTTPClient:         customHttpClient.NewPooledClient(),
	}
}

// storeFactory opens the configured backend. Every build gets its own collection or table,
// so the index being replaced keeps serving until the new one is published.
func storeFactory(ctx context.Context, cfg config.VectorStoreConfig) (vectorDB.StoreFactory, func(), error) {
	switch cfg.Backend {
	case "qdrant":
		client, err := qdrantDB.NewClient(qdrantDB.ClientConfig{
			Host:   cfg.Qdrant.Host,
			Port:   cfg.Qdrant.Port,
			UseTLS: cfg.Qdrant.UseTLS,
			APIKey: cfg.Qdrant.APIKey,
		})
		if err != nil {
			return nil, nil, err
		}
		return func(context.Context) (vectorDB.Store, error) {
			return qdrantDB.New(client, buildName(cfg.Collection, "-")), nil
		}, func() { _ = client.Close() }, nil

	case "pgvector":
		pool, err := pgvectorDB.NewPool(ctx, cfg.Pgvector.DSN)
		if err != nil {
			return nil, nil, err
		}
		return func(context.Context) (vectorDB.Store, error) {
			return pgvectorDB.New(pool, buildName(cfg.Pgvector.Table, "_")), nil
		}, pool.Close, nil

	default:
		return func(context.Context) (vectorDB.Store, error) {
			return memoryDB.New(), nil
		}, func() {}, nil
	}
}

func buildName(base, sep string) string {
	suffix := strings.ReplaceAll(utils.GetNewUUID()[:8], "-", "")
	return base + sep + suffix
}
