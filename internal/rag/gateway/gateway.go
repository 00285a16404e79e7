// Package gateway is the single entry point to the external model providers. Every call is
// bounded by a timeout, timed, and its errors are tagged as generation or embedding failures.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/akolanti/DocQA/internal/config"
	"github.com/akolanti/DocQA/internal/domain/failures"
	"github.com/akolanti/DocQA/internal/metrics"
	"github.com/akolanti/DocQA/internal/rag/embedding"
	"github.com/akolanti/DocQA/internal/rag/embedding/googleEmbedding"
	"github.com/akolanti/DocQA/internal/rag/embedding/openaiEmbedding"
	"github.com/akolanti/DocQA/internal/rag/llm"
	"github.com/akolanti/DocQA/internal/rag/llm/anthropicLLM"
	"github.com/akolanti/DocQA/internal/rag/llm/gemini"
	"github.com/akolanti/DocQA/internal/rag/llm/openaiLLM"
	"github.com/akolanti/DocQA/pkg/logger_i"
)

const (
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

type Config struct {
	Provider           string
	EmbeddingProvider  string
	ChatModel          string
	Temperature        float64
	MaxTokens          int
	EmbeddingModel     string
	EmbeddingDimension int
	APIKey             string
	// EmbeddingAPIKey defaults to APIKey.
	EmbeddingAPIKey string
	BaseURL         string
	Timeout         time.Duration
	MaxRetries      int
	HTTPClient      *http.Client
}

func (c Config) withDefaults() Config {
	if c.Provider == "" {
		c.Provider = config.DefaultLLMProvider
	}
	if c.EmbeddingProvider == "" {
		c.EmbeddingProvider = config.DefaultEmbeddingProvider
	}
	if c.ChatModel == "" {
		c.ChatModel = config.DefaultChatModel
	}
	if c.Temperature == 0 {
		c.Temperature = config.DefaultTemperature
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = config.DefaultMaxTokens
	}
	if c.EmbeddingModel == "" {
		c.EmbeddingModel = config.DefaultEmbeddingModel
	}
	if c.EmbeddingDimension == 0 {
		c.EmbeddingDimension = config.DefaultEmbeddingDimension
	}
	if c.EmbeddingAPIKey == "" {
		c.EmbeddingAPIKey = c.APIKey
	}
	if c.Timeout <= 0 {
		c.Timeout = config.DefaultModelCallTimeout
	}
	return c
}

// Gateway implements llm.TextGenerator and embedding.TextEmbedder over the configured providers.
type Gateway struct {
	generator llm.TextGenerator
	embedder  embedding.TextEmbedder
	timeout   time.Duration
	logger    *logger_i.Logger
}

func New(ctx context.Context, cfg Config) (*Gateway, error) {
	cfg = cfg.withDefaults()

	generator, err := newGenerator(ctx, cfg)
	if err != nil {
		return nil, err
	}
	embedder, err := newEmbedder(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return Wrap(generator, embedder, cfg.Timeout), nil
}

// Wrap puts the gateway guarantees around already built providers.
func Wrap(generator llm.TextGenerator, embedder embedding.TextEmbedder, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = config.DefaultModelCallTimeout
	}
	return &Gateway{
		generator: generator,
		embedder:  embedder,
		timeout:   timeout,
		logger:    logger_i.NewLogger("Model Gateway"),
	}
}

func newGenerator(ctx context.Context, cfg Config) (llm.TextGenerator, error) {
	llmCfg := llm.Config{
		Model:       cfg.ChatModel,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		MaxRetries:  cfg.MaxRetries,
		HTTPClient:  cfg.HTTPClient,
	}
	switch cfg.Provider {
	case ProviderOpenAI:
		return openaiLLM.New(llmCfg)
	case ProviderGemini:
		return gemini.New(ctx, llmCfg)
	case ProviderAnthropic:
		return anthropicLLM.New(llmCfg)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

func newEmbedder(ctx context.Context, cfg Config) (embedding.TextEmbedder, error) {
	embCfg := embedding.Config{
		Model:      cfg.EmbeddingModel,
		Dimension:  cfg.EmbeddingDimension,
		APIKey:     cfg.EmbeddingAPIKey,
		MaxRetries: cfg.MaxRetries,
		HTTPClient: cfg.HTTPClient,
	}
	switch cfg.EmbeddingProvider {
	case ProviderOpenAI:
		embCfg.BaseURL = cfg.BaseURL
		return openaiEmbedding.New(embCfg)
	case ProviderGemini:
		return googleEmbedding.New(ctx, embCfg)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.EmbeddingProvider)
	}
}

func (g *Gateway) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	out, err := g.generator.Generate(ctx, prompt)
	metrics.CaptureExecutionMetrics("llm_generate", time.Since(start))
	if err != nil {
		g.logger.WithTrace(ctx).Error("Generation failed", "error", err, "elapsed", time.Since(start))
		return "", fmt.Errorf("%w: %w", failures.ErrGeneration, err)
	}
	return out, nil
}

func (g *Gateway) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	vector, err := g.embedder.Embed(ctx, text)
	metrics.CaptureExecutionMetrics("embedding", time.Since(start))
	if err != nil {
		g.logger.WithTrace(ctx).Error("Embedding failed", "error", err)
		return nil, fmt.Errorf("%w: %w", failures.ErrEmbedding, err)
	}
	if len(vector) != g.embedder.Dimension() {
		return nil, fmt.Errorf("%w: got dimension %d, want %d", failures.ErrEmbedding, len(vector), g.embedder.Dimension())
	}
	return vector, nil
}

func (g *Gateway) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	vectors, err := g.embedder.EmbedBatch(ctx, texts)
	metrics.CaptureExecutionMetrics("embedding_batch", time.Since(start))
	if err != nil {
		g.logger.WithTrace(ctx).Error("Batch embedding failed", "error", err, "batch", len(texts))
		return nil, fmt.Errorf("%w: %w", failures.ErrEmbedding, err)
	}
	if err := embedding.CheckVectors(vectors, len(texts), g.embedder.Dimension()); err != nil {
		return nil, fmt.Errorf("%w: %w", failures.ErrEmbedding, err)
	}
	return vectors, nil
}

func (g *Gateway) Dimension() int {
	return g.embedder.Dimension()
}
