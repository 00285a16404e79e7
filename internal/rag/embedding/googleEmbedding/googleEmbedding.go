package googleEmbedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/akolanti/DocQA/internal/config"
	"github.com/akolanti/DocQA/internal/rag/embedding"
	"github.com/akolanti/DocQA/pkg/logger_i"
)

type client struct {
	genAi     *genai.Client
	model     string
	dimension int32
	backoff   time.Duration
	logger    *logger_i.Logger
}

func New(ctx context.Context, cfg embedding.Config) (embedding.TextEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("google embeddings: missing api key")
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("google embeddings: invalid dimension %d", cfg.Dimension)
	}

	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	})
	if err != nil {
		return nil, fmt.Errorf("creating google embedding client: %w", err)
	}

	logger := logger_i.NewLogger("google_embedding")
	logger.Info("Google Embedding client created", "model", cfg.Model, "dimension", cfg.Dimension)

	return &client{
		genAi:     c,
		model:     cfg.Model,
		dimension: int32(cfg.Dimension),
		backoff:   config.EmbeddingRateLimitBackoff,
		logger:    logger,
	}, nil
}

func (c *client) Dimension() int { return int(c.dimension) }

// Embed uses the query task type; stored passages are embedded as documents.
func (c *client) Embed(ctx context.Context, query string) ([]float32, error) {
	res, err := c.doCall(ctx, genai.Text(query), config.GoogleQueryEmbeddingTask)
	if err != nil {
		c.logger.WithTrace(ctx).Error("Error getting query embedding from Google", "error", err)
		return nil, err
	}
	vectors := vectorsOf(res)
	if err := embedding.CheckVectors(vectors, 1, int(c.dimension)); err != nil {
		return nil, fmt.Errorf("google embeddings: %w", err)
	}
	return vectors[0], nil
}

func (c *client) EmbedBatch(ctx context.Context, chunks []string) ([][]float32, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	log := c.logger.WithTrace(ctx).With("batch", len(chunks))

	res, err := c.doCall(ctx, getContent(chunks), config.GoogleEmbeddingTaskType)
	if doRetry(err, log) {
		log.Debug("Retrying after backoff", "backoff", c.backoff)
		select {
		case <-time.After(c.backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		res, err = c.doCall(ctx, getContent(chunks), config.GoogleEmbeddingTaskType)
	}
	if err != nil {
		log.Error("Error getting Embeddings from Google", "error", err)
		return nil, err
	}

	vectors := vectorsOf(res)
	if err := embedding.CheckVectors(vectors, len(chunks), int(c.dimension)); err != nil {
		return nil, fmt.Errorf("google embeddings: %w", err)
	}
	return vectors, nil
}

func (c *client) doCall(ctx context.Context, content []*genai.Content, task string) (*genai.EmbedContentResponse, error) {
	dimension := c.dimension
	return c.genAi.Models.EmbedContent(ctx, c.model, content, &genai.EmbedContentConfig{
		OutputDimensionality: &dimension,
		TaskType:             task,
	})
}
