package openaiEmbedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/akolanti/DocQA/internal/rag/embedding"
	"github.com/akolanti/DocQA/pkg/logger_i"
)

type client struct {
	api       openai.Client
	model     string
	dimension int
	logger    *logger_i.Logger
}

func New(cfg embedding.Config) (embedding.TextEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai embeddings: missing api key")
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("openai embeddings: invalid dimension %d", cfg.Dimension)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	logger := logger_i.NewLogger("openai_embedding")
	logger.Info("OpenAI embedding client created", "model", cfg.Model, "dimension", cfg.Dimension)

	return &client{
		api:       openai.NewClient(opts...),
		model:     cfg.Model,
		dimension: cfg.Dimension,
		logger:    logger,
	}, nil
}

func (c *client) Dimension() int { return c.dimension }

func (c *client) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	log := c.logger.WithTrace(ctx)

	resp, err := c.api.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:      openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model:      openai.EmbeddingModel(c.model),
		Dimensions: openai.Int(int64(c.dimension)),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			log.Error("OpenAI embeddings rejected", "status", apiErr.StatusCode, "error", err)
		}
		return nil, err
	}

	// results carry their input index and are not guaranteed to be ordered
	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(texts) {
			return nil, fmt.Errorf("openai embeddings: index %d out of range", d.Index)
		}
		vectors[d.Index] = toFloat32(d.Embedding)
	}

	log.Debug("Embedded batch", "inputs", len(texts), "tokens", resp.Usage.TotalTokens)
	if err := embedding.CheckVectors(vectors, len(texts), c.dimension); err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	return vectors, nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
