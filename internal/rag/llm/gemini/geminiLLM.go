package gemini

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/akolanti/DocQA/internal/rag/llm"
	"github.com/akolanti/DocQA/pkg/logger_i"
)

type llmClient struct {
	client      *genai.Client
	modelName   string
	temperature float32
	maxTokens   int32
	logger      *logger_i.Logger
}

func New(ctx context.Context, cfg llm.Config) (llm.TextGenerator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: missing api key")
	}

	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	logger := logger_i.NewLogger("llm_gemini")
	logger.Info("Gemini client created", "model", cfg.Model)

	return &llmClient{
		client:      c,
		modelName:   cfg.Model,
		temperature: float32(cfg.Temperature),
		maxTokens:   int32(cfg.MaxTokens),
		logger:      logger,
	}, nil
}

func (c *llmClient) Generate(ctx context.Context, prompt string) (string, error) {
	log := c.logger.WithTrace(ctx)

	temperature := c.temperature
	contentConfig := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: c.maxTokens,
	}

	result, err := c.client.Models.GenerateContent(ctx, c.modelName, genai.Text(prompt), contentConfig)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			log.Error("Gemini request rejected", "status", apiErr.Code, "error", apiErr.Message)
		}
		return "", err
	}
	if result == nil {
		return "", errors.New("gemini: empty response")
	}
	return result.Text(), nil
}
