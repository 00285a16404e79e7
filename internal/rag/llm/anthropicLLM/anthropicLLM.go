package anthropicLLM

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/akolanti/DocQA/internal/config"
	"github.com/akolanti/DocQA/internal/rag/llm"
	"github.com/akolanti/DocQA/pkg/logger_i"
)

type llmClient struct {
	client anthropic.Client
	params llm.Config
	logger *logger_i.Logger
}

func New(cfg llm.Config) (llm.TextGenerator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: missing api key")
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = config.DefaultAnthropicMaxTokens
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

	logger := logger_i.NewLogger("llm_anthropic")
	logger.Info("Anthropic client created", "model", cfg.Model)

	return &llmClient{
		client: anthropic.NewClient(opts...),
		params: cfg,
		logger: logger,
	}, nil
}

func (c *llmClient) Generate(ctx context.Context, prompt string) (string, error) {
	log := c.logger.WithTrace(ctx)

	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.params.Model),
		MaxTokens: int64(c.params.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		Temperature: anthropic.Float(c.params.Temperature),
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			log.Error("Anthropic request rejected", "status", apiErr.StatusCode, "error", err)
		}
		return "", err
	}

	var answer strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			answer.WriteString(block.Text)
		}
	}
	if answer.Len() == 0 {
		return "", fmt.Errorf("anthropic: no text in response, stop reason %s", resp.StopReason)
	}

	log.Debug("Message received", "stop_reason", resp.StopReason,
		"input_tokens", resp.Usage.InputTokens, "output_tokens", resp.Usage.OutputTokens)
	return answer.String(), nil
}
