package openaiLLM

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/akolanti/DocQA/internal/rag/llm"
	"github.com/akolanti/DocQA/pkg/logger_i"
)

type llmClient struct {
	client openai.Client
	params llm.Config
	logger *logger_i.Logger
}

// New builds a chat completion client. BaseURL may point at any OpenAI compatible endpoint.
func New(cfg llm.Config) (llm.TextGenerator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: missing api key")
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

	logger := logger_i.NewLogger("llm_openai")
	logger.Info("OpenAI chat client created", "model", cfg.Model)

	return &llmClient{
		client: openai.NewClient(opts...),
		params: cfg,
		logger: logger,
	}, nil
}

func (c *llmClient) Generate(ctx context.Context, prompt string) (string, error) {
	log := c.logger.WithTrace(ctx)

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.params.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(c.params.Temperature),
	}
	if c.params.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(c.params.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			log.Error("OpenAI request rejected", "status", apiErr.StatusCode, "error", err)
		}
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty response for model %s", c.params.Model)
	}

	log.Debug("Completion received", "finish_reason", resp.Choices[0].FinishReason,
		"prompt_tokens", resp.Usage.PromptTokens, "completion_tokens", resp.Usage.CompletionTokens)
	return resp.Choices[0].Message.Content, nil
}
