package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akolanti/DocQA/internal/domain/failures"
	"github.com/akolanti/DocQA/internal/rag/llm"
)

type mockEmbedder struct {
	dim     int
	OnEmbed func(ctx context.Context, texts []string) ([][]float32, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v, err := m.OnEmbed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return m.OnEmbed(ctx, texts)
}

func (m *mockEmbedder) Dimension() int { return m.dim }

func constantEmbedder(dim int) *mockEmbedder {
	return &mockEmbedder{dim: dim, OnEmbed: func(ctx context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i := range out {
			out[i] = make([]float32, dim)
		}
		return out, nil
	}}
}

func TestGenerate_TimeoutSurfacesAsGenerationFailure(t *testing.T) {
	hang := llm.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	g := Wrap(hang, constantEmbedder(4), 20*time.Millisecond)

	start := time.Now()
	_, err := g.Generate(context.Background(), "hello")

	require.Error(t, err)
	assert.ErrorIs(t, err, failures.ErrGeneration)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestGenerate_PassesThroughOutput(t *testing.T) {
	var seen string
	echo := llm.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		seen = prompt
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return "", nil
	})
	g := Wrap(echo, constantEmbedder(4), time.Second)

	out, err := g.Generate(context.Background(), "prompt text")

	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, "prompt text", seen)
}

func TestEmbed_ErrorsAreTagged(t *testing.T) {
	provider := errors.New("401 unauthorized")
	failing := &mockEmbedder{dim: 4, OnEmbed: func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, provider
	}}
	g := Wrap(nil, failing, time.Second)

	_, err := g.Embed(context.Background(), "q")
	assert.ErrorIs(t, err, failures.ErrEmbedding)
	assert.ErrorIs(t, err, provider)
	assert.NotErrorIs(t, err, failures.ErrGeneration)

	_, err = g.EmbedBatch(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, failures.ErrEmbedding)
}

func TestEmbed_DimensionMismatch(t *testing.T) {
	wrong := &mockEmbedder{dim: 4, OnEmbed: func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{1, 2}}, nil
	}}
	g := Wrap(nil, wrong, time.Second)

	_, err := g.Embed(context.Background(), "q")
	assert.ErrorIs(t, err, failures.ErrEmbedding)

	_, err = g.EmbedBatch(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, failures.ErrEmbedding)
}

func TestEmbedBatch(t *testing.T) {
	g := Wrap(nil, constantEmbedder(8), time.Second)

	vectors, err := g.EmbedBatch(context.Background(), []string{"a", "b", "c"})

	require.NoError(t, err)
	assert.Len(t, vectors, 3)
	assert.Equal(t, 8, g.Dimension())
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"openai defaults", Config{APIKey: "sk-test"}, false},
		{"anthropic with openai embeddings", Config{Provider: ProviderAnthropic, ChatModel: "claude-3-5-haiku-latest", APIKey: "ant-key", EmbeddingAPIKey: "sk-test"}, false},
		{"unknown provider", Config{Provider: "mistral", APIKey: "k"}, true},
		{"anthropic embeddings unsupported", Config{EmbeddingProvider: ProviderAnthropic, APIKey: "k"}, true},
		{"missing key", Config{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := New(context.Background(), tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 512, g.Dimension())
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{APIKey: "k"}.withDefaults()

	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, "gpt-3.5-turbo", cfg.ChatModel)
	assert.Equal(t, 0.5, cfg.Temperature)
	assert.Equal(t, 1000, cfg.MaxTokens)
	assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
	assert.Equal(t, 512, cfg.EmbeddingDimension)
	assert.Equal(t, "k", cfg.EmbeddingAPIKey)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
}
