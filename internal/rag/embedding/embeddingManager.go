package embedding

import (
	"context"
	"fmt"
	"net/http"
)

// TextEmbedder maps text to fixed-size vectors. Embed and EmbedBatch must use the same model
// and dimension so queries and passages are comparable.
type TextEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

type Config struct {
	Model      string
	Dimension  int
	APIKey     string
	BaseURL    string
	MaxRetries int
	HTTPClient *http.Client
}

// CheckVectors verifies that a provider returned one vector of the configured size per input.
func CheckVectors(vectors [][]float32, inputs, dimension int) error {
	if len(vectors) != inputs {
		return fmt.Errorf("got %d vectors for %d inputs", len(vectors), inputs)
	}
	for i, v := range vectors {
		if len(v) != dimension {
			return fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), dimension)
		}
	}
	return nil
}
