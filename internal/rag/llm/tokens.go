package llm

import (
	"fmt"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/akolanti/DocQA/internal/config"
)

type tiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter picks the encoding of model, falling back to cl100k_base for models
// tiktoken does not know, such as non-OpenAI ones.
func NewTiktokenCounter(model string) (TokenCounter, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(config.TokenizerFallbackEncoding)
		if err != nil {
			return nil, fmt.Errorf("loading tokenizer: %w", err)
		}
	}
	return &tiktokenCounter{enc: enc}, nil
}

func (t *tiktokenCounter) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// EstimateCounter approximates four runes per token when no tokenizer is available.
type EstimateCounter struct{}

func (EstimateCounter) Count(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
}
