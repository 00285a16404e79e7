package ragtest

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/akolanti/DocQA/internal/domain/commonModels"
	"github.com/akolanti/DocQA/internal/rag/ingest"
	"github.com/akolanti/DocQA/internal/rag/vectorDB"
)

const MockDimension = 1024

// HashVector is a bag-of-words embedding: every lowercased word adds one to a hashed bucket.
// Texts sharing words get similar vectors and identical texts identical ones.
func HashVector(text string, dim int) []float32 {
	v := make([]float32, dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		h.Write([]byte(w))
		v[h.Sum32()%uint32(dim)]++
	}
	return v
}

// MockEmbedder implements embedding.TextEmbedder
type MockEmbedder struct {
	Dim          int
	OnEmbed      func(ctx context.Context, text string) ([]float32, error)
	OnEmbedBatch func(ctx context.Context, texts []string) ([][]float32, error)

	mu         sync.Mutex
	BatchCalls int
}

func (m *MockEmbedder) Dimension() int {
	if m.Dim == 0 {
		return MockDimension
	}
	return m.Dim
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.OnEmbed != nil {
		return m.OnEmbed(ctx, text)
	}
	return HashVector(text, m.Dimension()), nil
}

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.BatchCalls++
	m.mu.Unlock()

	if m.OnEmbedBatch != nil {
		return m.OnEmbedBatch(ctx, texts)
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = HashVector(t, m.Dimension())
	}
	return out, nil
}

// MockLLM implements llm.TextGenerator and records every prompt it receives.
type MockLLM struct {
	OnGenerate func(ctx context.Context, prompt string) (string, error)

	mu      sync.Mutex
	Prompts []string
}

func (m *MockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.Prompts = append(m.Prompts, prompt)
	m.mu.Unlock()

	if m.OnGenerate != nil {
		return m.OnGenerate(ctx, prompt)
	}
	return "mocked llm response", nil
}

func (m *MockLLM) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}

// MockStore implements vectorDB.Store on top of a real store, with failure hooks.
type MockStore struct {
	vectorDB.Store
	OnReset  func(ctx context.Context, dimension int) error
	OnUpsert func(ctx context.Context, ids []string) error
	OnSearch func(ctx context.Context, vector []float32, k int) ([]vectorDB.Match, error)
}

func (m *MockStore) Reset(ctx context.Context, dimension int) error {
	if m.OnReset != nil {
		if err := m.OnReset(ctx, dimension); err != nil {
			return err
		}
	}
	return m.Store.Reset(ctx, dimension)
}

func (m *MockStore) Upsert(ctx context.Context, ids []string, vectors [][]float32, passages []commonModels.Passage) error {
	if m.OnUpsert != nil {
		if err := m.OnUpsert(ctx, ids); err != nil {
			return err
		}
	}
	return m.Store.Upsert(ctx, ids, vectors, passages)
}

func (m *MockStore) Search(ctx context.Context, vector []float32, k int) ([]vectorDB.Match, error) {
	if m.OnSearch != nil {
		return m.OnSearch(ctx, vector, k)
	}
	return m.Store.Search(ctx, vector, k)
}

// Passages builds passages from texts with ids doc_pdf-0, doc_pdf-1, ...
func Passages(texts ...string) []commonModels.Passage {
	out := make([]commonModels.Passage, len(texts))
	for i, t := range texts {
		out[i] = commonModels.Passage{
			ID:           "doc_pdf-" + strconv.Itoa(i),
			Text:         t,
			Page:         0,
			File:         "doc.pdf",
			FilePath:     "doc.pdf",
			LastModified: "2024-01-01T00:00:00.000000Z",
		}
	}
	return out
}

// MockLoader implements ingest.Loader: every document is a single page holding Docs[path].
type MockLoader struct {
	Docs map[string]string
	Errs map[string]error
}

func (m *MockLoader) Load(ctx context.Context, path string) (ingest.LoadedDocument, error) {
	if err, ok := m.Errs[path]; ok {
		return ingest.LoadedDocument{}, err
	}
	text, ok := m.Docs[path]
	if !ok {
		return ingest.LoadedDocument{}, errors.New("no such file")
	}
	return ingest.LoadedDocument{
		ModDate: "D:20240101000000Z",
		Pages: []ingest.LoadedPage{{
			Number: 1,
			Text:   text,
			Layout: ingest.PageLayout{Width: 612, Height: 792},
		}},
	}, nil
}
