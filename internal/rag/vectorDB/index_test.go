package vectorDB_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akolanti/DocQA/internal/domain/commonModels"
	"github.com/akolanti/DocQA/internal/domain/failures"
	"github.com/akolanti/DocQA/internal/rag/ragtest"
	"github.com/akolanti/DocQA/internal/rag/vectorDB"
	"github.com/akolanti/DocQA/internal/rag/vectorDB/memoryDB"
	"github.com/akolanti/DocQA/pkg/logger_i"
)

var corpus = []string{
	"Paris is the capital of France.",
	"Berlin is the capital of Germany.",
	"The Nile is the longest river in Africa.",
	"Photosynthesis converts light into chemical energy.",
	"France has a population of about 68 million people.",
	"Mount Everest is the highest mountain above sea level.",
}

func build(t *testing.T, passages []commonModels.Passage, opts ...vectorDB.BuildOption) *vectorDB.Index {
	t.Helper()
	opts = append(opts, vectorDB.WithLogger(logger_i.NewDiscardLogger()))
	idx, err := vectorDB.Build(context.Background(), memoryDB.New(), &ragtest.MockEmbedder{}, passages, opts...)
	require.NoError(t, err)
	return idx
}

func TestRetrieve_SelfRetrieval(t *testing.T) {
	passages := ragtest.Passages(corpus...)
	idx := build(t, passages)

	for _, k := range []int{1, 3, 10} {
		for _, p := range passages {
			results, err := idx.Retrieve(context.Background(), p.Text, k)
			require.NoError(t, err)
			require.NotEmpty(t, results)
			assert.Equal(t, p.ID, results[0].Passage.ID, "k=%d query=%q", k, p.Text)
			assert.InDelta(t, 1.0, results[0].Score, 1e-5)
		}
	}
}

func TestRetrieve_CountAndRanks(t *testing.T) {
	idx := build(t, ragtest.Passages(corpus...))

	tests := []struct {
		k    int
		want int
	}{
		{1, 1},
		{3, 3},
		{6, 6},
		{50, 6},
		{0, 4},
		{-2, 4},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("k=%d", tt.k), func(t *testing.T) {
			results, err := idx.Retrieve(context.Background(), "capital of France", tt.k)
			require.NoError(t, err)
			require.Len(t, results, tt.want)
			for i, r := range results {
				assert.Equal(t, i+1, r.Rank)
				if i > 0 {
					prev := results[i-1]
					assert.True(t, prev.Score > r.Score || (prev.Score == r.Score && prev.Passage.ID < r.Passage.ID),
						"results out of order at %d", i)
				}
			}
		})
	}
}

func TestRetrieve_Deterministic(t *testing.T) {
	a := build(t, ragtest.Passages(corpus...))
	b := build(t, ragtest.Passages(corpus...))

	first, err := a.Retrieve(context.Background(), "what is the capital", 5)
	require.NoError(t, err)
	second, err := b.Retrieve(context.Background(), "what is the capital", 5)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRetrieve_TiesOrderedByID(t *testing.T) {
	idx := build(t, ragtest.Passages("same words here", "same words here", "other"))

	results, err := idx.Retrieve(context.Background(), "same words here", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "doc_pdf-0", results[0].Passage.ID)
	assert.Equal(t, "doc_pdf-1", results[1].Passage.ID)
}

func TestBuild_Empty(t *testing.T) {
	embedder := &ragtest.MockEmbedder{}
	tests := []struct {
		name     string
		passages []commonModels.Passage
	}{
		{"nil", nil},
		{"only whitespace", ragtest.Passages("   ", "\n\t")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memoryDB.New()
			_, err := vectorDB.Build(context.Background(), store, embedder, tt.passages)

			var buildErr *failures.IndexBuildError
			require.ErrorAs(t, err, &buildErr)
			assert.ErrorIs(t, err, failures.ErrIndexBuild)
			assert.Zero(t, embedder.BatchCalls)
		})
	}
}

func TestBuild_DropsBlankPassages(t *testing.T) {
	idx := build(t, ragtest.Passages("real text", "   "))
	assert.Equal(t, 1, idx.Size())
}

func TestBuild_Batches(t *testing.T) {
	texts := make([]string, 250)
	for i := range texts {
		texts[i] = fmt.Sprintf("passage number %d", i)
	}
	embedder := &ragtest.MockEmbedder{}

	idx, err := vectorDB.Build(context.Background(), memoryDB.New(), embedder, ragtest.Passages(texts...))

	require.NoError(t, err)
	assert.Equal(t, 3, embedder.BatchCalls)
	assert.Equal(t, 250, idx.Size())
}

func TestBuild_Failures(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name     string
		embedder *ragtest.MockEmbedder
		store    *ragtest.MockStore
	}{
		{
			name: "embedding error",
			embedder: &ragtest.MockEmbedder{OnEmbedBatch: func(ctx context.Context, texts []string) ([][]float32, error) {
				return nil, cause
			}},
			store: &ragtest.MockStore{Store: memoryDB.New()},
		},
		{
			name: "wrong dimension",
			embedder: &ragtest.MockEmbedder{Dim: 8, OnEmbedBatch: func(ctx context.Context, texts []string) ([][]float32, error) {
				out := make([][]float32, len(texts))
				for i := range out {
					out[i] = make([]float32, 4)
				}
				return out, nil
			}},
			store: &ragtest.MockStore{Store: memoryDB.New()},
		},
		{
			name:     "store error",
			embedder: &ragtest.MockEmbedder{},
			store: &ragtest.MockStore{Store: memoryDB.New(), OnUpsert: func(ctx context.Context, ids []string) error {
				return cause
			}},
		},
		{
			name:     "reset error",
			embedder: &ragtest.MockEmbedder{},
			store: &ragtest.MockStore{Store: memoryDB.New(), OnReset: func(ctx context.Context, dimension int) error {
				return cause
			}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := vectorDB.Build(context.Background(), tt.store, tt.embedder, ragtest.Passages("a b c"))
			assert.ErrorIs(t, err, failures.ErrIndexBuild)
		})
	}
}

func TestBuild_DuplicateIDs(t *testing.T) {
	passages := ragtest.Passages("one", "two")
	passages[1].ID = passages[0].ID

	_, err := vectorDB.Build(context.Background(), memoryDB.New(), &ragtest.MockEmbedder{}, passages)

	assert.ErrorIs(t, err, failures.ErrIndexBuild)
}

func TestRetrieve_Failures(t *testing.T) {
	passages := ragtest.Passages(corpus...)
	embedder := &ragtest.MockEmbedder{}
	store := &ragtest.MockStore{Store: memoryDB.New()}
	idx, err := vectorDB.Build(context.Background(), store, embedder, passages)
	require.NoError(t, err)

	embedder.OnEmbed = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("rate limited")
	}
	_, err = idx.Retrieve(context.Background(), "anything", 2)
	assert.ErrorIs(t, err, failures.ErrRetrieval)
	assert.ErrorIs(t, err, failures.ErrEmbedding)

	embedder.OnEmbed = nil
	store.OnSearch = func(ctx context.Context, vector []float32, k int) ([]vectorDB.Match, error) {
		return nil, errors.New("connection refused")
	}
	_, err = idx.Retrieve(context.Background(), "anything", 2)
	assert.ErrorIs(t, err, failures.ErrRetrieval)
	assert.NotErrorIs(t, err, failures.ErrGeneration)
}

func TestGetTopK(t *testing.T) {
	idx := build(t, ragtest.Passages(corpus...), vectorDB.WithTopK(2))

	passages, err := idx.GetTopK(context.Background(), "Paris is the capital of France.")

	require.NoError(t, err)
	require.Len(t, passages, 2)
	assert.Equal(t, "doc_pdf-0", passages[0].ID)
}

func TestPassagesIsCopy(t *testing.T) {
	idx := build(t, ragtest.Passages(corpus...))

	got := idx.Passages()
	got[0].Text = "changed"

	assert.Equal(t, corpus[0], idx.Passages()[0].Text)
}
