package vectorDB

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/akolanti/DocQA/internal/config"
	"github.com/akolanti/DocQA/internal/domain/commonModels"
	"github.com/akolanti/DocQA/internal/domain/failures"
	"github.com/akolanti/DocQA/internal/rag/embedding"
	"github.com/akolanti/DocQA/pkg/logger_i"
)

// Index is an immutable, searchable passage set. It is safe for concurrent readers.
type Index struct {
	store    Store
	embedder embedding.TextEmbedder
	passages []commonModels.Passage
	byID     map[string]int
	topK     int
	logger   *logger_i.Logger
	closed   atomic.Bool
}

type buildOptions struct {
	batchSize int
	topK      int
	logger    *logger_i.Logger
}

type BuildOption func(*buildOptions)

func WithBatchSize(n int) BuildOption {
	return func(o *buildOptions) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

func WithTopK(k int) BuildOption {
	return func(o *buildOptions) {
		if k > 0 {
			o.topK = k
		}
	}
}

func WithLogger(l *logger_i.Logger) BuildOption {
	return func(o *buildOptions) { o.logger = l }
}

// Build embeds every passage once and loads the vectors into store.
func Build(ctx context.Context, store Store, embedder embedding.TextEmbedder, passages []commonModels.Passage, opts ...BuildOption) (*Index, error) {
	o := buildOptions{batchSize: config.EmbeddingBatchSize, topK: config.DefaultRetrievalK}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger_i.NewLogger("Vector Index")
	}
	log := o.logger.WithTrace(ctx)

	passages = slices.DeleteFunc(slices.Clone(passages), func(p commonModels.Passage) bool {
		return strings.TrimSpace(p.Text) == ""
	})
	if len(passages) == 0 {
		return nil, &failures.IndexBuildError{Reason: "no passages to index"}
	}

	byID := make(map[string]int, len(passages))
	for i, p := range passages {
		if _, dup := byID[p.ID]; dup {
			return nil, &failures.IndexBuildError{Reason: fmt.Sprintf("duplicate passage id %s", p.ID)}
		}
		byID[p.ID] = i
	}

	dimension := embedder.Dimension()
	if err := store.Reset(ctx, dimension); err != nil {
		return nil, &failures.IndexBuildError{Reason: "preparing vector store", Err: err}
	}

	if err := batchIngest(ctx, store, embedder, passages, o.batchSize, log); err != nil {
		return nil, err
	}

	log.Info("Index built", "passages", len(passages), "dimension", dimension)
	return &Index{
		store:    store,
		embedder: embedder,
		passages: passages,
		byID:     byID,
		topK:     o.topK,
		logger:   o.logger,
	}, nil
}

func batchIngest(ctx context.Context, store Store, embedder embedding.TextEmbedder, passages []commonModels.Passage, batchSize int, log *logger_i.Logger) error {
	dimension := embedder.Dimension()

	for i := 0; i < len(passages); i += batchSize {
		batch := passages[i:min(i+batchSize, len(passages))]

		texts := make([]string, len(batch))
		ids := make([]string, len(batch))
		for j, p := range batch {
			texts[j] = p.Text
			ids[j] = p.ID
		}

		log.Debug("Embedding batch", "offset", i, "size", len(batch))
		vectors, err := embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return &failures.IndexBuildError{Reason: "embedding passages", Err: err}
		}
		if err := embedding.CheckVectors(vectors, len(batch), dimension); err != nil {
			return &failures.IndexBuildError{Reason: "embedding passages", Err: err}
		}

		if err := store.Upsert(ctx, ids, vectors, batch); err != nil {
			return &failures.IndexBuildError{Reason: "storing vectors", Err: err}
		}
	}
	return nil
}

// Retrieve returns at most min(k, Size()) passages, most similar first. k <= 0 uses the
// default. Equal scores are ordered by passage id.
func (idx *Index) Retrieve(ctx context.Context, query string, k int) ([]commonModels.ScoredPassage, error) {
	if idx.closed.Load() {
		return nil, &failures.RetrievalFailure{Query: query, Err: fmt.Errorf("%w: index replaced", failures.ErrIndexNotReady)}
	}
	if k <= 0 {
		k = config.DefaultRetrievalK
	}
	k = min(k, len(idx.passages))

	vector, err := idx.embedder.Embed(ctx, query)
	if err != nil {
		if !errors.Is(err, failures.ErrEmbedding) {
			err = fmt.Errorf("%w: %w", failures.ErrEmbedding, err)
		}
		return nil, &failures.RetrievalFailure{Query: query, Err: err}
	}

	matches, err := idx.store.Search(ctx, vector, k)
	if err != nil {
		return nil, &failures.RetrievalFailure{Query: query, Err: err}
	}

	slices.SortStableFunc(matches, compareMatches)

	results := make([]commonModels.ScoredPassage, 0, k)
	for _, m := range matches {
		if len(results) == k {
			break
		}
		pos, ok := idx.byID[m.ID]
		if !ok {
			idx.logger.WithTrace(ctx).Warn("Search returned unknown passage", "passage_id", m.ID)
			continue
		}
		results = append(results, commonModels.ScoredPassage{
			Passage: idx.passages[pos],
			Score:   m.Score,
			Rank:    len(results) + 1,
		})
	}
	return results, nil
}

// GetTopK is the retriever view of the index using its configured k.
func (idx *Index) GetTopK(ctx context.Context, query string) ([]commonModels.Passage, error) {
	scored, err := idx.Retrieve(ctx, query, idx.topK)
	if err != nil {
		return nil, err
	}
	return commonModels.PassagesOf(scored), nil
}

func (idx *Index) Size() int {
	return len(idx.passages)
}

func (idx *Index) Passages() []commonModels.Passage {
	return slices.Clone(idx.passages)
}

// Close releases the backing store. Retrieve fails with ErrIndexNotReady afterwards.
func (idx *Index) Close(ctx context.Context) error {
	idx.closed.Store(true)
	return idx.store.Drop(ctx)
}

func compareMatches(a, b Match) int {
	switch {
	case a.Score > b.Score:
		return -1
	case a.Score < b.Score:
		return 1
	}
	return strings.Compare(a.ID, b.ID)
}

// SortMatches orders matches the way every Store must return them.
func SortMatches(matches []Match) {
	slices.SortStableFunc(matches, compareMatches)
}
