package vectorDB

import (
	"context"

	"github.com/akolanti/DocQA/internal/domain/commonModels"
)

// Match is a search hit. Higher scores are more similar.
type Match struct {
	ID    string
	Score float32
}

// Store is a vector backend holding one embedded passage set.
type Store interface {
	// Reset drops any previous content and prepares the store for vectors of the given size.
	Reset(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, ids []string, vectors [][]float32, passages []commonModels.Passage) error
	// Search returns at most k matches ordered by score descending, then id ascending.
	Search(ctx context.Context, vector []float32, k int) ([]Match, error)
	Count(ctx context.Context) (int, error)
	// Drop releases the backing collection or table.
	Drop(ctx context.Context) error
}

// StoreFactory creates an empty store for a new build so the previous index stays
// searchable until the new one is published.
type StoreFactory func(ctx context.Context) (Store, error)
