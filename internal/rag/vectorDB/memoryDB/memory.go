package memoryDB

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/akolanti/DocQA/internal/domain/commonModels"
	"github.com/akolanti/DocQA/internal/domain/failures"
	"github.com/akolanti/DocQA/internal/rag/vectorDB"
)

// memoryDB is a brute-force cosine index. Vectors are stored normalized.
type memoryDB struct {
	mu        sync.RWMutex
	dimension int
	ids       []string
	vectors   [][]float32
	position  map[string]int
	dropped   bool
}

var errDropped = fmt.Errorf("%w: store dropped", failures.ErrIndexNotReady)

func New() vectorDB.Store {
	return &memoryDB{position: map[string]int{}}
}

func (m *memoryDB) Reset(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dimension = dimension
	m.dropped = false
	m.ids = nil
	m.vectors = nil
	m.position = map[string]int{}
	return nil
}

func (m *memoryDB) Upsert(ctx context.Context, ids []string, vectors [][]float32, passages []commonModels.Passage) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("mismatch: got %d ids but %d vectors", len(ids), len(vectors))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dropped {
		return errDropped
	}

	for i, id := range ids {
		if len(vectors[i]) != m.dimension {
			return fmt.Errorf("vector for %s has dimension %d, want %d", id, len(vectors[i]), m.dimension)
		}
		v := normalize(vectors[i])
		if pos, ok := m.position[id]; ok {
			m.vectors[pos] = v
			continue
		}
		m.position[id] = len(m.ids)
		m.ids = append(m.ids, id)
		m.vectors = append(m.vectors, v)
	}
	return nil
}

func (m *memoryDB) Search(ctx context.Context, vector []float32, k int) ([]vectorDB.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.dropped {
		return nil, errDropped
	}
	if len(vector) != m.dimension {
		return nil, fmt.Errorf("query has dimension %d, want %d", len(vector), m.dimension)
	}
	if k <= 0 || len(m.ids) == 0 {
		return nil, nil
	}

	q := normalize(vector)
	matches := make([]vectorDB.Match, len(m.ids))
	for i, v := range m.vectors {
		matches[i] = vectorDB.Match{ID: m.ids[i], Score: dot(q, v)}
	}
	vectorDB.SortMatches(matches)

	return matches[:min(k, len(matches))], nil
}

func (m *memoryDB) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.dropped {
		return 0, errDropped
	}
	return len(m.ids), nil
}

func (m *memoryDB) Drop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dropped = true
	m.ids = nil
	m.vectors = nil
	m.position = map[string]int{}
	return nil
}

// normalize returns a unit-length copy; the zero vector stays zero.
func normalize(v []float32) []float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		return out
	}
	norm := math.Sqrt(sum)
	for i, f := range v {
		out[i] = float32(float64(f) / norm)
	}
	return out
}

func dot(a, b []float32) float32 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return float32(sum)
}
