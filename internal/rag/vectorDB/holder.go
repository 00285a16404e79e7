package vectorDB

import (
	"context"
	"sync"

	"github.com/akolanti/DocQA/internal/domain/commonModels"
	"github.com/akolanti/DocQA/internal/domain/failures"
)

type IndexState string

const (
	StateEmpty    IndexState = "EMPTY"
	StateBuilding IndexState = "BUILDING"
	StateReady    IndexState = "READY"
)

// Holder is the shared slot queries read the current index from. Queries are rejected while
// the slot is empty or a build is in progress.
type Holder struct {
	mu       sync.RWMutex
	state    IndexState
	current  *Index
	previous *Index
}

func NewHolder() *Holder {
	return &Holder{state: StateEmpty}
}

func (h *Holder) BeginBuild() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == StateBuilding {
		return failures.ErrIndexBusy
	}
	h.previous = h.current
	h.current = nil
	h.state = StateBuilding
	return nil
}

// Publish makes idx current and returns the index it replaced, if any, so the caller can close it.
func (h *Holder) Publish(idx *Index) *Index {
	h.mu.Lock()
	defer h.mu.Unlock()

	replaced := h.previous
	if h.state != StateBuilding {
		replaced = h.current
	}
	h.current = idx
	h.previous = nil
	h.state = StateReady
	return replaced
}

// Abort ends a build without a new index, restoring the previous one.
func (h *Holder) Abort() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != StateBuilding {
		return
	}
	h.current = h.previous
	h.previous = nil
	if h.current != nil {
		h.state = StateReady
	} else {
		h.state = StateEmpty
	}
}

func (h *Holder) Current() (*Index, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.state != StateReady || h.current == nil {
		return nil, failures.ErrIndexNotReady
	}
	return h.current, nil
}

func (h *Holder) State() IndexState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// Size is the passage count of the ready index, or zero.
func (h *Holder) Size() int {
	idx, err := h.Current()
	if err != nil {
		return 0
	}
	return idx.Size()
}

// Retrieve searches the current index.
func (h *Holder) Retrieve(ctx context.Context, query string, k int) ([]commonModels.ScoredPassage, error) {
	idx, err := h.Current()
	if err != nil {
		return nil, err
	}
	return idx.Retrieve(ctx, query, k)
}
