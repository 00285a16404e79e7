package rag

import (
	"context"
	"slices"
	"sync"

	"github.com/akolanti/DocQA/internal/domain/commonModels"
)

// Session is a caller-owned conversation for headless use. Questions on one session are
// answered one at a time.
type Session struct {
	engine  *Engine
	mu      sync.Mutex
	history []commonModels.Turn
}

func NewSession(engine *Engine) *Session {
	return &Session{engine: engine}
}

// Ask answers question in the context of the session. History only changes on success.
func (s *Session) Ask(ctx context.Context, question string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.engine.Query(ctx, question, s.history)
	if err != nil {
		return "", err
	}
	s.history = result.History
	return result.Answer, nil
}

func (s *Session) History() []commonModels.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.history)
}

func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}
