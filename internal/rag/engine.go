package rag

import (
	"context"
	"errors"
	"strings"

	"github.com/akolanti/DocQA/internal/config"
	"github.com/akolanti/DocQA/internal/domain/commonModels"
	"github.com/akolanti/DocQA/internal/domain/failures"
	"github.com/akolanti/DocQA/internal/rag/llm"
	"github.com/akolanti/DocQA/pkg/logger_i"
)

type QueryState string

const (
	StateIdle          QueryState = "Idle"
	StateReformulating QueryState = "Reformulating"
	StateRetrieving    QueryState = "Retrieving"
	StateSynthesizing  QueryState = "Synthesizing"
)

// StateObserver is told about every state a query passes through, ending with StateIdle.
type StateObserver func(QueryState)

// Retriever maps a query to its k most relevant passages.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]commonModels.ScoredPassage, error)
}

type QueryResult struct {
	Answer       string                       `json:"answer"`
	History      []commonModels.Turn          `json:"history"`
	Reformulated string                       `json:"reformulated"`
	Passages     []commonModels.ScoredPassage `json:"passages"`
}

// Engine answers questions over a retriever in three steps: reformulate, retrieve, synthesize.
// It holds no conversation state; history is passed in and a new one returned.
type Engine struct {
	generator    llm.TextGenerator
	retriever    Retriever
	systemPrompt string
	topK         int
	tokens       llm.TokenCounter
	logger       *logger_i.Logger
}

type EngineOption func(*Engine)

func WithSystemPrompt(prompt string) EngineOption {
	return func(e *Engine) { e.systemPrompt = prompt }
}

func WithTopK(k int) EngineOption {
	return func(e *Engine) {
		if k > 0 {
			e.topK = k
		}
	}
}

func WithLogger(l *logger_i.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

func WithTokenCounter(c llm.TokenCounter) EngineOption {
	return func(e *Engine) { e.tokens = c }
}

func NewEngine(generator llm.TextGenerator, retriever Retriever, opts ...EngineOption) *Engine {
	e := &Engine{
		generator:    generator,
		retriever:    retriever,
		systemPrompt: config.DefaultSystemPrompt,
		topK:         config.DefaultRetrievalK,
		tokens:       llm.EstimateCounter{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger_i.NewLogger("Query Engine")
	}
	return e
}

func (e *Engine) Query(ctx context.Context, question string, history []commonModels.Turn) (QueryResult, error) {
	return e.QueryObserved(ctx, question, history, nil)
}

// QueryObserved runs a query and reports its state transitions to observe. The query succeeds
// or fails as a unit: on error the result is empty and the caller's history is untouched.
func (e *Engine) QueryObserved(ctx context.Context, question string, history []commonModels.Turn, observe StateObserver) (QueryResult, error) {
	log := e.logger.WithTrace(ctx)
	enter := func(s QueryState) {
		log.Debug("Query state", "state", s)
		if observe != nil {
			observe(s)
		}
	}
	defer enter(StateIdle)

	question = strings.TrimSpace(question)
	if question == "" {
		return QueryResult{}, &failures.ValidationError{Reason: "question is empty"}
	}

	enter(StateReformulating)
	reformulated, err := e.generator.Generate(ctx, ReformulationPrompt(e.systemPrompt, history, question))
	if err != nil {
		return QueryResult{}, &failures.GenerationFailure{Step: "reformulation", Err: err}
	}
	reformulated = strings.TrimSpace(reformulated)
	if reformulated == "" {
		log.Warn("Empty reformulation, using the question as query")
		reformulated = question
	}
	log.Debug("Reformulated query", "query", reformulated, "history_turns", len(history))

	enter(StateRetrieving)
	scored, err := e.retriever.Retrieve(ctx, reformulated, e.topK)
	if err != nil {
		var rf *failures.RetrievalFailure
		if errors.As(err, &rf) {
			return QueryResult{}, err
		}
		return QueryResult{}, &failures.RetrievalFailure{Query: reformulated, Err: err}
	}
	for _, s := range scored {
		log.Debug("Retrieved passage", "passage_id", s.Passage.ID, "rank", s.Rank, "score", s.Score)
	}
	if len(scored) == 0 {
		log.Info("No passages retrieved", "query", reformulated)
	}

	enter(StateSynthesizing)
	prompt := AnswerPrompt(e.systemPrompt, commonModels.PassagesOf(scored), question)
	if n := e.tokens.Count(prompt); n > config.PromptTokenWarnThreshold {
		log.Warn("Large answer prompt", "tokens", n, "passages", len(scored))
	}
	answer, err := e.generator.Generate(ctx, prompt)
	if err != nil {
		return QueryResult{}, &failures.GenerationFailure{Step: "synthesis", Err: err}
	}

	return QueryResult{
		Answer:       answer,
		History:      commonModels.AppendTurn(history, commonModels.Turn{Question: question, Answer: answer}),
		Reformulated: reformulated,
		Passages:     scored,
	}, nil
}
