package mcpServer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/akolanti/DocQA/internal/config"
	"github.com/akolanti/DocQA/internal/domain/commonModels"
)

type AskInput struct {
	Question string              `json:"question" jsonschema:"the question to answer from the indexed documents"`
	History  []commonModels.Turn `json:"history,omitempty" jsonschema:"earlier question and answer turns of the conversation, oldest first"`
}

type AskOutput struct {
	Answer       string              `json:"answer"`
	Reformulated string              `json:"reformulated"`
	Sources      []PassageOutput     `json:"sources"`
	History      []commonModels.Turn `json:"history"`
}

type SearchInput struct {
	Query string `json:"query" jsonschema:"the text to find similar passages for"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of passages to return"`
}

type SearchOutput struct {
	Results []PassageOutput `json:"results"`
	Count   int             `json:"count"`
}

type PassageOutput struct {
	ID    string                   `json:"id"`
	File  string                   `json:"file"`
	Page  int                      `json:"page"`
	BBox  commonModels.BoundingBox `json:"bbox"`
	Text  string                   `json:"text"`
	Score float32                  `json:"score"`
	Rank  int                      `json:"rank"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask_documents",
		Description: "Answer a question from the indexed PDF documents, citing the passages used",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_passages",
		Description: "Find the indexed passages most similar to a query",
	}, s.handleSearch)
}

func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	result, err := s.backend.Query(ctx, input.Question, input.History)
	if err != nil {
		s.logger.WithTrace(ctx).Warn("ask_documents failed", "error", err)
		return nil, AskOutput{}, err
	}
	return nil, AskOutput{
		Answer:       result.Answer,
		Reformulated: result.Reformulated,
		Sources:      toPassageOutputs(result.Passages),
		History:      result.History,
	}, nil
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = config.DefaultRetrievalK
	}
	hits, err := s.backend.Search(ctx, input.Query, limit)
	if err != nil {
		return nil, SearchOutput{}, err
	}
	results := toPassageOutputs(hits)
	return nil, SearchOutput{Results: results, Count: len(results)}, nil
}

func toPassageOutputs(scored []commonModels.ScoredPassage) []PassageOutput {
	out := make([]PassageOutput, len(scored))
	for i, sp := range scored {
		out[i] = PassageOutput{
			ID:    sp.Passage.ID,
			File:  sp.Passage.File,
			Page:  sp.Passage.Page,
			BBox:  sp.Passage.BBox,
			Text:  sp.Passage.Text,
			Score: sp.Score,
			Rank:  sp.Rank,
		}
	}
	return out
}

func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "index",
		Name:        "index",
		Description: "State and size of the passage index",
		MIMEType:    "application/json",
	}, s.handleIndexResource)
}

func (s *Server) handleIndexResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	data, err := json.Marshal(map[string]any{
		"state":    s.backend.IndexState(),
		"passages": s.backend.IndexSize(),
	})
	if err != nil {
		return nil, fmt.Errorf("encoding index status: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
