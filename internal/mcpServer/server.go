// Package mcpServer exposes the document Q&A engine as Model Context Protocol tools.
package mcpServer

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/akolanti/DocQA/internal/domain/commonModels"
	"github.com/akolanti/DocQA/internal/rag"
	"github.com/akolanti/DocQA/internal/rag/vectorDB"
	"github.com/akolanti/DocQA/pkg/logger_i"
)

const (
	Version   = "0.1.0"
	uriScheme = "docqa://"
)

// Backend is the part of the RAG service the tools call.
type Backend interface {
	Query(ctx context.Context, question string, history []commonModels.Turn) (rag.QueryResult, error)
	Search(ctx context.Context, query string, k int) ([]commonModels.ScoredPassage, error)
	IndexState() vectorDB.IndexState
	IndexSize() int
}

type Server struct {
	backend Backend
	server  *mcp.Server
	logger  *logger_i.Logger
}

func NewServer(backend Backend) *Server {
	s := &Server{
		backend: backend,
		server:  mcp.NewServer(&mcp.Implementation{Name: "docqa", Version: Version}, nil),
		logger:  logger_i.NewLogger("MCP Server"),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// Handler serves the MCP streamable HTTP transport.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)
}
