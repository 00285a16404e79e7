package rag

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/akolanti/DocQA/internal/config"
	"github.com/akolanti/DocQA/internal/domain/commonModels"
	"github.com/akolanti/DocQA/internal/domain/failures"
	"github.com/akolanti/DocQA/internal/domain/jobModel"
	"github.com/akolanti/DocQA/internal/metrics"
	"github.com/akolanti/DocQA/internal/rag/embedding"
	"github.com/akolanti/DocQA/internal/rag/ingest"
	"github.com/akolanti/DocQA/internal/rag/vectorDB"
	"github.com/akolanti/DocQA/pkg/logger_i"
)

/*
ARCHITECTURE NOTE: OPAQUE INTERFACE PATTERN
---------------------------------------------------------

1. Service (Interface):
  - The PUBLIC contract the worker pool, the HTTP handlers and the MCP server use.
  - Callers see jobs and answers, never the extractor, the index or the model gateway.

2. service (Private Struct):
  - Holds the state: the query engine, the extractor and the index holder.
  - Lowercase so no other package can reach past the contract.

3. Pointer Receiver (*service):
  - Methods on (*service) make the struct satisfy Service implicitly.

4. Dependency Injection (NewService):
  - Links the private struct to the public interface.
  - Tests pass mock generators, embedders and in-memory stores here.
*/

// Service Worker will only call this service - it doesn't need to know the llm or the index
type Service interface {
	ProcessRequest(ctx context.Context, job jobModel.Job, history []commonModels.Turn) jobModel.Job
	IngestDocuments(ctx context.Context, job jobModel.Job) jobModel.Job
	Query(ctx context.Context, question string, history []commonModels.Turn) (QueryResult, error)
	Search(ctx context.Context, query string, k int) ([]commonModels.ScoredPassage, error)
	IndexState() vectorDB.IndexState
	IndexSize() int
}

type service struct {
	engine    *Engine
	extractor *ingest.Extractor
	holder    *vectorDB.Holder
	newStore  vectorDB.StoreFactory
	embedder  embedding.TextEmbedder
	buildOpts []vectorDB.BuildOption
	logger    *logger_i.Logger
}

type ServiceConfig struct {
	Engine    *Engine
	Extractor *ingest.Extractor
	Holder    *vectorDB.Holder
	NewStore  vectorDB.StoreFactory
	Embedder  embedding.TextEmbedder
	BuildOpts []vectorDB.BuildOption
}

// NewService constructor
func NewService(cfg ServiceConfig) Service {
	return &service{
		engine:    cfg.Engine,
		extractor: cfg.Extractor,
		holder:    cfg.Holder,
		newStore:  cfg.NewStore,
		embedder:  cfg.Embedder,
		buildOpts: cfg.BuildOpts,
		logger:    logger_i.NewLogger("RAG Service"),
	}
}

func (s *service) ProcessRequest(ctx context.Context, jobt jobModel.Job, history []commonModels.Turn) jobModel.Job {
	inMethodLogger := s.logger.WithTrace(ctx).With("JobId", jobt.Id)

	processContext, cancel := context.WithTimeout(ctx, config.JobTimeout)
	defer cancel()

	jobt.CurrentStep = jobModel.RAGCall

	result, err := s.executeQueryStep(processContext, inMethodLogger, &jobt, history)
	if err != nil {
		return s.jobError(jobt, err, inMethodLogger)
	}

	jobt.JobPayload.Reformulated = result.Reformulated
	jobt.JobPayload.Sources = commonModels.PassagesOf(result.Passages)
	return returnOutput(jobt, result.Answer)
}

func (s *service) Query(ctx context.Context, question string, history []commonModels.Turn) (QueryResult, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("rag_query", time.Since(start)) }()
	return s.engine.Query(ctx, question, history)
}

func (s *service) Search(ctx context.Context, query string, k int) ([]commonModels.ScoredPassage, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("vector_search", time.Since(start)) }()
	return s.holder.Retrieve(ctx, query, k)
}

func (s *service) IndexState() vectorDB.IndexState {
	return s.holder.State()
}

func (s *service) IndexSize() int {
	return s.holder.Size()
}

// IngestDocuments replaces the index with one built from the job's uploaded files.
// Queries are rejected until the build ends; a failed build restores the previous index.
func (s *service) IngestDocuments(ctx context.Context, job jobModel.Job) jobModel.Job {
	inMethodLogger := s.logger.WithTrace(ctx).With("JobId", job.Id)
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("document_ingestion", time.Since(start)) }()
	defer removeUploads(job.JobPayload, inMethodLogger)

	if err := s.holder.BeginBuild(); err != nil {
		return s.jobError(job, err, inMethodLogger)
	}
	metrics.SetIndexReady(false)
	published := false
	defer func() {
		if !published {
			s.holder.Abort()
			metrics.SetIndexReady(s.holder.State() == vectorDB.StateReady)
		}
	}()

	paths := make([]string, len(job.JobPayload.IngestFiles))
	for i, f := range job.JobPayload.IngestFiles {
		paths[i] = f.Path
	}

	passages, stats, err := s.executeExtractionStep(ctx, inMethodLogger, &job, paths)
	job.JobPayload.FailedDocument = stats.Failed
	if err != nil {
		if !errors.Is(err, failures.ErrValidation) || ctx.Err() != nil {
			return s.jobError(job, err, inMethodLogger)
		}
		job.JobPayload.Rejected = rejectedNames(job.JobPayload.IngestFiles, err)
		if len(passages) == 0 {
			return s.jobError(job, err, inMethodLogger)
		}
		inMethodLogger.Warn("Some documents were rejected", "rejected", job.JobPayload.Rejected)
	}

	store, err := s.newStore(ctx)
	if err != nil {
		return s.jobError(job, &failures.IndexBuildError{Reason: "opening vector store", Err: err}, inMethodLogger)
	}

	idx, err := s.executeIndexBuildStep(ctx, inMethodLogger, &job, store, passages)
	if err != nil {
		if dropErr := store.Drop(context.WithoutCancel(ctx)); dropErr != nil {
			inMethodLogger.Warn("Failed to drop vector store of failed build", "error", dropErr)
		}
		return s.jobError(job, err, inMethodLogger)
	}

	replaced := s.holder.Publish(idx)
	published = true
	metrics.SetIndexReady(true)
	metrics.SetIndexedPassages(idx.Size())
	if replaced != nil {
		if err := replaced.Close(context.WithoutCancel(ctx)); err != nil {
			inMethodLogger.Warn("Failed to close replaced index", "error", err)
		}
	}

	job.JobPayload.PassageCount = idx.Size()
	job.CurrentStep = jobModel.Complete
	inMethodLogger.Info("Index published", "passages", idx.Size(), "failed_documents", stats.Failed)
	return job
}

// rejectedNames maps the paths named in validation errors back to the uploaded file names.
func rejectedNames(files []jobModel.IngestFile, err error) []string {
	var names []string
	for _, f := range files {
		for _, e := range unwrapJoined(err) {
			var ve *failures.ValidationError
			if errors.As(e, &ve) && ve.Path == f.Path {
				names = append(names, f.Name)
				break
			}
		}
	}
	return names
}

func unwrapJoined(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}

func removeUploads(payload jobModel.JobPayload, log *logger_i.Logger) {
	for _, f := range payload.IngestFiles {
		if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
			log.Warn("Failed to remove uploaded file", "file", f.Name, "error", err)
		}
	}
	if payload.UploadDir != "" {
		if err := os.RemoveAll(payload.UploadDir); err != nil {
			log.Warn("Failed to remove upload directory", "dir", payload.UploadDir, "error", err)
		}
	}
}
