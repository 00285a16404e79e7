package rag

import (
	"context"
	"time"

	"github.com/akolanti/DocQA/internal/domain/commonModels"
	"github.com/akolanti/DocQA/internal/domain/failures"
	"github.com/akolanti/DocQA/internal/domain/jobModel"
	"github.com/akolanti/DocQA/internal/metrics"
	"github.com/akolanti/DocQA/internal/rag/ingest"
	"github.com/akolanti/DocQA/internal/rag/vectorDB"
	"github.com/akolanti/DocQA/pkg/logger_i"
)

func returnOutput(job jobModel.Job, ans string) jobModel.Job {
	job.JobPayload.Answer = ans
	job.CurrentStep = jobModel.Complete
	return job
}

func logOutput(job jobModel.Job, status jobModel.InternalStatus, log *logger_i.Logger) jobModel.Job {
	job.CurrentStep = status
	log.Debug("ProcessRequest", "Current Status", job.CurrentStep)
	return job
}

func (s *service) jobError(job jobModel.Job, err error, log *logger_i.Logger) jobModel.Job {
	code := failures.Code(err)
	log.Error(code, "error", err, "step", job.CurrentStep)

	job.Error = jobModel.JobError{
		Code:      failures.HTTPStatus(err),
		ErrorCode: code,
		Message:   err.Error(),
		Retry:     failures.Retryable(err),
	}
	job.Status = jobModel.JobStatusError
	job.CurrentStep = jobModel.Error
	return job
}

var queryStepOf = map[QueryState]jobModel.InternalStatus{
	StateReformulating: jobModel.Reformulating,
	StateRetrieving:    jobModel.Retrieving,
	StateSynthesizing:  jobModel.Synthesizing,
}

func (s *service) executeQueryStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job, history []commonModels.Turn) (QueryResult, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("rag_query", time.Since(start)) }()

	stepStart := time.Now()
	var current QueryState
	observe := func(state QueryState) {
		if current != "" {
			metrics.CaptureExecutionMetrics(string(current), time.Since(stepStart))
		}
		current, stepStart = state, time.Now()
		if step, ok := queryStepOf[state]; ok {
			*job = logOutput(*job, step, log)
		}
	}
	return s.engine.QueryObserved(ctx, job.JobPayload.Question, history, observe)
}

func (s *service) executeExtractionStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job, paths []string) ([]commonModels.Passage, ingest.ExtractStats, error) {
	*job = logOutput(*job, jobModel.IngestProcessing, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("passage_extraction", time.Since(start)) }()

	passages, stats, err := s.extractor.ExtractWithStats(ctx, paths)
	metrics.AddExtractionFailures(stats.Failed)
	metrics.AddZeroBoundingBoxes(stats.ZeroBoxes)
	return passages, stats, err
}

func (s *service) executeIndexBuildStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job, store vectorDB.Store, passages []commonModels.Passage) (*vectorDB.Index, error) {
	*job = logOutput(*job, jobModel.IndexBuilding, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("index_build", time.Since(start)) }()

	return vectorDB.Build(ctx, store, s.embedder, passages, s.buildOpts...)
}
