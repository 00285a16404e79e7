package worker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/akolanti/DocQA/internal/config"
	"github.com/akolanti/DocQA/internal/domain/commonModels"
	"github.com/akolanti/DocQA/internal/domain/failures"
	jobmodel "github.com/akolanti/DocQA/internal/domain/jobModel"
	"github.com/akolanti/DocQA/internal/metrics"
	"github.com/akolanti/DocQA/pkg/logger_i"
)

func executeJob(job jobmodel.Job) {
	start := time.Now()
	defer func() {
		// Record total time at the end
		metrics.CaptureJobMetrics(string(job.Status), time.Since(start))
	}()
	timeout := config.JobTimeout
	if job.JobType == jobmodel.JobTypeIngest {
		timeout = config.IngestJobTimeout
	}
	ctx, cancel := context.WithTimeout(detachedTraceContext(job), timeout)
	defer cancel()
	log := logger.WithTrace(ctx).With("jobId", job.Id, "jobType", job.JobType)
	log.Debug("Processing job")

	job = saveJobState(ctx, job, jobmodel.JobStatusRunning, log)

	if job.JobType == jobmodel.JobTypeIngest {
		job.CurrentStep = jobmodel.IngestInit
		job = ingestDocuments(ctx, job)
	} else {
		job.CurrentStep = jobmodel.RedisCall
		job = processQuery(ctx, job, log)
	}

	job.EndTime = time.Now()
	final := jobmodel.JobStatusComplete
	if job.Status == jobmodel.JobStatusError {
		final = jobmodel.JobStatusError
	}
	job = saveJobState(context.WithoutCancel(ctx), job, final, log)
}

// detachedTraceContext carries the request's trace id into work that outlives the request.
func detachedTraceContext(job jobmodel.Job) context.Context {
	return context.WithValue(context.Background(), config.TRACE_ID_KEY, job.TraceId)
}

func ingestDocuments(ctx context.Context, job jobmodel.Job) jobmodel.Job {
	return _ragService.IngestDocuments(ctx, job)
}

// processQuery answers one turn of a chat. Turns of the same chat run one at a time so each
// sees the history left by the previous one; the turn is stored only when the query succeeds.
func processQuery(ctx context.Context, job jobmodel.Job, log *logger_i.Logger) jobmodel.Job {
	unlock := lockChat(job.ChatId)
	defer unlock()

	history, err := _jobService.MessageStore.GetHistory(ctx, job.ChatId)
	if err != nil {
		return failJob(job, fmt.Errorf("%w: %w", failures.ErrHistoryUnavailable, err), log)
	}

	job = _ragService.ProcessRequest(ctx, job, history)
	if job.Status == jobmodel.JobStatusError {
		return job
	}

	turn := commonModels.Turn{Question: strings.TrimSpace(job.JobPayload.Question), Answer: job.JobPayload.Answer}
	if err := _jobService.MessageStore.AppendTurn(ctx, job.ChatId, turn); err != nil {
		log.Error("Failed to save chat history", "err", err)
	}
	return job
}

type chatLock struct {
	mu   sync.Mutex
	refs int
}

var (
	chatLocksMu sync.Mutex
	chatLocks   = map[string]*chatLock{}
)

// lockChat serializes the turns of one chat. The entry is dropped once no turn holds or waits on it.
func lockChat(chatId string) func() {
	chatLocksMu.Lock()
	lock, ok := chatLocks[chatId]
	if !ok {
		lock = &chatLock{}
		chatLocks[chatId] = lock
	}
	lock.refs++
	chatLocksMu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		chatLocksMu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(chatLocks, chatId)
		}
		chatLocksMu.Unlock()
	}
}

// failJob reports a failure that happened outside the query pipeline.
func failJob(job jobmodel.Job, err error, log *logger_i.Logger) jobmodel.Job {
	log.Error("Job failed", "code", failures.Code(err), "err", err)
	job.Error = jobmodel.JobError{
		Code:      failures.HTTPStatus(err),
		ErrorCode: failures.Code(err),
		Message:   err.Error(),
		Retry:     failures.Retryable(err),
	}
	job.Status = jobmodel.JobStatusError
	job.CurrentStep = jobmodel.Error
	return job
}

func saveJobState(ctx context.Context, job jobmodel.Job, jobStatus jobmodel.JobStatus, log *logger_i.Logger) jobmodel.Job {
	job.Status = jobStatus
	if err := _jobService.JobStore.SaveJob(ctx, job); err != nil {
		log.Error("Failed to update job state", "err", err)
	}
	return job
}
