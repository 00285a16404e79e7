package handlers

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/akolanti/DocQA/internal/config"
	"github.com/akolanti/DocQA/internal/domain/commonModels"
	"github.com/akolanti/DocQA/internal/domain/jobModel"
	"github.com/akolanti/DocQA/internal/job"
	"github.com/akolanti/DocQA/internal/metrics"
	"github.com/akolanti/DocQA/internal/rag/vectorDB"
	"github.com/akolanti/DocQA/pkg/logger_i"
)

var (
	handlerInstance *JobHandler //private singleton
	once            sync.Once
	logJH           = logger_i.NewLogger("JobHandler")
	logRH           = logger_i.NewLogger("RequestHandler")
	indexBackend    = config.DefaultVectorBackend
)

// IndexStatus reports whether queries can be served.
type IndexStatus interface {
	IndexState() vectorDB.IndexState
	IndexSize() int
}

type JobHandler struct {
	service *job.Service
	index   IndexStatus
}

func InitJobHandler(jobService *job.Service, index IndexStatus) {
	once.Do(func() {
		handlerInstance = &JobHandler{service: jobService, index: index}
		logJH.Info("Starting job handler")
	})
}

// CreateNewJob registers a new chat when needed, then queues the job.
func CreateNewJob(newJob newJobData) error {
	log := logJH.With("traceId", newJob.traceId, "jobId", newJob.id)
	log.Debug("Creating new job", "ingest", newJob.isDocumentIngest)
	if newJob.isNewChat {
		if err := handlerInstance.initNewChat(newJob.chatId, newJob.traceId); err != nil {
			log.Error("Error initiating new chat", "chatId", newJob.chatId, "err", err)
			return err
		}
	}
	handlerInstance.pushToJobChannel(newJob, log)
	return nil
}

func GetJobStatus(id string, traceId string) (result jobModel.Job, isFound bool) {
	ctxC := context.WithValue(context.Background(), config.TRACE_ID_KEY, traceId)
	if handlerInstance != nil {
		return handlerInstance.service.JobStore.GetJob(ctxC, id)
	}
	return result, false
}

func ValidateChatId(ctx context.Context, chatId string) bool {
	if handlerInstance == nil {
		return false
	}
	logJH.Debug("Validating chat id", "chatId", chatId)
	if chatId == "" {
		return true
	}
	return handlerInstance.service.MessageStore.ValidateChatId(ctx, chatId)
}

func GetChatHistory(ctx context.Context, chatId string) ([]commonModels.Turn, bool, error) {
	if handlerInstance == nil || !handlerInstance.service.MessageStore.ValidateChatId(ctx, chatId) {
		return nil, false, nil
	}
	turns, err := handlerInstance.service.MessageStore.GetHistory(ctx, chatId)
	return turns, true, err
}

// SetIndexBackend names the vector store reported by GET /index.
func SetIndexBackend(name string) {
	indexBackend = name
}

func GetIndexStatus() (vectorDB.IndexState, int) {
	if handlerInstance == nil || handlerInstance.index == nil {
		return vectorDB.StateEmpty, 0
	}
	return handlerInstance.index.IndexState(), handlerInstance.index.IndexSize()
}

// private methods
func (h *JobHandler) pushToJobChannel(newJob newJobData, log *logger_i.Logger) {

	_job := jobModel.Job{}
	_job.Id = newJob.id
	_job.CreatedTime = time.Now()
	_job.TraceId = newJob.traceId
	_job.Status = jobModel.JobStatusQueued

	if newJob.isDocumentIngest {
		_job.CurrentStep = jobModel.IngestInit
		_job.JobType = jobModel.JobTypeIngest
		_job.JobPayload.IngestFiles = newJob.ingestFiles
		_job.JobPayload.UploadDir = newJob.uploadDir
	} else {
		_job.JobType = jobModel.JobTypeQuery
		_job.ChatId = newJob.chatId
		_job.JobPayload.Question = newJob.message
		_job.CurrentStep = jobModel.UserQueryInit
	}

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, newJob.traceId)
	if err := h.service.JobStore.SaveJob(ctx, _job); err != nil {
		log.Error("Failed to save queued job", "err", err)
	}

	//metrics
	metrics.IncrementJobsInQueue()

	h.service.JobChannel <- _job //this is a blocking send to prevent the system from being overwhelmed
	log.Info("Created new job", "type", _job.JobType)

	//a new worker is started every RequestsPerNewWorkerCount requests
	//and for every ingestion, which embeds in batches and can take a while.
	//idle workers retire on their own, so most of the time a single worker runs

	accurateCount := atomic.AddInt64(&h.service.RequestCount, 1) //after sending a request increment counter
	if accurateCount%config.RequestsPerNewWorkerCount == 0 || _job.JobType == jobModel.JobTypeIngest {
		metrics.StartDispatcherSignalCount() //metrics
		log.Debug("Signalling dispatcher", "requestCount", accurateCount)
		select {
		case h.service.DispatcherChannel <- true:
		default:
			log.Debug("Dispatcher busy, signal dropped")
		}
	}
}

func (h *JobHandler) initNewChat(chatId string, traceId string) error {
	ctxC := context.WithValue(context.Background(), config.TRACE_ID_KEY, traceId)
	return h.service.MessageStore.InitNewChat(ctxC, chatId)
}
