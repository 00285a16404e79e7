package worker

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/akolanti/DocQA/internal/config"
	"github.com/akolanti/DocQA/internal/domain/jobModel"
	"github.com/akolanti/DocQA/internal/job"
	"github.com/akolanti/DocQA/internal/metrics"
	"github.com/akolanti/DocQA/internal/rag"
	"github.com/akolanti/DocQA/pkg/logger_i"
)

var (
	_jobService        *job.Service
	_ragService        rag.Service
	stopWorkerChannel  chan bool
	workerWaitGroup    *sync.WaitGroup
	dispatcherChannel  chan bool
	currentWorkerCount int64
	logger             = logger_i.NewLogger("WorkerPool")
	minWorkerCount     = config.MinWorkerCount
	idleWorkerTimeout  = config.IdleWorkerTimeout
)

// InitServices hands the pool the queue it drains and the service that runs query and ingest jobs.
func InitServices(jobService *job.Service, ragService rag.Service) {
	_jobService = jobService
	_ragService = ragService
	dispatcherChannel = jobService.DispatcherChannel
}

// InitWorkerPool starts the dispatcher with one worker. Every signal on the dispatcher
// channel adds a worker while jobs are waiting, up to config.MaxWorkerCount.
func InitWorkerPool(stopWorkerChan chan bool, waitGroup *sync.WaitGroup) {
	stopWorkerChannel = stopWorkerChan
	workerWaitGroup = waitGroup
	logger = logger_i.NewLogger("WorkerPool")
	logger.Info("Initializing worker pool", "min", minWorkerCount, "max", config.MaxWorkerCount)
	go dispatcher()
}

func dispatcher() {
	createWorker()
	for {
		select {
		case <-stopWorkerChannel:
			return
		case _, ok := <-dispatcherChannel:
			if !ok {
				return
			}
			count := atomic.LoadInt64(&currentWorkerCount)
			if count < config.MaxWorkerCount && (count == 0 || _jobService.QueueDepth() > 0) {
				logger.Debug("Scaling up", "workerCount", count, "queued", _jobService.QueueDepth())
				createWorker()
			}
		}
	}
}

func createWorker() {
	workerWaitGroup.Add(1)
	count := atomic.AddInt64(&currentWorkerCount, 1)
	metrics.IncrementActiveWorkerCount()
	logger.Info("Created new worker", "workerCount", count)
	go worker()
}

func worker() {
	idle := time.NewTimer(idleWorkerTimeout)
	defer idle.Stop()

	for {
		select {
		case currentJob := <-_jobService.JobChannel:
			runJob(currentJob)
			metrics.DecrementJobsInQueue()
			idle.Reset(idleWorkerTimeout)

		case <-stopWorkerChannel:
			removeWorker("Stop worker signal received")
			return

		case <-idle.C:
			if remaining, ok := retire(); ok {
				finishWorker("Idle worker timeout", remaining)
				return
			}
			idle.Reset(idleWorkerTimeout)
		}
	}
}

// retire claims one slot above the floor so concurrent idle workers cannot all leave.
func retire() (int64, bool) {
	for {
		count := atomic.LoadInt64(&currentWorkerCount)
		if count <= atomic.LoadInt64(&minWorkerCount) {
			return count, false
		}
		if atomic.CompareAndSwapInt64(&currentWorkerCount, count, count-1) {
			return count - 1, true
		}
	}
}

func removeWorker(reason string) {
	finishWorker(reason, atomic.AddInt64(&currentWorkerCount, -1))
}

func finishWorker(reason string, remaining int64) {
	workerWaitGroup.Done()
	metrics.DecrementActiveWorkerCount()
	logger.Info("Removed worker", "reason", reason, "workerCount", remaining)
}

// runJob keeps the worker alive when a job panics, for example inside the PDF parser,
// and records the job as failed.
func runJob(currentJob jobModel.Job) {
	defer func() {
		if r := recover(); r != nil {
			log := logger.With("jobId", currentJob.Id, "jobType", currentJob.JobType)
			log.Error("Job panicked", "panic", r)
			currentJob.Error = jobModel.JobError{
				Code:      500,
				ErrorCode: "INTERNAL_ERROR",
				Message:   fmt.Sprintf("job aborted: %v", r),
			}
			currentJob.CurrentStep = jobModel.Error
			currentJob.EndTime = time.Now()
			saveJobState(detachedTraceContext(currentJob), currentJob, jobModel.JobStatusError, log)
		}
	}()
	executeJob(currentJob)
}
