package job

import (
	"github.com/akolanti/DocQA/internal/config"
	"github.com/akolanti/DocQA/internal/domain/jobModel"
)

// Service is the queue shared by the HTTP handlers, which enqueue query and ingest jobs,
// and the worker pool, which drains it.
type Service struct {
	JobChannel        chan jobModel.Job
	RequestCount      int64
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
	MessageStore      jobModel.MessageStore
}

type ServiceConfig struct {
	JobChannel        chan jobModel.Job
	RequestCount      int64
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
	MessageStore      jobModel.MessageStore
}

func InitJobService(cfg ServiceConfig) *Service {
	if cfg.JobChannel == nil {
		cfg.JobChannel = make(chan jobModel.Job, config.BufferLimit)
	}
	if cfg.DispatcherChannel == nil {
		cfg.DispatcherChannel = make(chan bool, 1)
	}
	return &Service{
		JobChannel:        cfg.JobChannel,
		RequestCount:      cfg.RequestCount,
		DispatcherChannel: cfg.DispatcherChannel,
		JobStore:          cfg.JobStore,
		MessageStore:      cfg.MessageStore,
	}
}

// QueueDepth is the number of jobs waiting for a worker.
func (s *Service) QueueDepth() int {
	return len(s.JobChannel)
}
