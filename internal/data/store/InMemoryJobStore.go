package store

import (
	"context"
	"sync"
	"time"

	"github.com/akolanti/DocQA/internal/config"
	"github.com/akolanti/DocQA/internal/domain/jobModel"
	"github.com/akolanti/DocQA/pkg/logger_i"
)

type storedJob struct {
	job       jobModel.Job
	expiresAt time.Time
}

// InMemoryJobStore is the fallback when Redis is offline. Jobs expire after the same TTL
// the Redis store applies; expired entries are dropped on lookup and on every save.
type InMemoryJobStore struct {
	mu     sync.RWMutex
	jobs   map[string]storedJob
	ttl    time.Duration
	now    func() time.Time
	logger *logger_i.Logger
}

func InitInMemoryJobStore() *InMemoryJobStore {
	return NewInMemoryJobStore(config.RedisJobStoreTTL, time.Now)
}

func NewInMemoryJobStore(ttl time.Duration, now func() time.Time) *InMemoryJobStore {
	return &InMemoryJobStore{
		jobs:   make(map[string]storedJob),
		ttl:    ttl,
		now:    now,
		logger: logger_i.NewLogger("InMem JobStore"),
	}
}

func (s *InMemoryJobStore) SaveJob(ctx context.Context, job jobModel.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.dropExpired(now)
	s.jobs[job.Id] = storedJob{job: job, expiresAt: now.Add(s.ttl)}
	s.logger.WithTrace(ctx).Debug("Saved job", "jobId", job.Id, "status", job.Status, "step", job.CurrentStep)
	return nil
}

func (s *InMemoryJobStore) GetJob(ctx context.Context, jobId string) (jobModel.Job, bool) {
	s.mu.RLock()
	entry, found := s.jobs[jobId]
	s.mu.RUnlock()

	if found && !s.now().Before(entry.expiresAt) {
		s.DeleteJob(ctx, jobId)
		found = false
	}
	s.logger.WithTrace(ctx).Debug("Job lookup", "jobId", jobId, "found", found)
	if !found {
		return jobModel.Job{}, false
	}
	return entry.job, true
}

func (s *InMemoryJobStore) DeleteJob(ctx context.Context, jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, jobID)
}

func (s *InMemoryJobStore) dropExpired(now time.Time) {
	for id, entry := range s.jobs {
		if !now.Before(entry.expiresAt) {
			delete(s.jobs, id)
		}
	}
}
