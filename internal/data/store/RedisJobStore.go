package store

import (
	"context"
	"encoding/json"

	"github.com/akolanti/DocQA/internal/config"
	"github.com/akolanti/DocQA/internal/data/redisStore"
	"github.com/akolanti/DocQA/internal/domain/jobModel"
	"github.com/akolanti/DocQA/pkg/logger_i"
)

type RedisJobStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

func GetRedisJobStore(ctx context.Context, cfg config.RedisConfig) (*RedisJobStore, error) {
	s, err := redisStore.GetRedisStore(ctx, cfg, config.RedisJobStore)
	if err != nil {
		return nil, err
	}
	return NewRedisJobStore(s), nil
}

func NewRedisJobStore(store *redisStore.Store) *RedisJobStore {
	return &RedisJobStore{
		store:  store,
		logger: logger_i.NewLogger("JobStore"),
	}
}

func (s *RedisJobStore) SaveJob(ctx context.Context, job jobModel.Job) error {
	log := s.logger.WithTrace(ctx).With("job Id", job.Id)
	log.Debug("saving job")
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}

	err = s.store.Set(ctx, job.Id, data, config.RedisJobStoreTTL)
	if err == nil {
		log.Debug("Saved job to Redis", "status", job.Status, "step", job.CurrentStep)
	}
	return err
}

func (s *RedisJobStore) GetJob(ctx context.Context, jobId string) (jobModel.Job, bool) {
	var job jobModel.Job
	log := s.logger.WithTrace(ctx).With("job Id", jobId)
	log.Debug("getting job")
	val, err := s.store.Get(ctx, jobId)
	if s.store.IsNil(err) {
		return job, false
	} else if err != nil {
		log.Error("Failed to read job", "err", err)
		return job, false
	}

	if err = json.Unmarshal([]byte(val), &job); err != nil {
		log.Error("Failed to unmarshal job", "err", err)
		return job, false
	}
	return job, true
}

func (s *RedisJobStore) DeleteJob(ctx context.Context, jobID string) {
	if err := s.store.Del(ctx, jobID); err != nil {
		s.logger.Error("Error deleting job from Redis", "jobId", jobID, "err", err)
		return
	}
	s.logger.Debug("Job deleted from Redis", "jobId", jobID)
}
