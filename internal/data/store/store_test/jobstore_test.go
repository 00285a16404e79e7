package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/akolanti/DocQA/internal/config"
	"github.com/akolanti/DocQA/internal/data/redisStore"
	"github.com/akolanti/DocQA/internal/data/store"
	"github.com/akolanti/DocQA/internal/domain/commonModels"
	"github.com/akolanti/DocQA/internal/domain/jobModel"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisJobStore_Lifecycle(t *testing.T) {
	mr := miniredis.RunT(t)
	jobStore := newRedisJobStore(mr)

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")
	jobID := "job_abc_123"

	testJob := jobModel.Job{
		Id:     jobID,
		Status: jobModel.JobStatusRunning,
		JobPayload: jobModel.JobPayload{
			Question: "How do I mock Redis?",
			Sources: []commonModels.Passage{{
				ID:   "guide_pdf-3",
				Text: "Use miniredis.",
				Page: 2,
				BBox: commonModels.BoundingBox{72, 100, 300, 112},
				File: "guide.pdf",
			}},
		},
	}

	t.Run("Save and Get Roundtrip", func(t *testing.T) {
		// Test Save
		err := jobStore.SaveJob(ctx, testJob)
		if err != nil {
			t.Fatalf("SaveJob failed: %v", err)
		}

		// Test Get
		retrievedJob, found := jobStore.GetJob(ctx, jobID)
		if !found {
			t.Fatal("Job was saved but not found in Redis")
		}

		if retrievedJob.JobPayload.Question != testJob.JobPayload.Question {
			t.Errorf("Data mismatch! Got %s, want %s",
				retrievedJob.JobPayload.Question, testJob.JobPayload.Question)
		}
		if len(retrievedJob.JobPayload.Sources) != 1 || retrievedJob.JobPayload.Sources[0].BBox != testJob.JobPayload.Sources[0].BBox {
			t.Errorf("Sources mismatch! Got %+v", retrievedJob.JobPayload.Sources)
		}
		if ttl := mr.TTL(jobID); ttl != config.RedisJobStoreTTL {
			t.Errorf("TTL got %v, want %v", ttl, config.RedisJobStoreTTL)
		}
	})

	t.Run("Get Non-Existent Job", func(t *testing.T) {
		_, found := jobStore.GetJob(ctx, "ghost-id")
		if found {
			t.Error("Expected found=false for non-existent key")
		}
	})

	t.Run("Delete Job", func(t *testing.T) {
		jobStore.DeleteJob(ctx, jobID)

		// Verify it's gone from miniredis
		if mr.Exists(jobID) {
			t.Error("Job still exists in Redis after DeleteJob call")
		}
	})
}

func TestRedisJobStore_Race(t *testing.T) {
	mr := miniredis.RunT(t)
	jobStore := newRedisJobStore(mr)

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "race-trace")
	job := jobModel.Job{Id: "race-job"}

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = jobStore.SaveJob(ctx, job)
			_, _ = jobStore.GetJob(ctx, "race-job")
		}()
	}
	wg.Wait()

	if _, found := jobStore.GetJob(ctx, "race-job"); !found {
		t.Error("race-job missing after concurrent saves")
	}
}

func TestInMemoryJobStore_Lifecycle(t *testing.T) {
	jobStore := store.InitInMemoryJobStore()
	ctx := context.Background()

	if err := jobStore.SaveJob(ctx, jobModel.Job{Id: "j1", Status: jobModel.JobStatusQueued}); err != nil {
		t.Fatal(err)
	}
	got, found := jobStore.GetJob(ctx, "j1")
	if !found || got.Status != jobModel.JobStatusQueued {
		t.Errorf("GetJob got %+v, %v", got, found)
	}
	jobStore.DeleteJob(ctx, "j1")
	if _, found := jobStore.GetJob(ctx, "j1"); found {
		t.Error("job still present after DeleteJob")
	}
}

func TestInMemoryJobStore_Expiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	jobStore := store.NewInMemoryJobStore(time.Hour, func() time.Time { return now })
	ctx := context.Background()

	_ = jobStore.SaveJob(ctx, jobModel.Job{Id: "old"})
	now = now.Add(30 * time.Minute)
	_ = jobStore.SaveJob(ctx, jobModel.Job{Id: "new"})

	now = now.Add(45 * time.Minute)
	if _, found := jobStore.GetJob(ctx, "old"); found {
		t.Error("old job outlived its ttl")
	}
	if _, found := jobStore.GetJob(ctx, "new"); !found {
		t.Error("new job expired early")
	}
}

func newRedisJobStore(mr *miniredis.Miniredis) *store.RedisJobStore {
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return store.NewRedisJobStore(redisStore.NewTestStore(client))
}
