package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/akolanti/DocQA/internal/domain/commonModels"
	"github.com/akolanti/DocQA/internal/domain/jobModel"
	"github.com/akolanti/DocQA/internal/job"
	"github.com/akolanti/DocQA/internal/rag"
	"github.com/akolanti/DocQA/internal/rag/vectorDB"
	"github.com/akolanti/DocQA/pkg/logger_i"
)

// MockRagService to track if jobs are executed
type MockRagService struct {
	ProcessedCount int32
	IngestedCount  int32
	OnProcess      func(ctx context.Context, j jobModel.Job, hist []commonModels.Turn) jobModel.Job
}

func (m *MockRagService) ProcessRequest(ctx context.Context, j jobModel.Job, hist []commonModels.Turn) jobModel.Job {
	atomic.AddInt32(&m.ProcessedCount, 1)
	if m.OnProcess != nil {
		return m.OnProcess(ctx, j, hist)
	}
	j.JobPayload.Answer = "answer to " + j.JobPayload.Question
	j.CurrentStep = jobModel.Complete
	return j
}

func (m *MockRagService) IngestDocuments(ctx context.Context, j jobModel.Job) jobModel.Job {
	atomic.AddInt32(&m.IngestedCount, 1)
	j.CurrentStep = jobModel.Complete
	return j
}

func (m *MockRagService) Query(ctx context.Context, question string, history []commonModels.Turn) (rag.QueryResult, error) {
	return rag.QueryResult{}, nil
}

func (m *MockRagService) Search(ctx context.Context, query string, k int) ([]commonModels.ScoredPassage, error) {
	return nil, nil
}

func (m *MockRagService) IndexState() vectorDB.IndexState { return vectorDB.StateReady }
func (m *MockRagService) IndexSize() int                  { return 0 }

type MockJobStore struct {
	mu        sync.Mutex
	saved     []jobModel.Job
	OnSaveJob func(ctx context.Context, job jobModel.Job) error
}

func (m *MockJobStore) GetJob(ctx context.Context, jobId string) (jobModel.Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.saved) - 1; i >= 0; i-- {
		if m.saved[i].Id == jobId {
			return m.saved[i], true
		}
	}
	return jobModel.Job{}, false
}

func (m *MockJobStore) DeleteJob(ctx context.Context, jobID string) {}

func (m *MockJobStore) SaveJob(ctx context.Context, j jobModel.Job) error {
	m.mu.Lock()
	m.saved = append(m.saved, j)
	m.mu.Unlock()
	if m.OnSaveJob != nil {
		return m.OnSaveJob(ctx, j)
	}
	return nil
}

// MockMessageStore handles chat history
type MockMessageStore struct {
	mu           sync.Mutex
	turns        map[string][]commonModels.Turn
	OnGetHistory func(ctx context.Context, chatId string) ([]commonModels.Turn, error)
}

func (m *MockMessageStore) ValidateChatId(ctx context.Context, id string) bool {
	return true
}

func (m *MockMessageStore) InitNewChat(ctx context.Context, id string) error {
	return nil
}

func (m *MockMessageStore) AppendTurn(ctx context.Context, id string, turn commonModels.Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.turns == nil {
		m.turns = map[string][]commonModels.Turn{}
	}
	m.turns[id] = append(m.turns[id], turn)
	return nil
}

func (m *MockMessageStore) GetHistory(ctx context.Context, id string) ([]commonModels.Turn, error) {
	if m.OnGetHistory != nil {
		return m.OnGetHistory(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]commonModels.Turn(nil), m.turns[id]...), nil
}

func TestWorkerPool_Flow(t *testing.T) {
	// 1. Setup
	jobSvc := &job.Service{
		JobChannel:        make(chan jobModel.Job, 10),
		DispatcherChannel: make(chan bool, 10),
		JobStore:          &MockJobStore{},
		MessageStore:      &MockMessageStore{},
	}
	mockRag := &MockRagService{}
	stopChan := make(chan bool)
	wg := &sync.WaitGroup{}

	// Reset global state for test
	atomic.StoreInt64(&currentWorkerCount, 0)

	InitServices(jobSvc, mockRag)
	InitWorkerPool(stopChan, wg)

	t.Run("Dispatcher creates worker on signal", func(t *testing.T) {
		// Signal dispatcher to create a worker
		jobSvc.DispatcherChannel <- true

		// Give it a moment to spawn
		time.Sleep(50 * time.Millisecond)

		count := atomic.LoadInt64(&currentWorkerCount)
		if count < 1 {
			t.Errorf("Expected at least 1 worker, got %d", count)
		}
	})

	t.Run("Worker processes a job", func(t *testing.T) {
		testJob := jobModel.Job{Id: "test-1", JobType: jobModel.JobTypeQuery, ChatId: "chat-1"}
		jobSvc.JobChannel <- testJob

		// Wait for worker to pick up and process
		time.Sleep(50 * time.Millisecond)

		processed := atomic.LoadInt32(&mockRag.ProcessedCount)
		if processed != 1 {
			t.Errorf("Expected 1 job processed, got %d", processed)
		}
	})

	t.Run("Worker routes ingest jobs", func(t *testing.T) {
		jobSvc.JobChannel <- jobModel.Job{Id: "ingest-1", JobType: jobModel.JobTypeIngest}

		time.Sleep(50 * time.Millisecond)

		if ingested := atomic.LoadInt32(&mockRag.IngestedCount); ingested != 1 {
			t.Errorf("Expected 1 ingest job, got %d", ingested)
		}
	})

	t.Run("Stop signal retires workers", func(t *testing.T) {
		// Send stop signal
		close(stopChan)

		// Wait for workers to exit
		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			// Success
		case <-time.After(2 * time.Second):
			t.Error("Workers did not stop within timeout")
		}
	})
}

func TestExecuteJob_StoresTurnOnlyOnSuccess(t *testing.T) {
	logger = logger_i.NewDiscardLogger()
	jobStore := &MockJobStore{}
	messages := &MockMessageStore{}
	mockRag := &MockRagService{}
	InitServices(&job.Service{JobStore: jobStore, MessageStore: messages}, mockRag)

	executeJob(jobModel.Job{Id: "ok", ChatId: "chat-a", JobType: jobModel.JobTypeQuery,
		JobPayload: jobModel.JobPayload{Question: "What is Go? "}})

	mockRag.OnProcess = func(ctx context.Context, j jobModel.Job, hist []commonModels.Turn) jobModel.Job {
		if len(hist) != 1 {
			t.Errorf("second turn saw %d history turns, want 1", len(hist))
		}
		j.Status = jobModel.JobStatusError
		j.Error = jobModel.JobError{Code: 502, ErrorCode: "LLM_GENERATION_FAILURE", Retry: true}
		return j
	}
	executeJob(jobModel.Job{Id: "fail", ChatId: "chat-a", JobType: jobModel.JobTypeQuery,
		JobPayload: jobModel.JobPayload{Question: "Who made it?"}})

	history, _ := messages.GetHistory(context.Background(), "chat-a")
	if len(history) != 1 || history[0].Question != "What is Go?" || history[0].Answer != "answer to What is Go? " {
		t.Errorf("history got %+v", history)
	}

	ok, _ := jobStore.GetJob(context.Background(), "ok")
	if ok.Status != jobModel.JobStatusComplete || ok.EndTime.IsZero() {
		t.Errorf("ok job got status %v end %v", ok.Status, ok.EndTime)
	}
	failed, _ := jobStore.GetJob(context.Background(), "fail")
	if failed.Status != jobModel.JobStatusError || failed.Error.ErrorCode != "LLM_GENERATION_FAILURE" {
		t.Errorf("failed job got status %v error %+v", failed.Status, failed.Error)
	}
}

func TestExecuteJob_HistoryErrorFailsJob(t *testing.T) {
	logger = logger_i.NewDiscardLogger()
	jobStore := &MockJobStore{}
	messages := &MockMessageStore{OnGetHistory: func(ctx context.Context, chatId string) ([]commonModels.Turn, error) {
		return nil, errors.New("redis offline")
	}}
	mockRag := &MockRagService{}
	InitServices(&job.Service{JobStore: jobStore, MessageStore: messages}, mockRag)

	executeJob(jobModel.Job{Id: "j", ChatId: "chat-b", JobType: jobModel.JobTypeQuery,
		JobPayload: jobModel.JobPayload{Question: "What is its population?"}})

	if atomic.LoadInt32(&mockRag.ProcessedCount) != 0 {
		t.Error("query answered without its chat history")
	}
	got, _ := jobStore.GetJob(context.Background(), "j")
	if got.Status != jobModel.JobStatusError || got.Error.ErrorCode != "HISTORY_UNAVAILABLE" || !got.Error.Retry {
		t.Errorf("job got status %v error %+v", got.Status, got.Error)
	}
	messages.OnGetHistory = nil
	if history, _ := messages.GetHistory(context.Background(), "chat-b"); len(history) != 0 {
		t.Errorf("turn stored for failed job: %+v", history)
	}
}

func TestProcessQuery_SerializesTurnsOfOneChat(t *testing.T) {
	logger = logger_i.NewDiscardLogger()
	var active, maxActive int32
	mockRag := &MockRagService{OnProcess: func(ctx context.Context, j jobModel.Job, hist []commonModels.Turn) jobModel.Job {
		n := atomic.AddInt32(&active, 1)
		for {
			m := atomic.LoadInt32(&maxActive)
			if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		j.JobPayload.Answer = "a"
		return j
	}}
	messages := &MockMessageStore{}
	InitServices(&job.Service{JobStore: &MockJobStore{}, MessageStore: messages}, mockRag)

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			processQuery(context.Background(), jobModel.Job{ChatId: "chat-c", JobPayload: jobModel.JobPayload{Question: "q"}}, logger)
		}()
	}
	wg.Wait()

	if maxActive != 1 {
		t.Errorf("turns of one chat overlapped: %d at once", maxActive)
	}
	history, _ := messages.GetHistory(context.Background(), "chat-c")
	if len(history) != 5 {
		t.Errorf("history got %d turns, want 5", len(history))
	}
}

func TestWorker_IdleTimeout(t *testing.T) {
	// Temporarily override config/globals for test
	atomic.StoreInt64(&currentWorkerCount, 0)
	atomic.StoreInt64(&minWorkerCount, 0)
	idleWorkerTimeout = 50 * time.Millisecond
	logger = logger_i.NewLogger("TestWorkerPool")
	jobSvc := &job.Service{
		JobChannel: make(chan jobModel.Job),
	}
	InitServices(jobSvc, &MockRagService{})

	wg := &sync.WaitGroup{}
	stopChan := make(chan bool)
	workerWaitGroup = wg
	stopWorkerChannel = stopChan

	// Spawn 1 worker manually
	createWorker()
	time.Sleep(idleWorkerTimeout + 100*time.Millisecond)

	count := atomic.LoadInt64(&currentWorkerCount)
	if count != 0 {
		t.Errorf("Assertion Failed: Worker should have timed out and retired, but count is %d", count)
	}
}

func TestRunJob_RecoversPanic(t *testing.T) {
	logger = logger_i.NewDiscardLogger()
	jobStore := &MockJobStore{}
	mockRag := &MockRagService{OnProcess: func(ctx context.Context, j jobModel.Job, hist []commonModels.Turn) jobModel.Job {
		panic("malformed xref table")
	}}
	InitServices(&job.Service{JobStore: jobStore, MessageStore: &MockMessageStore{}}, mockRag)

	runJob(jobModel.Job{Id: "boom", ChatId: "chat-p", JobType: jobModel.JobTypeQuery})

	got, found := jobStore.GetJob(context.Background(), "boom")
	if !found || got.Status != jobModel.JobStatusError || got.Error.ErrorCode != "INTERNAL_ERROR" {
		t.Fatalf("job got %+v", got)
	}

	// the chat lock must have been released by the deferred unlock
	done := make(chan struct{})
	go func() {
		unlock := lockChat("chat-p")
		unlock()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("chat lock still held after panic")
	}
}

func TestLockChat_DropsUnusedEntries(t *testing.T) {
	unlock := lockChat("chat-x")
	chatLocksMu.Lock()
	_, held := chatLocks["chat-x"]
	chatLocksMu.Unlock()
	if !held {
		t.Fatal("lock entry missing while held")
	}

	unlock()

	chatLocksMu.Lock()
	defer chatLocksMu.Unlock()
	if _, ok := chatLocks["chat-x"]; ok {
		t.Error("lock entry kept after release")
	}
}
