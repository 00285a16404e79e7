package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akolanti/DocQA/internal/api"
	"github.com/akolanti/DocQA/internal/config"
	"github.com/akolanti/DocQA/internal/data/store"
	"github.com/akolanti/DocQA/internal/domain/commonModels"
	"github.com/akolanti/DocQA/internal/domain/jobModel"
	"github.com/akolanti/DocQA/internal/job"
	"github.com/akolanti/DocQA/internal/rag/vectorDB"
)

type fakeIndex struct {
	state vectorDB.IndexState
	size  int
}

func (f fakeIndex) IndexState() vectorDB.IndexState { return f.state }
func (f fakeIndex) IndexSize() int                  { return f.size }

func setup(t *testing.T, index fakeIndex) (*job.Service, http.Handler) {
	t.Helper()
	svc := job.InitJobService(job.ServiceConfig{
		JobStore:     store.InitInMemoryJobStore(),
		MessageStore: store.InitMessageStore(0),
	})
	handlerInstance = &JobHandler{service: svc, index: index}
	uploadRoot = t.TempDir()

	r := chi.NewRouter()
	r.Post("/chat", ChatHandler)
	r.Get("/chat/{chatID}/history", GetHistoryHandler)
	r.Get("/status/{id}", GetStatusHandler)
	r.Get("/index", GetIndexHandler)
	r.Post("/ingest", PostIngestHandler)
	return svc, r
}

func withTrace(req *http.Request) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), config.TRACE_ID_KEY, "handler-trace"))
}

func postChat(router http.Handler, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, withTrace(httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))))
	return rec
}

func TestChatHandler_QueuesQueryJob(t *testing.T) {
	svc, router := setup(t, fakeIndex{state: vectorDB.StateReady, size: 3})

	rec := postChat(router, `{"message":"  What is the capital of France?  "}`)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var res api.InitJobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.NotEmpty(t, res.ChatId)
	assert.Equal(t, "status/"+res.Id, res.StatusURL)

	queued := <-svc.JobChannel
	assert.Equal(t, jobModel.JobTypeQuery, queued.JobType)
	assert.Equal(t, "What is the capital of France?", queued.JobPayload.Question)
	assert.Equal(t, res.ChatId, queued.ChatId)
	assert.True(t, svc.MessageStore.ValidateChatId(context.Background(), res.ChatId), "new chat must exist before its job runs")

	saved, found := svc.JobStore.GetJob(context.Background(), res.Id)
	assert.True(t, found)
	assert.Equal(t, jobModel.JobStatusQueued, saved.Status)
}

func TestChatHandler_Rejections(t *testing.T) {
	tests := []struct {
		name      string
		index     fakeIndex
		body      string
		wantCode  int
		wantError string
	}{
		{"malformed json", fakeIndex{state: vectorDB.StateReady}, `{"message":`, http.StatusBadRequest, ""},
		{"empty message", fakeIndex{state: vectorDB.StateReady}, `{"message":""}`, http.StatusBadRequest, ""},
		{"chat id not a uuid", fakeIndex{state: vectorDB.StateReady}, `{"message":"hi","chatID":"abc"}`, http.StatusBadRequest, ""},
		{"unknown chat", fakeIndex{state: vectorDB.StateReady}, `{"message":"hi","chatID":"0b5c1a9e-2f1d-4c1b-9a55-1d7f3f0f6a11"}`, http.StatusBadRequest, ""},
		{"no index", fakeIndex{state: vectorDB.StateEmpty}, `{"message":"hi"}`, http.StatusConflict, "INDEX_NOT_READY"},
		{"index building", fakeIndex{state: vectorDB.StateBuilding}, `{"message":"hi"}`, http.StatusConflict, "INDEX_NOT_READY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, router := setup(t, tt.index)

			rec := postChat(router, tt.body)

			assert.Equal(t, tt.wantCode, rec.Code)
			var res api.JobResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
			require.NotNil(t, res.Error)
			assert.Equal(t, tt.wantError, res.Error.ErrorCode)
			assert.Zero(t, svc.QueueDepth())
		})
	}
}

func TestGetStatusHandler(t *testing.T) {
	svc, router := setup(t, fakeIndex{})
	done := jobModel.Job{
		Id:      "job-1",
		ChatId:  "chat-1",
		JobType: jobModel.JobTypeQuery,
		Status:  jobModel.JobStatusComplete,
		JobPayload: jobModel.JobPayload{
			Question: "q",
			Answer:   "a",
			Sources:  []commonModels.Passage{{ID: "doc_pdf-0", File: "doc.pdf", BBox: commonModels.BoundingBox{1, 2, 3, 4}}},
		},
	}
	require.NoError(t, svc.JobStore.SaveJob(context.Background(), done))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, withTrace(httptest.NewRequest(http.MethodGet, "/status/job-1", nil)))

	require.Equal(t, http.StatusOK, rec.Code)
	var res api.JobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.NotNil(t, res.Result.RAGExternalResponse)
	assert.Equal(t, "a", res.Result.RAGExternalResponse.Answer)
	assert.Equal(t, commonModels.BoundingBox{1, 2, 3, 4}, res.Result.RAGExternalResponse.Sources[0].BBox)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, withTrace(httptest.NewRequest(http.MethodGet, "/status/missing", nil)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetIndexHandler(t *testing.T) {
	_, router := setup(t, fakeIndex{state: vectorDB.StateReady, size: 12})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, withTrace(httptest.NewRequest(http.MethodGet, "/index", nil)))

	var res api.IndexResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, api.IndexResponse{State: "READY", Passages: 12, Backend: "memory"}, res)
}

func TestGetHistoryHandler(t *testing.T) {
	svc, router := setup(t, fakeIndex{})
	ctx := context.Background()
	require.NoError(t, svc.MessageStore.InitNewChat(ctx, "chat-9"))
	require.NoError(t, svc.MessageStore.AppendTurn(ctx, "chat-9", commonModels.Turn{Question: "q1", Answer: "a1"}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, withTrace(httptest.NewRequest(http.MethodGet, "/chat/chat-9/history", nil)))

	require.Equal(t, http.StatusOK, rec.Code)
	var res api.HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, []commonModels.Turn{{Question: "q1", Answer: "a1"}}, res.Turns)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, withTrace(httptest.NewRequest(http.MethodGet, "/chat/nope/history", nil)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for name, content := range files {
		part, err := mw.CreateFormFile("documents", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func TestPostIngestHandler_StoresFilesUnderOriginalNames(t *testing.T) {
	svc, router := setup(t, fakeIndex{state: vectorDB.StateEmpty})
	body, contentType := multipartBody(t, map[string]string{
		"report.pdf":       "%PDF-1.4 report",
		"../../notes.docx": "docx",
	})

	req := withTrace(httptest.NewRequest(http.MethodPost, "/ingest", body))
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	queued := <-svc.JobChannel
	assert.Equal(t, jobModel.JobTypeIngest, queued.JobType)
	require.Len(t, queued.JobPayload.IngestFiles, 2)

	names := map[string]bool{}
	for _, f := range queued.JobPayload.IngestFiles {
		names[f.Name] = true
		assert.Equal(t, f.Name, filepath.Base(f.Path))
		assert.True(t, strings.HasPrefix(f.Path, queued.JobPayload.UploadDir))
		_, err := os.Stat(f.Path)
		assert.NoError(t, err)
	}
	assert.True(t, names["report.pdf"])
	assert.True(t, names["notes.docx"])
}

func TestPostIngestHandler_Rejections(t *testing.T) {
	t.Run("no files", func(t *testing.T) {
		_, router := setup(t, fakeIndex{})
		body, contentType := multipartBody(t, nil)
		req := withTrace(httptest.NewRequest(http.MethodPost, "/ingest", body))
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("build in progress", func(t *testing.T) {
		_, router := setup(t, fakeIndex{state: vectorDB.StateBuilding})
		body, contentType := multipartBody(t, map[string]string{"a.pdf": "x"})
		req := withTrace(httptest.NewRequest(http.MethodPost, "/ingest", body))
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestUploadName(t *testing.T) {
	tests := map[string]string{
		"report.pdf":         "report.pdf",
		"../../etc/passwd":   "passwd",
		`C:\docs\scan.pdf`:   "scan.pdf",
		"nested/dir/a b.pdf": "a b.pdf",
	}
	for in, want := range tests {
		got, ok := uploadName(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "/", ".."} {
		_, ok := uploadName(bad)
		assert.False(t, ok, bad)
	}
}
