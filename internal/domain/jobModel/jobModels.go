package jobModel

import (
	"context"
	"time"

	"github.com/akolanti/DocQA/internal/domain/commonModels"
)

type JobStatus string
type InternalStatus string

type JobType string

const (
	JobStatusQueued   JobStatus = "QUEUED"
	JobStatusRunning  JobStatus = "RUNNING"
	JobStatusComplete JobStatus = "COMPLETE"
	JobStatusError    JobStatus = "Error"

	UserQueryInit InternalStatus = "Init"
	RAGCall       InternalStatus = "RAG"
	Reformulating InternalStatus = "Reformulating"
	Retrieving    InternalStatus = "Retrieving"
	Synthesizing  InternalStatus = "Synthesizing"
	RedisCall     InternalStatus = "Redis"

	IngestInit       InternalStatus = "IngestInit"
	IngestProcessing InternalStatus = "IngestProcessing"
	IndexBuilding    InternalStatus = "IndexBuilding"
	Error            InternalStatus = "Error"

	Complete InternalStatus = "Complete"

	JobTypeQuery  JobType = "Query"
	JobTypeIngest JobType = "Ingest"
)

type Job struct {
	Id          string         `json:"id"`
	ChatId      string         `json:"chat_id"`
	TraceId     string         `json:"trace_id"`
	JobType     JobType        `json:"job_type"`
	JobPayload  JobPayload     `json:"job_payload"`
	Error       JobError       `json:"error,omitempty"`
	CreatedTime time.Time      `json:"created_time"`
	EndTime     time.Time      `json:"end_time,omitempty"`
	Status      JobStatus      `json:"status"`
	CurrentStep InternalStatus `json:"current_step"`
}

type JobError struct {
	Code      int    `json:"code"`
	ErrorCode string `json:"error_code,omitempty"`
	Message   string `json:"message"`
	Retry     bool   `json:"retry"`
}

type JobPayload struct {
	Question     string                 `json:"question,omitempty"`
	Reformulated string                 `json:"reformulated,omitempty"`
	Answer       string                 `json:"answer,omitempty"`
	Sources      []commonModels.Passage `json:"sources,omitempty"`

	IngestFiles    []IngestFile `json:"ingest_files,omitempty"`
	UploadDir      string       `json:"upload_dir,omitempty"`
	Rejected       []string     `json:"rejected,omitempty"`
	PassageCount   int          `json:"passage_count,omitempty"`
	FailedDocument int          `json:"failed_documents,omitempty"`
}

// IngestFile is an uploaded document: its display name and where it was stored.
type IngestFile struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

type JobStore interface {
	GetJob(ctx context.Context, jobId string) (Job, bool)
	SaveJob(ctx context.Context, job Job) error
	DeleteJob(ctx context.Context, jobID string)
}

// MessageStore keeps the conversation history of every chat.
type MessageStore interface {
	ValidateChatId(ctx context.Context, id string) bool
	InitNewChat(ctx context.Context, id string) error
	AppendTurn(ctx context.Context, id string, turn commonModels.Turn) error
	GetHistory(ctx context.Context, chatId string) ([]commonModels.Turn, error)
}
