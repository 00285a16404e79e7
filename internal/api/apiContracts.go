package api

import (
	"time"

	"github.com/akolanti/DocQA/internal/domain/commonModels"
)

type JobExternalStatus string

const (
	JobStatusError JobExternalStatus = "Error"
)

type JobResponse struct {
	Id        string            `json:"id" example:"job_cz109"`
	ChatId    string            `json:"chat_id,omitempty" example:"chat_550"`
	Type      string            `json:"type,omitempty" example:"Query"`
	Result    Result            `json:"result"`
	Error     *JobOutgoingError `json:"error,omitempty"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time,omitempty"`
}

type JobOutgoingError struct {
	Code      int    `json:"code" example:"400"`
	ErrorCode string `json:"error_code,omitempty" example:"INDEX_NOT_READY"`
	Message   string `json:"message" example:"Job not found"`
	Retry     bool   `json:"can_retry" example:"false"`
}

type RAGResponse struct {
	Question     string                 `json:"question"`
	Reformulated string                 `json:"reformulated,omitempty"`
	Answer       string                 `json:"answer"`
	Sources      []commonModels.Passage `json:"sources"`
}

type IngestResponse struct {
	Passages        int      `json:"passages" example:"42"`
	Rejected        []string `json:"rejected,omitempty"`
	FailedDocuments int      `json:"failed_documents" example:"0"`
}

type Result struct {
	Status              string          `json:"status"`
	Step                string          `json:"step,omitempty"`
	RAGExternalResponse *RAGResponse    `json:"rag_response,omitempty"`
	IngestResponse      *IngestResponse `json:"ingest_response,omitempty"`
}

type InitJobResponse struct {
	Id        string `json:"id"`
	ChatId    string `json:"chat_id,omitempty"`
	StatusURL string `json:"status_url"`
}

type IndexResponse struct {
	State    string `json:"state" example:"READY"`
	Passages int    `json:"passages" example:"42"`
	Backend  string `json:"backend" example:"memory"`
}

type HistoryResponse struct {
	ChatId string              `json:"chat_id"`
	Turns  []commonModels.Turn `json:"turns"`
}

// requests---------------------

type ChatRequest struct {
	Message string `json:"message" validate:"required,max=4000"`
	ChatID  string `json:"chatID,omitempty" validate:"omitempty,uuid"`
}
