package adapter

import (
	"fmt"

	"github.com/akolanti/DocQA/internal/api"
	"github.com/akolanti/DocQA/internal/domain/failures"
	"github.com/akolanti/DocQA/internal/domain/jobModel"
)

func ToInitJobResponse(id string, chatId string) api.InitJobResponse {
	return api.InitJobResponse{
		Id:        id,
		ChatId:    chatId,
		StatusURL: fmt.Sprintf("status/%s", id), //pass "status/job.Id"
	}
}

func ToAPIResponse(job jobModel.Job) api.JobResponse {

	var errorPtr *api.JobOutgoingError
	if job.Error.Message != "" || job.Error.Code != 0 {
		errorPtr = &api.JobOutgoingError{
			Code:      job.Error.Code,
			ErrorCode: job.Error.ErrorCode,
			Message:   job.Error.Message,
			Retry:     job.Error.Retry,
		}
	}

	result := api.Result{
		Status: string(job.Status),
		Step:   string(job.CurrentStep),
	}
	if job.JobType == jobModel.JobTypeIngest {
		result.IngestResponse = ToIngestResponse(job)
	} else {
		result.RAGExternalResponse = ToRAGExternalStatus(job.JobPayload)
	}

	return api.JobResponse{
		Id:        job.Id,
		ChatId:    job.ChatId,
		Type:      string(job.JobType),
		StartTime: job.CreatedTime,
		EndTime:   job.EndTime,
		Error:     errorPtr,
		Result:    result,
	}
}

func ToRAGExternalStatus(ragData jobModel.JobPayload) *api.RAGResponse {
	if ragData.Answer == "" && len(ragData.Sources) == 0 {
		return nil
	}

	return &api.RAGResponse{
		Question:     ragData.Question,
		Reformulated: ragData.Reformulated,
		Answer:       ragData.Answer,
		Sources:      ragData.Sources,
	}
}

func ToIngestResponse(job jobModel.Job) *api.IngestResponse {
	if job.Status != jobModel.JobStatusComplete && job.Status != jobModel.JobStatusError {
		return nil
	}
	return &api.IngestResponse{
		Passages:        job.JobPayload.PassageCount,
		Rejected:        job.JobPayload.Rejected,
		FailedDocuments: job.JobPayload.FailedDocument,
	}
}

func BadRequest(id string, error string, code int) api.JobResponse {
	return api.JobResponse{
		Id: id,
		Result: api.Result{
			Status: string(api.JobStatusError),
		},
		Error: &api.JobOutgoingError{
			Code:    code,
			Message: error,
			Retry:   false,
		},
	}
}

// FailureResponse reports a typed failure with its error code and retry hint.
func FailureResponse(id string, err error) api.JobResponse {
	res := BadRequest(id, err.Error(), failures.HTTPStatus(err))
	res.Error.ErrorCode = failures.Code(err)
	res.Error.Retry = failures.Retryable(err)
	return res
}
