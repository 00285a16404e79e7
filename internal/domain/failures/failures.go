// Package failures holds the error taxonomy shared by ingestion, indexing and querying.
package failures

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrExtraction         = errors.New("extraction failed")
	ErrIndexBuild         = errors.New("index build failed")
	ErrRetrieval          = errors.New("retrieval failed")
	ErrGeneration         = errors.New("generation failed")
	ErrEmbedding          = errors.New("embedding failed")
	ErrIndexNotReady      = errors.New("index not ready")
	ErrIndexBusy          = errors.New("index build already in progress")
	ErrProvenanceRecovery = errors.New("passage text not found on page")
	ErrHistoryUnavailable = errors.New("chat history unavailable")
)

// ValidationError rejects an input before any work is done on it.
type ValidationError struct {
	Path      string
	Extension string
	Reason    string
}

func (e *ValidationError) Error() string {
	if e.Extension != "" {
		return fmt.Sprintf("unsupported file extension %q for %s", e.Extension, e.Path)
	}
	if e.Path != "" {
		return fmt.Sprintf("invalid input %s: %s", e.Path, e.Reason)
	}
	return "invalid input: " + e.Reason
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ExtractionError is a per-document failure; the batch continues without the document.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Is(target error) bool { return target == ErrExtraction }
func (e *ExtractionError) Unwrap() error        { return e.Err }

type IndexBuildError struct {
	Reason string
	Err    error
}

func (e *IndexBuildError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("index build failed: %s: %v", e.Reason, e.Err)
	}
	return "index build failed: " + e.Reason
}

func (e *IndexBuildError) Is(target error) bool { return target == ErrIndexBuild }
func (e *IndexBuildError) Unwrap() error        { return e.Err }

type RetrievalFailure struct {
	Query string
	Err   error
}

func (e *RetrievalFailure) Error() string {
	return fmt.Sprintf("retrieval failed for %q: %v", e.Query, e.Err)
}

func (e *RetrievalFailure) Is(target error) bool { return target == ErrRetrieval }
func (e *RetrievalFailure) Unwrap() error        { return e.Err }

// GenerationFailure names the query step (reformulation or synthesis) whose model call failed.
type GenerationFailure struct {
	Step string
	Err  error
}

func (e *GenerationFailure) Error() string {
	return fmt.Sprintf("generation failed during %s: %v", e.Step, e.Err)
}

func (e *GenerationFailure) Is(target error) bool { return target == ErrGeneration }
func (e *GenerationFailure) Unwrap() error        { return e.Err }

// Code maps an error to the job error code reported to API clients.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "VALIDATION_FAILURE"
	case errors.Is(err, ErrIndexNotReady), errors.Is(err, ErrIndexBusy):
		return "INDEX_NOT_READY"
	case errors.Is(err, ErrIndexBuild):
		return "INDEX_BUILD_FAILURE"
	case errors.Is(err, ErrRetrieval):
		return "RETRIEVAL_FAILURE"
	case errors.Is(err, ErrGeneration):
		return "LLM_GENERATION_FAILURE"
	case errors.Is(err, ErrEmbedding):
		return "EMBEDDING_FAILURE"
	case errors.Is(err, ErrExtraction):
		return "EXTRACTION_FAILURE"
	case errors.Is(err, ErrHistoryUnavailable):
		return "HISTORY_UNAVAILABLE"
	default:
		return "INTERNAL_FAILURE"
	}
}

func HTTPStatus(err error) int {
	switch Code(err) {
	case "":
		return http.StatusOK
	case "VALIDATION_FAILURE":
		return http.StatusBadRequest
	case "INDEX_NOT_READY":
		return http.StatusConflict
	case "RETRIEVAL_FAILURE", "LLM_GENERATION_FAILURE", "EMBEDDING_FAILURE":
		return http.StatusBadGateway
	case "INDEX_BUILD_FAILURE", "EXTRACTION_FAILURE":
		return http.StatusUnprocessableEntity
	case "HISTORY_UNAVAILABLE":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the same request may succeed later without changes.
func Retryable(err error) bool {
	switch Code(err) {
	case "INDEX_NOT_READY", "RETRIEVAL_FAILURE", "LLM_GENERATION_FAILURE", "EMBEDDING_FAILURE", "HISTORY_UNAVAILABLE":
		return true
	}
	return false
}
