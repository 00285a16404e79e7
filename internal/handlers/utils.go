package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/akolanti/DocQA/internal/adapter"
	"github.com/akolanti/DocQA/internal/adapter/utils"
	"github.com/akolanti/DocQA/internal/api"
	"github.com/akolanti/DocQA/internal/config"
	"github.com/akolanti/DocQA/internal/domain/jobModel"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but can't send a clean status code now
		logRH.Error("Error encoding response", "err", err)
	}
}

func validateId(id string, traceId string) (result jobModel.Job, isFound bool) {
	if id == "" {
		logRH.Warn("Empty Job ID")
		return jobModel.Job{}, false
	}
	return GetJobStatus(id, traceId)
}

func validateContext(ctx context.Context) bool {
	if ctx.Err() != nil {
		logRH.WithTrace(ctx).Warn("context error", "err", ctx.Err())
		return false
	}
	return true
}

func traceIdOf(ctx context.Context) string {
	trace, _ := ctx.Value(config.TRACE_ID_KEY).(string)
	return trace
}

// validationMessage lists the failing fields of a request body.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, len(verrs))
	for i, fe := range verrs {
		parts[i] = fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag())
	}
	return strings.Join(parts, "; ")
}

func WriteErrorResponse(w http.ResponseWriter, httpCode int, id string, error string) {
	writeJsonResponse(w, httpCode, adapter.BadRequest(id, error, httpCode))
}

// WriteRejection reports a request refused before it reached a handler.
func WriteRejection(w http.ResponseWriter, httpCode int, errorCode, message string, retry bool) {
	res := adapter.BadRequest("", message, httpCode)
	res.Error.ErrorCode = errorCode
	res.Error.Retry = retry
	writeJsonResponse(w, httpCode, res)
}

func writeFailure(w http.ResponseWriter, id string, err error) {
	res := adapter.FailureResponse(id, err)
	writeJsonResponse(w, res.Error.Code, res)
}

var uploadRoot = config.UploadDirectory

// getTargetDirectory creates a fresh directory for one upload so stored files keep their names.
func getTargetDirectory(jobId string) (string, error) {
	root, err := filepath.Abs(uploadRoot)
	if err != nil {
		return "", err
	}
	targetDir := filepath.Join(root, jobId)
	if err := os.MkdirAll(targetDir, 0750); err != nil {
		return "", err
	}
	return targetDir, nil
}

// uploadName strips any directory part a client put in the file name.
func uploadName(name string) (string, bool) {
	base := filepath.Base(filepath.Clean("/" + strings.ReplaceAll(name, "\\", "/")))
	if base == "/" || base == "." || base == "" {
		return "", false
	}
	return base, true
}

func processNewJobData(request *http.Request, w http.ResponseWriter, requestData api.ChatRequest) {
	chatID := requestData.ChatID
	isNewChat := false
	if chatID == "" {
		chatID = utils.GetNewUUID()
		logRH.Debug("New Chat request", "chatID", chatID)
		isNewChat = true
	}

	newJob := newJobData{
		id:        utils.GetNewUUID(),
		chatId:    chatID,
		message:   strings.TrimSpace(requestData.Message),
		isNewChat: isNewChat,
		traceId:   traceIdOf(request.Context()),
	}
	if err := CreateNewJob(newJob); err != nil {
		WriteErrorResponse(w, http.StatusInternalServerError, chatID, "Could not start chat")
		return
	}
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(newJob.id, chatID))
}
