package handlers

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/akolanti/DocQA/internal/adapter"
	"github.com/akolanti/DocQA/internal/adapter/utils"
	"github.com/akolanti/DocQA/internal/api"
	"github.com/akolanti/DocQA/internal/config"
	"github.com/akolanti/DocQA/internal/domain/commonModels"
	"github.com/akolanti/DocQA/internal/domain/failures"
	"github.com/akolanti/DocQA/internal/domain/jobModel"
	"github.com/akolanti/DocQA/internal/rag/vectorDB"
)

// kept as a struct so job creation can move out of the handlers package
type newJobData struct {
	id               string
	chatId           string
	message          string
	isNewChat        bool
	traceId          string
	isDocumentIngest bool
	ingestFiles      []jobModel.IngestFile
	uploadDir        string
}

func GetHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// ChatHandler godoc
// @Summary      Ask a question about the indexed documents
// @Description  Accepts a message, queues a query job, and returns a job ID to track status. Omit chatID to start a new conversation.
// @Tags         Messaging
// @Accept       json
// @Produce      json
// @Param        request  body      api.ChatRequest      true  "Chat Message and optional Chat ID"
// @Success      202      {object}  api.InitJobResponse  "Job successfully created"
// @Failure      400      {object}  api.JobResponse      "Invalid request data or chat ID"
// @Failure      409      {object}  api.JobResponse      "No index is ready to answer queries"
// @Router       /chat [post]
func ChatHandler(w http.ResponseWriter, request *http.Request) {
	if !validateContext(request.Context()) {
		logRH.Warn("Invalid Context by request", "remote", request.RemoteAddr)
		return
	}

	var requestData api.ChatRequest
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			logRH.Error("Couldn't close the Chat handler reader", "err", err)
		}
	}(request.Body)

	if err := json.NewDecoder(request.Body).Decode(&requestData); err != nil {
		logRH.Warn("Bad Chat Request", "error", err)
		WriteErrorResponse(w, http.StatusBadRequest, "", "Bad Request")
		return
	}
	if err := validate.Struct(requestData); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, requestData.ChatID, validationMessage(err))
		return
	}
	if strings.TrimSpace(requestData.Message) == "" {
		WriteErrorResponse(w, http.StatusBadRequest, requestData.ChatID, "message is empty")
		return
	}
	if !ValidateChatId(request.Context(), requestData.ChatID) {
		WriteErrorResponse(w, http.StatusBadRequest, requestData.ChatID, "Unknown chat ID")
		return
	}
	if state, _ := GetIndexStatus(); state != vectorDB.StateReady {
		writeFailure(w, requestData.ChatID, &failures.RetrievalFailure{Query: requestData.Message, Err: failures.ErrIndexNotReady})
		return
	}

	processNewJobData(request, w, requestData)
}

// GetStatusHandler godoc
// @Summary      Get job status
// @Description  Retrieves the current status of a query or ingestion job using its ID.
// @Tags         Job Status
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Job ID "
// @Success      200  {object}  api.JobResponse   "Successful retrieval of job status"
// @Failure      404  {object}  api.JobResponse   "Job not found (returns Error object within JobResponse)"
// @Router       /status/{id} [get]
func GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	//use chi get the url id
	idString := utils.GetChiURLParam(r, "id")
	result, isFound := validateId(idString, traceIdOf(r.Context()))

	logRH.Debug("Get Status Request", "URL path", r.URL.Path)
	if !isFound {
		WriteErrorResponse(w, http.StatusNotFound, idString, "Job not found")
		return
	}

	writeJsonResponse(w, http.StatusOK, adapter.ToAPIResponse(result))
}

// GetIndexHandler godoc
// @Summary      Get index status
// @Description  Reports whether an index is ready and how many passages it holds.
// @Tags         Ingestion
// @Produce      json
// @Success      200  {object}  api.IndexResponse
// @Router       /index [get]
func GetIndexHandler(w http.ResponseWriter, r *http.Request) {
	state, size := GetIndexStatus()
	writeJsonResponse(w, http.StatusOK, api.IndexResponse{State: string(state), Passages: size, Backend: indexBackend})
}

// GetHistoryHandler godoc
// @Summary      Get chat history
// @Description  Returns the question and answer turns of a conversation, oldest first.
// @Tags         Messaging
// @Produce      json
// @Param        chatID  path      string  true  "Chat ID"
// @Success      200     {object}  api.HistoryResponse
// @Failure      404     {object}  api.JobResponse  "Chat not found"
// @Router       /chat/{chatID}/history [get]
func GetHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	chatId := utils.GetChiURLParam(r, "chatID")
	turns, found, err := GetChatHistory(r.Context(), chatId)
	switch {
	case err != nil:
		logRH.WithTrace(r.Context()).Error("Failed to read chat history", "chatId", chatId, "err", err)
		WriteErrorResponse(w, http.StatusInternalServerError, chatId, "Could not read history")
	case !found:
		WriteErrorResponse(w, http.StatusNotFound, chatId, "Chat not found")
	default:
		if turns == nil {
			turns = []commonModels.Turn{}
		}
		writeJsonResponse(w, http.StatusOK, api.HistoryResponse{ChatId: chatId, Turns: turns})
	}
}

// PostIngestHandler handles the uploading of PDF documents for ingestion.
// @Summary      Upload documents and rebuild the index
// @Description  Receives one or more files via multipart/form-data and queues an ingestion job that replaces the index. Files without a .pdf extension are reported as rejected.
// @Tags         Ingestion
// @Accept       multipart/form-data
// @Produce      json
// @Param        documents  formData  file    true  "PDF files to index (repeat the field for several files)"
// @Success      202  {object}  api.InitJobResponse "Accepted - returns job id"
// @Failure      400  {object}  api.JobResponse "Bad Request - Missing files or upload too large"
// @Failure      409  {object}  api.JobResponse "An index build is already running"
// @Failure      500  {object}  api.JobResponse "Internal Server Error - Storage or Write Error"
// @Router       /ingest [post]
func PostIngestHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid Context by request", "remote", r.RemoteAddr)
		return
	}
	if state, _ := GetIndexStatus(); state == vectorDB.StateBuilding {
		writeFailure(w, "", failures.ErrIndexBusy)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, config.MaxUploadSize)
	if err := r.ParseMultipartForm(config.MaxUploadSize); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "File too large or bad request")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["documents"]
	if len(headers) == 0 {
		WriteErrorResponse(w, http.StatusBadRequest, "", "at least one file is required in the documents field")
		return
	}

	jobId := utils.GetNewUUID()
	targetDir, err := getTargetDirectory(jobId)
	if err != nil {
		logRH.Error("Couldn't get target directory", "err", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "", "Storage Error")
		return
	}

	files, errMessage := saveUploads(targetDir, headers)
	if errMessage != "" {
		_ = os.RemoveAll(targetDir)
		WriteErrorResponse(w, http.StatusInternalServerError, jobId, errMessage)
		return
	}

	newJob := newJobData{
		id:               jobId,
		traceId:          traceIdOf(r.Context()),
		isDocumentIngest: true,
		ingestFiles:      files,
		uploadDir:        targetDir,
	}
	if err := CreateNewJob(newJob); err != nil {
		_ = os.RemoveAll(targetDir)
		WriteErrorResponse(w, http.StatusInternalServerError, jobId, "Could not queue ingestion")
		return
	}
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(jobId, ""))
}

// saveUploads stores every file under its own numbered directory so duplicate names survive.
func saveUploads(targetDir string, headers []*multipart.FileHeader) ([]jobModel.IngestFile, string) {
	files := make([]jobModel.IngestFile, 0, len(headers))
	for i, header := range headers {
		name, ok := uploadName(header.Filename)
		if !ok {
			return nil, "Invalid file name"
		}
		dir := filepath.Join(targetDir, strconv.Itoa(i))
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, "Storage error"
		}
		path := filepath.Join(dir, name)
		if err := copyUpload(header, path); err != nil {
			logRH.Error("Failed to store upload", "file", name, "err", err)
			return nil, "Write error"
		}
		files = append(files, jobModel.IngestFile{Name: name, Path: path})
	}
	return files, ""
}

func copyUpload(header *multipart.FileHeader, path string) error {
	fileReader, err := header.Open()
	if err != nil {
		return err
	}
	defer fileReader.Close()

	destinationFileWriter, err := os.Create(path)
	if err != nil {
		return err
	}
	defer destinationFileWriter.Close()

	_, err = io.Copy(destinationFileWriter, fileReader)
	return err
}
