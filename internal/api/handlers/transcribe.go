package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/longscribe/backend/internal/chunk"
	"github.com/longscribe/backend/internal/db"
	"github.com/longscribe/backend/internal/job"
)

// maxUploadBytes caps multipart audio uploads (4 GiB covers multi-hour WAV).
const maxUploadBytes = 4 << 30

type TranscribeHandler struct {
	queue      *job.JobQueue
	database   *db.Database
	uploadPath string
}

func NewTranscribeHandler(queue *job.JobQueue, database *db.Database, uploadPath string) *TranscribeHandler {
	return &TranscribeHandler{queue: queue, database: database, uploadPath: uploadPath}
}

type transcribeRequest struct {
	FilePath string `json:"file_path"`
	job.TranscribeParams
}

// Submit accepts a transcription job. The body is either JSON naming a
// server-local file or a multipart upload with the media under "file" and
// the parameters under "params".
func (h *TranscribeHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req transcribeRequest
	var err error

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		req, err = h.receiveUpload(r)
	} else {
		err = json.NewDecoder(r.Body).Decode(&req)
	}
	if err != nil {
		jsonError(w, "invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.FilePath == "" {
		jsonError(w, "file_path is required", http.StatusBadRequest)
		return
	}

	// Admin-configured defaults fill in whatever the submitter left empty,
	// then go through the same validation.
	if req.Language == "" {
		req.Language = h.database.GetSetting("default_language", "")
	}
	if req.Strategy == "" {
		req.Strategy = h.database.GetSetting("default_strategy", "")
	}
	if req.Dialect == "" {
		req.Dialect = h.database.GetSetting("default_dialect", "")
	}

	if _, err := os.Stat(req.FilePath); err != nil {
		jsonError(w, "source file not accessible: "+err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := chunk.ParseStrategy(req.Strategy); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if d := req.Dialect; d != "" && d != "srt" && d != "vtt" {
		jsonError(w, fmt.Sprintf("unknown dialect %q", d), http.StatusBadRequest)
		return
	}
	if req.MinSpeakers < 0 || req.MaxSpeakers < 0 ||
		(req.MaxSpeakers > 0 && req.MinSpeakers > req.MaxSpeakers) {
		jsonError(w, "invalid speaker bounds", http.StatusBadRequest)
		return
	}

	j, err := h.queue.Enqueue(job.JobTranscribe, req.FilePath, req.TranscribeParams)
	if err != nil {
		jsonError(w, "failed to enqueue job: "+err.Error(), http.StatusInternalServerError)
		return
	}

	jsonResponse(w, j, http.StatusAccepted)
}

// receiveUpload stores the uploaded media file and decodes the optional
// params form field.
func (h *TranscribeHandler) receiveUpload(r *http.Request) (transcribeRequest, error) {
	var req transcribeRequest

	r.Body = http.MaxBytesReader(nil, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return req, err
	}

	if params := r.FormValue("params"); params != "" {
		if err := json.Unmarshal([]byte(params), &req.TranscribeParams); err != nil {
			return req, fmt.Errorf("params field: %w", err)
		}
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return req, fmt.Errorf("file field: %w", err)
	}
	defer file.Close()

	if err := os.MkdirAll(h.uploadPath, 0o755); err != nil {
		return req, err
	}
	ext := filepath.Ext(header.Filename)
	dst := filepath.Join(h.uploadPath, uuid.New().String()+ext)
	out, err := os.Create(dst)
	if err != nil {
		return req, err
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		os.Remove(dst)
		return req, err
	}

	req.FilePath = dst
	return req, nil
}
