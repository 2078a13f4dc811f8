// Package handlers implements the HTTP endpoints: dataset upload, job
// status, and report download. Report generation itself happens on the job
// queue; the upload endpoint only spools the file and enqueues.
package handlers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/byru-rnd/kasbon-analytics/internal/api/middleware"
	"github.com/byru-rnd/kasbon-analytics/internal/jobs"
)

// ReportsHandler handles report-related endpoints.
type ReportsHandler struct {
	publisher      jobs.Publisher
	store          jobs.JobStore
	uploadsDir     string
	maxUploadBytes int64
	log            zerolog.Logger
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(publisher jobs.Publisher, store jobs.JobStore, uploadsDir string, maxUploadBytes int64, log zerolog.Logger) *ReportsHandler {
	return &ReportsHandler{
		publisher:      publisher,
		store:          store,
		uploadsDir:     uploadsDir,
		maxUploadBytes: maxUploadBytes,
		log:            log,
	}
}

// CreateReport handles POST /api/reports. It accepts a multipart "file"
// field holding the kasbon export, spools it to disk and enqueues the
// report job.
func (h *ReportsHandler) CreateReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid multipart upload or file too large")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "A 'file' field is required")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".csv" && ext != ".xlsx" {
		middleware.WriteError(w, http.StatusBadRequest, "Only .csv and .xlsx files are supported")
		return
	}

	if err := os.MkdirAll(h.uploadsDir, 0o755); err != nil {
		h.log.Error().Err(err).Msg("Failed to create uploads dir")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to store upload")
		return
	}

	spoolPath := filepath.Join(h.uploadsDir, uuid.New().String()+ext)
	dst, err := os.Create(spoolPath)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create spool file")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to store upload")
		return
	}

	written, err := io.Copy(dst, file)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to spool upload")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to store upload")
		return
	}

	job := &jobs.ReportJob{
		DatasetPath:      spoolPath,
		OriginalFilename: filepath.Base(header.Filename),
	}

	if err := h.publisher.PublishGenerateReport(ctx, job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue report job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue report job")
		return
	}

	h.log.Info().
		Str("job_id", job.JobID).
		Str("filename", job.OriginalFilename).
		Int64("bytes", written).
		Msg("Report job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":   job.JobID,
		"filename": job.OriginalFilename,
		"status":   string(job.Status),
	})
}

// DownloadReport handles GET /api/reports/{id}/download. The id is the job
// ID returned by CreateReport.
func (h *ReportsHandler) DownloadReport(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]

	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	if job.Status != jobs.JobStatusCompleted {
		middleware.WriteError(w, http.StatusConflict,
			fmt.Sprintf("Report not ready, job status is %s", job.Status))
		return
	}

	if job.ReportPath == "" {
		middleware.WriteError(w, http.StatusNotFound, "Report artifact is gone")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="Laporan_Analitik_Kasbon.pdf"`)
	http.ServeFile(w, r, job.ReportPath)
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]

	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		Status: jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
