package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/francis4531/Offerwise-sub000/constants"
	"github.com/francis4531/Offerwise-sub000/internal/common"
	"github.com/francis4531/Offerwise-sub000/internal/entity"
	"github.com/francis4531/Offerwise-sub000/internal/jobs"
)

type submitRequest struct {
	Kind       string `json:"kind"`
	AnalysisID string `json:"analysis_id,omitempty"`
	Content    string `json:"content"` // base64 PDF bytes
}

type submitResponse struct {
	JobID      string `json:"job_id"`
	AnalysisID string `json:"analysis_id"`
}

// StatusResponse is the polling contract. Always well-formed, even when the
// job died unexpectedly.
type StatusResponse struct {
	JobID     string            `json:"job_id"`
	Status    string            `json:"status"`
	Progress  entity.Progress   `json:"progress"`
	Message   string            `json:"message"`
	ElapsedMS int64             `json:"elapsed_ms"`
	Result    *entity.JobResult `json:"result,omitempty"`
	Error     string            `json:"error,omitempty"`
	ErrorCode string            `json:"error_code,omitempty"`
}

// handleSubmit accepts a document and returns immediately; extraction never
// blocks the request.
func (r *Router) handleSubmit(w http.ResponseWriter, req *http.Request) {
	var body submitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, req.Body, MaxUploadBytes*4/3+4096)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, common.CodeInvalidInput, "invalid request body")
		return
	}

	kind := constants.ParseDocumentKind(body.Kind)
	if kind == "" {
		writeError(w, http.StatusBadRequest, common.CodeInvalidInput,
			"kind must be DISCLOSURE or INSPECTION")
		return
	}

	raw, err := base64.StdEncoding.DecodeString(body.Content)
	if err != nil || len(raw) == 0 {
		writeError(w, http.StatusBadRequest, common.CodeInvalidInput, "content must be base64 document bytes")
		return
	}
	if len(raw) > MaxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, common.CodeInvalidInput, "document too large")
		return
	}
	if !bytes.HasPrefix(raw, []byte("%PDF-")) {
		writeError(w, http.StatusUnsupportedMediaType, common.CodeUnsupportedFormat, "document is not a PDF")
		return
	}

	analysisID := uuid.New()
	if body.AnalysisID != "" {
		analysisID, err = uuid.Parse(body.AnalysisID)
		if err != nil {
			writeError(w, http.StatusBadRequest, common.CodeInvalidInput, "analysis_id must be a UUID")
			return
		}
	}

	path, err := r.spool(raw)
	if err != nil {
		r.logger.Error("spool upload failed", "error", err)
		writeError(w, http.StatusInternalServerError, common.CodeInternal, "could not store upload")
		return
	}

	jobID := r.mgr.Create(analysisID, kind)
	if err := r.pool.Enqueue(req.Context(), jobs.Task{
		JobID:      jobID,
		AnalysisID: analysisID,
		Kind:       kind,
		Path:       path,
		Submitted:  time.Now(),
	}); err != nil {
		r.mgr.Fail(jobID, err)
		msg := "queue unavailable"
		if errors.Is(err, jobs.ErrQueueFull) {
			msg = "queue full, retry later"
		}
		writeError(w, http.StatusServiceUnavailable, common.CodeInternal, msg)
		return
	}

	writeJSON(w, http.StatusAccepted, submitResponse{
		JobID:      jobID.String(),
		AnalysisID: analysisID.String(),
	})
}

// spool writes the uploaded bytes to a worker-owned temp file.
func (r *Router) spool(raw []byte) (string, error) {
	f, err := os.CreateTemp(r.tmpDir, "ow-upload-*.pdf")
	if err != nil {
		return "", err
	}
	if _, err := f.Write(raw); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// handleStatus is read-only and never blocks on a worker's lock. Unknown or
// expired ids yield a typed NOT_FOUND status, not a crash.
func (r *Router) handleStatus(w http.ResponseWriter, req *http.Request) {
	id, err := uuid.Parse(chi.URLParam(req, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, common.CodeInvalidInput, "job id must be a UUID")
		return
	}

	job, err := r.mgr.Get(id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, StatusResponse{
				JobID:     id.String(),
				Status:    "NOT_FOUND",
				Message:   "job not found or expired",
				ErrorCode: common.CodeNotFound,
				Error:     "job not found",
			})
			return
		}
		writeError(w, http.StatusInternalServerError, common.CodeInternal, "status lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{
		JobID:     job.ID.String(),
		Status:    string(job.Status),
		Progress:  job.Progress,
		Message:   job.Message,
		ElapsedMS: job.Elapsed.Milliseconds(),
		Result:    job.Result,
		Error:     job.Error,
		ErrorCode: job.ErrorCode,
	})
}

// handleCancel is the only path to the CANCELLED state. Best-effort: the
// in-flight page finishes before the worker observes the cancellation.
func (r *Router) handleCancel(w http.ResponseWriter, req *http.Request) {
	id, err := uuid.Parse(chi.URLParam(req, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, common.CodeInvalidInput, "job id must be a UUID")
		return
	}
	ack := r.mgr.Cancel(id)
	writeJSON(w, http.StatusOK, map[string]bool{"acknowledged": ack})
}

func (r *Router) handleAnalysis(w http.ResponseWriter, req *http.Request) {
	id, err := uuid.Parse(chi.URLParam(req, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, common.CodeInvalidInput, "analysis id must be a UUID")
		return
	}
	res, err := r.coord.Result(req.Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			writeError(w, http.StatusNotFound, common.CodeNotFound, "analysis not found")
			return
		}
		writeError(w, http.StatusInternalServerError, common.CodeInternal, "result lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (r *Router) handleReport(w http.ResponseWriter, req *http.Request) {
	id, err := uuid.Parse(chi.URLParam(req, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, common.CodeInvalidInput, "analysis id must be a UUID")
		return
	}
	res, err := r.coord.Result(req.Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			writeError(w, http.StatusNotFound, common.CodeNotFound, "analysis not found")
			return
		}
		writeError(w, http.StatusInternalServerError, common.CodeInternal, "result lookup failed")
		return
	}
	report, err := r.exporter.BuildReportXLSX(res)
	if err != nil {
		r.logger.Error("report build failed", "analysis_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, common.CodeInternal, "report build failed")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "analysis-"+id.String()+".xlsx"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(report)
}
