package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/francis4531/Offerwise-sub000/constants"
)

// Progress is the page counter pair reported to polling clients.
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// Job represents one asynchronous unit of document-extraction work.
// Mutated only by the worker that owns it and by the cleanup sweep;
// polling reads receive copies.
type Job struct {
	ID         uuid.UUID              `json:"id"`
	AnalysisID uuid.UUID              `json:"analysis_id"`
	Kind       constants.DocumentKind `json:"kind"`
	Status     constants.JobStatus    `json:"status"`
	Progress   Progress               `json:"progress"`
	Message    string                 `json:"message"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
	FinishedAt *time.Time             `json:"finished_at,omitempty"`
	Elapsed    time.Duration          `json:"elapsed"`
	Result     *JobResult             `json:"result,omitempty"`
	Error      string                 `json:"error,omitempty"`
	ErrorCode  string                 `json:"error_code,omitempty"`
}

// JobResult is the outcome of a completed extraction, plus the analysis
// result once the sibling document has also finished.
type JobResult struct {
	Text           string                     `json:"text"`
	Method         constants.ExtractionMethod `json:"method"`
	Pages          int                        `json:"pages"`
	PageConfidence []float32                  `json:"page_confidence,omitempty"`
	Analysis       *AnalysisResult            `json:"analysis,omitempty"`
}
