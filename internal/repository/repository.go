// Package repository persists final extracted text and analysis results so
// they outlive the in-memory job retention window.
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/francis4531/Offerwise-sub000/constants"
	"github.com/francis4531/Offerwise-sub000/internal/entity"
)

// DocumentText is the persisted extraction output for one job.
type DocumentText struct {
	JobID      uuid.UUID
	AnalysisID uuid.UUID
	Kind       constants.DocumentKind
	Method     constants.ExtractionMethod
	Pages      int
	Text       string
}

// AnalysisRepository stores what must outlive a job: the extracted text and
// the derived analysis result. Raw document bytes are never persisted.
type AnalysisRepository interface {
	SaveDocumentText(ctx context.Context, doc DocumentText) error
	SaveResult(ctx context.Context, res *entity.AnalysisResult) error
	GetResult(ctx context.Context, analysisID uuid.UUID) (*entity.AnalysisResult, error)
	Close() error
}
