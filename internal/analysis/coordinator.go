// Package analysis coordinates the two documents of an analysis unit. Each
// document is a fully independent job; nothing here ever touches a sibling
// job's status or progress. Once both documents have completed extraction,
// the coordinator runs parsing, cross-referencing and scoring, and attaches
// the result to both jobs.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/francis4531/Offerwise-sub000/constants"
	"github.com/francis4531/Offerwise-sub000/internal/crossref"
	"github.com/francis4531/Offerwise-sub000/internal/entity"
	"github.com/francis4531/Offerwise-sub000/internal/export"
	"github.com/francis4531/Offerwise-sub000/internal/jobs"
	"github.com/francis4531/Offerwise-sub000/internal/parser"
	"github.com/francis4531/Offerwise-sub000/internal/repository"
	"github.com/francis4531/Offerwise-sub000/internal/scoring"
	"github.com/francis4531/Offerwise-sub000/internal/storage"
	"github.com/francis4531/Offerwise-sub000/internal/verify"
)

type document struct {
	jobID uuid.UUID
	text  string
	kind  constants.DocumentKind
}

type unit struct {
	mu   sync.Mutex
	docs map[constants.DocumentKind]*document
	done bool
}

type Coordinator struct {
	mu    sync.Mutex
	units map[uuid.UUID]*unit

	mgr      *jobs.Manager
	parser   *parser.Parser
	crossref *crossref.Engine
	scorer   *scoring.Engine
	exporter *export.Service
	verifier verify.Verifier
	topK     int
	repo     repository.AnalysisRepository
	store    storage.ArtifactStore
	logger   *slog.Logger
}

func NewCoordinator(
	mgr *jobs.Manager,
	p *parser.Parser,
	x *crossref.Engine,
	s *scoring.Engine,
	e *export.Service,
	v verify.Verifier,
	topK int,
	repo repository.AnalysisRepository,
	store storage.ArtifactStore,
	logger *slog.Logger,
) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if v == nil {
		v = verify.NopVerifier{}
	}
	if store == nil {
		store = storage.NopStore{}
	}
	if topK <= 0 {
		topK = parser.TopKVerified
	}
	return &Coordinator{
		units:    make(map[uuid.UUID]*unit),
		mgr:      mgr,
		parser:   p,
		crossref: x,
		scorer:   s,
		exporter: e,
		verifier: v,
		topK:     topK,
		repo:     repo,
		store:    store,
		logger:   logger,
	}
}

func (c *Coordinator) unitFor(analysisID uuid.UUID) *unit {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.units[analysisID]
	if !ok {
		u = &unit{docs: make(map[constants.DocumentKind]*document)}
		c.units[analysisID] = u
	}
	return u
}

// DocumentComplete is the worker pool's completion hook. It records the
// finished document, persists its text, and finalizes the analysis once the
// sibling document is also in.
func (c *Coordinator) DocumentComplete(ctx context.Context, task jobs.Task, text string, method constants.ExtractionMethod, pages int) {
	if err := c.repo.SaveDocumentText(ctx, repository.DocumentText{
		JobID:      task.JobID,
		AnalysisID: task.AnalysisID,
		Kind:       task.Kind,
		Method:     method,
		Pages:      pages,
		Text:       text,
	}); err != nil {
		c.logger.Error("analysis.persist_text.failed", "job_id", task.JobID, "error", err)
	}

	u := c.unitFor(task.AnalysisID)
	u.mu.Lock()
	u.docs[task.Kind] = &document{jobID: task.JobID, text: text, kind: task.Kind}
	disclosure := u.docs[constants.KindDisclosure]
	inspection := u.docs[constants.KindInspection]
	ready := !u.done && disclosure != nil && inspection != nil
	if ready {
		u.done = true
	}
	u.mu.Unlock()

	if !ready {
		c.logger.Info("analysis.waiting_for_sibling", "analysis_id", task.AnalysisID, "kind", task.Kind)
		return
	}
	c.finalize(ctx, task.AnalysisID, disclosure, inspection)
}

func (c *Coordinator) finalize(ctx context.Context, analysisID uuid.UUID, disclosure, inspection *document) {
	start := time.Now()

	findings := c.parser.ParseFindings(inspection.text, constants.KindInspection)
	findings = append(findings, c.parser.ParseFindings(disclosure.text, constants.KindDisclosure)...)
	answers := c.parser.ParseDisclosureAnswers(disclosure.text)

	c.parser.VerifyTopK(ctx, findings, c.topK, c.verifier)

	discrepancies := c.crossref.Check(answers, findings)
	transparency := crossref.TransparencyScore(discrepancies)
	score := c.scorer.Compute(findings, transparency)

	res := &entity.AnalysisResult{
		AnalysisID:    analysisID,
		Findings:      findings,
		Answers:       answers,
		Discrepancies: discrepancies,
		Score:         score,
		OfferAdjust:   scoring.OfferAdjustment(score),
		CreatedAt:     time.Now().UTC(),
	}

	c.mgr.AttachAnalysis(disclosure.jobID, res)
	c.mgr.AttachAnalysis(inspection.jobID, res)

	if err := c.repo.SaveResult(ctx, res); err != nil {
		c.logger.Error("analysis.persist_result.failed", "analysis_id", analysisID, "error", err)
	}
	c.uploadReport(ctx, res)

	c.logger.Info("analysis.finalized",
		"analysis_id", analysisID,
		"findings", len(findings),
		"discrepancies", len(discrepancies),
		"risk", score.Risk,
		"label", score.RiskLabel,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

func (c *Coordinator) uploadReport(ctx context.Context, res *entity.AnalysisResult) {
	report, err := c.exporter.BuildReportXLSX(res)
	if err != nil {
		c.logger.Error("analysis.report.failed", "analysis_id", res.AnalysisID, "error", err)
		return
	}
	key := fmt.Sprintf("reports/%s.xlsx", res.AnalysisID)
	if _, err := c.store.Put(ctx, key, report,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"); err != nil {
		c.logger.Warn("analysis.report.upload_failed", "analysis_id", res.AnalysisID, "error", err)
	}
}

// Result fetches a finished analysis result from the store.
func (c *Coordinator) Result(ctx context.Context, analysisID uuid.UUID) (*entity.AnalysisResult, error) {
	return c.repo.GetResult(ctx, analysisID)
}
