package analysis

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/francis4531/Offerwise-sub000/constants"
	"github.com/francis4531/Offerwise-sub000/internal/common"
	"github.com/francis4531/Offerwise-sub000/internal/crossref"
	"github.com/francis4531/Offerwise-sub000/internal/entity"
	"github.com/francis4531/Offerwise-sub000/internal/export"
	"github.com/francis4531/Offerwise-sub000/internal/jobs"
	"github.com/francis4531/Offerwise-sub000/internal/parser"
	"github.com/francis4531/Offerwise-sub000/internal/repository"
	"github.com/francis4531/Offerwise-sub000/internal/scoring"
)

type memRepo struct {
	mu          sync.Mutex
	texts       []repository.DocumentText
	results     map[uuid.UUID]*entity.AnalysisResult
	resultSaves int
}

func newMemRepo() *memRepo {
	return &memRepo{results: make(map[uuid.UUID]*entity.AnalysisResult)}
}

func (r *memRepo) SaveDocumentText(_ context.Context, doc repository.DocumentText) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, doc)
	return nil
}

func (r *memRepo) SaveResult(_ context.Context, res *entity.AnalysisResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resultSaves++
	r.results[res.AnalysisID] = res
	return nil
}

func (r *memRepo) GetResult(_ context.Context, analysisID uuid.UUID) (*entity.AnalysisResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.results[analysisID]
	if !ok {
		return nil, common.NewAppError(common.CodeNotFound, "analysis not found", common.ErrNotFound)
	}
	return res, nil
}

func (r *memRepo) Close() error { return nil }

type memStore struct {
	mu   sync.Mutex
	keys []string
}

func (s *memStore) Put(_ context.Context, key string, _ []byte, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, key)
	return "mem://" + key, nil
}

func newTestCoordinator(t *testing.T) (*Coordinator, *jobs.Manager, *memRepo, *memStore) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bench, err := parser.LoadBenchmarks("")
	if err != nil {
		t.Fatalf("LoadBenchmarks: %v", err)
	}
	repo := newMemRepo()
	store := &memStore{}
	mgr := jobs.NewManager(time.Hour, logger)
	coord := NewCoordinator(
		mgr,
		parser.NewParser(bench, logger),
		crossref.NewEngine(logger),
		scoring.NewEngine(logger),
		export.NewService(logger),
		nil, 0, repo, store, logger,
	)
	return coord, mgr, repo, store
}

// completedTask creates a job already driven to COMPLETE, the state the
// worker pool leaves it in before the completion hook fires.
func completedTask(mgr *jobs.Manager, analysisID uuid.UUID, kind constants.DocumentKind, text string) jobs.Task {
	id := mgr.Create(analysisID, kind)
	mgr.MarkProcessing(id)
	mgr.Complete(id, &entity.JobResult{Text: text, Method: constants.MethodNativeFast, Pages: 1})
	return jobs.Task{JobID: id, AnalysisID: analysisID, Kind: kind}
}

const inspectionText = "Roof shingles are severely deteriorated and pose a safety hazard\n"
const disclosureText = "Are you aware of any roof defects? [X] No\n"

func TestSingleDocumentWaitsForSibling(t *testing.T) {
	t.Parallel()
	coord, mgr, repo, _ := newTestCoordinator(t)
	ctx := context.Background()

	analysisID := uuid.New()
	task := completedTask(mgr, analysisID, constants.KindInspection, inspectionText)
	coord.DocumentComplete(ctx, task, inspectionText, constants.MethodNativeFast, 1)

	if _, err := coord.Result(ctx, analysisID); err == nil {
		t.Fatal("analysis finalized with only one document")
	}
	repo.mu.Lock()
	texts := len(repo.texts)
	repo.mu.Unlock()
	if texts != 1 {
		t.Fatalf("extracted text not persisted immediately: %d", texts)
	}

	// the waiting document's own job is untouched
	job, err := mgr.Get(task.JobID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if job.Status != constants.JobStatusComplete || job.Result.Analysis != nil {
		t.Fatalf("waiting job mutated: %+v", job)
	}
}

func TestPairFinalizes(t *testing.T) {
	t.Parallel()
	coord, mgr, _, store := newTestCoordinator(t)
	ctx := context.Background()

	analysisID := uuid.New()
	disc := completedTask(mgr, analysisID, constants.KindDisclosure, disclosureText)
	insp := completedTask(mgr, analysisID, constants.KindInspection, inspectionText)

	coord.DocumentComplete(ctx, disc, disclosureText, constants.MethodNativeFast, 1)
	coord.DocumentComplete(ctx, insp, inspectionText, constants.MethodOCRFast, 1)

	res, err := coord.Result(ctx, analysisID)
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if len(res.Findings) == 0 || len(res.Answers) != 1 || len(res.Discrepancies) != 1 {
		t.Fatalf("analysis incomplete: %+v", res)
	}
	if res.Discrepancies[0].Class != entity.DiscrepancyFail {
		t.Fatalf("denied serious finding should classify fail, got %s", res.Discrepancies[0].Class)
	}
	if res.Score.Transparency != 0 {
		t.Fatalf("single failed check should zero transparency, got %v", res.Score.Transparency)
	}
	if res.OfferAdjust < res.Score.TotalCost {
		t.Fatalf("offer adjustment below repair bill: %v < %v", res.OfferAdjust, res.Score.TotalCost)
	}

	// both sibling jobs carry the result, status untouched
	for _, id := range []uuid.UUID{disc.JobID, insp.JobID} {
		job, err := mgr.Get(id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if job.Status != constants.JobStatusComplete {
			t.Fatalf("finalize changed job status to %s", job.Status)
		}
		if job.Result == nil || job.Result.Analysis == nil {
			t.Fatalf("analysis not attached to job %s", id)
		}
	}

	store.mu.Lock()
	keys := append([]string(nil), store.keys...)
	store.mu.Unlock()
	if len(keys) != 1 || keys[0] != "reports/"+analysisID.String()+".xlsx" {
		t.Fatalf("report artifact not uploaded: %v", keys)
	}
}

func TestDuplicateCompletionDoesNotRefinalize(t *testing.T) {
	t.Parallel()
	coord, mgr, repo, _ := newTestCoordinator(t)
	ctx := context.Background()

	analysisID := uuid.New()
	disc := completedTask(mgr, analysisID, constants.KindDisclosure, disclosureText)
	insp := completedTask(mgr, analysisID, constants.KindInspection, inspectionText)

	coord.DocumentComplete(ctx, disc, disclosureText, constants.MethodNativeFast, 1)
	coord.DocumentComplete(ctx, insp, inspectionText, constants.MethodNativeFast, 1)
	coord.DocumentComplete(ctx, insp, inspectionText, constants.MethodNativeFast, 1)

	repo.mu.Lock()
	saves := repo.resultSaves
	repo.mu.Unlock()
	if saves != 1 {
		t.Fatalf("analysis finalized %d times", saves)
	}
}

func TestIndependentAnalyses(t *testing.T) {
	t.Parallel()
	coord, mgr, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	a := uuid.New()
	b := uuid.New()
	discA := completedTask(mgr, a, constants.KindDisclosure, disclosureText)
	inspA := completedTask(mgr, a, constants.KindInspection, inspectionText)
	discB := completedTask(mgr, b, constants.KindDisclosure, disclosureText)

	coord.DocumentComplete(ctx, discA, disclosureText, constants.MethodNativeFast, 1)
	coord.DocumentComplete(ctx, discB, disclosureText, constants.MethodNativeFast, 1)
	coord.DocumentComplete(ctx, inspA, inspectionText, constants.MethodNativeFast, 1)

	if _, err := coord.Result(ctx, a); err != nil {
		t.Fatalf("analysis A should be done: %v", err)
	}
	if _, err := coord.Result(ctx, b); err == nil {
		t.Fatal("analysis B finalized without its inspection document")
	}
}
