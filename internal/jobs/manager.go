package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/francis4531/Offerwise-sub000/constants"
	"github.com/francis4531/Offerwise-sub000/internal/common"
	"github.com/francis4531/Offerwise-sub000/internal/entity"
)

// Manager is the thread-safe job store. The map lock only guards membership;
// each job carries its own mutex so one job's contention never blocks
// unrelated jobs' reads or writes.
type Manager struct {
	mu        sync.RWMutex
	jobs      map[uuid.UUID]*entry
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

type entry struct {
	mu  sync.Mutex
	job entity.Job
}

func NewManager(retention time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if retention <= 0 {
		retention = 2 * time.Hour
	}
	return &Manager{
		jobs:      make(map[uuid.UUID]*entry),
		retention: retention,
		logger:    logger,
		now:       time.Now,
	}
}

// Create allocates a job in QUEUED state.
func (m *Manager) Create(analysisID uuid.UUID, kind constants.DocumentKind) uuid.UUID {
	id := uuid.New()
	now := m.now()
	e := &entry{job: entity.Job{
		ID:         id,
		AnalysisID: analysisID,
		Kind:       kind,
		Status:     constants.JobStatusQueued,
		Message:    "queued",
		CreatedAt:  now,
		UpdatedAt:  now,
	}}
	m.mu.Lock()
	m.jobs[id] = e
	m.mu.Unlock()
	m.logger.Info("jobs.create", "job_id", id, "analysis_id", analysisID, "kind", kind)
	return id
}

func (m *Manager) entry(id uuid.UUID) *entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// MarkProcessing transitions QUEUED -> PROCESSING. Returns false if the job
// is gone or already terminal (cancelled while still queued).
func (m *Manager) MarkProcessing(id uuid.UUID) bool {
	e := m.entry(id)
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.job.Status != constants.JobStatusQueued {
		return false
	}
	e.job.Status = constants.JobStatusProcessing
	e.job.Message = "processing"
	m.touch(&e.job)
	return true
}

// UpdateProgress applies a progress tick. Missing or terminal jobs make this
// a logged no-op, never an error: a timeout can race a worker's final tick.
// Progress is clamped monotonic non-decreasing.
func (m *Manager) UpdateProgress(id uuid.UUID, current, total int, message string) {
	e := m.entry(id)
	if e == nil {
		m.logger.Debug("jobs.progress.dropped", "job_id", id, "reason", "not found")
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.job.Status.IsTerminal() {
		m.logger.Debug("jobs.progress.dropped", "job_id", id, "reason", "terminal", "status", e.job.Status)
		return
	}
	if current < e.job.Progress.Current {
		current = e.job.Progress.Current
	}
	e.job.Progress = entity.Progress{Current: current, Total: total}
	e.job.Message = message
	m.touch(&e.job)
}

// Complete transitions to COMPLETE with the extraction result. Idempotent:
// a second terminal transition on the same job is ignored.
func (m *Manager) Complete(id uuid.UUID, result *entity.JobResult) {
	m.finish(id, constants.JobStatusComplete, "complete", "", nil, result)
}

// Fail transitions to FAILED preserving the error message.
func (m *Manager) Fail(id uuid.UUID, err error) {
	m.finish(id, constants.JobStatusFailed, "failed", common.ErrorCode(err), err, nil)
}

// Timeout transitions to TIMED_OUT.
func (m *Manager) Timeout(id uuid.UUID, err error) {
	m.finish(id, constants.JobStatusTimedOut, "timed out", common.CodeTimeout, err, nil)
}

// Cancel transitions to CANCELLED. Only ever invoked by the explicit cancel
// API call; client disconnects and visibility changes never reach here.
// Returns true if the cancellation was applied or the job was already
// cancelled.
func (m *Manager) Cancel(id uuid.UUID) bool {
	e := m.entry(id)
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.job.Status == constants.JobStatusCancelled {
		return true
	}
	if e.job.Status.IsTerminal() {
		return false
	}
	e.job.Status = constants.JobStatusCancelled
	e.job.Message = "cancelled"
	e.job.ErrorCode = common.CodeCancelled
	e.job.Error = common.ErrCancelled.Error()
	t := m.now()
	e.job.FinishedAt = &t
	m.touch(&e.job)
	m.logger.Info("jobs.cancelled", "job_id", id)
	return true
}

func (m *Manager) finish(id uuid.UUID, status constants.JobStatus, message, code string, err error, result *entity.JobResult) {
	e := m.entry(id)
	if e == nil {
		m.logger.Warn("jobs.finish.dropped", "job_id", id, "status", status, "reason", "not found")
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.job.Status.IsTerminal() {
		m.logger.Debug("jobs.finish.dropped", "job_id", id, "status", status, "reason", "already terminal")
		return
	}
	e.job.Status = status
	e.job.Message = message
	if result != nil {
		e.job.Result = result
		e.job.Progress.Current = e.job.Progress.Total
	}
	if err != nil {
		e.job.Error = err.Error()
		e.job.ErrorCode = code
	}
	t := m.now()
	e.job.FinishedAt = &t
	m.touch(&e.job)
	m.logger.Info("jobs.finished", "job_id", id, "status", status, "elapsed", e.job.Elapsed)
}

// AttachAnalysis adds the analysis result to an already-complete job without
// touching its status or progress.
func (m *Manager) AttachAnalysis(id uuid.UUID, res *entity.AnalysisResult) {
	e := m.entry(id)
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.job.Status != constants.JobStatusComplete || e.job.Result == nil {
		return
	}
	// Get hands out snapshots sharing the Result pointer; replace it rather
	// than mutate the published value under a concurrent reader.
	r := *e.job.Result
	r.Analysis = res
	e.job.Result = &r
}

// IsCancelled is the cooperative check workers run on every progress tick.
func (m *Manager) IsCancelled(id uuid.UUID) bool {
	e := m.entry(id)
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.job.Status == constants.JobStatusCancelled
}

// Get returns a read-only snapshot. Unknown or expired ids return a typed
// not-found error, never a crash; the lock held is only this job's own.
func (m *Manager) Get(id uuid.UUID) (entity.Job, error) {
	e := m.entry(id)
	if e == nil {
		return entity.Job{}, common.NewAppError(common.CodeNotFound, "job not found", common.ErrNotFound)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	job := e.job
	if !job.Status.IsTerminal() {
		job.Elapsed = m.now().Sub(job.CreatedAt)
	}
	return job, nil
}

// Cleanup removes terminal jobs older than the retention window.
// Returns the number of jobs removed.
func (m *Manager) Cleanup() int {
	cutoff := m.now().Add(-m.retention)
	var expired []uuid.UUID

	m.mu.RLock()
	for id, e := range m.jobs {
		e.mu.Lock()
		if e.job.FinishedAt != nil && e.job.FinishedAt.Before(cutoff) {
			expired = append(expired, id)
		}
		e.mu.Unlock()
	}
	m.mu.RUnlock()

	if len(expired) == 0 {
		return 0
	}
	m.mu.Lock()
	for _, id := range expired {
		delete(m.jobs, id)
	}
	m.mu.Unlock()
	m.logger.Info("jobs.cleanup", "removed", len(expired))
	return len(expired)
}

// Janitor runs the cleanup sweep on an interval until ctx is done.
func (m *Manager) Janitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Cleanup()
		}
	}
}

// touch updates bookkeeping timestamps under the entry lock.
func (m *Manager) touch(j *entity.Job) {
	now := m.now()
	j.UpdatedAt = now
	j.Elapsed = now.Sub(j.CreatedAt)
}
