package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/francis4531/Offerwise-sub000/constants"
	"github.com/francis4531/Offerwise-sub000/internal/common"
	"github.com/francis4531/Offerwise-sub000/internal/entity"
	"github.com/francis4531/Offerwise-sub000/internal/extract"
)

// Task is one queued extraction. Each task owns its own temp file; workers
// never share mutable document state.
type Task struct {
	JobID      uuid.UUID
	AnalysisID uuid.UUID
	Kind       constants.DocumentKind
	Path       string
	Submitted  time.Time
}

// CompletionFunc is invoked after a job completes successfully, off the
// manager's locks. The analysis coordinator hangs off this.
type CompletionFunc func(ctx context.Context, task Task, res extract.Result)

// Extractor is the slice of the extraction chain the pool needs.
// Satisfied by *extract.Extractor.
type Extractor interface {
	Extract(ctx context.Context, path string, progress extract.ProgressFunc) (extract.Result, error)
}

// Pool is the fixed-size background worker pool. One job per worker at a
// time; the per-job wall-clock ceiling is enforced on every progress tick.
type Pool struct {
	mgr        *Manager
	ex         Extractor
	onComplete CompletionFunc
	logger     *slog.Logger
	workers    int
	timeout    time.Duration

	ch   chan Task
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*Pool)

func WithWorkers(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.ch = make(chan Task, n)
		}
	}
}
func WithJobTimeout(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func NewPool(mgr *Manager, ex Extractor, onComplete CompletionFunc, logger *slog.Logger, opts ...Option) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{
		mgr:        mgr,
		ex:         ex,
		onComplete: onComplete,
		logger:     logger,
		workers:    2,
		timeout:    600 * time.Second,
		ch:         make(chan Task, 32),
	}
	for _, o := range opts {
		o(p)
	}
	p.start()
	return p
}

func (p *Pool) start() {
	p.once.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go func(workerID int) {
				defer p.wg.Done()
				p.logger.Info("worker started", "worker_id", workerID)
				for task := range p.ch {
					p.process(workerID, task)
				}
				p.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

// ErrQueueFull is returned by Enqueue when the pending-task buffer is at
// capacity. The submit path surfaces it as a retryable rejection.
var ErrQueueFull = errors.New("extraction queue full")

// Enqueue hands a task to the pool. Never blocks: a full queue rejects the
// task with ErrQueueFull so submit stays immediate and Shutdown is never
// stuck behind a held lock.
func (p *Pool) Enqueue(_ context.Context, task Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		p.logger.Warn("cannot enqueue: pool is shutting down", "job_id", task.JobID)
		return common.NewAppError(common.CodeInternal, "pool shutting down", common.ErrInternal)
	}
	select {
	case p.ch <- task:
		p.logger.Info("queued document for extraction", "job_id", task.JobID, "kind", task.Kind)
		return nil
	default:
		p.logger.Warn("queue full, rejecting task", "job_id", task.JobID)
		return common.NewAppError(common.CodeInternal, "extraction queue full", ErrQueueFull)
	}
}

func (p *Pool) process(workerID int, task Task) {
	defer func() {
		if task.Path != "" {
			_ = os.Remove(task.Path)
		}
	}()

	if !p.mgr.MarkProcessing(task.JobID) {
		// cancelled (or expired) while still queued
		p.logger.Info("skipping job no longer queued", "worker_id", workerID, "job_id", task.JobID)
		return
	}

	start := time.Now()
	// Context deadline gets a little slack past the ceiling so the per-tick
	// check fires first and yields the typed timeout instead of a killed exec.
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout+30*time.Second)
	defer cancel()

	progress := func(done, total int, message string) error {
		if time.Since(start) > p.timeout {
			return common.NewAppError(common.CodeTimeout,
				fmt.Sprintf("exceeded %s processing ceiling", p.timeout), common.ErrTimeout)
		}
		if p.mgr.IsCancelled(task.JobID) {
			return common.NewAppError(common.CodeCancelled, "cancelled by client", common.ErrCancelled)
		}
		p.mgr.UpdateProgress(task.JobID, done, total, message)
		return nil
	}

	res, err := p.ex.Extract(ctx, task.Path, progress)
	switch {
	case err == nil:
		p.mgr.Complete(task.JobID, &entity.JobResult{
			Text:           res.Text,
			Method:         res.Method,
			Pages:          res.Pages,
			PageConfidence: res.PageConfidence,
		})
		p.logger.Info("extraction ok",
			"worker_id", workerID,
			"job_id", task.JobID,
			"method", res.Method,
			"pages", res.Pages,
			"duration_ms", res.Duration.Milliseconds(),
		)
		if p.onComplete != nil {
			p.onComplete(context.Background(), task, res)
		}
	case errors.Is(err, common.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		p.logger.Error("extraction timed out", "worker_id", workerID, "job_id", task.JobID, "error", err)
		p.mgr.Timeout(task.JobID, err)
	case errors.Is(err, common.ErrCancelled):
		// manager already holds the terminal CANCELLED state
		p.logger.Info("extraction aborted by cancellation", "worker_id", workerID, "job_id", task.JobID)
	default:
		p.logger.Error("extraction failed", "worker_id", workerID, "job_id", task.JobID, "error", err)
		p.mgr.Fail(task.JobID, err)
	}
}

// Shutdown stops accepting work and waits for in-flight jobs up to ctx.
func (p *Pool) Shutdown(ctx context.Context) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.ch)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); p.wg.Wait() }()

	select {
	case <-ctx.Done():
		p.logger.Warn("shutdown interrupted by context")
	case <-done:
		p.logger.Info("pool drained, shutdown complete")
	}
}
