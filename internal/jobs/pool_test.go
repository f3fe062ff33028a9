package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/francis4531/Offerwise-sub000/constants"
	"github.com/francis4531/Offerwise-sub000/internal/entity"
	"github.com/francis4531/Offerwise-sub000/internal/extract"
)

type fakeExtractor struct {
	fn func(ctx context.Context, path string, progress extract.ProgressFunc) (extract.Result, error)
}

func (f *fakeExtractor) Extract(ctx context.Context, path string, progress extract.ProgressFunc) (extract.Result, error) {
	return f.fn(ctx, path, progress)
}

// waitStatus polls until the job reaches a terminal state or the deadline.
func waitStatus(t *testing.T, m *Manager, id uuid.UUID, want constants.JobStatus) entity.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := m.Get(id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if job.Status == want {
			return job
		}
		if job.Status.IsTerminal() {
			t.Fatalf("job landed in %s, expected %s (error=%q)", job.Status, want, job.Error)
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job never reached %s", want)
	return entity.Job{}
}

func TestPoolProcessesJob(t *testing.T) {
	t.Parallel()

	m := NewManager(time.Hour, testLogger())
	ex := &fakeExtractor{fn: func(_ context.Context, _ string, progress extract.ProgressFunc) (extract.Result, error) {
		for p := 1; p <= 3; p++ {
			if err := progress(p, 3, "page"); err != nil {
				return extract.Result{}, err
			}
		}
		return extract.Result{Text: "body", Method: constants.MethodNativeFast, Pages: 3}, nil
	}}

	var mu sync.Mutex
	var completed []uuid.UUID
	p := NewPool(m, ex, func(_ context.Context, task Task, _ extract.Result) {
		mu.Lock()
		completed = append(completed, task.JobID)
		mu.Unlock()
	}, testLogger(), WithWorkers(1), WithQueueSize(4))
	defer p.Shutdown(context.Background())

	id := m.Create(uuid.New(), constants.KindInspection)
	if err := p.Enqueue(context.Background(), Task{JobID: id, Kind: constants.KindInspection}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	job := waitStatus(t, m, id, constants.JobStatusComplete)
	if job.Result == nil || job.Result.Text != "body" || job.Result.Pages != 3 {
		t.Fatalf("result not recorded: %+v", job.Result)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(completed)
		mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("completion callback fired %d times", n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPoolEnforcesTimeout(t *testing.T) {
	t.Parallel()

	m := NewManager(time.Hour, testLogger())
	ex := &fakeExtractor{fn: func(_ context.Context, _ string, progress extract.ProgressFunc) (extract.Result, error) {
		for p := 1; p <= 1000; p++ {
			time.Sleep(5 * time.Millisecond)
			if err := progress(p, 1000, "page"); err != nil {
				return extract.Result{}, err
			}
		}
		return extract.Result{Text: "never"}, nil
	}}
	p := NewPool(m, ex, nil, testLogger(), WithWorkers(1), WithJobTimeout(25*time.Millisecond))
	defer p.Shutdown(context.Background())

	id := m.Create(uuid.New(), constants.KindInspection)
	if err := p.Enqueue(context.Background(), Task{JobID: id}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	job := waitStatus(t, m, id, constants.JobStatusTimedOut)
	if job.ErrorCode != "TIMEOUT" {
		t.Fatalf("expected TIMEOUT error code, got %q", job.ErrorCode)
	}
}

func TestPoolCancelMidJob(t *testing.T) {
	t.Parallel()

	m := NewManager(time.Hour, testLogger())
	started := make(chan struct{})
	var once sync.Once
	ex := &fakeExtractor{fn: func(_ context.Context, _ string, progress extract.ProgressFunc) (extract.Result, error) {
		for p := 1; p <= 44; p++ {
			once.Do(func() { close(started) })
			time.Sleep(5 * time.Millisecond)
			if err := progress(p, 44, "page"); err != nil {
				return extract.Result{}, err
			}
		}
		return extract.Result{Text: "never", Pages: 44}, nil
	}}
	p := NewPool(m, ex, nil, testLogger(), WithWorkers(1))
	defer p.Shutdown(context.Background())

	id := m.Create(uuid.New(), constants.KindInspection)
	if err := p.Enqueue(context.Background(), Task{JobID: id}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	<-started
	if !m.Cancel(id) {
		t.Fatal("cancel not acknowledged")
	}

	job := waitStatus(t, m, id, constants.JobStatusCancelled)
	if job.Progress.Current >= 44 {
		t.Fatalf("job ran to completion despite cancel: %d/44", job.Progress.Current)
	}

	// the worker observed the cancel; no further progress lands
	current := job.Progress.Current
	time.Sleep(50 * time.Millisecond)
	job, _ = m.Get(id)
	if job.Progress.Current != current {
		t.Fatalf("progress applied after cancellation: %d -> %d", current, job.Progress.Current)
	}
}

func TestPoolRejectsWhenQueueFull(t *testing.T) {
	t.Parallel()

	m := NewManager(time.Hour, testLogger())
	block := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	ex := &fakeExtractor{fn: func(_ context.Context, _ string, _ extract.ProgressFunc) (extract.Result, error) {
		once.Do(func() { close(started) })
		<-block
		return extract.Result{Text: "ok", Pages: 1}, nil
	}}
	p := NewPool(m, ex, nil, testLogger(), WithWorkers(1), WithQueueSize(1))
	defer p.Shutdown(context.Background())
	defer close(block)

	running := m.Create(uuid.New(), constants.KindInspection)
	if err := p.Enqueue(context.Background(), Task{JobID: running}); err != nil {
		t.Fatalf("Enqueue running: %v", err)
	}
	<-started

	queued := m.Create(uuid.New(), constants.KindDisclosure)
	if err := p.Enqueue(context.Background(), Task{JobID: queued}); err != nil {
		t.Fatalf("Enqueue queued: %v", err)
	}

	// queue is at capacity and the only worker is busy: the next submit must
	// return immediately with a typed rejection, never block
	rejected := m.Create(uuid.New(), constants.KindInspection)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Enqueue(context.Background(), Task{JobID: rejected}) }()
	select {
	case err := <-errCh:
		if !errors.Is(err, ErrQueueFull) {
			t.Fatalf("expected ErrQueueFull, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked on a full queue")
	}
}

func TestPoolCancelWhileQueued(t *testing.T) {
	t.Parallel()

	m := NewManager(time.Hour, testLogger())
	block := make(chan struct{})
	var mu sync.Mutex
	ran := make(map[uuid.UUID]bool)
	ex := &fakeExtractor{fn: func(_ context.Context, path string, _ extract.ProgressFunc) (extract.Result, error) {
		<-block
		return extract.Result{Text: "ok", Pages: 1}, nil
	}}
	onDone := func(_ context.Context, task Task, _ extract.Result) {
		mu.Lock()
		ran[task.JobID] = true
		mu.Unlock()
	}
	p := NewPool(m, ex, onDone, testLogger(), WithWorkers(1), WithQueueSize(4))
	defer p.Shutdown(context.Background())

	first := m.Create(uuid.New(), constants.KindInspection)
	second := m.Create(uuid.New(), constants.KindDisclosure)
	if err := p.Enqueue(context.Background(), Task{JobID: first}); err != nil {
		t.Fatalf("Enqueue first: %v", err)
	}
	if err := p.Enqueue(context.Background(), Task{JobID: second}); err != nil {
		t.Fatalf("Enqueue second: %v", err)
	}

	// cancel the second while it is still sitting in the queue
	if !m.Cancel(second) {
		t.Fatal("cancel not acknowledged")
	}
	close(block)

	waitStatus(t, m, first, constants.JobStatusComplete)
	job, _ := m.Get(second)
	if job.Status != constants.JobStatusCancelled {
		t.Fatalf("queued-then-cancelled job became %s", job.Status)
	}

	// give the worker a chance to (wrongly) pick it up
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if ran[second] {
		t.Fatal("cancelled job was processed")
	}
}

func TestPoolJobsAreIndependent(t *testing.T) {
	t.Parallel()

	m := NewManager(time.Hour, testLogger())
	slowStarted := make(chan struct{})
	var once sync.Once
	ex := &fakeExtractor{fn: func(_ context.Context, path string, progress extract.ProgressFunc) (extract.Result, error) {
		if path == "slow" {
			for p := 1; p <= 200; p++ {
				once.Do(func() { close(slowStarted) })
				time.Sleep(5 * time.Millisecond)
				if err := progress(p, 200, "page"); err != nil {
					return extract.Result{}, err
				}
			}
		}
		return extract.Result{Text: "ok", Pages: 20}, nil
	}}
	p := NewPool(m, ex, nil, testLogger(), WithWorkers(2))
	defer p.Shutdown(context.Background())

	fast := m.Create(uuid.New(), constants.KindInspection)
	slow := m.Create(uuid.New(), constants.KindDisclosure)
	if err := p.Enqueue(context.Background(), Task{JobID: slow, Path: "slow"}); err != nil {
		t.Fatalf("Enqueue slow: %v", err)
	}
	<-slowStarted
	if err := p.Enqueue(context.Background(), Task{JobID: fast}); err != nil {
		t.Fatalf("Enqueue fast: %v", err)
	}

	// the fast sibling finishing must not disturb the slow one
	waitStatus(t, m, fast, constants.JobStatusComplete)
	job, err := m.Get(slow)
	if err != nil {
		t.Fatalf("Get slow: %v", err)
	}
	if job.Status.IsTerminal() {
		t.Fatalf("sibling completion terminated an unrelated job: %s", job.Status)
	}

	// and cancelling the slow one touches only it
	if !m.Cancel(slow) {
		t.Fatal("cancel not acknowledged")
	}
	waitStatus(t, m, slow, constants.JobStatusCancelled)
	job, _ = m.Get(fast)
	if job.Status != constants.JobStatusComplete {
		t.Fatalf("cancel leaked onto sibling: %s", job.Status)
	}
}
