// Package client implements the upload coordinator: one independent polling
// task per submitted document. A loop is torn down only by the job reaching
// a terminal state, by exhausting its retry budget, or by the explicit
// leaving-the-page signal — never by a sibling upload finishing and never by
// the page going idle. The server keeps working regardless of whether anyone
// is watching.
package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/francis4531/Offerwise-sub000/constants"
	"github.com/francis4531/Offerwise-sub000/internal/entity"
)

// DefaultInterval is the polling cadence; status reads are eventually
// consistent well within it.
const DefaultInterval = time.Second

// DefaultMaxMalformed bounds consecutive malformed/failed polls before the
// upload is surfaced as failed to the user.
const DefaultMaxMalformed = 5

// Status mirrors the server's polling contract.
type Status struct {
	JobID     string            `json:"job_id"`
	Status    string            `json:"status"`
	Progress  entity.Progress   `json:"progress"`
	Message   string            `json:"message"`
	ElapsedMS int64             `json:"elapsed_ms"`
	Result    *entity.JobResult `json:"result,omitempty"`
	Error     string            `json:"error,omitempty"`
	ErrorCode string            `json:"error_code,omitempty"`
}

func (s Status) terminal() bool {
	if s.Status == "NOT_FOUND" {
		return true
	}
	return constants.JobStatus(s.Status).IsTerminal()
}

// Upload is one tracked document upload with its own polling loop.
type Upload struct {
	JobID string

	mu   sync.Mutex
	last Status
	err  error

	done   chan struct{}
	cancel context.CancelFunc
}

// Snapshot returns the most recent observed status and any tracking error.
func (u *Upload) Snapshot() (Status, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.last, u.err
}

// Done closes when the polling loop has stopped.
func (u *Upload) Done() <-chan struct{} { return u.done }

type Config struct {
	BaseURL      string
	HTTPClient   *http.Client
	Interval     time.Duration
	MaxMalformed int
}

type Coordinator struct {
	cfg    Config
	logger *slog.Logger

	root       context.Context
	rootCancel context.CancelFunc

	mu      sync.Mutex
	uploads map[string]*Upload
}

func NewCoordinator(cfg Config, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.MaxMalformed <= 0 {
		cfg.MaxMalformed = DefaultMaxMalformed
	}
	root, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		cfg:        cfg,
		logger:     logger,
		root:       root,
		rootCancel: cancel,
		uploads:    make(map[string]*Upload),
	}
}

type submitPayload struct {
	Kind       string `json:"kind"`
	AnalysisID string `json:"analysis_id,omitempty"`
	Content    string `json:"content"`
}

type submitReply struct {
	JobID      string `json:"job_id"`
	AnalysisID string `json:"analysis_id"`
}

// Submit posts a document and starts tracking the returned job. The submit
// call itself returns as soon as the server acknowledges.
func (c *Coordinator) Submit(ctx context.Context, kind constants.DocumentKind, analysisID string, document []byte) (*Upload, string, error) {
	body, err := json.Marshal(submitPayload{
		Kind:       string(kind),
		AnalysisID: analysisID,
		Content:    base64.StdEncoding.EncodeToString(document),
	})
	if err != nil {
		return nil, "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/jobs", bytes.NewReader(body))
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		return nil, "", fmt.Errorf("submit rejected: %s", resp.Status)
	}
	var reply submitReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, "", fmt.Errorf("submit reply malformed: %w", err)
	}
	return c.Track(reply.JobID), reply.AnalysisID, nil
}

// Track starts an independent polling loop for jobID. Each upload owns its
// own cancellation token; nothing shared is torn down when one completes.
func (c *Coordinator) Track(jobID string) *Upload {
	c.mu.Lock()
	defer c.mu.Unlock()
	if u, ok := c.uploads[jobID]; ok {
		return u
	}
	ctx, cancel := context.WithCancel(c.root)
	u := &Upload{
		JobID:  jobID,
		done:   make(chan struct{}),
		cancel: cancel,
	}
	c.uploads[jobID] = u
	go c.poll(ctx, u)
	return u
}

// Leave is the explicit leaving-the-page signal: it stops every polling
// loop. It does NOT cancel server-side jobs; those keep running.
func (c *Coordinator) Leave() {
	c.rootCancel()
}

// Cancel asks the server to cancel a job. This is the only way a job is
// ever cancelled; it is deliberately separate from Leave.
func (c *Coordinator) Cancel(ctx context.Context, jobID string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/v1/jobs/%s/cancel", c.cfg.BaseURL, jobID), nil)
	if err != nil {
		return false, err
	}
	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	var reply struct {
		Acknowledged bool `json:"acknowledged"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return false, err
	}
	return reply.Acknowledged, nil
}

func (c *Coordinator) poll(ctx context.Context, u *Upload) {
	defer close(u.done)
	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	malformed := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		st, err := c.fetch(ctx, u.JobID)
		if err != nil {
			malformed++
			c.logger.Warn("poll failed", "job_id", u.JobID, "attempt", malformed, "error", err)
			if malformed >= c.cfg.MaxMalformed {
				u.mu.Lock()
				u.err = fmt.Errorf("giving up after %d failed polls: %w", malformed, err)
				u.mu.Unlock()
				return
			}
			continue
		}
		malformed = 0

		u.mu.Lock()
		u.last = st
		u.mu.Unlock()

		if st.terminal() {
			c.logger.Info("upload finished", "job_id", u.JobID, "status", st.Status)
			return
		}
	}
}

func (c *Coordinator) fetch(ctx context.Context, jobID string) (Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/v1/jobs/%s", c.cfg.BaseURL, jobID), nil)
	if err != nil {
		return Status{}, err
	}
	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return Status{}, err
	}
	defer resp.Body.Close()

	var st Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return Status{}, fmt.Errorf("malformed status response: %w", err)
	}
	if st.Status == "" {
		return Status{}, fmt.Errorf("malformed status response: empty status")
	}
	return st, nil
}
