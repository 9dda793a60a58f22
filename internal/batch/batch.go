// Package batch runs a fixed sequence of operations across many
// artifacts as a background job. Jobs report progress through the
// shared notifier and can be cancelled between artifacts.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lumagraph-labs/lumagraph/internal/notify"
	"github.com/lumagraph-labs/lumagraph/pkg/core"
)

// JobStatus names the lifecycle phase of a batch job.
type JobStatus string

// Job status constants.
const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusCancelled  JobStatus = "cancelled"
)

// Request describes a batch job to start.
type Request struct {
	// ArtifactIDs are the inputs, processed in order.
	ArtifactIDs []string `json:"artifact_ids"`
	// Steps is the linear pipeline applied to every artifact.
	// Inactive steps are skipped.
	Steps []core.Step `json:"steps"`
	// OutputDir is where results are persisted on the backend host.
	OutputDir string `json:"output_dir"`
	// Format is the persisted image format (png if empty).
	Format string `json:"format,omitempty"`
}

// Progress is a point-in-time snapshot of a job.
type Progress struct {
	JobID     string    `json:"job_id"`
	Status    JobStatus `json:"status"`
	Current   int       `json:"current"`
	Total     int       `json:"total"`
	Processed int       `json:"processed"`
	Failed    int       `json:"failed"`
	Errors    []string  `json:"errors,omitempty"`
	ElapsedMS int64     `json:"elapsed_ms"`
	OutputDir string    `json:"output_dir"`
}

// job is the mutable state of one batch run.
type job struct {
	mu        sync.Mutex
	id        string
	req       Request
	status    JobStatus
	current   int
	processed int
	failed    int
	errors    []string
	startedAt time.Time
	endedAt   time.Time
	cancel    context.CancelFunc
}

func (j *job) snapshot() Progress {
	j.mu.Lock()
	defer j.mu.Unlock()

	var elapsed time.Duration
	if !j.startedAt.IsZero() {
		end := j.endedAt
		if end.IsZero() {
			end = time.Now()
		}
		elapsed = end.Sub(j.startedAt)
	}
	return Progress{
		JobID:     j.id,
		Status:    j.status,
		Current:   j.current,
		Total:     len(j.req.ArtifactIDs),
		Processed: j.processed,
		Failed:    j.failed,
		Errors:    append([]string(nil), j.errors...),
		ElapsedMS: elapsed.Milliseconds(),
		OutputDir: j.req.OutputDir,
	}
}

// Manager owns all batch jobs of a process.
type Manager struct {
	backend core.Backend
	logger  *slog.Logger
	nf      *notify.Notifier

	mu   sync.Mutex
	jobs map[string]*job
}

// NewManager creates a batch manager dispatching through the backend.
func NewManager(backend core.Backend, logger *slog.Logger, nf *notify.Notifier) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		backend: backend,
		logger:  logger,
		nf:      nf,
		jobs:    make(map[string]*job),
	}
}

// Start validates the request, registers a job, and runs it in the
// background. It returns the job id immediately.
func (m *Manager) Start(req Request) (string, error) {
	if len(req.ArtifactIDs) == 0 {
		return "", fmt.Errorf("batch request needs at least one artifact")
	}
	active := 0
	for _, s := range req.Steps {
		if s.Active {
			if s.Operation == "" {
				return "", fmt.Errorf("batch step needs an operation name")
			}
			active++
		}
	}
	if active == 0 {
		return "", fmt.Errorf("batch request needs at least one active step")
	}
	if req.OutputDir == "" {
		return "", fmt.Errorf("batch request needs an output directory")
	}
	if req.Format == "" {
		req.Format = "png"
	}

	ctx, cancel := context.WithCancel(context.Background())
	j := &job{
		id:     uuid.New().String(),
		req:    req,
		status: StatusPending,
		cancel: cancel,
	}

	m.mu.Lock()
	m.jobs[j.id] = j
	m.mu.Unlock()

	m.logger.Info("batch job started", "job_id", j.id,
		"artifacts", len(req.ArtifactIDs), "steps", active)

	go m.run(ctx, j)
	return j.id, nil
}

// Get returns a job's progress snapshot.
func (m *Manager) Get(jobID string) (Progress, bool) {
	m.mu.Lock()
	j, ok := m.jobs[jobID]
	m.mu.Unlock()
	if !ok {
		return Progress{}, false
	}
	return j.snapshot(), true
}

// Active returns snapshots of all jobs that have not finished.
func (m *Manager) Active() []Progress {
	m.mu.Lock()
	jobs := make([]*job, 0, len(m.jobs))
	for _, j := range m.jobs {
		jobs = append(jobs, j)
	}
	m.mu.Unlock()

	var active []Progress
	for _, j := range jobs {
		p := j.snapshot()
		if p.Status == StatusPending || p.Status == StatusProcessing {
			active = append(active, p)
		}
	}
	return active
}

// Cancel requests cancellation of a job. The job stops before its next
// artifact.
func (m *Manager) Cancel(jobID string) bool {
	m.mu.Lock()
	j, ok := m.jobs[jobID]
	m.mu.Unlock()
	if !ok {
		return false
	}
	j.cancel()
	return true
}

// run processes every artifact through the step pipeline. A failing
// artifact is counted and skipped; the job carries on.
func (m *Manager) run(ctx context.Context, j *job) {
	j.mu.Lock()
	j.status = StatusProcessing
	j.startedAt = time.Now()
	j.mu.Unlock()
	m.broadcast()

	for i, artifactID := range j.req.ArtifactIDs {
		if ctx.Err() != nil {
			j.mu.Lock()
			j.status = StatusCancelled
			j.endedAt = time.Now()
			j.mu.Unlock()
			m.logger.Info("batch job cancelled", "job_id", j.id, "processed", i)
			m.broadcast()
			return
		}

		j.mu.Lock()
		j.current = i + 1
		j.mu.Unlock()

		stepErrs, err := m.processArtifact(ctx, j, artifactID, i)
		j.mu.Lock()
		for _, se := range stepErrs {
			j.errors = append(j.errors, fmt.Sprintf("artifact %s: %s", artifactID, se))
		}
		if err != nil {
			j.failed++
			j.errors = append(j.errors, fmt.Sprintf("artifact %s: %v", artifactID, err))
		} else {
			j.processed++
		}
		j.mu.Unlock()
		if err != nil {
			m.logger.Debug("batch artifact failed", "job_id", j.id, "artifact", artifactID, "error", err)
		}
		m.broadcast()
	}

	j.mu.Lock()
	// A job with nothing processed failed outright; partial failures
	// still count as completed.
	if j.processed == 0 && j.failed > 0 {
		j.status = StatusFailed
	} else {
		j.status = StatusCompleted
	}
	j.endedAt = time.Now()
	status, processed, failed := j.status, j.processed, j.failed
	j.mu.Unlock()

	m.logger.Info("batch job finished", "job_id", j.id,
		"status", status, "processed", processed, "failed", failed)
	m.broadcast()
}

// processArtifact applies the active steps, then persists the result.
// A failing step is recorded and the pipeline continues with the prior
// handle; only a persist failure fails the artifact.
func (m *Manager) processArtifact(ctx context.Context, j *job, artifactID string, index int) ([]string, error) {
	var stepErrs []string
	current := artifactID
	for _, step := range j.req.Steps {
		if !step.Active {
			continue
		}
		out, err := m.backend.Apply(ctx, current, step.Operation, step.Params)
		if err != nil {
			stepErrs = append(stepErrs, fmt.Sprintf("%s: %v", step.Operation, err))
			continue
		}
		current = out
	}

	filename := fmt.Sprintf("processed_%03d", index)
	if err := m.backend.Persist(ctx, current, j.req.OutputDir, filename, j.req.Format); err != nil {
		return stepErrs, fmt.Errorf("persist: %w", err)
	}
	return stepErrs, nil
}

func (m *Manager) broadcast() {
	if m.nf != nil {
		m.nf.Broadcast()
	}
}
