// Package engine provides the pipeline execution engine.
// It handles execution ordering, sequential dispatch against the remote
// backend, and live progress reporting.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/lumagraph-labs/lumagraph/internal/graph"
	"github.com/lumagraph-labs/lumagraph/internal/notify"
	"github.com/lumagraph-labs/lumagraph/pkg/core"
)

// Status names the lifecycle phase of the most recent run.
type Status string

// Engine status constants.
const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoSource  Status = "no_source"
)

// ErrRunInFlight is returned by Start when a run is already executing.
var ErrRunInFlight = errors.New("a run is already in flight")

// ArtifactLister resolves the artifacts available in the backend session,
// used when a load node does not name one explicitly.
type ArtifactLister interface {
	ListImages(ctx context.Context) ([]core.ImageInfo, error)
}

// State is a snapshot of run progress, safe to hand to any listener.
type State struct {
	Running  bool     `json:"running"`
	Status   Status   `json:"status"`
	Percent  int      `json:"percent"`
	NodeID   string   `json:"node_id,omitempty"`
	Message  string   `json:"message,omitempty"`
	Errors   []string `json:"errors,omitempty"`
	Artifact string   `json:"artifact,omitempty"`
	RunID    string   `json:"run_id,omitempty"`
}

// Result summarizes a finished run.
type Result struct {
	Status     Status
	Artifact   string
	Dispatched int
	Errors     []error
	RunID      string
}

// Engine executes pipeline graphs against a remote backend, one node at a
// time. A single Engine runs at most one pipeline at any moment; starting
// a second run while one is in flight is rejected, and Toggle turns that
// into a cancel.
type Engine struct {
	backend core.Backend
	lister  ArtifactLister
	store   core.Store
	logger  *slog.Logger
	nf      *notify.Notifier

	mu      sync.Mutex
	state   State
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// Config holds engine configuration.
type Config struct {
	// Backend dispatches node operations (required).
	Backend core.Backend
	// Lister resolves session artifacts for load nodes without an
	// explicit artifact id (optional).
	Lister ArtifactLister
	// Store records run history (optional; runs are not persisted if nil).
	Store core.Store
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
	// Notifier receives a ping on every progress change (optional).
	Notifier *notify.Notifier
}

// New creates an engine. The backend is the only required dependency.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		backend: cfg.Backend,
		lister:  cfg.Lister,
		store:   cfg.Store,
		logger:  logger,
		nf:      cfg.Notifier,
		state:   State{Status: StatusIdle},
	}
}

// State returns a copy of the current progress snapshot.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.state
	s.Errors = append([]string(nil), e.state.Errors...)
	return s
}

// Running reports whether a run is in flight.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Start launches a run in the background and returns immediately.
// Returns ErrRunInFlight if a run is already executing.
func (e *Engine) Start(g *graph.Graph) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return ErrRunInFlight
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.done = make(chan struct{})
	e.running = true
	e.state = State{Running: true, Status: StatusRunning}
	done := e.done
	e.mu.Unlock()

	e.broadcast()

	go func() {
		defer close(done)
		_, _ = e.Run(ctx, g)
	}()
	return nil
}

// Cancel requests cancellation of the in-flight run, if any. The run
// stops at the next node boundary; Cancel does not wait for it.
func (e *Engine) Cancel() {
	e.mu.Lock()
	cancel := e.cancel
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Toggle starts a run, or cancels the one in flight. This is the
// behavior behind a single run/stop control.
func (e *Engine) Toggle(g *graph.Graph) {
	if err := e.Start(g); errors.Is(err, ErrRunInFlight) {
		e.Cancel()
	}
}

// Wait blocks until the in-flight run finishes. Returns immediately when
// nothing is running.
func (e *Engine) Wait() {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Subscribe returns a ping channel fed on every progress change.
// Returns nil when the engine was built without a notifier.
func (e *Engine) Subscribe() chan struct{} {
	if e.nf == nil {
		return nil
	}
	return e.nf.Subscribe()
}

// Unsubscribe releases a channel obtained from Subscribe.
func (e *Engine) Unsubscribe(ch chan struct{}) {
	if e.nf != nil && ch != nil {
		e.nf.Unsubscribe(ch)
	}
}

// setState mutates the snapshot under lock and pings listeners.
func (e *Engine) setState(fn func(*State)) {
	e.mu.Lock()
	fn(&e.state)
	e.mu.Unlock()
	e.broadcast()
}

func (e *Engine) broadcast() {
	if e.nf != nil {
		e.nf.Broadcast()
	}
}
