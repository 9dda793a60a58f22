package engine

// run.go - Sequential execution driver for pipeline graphs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lumagraph-labs/lumagraph/internal/graph"
	"github.com/lumagraph-labs/lumagraph/internal/scheduler"
	"github.com/lumagraph-labs/lumagraph/pkg/core"
)

// ErrNoSource is returned when a pipeline has no enabled load node, or
// when no artifact can be resolved for it. Nothing is dispatched to the
// backend in that case.
var ErrNoSource = errors.New("no source image available")

// Run executes the graph in scheduler order, one node at a time.
//
// Load nodes establish the current artifact, operators replace it on
// success, save and preview nodes consume it. A failing node is recorded
// and execution continues with the artifact unchanged; only a missing
// source aborts the run. Cancellation is honored between nodes, never
// mid-dispatch. Progress counts dispatched nodes over enabled
// dispatchable nodes; a pipeline with nothing to dispatch completes at
// once with 100%.
func (e *Engine) Run(ctx context.Context, g *graph.Graph) (*Result, error) {
	e.logger.Info("starting run", "workflow", g.Name(), "nodes", g.NodeCount())

	order := scheduler.Order(g.Nodes(), g.Edges())

	hasLoad := false
	dispatchable := 0
	for _, n := range order {
		if n.Disabled {
			continue
		}
		if n.Kind == core.KindLoad {
			hasLoad = true
		}
		if n.Kind.Dispatchable() {
			dispatchable++
		}
	}

	var run *core.Run
	if e.store != nil {
		var err error
		run, err = e.store.CreateRun(g.Name())
		if err != nil {
			e.logger.Error("failed to create run record", "error", err)
		}
	}
	runID := ""
	if run != nil {
		runID = run.ID
	}

	e.setState(func(s *State) {
		s.Running = true
		s.Status = StatusRunning
		s.RunID = runID
	})

	if !hasLoad {
		e.logger.Info("run aborted", "workflow", g.Name(), "reason", "no enabled load node")
		e.finishRun(runID, core.RunStatusFailed, ErrNoSource.Error())
		e.setState(func(s *State) {
			s.Running = false
			s.Status = StatusNoSource
			s.NodeID = ""
			s.Message = ErrNoSource.Error()
		})
		e.clearCancel()
		return &Result{Status: StatusNoSource, RunID: runID}, ErrNoSource
	}

	// Pre-record a pending row per dispatchable node so the history shows
	// the full plan even when the run is cancelled early.
	nodeRuns := make(map[string]*core.NodeRun, dispatchable)
	if e.store != nil {
		for _, n := range order {
			if n.Disabled || !n.Kind.Dispatchable() {
				continue
			}
			nr := &core.NodeRun{
				RunID:     runID,
				NodeID:    n.ID,
				Kind:      n.Kind,
				Operation: operationName(n),
				Status:    core.NodeRunStatusPending,
			}
			if err := e.store.RecordNodeRun(nr); err != nil {
				e.logger.Error("failed to record node run", "node", n.ID, "error", err)
				continue
			}
			nodeRuns[n.ID] = nr
		}
	}

	result := &Result{Status: StatusCompleted, RunID: runID}
	artifact := ""
	completed := 0
	lastWasError := false

	for i, n := range order {
		if err := ctx.Err(); err != nil {
			e.logger.Info("run cancelled", "workflow", g.Name(), "node", n.ID)
			e.skipRemaining(order[i:], nodeRuns)
			e.finishRun(runID, core.RunStatusCancelled, "")
			e.setState(func(s *State) {
				s.Running = false
				s.Status = StatusCancelled
				s.NodeID = ""
				s.Message = "run cancelled"
			})
			e.clearCancel()
			result.Status = StatusCancelled
			result.Artifact = artifact
			return result, context.Canceled
		}

		if n.Disabled || n.Kind == core.KindNote {
			continue
		}

		if n.Kind == core.KindLoad {
			resolved, err := e.resolveSource(ctx, n)
			if err != nil {
				if artifact != "" {
					// A source is already established; a later load that
					// cannot resolve is an ordinary node failure.
					result.Errors = append(result.Errors, fmt.Errorf("node %s: %w", n.ID, err))
					e.setState(func(s *State) {
						s.Errors = append(s.Errors, err.Error())
						s.Message = err.Error()
					})
					lastWasError = true
					continue
				}
				e.logger.Info("run aborted", "workflow", g.Name(), "reason", "source resolution failed", "error", err)
				e.skipRemaining(order[i:], nodeRuns)
				e.finishRun(runID, core.RunStatusFailed, ErrNoSource.Error())
				e.setState(func(s *State) {
					s.Running = false
					s.Status = StatusNoSource
					s.NodeID = ""
					s.Message = ErrNoSource.Error()
				})
				e.clearCancel()
				result.Status = StatusNoSource
				return result, ErrNoSource
			}
			artifact = resolved
			e.setState(func(s *State) {
				s.Artifact = artifact
				s.Message = "source ready"
			})
			lastWasError = false
			continue
		}

		// Dispatchable node.
		e.setState(func(s *State) { s.NodeID = n.ID })
		nr := nodeRuns[n.ID]
		if nr != nil {
			_ = e.store.UpdateNodeRun(nr.ID, core.NodeRunStatusRunning, "", 0)
		}

		start := time.Now()
		message, newArtifact, err := e.dispatch(ctx, n, artifact)
		executionMS := time.Since(start).Milliseconds()
		completed++

		if err != nil {
			e.logger.Debug("node failed", "node", n.ID, "kind", n.Kind, "error", err)
			if nr != nil {
				_ = e.store.UpdateNodeRun(nr.ID, core.NodeRunStatusFailed, err.Error(), executionMS)
			}
			result.Errors = append(result.Errors, fmt.Errorf("node %s: %w", n.ID, err))
			errText := err.Error()
			e.setState(func(s *State) {
				s.Errors = append(s.Errors, errText)
				s.Message = errText
				s.Percent = percent(completed, dispatchable)
			})
			lastWasError = true
		} else {
			e.logger.Debug("node executed", "node", n.ID, "kind", n.Kind, "exec_ms", executionMS)
			if nr != nil {
				_ = e.store.UpdateNodeRun(nr.ID, core.NodeRunStatusSuccess, "", executionMS)
			}
			if newArtifact != "" {
				artifact = newArtifact
			}
			e.setState(func(s *State) {
				s.Message = message
				s.Artifact = artifact
				s.Percent = percent(completed, dispatchable)
			})
			lastWasError = false
		}
		result.Dispatched++
	}

	errMsg := ""
	if len(result.Errors) > 0 {
		errMsg = errors.Join(result.Errors...).Error()
	}
	e.finishRun(runID, core.RunStatusCompleted, errMsg)
	e.logger.Info("run completed", "workflow", g.Name(),
		"dispatched", result.Dispatched, "errors", len(result.Errors))

	e.setState(func(s *State) {
		s.Running = false
		s.Status = StatusCompleted
		s.NodeID = ""
		s.Percent = 100
		if !lastWasError {
			s.Message = "pipeline completed"
		}
	})
	e.clearCancel()
	result.Artifact = artifact
	return result, nil
}

// dispatch performs the external call for one node and returns a status
// message plus the replacement artifact handle, if any.
func (e *Engine) dispatch(ctx context.Context, n *core.Node, artifact string) (string, string, error) {
	if artifact == "" {
		return "", "", fmt.Errorf("no artifact available for %s node", n.Kind)
	}

	switch data := n.Data.(type) {
	case *core.OperatorPayload:
		out, err := e.backend.Apply(ctx, artifact, data.Operation, data.Params)
		if err != nil {
			return "", "", fmt.Errorf("%s: %w", data.Operation, err)
		}
		return fmt.Sprintf("applied %s", data.Operation), out, nil

	case *core.SavePayload:
		if err := e.backend.Persist(ctx, artifact, data.Directory, data.Filename, data.Format); err != nil {
			return "", "", fmt.Errorf("save: %w", err)
		}
		return "saved " + data.Filename, "", nil

	case *core.PreviewPayload:
		ref, err := e.backend.FetchPreview(ctx, artifact)
		if err != nil {
			return "", "", fmt.Errorf("preview: %w", err)
		}
		// The preview reference lands on the node itself so the canvas
		// can render it after the run.
		data.PreviewRef = ref
		return "preview updated", "", nil

	default:
		return "", "", fmt.Errorf("node kind %s is not dispatchable", n.Kind)
	}
}

// resolveSource determines the artifact a load node establishes. A load
// without an explicit artifact id falls back to the first artifact of the
// backend session.
func (e *Engine) resolveSource(ctx context.Context, n *core.Node) (string, error) {
	data := n.Data.(*core.LoadPayload)
	if data.ArtifactID != "" {
		return data.ArtifactID, nil
	}
	if e.lister == nil {
		return "", errors.New("load node names no artifact and no session is available")
	}
	images, err := e.lister.ListImages(ctx)
	if err != nil {
		return "", fmt.Errorf("listing session artifacts: %w", err)
	}
	if len(images) == 0 {
		return "", errors.New("session has no artifacts")
	}
	return images[0].ID, nil
}

// skipRemaining marks every still-pending node run as skipped.
func (e *Engine) skipRemaining(rest []*core.Node, nodeRuns map[string]*core.NodeRun) {
	if e.store == nil {
		return
	}
	for _, n := range rest {
		nr := nodeRuns[n.ID]
		if nr == nil {
			continue
		}
		_ = e.store.UpdateNodeRun(nr.ID, core.NodeRunStatusSkipped, "run cancelled", 0)
		delete(nodeRuns, n.ID)
	}
}

// finishRun closes the run record, if history is enabled.
func (e *Engine) finishRun(runID string, status core.RunStatus, errMsg string) {
	if e.store == nil || runID == "" {
		return
	}
	if err := e.store.CompleteRun(runID, status, errMsg); err != nil {
		e.logger.Error("failed to complete run record", "run_id", runID, "error", err)
	}
}

// clearCancel releases the run slot so the next Start can proceed.
func (e *Engine) clearCancel() {
	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.running = false
	e.mu.Unlock()
}

// percent converts completed/total into a clamped 0-100 progress value.
func percent(completed, total int) int {
	if total <= 0 {
		return 100
	}
	p := completed * 100 / total
	if p > 100 {
		p = 100
	}
	return p
}

// operationName extracts the display operation of a node for run history.
func operationName(n *core.Node) string {
	switch data := n.Data.(type) {
	case *core.OperatorPayload:
		return data.Operation
	case *core.SavePayload:
		return "save"
	case *core.PreviewPayload:
		return "preview"
	}
	return ""
}
