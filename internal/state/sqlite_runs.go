package state

// sqlite_runs.go - Run and node-run history operations

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lumagraph-labs/lumagraph/pkg/core"
)

// CreateRun creates a new pipeline run in the running state.
func (s *SQLiteStore) CreateRun(workflow string) (*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &core.Run{
		ID:        generateID(),
		Workflow:  workflow,
		Status:    core.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}

	_, err := s.db.Exec(
		`INSERT INTO runs (id, workflow, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Workflow, run.Status, run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	return run, nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(id string) (*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &core.Run{}
	var completedAt sql.NullTime
	var errMsg sql.NullString

	err := s.db.QueryRow(
		`SELECT id, workflow, status, started_at, completed_at, error FROM runs WHERE id = ?`,
		id,
	).Scan(&run.ID, &run.Workflow, &run.Status, &run.StartedAt, &completedAt, &errMsg)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	run.Error = errMsg.String
	return run, nil
}

// CompleteRun finalizes a run with a terminal status.
func (s *SQLiteStore) CompleteRun(id string, status core.RunStatus, errMsg string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	_, err := s.db.Exec(
		`UPDATE runs SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		status, time.Now().UTC(), errMsg, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// GetLatestRun retrieves the most recently started run of a workflow.
func (s *SQLiteStore) GetLatestRun(workflow string) (*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &core.Run{}
	var completedAt sql.NullTime
	var errMsg sql.NullString

	err := s.db.QueryRow(
		`SELECT id, workflow, status, started_at, completed_at, error FROM runs
		 WHERE workflow = ? ORDER BY started_at DESC LIMIT 1`,
		workflow,
	).Scan(&run.ID, &run.Workflow, &run.Status, &run.StartedAt, &completedAt, &errMsg)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}

	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	run.Error = errMsg.String
	return run, nil
}

// ListRuns retrieves the most recent runs across all workflows.
func (s *SQLiteStore) ListRuns(limit int) ([]*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(
		`SELECT id, workflow, status, started_at, completed_at, error FROM runs
		 ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*core.Run
	for rows.Next() {
		run := &core.Run{}
		var completedAt sql.NullTime
		var errMsg sql.NullString
		if err := rows.Scan(&run.ID, &run.Workflow, &run.Status, &run.StartedAt, &completedAt, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if completedAt.Valid {
			run.CompletedAt = &completedAt.Time
		}
		run.Error = errMsg.String
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RecordNodeRun inserts a node run row, assigning an ID if absent.
func (s *SQLiteStore) RecordNodeRun(nodeRun *core.NodeRun) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	if nodeRun.ID == "" {
		nodeRun.ID = generateID()
	}
	if nodeRun.Status == "" {
		nodeRun.Status = core.NodeRunStatusPending
	}
	if nodeRun.StartedAt.IsZero() {
		nodeRun.StartedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(
		`INSERT INTO node_runs (id, run_id, node_id, kind, operation, status, error, execution_ms, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nodeRun.ID, nodeRun.RunID, nodeRun.NodeID, nodeRun.Kind, nodeRun.Operation,
		nodeRun.Status, nodeRun.Error, nodeRun.ExecutionMS, nodeRun.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record node run: %w", err)
	}
	return nil
}

// UpdateNodeRun transitions a node run. Terminal statuses also set the
// completion timestamp.
func (s *SQLiteStore) UpdateNodeRun(id string, status core.NodeRunStatus, errMsg string, executionMS int64) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	var completedAt any
	switch status {
	case core.NodeRunStatusSuccess, core.NodeRunStatusFailed, core.NodeRunStatusSkipped:
		completedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(
		`UPDATE node_runs SET status = ?, error = ?, execution_ms = ?, completed_at = ? WHERE id = ?`,
		status, errMsg, executionMS, completedAt, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update node run: %w", err)
	}
	return nil
}

// GetNodeRunsForRun retrieves all node runs of a run, oldest first.
func (s *SQLiteStore) GetNodeRunsForRun(runID string) ([]*core.NodeRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT id, run_id, node_id, kind, operation, status, error, execution_ms, started_at, completed_at
		 FROM node_runs WHERE run_id = ? ORDER BY started_at, id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get node runs: %w", err)
	}
	defer rows.Close()

	var nodeRuns []*core.NodeRun
	for rows.Next() {
		nr := &core.NodeRun{}
		var operation, errMsg sql.NullString
		var completedAt sql.NullTime
		if err := rows.Scan(&nr.ID, &nr.RunID, &nr.NodeID, &nr.Kind, &operation, &nr.Status,
			&errMsg, &nr.ExecutionMS, &nr.StartedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan node run: %w", err)
		}
		nr.Operation = operation.String
		nr.Error = errMsg.String
		if completedAt.Valid {
			nr.CompletedAt = &completedAt.Time
		}
		nodeRuns = append(nodeRuns, nr)
	}
	return nodeRuns, rows.Err()
}
