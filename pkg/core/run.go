package core

import "time"

// RunStatus represents the status of a pipeline run.
type RunStatus string

// Run status constants.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Run represents one pipeline execution session.
type Run struct {
	ID          string
	Workflow    string
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// NodeRunStatus represents the status of a single node within a run.
type NodeRunStatus string

// Node run status constants.
const (
	NodeRunStatusPending NodeRunStatus = "pending"
	NodeRunStatusRunning NodeRunStatus = "running"
	NodeRunStatusSuccess NodeRunStatus = "success"
	NodeRunStatusFailed  NodeRunStatus = "failed"
	NodeRunStatusSkipped NodeRunStatus = "skipped"
)

// NodeRun records the execution of one dispatchable node within a run.
type NodeRun struct {
	ID          string
	RunID       string
	NodeID      string
	Kind        NodeKind
	Operation   string
	Status      NodeRunStatus
	Error       string
	ExecutionMS int64
	StartedAt   time.Time
	CompletedAt *time.Time
}
