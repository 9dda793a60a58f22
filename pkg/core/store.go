package core

// Store defines the interface for run-history persistence.
type Store interface {
	Open(path string) error
	Close() error
	Migrate() error

	// Run operations
	CreateRun(workflow string) (*Run, error)
	GetRun(id string) (*Run, error)
	CompleteRun(id string, status RunStatus, errMsg string) error
	GetLatestRun(workflow string) (*Run, error)
	ListRuns(limit int) ([]*Run, error)

	// Node run operations
	RecordNodeRun(nodeRun *NodeRun) error
	UpdateNodeRun(id string, status NodeRunStatus, errMsg string, executionMS int64) error
	GetNodeRunsForRun(runID string) ([]*NodeRun, error)
}
