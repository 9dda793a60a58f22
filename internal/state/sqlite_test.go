package state

import (
	"testing"

	"github.com/lumagraph-labs/lumagraph/internal/testutil"
	"github.com/lumagraph-labs/lumagraph/pkg/core"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s := NewSQLiteStore(testutil.NewTestLogger(t))
	if err := s.Open(":memory:"); err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return s
}

func TestInMemoryStoreSharedAcrossConcurrentUse(t *testing.T) {
	s := openTestStore(t)

	// Concurrent use must not land on a pooled connection with its own
	// empty in-memory database.
	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			if _, err := s.CreateRun("concurrent"); err != nil {
				done <- err
				return
			}
			_, err := s.ListRuns(10)
			done <- err
		}()
	}
	for i := 0; i < 8; i++ {
		if err := <-done; err != nil {
			t.Fatalf("concurrent store use failed: %v", err)
		}
	}

	runs, err := s.ListRuns(20)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 8 {
		t.Errorf("expected 8 runs, got %d", len(runs))
	}
}

func TestCreateAndGetRun(t *testing.T) {
	s := openTestStore(t)

	run, err := s.CreateRun("sunset-edit")
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if run.ID == "" {
		t.Error("run should have an ID")
	}
	if run.Status != core.RunStatusRunning {
		t.Errorf("expected running, got %s", run.Status)
	}

	got, err := s.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got == nil || got.Workflow != "sunset-edit" {
		t.Errorf("unexpected run %+v", got)
	}
	if got.CompletedAt != nil {
		t.Error("run should not be completed yet")
	}
}

func TestGetRunMissing(t *testing.T) {
	s := openTestStore(t)
	got, err := s.GetRun("nope")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got != nil {
		t.Error("expected nil for missing run")
	}
}

func TestCompleteRun(t *testing.T) {
	s := openTestStore(t)
	run, _ := s.CreateRun("wf")

	if err := s.CompleteRun(run.ID, core.RunStatusFailed, "node op1: boom"); err != nil {
		t.Fatalf("CompleteRun failed: %v", err)
	}

	got, _ := s.GetRun(run.ID)
	if got.Status != core.RunStatusFailed {
		t.Errorf("expected failed, got %s", got.Status)
	}
	if got.Error != "node op1: boom" {
		t.Errorf("unexpected error %q", got.Error)
	}
	if got.CompletedAt == nil {
		t.Error("completed run should have a completion time")
	}
}

func TestGetLatestRun(t *testing.T) {
	s := openTestStore(t)
	if run, err := s.GetLatestRun("wf"); err != nil || run != nil {
		t.Fatalf("expected nil for no runs, got %v, %v", run, err)
	}

	first, _ := s.CreateRun("wf")
	// Force distinct timestamps; SQLite stores to sub-second precision
	// but two inserts can land in the same tick.
	_, err := s.db.Exec(`UPDATE runs SET started_at = datetime('now', '-1 minute') WHERE id = ?`, first.ID)
	if err != nil {
		t.Fatal(err)
	}
	second, _ := s.CreateRun("wf")
	if _, err := s.CreateRun("other"); err != nil {
		t.Fatal(err)
	}

	latest, err := s.GetLatestRun("wf")
	if err != nil {
		t.Fatalf("GetLatestRun failed: %v", err)
	}
	if latest.ID != second.ID {
		t.Errorf("expected %s, got %s", second.ID, latest.ID)
	}
}

func TestListRuns(t *testing.T) {
	s := openTestStore(t)
	for i := 0; i < 5; i++ {
		if _, err := s.CreateRun("wf"); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := s.ListRuns(3)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 3 {
		t.Errorf("expected 3 runs, got %d", len(runs))
	}
}

func TestNodeRunLifecycle(t *testing.T) {
	s := openTestStore(t)
	run, _ := s.CreateRun("wf")

	nr := &core.NodeRun{
		RunID:     run.ID,
		NodeID:    "op1",
		Kind:      core.KindOperator,
		Operation: "gaussian_blur",
	}
	if err := s.RecordNodeRun(nr); err != nil {
		t.Fatalf("RecordNodeRun failed: %v", err)
	}
	if nr.ID == "" {
		t.Fatal("node run should be assigned an ID")
	}
	if nr.Status != core.NodeRunStatusPending {
		t.Errorf("expected pending, got %s", nr.Status)
	}

	if err := s.UpdateNodeRun(nr.ID, core.NodeRunStatusRunning, "", 0); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateNodeRun(nr.ID, core.NodeRunStatusSuccess, "", 42); err != nil {
		t.Fatal(err)
	}

	nodeRuns, err := s.GetNodeRunsForRun(run.ID)
	if err != nil {
		t.Fatalf("GetNodeRunsForRun failed: %v", err)
	}
	if len(nodeRuns) != 1 {
		t.Fatalf("expected 1 node run, got %d", len(nodeRuns))
	}
	got := nodeRuns[0]
	if got.Status != core.NodeRunStatusSuccess || got.ExecutionMS != 42 {
		t.Errorf("unexpected node run %+v", got)
	}
	if got.Operation != "gaussian_blur" {
		t.Errorf("unexpected operation %q", got.Operation)
	}
	if got.CompletedAt == nil {
		t.Error("terminal node run should have a completion time")
	}
}

func TestNotOpenedGuards(t *testing.T) {
	s := NewSQLiteStore(nil)
	if _, err := s.CreateRun("wf"); err == nil {
		t.Error("CreateRun should fail before Open")
	}
	if err := s.Migrate(); err == nil {
		t.Error("Migrate should fail before Open")
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close before Open should be a no-op: %v", err)
	}
}

func TestMigrationVersion(t *testing.T) {
	s := openTestStore(t)
	v, err := s.MigrationVersion()
	if err != nil {
		t.Fatalf("MigrationVersion failed: %v", err)
	}
	if v < 1 {
		t.Errorf("expected at least version 1, got %d", v)
	}
}
