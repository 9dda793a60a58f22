package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/lumagraph-labs/lumagraph/internal/engine"
)

// newRunCommand creates the run command.
func newRunCommand() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "run <workflow>",
		Short: "Execute a workflow against the backend",
		Long: `Execute a stored workflow in dependency order.

Nodes are dispatched one at a time. A failing operator is recorded and
execution continues with the previous artifact; only a missing source
image aborts the run. Press Ctrl-C to cancel between nodes.`,
		Example: `  # Run a workflow from the workspace
  lumagraph run portrait-touchup

  # Machine-readable result
  lumagraph run portrait-touchup --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(args[0], jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the run result as JSON")
	return cmd
}

func runRun(name string, jsonOutput bool) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	g, err := ws.Load(name)
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	client := newBackendClient()
	eng := engine.New(engine.Config{
		Backend: client,
		Lister:  client,
		Store:   store,
		Logger:  logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, runErr := eng.Run(ctx, g)

	if jsonOutput {
		out := map[string]any{
			"status":     result.Status,
			"artifact":   result.Artifact,
			"dispatched": result.Dispatched,
			"run_id":     result.RunID,
		}
		var errs []string
		for _, e := range result.Errors {
			errs = append(errs, e.Error())
		}
		out["errors"] = errs
		if err := json.NewEncoder(os.Stdout).Encode(out); err != nil {
			return err
		}
		return runErr
	}

	fmt.Printf("Workflow: %s\n", name)
	fmt.Printf("Status:   %s\n", result.Status)
	if result.Artifact != "" {
		fmt.Printf("Artifact: %s\n", result.Artifact)
	}
	fmt.Printf("Nodes:    %d dispatched, %d failed\n", result.Dispatched, len(result.Errors))

	if result.RunID != "" {
		if nodeRuns, err := store.GetNodeRunsForRun(result.RunID); err == nil && len(nodeRuns) > 0 {
			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Node", "Kind", "Operation", "Status", "Time (ms)", "Error"})
			for _, nr := range nodeRuns {
				t.AppendRow(table.Row{nr.NodeID, nr.Kind, nr.Operation, nr.Status, nr.ExecutionMS, nr.Error})
			}
			t.Render()
		}
	}

	for _, e := range result.Errors {
		fmt.Fprintf(os.Stderr, "error: %v\n", e)
	}
	return runErr
}
