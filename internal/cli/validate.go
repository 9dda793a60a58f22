package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/lumagraph-labs/lumagraph/internal/catalog"
	"github.com/lumagraph-labs/lumagraph/internal/scheduler"
	"github.com/lumagraph-labs/lumagraph/pkg/core"
)

// newValidateCommand creates the validate command.
func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <workflow>",
		Short: "Validate a workflow and show its execution plan",
		Long: `Load a stored workflow, validate every node and edge, and print the
order in which the nodes would execute. When the backend is reachable,
operator nodes are also checked against its operation catalog.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.Context(), args[0])
		},
	}
}

func runValidate(ctx context.Context, name string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	g, err := ws.Load(name)
	if err != nil {
		return err
	}

	fmt.Printf("Workflow %q is valid: %d nodes, %d edges\n", name, g.NodeCount(), g.EdgeCount())

	// Catalog checks are advisory; an unreachable backend never fails
	// validation.
	cat := catalog.New()
	catCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := cat.Refresh(catCtx, newBackendClient()); err != nil {
		logger.Debug("operation catalog unavailable", "error", err)
	}
	cancel()

	order := scheduler.Order(g.Nodes(), g.Edges())
	if len(order) == 0 {
		return nil
	}

	var warnings []string
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Node", "Kind", "Detail", "Enabled"})
	for i, n := range order {
		detail := ""
		switch data := n.Data.(type) {
		case *core.LoadPayload:
			detail = data.ArtifactID
		case *core.OperatorPayload:
			detail = data.Operation
			if !n.Disabled && cat.Len() > 0 {
				if _, err := cat.ResolveParams(data.Operation, data.Params); err != nil {
					warnings = append(warnings, fmt.Sprintf("node %s: %v", n.ID, err))
				}
			}
		case *core.SavePayload:
			detail = data.Directory + "/" + data.Filename
		case *core.NotePayload:
			detail = data.Text
		}
		t.AppendRow(table.Row{i + 1, n.ID, n.Kind, detail, !n.Disabled})
	}
	t.Render()

	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	return nil
}
