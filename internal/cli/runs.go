package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// newRunsCommand creates the runs history command.
func newRunsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recent run history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	return cmd
}

func runRuns(limit int) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Run", "Workflow", "Status", "Started", "Duration", "Error"})
	for _, run := range runs {
		t.AppendRow(table.Row{
			run.ID[:8],
			run.Workflow,
			run.Status,
			run.StartedAt.Local().Format("Jan 2 15:04:05"),
			formatRunDuration(run.StartedAt, run.CompletedAt),
			run.Error,
		})
	}
	t.Render()
	return nil
}

// formatRunDuration formats the duration between start and end times.
func formatRunDuration(start time.Time, end *time.Time) string {
	var d time.Duration
	if end != nil {
		d = end.Sub(start)
	} else {
		d = time.Since(start)
	}

	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return d.Round(time.Second).String()
}
