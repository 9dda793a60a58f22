package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// newOpsCommand creates the ops command.
func newOpsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ops",
		Short: "List the backend's operation catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOps(cmd.Context())
		},
	}
}

func runOps(ctx context.Context) error {
	client := newBackendClient()
	ops, categories, err := client.ListOperations(ctx)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Name", "Display Name", "Category", "Params"})
	for _, op := range ops {
		t.AppendRow(table.Row{op.Name, op.DisplayName, op.Category, len(op.Params)})
	}
	t.Render()
	fmt.Printf("(%d operations in %d categories)\n", len(ops), len(categories))
	return nil
}

// newImagesCommand creates the images command.
func newImagesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "images",
		Short: "List the artifacts in the backend session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImages(cmd.Context())
		},
	}
}

func runImages(ctx context.Context) error {
	client := newBackendClient()
	images, err := client.ListImages(ctx)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Name", "Source"})
	for _, img := range images {
		t.AppendRow(table.Row{img.ID, img.Name, img.SourceID})
	}
	t.Render()
	fmt.Printf("(%d artifacts)\n", len(images))
	return nil
}
