package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lumagraph-labs/lumagraph/internal/batch"
	"github.com/lumagraph-labs/lumagraph/internal/catalog"
	"github.com/lumagraph-labs/lumagraph/internal/engine"
	"github.com/lumagraph-labs/lumagraph/internal/notify"
	"github.com/lumagraph-labs/lumagraph/internal/server"
)

// newServeCommand creates the serve command.
func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the workbench server",
		Long: `Start the HTTP server backing the canvas client: workflow storage,
run control, live progress over SSE, batch jobs, and the operation
catalog proxied from the backend.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	client := newBackendClient()
	nf := notify.New()

	eng := engine.New(engine.Config{
		Backend:  client,
		Lister:   client,
		Store:    store,
		Logger:   logger,
		Notifier: nf,
	})

	cat := catalog.New()
	// Best-effort prefetch; the server retries lazily when the backend
	// comes up later.
	prefetchCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := cat.Refresh(prefetchCtx, client); err != nil {
		logger.Warn("operation catalog unavailable", "error", err)
	}
	cancel()

	srv := server.NewServer(server.Config{
		Engine:        eng,
		Store:         store,
		Workspace:     ws,
		Batch:         batch.NewManager(client, logger, nf),
		Catalog:       cat,
		Backend:       client,
		Notifier:      nf,
		Port:          cfg.Port,
		Watch:         cfg.Watch,
		SessionSecret: cfg.SessionSecret,
		Logger:        logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Serve(ctx)
}
