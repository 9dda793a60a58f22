// Package cli provides the command-line interface for Lumagraph.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lumagraph-labs/lumagraph/internal/remote"
	"github.com/lumagraph-labs/lumagraph/internal/state"
	"github.com/lumagraph-labs/lumagraph/internal/workspace"
)

var (
	cfgFile string
	cfg     *Config
	logger  *slog.Logger
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "lumagraph",
		Short: "Lumagraph - Image Pipeline Workbench",
		Long: `Lumagraph is a node-graph workbench for image processing pipelines.

Workflows are graphs of load, operator, save, and preview nodes. The graph
is executed in dependency order against a remote image-processing backend,
with run history and live progress tracking.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			var err error
			cfg, err = LoadConfig(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger = newLogger(cfg.Verbose)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./lumagraph.yaml)")
	rootCmd.PersistentFlags().String("backend-url", "", "Base URL of the image-processing backend")
	rootCmd.PersistentFlags().String("workspace-dir", "", "Directory holding workflow files")
	rootCmd.PersistentFlags().String("state-path", "", "Path to the run history database")
	rootCmd.PersistentFlags().Int("port", 0, "Workbench server port")
	rootCmd.PersistentFlags().Bool("watch", true, "Watch the workspace directory for changes")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(newVersionCommand())
	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newOpsCommand())
	rootCmd.AddCommand(newImagesCommand())
	rootCmd.AddCommand(newRunsCommand())
	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newCompletionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// newLogger builds the CLI logger. Verbose mode enables debug output.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newBackendClient builds the remote client from the loaded config.
func newBackendClient() *remote.Client {
	return remote.NewClient(remote.Config{BaseURL: cfg.BackendURL, Logger: logger})
}

// openWorkspace opens the configured workflow directory.
func openWorkspace() (*workspace.Workspace, error) {
	return workspace.New(cfg.WorkspaceDir, logger)
}

// openStore opens and migrates the run history database.
func openStore() (*state.SQLiteStore, error) {
	if dir := filepath.Dir(cfg.StatePath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	store := state.NewSQLiteStore(logger)
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// newCompletionCommand creates the completion command.
func newCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for Lumagraph.

To load completions:

Bash:
  $ source <(lumagraph completion bash)

Zsh:
  $ lumagraph completion zsh > "${fpath[1]}/_lumagraph"

Fish:
  $ lumagraph completion fish | source

PowerShell:
  PS> lumagraph completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}
	return cmd
}
