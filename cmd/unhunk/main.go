// cmd/unhunk/main.go
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"unhunk/internal/config"
	"unhunk/internal/journal"
	"unhunk/internal/logging"
	"unhunk/internal/vcs"
	"unhunk/internal/workspace"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	repoFlag    string
	configFlag  string
	backendFlag string
	journalFlag bool
	jsonFlag    bool

	cfg    *config.Config
	logger *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "unhunk",
	Short: "Inspect and selectively revert working-tree changes",
	Long: `unhunk shows the changes of a git working tree as structured hunks and
reverts them selectively: a whole hunk, a range of lines, or a whole file.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func setup(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !stderrors.As(err, &pathErr) {
			return fmt.Errorf("loading .env: %w", err)
		}
	}

	var err error
	cfg, err = config.LoadOrDefault(configFlag)
	if err != nil {
		return err
	}
	if backendFlag != "" {
		cfg.Git.Backend = vcs.Backend(backendFlag)
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if journalFlag {
		cfg.Journal.Enabled = true
	}

	// the CLI talks to the terminal; only warnings and above are logged
	logger, err = logging.NewLogger("warn", true)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	return nil
}

// openWorkspace opens the repository named by --repo. The returned close
// function releases the journal when one was opened.
func openWorkspace(ctx context.Context) (*workspace.Workspace, func(), error) {
	opts := workspace.Options{
		Backend:      cfg.Git.Backend,
		GitBinary:    cfg.Git.Binary,
		ContextLines: cfg.Git.ContextLines,
		Logger:       logger.Logger,
	}
	closeFn := func() {}

	var registry *journal.Registry
	if cfg.Journal.Enabled {
		registry = journal.NewRegistry(journal.Options{
			CacheSize: cfg.Journal.CacheSize,
			Logger:    logger.Logger,
		})
		opts.Journals = registry
		closeFn = func() {
			if err := registry.Close(); err != nil {
				logger.Warn("closing journal", zap.Error(err))
			}
		}
	}

	ws, err := workspace.Open(ctx, repoFlag, opts)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return ws, closeFn, nil
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&repoFlag, "repo", "C", ".", "Path inside the repository")
	pf.StringVar(&configFlag, "config", "", "Config file (default config/config.$UNHUNK_ENV.json)")
	pf.StringVar(&backendFlag, "backend", "", "Git backend: gogit or exec")
	pf.BoolVar(&journalFlag, "journal", false, "Record reversions so they can be undone")
	pf.BoolVar(&jsonFlag, "json", false, "Print JSON instead of text")

	rootCmd.AddCommand(
		statusCmd,
		diffCmd,
		revertHunkCmd,
		revertLinesCmd,
		revertFileCmd,
		stageCmd,
		unstageCmd,
		historyCmd,
		undoCmd,
		watchCmd,
	)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
