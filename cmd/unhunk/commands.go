package main

import (
	"os"
	"strconv"

	"unhunk/internal/errors"
	"unhunk/internal/vcs"
	"unhunk/internal/watch"
	"unhunk/internal/workspace"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show staged and unstaged changes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, done, err := openWorkspace(cmd.Context())
		if err != nil {
			return err
		}
		defer done()

		report, err := ws.Status(cmd.Context())
		if err != nil {
			return err
		}
		if jsonFlag {
			return printJSON(os.Stdout, report)
		}
		printStatus(os.Stdout, report)
		return nil
	},
}

var diffCmd = &cobra.Command{
	Use:   "diff <path>",
	Short: "Show the hunks of a file",
	Long: `Shows the working-tree changes of a file against the index, or the staged
changes against HEAD with --staged. Hunks are numbered for revert-hunk.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		staged, _ := cmd.Flags().GetBool("staged")
		mode := vcs.WorkdirVsIndex
		if staged {
			mode = vcs.IndexVsHead
		}

		ws, done, err := openWorkspace(cmd.Context())
		if err != nil {
			return err
		}
		defer done()

		d, err := ws.FileDiff(cmd.Context(), args[0], mode)
		if err != nil {
			return err
		}
		if jsonFlag {
			return printJSON(os.Stdout, d)
		}
		printDiff(os.Stdout, d)
		return nil
	},
}

var revertHunkCmd = &cobra.Command{
	Use:   "revert-hunk <path> <index>",
	Short: "Revert one hunk of a file's working-tree changes",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := intArg("index", args[1])
		if err != nil {
			return err
		}
		return revert(cmd, func(ws *workspace.Workspace) (*workspace.Result, error) {
			return ws.RevertHunk(cmd.Context(), args[0], index)
		})
	},
}

var revertLinesCmd = &cobra.Command{
	Use:   "revert-lines <path> <start> <end>",
	Short: "Revert the changes touching lines start..end of the current file",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		start, err := intArg("start", args[1])
		if err != nil {
			return err
		}
		end, err := intArg("end", args[2])
		if err != nil {
			return err
		}
		return revert(cmd, func(ws *workspace.Workspace) (*workspace.Result, error) {
			return ws.RevertLines(cmd.Context(), args[0], start, end)
		})
	},
}

var revertFileCmd = &cobra.Command{
	Use:   "revert-file <path>",
	Short: "Restore the HEAD version of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return revert(cmd, func(ws *workspace.Workspace) (*workspace.Result, error) {
			return ws.RevertFile(cmd.Context(), args[0])
		})
	},
}

var stageCmd = &cobra.Command{
	Use:   "stage <path>...",
	Short: "Stage files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, done, err := openWorkspace(cmd.Context())
		if err != nil {
			return err
		}
		defer done()

		for _, p := range args {
			if err := ws.Stage(cmd.Context(), p); err != nil {
				return err
			}
			printDone(os.Stdout, "staged", p)
		}
		return nil
	},
}

var unstageCmd = &cobra.Command{
	Use:   "unstage <path>...",
	Short: "Unstage files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, done, err := openWorkspace(cmd.Context())
		if err != nil {
			return err
		}
		defer done()

		for _, p := range args {
			if err := ws.Unstage(cmd.Context(), p); err != nil {
				return err
			}
			printDone(os.Stdout, "unstaged", p)
		}
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history [path]",
	Short: "List journaled reversions, newest first",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg.Journal.Enabled = true

		ws, done, err := openWorkspace(cmd.Context())
		if err != nil {
			return err
		}
		defer done()

		var path string
		if len(args) == 1 {
			path = args[0]
		}
		entries, err := ws.History(path)
		if err != nil {
			return err
		}
		if jsonFlag {
			return printJSON(os.Stdout, entries)
		}
		printHistory(os.Stdout, entries)
		return nil
	},
}

var undoCmd = &cobra.Command{
	Use:   "undo <id>",
	Short: "Undo a journaled reversion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg.Journal.Enabled = true
		return revert(cmd, func(ws *workspace.Workspace) (*workspace.Result, error) {
			return ws.Undo(cmd.Context(), args[0])
		})
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Reprint status whenever the working tree changes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ws, done, err := openWorkspace(ctx)
		if err != nil {
			return err
		}
		defer done()

		w, err := watch.New(ws.Root(), watch.Options{Logger: logger.Logger})
		if err != nil {
			return err
		}
		defer w.Close()

		show := func() error {
			report, err := ws.Status(ctx)
			if err != nil {
				return err
			}
			printStatus(os.Stdout, report)
			return nil
		}
		if err := show(); err != nil {
			return err
		}

		for {
			select {
			case <-ctx.Done():
				return nil
			case batch, ok := <-w.Changes():
				if !ok {
					return nil
				}
				printChanged(os.Stdout, batch)
				if err := show(); err != nil {
					return err
				}
			}
		}
	},
}

func init() {
	diffCmd.Flags().Bool("staged", false, "Diff the index against HEAD")
}

func revert(cmd *cobra.Command, apply func(*workspace.Workspace) (*workspace.Result, error)) error {
	ws, done, err := openWorkspace(cmd.Context())
	if err != nil {
		return err
	}
	defer done()

	res, err := apply(ws)
	if err != nil {
		return err
	}
	if jsonFlag {
		return printJSON(os.Stdout, res)
	}
	printResult(os.Stdout, res)
	return nil
}

func intArg(name, raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.ValidationError(name+" must be an integer", map[string]string{name: raw})
	}
	return n, nil
}
