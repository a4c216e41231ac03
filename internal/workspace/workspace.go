// Package workspace applies diff and reversion operations to a repository
// working tree. Every call reads repository and file state fresh; nothing is
// cached between calls.
//
// Reversions of the same path are not serialized: callers must not issue
// overlapping reversion requests against one file.
package workspace

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"

	"unhunk/internal/diff"
	"unhunk/internal/errors"
	"unhunk/internal/journal"
	"unhunk/internal/revert"
	"unhunk/internal/safe"
	"unhunk/internal/status"
	"unhunk/internal/vcs"
	"unhunk/internal/worktree"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type Options struct {
	Backend      vcs.Backend
	GitBinary    string
	ContextLines int
	Logger       *zap.Logger
	// Journal records reversions for History and Undo. Optional.
	Journal *journal.Journal
	// Journals supplies the journal by git directory when Journal is nil.
	Journals JournalSource
}

// JournalSource hands out the journal kept in a git directory.
type JournalSource interface {
	For(gitDir string) (*journal.Journal, error)
}

// Result describes an applied reversion.
type Result struct {
	Path    string `json:"path"`
	Changed bool   `json:"changed"`
	EntryID string `json:"entryId,omitempty"`
}

type Workspace struct {
	repo    vcs.Repository
	root    string
	journal *journal.Journal
	logger  *zap.Logger
}

// Open opens the repository containing root.
func Open(ctx context.Context, root string, opts Options) (*Workspace, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	repo, err := vcs.Open(ctx, root, vcs.Options{
		Backend:      opts.Backend,
		GitBinary:    opts.GitBinary,
		ContextLines: opts.ContextLines,
		Logger:       opts.Logger,
	})
	if err != nil {
		return nil, err
	}
	j := opts.Journal
	if j == nil && opts.Journals != nil {
		if j, err = opts.Journals.For(repo.GitDir()); err != nil {
			return nil, err
		}
	}
	return &Workspace{
		repo:    repo,
		root:    repo.Root(),
		journal: j,
		logger:  opts.Logger.With(zap.String("repo", repo.Root())),
	}, nil
}

// Root returns the absolute path of the working tree.
func (w *Workspace) Root() string { return w.root }

func (w *Workspace) Status(ctx context.Context) (status.Report, error) {
	branch, err := w.repo.Branch(ctx)
	if err != nil {
		return status.Report{}, err
	}
	records, err := w.repo.Status(ctx)
	if err != nil {
		return status.Report{}, err
	}
	return status.Aggregate(branch, records), nil
}

// FileDiff returns the structured diff of path. In WorkdirVsIndex mode an
// untracked file is reported as a single all-added hunk.
func (w *Workspace) FileDiff(ctx context.Context, path string, mode vcs.Mode) (*diff.Diff, error) {
	_, rel, err := worktree.ResolvePath(w.root, path)
	if err != nil {
		return nil, err
	}
	return w.fileDiff(ctx, rel, mode)
}

func (w *Workspace) fileDiff(ctx context.Context, rel string, mode vcs.Mode) (*diff.Diff, error) {
	if mode == vcs.WorkdirVsIndex {
		tracked, err := w.repo.IsTracked(ctx, rel)
		if err != nil {
			return nil, err
		}
		if !tracked {
			return w.UntrackedDiff(rel)
		}
	}

	b := diff.NewBuilder(rel)
	if err := w.repo.Diff(ctx, rel, mode, b.Push); err != nil {
		return nil, err
	}
	d := b.Finish()
	if err := d.Validate(); err != nil {
		return nil, errors.IO("malformed diff", err).WithPath(rel)
	}
	return d, nil
}

// UntrackedDiff diffs path against an empty baseline.
func (w *Workspace) UntrackedDiff(path string) (*diff.Diff, error) {
	abs, rel, err := worktree.ResolvePath(w.root, path)
	if err != nil {
		return nil, err
	}
	text, err := worktree.ReadText(abs)
	if err != nil {
		return nil, err
	}
	d, err := diff.BuildUntracked(rel, []byte(text))
	if err != nil {
		return nil, err
	}
	return d, nil
}

// RevertHunk undoes one hunk of the working-tree diff of path.
func (w *Workspace) RevertHunk(ctx context.Context, path string, index int) (*Result, error) {
	abs, rel, err := worktree.ResolvePath(w.root, path)
	if err != nil {
		return nil, err
	}
	d, err := w.fileDiff(ctx, rel, vcs.WorkdirVsIndex)
	if err != nil {
		return nil, err
	}
	current, err := readCurrentText(abs)
	if err != nil {
		return nil, err
	}
	updated, err := revert.Hunk(current, d, index)
	if err != nil {
		return nil, err
	}
	return w.apply(abs, rel, journal.OpRevertHunk, fmt.Sprintf("hunk %d", index), []byte(current), []byte(updated))
}

// RevertLines undoes every change touching current lines [start, end].
func (w *Workspace) RevertLines(ctx context.Context, path string, start, end int) (*Result, error) {
	if start < 1 || start > end {
		return nil, errors.InvalidRange(start, end).WithPath(path)
	}
	abs, rel, err := worktree.ResolvePath(w.root, path)
	if err != nil {
		return nil, err
	}
	d, err := w.fileDiff(ctx, rel, vcs.WorkdirVsIndex)
	if err != nil {
		return nil, err
	}
	current, err := readCurrentText(abs)
	if err != nil {
		return nil, err
	}
	updated, err := revert.Lines(current, d, start, end)
	if err != nil {
		return nil, err
	}
	return w.apply(abs, rel, journal.OpRevertLines, fmt.Sprintf("lines %d-%d", start, end), []byte(current), []byte(updated))
}

// RevertFile restores the HEAD version of path into the working tree.
func (w *Workspace) RevertFile(ctx context.Context, path string) (*Result, error) {
	abs, rel, err := worktree.ResolvePath(w.root, path)
	if err != nil {
		return nil, err
	}
	head, err := w.repo.HeadContent(ctx, rel)
	if err != nil {
		return nil, err
	}
	current, err := readCurrent(abs)
	if err != nil {
		return nil, err
	}
	return w.apply(abs, rel, journal.OpRevertFile, "HEAD", current, head)
}

func (w *Workspace) Stage(ctx context.Context, path string) error {
	_, rel, err := worktree.ResolvePath(w.root, path)
	if err != nil {
		return err
	}
	if err := w.repo.Stage(ctx, rel); err != nil {
		return err
	}
	w.logger.Info("staged", zap.String("path", rel))
	return nil
}

func (w *Workspace) Unstage(ctx context.Context, path string) error {
	_, rel, err := worktree.ResolvePath(w.root, path)
	if err != nil {
		return err
	}
	if err := w.repo.Unstage(ctx, rel); err != nil {
		return err
	}
	w.logger.Info("unstaged", zap.String("path", rel))
	return nil
}

// History lists journal entries for path, or for every path when empty.
func (w *Workspace) History(path string) ([]journal.Entry, error) {
	if w.journal == nil {
		return nil, errJournalDisabled()
	}
	if path != "" {
		_, rel, err := worktree.ResolvePath(w.root, path)
		if err != nil {
			return nil, err
		}
		path = rel
	}
	return w.journal.History(path)
}

// Undo rolls back a journaled reversion. The file must still hold exactly
// the content the reversion produced.
func (w *Workspace) Undo(ctx context.Context, id string) (*Result, error) {
	if w.journal == nil {
		return nil, errJournalDisabled()
	}
	entry, err := w.journal.Get(id)
	if err != nil {
		return nil, err
	}
	if entry.Undone() {
		return nil, errors.ValidationError("reversion already undone", map[string]string{"id": id})
	}

	abs, rel, err := worktree.ResolvePath(w.root, entry.Path)
	if err != nil {
		return nil, err
	}
	current, err := readCurrent(abs)
	if err != nil {
		return nil, err
	}
	if safe.Hash(current) != entry.AfterHash {
		return nil, errors.ValidationError("file changed since the reversion was applied",
			map[string]string{"id": id, "path": rel})
	}
	before, err := w.journal.Snapshot(entry.BeforeHash)
	if err != nil {
		return nil, err
	}

	res, err := w.apply(abs, rel, journal.OpUndo, entry.ID, current, before)
	if err != nil {
		return nil, err
	}
	if err := w.journal.MarkUndone(entry); err != nil {
		return nil, err
	}
	return res, nil
}

// apply writes after over the file in one atomic step, journaling it first
// when a journal is configured.
func (w *Workspace) apply(abs, rel string, op journal.Op, detail string, before, after []byte) (*Result, error) {
	res := &Result{Path: rel, Changed: string(before) != string(after)}

	var entry *journal.Entry
	if w.journal != nil {
		e, err := w.journal.Record(rel, op, detail, before, after)
		if err != nil {
			return nil, err
		}
		entry = e
		res.EntryID = e.ID
	}

	if err := worktree.WriteAtomic(abs, after); err != nil {
		if entry != nil {
			err = multierr.Append(err, w.journal.Discard(entry))
		}
		return nil, err
	}

	w.logger.Info("reversion applied",
		zap.String("path", rel),
		zap.String("op", string(op)),
		zap.String("detail", detail),
		zap.Bool("changed", res.Changed),
	)
	return res, nil
}

func errJournalDisabled() error {
	return errors.ValidationError("reversion journal is not enabled", nil)
}

// readCurrent returns the file content, empty when the file was deleted.
func readCurrent(abs string) ([]byte, error) {
	data, err := os.ReadFile(abs)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.IO("reading file", err).WithPath(abs)
	}
	return data, nil
}

// readCurrentText is readCurrent for reversions, which need UTF-8 text.
func readCurrentText(abs string) (string, error) {
	text, err := worktree.ReadText(abs)
	if stderrors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	return text, err
}
