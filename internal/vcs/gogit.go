package vcs

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"unicode/utf8"

	"unhunk/internal/diff"
	"unhunk/internal/errors"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/filesystem"
	gitdiff "github.com/go-git/go-git/v5/utils/diff"
	"github.com/sergi/go-diff/diffmatchpatch"
	"go.uber.org/zap"
)

// GoGit implements Repository with go-git. Line diffs come from go-git's
// line differ and are grouped into hunks by diff.Unified.
type GoGit struct {
	repo         *git.Repository
	worktree     *git.Worktree
	root         string
	gitDir       string
	contextLines int
	logger       *zap.Logger
}

func OpenGoGit(root string, opts Options) (*GoGit, error) {
	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return nil, errors.RepositoryUnavailable(fmt.Sprintf("opening repository at %s", root), err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, errors.RepositoryUnavailable("repository has no working tree", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	contextLines := opts.ContextLines
	if contextLines <= 0 {
		contextLines = diff.DefaultContextLines
	}

	root = worktree.Filesystem.Root()
	gitDir := filepath.Join(root, git.GitDirName)
	if fs, ok := repo.Storer.(*filesystem.Storage); ok {
		gitDir = fs.Filesystem().Root()
	}

	return &GoGit{
		repo:         repo,
		worktree:     worktree,
		root:         root,
		gitDir:       gitDir,
		contextLines: contextLines,
		logger:       logger,
	}, nil
}

func (g *GoGit) Root() string { return g.root }

func (g *GoGit) GitDir() string { return g.gitDir }

func (g *GoGit) Branch(ctx context.Context) (string, error) {
	head, err := g.repo.Head()
	if stderrors.Is(err, plumbing.ErrReferenceNotFound) {
		// unborn branch
		return "HEAD", nil
	}
	if err != nil {
		return "", errors.RepositoryUnavailable("resolving HEAD", err)
	}
	if head.Name().IsBranch() {
		return head.Name().Short(), nil
	}
	return "HEAD", nil
}

func (g *GoGit) Status(ctx context.Context) ([]PathStatus, error) {
	st, err := g.worktree.Status()
	if err != nil {
		return nil, errors.RepositoryUnavailable("reading status", err)
	}

	out := make([]PathStatus, 0, len(st))
	for path, fs := range st {
		flags := stagingFlags(fs.Staging) | worktreeFlags(fs.Worktree)
		if flags == 0 {
			continue
		}
		out = append(out, PathStatus{Path: path, Flags: flags})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func stagingFlags(code git.StatusCode) StatusFlags {
	switch code {
	case git.Added, git.Copied:
		return IndexNew
	case git.Modified, git.UpdatedButUnmerged:
		return IndexModified
	case git.Deleted:
		return IndexDeleted
	case git.Renamed:
		return IndexRenamed
	default:
		return 0
	}
}

func worktreeFlags(code git.StatusCode) StatusFlags {
	switch code {
	case git.Untracked:
		return WorktreeNew
	case git.Modified, git.UpdatedButUnmerged:
		return WorktreeModified
	case git.Deleted:
		return WorktreeDeleted
	case git.Renamed:
		return WorktreeRenamed
	default:
		return 0
	}
}

func (g *GoGit) IsTracked(ctx context.Context, path string) (bool, error) {
	_, ok, err := g.indexEntry(path)
	return ok, err
}

func (g *GoGit) Diff(ctx context.Context, path string, mode Mode, emit func(diff.Event) error) error {
	var oldText, newText string
	var err error

	switch mode {
	case IndexVsHead:
		if oldText, err = g.headText(path); err != nil {
			return err
		}
		if newText, err = g.indexText(path); err != nil {
			return err
		}
	default:
		if oldText, err = g.indexText(path); err != nil {
			return err
		}
		if newText, err = g.worktreeText(path); err != nil {
			return err
		}
	}

	g.logger.Debug("computing diff",
		zap.String("path", path),
		zap.Stringer("mode", mode),
	)
	return diff.Unified(LineEdits(oldText, newText), g.contextLines, emit)
}

// LineEdits computes the line-level edit script turning oldText into
// newText. Within each changed region deletions precede insertions.
func LineEdits(oldText, newText string) []diff.Edit {
	var edits []diff.Edit
	var deleted, inserted string
	flush := func() {
		if deleted != "" {
			edits = append(edits, diff.Edit{Op: diff.OpDelete, Text: deleted})
		}
		if inserted != "" {
			edits = append(edits, diff.Edit{Op: diff.OpInsert, Text: inserted})
		}
		deleted, inserted = "", ""
	}

	for _, d := range gitdiff.Do(oldText, newText) {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			deleted += d.Text
		case diffmatchpatch.DiffInsert:
			inserted += d.Text
		default:
			flush()
			edits = append(edits, diff.Edit{Op: diff.OpEqual, Text: d.Text})
		}
	}
	flush()
	return edits
}

func (g *GoGit) HeadContent(ctx context.Context, path string) ([]byte, error) {
	tree, err := g.headTree()
	if err != nil {
		return nil, err
	}
	if tree == nil {
		return nil, errors.RepositoryUnavailable("repository has no HEAD commit", nil)
	}
	file, err := tree.File(path)
	if stderrors.Is(err, object.ErrFileNotFound) {
		return nil, errors.NotFound("path not present in HEAD").WithPath(path)
	}
	if err != nil {
		return nil, errors.IO("reading HEAD blob", err).WithPath(path)
	}
	r, err := file.Reader()
	if err != nil {
		return nil, errors.IO("reading HEAD blob", err).WithPath(path)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.IO("reading HEAD blob", err).WithPath(path)
	}
	return data, nil
}

func (g *GoGit) Stage(ctx context.Context, path string) error {
	if _, err := g.worktree.Filesystem.Lstat(path); os.IsNotExist(err) {
		if _, err := g.worktree.Remove(path); err != nil {
			return errors.IO("staging deletion", err).WithPath(path)
		}
		return nil
	}
	if _, err := g.worktree.Add(path); err != nil {
		return errors.IO("staging file", err).WithPath(path)
	}
	return nil
}

func (g *GoGit) Unstage(ctx context.Context, path string) error {
	idx, err := g.repo.Storer.Index()
	if err != nil {
		return errors.RepositoryUnavailable("reading index", err)
	}
	tree, err := g.headTree()
	if err != nil {
		return err
	}

	var headEntry *object.TreeEntry
	if tree != nil {
		headEntry, err = tree.FindEntry(path)
		if err != nil && !stderrors.Is(err, object.ErrEntryNotFound) && !stderrors.Is(err, object.ErrDirectoryNotFound) {
			return errors.IO("reading HEAD tree", err).WithPath(path)
		}
	}

	if headEntry == nil {
		if _, err := idx.Remove(path); err != nil {
			if stderrors.Is(err, index.ErrEntryNotFound) {
				return errors.NotFound("path is not staged").WithPath(path)
			}
			return errors.IO("removing index entry", err).WithPath(path)
		}
	} else {
		blob, err := g.repo.BlobObject(headEntry.Hash)
		if err != nil {
			return errors.IO("reading HEAD blob", err).WithPath(path)
		}
		entry, err := idx.Entry(path)
		if stderrors.Is(err, index.ErrEntryNotFound) {
			entry = idx.Add(path)
		} else if err != nil {
			return errors.IO("reading index entry", err).WithPath(path)
		}
		entry.Hash = headEntry.Hash
		entry.Mode = headEntry.Mode
		entry.Size = uint32(blob.Size)
	}

	if err := g.repo.Storer.SetIndex(idx); err != nil {
		return errors.IO("writing index", err).WithPath(path)
	}
	return nil
}

// headTree returns the HEAD tree, or nil when the branch is unborn.
func (g *GoGit) headTree() (*object.Tree, error) {
	head, err := g.repo.Head()
	if stderrors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.RepositoryUnavailable("resolving HEAD", err)
	}
	commit, err := g.repo.CommitObject(head.Hash())
	if err != nil {
		return nil, errors.RepositoryUnavailable("reading HEAD commit", err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, errors.RepositoryUnavailable("reading HEAD tree", err)
	}
	return tree, nil
}

func (g *GoGit) indexEntry(path string) (*index.Entry, bool, error) {
	idx, err := g.repo.Storer.Index()
	if err != nil {
		return nil, false, errors.RepositoryUnavailable("reading index", err)
	}
	entry, err := idx.Entry(path)
	if stderrors.Is(err, index.ErrEntryNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.IO("reading index entry", err).WithPath(path)
	}
	return entry, true, nil
}

// headText returns the HEAD version of path, empty when absent.
func (g *GoGit) headText(path string) (string, error) {
	tree, err := g.headTree()
	if err != nil || tree == nil {
		return "", err
	}
	file, err := tree.File(path)
	if stderrors.Is(err, object.ErrFileNotFound) {
		return "", nil
	}
	if err != nil {
		return "", errors.IO("reading HEAD blob", err).WithPath(path)
	}
	r, err := file.Reader()
	if err != nil {
		return "", errors.IO("reading HEAD blob", err).WithPath(path)
	}
	defer r.Close()
	return readText(path, r)
}

// indexText returns the staged version of path, empty when absent.
func (g *GoGit) indexText(path string) (string, error) {
	entry, ok, err := g.indexEntry(path)
	if err != nil || !ok {
		return "", err
	}
	blob, err := g.repo.BlobObject(entry.Hash)
	if err != nil {
		return "", errors.IO("reading index blob", err).WithPath(path)
	}
	r, err := blob.Reader()
	if err != nil {
		return "", errors.IO("reading index blob", err).WithPath(path)
	}
	defer r.Close()
	return readText(path, r)
}

// worktreeText returns the working-tree version of path, empty when the
// file has been deleted.
func (g *GoGit) worktreeText(path string) (string, error) {
	f, err := g.worktree.Filesystem.Open(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", errors.IO("opening worktree file", err).WithPath(path)
	}
	defer f.Close()
	return readText(path, f)
}

func readText(path string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", errors.IO("reading content", err).WithPath(path)
	}
	if !utf8.Valid(data) {
		return "", errors.NotUTF8(path)
	}
	return string(data), nil
}
