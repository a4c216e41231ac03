// Package vcs is the boundary to the version-control system. A Repository
// answers status queries, reads baselines and produces the line-oriented
// diff event stream that internal/diff folds into hunks.
package vcs

import (
	"context"
	"fmt"
	"strings"

	"unhunk/internal/diff"
	"unhunk/internal/errors"

	"go.uber.org/zap"
)

// Mode selects the two sides of a comparison.
type Mode int

const (
	// WorkdirVsIndex compares the working tree against the staging index.
	WorkdirVsIndex Mode = iota
	// IndexVsHead compares the staging index against the HEAD commit.
	IndexVsHead
)

func (m Mode) String() string {
	if m == IndexVsHead {
		return "index-vs-head"
	}
	return "workdir-vs-index"
}

// StatusFlags is the set of index-level and worktree-level changes of a path.
type StatusFlags uint16

const (
	IndexNew StatusFlags = 1 << iota
	IndexModified
	IndexDeleted
	IndexRenamed
	IndexTypeChange
	WorktreeNew
	WorktreeModified
	WorktreeDeleted
	WorktreeRenamed
	WorktreeTypeChange
)

const (
	indexMask    = IndexNew | IndexModified | IndexDeleted | IndexRenamed | IndexTypeChange
	worktreeMask = WorktreeNew | WorktreeModified | WorktreeDeleted | WorktreeRenamed | WorktreeTypeChange
)

func (f StatusFlags) Has(flag StatusFlags) bool { return f&flag != 0 }

// InIndex reports whether any index-level flag is set.
func (f StatusFlags) InIndex() bool { return f&indexMask != 0 }

// InWorktree reports whether any worktree-level flag is set.
func (f StatusFlags) InWorktree() bool { return f&worktreeMask != 0 }

// PathStatus is one record of a repository status query.
type PathStatus struct {
	Path  string
	Flags StatusFlags
}

// Repository is an opened repository. Paths are slash-separated and
// relative to Root.
type Repository interface {
	// Root returns the absolute path of the working tree.
	Root() string
	// GitDir returns the absolute administrative directory of the working
	// tree. For a linked worktree this is its own directory under the
	// common git directory, never the .git file.
	GitDir() string
	// Branch returns the short name of HEAD, or "HEAD" when detached.
	Branch(ctx context.Context) (string, error)
	// Status lists every path with an index or worktree change.
	Status(ctx context.Context) ([]PathStatus, error)
	// IsTracked reports whether path is present in the index.
	IsTracked(ctx context.Context, path string) (bool, error)
	// Diff streams the comparison of path in the given mode to emit.
	Diff(ctx context.Context, path string, mode Mode, emit func(diff.Event) error) error
	// HeadContent returns the content of path in the HEAD commit.
	HeadContent(ctx context.Context, path string) ([]byte, error)
	// Stage records the worktree state of path in the index.
	Stage(ctx context.Context, path string) error
	// Unstage resets the index entry of path to HEAD.
	Unstage(ctx context.Context, path string) error
}

// Backend names a Repository implementation.
type Backend string

const (
	BackendGoGit Backend = "gogit"
	BackendExec  Backend = "exec"
)

// Options configures Open.
type Options struct {
	Backend      Backend
	GitBinary    string
	ContextLines int
	Logger       *zap.Logger
}

// Open opens the repository containing root with the configured backend.
func Open(ctx context.Context, root string, opts Options) (Repository, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.ContextLines <= 0 {
		opts.ContextLines = diff.DefaultContextLines
	}

	switch Backend(strings.ToLower(string(opts.Backend))) {
	case "", BackendGoGit:
		return OpenGoGit(root, opts)
	case BackendExec:
		return OpenExec(ctx, root, opts)
	default:
		return nil, errors.ValidationError(fmt.Sprintf("unknown git backend %q", opts.Backend), nil)
	}
}
