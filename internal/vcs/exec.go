package vcs

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"unhunk/internal/diff"
	"unhunk/internal/errors"

	"go.uber.org/zap"
)

// Exec implements Repository by shelling out to the git binary and parsing
// its unified diff and porcelain status output.
type Exec struct {
	runner       Runner
	root         string
	gitDir       string
	contextLines int
	logger       *zap.Logger
}

func OpenExec(ctx context.Context, root string, opts Options) (*Exec, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return openExecWithRunner(ctx, root, NewExecRunner(opts.GitBinary, logger), opts.ContextLines, logger)
}

func openExecWithRunner(ctx context.Context, root string, runner Runner, contextLines int, logger *zap.Logger) (*Exec, error) {
	out, err := runner.Run(ctx, root, "rev-parse", "--show-toplevel", "--absolute-git-dir")
	if err != nil {
		return nil, errors.RepositoryUnavailable(fmt.Sprintf("opening repository at %s", root), err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	top := strings.TrimSpace(lines[0])
	gitDir := filepath.Join(top, ".git")
	if len(lines) > 1 {
		gitDir = strings.TrimSpace(lines[1])
	}
	if contextLines <= 0 {
		contextLines = diff.DefaultContextLines
	}
	return &Exec{
		runner:       runner,
		root:         top,
		gitDir:       gitDir,
		contextLines: contextLines,
		logger:       logger,
	}, nil
}

func (e *Exec) Root() string { return e.root }

func (e *Exec) GitDir() string { return e.gitDir }

func (e *Exec) git(ctx context.Context, args ...string) (string, error) {
	return e.runner.Run(ctx, e.root, args...)
}

func (e *Exec) Branch(ctx context.Context) (string, error) {
	if !e.hasHead(ctx) {
		return "HEAD", nil
	}
	out, err := e.git(ctx, "symbolic-ref", "--short", "-q", "HEAD")
	if err != nil {
		return "HEAD", nil
	}
	return strings.TrimSpace(out), nil
}

func (e *Exec) Status(ctx context.Context) ([]PathStatus, error) {
	out, err := e.git(ctx, "status", "--porcelain=v1", "-z", "--untracked-files=all")
	if err != nil {
		return nil, errors.RepositoryUnavailable("reading status", err)
	}
	return ParsePorcelain(out), nil
}

func (e *Exec) IsTracked(ctx context.Context, path string) (bool, error) {
	out, err := e.git(ctx, "ls-files", "--cached", "--", path)
	if err != nil {
		return false, errors.RepositoryUnavailable("listing index", err)
	}
	return strings.TrimSpace(out) != "", nil
}

func (e *Exec) Diff(ctx context.Context, path string, mode Mode, emit func(diff.Event) error) error {
	args := []string{"diff", "--no-color", "--no-ext-diff", fmt.Sprintf("-U%d", e.contextLines)}
	if mode == IndexVsHead {
		args = append(args, "--cached")
	}
	args = append(args, "--", path)

	out, err := e.git(ctx, args...)
	if err != nil {
		return errors.IO("running git diff", err).WithPath(path)
	}
	return ParseUnified(path, out, emit)
}

func (e *Exec) hasHead(ctx context.Context) bool {
	_, err := e.git(ctx, "rev-parse", "--verify", "-q", "HEAD")
	return err == nil
}

func (e *Exec) HeadContent(ctx context.Context, path string) ([]byte, error) {
	if !e.hasHead(ctx) {
		return nil, errors.RepositoryUnavailable("repository has no HEAD commit", nil)
	}
	spec := "HEAD:" + path
	if _, err := e.git(ctx, "cat-file", "-e", spec); err != nil {
		return nil, errors.NotFound("path not present in HEAD").WithPath(path)
	}
	out, err := e.git(ctx, "cat-file", "blob", spec)
	if err != nil {
		return nil, errors.IO("reading HEAD blob", err).WithPath(path)
	}
	return []byte(out), nil
}

func (e *Exec) Stage(ctx context.Context, path string) error {
	if _, err := e.git(ctx, "add", "-A", "--", path); err != nil {
		return errors.IO("staging file", err).WithPath(path)
	}
	return nil
}

func (e *Exec) Unstage(ctx context.Context, path string) error {
	tracked, err := e.IsTracked(ctx, path)
	if err != nil {
		return err
	}
	head := e.hasHead(ctx)
	inHead := false
	if head {
		_, err := e.git(ctx, "cat-file", "-e", "HEAD:"+path)
		inHead = err == nil
	}
	if !tracked && !inHead {
		return errors.NotFound("path is not staged").WithPath(path)
	}

	args := []string{"rm", "--cached", "-q", "--", path}
	if head {
		args = []string{"reset", "-q", "HEAD", "--", path}
	}
	if _, err := e.git(ctx, args...); err != nil {
		return errors.IO("unstaging file", err).WithPath(path)
	}
	return nil
}
