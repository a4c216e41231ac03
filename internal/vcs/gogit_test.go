package vcs

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"unhunk/internal/diff"
	"unhunk/internal/errors"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T) (string, *git.Repository) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	return dir, repo
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	full := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func commitFiles(t *testing.T, repo *git.Repository, names ...string) {
	t.Helper()
	wt, err := repo.Worktree()
	require.NoError(t, err)
	for _, name := range names {
		_, err := wt.Add(name)
		require.NoError(t, err)
	}
	_, err = wt.Commit("snapshot", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
}

func diffOf(t *testing.T, r Repository, path string, mode Mode) *diff.Diff {
	t.Helper()
	b := diff.NewBuilder(path)
	require.NoError(t, r.Diff(context.Background(), path, mode, b.Push))
	return b.Finish()
}

func TestOpenGoGit_NotARepository(t *testing.T) {
	_, err := OpenGoGit(t.TempDir(), Options{})
	assert.True(t, stderrors.Is(err, errors.ErrRepositoryUnavailable))
}

func TestOpen_UnknownBackend(t *testing.T) {
	dir, _ := initRepo(t)
	_, err := Open(context.Background(), dir, Options{Backend: "svn"})
	assert.True(t, stderrors.Is(err, errors.ErrValidation))
}

func TestGoGit_ModifiedFileLifecycle(t *testing.T) {
	ctx := context.Background()
	dir, repo := initRepo(t)
	writeFile(t, dir, "f.txt", "a\nb\nc\n")
	commitFiles(t, repo, "f.txt")

	r, err := OpenGoGit(dir, Options{})
	require.NoError(t, err)

	branch, err := r.Branch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "master", branch)

	writeFile(t, dir, "f.txt", "a\nX\nc\n")

	st, err := r.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, []PathStatus{{Path: "f.txt", Flags: WorktreeModified}}, st)

	d := diffOf(t, r, "f.txt", WorkdirVsIndex)
	require.Len(t, d.Hunks, 1)
	assert.Equal(t, "@@ -1,3 +1,3 @@\n a\n-b\n+X\n c\n", d.Format())

	require.NoError(t, r.Stage(ctx, "f.txt"))
	st, err = r.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, []PathStatus{{Path: "f.txt", Flags: IndexModified}}, st)
	assert.Empty(t, diffOf(t, r, "f.txt", WorkdirVsIndex).Hunks)
	assert.Len(t, diffOf(t, r, "f.txt", IndexVsHead).Hunks, 1)

	require.NoError(t, r.Unstage(ctx, "f.txt"))
	st, err = r.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, []PathStatus{{Path: "f.txt", Flags: WorktreeModified}}, st)

	head, err := r.HeadContent(ctx, "f.txt")
	require.NoError(t, err)
	assert.Equal(t, "a\nb\nc\n", string(head))

	_, err = r.HeadContent(ctx, "missing.txt")
	assert.True(t, stderrors.Is(err, errors.ErrNotFound))
}

func TestGoGit_UntrackedAndDeleted(t *testing.T) {
	ctx := context.Background()
	dir, repo := initRepo(t)
	writeFile(t, dir, "keep.txt", "one\ntwo\n")
	commitFiles(t, repo, "keep.txt")

	r, err := OpenGoGit(dir, Options{})
	require.NoError(t, err)

	writeFile(t, dir, "new.txt", "fresh\n")
	require.NoError(t, os.Remove(filepath.Join(dir, "keep.txt")))

	tracked, err := r.IsTracked(ctx, "new.txt")
	require.NoError(t, err)
	assert.False(t, tracked)
	tracked, err = r.IsTracked(ctx, "keep.txt")
	require.NoError(t, err)
	assert.True(t, tracked)

	st, err := r.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, []PathStatus{
		{Path: "keep.txt", Flags: WorktreeDeleted},
		{Path: "new.txt", Flags: WorktreeNew},
	}, st)

	d := diffOf(t, r, "keep.txt", WorkdirVsIndex)
	require.Len(t, d.Hunks, 1)
	assert.Equal(t, 0, d.Hunks[0].NewLines)
	assert.Equal(t, 2, d.Hunks[0].OldLines)

	require.NoError(t, r.Stage(ctx, "keep.txt"))
	st, err = r.Status(ctx)
	require.NoError(t, err)
	assert.Contains(t, st, PathStatus{Path: "keep.txt", Flags: IndexDeleted})
}

func TestGoGit_UnbornBranch(t *testing.T) {
	ctx := context.Background()
	dir, _ := initRepo(t)
	writeFile(t, dir, "first.txt", "hello\nworld\n")

	r, err := OpenGoGit(dir, Options{})
	require.NoError(t, err)

	branch, err := r.Branch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "HEAD", branch)

	_, err = r.HeadContent(ctx, "first.txt")
	assert.True(t, stderrors.Is(err, errors.ErrRepositoryUnavailable))

	require.NoError(t, r.Stage(ctx, "first.txt"))
	d := diffOf(t, r, "first.txt", IndexVsHead)
	require.Len(t, d.Hunks, 1)
	assert.Equal(t, 0, d.Hunks[0].OldStart)
	assert.Equal(t, 2, d.Hunks[0].NewLines)

	require.NoError(t, r.Unstage(ctx, "first.txt"))
	tracked, err := r.IsTracked(ctx, "first.txt")
	require.NoError(t, err)
	assert.False(t, tracked)

	err = r.Unstage(ctx, "first.txt")
	assert.True(t, stderrors.Is(err, errors.ErrNotFound))
}

func TestGoGit_NonUTF8(t *testing.T) {
	dir, repo := initRepo(t)
	writeFile(t, dir, "bin.dat", "ok\n")
	commitFiles(t, repo, "bin.dat")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bin.dat"), []byte{0xff, 0x00, 0xfe}, 0o644))

	r, err := OpenGoGit(dir, Options{})
	require.NoError(t, err)
	err = r.Diff(context.Background(), "bin.dat", WorkdirVsIndex, func(diff.Event) error { return nil })
	assert.True(t, stderrors.Is(err, errors.ErrNotUTF8))
}

func TestLineEdits_DeletionsBeforeInsertions(t *testing.T) {
	edits := LineEdits("a\nb\nc\n", "a\nX\nc\n")
	var ops []diff.Op
	for _, e := range edits {
		ops = append(ops, e.Op)
	}
	assert.Equal(t, []diff.Op{diff.OpEqual, diff.OpDelete, diff.OpInsert, diff.OpEqual}, ops)
}
