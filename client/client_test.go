package client

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"unhunk/internal/api"
	"unhunk/internal/errors"
	"unhunk/internal/journal"
	"unhunk/internal/status"
	"unhunk/internal/workspace"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*Client, string) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f.txt"), []byte("a\nb\nc\n"), 0o644))
	_, err = wt.Add("f.txt")
	require.NoError(t, err)
	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	registry := journal.NewRegistry(journal.Options{})
	t.Cleanup(func() { registry.Close() })

	mux := http.NewServeMux()
	api.NewHandler(workspace.Options{Journals: registry}, nil).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return New(srv.URL), dir
}

func TestClient_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c, repo := setup(t)
	require.NoError(t, c.Health(ctx))

	file := filepath.Join(repo, "f.txt")
	require.NoError(t, os.WriteFile(file, []byte("a\nXX\nc\n"), 0o644))

	report, err := c.Status(ctx, repo)
	require.NoError(t, err)
	assert.Equal(t, []status.Entry{{Path: "f.txt", Status: status.Modified, WorkingTree: true}}, report.Files)

	d, err := c.Diff(ctx, repo, "f.txt", false)
	require.NoError(t, err)
	require.Len(t, d.Hunks, 1)
	assert.Equal(t, 1, d.Stats().Additions)

	res, err := c.RevertHunk(ctx, repo, "f.txt", 0)
	require.NoError(t, err)
	assert.True(t, res.Changed)

	history, err := c.History(ctx, repo, "")
	require.NoError(t, err)
	require.Len(t, history, 1)

	_, err = c.Undo(ctx, repo, res.EntryID)
	require.NoError(t, err)
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "a\nXX\nc\n", string(data))

	require.NoError(t, c.Stage(ctx, repo, "f.txt"))
	staged, err := c.Diff(ctx, repo, "f.txt", true)
	require.NoError(t, err)
	assert.Len(t, staged.Hunks, 1)
	require.NoError(t, c.Unstage(ctx, repo, "f.txt"))

	_, err = c.RevertLines(ctx, repo, "f.txt", 2, 2)
	require.NoError(t, err)
	_, err = c.RevertFile(ctx, repo, "f.txt")
	require.NoError(t, err)
}

func TestClient_Errors(t *testing.T) {
	ctx := context.Background()
	c, repo := setup(t)

	_, err := c.RevertHunk(ctx, repo, "f.txt", 5)
	assert.True(t, stderrors.Is(err, errors.ErrOutOfRange))
	assert.Equal(t, http.StatusBadRequest, errors.StatusCode(err))

	_, err = c.RevertLines(ctx, repo, "f.txt", 0, 1)
	assert.True(t, stderrors.Is(err, errors.ErrInvalidRange))

	_, err = c.Status(ctx, t.TempDir())
	assert.True(t, stderrors.Is(err, errors.ErrRepositoryUnavailable))
}
