package vcs

import (
	stderrors "errors"
	"testing"

	"unhunk/internal/diff"
	"unhunk/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildFrom(t *testing.T, path, raw string) (*diff.Diff, error) {
	t.Helper()
	b := diff.NewBuilder(path)
	if err := ParseUnified(path, raw, b.Push); err != nil {
		return nil, err
	}
	return b.Finish(), nil
}

func TestParseUnified(t *testing.T) {
	raw := "diff --git a/f.txt b/f.txt\n" +
		"index 1234567..89abcde 100644\n" +
		"--- a/f.txt\n" +
		"+++ b/f.txt\n" +
		"@@ -1,3 +1,3 @@\n" +
		" a\n" +
		"-b\n" +
		"+X\n" +
		" c\n"

	d, err := buildFrom(t, "f.txt", raw)
	require.NoError(t, err)
	require.Len(t, d.Hunks, 1)

	h := d.Hunks[0]
	assert.Equal(t, 1, h.OldStart)
	assert.Equal(t, 3, h.OldLines)
	assert.Equal(t, 1, h.NewStart)
	assert.Equal(t, 3, h.NewLines)
	require.Len(t, h.Lines, 4)
	assert.Equal(t, diff.Deleted, h.Lines[1].Kind)
	assert.Equal(t, "b", h.Lines[1].Content)
	assert.Equal(t, diff.Added, h.Lines[2].Kind)
	n, ok := h.Lines[2].New()
	assert.True(t, ok)
	assert.Equal(t, 2, n)
	n, ok = h.Lines[3].Old()
	assert.True(t, ok)
	assert.Equal(t, 3, n)
	assert.NoError(t, h.Validate())
}

func TestParseUnified_MultipleHunksAndMarkers(t *testing.T) {
	raw := "--- a/f.txt\n+++ b/f.txt\n" +
		"@@ -2 +2 @@\n" +
		"-old\n" +
		"+new\n" +
		"@@ -10,2 +10,0 @@\n" +
		"-x\n" +
		"-y\n" +
		"\\ No newline at end of file\n"

	d, err := buildFrom(t, "f.txt", raw)
	require.NoError(t, err)
	require.Len(t, d.Hunks, 2)

	assert.Equal(t, 1, d.Hunks[0].OldLines)
	assert.Equal(t, 1, d.Hunks[0].NewLines)
	assert.Equal(t, 10, d.Hunks[1].NewStart)
	assert.Equal(t, 0, d.Hunks[1].NewLines)
	require.Len(t, d.Hunks[1].Lines, 2)
	for _, h := range d.Hunks {
		assert.NoError(t, h.Validate())
	}
}

func TestParseUnified_Binary(t *testing.T) {
	raw := "diff --git a/img.png b/img.png\nBinary files a/img.png and b/img.png differ\n"
	_, err := buildFrom(t, "img.png", raw)
	assert.True(t, stderrors.Is(err, errors.ErrNotUTF8))
}

func TestParseUnified_Empty(t *testing.T) {
	d, err := buildFrom(t, "f.txt", "")
	require.NoError(t, err)
	assert.Empty(t, d.Hunks)
}

func TestParseHunkHeader(t *testing.T) {
	tests := []struct {
		line string
		want diff.HunkHeader
		ok   bool
	}{
		{"@@ -1,3 +1,4 @@", diff.HunkHeader{OldStart: 1, OldLines: 3, NewStart: 1, NewLines: 4}, true},
		{"@@ -5 +5,0 @@ func main()", diff.HunkHeader{OldStart: 5, OldLines: 1, NewStart: 5, NewLines: 0}, true},
		{"@@ -0,0 +1 @@", diff.HunkHeader{OldStart: 0, OldLines: 0, NewStart: 1, NewLines: 1}, true},
		{"@@ garbage @@", diff.HunkHeader{}, false},
	}
	for _, tt := range tests {
		got, ok := parseHunkHeader(tt.line)
		assert.Equal(t, tt.ok, ok, tt.line)
		assert.Equal(t, tt.want, got, tt.line)
	}
}

func TestParsePorcelain(t *testing.T) {
	raw := "MM f.txt\x00" +
		"?? new.txt\x00" +
		"R  moved.txt\x00orig.txt\x00" +
		" D gone.txt\x00" +
		"A  added.txt\x00"

	got := ParsePorcelain(raw)
	want := []PathStatus{
		{Path: "added.txt", Flags: IndexNew},
		{Path: "f.txt", Flags: IndexModified | WorktreeModified},
		{Path: "gone.txt", Flags: WorktreeDeleted},
		{Path: "moved.txt", Flags: IndexRenamed},
		{Path: "new.txt", Flags: WorktreeNew},
	}
	assert.Equal(t, want, got)
}

func TestStatusFlags(t *testing.T) {
	f := IndexModified | WorktreeNew
	assert.True(t, f.InIndex())
	assert.True(t, f.InWorktree())
	assert.True(t, f.Has(WorktreeNew))
	assert.False(t, f.Has(IndexDeleted))
	assert.False(t, WorktreeDeleted.InIndex())
}

func TestSanitizeArgs(t *testing.T) {
	assert.Equal(t, "diff", sanitizeArgs([]string{"diff", "--no-color", "secret/path"}))
	assert.Equal(t, "cat-file blob", sanitizeArgs([]string{"cat-file", "blob", "HEAD:x"}))
	assert.Equal(t, "<redacted>", sanitizeArgs([]string{"/abs/path"}))
	assert.Equal(t, "<no-args>", sanitizeArgs(nil))
	assert.Equal(t, "fetch https://<redacted>@host", redactTokens("fetch https://user:pw@host"))
	assert.Equal(t, "token=<redacted> ok", redactTokens("token=abc123 ok"))
}
