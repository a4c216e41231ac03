package main

import (
	"bytes"
	"testing"
	"time"

	"unhunk/internal/diff"
	"unhunk/internal/journal"
	"unhunk/internal/status"
	"unhunk/internal/workspace"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	m.Run()
}

func TestPrintStatus(t *testing.T) {
	var buf bytes.Buffer
	printStatus(&buf, status.Report{
		Branch: "main",
		Files: []status.Entry{
			{Path: "a.txt", Status: status.Modified, Staged: true},
			{Path: "a.txt", Status: status.Modified, WorkingTree: true},
			{Path: "new.txt", Status: status.Untracked, WorkingTree: true},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "On branch main")
	assert.Contains(t, out, "Changes staged:\n  (use \"unhunk unstage <path>...\" to unstage)\n\tM a.txt\n")
	assert.Contains(t, out, "\tM a.txt\n\t? new.txt\n")
}

func TestPrintStatus_Clean(t *testing.T) {
	var buf bytes.Buffer
	printStatus(&buf, status.Report{Branch: "HEAD"})
	assert.Equal(t, "On branch HEAD\nnothing to revert, working tree clean\n", buf.String())
}

func TestPrintDiff_NumbersHunks(t *testing.T) {
	d, err := diff.BuildUntracked("n.txt", []byte("x\ny\n"))
	require.NoError(t, err)

	var buf bytes.Buffer
	printDiff(&buf, d)
	assert.Equal(t, "n.txt  +2 -0\n[0] @@ -0,0 +1,2 @@\n+x\n+y\n", buf.String())
}

func TestPrintDiff_MatchesFormat(t *testing.T) {
	b := diff.NewBuilder("f.txt")
	for _, ev := range []diff.Event{
		diff.HunkEvent(diff.HunkHeader{OldStart: 1, OldLines: 1, NewStart: 1, NewLines: 1}),
		diff.LineEvent('-', []byte("a\n"), 1, 0),
		diff.LineEvent('+', []byte("A\n"), 0, 1),
		diff.HunkEvent(diff.HunkHeader{OldStart: 9, OldLines: 1, NewStart: 9, NewLines: 1}),
		diff.LineEvent(' ', []byte("i\n"), 9, 9),
	} {
		require.NoError(t, b.Push(ev))
	}
	d := b.Finish()

	var buf bytes.Buffer
	printDiff(&buf, d)
	assert.Equal(t, "f.txt  +1 -1\n"+
		"[0] @@ -1,1 +1,1 @@\n-a\n+A\n"+
		"[1] @@ -9,1 +9,1 @@\n i\n", buf.String())
}

func TestPrintDiff_NoChanges(t *testing.T) {
	var buf bytes.Buffer
	printDiff(&buf, diff.NewBuilder("f.txt").Finish())
	assert.Equal(t, "no changes in f.txt\n", buf.String())
}

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	printResult(&buf, &workspace.Result{Path: "f.txt", Changed: true, EntryID: "e1"})
	assert.Equal(t, "✓ reverted f.txt\n  (use \"unhunk undo e1\" to undo)\n", buf.String())

	buf.Reset()
	printResult(&buf, &workspace.Result{Path: "f.txt"})
	assert.Equal(t, "f.txt already matches, nothing written\n", buf.String())
}

func TestPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	printHistory(&buf, []journal.Entry{{
		ID:        "e1",
		Path:      "f.txt",
		Op:        journal.OpRevertHunk,
		Detail:    "hunk 0",
		CreatedAt: time.Now().Add(-2 * time.Hour),
	}})

	out := buf.String()
	assert.Contains(t, out, "e1")
	assert.Contains(t, out, "revert-hunk")
	assert.Contains(t, out, "2 hours ago")
}

func TestIntArg(t *testing.T) {
	n, err := intArg("index", "3")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = intArg("index", "three")
	assert.Error(t, err)
}
