// Package revert undoes parts of a working-tree change. Both operations take
// the file's current content and its diff against the baseline and return
// the rebuilt content; they never touch the filesystem.
package revert

import (
	"sort"
	"strings"

	"unhunk/internal/diff"
	"unhunk/internal/errors"
)

// Hunk returns current with the change of d.Hunks[index] undone. Lines
// outside the hunk's current-file span are left untouched.
func Hunk(current string, d *diff.Diff, index int) (string, error) {
	if index < 0 || index >= len(d.Hunks) {
		return "", errors.OutOfRange(index, len(d.Hunks)).WithPath(d.Path)
	}
	hunk := d.Hunks[index]
	lines := diff.SplitLines(current)

	start := hunk.NewStart - 1
	if hunk.NewLines == 0 {
		// a pure deletion sits after line NewStart
		start = hunk.NewStart
	}
	start = clamp(start, 0, len(lines))
	end := clamp(start+hunk.NewLines, start, len(lines))

	out := make([]string, 0, len(lines)-(end-start)+hunk.OldLines)
	out = append(out, lines[:start]...)
	for _, l := range hunk.Lines {
		if l.Kind == diff.Context || l.Kind == diff.Deleted {
			out = append(out, l.Content)
		}
	}
	out = append(out, lines[end:]...)

	return join(out, current), nil
}

type restorePoint struct {
	pos     int
	content string
}

// Lines undoes every change that touches the current-file window
// [start, end] (1-based, inclusive). Added lines inside the window are
// removed and deleted lines anchored inside it are restored.
func Lines(current string, d *diff.Diff, start, end int) (string, error) {
	if start < 1 || start > end {
		return "", errors.InvalidRange(start, end).WithPath(d.Path)
	}
	inWindow := func(n int) bool { return n >= start && n <= end }

	remove := make(map[int]bool)
	var restores []restorePoint
	for _, hunk := range d.Hunks {
		for _, l := range hunk.Lines {
			switch l.Kind {
			case diff.Added:
				if n, ok := l.New(); ok && inWindow(n) {
					remove[n-1] = true
				}
			case diff.Deleted:
				if n, ok := l.New(); ok {
					if inWindow(n) {
						restores = append(restores, restorePoint{pos: n - 1, content: l.Content})
					}
				} else if n, ok := l.Old(); ok && inWindow(n) {
					restores = append(restores, restorePoint{pos: n - 1, content: l.Content})
				}
			}
		}
	}
	sort.SliceStable(restores, func(i, j int) bool {
		return restores[i].pos < restores[j].pos
	})

	lines := diff.SplitLines(current)
	out := make([]string, 0, len(lines)+len(restores))
	next := 0
	for i, line := range lines {
		for next < len(restores) && restores[next].pos <= i {
			out = append(out, restores[next].content)
			next++
		}
		if remove[i] {
			continue
		}
		out = append(out, line)
	}
	for ; next < len(restores); next++ {
		out = append(out, restores[next].content)
	}

	return join(out, current), nil
}

// join rebuilds file content, ending with a newline only when the original
// did and there is something to terminate.
func join(lines []string, original string) string {
	text := strings.Join(lines, "\n")
	if len(lines) > 0 && strings.HasSuffix(original, "\n") {
		text += "\n"
	}
	return text
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
