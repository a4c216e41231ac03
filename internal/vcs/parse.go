package vcs

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"unhunk/internal/diff"
	"unhunk/internal/errors"
)

var hunkHeaderRe = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// ParseUnified converts the output of `git diff` for a single path into a
// diff event stream. Lines outside hunks (file headers, mode lines) are
// skipped; a binary file reports NotUTF8.
func ParseUnified(path, raw string, emit func(diff.Event) error) error {
	var oldNo, newNo int
	var oldLeft, newLeft int

	for _, line := range strings.Split(raw, "\n") {
		if strings.HasPrefix(line, "@@") {
			h, ok := parseHunkHeader(line)
			if !ok {
				return errors.IO("malformed hunk header", nil).WithPath(path)
			}
			oldNo, newNo = h.OldStart, h.NewStart
			oldLeft, newLeft = h.OldLines, h.NewLines
			if err := emit(diff.HunkEvent(h)); err != nil {
				return err
			}
			continue
		}
		if oldLeft == 0 && newLeft == 0 {
			if strings.HasPrefix(line, "Binary files ") {
				return errors.NotUTF8(path)
			}
			continue
		}

		if line == "" {
			// some tools strip the leading space of empty context lines
			line = " "
		}
		var ev diff.Event
		switch line[0] {
		case '+':
			ev = diff.LineEvent('+', []byte(line[1:]), 0, newNo)
			newNo++
			newLeft--
		case '-':
			ev = diff.LineEvent('-', []byte(line[1:]), oldNo, 0)
			oldNo++
			oldLeft--
		case '\\':
			continue
		default:
			ev = diff.LineEvent(' ', []byte(line[1:]), oldNo, newNo)
			oldNo++
			newNo++
			oldLeft--
			newLeft--
		}
		if err := emit(ev); err != nil {
			return err
		}
	}
	return nil
}

func parseHunkHeader(line string) (diff.HunkHeader, bool) {
	m := hunkHeaderRe.FindStringSubmatch(line)
	if m == nil {
		return diff.HunkHeader{}, false
	}
	count := func(s string) int {
		if s == "" {
			return 1
		}
		n, _ := strconv.Atoi(s)
		return n
	}
	oldStart, _ := strconv.Atoi(m[1])
	newStart, _ := strconv.Atoi(m[3])
	return diff.HunkHeader{
		OldStart: oldStart,
		OldLines: count(m[2]),
		NewStart: newStart,
		NewLines: count(m[4]),
	}, true
}

// ParsePorcelain parses `git status --porcelain=v1 -z` output.
func ParsePorcelain(raw string) []PathStatus {
	fields := strings.Split(raw, "\x00")
	var out []PathStatus
	for i := 0; i < len(fields); i++ {
		entry := fields[i]
		if len(entry) < 4 {
			continue
		}
		x, y, path := entry[0], entry[1], entry[3:]
		if x == 'R' || x == 'C' {
			// the source path follows as its own field
			i++
		}
		var flags StatusFlags
		if x == '?' && y == '?' {
			flags = WorktreeNew
		} else {
			flags = porcelainIndex(x) | porcelainWorktree(y)
		}
		if flags == 0 {
			continue
		}
		out = append(out, PathStatus{Path: path, Flags: flags})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func porcelainIndex(c byte) StatusFlags {
	switch c {
	case 'A', 'C':
		return IndexNew
	case 'M', 'U':
		return IndexModified
	case 'D':
		return IndexDeleted
	case 'R':
		return IndexRenamed
	case 'T':
		return IndexTypeChange
	}
	return 0
}

func porcelainWorktree(c byte) StatusFlags {
	switch c {
	case 'M', 'U':
		return WorktreeModified
	case 'D':
		return WorktreeDeleted
	case 'R':
		return WorktreeRenamed
	case 'T':
		return WorktreeTypeChange
	case 'A':
		return WorktreeNew
	}
	return 0
}
