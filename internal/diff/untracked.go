package diff

import (
	"strings"
	"unicode/utf8"

	"unhunk/internal/errors"
)

// BuildUntracked synthesizes the diff of a file that has no baseline: a
// single hunk in which every line is added. An empty file yields no hunks.
func BuildUntracked(path string, content []byte) (*Diff, error) {
	if !utf8.Valid(content) {
		return nil, errors.NotUTF8(path)
	}

	d := &Diff{Path: path, Hunks: []Hunk{}}
	lines := SplitLines(string(content))
	if len(lines) == 0 {
		return d, nil
	}

	hunk := Hunk{
		OldStart: 0,
		OldLines: 0,
		NewStart: 1,
		NewLines: len(lines),
		Lines:    make([]Line, 0, len(lines)),
	}
	for i, text := range lines {
		hunk.Lines = append(hunk.Lines, Line{
			Kind:          Added,
			Content:       text,
			NewLineNumber: lineNumber(i + 1),
		})
	}
	d.Hunks = append(d.Hunks, hunk)
	return d, nil
}

// SplitLines splits text on '\n' without keeping the separator. A final
// newline does not open an extra empty line, and empty text has no lines.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}
