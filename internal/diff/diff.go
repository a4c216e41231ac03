// internal/diff/diff.go
package diff

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind indicates whether a line was added, deleted, or is context
type Kind int

const (
	Context Kind = iota
	Added
	Deleted
)

func (k Kind) String() string {
	switch k {
	case Added:
		return "add"
	case Deleted:
		return "delete"
	default:
		return "context"
	}
}

func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "add":
		*k = Added
	case "delete":
		*k = Deleted
	case "context":
		*k = Context
	default:
		return fmt.Errorf("unknown line type %q", s)
	}
	return nil
}

// Line is one line inside a hunk. Content never includes the newline.
type Line struct {
	Kind          Kind   `json:"type"`
	Content       string `json:"content"`
	OldLineNumber *int   `json:"oldLineNumber"`
	NewLineNumber *int   `json:"newLineNumber"`
}

// Old returns the old line number and whether it is present.
func (l Line) Old() (int, bool) {
	if l.OldLineNumber == nil {
		return 0, false
	}
	return *l.OldLineNumber, true
}

// New returns the new line number and whether it is present.
func (l Line) New() (int, bool) {
	if l.NewLineNumber == nil {
		return 0, false
	}
	return *l.NewLineNumber, true
}

// Hunk represents a continuous section of changes
type Hunk struct {
	OldStart int    `json:"oldStart"`
	OldLines int    `json:"oldLines"`
	NewStart int    `json:"newStart"`
	NewLines int    `json:"newLines"`
	Lines    []Line `json:"lines"`
}

// Validate checks that the line numbers carried by the hunk's lines agree
// with its header counts.
func (h Hunk) Validate() error {
	var olds, news int
	for i, l := range h.Lines {
		_, hasOld := l.Old()
		_, hasNew := l.New()
		if !hasOld && !hasNew {
			return fmt.Errorf("line %d has neither old nor new number", i)
		}
		if l.Kind == Context && !(hasOld && hasNew) {
			return fmt.Errorf("context line %d lacks a line number", i)
		}
		if hasOld {
			olds++
		}
		if hasNew {
			news++
		}
	}
	if olds != h.OldLines {
		return fmt.Errorf("hunk declares %d old lines, carries %d", h.OldLines, olds)
	}
	if news != h.NewLines {
		return fmt.Errorf("hunk declares %d new lines, carries %d", h.NewLines, news)
	}
	return nil
}

// Diff is the structured difference of one file against its baseline.
// Hunks are ordered by ascending NewStart and never overlap.
type Diff struct {
	Path  string `json:"path"`
	Hunks []Hunk `json:"hunks"`
}

// Stats summarises a diff.
type Stats struct {
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
	Changes   int `json:"changes"`
}

func (d *Diff) Stats() Stats {
	var s Stats
	for _, hunk := range d.Hunks {
		for _, line := range hunk.Lines {
			switch line.Kind {
			case Added:
				s.Additions++
			case Deleted:
				s.Deletions++
			}
		}
	}
	s.Changes = s.Additions + s.Deletions
	return s
}

// Validate checks the counting invariant of every hunk.
func (d *Diff) Validate() error {
	for i, h := range d.Hunks {
		if err := h.Validate(); err != nil {
			return fmt.Errorf("hunk %d: %w", i, err)
		}
	}
	return nil
}

// Format returns a unified-style representation of the diff
func (d *Diff) Format() string {
	var buf bytes.Buffer

	for _, hunk := range d.Hunks {
		fmt.Fprintf(&buf, "@@ -%d,%d +%d,%d @@\n",
			hunk.OldStart, hunk.OldLines,
			hunk.NewStart, hunk.NewLines)

		for _, line := range hunk.Lines {
			switch line.Kind {
			case Added:
				buf.WriteString("+")
			case Deleted:
				buf.WriteString("-")
			case Context:
				buf.WriteString(" ")
			}
			buf.WriteString(line.Content)
			buf.WriteString("\n")
		}
	}

	return buf.String()
}

func lineNumber(n int) *int {
	if n <= 0 {
		return nil
	}
	return &n
}
