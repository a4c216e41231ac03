package diff

import (
	"bytes"
	"unicode/utf8"

	"unhunk/internal/errors"
)

// EventKind distinguishes hunk boundaries from content lines in a diff stream.
type EventKind int

const (
	EventHunk EventKind = iota
	EventLine
)

// HunkHeader carries the ranges announced by a hunk boundary.
type HunkHeader struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
}

// Event is one item of the line-oriented diff stream produced by a
// version-control backend. Line numbers are 1-based; 0 means absent.
type Event struct {
	Kind      EventKind
	Header    HunkHeader
	Origin    byte
	Content   []byte
	OldLineno int
	NewLineno int
}

// HunkEvent returns a hunk boundary event.
func HunkEvent(h HunkHeader) Event {
	return Event{Kind: EventHunk, Header: h}
}

// LineEvent returns a content line event.
func LineEvent(origin byte, content []byte, oldLineno, newLineno int) Event {
	return Event{
		Kind:      EventLine,
		Origin:    origin,
		Content:   content,
		OldLineno: oldLineno,
		NewLineno: newLineno,
	}
}

// Builder folds a diff event stream into a Diff.
type Builder struct {
	diff    *Diff
	current *Hunk
}

func NewBuilder(path string) *Builder {
	return &Builder{diff: &Diff{Path: path, Hunks: []Hunk{}}}
}

// Push consumes one event. A hunk event closes the open hunk and opens a
// new one; a line event is appended to the open hunk.
func (b *Builder) Push(ev Event) error {
	switch ev.Kind {
	case EventHunk:
		b.flush()
		b.current = &Hunk{
			OldStart: ev.Header.OldStart,
			OldLines: ev.Header.OldLines,
			NewStart: ev.Header.NewStart,
			NewLines: ev.Header.NewLines,
			Lines:    []Line{},
		}
		return nil
	case EventLine:
		if b.current == nil {
			return errors.IO("diff line outside of a hunk", nil).WithPath(b.diff.Path)
		}
		content := bytes.TrimSuffix(ev.Content, []byte{'\n'})
		if !utf8.Valid(content) {
			return errors.NotUTF8(b.diff.Path)
		}
		b.current.Lines = append(b.current.Lines, Line{
			Kind:          kindOf(ev.Origin),
			Content:       string(content),
			OldLineNumber: lineNumber(ev.OldLineno),
			NewLineNumber: lineNumber(ev.NewLineno),
		})
		return nil
	default:
		return errors.Internal("unknown diff event", nil)
	}
}

// Finish flushes the last open hunk and returns the result.
func (b *Builder) Finish() *Diff {
	b.flush()
	return b.diff
}

func (b *Builder) flush() {
	if b.current == nil {
		return
	}
	b.diff.Hunks = append(b.diff.Hunks, *b.current)
	b.current = nil
}

func kindOf(origin byte) Kind {
	switch origin {
	case '+':
		return Added
	case '-':
		return Deleted
	default:
		return Context
	}
}
