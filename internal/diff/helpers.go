package diff

import "strings"

// Op is the operation of one edit in a line-level edit script.
type Op int

const (
	OpEqual Op = iota
	OpInsert
	OpDelete
)

// Edit is a run of whole lines sharing one operation. Each line keeps its
// trailing newline, except possibly the last line of a file.
type Edit struct {
	Op   Op
	Text string
}

// DefaultContextLines is the number of unchanged lines kept around a change.
const DefaultContextLines = 3

type editLine struct {
	op        Op
	text      string
	oldNum    int
	newNum    int
	oldBefore int
	newBefore int
}

// Unified groups an edit script into hunks with the given amount of context
// and emits them as a diff event stream, the same stream a git backend
// produces.
func Unified(edits []Edit, contextLines int, emit func(Event) error) error {
	if contextLines < 0 {
		contextLines = 0
	}
	lines := flattenEdits(edits)

	i := 0
	floor := 0
	for i < len(lines) {
		if lines[i].op == OpEqual {
			i++
			continue
		}

		start := max(floor, i-contextLines)
		end := i + 1
		j := i + 1
		for j < len(lines) {
			if lines[j].op != OpEqual {
				j++
				end = j
				continue
			}
			k := j
			for k < len(lines) && lines[k].op == OpEqual {
				k++
			}
			if k < len(lines) && k-j <= 2*contextLines {
				j = k
				continue
			}
			break
		}
		stop := min(len(lines), end+contextLines)

		if err := emitHunk(lines[start:stop], emit); err != nil {
			return err
		}
		floor = stop
		i = stop
	}
	return nil
}

func emitHunk(lines []editLine, emit func(Event) error) error {
	var h HunkHeader
	for _, l := range lines {
		if l.op != OpInsert {
			if h.OldLines == 0 {
				h.OldStart = l.oldNum
			}
			h.OldLines++
		}
		if l.op != OpDelete {
			if h.NewLines == 0 {
				h.NewStart = l.newNum
			}
			h.NewLines++
		}
	}
	// An empty side is anchored after the line that precedes the hunk.
	if h.OldLines == 0 {
		h.OldStart = lines[0].oldBefore
	}
	if h.NewLines == 0 {
		h.NewStart = lines[0].newBefore
	}

	if err := emit(HunkEvent(h)); err != nil {
		return err
	}
	for _, l := range lines {
		origin := byte(' ')
		switch l.op {
		case OpInsert:
			origin = '+'
		case OpDelete:
			origin = '-'
		}
		if err := emit(LineEvent(origin, []byte(l.text), l.oldNum, l.newNum)); err != nil {
			return err
		}
	}
	return nil
}

func flattenEdits(edits []Edit) []editLine {
	var out []editLine
	oldNo, newNo := 0, 0
	for _, e := range edits {
		parts := strings.SplitAfter(e.Text, "\n")
		if len(parts) > 0 && parts[len(parts)-1] == "" {
			parts = parts[:len(parts)-1]
		}
		for _, text := range parts {
			l := editLine{op: e.Op, text: text, oldBefore: oldNo, newBefore: newNo}
			switch e.Op {
			case OpEqual:
				oldNo++
				newNo++
				l.oldNum, l.newNum = oldNo, newNo
			case OpInsert:
				newNo++
				l.newNum = newNo
			case OpDelete:
				oldNo++
				l.oldNum = oldNo
			}
			out = append(out, l)
		}
	}
	return out
}
