package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"unhunk/internal/diff"
	"unhunk/internal/journal"
	"unhunk/internal/status"
	"unhunk/internal/workspace"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

var (
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
	blue   = color.New(color.FgBlue)
	cyan   = color.New(color.FgCyan)
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var statusLetters = map[status.Kind]string{
	status.Added:     "A",
	status.Modified:  "M",
	status.Deleted:   "D",
	status.Renamed:   "R",
	status.Untracked: "?",
}

func statusColor(k status.Kind) *color.Color {
	switch k {
	case status.Added, status.Untracked:
		return blue
	case status.Deleted:
		return red
	default:
		return yellow
	}
}

func printStatus(w io.Writer, report status.Report) {
	fmt.Fprintf(w, "On branch %s\n", report.Branch)

	var staged, unstaged []status.Entry
	for _, e := range report.Files {
		if e.Staged {
			staged = append(staged, e)
		} else {
			unstaged = append(unstaged, e)
		}
	}

	if len(report.Files) == 0 {
		fmt.Fprintln(w, "nothing to revert, working tree clean")
		return
	}

	if len(staged) > 0 {
		fmt.Fprintln(w, "\nChanges staged:")
		fmt.Fprintln(w, "  (use \"unhunk unstage <path>...\" to unstage)")
		for _, e := range staged {
			fmt.Fprintf(w, "\t%s %s\n", green.Sprint(statusLetters[e.Status]), e.Path)
		}
	}
	if len(unstaged) > 0 {
		fmt.Fprintln(w, "\nChanges not staged:")
		fmt.Fprintln(w, "  (use \"unhunk diff <path>\" to list hunks, \"unhunk revert-hunk <path> <index>\" to revert one)")
		for _, e := range unstaged {
			fmt.Fprintf(w, "\t%s %s\n", statusColor(e.Status).Sprint(statusLetters[e.Status]), e.Path)
		}
	}
}

// printDiff prints d as a unified diff with each hunk header prefixed by the
// index revert-hunk expects.
func printDiff(w io.Writer, d *diff.Diff) {
	if len(d.Hunks) == 0 {
		fmt.Fprintf(w, "no changes in %s\n", d.Path)
		return
	}

	stats := d.Stats()
	fmt.Fprintf(w, "%s  %s %s\n", d.Path,
		green.Sprintf("+%s", humanize.Comma(int64(stats.Additions))),
		red.Sprintf("-%s", humanize.Comma(int64(stats.Deletions))),
	)

	index := 0
	for _, line := range strings.SplitAfter(d.Format(), "\n") {
		switch {
		case line == "":
		case strings.HasPrefix(line, "@@"):
			cyan.Fprintf(w, "[%d] %s", index, line)
			index++
		case line[0] == '+':
			green.Fprint(w, line)
		case line[0] == '-':
			red.Fprint(w, line)
		default:
			fmt.Fprint(w, line)
		}
	}
}

func printResult(w io.Writer, res *workspace.Result) {
	if !res.Changed {
		fmt.Fprintf(w, "%s already matches, nothing written\n", res.Path)
		return
	}
	printDone(w, "reverted", res.Path)
	if res.EntryID != "" {
		fmt.Fprintf(w, "  (use \"unhunk undo %s\" to undo)\n", res.EntryID)
	}
}

func printDone(w io.Writer, verb, path string) {
	fmt.Fprintf(w, "%s %s %s\n", green.Sprint("✓"), verb, path)
}

func printHistory(w io.Writer, entries []journal.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "no reversions recorded")
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Path", "Operation", "Detail", "When", "Undone"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	for _, e := range entries {
		table.Append([]string{
			e.ID,
			e.Path,
			string(e.Op),
			e.Detail,
			humanize.Time(e.CreatedAt),
			strconv.FormatBool(e.Undone()),
		})
	}
	table.Render()
}

func printChanged(w io.Writer, paths []string) {
	cyan.Fprintf(w, "\nchanged: %s\n", strings.Join(paths, ", "))
}
