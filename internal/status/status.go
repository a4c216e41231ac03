// Package status turns repository status records into the staged and
// unstaged entries shown to users.
package status

import (
	"sort"

	"unhunk/internal/vcs"
)

// Kind classifies the change of one entry.
type Kind string

const (
	Added     Kind = "added"
	Modified  Kind = "modified"
	Deleted   Kind = "deleted"
	Renamed   Kind = "renamed"
	Untracked Kind = "untracked"
)

// Entry is one status fact about a path. A path with both an index change
// and a worktree change yields two entries.
type Entry struct {
	Path        string `json:"path"`
	Status      Kind   `json:"status"`
	Staged      bool   `json:"staged"`
	WorkingTree bool   `json:"workingTree"`
}

// Report is the answer to a status query.
type Report struct {
	Branch string  `json:"branch"`
	Files  []Entry `json:"files"`
}

// Aggregate classifies every record independently on its index and worktree
// flags.
func Aggregate(branch string, records []vcs.PathStatus) Report {
	files := make([]Entry, 0, len(records))
	for _, r := range records {
		if r.Flags.InIndex() {
			files = append(files, Entry{
				Path:   r.Path,
				Status: stagedKind(r.Flags),
				Staged: true,
			})
		}
		if r.Flags.InWorktree() {
			files = append(files, Entry{
				Path:        r.Path,
				Status:      unstagedKind(r.Flags),
				WorkingTree: true,
			})
		}
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Path != files[j].Path {
			return files[i].Path < files[j].Path
		}
		return files[i].Staged && !files[j].Staged
	})
	return Report{Branch: branch, Files: files}
}

func stagedKind(f vcs.StatusFlags) Kind {
	switch {
	case f.Has(vcs.IndexNew):
		return Added
	case f.Has(vcs.IndexModified):
		return Modified
	case f.Has(vcs.IndexDeleted):
		return Deleted
	case f.Has(vcs.IndexRenamed):
		return Renamed
	default:
		return Modified
	}
}

func unstagedKind(f vcs.StatusFlags) Kind {
	switch {
	case f.Has(vcs.WorktreeNew):
		return Untracked
	case f.Has(vcs.WorktreeModified):
		return Modified
	case f.Has(vcs.WorktreeDeleted):
		return Deleted
	case f.Has(vcs.WorktreeRenamed):
		return Renamed
	default:
		return Modified
	}
}
