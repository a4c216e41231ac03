// Package worktree reads and rewrites files in a repository working tree.
package worktree

import (
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"unhunk/internal/errors"
)

const defaultMode os.FileMode = 0o644

// ResolvePath joins a repository-relative path onto root and rejects paths
// that would escape it. It returns the absolute path and the cleaned
// slash-separated relative path.
func ResolvePath(root, rel string) (string, string, error) {
	if strings.TrimSpace(rel) == "" {
		return "", "", errors.ValidationError("path is required", nil)
	}
	if filepath.IsAbs(rel) {
		r, err := filepath.Rel(root, rel)
		if err != nil {
			return "", "", errors.IO("path outside repository", err).WithPath(rel)
		}
		rel = r
	}
	clean := filepath.Clean(filepath.FromSlash(rel))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", "", errors.IO("path outside repository", nil).WithPath(rel)
	}
	return filepath.Join(root, clean), filepath.ToSlash(clean), nil
}

// ReadText returns the content of path, which must be valid UTF-8. A
// missing file is an IO error wrapping fs.ErrNotExist.
func ReadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.IO("reading file", err).WithPath(path)
	}
	if !utf8.Valid(data) {
		return "", errors.NotUTF8(path)
	}
	return string(data), nil
}

// WriteAtomic replaces path with data. The content goes to a temporary file
// in the same directory which is synced and renamed over the target, so the
// target holds either its old or its new content. The file mode of an
// existing target is kept.
func WriteAtomic(path string, data []byte) (err error) {
	mode := defaultMode
	if info, statErr := os.Stat(path); statErr == nil {
		mode = info.Mode().Perm()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.IO("creating directory", err).WithPath(path)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".unhunk-*")
	if err != nil {
		return errors.IO("creating temp file", err).WithPath(path)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return errors.IO("writing temp file", err).WithPath(path)
	}
	if err = tmp.Sync(); err != nil {
		return errors.IO("syncing temp file", err).WithPath(path)
	}
	if err = tmp.Chmod(mode); err != nil {
		return errors.IO("setting file mode", err).WithPath(path)
	}
	if err = tmp.Close(); err != nil {
		return errors.IO("closing temp file", err).WithPath(path)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return errors.IO("replacing file", err).WithPath(path)
	}
	return nil
}
