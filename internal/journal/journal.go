// Package journal records every reversion applied to a working tree so it
// can be listed and undone. Snapshots of the file before and after each
// reversion live in a safe.Safe; entries live in badger.
package journal

import (
	"path/filepath"
	"sort"
	"time"

	"unhunk/internal/errors"
	"unhunk/internal/safe"
	"unhunk/internal/storage"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Op names the operation an entry records.
type Op string

const (
	OpRevertHunk  Op = "revert-hunk"
	OpRevertLines Op = "revert-lines"
	OpRevertFile  Op = "revert-file"
	OpUndo        Op = "undo"
)

// Entry is one applied reversion.
type Entry struct {
	ID         string     `json:"id"`
	Path       string     `json:"path"`
	Op         Op         `json:"op"`
	Detail     string     `json:"detail,omitempty"`
	BeforeHash string     `json:"beforeHash"`
	AfterHash  string     `json:"afterHash"`
	CreatedAt  time.Time  `json:"createdAt"`
	UndoneAt   *time.Time `json:"undoneAt,omitempty"`
}

func (e *Entry) GetID() string { return e.ID }

// Undone reports whether the entry has been rolled back.
func (e *Entry) Undone() bool { return e.UndoneAt != nil }

type Options struct {
	CacheSize int
	Logger    *zap.Logger
}

type Journal struct {
	db     *badger.DB
	ownsDB bool
	store  *storage.BadgerStore
	safe   *safe.Safe
	logger *zap.Logger
}

// Dir returns the journal directory of a working tree given its git
// directory. Keeping it there means it never shows up as an untracked file,
// and each linked worktree gets a journal of its own.
func Dir(gitDir string) string {
	return filepath.Join(gitDir, "unhunk")
}

// Open opens or creates the journal stored in dir.
func Open(dir string, opts Options) (*Journal, error) {
	bopts := badger.DefaultOptions(filepath.Join(dir, "db"))
	bopts.Logger = nil
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, errors.IO("opening journal database", err)
	}

	j, err := New(db, filepath.Join(dir, "objects"), opts)
	if err != nil {
		db.Close()
		return nil, err
	}
	j.ownsDB = true
	return j, nil
}

// New builds a journal on an already open database.
func New(db *badger.DB, objectsDir string, opts Options) (*Journal, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	s, err := safe.New(db, safe.Options{
		Root:      objectsDir,
		CacheSize: opts.CacheSize,
		Logger:    opts.Logger,
	})
	if err != nil {
		return nil, err
	}
	return &Journal{
		db:     db,
		store:  storage.NewBadgerStore(db, "journal"),
		safe:   s,
		logger: opts.Logger,
	}, nil
}

func (j *Journal) Close() error {
	if j.ownsDB {
		return j.db.Close()
	}
	return nil
}

// Record snapshots before and after and stores a new entry for path.
func (j *Journal) Record(path string, op Op, detail string, before, after []byte) (*Entry, error) {
	beforeHash, err := j.safe.Put(path, before)
	if err != nil {
		return nil, err
	}
	afterHash, err := j.safe.Put(path, after)
	if err != nil {
		j.safe.Release(beforeHash)
		return nil, err
	}

	e := &Entry{
		ID:         uuid.New().String(),
		Path:       path,
		Op:         op,
		Detail:     detail,
		BeforeHash: beforeHash,
		AfterHash:  afterHash,
		CreatedAt:  time.Now().UTC(),
	}
	if err := j.store.Create(e); err != nil {
		j.safe.Release(beforeHash)
		j.safe.Release(afterHash)
		return nil, err
	}

	j.logger.Info("recorded reversion",
		zap.String("id", e.ID),
		zap.String("path", path),
		zap.String("op", string(op)),
	)
	return e, nil
}

func (j *Journal) Get(id string) (*Entry, error) {
	var e Entry
	if err := j.store.Get(id, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// History lists entries newest first. An empty path lists every entry.
func (j *Journal) History(path string) ([]Entry, error) {
	var all []Entry
	if err := j.store.List(&all); err != nil {
		return nil, err
	}

	out := make([]Entry, 0, len(all))
	for _, e := range all {
		if path == "" || e.Path == path {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].CreatedAt.After(out[b].CreatedAt)
	})
	return out, nil
}

// Snapshot returns stored content by hash.
func (j *Journal) Snapshot(hash string) ([]byte, error) {
	return j.safe.Get(hash)
}

// MarkUndone flags an entry as rolled back.
func (j *Journal) MarkUndone(e *Entry) error {
	now := time.Now().UTC()
	e.UndoneAt = &now
	return j.store.Update(e)
}

// Discard removes an entry whose reversion was never applied.
func (j *Journal) Discard(e *Entry) error {
	err := j.store.Delete(e.ID)
	err = multierr.Append(err, j.safe.Release(e.BeforeHash))
	return multierr.Append(err, j.safe.Release(e.AfterHash))
}
