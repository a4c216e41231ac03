// Package safe is a content-addressed store for file snapshots. Content is
// keyed by its sha256, deduplicated with reference counts kept in badger,
// cached in an LRU and compressed with zstd on disk.
package safe

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"unhunk/internal/errors"

	"github.com/dgraph-io/badger/v4"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// Meta describes one stored snapshot.
type Meta struct {
	Hash       string    `json:"hash"`
	Size       int64     `json:"size"`
	RefCount   uint32    `json:"ref_count"`
	Compressed bool      `json:"compressed"`
	CreatedAt  time.Time `json:"created_at"`
}

type Safe struct {
	root   string
	db     *badger.DB
	cache  *lru.Cache[string, []byte]
	comp   *compressionManager
	logger *zap.Logger
	mu     sync.Mutex // serializes ref count updates with file writes
}

type Options struct {
	Root        string
	CacheSize   int
	Compression CompressionOptions
	Logger      *zap.Logger
}

func New(db *badger.DB, opts Options) (*Safe, error) {
	if opts.Root == "" {
		return nil, errors.ValidationError("snapshot root directory is required", nil)
	}
	if err := os.MkdirAll(opts.Root, 0o755); err != nil {
		return nil, errors.IO("creating snapshot directory", err)
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 128
	}
	if opts.Compression.Level == 0 {
		opts.Compression = DefaultCompressionOptions()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	cache, err := lru.New[string, []byte](opts.CacheSize)
	if err != nil {
		return nil, errors.Internal("creating snapshot cache", err)
	}
	comp, err := newCompressionManager(opts.Compression)
	if err != nil {
		return nil, errors.Internal("creating compressor", err)
	}

	return &Safe{
		root:   opts.Root,
		db:     db,
		cache:  cache,
		comp:   comp,
		logger: opts.Logger,
	}, nil
}

// Hash returns the key content is stored under.
func Hash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Put stores content and returns its hash. Storing content that is already
// present only bumps its reference count. name is used to decide whether
// compression is worthwhile.
func (s *Safe) Put(name string, content []byte) (string, error) {
	hash := Hash(content)

	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.getMeta(hash)
	switch {
	case err == nil:
		meta.RefCount++
		if err := s.putMeta(meta); err != nil {
			return "", errors.IO("updating snapshot metadata", err)
		}
		return hash, nil
	case !stderrors.Is(err, errors.ErrNotFound):
		return "", err
	}

	stored, compressed := s.comp.compress(name, content)
	path := s.contentPath(hash)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", errors.IO("creating snapshot directory", err)
	}
	if err := os.WriteFile(path, stored, 0o644); err != nil {
		return "", errors.IO("writing snapshot", err)
	}

	meta = Meta{
		Hash:       hash,
		Size:       int64(len(content)),
		RefCount:   1,
		Compressed: compressed,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.putMeta(meta); err != nil {
		os.Remove(path)
		return "", errors.IO("storing snapshot metadata", err)
	}
	s.cache.Add(hash, content)

	s.logger.Debug("stored snapshot",
		zap.String("hash", hash),
		zap.Int("size", len(content)),
		zap.Bool("compressed", compressed),
	)
	return hash, nil
}

// Get returns the content stored under hash and verifies it.
func (s *Safe) Get(hash string) ([]byte, error) {
	if !validHash(hash) {
		return nil, errors.ValidationError("invalid snapshot hash", map[string]string{"hash": hash})
	}
	if content, ok := s.cache.Get(hash); ok {
		return content, nil
	}

	meta, err := s.getMeta(hash)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.contentPath(hash))
	if os.IsNotExist(err) {
		return nil, errors.NotFound("snapshot content missing")
	}
	if err != nil {
		return nil, errors.IO("reading snapshot", err)
	}
	if meta.Compressed {
		if data, err = s.comp.decompress(data); err != nil {
			return nil, errors.IO("decompressing snapshot", err)
		}
	}
	if Hash(data) != hash {
		return nil, errors.Internal("snapshot hash mismatch", nil)
	}

	s.cache.Add(hash, data)
	return data, nil
}

// Release drops one reference to hash, deleting the content when none
// remain.
func (s *Safe) Release(hash string) error {
	if !validHash(hash) {
		return errors.ValidationError("invalid snapshot hash", map[string]string{"hash": hash})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.getMeta(hash)
	if err != nil {
		return err
	}
	meta.RefCount--
	if meta.RefCount > 0 {
		return s.putMeta(meta)
	}

	if err := os.Remove(s.contentPath(hash)); err != nil && !os.IsNotExist(err) {
		return errors.IO("removing snapshot", err)
	}
	s.cache.Remove(hash)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(metaKey(hash))
	})
}

func (s *Safe) contentPath(hash string) string {
	return filepath.Join(s.root, hash[:2], hash[2:])
}

func validHash(hash string) bool {
	if len(hash) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(hash)
	return err == nil
}

func metaKey(hash string) []byte {
	return []byte(fmt.Sprintf("snapshot:%s", hash))
}

func (s *Safe) putMeta(meta Meta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(metaKey(meta.Hash), data)
	})
}

func (s *Safe) getMeta(hash string) (Meta, error) {
	var meta Meta
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaKey(hash))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		})
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return meta, errors.NotFound("snapshot not found")
	}
	if err != nil {
		return meta, errors.IO("reading snapshot metadata", err)
	}
	return meta, nil
}
