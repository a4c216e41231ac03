package safe

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
)

var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// CompressionOptions configures compression behavior
type CompressionOptions struct {
	// Minimum size in bytes before compressing
	MinSize int
	// Compression level (1=fastest, 4=best)
	Level int
	// File extensions to skip compression for
	SkipExtensions []string
}

func DefaultCompressionOptions() CompressionOptions {
	return CompressionOptions{
		MinSize: 1024,
		Level:   2,
		SkipExtensions: []string{
			".zip", ".gz", ".zst", ".xz", ".bz2",
			".png", ".jpg", ".jpeg", ".gif", ".webp",
			".pdf",
		},
	}
}

// compressionManager pools zstd encoders and decoders.
type compressionManager struct {
	opts     CompressionOptions
	encoders sync.Pool
	decoders sync.Pool
}

func newCompressionManager(opts CompressionOptions) (*compressionManager, error) {
	level := zstd.EncoderLevelFromZstd(opts.Level)

	// fail early on bad options instead of inside the pool
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level), zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("creating encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("creating decoder: %w", err)
	}

	cm := &compressionManager{opts: opts}
	cm.encoders.New = func() interface{} {
		e, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(level), zstd.WithEncoderConcurrency(1))
		return e
	}
	cm.decoders.New = func() interface{} {
		d, _ := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		return d
	}
	cm.encoders.Put(enc)
	cm.decoders.Put(dec)
	return cm, nil
}

func (cm *compressionManager) shouldCompress(name string, size int) bool {
	if size < cm.opts.MinSize {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, skip := range cm.opts.SkipExtensions {
		if ext == skip {
			return false
		}
	}
	return true
}

// compress returns the stored form of content and whether it is compressed.
func (cm *compressionManager) compress(name string, content []byte) ([]byte, bool) {
	if !cm.shouldCompress(name, len(content)) {
		return content, false
	}
	enc := cm.encoders.Get().(*zstd.Encoder)
	defer cm.encoders.Put(enc)

	out := enc.EncodeAll(content, make([]byte, 0, len(content)/2))
	if len(out) >= len(content) {
		return content, false
	}
	return out, true
}

func (cm *compressionManager) decompress(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, zstdMagic) {
		return data, nil
	}
	dec := cm.decoders.Get().(*zstd.Decoder)
	defer cm.decoders.Put(dec)
	return dec.DecodeAll(data, nil)
}
