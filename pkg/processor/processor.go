package processor

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/xhad/duo/internal/models"
)

var (
	ErrInvalidFile = errors.New("invalid file")
	ErrTooLarge    = errors.New("file too large")
)

type ProcessorConfig struct {
	TempDir string
	MaxSize int64 // bytes per file
}

// Processor stages uploaded PDFs on local disk under their original
// filename so the indexer sees a meaningful name.
type Processor struct {
	config ProcessorConfig
}

func NewWithConfig(config ProcessorConfig) Processor {
	if config.TempDir == "" {
		config.TempDir = os.TempDir()
	}
	if config.MaxSize == 0 {
		config.MaxSize = 50 * 1024 * 1024
	}

	return Processor{
		config: config,
	}
}

// Prepare copies r into a fresh directory, enforcing the size limit and
// hashing the content on the way. The returned cleanup removes the
// directory and is safe to call when err is non-nil.
func (p *Processor) Prepare(label, filename string, r io.Reader) (models.PreparedDocument, func(), error) {
	noop := func() {}

	name := sanitizeFilename(filename)
	if name == "" {
		return models.PreparedDocument{}, noop, fmt.Errorf("%w: %s has no filename", ErrInvalidFile, label)
	}

	dir := filepath.Join(p.config.TempDir, "duo-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return models.PreparedDocument{}, noop, fmt.Errorf("failed to create temp dir: %w", err)
	}
	cleanup := func() { os.RemoveAll(dir) }

	path := filepath.Join(dir, name)
	out, err := os.Create(path)
	if err != nil {
		cleanup()
		return models.PreparedDocument{}, noop, fmt.Errorf("failed to create temp file: %w", err)
	}

	hash := sha256.New()
	written, err := io.Copy(io.MultiWriter(out, hash), io.LimitReader(r, p.config.MaxSize+1))
	closeErr := out.Close()
	if err != nil {
		cleanup()
		return models.PreparedDocument{}, noop, fmt.Errorf("failed to save %s: %w", label, err)
	}
	if closeErr != nil {
		cleanup()
		return models.PreparedDocument{}, noop, fmt.Errorf("failed to save %s: %w", label, closeErr)
	}

	if written > p.config.MaxSize {
		cleanup()
		return models.PreparedDocument{}, noop, fmt.Errorf("%w: %s exceeds %dMB", ErrTooLarge, label, p.config.MaxSize/(1024*1024))
	}

	return models.PreparedDocument{
		Label:    label,
		Filename: name,
		Path:     path,
		Size:     written,
		SHA256:   hex.EncodeToString(hash.Sum(nil)),
	}, cleanup, nil
}

// sanitizeFilename keeps the base name and drops characters that are
// unsafe in a path.
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	if name == "." || name == "/" || name == ".." {
		return ""
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r < 0x20 || r == 0x7f:
			continue
		case strings.ContainsRune(`<>:"|?*`, r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}

	return strings.TrimSpace(b.String())
}
