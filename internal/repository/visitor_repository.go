package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/iliyamo/visitor-tracker/internal/logger"
	"github.com/iliyamo/visitor-tracker/internal/model"
)

// VisitorRepo persists visitors as one pretty-printed JSON array.  The file
// is the only source of truth: every call reads it from disk.
//
// Mutations run under mu so concurrent appends cannot overwrite each
// other, and every write goes through a temp file renamed over the
// original, so readers never see a half-written array.
type VisitorRepo struct {
	path       string
	archiveDir string
	rotateAt   int
	now        func() time.Time

	mu sync.RWMutex
}

// Option configures a VisitorRepo.
type Option func(*VisitorRepo)

// WithRotation archives the store into dir once it holds maxRecords
// visitors.  A non-positive maxRecords disables rotation.
func WithRotation(dir string, maxRecords int) Option {
	return func(r *VisitorRepo) {
		r.archiveDir = dir
		r.rotateAt = maxRecords
	}
}

// NewVisitorRepo returns a repo backed by the file at path.  Call
// EnsureInitialized before serving requests.
func NewVisitorRepo(path string, opts ...Option) *VisitorRepo {
	r := &VisitorRepo{path: path, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Path returns the backing file.
func (r *VisitorRepo) Path() string { return r.path }

// EnsureInitialized creates the data directory and an empty array file if
// either is missing.  An existing file is left untouched, even if corrupt.
func (r *VisitorRepo) EnsureInitialized() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("%w: create data dir: %v", ErrStoreWrite, err)
	}
	if _, err := os.Stat(r.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("%w: stat %s: %v", ErrStoreRead, r.path, err)
	}
	return r.writeAll([]model.Visitor{})
}

// Load returns every visitor in insertion order.  The slice is never nil.
func (r *VisitorRepo) Load(ctx context.Context) ([]model.Visitor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.read()
}

// Append adds v to the end of the store.  An unreadable or corrupt file is
// logged and replaced by a fresh array holding just v.
func (r *VisitorRepo) Append(ctx context.Context, v model.Visitor) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	visitors, err := r.read()
	if err != nil {
		logger.LogWf("starting a new visitor store at %s: %v", r.path, err)
		visitors = nil
	}
	visitors = append(visitors, v)

	if r.rotateAt > 0 && len(visitors) >= r.rotateAt {
		name, err := r.archive(visitors)
		if err != nil {
			return err
		}
		logger.LogIf("archived %d visitors to %s", len(visitors), name)
		visitors = []model.Visitor{}
	}
	return r.writeAll(visitors)
}

func (r *VisitorRepo) read() ([]model.Visitor, error) {
	b, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreRead, err)
	}
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil, fmt.Errorf("%w: %s does not hold an array", ErrStoreRead, r.path)
	}
	var visitors []model.Visitor
	if err := json.Unmarshal(b, &visitors); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrStoreRead, r.path, err)
	}
	if visitors == nil {
		visitors = []model.Visitor{}
	}
	return visitors, nil
}

// writeAll replaces the file contents atomically.  Callers hold mu.
func (r *VisitorRepo) writeAll(visitors []model.Visitor) error {
	b, err := json.MarshalIndent(visitors, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrStoreWrite, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}
	return nil
}
