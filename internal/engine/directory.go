package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/gofrs/flock"

	amerrors "github.com/Aman-CERP/amansearch/internal/errors"
	"github.com/Aman-CERP/amansearch/pkg/analysis"
)

const (
	// dataDir holds the Bleve index inside an index directory.
	dataDir = "data"
	// lockFile guards the directory against other processes.
	lockFile = ".index.lock"
)

// Option configures a Directory.
type Option func(*bleveDirectory)

// WithLogger sets the logger used for lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(d *bleveDirectory) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithLockRetry sets the backoff used while another process holds the
// directory lock.
func WithLockRetry(cfg amerrors.RetryConfig) Option {
	return func(d *bleveDirectory) {
		d.retry = cfg
	}
}

type bleveDirectory struct {
	path   string
	logger *slog.Logger
	retry  amerrors.RetryConfig

	mu     sync.Mutex
	idx    bleve.Index
	lock   *flock.Flock
	closed bool

	generation atomic.Uint64
}

var _ Directory = (*bleveDirectory)(nil)

// Open returns a file-backed directory rooted at path. Nothing is created
// on disk until a writer is opened.
func Open(path string, opts ...Option) Directory {
	d := &bleveDirectory{
		path:   path,
		logger: slog.Default(),
		retry:  amerrors.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// OpenMemory returns a directory whose index lives only in memory.
func OpenMemory(opts ...Option) Directory {
	return Open("", opts...)
}

func (d *bleveDirectory) Path() string { return d.path }

func (d *bleveDirectory) OpenWriter(a analysis.Analyzer) (Writer, error) {
	idx, err := d.index(true)
	if err != nil {
		return nil, err
	}
	return newWriter(d, idx, a), nil
}

func (d *bleveDirectory) OpenReader() (Reader, error) {
	idx, err := d.index(false)
	if errors.Is(err, ErrIndexNotFound) {
		return &emptyReader{dir: d}, nil
	}
	if err != nil {
		return nil, err
	}
	return &bleveReader{dir: d, idx: idx, gen: d.generation.Load()}, nil
}

func (d *bleveDirectory) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	var errs []error
	if d.idx != nil {
		errs = append(errs, d.idx.Close())
		d.idx = nil
	}
	if d.lock != nil {
		errs = append(errs, d.lock.Unlock())
		d.lock = nil
	}
	return errors.Join(errs...)
}

// current returns the open index without opening one.
func (d *bleveDirectory) current() (bleve.Index, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}
	if d.idx == nil {
		return nil, ErrIndexNotFound
	}
	return d.idx, nil
}

// index opens the Bleve index, creating it when create is set.
func (d *bleveDirectory) index(create bool) (bleve.Index, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrClosed
	}
	if d.idx != nil {
		return d.idx, nil
	}

	if d.path == "" {
		if !create {
			return nil, ErrIndexNotFound
		}
		idx, err := bleve.NewMemOnly(newMapping())
		if err != nil {
			return nil, amerrors.EngineFailure("create in-memory index", err)
		}
		d.idx = idx
		return idx, nil
	}

	dataPath := filepath.Join(d.path, dataDir)
	if !create && !exists(filepath.Join(dataPath, "index_meta.json")) {
		return nil, ErrIndexNotFound
	}

	if err := os.MkdirAll(d.path, 0o755); err != nil {
		return nil, amerrors.DirectoryUnavailable(d.path, err)
	}
	if err := d.acquireLock(); err != nil {
		return nil, err
	}

	idx, err := bleve.Open(dataPath)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) || errors.Is(err, bleve.ErrorIndexMetaMissing) {
		if !create {
			d.releaseLock()
			return nil, ErrIndexNotFound
		}
		idx, err = bleve.New(dataPath, newMapping())
		if err == nil {
			d.logger.Info("index_created", slog.String("path", dataPath))
		}
	}
	if err != nil {
		d.releaseLock()
		return nil, amerrors.DirectoryUnavailable(d.path, err)
	}

	d.idx = idx
	return idx, nil
}

// acquireLock takes the cross-process lock, retrying while it is held.
// Must be called with d.mu held.
func (d *bleveDirectory) acquireLock() error {
	lock := flock.New(LockPath(d.path))
	err := amerrors.Retry(context.Background(), d.retry, func() error {
		ok, err := lock.TryLock()
		if err != nil {
			return amerrors.DirectoryUnavailable(d.path, err)
		}
		if !ok {
			return amerrors.New(amerrors.ErrCodeIndexLocked,
				fmt.Sprintf("index at %s is locked by another process", d.path), nil).
				WithSuggestion("stop the other process using this index and retry")
		}
		return nil
	})
	if err != nil {
		d.logger.Warn("index_lock_failed", amerrors.FormatForLog(err)...)
		return err
	}
	d.lock = lock
	return nil
}

// LockPath returns the lock file guarding the index directory dir.
func LockPath(dir string) string {
	return filepath.Join(dir, lockFile)
}

func (d *bleveDirectory) releaseLock() {
	if d.lock != nil {
		_ = d.lock.Unlock()
		d.lock = nil
	}
}

// newMapping returns a mapping that indexes nothing dynamically. Documents
// are submitted pre-analyzed, so the mapping only matters for defaults.
func newMapping() *mapping.IndexMappingImpl {
	m := bleve.NewIndexMapping()
	m.DefaultAnalyzer = keyword.Name
	m.DefaultMapping.Dynamic = false
	return m
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
