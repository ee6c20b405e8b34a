package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/Aman-CERP/amansearch/internal/engine"
	amerrors "github.com/Aman-CERP/amansearch/internal/errors"
	"github.com/Aman-CERP/amansearch/pkg/analysis"
	"github.com/Aman-CERP/amansearch/pkg/document"
	"github.com/Aman-CERP/amansearch/pkg/query"
)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithOnClose registers a callback run exactly once when the manager is
// closed.
func WithOnClose(fn func(*Manager)) Option {
	return func(m *Manager) {
		m.onClose = fn
	}
}

// WithCommitObserver registers a callback run after every commit.
func WithCommitObserver(fn CommitObserver) Option {
	return func(m *Manager) {
		m.observer = fn
	}
}

// WithBatchSize overrides DefaultBatchSize.
func WithBatchSize(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.batchSize = n
		}
	}
}

// WithWriterBreaker overrides the circuit breaker guarding writer creation.
func WithWriterBreaker(cb *amerrors.CircuitBreaker) Option {
	return func(m *Manager) {
		if cb != nil {
			m.breaker = cb
		}
	}
}

// resources holds everything that must be released. It never references
// the Manager so that it can be handed to runtime.AddCleanup.
type resources struct {
	dir engine.Directory

	writerMu sync.Mutex
	writer   engine.Writer

	readerMu sync.Mutex
	reader   engine.Reader
}

func (r *resources) release() error {
	r.readerMu.Lock()
	defer r.readerMu.Unlock()
	r.writerMu.Lock()
	defer r.writerMu.Unlock()

	var errs []error
	if r.reader != nil {
		errs = append(errs, r.reader.Close())
		r.reader = nil
	}
	if r.writer != nil {
		errs = append(errs, r.writer.Close())
		r.writer = nil
	}
	if r.dir != nil {
		errs = append(errs, r.dir.Close())
		r.dir = nil
	}
	return errors.Join(errs...)
}

// Manager owns the writer and reader of one named index.
type Manager struct {
	name      string
	analyzer  analysis.Analyzer
	logger    *slog.Logger
	batchSize int
	onClose   func(*Manager)
	observer  CommitObserver
	breaker   *amerrors.CircuitBreaker

	res       *resources
	cleanup   runtime.Cleanup
	disposed  atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// New returns a manager for the named index stored in dir. Nothing is
// opened until the first operation.
func New(name string, dir engine.Directory, a analysis.Analyzer, opts ...Option) *Manager {
	if a == nil {
		a = analysis.MustStandard()
	}
	m := &Manager{
		name:      name,
		analyzer:  a,
		logger:    slog.Default(),
		batchSize: DefaultBatchSize,
		res:       &resources{dir: dir},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.breaker == nil {
		m.breaker = amerrors.NewCircuitBreaker("writer:" + name)
	}
	m.logger = m.logger.With(slog.String("index", name))

	logger := m.logger
	m.cleanup = runtime.AddCleanup(m, func(r *resources) {
		if err := r.release(); err != nil {
			logger.Warn("index_cleanup_failed", slog.String("error", err.Error()))
		}
	}, m.res)
	return m
}

// Name returns the index name.
func (m *Manager) Name() string { return m.name }

// Analyzer returns the analyzer used for indexing, for building queries.
func (m *Manager) Analyzer() analysis.Analyzer { return m.analyzer }

// Query starts a query builder tokenizing with this index's analyzer.
func (m *Manager) Query() *query.Builder { return query.New(m.analyzer) }

// State returns a snapshot of the manager's resources.
func (m *Manager) State() State {
	if m.disposed.Load() {
		return State{Disposed: true}
	}
	var s State
	m.res.writerMu.Lock()
	if m.res.writer != nil {
		s.Writer = WriterReady
	}
	m.res.writerMu.Unlock()
	m.res.readerMu.Lock()
	if m.res.reader != nil {
		s.Reader = ReaderReady
	}
	m.res.readerMu.Unlock()
	return s
}

func (m *Manager) checkOpen() error {
	if m.disposed.Load() {
		return amerrors.Disposed("index " + m.name)
	}
	return nil
}

// Insert writes docs in batches, committing after each batch.
func (m *Manager) Insert(ctx context.Context, docs ...*document.Document) (Result, error) {
	if err := m.checkOpen(); err != nil {
		return Result{}, err
	}
	for i, d := range docs {
		if d == nil {
			return Result{}, amerrors.ValidationError(fmt.Sprintf("document %d is nil", i), nil)
		}
	}

	start := time.Now()
	res := m.batched(ctx, "insert", len(docs), func(w engine.Writer, lo, hi int) (int, error) {
		if err := w.Add(docs[lo:hi]); err != nil {
			return 0, err
		}
		if err := w.Commit(); err != nil {
			return 0, err
		}
		m.notify(CommitStats{Index: m.name, Inserted: hi - lo})
		return hi - lo, nil
	})
	m.logger.Debug("index_insert",
		slog.Int("documents", len(docs)),
		slog.Int("written", res.Count),
		slog.Bool("succeeded", res.Succeeded),
		slog.Duration("elapsed", time.Since(start)))
	return res, nil
}

// Delete removes docs by identifier, batch by batch.
func (m *Manager) Delete(ctx context.Context, docs ...*document.Document) (Result, error) {
	if err := m.checkOpen(); err != nil {
		return Result{}, err
	}
	for i, d := range docs {
		if d == nil {
			return Result{}, amerrors.ValidationError(fmt.Sprintf("document %d is nil", i), nil)
		}
	}
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID()
	}
	return m.DeleteIDs(ctx, ids...)
}

// DeleteIDs removes documents by identifier, batch by batch.
func (m *Manager) DeleteIDs(ctx context.Context, ids ...string) (Result, error) {
	if err := m.checkOpen(); err != nil {
		return Result{}, err
	}

	res := m.batched(ctx, "delete", len(ids), func(w engine.Writer, lo, hi int) (int, error) {
		disjuncts := make([]blevequery.Query, 0, hi-lo)
		for _, id := range ids[lo:hi] {
			tq := blevequery.NewTermQuery(id)
			tq.SetField(document.IDField)
			disjuncts = append(disjuncts, tq)
		}
		n, err := w.DeleteByQuery(context.WithoutCancel(ctx), blevequery.NewDisjunctionQuery(disjuncts))
		if err != nil {
			return 0, err
		}
		if err := w.Commit(); err != nil {
			return 0, err
		}
		m.notify(CommitStats{Index: m.name, Deleted: n})
		return n, nil
	})
	return res, nil
}

// DeleteByQuery removes every document matching def.Query and reports how
// many matched before deletion.
func (m *Manager) DeleteByQuery(ctx context.Context, def query.Definition) (Result, error) {
	if err := m.checkOpen(); err != nil {
		return Result{}, err
	}
	if def.Query == nil {
		return Result{}, amerrors.ValidationError("query definition has no query", nil)
	}

	if err := ctx.Err(); err != nil {
		m.logger.Info("index_delete_by_query_cancelled")
		return Result{Succeeded: true, Incomplete: true, Message: err.Error()}, nil
	}
	// The query runs as a single batch, so cancellation is not observed
	// once it has started.
	ctx = context.WithoutCancel(ctx)

	r, err := m.acquireReader()
	if err != nil {
		return m.failure("delete_by_query", err, 0), nil
	}
	matched, err := r.Count(ctx, def.Query)
	if err != nil {
		return m.failure("delete_by_query", err, 0), nil
	}
	if matched == 0 {
		return Result{Succeeded: true}, nil
	}

	err = m.withWriter(func(w engine.Writer) error {
		n, err := w.DeleteByQuery(ctx, def.Query)
		if err != nil {
			return err
		}
		if err := w.Commit(); err != nil {
			return err
		}
		m.notify(CommitStats{Index: m.name, Deleted: n})
		return nil
	})
	if err != nil {
		return m.failure("delete_by_query", err, 0), nil
	}
	return Result{Succeeded: true, Count: int(matched)}, nil
}

// Search runs def against the latest committed snapshot.
func (m *Manager) Search(ctx context.Context, def query.Definition) (SearchResult, error) {
	if err := m.checkOpen(); err != nil {
		return SearchResult{}, err
	}
	if def.Query == nil {
		return SearchResult{}, amerrors.ValidationError("query definition has no query", nil)
	}
	if def.Start < 0 || def.Limit <= 0 {
		return SearchResult{}, amerrors.OutOfRange("window", fmt.Sprintf("%d+%d", def.Start, def.Limit), "start >= 0 and limit > 0")
	}

	r, err := m.acquireReader()
	if err != nil {
		return m.searchFailure(err), nil
	}
	page, err := r.Search(ctx, engine.Request{
		Query: def.Query,
		Sort:  def.Sort.Order(),
		Start: def.Start,
		Limit: def.Limit,
	})
	if err != nil {
		return m.searchFailure(err), nil
	}
	return SearchResult{Succeeded: true, Total: page.Total, Hits: toHits(page)}, nil
}

// Count returns the number of documents matching def.Query.
func (m *Manager) Count(ctx context.Context, def query.Definition) (uint64, error) {
	if err := m.checkOpen(); err != nil {
		return 0, err
	}
	if def.Query == nil {
		return 0, amerrors.ValidationError("query definition has no query", nil)
	}
	r, err := m.acquireReader()
	if err != nil {
		return 0, amerrors.EngineFailure("count", err)
	}
	n, err := r.Count(ctx, def.Query)
	if err != nil {
		return 0, amerrors.EngineFailure("count", err)
	}
	return n, nil
}

// batched runs op over [0,total) in chunks, stopping on the first failure
// or when ctx is cancelled between chunks.
func (m *Manager) batched(ctx context.Context, op string, total int, fn func(w engine.Writer, lo, hi int) (int, error)) Result {
	done := 0
	for lo := 0; lo < total; lo += m.batchSize {
		if err := ctx.Err(); err != nil {
			m.logger.Info("index_"+op+"_cancelled",
				slog.Int("completed", done),
				slog.Int("remaining", total-lo))
			return Result{Succeeded: true, Count: done, Incomplete: true, Message: err.Error()}
		}

		hi := min(lo+m.batchSize, total)
		var n int
		err := m.withWriter(func(w engine.Writer) error {
			var err error
			n, err = fn(w, lo, hi)
			return err
		})
		if err != nil {
			return m.failure(op, err, done)
		}
		done += n
	}
	return Result{Succeeded: true, Count: done}
}

// withWriter runs fn holding the writer slot, opening the writer on demand.
// Out of memory failures close the writer so the next call starts fresh.
func (m *Manager) withWriter(fn func(engine.Writer) error) error {
	r := m.res
	r.writerMu.Lock()
	defer r.writerMu.Unlock()

	if m.disposed.Load() || r.dir == nil {
		return amerrors.Disposed("index " + m.name)
	}
	if r.writer == nil {
		w, err := amerrors.Execute(m.breaker, func() (engine.Writer, error) {
			return r.dir.OpenWriter(m.analyzer)
		})
		if errors.Is(err, amerrors.ErrCircuitOpen) {
			return amerrors.New(amerrors.ErrCodeIndexLocked,
				fmt.Sprintf("writer for index %s is unavailable after repeated failures", m.name), err)
		}
		if err != nil {
			return err
		}
		r.writer = w
	}

	err := fn(r.writer)
	if err != nil && engine.IsOutOfMemory(err) {
		_ = r.writer.Close()
		r.writer = nil
		m.logger.Warn("writer_torn_down", slog.String("error", err.Error()))
	}
	return err
}

// acquireReader returns the current reader, swapping in a newer snapshot
// when one is available.
func (m *Manager) acquireReader() (engine.Reader, error) {
	r := m.res
	r.readerMu.Lock()
	defer r.readerMu.Unlock()

	if m.disposed.Load() || r.dir == nil {
		return nil, amerrors.Disposed("index " + m.name)
	}
	if r.reader == nil {
		rd, err := r.dir.OpenReader()
		if err != nil {
			return nil, err
		}
		r.reader = rd
		return rd, nil
	}

	next, changed, err := r.reader.ReopenIfChanged()
	if err != nil {
		return nil, err
	}
	if changed {
		_ = r.reader.Close()
		r.reader = next
	}
	return r.reader, nil
}

func (m *Manager) notify(stats CommitStats) {
	if m.observer != nil {
		m.observer(stats)
	}
}

func (m *Manager) failure(op string, err error, done int) Result {
	attrs := append([]any{slog.Int("completed", done)}, amerrors.FormatForLog(err)...)
	m.logger.Error("index_"+op+"_failed", attrs...)

	msg := err.Error()
	if engine.IsOutOfMemory(err) {
		msg = amerrors.New(amerrors.ErrCodeOutOfMemory, "engine ran out of memory; writer was reset", err).Error()
	}
	return Result{Succeeded: false, Count: done, Message: msg}
}

func (m *Manager) searchFailure(err error) SearchResult {
	m.logger.Error("index_search_failed", amerrors.FormatForLog(err)...)
	return SearchResult{Succeeded: false, Hits: []Hit{}, Message: err.Error()}
}

// Close releases the writer, reader and directory and runs the close
// callback. It is safe to call more than once.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.disposed.Store(true)
		m.cleanup.Stop()
		m.closeErr = m.res.release()
		if m.onClose != nil {
			m.onClose(m)
		}
		m.logger.Debug("index_closed")
	})
	return m.closeErr
}
