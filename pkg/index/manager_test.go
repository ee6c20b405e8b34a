package index

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amansearch/internal/engine"
	amerrors "github.com/Aman-CERP/amansearch/internal/errors"
	"github.com/Aman-CERP/amansearch/pkg/analysis"
	"github.com/Aman-CERP/amansearch/pkg/document"
	"github.com/Aman-CERP/amansearch/pkg/query"
)

// ============================================================================
// Fakes
// ============================================================================

// cancelOnWatch is a context that reports cancellation as soon as anything
// waits on Done. Checks made through Err alone before that see it live.
type cancelOnWatch struct {
	context.Context
	watched atomic.Bool
}

func newCancelOnWatch() *cancelOnWatch {
	return &cancelOnWatch{Context: context.Background()}
}

func (c *cancelOnWatch) Done() <-chan struct{} {
	c.watched.Store(true)
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (c *cancelOnWatch) Err() error {
	if c.watched.Load() {
		return context.Canceled
	}
	return nil
}

// faultyDirectory wraps a real in-memory directory and injects Add errors.
type faultyDirectory struct {
	engine.Directory
	opened  int
	addErrs []error
}

func (d *faultyDirectory) OpenWriter(a analysis.Analyzer) (engine.Writer, error) {
	d.opened++
	w, err := d.Directory.OpenWriter(a)
	if err != nil {
		return nil, err
	}
	return &faultyWriter{Writer: w, dir: d}, nil
}

type faultyWriter struct {
	engine.Writer
	dir *faultyDirectory
}

func (w *faultyWriter) Add(docs []*document.Document) error {
	if len(w.dir.addErrs) > 0 {
		err := w.dir.addErrs[0]
		w.dir.addErrs = w.dir.addErrs[1:]
		if err != nil {
			return err
		}
	}
	return w.Writer.Add(docs)
}

// ============================================================================
// Helpers
// ============================================================================

func newManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	m := New("catalog", engine.OpenMemory(), analysis.MustStandard(), opts...)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func makeDocs(t *testing.T, n int) []*document.Document {
	t.Helper()
	docs := make([]*document.Document, n)
	for i := range docs {
		d, err := document.New(fmt.Sprintf("doc-%d", i+1))
		require.NoError(t, err)
		require.NoError(t, d.SetString("title", fmt.Sprintf("Kettle number %d", i+1), document.Store|document.Analyze))
		require.NoError(t, d.SetInt("rank", int32(i+1), document.Store))
		docs[i] = d
	}
	return docs
}

func byID(t *testing.T, m *Manager, id string) query.Definition {
	t.Helper()
	def, err := m.Query().WithField(document.IDField, document.StringValue(id)).Build()
	require.NoError(t, err)
	return def
}

// ============================================================================
// Search
// ============================================================================

func TestSearch_FreshIndexReturnsNothing(t *testing.T) {
	// Given: a never written index
	m := newManager(t)

	// When: searching for everything
	res, err := m.Search(context.Background(), query.All())

	// Then: zero hits and zero count, not an error
	require.NoError(t, err)
	assert.True(t, res.Succeeded)
	assert.Zero(t, res.Total)
	assert.Empty(t, res.Hits)
	assert.Equal(t, ReaderReady, m.State().Reader)
	assert.Equal(t, WriterUnopened, m.State().Writer)
}

func TestInsert_RoundTripByID(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)

	// Given: a document with id doc-1
	d, err := document.New("doc-1")
	require.NoError(t, err)
	require.NoError(t, d.SetString("title", "Blue Kettle", document.Store|document.Analyze))

	// When: inserting then searching by the id field
	res, err := m.Insert(ctx, d)
	require.NoError(t, err)
	require.True(t, res.Succeeded)
	assert.Equal(t, 1, res.Count)

	found, err := m.Search(ctx, byID(t, m, "doc-1"))
	require.NoError(t, err)

	// Then: exactly one hit carrying the id
	require.Equal(t, uint64(1), found.Total)
	require.Len(t, found.Hits, 1)
	assert.Equal(t, "doc-1", found.Hits[0].DocumentID)
	assert.Equal(t, "Blue Kettle", found.Hits[0].Fields["title"])
}

func TestSearch_ReaderRefreshesAfterCommit(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	docs := makeDocs(t, 2)

	_, err := m.Insert(ctx, docs[0])
	require.NoError(t, err)
	first, err := m.Search(ctx, query.All())
	require.NoError(t, err)
	require.Equal(t, uint64(1), first.Total)

	_, err = m.Insert(ctx, docs[1])
	require.NoError(t, err)
	second, err := m.Search(ctx, query.All())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), second.Total)
}

func TestSearch_SortAndSlice(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	_, err := m.Insert(ctx, makeDocs(t, 5)...)
	require.NoError(t, err)

	b := m.Query().WithField("title", document.StringValue("kettle")).SortBy("rank", query.SortInt32)
	require.NoError(t, b.Slice(1, 2))
	def, err := b.Build()
	require.NoError(t, err)

	res, err := m.Search(ctx, def)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), res.Total)
	require.Len(t, res.Hits, 2)
	assert.Equal(t, "doc-4", res.Hits[0].DocumentID)
	assert.Equal(t, "doc-3", res.Hits[1].DocumentID)
}

func TestSearch_FilterGatesClauses(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	_, err := m.Insert(ctx, makeDocs(t, 5)...)
	require.NoError(t, err)

	// Filter alone with no matching ordinary clause yields nothing
	def, err := m.Query().
		WithField("title", document.StringValue("teapot")).
		WithinRange("rank", document.IntValue(1), document.IntValue(5), true, true).AsFilter().
		Build()
	require.NoError(t, err)
	res, err := m.Search(ctx, def)
	require.NoError(t, err)
	assert.Zero(t, res.Total)

	// Filter narrows matching clauses
	def, err = m.Query().
		WithField("title", document.StringValue("kettle")).
		WithinRange("rank", document.IntValue(2), document.IntValue(3), true, true).AsFilter().
		Build()
	require.NoError(t, err)
	res, err = m.Search(ctx, def)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.Total)
}

func TestSearch_FiltersAreConjoined(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	_, err := m.Insert(ctx, makeDocs(t, 5)...)
	require.NoError(t, err)

	// Given: two filters no single document satisfies together
	def, err := m.Query().
		WithField("title", document.StringValue("kettle")).
		WithField("rank", document.IntValue(1)).AsFilter().
		WithField("rank", document.IntValue(2)).AsFilter().
		Build()
	require.NoError(t, err)

	// Then: nothing matches
	res, err := m.Search(ctx, def)
	require.NoError(t, err)
	assert.Zero(t, res.Total)

	// And: an excluding filter removes its matches
	def, err = m.Query().
		WithField("title", document.StringValue("kettle")).
		WithinRange("rank", document.IntValue(1), document.IntValue(3), true, true).AsFilter().
		WithField("rank", document.IntValue(2)).Forbidden().AsFilter().
		Build()
	require.NoError(t, err)
	res, err = m.Search(ctx, def)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.Total)
}

func TestSearch_ForbiddenOnlyClausesYieldNothing(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	_, err := m.Insert(ctx, makeDocs(t, 5)...)
	require.NoError(t, err)

	// An excluding clause alone
	def, err := m.Query().WithField("title", document.StringValue("teapot")).Forbidden().Build()
	require.NoError(t, err)
	res, err := m.Search(ctx, def)
	require.NoError(t, err)
	assert.Zero(t, res.Total)

	// An excluding clause with a filter that would match on its own
	def, err = m.Query().
		WithField("title", document.StringValue("teapot")).Forbidden().
		WithinRange("rank", document.IntValue(1), document.IntValue(2), true, true).AsFilter().
		Build()
	require.NoError(t, err)
	res, err = m.Search(ctx, def)
	require.NoError(t, err)
	assert.Zero(t, res.Total)
}

func TestSearch_RejectsInvalidDefinition(t *testing.T) {
	m := newManager(t)

	_, err := m.Search(context.Background(), query.Definition{})
	assert.Error(t, err)

	_, err = m.Search(context.Background(), query.Definition{Query: query.All().Query, Limit: 0})
	assert.True(t, amerrors.HasCode(err, amerrors.ErrCodeOutOfRange))
}

// ============================================================================
// Insert batching and failure handling
// ============================================================================

func TestInsert_CommitsPerBatch(t *testing.T) {
	// Given: a batch size of 2 and five documents
	var commits []CommitStats
	m := newManager(t,
		WithBatchSize(2),
		WithCommitObserver(func(s CommitStats) { commits = append(commits, s) }))

	// When: inserting
	res, err := m.Insert(context.Background(), makeDocs(t, 5)...)

	// Then: three commits of 2, 2 and 1 documents
	require.NoError(t, err)
	assert.True(t, res.Succeeded)
	assert.Equal(t, 5, res.Count)
	require.Len(t, commits, 3)
	assert.Equal(t, []int{2, 2, 1}, []int{commits[0].Inserted, commits[1].Inserted, commits[2].Inserted})
	assert.Equal(t, "catalog", commits[0].Index)
}

func TestInsert_CancelledBeforeStart(t *testing.T) {
	m := newManager(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := m.Insert(ctx, makeDocs(t, 3)...)

	require.NoError(t, err)
	assert.True(t, res.Succeeded)
	assert.True(t, res.Incomplete)
	assert.Zero(t, res.Count)
}

func TestInsert_CancelledBetweenBatches(t *testing.T) {
	// Given: cancellation triggered by the first commit
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := newManager(t,
		WithBatchSize(2),
		WithCommitObserver(func(CommitStats) { cancel() }))

	// When: inserting five documents
	res, err := m.Insert(ctx, makeDocs(t, 5)...)

	// Then: the first batch is kept and the run is flagged incomplete
	require.NoError(t, err)
	assert.True(t, res.Succeeded)
	assert.True(t, res.Incomplete)
	assert.Equal(t, 2, res.Count)

	n, err := m.Count(context.Background(), query.All())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)
}

func TestInsert_OutOfMemoryTearsDownWriter(t *testing.T) {
	ctx := context.Background()
	dir := &faultyDirectory{
		Directory: engine.OpenMemory(),
		addErrs:   []error{nil, fmt.Errorf("stage: %w", engine.ErrOutOfMemory)},
	}
	m := New("catalog", dir, nil, WithBatchSize(2))
	defer m.Close()

	// When: the second batch runs out of memory
	res, err := m.Insert(ctx, makeDocs(t, 4)...)

	// Then: the failure is reported with the partial count and the writer is gone
	require.NoError(t, err)
	assert.False(t, res.Succeeded)
	assert.Equal(t, 2, res.Count)
	assert.Contains(t, res.Message, amerrors.ErrCodeOutOfMemory)
	assert.Equal(t, WriterUnopened, m.State().Writer)

	// And: the next insert gets a fresh writer
	res, err = m.Insert(ctx, makeDocs(t, 1)...)
	require.NoError(t, err)
	assert.True(t, res.Succeeded)
	assert.Equal(t, 2, dir.opened)
	assert.Equal(t, WriterReady, m.State().Writer)
}

func TestInsert_OtherFailuresKeepWriter(t *testing.T) {
	dir := &faultyDirectory{
		Directory: engine.OpenMemory(),
		addErrs:   []error{errors.New("disk full")},
	}
	m := New("catalog", dir, nil)
	defer m.Close()

	res, err := m.Insert(context.Background(), makeDocs(t, 1)...)

	require.NoError(t, err)
	assert.False(t, res.Succeeded)
	assert.Equal(t, "disk full", res.Message)
	assert.Equal(t, WriterReady, m.State().Writer)
	assert.Equal(t, 1, dir.opened)
}

func TestInsert_RejectsNilDocument(t *testing.T) {
	m := newManager(t)
	_, err := m.Insert(context.Background(), nil)
	assert.Error(t, err)
}

// ============================================================================
// Deletes
// ============================================================================

func TestDelete_RemovesByIdentity(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, WithBatchSize(2))
	docs := makeDocs(t, 5)
	_, err := m.Insert(ctx, docs...)
	require.NoError(t, err)

	res, err := m.Delete(ctx, docs[0], docs[2], docs[4])
	require.NoError(t, err)
	assert.True(t, res.Succeeded)
	assert.Equal(t, 3, res.Count)

	n, err := m.Count(ctx, query.All())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)
}

func TestDeleteByQuery_ReportsPreDeletionCount(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	_, err := m.Insert(ctx, makeDocs(t, 5)...)
	require.NoError(t, err)

	def, err := m.Query().WithinRange("rank", document.IntValue(4), nil, true, false).Build()
	require.NoError(t, err)

	res, err := m.DeleteByQuery(ctx, def)
	require.NoError(t, err)
	assert.True(t, res.Succeeded)
	assert.Equal(t, 2, res.Count)

	n, err := m.Count(ctx, query.All())
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)
}

func TestDeleteByQuery_NothingMatchedDoesNotOpenWriter(t *testing.T) {
	m := newManager(t)

	res, err := m.DeleteByQuery(context.Background(), query.All())

	require.NoError(t, err)
	assert.True(t, res.Succeeded)
	assert.Zero(t, res.Count)
	assert.Equal(t, WriterUnopened, m.State().Writer)
}

func TestDeleteByQuery_CancellationDoesNotInterruptTheBatch(t *testing.T) {
	m := newManager(t)
	_, err := m.Insert(context.Background(), makeDocs(t, 5)...)
	require.NoError(t, err)

	// Given: a context that cancels once the engine starts watching it
	ctx := newCancelOnWatch()

	// When: deleting everything
	res, err := m.DeleteByQuery(ctx, query.All())

	// Then: the started batch runs to completion
	require.NoError(t, err)
	assert.True(t, res.Succeeded)
	assert.False(t, res.Incomplete)
	assert.Equal(t, 5, res.Count)

	n, err := m.Count(context.Background(), query.All())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDeleteByQuery_CancelledBeforeStart(t *testing.T) {
	m := newManager(t)
	_, err := m.Insert(context.Background(), makeDocs(t, 3)...)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := m.DeleteByQuery(ctx, query.All())

	require.NoError(t, err)
	assert.True(t, res.Succeeded)
	assert.True(t, res.Incomplete)
	assert.Zero(t, res.Count)

	n, err := m.Count(context.Background(), query.All())
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)
}

func TestDelete_CancellationOnlyBetweenBatches(t *testing.T) {
	m := newManager(t, WithBatchSize(2))
	docs := makeDocs(t, 4)
	_, err := m.Insert(context.Background(), docs...)
	require.NoError(t, err)

	// Given: a context the engine would see as cancelled mid-batch
	ctx := newCancelOnWatch()

	// When: deleting by identity
	res, err := m.Delete(ctx, docs...)

	// Then: every batch completes, since only Err is consulted between them
	require.NoError(t, err)
	assert.True(t, res.Succeeded)
	assert.Equal(t, 4, res.Count)
}

// ============================================================================
// Disposal
// ============================================================================

func TestClose_IsIdempotentAndRunsCallbackOnce(t *testing.T) {
	var calls atomic.Int32
	m := New("catalog", engine.OpenMemory(), nil, WithOnClose(func(*Manager) { calls.Add(1) }))
	_, err := m.Insert(context.Background(), makeDocs(t, 1)...)
	require.NoError(t, err)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, m.State().Disposed)
}

func TestClose_OperationsFailWithDisposed(t *testing.T) {
	m := New("catalog", engine.OpenMemory(), nil)
	require.NoError(t, m.Close())
	ctx := context.Background()

	_, err := m.Insert(ctx, makeDocs(t, 1)...)
	assert.True(t, amerrors.HasCode(err, amerrors.ErrCodeDisposed))
	_, err = m.Delete(ctx, makeDocs(t, 1)...)
	assert.True(t, amerrors.HasCode(err, amerrors.ErrCodeDisposed))
	_, err = m.DeleteByQuery(ctx, query.All())
	assert.True(t, amerrors.HasCode(err, amerrors.ErrCodeDisposed))
	_, err = m.Search(ctx, query.All())
	assert.True(t, amerrors.HasCode(err, amerrors.ErrCodeDisposed))
	_, err = m.Count(ctx, query.All())
	assert.True(t, amerrors.HasCode(err, amerrors.ErrCodeDisposed))
}

func TestWriterBreaker_FailsFastAfterRepeatedOpenFailures(t *testing.T) {
	closed := engine.OpenMemory()
	require.NoError(t, closed.Close())
	m := New("catalog", closed, nil, WithWriterBreaker(amerrors.NewCircuitBreaker("w", amerrors.WithMaxFailures(1))))
	defer m.Close()

	first, err := m.Insert(context.Background(), makeDocs(t, 1)...)
	require.NoError(t, err)
	assert.False(t, first.Succeeded)

	second, err := m.Insert(context.Background(), makeDocs(t, 1)...)
	require.NoError(t, err)
	assert.False(t, second.Succeeded)
	assert.Contains(t, second.Message, amerrors.ErrCodeIndexLocked)
}
