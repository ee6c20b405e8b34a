// Package engine adapts Bleve to the writer/reader boundary used by index
// managers.
//
// A Directory owns at most one open Bleve index. Writers and readers
// obtained from it share that index: writers stage documents in a batch and
// publish them on Commit, readers observe committed generations.
package engine

import (
	"context"
	"errors"

	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/blevesearch/bleve/v2/search"

	"github.com/Aman-CERP/amansearch/pkg/analysis"
	"github.com/Aman-CERP/amansearch/pkg/document"
)

// ErrIndexNotFound is returned when a reader is requested for a directory
// that has never been written to.
var ErrIndexNotFound = errors.New("index not found")

// ErrClosed is returned by operations on a closed directory, writer or reader.
var ErrClosed = errors.New("engine resource is closed")

// Directory is the storage behind one named index.
type Directory interface {
	// Path returns the on-disk location, or "" for in-memory directories.
	Path() string
	// OpenWriter creates the index if needed and returns a writer.
	OpenWriter(a analysis.Analyzer) (Writer, error)
	// OpenReader returns a reader over the committed state. A never
	// written directory yields an empty reader.
	OpenReader() (Reader, error)
	Close() error
}

// Writer stages changes until Commit.
type Writer interface {
	Add(docs []*document.Document) error
	DeleteByQuery(ctx context.Context, q blevequery.Query) (int, error)
	Commit() error
	Close() error
}

// Reader is a point-in-time view of committed documents.
type Reader interface {
	Generation() uint64
	// ReopenIfChanged returns a newer reader when commits happened since
	// this one was opened. The receiver stays usable either way.
	ReopenIfChanged() (Reader, bool, error)
	Count(ctx context.Context, q blevequery.Query) (uint64, error)
	Search(ctx context.Context, req Request) (*Page, error)
	Close() error
}

// Request is a windowed search.
type Request struct {
	Query blevequery.Query
	Sort  search.SortOrder
	Start int
	Limit int
}

// Hit is one ranked document with its stored fields.
type Hit struct {
	ID     string
	Score  float64
	Fields map[string]any
}

// Page is the result of a search.
type Page struct {
	Total uint64
	Hits  []Hit
}
