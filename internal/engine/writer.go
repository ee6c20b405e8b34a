package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	bleveanalysis "github.com/blevesearch/bleve/v2/analysis"
	bleveindex "github.com/blevesearch/bleve_index_api"
	bdoc "github.com/blevesearch/bleve/v2/document"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/Aman-CERP/amansearch/pkg/analysis"
	"github.com/Aman-CERP/amansearch/pkg/document"
)

const deletePageSize = 1000

type bleveWriter struct {
	dir      *bleveDirectory
	idx      bleve.Index
	analyzer analysis.Analyzer
	keyword  bleveanalysis.Analyzer

	// pageSize bounds the id lookups made by DeleteByQuery.
	pageSize int

	mu     sync.Mutex
	batch  *bleve.Batch
	closed bool
}

var _ Writer = (*bleveWriter)(nil)

func newWriter(d *bleveDirectory, idx bleve.Index, a analysis.Analyzer) *bleveWriter {
	if a == nil {
		a = analysis.MustStandard()
	}
	kw, err := analysis.Keyword()
	if err != nil {
		panic(err)
	}
	return &bleveWriter{
		dir:      d,
		idx:      idx,
		analyzer: a,
		keyword:  analysis.Engine(kw, ""),
		pageSize: deletePageSize,
		batch:    idx.NewBatch(),
	}
}

func (w *bleveWriter) Add(docs []*document.Document) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}

	err := guard("add", func() error {
		for _, d := range docs {
			if err := w.batch.IndexAdvanced(w.encode(d)); err != nil {
				return fmt.Errorf("failed to stage document %q: %w", d.ID(), err)
			}
		}
		return nil
	})
	if err != nil {
		// A failed call stages nothing.
		w.batch.Reset()
	}
	return err
}

// encode converts a document to Bleve's representation. Numeric values are
// indexed with doc values so they can be sorted on.
func (w *bleveWriter) encode(d *document.Document) *bdoc.Document {
	out := bdoc.NewDocument(d.ID())
	for _, f := range d.Fields() {
		opts := bleveindex.IndexField | bleveindex.DocValues
		if f.Options().Has(document.Store) {
			opts |= bleveindex.StoreField
		}

		term := document.Encode(f.Value())
		if term.Numeric {
			out.AddField(bdoc.NewNumericFieldWithIndexingOptions(f.Key(), nil, term.Number, opts))
			continue
		}

		text := term.Text
		if f.Options().Has(document.Sanitize) {
			text = analysis.Sanitize(text)
		}
		an := w.keyword
		if f.Options().Has(document.Analyze) && f.Type() == document.TypeString {
			an = analysis.Engine(w.analyzer, f.Key())
			opts |= bleveindex.IncludeTermVectors
		}
		out.AddField(bdoc.NewTextFieldCustom(f.Key(), nil, []byte(text), opts, an))
	}
	return out
}

func (w *bleveWriter) DeleteByQuery(ctx context.Context, q blevequery.Query) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return 0, ErrClosed
	}

	// Matching ids are collected first; deletes are staged only when every
	// page was read.
	var ids []string
	err := guard("delete", func() error {
		for from := 0; ; from += w.pageSize {
			req := bleve.NewSearchRequestOptions(q, w.pageSize, from, false)
			req.SortBy([]string{"_id"})
			res, err := w.idx.SearchInContext(ctx, req)
			if err != nil {
				return err
			}
			for _, hit := range res.Hits {
				ids = append(ids, hit.ID)
			}
			if len(res.Hits) < w.pageSize {
				return nil
			}
		}
	})
	if err != nil {
		w.batch.Reset()
		return 0, err
	}
	for _, id := range ids {
		w.batch.Delete(id)
	}
	return len(ids), nil
}

func (w *bleveWriter) Commit() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if w.batch.Size() == 0 {
		return nil
	}

	err := guard("commit", func() error {
		return w.idx.Batch(w.batch)
	})
	w.batch.Reset()
	if err != nil {
		return err
	}
	w.dir.generation.Add(1)
	return nil
}

// Close discards uncommitted changes. The directory stays open.
func (w *bleveWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	w.batch.Reset()
	return nil
}
