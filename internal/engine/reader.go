package engine

import (
	"context"
	"errors"

	"github.com/blevesearch/bleve/v2"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
)

type bleveReader struct {
	dir *bleveDirectory
	idx bleve.Index
	gen uint64
}

var _ Reader = (*bleveReader)(nil)

func (r *bleveReader) Generation() uint64 { return r.gen }

func (r *bleveReader) ReopenIfChanged() (Reader, bool, error) {
	gen := r.dir.generation.Load()
	if gen == r.gen {
		return r, false, nil
	}
	idx, err := r.dir.current()
	if err != nil {
		return nil, false, err
	}
	return &bleveReader{dir: r.dir, idx: idx, gen: gen}, true, nil
}

func (r *bleveReader) Count(ctx context.Context, q blevequery.Query) (uint64, error) {
	var total uint64
	err := guard("count", func() error {
		req := bleve.NewSearchRequestOptions(q, 0, 0, false)
		res, err := r.idx.SearchInContext(ctx, req)
		if err != nil {
			return err
		}
		total = res.Total
		return nil
	})
	return total, err
}

func (r *bleveReader) Search(ctx context.Context, sr Request) (*Page, error) {
	var page *Page
	err := guard("search", func() error {
		req := bleve.NewSearchRequestOptions(sr.Query, sr.Limit, sr.Start, false)
		req.Fields = []string{"*"}
		if len(sr.Sort) > 0 {
			req.SortByCustom(sr.Sort)
		}
		res, err := r.idx.SearchInContext(ctx, req)
		if err != nil {
			return err
		}

		page = &Page{Total: res.Total, Hits: make([]Hit, 0, len(res.Hits))}
		for _, h := range res.Hits {
			page.Hits = append(page.Hits, Hit{ID: h.ID, Score: h.Score, Fields: h.Fields})
		}
		return nil
	})
	return page, err
}

// Close releases the view. The underlying index belongs to the directory.
func (r *bleveReader) Close() error { return nil }

// emptyReader stands in for a directory that has never been written.
type emptyReader struct {
	dir *bleveDirectory
}

var _ Reader = (*emptyReader)(nil)

func (r *emptyReader) Generation() uint64 { return 0 }

func (r *emptyReader) ReopenIfChanged() (Reader, bool, error) {
	idx, err := r.dir.index(false)
	if errors.Is(err, ErrIndexNotFound) {
		return r, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &bleveReader{dir: r.dir, idx: idx, gen: r.dir.generation.Load()}, true, nil
}

func (r *emptyReader) Count(context.Context, blevequery.Query) (uint64, error) { return 0, nil }

func (r *emptyReader) Search(context.Context, Request) (*Page, error) {
	return &Page{Hits: []Hit{}}, nil
}

func (r *emptyReader) Close() error { return nil }
