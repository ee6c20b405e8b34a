package index

import "github.com/Aman-CERP/amansearch/internal/engine"

// DefaultBatchSize is the number of documents written per commit.
const DefaultBatchSize = 1000

// Result summarises a write operation.
type Result struct {
	// Succeeded is false when the engine failed part way.
	Succeeded bool `json:"succeeded"`
	// Count is the number of documents processed before the operation
	// finished, failed or was cancelled.
	Count int `json:"count"`
	// Incomplete is set when cancellation stopped the operation early.
	Incomplete bool `json:"incomplete,omitempty"`
	// Message describes a failure or cancellation.
	Message string `json:"message,omitempty"`
}

// Hit is one search match.
type Hit struct {
	DocumentID string         `json:"document_id"`
	Score      float64        `json:"score"`
	Fields     map[string]any `json:"fields,omitempty"`
}

// SearchResult is the outcome of a search.
type SearchResult struct {
	Succeeded bool   `json:"succeeded"`
	Total     uint64 `json:"total"`
	Hits      []Hit  `json:"hits"`
	Message   string `json:"message,omitempty"`
}

// WriterState reports whether the writer is open.
type WriterState int

const (
	WriterUnopened WriterState = iota
	WriterReady
)

func (s WriterState) String() string {
	if s == WriterReady {
		return "ready"
	}
	return "unopened"
}

// ReaderState reports whether a reader is open.
type ReaderState int

const (
	ReaderUnopened ReaderState = iota
	ReaderReady
)

func (s ReaderState) String() string {
	if s == ReaderReady {
		return "ready"
	}
	return "unopened"
}

// State is a snapshot of a manager's resources.
type State struct {
	Writer   WriterState
	Reader   ReaderState
	Disposed bool
}

// CommitStats describes one committed batch.
type CommitStats struct {
	Index    string
	Inserted int
	Deleted  int
}

// CommitObserver is notified after every successful commit.
type CommitObserver func(CommitStats)

func toHits(page *engine.Page) []Hit {
	hits := make([]Hit, 0, len(page.Hits))
	for _, h := range page.Hits {
		hits = append(hits, Hit{DocumentID: h.ID, Score: h.Score, Fields: h.Fields})
	}
	return hits
}
