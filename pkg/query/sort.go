package query

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2/search"
)

// SortType selects the comparator used for a sort field.
type SortType int

const (
	SortString SortType = iota
	SortInt32
	SortInt64
	SortSingle
	SortDouble
)

func (t SortType) String() string {
	switch t {
	case SortString:
		return "string"
	case SortInt32:
		return "int32"
	case SortInt64:
		return "int64"
	case SortSingle:
		return "single"
	case SortDouble:
		return "double"
	default:
		return fmt.Sprintf("SortType(%d)", int(t))
	}
}

// ParseSortType resolves a sort type name.
func ParseSortType(s string) (SortType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string", "str", "text":
		return SortString, nil
	case "int32", "int", "integer":
		return SortInt32, nil
	case "int64", "long", "date", "datetime":
		return SortInt64, nil
	case "single", "float", "float32":
		return SortSingle, nil
	case "double", "float64":
		return SortDouble, nil
	}
	return 0, fmt.Errorf("unknown sort type %q", s)
}

// Sort describes the ordering of a search. The zero value sorts by
// relevance, best first.
type Sort struct {
	Field      string
	Type       SortType
	Descending bool
}

// Relevance reports whether results are ordered by score.
func (s Sort) Relevance() bool { return s.Field == "" }

// Order converts the sort to the engine's sort order. Field sorts fall back
// to score, then document id, to keep paging stable.
func (s Sort) Order() search.SortOrder {
	if s.Relevance() {
		return search.SortOrder{&search.SortScore{Desc: true}}
	}

	typ := search.SortFieldAsNumber
	if s.Type == SortString {
		typ = search.SortFieldAsString
	}
	return search.SortOrder{
		&search.SortField{
			Field:   s.Field,
			Desc:    s.Descending,
			Type:    typ,
			Missing: search.SortFieldMissingLast,
		},
		&search.SortScore{Desc: true},
		&search.SortDocID{},
	}
}
