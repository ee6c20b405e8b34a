package query

import (
	"fmt"
	"math"
	"slices"
	"strings"

	blevequery "github.com/blevesearch/bleve/v2/search/query"

	amerrors "github.com/Aman-CERP/amansearch/internal/errors"
	"github.com/Aman-CERP/amansearch/pkg/analysis"
	"github.com/Aman-CERP/amansearch/pkg/document"
)

// DefaultLimit caps the number of hits when Slice is never called.
const DefaultLimit = 100

// Fuzziness bounds for WithFields.
const (
	MinFuzziness = 0.0
	MaxFuzziness = 2.0
)

// Occur is the boolean requirement attached to a clause.
type Occur int

const (
	Should Occur = iota
	Must
	MustNot
)

func (o Occur) String() string {
	switch o {
	case Must:
		return "must"
	case MustNot:
		return "must_not"
	default:
		return "should"
	}
}

// Definition is the immutable output of Build.
type Definition struct {
	Query blevequery.Query
	Sort  Sort
	Start int
	Limit int
}

// All returns a definition matching every document.
func All() Definition {
	return Definition{Query: blevequery.NewMatchAllQuery(), Limit: DefaultLimit}
}

type kind int

const (
	kindTerm kind = iota
	kindMultiTerm
	kindPhrase
	kindWildcard
	kindNumericRange
	kindTermRange
)

// fragment is a raw clause before tokenization and prefix widening.
type fragment struct {
	kind      kind
	field     string
	fields    []string
	text      string
	min, max  *float64
	minText   *string
	maxText   *string
	minIncl   bool
	maxIncl   bool
	fuzziness float64
}

// pending is a fragment plus the modifiers applied to it so far.
type pending struct {
	frag       fragment
	occur      Occur
	boost      float64
	noTokenize bool
	exactMatch bool
	asFilter   bool
}

type clause struct {
	q     blevequery.Query
	occur Occur
}

// Builder accumulates clauses. It is not safe for concurrent use.
type Builder struct {
	analyzer analysis.Analyzer

	pending *pending
	clauses []clause
	filters []clause

	sort  Sort
	start int
	limit int
	err   error
}

// New returns a builder tokenizing with a. A nil analyzer disables
// tokenization.
func New(a analysis.Analyzer) *Builder {
	return &Builder{
		analyzer: a,
		limit:    DefaultLimit,
	}
}

// Err returns the first clause error recorded so far.
func (b *Builder) Err() error {
	return b.err
}

func (b *Builder) fail(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

func (b *Builder) open(frag fragment) *Builder {
	b.flush()
	b.pending = &pending{frag: frag, occur: Should}
	return b
}

func checkField(name string) (string, error) {
	key := document.NormalizeName(name)
	if key == "" {
		return "", amerrors.InvalidName("field", name)
	}
	return key, nil
}

// WithField opens a clause matching v in the named field. Strings become
// term clauses. Enum names match exactly and are never tokenized. Every
// other type becomes the inclusive range [v, v].
func (b *Builder) WithField(name string, v document.Value) *Builder {
	field, err := checkField(name)
	if err != nil {
		return b.fail(err)
	}
	if v == nil {
		return b.fail(amerrors.ValidationError(fmt.Sprintf("nil value for field %q", name), nil))
	}

	term := document.Encode(v)
	if term.Numeric {
		n := term.Number
		return b.open(fragment{kind: kindNumericRange, field: field, min: &n, max: &n, minIncl: true, maxIncl: true})
	}
	b.open(fragment{kind: kindTerm, field: field, text: term.Text})
	if v.Type() == document.TypeEnum || field == document.IDField {
		b.pending.noTokenize = true
		b.pending.exactMatch = true
	}
	return b
}

// WithFields opens a clause matching text in any of the named fields.
// Fuzziness outside [0, 2] is reset to 0; a non-zero fuzziness is rounded to
// an edit distance.
func (b *Builder) WithFields(names []string, text string, fuzziness float64) *Builder {
	if len(names) == 0 {
		return b.fail(amerrors.InvalidName("field", ""))
	}
	fields := make([]string, 0, len(names))
	for _, n := range names {
		f, err := checkField(n)
		if err != nil {
			return b.fail(err)
		}
		fields = append(fields, f)
	}
	if fuzziness < MinFuzziness || fuzziness > MaxFuzziness {
		fuzziness = MinFuzziness
	}
	return b.open(fragment{kind: kindMultiTerm, fields: fields, text: text, fuzziness: fuzziness})
}

// WithPhrase opens a clause matching the tokens of text in order.
func (b *Builder) WithPhrase(name, text string) *Builder {
	field, err := checkField(name)
	if err != nil {
		return b.fail(err)
	}
	return b.open(fragment{kind: kindPhrase, field: field, text: text})
}

// WithWildcard opens a clause matching a pattern using * and ?.
// Patterns are matched against indexed tokens verbatim.
func (b *Builder) WithWildcard(name, pattern string) *Builder {
	field, err := checkField(name)
	if err != nil {
		return b.fail(err)
	}
	return b.open(fragment{kind: kindWildcard, field: field, text: pattern})
}

// WithinRange opens a range clause. A nil bound leaves that side open, but
// at least one bound is required and both must be of the same type.
func (b *Builder) WithinRange(name string, min, max document.Value, minInclusive, maxInclusive bool) *Builder {
	field, err := checkField(name)
	if err != nil {
		return b.fail(err)
	}
	if min == nil && max == nil {
		return b.fail(amerrors.ValidationError(fmt.Sprintf("range on %q needs at least one bound", name), nil))
	}
	if min != nil && max != nil && min.Type() != max.Type() {
		return b.fail(amerrors.ValidationError(
			fmt.Sprintf("range on %q mixes %s and %s bounds", name, min.Type(), max.Type()), nil))
	}

	frag := fragment{field: field, minIncl: minInclusive, maxIncl: maxInclusive}
	numeric := false
	for _, bound := range []document.Value{min, max} {
		if bound != nil {
			numeric = bound.Type().Numeric()
		}
	}
	if numeric {
		frag.kind = kindNumericRange
		if min != nil {
			n := document.Encode(min).Number
			frag.min = &n
		}
		if max != nil {
			n := document.Encode(max).Number
			frag.max = &n
		}
	} else {
		frag.kind = kindTermRange
		if min != nil {
			s := document.Encode(min).Text
			frag.minText = &s
		}
		if max != nil {
			s := document.Encode(max).Text
			frag.maxText = &s
		}
	}
	return b.open(frag)
}

// Mandatory requires the pending clause to match.
func (b *Builder) Mandatory() *Builder {
	if b.pending != nil {
		b.pending.occur = Must
	}
	return b
}

// Forbidden excludes documents matching the pending clause.
func (b *Builder) Forbidden() *Builder {
	if b.pending != nil {
		b.pending.occur = MustNot
	}
	return b
}

// Weighted boosts the pending clause's score contribution.
func (b *Builder) Weighted(boost float64) *Builder {
	if b.pending == nil {
		return b
	}
	if boost <= 0 || math.IsNaN(boost) || math.IsInf(boost, 0) {
		return b.fail(amerrors.OutOfRange("boost", boost, "must be a positive finite number"))
	}
	b.pending.boost = boost
	return b
}

// NoTokenize matches the pending clause's text verbatim.
func (b *Builder) NoTokenize() *Builder {
	if b.pending != nil {
		b.pending.noTokenize = true
	}
	return b
}

// ExactMatch stops term clauses from being widened to prefix matches.
func (b *Builder) ExactMatch() *Builder {
	if b.pending != nil {
		b.pending.exactMatch = true
	}
	return b
}

// AsFilter turns the pending clause into a filter.
func (b *Builder) AsFilter() *Builder {
	if b.pending != nil {
		b.pending.asFilter = true
	}
	return b
}

// SortBy orders results by a single field, descending unless Ascending is
// called.
func (b *Builder) SortBy(name string, t SortType) *Builder {
	field, err := checkField(name)
	if err != nil {
		return b.fail(err)
	}
	b.sort = Sort{Field: field, Type: t, Descending: true}
	return b
}

// Ascending flips a field sort to ascending order.
func (b *Builder) Ascending() *Builder {
	b.sort.Descending = false
	return b
}

// Slice sets the result window. The previous window is kept on error.
func (b *Builder) Slice(start, limit int) error {
	if start < 0 {
		return amerrors.OutOfRange("start", start, "must be >= 0")
	}
	if limit <= 0 {
		return amerrors.OutOfRange("limit", limit, "must be > 0")
	}
	b.start = start
	b.limit = limit
	return nil
}

// Build finalizes the pending clause and composes the query.
func (b *Builder) Build() (Definition, error) {
	b.flush()
	if b.err != nil {
		return Definition{}, b.err
	}

	var q blevequery.Query
	switch {
	case len(b.clauses) == 0 && len(b.filters) == 0:
		q = blevequery.NewMatchAllQuery()
	case len(b.clauses) == 0:
		q = conjoin(nil, b.filters)
	default:
		q = conjoin(combine(b.clauses), b.filters)
	}

	return Definition{
		Query: q,
		Sort:  b.sort,
		Start: b.start,
		Limit: b.limit,
	}, nil
}

// combine returns a lone positive clause as is, otherwise a boolean query.
// Clauses that only exclude match nothing.
func combine(cs []clause) blevequery.Query {
	if !slices.ContainsFunc(cs, func(c clause) bool { return c.occur != MustNot }) {
		return blevequery.NewMatchNoneQuery()
	}
	if len(cs) == 1 {
		return cs[0].q
	}
	bq := blevequery.NewBooleanQuery(nil, nil, nil)
	for _, c := range cs {
		switch c.occur {
		case Must:
			bq.AddMust(c.q)
		case MustNot:
			bq.AddMustNot(c.q)
		default:
			bq.AddShould(c.q)
		}
	}
	return bq
}

// conjoin requires q, when set, and every filter. A MustNot filter excludes
// its matches.
func conjoin(q blevequery.Query, filters []clause) blevequery.Query {
	conjuncts := make([]blevequery.Query, 0, len(filters)+1)
	if q != nil {
		conjuncts = append(conjuncts, q)
	}
	for _, f := range filters {
		if f.occur == MustNot {
			conjuncts = append(conjuncts, blevequery.NewBooleanQuery(nil, nil, []blevequery.Query{f.q}))
			continue
		}
		conjuncts = append(conjuncts, f.q)
	}
	if len(conjuncts) == 1 {
		return conjuncts[0]
	}
	return blevequery.NewConjunctionQuery(conjuncts)
}

func (b *Builder) flush() {
	p := b.pending
	if p == nil {
		return
	}
	b.pending = nil

	c := clause{q: b.finalize(p), occur: p.occur}
	if p.asFilter {
		b.filters = append(b.filters, c)
	} else {
		b.clauses = append(b.clauses, c)
	}
}

// tokenize returns the first analyzed token of text, or text itself when
// the analyzer produces nothing.
func (b *Builder) tokenize(p *pending, field, text string) string {
	if p.noTokenize || b.analyzer == nil {
		return text
	}
	if tokens := b.analyzer.Analyze(field, text); len(tokens) > 0 {
		return tokens[0]
	}
	return text
}

func (b *Builder) finalize(p *pending) blevequery.Query {
	f := p.frag
	var q blevequery.Query

	switch f.kind {
	case kindTerm:
		q = termOrPrefix(f.field, b.tokenize(p, f.field, f.text), p.exactMatch)

	case kindMultiTerm:
		disjuncts := make([]blevequery.Query, 0, len(f.fields))
		for _, field := range f.fields {
			text := b.tokenize(p, field, f.text)
			if f.fuzziness > 0 {
				fq := blevequery.NewFuzzyQuery(text)
				fq.SetField(field)
				fq.SetFuzziness(int(math.Round(f.fuzziness)))
				disjuncts = append(disjuncts, fq)
				continue
			}
			disjuncts = append(disjuncts, termOrPrefix(field, text, p.exactMatch))
		}
		if len(disjuncts) == 1 {
			q = disjuncts[0]
		} else {
			q = blevequery.NewDisjunctionQuery(disjuncts)
		}

	case kindPhrase:
		var terms []string
		if p.noTokenize || b.analyzer == nil {
			terms = strings.Fields(f.text)
		} else {
			terms = b.analyzer.Analyze(f.field, f.text)
		}
		q = blevequery.NewPhraseQuery(terms, f.field)

	case kindWildcard:
		wq := blevequery.NewWildcardQuery(f.text)
		wq.SetField(f.field)
		q = wq

	case kindNumericRange:
		nq := blevequery.NewNumericRangeInclusiveQuery(f.min, f.max, &f.minIncl, &f.maxIncl)
		nq.SetField(f.field)
		q = nq

	case kindTermRange:
		var lo, hi string
		if f.minText != nil {
			lo = b.tokenize(p, f.field, *f.minText)
		}
		if f.maxText != nil {
			hi = b.tokenize(p, f.field, *f.maxText)
		}
		rq := blevequery.NewTermRangeInclusiveQuery(lo, hi, &f.minIncl, &f.maxIncl)
		rq.SetField(f.field)
		q = rq
	}

	if p.boost > 0 {
		if bq, ok := q.(blevequery.BoostableQuery); ok {
			bq.SetBoost(p.boost)
		}
	}
	return q
}

func termOrPrefix(field, text string, exact bool) blevequery.Query {
	if exact {
		tq := blevequery.NewTermQuery(text)
		tq.SetField(field)
		return tq
	}
	pq := blevequery.NewPrefixQuery(text)
	pq.SetField(field)
	return pq
}
