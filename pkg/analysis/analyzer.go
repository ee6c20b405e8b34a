// Package analysis provides the tokenizing analyzers used at index and
// query time, and the Selector that picks one for a named index.
package analysis

import (
	"fmt"
	"slices"
	"strings"

	bleveanalysis "github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/char/html"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/letter"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/registry"
)

// Analyzer kinds understood by New.
const (
	KindStandard = "standard"
	KindSimple   = "simple"
	KindKeyword  = "keyword"
	KindEnglish  = "english"
	KindCode     = "code"
)

// Kinds lists the analyzer kinds in a stable order.
func Kinds() []string {
	return []string{KindStandard, KindSimple, KindKeyword, KindEnglish, KindCode}
}

// IsKind reports whether New accepts kind. Empty means standard.
func IsKind(kind string) bool {
	return kind == "" || slices.Contains(Kinds(), strings.ToLower(kind))
}

// Analyzer turns text into the normalised tokens stored in the index.
// Implementations must be deterministic and safe for concurrent use.
type Analyzer interface {
	Name() string
	Analyze(field, text string) []string
}

// engineAnalyzer is implemented by analyzers backed directly by a Bleve
// analyzer, letting the engine index with exact token positions.
type engineAnalyzer interface {
	engine() bleveanalysis.Analyzer
}

type bleveAnalyzer struct {
	name  string
	inner bleveanalysis.Analyzer
}

func (a *bleveAnalyzer) Name() string { return a.name }

func (a *bleveAnalyzer) Analyze(_ string, text string) []string {
	stream := a.inner.Analyze([]byte(text))
	tokens := make([]string, 0, len(stream))
	for _, tok := range stream {
		tokens = append(tokens, string(tok.Term))
	}
	return tokens
}

func (a *bleveAnalyzer) engine() bleveanalysis.Analyzer { return a.inner }

// New builds an analyzer by kind. Stop words apply to the standard and
// code kinds and are ignored otherwise.
func New(kind string, stopWords []string) (Analyzer, error) {
	switch strings.ToLower(kind) {
	case KindStandard, "":
		return Standard(stopWords...)
	case KindSimple:
		return Simple()
	case KindKeyword:
		return Keyword()
	case KindEnglish:
		return English()
	case KindCode:
		return Code(stopWords...)
	default:
		return nil, fmt.Errorf("unknown analyzer kind %q", kind)
	}
}

// Standard splits on Unicode word boundaries and lowercases. With no stop
// words it removes nothing.
func Standard(stopWords ...string) (Analyzer, error) {
	cache := registry.NewCache()
	tokenizer, err := cache.TokenizerNamed(unicode.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to load unicode tokenizer: %w", err)
	}
	return &bleveAnalyzer{
		name:  KindStandard,
		inner: chain(tokenizer, stopWords),
	}, nil
}

// Simple splits on non-letters and lowercases.
func Simple() (Analyzer, error) {
	cache := registry.NewCache()
	tokenizer, err := cache.TokenizerNamed(letter.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to load letter tokenizer: %w", err)
	}
	return &bleveAnalyzer{name: KindSimple, inner: chain(tokenizer, nil)}, nil
}

// Keyword emits the whole input as a single token.
func Keyword() (Analyzer, error) {
	return named(KindKeyword, keyword.Name)
}

// English applies possessive removal, lowercasing, English stop words and
// Porter stemming.
func English() (Analyzer, error) {
	return named(KindEnglish, en.AnalyzerName)
}

// Code splits identifiers on camelCase and snake_case boundaries.
func Code(stopWords ...string) (Analyzer, error) {
	cache := registry.NewCache()
	tokenizer, err := cache.TokenizerNamed(CodeTokenizerName)
	if err != nil {
		return nil, fmt.Errorf("failed to load code tokenizer: %w", err)
	}
	return &bleveAnalyzer{name: KindCode, inner: chain(tokenizer, stopWords)}, nil
}

// MustStandard returns the default analyzer: Standard with no stop words.
func MustStandard() Analyzer {
	a, err := Standard()
	if err != nil {
		panic(err)
	}
	return a
}

func named(name, registered string) (Analyzer, error) {
	a, err := registry.NewCache().AnalyzerNamed(registered)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s analyzer: %w", registered, err)
	}
	return &bleveAnalyzer{name: name, inner: a}, nil
}

func chain(tokenizer bleveanalysis.Tokenizer, stopWords []string) bleveanalysis.Analyzer {
	filters := []bleveanalysis.TokenFilter{lowercase.NewLowerCaseFilter()}
	if len(stopWords) > 0 {
		filters = append(filters, newStopFilter(stopWords))
	}
	return &bleveanalysis.DefaultAnalyzer{
		Tokenizer:    tokenizer,
		TokenFilters: filters,
	}
}

// Engine returns a Bleve analyzer producing the same tokens as a for field.
func Engine(a Analyzer, field string) bleveanalysis.Analyzer {
	if ea, ok := a.(engineAnalyzer); ok {
		return ea.engine()
	}
	return &fieldAdapter{field: field, inner: a}
}

// fieldAdapter exposes an arbitrary Analyzer to Bleve. Offsets are not
// tracked, only positions.
type fieldAdapter struct {
	field string
	inner Analyzer
}

func (f *fieldAdapter) Analyze(input []byte) bleveanalysis.TokenStream {
	tokens := f.inner.Analyze(f.field, string(input))
	stream := make(bleveanalysis.TokenStream, 0, len(tokens))
	for i, tok := range tokens {
		stream = append(stream, &bleveanalysis.Token{
			Term:     []byte(tok),
			Position: i + 1,
			Type:     bleveanalysis.AlphaNumeric,
		})
	}
	return stream
}

var htmlFilter bleveanalysis.CharFilter

func init() {
	cf, err := registry.NewCache().CharFilterNamed(html.Name)
	if err != nil {
		panic(fmt.Sprintf("analysis: html char filter unavailable: %v", err))
	}
	htmlFilter = cf
}

// Sanitize removes HTML markup from text and collapses the whitespace left
// behind.
func Sanitize(text string) string {
	return strings.Join(strings.Fields(string(htmlFilter.Filter([]byte(text)))), " ")
}
