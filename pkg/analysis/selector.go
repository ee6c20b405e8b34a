package analysis

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// Result is a strategy's answer for one index name. A nil Analyzer means the
// strategy has no opinion.
type Result struct {
	Analyzer Analyzer
	Priority int
}

// Empty reports whether the result carries no analyzer.
func (r Result) Empty() bool { return r.Analyzer == nil }

// Strategy proposes an analyzer for an index name.
type Strategy interface {
	TrySelect(indexName string) Result
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(indexName string) Result

func (f StrategyFunc) TrySelect(indexName string) Result { return f(indexName) }

// Selector resolves the analyzer for an index. Its strategy set is fixed at
// construction.
type Selector struct {
	strategies []Strategy
	fallback   Analyzer
}

// NewSelector returns a selector consulting strategies in order. When two
// strategies report the same priority the one registered first wins.
func NewSelector(strategies ...Strategy) *Selector {
	return &Selector{
		strategies: withoutNil(strategies),
		fallback:   MustStandard(),
	}
}

func withoutNil(s []Strategy) []Strategy {
	out := make([]Strategy, 0, len(s))
	for _, st := range s {
		if st != nil {
			out = append(out, st)
		}
	}
	return out
}

// Get returns the highest priority analyzer proposed for indexName, or a
// standard analyzer without stop words.
func (s *Selector) Get(indexName string) Analyzer {
	var best Result
	found := false
	for _, st := range s.strategies {
		r := st.TrySelect(indexName)
		if r.Empty() {
			continue
		}
		if !found || r.Priority > best.Priority {
			best = r
			found = true
		}
	}
	if !found {
		return s.fallback
	}
	return best.Analyzer
}

// Fixed maps exact index names (case-insensitive) to analyzers.
type Fixed struct {
	Priority  int
	Analyzers map[string]Analyzer
}

func (f Fixed) TrySelect(indexName string) Result {
	for name, a := range f.Analyzers {
		if strings.EqualFold(name, indexName) {
			return Result{Analyzer: a, Priority: f.Priority}
		}
	}
	return Result{}
}

// GlobRule binds an index name pattern to an analyzer.
type GlobRule struct {
	Pattern  string
	Analyzer Analyzer
	Priority int
}

type compiledRule struct {
	GlobRule
	g glob.Glob
}

// Glob matches index names against shell-style patterns such as "logs-*"
// or "{docs,wiki}".
type Glob struct {
	rules []compiledRule
}

// NewGlob compiles rules. Among matching rules the highest priority wins,
// then the earliest rule.
func NewGlob(rules ...GlobRule) (*Glob, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		if r.Analyzer == nil {
			return nil, fmt.Errorf("glob rule %q has no analyzer", r.Pattern)
		}
		g, err := glob.Compile(strings.ToLower(r.Pattern))
		if err != nil {
			return nil, fmt.Errorf("invalid index pattern %q: %w", r.Pattern, err)
		}
		compiled = append(compiled, compiledRule{GlobRule: r, g: g})
	}
	return &Glob{rules: compiled}, nil
}

func (g *Glob) TrySelect(indexName string) Result {
	name := strings.ToLower(indexName)
	var best Result
	for _, r := range g.rules {
		if !r.g.Match(name) {
			continue
		}
		if best.Empty() || r.Priority > best.Priority {
			best = Result{Analyzer: r.Analyzer, Priority: r.Priority}
		}
	}
	return best
}
