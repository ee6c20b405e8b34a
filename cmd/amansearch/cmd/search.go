package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	amerrors "github.com/Aman-CERP/amansearch/internal/errors"
	"github.com/Aman-CERP/amansearch/internal/output"
	"github.com/Aman-CERP/amansearch/pkg/document"
	"github.com/Aman-CERP/amansearch/pkg/index"
	"github.com/Aman-CERP/amansearch/pkg/query"
)

// queryOptions holds the query flags shared by search and count.
type queryOptions struct {
	fields  []string // name=type:value
	filters []string // name=type:value, as filters
	phrases []string // name=text
	ranges  []string // name=type:min..max
	text    string
	in      []string
	fuzzy   float64
	require bool

	sort  string // name:type
	asc   bool
	start int
	limit int
}

func (o *queryOptions) register(cmd *cobra.Command, paging bool) {
	f := cmd.Flags()
	f.StringArrayVarP(&o.fields, "field", "F", nil, "Match a field: name=type:value (repeatable)")
	f.StringArrayVar(&o.filters, "filter", nil, "Restrict to a field value without scoring: name=type:value (repeatable)")
	f.StringArrayVar(&o.phrases, "phrase", nil, "Match a phrase: name=text (repeatable)")
	f.StringArrayVar(&o.ranges, "range", nil, "Match a range: name=type:min..max, either end may be empty (repeatable)")
	f.StringVar(&o.text, "text", "", "Free text searched across --in fields")
	f.StringSliceVar(&o.in, "in", nil, "Fields searched by --text (comma separated)")
	f.Float64Var(&o.fuzzy, "fuzzy", 0, "Edit distance for --text terms (0-2)")
	f.BoolVar(&o.require, "require", false, "Every clause must match instead of any")
	if paging {
		f.StringVar(&o.sort, "sort", "", "Sort by field instead of relevance: name:type (type string, int32, int64, single, double)")
		f.BoolVar(&o.asc, "asc", false, "Sort ascending")
		f.IntVar(&o.start, "start", 0, "Number of hits to skip")
		f.IntVarP(&o.limit, "limit", "n", 10, "Maximum number of hits")
	}
}

// build turns the flags into a query definition for m.
func (o *queryOptions) build(m *index.Manager, paging bool) (query.Definition, error) {
	b := m.Query()
	must := func() {
		if o.require {
			b.Mandatory()
		}
	}

	for _, s := range o.fields {
		name, v, err := parseFieldFlag(s)
		if err != nil {
			return query.Definition{}, err
		}
		b.WithField(name, v)
		must()
	}
	for _, s := range o.phrases {
		name, text, ok := strings.Cut(s, "=")
		if !ok {
			return query.Definition{}, flagError("phrase", s, "name=text")
		}
		b.WithPhrase(strings.TrimSpace(name), text)
		must()
	}
	for _, s := range o.ranges {
		name, lo, hi, err := parseRangeFlag(s)
		if err != nil {
			return query.Definition{}, err
		}
		b.WithinRange(name, lo, hi, true, true)
		must()
	}
	if o.text != "" {
		if len(o.in) == 0 {
			return query.Definition{}, amerrors.ValidationError("--text needs at least one --in field", nil)
		}
		b.WithFields(o.in, o.text, o.fuzzy)
		must()
	}
	for _, s := range o.filters {
		name, v, err := parseFieldFlag(s)
		if err != nil {
			return query.Definition{}, err
		}
		b.WithField(name, v).NoTokenize().ExactMatch().AsFilter()
	}

	if paging {
		if o.sort != "" {
			name, typ, ok := strings.Cut(o.sort, ":")
			if !ok {
				return query.Definition{}, flagError("sort", o.sort, "name:type")
			}
			t, err := query.ParseSortType(typ)
			if err != nil {
				return query.Definition{}, amerrors.ValidationError("invalid --sort type", err)
			}
			b.SortBy(name, t)
			if o.asc {
				b.Ascending()
			}
		}
		if err := b.Slice(o.start, o.limit); err != nil {
			return query.Definition{}, err
		}
	}
	return b.Build()
}

func flagError(flag, value, want string) error {
	return amerrors.ValidationError(fmt.Sprintf("--%s %q: expected %s", flag, value, want), nil)
}

// parseFieldFlag parses name=type:value.
func parseFieldFlag(s string) (string, document.Value, error) {
	name, typed, ok := strings.Cut(s, "=")
	if !ok {
		return "", nil, flagError("field", s, "name=type:value")
	}
	typ, raw, ok := strings.Cut(typed, ":")
	if !ok {
		return "", nil, flagError("field", s, "name=type:value")
	}
	t, err := document.ParseFieldType(typ)
	if err != nil {
		return "", nil, amerrors.TypeMismatch(name, typ, raw)
	}
	v, err := document.ParseValue(t, raw)
	if err != nil {
		return "", nil, err
	}
	return strings.TrimSpace(name), v, nil
}

// parseRangeFlag parses name=type:min..max where either bound may be empty.
func parseRangeFlag(s string) (string, document.Value, document.Value, error) {
	name, typed, ok := strings.Cut(s, "=")
	if !ok {
		return "", nil, nil, flagError("range", s, "name=type:min..max")
	}
	typ, bounds, ok := strings.Cut(typed, ":")
	if !ok {
		return "", nil, nil, flagError("range", s, "name=type:min..max")
	}
	minRaw, maxRaw, ok := strings.Cut(bounds, "..")
	if !ok {
		return "", nil, nil, flagError("range", s, "name=type:min..max")
	}
	t, err := document.ParseFieldType(typ)
	if err != nil {
		return "", nil, nil, amerrors.TypeMismatch(name, typ, bounds)
	}

	var lo, hi document.Value
	if strings.TrimSpace(minRaw) != "" {
		if lo, err = document.ParseValue(t, minRaw); err != nil {
			return "", nil, nil, err
		}
	}
	if strings.TrimSpace(maxRaw) != "" {
		if hi, err = document.ParseValue(t, maxRaw); err != nil {
			return "", nil, nil, err
		}
	}
	return strings.TrimSpace(name), lo, hi, nil
}

func newSearchCmd(a *app) *cobra.Command {
	var (
		opts   queryOptions
		format string
	)

	cmd := &cobra.Command{
		Use:   "search <index>",
		Short: "Search an index",
		Long: `Search an index with typed clauses. Without clauses every document
matches. Clauses are combined so that any may match; --require makes
every clause mandatory. Filters always apply and never affect scores.`,
		Example: `  amansearch search catalog -F title=string:kettle
  amansearch search catalog --text "blue kettel" --in title,summary --fuzzy 1
  amansearch search catalog --range price=double:10..50 --sort price:double --asc
  amansearch search catalog --phrase "title=blue kettle" --filter status=enum:active -f json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "json" {
				return amerrors.ValidationError(fmt.Sprintf("unknown format %q: use text or json", format), nil)
			}
			return a.withIndex(args[0], func(m *index.Manager) error {
				return runSearch(cmd, m, &opts, format)
			})
		},
	}

	opts.register(cmd, true)
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")
	return cmd
}

func runSearch(cmd *cobra.Command, m *index.Manager, opts *queryOptions, format string) error {
	def, err := opts.build(m, true)
	if err != nil {
		return err
	}

	res, err := m.Search(cmd.Context(), def)
	if err != nil {
		return err
	}
	if !res.Succeeded {
		return amerrors.New(amerrors.ErrCodeEngineFailure, "search failed: "+res.Message, nil)
	}
	slog.Info("cli_search",
		slog.String("index", m.Name()),
		slog.Uint64("total", res.Total),
		slog.Int("hits", len(res.Hits)))

	out := output.New(cmd.OutOrStdout())
	if format == "json" {
		return out.JSON(res)
	}

	if len(res.Hits) == 0 {
		out.Statusf("", "no matches in %s", m.Name())
		return nil
	}
	for i, h := range res.Hits {
		out.Hit(def.Start+i+1, h.DocumentID, h.Score, h.Fields)
	}
	out.Newline()
	out.Statusf("", "%d of %d matches", len(res.Hits), res.Total)
	return nil
}

func newCountCmd(a *app) *cobra.Command {
	var opts queryOptions

	cmd := &cobra.Command{
		Use:   "count <index>",
		Short: "Count matching documents",
		Long:  `Count the documents matching the same clauses search accepts.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withIndex(args[0], func(m *index.Manager) error {
				def, err := opts.build(m, false)
				if err != nil {
					return err
				}
				n, err := m.Count(cmd.Context(), def)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), n)
				return err
			})
		},
	}

	opts.register(cmd, false)
	return cmd
}
