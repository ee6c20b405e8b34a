package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	amerrors "github.com/Aman-CERP/amansearch/internal/errors"
	"github.com/Aman-CERP/amansearch/internal/output"
	"github.com/Aman-CERP/amansearch/pkg/document"
	"github.com/Aman-CERP/amansearch/pkg/index"
)

// inputDocument is one YAML document of an insert stream.
type inputDocument struct {
	ID     string       `yaml:"id"`
	Fields []inputField `yaml:"fields"`
}

type inputField struct {
	Name     string    `yaml:"name"`
	Type     string    `yaml:"type"`
	Value    yaml.Node `yaml:"value"`
	Store    *bool     `yaml:"store"`
	Analyze  bool      `yaml:"analyze"`
	Sanitize bool      `yaml:"sanitize"`
}

func (f inputField) options() document.Options {
	var opts document.Options
	if f.Store == nil || *f.Store {
		opts |= document.Store
	}
	if f.Analyze {
		opts |= document.Analyze
	}
	if f.Sanitize {
		opts |= document.Sanitize
	}
	return opts
}

func newInsertCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insert <index> [file]",
		Short: "Insert documents from a YAML stream",
		Long: `Insert documents read from a YAML file, or stdin when no file is given.

The stream holds one document per YAML document:

  id: kettle-1            # optional, a UUID is generated when missing
  fields:
    - name: title
      type: string
      value: Blue Kettle
      analyze: true       # tokenize for full-text search
    - name: price
      type: double
      value: 24.5
  ---
  id: kettle-2
  ...

Fields are stored by default (store: false to index only).
Types: boolean, string, byte, short, integer, long, float, double,
datetimeoffset, datetime, date, time, timespan, enum.`,
		Example: `  amansearch insert catalog products.yaml
  cat products.yaml | amansearch insert catalog`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 2 {
				f, err := os.Open(args[1])
				if err != nil {
					return amerrors.New(amerrors.ErrCodeConfigNotFound, "cannot open input file", err)
				}
				defer f.Close()
				in = f
			}

			docs, err := readDocuments(in)
			if err != nil {
				return err
			}
			return a.withIndex(args[0], func(m *index.Manager) error {
				return runInsert(cmd, m, docs)
			})
		},
	}
	return cmd
}

func runInsert(cmd *cobra.Command, m *index.Manager, docs []*document.Document) error {
	out := output.New(cmd.OutOrStdout())
	if len(docs) == 0 {
		out.Warningf("no documents to insert")
		return nil
	}

	res, err := m.Insert(cmd.Context(), docs...)
	if err != nil {
		return err
	}
	slog.Info("cli_insert",
		slog.String("index", m.Name()),
		slog.Int("documents", len(docs)),
		slog.Int("written", res.Count))

	switch {
	case !res.Succeeded:
		return amerrors.New(amerrors.ErrCodeEngineFailure,
			fmt.Sprintf("insert into %s stopped after %d of %d documents: %s", m.Name(), res.Count, len(docs), res.Message), nil)
	case res.Incomplete:
		out.Warningf("insert into %s cancelled after %d of %d documents", m.Name(), res.Count, len(docs))
	default:
		out.Successf("inserted %d documents into %s", res.Count, m.Name())
	}
	return nil
}

// readDocuments decodes a YAML multi-document stream.
func readDocuments(r io.Reader) ([]*document.Document, error) {
	dec := yaml.NewDecoder(r)
	var docs []*document.Document
	for n := 1; ; n++ {
		var in inputDocument
		err := dec.Decode(&in)
		if errors.Is(err, io.EOF) {
			return docs, nil
		}
		if err != nil {
			return nil, amerrors.ValidationError(fmt.Sprintf("document %d is not valid YAML", n), err)
		}

		d, err := in.build()
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", n, err)
		}
		docs = append(docs, d)
	}
}

func (in inputDocument) build() (*document.Document, error) {
	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}
	d, err := document.New(id)
	if err != nil {
		return nil, err
	}

	for _, f := range in.Fields {
		t, err := document.ParseFieldType(f.Type)
		if err != nil {
			return nil, amerrors.TypeMismatch(f.Name, f.Type, f.Value.Value)
		}
		if f.Value.Kind != yaml.ScalarNode {
			return nil, amerrors.TypeMismatch(f.Name, t.String(), "non-scalar value")
		}
		v, err := document.ParseValue(t, f.Value.Value)
		if err != nil {
			return nil, err
		}
		if err := d.Set(f.Name, v, t, f.options()); err != nil {
			return nil, err
		}
	}
	return d, nil
}
