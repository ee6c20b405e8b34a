package document

import (
	"strings"

	amerrors "github.com/Aman-CERP/amansearch/internal/errors"
)

// Options controls how a field is indexed.
type Options uint8

const (
	// Store keeps the original value so searches can return it.
	Store Options = 1 << iota
	// Analyze runs string values through the index analyzer. Without it the
	// whole value is indexed as a single keyword term.
	Analyze
	// Sanitize strips HTML markup from string values before indexing.
	Sanitize
)

// Has reports whether all flags in f are set.
func (o Options) Has(f Options) bool {
	return o&f == f
}

func (o Options) String() string {
	var parts []string
	if o.Has(Store) {
		parts = append(parts, "store")
	}
	if o.Has(Analyze) {
		parts = append(parts, "analyze")
	}
	if o.Has(Sanitize) {
		parts = append(parts, "sanitize")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Field is an immutable, validated name/value pair.
type Field struct {
	name    string
	value   Value
	typ     FieldType
	options Options
}

// NewField validates value against typ and returns the field.
func NewField(name string, value any, typ FieldType, opts Options) (Field, error) {
	if strings.TrimSpace(name) == "" {
		return Field{}, amerrors.InvalidName("field", name)
	}
	v, err := validate(name, value, typ)
	if err != nil {
		return Field{}, err
	}
	return Field{name: name, value: v, typ: typ, options: opts}, nil
}

// Name returns the field name as given at construction.
func (f Field) Name() string { return f.name }

// Key returns the normalised, case-folded field name used by the index.
func (f Field) Key() string { return NormalizeName(f.name) }

// Value returns the validated value.
func (f Field) Value() Value { return f.value }

// Type returns the declared field type.
func (f Field) Type() FieldType { return f.typ }

// Options returns the indexing flags.
func (f Field) Options() Options { return f.options }

// NormalizeName folds a field name to the form stored in the index.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
