package document

import (
	"reflect"
	"sort"
	"strings"
	"time"

	amerrors "github.com/Aman-CERP/amansearch/internal/errors"
)

// IDField is the reserved field holding the document identifier. It is
// always stored and never analyzed.
const IDField = "__document_id__"

// Document is a set of typed fields keyed case-insensitively by name.
type Document struct {
	id     string
	fields map[string]Field
}

// New creates a document with the given identifier.
func New(id string) (*Document, error) {
	if strings.TrimSpace(id) == "" {
		return nil, amerrors.InvalidName("document id", id)
	}
	idField, err := NewField(IDField, id, TypeString, Store)
	if err != nil {
		return nil, err
	}
	return &Document{
		id:     id,
		fields: map[string]Field{IDField: idField},
	}, nil
}

// ID returns the document identifier.
func (d *Document) ID() string {
	return d.id
}

// Len returns the number of fields, including the identifier.
func (d *Document) Len() int {
	return len(d.fields)
}

// Field looks a field up by name, ignoring case.
func (d *Document) Field(name string) (Field, bool) {
	f, ok := d.fields[NormalizeName(name)]
	return f, ok
}

// Fields returns the fields ordered by name, identifier first.
// Callers must not rely on any other ordering.
func (d *Document) Fields() []Field {
	out := make([]Field, 0, len(d.fields))
	for _, f := range d.fields {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		ki, kj := out[i].Key(), out[j].Key()
		if ki == IDField || kj == IDField {
			return ki == IDField
		}
		return ki < kj
	})
	return out
}

// Set validates and upserts a field. A nil value, including a typed nil
// pointer, is ignored. Non-nil pointers are dereferenced.
func (d *Document) Set(name string, value any, typ FieldType, opts Options) error {
	if strings.TrimSpace(name) == "" {
		return amerrors.InvalidName("field", name)
	}
	key := NormalizeName(name)
	if key == IDField {
		return amerrors.ReservedName(name)
	}
	value, ok := deref(value)
	if !ok {
		return nil
	}

	f, err := NewField(name, value, typ, opts)
	if err != nil {
		return err
	}
	d.fields[key] = f
	return nil
}

func deref(v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	return rv.Interface(), true
}

func (d *Document) SetBool(name string, v bool, opts Options) error {
	return d.Set(name, v, TypeBoolean, opts)
}

func (d *Document) SetString(name string, v string, opts Options) error {
	return d.Set(name, v, TypeString, opts)
}

func (d *Document) SetByte(name string, v uint8, opts Options) error {
	return d.Set(name, v, TypeByte, opts)
}

func (d *Document) SetShort(name string, v int16, opts Options) error {
	return d.Set(name, v, TypeShort, opts)
}

func (d *Document) SetInt(name string, v int32, opts Options) error {
	return d.Set(name, v, TypeInteger, opts)
}

func (d *Document) SetLong(name string, v int64, opts Options) error {
	return d.Set(name, v, TypeLong, opts)
}

func (d *Document) SetFloat(name string, v float32, opts Options) error {
	return d.Set(name, v, TypeFloat, opts)
}

func (d *Document) SetDouble(name string, v float64, opts Options) error {
	return d.Set(name, v, TypeDouble, opts)
}

// SetDateTimeOffset stores t with its zone offset preserved.
func (d *Document) SetDateTimeOffset(name string, t time.Time, opts Options) error {
	return d.Set(name, t, TypeDateTimeOffset, opts)
}

// SetDateTime stores t normalised to UTC.
func (d *Document) SetDateTime(name string, t time.Time, opts Options) error {
	return d.Set(name, t, TypeDateTime, opts)
}

func (d *Document) SetDate(name string, v Date, opts Options) error {
	return d.Set(name, v, TypeDateOnly, opts)
}

func (d *Document) SetTime(name string, v TimeOfDay, opts Options) error {
	return d.Set(name, v, TypeTimeOnly, opts)
}

func (d *Document) SetTimeSpan(name string, v time.Duration, opts Options) error {
	return d.Set(name, v, TypeTimeSpan, opts)
}

// SetEnum stores an enumeration member. v must be a named integer type
// implementing fmt.Stringer.
func (d *Document) SetEnum(name string, v any, opts Options) error {
	return d.Set(name, v, TypeEnum, opts)
}
