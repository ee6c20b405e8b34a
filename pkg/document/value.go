package document

import (
	"fmt"
	"reflect"
	"time"

	amerrors "github.com/Aman-CERP/amansearch/internal/errors"
)

// Value is a validated field payload. The set of implementations is closed:
// only the variant types declared in this package satisfy it.
type Value interface {
	// Type returns the field type the value was validated against.
	Type() FieldType
	// Interface returns the underlying Go value.
	Interface() any

	sealed()
}

type (
	BoolValue           bool
	StringValue         string
	ByteValue           uint8
	ShortValue          int16
	IntValue            int32
	LongValue           int64
	FloatValue          float32
	DoubleValue         float64
	DateTimeOffsetValue time.Time
	DateTimeValue       time.Time
	DateValue           Date
	TimeValue           TimeOfDay
	TimeSpanValue       time.Duration
)

// EnumValue is an enumeration member, indexed by its name.
type EnumValue struct {
	Name    string
	Ordinal int64
	Enum    string
}

func (BoolValue) Type() FieldType           { return TypeBoolean }
func (StringValue) Type() FieldType         { return TypeString }
func (ByteValue) Type() FieldType           { return TypeByte }
func (ShortValue) Type() FieldType          { return TypeShort }
func (IntValue) Type() FieldType            { return TypeInteger }
func (LongValue) Type() FieldType           { return TypeLong }
func (FloatValue) Type() FieldType          { return TypeFloat }
func (DoubleValue) Type() FieldType         { return TypeDouble }
func (DateTimeOffsetValue) Type() FieldType { return TypeDateTimeOffset }
func (DateTimeValue) Type() FieldType       { return TypeDateTime }
func (DateValue) Type() FieldType           { return TypeDateOnly }
func (TimeValue) Type() FieldType           { return TypeTimeOnly }
func (TimeSpanValue) Type() FieldType       { return TypeTimeSpan }
func (EnumValue) Type() FieldType           { return TypeEnum }

func (v BoolValue) Interface() any           { return bool(v) }
func (v StringValue) Interface() any         { return string(v) }
func (v ByteValue) Interface() any           { return uint8(v) }
func (v ShortValue) Interface() any          { return int16(v) }
func (v IntValue) Interface() any            { return int32(v) }
func (v LongValue) Interface() any           { return int64(v) }
func (v FloatValue) Interface() any          { return float32(v) }
func (v DoubleValue) Interface() any         { return float64(v) }
func (v DateTimeOffsetValue) Interface() any { return time.Time(v) }
func (v DateTimeValue) Interface() any       { return time.Time(v) }
func (v DateValue) Interface() any           { return Date(v) }
func (v TimeValue) Interface() any           { return TimeOfDay(v) }
func (v TimeSpanValue) Interface() any       { return time.Duration(v) }
func (v EnumValue) Interface() any           { return v.Name }

func (BoolValue) sealed()           {}
func (StringValue) sealed()         {}
func (ByteValue) sealed()           {}
func (ShortValue) sealed()          {}
func (IntValue) sealed()            {}
func (LongValue) sealed()           {}
func (FloatValue) sealed()          {}
func (DoubleValue) sealed()         {}
func (DateTimeOffsetValue) sealed() {}
func (DateTimeValue) sealed()       {}
func (DateValue) sealed()           {}
func (TimeValue) sealed()           {}
func (TimeSpanValue) sealed()       {}
func (EnumValue) sealed()           {}

// Validate checks that v's runtime type is exactly the Go type backing t and
// returns the matching Value. An existing Value of type t passes through.
func Validate(v any, t FieldType) (Value, error) {
	return validate("value", v, t)
}

func validate(field string, v any, t FieldType) (Value, error) {
	if val, ok := v.(Value); ok {
		if val.Type() != t {
			return nil, amerrors.TypeMismatch(field, t.String(), v)
		}
		return val, nil
	}

	var (
		out Value
		ok  bool
	)
	switch t {
	case TypeBoolean:
		var b bool
		b, ok = v.(bool)
		out = BoolValue(b)
	case TypeString:
		var s string
		s, ok = v.(string)
		out = StringValue(s)
	case TypeByte:
		var n uint8
		n, ok = v.(uint8)
		out = ByteValue(n)
	case TypeShort:
		var n int16
		n, ok = v.(int16)
		out = ShortValue(n)
	case TypeInteger:
		var n int32
		n, ok = v.(int32)
		out = IntValue(n)
	case TypeLong:
		var n int64
		n, ok = v.(int64)
		out = LongValue(n)
	case TypeFloat:
		var f float32
		f, ok = v.(float32)
		out = FloatValue(f)
	case TypeDouble:
		var f float64
		f, ok = v.(float64)
		out = DoubleValue(f)
	case TypeDateTimeOffset:
		var ts time.Time
		ts, ok = v.(time.Time)
		out = DateTimeOffsetValue(ts)
	case TypeDateTime:
		var ts time.Time
		ts, ok = v.(time.Time)
		out = DateTimeValue(ts.UTC())
	case TypeDateOnly:
		var d Date
		d, ok = v.(Date)
		out = DateValue(d)
	case TypeTimeOnly:
		var tod TimeOfDay
		tod, ok = v.(TimeOfDay)
		out = TimeValue(tod)
	case TypeTimeSpan:
		var d time.Duration
		d, ok = v.(time.Duration)
		out = TimeSpanValue(d)
	case TypeEnum:
		out, ok = enumOf(v)
	}
	if !ok {
		return nil, amerrors.TypeMismatch(field, t.String(), v)
	}
	return out, nil
}

var (
	stringerType  = reflect.TypeFor[fmt.Stringer]()
	timeOfDayType = reflect.TypeFor[TimeOfDay]()
)

// enumOf accepts named integer types implementing fmt.Stringer. Types from
// package time and TimeOfDay are durations and instants, never enums.
func enumOf(v any) (EnumValue, bool) {
	if v == nil {
		return EnumValue{}, false
	}
	rt := reflect.TypeOf(v)
	if rt.PkgPath() == "" || rt.PkgPath() == "time" || rt == timeOfDayType || !rt.Implements(stringerType) {
		return EnumValue{}, false
	}
	rv := reflect.ValueOf(v)
	var ordinal int64
	switch rt.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		ordinal = rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		ordinal = int64(rv.Uint())
	default:
		return EnumValue{}, false
	}
	return EnumValue{
		Name:    v.(fmt.Stringer).String(),
		Ordinal: ordinal,
		Enum:    rt.String(),
	}, true
}

// Term is the engine representation of a value: either a number used for
// numeric indexing and range queries, or a keyword/text term.
type Term struct {
	Numeric bool
	Number  float64
	Text    string
}

// Encode converts a value to its indexed form.
//
// Dates and times become integers: DateTime and DateTimeOffset are Unix
// microseconds, DateOnly is days since the epoch, TimeOnly is microseconds
// since midnight and TimeSpan is microseconds. Booleans become 0 or 1.
func Encode(v Value) Term {
	switch x := v.(type) {
	case BoolValue:
		if x {
			return Term{Numeric: true, Number: 1}
		}
		return Term{Numeric: true, Number: 0}
	case StringValue:
		return Term{Text: string(x)}
	case ByteValue:
		return Term{Numeric: true, Number: float64(x)}
	case ShortValue:
		return Term{Numeric: true, Number: float64(x)}
	case IntValue:
		return Term{Numeric: true, Number: float64(x)}
	case LongValue:
		return Term{Numeric: true, Number: float64(x)}
	case FloatValue:
		return Term{Numeric: true, Number: float64(x)}
	case DoubleValue:
		return Term{Numeric: true, Number: float64(x)}
	case DateTimeOffsetValue:
		return Term{Numeric: true, Number: float64(time.Time(x).UnixMicro())}
	case DateTimeValue:
		return Term{Numeric: true, Number: float64(time.Time(x).UnixMicro())}
	case DateValue:
		return Term{Numeric: true, Number: float64(Date(x).Days())}
	case TimeValue:
		return Term{Numeric: true, Number: float64(time.Duration(x).Microseconds())}
	case TimeSpanValue:
		return Term{Numeric: true, Number: float64(time.Duration(x).Microseconds())}
	case EnumValue:
		return Term{Text: x.Name}
	default:
		panic(fmt.Sprintf("document: unhandled value %T", v))
	}
}
