package document

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	amerrors "github.com/Aman-CERP/amansearch/internal/errors"
)

// ParseValue converts textual input, as found in command line flags or
// YAML documents, into a value of type t.
func ParseValue(t FieldType, s string) (Value, error) {
	s = strings.TrimSpace(s)
	v, err := parse(t, s)
	if err != nil {
		return nil, amerrors.New(amerrors.ErrCodeTypeMismatch,
			fmt.Sprintf("cannot parse %q as %s", s, t), err)
	}
	return v, nil
}

func parse(t FieldType, s string) (Value, error) {
	switch t {
	case TypeBoolean:
		b, err := strconv.ParseBool(s)
		return BoolValue(b), err
	case TypeString:
		return StringValue(s), nil
	case TypeByte:
		n, err := strconv.ParseUint(s, 10, 8)
		return ByteValue(n), err
	case TypeShort:
		n, err := strconv.ParseInt(s, 10, 16)
		return ShortValue(n), err
	case TypeInteger:
		n, err := strconv.ParseInt(s, 10, 32)
		return IntValue(n), err
	case TypeLong:
		n, err := strconv.ParseInt(s, 10, 64)
		return LongValue(n), err
	case TypeFloat:
		f, err := strconv.ParseFloat(s, 32)
		return FloatValue(f), err
	case TypeDouble:
		f, err := strconv.ParseFloat(s, 64)
		return DoubleValue(f), err
	case TypeDateTimeOffset:
		ts, err := time.Parse(time.RFC3339Nano, s)
		return DateTimeOffsetValue(ts), err
	case TypeDateTime:
		ts, err := time.Parse(time.RFC3339Nano, s)
		return DateTimeValue(ts.UTC()), err
	case TypeDateOnly:
		d, err := ParseDate(s)
		return DateValue(d), err
	case TypeTimeOnly:
		tod, err := ParseTimeOfDay(s)
		return TimeValue(tod), err
	case TypeTimeSpan:
		d, err := time.ParseDuration(s)
		return TimeSpanValue(d), err
	case TypeEnum:
		if s == "" {
			return nil, fmt.Errorf("empty enum member")
		}
		return EnumValue{Name: s}, nil
	}
	return nil, fmt.Errorf("unsupported field type %s", t)
}
