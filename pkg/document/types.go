package document

import (
	"fmt"
	"strings"
	"time"
)

// FieldType is the closed set of indexable value kinds.
type FieldType uint8

const (
	TypeUnknown FieldType = iota
	TypeBoolean
	TypeString
	TypeByte
	TypeShort
	TypeInteger
	TypeLong
	TypeFloat
	TypeDouble
	TypeDateTimeOffset
	TypeDateTime
	TypeDateOnly
	TypeTimeOnly
	TypeTimeSpan
	TypeEnum
)

var fieldTypeNames = [...]string{
	TypeUnknown:        "Unknown",
	TypeBoolean:        "Boolean",
	TypeString:         "String",
	TypeByte:           "Byte",
	TypeShort:          "Short",
	TypeInteger:        "Integer",
	TypeLong:           "Long",
	TypeFloat:          "Float",
	TypeDouble:         "Double",
	TypeDateTimeOffset: "DateTimeOffset",
	TypeDateTime:       "DateTime",
	TypeDateOnly:       "DateOnly",
	TypeTimeOnly:       "TimeOnly",
	TypeTimeSpan:       "TimeSpan",
	TypeEnum:           "Enum",
}

// String returns the type name.
func (t FieldType) String() string {
	if int(t) < len(fieldTypeNames) {
		return fieldTypeNames[t]
	}
	return fmt.Sprintf("FieldType(%d)", uint8(t))
}

// ParseFieldType resolves a type name case-insensitively.
// A few short aliases are accepted ("bool", "int", "date", ...).
func ParseFieldType(s string) (FieldType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range fieldTypeNames {
		if i != int(TypeUnknown) && strings.ToLower(n) == name {
			return FieldType(i), nil
		}
	}
	switch name {
	case "bool":
		return TypeBoolean, nil
	case "str", "text", "keyword":
		return TypeString, nil
	case "int", "int32":
		return TypeInteger, nil
	case "int16":
		return TypeShort, nil
	case "uint8":
		return TypeByte, nil
	case "int64":
		return TypeLong, nil
	case "float32", "single":
		return TypeFloat, nil
	case "float64":
		return TypeDouble, nil
	case "date":
		return TypeDateOnly, nil
	case "time":
		return TypeTimeOnly, nil
	case "duration":
		return TypeTimeSpan, nil
	case "datetime_offset", "timestamp":
		return TypeDateTimeOffset, nil
	}
	return TypeUnknown, fmt.Errorf("unknown field type %q", s)
}

// Numeric reports whether values of this type are indexed as numbers.
func (t FieldType) Numeric() bool {
	switch t {
	case TypeString, TypeEnum, TypeUnknown:
		return false
	default:
		return true
	}
}

// Date is a calendar date without a time of day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate returns the date for year, month, day. Out of range values are
// normalised the way time.Date does.
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses an ISO 8601 date (2006-01-02).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Days returns the number of days since 1970-01-01.
func (d Date) Days() int64 {
	return d.Time().Unix() / 86400
}

func (d Date) String() string {
	return d.Time().Format(time.DateOnly)
}

// TimeOfDay is a wall clock time, expressed as the offset from midnight.
type TimeOfDay time.Duration

// NewTimeOfDay builds a time of day. It panics when the components do not
// describe an instant within a single day.
func NewTimeOfDay(hour, minute, second, nsec int) TimeOfDay {
	d := time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute +
		time.Duration(second)*time.Second + time.Duration(nsec)
	if d < 0 || d >= 24*time.Hour {
		panic(fmt.Sprintf("document: time of day %v out of range", d))
	}
	return TimeOfDay(d)
}

// ParseTimeOfDay parses "15:04" or "15:04:05[.fraction]".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	for _, layout := range []string{"15:04:05.999999999", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return NewTimeOfDay(t.Hour(), t.Minute(), t.Second(), t.Nanosecond()), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q", s)
}

func (t TimeOfDay) String() string {
	return time.Time{}.Add(time.Duration(t)).Format("15:04:05.999999999")
}
