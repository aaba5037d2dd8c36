package metadata

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Type is the wire code that prefixes a value in the tagged form.
type Type string

// Supported type codes.
const (
	TypeBool     Type = "BOOL"
	TypeInt32    Type = "INT32"
	TypeInt64    Type = "INT64"
	TypeFloat    Type = "FLOAT"
	TypeDouble   Type = "DOUBLE"
	TypeString   Type = "STRING"
	TypeDate     Type = "DATE"
	TypeDateTime Type = "DATETIME"
	TypeTime     Type = "TIME"
	TypeTimeSpan Type = "TIMESPAN"
	TypeEnum     Type = "ENUM"
	TypeShortID  Type = "SHORTID"
)

// Wire layouts for the temporal variants.
const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = time.RFC3339Nano
	timeLayout     = "15:04:05.000000000"
)

// Value is one typed metadata value. The variants in this package are the
// only implementations.
type Value interface {
	Type() Type
	encode() string
	equal(Value) bool
}

// Bool is a boolean value.
type Bool bool

// Int32 is a 32-bit integer value.
type Int32 int32

// Int64 is a 64-bit integer value.
type Int64 int64

// Float is a single-precision value.
type Float float32

// Double is a double-precision value.
type Double float64

// String is a text value. It may not contain '|' or '&'.
type String string

// Date is a calendar date without a time zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateTime is an instant.
type DateTime struct {
	time.Time
}

// Time is a time of day.
type Time struct {
	Hour       int
	Minute     int
	Second     int
	Nanosecond int
}

// TimeSpan is an elapsed duration.
type TimeSpan time.Duration

// Enum is a named member of a named enumeration, encoded as Name.Member.
type Enum struct {
	Name   string
	Member string
}

func (Bool) Type() Type     { return TypeBool }
func (Int32) Type() Type    { return TypeInt32 }
func (Int64) Type() Type    { return TypeInt64 }
func (Float) Type() Type    { return TypeFloat }
func (Double) Type() Type   { return TypeDouble }
func (String) Type() Type   { return TypeString }
func (Date) Type() Type     { return TypeDate }
func (DateTime) Type() Type { return TypeDateTime }
func (Time) Type() Type     { return TypeTime }
func (TimeSpan) Type() Type { return TypeTimeSpan }
func (Enum) Type() Type     { return TypeEnum }

func (v Bool) encode() string   { return strconv.FormatBool(bool(v)) }
func (v Int32) encode() string  { return strconv.FormatInt(int64(v), 10) }
func (v Int64) encode() string  { return strconv.FormatInt(int64(v), 10) }
func (v Float) encode() string  { return strconv.FormatFloat(float64(v), 'g', -1, 32) }
func (v Double) encode() string { return strconv.FormatFloat(float64(v), 'g', -1, 64) }
func (v String) encode() string { return string(v) }

func (v Date) encode() string {
	return time.Date(v.Year, v.Month, v.Day, 0, 0, 0, 0, time.UTC).Format(dateLayout)
}

func (v DateTime) encode() string { return v.Time.Format(dateTimeLayout) }

func (v Time) encode() string {
	return time.Date(2000, 1, 1, v.Hour, v.Minute, v.Second, v.Nanosecond, time.UTC).Format(timeLayout)
}

func (v TimeSpan) encode() string { return time.Duration(v).String() }
func (v Enum) encode() string     { return v.Name + "." + v.Member }

func (v Bool) equal(o Value) bool     { return same(v, o) }
func (v Int32) equal(o Value) bool    { return same(v, o) }
func (v Int64) equal(o Value) bool    { return same(v, o) }
func (v Float) equal(o Value) bool    { return same(v, o) }
func (v Double) equal(o Value) bool   { return same(v, o) }
func (v String) equal(o Value) bool   { return same(v, o) }
func (v Date) equal(o Value) bool     { return same(v, o) }
func (v Time) equal(o Value) bool     { return same(v, o) }
func (v TimeSpan) equal(o Value) bool { return same(v, o) }
func (v Enum) equal(o Value) bool     { return same(v, o) }

func (v DateTime) equal(o Value) bool {
	w, ok := o.(DateTime)
	return ok && v.Time.Equal(w.Time)
}

func same[T comparable](v T, o Value) bool {
	w, ok := o.(T)
	return ok && v == w
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// TimeOf returns the time of day of t in t's location.
func TimeOf(t time.Time) Time {
	return Time{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second(), Nanosecond: t.Nanosecond()}
}

// Equal reports whether a and b hold the same type and the same value.
// DateTime values are compared as instants.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.equal(b)
}

var enumPart = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// check reports why v cannot be carried in the tagged form.
func check(v Value) error {
	switch x := v.(type) {
	case nil:
		return fmt.Errorf("metadata: nil value: %w", ErrInvalidArgument)
	case String:
		if strings.ContainsAny(string(x), pairDelimiter+fieldDelimiter) {
			return fmt.Errorf("metadata: string %q contains a delimiter: %w", string(x), ErrInvalidArgument)
		}
	case Float:
		if !finite(float64(x)) {
			return fmt.Errorf("metadata: float %v is not finite: %w", x, ErrInvalidArgument)
		}
	case Double:
		if !finite(float64(x)) {
			return fmt.Errorf("metadata: double %v is not finite: %w", x, ErrInvalidArgument)
		}
	case Enum:
		if !enumPart.MatchString(x.Name) || !enumPart.MatchString(x.Member) {
			return fmt.Errorf("metadata: enum %q is not Name.Member: %w", x.encode(), ErrInvalidArgument)
		}
	case Date:
		if DateOf(time.Date(x.Year, x.Month, x.Day, 0, 0, 0, 0, time.UTC)) != x {
			return fmt.Errorf("metadata: date %d-%d-%d does not exist: %w", x.Year, x.Month, x.Day, ErrInvalidArgument)
		}
	case Time:
		if x.Hour < 0 || x.Hour > 23 || x.Minute < 0 || x.Minute > 59 ||
			x.Second < 0 || x.Second > 59 || x.Nanosecond < 0 || x.Nanosecond > 999999999 {
			return fmt.Errorf("metadata: time of day out of range: %w", ErrInvalidArgument)
		}
	case ShortID:
		if !IsShortID(string(x)) {
			return fmt.Errorf("metadata: short id %q: %w", string(x), ErrInvalidArgument)
		}
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// parseValue rebuilds a value of type t from its wire text.
func parseValue(t Type, s string) (Value, error) {
	switch t {
	case TypeBool:
		b, err := strconv.ParseBool(s)
		if err != nil || s != strconv.FormatBool(b) {
			return nil, fmt.Errorf("bool %q", s)
		}
		return Bool(b), nil
	case TypeInt32:
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return nil, err
		}
		return Int32(n), nil
	case TypeInt64:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, err
		}
		return Int64(n), nil
	case TypeFloat:
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return nil, err
		}
		if !finite(f) {
			return nil, fmt.Errorf("float %q is not finite", s)
		}
		return Float(f), nil
	case TypeDouble:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, err
		}
		if !finite(f) {
			return nil, fmt.Errorf("double %q is not finite", s)
		}
		return Double(f), nil
	case TypeString:
		return String(s), nil
	case TypeDate:
		d, err := time.Parse(dateLayout, s)
		if err != nil {
			return nil, err
		}
		return DateOf(d), nil
	case TypeDateTime:
		d, err := time.Parse(dateTimeLayout, s)
		if err != nil {
			return nil, err
		}
		return DateTime{Time: d}, nil
	case TypeTime:
		d, err := time.Parse(timeLayout, s)
		if err != nil {
			return nil, err
		}
		return TimeOf(d), nil
	case TypeTimeSpan:
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, err
		}
		return TimeSpan(d), nil
	case TypeEnum:
		name, member, ok := strings.Cut(s, ".")
		e := Enum{Name: name, Member: member}
		if !ok || check(e) != nil {
			return nil, fmt.Errorf("enum %q", s)
		}
		return e, nil
	case TypeShortID:
		return ParseShortID(s)
	default:
		return nil, fmt.Errorf("unknown type %q", string(t))
	}
}

var knownTypes = map[Type]struct{}{
	TypeBool: {}, TypeInt32: {}, TypeInt64: {}, TypeFloat: {}, TypeDouble: {},
	TypeString: {}, TypeDate: {}, TypeDateTime: {}, TypeTime: {},
	TypeTimeSpan: {}, TypeEnum: {}, TypeShortID: {},
}
