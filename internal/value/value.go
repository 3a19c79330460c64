// Package value implements the generic runtime value model used between the
// template renderer, the statement executor and the database drivers. Any Go
// value can be converted into a Value with ToValue; the reverse direction,
// Decode, is partial and fails with a TypeError on incompatible kinds.
package value

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	Null Kind = iota
	Bool
	Int16
	Int32
	Int64
	Uint8
	Float64
	Char
	String
	Bytes
	Date
	Time
	DateTime
	DateTimeUTC
	Decimal
	List
	Map
)

var kindNames = map[Kind]string{
	Null:        "null",
	Bool:        "bool",
	Int16:       "int16",
	Int32:       "int32",
	Int64:       "int64",
	Uint8:       "uint8",
	Float64:     "float64",
	Char:        "char",
	String:      "string",
	Bytes:       "bytes",
	Date:        "date",
	Time:        "time",
	DateTime:    "datetime",
	DateTimeUTC: "datetime-utc",
	Decimal:     "decimal",
	List:        "list",
	Map:         "map",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Value is a tagged union over the types the engine can bind to SQL
// parameters or read back from result rows. The zero Value is Null.
// Values are immutable after construction.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	raw  []byte
	t    time.Time
	d    decimal.Decimal
	list []Value
	m    map[string]Value
}

// NullValue is the absent value. It is also the zero Value.
var NullValue = Value{kind: Null}

func BoolValue(v bool) Value        { return Value{kind: Bool, b: v} }
func Int16Value(v int16) Value      { return Value{kind: Int16, i: int64(v)} }
func Int32Value(v int32) Value      { return Value{kind: Int32, i: int64(v)} }
func Int64Value(v int64) Value      { return Value{kind: Int64, i: v} }
func Uint8Value(v uint8) Value      { return Value{kind: Uint8, i: int64(v)} }
func Float64Value(v float64) Value  { return Value{kind: Float64, f: v} }
func CharValue(v rune) Value        { return Value{kind: Char, i: int64(v)} }
func StringValue(v string) Value    { return Value{kind: String, s: v} }
func BytesValue(v []byte) Value     { return Value{kind: Bytes, raw: v} }
func DateValue(v time.Time) Value   { return Value{kind: Date, t: v} }
func TimeValue(v time.Time) Value   { return Value{kind: Time, t: v} }
func DecimalValue(v decimal.Decimal) Value { return Value{kind: Decimal, d: v} }

// DateTimeValue wraps a wall-clock time. Times located in UTC become the
// UTC-qualified variant, all others the naive one.
func DateTimeValue(v time.Time) Value {
	if v.Location() == time.UTC {
		return Value{kind: DateTimeUTC, t: v}
	}
	return Value{kind: DateTime, t: v}
}

func ListValue(items []Value) Value          { return Value{kind: List, list: items} }
func MapValue(m map[string]Value) Value      { return Value{kind: Map, m: m} }

// Kind returns the variant tag of the value.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is the absent value.
func (v Value) IsNull() bool { return v.kind == Null }

// AsFloat64 returns the numeric value as a float64. It succeeds only for the
// numeric kinds; this is the coercion the expression evaluator uses for
// comparisons.
func (v Value) AsFloat64() (float64, bool) {
	switch v.kind {
	case Int16, Int32, Int64, Uint8:
		return float64(v.i), true
	case Float64:
		return v.f, true
	}
	return 0, false
}

// AsBool returns the boolean value when the kind is Bool.
func (v Value) AsBool() (bool, bool) {
	if v.kind != Bool {
		return false, false
	}
	return v.b, true
}

// Items returns the elements of a List value, or nil for any other kind.
func (v Value) Items() []Value {
	if v.kind != List {
		return nil
	}
	return v.list
}

// Index looks up a key on a Map value.
func (v Value) Index(key string) (Value, bool) {
	if v.kind != Map {
		return NullValue, false
	}
	item, ok := v.m[key]
	return item, ok
}

// Keys returns the sorted keys of a Map value.
func (v Value) Keys() []string {
	if v.kind != Map {
		return nil
	}
	keys := make([]string, 0, len(v.m))
	for k := range v.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports structural equality. Numeric kinds compare equal only when
// both kind and value match; the evaluator applies its own numeric coercion
// before falling back to Equal.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case Null:
		return true
	case Bool:
		return v.b == o.b
	case Int16, Int32, Int64, Uint8, Char:
		return v.i == o.i
	case Float64:
		return v.f == o.f
	case String:
		return v.s == o.s
	case Bytes:
		return string(v.raw) == string(o.raw)
	case Date, Time, DateTime, DateTimeUTC:
		return v.t.Equal(o.t)
	case Decimal:
		return v.d.Equal(o.d)
	case List:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case Map:
		if len(v.m) != len(o.m) {
			return false
		}
		for k, item := range v.m {
			other, ok := o.m[k]
			if !ok || !item.Equal(other) {
				return false
			}
		}
		return true
	}
	return false
}

// String renders a debug representation. It is never used to build SQL.
func (v Value) String() string {
	switch v.kind {
	case Null:
		return "null"
	case Bool:
		return strconv.FormatBool(v.b)
	case Int16, Int32, Int64, Uint8:
		return strconv.FormatInt(v.i, 10)
	case Float64:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case Char:
		return string(rune(v.i))
	case String:
		return strconv.Quote(v.s)
	case Bytes:
		return fmt.Sprintf("bytes(%d)", len(v.raw))
	case Date:
		return v.t.Format("2006-01-02")
	case Time:
		return v.t.Format("15:04:05")
	case DateTime, DateTimeUTC:
		return v.t.Format(time.RFC3339)
	case Decimal:
		return v.d.String()
	case List:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, " ") + "]"
	case Map:
		parts := make([]string, 0, len(v.m))
		for _, k := range v.Keys() {
			parts = append(parts, k+"="+v.m[k].String())
		}
		return "{" + strings.Join(parts, " ") + "}"
	}
	return v.kind.String()
}

// Export converts the value into the plain Go value handed to database
// drivers: integers widen to int64, chars and strings stay strings, decimals
// travel as their exact string form, lists and maps export recursively.
func (v Value) Export() any {
	switch v.kind {
	case Null:
		return nil
	case Bool:
		return v.b
	case Int16, Int32, Int64, Uint8:
		return v.i
	case Float64:
		return v.f
	case Char:
		return string(rune(v.i))
	case String:
		return v.s
	case Bytes:
		return v.raw
	case Date, Time, DateTime, DateTimeUTC:
		return v.t
	case Decimal:
		return v.d.String()
	case List:
		items := make([]any, len(v.list))
		for i, item := range v.list {
			items[i] = item.Export()
		}
		return items
	case Map:
		m := make(map[string]any, len(v.m))
		for k, item := range v.m {
			m[k] = item.Export()
		}
		return m
	}
	return nil
}

// TypeError reports a failed Value to Go conversion.
type TypeError struct {
	// From is the kind of the source value.
	From Kind
	// To describes the requested Go type.
	To string
	// Reason optionally narrows the failure, e.g. a range overflow.
	Reason string
}

func (e *TypeError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot convert %s to %s: %s", e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("cannot convert %s to %s", e.From, e.To)
}

func typeErr(from Kind, to string) error {
	return &TypeError{From: from, To: to}
}

func rangeErr(from Kind, to string) error {
	return &TypeError{From: from, To: to, Reason: "value out of range"}
}
