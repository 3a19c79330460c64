package value

import (
	"math"
	"math/big"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// field holds the reflection info of one tagged struct field.
type field struct {
	name  string
	index int
}

var fieldCacheMutex sync.RWMutex
var fieldCache = make(map[reflect.Type][]field)

// structFields returns the bindable fields of a struct type, keyed by their
// `db` tag when present and their Go name otherwise. Results are cached for
// the process lifetime.
func structFields(t reflect.Type) []field {
	fieldCacheMutex.RLock()
	fields, found := fieldCache[t]
	fieldCacheMutex.RUnlock()
	if found {
		return fields
	}

	fields = make([]field, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			// Unexported.
			continue
		}
		name := f.Name
		if tag := f.Tag.Get("db"); tag != "" {
			tag, _, _ = strings.Cut(tag, ",")
			if tag == "-" {
				continue
			}
			if tag != "" {
				name = tag
			}
		}
		fields = append(fields, field{name: name, index: i})
	}

	fieldCacheMutex.Lock()
	fieldCache[t] = fields
	fieldCacheMutex.Unlock()
	return fields
}

var timeType = reflect.TypeOf(time.Time{})
var decimalType = reflect.TypeOf(decimal.Decimal{})
var valueType = reflect.TypeOf(Value{})

// ToValue converts any Go value into a Value. The conversion is total: nil
// and nil pointers become Null, structs and string-keyed maps become Map,
// slices and arrays become List, and anything without a meaningful database
// representation degrades to Null.
func ToValue(x any) Value {
	switch v := x.(type) {
	case nil:
		return NullValue
	case Value:
		return v
	case bool:
		return BoolValue(v)
	case int8:
		return Int16Value(int16(v))
	case int16:
		return Int16Value(v)
	case int32:
		return Int32Value(v)
	case int:
		return Int64Value(int64(v))
	case int64:
		return Int64Value(v)
	case uint8:
		return Uint8Value(v)
	case uint16:
		return Int64Value(int64(v))
	case uint32:
		return Int64Value(int64(v))
	case uint:
		return uint64Value(uint64(v))
	case uint64:
		return uint64Value(v)
	case float32:
		return Float64Value(float64(v))
	case float64:
		return Float64Value(v)
	case string:
		return StringValue(v)
	case []byte:
		return BytesValue(v)
	case time.Time:
		return DateTimeValue(v)
	case decimal.Decimal:
		return DecimalValue(v)
	}
	return reflectToValue(reflect.ValueOf(x))
}

// uint64Value keeps unsigned conversion total: values beyond the int64
// range carry as Decimal instead of wrapping negative.
func uint64Value(v uint64) Value {
	if v > math.MaxInt64 {
		return DecimalValue(decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0))
	}
	return Int64Value(int64(v))
}

func reflectToValue(rv reflect.Value) Value {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return NullValue
		}
		return reflectToValue(rv.Elem())
	case reflect.Bool:
		return BoolValue(rv.Bool())
	case reflect.Int8, reflect.Int16:
		return Int16Value(int16(rv.Int()))
	case reflect.Int32:
		return Int32Value(int32(rv.Int()))
	case reflect.Int, reflect.Int64:
		return Int64Value(rv.Int())
	case reflect.Uint8:
		return Uint8Value(uint8(rv.Uint()))
	case reflect.Uint, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return uint64Value(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return Float64Value(rv.Float())
	case reflect.String:
		return StringValue(rv.String())
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			raw := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(raw), rv)
			return BytesValue(raw)
		}
		items := make([]Value, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			items[i] = reflectToValue(rv.Index(i))
		}
		return ListValue(items)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return NullValue
		}
		m := make(map[string]Value, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = reflectToValue(iter.Value())
		}
		return MapValue(m)
	case reflect.Struct:
		switch rv.Type() {
		case timeType:
			return DateTimeValue(rv.Interface().(time.Time))
		case decimalType:
			return DecimalValue(rv.Interface().(decimal.Decimal))
		case valueType:
			return rv.Interface().(Value)
		}
		m := make(map[string]Value)
		for _, f := range structFields(rv.Type()) {
			m[f.name] = reflectToValue(rv.Field(f.index))
		}
		return MapValue(m)
	}
	return NullValue
}
