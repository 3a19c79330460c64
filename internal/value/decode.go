package value

import (
	"fmt"
	"math"
	"reflect"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Decode converts a Value back into a concrete Go value. dst must be a
// non-nil pointer. The conversion is partial: an incompatible kind yields a
// *TypeError. Numeric kinds cross-convert with range checks, Null decodes
// into a nil pointer, and string/bytes interconvert subject to UTF-8
// validity.
func Decode(v Value, dst any) error {
	if out, ok := dst.(*Value); ok {
		*out = v
		return nil
	}
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("need non-nil pointer destination, got %T", dst)
	}
	return decode(v, rv.Elem())
}

func decode(v Value, dst reflect.Value) error {
	to := dst.Type().String()

	switch dst.Kind() {
	case reflect.Pointer:
		// Pointers model optional values: Null maps to nil.
		if v.IsNull() {
			dst.SetZero()
			return nil
		}
		elem := reflect.New(dst.Type().Elem())
		if err := decode(v, elem.Elem()); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	case reflect.Interface:
		if dst.NumMethod() == 0 {
			if v.IsNull() {
				dst.SetZero()
			} else {
				dst.Set(reflect.ValueOf(v.Export()))
			}
			return nil
		}
		return typeErr(v.kind, to)
	case reflect.Bool:
		if v.kind != Bool {
			return typeErr(v.kind, to)
		}
		dst.SetBool(v.b)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := v.toInt64(to)
		if err != nil {
			return err
		}
		if dst.OverflowInt(n) {
			return rangeErr(v.kind, to)
		}
		dst.SetInt(n)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := v.toInt64(to)
		if err != nil {
			return err
		}
		if n < 0 || dst.OverflowUint(uint64(n)) {
			return rangeErr(v.kind, to)
		}
		dst.SetUint(uint64(n))
		return nil
	case reflect.Float32, reflect.Float64:
		f, ok := v.AsFloat64()
		if !ok {
			if v.kind == Decimal {
				f, _ = v.d.Float64()
			} else {
				return typeErr(v.kind, to)
			}
		}
		if dst.Kind() == reflect.Float32 && math.Abs(f) > math.MaxFloat32 {
			return rangeErr(v.kind, to)
		}
		dst.SetFloat(f)
		return nil
	case reflect.String:
		switch v.kind {
		case String:
			dst.SetString(v.s)
		case Char:
			dst.SetString(string(rune(v.i)))
		case Bytes:
			if !utf8.Valid(v.raw) {
				return &TypeError{From: v.kind, To: to, Reason: "invalid UTF-8"}
			}
			dst.SetString(string(v.raw))
		default:
			return typeErr(v.kind, to)
		}
		return nil
	case reflect.Slice:
		if dst.Type().Elem().Kind() == reflect.Uint8 {
			switch v.kind {
			case Bytes:
				dst.SetBytes(append([]byte(nil), v.raw...))
			case String:
				dst.SetBytes([]byte(v.s))
			default:
				return typeErr(v.kind, to)
			}
			return nil
		}
		if v.kind != List {
			return typeErr(v.kind, to)
		}
		out := reflect.MakeSlice(dst.Type(), len(v.list), len(v.list))
		for i, item := range v.list {
			if err := decode(item, out.Index(i)); err != nil {
				return err
			}
		}
		dst.Set(out)
		return nil
	case reflect.Map:
		if dst.Type().Key().Kind() != reflect.String {
			return typeErr(v.kind, to)
		}
		if v.kind != Map {
			return typeErr(v.kind, to)
		}
		out := reflect.MakeMapWithSize(dst.Type(), len(v.m))
		for k, item := range v.m {
			elem := reflect.New(dst.Type().Elem())
			if err := decode(item, elem.Elem()); err != nil {
				return err
			}
			out.SetMapIndex(reflect.ValueOf(k), elem.Elem())
		}
		dst.Set(out)
		return nil
	case reflect.Struct:
		switch dst.Type() {
		case timeType:
			switch v.kind {
			case Date, Time, DateTime, DateTimeUTC:
				dst.Set(reflect.ValueOf(v.t))
				return nil
			}
			return typeErr(v.kind, to)
		case decimalType:
			switch v.kind {
			case Decimal:
				dst.Set(reflect.ValueOf(v.d))
			case Int16, Int32, Int64, Uint8:
				dst.Set(reflect.ValueOf(decimal.NewFromInt(v.i)))
			case Float64:
				dst.Set(reflect.ValueOf(decimal.NewFromFloat(v.f)))
			default:
				return typeErr(v.kind, to)
			}
			return nil
		}
		if v.kind != Map {
			return typeErr(v.kind, to)
		}
		// Columns absent from the row leave their field at the zero value;
		// keys without a matching field are ignored.
		for _, f := range structFields(dst.Type()) {
			item, ok := v.m[f.name]
			if !ok {
				continue
			}
			if err := decode(item, dst.Field(f.index)); err != nil {
				return fmt.Errorf("field %q: %w", f.name, err)
			}
		}
		return nil
	}
	return typeErr(v.kind, to)
}

// toInt64 narrows a numeric value to int64. Floats and decimals convert only
// when they carry an exact integer.
func (v Value) toInt64(to string) (int64, error) {
	switch v.kind {
	case Int16, Int32, Int64, Uint8, Char:
		return v.i, nil
	case Float64:
		if math.Trunc(v.f) != v.f || v.f > math.MaxInt64 || v.f < math.MinInt64 {
			return 0, rangeErr(v.kind, to)
		}
		return int64(v.f), nil
	case Decimal:
		if !v.d.IsInteger() {
			return 0, rangeErr(v.kind, to)
		}
		return v.d.IntPart(), nil
	}
	return 0, typeErr(v.kind, to)
}
