package dtype

import (
	"reflect"
	"time"

	"github.com/tidelake-labs/flowplan/pkg/engine"
)

// IsValueCompatible reports whether a runtime host value inhabits the
// given dtype. Ints are accepted where Float is expected; Bool is not
// accepted for Int, mirroring the subtyping asymmetry.
func IsValueCompatible(d DType, v any) bool {
	switch t := d.(type) {
	case *Scalar:
		return scalarCompatible(t.kind, v)
	case *Pointer:
		_, ok := v.(engine.Pointer)
		return ok
	case *Optional:
		if v == nil {
			return true
		}
		return IsValueCompatible(t.wrapped, v)
	case *Tuple:
		rv := reflect.ValueOf(v)
		if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
			return false
		}
		if rv.Len() != len(t.elems) {
			return false
		}
		for i, elem := range t.elems {
			if !IsValueCompatible(elem, rv.Index(i).Interface()) {
				return false
			}
		}
		return true
	case *List:
		rv := reflect.ValueOf(v)
		if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
			return false
		}
		for i := 0; i < rv.Len(); i++ {
			if !IsValueCompatible(t.elem, rv.Index(i).Interface()) {
				return false
			}
		}
		return true
	case *Callable:
		rv := reflect.ValueOf(v)
		return rv.IsValid() && rv.Kind() == reflect.Func
	default:
		panic("dtype: unknown variant in IsValueCompatible")
	}
}

func scalarCompatible(k Kind, v any) bool {
	switch k {
	case KindNone:
		return v == nil
	case KindAny:
		return true
	case KindBool:
		_, ok := v.(bool)
		return ok
	case KindStr:
		_, ok := v.(string)
		return ok
	case KindInt:
		return isIntValue(v)
	case KindFloat:
		// Ints are accepted where a float is expected.
		if isIntValue(v) {
			return true
		}
		rv := reflect.ValueOf(v)
		if !rv.IsValid() {
			return false
		}
		switch rv.Kind() {
		case reflect.Float32, reflect.Float64:
			return true
		}
		return false
	case KindArray:
		rv := reflect.ValueOf(v)
		return rv.IsValid() && rv.Kind() == reflect.Array
	case KindJson:
		if _, ok := v.(engine.Json); ok {
			return true
		}
		rv := reflect.ValueOf(v)
		return rv.IsValid() && rv.Kind() == reflect.Map
	case KindDateTimeNaive:
		_, ok := v.(engine.DateTimeNaive)
		return ok
	case KindDateTimeUtc:
		switch v.(type) {
		case engine.DateTimeUtc, time.Time:
			return true
		}
		return false
	case KindDuration:
		_, ok := v.(time.Duration)
		return ok
	default:
		panic("dtype: non-scalar kind in scalarCompatible")
	}
}

func isIntValue(v any) bool {
	if _, ok := v.(bool); ok {
		return false
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return false
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		// time.Duration is int64-kinded but is its own dtype.
		return rv.Type() != durationGoType
	}
	return false
}
