package dtype

import (
	"reflect"
	"time"

	"github.com/tidelake-labs/flowplan/pkg/engine"
)

var (
	pointerGoType       = reflect.TypeOf(engine.Pointer{})
	jsonGoType          = reflect.TypeOf(engine.Json{})
	dateTimeNaiveGoType = reflect.TypeOf(engine.DateTimeNaive{})
	dateTimeUtcGoType   = reflect.TypeOf(engine.DateTimeUtc{})
	timeGoType          = reflect.TypeOf(time.Time{})
	durationGoType      = reflect.TypeOf(time.Duration(0))
	emptyInterfaceType  = reflect.TypeOf((*any)(nil)).Elem()
)

// Wrap maps a host-level type description into the lattice. The hint may
// be nil (None), an already-built DType (returned as is), a
// reflect.Type, or any other value taken as an exemplar of its type.
//
// Mapping rules: the empty interface becomes Any; engine.Pointer becomes
// the untagged Pointer; a Go pointer *T becomes Optional(T); funcs
// become Callable; []any becomes the universal AnyTuple, []T becomes
// List(T); fixed-size arrays become Array; maps and engine.Json become
// Json; durations, datetimes and the scalar kinds map to their dtypes.
// Anything else widens to Any with a non-fatal warning: progress is
// favored over strict rejection.
func (r *Registry) Wrap(hint any) DType {
	if hint == nil {
		return r.noneT
	}
	if d, ok := hint.(DType); ok {
		return d
	}
	if t, ok := hint.(reflect.Type); ok {
		return r.wrapType(t)
	}
	return r.wrapType(reflect.TypeOf(hint))
}

func (r *Registry) wrapType(t reflect.Type) DType {
	switch t {
	case pointerGoType:
		return r.pointerT
	case jsonGoType:
		return r.jsonT
	case dateTimeNaiveGoType:
		return r.dtNaiveT
	case dateTimeUtcGoType, timeGoType:
		return r.dtUtcT
	case durationGoType:
		return r.durT
	}

	switch t.Kind() {
	case reflect.Interface:
		if t == emptyInterfaceType || t.NumMethod() == 0 {
			return r.anyT
		}
	case reflect.Pointer:
		return r.Optional(r.wrapType(t.Elem()))
	case reflect.Slice:
		if t.Elem() == emptyInterfaceType {
			return r.anyTuple
		}
		return r.List(r.wrapType(t.Elem()))
	case reflect.Array:
		return r.arrayT
	case reflect.Map:
		return r.jsonT
	case reflect.Func:
		return r.wrapFunc(t)
	case reflect.Bool:
		return r.boolT
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return r.intT
	case reflect.Float32, reflect.Float64:
		return r.floatT
	case reflect.String:
		return r.strT
	}

	r.log.Warn("unsupported host type, falling back to ANY", "type", t.String())
	return r.anyT
}

func (r *Registry) wrapFunc(t reflect.Type) DType {
	var ret DType
	switch t.NumOut() {
	case 0:
		ret = r.noneT
	case 1:
		ret = r.wrapType(t.Out(0))
	default:
		elems := make([]DType, t.NumOut())
		for i := range elems {
			elems[i] = r.wrapType(t.Out(i))
		}
		ret = r.Tuple(elems...)
	}
	if t.IsVariadic() {
		return r.Callable(nil, ret)
	}
	args := make([]DType, t.NumIn())
	for i := range args {
		args[i] = r.wrapType(t.In(i))
	}
	return r.Callable(args, ret)
}
