package dtype

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Registry owns the intern table for one type universe. Every type built
// through the same Registry is canonical: two structurally identical
// constructions return the same instance, so equality is ==.
//
// The table only grows; the number of distinct types a program builds is
// bounded by its own source size, so nothing is ever evicted. A mutex
// guards first-inserts so independent plans may be built concurrently
// against a shared Registry.
type Registry struct {
	mu    sync.Mutex
	cache map[string]DType
	log   *slog.Logger

	intT     DType
	boolT    DType
	strT     DType
	floatT   DType
	noneT    DType
	anyT     DType
	arrayT   DType
	jsonT    DType
	dtNaiveT DType
	dtUtcT   DType
	durT     DType
	pointerT DType
	anyTuple DType
}

// NewRegistry creates a registry with all parameterless singletons
// pre-interned. logger is used for non-fatal warnings (see Wrap); nil
// falls back to slog.Default().
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		cache: make(map[string]DType),
		log:   logger,
	}
	// Singletons first, in an order that cannot observe a half-built
	// table: scalars have no arguments, the untagged pointer follows,
	// and AnyTuple = List(Any) is interned last through the same
	// primitive every later List construction uses.
	r.intT = r.intern("INT", func() DType { return &Scalar{kind: KindInt} })
	r.boolT = r.intern("BOOL", func() DType { return &Scalar{kind: KindBool} })
	r.strT = r.intern("STR", func() DType { return &Scalar{kind: KindStr} })
	r.floatT = r.intern("FLOAT", func() DType { return &Scalar{kind: KindFloat} })
	r.noneT = r.intern("NONE", func() DType { return &Scalar{kind: KindNone} })
	r.anyT = r.intern("ANY", func() DType { return &Scalar{kind: KindAny} })
	r.arrayT = r.intern("ARRAY", func() DType { return &Scalar{kind: KindArray} })
	r.jsonT = r.intern("JSON", func() DType { return &Scalar{kind: KindJson} })
	r.dtNaiveT = r.intern("DTN", func() DType { return &Scalar{kind: KindDateTimeNaive} })
	r.dtUtcT = r.intern("DTU", func() DType { return &Scalar{kind: KindDateTimeUtc} })
	r.durT = r.intern("DUR", func() DType { return &Scalar{kind: KindDuration} })
	r.pointerT = r.intern(pointerKey(""), func() DType { return &Pointer{} })
	r.anyTuple = r.intern(listKey(r.anyT), func() DType { return &List{elem: r.anyT} })
	return r
}

// intern returns the canonical instance for key, building it on first
// use.
func (r *Registry) intern(key string, build func() DType) DType {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.cache[key]; ok {
		return d
	}
	d := build()
	r.cache[key] = d
	return d
}

// Size returns the number of interned types. Diagnostics only.
func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cache)
}

func (r *Registry) Int() DType           { return r.intT }
func (r *Registry) Bool() DType          { return r.boolT }
func (r *Registry) Str() DType           { return r.strT }
func (r *Registry) Float() DType         { return r.floatT }
func (r *Registry) None() DType          { return r.noneT }
func (r *Registry) Any() DType           { return r.anyT }
func (r *Registry) Array() DType         { return r.arrayT }
func (r *Registry) Json() DType          { return r.jsonT }
func (r *Registry) DateTimeNaive() DType { return r.dtNaiveT }
func (r *Registry) DateTimeUtc() DType   { return r.dtUtcT }
func (r *Registry) Duration() DType      { return r.durT }

// Pointer returns the untagged row-key type.
func (r *Registry) Pointer() DType { return r.pointerT }

// AnyTuple returns the universal tuple type List(Any).
func (r *Registry) AnyTuple() DType { return r.anyTuple }

// PointerTo returns a row-key type tagged with a schema name. The tag is
// documentation only; see IsSubclassOf.
func (r *Registry) PointerTo(schema string) DType {
	if schema == "" {
		return r.pointerT
	}
	return r.intern(pointerKey(schema), func() DType { return &Pointer{schema: schema} })
}

// Optional wraps t in an optional. The flattening laws apply:
// Optional(None) = None, Optional(Optional(T)) = Optional(T) and
// Optional(Any) = Any.
func (r *Registry) Optional(t DType) DType {
	switch t.Kind() {
	case KindNone, KindAny, KindOptional:
		return t
	}
	return r.intern("optional<"+keyOf(t)+">", func() DType { return &Optional{wrapped: t} })
}

// Tuple builds a fixed-arity tuple type.
func (r *Registry) Tuple(elems ...DType) DType {
	elems = append([]DType(nil), elems...)
	keys := make([]string, len(elems))
	for i, e := range elems {
		keys[i] = keyOf(e)
	}
	key := "tuple<" + strings.Join(keys, ";") + ">"
	return r.intern(key, func() DType { return &Tuple{elems: elems} })
}

// VariadicTuple builds the open-ended tuple Tuple(elem, ...), which is
// by definition List(elem).
func (r *Registry) VariadicTuple(elem DType) DType {
	return r.List(elem)
}

// List builds an unbounded homogeneous sequence type.
func (r *Registry) List(elem DType) DType {
	return r.intern(listKey(elem), func() DType { return &List{elem: elem} })
}

// Callable builds a function type. A nil args slice means the arguments
// are unconstrained (the "..." form); an empty non-nil slice means a
// zero-argument function.
func (r *Registry) Callable(args []DType, ret DType) DType {
	variadic := args == nil
	args = append([]DType(nil), args...)
	var key string
	if variadic {
		key = "callable<...;" + keyOf(ret) + ">"
	} else {
		keys := make([]string, len(args))
		for i, a := range args {
			keys[i] = keyOf(a)
		}
		key = "callable<(" + strings.Join(keys, ";") + ");" + keyOf(ret) + ">"
	}
	return r.intern(key, func() DType {
		return &Callable{args: args, variadic: variadic, ret: ret}
	})
}

// Normalize maps a type onto its engine-visible form: any Pointer
// becomes the untagged Pointer and Array stays Array; everything else is
// unchanged. Must be applied before ToEngine for tagged pointers.
func (r *Registry) Normalize(d DType) DType {
	switch d.Kind() {
	case KindPointer:
		return r.pointerT
	case KindArray:
		return r.arrayT
	default:
		return d
	}
}

// keyOf derives the canonical intern key for an already-built type.
func keyOf(d DType) string {
	switch t := d.(type) {
	case *Scalar:
		switch t.kind {
		case KindInt:
			return "INT"
		case KindBool:
			return "BOOL"
		case KindStr:
			return "STR"
		case KindFloat:
			return "FLOAT"
		case KindNone:
			return "NONE"
		case KindAny:
			return "ANY"
		case KindArray:
			return "ARRAY"
		case KindJson:
			return "JSON"
		case KindDateTimeNaive:
			return "DTN"
		case KindDateTimeUtc:
			return "DTU"
		case KindDuration:
			return "DUR"
		}
	case *Pointer:
		return pointerKey(t.schema)
	case *Optional:
		return "optional<" + keyOf(t.wrapped) + ">"
	case *Tuple:
		keys := make([]string, len(t.elems))
		for i, e := range t.elems {
			keys[i] = keyOf(e)
		}
		return "tuple<" + strings.Join(keys, ";") + ">"
	case *List:
		return listKey(t.elem)
	case *Callable:
		if t.variadic {
			return "callable<...;" + keyOf(t.ret) + ">"
		}
		keys := make([]string, len(t.args))
		for i, a := range t.args {
			keys[i] = keyOf(a)
		}
		return "callable<(" + strings.Join(keys, ";") + ");" + keyOf(t.ret) + ">"
	}
	panic(fmt.Sprintf("dtype: unknown variant %T", d))
}

func pointerKey(schema string) string {
	return fmt.Sprintf("pointer<%q>", schema)
}

func listKey(elem DType) string {
	return "list<" + keyOf(elem) + ">"
}
