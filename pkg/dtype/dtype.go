// Package dtype implements the closed type lattice of the logical-plan
// layer: a fixed set of type variants with canonical interning, a
// subtyping partial order, least-common-ancestor computation, and the
// mapping of lattice types onto engine wire tags.
//
// Types are constructed through a Registry, which interns every
// construction so that structurally identical types are the same Go
// value. Equality between interned types is therefore plain ==.
package dtype

import (
	"fmt"
	"strings"
)

// Kind discriminates the closed set of type variants. Every lattice
// operation switches exhaustively over kinds; adding a variant without
// updating each operation trips the unreachable-arm panics.
type Kind int

const (
	KindInt Kind = iota
	KindBool
	KindStr
	KindFloat
	KindNone
	KindAny
	KindArray
	KindJson
	KindDateTimeNaive
	KindDateTimeUtc
	KindDuration
	KindPointer
	KindOptional
	KindTuple
	KindList
	KindCallable
)

// DType is a node in the type lattice. Concrete variants are *Scalar,
// *Pointer, *Optional, *Tuple, *List and *Callable; the interface is
// sealed so the variant set stays closed.
type DType interface {
	fmt.Stringer
	Kind() Kind

	isDType()
}

// Scalar covers the parameterless variants: the simple scalars, None,
// Any, Array, Json and the datetime types. One interned instance exists
// per kind.
type Scalar struct {
	kind Kind
}

func (s *Scalar) isDType()   {}
func (s *Scalar) Kind() Kind { return s.kind }

func (s *Scalar) String() string {
	switch s.kind {
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
		return "Array"
	case KindJson:
		return "Json"
	case KindDateTimeNaive:
		return "DATE_TIME_NAIVE"
	case KindDateTimeUtc:
		return "DATE_TIME_UTC"
	case KindDuration:
		return "DURATION"
	default:
		panic(fmt.Sprintf("dtype: scalar with non-scalar kind %d", s.kind))
	}
}

// Pointer is a row-key type, optionally tagged with the name of the
// schema it points into. The tag is documentation only: subtyping treats
// all pointers as mutually compatible.
type Pointer struct {
	schema string
}

func (p *Pointer) isDType()   {}
func (p *Pointer) Kind() Kind { return KindPointer }

// Schema returns the schema tag, or "" for an untagged pointer.
func (p *Pointer) Schema() string { return p.schema }

func (p *Pointer) String() string {
	if p.schema == "" {
		return "Pointer"
	}
	return fmt.Sprintf("Pointer(%s)", p.schema)
}

// Optional wraps a type that may also be absent. The Registry guarantees
// the wrapped type is never None, Any or another Optional.
type Optional struct {
	wrapped DType
}

func (o *Optional) isDType()   {}
func (o *Optional) Kind() Kind { return KindOptional }

func (o *Optional) Wrapped() DType { return o.wrapped }

func (o *Optional) String() string {
	return fmt.Sprintf("Optional(%s)", o.wrapped)
}

// Tuple is a fixed-arity sequence of element types.
type Tuple struct {
	elems []DType
}

func (t *Tuple) isDType()   {}
func (t *Tuple) Kind() Kind { return KindTuple }

// Elems returns the element types. The returned slice must not be
// mutated.
func (t *Tuple) Elems() []DType { return t.elems }

func (t *Tuple) String() string {
	parts := make([]string, len(t.elems))
	for i, e := range t.elems {
		parts[i] = e.String()
	}
	return fmt.Sprintf("Tuple(%s)", strings.Join(parts, ", "))
}

// List is an unbounded homogeneous sequence; Tuple(T, ...) unifies to
// List(T). List(Any) is the universal tuple type AnyTuple.
type List struct {
	elem DType
}

func (l *List) isDType()   {}
func (l *List) Kind() Kind { return KindList }

func (l *List) Elem() DType { return l.elem }

func (l *List) String() string {
	return fmt.Sprintf("List(%s)", l.elem)
}

// Callable is a function type. A nil argument list means the arguments
// are unconstrained (the "..." form).
type Callable struct {
	args     []DType
	variadic bool
	ret      DType
}

func (c *Callable) isDType()   {}
func (c *Callable) Kind() Kind { return KindCallable }

// Args returns the argument types and whether the callable accepts
// arbitrary arguments instead.
func (c *Callable) Args() ([]DType, bool) { return c.args, c.variadic }

func (c *Callable) Ret() DType { return c.ret }

func (c *Callable) String() string {
	if c.variadic {
		return fmt.Sprintf("Callable(..., %s)", c.ret)
	}
	parts := make([]string, len(c.args))
	for i, a := range c.args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("Callable((%s), %s)", strings.Join(parts, ", "), c.ret)
}

// IsAnyTuple reports whether d is the universal tuple type List(Any).
func IsAnyTuple(d DType) bool {
	l, ok := d.(*List)
	return ok && l.elem.Kind() == KindAny
}

// isSequence reports whether d is a Tuple or List variant.
func isSequence(d DType) bool {
	k := d.Kind()
	return k == KindTuple || k == KindList
}
