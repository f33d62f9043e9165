package dtype

import (
	"github.com/tidelake-labs/flowplan/pkg/engine"
)

// Equal reports structural equality. For types interned in the same
// Registry this is the same as ==; the structural fallback keeps the
// predicates meaningful across registries (e.g. in tests that build
// throwaway type universes).
func Equal(left, right DType) bool {
	if left == right {
		return true
	}
	return keyOf(left) == keyOf(right)
}

// IsSubclassOf reports whether left is a subtype of right.
//
// Rules, in priority order: anything <: Any; optionals compare on their
// wrapped types and never widen into non-optionals; None <: Optional(T)
// and None <: None; a plain type is a subtype of Optional(T) iff it is a
// subtype of T; Tuple/List pairs compare by pointwise element
// equivalence with AnyTuple as a universal match; all Pointers are
// mutually compatible regardless of schema tag; Int <: Float but Bool
// is not numerically widened; Callable <: Callable unconditionally
// (argument and return variance are not checked); everything else falls
// back to structural equality.
func IsSubclassOf(left, right DType) bool {
	// Check Any first so Optional(T) <: Any holds.
	if right.Kind() == KindAny {
		return true
	}
	if left.Kind() == KindOptional {
		if right.Kind() == KindOptional {
			return IsSubclassOf(Unoptionalize(left), Unoptionalize(right))
		}
		return false
	}
	if left.Kind() == KindNone {
		return right.Kind() == KindOptional || right.Kind() == KindNone
	}
	if right.Kind() == KindOptional {
		return IsSubclassOf(left, Unoptionalize(right))
	}
	if isSequence(left) && isSequence(right) {
		return sequenceEquivalence(left, right)
	}
	if left.Kind() == KindPointer && right.Kind() == KindPointer {
		// TODO: respect schema tags once pointer types carry a real
		// schema contract; all pointers are compatible for now.
		return true
	}
	if isSimpleScalar(left) && isSimpleScalar(right) {
		if left.Kind() == KindInt && right.Kind() == KindFloat {
			return true
		}
		// Bool is deliberately not a subtype of Int.
		return left.Kind() == right.Kind()
	}
	if left.Kind() == KindCallable && right.Kind() == KindCallable {
		return true
	}
	return Equal(left, right)
}

// EquivalentTo reports mutual subtyping.
func EquivalentTo(left, right DType) bool {
	return IsSubclassOf(left, right) && IsSubclassOf(right, left)
}

// sequenceEquivalence compares Tuple/List pairs. AnyTuple matches any
// sequence; two lists compare on their element type; a list matched
// against a tuple is expanded to the tuple's arity.
func sequenceEquivalence(left, right DType) bool {
	if IsAnyTuple(left) || IsAnyTuple(right) {
		return true
	}
	l, lIsList := left.(*List)
	r, rIsList := right.(*List)
	if lIsList && rIsList {
		return Equal(l.elem, r.elem)
	}

	var largs, rargs []DType
	switch {
	case lIsList:
		rargs = right.(*Tuple).elems
		largs = repeat(l.elem, len(rargs))
	case rIsList:
		largs = left.(*Tuple).elems
		rargs = repeat(r.elem, len(largs))
	default:
		largs = left.(*Tuple).elems
		rargs = right.(*Tuple).elems
	}
	if len(largs) != len(rargs) {
		return false
	}
	for i := range largs {
		if !EquivalentTo(largs[i], rargs[i]) {
			return false
		}
	}
	return true
}

func repeat(d DType, n int) []DType {
	out := make([]DType, n)
	for i := range out {
		out[i] = d
	}
	return out
}

// TypesLCA returns the least upper bound of two types under the
// subtyping order: the single type both sides widen to when two branches
// must unify to one output type.
func (r *Registry) TypesLCA(left, right DType) DType {
	if left.Kind() == KindOptional || right.Kind() == KindOptional {
		return r.Optional(r.TypesLCA(Unoptionalize(left), Unoptionalize(right)))
	}
	if isSequence(left) && isSequence(right) {
		if IsAnyTuple(left) || IsAnyTuple(right) {
			return r.anyTuple
		}
		if sequenceEquivalence(left, right) {
			return left
		}
		return r.anyTuple
	}
	if left.Kind() == KindPointer && right.Kind() == KindPointer {
		lp := left.(*Pointer)
		rp := right.(*Pointer)
		switch {
		case lp.schema == "":
			return right
		case rp.schema == "":
			return left
		case lp.schema == rp.schema:
			return left
		default:
			return r.pointerT
		}
	}
	if IsSubclassOf(left, right) {
		return right
	}
	if IsSubclassOf(right, left) {
		return left
	}
	if left.Kind() == KindNone {
		return r.Optional(right)
	}
	if right.Kind() == KindNone {
		return r.Optional(left)
	}
	return r.anyT
}

// Unoptionalize strips one level of Optional, if present.
func Unoptionalize(d DType) DType {
	if o, ok := d.(*Optional); ok {
		return o.wrapped
	}
	return d
}

// UnoptionalizePair strips Optional from both sides, first matching a
// bare None against the other side's Optional so that None pairs with
// Optional(T) as T rather than as None.
func UnoptionalizePair(left, right DType) (DType, DType) {
	if left.Kind() == KindNone && right.Kind() == KindOptional {
		left = right
	}
	if right.Kind() == KindNone && left.Kind() == KindOptional {
		right = left
	}
	return Unoptionalize(left), Unoptionalize(right)
}

// ToEngine maps a lattice type onto its engine wire tag. Types with no
// engine-relevant distinction (None, Optional, Tuple, List, Callable)
// have no wire form and report ok=false. Tagged pointers need
// Registry.Normalize only when the caller wants the canonical lattice
// value; the wire tag itself ignores the tag.
func ToEngine(d DType) (engine.Type, bool) {
	switch d.Kind() {
	case KindInt:
		return engine.TypeInt, true
	case KindBool:
		return engine.TypeBool, true
	case KindStr:
		return engine.TypeString, true
	case KindFloat:
		return engine.TypeFloat, true
	case KindPointer:
		return engine.TypePointer, true
	case KindArray:
		return engine.TypeArray, true
	case KindJson:
		return engine.TypeJson, true
	case KindDateTimeNaive:
		return engine.TypeDateTimeNaive, true
	case KindDateTimeUtc:
		return engine.TypeDateTimeUtc, true
	case KindDuration:
		return engine.TypeDuration, true
	case KindAny:
		return engine.TypeAny, true
	case KindNone, KindOptional, KindTuple, KindList, KindCallable:
		return 0, false
	default:
		panic("dtype: unknown kind in ToEngine")
	}
}

func isSimpleScalar(d DType) bool {
	switch d.Kind() {
	case KindInt, KindBool, KindStr, KindFloat:
		return true
	default:
		return false
	}
}
