package dtype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidelake-labs/flowplan/pkg/engine"
)

func TestIsSubclassOfScalars(t *testing.T) {
	r := NewRegistry(nil)

	assert.True(t, IsSubclassOf(r.Int(), r.Float()), "INT widens to FLOAT")
	assert.False(t, IsSubclassOf(r.Float(), r.Int()))
	assert.False(t, IsSubclassOf(r.Bool(), r.Int()), "BOOL must not widen numerically")
	assert.False(t, IsSubclassOf(r.Int(), r.Bool()))
	assert.True(t, IsSubclassOf(r.Str(), r.Str()))
	assert.False(t, IsSubclassOf(r.Str(), r.Float()))
}

func TestIsSubclassOfAny(t *testing.T) {
	r := NewRegistry(nil)

	for _, d := range []DType{
		r.Int(), r.None(), r.Optional(r.Str()), r.AnyTuple(),
		r.Tuple(r.Int()), r.Pointer(), r.Callable(nil, r.Int()),
	} {
		assert.True(t, IsSubclassOf(d, r.Any()), "%s <: ANY", d)
	}
	assert.False(t, IsSubclassOf(r.Any(), r.Int()))
}

func TestIsSubclassOfOptional(t *testing.T) {
	r := NewRegistry(nil)

	assert.True(t, IsSubclassOf(r.Int(), r.Optional(r.Int())))
	assert.True(t, IsSubclassOf(r.Int(), r.Optional(r.Float())))
	assert.True(t, IsSubclassOf(r.Optional(r.Int()), r.Optional(r.Float())))
	assert.False(t, IsSubclassOf(r.Optional(r.Int()), r.Int()), "optionals never narrow")
	assert.True(t, IsSubclassOf(r.None(), r.Optional(r.Int())))
	assert.True(t, IsSubclassOf(r.None(), r.None()))
	assert.False(t, IsSubclassOf(r.None(), r.Int()))
}

func TestIsSubclassOfPointers(t *testing.T) {
	r := NewRegistry(nil)

	// Schema tags are documentation; all pointers are compatible.
	assert.True(t, IsSubclassOf(r.PointerTo("orders"), r.PointerTo("users")))
	assert.True(t, IsSubclassOf(r.Pointer(), r.PointerTo("orders")))
	assert.True(t, IsSubclassOf(r.PointerTo("orders"), r.Pointer()))
}

func TestIsSubclassOfCallables(t *testing.T) {
	r := NewRegistry(nil)

	left := r.Callable([]DType{r.Int()}, r.Str())
	right := r.Callable(nil, r.Bool())
	assert.True(t, IsSubclassOf(left, right))
	assert.True(t, IsSubclassOf(right, left))
	assert.False(t, IsSubclassOf(left, r.Int()))
}

func TestSequenceEquivalence(t *testing.T) {
	r := NewRegistry(nil)

	intPair := r.Tuple(r.Int(), r.Int())
	assert.True(t, IsSubclassOf(intPair, r.AnyTuple()), "AnyTuple matches every sequence")
	assert.True(t, IsSubclassOf(r.AnyTuple(), intPair))
	assert.True(t, IsSubclassOf(r.List(r.Int()), r.AnyTuple()))

	// A list matched against a tuple expands to the tuple's arity.
	assert.True(t, IsSubclassOf(r.List(r.Int()), intPair))
	assert.True(t, IsSubclassOf(intPair, r.List(r.Int())))
	assert.False(t, IsSubclassOf(r.Tuple(r.Int(), r.Str()), r.List(r.Int())))

	// Pointwise equivalence, not pointwise widening.
	assert.False(t, IsSubclassOf(r.Tuple(r.Int()), r.Tuple(r.Float())))
	assert.True(t, IsSubclassOf(r.Tuple(r.Int(), r.Str()), r.Tuple(r.Int(), r.Str())))
	assert.False(t, IsSubclassOf(r.Tuple(r.Int()), r.Tuple(r.Int(), r.Int())))
}

func TestEquivalentTo(t *testing.T) {
	r := NewRegistry(nil)

	assert.True(t, EquivalentTo(r.Int(), r.Int()))
	assert.False(t, EquivalentTo(r.Int(), r.Float()), "one-way widening is not equivalence")
	assert.True(t, EquivalentTo(r.Tuple(r.Int(), r.Int()), r.List(r.Int())))
}

func TestTypesLCA(t *testing.T) {
	r := NewRegistry(nil)

	tests := []struct {
		name        string
		left, right DType
		want        DType
	}{
		{"identical", r.Int(), r.Int(), r.Int()},
		{"int widens to float", r.Int(), r.Float(), r.Float()},
		{"float absorbs int", r.Float(), r.Int(), r.Float()},
		{"int with none", r.Int(), r.None(), r.Optional(r.Int())},
		{"none with optional", r.None(), r.Optional(r.Str()), r.Optional(r.Str())},
		{"optional lifts the join", r.Optional(r.Int()), r.Float(), r.Optional(r.Float())},
		{"unrelated scalars", r.Int(), r.Str(), r.Any()},
		{"bool is not numeric", r.Bool(), r.Int(), r.Any()},
		{"equivalent sequences", r.Tuple(r.Int(), r.Int()), r.Tuple(r.Int(), r.Int()), r.Tuple(r.Int(), r.Int())},
		{"mismatched tuples", r.Tuple(r.Int(), r.Int()), r.Tuple(r.Int(), r.Str()), r.AnyTuple()},
		{"anytuple absorbs", r.AnyTuple(), r.Tuple(r.Int()), r.AnyTuple()},
		{"untagged pointer yields tag", r.Pointer(), r.PointerTo("orders"), r.PointerTo("orders")},
		{"same tags keep tag", r.PointerTo("orders"), r.PointerTo("orders"), r.PointerTo("orders")},
		{"different tags drop tag", r.PointerTo("orders"), r.PointerTo("users"), r.Pointer()},
		{"any dominates", r.Any(), r.Int(), r.Any()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Same(t, tt.want, r.TypesLCA(tt.left, tt.right))
		})
	}
}

func TestTypesLCACommutes(t *testing.T) {
	r := NewRegistry(nil)

	samples := []DType{
		r.Int(), r.Float(), r.Bool(), r.Str(), r.None(),
		r.Optional(r.Int()), r.Tuple(r.Int(), r.Str()), r.List(r.Int()),
		r.AnyTuple(), r.Pointer(), r.PointerTo("orders"),
	}
	for _, a := range samples {
		for _, b := range samples {
			assert.Same(t, r.TypesLCA(a, b), r.TypesLCA(b, a), "LCA(%s, %s)", a, b)
		}
	}
}

func TestUnoptionalize(t *testing.T) {
	r := NewRegistry(nil)

	assert.Same(t, r.Int(), Unoptionalize(r.Optional(r.Int())))
	assert.Same(t, r.Int(), Unoptionalize(r.Int()))
	assert.Same(t, r.None(), Unoptionalize(r.None()))
}

func TestUnoptionalizePair(t *testing.T) {
	r := NewRegistry(nil)

	l, rr := UnoptionalizePair(r.Optional(r.Int()), r.Optional(r.Str()))
	assert.Same(t, r.Int(), l)
	assert.Same(t, r.Str(), rr)

	// A bare None matches the other side's Optional.
	l, rr = UnoptionalizePair(r.None(), r.Optional(r.Str()))
	assert.Same(t, r.Str(), l)
	assert.Same(t, r.Str(), rr)

	l, rr = UnoptionalizePair(r.Optional(r.Int()), r.None())
	assert.Same(t, r.Int(), l)
	assert.Same(t, r.Int(), rr)

	l, rr = UnoptionalizePair(r.Int(), r.Str())
	assert.Same(t, r.Int(), l)
	assert.Same(t, r.Str(), rr)
}

func TestToEngine(t *testing.T) {
	r := NewRegistry(nil)

	tests := []struct {
		d    DType
		want engine.Type
	}{
		{r.Int(), engine.TypeInt},
		{r.Bool(), engine.TypeBool},
		{r.Str(), engine.TypeString},
		{r.Float(), engine.TypeFloat},
		{r.Pointer(), engine.TypePointer},
		{r.PointerTo("orders"), engine.TypePointer},
		{r.Array(), engine.TypeArray},
		{r.Json(), engine.TypeJson},
		{r.DateTimeNaive(), engine.TypeDateTimeNaive},
		{r.DateTimeUtc(), engine.TypeDateTimeUtc},
		{r.Duration(), engine.TypeDuration},
		{r.Any(), engine.TypeAny},
	}
	for _, tt := range tests {
		got, ok := ToEngine(tt.d)
		require.True(t, ok, "%s should have a wire tag", tt.d)
		assert.Equal(t, tt.want, got)
	}

	for _, d := range []DType{
		r.None(), r.Optional(r.Int()), r.Tuple(r.Int()),
		r.List(r.Int()), r.Callable(nil, r.Int()),
	} {
		_, ok := ToEngine(d)
		assert.False(t, ok, "%s has no wire form", d)
	}
}

func TestEqualAcrossRegistries(t *testing.T) {
	a := NewRegistry(nil)
	b := NewRegistry(nil)

	assert.True(t, Equal(a.Optional(a.Int()), b.Optional(b.Int())))
	assert.False(t, Equal(a.Optional(a.Int()), b.Optional(b.Str())))
	assert.NotSame(t, a.Int(), b.Int(), "separate registries intern separately")
}
