package dtype

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tidelake-labs/flowplan/internal/testutil"
	"github.com/tidelake-labs/flowplan/pkg/engine"
)

func TestWrapScalars(t *testing.T) {
	r := NewRegistry(nil)

	tests := []struct {
		name string
		hint any
		want DType
	}{
		{"nil is NONE", nil, r.None()},
		{"int", 7, r.Int()},
		{"int64", int64(7), r.Int()},
		{"uint32", uint32(7), r.Int()},
		{"bool", true, r.Bool()},
		{"string", "x", r.Str()},
		{"float64", 1.5, r.Float()},
		{"float32", float32(1.5), r.Float()},
		{"duration", time.Second, r.Duration()},
		{"time.Time", time.Now(), r.DateTimeUtc()},
		{"engine naive", engine.DateTimeNaive{}, r.DateTimeNaive()},
		{"engine utc", engine.DateTimeUtc{}, r.DateTimeUtc()},
		{"engine pointer", engine.Pointer{}, r.Pointer()},
		{"engine json", engine.Json{}, r.Json()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Same(t, tt.want, r.Wrap(tt.hint))
		})
	}
}

func TestWrapPassesThroughDType(t *testing.T) {
	r := NewRegistry(nil)

	opt := r.Optional(r.Int())
	assert.Same(t, opt, r.Wrap(opt))
}

func TestWrapReflectTypes(t *testing.T) {
	r := NewRegistry(nil)

	assert.Same(t, r.Int(), r.Wrap(reflect.TypeOf(0)))
	assert.Same(t, r.Any(), r.Wrap(reflect.TypeOf((*any)(nil)).Elem()))
}

func TestWrapComposites(t *testing.T) {
	r := NewRegistry(nil)

	// Go pointers mean absence, so they wrap as Optional.
	x := 3
	assert.Same(t, r.Optional(r.Int()), r.Wrap(&x))

	// []any is the universal tuple, the very same instance.
	assert.Same(t, r.AnyTuple(), r.Wrap([]any{}))
	assert.Same(t, r.List(r.Int()), r.Wrap([]int{1, 2}))
	assert.Same(t, r.Array(), r.Wrap([3]float64{}))
	assert.Same(t, r.Json(), r.Wrap(map[string]int{}))
}

func TestWrapFuncs(t *testing.T) {
	r := NewRegistry(nil)

	assert.Same(t,
		r.Callable([]DType{r.Int(), r.Str()}, r.Bool()),
		r.Wrap(func(int, string) bool { return false }))

	// Variadic functions lose their argument constraint.
	assert.Same(t,
		r.Callable(nil, r.Int()),
		r.Wrap(func(...string) int { return 0 }))

	// No results maps to NONE, several to a Tuple.
	assert.Same(t,
		r.Callable([]DType{}, r.None()),
		r.Wrap(func() {}))
	assert.Same(t,
		r.Callable([]DType{}, r.Tuple(r.Int(), r.Str())),
		r.Wrap(func() (int, string) { return 0, "" }))
}

func TestWrapUnsupportedFallsBackToAny(t *testing.T) {
	r := NewRegistry(testutil.NewTestLogger(t))

	type opaque struct{ x int }
	assert.Same(t, r.Any(), r.Wrap(opaque{}))
	assert.Same(t, r.Any(), r.Wrap(make(chan int)))
}
