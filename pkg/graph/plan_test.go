package graph

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidelake-labs/flowplan/pkg/dtype"
)

func TestNewPlanOwnsRegistry(t *testing.T) {
	p := NewPlan(nil)
	require.NotNil(t, p.Registry())

	shared := dtype.NewRegistry(nil)
	q := NewPlan(shared)
	assert.Same(t, shared, q.Registry())
}

func TestNewUniverse(t *testing.T) {
	p := NewPlan(nil)

	u1 := p.NewUniverse()
	u2 := p.NewUniverse()

	assert.NotSame(t, u1, u2)
	assert.NotEqual(t, u1.Handle(), u2.Handle())
	assert.NotEqual(t, u1.ID(), u2.ID())
	assert.NotEmpty(t, u1.String())
	assert.Len(t, p.Universes(), 2)
}

func TestPlanRecordsNodes(t *testing.T) {
	p := NewPlan(nil)
	reg := p.Registry()
	u := p.NewUniverse()
	rw := p.NewRowwiseContext(u)
	p.NewMaterializedColumn(u, Properties{DType: reg.Int()})
	p.NewColumnWithExpression(rw, u, NewLiteral(1), nil)

	assert.Len(t, p.Contexts(), 1)
	assert.Len(t, p.Columns(), 2)
}

func TestPlanUniverseOrder(t *testing.T) {
	p := NewPlan(nil)
	reg := p.Registry()

	base := p.NewUniverse()
	rw := p.NewRowwiseContext(base)
	tbl, _ := newTestTable(t, p, base, []string{"x"}, map[string]dt{"x": reg.Bool()})
	filteringCol := p.NewColumnWithExpression(rw, base, mustRef(t, tbl, "x"), nil)

	filtered := p.NewUniverse()
	p.NewFilterContext(filtered, filteringCol, base)

	both := p.NewUniverse()
	_, err := p.NewIntersectContext(both, base, filtered)
	require.NoError(t, err)

	require.NoError(t, p.Check())

	order, err := p.UniverseOrder()
	require.NoError(t, err)
	require.Len(t, order, 3)

	pos := make(map[*Universe]int, len(order))
	for i, u := range order {
		pos[u] = i
	}
	assert.Less(t, pos[base], pos[filtered], "input universe precedes the filtered one")
	assert.Less(t, pos[filtered], pos[both], "intersection comes after both inputs")
}

func TestPlanContextOrder(t *testing.T) {
	p := NewPlan(nil)
	reg := p.Registry()

	base := p.NewUniverse()
	rw := p.NewRowwiseContext(base)
	tbl, _ := newTestTable(t, p, base, []string{"x"}, map[string]dt{"x": reg.Bool()})
	filteringCol := p.NewColumnWithExpression(rw, base, mustRef(t, tbl, "x"), nil)

	filtered := p.NewUniverse()
	fc := p.NewFilterContext(filtered, filteringCol, base)

	order, err := p.ContextOrder()
	require.NoError(t, err)
	require.NotEmpty(t, order)

	// Every context over the base universe comes before the filter.
	last := order[len(order)-1]
	assert.Same(t, Context(fc), last)
	assert.Same(t, Context(rw), order[0])
}

func TestPlanCheckDetectsCycle(t *testing.T) {
	p := NewPlan(nil)

	// Two universes, each derived from the other. The construction API
	// cannot produce this in normal use; build it directly to verify the
	// check trips.
	u1 := p.NewUniverse()
	u2 := p.NewUniverse()
	p.NewRestrictContext(u2, u1)
	p.NewRestrictContext(u1, u2)

	err := p.Check()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")

	_, err = p.UniverseOrder()
	require.Error(t, err)
}

func TestTableValidatesUniverses(t *testing.T) {
	p := NewPlan(nil)
	reg := p.Registry()
	u := p.NewUniverse()
	other := p.NewUniverse()
	ctx := p.NewRowwiseContext(u)

	good := p.NewMaterializedColumn(u, Properties{DType: reg.Int()})
	stray := p.NewMaterializedColumn(other, Properties{DType: reg.Int()})
	id := p.NewIDColumn(ctx)

	_, err := NewTable(u, id, []string{"a"}, map[string]Column{"a": stray})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUniverseMismatch))

	_, err = NewTable(u, id, []string{"missing"}, map[string]Column{"a": good})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownColumn))

	tbl, err := NewTable(u, id, []string{"a"}, map[string]Column{"a": good})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, tbl.ColumnNames())

	_, err = tbl.Column("b")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownColumn))
}

func TestContextTableValidatesUniverse(t *testing.T) {
	p := NewPlan(nil)
	reg := p.Registry()
	u := p.NewUniverse()
	other := p.NewUniverse()

	ok := p.NewMaterializedColumn(u, Properties{DType: reg.Int()})
	stray := p.NewMaterializedColumn(other, Properties{DType: reg.Int()})

	_, err := NewContextTable(u, ok, stray)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUniverseMismatch))

	ct, err := NewContextTable(u, ok)
	require.NoError(t, err)
	assert.Len(t, ct.Columns(), 1)
	assert.Same(t, u, ct.Universe())
}

func TestDescribeTable(t *testing.T) {
	p := NewPlan(nil)
	reg := p.Registry()
	u := p.NewUniverse()
	tbl, _ := newTestTable(t, p, u, []string{"amount", "tags"}, map[string]dt{
		"amount": reg.Float(),
		"tags":   reg.List(reg.Str()),
	})

	var buf bytes.Buffer
	require.NoError(t, DescribeTable(&buf, tbl))

	out := buf.String()
	assert.Contains(t, out, "amount")
	assert.Contains(t, out, "FLOAT")
	assert.Contains(t, out, "List(STR)")
	assert.Contains(t, out, IDColumnName)
	assert.Contains(t, out, u.String())
}

func TestDescribePlan(t *testing.T) {
	p := NewPlan(nil)
	u := p.NewUniverse()
	p.NewRowwiseContext(u)
	p.NewCopyContext(p.NewUniverse())

	var buf bytes.Buffer
	DescribePlan(&buf, p)

	out := buf.String()
	assert.Contains(t, out, "RowwiseContext")
	assert.Contains(t, out, "CopyContext")
}
