package graph

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tidelake-labs/flowplan/internal/trace"
	"github.com/tidelake-labs/flowplan/pkg/dtype"
)

// dt shortens column dtype maps in tests.
type dt = dtype.DType

// newTestTable builds a table of append-only materialized columns over
// the given universe, with an identity column tied to a fresh rowwise
// context.
func newTestTable(t *testing.T, p *Plan, universe *Universe, names []string, dtypes map[string]dtype.DType) (Table, map[string]*MaterializedColumn) {
	t.Helper()
	ctx := p.NewRowwiseContext(universe)
	cols := make(map[string]Column, len(names))
	mats := make(map[string]*MaterializedColumn, len(names))
	for _, name := range names {
		m := p.NewMaterializedColumn(universe, Properties{DType: dtypes[name], AppendOnly: true})
		cols[name] = m
		mats[name] = m
	}
	tbl, err := NewTable(universe, p.NewIDColumn(ctx), names, cols)
	require.NoError(t, err)
	return tbl, mats
}

func mustRef(t *testing.T, tbl Table, name string) *ColumnRefExpr {
	t.Helper()
	ref, err := RefToColumn(tbl, name)
	require.NoError(t, err)
	return ref
}

// stubOutput satisfies OutputHandle for lineage tests.
type stubOutput struct {
	table Table
	trc   trace.Trace
}

func (s *stubOutput) Value() Table       { return s.table }
func (s *stubOutput) Trace() trace.Trace { return s.trc }
