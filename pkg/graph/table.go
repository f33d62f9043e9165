package graph

import (
	"fmt"
)

// Table is the contract of a table value (an external collaborator):
// an ordered set of named columns over one universe plus the implicit
// identity column. The graph needs tables wherever an intermediate
// relation must be materialized (grouping-key tables, join-side key
// tables).
type Table interface {
	Universe() *Universe
	Column(name string) (Column, error)
	ColumnNames() []string
	IDColumn() Column
}

// planTable is the minimal Table implementation used for intermediate
// relations built by contexts.
type planTable struct {
	universe *Universe
	names    []string
	columns  map[string]Column
	idColumn Column
}

// NewTable builds a table from columns sharing one universe and a
// fresh identity column. Column order follows names.
func NewTable(universe *Universe, idColumn Column, names []string, columns map[string]Column) (Table, error) {
	if idColumn.Universe() != universe {
		return nil, fmt.Errorf("table id column: %w", ErrUniverseMismatch)
	}
	for _, name := range names {
		col, ok := columns[name]
		if !ok {
			return nil, fmt.Errorf("table column %q: %w", name, ErrUnknownColumn)
		}
		if col.Universe() != universe {
			return nil, fmt.Errorf("table column %q: %w", name, ErrUniverseMismatch)
		}
	}
	return &planTable{
		universe: universe,
		names:    append([]string(nil), names...),
		columns:  columns,
		idColumn: idColumn,
	}, nil
}

func (t *planTable) Universe() *Universe { return t.universe }

func (t *planTable) Column(name string) (Column, error) {
	col, ok := t.columns[name]
	if !ok {
		return nil, fmt.Errorf("column %q: %w", name, ErrUnknownColumn)
	}
	return col, nil
}

func (t *planTable) ColumnNames() []string {
	return append([]string(nil), t.names...)
}

func (t *planTable) IDColumn() Column { return t.idColumn }

// ContextTable is a simplified table view used inside contexts: an
// ordered sequence of columns sharing one universe, with no names and
// no identity column.
type ContextTable struct {
	columns  []Column
	universe *Universe
}

// NewContextTable builds a context table, verifying every column lives
// in the given universe.
func NewContextTable(universe *Universe, columns ...Column) (ContextTable, error) {
	for _, col := range columns {
		if col.Universe() != universe {
			return ContextTable{}, fmt.Errorf("context table: %w", ErrUniverseMismatch)
		}
	}
	return ContextTable{columns: append([]Column(nil), columns...), universe: universe}, nil
}

// Columns returns the column sequence. The returned slice must not be
// mutated.
func (t ContextTable) Columns() []Column { return t.columns }

func (t ContextTable) Universe() *Universe { return t.universe }

// createInternalTable materializes a context's internal columns as a
// concrete relation with a fresh identity column tied to the context.
func createInternalTable(p *Plan, columns []Column, universe *Universe, ctx Context) (Table, error) {
	names := make([]string, len(columns))
	byName := make(map[string]Column, len(columns))
	for i, col := range columns {
		name := fmt.Sprintf("%d", i)
		names[i] = name
		byName[name] = col
	}
	return NewTable(universe, p.NewIDColumn(ctx), names, byName)
}
