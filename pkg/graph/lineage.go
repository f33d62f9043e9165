package graph

import (
	"fmt"

	"github.com/tidelake-labs/flowplan/internal/trace"
)

// IDColumnName is the reserved name denoting a table's implicit
// row-identity column in lineage records.
const IDColumnName = "id"

// OutputHandle is the contract of an operator output (an external
// collaborator): it knows the table the operator produced and where the
// operator was invoked.
type OutputHandle interface {
	Value() Table
	Trace() trace.Trace
}

// Lineage links a node back to the operator output that produced it.
// Used purely for diagnostics and error messages; it never affects type
// or value computation.
type Lineage struct {
	Source OutputHandle
}

// Trace returns the construction site of the originating operator.
func (l Lineage) Trace() trace.Trace {
	if l.Source == nil {
		return trace.Trace{}
	}
	return l.Source.Trace()
}

// ColumnLineage links a derived column back to its originating operator
// output and the column's original name there.
type ColumnLineage struct {
	Lineage
	Name string
}

// Table returns the table produced by the source operator.
func (l ColumnLineage) Table() Table {
	if l.Source == nil {
		return nil
	}
	return l.Source.Value()
}

// OriginalColumn resolves the lineage to the column it denotes in the
// producing table; the reserved name "id" resolves to the table's
// identity column.
func (l ColumnLineage) OriginalColumn() (Column, error) {
	t := l.Table()
	if t == nil {
		return nil, fmt.Errorf("resolve lineage %q: %w", l.Name, ErrLineageUnavailable)
	}
	if l.Name == IDColumnName {
		return t.IDColumn(), nil
	}
	return t.Column(l.Name)
}

// IsMethod reports whether the lineage denotes a derived method-output
// column.
func (l ColumnLineage) IsMethod() bool {
	col, err := l.OriginalColumn()
	if err != nil {
		return false
	}
	_, ok := col.(*MethodColumn)
	return ok
}
